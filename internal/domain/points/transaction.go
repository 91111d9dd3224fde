package points

import (
	"time"

	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionTypeCharge        TransactionType = "charge"
	TransactionTypeAdminGrant    TransactionType = "admin_grant"
	TransactionTypeAdminDeduct   TransactionType = "admin_deduct"
	TransactionTypeCampaignSpend TransactionType = "campaign_spend"
	TransactionTypeRefund        TransactionType = "refund"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeCharge, TransactionTypeAdminGrant, TransactionTypeAdminDeduct,
		TransactionTypeCampaignSpend, TransactionTypeRefund:
		return true
	}
	return false
}

// IsCredit reports whether entries of this type add to the balance
func (t TransactionType) IsCredit() bool {
	switch t {
	case TransactionTypeCharge, TransactionTypeAdminGrant, TransactionTypeRefund:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. Amount is signed: credits are
// positive and debits negative. Corrections are made with new entries.
type Transaction struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Amount      int64
	Type        TransactionType
	Description string
	ReferenceID *uuid.UUID
	CreatedAt   time.Time
}

// NewTransaction creates a ledger entry, checking that the sign of amount
// matches the type.
func NewTransaction(companyID uuid.UUID, txType TransactionType, amount int64, description string, referenceID *uuid.UUID) (*Transaction, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewValidationError("company id is required")
	}
	if !txType.IsValid() {
		return nil, shared.NewValidationError("invalid transaction type: " + string(txType))
	}
	if amount == 0 {
		return nil, shared.NewValidationError("amount cannot be zero")
	}
	if txType.IsCredit() != (amount > 0) {
		return nil, shared.NewValidationError("amount sign does not match transaction type " + string(txType))
	}
	return &Transaction{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		ReferenceID: referenceID,
		CreatedAt:   time.Now(),
	}, nil
}

// AdjustmentType returns the admin transaction type for a signed delta
func AdjustmentType(delta int64) TransactionType {
	if delta < 0 {
		return TransactionTypeAdminDeduct
	}
	return TransactionTypeAdminGrant
}

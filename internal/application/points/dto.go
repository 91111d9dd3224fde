package points

import (
	"time"

	"github.com/cnec/backend/internal/domain/points"
	"github.com/google/uuid"
)

// ChargeInput is a company's request to buy points
type ChargeInput struct {
	CompanyID     uuid.UUID
	Amount        int64
	PaymentMethod points.PaymentMethod
	DepositorName string
	InvoiceData   points.InvoiceData
}

// ChargeRequestResponse is the API view of a charge request
type ChargeRequestResponse struct {
	ID            uuid.UUID            `json:"id"`
	CompanyID     uuid.UUID            `json:"companyId"`
	Amount        int64                `json:"amount"`
	Status        points.ChargeStatus  `json:"status"`
	PaymentMethod points.PaymentMethod `json:"paymentMethod"`
	DepositorName string               `json:"depositorName,omitempty"`
	AdminNote     string               `json:"adminNote,omitempty"`
	ConfirmedAt   *time.Time           `json:"confirmedAt,omitempty"`
	CancelledAt   *time.Time           `json:"cancelledAt,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// ToChargeRequestResponse converts a domain charge request
func ToChargeRequestResponse(r *points.ChargeRequest) ChargeRequestResponse {
	return ChargeRequestResponse{
		ID:            r.ID,
		CompanyID:     r.CompanyID,
		Amount:        r.Amount,
		Status:        r.Status,
		PaymentMethod: r.PaymentMethod,
		DepositorName: r.DepositorName,
		AdminNote:     r.AdminNote,
		ConfirmedAt:   r.ConfirmedAt,
		CancelledAt:   r.CancelledAt,
		CreatedAt:     r.CreatedAt,
	}
}

// ConfirmResult is the outcome of an admin charge confirmation
type ConfirmResult struct {
	ChargeRequest ChargeRequestResponse `json:"chargeRequest"`
	BalanceAfter  int64                 `json:"balanceAfter"`
	// InvoiceIssued is false when the tax invoice call failed or is disabled.
	// The credit stands either way.
	InvoiceIssued bool   `json:"invoiceIssued"`
	InvoiceMgtKey string `json:"invoiceMgtKey,omitempty"`
}

// AdjustResult is the outcome of an admin balance adjustment
type AdjustResult struct {
	Transaction  TransactionResponse `json:"transaction"`
	BalanceAfter int64               `json:"balanceAfter"`
}

// TransactionResponse is the API view of a ledger entry
type TransactionResponse struct {
	ID          uuid.UUID              `json:"id"`
	Amount      int64                  `json:"amount"`
	Type        points.TransactionType `json:"type"`
	Description string                 `json:"description"`
	ReferenceID *uuid.UUID             `json:"referenceId,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// ToTransactionResponse converts a domain ledger entry
func ToTransactionResponse(t *points.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		Amount:      t.Amount,
		Type:        t.Type,
		Description: t.Description,
		ReferenceID: t.ReferenceID,
		CreatedAt:   t.CreatedAt,
	}
}

// BalanceView is a company's balance with a page of its ledger
type BalanceView struct {
	CompanyID    uuid.UUID             `json:"companyId"`
	Balance      int64                 `json:"balance"`
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"pageSize"`
}

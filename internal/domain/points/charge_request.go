package points

import (
	"fmt"
	"strings"
	"time"

	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeChargeRequest is the aggregate type for ChargeRequest
const AggregateTypeChargeRequest = "ChargeRequest"

// ChargeStatus represents the status of a charge request
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "pending"
	ChargeStatusCompleted ChargeStatus = "completed"
	ChargeStatusCancelled ChargeStatus = "cancelled"

	// ChargeStatusConfirmed is written by older admin tools for a credited
	// request. It is read as terminal and never written.
	ChargeStatusConfirmed ChargeStatus = "confirmed"
)

func (s ChargeStatus) String() string {
	return string(s)
}

// IsTerminal reports whether a request can no longer be confirmed or cancelled
func (s ChargeStatus) IsTerminal() bool {
	return s != ChargeStatusPending
}

// IsCredited reports whether the request's amount was added to the balance
func (s ChargeStatus) IsCredited() bool {
	return s == ChargeStatusCompleted || s == ChargeStatusConfirmed
}

// PaymentMethod is how the company pays for the points
type PaymentMethod string

const (
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodVirtualAccount PaymentMethod = "virtual_account"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodVirtualAccount:
		return true
	}
	return false
}

// InvoiceData is passed unchanged to the tax invoice service
type InvoiceData map[string]any

// DefaultMinChargeAmount is the smallest accepted charge
const DefaultMinChargeAmount int64 = 10000

// ChargeRequest is a company's request to buy points. It is credited
// exactly once by an admin confirmation.
type ChargeRequest struct {
	shared.BaseAggregateRoot
	CompanyID     uuid.UUID
	Amount        int64
	Status        ChargeStatus
	PaymentMethod PaymentMethod
	DepositorName string
	InvoiceData   InvoiceData
	AdminNote     string
	ConfirmedAt   *time.Time
	CancelledAt   *time.Time
}

// NewChargeRequest creates a pending charge request
func NewChargeRequest(companyID uuid.UUID, amount int64, method PaymentMethod, depositorName string, invoice InvoiceData, minAmount int64) (*ChargeRequest, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewValidationError("company id is required")
	}
	if amount <= 0 {
		return nil, shared.NewValidationError("amount must be positive")
	}
	if amount < minAmount {
		return nil, shared.NewValidationError(fmt.Sprintf("minimum charge amount is %d", minAmount))
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("invalid payment method: " + string(method))
	}
	depositorName = strings.TrimSpace(depositorName)
	if method == PaymentMethodBankTransfer && depositorName == "" {
		return nil, shared.NewValidationError("depositor name is required for bank transfer")
	}
	cr := &ChargeRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CompanyID:         companyID,
		Amount:            amount,
		Status:            ChargeStatusPending,
		PaymentMethod:     method,
		DepositorName:     depositorName,
		InvoiceData:       invoice,
	}
	cr.AddDomainEvent(NewChargeRequestedEvent(cr))
	return cr, nil
}

// Complete marks a pending request as credited
func (r *ChargeRequest) Complete(adminNote string) error {
	if r.Status.IsTerminal() {
		return shared.NewConflictError(fmt.Sprintf("charge request is already %s", r.Status))
	}
	now := time.Now()
	r.Status = ChargeStatusCompleted
	r.ConfirmedAt = &now
	if n := strings.TrimSpace(adminNote); n != "" {
		r.AdminNote = n
	}
	r.IncrementVersion()
	r.Touch()
	r.AddDomainEvent(NewPointsChargedEvent(r))
	return nil
}

// Cancel withdraws a pending request. Only the requesting company may cancel.
func (r *ChargeRequest) Cancel(companyID uuid.UUID) error {
	if r.CompanyID != companyID {
		return shared.NewDomainError(shared.CodeForbidden, "only the requesting company can cancel this charge request")
	}
	switch {
	case r.Status == ChargeStatusCancelled:
		return shared.NewConflictError("charge request is already cancelled")
	case r.Status.IsCredited():
		return shared.NewConflictError("a completed charge request cannot be cancelled")
	}
	now := time.Now()
	r.Status = ChargeStatusCancelled
	r.CancelledAt = &now
	r.IncrementVersion()
	r.Touch()
	return nil
}

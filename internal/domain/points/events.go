package points

import (
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Ledger records live in the central store
const ledgerRegion = "central"

// Event type constants
const (
	EventTypeChargeRequested = "ChargeRequested"
	EventTypePointsCharged   = "PointsCharged"
	EventTypePointsAdjusted  = "PointsAdjusted"
)

// AggregateTypeCompanyBalance is the aggregate type for balance events
const AggregateTypeCompanyBalance = "CompanyBalance"

// ChargeRequestedEvent is raised when a company asks to buy points
type ChargeRequestedEvent struct {
	shared.BaseDomainEvent
	ChargeRequestID uuid.UUID     `json:"charge_request_id"`
	CompanyID       uuid.UUID     `json:"company_id"`
	Amount          int64         `json:"amount"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	DepositorName   string        `json:"depositor_name,omitempty"`
}

func NewChargeRequestedEvent(r *ChargeRequest) *ChargeRequestedEvent {
	return &ChargeRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChargeRequested, AggregateTypeChargeRequest, r.ID, r.Version, ledgerRegion),
		ChargeRequestID: r.ID,
		CompanyID:       r.CompanyID,
		Amount:          r.Amount,
		PaymentMethod:   r.PaymentMethod,
		DepositorName:   r.DepositorName,
	}
}

// PointsChargedEvent is raised when a charge request is credited
type PointsChargedEvent struct {
	shared.BaseDomainEvent
	ChargeRequestID uuid.UUID `json:"charge_request_id"`
	CompanyID       uuid.UUID `json:"company_id"`
	Amount          int64     `json:"amount"`
	BalanceAfter    int64     `json:"balance_after"`
}

func NewPointsChargedEvent(r *ChargeRequest) *PointsChargedEvent {
	return &PointsChargedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePointsCharged, AggregateTypeChargeRequest, r.ID, r.Version, ledgerRegion),
		ChargeRequestID: r.ID,
		CompanyID:       r.CompanyID,
		Amount:          r.Amount,
	}
}

// PointsAdjustedEvent is raised by an admin grant or deduction
type PointsAdjustedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	CompanyID     uuid.UUID       `json:"company_id"`
	Delta         int64           `json:"delta"`
	BalanceAfter  int64           `json:"balance_after"`
	TxType        TransactionType `json:"transaction_type"`
	Reason        string          `json:"reason"`
}

// NewPointsAdjustedEvent keys the event by the ledger entry, which is unique
// per adjustment.
func NewPointsAdjustedEvent(tx *Transaction, balanceAfter int64) *PointsAdjustedEvent {
	return &PointsAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePointsAdjusted, AggregateTypeCompanyBalance, tx.ID, 1, ledgerRegion),
		TransactionID:   tx.ID,
		CompanyID:       tx.CompanyID,
		Delta:           tx.Amount,
		BalanceAfter:    balanceAfter,
		TxType:          tx.Type,
		Reason:          tx.Description,
	}
}

package models

import (
	"encoding/json"
	"time"

	"github.com/cnec/backend/internal/domain/points"
	"github.com/google/uuid"
)

// ChargeRequestModel is the persistence model for a points charge request.
type ChargeRequestModel struct {
	AggregateModel
	CompanyID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	Amount        int64                `gorm:"not null"`
	Status        points.ChargeStatus  `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentMethod points.PaymentMethod `gorm:"type:varchar(30);not null"`
	DepositorName string               `gorm:"type:varchar(100)"`
	InvoiceData   []byte               `gorm:"type:jsonb"`
	AdminNote     string               `gorm:"type:text"`
	ConfirmedAt   *time.Time
	CancelledAt   *time.Time
}

// TableName returns the table name for GORM
func (ChargeRequestModel) TableName() string {
	return "points_charge_requests"
}

// ToDomain converts the persistence model to a domain ChargeRequest. An
// unreadable invoice_data column yields nil invoice data rather than an error.
func (m *ChargeRequestModel) ToDomain() *points.ChargeRequest {
	var invoice points.InvoiceData
	if len(m.InvoiceData) > 0 {
		_ = json.Unmarshal(m.InvoiceData, &invoice)
	}
	return &points.ChargeRequest{
		BaseAggregateRoot: m.ToAggregateRoot(),
		CompanyID:         m.CompanyID,
		Amount:            m.Amount,
		Status:            m.Status,
		PaymentMethod:     m.PaymentMethod,
		DepositorName:     m.DepositorName,
		InvoiceData:       invoice,
		AdminNote:         m.AdminNote,
		ConfirmedAt:       m.ConfirmedAt,
		CancelledAt:       m.CancelledAt,
	}
}

// FromDomain populates the persistence model from a domain ChargeRequest
func (m *ChargeRequestModel) FromDomain(r *points.ChargeRequest) error {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.CompanyID = r.CompanyID
	m.Amount = r.Amount
	m.Status = r.Status
	m.PaymentMethod = r.PaymentMethod
	m.DepositorName = r.DepositorName
	m.AdminNote = r.AdminNote
	m.ConfirmedAt = r.ConfirmedAt
	m.CancelledAt = r.CancelledAt
	m.InvoiceData = nil
	if r.InvoiceData != nil {
		data, err := json.Marshal(r.InvoiceData)
		if err != nil {
			return err
		}
		m.InvoiceData = data
	}
	return nil
}

// PointsTransactionModel is one immutable ledger entry.
type PointsTransactionModel struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID              `gorm:"type:uuid;not null;index:idx_points_tx_company_created,priority:1"`
	Amount      int64                  `gorm:"not null"`
	Type        points.TransactionType `gorm:"type:varchar(30);not null"`
	Description string                 `gorm:"type:text"`
	ReferenceID *uuid.UUID             `gorm:"type:uuid;index"`
	CreatedAt   time.Time              `gorm:"not null;index:idx_points_tx_company_created,priority:2"`
}

// TableName returns the table name for GORM
func (PointsTransactionModel) TableName() string {
	return "points_transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *PointsTransactionModel) ToDomain() *points.Transaction {
	return &points.Transaction{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		Amount:      m.Amount,
		Type:        m.Type,
		Description: m.Description,
		ReferenceID: m.ReferenceID,
		CreatedAt:   m.CreatedAt,
	}
}

// PointsTransactionModelFromDomain creates a new persistence model from a domain Transaction
func PointsTransactionModelFromDomain(t *points.Transaction) *PointsTransactionModel {
	return &PointsTransactionModel{
		ID:          t.ID,
		CompanyID:   t.CompanyID,
		Amount:      t.Amount,
		Type:        t.Type,
		Description: t.Description,
		ReferenceID: t.ReferenceID,
		CreatedAt:   t.CreatedAt,
	}
}

// CentralModels lists the tables of the central store
func CentralModels() []any {
	return []any{
		&CompanyModel{},
		&ChargeRequestModel{},
		&PointsTransactionModel{},
		&OutboxEntryModel{},
	}
}

// RegionModels lists the tables of a region store
func RegionModels() []any {
	return []any{
		&CompanyModel{},
		&CampaignModel{},
		&ParticipantModel{},
		&OutboxEntryModel{},
	}
}

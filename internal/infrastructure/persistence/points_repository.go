package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/cnec/backend/internal/domain/points"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// chargeRequestSortFields whitelists the columns a list may be ordered by
var chargeRequestSortFields = map[string]string{
	"created_at": "created_at",
	"createdAt":  "created_at",
	"amount":     "amount",
	"status":     "status",
}

func orderClause(f shared.Filter, allowed map[string]string, fallback string) string {
	column, ok := allowed[f.OrderBy]
	if !ok {
		column = fallback
	}
	if f.OrderDir == "asc" {
		return column + " ASC"
	}
	return column + " DESC"
}

// GormChargeRequestRepository implements points.ChargeRequestRepository
type GormChargeRequestRepository struct {
	db *gorm.DB
}

// NewGormChargeRequestRepository creates a charge request repository
func NewGormChargeRequestRepository(db *gorm.DB) *GormChargeRequestRepository {
	return &GormChargeRequestRepository{db: db}
}

// FindByID finds a charge request by its ID
func (r *GormChargeRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*points.ChargeRequest, error) {
	var model models.ChargeRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCompany lists a company's charge requests
func (r *GormChargeRequestRepository) FindByCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]*points.ChargeRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ChargeRequestModel{}).Where("company_id = ?", companyID)
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ChargeRequestModel
	if err := query.
		Order(orderClause(filter, chargeRequestSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*points.ChargeRequest, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// Create inserts a new charge request
func (r *GormChargeRequestRepository) Create(ctx context.Context, req *points.ChargeRequest) error {
	var model models.ChargeRequestModel
	if err := model.FromDomain(req); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// TransitionFromPending writes req's terminal status with a conditional
// update on status = 'pending'. Exactly one of two racing callers succeeds.
func (r *GormChargeRequestRepository) TransitionFromPending(ctx context.Context, req *points.ChargeRequest) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.ChargeRequestModel{}).
		Where("id = ? AND status = ?", req.ID, points.ChargeStatusPending).
		Updates(map[string]any{
			"status":       req.Status,
			"admin_note":   req.AdminNote,
			"confirmed_at": req.ConfirmedAt,
			"cancelled_at": req.CancelledAt,
			"version":      req.Version,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&models.ChargeRequestModel{}).Where("id = ?", req.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return shared.NewConflictError("charge request was already processed")
}

// GormPointsTransactionRepository is the append-only ledger
type GormPointsTransactionRepository struct {
	db *gorm.DB
}

// NewGormPointsTransactionRepository creates a ledger repository
func NewGormPointsTransactionRepository(db *gorm.DB) *GormPointsTransactionRepository {
	return &GormPointsTransactionRepository{db: db}
}

// Append inserts a ledger entry
func (r *GormPointsTransactionRepository) Append(ctx context.Context, tx *points.Transaction) error {
	return r.db.WithContext(ctx).Create(models.PointsTransactionModelFromDomain(tx)).Error
}

// FindByCompany lists a company's ledger entries, newest first
func (r *GormPointsTransactionRepository) FindByCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]*points.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PointsTransactionModel{}).Where("company_id = ?", companyID)
	if txType, ok := filter.Filters["type"].(string); ok && txType != "" {
		query = query.Where("type = ?", txType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PointsTransactionModel
	if err := query.
		Order("created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*points.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// SumByCompany returns the sum of all ledger entries of a company
func (r *GormPointsTransactionRepository) SumByCompany(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.PointsTransactionModel{}).
		Where("company_id = ?", companyID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

// GormBalanceRepository owns companies.points_balance in the central store
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a balance repository
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// Get returns the cached balance of a company
func (r *GormBalanceRepository) Get(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var model models.CompanyModel
	if err := r.db.WithContext(ctx).Select("points_balance").First(&model, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return model.PointsBalance, nil
}

// Apply adds delta in one conditional update that refuses to go below zero
func (r *GormBalanceRepository) Apply(ctx context.Context, companyID uuid.UUID, delta int64) (int64, error) {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.CompanyModel{}).
		Where("id = ? AND points_balance + ? >= 0", companyID, delta).
		Updates(map[string]any{
			"points_balance": gorm.Expr("points_balance + ?", delta),
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.Get(ctx, companyID); err != nil {
			return 0, err
		}
		return 0, shared.NewInsufficientBalanceError("insufficient points balance")
	}
	return r.Get(ctx, companyID)
}

var (
	_ points.ChargeRequestRepository = (*GormChargeRequestRepository)(nil)
	_ points.TransactionRepository   = (*GormPointsTransactionRepository)(nil)
	_ points.BalanceRepository       = (*GormBalanceRepository)(nil)
)

package persistence

import (
	"context"
	"errors"

	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCompanyRepository implements company.Repository for one store
type GormCompanyRepository struct {
	db     *gorm.DB
	region string
}

// NewGormCompanyRepository creates a company repository bound to the store region
func NewGormCompanyRepository(db *gorm.DB, region string) *GormCompanyRepository {
	return &GormCompanyRepository{db: db, region: region}
}

// FindByID finds a company by its ID
func (r *GormCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	var model models.CompanyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(r.region), nil
}

// FindByEmail finds a company by its normalized email
func (r *GormCompanyRepository) FindByEmail(ctx context.Context, email string) (*company.Company, error) {
	var model models.CompanyModel
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(r.region), nil
}

// Save creates or updates a company. The balance column is written only on
// insert; afterwards it changes through BalanceRepository.Apply.
func (r *GormCompanyRepository) Save(ctx context.Context, c *company.Company) error {
	model := models.CompanyModelFromDomain(c)
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.CompanyModel{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return db.Create(model).Error
	}
	return db.Model(model).
		Select("email", "phone", "company_name", "is_approved", "updated_at").
		Updates(model).Error
}

var _ company.Repository = (*GormCompanyRepository)(nil)

package models

import (
	"github.com/cnec/backend/internal/domain/company"
)

// CompanyModel is the persistence model for a company row. The same table
// exists in every store; only the central copy's points_balance is
// authoritative.
type CompanyModel struct {
	AggregateModel
	Email         string `gorm:"type:varchar(320);not null;index"`
	Phone         string `gorm:"type:varchar(32)"`
	DisplayName   string `gorm:"column:company_name;type:varchar(200);not null"`
	PointsBalance int64  `gorm:"not null;default:0"`
	IsApproved    bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (CompanyModel) TableName() string {
	return "companies"
}

// ToDomain converts the persistence model to a domain Company
func (m *CompanyModel) ToDomain(region string) *company.Company {
	return &company.Company{
		RegionAggregateRoot: m.ToRegionAggregateRoot(region),
		Email:               m.Email,
		Phone:               m.Phone,
		DisplayName:         m.DisplayName,
		PointsBalance:       m.PointsBalance,
		IsApproved:          m.IsApproved,
	}
}

// FromDomain populates the persistence model from a domain Company
func (m *CompanyModel) FromDomain(c *company.Company) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Email = c.Email
	m.Phone = c.Phone
	m.DisplayName = c.DisplayName
	m.PointsBalance = c.PointsBalance
	m.IsApproved = c.IsApproved
}

// CompanyModelFromDomain creates a new persistence model from a domain Company
func CompanyModelFromDomain(c *company.Company) *CompanyModel {
	m := &CompanyModel{}
	m.FromDomain(c)
	return m
}

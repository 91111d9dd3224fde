package company

import (
	"net/mail"
	"strings"

	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// AggregateTypeCompany is the aggregate type for Company
const AggregateTypeCompany = "Company"

// Company is a client company as stored in one region store or in the
// central store. Rows for the same company in different stores are only
// linked by Email.
type Company struct {
	shared.RegionAggregateRoot
	Email         string
	Phone         string
	DisplayName   string
	PointsBalance int64
	IsApproved    bool
}

// NewCompany creates a new company in the given store
func NewCompany(region, email, displayName, phone string) (*Company, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, shared.NewValidationError("company name is required")
	}
	return &Company{
		RegionAggregateRoot: shared.NewRegionAggregateRoot(region),
		Email:               normalized,
		Phone:               NormalizePhone(phone),
		DisplayName:         strings.TrimSpace(displayName),
	}, nil
}

// HasPhone reports whether an IM or SMS notification can be addressed
func (c *Company) HasPhone() bool {
	return c.Phone != ""
}

// SetApproval grants or withdraws admin approval of the account and
// reports whether the flag changed
func (c *Company) SetApproval(approve bool) bool {
	if c.IsApproved == approve {
		return false
	}
	c.IsApproved = approve
	c.Touch()
	return true
}

// FoldEmail applies NFKC, trims and lower-cases an address without
// validating it. Full-width characters typed through CJK input methods are
// folded to ASCII so lookups across stores compare equal.
func FoldEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(email)))
}

// NormalizeEmail folds an address and checks that it parses
func NormalizeEmail(email string) (string, error) {
	e := FoldEmail(email)
	if e == "" {
		return "", shared.NewValidationError("email is required")
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return "", shared.NewValidationError("invalid email: " + email)
	}
	return e, nil
}

// NormalizePhone strips everything except digits and a leading plus.
func NormalizePhone(phone string) string {
	phone = norm.NFKC.String(strings.TrimSpace(phone))
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseID parses a company id supplied by a caller
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, shared.NewValidationError("invalid company id")
	}
	return id, nil
}

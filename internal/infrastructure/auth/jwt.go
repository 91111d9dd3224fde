// Package auth issues and validates the bearer tokens of admins and company
// users.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the kind of principal a token was issued to
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCompany Role = "company"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrUnknownRole      = errors.New("unknown role")
)

// Claims represents custom JWT claims
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
}

// IsAdmin reports whether the token belongs to an admin
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Principal is the authenticated caller derived from validated claims
type Principal struct {
	Subject   string
	Email     string
	Role      Role
	CompanyID *uuid.UUID
}

// Principal converts validated claims into a caller identity. Emails are
// normalized the same way company rows are.
func (c *Claims) Principal() Principal {
	p := Principal{
		Subject: c.Subject,
		Email:   strings.ToLower(strings.TrimSpace(c.Email)),
		Role:    c.Role,
	}
	if email, err := company.NormalizeEmail(c.Email); err == nil {
		p.Email = email
	}
	if id, err := uuid.Parse(c.CompanyID); err == nil {
		p.CompanyID = &id
	}
	return p
}

// JWTService signs and validates HS256 tokens
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// IssueInput describes the principal a token is issued for
type IssueInput struct {
	Subject   string
	Email     string
	Role      Role
	CompanyID *uuid.UUID
}

// Issue signs a token for the principal. Tokens are issued by the operator
// tooling; the API only validates them.
func (s *JWTService) Issue(input IssueInput) (string, time.Time, error) {
	if input.Role != RoleAdmin && input.Role != RoleCompany {
		return "", time.Time{}, ErrUnknownRole
	}
	if strings.TrimSpace(input.Subject) == "" {
		return "", time.Time{}, ErrInvalidClaims
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   input.Subject,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: input.Email,
		Role:  input.Role,
	}
	if input.CompanyID != nil {
		claims.CompanyID = input.CompanyID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Validate parses a token and returns its claims
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, ErrInvalidClaims
	}
	if claims.Role != RoleAdmin && claims.Role != RoleCompany {
		return nil, ErrUnknownRole
	}
	return claims, nil
}

// ExtractTokenFromHeader extracts the token from a "Bearer <token>" header
func ExtractTokenFromHeader(authHeader string) (string, error) {
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(authHeader[len(prefix):]), nil
}

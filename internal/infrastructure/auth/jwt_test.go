package auth

import (
	"testing"
	"time"

	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:   "test-secret-key-at-least-32-chars",
		Issuer:   "cnec-test",
		TokenTTL: time.Hour,
	})
}

func TestIssueAndValidate_Admin(t *testing.T) {
	svc := newTestJWTService()

	token, expires, err := svc.Issue(IssueInput{Subject: "admin-1", Email: "Ops@CNEC.example", Role: RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())

	p := claims.Principal()
	assert.Equal(t, "admin-1", p.Subject)
	assert.Equal(t, "ops@cnec.example", p.Email)
	assert.Nil(t, p.CompanyID)
}

func TestIssueAndValidate_Company(t *testing.T) {
	svc := newTestJWTService()
	companyID := uuid.New()

	token, _, err := svc.Issue(IssueInput{Subject: "user-7", Email: "brand@glow.example", Role: RoleCompany, CompanyID: &companyID})
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin())
	require.NotNil(t, claims.Principal().CompanyID)
	assert.Equal(t, companyID, *claims.Principal().CompanyID)
}

func TestIssue_Rejects(t *testing.T) {
	svc := newTestJWTService()

	_, _, err := svc.Issue(IssueInput{Subject: "x", Role: Role("root")})
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, _, err = svc.Issue(IssueInput{Subject: " ", Role: RoleAdmin})
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestJWTService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.Issue(IssueInput{Subject: "admin-1", Role: RoleAdmin})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_WrongSecretOrIssuer(t *testing.T) {
	token, _, err := newTestJWTService().Issue(IssueInput{Subject: "admin-1", Role: RoleAdmin})
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-at-least-32-ch", Issuer: "cnec-test"})
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "someone-else"})
	_, err = foreign.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			Issuer:    "cnec-test",
			Audience:  jwt.ClaimStrings{"cnec-test"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestJWTService().Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"Bearer ", "", true},
		{"Basic abc", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractTokenFromHeader(tt.header)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidToken, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

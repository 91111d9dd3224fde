package company

import (
	"testing"

	"github.com/cnec/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Owner@Brand.CO.KR", "owner@brand.co.kr"},
		{"  owner@brand.com ", "owner@brand.com"},
		{"ｏｗｎｅｒ＠ｂｒａｎｄ.com", "owner@brand.com"},
	}
	for _, tt := range tests {
		got, err := NormalizeEmail(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizeEmail_Invalid(t *testing.T) {
	for _, in := range []string{"", "not-an-email", "Name <a@b.com>"} {
		_, err := NormalizeEmail(in)
		require.Error(t, err, in)
		assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "01012345678", NormalizePhone("010-1234-5678"))
	assert.Equal(t, "+821012345678", NormalizePhone("+82 10 1234 5678"))
	assert.Equal(t, "", NormalizePhone(""))
}

func TestNewCompany(t *testing.T) {
	c, err := NewCompany("korea", "Owner@Brand.com", "Brand", "010-1111-2222")
	require.NoError(t, err)

	assert.Equal(t, "korea", c.Region)
	assert.Equal(t, "owner@brand.com", c.Email)
	assert.Equal(t, "01011112222", c.Phone)
	assert.True(t, c.HasPhone())
	assert.Equal(t, int64(0), c.PointsBalance)
	assert.Equal(t, 1, c.Version)

	_, err = NewCompany("korea", "owner@brand.com", " ", "")
	assert.Error(t, err)
}

func TestCompany_SetApproval(t *testing.T) {
	c, err := NewCompany("central", "owner@brand.com", "Brand", "")
	require.NoError(t, err)
	require.False(t, c.IsApproved)

	assert.True(t, c.SetApproval(true))
	assert.True(t, c.IsApproved)
	assert.False(t, c.SetApproval(true), "repeating the decision changes nothing")

	assert.True(t, c.SetApproval(false))
	assert.False(t, c.IsApproved)
}

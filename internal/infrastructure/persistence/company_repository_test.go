package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyRepository_FindAndSave(t *testing.T) {
	store := newRegionStore(t, "japan")
	repo := NewGormCompanyRepository(store.DB, "japan")
	ctx := context.Background()

	c, err := company.NewCompany("japan", "Owner@Example.com", "Sakura Cosmetics", "090-1234-5678")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	byEmail, err := repo.FindByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byEmail.ID)
	assert.Equal(t, "japan", byEmail.Region)
	assert.Equal(t, "09012345678", byEmail.Phone)

	c.DisplayName = "Sakura Beauty"
	c.PointsBalance = 999999
	require.NoError(t, repo.Save(ctx, c))

	byID, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sakura Beauty", byID.DisplayName)
	assert.Zero(t, byID.PointsBalance, "balance only changes through the ledger")
}

func TestCompanyRepository_NotFound(t *testing.T) {
	store := newCentralStore(t)
	repo := NewGormCompanyRepository(store.DB, "central")

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCompanyRepository_DuplicateEmailReturnsOldest(t *testing.T) {
	store := newRegionStore(t, "korea")
	repo := NewGormCompanyRepository(store.DB, "korea")
	ctx := context.Background()

	older, err := company.NewCompany("korea", "dup@example.com", "First", "")
	require.NoError(t, err)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer, err := company.NewCompany("korea", "dup@example.com", "Second", "")
	require.NoError(t, err)
	newer.CreatedAt = time.Now().UTC()

	require.NoError(t, repo.Save(ctx, newer))
	require.NoError(t, repo.Save(ctx, older))

	found, err := repo.FindByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, older.ID, found.ID)
}

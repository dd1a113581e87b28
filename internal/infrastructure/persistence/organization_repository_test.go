package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

func TestGormOrganizationRepository_SaveAndFind(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()

	org, err := sync.NewOrganization("cld-123", "acme")
	require.NoError(t, err)
	org.Name = "Acme"
	require.NoError(t, repo.Save(ctx, org))

	byUID, err := repo.FindByUID(ctx, "cld-123")
	require.NoError(t, err)
	assert.Equal(t, org.ID, byUID.ID)
	assert.Equal(t, "Acme", byUID.Name)
	assert.Equal(t, "acme", byUID.Tenant)

	byID, err := repo.FindByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "cld-123", byID.UID)
}

func TestGormOrganizationRepository_NotFound(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()

	_, err := repo.FindByUID(ctx, "cld-missing")
	assert.ErrorIs(t, err, sync.ErrOrganizationNotFound)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, sync.ErrOrganizationNotFound)
}

func TestGormOrganizationRepository_FindLinked(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()

	linked, err := sync.NewOrganization("cld-linked", "acme")
	require.NoError(t, err)
	linked.LinkShop("shopify", "shop-1", "token", "acme.myshopify.com")
	require.NoError(t, repo.Save(ctx, linked))

	unlinked, err := sync.NewOrganization("cld-unlinked", "acme")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, unlinked))

	orgs, err := repo.FindLinked(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "cld-linked", orgs[0].UID)
	assert.True(t, orgs[0].Linked())
}

func TestGormOrganizationRepository_SaveUpdatesLink(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()

	org, err := sync.NewOrganization("cld-123", "acme")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, org))

	org.LinkShop("shopify", "shop-1", "token", "acme.myshopify.com")
	require.NoError(t, repo.Save(ctx, org))

	reloaded, err := repo.FindByUID(ctx, "cld-123")
	require.NoError(t, err)
	assert.Equal(t, "shop-1", reloaded.OAuthUID)
	assert.Equal(t, "acme.myshopify.com", reloaded.ShopDomain)

	reloaded.UnlinkShop()
	require.NoError(t, repo.Save(ctx, reloaded))

	final, err := repo.FindByUID(ctx, "cld-123")
	require.NoError(t, err)
	assert.False(t, final.Linked())
}

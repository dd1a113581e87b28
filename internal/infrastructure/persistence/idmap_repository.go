package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/connec/shopify-connector/internal/domain/sync"
	"github.com/connec/shopify-connector/internal/infrastructure/persistence/models"
)

// GormIdMapRepository implements sync.IdMapRepository using GORM
type GormIdMapRepository struct {
	db *gorm.DB
}

// NewGormIdMapRepository creates a new GormIdMapRepository
func NewGormIdMapRepository(db *gorm.DB) *GormIdMapRepository {
	return &GormIdMapRepository{db: db}
}

// Lookup finds the correlation record matching the key. When the key
// carries both identity halves a record matching either half is
// returned, so a half-correlated entity is still found by the id it
// already has.
func (r *GormIdMapRepository) Lookup(ctx context.Context, key sync.IdMapKey) (*sync.IdMap, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND connec_entity = ? AND external_entity = ?",
			key.OrganizationID, key.ConnecEntity, key.ExternalEntity)
	switch {
	case key.ConnecID != "" && key.ExternalID != "":
		query = query.Where(r.db.Where("connec_id = ?", key.ConnecID).Or("external_id = ?", key.ExternalID))
	case key.ConnecID != "":
		query = query.Where("connec_id = ?", key.ConnecID)
	default:
		query = query.Where("external_id = ?", key.ExternalID)
	}

	var model models.IdMapModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrIdMapNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure returns the record matching the key, creating it when absent.
// A concurrent create racing on the partial unique indexes loses the
// insert and retries the lookup, so only one record survives per
// identity.
func (r *GormIdMapRepository) Ensure(ctx context.Context, key sync.IdMapKey, name string) (*sync.IdMap, error) {
	existing, err := r.Lookup(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sync.ErrIdMapNotFound) {
		return nil, err
	}

	entity, err := sync.NewIdMap(key, name)
	if err != nil {
		return nil, err
	}
	model := models.IdMapModelFromDomain(entity)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.Lookup(ctx, key)
		}
		return nil, err
	}
	return entity, nil
}

// Save persists the record's current state
func (r *GormIdMapRepository) Save(ctx context.Context, m *sync.IdMap) error {
	model := models.IdMapModelFromDomain(m)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindFailed returns the records of an organization whose last push
// recorded an error
func (r *GormIdMapRepository) FindFailed(ctx context.Context, organizationID uuid.UUID) ([]sync.IdMap, error) {
	var idMapModels []models.IdMapModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND message <> ''", organizationID).
		Order("updated_at DESC").
		Find(&idMapModels).Error; err != nil {
		return nil, err
	}

	out := make([]sync.IdMap, len(idMapModels))
	for i, model := range idMapModels {
		out[i] = *model.ToDomain()
	}
	return out, nil
}

package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/connec/shopify-connector/internal/domain/sync"
	"github.com/connec/shopify-connector/internal/infrastructure/persistence/models"
)

// GormOrganizationRepository implements sync.OrganizationRepository using GORM
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// FindByUID finds an organization by its uid
func (r *GormOrganizationRepository) FindByUID(ctx context.Context, uid string) (*sync.Organization, error) {
	var model models.OrganizationModel
	if err := r.db.WithContext(ctx).First(&model, "uid = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrOrganizationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds an organization by its ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.Organization, error) {
	var model models.OrganizationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrOrganizationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindLinked lists the organizations with a linked shop
func (r *GormOrganizationRepository) FindLinked(ctx context.Context) ([]*sync.Organization, error) {
	var orgModels []models.OrganizationModel
	if err := r.db.WithContext(ctx).
		Where("oauth_uid <> '' AND oauth_token <> ''").
		Order("uid ASC").
		Find(&orgModels).Error; err != nil {
		return nil, err
	}

	out := make([]*sync.Organization, len(orgModels))
	for i := range orgModels {
		out[i] = orgModels[i].ToDomain()
	}
	return out, nil
}

// Save persists the organization's current state
func (r *GormOrganizationRepository) Save(ctx context.Context, org *sync.Organization) error {
	model := models.OrganizationModelFromDomain(org)
	return r.db.WithContext(ctx).Save(model).Error
}

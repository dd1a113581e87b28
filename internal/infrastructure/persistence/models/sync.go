package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

// IdMapModel is the persistence model for the IdMap domain entity.
type IdMapModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key"`
	OrganizationID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_id_maps_scope,priority:1"`
	ConnecEntity       string     `gorm:"type:varchar(50);not null;index:idx_id_maps_scope,priority:2"`
	ExternalEntity     string     `gorm:"type:varchar(50);not null;index:idx_id_maps_scope,priority:3"`
	ConnecID           string     `gorm:"type:varchar(100);index:idx_id_maps_connec"`
	ExternalID         string     `gorm:"type:varchar(100);index:idx_id_maps_external"`
	Name               string     `gorm:"type:varchar(255)"`
	Message            string     `gorm:"type:text"`
	LastPushToExternal *time.Time
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IdMapModel) TableName() string {
	return "id_maps"
}

// ToDomain converts the persistence model to a domain IdMap entity.
func (m *IdMapModel) ToDomain() *sync.IdMap {
	return &sync.IdMap{
		ID:                 m.ID,
		OrganizationID:     m.OrganizationID,
		ConnecEntity:       m.ConnecEntity,
		ExternalEntity:     m.ExternalEntity,
		ConnecID:           m.ConnecID,
		ExternalID:         m.ExternalID,
		Name:               m.Name,
		Message:            m.Message,
		LastPushToExternal: m.LastPushToExternal,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain IdMap entity.
func (m *IdMapModel) FromDomain(e *sync.IdMap) {
	m.ID = e.ID
	m.OrganizationID = e.OrganizationID
	m.ConnecEntity = e.ConnecEntity
	m.ExternalEntity = e.ExternalEntity
	m.ConnecID = e.ConnecID
	m.ExternalID = e.ExternalID
	m.Name = e.Name
	m.Message = e.Message
	m.LastPushToExternal = e.LastPushToExternal
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// IdMapModelFromDomain creates a new persistence model from a domain IdMap entity.
func IdMapModelFromDomain(e *sync.IdMap) *IdMapModel {
	m := &IdMapModel{}
	m.FromDomain(e)
	return m
}

// OrganizationModel is the persistence model for the Organization domain entity.
type OrganizationModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	UID           string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_organizations_uid"`
	Name          string    `gorm:"type:varchar(255)"`
	Tenant        string    `gorm:"type:varchar(100)"`
	OAuthProvider string    `gorm:"column:oauth_provider;type:varchar(50)"`
	OAuthUID      string    `gorm:"column:oauth_uid;type:varchar(255);index:idx_organizations_oauth_uid"`
	OAuthToken    string    `gorm:"column:oauth_token;type:varchar(255)"`
	ShopDomain    string    `gorm:"type:varchar(255)"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrganizationModel) TableName() string {
	return "organizations"
}

// ToDomain converts the persistence model to a domain Organization entity.
func (m *OrganizationModel) ToDomain() *sync.Organization {
	return &sync.Organization{
		ID:            m.ID,
		UID:           m.UID,
		Name:          m.Name,
		Tenant:        m.Tenant,
		OAuthProvider: m.OAuthProvider,
		OAuthUID:      m.OAuthUID,
		OAuthToken:    m.OAuthToken,
		ShopDomain:    m.ShopDomain,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Organization entity.
func (m *OrganizationModel) FromDomain(e *sync.Organization) {
	m.ID = e.ID
	m.UID = e.UID
	m.Name = e.Name
	m.Tenant = e.Tenant
	m.OAuthProvider = e.OAuthProvider
	m.OAuthUID = e.OAuthUID
	m.OAuthToken = e.OAuthToken
	m.ShopDomain = e.ShopDomain
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// OrganizationModelFromDomain creates a new persistence model from a domain Organization entity.
func OrganizationModelFromDomain(e *sync.Organization) *OrganizationModel {
	m := &OrganizationModel{}
	m.FromDomain(e)
	return m
}

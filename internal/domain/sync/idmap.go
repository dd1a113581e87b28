package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// IdMap Errors
// ---------------------------------------------------------------------------

var (
	ErrIdMapInvalidOrganization = errors.New("sync: invalid organization ID")
	ErrIdMapInvalidEntityPair   = errors.New("sync: connec and external entity names are required")
	ErrIdMapMissingIdentity     = errors.New("sync: at least one of connec ID or external ID is required")
	ErrIdMapNotFound            = errors.New("sync: id map not found")
)

// ---------------------------------------------------------------------------
// IdMap Entity
// ---------------------------------------------------------------------------

// IdMap is the durable correlation record linking a canonical (Connec)
// entity to its external (Shopify) counterpart. One record exists per
// logical entity per organization and entity-type pair; sub-entities
// such as variants carry their own record keyed by the sub-entity tag
// in ExternalEntity. Records are never deleted by the engine.
type IdMap struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	// ConnecEntity is the lowercased canonical entity name, e.g. "item".
	ConnecEntity string
	// ExternalEntity is the lowercased external entity name or
	// sub-entity tag, e.g. "product" or "variant".
	ExternalEntity string
	// ConnecID is the canonical-side id; empty until the entity has
	// been written to Connec.
	ConnecID string
	// ExternalID is the external-side id; empty until the entity has
	// been created on the platform.
	ExternalID string
	// Name is the last known display label of the entity.
	Name string
	// Message holds the last push error; cleared on success.
	Message string
	// LastPushToExternal is refreshed on every successful push and
	// untouched by failures.
	LastPushToExternal *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IdMapKey identifies the correlation scope plus at least one identity
// half. Used for lookups and find-or-create.
type IdMapKey struct {
	OrganizationID uuid.UUID
	ConnecEntity   string
	ExternalEntity string
	ConnecID       string
	ExternalID     string
}

// Validate checks that the key carries a full scope and at least one
// identity half.
func (k IdMapKey) Validate() error {
	if k.OrganizationID == uuid.Nil {
		return ErrIdMapInvalidOrganization
	}
	if k.ConnecEntity == "" || k.ExternalEntity == "" {
		return ErrIdMapInvalidEntityPair
	}
	if k.ConnecID == "" && k.ExternalID == "" {
		return ErrIdMapMissingIdentity
	}
	return nil
}

// NewIdMap creates a correlation record for the given key and display
// name.
func NewIdMap(key IdMapKey, name string) (*IdMap, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	return &IdMap{
		ID:             uuid.New(),
		OrganizationID: key.OrganizationID,
		ConnecEntity:   key.ConnecEntity,
		ExternalEntity: key.ExternalEntity,
		ConnecID:       key.ConnecID,
		ExternalID:     key.ExternalID,
		Name:           name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RecordSuccess marks a successful push: refreshes the push timestamp,
// clears the last error and back-fills identity halves learned from the
// platform response.
func (m *IdMap) RecordSuccess(externalID string) {
	now := time.Now()
	m.LastPushToExternal = &now
	m.Message = ""
	if externalID != "" && m.ExternalID == "" {
		m.ExternalID = externalID
	}
	m.UpdatedAt = now
}

// RecordFailure stores the push error for operator inspection. The push
// timestamp is left untouched so a later pass retries the entity.
func (m *IdMap) RecordFailure(err error) {
	if err != nil {
		m.Message = err.Error()
	}
	m.UpdatedAt = time.Now()
}

// SetConnecID back-fills the canonical id after a first successful
// Connec write.
func (m *IdMap) SetConnecID(connecID string) {
	if connecID != "" && m.ConnecID == "" {
		m.ConnecID = connecID
		m.UpdatedAt = time.Now()
	}
}

// ---------------------------------------------------------------------------
// IdMapRepository Interface
// ---------------------------------------------------------------------------

// IdMapRepository is the persistence contract for correlation records.
// Ensure must be atomic find-or-create so that concurrent passes over
// overlapping organizations cannot create duplicate records.
type IdMapRepository interface {
	// Lookup returns the unique record matching the key, searching by
	// whichever identity halves the key carries. ErrIdMapNotFound when
	// no record matches.
	Lookup(ctx context.Context, key IdMapKey) (*IdMap, error)

	// Ensure returns the record matching the key, creating it with the
	// supplied display name when absent.
	Ensure(ctx context.Context, key IdMapKey, name string) (*IdMap, error)

	// Save persists the record's current state.
	Save(ctx context.Context, m *IdMap) error

	// FindFailed returns the records of an organization whose last
	// push recorded an error, for operator inspection and retry.
	FindFailed(ctx context.Context, organizationID uuid.UUID) ([]IdMap, error)
}

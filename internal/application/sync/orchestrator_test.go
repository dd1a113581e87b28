package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type stubIdMaps struct {
	records []*sync.IdMap
}

func newStubIdMaps() *stubIdMaps { return &stubIdMaps{} }

func (s *stubIdMaps) Lookup(_ context.Context, key sync.IdMapKey) (*sync.IdMap, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	for _, m := range s.records {
		if m.OrganizationID != key.OrganizationID ||
			m.ConnecEntity != key.ConnecEntity ||
			m.ExternalEntity != key.ExternalEntity {
			continue
		}
		if key.ConnecID != "" && m.ConnecID == key.ConnecID {
			return m, nil
		}
		if key.ExternalID != "" && m.ExternalID == key.ExternalID {
			return m, nil
		}
	}
	return nil, sync.ErrIdMapNotFound
}

func (s *stubIdMaps) Ensure(ctx context.Context, key sync.IdMapKey, name string) (*sync.IdMap, error) {
	if m, err := s.Lookup(ctx, key); err == nil {
		return m, nil
	} else if !errors.Is(err, sync.ErrIdMapNotFound) {
		return nil, err
	}
	m, err := sync.NewIdMap(key, name)
	if err != nil {
		return nil, err
	}
	s.records = append(s.records, m)
	return m, nil
}

func (s *stubIdMaps) Save(context.Context, *sync.IdMap) error { return nil }

func (s *stubIdMaps) FindFailed(context.Context, uuid.UUID) ([]sync.IdMap, error) {
	var out []sync.IdMap
	for _, m := range s.records {
		if m.Message != "" {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *stubIdMaps) mustFind(t *testing.T, key sync.IdMapKey) *sync.IdMap {
	t.Helper()
	m, err := s.Lookup(context.Background(), key)
	require.NoError(t, err)
	return m
}

type externalCall struct {
	entity  string
	payload sync.Record
}

type stubExternal struct {
	find    func(entityType string, filter sync.Record) ([]sync.Record, error)
	update  func(entityType string, payload sync.Record) (sync.Record, error)
	updates []externalCall
}

func (s *stubExternal) Find(_ context.Context, entityType string, filter sync.Record) ([]sync.Record, error) {
	if s.find == nil {
		return nil, nil
	}
	return s.find(entityType, filter)
}

func (s *stubExternal) Update(_ context.Context, entityType string, payload sync.Record) (sync.Record, error) {
	s.updates = append(s.updates, externalCall{entity: entityType, payload: payload})
	if s.update == nil {
		return sync.Record{}, nil
	}
	return s.update(entityType, payload)
}

type connecCall struct {
	entity  string
	id      string
	payload sync.Record
}

type stubConnec struct {
	find    func(entityType string, filter sync.Record) ([]sync.Record, error)
	create  func(entityType string, record sync.Record) (sync.Record, error)
	writes  []connecCall
}

func (s *stubConnec) Find(_ context.Context, entityType string, filter sync.Record) ([]sync.Record, error) {
	if s.find == nil {
		return nil, nil
	}
	return s.find(entityType, filter)
}

func (s *stubConnec) Create(_ context.Context, entityType string, record sync.Record) (sync.Record, error) {
	s.writes = append(s.writes, connecCall{entity: entityType, payload: record})
	if s.create == nil {
		return sync.Record{}, nil
	}
	return s.create(entityType, record)
}

func (s *stubConnec) Update(_ context.Context, entityType, id string, record sync.Record) (sync.Record, error) {
	s.writes = append(s.writes, connecCall{entity: entityType, id: id, payload: record})
	if s.create == nil {
		return sync.Record{}, nil
	}
	return s.create(entityType, record)
}

type stubClients struct {
	external sync.ExternalClient
	connec   sync.ConnecClient
}

func (s stubClients) ExternalClient(*sync.Organization) sync.ExternalClient { return s.external }
func (s stubClients) ConnecClient(*sync.Organization) sync.ConnecClient    { return s.connec }

type stubQueue struct {
	enqueued []map[string][]sync.Record
}

func (s *stubQueue) Enqueue(_ context.Context, _ *sync.Organization, entities map[string][]sync.Record) error {
	s.enqueued = append(s.enqueued, entities)
	return nil
}

func connecID(org *sync.Organization, id string) []sync.Record {
	return sync.IDRefList(id, "connec", org.UID)
}

// ---------------------------------------------------------------------------
// PushToExternal
// ---------------------------------------------------------------------------

func TestPushToExternalCompoundCreate(t *testing.T) {
	org := testOrganization()
	repo := newStubIdMaps()
	external := &stubExternal{
		update: func(entityType string, payload sync.Record) (sync.Record, error) {
			return sync.Record{
				"id": 1001,
				"variants": []sync.Record{
					{"id": 2001, "title": "Red"},
					{"id": 2002, "title": "Blue"},
				},
			}, nil
		},
	}
	push := NewPushService(repo, zap.NewNop())
	family := NewItemFamily()

	records := []sync.Record{
		{"id": connecID(org, "P"), "name": "Shirt", "updated_at": "2020-01-01T00:00:00Z"},
		{"id": connecID(org, "V1"), "name": "Red", "parent_item_id": "P", "updated_at": "2020-01-02T00:00:00Z"},
		{"id": connecID(org, "V2"), "name": "Blue", "parent_item_id": "P", "updated_at": "2020-01-01T00:00:00Z"},
	}
	require.NoError(t, push.PushToExternal(context.Background(), org, family, external, records))

	require.Len(t, external.updates, 1)
	payload := external.updates[0].payload
	assert.Equal(t, "Shirt", payload.GetString("title"))
	_, hasID := payload.Lookup("id")
	assert.False(t, hasID)
	for _, v := range payload.GetRecords("variants") {
		_, marker := v.Lookup("connec_id")
		assert.False(t, marker)
	}

	parent := repo.mustFind(t, sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "item", ExternalEntity: "product", ConnecID: "P",
	})
	assert.Equal(t, "1001", parent.ExternalID)
	assert.NotNil(t, parent.LastPushToExternal)
	assert.Empty(t, parent.Message)

	v1 := repo.mustFind(t, sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "item", ExternalEntity: "variant", ConnecID: "V1",
	})
	assert.Equal(t, "2001", v1.ExternalID)
	v2 := repo.mustFind(t, sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "item", ExternalEntity: "variant", ConnecID: "V2",
	})
	assert.Equal(t, "2002", v2.ExternalID)
}

func TestPushToExternalUpdateStampsKnownIDs(t *testing.T) {
	org := testOrganization()
	repo := newStubIdMaps()
	seedParent, err := sync.NewIdMap(sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "item", ExternalEntity: "product",
		ConnecID: "P", ExternalID: "1001",
	}, "Shirt")
	require.NoError(t, err)
	seedChild, err := sync.NewIdMap(sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "item", ExternalEntity: "variant",
		ConnecID: "V1", ExternalID: "2001",
	}, "Red")
	require.NoError(t, err)
	repo.records = append(repo.records, seedParent, seedChild)

	external := &stubExternal{}
	push := NewPushService(repo, zap.NewNop())

	records := []sync.Record{
		{"id": connecID(org, "P"), "name": "Shirt"},
		{"id": connecID(org, "V1"), "name": "Red", "parent_item_id": "P"},
	}
	require.NoError(t, push.PushToExternal(context.Background(), org, NewItemFamily(), external, records))

	require.Len(t, external.updates, 1)
	payload := external.updates[0].payload
	assert.Equal(t, "1001", payload.GetString("id"))
	variants := payload.GetRecords("variants")
	require.Len(t, variants, 1)
	assert.Equal(t, "2001", variants[0].GetString("id"))
	assert.Equal(t, "1001", variants[0].GetString("product_id"))
}

func TestPushToExternalFailureIsolation(t *testing.T) {
	org := testOrganization()
	repo := newStubIdMaps()
	ids := map[string]int{"First": 7001, "Last": 7003}
	external := &stubExternal{
		update: func(entityType string, payload sync.Record) (sync.Record, error) {
			if payload.GetString("first_name") == "Bad" {
				return nil, errors.New("shopify: 422 unprocessable")
			}
			return sync.Record{"id": ids[payload.GetString("first_name")]}, nil
		},
	}
	push := NewPushService(repo, zap.NewNop())
	family := NewPersonFamily()

	// Middle entity fails: both its predecessor and its successor
	// must still land.
	records := []sync.Record{
		{"id": connecID(org, "C1"), "first_name": "First"},
		{"id": connecID(org, "C2"), "first_name": "Bad"},
		{"id": connecID(org, "C3"), "first_name": "Last"},
	}
	require.NoError(t, push.PushToExternal(context.Background(), org, family, external, records))

	first := repo.mustFind(t, sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "person", ExternalEntity: "customer", ConnecID: "C1",
	})
	assert.Equal(t, "7001", first.ExternalID)
	assert.NotNil(t, first.LastPushToExternal)

	failed := repo.mustFind(t, sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "person", ExternalEntity: "customer", ConnecID: "C2",
	})
	assert.Equal(t, "shopify: 422 unprocessable", failed.Message)
	assert.Nil(t, failed.LastPushToExternal)
	assert.Empty(t, failed.ExternalID)

	last := repo.mustFind(t, sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "person", ExternalEntity: "customer", ConnecID: "C3",
	})
	assert.Equal(t, "7003", last.ExternalID)
	assert.NotNil(t, last.LastPushToExternal)
}

// ---------------------------------------------------------------------------
// PushToConnec
// ---------------------------------------------------------------------------

func TestPushToConnecTwoPhase(t *testing.T) {
	org := testOrganization()
	repo := newStubIdMaps()
	connec := &stubConnec{
		create: func(entityType string, record sync.Record) (sync.Record, error) {
			if _, ok := record.Lookup(sync.FieldParentItemID); ok {
				return sync.Record{"id": connecID(org, "CHILD-"+record.GetString("name"))}, nil
			}
			return sync.Record{"id": connecID(org, "ITEM-1")}, nil
		},
	}
	push := NewPushService(repo, zap.NewNop())
	family := NewItemFamily()

	mapped := sync.Record{
		"id":   org.IDRefs(1001),
		"name": "Shirt",
		"variants": []sync.Record{
			{"external_id": 2001, "name": "Red"},
			{"external_id": 2002, "name": "Blue"},
		},
	}
	require.NoError(t, push.PushToConnec(context.Background(), org, family, connec, []sync.Record{mapped}))

	require.Len(t, connec.writes, 3)
	parentWrite := connec.writes[0]
	assert.Equal(t, "Item", parentWrite.entity)
	_, hasVariants := parentWrite.payload.Lookup("variants")
	assert.False(t, hasVariants)

	for _, childWrite := range connec.writes[1:] {
		assert.Equal(t, "ITEM-1", childWrite.payload.GetString(sync.FieldParentItemID))
	}

	parent := repo.mustFind(t, sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "item", ExternalEntity: "product", ExternalID: "1001",
	})
	assert.Equal(t, "ITEM-1", parent.ConnecID)

	child := repo.mustFind(t, sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "item", ExternalEntity: "variant", ExternalID: "2001",
	})
	assert.Equal(t, "CHILD-Red", child.ConnecID)
}

func TestPushToConnecFailedParentSkipsChildren(t *testing.T) {
	org := testOrganization()
	repo := newStubIdMaps()
	connec := &stubConnec{
		create: func(entityType string, record sync.Record) (sync.Record, error) {
			return nil, errors.New("connec: 503 unavailable")
		},
	}
	push := NewPushService(repo, zap.NewNop())

	mapped := sync.Record{
		"id":       org.IDRefs(1001),
		"name":     "Shirt",
		"variants": []sync.Record{{"external_id": 2001, "name": "Red"}},
	}
	require.NoError(t, push.PushToConnec(context.Background(), org, NewItemFamily(), connec, []sync.Record{mapped}))

	require.Len(t, connec.writes, 1)
	parent := repo.mustFind(t, sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "item", ExternalEntity: "product", ExternalID: "1001",
	})
	assert.Equal(t, "connec: 503 unavailable", parent.Message)
	assert.Empty(t, parent.ConnecID)
}

func TestPushToConnecUpdatesCorrelatedRecords(t *testing.T) {
	org := testOrganization()
	repo := newStubIdMaps()
	seeded, err := sync.NewIdMap(sync.IdMapKey{
		OrganizationID: org.ID, ConnecEntity: "person", ExternalEntity: "customer",
		ConnecID: "PERSON-1", ExternalID: "302",
	}, "Robert Brown")
	require.NoError(t, err)
	repo.records = append(repo.records, seeded)

	connec := &stubConnec{}
	push := NewPushService(repo, zap.NewNop())

	mapped := sync.Record{"id": org.IDRefs(302), "first_name": "Robert"}
	require.NoError(t, push.PushToConnec(context.Background(), org, NewPersonFamily(), connec, []sync.Record{mapped}))

	require.Len(t, connec.writes, 1)
	assert.Equal(t, "PERSON-1", connec.writes[0].id)
}

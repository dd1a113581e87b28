// Package sync implements the synchronization engine: the entity
// families pairing canonical Connec entities with their Shopify
// counterparts, the push orchestrator and the inbound entity resolver.
package sync

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/connec/shopify-connector/internal/domain/mapping"
	"github.com/connec/shopify-connector/internal/domain/sync"
)

// connecProvider is the provider tag canonical-store id triples carry.
const connecProvider = "connec"

// NewRegistry builds the family registry in dependency order: parents
// are registered before the families derived from them.
func NewRegistry() *sync.Registry {
	r := sync.NewRegistry()
	r.Register(NewPersonFamily())
	r.Register(NewItemFamily())
	r.Register(NewVariantFamily())
	r.Register(NewOrderFamily())
	r.Register(NewTransactionFamily())
	return r
}

// mapToConnecWithID runs the mapper's inbound pass and stamps the
// canonical id triple from the external record's id, which every
// inbound record gains.
func mapToConnecWithID(m *mapping.Mapping, org *sync.Organization, external sync.Record) sync.Record {
	out := m.ToConnec(external)
	if id, ok := external.Lookup("id"); ok && id != nil {
		out.Set("id", org.IDRefs(id))
	}
	return out
}

// refTransform wraps a scalar external id into the canonical triple
// list for the organization's shop.
func refTransform(org *sync.Organization) mapping.Transform {
	return func(v any) any {
		return org.IDRefs(v)
	}
}

// unrefTransform extracts the scalar external id from a canonical
// triple list.
func unrefTransform(org *sync.Organization) mapping.Transform {
	return func(v any) any {
		id, _ := sync.IDForRealm(v, org.OAuthProvider, org.OAuthUID)
		return id
	}
}

// connecIDOf extracts the canonical-store id from a canonical record's
// id triples.
func connecIDOf(org *sync.Organization, record sync.Record) string {
	id, ok := sync.IDForRealm(record.Get("id"), connecProvider, org.UID)
	if !ok {
		return ""
	}
	return cast.ToString(id)
}

// externalIDOf extracts the external-platform id from a canonical
// record: either the scalar external_id field the variant mapper
// carries, or the record's id triples stamped from an inbound payload.
func externalIDOf(org *sync.Organization, record sync.Record) string {
	if s := cast.ToString(record.Get("external_id")); s != "" {
		return s
	}
	id, ok := sync.IDForRealm(record.Get("id"), org.OAuthProvider, org.OAuthUID)
	if !ok {
		return ""
	}
	return cast.ToString(id)
}

// fullName joins first and last name fields into a display label.
func fullName(record sync.Record) string {
	return strings.TrimSpace(strings.TrimSpace(record.GetString("first_name")) + " " + strings.TrimSpace(record.GetString("last_name")))
}

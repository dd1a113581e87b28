package sync

import (
	"context"
	"errors"
	"strings"
)

var ErrFamilyNotRegistered = errors.New("sync: entity family not registered")

// Family is one entity-family variant of the engine: a pairing of a
// canonical entity type with its external counterpart plus the mapping
// between them. Dispatch is by entity-type tag through the Registry,
// not by subclassing.
type Family interface {
	// ConnecEntityName is the canonical entity type, e.g. "Item".
	ConnecEntityName() string
	// ExternalEntityName is the external entity type, e.g. "Product".
	ExternalEntityName() string

	// MapToConnec converts one external record into canonical shape.
	MapToConnec(org *Organization, external Record) (Record, error)
	// MapToExternal converts one canonical record into external shape.
	MapToExternal(org *Organization, connec Record) (Record, error)

	// NameFromConnec extracts the display label from a canonical record.
	NameFromConnec(record Record) string
	// NameFromExternal extracts the display label from an external record.
	NameFromExternal(record Record) string
}

// ExternalFetcher is implemented by families whose external records
// cannot be listed with a plain Find: orders fetch their dependent
// transactions with one extra call per parent.
type ExternalFetcher interface {
	FetchExternal(ctx context.Context, client ExternalClient) ([]Record, error)
}

// ConnecGrouper is implemented by families whose canonical records are
// flat but whose external shape is compound: items regroup their
// variant rows under the parent before mapping.
type ConnecGrouper interface {
	GroupConnec(records []Record) []Record
}

// CompoundFamily describes a family whose external record embeds an
// ordered sequence of child records carrying their own identity scope.
// The orchestrator uses these tags to resolve and back-fill the
// per-child correlation records around a single compound external call.
type CompoundFamily interface {
	// ChildField is the external field holding the children, "variants".
	ChildField() string
	// ChildEntityTag scopes child correlation records, "variant".
	ChildEntityTag() string
	// ChildParentRef is the canonical field referencing the parent,
	// "parent_item_id".
	ChildParentRef() string
	// ChildExternalParentRef is the external field referencing the
	// parent, "product_id".
	ChildExternalParentRef() string
	// NameFromChild extracts the display label from a child record.
	NameFromChild(record Record) string
}

// OneToConnec is implemented by families that are inbound-only: their
// external records are written to Connec but never pushed back out.
type OneToConnec interface {
	InboundOnly() bool
}

// DerivedFamily is implemented by families whose external records are
// not fetched directly but extracted from a parent family's fetched
// records: transactions ride along with their order.
type DerivedFamily interface {
	// ParentEntityName is the canonical name of the family whose
	// fetched records embed this family's records.
	ParentEntityName() string
	// ExtractDerived pulls this family's records out of one fetched
	// parent record, in parent order.
	ExtractDerived(parent Record) []Record
}

// WebhookFamily is implemented by families that only exist as webhook
// deltas and are skipped by full synchronization passes: variant-level
// records are covered by the compound product pull.
type WebhookFamily interface {
	WebhookOnly() bool
}

// ConnecLinker is implemented by families whose canonical records must
// be linked to a previously correlated parent before the Connec write:
// a webhook variant resolves its parent item id through the identity
// store.
type ConnecLinker interface {
	LinkConnec(ctx context.Context, org *Organization, idmaps IdMapRepository, record Record) error
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry dispatches entity families by canonical name or by the
// pluralized lowercase label external webhooks carry.
type Registry struct {
	byConnec   map[string]Family
	byExternal map[string]Family
	ordered    []Family
}

// NewRegistry creates an empty family registry.
func NewRegistry() *Registry {
	return &Registry{
		byConnec:   make(map[string]Family),
		byExternal: make(map[string]Family),
	}
}

// Register adds a family, indexing it by both entity-type tags. When
// two families share a canonical entity name the first registration
// keeps the index slot, so compound parents stay authoritative over
// families covering their sub-entities.
func (r *Registry) Register(f Family) {
	if _, ok := r.byConnec[strings.ToLower(f.ConnecEntityName())]; !ok {
		r.byConnec[strings.ToLower(f.ConnecEntityName())] = f
	}
	r.byExternal[strings.ToLower(f.ExternalEntityName())] = f
	r.ordered = append(r.ordered, f)
}

// ByConnecName returns the family for a canonical entity type.
func (r *Registry) ByConnecName(name string) (Family, error) {
	if f, ok := r.byConnec[strings.ToLower(name)]; ok {
		return f, nil
	}
	return nil, ErrFamilyNotRegistered
}

// ByExternalLabel returns the family for an external entity label,
// tolerating the pluralized form webhooks carry ("products").
func (r *Registry) ByExternalLabel(label string) (Family, error) {
	key := strings.ToLower(Singularize(label))
	if f, ok := r.byExternal[key]; ok {
		return f, nil
	}
	return nil, ErrFamilyNotRegistered
}

// All returns the registered families in registration order, which is
// the dependency order synchronization passes follow.
func (r *Registry) All() []Family {
	return r.ordered
}

// Singularize strips the plural suffix from an external entity label.
func Singularize(label string) string {
	if strings.HasSuffix(label, "ses") {
		return strings.TrimSuffix(label, "es")
	}
	if strings.HasSuffix(label, "s") && !strings.HasSuffix(label, "ss") {
		return strings.TrimSuffix(label, "s")
	}
	return label
}

// CanonicalTypeName converts an external label into the capitalized
// singular canonical type key used in resolved batches, e.g.
// "variants" into "Variant".
func CanonicalTypeName(label string) string {
	singular := Singularize(strings.ToLower(label))
	if singular == "" {
		return singular
	}
	return strings.ToUpper(singular[:1]) + singular[1:]
}

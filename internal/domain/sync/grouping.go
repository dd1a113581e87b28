package sync

import (
	"fmt"
	"time"
)

// Composite grouping: products decompose into variant-level records on
// the way into Connec and regroup under their parent on the way out.
// Both directions produce new records; shared source records are never
// mutated in place.

const (
	// FieldVariants is the external field holding a product's child
	// variant records.
	FieldVariants = "variants"
	// FieldParentItemID is the canonical field referencing a variant's
	// parent item.
	FieldParentItemID = "parent_item_id"
	// FieldUpdatedAt carries the effective modification timestamp used
	// for change detection.
	FieldUpdatedAt = "updated_at"
)

// parentFields are the product-level fields each flattened variant
// carries forward for the mapping. A variant's own value wins when both
// are present.
var parentFields = []string{"title", "body_html", "vendor"}

// FlattenProduct expands an external product record into one flattened
// record per variant. Each flattened record keeps the variant's own
// fields, carries the parent's shared fields, a product_id
// back-reference, and an effective updated_at that is the max of the
// variant's and the parent's timestamps.
func FlattenProduct(product Record) []Record {
	variants := product.GetRecords(FieldVariants)
	flattened := make([]Record, 0, len(variants))

	parentUpdated, parentHasTime := ParseTimestamp(product.Get(FieldUpdatedAt))

	for _, variant := range variants {
		flat := variant.Clone()
		if flat == nil {
			flat = NewRecord()
		}
		if _, ok := flat.Lookup("product_id"); !ok {
			if id, ok := product.Lookup("id"); ok {
				flat.Set("product_id", id)
			}
		}
		for _, field := range parentFields {
			if _, ok := flat.Lookup(field); ok {
				continue
			}
			if v, ok := product.Lookup(field); ok {
				flat.Set(field, v)
			}
		}

		effective, hasTime := ParseTimestamp(variant.Get(FieldUpdatedAt))
		if parentHasTime && (!hasTime || parentUpdated.After(effective)) {
			effective = parentUpdated
			hasTime = true
		}
		if hasTime {
			flat.Set(FieldUpdatedAt, effective.Format(time.RFC3339))
		}

		flattened = append(flattened, flat)
	}
	return flattened
}

// GroupVariants partitions a flat batch of canonical items into parents
// (no parent_item_id) and variants (parent_item_id present), attaching
// each parent's variants under FieldVariants in encounter order. A
// parent's effective updated_at becomes the max timestamp across itself
// and its variants. Variants whose parent is absent from the batch are
// dropped; grouping is batch-local, not a referential-integrity check.
func GroupVariants(items []Record) []Record {
	parents := make([]Record, 0, len(items))
	variantsByParent := make(map[string][]Record)

	for _, item := range items {
		parentRef, ok := item.Lookup(FieldParentItemID)
		if ok && parentRef != nil {
			key := refKey(parentRef)
			variantsByParent[key] = append(variantsByParent[key], item.Clone())
			continue
		}
		parents = append(parents, item.Clone())
	}

	for _, parent := range parents {
		variants := variantsByParent[refKey(parent.Get("id"))]
		if variants == nil {
			variants = []Record{}
		}
		parent.Set(FieldVariants, variants)

		maxUpdated, hasTime := ParseTimestamp(parent.Get(FieldUpdatedAt))
		for _, variant := range variants {
			if t, ok := ParseTimestamp(variant.Get(FieldUpdatedAt)); ok {
				if !hasTime || t.After(maxUpdated) {
					maxUpdated = t
					hasTime = true
				}
			}
		}
		if hasTime {
			parent.Set(FieldUpdatedAt, maxUpdated.Format(time.RFC3339))
		}
	}

	return parents
}

// refKey normalizes an id or id-reference value into a comparable
// grouping key. Canonical id triples compare by their first id half.
func refKey(v any) string {
	if refs, ok := AsRecordList(v); ok && len(refs) > 0 {
		return fmt.Sprint(refs[0].Get("id"))
	}
	return fmt.Sprint(v)
}

package sync

import (
	"context"
	"errors"

	"github.com/spf13/cast"

	"github.com/connec/shopify-connector/internal/domain/mapping"
	"github.com/connec/shopify-connector/internal/domain/sync"
)

// VariantFamily handles variant-level webhook deltas. A standalone
// variant payload maps onto the same flat canonical item row a
// flattened product yields, and links to its parent item through the
// product correlation recorded when the product itself was pulled.
// Full passes skip the family: compound product pulls already cover
// every variant.
type VariantFamily struct {
	mapper *mapping.Mapping
}

func NewVariantFamily() *VariantFamily {
	return &VariantFamily{mapper: newVariantMapper()}
}

func (f *VariantFamily) ConnecEntityName() string   { return "Item" }
func (f *VariantFamily) ExternalEntityName() string { return "Variant" }

func (f *VariantFamily) InboundOnly() bool { return true }
func (f *VariantFamily) WebhookOnly() bool { return true }

func (f *VariantFamily) MapToConnec(org *sync.Organization, external sync.Record) (sync.Record, error) {
	out := f.mapper.ToConnec(external)
	if productID, ok := external.Lookup("product_id"); ok && productID != nil {
		out.Set("product_id", productID)
	}
	return out, nil
}

func (f *VariantFamily) MapToExternal(org *sync.Organization, connec sync.Record) (sync.Record, error) {
	return f.mapper.ToExternal(connec), nil
}

func (f *VariantFamily) NameFromConnec(record sync.Record) string {
	return record.GetString("name")
}

func (f *VariantFamily) NameFromExternal(record sync.Record) string {
	return record.GetString("title")
}

// LinkConnec resolves the variant's parent item through the product
// correlation record. A variant whose product was never pulled stays
// unlinked and is written without a parent reference.
func (f *VariantFamily) LinkConnec(ctx context.Context, org *sync.Organization, idmaps sync.IdMapRepository, record sync.Record) error {
	productID := cast.ToString(record.Get("product_id"))
	record.Delete("product_id")
	if productID == "" {
		return nil
	}
	idm, err := idmaps.Lookup(ctx, sync.IdMapKey{
		OrganizationID: org.ID,
		ConnecEntity:   "item",
		ExternalEntity: "product",
		ExternalID:     productID,
	})
	if errors.Is(err, sync.ErrIdMapNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if idm.ConnecID != "" {
		record.Set(sync.FieldParentItemID, idm.ConnecID)
	}
	return nil
}

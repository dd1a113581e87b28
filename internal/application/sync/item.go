package sync

import (
	"fmt"
	"strings"

	"github.com/connec/shopify-connector/internal/domain/mapping"
	"github.com/connec/shopify-connector/internal/domain/sync"
)

// ItemFamily pairs canonical items with Shopify products. Canonical
// items are flat rows; the Shopify side is a compound product record
// embedding its variants, so the family regroups flat rows before the
// outbound mapping and lets the pull path flatten products back out.
type ItemFamily struct {
	mapper *mapping.Mapping
}

func NewItemFamily() *ItemFamily {
	return &ItemFamily{mapper: newItemMapper()}
}

func (f *ItemFamily) ConnecEntityName() string   { return "Item" }
func (f *ItemFamily) ExternalEntityName() string { return "Product" }

func (f *ItemFamily) MapToConnec(org *sync.Organization, external sync.Record) (sync.Record, error) {
	return mapToConnecWithID(f.mapper, org, external), nil
}

func (f *ItemFamily) MapToExternal(org *sync.Organization, connec sync.Record) (sync.Record, error) {
	return f.mapper.ToExternal(connec), nil
}

func (f *ItemFamily) NameFromConnec(record sync.Record) string {
	return record.GetString("name")
}

func (f *ItemFamily) NameFromExternal(record sync.Record) string {
	return record.GetString("title")
}

// GroupConnec regroups flat variant rows under their parent item.
func (f *ItemFamily) GroupConnec(records []sync.Record) []sync.Record {
	return sync.GroupVariants(records)
}

func (f *ItemFamily) ChildField() string             { return sync.FieldVariants }
func (f *ItemFamily) ChildEntityTag() string         { return "variant" }
func (f *ItemFamily) ChildParentRef() string         { return sync.FieldParentItemID }
func (f *ItemFamily) ChildExternalParentRef() string { return "product_id" }

func (f *ItemFamily) NameFromChild(record sync.Record) string {
	if name := record.GetString("name"); name != "" {
		return name
	}
	return record.GetString("title")
}

func newItemMapper() *mapping.Mapping {
	return &mapping.Mapping{
		Fields: []mapping.Field{
			{Connec: "description", External: "body_html"},
			{Connec: "name", External: "title"},
			{Connec: sync.FieldVariants, External: sync.FieldVariants, Sub: newVariantMapper()},
		},
	}
}

// newVariantMapper builds the mapper shared by product children and
// standalone variant webhook payloads. The canonical description field
// doubles as the pipe-joined option list, expanded into Shopify's
// positional option1..optionN fields by the hooks.
func newVariantMapper() *mapping.Mapping {
	return &mapping.Mapping{
		Fields: []mapping.Field{
			{Connec: "id", External: "connec_id"},
			{Connec: "external_id", External: "id"},
			{Connec: "name", External: "title"},
			{Connec: "code", External: "sku"},
			{Connec: "sale_price/net_amount", External: "price"},
			{Connec: "quantity_available", External: "inventory_quantity", ExternalTransform: mapping.ToInt},
			{Connec: "weight", External: "weight"},
			{Connec: "weight_unit", External: "weight_unit"},
		},
		AfterToExternal: expandVariantOptions,
		AfterToConnec:   collapseVariantOptions,
	}
}

func expandVariantOptions(input, output sync.Record) sync.Record {
	description := input.GetString("description")
	if description == "" {
		return output
	}
	for i, option := range strings.Split(description, "|") {
		output.Set(fmt.Sprintf("option%d", i+1), option)
	}
	return output
}

func collapseVariantOptions(input, output sync.Record) sync.Record {
	var options []string
	for i := 1; ; i++ {
		v, ok := input.Lookup(fmt.Sprintf("option%d", i))
		if !ok || v == nil {
			break
		}
		options = append(options, fmt.Sprint(v))
	}
	if len(options) > 0 {
		output.Set("description", strings.Join(options, "|"))
	}
	return output
}

package sync

import (
	"github.com/connec/shopify-connector/internal/domain/mapping"
	"github.com/connec/shopify-connector/internal/domain/sync"
)

// PersonFamily pairs canonical people with Shopify customers in both
// directions. Shopify keeps a flat address list and a free-form note;
// the canonical shape keys the billing address under address_work and
// carries notes as structured records, so the hooks bridge the two
// beyond the plain field correspondences.
type PersonFamily struct {
	mapper *mapping.Mapping
}

func NewPersonFamily() *PersonFamily {
	return &PersonFamily{mapper: newPersonMapper()}
}

func (f *PersonFamily) ConnecEntityName() string   { return "Person" }
func (f *PersonFamily) ExternalEntityName() string { return "Customer" }

func (f *PersonFamily) MapToConnec(org *sync.Organization, external sync.Record) (sync.Record, error) {
	return mapToConnecWithID(f.mapper, org, external), nil
}

func (f *PersonFamily) MapToExternal(org *sync.Organization, connec sync.Record) (sync.Record, error) {
	return f.mapper.ToExternal(connec), nil
}

func (f *PersonFamily) NameFromConnec(record sync.Record) string {
	return fullName(record)
}

func (f *PersonFamily) NameFromExternal(record sync.Record) string {
	return fullName(record)
}

func newPersonMapper() *mapping.Mapping {
	address := newCustomerAddressMapper()
	return &mapping.Mapping{
		Fields: []mapping.Field{
			{Connec: "first_name", External: "first_name"},
			{Connec: "last_name", External: "last_name"},
			{Connec: "email/address", External: "email"},
		},
		AfterToExternal: func(input, output sync.Record) sync.Record {
			if billing, ok := input.Lookup("address_work/billing"); ok {
				if rec, ok := sync.AsRecord(billing); ok {
					output.Set("addresses", []sync.Record{address.ToExternal(rec)})
				}
			}
			if notes := input.GetRecords("notes"); len(notes) > 0 {
				output.Set("note", notes[0].Get("description"))
			}
			return output
		},
		AfterToConnec: func(input, output sync.Record) sync.Record {
			output.Set("opts", sync.Record{"create_default_organization": true})
			if addresses := input.GetRecords("addresses"); len(addresses) > 0 {
				output.Set("address_work/billing", address.ToConnec(addresses[0]))
				if company := addresses[0].GetString("company"); company != "" {
					output.Set("opts", sync.Record{"attach_to_organization": company})
				}
			}
			if note := input.GetString("note"); note != "" {
				output.Set("notes", []sync.Record{{"id": "shopify", "description": note}})
			}
			return output
		},
	}
}

func newCustomerAddressMapper() *mapping.Mapping {
	return &mapping.Mapping{
		Fields: []mapping.Field{
			{Connec: "line1", External: "address1"},
			{Connec: "line2", External: "address2"},
			{Connec: "city", External: "city"},
			{Connec: "region", External: "province"},
			{Connec: "postal_code", External: "zip"},
			{Connec: "country", External: "country"},
		},
	}
}

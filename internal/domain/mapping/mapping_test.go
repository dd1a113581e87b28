package mapping

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

func TestMapping_FieldCorrespondences(t *testing.T) {
	m := &Mapping{
		Fields: []Field{
			{Connec: "name", External: "title"},
			{Connec: "code", External: "sku"},
			{Connec: "sale_price/net_amount", External: "price"},
			{Connec: "quantity_available", External: "inventory_quantity", ConnecTransform: ToInt},
		},
	}

	t.Run("to external", func(t *testing.T) {
		out := m.ToExternal(sync.Record{
			"name": "Shirt",
			"code": "SKU-1",
			"sale_price": map[string]any{
				"net_amount": 55.0,
			},
		})

		assert.Equal(t, "Shirt", out.Get("title"))
		assert.Equal(t, "SKU-1", out.Get("sku"))
		assert.Equal(t, 55.0, out.Get("price"))
	})

	t.Run("to connec writes nested paths", func(t *testing.T) {
		out := m.ToConnec(sync.Record{
			"title":              "Shirt",
			"price":              55.0,
			"inventory_quantity": "12",
		})

		assert.Equal(t, "Shirt", out.Get("name"))
		assert.Equal(t, 55.0, out.Get("sale_price/net_amount"))
		assert.Equal(t, 12, out.Get("quantity_available"))
	})

	t.Run("absent optional fields are skipped", func(t *testing.T) {
		out := m.ToExternal(sync.Record{"name": "Shirt"})

		assert.Equal(t, "Shirt", out.Get("title"))
		_, ok := out.Lookup("sku")
		assert.False(t, ok)
		_, ok = out.Lookup("price")
		assert.False(t, ok)
	})
}

func TestMapping_SideTransforms(t *testing.T) {
	// price travels as float on the canonical side, string on the
	// external side
	m := &Mapping{
		Fields: []Field{
			{
				Connec:            "unit_price/net_amount",
				External:          "price",
				ConnecTransform:   ToFloat,
				ExternalTransform: ToString,
			},
		},
	}

	out := m.ToExternal(sync.Record{"unit_price": map[string]any{"net_amount": 55.0}})
	assert.Equal(t, "55", out.Get("price"))

	back := m.ToConnec(sync.Record{"price": "55"})
	assert.Equal(t, 55.0, back.Get("unit_price/net_amount"))
}

func TestMapping_SubMapper(t *testing.T) {
	variant := &Mapping{
		Fields: []Field{
			{Connec: "name", External: "title"},
			{Connec: "code", External: "sku"},
		},
	}
	item := &Mapping{
		Fields: []Field{
			{Connec: "name", External: "title"},
			{Connec: "variants", External: "variants", Sub: variant},
		},
	}

	t.Run("applies element-wise preserving order", func(t *testing.T) {
		out := item.ToExternal(sync.Record{
			"name": "Shirt",
			"variants": []any{
				map[string]any{"name": "Red", "code": "R"},
				map[string]any{"name": "Blue", "code": "B"},
			},
		})

		variants := out.GetRecords("variants")
		require.Len(t, variants, 2)
		assert.Equal(t, "Red", variants[0].Get("title"))
		assert.Equal(t, "R", variants[0].Get("sku"))
		assert.Equal(t, "Blue", variants[1].Get("title"))
	})

	t.Run("applies to single nested record", func(t *testing.T) {
		address := &Mapping{
			Fields: []Field{{Connec: "line1", External: "address1"}},
		}
		m := &Mapping{
			Fields: []Field{{Connec: "billing_address", External: "billing_address", Sub: address}},
		}

		out := m.ToConnec(sync.Record{
			"billing_address": map[string]any{"address1": "1 Main St"},
		})

		assert.Equal(t, "1 Main St", out.Get("billing_address/line1"))
	})
}

func TestMapping_Hooks(t *testing.T) {
	m := &Mapping{
		Fields: []Field{
			{Connec: "description", External: "description"},
		},
		AfterToExternal: func(input, output sync.Record) sync.Record {
			// split a delimited canonical field into numbered options
			desc, _ := output.Delete("description").(string)
			if desc != "" {
				output.Set("option1", desc)
			}
			return output
		},
		AfterToConnec: func(input, output sync.Record) sync.Record {
			if v, ok := input.Lookup("option1"); ok {
				output.Set("description", v)
			}
			return output
		},
	}

	t.Run("hook runs after declarative pass in each direction", func(t *testing.T) {
		out := m.ToExternal(sync.Record{"description": "Red"})
		assert.Equal(t, "Red", out.Get("option1"))
		_, ok := out.Lookup("description")
		assert.False(t, ok)

		back := m.ToConnec(sync.Record{"option1": "Red"})
		assert.Equal(t, "Red", back.Get("description"))
	})

	t.Run("hook sees both input and built output", func(t *testing.T) {
		var sawInput, sawOutput bool
		probe := &Mapping{
			Fields: []Field{{Connec: "a", External: "b"}},
			AfterToExternal: func(input, output sync.Record) sync.Record {
				sawInput = input.Get("a") == "x"
				sawOutput = output.Get("b") == "x"
				return output
			},
		}

		probe.ToExternal(sync.Record{"a": "x"})
		assert.True(t, sawInput)
		assert.True(t, sawOutput)
	})
}

func TestMapping_RoundTrip(t *testing.T) {
	m := &Mapping{
		Fields: []Field{
			{Connec: "name", External: "title"},
			{Connec: "code", External: "sku"},
			{Connec: "sale_price/net_amount", External: "price"},
		},
	}

	source := sync.Record{
		"name":       "Shirt",
		"code":       "SKU-1",
		"sale_price": map[string]any{"net_amount": 55.0},
	}

	back := m.ToConnec(m.ToExternal(source))
	assert.Equal(t, fmt.Sprint(source.Get("name")), fmt.Sprint(back.Get("name")))
	assert.Equal(t, fmt.Sprint(source.Get("code")), fmt.Sprint(back.Get("code")))
	assert.Equal(t, source.Get("sale_price/net_amount"), back.Get("sale_price/net_amount"))
}

func TestTransforms(t *testing.T) {
	assert.Equal(t, 48, ToInt("48"))
	assert.Equal(t, 48, ToInt(48.0))
	assert.Equal(t, 0.05, ToFloat("0.05"))
	assert.Equal(t, "55", ToString(55))
}

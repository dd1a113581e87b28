package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

func TestOrderFamilyMapToConnec(t *testing.T) {
	org := testOrganization()
	family := NewOrderFamily()

	address := map[string]any{
		"address1":     "10 Downing St",
		"address2":     "Westminster",
		"city":         "London",
		"province":     "Greater London",
		"zip":          "SW1A 2AA",
		"country_code": "GB",
	}
	order := sync.Record{
		"id":               "ABC",
		"name":             "a sales order",
		"order_number":     1,
		"financial_status": "pending",
		"closed_at":        "1985-09-17",
		"customer":         map[string]any{"id": "person_id"},
		"billing_address":  address,
		"shipping_address": address,
		"line_items": []any{map[string]any{
			"id":         "line_id",
			"price":      55,
			"quantity":   "48",
			"title":      "description",
			"variant_id": "item_id",
		}},
	}

	out, err := family.MapToConnec(org, order)
	require.NoError(t, err)

	expectedAddress := sync.Record{
		"line1":       "10 Downing St",
		"line2":       "Westminster",
		"city":        "London",
		"region":      "Greater London",
		"postal_code": "SW1A 2AA",
		"country":     "GB",
	}
	assert.Equal(t, sync.Record{
		"id":                 org.IDRefs("ABC"),
		"title":              "a sales order",
		"transaction_number": 1,
		"status":             "DRAFT",
		"person_id":          org.IDRefs("person_id"),
		"transaction_date":   "1985-09-17",
		"billing_address":    expectedAddress,
		"shipping_address":   expectedAddress,
		"lines": []sync.Record{{
			"id":          org.IDRefs("line_id"),
			"unit_price":  sync.Record{"net_amount": 55.0},
			"quantity":    "48",
			"description": "description",
			"item_id":     org.IDRefs("item_id"),
		}},
	}, out)
}

func TestOrderFamilyStatusMapping(t *testing.T) {
	org := testOrganization()
	family := NewOrderFamily()

	for status, expected := range map[string]string{
		"pending":  "DRAFT",
		"paid":     "ACTIVE",
		"refunded": "ACTIVE",
	} {
		out, err := family.MapToConnec(org, sync.Record{"id": 1, "financial_status": status})
		require.NoError(t, err)
		assert.Equal(t, expected, out.GetString("status"), status)
	}
}

func TestLineRulesTaxAggregation(t *testing.T) {
	org := testOrganization()
	family := NewOrderFamily()

	order := sync.Record{
		"id": "T1",
		"line_items": []any{map[string]any{
			"id":         "L1",
			"price":      "10.00",
			"quantity":   2,
			"title":      "Taxed item",
			"variant_id": "V1",
			"tax_lines": []any{
				map[string]any{"price": 0.5, "rate": 0.05},
				map[string]any{"price": 0.3, "rate": 0.03},
			},
		}},
	}

	out, err := family.MapToConnec(org, order)
	require.NoError(t, err)

	lines := out.GetRecords("lines")
	require.Len(t, lines, 1)
	assert.Equal(t, 8.0, lines[0].Get("unit_price/tax_rate"))
	assert.Equal(t, 0.4, lines[0].Get("unit_price/tax_amount"))
}

func TestLineRulesTaxesIncludedAndDefaults(t *testing.T) {
	org := testOrganization()
	family := NewOrderFamily()

	order := sync.Record{
		"id": "T2",
		"line_items": []any{
			map[string]any{
				"id":             "L1",
				"price":          "21.00",
				"title":          "Inclusive item",
				"variant_id":     "V1",
				"taxes_included": true,
			},
			map[string]any{
				"id":    "L2",
				"title": "Express",
			},
			map[string]any{
				"id":         "L3",
				"title":      "Standard",
				"variant_id": nil,
			},
		},
	}

	out, err := family.MapToConnec(org, order)
	require.NoError(t, err)
	lines := out.GetRecords("lines")
	require.Len(t, lines, 3)

	inclusive := lines[0]
	assert.Equal(t, 1, inclusive.Get("quantity"))
	assert.Equal(t, 21.0, inclusive.Get("unit_price/total_amount"))
	_, hasNet := inclusive.Lookup("unit_price/net_amount")
	assert.False(t, hasNet)

	shipping := lines[1]
	assert.Equal(t, "Shipping: Express", shipping.GetString("description"))

	// An explicit null variant_id is a shipping line too.
	nullVariant := lines[2]
	assert.Equal(t, "Shipping: Standard", nullVariant.GetString("description"))
}

func TestTransactionFamilyMapToConnec(t *testing.T) {
	org := testOrganization()
	family := NewTransactionFamily()

	tx := sync.Record{
		"id":         999,
		"order_id":   "ABC",
		"amount":     "55.00",
		"currency":   "USD",
		"created_at": "2020-01-01T00:00:00Z",
		"customer":   map[string]any{"id": "person_id"},
	}

	out, err := family.MapToConnec(org, tx)
	require.NoError(t, err)

	assert.Equal(t, sync.Record{
		"id":               org.IDRefs(999),
		"title":            "ABC",
		"transaction_date": "2020-01-01T00:00:00Z",
		"person_id":        org.IDRefs("person_id"),
		"amount":           sync.Record{"currency": "USD", "total_amount": 55.0},
		"payment_lines": []sync.Record{{
			"id":     org.IDRefs("shopify-payment"),
			"amount": 55.0,
			"linked_transactions": []sync.Record{
				{"id": org.IDRefs("ABC"), "class": "Invoice"},
				{"id": org.IDRefs("ABC"), "class": "SalesOrder"},
			},
		}},
		"type":   "CUSTOMER",
		"status": "ACTIVE",
	}, out)
}

func TestOrderFamilyFetchExternal(t *testing.T) {
	family := NewOrderFamily()

	lineItems := []any{map[string]any{"id": "L1", "title": "description"}}
	customer := map[string]any{"id": "person_id"}
	client := &stubExternal{
		find: func(entityType string, filter sync.Record) ([]sync.Record, error) {
			switch entityType {
			case "Order":
				return []sync.Record{{"id": "ABC", "line_items": lineItems, "customer": customer}}, nil
			case "Transaction":
				require.Equal(t, "ABC", filter.Get("order_id"))
				return []sync.Record{{"id": 999, "amount": "55.00"}}, nil
			}
			return nil, nil
		},
	}

	orders, err := family.FetchExternal(context.Background(), client)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	transactions := orders[0].GetRecords("transactions")
	require.Len(t, transactions, 1)
	tx := transactions[0]
	assert.Equal(t, "ABC", tx.Get("order_id"))
	assert.Equal(t, 999, tx.Get("id"))
	require.Len(t, tx.GetRecords("line_items"), 1)
	assert.Equal(t, "person_id", tx.GetString("customer/id"))
}

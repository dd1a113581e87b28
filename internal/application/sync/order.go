package sync

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/connec/shopify-connector/internal/domain/mapping"
	"github.com/connec/shopify-connector/internal/domain/sync"
)

// OrderFamily pulls Shopify orders into canonical sales orders. The
// flow is inbound-only: orders originate on the shop and are never
// pushed back. Each fetched order also carries its payment
// transactions, retrieved with one extra call per order, for the
// transaction family to extract.
type OrderFamily struct{}

func NewOrderFamily() *OrderFamily { return &OrderFamily{} }

func (f *OrderFamily) ConnecEntityName() string   { return "Sales Order" }
func (f *OrderFamily) ExternalEntityName() string { return "Order" }

func (f *OrderFamily) InboundOnly() bool { return true }

func (f *OrderFamily) MapToConnec(org *sync.Organization, external sync.Record) (sync.Record, error) {
	return mapToConnecWithID(newOrderMapper(org), org, external), nil
}

func (f *OrderFamily) MapToExternal(org *sync.Organization, connec sync.Record) (sync.Record, error) {
	return newOrderMapper(org).ToExternal(connec), nil
}

func (f *OrderFamily) NameFromConnec(record sync.Record) string {
	return record.GetString("title")
}

func (f *OrderFamily) NameFromExternal(record sync.Record) string {
	return cast.ToString(record.Get("id"))
}

// FetchExternal lists orders and attaches each order's transactions,
// augmented with the order context the payment mapping needs.
func (f *OrderFamily) FetchExternal(ctx context.Context, client sync.ExternalClient) ([]sync.Record, error) {
	orders, err := client.Find(ctx, f.ExternalEntityName(), nil)
	if err != nil {
		return nil, err
	}
	out := make([]sync.Record, 0, len(orders))
	for _, order := range orders {
		order = order.Clone()
		transactions, err := fetchOrderTransactions(ctx, client, order)
		if err != nil {
			return nil, fmt.Errorf("fetching transactions for order %v: %w", order.Get("id"), err)
		}
		order.Set("transactions", transactions)
		out = append(out, order)
	}
	return out, nil
}

// fetchOrderTransactions retrieves the transactions of one order and
// copies the order id, line items and customer onto each of them.
func fetchOrderTransactions(ctx context.Context, client sync.ExternalClient, order sync.Record) ([]sync.Record, error) {
	transactions, err := client.Find(ctx, "Transaction", sync.Record{"order_id": order.Get("id")})
	if err != nil {
		return nil, err
	}
	out := make([]sync.Record, 0, len(transactions))
	for _, tx := range transactions {
		tx = tx.Clone()
		tx.Set("order_id", order.Get("id"))
		if lineItems, ok := order.Lookup("line_items"); ok {
			tx.Set("line_items", lineItems)
		}
		if customer, ok := order.Lookup("customer"); ok {
			tx.Set("customer", customer)
		}
		out = append(out, tx)
	}
	return out, nil
}

func newOrderMapper(org *sync.Organization) *mapping.Mapping {
	ref := refTransform(org)
	address := newOrderAddressMapper()
	return &mapping.Mapping{
		Fields: []mapping.Field{
			{Connec: "title", External: "name"},
			{Connec: "transaction_number", External: "order_number"},
			{Connec: "status", External: "financial_status", ConnecTransform: orderStatusToConnec},
			{Connec: "person_id", External: "customer/id", ConnecTransform: ref},
			{Connec: "transaction_date", External: "closed_at"},
			{Connec: "billing_address", External: "billing_address", Sub: address},
			{Connec: "shipping_address", External: "shipping_address", Sub: address},
			{Connec: "lines", External: "line_items", Sub: newLineMapper(org)},
		},
	}
}

// orderStatusToConnec folds Shopify financial statuses onto the
// canonical order lifecycle: unpaid orders stay drafts, everything
// else is live.
func orderStatusToConnec(v any) any {
	if cast.ToString(v) == "pending" {
		return "DRAFT"
	}
	return "ACTIVE"
}

func newOrderAddressMapper() *mapping.Mapping {
	return &mapping.Mapping{
		Fields: []mapping.Field{
			{Connec: "line1", External: "address1"},
			{Connec: "line2", External: "address2"},
			{Connec: "city", External: "city"},
			{Connec: "region", External: "province"},
			{Connec: "postal_code", External: "zip"},
			{Connec: "country", External: "country_code"},
		},
	}
}

// newLineMapper maps order line items. Monetary derivation runs on
// decimals so summed tax rates come out exact.
func newLineMapper(org *sync.Organization) *mapping.Mapping {
	ref := refTransform(org)
	unref := unrefTransform(org)
	return &mapping.Mapping{
		Fields: []mapping.Field{
			{Connec: "id", External: "id", ConnecTransform: ref, ExternalTransform: unref},
			{Connec: "unit_price/net_amount", External: "price", ConnecTransform: mapping.ToFloat, ExternalTransform: mapping.ToString},
			{Connec: "quantity", External: "quantity"},
			{Connec: "description", External: "title"},
			{Connec: "item_id", External: "variant_id", ConnecTransform: ref, ExternalTransform: unref},
		},
		AfterToConnec: applyLineRules,
	}
}

// applyLineRules finishes an inbound line: default quantity, the
// tax-inclusive price move, tax aggregation across tax lines, and the
// shipping-line label for lines without a variant.
func applyLineRules(input, output sync.Record) sync.Record {
	if _, ok := output.Lookup("quantity"); !ok {
		output.Set("quantity", 1)
	}
	if cast.ToBool(input.Get("taxes_included")) {
		if net, ok := output.Lookup("unit_price/net_amount"); ok {
			output.Delete("unit_price/net_amount")
			output.Set("unit_price/total_amount", net)
		}
	}
	if taxLines := input.GetRecords("tax_lines"); len(taxLines) > 0 {
		quantity := decimal.NewFromFloat(cast.ToFloat64(output.Get("quantity")))
		if quantity.IsZero() {
			quantity = decimal.NewFromInt(1)
		}
		rate := decimal.Zero
		amount := decimal.Zero
		for _, line := range taxLines {
			if v, ok := line.Lookup("rate"); ok && v != nil {
				rate = rate.Add(decimal.NewFromFloat(cast.ToFloat64(v)))
			}
			if v, ok := line.Lookup("price"); ok && v != nil {
				amount = amount.Add(decimal.NewFromFloat(cast.ToFloat64(v)).Div(quantity))
			}
		}
		output.Set("unit_price/tax_rate", rate.Mul(decimal.NewFromInt(100)).InexactFloat64())
		output.Set("unit_price/tax_amount", amount.InexactFloat64())
	}
	// Shipping lines carry no variant; Shopify serializes the field
	// as an explicit null.
	if v, ok := input.Lookup("variant_id"); !ok || v == nil {
		output.Set("description", "Shipping: "+input.GetString("title"))
	}
	return output
}

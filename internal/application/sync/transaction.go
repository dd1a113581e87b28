package sync

import (
	"github.com/spf13/cast"

	"github.com/connec/shopify-connector/internal/domain/mapping"
	"github.com/connec/shopify-connector/internal/domain/sync"
)

// TransactionFamily turns Shopify payment transactions into canonical
// customer payments. Transactions are never fetched on their own: the
// order family embeds them in each pulled order and this family
// extracts them. The mapping links the payment back to the order it
// settles through both Invoice and SalesOrder references, since the
// canonical store may hold either face of the order.
type TransactionFamily struct{}

func NewTransactionFamily() *TransactionFamily { return &TransactionFamily{} }

func (f *TransactionFamily) ConnecEntityName() string   { return "Payment" }
func (f *TransactionFamily) ExternalEntityName() string { return "Transaction" }

func (f *TransactionFamily) InboundOnly() bool { return true }

func (f *TransactionFamily) ParentEntityName() string { return "Sales Order" }

// ExtractDerived pulls the embedded transactions out of one fetched
// order.
func (f *TransactionFamily) ExtractDerived(parent sync.Record) []sync.Record {
	return parent.GetRecords("transactions")
}

func (f *TransactionFamily) MapToConnec(org *sync.Organization, external sync.Record) (sync.Record, error) {
	return mapToConnecWithID(newTransactionMapper(org), org, external), nil
}

func (f *TransactionFamily) MapToExternal(org *sync.Organization, connec sync.Record) (sync.Record, error) {
	return newTransactionMapper(org).ToExternal(connec), nil
}

func (f *TransactionFamily) NameFromConnec(record sync.Record) string {
	return record.GetString("title")
}

func (f *TransactionFamily) NameFromExternal(record sync.Record) string {
	return cast.ToString(record.Get("id"))
}

func newTransactionMapper(org *sync.Organization) *mapping.Mapping {
	ref := refTransform(org)
	return &mapping.Mapping{
		Fields: []mapping.Field{
			{Connec: "title", External: "order_id"},
			{Connec: "transaction_date", External: "created_at"},
			{Connec: "person_id", External: "customer/id", ConnecTransform: ref},
			{Connec: "amount/currency", External: "currency"},
			{Connec: "amount/total_amount", External: "amount", ConnecTransform: mapping.ToFloat},
		},
		AfterToConnec: func(input, output sync.Record) sync.Record {
			orderID := input.Get("order_id")
			output.Set("payment_lines", []sync.Record{{
				"id":     org.IDRefs("shopify-payment"),
				"amount": cast.ToFloat64(input.Get("amount")),
				"linked_transactions": []sync.Record{
					{"id": org.IDRefs(orderID), "class": "Invoice"},
					{"id": org.IDRefs(orderID), "class": "SalesOrder"},
				},
			}})
			output.Set("type", "CUSTOMER")
			output.Set("status", "ACTIVE")
			return output
		},
	}
}

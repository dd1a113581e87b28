package sync

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

// Resolver turns a raw webhook payload into the batches of external
// records a worker can process, keyed by canonical type name. Product
// payloads are flattened into one variant record per variant; order
// payloads trigger the follow-up transaction fetch so the payment
// rides along with the order.
type Resolver struct {
	clients ClientProvider
	queue   sync.JobQueue
	logger  *zap.Logger
}

func NewResolver(clients ClientProvider, queue sync.JobQueue, logger *zap.Logger) *Resolver {
	return &Resolver{clients: clients, queue: queue, logger: logger}
}

// Resolve expands one webhook payload into per-type record batches.
func (r *Resolver) Resolve(ctx context.Context, org *sync.Organization, label string, payload sync.Record) (map[string][]sync.Record, error) {
	switch strings.ToLower(label) {
	case "products":
		return map[string][]sync.Record{"Variant": sync.FlattenProduct(payload)}, nil
	case "orders":
		out := map[string][]sync.Record{"Order": {payload}}
		transactions, err := fetchOrderTransactions(ctx, r.clients.ExternalClient(org), payload)
		if err != nil {
			return nil, fmt.Errorf("resolving order %v: %w", payload.Get("id"), err)
		}
		if len(transactions) > 0 {
			out["Transaction"] = transactions[:1]
		}
		return out, nil
	default:
		return map[string][]sync.Record{sync.CanonicalTypeName(label): {payload}}, nil
	}
}

// Dispatch resolves one webhook payload and enqueues the batches for
// asynchronous processing.
func (r *Resolver) Dispatch(ctx context.Context, org *sync.Organization, label string, payload sync.Record) error {
	entities, err := r.Resolve(ctx, org, label, payload)
	if err != nil {
		return err
	}
	r.logger.Debug("resolved webhook payload",
		zap.String("organization", org.UID),
		zap.String("topic", label),
		zap.Int("types", len(entities)))
	return r.queue.Enqueue(ctx, org, entities)
}

package sync

import (
	"context"
)

// Ports to the two platforms and the job queue. Implementations live in
// infrastructure; the engine only depends on these contracts.

// ExternalClient is the external e-commerce platform client. Update is
// used for both creation and update: a payload without an id field
// creates, one with an id updates.
type ExternalClient interface {
	Find(ctx context.Context, entityType string, filter Record) ([]Record, error)
	Update(ctx context.Context, entityType string, payload Record) (Record, error)
}

// ConnecClient is the canonical-store client, keyed by canonical entity
// type. Records are shaped per the canonical data model; Create returns
// the stored record including its assigned id triples.
type ConnecClient interface {
	Find(ctx context.Context, entityType string, filter Record) ([]Record, error)
	Create(ctx context.Context, entityType string, record Record) (Record, error)
	Update(ctx context.Context, entityType string, id string, record Record) (Record, error)
}

// JobQueue hands resolved inbound batches to asynchronous processing.
// Fire-and-forget with at-least-once delivery; idempotent retry is
// guaranteed downstream by identity correlation, not by the queue.
type JobQueue interface {
	Enqueue(ctx context.Context, org *Organization, entities map[string][]Record) error
}

package queue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/connec/shopify-connector/internal/domain/sync"
	"github.com/connec/shopify-connector/internal/infrastructure/logger"
)

// JobSource is where a worker pulls jobs from. RedisQueue implements
// it; tests substitute an in-memory source.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)
}

// InboundProcessor consumes one dequeued batch for an organization.
type InboundProcessor interface {
	ProcessInbound(ctx context.Context, org *sync.Organization, batches map[string][]sync.Record) error
}

// Worker drains the job queue into the inbound processor. Failures are
// logged and skipped; the queue's at-least-once contract means a
// missed job resurfaces on the next webhook or scheduled pass.
type Worker struct {
	source     JobSource
	orgs       sync.OrganizationRepository
	processor  InboundProcessor
	popTimeout time.Duration
	logger     *zap.Logger
}

// NewWorker creates a queue worker.
func NewWorker(source JobSource, orgs sync.OrganizationRepository, processor InboundProcessor, popTimeout time.Duration, logger *zap.Logger) *Worker {
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	return &Worker{
		source:     source,
		orgs:       orgs,
		processor:  processor,
		popTimeout: popTimeout,
		logger:     logger,
	}
}

// Run consumes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.source.Dequeue(ctx, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to dequeue job", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *Job) {
	org, err := w.orgs.FindByUID(ctx, job.OrganizationUID)
	if err != nil {
		if errors.Is(err, sync.ErrOrganizationNotFound) {
			w.logger.Warn("dropping job for unknown organization",
				zap.String("organization", job.OrganizationUID))
			return
		}
		w.logger.Error("failed to load organization",
			zap.String("organization", job.OrganizationUID),
			zap.Error(err))
		return
	}

	ctx, log := logger.WithOrganization(ctx, w.logger, org.UID)
	if err := w.processor.ProcessInbound(ctx, org, job.Entities); err != nil {
		log.Error("failed to process inbound batch", zap.Error(err))
	}
}

package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

// ClientProvider builds per-organization platform clients. Each
// organization carries its own shop domain and credentials, so clients
// cannot be shared process-wide.
type ClientProvider interface {
	ExternalClient(org *sync.Organization) sync.ExternalClient
	ConnecClient(org *sync.Organization) sync.ConnecClient
}

// Service drives synchronization for one organization: full passes
// over every entity family, and the processing of resolved webhook
// batches dequeued by the worker.
type Service struct {
	registry *sync.Registry
	clients  ClientProvider
	push     *PushService
	logger   *zap.Logger
}

func NewService(registry *sync.Registry, clients ClientProvider, push *PushService, logger *zap.Logger) *Service {
	return &Service{registry: registry, clients: clients, push: push, logger: logger}
}

// ProcessInbound maps and writes the batches of one resolved webhook
// payload. Batches are walked in family registration order so parents
// land before the records referencing them.
func (s *Service) ProcessInbound(ctx context.Context, org *sync.Organization, batches map[string][]sync.Record) error {
	connec := s.clients.ConnecClient(org)
	for _, family := range s.registry.All() {
		key := sync.CanonicalTypeName(family.ExternalEntityName())
		records, ok := batches[key]
		if !ok || len(records) == 0 {
			continue
		}
		s.logger.Info("processing inbound batch",
			zap.String("organization", org.UID),
			zap.String("type", key),
			zap.Int("count", len(records)))
		mapped := s.mapInbound(org, family, records)
		if err := s.push.PushToConnec(ctx, org, family, connec, mapped); err != nil {
			return err
		}
	}
	return nil
}

// RunPass runs one full synchronization pass for the organization:
// every family's external records in, derived records alongside their
// parent, and canonical records out for the bidirectional families.
func (s *Service) RunPass(ctx context.Context, org *sync.Organization) error {
	if !org.Linked() {
		return sync.ErrOrganizationNotLinked
	}
	external := s.clients.ExternalClient(org)
	connec := s.clients.ConnecClient(org)

	for _, family := range s.registry.All() {
		if wf, ok := family.(sync.WebhookFamily); ok && wf.WebhookOnly() {
			continue
		}
		if _, ok := family.(sync.DerivedFamily); ok {
			continue
		}

		var (
			fetched []sync.Record
			err     error
		)
		if fetcher, ok := family.(sync.ExternalFetcher); ok {
			fetched, err = fetcher.FetchExternal(ctx, external)
		} else {
			fetched, err = external.Find(ctx, family.ExternalEntityName(), nil)
		}
		if err != nil {
			return fmt.Errorf("fetching %s records: %w", family.ExternalEntityName(), err)
		}
		mapped := s.mapInbound(org, family, fetched)
		if err := s.push.PushToConnec(ctx, org, family, connec, mapped); err != nil {
			return err
		}
		if err := s.processDerived(ctx, org, family, connec, fetched); err != nil {
			return err
		}

		if inbound, ok := family.(sync.OneToConnec); ok && inbound.InboundOnly() {
			continue
		}
		outbound, err := connec.Find(ctx, family.ConnecEntityName(), nil)
		if err != nil {
			return fmt.Errorf("fetching canonical %s records: %w", family.ConnecEntityName(), err)
		}
		if err := s.push.PushToExternal(ctx, org, family, external, outbound); err != nil {
			return err
		}
	}
	return nil
}

// processDerived maps and writes the records other families extract
// from this family's fetched parents.
func (s *Service) processDerived(ctx context.Context, org *sync.Organization, parent sync.Family, connec sync.ConnecClient, fetched []sync.Record) error {
	for _, family := range s.registry.All() {
		derived, ok := family.(sync.DerivedFamily)
		if !ok || derived.ParentEntityName() != parent.ConnecEntityName() {
			continue
		}
		var records []sync.Record
		for _, p := range fetched {
			records = append(records, derived.ExtractDerived(p)...)
		}
		if len(records) == 0 {
			continue
		}
		mapped := s.mapInbound(org, family, records)
		if err := s.push.PushToConnec(ctx, org, family, connec, mapped); err != nil {
			return err
		}
	}
	return nil
}

// mapInbound maps external records to canonical shape, dropping the
// records that fail with a logged warning so one bad payload cannot
// sink its batch.
func (s *Service) mapInbound(org *sync.Organization, family sync.Family, records []sync.Record) []sync.Record {
	mapped := make([]sync.Record, 0, len(records))
	for _, record := range records {
		m, err := family.MapToConnec(org, record)
		if err != nil {
			s.logger.Warn("inbound mapping failed",
				zap.String("organization", org.UID),
				zap.String("entity", family.ExternalEntityName()),
				zap.Error(err))
			continue
		}
		mapped = append(mapped, m)
	}
	return mapped
}

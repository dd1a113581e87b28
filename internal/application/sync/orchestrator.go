package sync

import (
	"context"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

// PushService orchestrates the writes of mapped records to either
// platform around the identity store. Failures are isolated per
// entity: a record that cannot be written gets its failure recorded on
// the correlation row and the batch moves on.
type PushService struct {
	idmaps sync.IdMapRepository
	logger *zap.Logger
}

func NewPushService(idmaps sync.IdMapRepository, logger *zap.Logger) *PushService {
	return &PushService{idmaps: idmaps, logger: logger}
}

// PushToExternal writes canonical records to the external platform.
// Compound families regroup their flat rows first, then each parent
// goes out as a single compound call with the child identities
// resolved before the write and back-filled from the response after a
// create.
func (s *PushService) PushToExternal(ctx context.Context, org *sync.Organization, family sync.Family, external sync.ExternalClient, records []sync.Record) error {
	if grouper, ok := family.(sync.ConnecGrouper); ok {
		records = grouper.GroupConnec(records)
	}
	connecEntity := strings.ToLower(family.ConnecEntityName())
	externalEntity := strings.ToLower(family.ExternalEntityName())
	compound, isCompound := family.(sync.CompoundFamily)

	for _, record := range records {
		connecID := connecIDOf(org, record)
		if connecID == "" {
			s.logger.Warn("skipping record without canonical id",
				zap.String("organization", org.UID),
				zap.String("entity", family.ConnecEntityName()))
			continue
		}
		idm, err := s.idmaps.Ensure(ctx, sync.IdMapKey{
			OrganizationID: org.ID,
			ConnecEntity:   connecEntity,
			ExternalEntity: externalEntity,
			ConnecID:       connecID,
		}, family.NameFromConnec(record))
		if err != nil {
			s.logger.Error("identity lookup failed",
				zap.String("organization", org.UID),
				zap.String("entity", family.ConnecEntityName()),
				zap.String("connec_id", connecID),
				zap.Error(err))
			continue
		}

		payload, err := family.MapToExternal(org, record)
		if err != nil {
			idm.RecordFailure(err)
			s.save(ctx, idm)
			continue
		}

		var childIDs []string
		if isCompound {
			childIDs = s.resolveChildren(ctx, org, compound, connecEntity, payload, idm)
		}
		if idm.ExternalID != "" {
			payload.Set("id", idm.ExternalID)
		}

		resp, err := external.Update(ctx, family.ExternalEntityName(), payload)
		if err != nil {
			idm.RecordFailure(err)
			s.save(ctx, idm)
			continue
		}
		idm.RecordSuccess(cast.ToString(resp.Get("id")))
		s.save(ctx, idm)
		if isCompound && resp != nil {
			s.backfillChildren(ctx, org, compound, connecEntity, resp, childIDs)
		}
	}
	return nil
}

// resolveChildren prepares the embedded child records of one compound
// payload: strip the canonical id marker the mapper carried over, set
// the external id of children pushed before, and stamp the parent
// reference when the parent is already correlated. Returns the
// canonical child ids in payload order for the response back-fill.
func (s *PushService) resolveChildren(ctx context.Context, org *sync.Organization, compound sync.CompoundFamily, connecEntity string, payload sync.Record, parent *sync.IdMap) []string {
	children := payload.GetRecords(compound.ChildField())
	ids := make([]string, len(children))
	for i, child := range children {
		id, _ := sync.IDForRealm(child.Get("connec_id"), connecProvider, org.UID)
		child.Delete("connec_id")
		ids[i] = cast.ToString(id)
		if ids[i] != "" {
			idm, err := s.idmaps.Lookup(ctx, sync.IdMapKey{
				OrganizationID: org.ID,
				ConnecEntity:   connecEntity,
				ExternalEntity: compound.ChildEntityTag(),
				ConnecID:       ids[i],
			})
			if err == nil && idm.ExternalID != "" {
				child.Set("id", idm.ExternalID)
			}
		}
		if parent.ExternalID != "" {
			child.Set(compound.ChildExternalParentRef(), parent.ExternalID)
		}
	}
	return ids
}

// backfillChildren records the external ids a compound create assigned
// to the embedded children. The platform returns children in payload
// order, so pairing is positional.
func (s *PushService) backfillChildren(ctx context.Context, org *sync.Organization, compound sync.CompoundFamily, connecEntity string, resp sync.Record, childIDs []string) {
	for i, child := range resp.GetRecords(compound.ChildField()) {
		externalID := cast.ToString(child.Get("id"))
		if externalID == "" {
			continue
		}
		key := sync.IdMapKey{
			OrganizationID: org.ID,
			ConnecEntity:   connecEntity,
			ExternalEntity: compound.ChildEntityTag(),
			ExternalID:     externalID,
		}
		if i < len(childIDs) && childIDs[i] != "" {
			key.ConnecID = childIDs[i]
			key.ExternalID = ""
		}
		idm, err := s.idmaps.Ensure(ctx, key, compound.NameFromChild(child))
		if err != nil {
			s.logger.Error("child identity lookup failed",
				zap.String("organization", org.UID),
				zap.String("external_id", externalID),
				zap.Error(err))
			continue
		}
		idm.RecordSuccess(externalID)
		s.save(ctx, idm)
	}
}

// PushToConnec writes mapped canonical records to the canonical store
// in two phases: parents first, then the children of the parents that
// made it, each child stamped with its parent's canonical id. Children
// of a failed parent are skipped for the pass.
func (s *PushService) PushToConnec(ctx context.Context, org *sync.Organization, family sync.Family, connec sync.ConnecClient, records []sync.Record) error {
	connecEntity := strings.ToLower(family.ConnecEntityName())
	externalEntity := strings.ToLower(family.ExternalEntityName())
	compound, isCompound := family.(sync.CompoundFamily)

	type pushed struct {
		parent   *sync.IdMap
		children []sync.Record
	}
	var succeeded []pushed

	for _, record := range records {
		if linker, ok := family.(sync.ConnecLinker); ok {
			if err := linker.LinkConnec(ctx, org, s.idmaps, record); err != nil {
				s.logger.Error("parent link failed",
					zap.String("organization", org.UID),
					zap.String("entity", family.ConnecEntityName()),
					zap.Error(err))
			}
		}
		externalID := externalIDOf(org, record)
		if externalID == "" {
			s.logger.Warn("skipping record without external id",
				zap.String("organization", org.UID),
				zap.String("entity", family.ConnecEntityName()))
			continue
		}
		idm, err := s.idmaps.Ensure(ctx, sync.IdMapKey{
			OrganizationID: org.ID,
			ConnecEntity:   connecEntity,
			ExternalEntity: externalEntity,
			ExternalID:     externalID,
		}, displayName(family, record))
		if err != nil {
			s.logger.Error("identity lookup failed",
				zap.String("organization", org.UID),
				zap.String("entity", family.ConnecEntityName()),
				zap.String("external_id", externalID),
				zap.Error(err))
			continue
		}

		payload := record
		var children []sync.Record
		if isCompound {
			payload = record.Clone()
			children = payload.GetRecords(compound.ChildField())
			payload.Delete(compound.ChildField())
		}
		if !s.writeConnec(ctx, connec, family.ConnecEntityName(), org, idm, payload) {
			continue
		}
		if isCompound && idm.ConnecID != "" {
			succeeded = append(succeeded, pushed{parent: idm, children: children})
		}
	}

	for _, p := range succeeded {
		for _, child := range p.children {
			child.Set(compound.ChildParentRef(), p.parent.ConnecID)
			externalID := externalIDOf(org, child)
			if externalID == "" {
				continue
			}
			idm, err := s.idmaps.Ensure(ctx, sync.IdMapKey{
				OrganizationID: org.ID,
				ConnecEntity:   connecEntity,
				ExternalEntity: compound.ChildEntityTag(),
				ExternalID:     externalID,
			}, compound.NameFromChild(child))
			if err != nil {
				s.logger.Error("child identity lookup failed",
					zap.String("organization", org.UID),
					zap.String("external_id", externalID),
					zap.Error(err))
				continue
			}
			s.writeConnec(ctx, connec, family.ConnecEntityName(), org, idm, child)
		}
	}
	return nil
}

// writeConnec performs one canonical write, creating when the record
// was never correlated and updating otherwise, and settles the
// correlation row either way.
func (s *PushService) writeConnec(ctx context.Context, connec sync.ConnecClient, entityName string, org *sync.Organization, idm *sync.IdMap, payload sync.Record) bool {
	var (
		resp sync.Record
		err  error
	)
	if idm.ConnecID == "" {
		resp, err = connec.Create(ctx, entityName, payload)
	} else {
		resp, err = connec.Update(ctx, entityName, idm.ConnecID, payload)
	}
	if err != nil {
		idm.RecordFailure(err)
		s.save(ctx, idm)
		return false
	}
	if resp != nil {
		if id := connecIDOf(org, resp); id != "" {
			idm.SetConnecID(id)
		}
	}
	idm.RecordSuccess("")
	s.save(ctx, idm)
	return true
}

func (s *PushService) save(ctx context.Context, idm *sync.IdMap) {
	if err := s.idmaps.Save(ctx, idm); err != nil {
		s.logger.Error("failed to persist id map",
			zap.String("id_map", idm.ID.String()),
			zap.Error(err))
	}
}

// displayName prefers the canonical label and falls back to the
// external one, since inbound records keep external field names for
// sub-entities.
func displayName(family sync.Family, record sync.Record) string {
	if name := family.NameFromConnec(record); name != "" {
		return name
	}
	return family.NameFromExternal(record)
}

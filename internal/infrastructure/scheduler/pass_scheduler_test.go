package scheduler

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

type stubOrgRepo struct {
	linked []*sync.Organization
	err    error
}

func (r *stubOrgRepo) FindByUID(ctx context.Context, uid string) (*sync.Organization, error) {
	return nil, sync.ErrOrganizationNotFound
}

func (r *stubOrgRepo) FindByID(ctx context.Context, id uuid.UUID) (*sync.Organization, error) {
	return nil, sync.ErrOrganizationNotFound
}

func (r *stubOrgRepo) FindLinked(ctx context.Context) ([]*sync.Organization, error) {
	return r.linked, r.err
}

func (r *stubOrgRepo) Save(ctx context.Context, org *sync.Organization) error { return nil }

type stubRunner struct {
	mu   stdsync.Mutex
	runs []string
	err  error
}

func (r *stubRunner) RunPass(ctx context.Context, org *sync.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, org.UID)
	return r.err
}

func (r *stubRunner) ranFor() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func linkedOrg(t *testing.T, uid string) *sync.Organization {
	t.Helper()
	org, err := sync.NewOrganization(uid, "acme")
	require.NoError(t, err)
	org.LinkShop("shopify", "shop-"+uid, "token", uid+".myshopify.com")
	return org
}

func TestPassSchedulerConfig_Validate(t *testing.T) {
	cfg := DefaultPassSchedulerConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Interval = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultPassSchedulerConfig()
	cfg.PassTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestPassScheduler_RunOnce(t *testing.T) {
	orgs := &stubOrgRepo{linked: []*sync.Organization{
		linkedOrg(t, "cld-1"),
		linkedOrg(t, "cld-2"),
	}}
	runner := &stubRunner{}

	scheduler, err := NewPassScheduler(DefaultPassSchedulerConfig(), orgs, runner, zap.NewNop())
	require.NoError(t, err)

	scheduler.RunOnce(context.Background())
	assert.Equal(t, []string{"cld-1", "cld-2"}, runner.ranFor())
}

func TestPassScheduler_RunOnce_FailureDoesNotStopSweep(t *testing.T) {
	orgs := &stubOrgRepo{linked: []*sync.Organization{
		linkedOrg(t, "cld-1"),
		linkedOrg(t, "cld-2"),
	}}
	runner := &stubRunner{err: assert.AnError}

	scheduler, err := NewPassScheduler(DefaultPassSchedulerConfig(), orgs, runner, zap.NewNop())
	require.NoError(t, err)

	scheduler.RunOnce(context.Background())
	assert.Equal(t, []string{"cld-1", "cld-2"}, runner.ranFor())
}

func TestPassScheduler_TickerDrivesPasses(t *testing.T) {
	orgs := &stubOrgRepo{linked: []*sync.Organization{linkedOrg(t, "cld-1")}}
	runner := &stubRunner{}

	config := PassSchedulerConfig{Enabled: true, Interval: 20 * time.Millisecond, PassTimeout: time.Second}
	scheduler, err := NewPassScheduler(config, orgs, runner, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, scheduler.Start(ctx))

	assert.Eventually(t, func() bool {
		return len(runner.ranFor()) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(stopCtx))
}

func TestPassScheduler_StartIsIdempotent(t *testing.T) {
	orgs := &stubOrgRepo{}
	runner := &stubRunner{}

	scheduler, err := NewPassScheduler(DefaultPassSchedulerConfig(), orgs, runner, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, scheduler.Start(ctx))
	require.NoError(t, scheduler.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(stopCtx))
	require.NoError(t, scheduler.Stop(stopCtx))
}

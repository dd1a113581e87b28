package scheduler

import (
	"context"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/connec/shopify-connector/internal/domain/sync"
	"github.com/connec/shopify-connector/internal/infrastructure/logger"
)

// PassRunner executes one full synchronization pass for an
// organization.
type PassRunner interface {
	RunPass(ctx context.Context, org *sync.Organization) error
}

// PassSchedulerConfig holds configuration for the pass scheduler.
type PassSchedulerConfig struct {
	Enabled bool
	// Interval is how often a full pass runs over every linked
	// organization.
	Interval time.Duration
	// PassTimeout is the maximum time one organization's pass can run.
	PassTimeout time.Duration
}

// DefaultPassSchedulerConfig returns default configuration.
func DefaultPassSchedulerConfig() PassSchedulerConfig {
	return PassSchedulerConfig{
		Enabled:     true,
		Interval:    30 * time.Minute,
		PassTimeout: 15 * time.Minute,
	}
}

// Validate validates the configuration.
func (c *PassSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.PassTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// PassScheduler periodically runs a full synchronization pass for
// every linked organization. Organizations are processed sequentially;
// a failing organization does not stop the sweep.
type PassScheduler struct {
	config PassSchedulerConfig
	orgs   sync.OrganizationRepository
	runner PassRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        stdsync.WaitGroup
	mu        stdsync.Mutex
	isRunning bool
}

// NewPassScheduler creates a new pass scheduler.
func NewPassScheduler(config PassSchedulerConfig, orgs sync.OrganizationRepository, runner PassRunner, logger *zap.Logger) (*PassScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PassScheduler{
		config: config,
		orgs:   orgs,
		runner: runner,
		logger: logger,
	}, nil
}

// Start starts the scheduler loop.
func (s *PassScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Pass scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("pass_timeout", s.config.PassTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *PassScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Pass scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Pass scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *PassScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps every linked organization once. Exposed so operators
// can trigger an immediate pass.
func (s *PassScheduler) RunOnce(ctx context.Context) {
	orgs, err := s.orgs.FindLinked(ctx)
	if err != nil {
		s.logger.Error("Failed to list linked organizations", zap.Error(err))
		return
	}

	for _, org := range orgs {
		if ctx.Err() != nil {
			return
		}
		s.runPass(ctx, org)
	}
}

func (s *PassScheduler) runPass(ctx context.Context, org *sync.Organization) {
	passCtx, cancel := context.WithTimeout(ctx, s.config.PassTimeout)
	defer cancel()
	passCtx, log := logger.WithOrganization(passCtx, s.logger, org.UID)

	start := time.Now()
	if err := s.runner.RunPass(passCtx, org); err != nil {
		log.Error("Synchronization pass failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	log.Info("Synchronization pass completed",
		zap.Duration("elapsed", time.Since(start)),
	)
}

package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

// ConnectorRunner executes one full connector run. Implemented by the
// sync application service.
type ConnectorRunner interface {
	RunConnector(ctx context.Context, source ingest.Source) (ingest.SyncRunOutcome, error)
	Connectors() []ingest.Source
}

// SyncSchedulerConfig holds configuration for the sync scheduler.
type SyncSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// DefaultInterval is the run interval for connectors without an override
	DefaultInterval time.Duration
	// Intervals overrides the run interval per connector
	Intervals map[ingest.Source]time.Duration
	// RunTimeout is the maximum wall-clock time one run can take
	RunTimeout time.Duration
	// InitialDelay postpones the first run after startup so the
	// process finishes wiring before connectors hit the APIs
	InitialDelay time.Duration
}

// DefaultSyncSchedulerConfig returns default configuration.
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Enabled:         true,
		DefaultInterval: 15 * time.Minute,
		RunTimeout:      10 * time.Minute,
		InitialDelay:    10 * time.Second,
	}
}

// Validate validates the configuration.
func (c *SyncSchedulerConfig) Validate() error {
	if c.DefaultInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.RunTimeout <= 0 {
		return ErrInvalidConfig
	}
	for _, interval := range c.Intervals {
		if interval <= 0 {
			return ErrInvalidConfig
		}
	}
	return nil
}

// interval returns the effective run interval for a connector.
func (c *SyncSchedulerConfig) interval(source ingest.Source) time.Duration {
	if d, ok := c.Intervals[source]; ok {
		return d
	}
	return c.DefaultInterval
}

// SyncScheduler runs every registered connector on its interval, one
// run per connector at a time. A tick that fires while the previous
// run is still in flight is skipped, never queued; the next tick
// covers the same window anyway because the checkpoint has not moved.
type SyncScheduler struct {
	config SyncSchedulerConfig
	runner ConnectorRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// inFlight holds one mutex per connector for single-flight runs.
	inFlight map[ingest.Source]*sync.Mutex
}

// NewSyncScheduler creates a sync scheduler.
func NewSyncScheduler(config SyncSchedulerConfig, runner ConnectorRunner, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	inFlight := make(map[ingest.Source]*sync.Mutex)
	for _, source := range runner.Connectors() {
		inFlight[source] = &sync.Mutex{}
	}

	return &SyncScheduler{
		config:   config,
		runner:   runner,
		logger:   logger,
		inFlight: inFlight,
	}, nil
}

// Start launches one loop per connector.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, source := range s.runner.Connectors() {
		s.wg.Add(1)
		go s.connectorLoop(ctx, source)
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("connectors", len(s.inFlight)),
		zap.Duration("default_interval", s.config.DefaultInterval),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for in-flight runs.
func (s *SyncScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerNow runs one connector immediately, outside its schedule.
// Returns ErrConnectorBusy when a run for the connector is in flight.
func (s *SyncScheduler) TriggerNow(ctx context.Context, source ingest.Source) (ingest.SyncRunOutcome, error) {
	mu, ok := s.inFlight[source]
	if !ok {
		return ingest.SyncRunOutcome{}, ingest.ErrUnknownSource
	}
	if !mu.TryLock() {
		return ingest.SyncRunOutcome{}, ingest.ErrConnectorBusy
	}
	defer mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()
	return s.runner.RunConnector(runCtx, source)
}

// connectorLoop ticks one connector on its interval.
func (s *SyncScheduler) connectorLoop(ctx context.Context, source ingest.Source) {
	defer s.wg.Done()

	log := s.logger.With(zap.String("connector", source.String()))

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.config.InitialDelay):
	}

	interval := s.config.interval(source)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runOnce(ctx, source, log)
	for {
		select {
		case <-ctx.Done():
			log.Debug("Connector loop stopping")
			return
		case <-ticker.C:
			s.runOnce(ctx, source, log)
		}
	}
}

// runOnce executes one scheduled run, skipping if one is in flight.
func (s *SyncScheduler) runOnce(ctx context.Context, source ingest.Source, log *zap.Logger) {
	mu := s.inFlight[source]
	if !mu.TryLock() {
		log.Warn("Skipping scheduled run, previous run still in flight")
		return
	}
	defer mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	outcome, err := s.runner.RunConnector(runCtx, source)
	if err != nil {
		log.Error("Scheduled run failed", zap.Error(err))
		return
	}
	log.Info("Scheduled run finished",
		zap.String("state", string(outcome.State)),
		zap.Int("fetched", outcome.Counts.Fetched),
		zap.Int("failed", outcome.Counts.Failed),
	)
}

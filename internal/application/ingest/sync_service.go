package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mpoffice/backend/internal/domain/ingest"
	domregister "github.com/mpoffice/backend/internal/domain/register"
	"github.com/mpoffice/backend/internal/infrastructure/logger"

	appregister "github.com/mpoffice/backend/internal/application/register"
)

// RunLocker serializes runs per connector across processes. The
// in-process scheduler already guarantees single flight within one
// process; the locker extends that to horizontally scaled deployments.
type RunLocker interface {
	// TryAcquire returns a release func when the lock was taken, or
	// ok=false when another run holds it.
	TryAcquire(ctx context.Context, connector ingest.Source) (release func(), ok bool, err error)
}

// SyncConfig tunes the run state machine.
type SyncConfig struct {
	// FetchRetries bounds transient-failure retries of a whole Fetch.
	FetchRetries int
	// RetryBaseDelay is doubled per attempt, capped at RetryMaxDelay.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// UpsertRetries bounds register batch retries.
	UpsertRetries int
	// FailureReplayLimit bounds how many recorded failures one run
	// replays from the raw store before fetching.
	FailureReplayLimit int
	// UpsertGrace is how long an in-flight upsert batch may finish
	// after the surrounding run is cancelled.
	UpsertGrace time.Duration
}

// DefaultSyncConfig returns production defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		FetchRetries:       3,
		RetryBaseDelay:     2 * time.Second,
		RetryMaxDelay:      1 * time.Minute,
		UpsertRetries:      3,
		FailureReplayLimit: 500,
		UpsertGrace:        30 * time.Second,
	}
}

// SyncService drives one connector run through the state machine
// Fetching -> Parsing -> Projecting -> Upserting -> Committed, with
// Failed and PartiallyFailed as the unhappy terminals. It is the only
// component aware of connectors, stores and the projection together.
type SyncService struct {
	connectors  map[ingest.Source]ingest.Connector
	rawStore    ingest.RawPayloadStore
	checkpoints ingest.CheckpointStore
	failures    ingest.IngestFailureStore
	runs        ingest.SyncRunStore
	register    domregister.Store
	archiver    ingest.RawPayloadArchiver
	locker      RunLocker
	config      SyncConfig
	logger      *zap.Logger
}

// SyncServiceOption configures optional collaborators.
type SyncServiceOption func(*SyncService)

// WithArchiver enables best-effort raw payload archival.
func WithArchiver(a ingest.RawPayloadArchiver) SyncServiceOption {
	return func(s *SyncService) { s.archiver = a }
}

// WithRunLocker enables cross-process run locking.
func WithRunLocker(l RunLocker) SyncServiceOption {
	return func(s *SyncService) { s.locker = l }
}

// NewSyncService wires the orchestrator.
func NewSyncService(
	connectors []ingest.Connector,
	rawStore ingest.RawPayloadStore,
	checkpoints ingest.CheckpointStore,
	failures ingest.IngestFailureStore,
	runs ingest.SyncRunStore,
	registerStore domregister.Store,
	config SyncConfig,
	logger *zap.Logger,
	opts ...SyncServiceOption,
) *SyncService {
	byName := make(map[ingest.Source]ingest.Connector, len(connectors))
	for _, c := range connectors {
		byName[c.Name()] = c
	}
	s := &SyncService{
		connectors:  byName,
		rawStore:    rawStore,
		checkpoints: checkpoints,
		failures:    failures,
		runs:        runs,
		register:    registerStore,
		config:      config,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connectors returns the sources this service can run.
func (s *SyncService) Connectors() []ingest.Source {
	sources := make([]ingest.Source, 0, len(s.connectors))
	for _, src := range ingest.AllSources() {
		if _, ok := s.connectors[src]; ok {
			sources = append(sources, src)
		}
	}
	return sources
}

// RunConnector executes one full run for the given connector and
// persists its outcome. Per-item failures are recovered locally; only
// fetch or storage exhaustion fails the run as a whole.
func (s *SyncService) RunConnector(ctx context.Context, source ingest.Source) (ingest.SyncRunOutcome, error) {
	connector, ok := s.connectors[source]
	if !ok {
		return ingest.SyncRunOutcome{}, fmt.Errorf("%w: %s", ingest.ErrUnknownSource, source)
	}

	if s.locker != nil {
		release, acquired, err := s.locker.TryAcquire(ctx, source)
		if err != nil {
			return ingest.SyncRunOutcome{}, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			return ingest.SyncRunOutcome{}, ingest.ErrConnectorBusy
		}
		defer release()
	}

	outcome := newOutcome(source)
	// Carry the correlation fields in the context so everything the run
	// touches logs with the same connector and run_id.
	ctx, log := logger.WithConnector(ctx, s.logger, source.String())
	ctx, log = logger.WithRunID(ctx, log, outcome.ID.String())

	checkpoint, err := s.checkpoints.Get(ctx, source)
	if err != nil {
		return s.finishFailed(ctx, outcome, checkpoint, fmt.Errorf("load checkpoint: %w", err), log)
	}
	outcome.WindowFrom = checkpoint.LastSyncedAt

	// Replay previously failed payloads from the raw store before
	// touching the API; they are never re-fetched.
	replayEntries, replayResolved := s.replayFailures(ctx, source, &outcome, log)

	outcome.State = ingest.RunStateFetching
	result, err := s.fetchWithRetry(ctx, connector, checkpoint, log)
	if err != nil {
		return s.finishFailed(ctx, outcome, checkpoint, err, log)
	}
	outcome.Counts.Fetched = len(result.Payloads)
	outcome.WindowTo = result.Next.LastSyncedAt
	if result.Skipped > 0 {
		log.Warn("fetch skipped records without a business key",
			zap.Int("skipped", result.Skipped))
	}

	versions, err := s.rawStore.Append(ctx, result.Payloads)
	if err != nil {
		return s.finishFailed(ctx, outcome, checkpoint, fmt.Errorf("append raw payloads: %w", err), log)
	}
	s.archive(ctx, result.Payloads, log)

	// Parsing and projecting fail per payload so one malformed record
	// never blocks its siblings.
	outcome.State = ingest.RunStateParsing
	docs := make([]ingest.Document, 0, len(result.Payloads))
	for _, payload := range result.Payloads {
		doc, err := ParseDocument(payload)
		if err != nil {
			s.recordFailure(ctx, payload.ID, payload.Source, ingest.FailureStageParse, err, &outcome, log)
			continue
		}
		docs = append(docs, withVersion(doc, versions[payload.ID]))
		outcome.Counts.Parsed++
	}

	outcome.State = ingest.RunStateProjecting
	entries := replayEntries
	for _, doc := range docs {
		docEntries, err := appregister.Project(doc)
		if err != nil {
			meta := doc.Meta()
			s.recordFailure(ctx, meta.SourceRef, source, ingest.FailureStageProject, err, &outcome, log)
			continue
		}
		entries = append(entries, docEntries...)
	}
	outcome.Counts.Projected = len(entries)

	outcome.State = ingest.RunStateUpserting
	if err := s.upsertWithRetry(ctx, entries); err != nil {
		return s.finishFailed(ctx, outcome, checkpoint, fmt.Errorf("upsert register entries: %w", err), log)
	}
	outcome.Counts.Upserted = len(entries)

	// Only now that the window is durable do the replayed failures
	// count as resolved.
	for _, payloadID := range replayResolved {
		if err := s.failures.Resolve(ctx, payloadID); err != nil {
			log.Warn("failed to resolve ingest failure", zap.String("payload_id", payloadID.String()), zap.Error(err))
		}
	}

	if outcome.Counts.Failed > 0 {
		outcome.State = ingest.RunStatePartial
	} else {
		outcome.State = ingest.RunStateCommitted
	}
	outcome.FinishedAt = time.Now().UTC()

	next := result.Next
	next.LastRunStatus = runStatus(outcome.State)
	next.UpdatedAt = outcome.FinishedAt
	if err := s.checkpoints.Save(ctx, next); err != nil {
		return s.finishFailed(ctx, outcome, checkpoint, fmt.Errorf("save checkpoint: %w", err), log)
	}

	s.saveOutcome(ctx, outcome, log)
	log.Info("connector run finished",
		zap.String("state", string(outcome.State)),
		zap.Int("fetched", outcome.Counts.Fetched),
		zap.Int("projected", outcome.Counts.Projected),
		zap.Int("failed", outcome.Counts.Failed),
	)
	return outcome, nil
}

// processPayload parses and projects one payload, recording a failure
// row instead of propagating per-item errors.
func (s *SyncService) processPayload(ctx context.Context, payload ingest.RawPayload, version int, outcome *ingest.SyncRunOutcome, log *zap.Logger) ([]domregister.Entry, bool) {
	doc, err := ParseDocument(payload)
	if err != nil {
		s.recordFailure(ctx, payload.ID, payload.Source, ingest.FailureStageParse, err, outcome, log)
		return nil, false
	}
	doc = withVersion(doc, version)
	outcome.Counts.Parsed++

	entries, err := appregister.Project(doc)
	if err != nil {
		s.recordFailure(ctx, payload.ID, payload.Source, ingest.FailureStageProject, err, outcome, log)
		return nil, false
	}
	return entries, true
}

// replayFailures re-processes unresolved failures from the raw store.
// Successful payloads contribute entries to this run; their failure
// rows are resolved only after the run's upsert commits.
func (s *SyncService) replayFailures(ctx context.Context, source ingest.Source, outcome *ingest.SyncRunOutcome, log *zap.Logger) ([]domregister.Entry, []uuid.UUID) {
	open, err := s.failures.Unresolved(ctx, source, s.config.FailureReplayLimit)
	if err != nil {
		log.Warn("failed to load unresolved failures", zap.Error(err))
		return nil, nil
	}

	var entries []domregister.Entry
	var resolved []uuid.UUID
	for _, failure := range open {
		payload, err := s.rawStore.Get(ctx, failure.PayloadID)
		if err != nil || payload == nil {
			log.Warn("failed payload missing from raw store", zap.String("payload_id", failure.PayloadID.String()), zap.Error(err))
			continue
		}
		version, err := s.rawStore.LatestVersion(ctx, payload.Source, payload.BusinessKey)
		if err != nil {
			log.Warn("failed to load document version", zap.Error(err))
			continue
		}
		payloadEntries, ok := s.processPayload(ctx, *payload, version, outcome, log)
		if !ok {
			continue
		}
		entries = append(entries, payloadEntries...)
		resolved = append(resolved, failure.PayloadID)
	}
	return entries, resolved
}

func (s *SyncService) recordFailure(ctx context.Context, payloadID uuid.UUID, source ingest.Source, stage ingest.FailureStage, cause error, outcome *ingest.SyncRunOutcome, log *zap.Logger) {
	outcome.Counts.Failed++
	failure := ingest.NewIngestFailure(payloadID, source, stage, cause.Error())
	if err := s.failures.Record(ctx, failure); err != nil {
		log.Error("failed to record ingest failure", zap.Error(err))
	}
	log.Warn("payload failed",
		zap.String("stage", string(stage)),
		zap.String("payload_id", payloadID.String()),
		zap.String("reason", cause.Error()),
	)
}

// fetchWithRetry retries transient fetch failures with exponential
// backoff. Non-transient errors and context cancellation fail fast.
func (s *SyncService) fetchWithRetry(ctx context.Context, connector ingest.Connector, checkpoint ingest.Checkpoint, log *zap.Logger) (ingest.FetchResult, error) {
	delay := s.config.RetryBaseDelay
	var lastErr error
	for attempt := 0; attempt <= s.config.FetchRetries; attempt++ {
		if attempt > 0 {
			log.Warn("retrying fetch",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ingest.FetchResult{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.config.RetryMaxDelay {
				delay = s.config.RetryMaxDelay
			}
		}
		result, err := connector.Fetch(ctx, checkpoint)
		if err == nil {
			return result, nil
		}
		if !ingest.IsTransient(err) || ctx.Err() != nil {
			return ingest.FetchResult{}, err
		}
		lastErr = err
	}
	return ingest.FetchResult{}, fmt.Errorf("fetch retries exhausted: %w", lastErr)
}

// upsertWithRetry applies the register batch. The batch runs on a
// context detached from the run so cancellation never leaves a
// half-visible batch behind.
func (s *SyncService) upsertWithRetry(ctx context.Context, entries []domregister.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	var lastErr error
	for attempt := 0; attempt <= s.config.UpsertRetries; attempt++ {
		upsertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.UpsertGrace)
		err := s.register.Upsert(upsertCtx, entries)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

func (s *SyncService) archive(ctx context.Context, payloads []ingest.RawPayload, log *zap.Logger) {
	if s.archiver == nil {
		return
	}
	for _, payload := range payloads {
		if err := s.archiver.Archive(ctx, payload); err != nil {
			log.Warn("raw payload archival failed", zap.String("payload_id", payload.ID.String()), zap.Error(err))
		}
	}
}

func (s *SyncService) finishFailed(ctx context.Context, outcome ingest.SyncRunOutcome, checkpoint ingest.Checkpoint, cause error, log *zap.Logger) (ingest.SyncRunOutcome, error) {
	outcome.State = ingest.RunStateFailed
	outcome.Error = cause.Error()
	outcome.FinishedAt = time.Now().UTC()
	s.saveOutcome(ctx, outcome, log)

	// The window was not fully processed: keep the cursor where it
	// was so the next scheduled run reprocesses the same window.
	checkpoint.LastRunStatus = ingest.RunStatusFailed
	checkpoint.UpdatedAt = outcome.FinishedAt
	if checkpoint.Connector != "" {
		if err := s.checkpoints.Save(ctx, checkpoint); err != nil {
			log.Error("failed to record run status on checkpoint", zap.Error(err))
		}
	}

	log.Error("connector run failed", zap.Error(cause))
	return outcome, cause
}

func (s *SyncService) saveOutcome(ctx context.Context, outcome ingest.SyncRunOutcome, log *zap.Logger) {
	if err := s.runs.Save(ctx, outcome); err != nil {
		log.Error("failed to save run outcome", zap.Error(err))
	}
}

func newOutcome(source ingest.Source) ingest.SyncRunOutcome {
	return ingest.SyncRunOutcome{
		ID:        uuid.New(),
		Connector: source,
		State:     ingest.RunStateIdle,
		StartedAt: time.Now().UTC(),
	}
}

func runStatus(state ingest.RunState) ingest.RunStatus {
	switch state {
	case ingest.RunStateCommitted:
		return ingest.RunStatusCommitted
	case ingest.RunStatePartial:
		return ingest.RunStatusPartiallyFailed
	default:
		return ingest.RunStatusFailed
	}
}

// withVersion stamps the raw-store-assigned document version onto a
// parsed document.
func withVersion(doc ingest.Document, version int) ingest.Document {
	switch d := doc.(type) {
	case ingest.OzonPosting:
		d.DocMeta.Version = version
		return d
	case ingest.WbSaleEvent:
		d.DocMeta.Version = version
		return d
	case ingest.YmOrder:
		d.DocMeta.Version = version
		return d
	default:
		return doc
	}
}

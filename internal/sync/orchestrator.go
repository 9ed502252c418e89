package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/stridefit/stride/internal/db"
	"github.com/stridefit/stride/internal/health"
	"github.com/stridefit/stride/internal/models"
	"github.com/stridefit/stride/internal/route"
)

const (
	// autoSyncInterval throttles SyncIfNeeded so call sites can invoke it
	// liberally.
	autoSyncInterval = 5 * time.Minute

	// recentResyncWindow bounds a manual pull-to-refresh to the workouts a
	// user plausibly cares about, regardless of total history size.
	recentResyncWindow = 14 * 24 * time.Hour

	// Day windows handed to the strength matcher. The manual window is
	// deliberately broader than the incremental one: a user-initiated
	// refresh is a catch-up.
	incrementalMatchDays = 7
	manualMatchDays      = 14

	// Full resync batching.
	resyncBatchSize = 100
	interBatchPause = 50 * time.Millisecond
)

// ErrSyncInProgress is returned when a sync entry point finds another sync
// in flight. Requests are dropped, never queued.
var ErrSyncInProgress = errors.New("sync: already in progress")

// StrengthNotifier is told when a reconcile pass imported strength-like
// workouts, so the matching subsystem can look for in-app duplicates
// within the given day window.
type StrengthNotifier func(count, windowDays int)

// Orchestrator drives the sync pipeline: observer-triggered incremental
// sync, throttled auto-sync, manual recent resync and full batched
// parallel resync. A single guard serializes them; concurrent requests
// no-op.
type Orchestrator struct {
	gateway        health.Gateway
	connector      *health.Connector
	reconciler     *Reconciler
	queue          *route.Queue
	store          *db.DB
	notifyStrength StrengthNotifier
	logger         *slog.Logger

	syncing  atomic.Bool
	auto     *rate.Limiter
	progress progressPublisher
	now      func() time.Time

	resultMu   sync.Mutex
	lastResult Result

	background sync.WaitGroup
}

// NewOrchestrator wires the pipeline together. notifyStrength may be nil.
func NewOrchestrator(
	gateway health.Gateway,
	connector *health.Connector,
	reconciler *Reconciler,
	queue *route.Queue,
	store *db.DB,
	notifyStrength StrengthNotifier,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gateway:        gateway,
		connector:      connector,
		reconciler:     reconciler,
		queue:          queue,
		store:          store,
		notifyStrength: notifyStrength,
		logger:         logger,
		auto:           rate.NewLimiter(rate.Every(autoSyncInterval), 1),
		now:            time.Now,
	}
}

// IsSyncing reports whether a sync is in flight. Safe from any goroutine.
func (o *Orchestrator) IsSyncing() bool {
	return o.syncing.Load()
}

// LastResult returns the most recent reconcile pass summary.
func (o *Orchestrator) LastResult() Result {
	o.resultMu.Lock()
	defer o.resultMu.Unlock()
	return o.lastResult
}

func (o *Orchestrator) setLastResult(result Result) {
	o.resultMu.Lock()
	o.lastResult = result
	o.resultMu.Unlock()
}

// Progress returns the latest full-resync progress snapshot.
func (o *Orchestrator) Progress() Progress {
	return o.progress.snapshot()
}

// OnProgress registers a progress callback.
func (o *Orchestrator) OnProgress(fn ProgressFunc) {
	o.progress.subscribe(fn)
}

// Watch subscribes the orchestrator to change notifications for a stream.
// The relay acknowledges the platform callback immediately; the actual
// sync runs on its own goroutine.
func (o *Orchestrator) Watch(relay *health.ObserverRelay, streamID string) error {
	return relay.Watch(streamID, func() {
		if err := o.Sync(context.Background()); err != nil && !errors.Is(err, ErrSyncInProgress) {
			o.logger.Warn("observer-triggered sync failed", "error", err)
		}
	})
}

// Sync performs one incremental anchored sync cycle. No-ops with
// ErrSyncInProgress when another sync holds the guard.
func (o *Orchestrator) Sync(ctx context.Context) error {
	if !o.begin() {
		return ErrSyncInProgress
	}
	defer o.end()
	return o.record(o.syncIncremental(ctx))
}

// SyncIfNeeded is the throttled auto-sync: callable freely, it no-ops
// unless connected and outside the throttle window.
func (o *Orchestrator) SyncIfNeeded(ctx context.Context) error {
	if o.connector.State() != models.StateConnected {
		return nil
	}
	if !o.auto.Allow() {
		return nil
	}
	if err := o.store.RecordAutoSync(o.now()); err != nil {
		o.logger.Warn("record auto-sync time failed", "error", err)
	}
	if !o.begin() {
		return nil
	}
	defer o.end()
	return o.record(o.syncIncremental(ctx))
}

// ResyncRecent is the pull-to-refresh path: reset the anchor, fetch from
// the beginning of history, but reconcile only the recent window so a
// user-initiated refresh stays bounded.
func (o *Orchestrator) ResyncRecent(ctx context.Context) error {
	if !o.begin() {
		return ErrSyncInProgress
	}
	defer o.end()

	err := func() error {
		if _, err := o.connector.EnsureConnected(ctx); err != nil {
			return err
		}
		if err := o.store.ResetAnchor(models.StreamAllWorkouts); err != nil {
			return fmt.Errorf("reset anchor: %w", err)
		}

		result, err := o.gateway.AnchoredFetch(ctx, models.StreamAllWorkouts, nil)
		if err != nil {
			o.connector.RecordFailure()
			return fmt.Errorf("anchored fetch: %w", err)
		}
		o.connector.RecordSuccess()

		cutoff := o.now().Add(-recentResyncWindow)
		var recent []models.Workout
		for _, w := range result.Added {
			if w.EndTime.After(cutoff) {
				recent = append(recent, w)
			}
		}

		return o.applyCycle(ctx, recent, result.RemovedIDs, result.NewCursor, manualMatchDays)
	}()
	return o.record(err)
}

// ResyncAll rebuilds the whole collection: reset the anchor, fetch the
// complete history, and process fixed-size batches with per-record
// concurrency inside each batch. The only mode that reports fine-grained
// progress.
func (o *Orchestrator) ResyncAll(ctx context.Context) error {
	if !o.begin() {
		return ErrSyncInProgress
	}
	defer o.end()

	err := func() error {
		if _, err := o.connector.EnsureConnected(ctx); err != nil {
			return err
		}
		if err := o.store.ResetAnchor(models.StreamAllWorkouts); err != nil {
			return fmt.Errorf("reset anchor: %w", err)
		}

		result, err := o.gateway.AnchoredFetch(ctx, models.StreamAllWorkouts, nil)
		if err != nil {
			o.connector.RecordFailure()
			return fmt.Errorf("anchored fetch: %w", err)
		}
		o.connector.RecordSuccess()

		total := len(result.Added)
		totalBatches := (total + resyncBatchSize - 1) / resyncBatchSize
		reconcileTotal := &Result{}
		processed := 0

		for batch := 0; batch < totalBatches; batch++ {
			lo := batch * resyncBatchSize
			hi := lo + resyncBatchSize
			if hi > total {
				hi = total
			}

			if err := o.processBatch(ctx, result.Added[lo:hi], reconcileTotal); err != nil {
				return err
			}
			processed = hi

			o.progress.publish(Progress{
				Batch:        batch + 1,
				TotalBatches: totalBatches,
				Processed:    processed,
				Total:        total,
				Fraction:     float64(processed) / float64(max(total, 1)),
			})

			// Short pause between batches keeps the host UI responsive.
			if batch < totalBatches-1 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(interBatchPause):
				}
			}
		}

		removalResult, err := o.reconciler.Reconcile(nil, result.RemovedIDs)
		if err != nil {
			return fmt.Errorf("apply removals: %w", err)
		}
		reconcileTotal.Removed = removalResult.Removed
		o.setLastResult(*reconcileTotal)

		if err := o.store.UpdateAnchor(models.StreamAllWorkouts, result.NewCursor); err != nil {
			return fmt.Errorf("update anchor: %w", err)
		}

		o.processQueueInBackground()
		if reconcileTotal.StrengthAdded > 0 && o.notifyStrength != nil {
			o.notifyStrength(reconcileTotal.StrengthAdded, manualMatchDays)
		}
		return nil
	}()
	return o.record(err)
}

// WaitBackground blocks until background queue processing finishes. Used
// by the CLI and tests; the host app normally lets it run free.
func (o *Orchestrator) WaitBackground() {
	o.background.Wait()
}

// syncIncremental is the shared incremental cycle body: anchored fetch,
// reconcile, anchor update, background enrichment.
func (o *Orchestrator) syncIncremental(ctx context.Context) error {
	if _, err := o.connector.EnsureConnected(ctx); err != nil {
		return err
	}

	anchor, err := o.store.GetOrCreateAnchor(models.StreamAllWorkouts)
	if err != nil {
		return fmt.Errorf("load anchor: %w", err)
	}

	result, err := o.gateway.AnchoredFetch(ctx, models.StreamAllWorkouts, anchor.Cursor)
	if err != nil {
		o.connector.RecordFailure()
		return fmt.Errorf("anchored fetch: %w", err)
	}
	o.connector.RecordSuccess()

	return o.applyCycle(ctx, result.Added, result.RemovedIDs, result.NewCursor, incrementalMatchDays)
}

// applyCycle reconciles one fetch cycle and commits the anchor. The anchor
// moves strictly after reconciliation: a crash in between replays the
// batch, which reconciliation is idempotent against. Deletions land with
// the same cycle, before the anchor commits, so they are never lost to
// that window either.
func (o *Orchestrator) applyCycle(ctx context.Context, added []models.Workout, removed []string, newCursor []byte, matchDays int) error {
	result, err := o.reconciler.Reconcile(added, removed)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	o.setLastResult(*result)

	if err := o.store.UpdateAnchor(models.StreamAllWorkouts, newCursor); err != nil {
		return fmt.Errorf("update anchor: %w", err)
	}

	o.logger.Info("sync cycle applied",
		"imported", result.Imported,
		"updated", result.Updated,
		"removed", result.Removed,
		"skipped", result.Skipped)

	o.processQueueInBackground()

	if result.StrengthAdded > 0 && o.notifyStrength != nil {
		o.notifyStrength(result.StrengthAdded, matchDays)
	}
	return nil
}

// processBatch classifies every workout in the batch concurrently, then
// applies the outcomes in one serialized pass. Mutation of the shared run
// collection never happens from the worker goroutines.
func (o *Orchestrator) processBatch(ctx context.Context, batch []models.Workout, total *Result) error {
	type outcome struct {
		index int
		c     classification
		err   error
	}

	results := make(chan outcome, len(batch))
	var wg sync.WaitGroup

	for i, workout := range batch {
		wg.Add(1)
		go func(i int, workout models.Workout) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				results <- outcome{index: i, err: ctx.Err()}
				return
			default:
			}
			c, err := o.reconciler.classify(workout)
			results <- outcome{index: i, c: c, err: err}
		}(i, workout)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]outcome, 0, len(batch))
	for res := range results {
		outcomes = append(outcomes, res)
	}
	// Preserve gateway order for the serialized apply.
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].index < outcomes[j].index })

	for _, res := range outcomes {
		if res.err != nil {
			if errors.Is(res.err, context.Canceled) {
				return res.err
			}
			o.logger.Warn("classify workout failed", "error", res.err)
			total.Skipped++
			continue
		}
		if err := o.reconciler.apply(res.c, total); err != nil {
			o.logger.Warn("apply workout failed",
				"external_id", res.c.workout.ExternalID, "error", err)
			total.Skipped++
		}
	}
	return nil
}

func (o *Orchestrator) processQueueInBackground() {
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		if err := o.queue.Process(context.Background(), 0); err != nil {
			o.logger.Warn("route queue processing failed", "error", err)
		}
	}()
}

func (o *Orchestrator) begin() bool {
	return o.syncing.CompareAndSwap(false, true)
}

func (o *Orchestrator) end() {
	o.syncing.Store(false)
}

// record persists the cycle outcome for the host's optional display and
// passes the error through.
func (o *Orchestrator) record(err error) error {
	if err != nil {
		if dbErr := o.store.RecordSyncError(err.Error()); dbErr != nil {
			o.logger.Warn("record sync error failed", "error", dbErr)
		}
		return err
	}
	if dbErr := o.store.RecordSyncSuccess(o.now()); dbErr != nil {
		o.logger.Warn("record sync success failed", "error", dbErr)
	}
	return nil
}


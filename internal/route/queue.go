package route

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stridefit/stride/internal/db"
	"github.com/stridefit/stride/internal/health"
	"github.com/stridefit/stride/internal/models"
)

// staleFetchThreshold is how long a task may sit in the fetching state
// before the next queue run reclaims it. Covers a process killed
// mid-fetch.
const staleFetchThreshold = 2 * time.Minute

// RunSource is the slice of the run collection the queue needs: find the
// run a task belongs to and write back correlated fields.
type RunSource interface {
	FindByExternalID(externalID string) (*models.Run, error)
	Update(run *models.Run) error
}

// EnrichedFunc is the downstream side effect fired after a task reaches a
// terminal state. It runs on completion with route data, and on terminal
// failure without it; the consumer only requires the lightweight record.
type EnrichedFunc func(run *models.Run)

// Queue processes persisted route enrichment tasks with bounded retries.
// Task state is persisted after every task, so a mid-run crash loses at
// most the in-flight task's progress.
type Queue struct {
	store      *db.DB
	fetcher    health.DetailFetcher
	runs       RunSource
	onEnriched EnrichedFunc
	logger     *slog.Logger
}

// NewQueue builds a queue. onEnriched may be nil.
func NewQueue(store *db.DB, fetcher health.DetailFetcher, runs RunSource, onEnriched EnrichedFunc, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:      store,
		fetcher:    fetcher,
		runs:       runs,
		onEnriched: onEnriched,
		logger:     logger,
	}
}

// Enqueue registers a workout for enrichment. Idempotent: an already
// queued external id is untouched.
func (q *Queue) Enqueue(externalID string, workoutDate time.Time, priority int) error {
	return q.store.EnqueueRouteTask(externalID, workoutDate, priority)
}

// Process runs the queue: recover stale tasks, then work through pending
// ones high-priority and newest first, up to limit (0 = unlimited).
func (q *Queue) Process(ctx context.Context, limit int) error {
	q.recoverStale()

	tasks, err := q.store.PendingRouteTasks(limit)
	if err != nil {
		return fmt.Errorf("select pending tasks: %w", err)
	}

	for i := range tasks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		q.processTask(ctx, &tasks[i])
	}
	return nil
}

// RetryFailed re-arms a failed task for a user-triggered retry, resetting
// its attempt budget.
func (q *Queue) RetryFailed(externalID string) error {
	task, err := q.store.GetRouteTask(externalID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("no route task for %s", externalID)
	}
	return q.store.ResetTaskForRetry(externalID)
}

// recoverStale returns tasks stuck in fetching to pending. Not an error:
// the previous process died mid-fetch.
func (q *Queue) recoverStale() {
	stale, err := q.store.StaleFetchingTasks(staleFetchThreshold)
	if err != nil {
		q.logger.Warn("stale task scan failed", "error", err)
		return
	}
	for _, task := range stale {
		if err := q.store.MarkTaskPending(task.ExternalID); err != nil {
			q.logger.Warn("recover stale task failed",
				"external_id", task.ExternalID, "error", err)
			continue
		}
		q.logger.Info("recovered stale route task", "external_id", task.ExternalID)
	}
}

func (q *Queue) processTask(ctx context.Context, task *models.RouteTask) {
	run, err := q.runs.FindByExternalID(task.ExternalID)
	if err != nil {
		q.logger.Warn("task run lookup failed",
			"external_id", task.ExternalID, "error", err)
		return
	}
	if run == nil {
		// The workout was deleted after the task was queued. Harmless;
		// close the task out.
		q.logger.Info("route task orphaned, no matching run",
			"external_id", task.ExternalID)
		if err := q.store.MarkTaskFailed(task.ExternalID); err != nil {
			q.logger.Warn("mark orphaned task failed",
				"external_id", task.ExternalID, "error", err)
		}
		return
	}

	if err := q.store.MarkTaskFetching(task.ExternalID); err != nil {
		q.logger.Warn("claim task failed",
			"external_id", task.ExternalID, "error", err)
		return
	}

	points := q.fetchRoute(ctx, task, run)

	if len(points) == 0 {
		updated, err := q.store.RecordTaskAttempt(task.ExternalID)
		if err != nil {
			q.logger.Warn("record task attempt failed",
				"external_id", task.ExternalID, "error", err)
			return
		}
		if updated.Status == models.TaskFailed {
			q.logger.Info("route fetch exhausted",
				"external_id", task.ExternalID, "attempts", updated.AttemptCount)
			// Route is optional downstream; fire the side effect with the
			// lightweight record.
			q.notifyEnriched(run)
		}
		return
	}

	q.enrich(ctx, run, points)

	if err := q.store.MarkTaskCompleted(task.ExternalID); err != nil {
		q.logger.Warn("mark task completed failed",
			"external_id", task.ExternalID, "error", err)
		return
	}
	q.notifyEnriched(run)
}

// fetchRoute tries the precise workout-association query first, then falls
// back to a time-window query bounded by the workout for platforms whose
// association link is missing.
func (q *Queue) fetchRoute(ctx context.Context, task *models.RouteTask, run *models.Run) []models.RoutePoint {
	points, err := q.fetcher.WorkoutRoute(ctx, task.ExternalID)
	if err != nil {
		q.logger.Warn("workout route fetch failed",
			"external_id", task.ExternalID, "error", err)
	}
	if len(points) > 0 {
		return points
	}

	start, end := runWindow(run)
	points, err = q.fetcher.RouteInWindow(ctx, start, end)
	if err != nil {
		q.logger.Warn("window route fetch failed",
			"external_id", task.ExternalID, "error", err)
		return nil
	}
	return points
}

// enrich assembles and persists the enrichment sub-record. The heart-rate,
// splits and dynamics fetches are each individually optional: one failing
// never blocks the others, and a failed persistence write is logged and
// swallowed because enrichment is cache data.
func (q *Queue) enrich(ctx context.Context, run *models.Run, points []models.RoutePoint) {
	enrichment := &models.Enrichment{RunID: run.ID}
	if err := enrichment.SetRoute(points); err != nil {
		q.logger.Warn("encode route failed", "run", run.ID, "error", err)
	}

	start, end := runWindow(run)
	samples, err := q.fetcher.HeartRateSamples(ctx, start, end)
	if err != nil {
		q.logger.Warn("heart rate fetch failed", "run", run.ID, "error", err)
	}
	if len(samples) > 0 {
		correlated := CorrelateHeartRate(points, samples)
		if err := enrichment.SetRouteHR(correlated); err != nil {
			q.logger.Warn("encode hr route failed", "run", run.ID, "error", err)
		}
		if run.AvgHeartRate == nil || *run.AvgHeartRate == 0 {
			avg := AverageHeartRate(samples)
			run.AvgHeartRate = &avg
			if err := q.runs.Update(run); err != nil {
				q.logger.Warn("update run heart rate failed", "run", run.ID, "error", err)
			}
		}
	}

	externalID := ""
	if run.ExternalID != nil {
		externalID = *run.ExternalID
	}

	splits, err := q.fetcher.WorkoutSplits(ctx, externalID)
	if err != nil {
		q.logger.Warn("splits fetch failed", "run", run.ID, "error", err)
	}
	if err := enrichment.SetSplits(splits); err != nil {
		q.logger.Warn("encode splits failed", "run", run.ID, "error", err)
	}

	dynamics, err := q.fetcher.WorkoutDynamics(ctx, externalID)
	if err != nil {
		q.logger.Warn("dynamics fetch failed", "run", run.ID, "error", err)
	}
	if err := enrichment.SetDynamics(dynamics); err != nil {
		q.logger.Warn("encode dynamics failed", "run", run.ID, "error", err)
	}

	if err := q.store.SaveEnrichment(enrichment); err != nil {
		q.logger.Warn("persist enrichment failed", "run", run.ID, "error", err)
	}
}

func (q *Queue) notifyEnriched(run *models.Run) {
	if q.onEnriched != nil {
		q.onEnriched(run)
	}
}

// runWindow reconstructs the workout's time window from the run record,
// whose date carries the workout end time.
func runWindow(run *models.Run) (time.Time, time.Time) {
	end := run.Date
	start := end.Add(-time.Duration(run.DurationSec) * time.Second)
	return start, end
}

// Package sync implements the health-data synchronization pipeline: the
// idempotent workout reconciler and the orchestrator that drives anchored
// fetches, resyncs and enrichment.
package sync

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stridefit/stride/internal/db"
	"github.com/stridefit/stride/internal/models"
)

// highPriorityWindow is how recent a workout must be for its route task to
// jump the queue.
const highPriorityWindow = 7 * 24 * time.Hour

// RunStore is the consumer interface over the app's workout collection.
// The sync core never touches run storage directly; the host injects this.
type RunStore interface {
	Add(run *models.Run) error
	Update(run *models.Run) error
	Remove(id string) error
	FindByExternalID(externalID string) (*models.Run, error)
}

// IgnorePredicate decides whether a strength-like external workout should
// be discarded as a duplicate of a workout already logged in-app. App
// specific; injected by the host.
type IgnorePredicate func(workout models.Workout) bool

// Result summarizes one reconcile pass.
type Result struct {
	Imported int
	Updated  int
	Skipped  int
	Removed  int

	// StrengthAdded counts strength-like workouts imported this pass, for
	// the downstream matcher notification.
	StrengthAdded int
}

// Reconciler is the idempotent import engine. For each externally sourced
// workout it decides new / duplicate-to-update / ignored and applies the
// minimal mutation to the run collection. Reconciling the same batch twice
// yields the same collection, which is what makes a crash between
// reconcile and anchor update safe to replay.
type Reconciler struct {
	runs         RunStore
	store        *db.DB
	shouldIgnore IgnorePredicate
	logger       *slog.Logger
	now          func() time.Time
}

// NewReconciler builds a reconciler. shouldIgnore may be nil, in which case
// no external workout is ever auto-ignored.
func NewReconciler(runs RunStore, store *db.DB, shouldIgnore IgnorePredicate, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		runs:         runs,
		store:        store,
		shouldIgnore: shouldIgnore,
		logger:       logger,
		now:          time.Now,
	}
}

// Reconcile applies a batch of added workouts and removed external ids to
// the run collection. A failure on one record is logged and skipped; it
// never aborts the rest of the batch. Additions are processed in gateway
// order.
func (r *Reconciler) Reconcile(added []models.Workout, removed []string) (*Result, error) {
	result := &Result{}

	for _, workout := range added {
		if err := r.reconcileOne(workout, result); err != nil {
			r.logger.Warn("import workout failed",
				"external_id", workout.ExternalID, "error", err)
			result.Skipped++
		}
	}

	for _, externalID := range removed {
		run, err := r.runs.FindByExternalID(externalID)
		if err != nil {
			r.logger.Warn("lookup removed workout failed",
				"external_id", externalID, "error", err)
			continue
		}
		if run == nil {
			continue
		}
		if err := r.runs.Remove(run.ID); err != nil {
			return result, fmt.Errorf("remove run %s: %w", run.ID, err)
		}
		result.Removed++
	}

	return result, nil
}

// action is the decision reached for one added workout.
type action int

const (
	actionSkip action = iota
	actionIgnore
	actionImport
	actionUpdate
)

// classification is the read-only half of reconciling one workout. The
// full-resync path computes classifications concurrently and applies them
// serially.
type classification struct {
	workout  models.Workout
	existing *models.Run
	action   action
}

// classify decides what to do with one added workout. Reads only.
func (r *Reconciler) classify(workout models.Workout) (classification, error) {
	c := classification{workout: workout}

	if workout.IsStrengthLike() {
		ignored, err := r.store.IsWorkoutIgnored(workout.ExternalID)
		if err != nil {
			return c, fmt.Errorf("check ignored: %w", err)
		}
		if ignored {
			c.action = actionSkip
			return c, nil
		}
	}

	existing, err := r.runs.FindByExternalID(workout.ExternalID)
	if err != nil {
		return c, fmt.Errorf("lookup by external id: %w", err)
	}
	c.existing = existing

	// A strength workout with no local counterpart may be a duplicate of
	// one the user logged in-app and explicitly discarded. Once ignored,
	// always ignored.
	if workout.IsStrengthLike() && existing == nil && r.shouldIgnore != nil && r.shouldIgnore(workout) {
		c.action = actionIgnore
		return c, nil
	}

	if existing == nil {
		c.action = actionImport
	} else {
		c.action = actionUpdate
	}
	return c, nil
}

// apply performs the mutation a classification calls for.
func (r *Reconciler) apply(c classification, result *Result) error {
	switch c.action {
	case actionSkip:
		result.Skipped++
		return nil
	case actionIgnore:
		if err := r.store.AddIgnoredWorkout(c.workout.ExternalID); err != nil {
			return fmt.Errorf("add ignored: %w", err)
		}
		result.Skipped++
		return nil
	case actionImport:
		return r.importNew(c.workout, result)
	default:
		return r.updateExisting(c.existing, c.workout, result)
	}
}

func (r *Reconciler) reconcileOne(workout models.Workout, result *Result) error {
	c, err := r.classify(workout)
	if err != nil {
		return err
	}
	return r.apply(c, result)
}

// importNew creates the lightweight run record and queues enrichment. Date
// carries the workout's end time: that is when the user perceives the
// workout as finished, matching completion timestamps elsewhere in the app.
func (r *Reconciler) importNew(workout models.Workout, result *Result) error {
	externalID := workout.ExternalID
	run := &models.Run{
		ID:           uuid.New().String(),
		Date:         workout.EndTime,
		DistanceKm:   distanceKm(workout),
		DurationSec:  int(workout.Duration().Seconds()),
		ExternalID:   &externalID,
		AvgHeartRate: workout.AvgHeartRate,
		Calories:     workout.EnergyKcal,
		WorkoutKind:  workout.ActivityKind,
		WorkoutName:  workout.Name,
	}
	if err := r.runs.Add(run); err != nil {
		return fmt.Errorf("add run: %w", err)
	}

	if err := r.store.EnqueueRouteTask(externalID, workout.EndTime, r.taskPriority(workout)); err != nil {
		// Enrichment is optional on the run; losing the task costs detail,
		// not the workout.
		r.logger.Warn("enqueue route task failed",
			"external_id", externalID, "error", err)
	}

	result.Imported++
	if workout.IsStrengthLike() {
		result.StrengthAdded++
	}
	return nil
}

// updateExisting recomputes mutable fields and persists only when
// something actually changed. Heart rate is taken over only while the
// stored value is null or zero, so a value the route queue already
// correlated is never clobbered.
func (r *Reconciler) updateExisting(run *models.Run, workout models.Workout, result *Result) error {
	changed := false

	if km := distanceKm(workout); run.DistanceKm != km {
		run.DistanceKm = km
		changed = true
	}
	if sec := int(workout.Duration().Seconds()); run.DurationSec != sec {
		run.DurationSec = sec
		changed = true
	}
	if !floatPtrEqual(run.Calories, workout.EnergyKcal) {
		run.Calories = workout.EnergyKcal
		changed = true
	}
	if run.WorkoutKind != workout.ActivityKind {
		run.WorkoutKind = workout.ActivityKind
		changed = true
	}
	if run.WorkoutName != workout.Name {
		run.WorkoutName = workout.Name
		changed = true
	}
	if (run.AvgHeartRate == nil || *run.AvgHeartRate == 0) &&
		workout.AvgHeartRate != nil && !floatPtrEqual(run.AvgHeartRate, workout.AvgHeartRate) {
		run.AvgHeartRate = workout.AvgHeartRate
		changed = true
	}

	if !changed {
		result.Skipped++
		return nil
	}
	if err := r.runs.Update(run); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	result.Updated++
	return nil
}

func (r *Reconciler) taskPriority(workout models.Workout) int {
	if r.now().Sub(workout.EndTime) <= highPriorityWindow {
		return models.PriorityHigh
	}
	return models.PriorityNormal
}

func distanceKm(workout models.Workout) float64 {
	if workout.DistanceMeters == nil {
		return 0
	}
	return *workout.DistanceMeters / 1000
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

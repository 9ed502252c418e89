// Package health wraps access to the platform health-data store: scoped
// authorization, change subscriptions, and the query shapes the sync core
// consumes.
package health

import (
	"context"
	"errors"
	"time"

	"github.com/stridefit/stride/internal/models"
)

// Scope names one data type the app reads from the platform.
type Scope string

// Scopes requested by the app. The set is versioned: bumping ScopeVersion
// after adding a scope makes the connector re-authorize for the delta
// without re-prompting for scopes already granted.
const (
	ScopeWorkouts     Scope = "workouts"
	ScopeRoutes       Scope = "workout_routes"
	ScopeHeartRate    Scope = "heart_rate"
	ScopeRunDynamics  Scope = "running_dynamics"
	ScopeExerciseTime Scope = "exercise_time"
)

// ScopeVersion is the current version of the requested scope set. Bump it
// whenever RequiredScopes gains a member.
const ScopeVersion = 2

// RequiredScopes returns the data scopes the sync core needs.
func RequiredScopes() []Scope {
	return []Scope{
		ScopeWorkouts,
		ScopeRoutes,
		ScopeHeartRate,
		ScopeRunDynamics,
		ScopeExerciseTime,
	}
}

// Sentinel errors surfaced by gateway implementations.
var (
	// ErrAuthorizationDenied means the platform rejected the request or the
	// data is not available to this app.
	ErrAuthorizationDenied = errors.New("health: authorization denied")
	// ErrNotConnected means an operation ran without verified data access.
	ErrNotConnected = errors.New("health: not connected")
)

// Gateway is the platform health-data API as the sync core sees it. The
// platform itself is opaque; implementations adapt a concrete SDK, a test
// fake, or a file export.
type Gateway interface {
	// Authorize requests read access for the given scopes. The returned
	// state reflects the platform's answer only; callers must verify actual
	// data access with a probe query, since the platform's status report is
	// unreliable after the initial grant.
	Authorize(ctx context.Context, scopes []Scope) (models.ConnectionState, error)

	// AnchoredFetch returns workouts added and removed since the cursor,
	// plus a new cursor. A nil cursor fetches from the beginning of
	// history. The cursor is opaque: store and replay verbatim.
	AnchoredFetch(ctx context.Context, streamID string, cursor []byte) (*models.FetchResult, error)

	// BoundedFetch returns up to limit workouts, sorted by end time.
	BoundedFetch(ctx context.Context, streamID string, sortDesc bool, limit int) ([]models.Workout, error)

	// FetchByExternalID returns a single workout, or nil when unknown.
	FetchByExternalID(ctx context.Context, externalID string) (*models.Workout, error)

	// Subscribe registers a long-lived observer for a stream. The onChange
	// callback must return within the platform's execution budget; real
	// handling belongs on a separate goroutine. The returned func cancels
	// the subscription.
	Subscribe(streamID string, onChange func()) (func(), error)
}

// DetailFetcher provides the heavyweight per-workout queries consumed by
// the route enrichment queue. Each fetch is independently optional: a
// failure in one must not block the others.
type DetailFetcher interface {
	// WorkoutRoute returns the GPS route linked to a workout via the
	// platform's workout association. May be empty when the association
	// link is missing.
	WorkoutRoute(ctx context.Context, externalID string) ([]models.RoutePoint, error)

	// RouteInWindow returns route samples recorded inside a time window.
	// Fallback for workouts whose association link is absent.
	RouteInWindow(ctx context.Context, start, end time.Time) ([]models.RoutePoint, error)

	// HeartRateSamples returns heart-rate readings inside a time window.
	HeartRateSamples(ctx context.Context, start, end time.Time) ([]models.HeartRateSample, error)

	// WorkoutSplits returns per-kilometer splits for a workout.
	WorkoutSplits(ctx context.Context, externalID string) ([]models.Split, error)

	// WorkoutDynamics returns running-dynamics averages, or nil when the
	// platform recorded none.
	WorkoutDynamics(ctx context.Context, externalID string) (*models.RunningDynamics, error)
}

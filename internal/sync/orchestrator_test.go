package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridefit/stride/internal/db"
	"github.com/stridefit/stride/internal/health"
	"github.com/stridefit/stride/internal/models"
	"github.com/stridefit/stride/internal/route"
	"github.com/stridefit/stride/internal/store"
)

// fakeGateway is a mutable in-memory platform: workouts can be appended
// and deleted between syncs, and fetches can be forced to fail.
type fakeGateway struct {
	mu        sync.Mutex
	workouts  []models.Workout
	deleted   []string
	failFetch bool
	onChange  func()
}

func (f *fakeGateway) add(w models.Workout) {
	f.mu.Lock()
	f.workouts = append(f.workouts, w)
	f.mu.Unlock()
}

func (f *fakeGateway) remove(externalID string) {
	f.mu.Lock()
	f.deleted = append(f.deleted, externalID)
	f.mu.Unlock()
}

func (f *fakeGateway) setFailFetch(fail bool) {
	f.mu.Lock()
	f.failFetch = fail
	f.mu.Unlock()
}

func (f *fakeGateway) Authorize(ctx context.Context, scopes []health.Scope) (models.ConnectionState, error) {
	return models.StateLimited, nil
}

// AnchoredFetch uses an offset cursor over the append-only workout log.
// Deletions are reported on every fetch, mirroring a platform that keeps
// tombstones.
func (f *fakeGateway) AnchoredFetch(ctx context.Context, streamID string, cursor []byte) (*models.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFetch {
		return nil, fmt.Errorf("platform unavailable")
	}

	offset := 0
	if len(cursor) > 0 {
		n, err := strconv.Atoi(string(cursor))
		if err != nil {
			return nil, err
		}
		offset = n
	}

	result := &models.FetchResult{
		NewCursor:  []byte(strconv.Itoa(len(f.workouts))),
		RemovedIDs: append([]string(nil), f.deleted...),
	}
	if offset < len(f.workouts) {
		result.Added = append(result.Added, f.workouts[offset:]...)
	}
	return result, nil
}

func (f *fakeGateway) BoundedFetch(ctx context.Context, streamID string, sortDesc bool, limit int) ([]models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch {
		return nil, fmt.Errorf("platform unavailable")
	}
	if limit > 0 && limit < len(f.workouts) {
		return f.workouts[:limit], nil
	}
	return f.workouts, nil
}

func (f *fakeGateway) FetchByExternalID(ctx context.Context, externalID string) (*models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.workouts {
		if f.workouts[i].ExternalID == externalID {
			w := f.workouts[i]
			return &w, nil
		}
	}
	return nil, nil
}

func (f *fakeGateway) Subscribe(streamID string, onChange func()) (func(), error) {
	f.mu.Lock()
	f.onChange = onChange
	f.mu.Unlock()
	return func() {}, nil
}

// The orchestrator's queue needs a detail fetcher; the fake has no detail
// data, so every route fetch comes back empty.
func (f *fakeGateway) WorkoutRoute(ctx context.Context, externalID string) ([]models.RoutePoint, error) {
	return nil, nil
}

func (f *fakeGateway) RouteInWindow(ctx context.Context, start, end time.Time) ([]models.RoutePoint, error) {
	return nil, nil
}

func (f *fakeGateway) HeartRateSamples(ctx context.Context, start, end time.Time) ([]models.HeartRateSample, error) {
	return nil, nil
}

func (f *fakeGateway) WorkoutSplits(ctx context.Context, externalID string) ([]models.Split, error) {
	return nil, nil
}

func (f *fakeGateway) WorkoutDynamics(ctx context.Context, externalID string) (*models.RunningDynamics, error) {
	return nil, nil
}

// testPipeline wires a full pipeline over a temp database and the fake.
func testPipeline(t *testing.T) (*fakeGateway, *db.DB, *store.RunStore, *Orchestrator) {
	t.Helper()

	database, runs := testStore(t)
	gateway := &fakeGateway{}
	connector := health.NewConnector(gateway, database, nil)
	reconciler := NewReconciler(runs, database, nil, nil)
	queue := route.NewQueue(database, gateway, runs, nil, nil)
	o := NewOrchestrator(gateway, connector, reconciler, queue, database, nil, nil)

	t.Cleanup(o.WaitBackground)
	return gateway, database, runs, o
}

func TestSync_IncrementalAnchorAdvance(t *testing.T) {
	gateway, database, runs, o := testPipeline(t)

	gateway.add(runWorkout("w1", time.Now().Add(-3*time.Hour), 5000))
	gateway.add(runWorkout("w2", time.Now().Add(-2*time.Hour), 8000))

	require.NoError(t, o.Sync(context.Background()))
	assert.Equal(t, 2, o.LastResult().Imported)

	// Nothing new: the anchored fetch returns an empty delta
	require.NoError(t, o.Sync(context.Background()))
	assert.Equal(t, 0, o.LastResult().Imported)

	// A new workout lands; only the delta is fetched and imported
	gateway.add(runWorkout("w3", time.Now().Add(-1*time.Hour), 3000))
	require.NoError(t, o.Sync(context.Background()))
	assert.Equal(t, 1, o.LastResult().Imported)

	count, err := database.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	run, err := runs.FindByExternalID("w3")
	require.NoError(t, err)
	require.NotNil(t, run)
}

func TestSync_FetchFailureKeepsAnchor(t *testing.T) {
	gateway, database, _, o := testPipeline(t)

	gateway.add(runWorkout("w1", time.Now().Add(-2*time.Hour), 5000))
	require.NoError(t, o.Sync(context.Background()))

	anchorBefore, err := database.GetAnchor(models.StreamAllWorkouts)
	require.NoError(t, err)
	require.NotNil(t, anchorBefore)

	gateway.setFailFetch(true)
	err = o.Sync(context.Background())
	require.Error(t, err)

	anchorAfter, err := database.GetAnchor(models.StreamAllWorkouts)
	require.NoError(t, err)
	require.NotNil(t, anchorAfter)
	assert.Equal(t, anchorBefore.Cursor, anchorAfter.Cursor)

	// The failure is recorded for optional host display
	status, err := database.GetSyncStatus()
	require.NoError(t, err)
	assert.NotEmpty(t, status.LastError)

	// Recovery clears it
	gateway.setFailFetch(false)
	require.NoError(t, o.Sync(context.Background()))
	status, err = database.GetSyncStatus()
	require.NoError(t, err)
	assert.Empty(t, status.LastError)
}

func TestSync_GuardRejectsConcurrent(t *testing.T) {
	_, _, _, o := testPipeline(t)

	o.syncing.Store(true)
	assert.True(t, o.IsSyncing())

	err := o.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	err = o.ResyncRecent(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	err = o.ResyncAll(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	o.syncing.Store(false)
	assert.False(t, o.IsSyncing())
}

func TestSyncIfNeeded_Throttled(t *testing.T) {
	gateway, database, _, o := testPipeline(t)

	gateway.add(runWorkout("w1", time.Now().Add(-2*time.Hour), 5000))

	// Disconnected: auto-sync is a silent no-op
	require.NoError(t, o.SyncIfNeeded(context.Background()))
	count, err := database.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Connect via a manual sync
	require.NoError(t, o.Sync(context.Background()))

	// First eligible auto-sync spends the burst token
	gateway.add(runWorkout("w2", time.Now().Add(-1*time.Hour), 3000))
	require.NoError(t, o.SyncIfNeeded(context.Background()))
	count, err = database.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Inside the throttle window nothing happens, even with new data
	gateway.add(runWorkout("w3", time.Now().Add(-30*time.Minute), 3000))
	require.NoError(t, o.SyncIfNeeded(context.Background()))
	count, err = database.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestResyncRecent_WindowsImports(t *testing.T) {
	gateway, _, runs, o := testPipeline(t)

	now := time.Now()
	gateway.add(runWorkout("ancient", now.Add(-60*24*time.Hour), 10000))
	gateway.add(runWorkout("recent", now.Add(-3*24*time.Hour), 5000))

	require.NoError(t, o.ResyncRecent(context.Background()))

	recent, err := runs.FindByExternalID("recent")
	require.NoError(t, err)
	assert.NotNil(t, recent)

	ancient, err := runs.FindByExternalID("ancient")
	require.NoError(t, err)
	assert.Nil(t, ancient)

	// The anchor still covers the full fetch, so the next incremental
	// sync does not re-deliver the old workout
	require.NoError(t, o.Sync(context.Background()))
	assert.Equal(t, 0, o.LastResult().Imported)
}

func TestResyncRecent_AppliesDeletions(t *testing.T) {
	gateway, _, runs, o := testPipeline(t)

	gateway.add(runWorkout("w1", time.Now().Add(-2*time.Hour), 5000))
	require.NoError(t, o.Sync(context.Background()))

	gateway.remove("w1")
	require.NoError(t, o.ResyncRecent(context.Background()))

	run, err := runs.FindByExternalID("w1")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestResyncAll_BatchesAndProgress(t *testing.T) {
	gateway, database, _, o := testPipeline(t)

	now := time.Now()
	const total = 250
	for i := 0; i < total; i++ {
		gateway.add(runWorkout(
			fmt.Sprintf("w%03d", i),
			now.Add(-time.Duration(i)*time.Hour),
			5000,
		))
	}

	var mu sync.Mutex
	var seen []Progress
	o.OnProgress(func(p Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})

	require.NoError(t, o.ResyncAll(context.Background()))

	count, err := database.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(total), count)
	assert.Equal(t, total, o.LastResult().Imported)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3) // 100 + 100 + 50

	prev := 0
	for _, p := range seen {
		assert.Greater(t, p.Processed, prev)
		prev = p.Processed
		assert.Equal(t, total, p.Total)
		assert.Equal(t, 3, p.TotalBatches)
	}
	last := seen[len(seen)-1]
	assert.Equal(t, total, last.Processed)
	assert.InDelta(t, 1.0, last.Fraction, 0.001)
}

func TestResyncAll_Idempotent(t *testing.T) {
	gateway, database, _, o := testPipeline(t)

	for i := 0; i < 5; i++ {
		gateway.add(runWorkout(fmt.Sprintf("w%d", i), time.Now().Add(-time.Duration(i)*time.Hour), 5000))
	}

	require.NoError(t, o.ResyncAll(context.Background()))
	require.NoError(t, o.ResyncAll(context.Background()))

	count, err := database.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.Equal(t, 0, o.LastResult().Imported)
}

func TestResyncAll_Cancellation(t *testing.T) {
	gateway, _, _, o := testPipeline(t)

	for i := 0; i < 150; i++ {
		gateway.add(runWorkout(fmt.Sprintf("w%03d", i), time.Now().Add(-time.Duration(i)*time.Hour), 5000))
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.OnProgress(func(p Progress) {
		if p.Batch == 1 {
			cancel()
		}
	})

	err := o.ResyncAll(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, o.IsSyncing())
}

func TestWatch_ObserverTriggersSync(t *testing.T) {
	gateway, database, _, o := testPipeline(t)

	relay := health.NewObserverRelay(gateway, nil)
	require.NoError(t, o.Watch(relay, models.StreamAllWorkouts))

	gateway.add(runWorkout("w1", time.Now().Add(-2*time.Hour), 5000))
	gateway.onChange()

	// Close waits for the dispatched handler, so the sync has finished
	relay.Close()

	count, err := database.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStrengthNotifier_WindowDays(t *testing.T) {
	database, runs := testStore(t)
	gateway := &fakeGateway{}
	connector := health.NewConnector(gateway, database, nil)
	reconciler := NewReconciler(runs, database, nil, nil)
	queue := route.NewQueue(database, gateway, runs, nil, nil)

	var mu sync.Mutex
	type notification struct{ count, days int }
	var notes []notification
	notify := func(count, windowDays int) {
		mu.Lock()
		notes = append(notes, notification{count, windowDays})
		mu.Unlock()
	}

	o := NewOrchestrator(gateway, connector, reconciler, queue, database, notify, nil)
	t.Cleanup(o.WaitBackground)

	gateway.add(models.Workout{
		ExternalID:   "s1",
		StartTime:    time.Now().Add(-1 * time.Hour),
		EndTime:      time.Now().Add(-30 * time.Minute),
		ActivityKind: models.ActivityStrength,
	})

	// Incremental sync notifies with the narrow catch-up window
	require.NoError(t, o.Sync(context.Background()))

	// Manual resync re-imports nothing, so no second notification
	require.NoError(t, o.ResyncRecent(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notes, 1)
	assert.Equal(t, 1, notes[0].count)
	assert.Equal(t, 7, notes[0].days)
}

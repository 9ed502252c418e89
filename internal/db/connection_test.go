package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridefit/stride/internal/models"
)

func TestSetConnectionState(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.SetConnectionState(models.StateConnected))

	settings, err := db.GetConnectionSettings()
	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, settings.State)

	require.NoError(t, db.SetConnectionState(models.StateLimited))
	settings, err = db.GetConnectionSettings()
	require.NoError(t, err)
	assert.Equal(t, models.StateLimited, settings.State)
}

func TestSetGrantedScopeVersion(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.SetConnectionState(models.StateConnected))
	require.NoError(t, db.SetGrantedScopeVersion(2))

	settings, err := db.GetConnectionSettings()
	require.NoError(t, err)
	assert.Equal(t, 2, settings.GrantedScopeVersion)
	// Scope update must not clobber the state
	assert.Equal(t, models.StateConnected, settings.State)
}

func TestGetOrCreateTrackingID_Persists(t *testing.T) {
	db := testDB(t)

	first := db.GetOrCreateTrackingID()
	assert.NotEmpty(t, first)

	second := db.GetOrCreateTrackingID()
	assert.Equal(t, first, second)
}

func TestIgnoredWorkouts(t *testing.T) {
	db := testDB(t)

	ignored, err := db.IsWorkoutIgnored("w1")
	require.NoError(t, err)
	assert.False(t, ignored)

	require.NoError(t, db.AddIgnoredWorkout("w1"))
	// Re-adding is a no-op, not an error
	require.NoError(t, db.AddIgnoredWorkout("w1"))

	ignored, err = db.IsWorkoutIgnored("w1")
	require.NoError(t, err)
	assert.True(t, ignored)
}

func TestSyncStatus_SuccessClearsError(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.RecordSyncError("gateway unreachable"))
	status, err := db.GetSyncStatus()
	require.NoError(t, err)
	assert.Equal(t, "gateway unreachable", status.LastError)

	now := time.Now()
	require.NoError(t, db.RecordSyncSuccess(now))
	status, err = db.GetSyncStatus()
	require.NoError(t, err)
	assert.Empty(t, status.LastError)
	require.NotNil(t, status.LastSyncAt)
	assert.WithinDuration(t, now, *status.LastSyncAt, time.Second)
}

func TestRecordAutoSync(t *testing.T) {
	db := testDB(t)

	now := time.Now()
	require.NoError(t, db.RecordAutoSync(now))

	status, err := db.GetSyncStatus()
	require.NoError(t, err)
	require.NotNil(t, status.LastAutoSyncAt)
	assert.WithinDuration(t, now, *status.LastAutoSyncAt, time.Second)
}

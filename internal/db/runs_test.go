package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridefit/stride/internal/models"
)

func strPtr(s string) *string { return &s }

func TestCreateAndFindRunByExternalID(t *testing.T) {
	db := testDB(t)

	run := &models.Run{
		ID:          "r1",
		Date:        time.Now().Add(-time.Hour),
		DistanceKm:  5.2,
		DurationSec: 1800,
		ExternalID:  strPtr("hk-uuid-1"),
		WorkoutKind: models.ActivityRunning,
	}
	require.NoError(t, db.CreateRun(run))

	found, err := db.FindRunByExternalID("hk-uuid-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "r1", found.ID)
	assert.InDelta(t, 5.2, found.DistanceKm, 0.001)

	missing, err := db.FindRunByExternalID("hk-uuid-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExternalID_Unique(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.CreateRun(&models.Run{ID: "r1", ExternalID: strPtr("dup")}))
	err := db.CreateRun(&models.Run{ID: "r2", ExternalID: strPtr("dup")})
	assert.Error(t, err)
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := testDB(t)

	now := time.Now()
	require.NoError(t, db.CreateRun(&models.Run{ID: "old", Date: now.Add(-48 * time.Hour)}))
	require.NoError(t, db.CreateRun(&models.Run{ID: "new", Date: now.Add(-1 * time.Hour)}))
	require.NoError(t, db.CreateRun(&models.Run{ID: "mid", Date: now.Add(-24 * time.Hour)}))

	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, "old", runs[2].ID)

	limited, err := db.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDeleteRun_CascadesEnrichment(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.CreateRun(&models.Run{ID: "r1", Date: time.Now()}))

	enrichment := &models.Enrichment{RunID: "r1"}
	require.NoError(t, enrichment.SetRoute([]models.RoutePoint{
		{Latitude: 52.5, Longitude: 13.4, Timestamp: time.Now()},
	}))
	require.NoError(t, db.SaveEnrichment(enrichment))

	require.NoError(t, db.DeleteRun("r1"))

	var count int64
	require.NoError(t, db.Model(&models.Enrichment{}).Where("run_id = ?", "r1").Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestSaveEnrichment_Upsert(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.CreateRun(&models.Run{ID: "r1", Date: time.Now()}))

	first := &models.Enrichment{RunID: "r1"}
	require.NoError(t, first.SetRoute([]models.RoutePoint{{Latitude: 1, Longitude: 1}}))
	require.NoError(t, db.SaveEnrichment(first))

	second := &models.Enrichment{RunID: "r1"}
	require.NoError(t, second.SetRoute([]models.RoutePoint{{Latitude: 2, Longitude: 2}, {Latitude: 3, Longitude: 3}}))
	require.NoError(t, db.SaveEnrichment(second))

	run, err := db.GetRun("r1")
	require.NoError(t, err)
	require.NotNil(t, run)
	require.NotNil(t, run.Enrichment)

	points, err := run.Enrichment.RoutePoints()
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestCountRuns(t *testing.T) {
	db := testDB(t)

	count, err := db.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, db.CreateRun(&models.Run{ID: "r1"}))
	count, err = db.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

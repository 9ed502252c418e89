package health

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/stridefit/stride/internal/models"
)

// Export is the on-disk shape of a platform data export: the lightweight
// workout records plus the heavyweight detail keyed by workout id.
type Export struct {
	Workouts   []models.Workout                     `json:"workouts"`
	DeletedIDs []string                             `json:"deleted_ids,omitempty"`
	Routes     map[string][]models.RoutePoint       `json:"routes,omitempty"`
	HeartRate  []models.HeartRateSample             `json:"heart_rate,omitempty"`
	Splits     map[string][]models.Split            `json:"splits,omitempty"`
	Dynamics   map[string]*models.RunningDynamics   `json:"dynamics,omitempty"`
}

// ExportGateway serves the Gateway and DetailFetcher contracts from a JSON
// export file. It lets the whole pipeline run without a live platform:
// the CLI syncs from an export, and tests drive it directly. Access is
// always granted and its anchored cursor is simply the count of records
// already delivered.
type ExportGateway struct {
	export Export
}

// LoadExport reads and parses an export file.
func LoadExport(path string) (*ExportGateway, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	gw := &ExportGateway{export: export}
	sort.Slice(gw.export.Workouts, func(i, j int) bool {
		return gw.export.Workouts[i].EndTime.Before(gw.export.Workouts[j].EndTime)
	})
	return gw, nil
}

// NewExportGateway wraps an already-parsed export, for tests.
func NewExportGateway(export Export) *ExportGateway {
	return &ExportGateway{export: export}
}

// Authorize always grants: the export file is local data.
func (g *ExportGateway) Authorize(ctx context.Context, scopes []Scope) (models.ConnectionState, error) {
	return models.StateConnected, nil
}

// AnchoredFetch returns the records after the cursor offset. Deleted ids
// are reported once, on the initial (nil-cursor) fetch.
func (g *ExportGateway) AnchoredFetch(ctx context.Context, streamID string, cursor []byte) (*models.FetchResult, error) {
	offset := 0
	if len(cursor) > 0 {
		n, err := strconv.Atoi(string(cursor))
		if err != nil {
			return nil, fmt.Errorf("malformed cursor %q: %w", cursor, err)
		}
		offset = n
	}

	result := &models.FetchResult{
		NewCursor: []byte(strconv.Itoa(len(g.export.Workouts))),
	}
	if offset < len(g.export.Workouts) {
		result.Added = append(result.Added, g.export.Workouts[offset:]...)
	}
	if offset == 0 {
		result.RemovedIDs = append(result.RemovedIDs, g.export.DeletedIDs...)
	}
	return result, nil
}

// BoundedFetch returns up to limit workouts sorted by end time.
func (g *ExportGateway) BoundedFetch(ctx context.Context, streamID string, sortDesc bool, limit int) ([]models.Workout, error) {
	workouts := make([]models.Workout, len(g.export.Workouts))
	copy(workouts, g.export.Workouts)
	if sortDesc {
		for i, j := 0, len(workouts)-1; i < j; i, j = i+1, j-1 {
			workouts[i], workouts[j] = workouts[j], workouts[i]
		}
	}
	if limit > 0 && limit < len(workouts) {
		workouts = workouts[:limit]
	}
	return workouts, nil
}

// FetchByExternalID returns a single workout, or nil when unknown.
func (g *ExportGateway) FetchByExternalID(ctx context.Context, externalID string) (*models.Workout, error) {
	for i := range g.export.Workouts {
		if g.export.Workouts[i].ExternalID == externalID {
			w := g.export.Workouts[i]
			return &w, nil
		}
	}
	return nil, nil
}

// Subscribe is a no-op: a file export never changes underneath us.
func (g *ExportGateway) Subscribe(streamID string, onChange func()) (func(), error) {
	return func() {}, nil
}

// WorkoutRoute returns the route stored under the workout's id.
func (g *ExportGateway) WorkoutRoute(ctx context.Context, externalID string) ([]models.RoutePoint, error) {
	return g.export.Routes[externalID], nil
}

// RouteInWindow returns route samples recorded inside the window,
// regardless of which workout they belong to.
func (g *ExportGateway) RouteInWindow(ctx context.Context, start, end time.Time) ([]models.RoutePoint, error) {
	var points []models.RoutePoint
	for _, route := range g.export.Routes {
		for _, p := range route {
			if !p.Timestamp.Before(start) && !p.Timestamp.After(end) {
				points = append(points, p)
			}
		}
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}

// HeartRateSamples returns heart-rate readings inside the window.
func (g *ExportGateway) HeartRateSamples(ctx context.Context, start, end time.Time) ([]models.HeartRateSample, error) {
	var samples []models.HeartRateSample
	for _, s := range g.export.HeartRate {
		if !s.Timestamp.Before(start) && !s.Timestamp.After(end) {
			samples = append(samples, s)
		}
	}
	return samples, nil
}

// WorkoutSplits returns the splits stored under the workout's id.
func (g *ExportGateway) WorkoutSplits(ctx context.Context, externalID string) ([]models.Split, error) {
	return g.export.Splits[externalID], nil
}

// WorkoutDynamics returns the dynamics stored under the workout's id.
func (g *ExportGateway) WorkoutDynamics(ctx context.Context, externalID string) (*models.RunningDynamics, error) {
	return g.export.Dynamics[externalID], nil
}

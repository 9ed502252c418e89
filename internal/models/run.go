package models

import (
	"encoding/json"
	"time"
)

// Run is the app's durable record of one workout. Date carries the external
// workout's end time, which is what the rest of the app uses as a
// completion timestamp. A Run is valid and usable before enrichment
// arrives; Enrichment stays nil until the route queue fills it in.
type Run struct {
	ID   string    `gorm:"primaryKey;size:64" json:"id"`
	Date time.Time `gorm:"index" json:"date"`

	DistanceKm  float64 `json:"distance_km"`
	DurationSec int     `json:"duration_sec"`

	// ExternalID links back to the platform workout. At most one Run per
	// non-null external id.
	ExternalID *string `gorm:"uniqueIndex;size:128" json:"external_id,omitempty"`

	AvgHeartRate *float64 `json:"avg_heart_rate,omitempty"`
	Calories     *float64 `json:"calories,omitempty"`

	WorkoutKind string `gorm:"size:64;index" json:"workout_kind,omitempty"`
	WorkoutName string `gorm:"size:255" json:"workout_name,omitempty"`

	Enrichment *Enrichment `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"enrichment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Run) TableName() string {
	return "runs"
}

// HasExternalID reports whether the run was imported from the platform.
func (r *Run) HasExternalID() bool {
	return r.ExternalID != nil && *r.ExternalID != ""
}

// Enrichment is the heavyweight per-run detail fetched asynchronously after
// the lightweight run record has landed. Its absence means "not yet
// enriched", which is a normal, usable state.
type Enrichment struct {
	RunID string `gorm:"primaryKey;size:64" json:"run_id"`

	// JSON-encoded []RoutePoint. RouteHR carries the heart-rate-correlated
	// variant of the same points.
	Route   string `gorm:"type:text" json:"-"`
	RouteHR string `gorm:"type:text" json:"-"`

	// JSON-encoded []Split.
	Splits string `gorm:"type:text" json:"-"`

	// JSON-encoded RunningDynamics, empty when the platform had none.
	Dynamics string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Enrichment) TableName() string {
	return "enrichments"
}

// SetRoute stores the route coordinates as JSON.
func (e *Enrichment) SetRoute(points []RoutePoint) error {
	data, err := json.Marshal(points)
	if err != nil {
		return err
	}
	e.Route = string(data)
	return nil
}

// RoutePoints decodes the stored route coordinates.
func (e *Enrichment) RoutePoints() ([]RoutePoint, error) {
	if e.Route == "" {
		return nil, nil
	}
	var points []RoutePoint
	if err := json.Unmarshal([]byte(e.Route), &points); err != nil {
		return nil, err
	}
	return points, nil
}

// SetRouteHR stores the heart-rate-correlated route as JSON.
func (e *Enrichment) SetRouteHR(points []RoutePoint) error {
	data, err := json.Marshal(points)
	if err != nil {
		return err
	}
	e.RouteHR = string(data)
	return nil
}

// SetSplits stores the per-kilometer splits as JSON.
func (e *Enrichment) SetSplits(splits []Split) error {
	if len(splits) == 0 {
		return nil
	}
	data, err := json.Marshal(splits)
	if err != nil {
		return err
	}
	e.Splits = string(data)
	return nil
}

// SplitList decodes the stored splits.
func (e *Enrichment) SplitList() ([]Split, error) {
	if e.Splits == "" {
		return nil, nil
	}
	var splits []Split
	if err := json.Unmarshal([]byte(e.Splits), &splits); err != nil {
		return nil, err
	}
	return splits, nil
}

// SetDynamics stores the running-dynamics averages as JSON.
func (e *Enrichment) SetDynamics(d *RunningDynamics) error {
	if d == nil {
		return nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	e.Dynamics = string(data)
	return nil
}

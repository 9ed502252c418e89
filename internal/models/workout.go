// Package models defines the core data structures for Stride.
package models

import (
	"strings"
	"time"
)

// Workout is the gateway's representation of one externally recorded
// workout. It is immutable as received; the source of truth stays on the
// health platform, never locally.
type Workout struct {
	ExternalID   string    `json:"external_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	ActivityKind string    `json:"activity_kind"`

	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	EnergyKcal     *float64 `json:"energy_kcal,omitempty"`
	AvgHeartRate   *float64 `json:"avg_heart_rate,omitempty"`
	Name           string   `json:"name,omitempty"`
}

// Duration returns the workout's elapsed time.
func (w Workout) Duration() time.Duration {
	return w.EndTime.Sub(w.StartTime)
}

// Activity kinds as reported by the platform.
const (
	ActivityRunning             = "running"
	ActivityWalking             = "walking"
	ActivityCycling             = "cycling"
	ActivityStrength            = "strength_training"
	ActivityFunctionalStrength  = "functional_strength_training"
	ActivityTraditionalStrength = "traditional_strength_training"
	ActivityCoreTraining        = "core_training"
)

// strengthKinds are the activity kinds treated as strength-like by the
// reconciler's duplicate-suppression path.
var strengthKinds = map[string]bool{
	ActivityStrength:            true,
	ActivityFunctionalStrength:  true,
	ActivityTraditionalStrength: true,
	ActivityCoreTraining:        true,
}

// IsStrengthLike reports whether the workout's activity kind belongs to the
// strength-training family.
func (w Workout) IsStrengthLike() bool {
	return strengthKinds[strings.ToLower(w.ActivityKind)]
}

// FetchResult is the outcome of one anchored incremental query.
type FetchResult struct {
	Added      []Workout
	RemovedIDs []string
	NewCursor  []byte
}

// RoutePoint is a single GPS sample on a workout route. HeartRate is set
// only when a sample within the correlation window exists.
type RoutePoint struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Altitude  float64   `json:"alt"`
	Timestamp time.Time `json:"ts"`
	HeartRate *float64  `json:"hr,omitempty"`
}

// HeartRateSample is one heart-rate reading in beats per minute.
type HeartRateSample struct {
	Timestamp time.Time `json:"ts"`
	BPM       float64   `json:"bpm"`
}

// Split is one per-kilometer segment of a run.
type Split struct {
	Kilometer   int     `json:"km"`
	DurationSec float64 `json:"duration_sec"`
}

// RunningDynamics holds per-workout averages of running form metrics.
type RunningDynamics struct {
	CadenceSPM          float64 `json:"cadence_spm"`
	GroundContactMs     float64 `json:"ground_contact_ms"`
	VerticalOscillation float64 `json:"vertical_oscillation_cm"`
	StrideLengthM       float64 `json:"stride_length_m"`
}

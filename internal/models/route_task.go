package models

import "time"

// TaskStatus is the lifecycle state of a route enrichment task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskFetching  TaskStatus = "fetching"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Route task priorities. Lower sorts first.
const (
	PriorityHigh   = 0 // recent workouts, processed before everything else
	PriorityNormal = 1
)

// MaxRouteAttempts is the retry bound before a task is marked failed.
const MaxRouteAttempts = 3

// RouteTask is one unit of pending enrichment work: fetch the GPS route,
// heart-rate correlation, splits and dynamics for an already-imported
// workout. One task per external workout id.
type RouteTask struct {
	ExternalID  string     `gorm:"primaryKey;size:128" json:"external_id"`
	WorkoutDate time.Time  `gorm:"index" json:"workout_date"`
	Priority    int        `gorm:"default:1;index" json:"priority"`
	Status      TaskStatus `gorm:"size:20;default:pending;index" json:"status"`

	AttemptCount  int        `gorm:"default:0" json:"attempt_count"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (RouteTask) TableName() string {
	return "route_tasks"
}

// Exhausted reports whether the task has used up its retry budget.
func (t *RouteTask) Exhausted() bool {
	return t.AttemptCount >= MaxRouteAttempts
}

// RouteTaskStats summarizes queue contents for status display.
type RouteTaskStats struct {
	Pending   int64 `json:"pending"`
	Fetching  int64 `json:"fetching"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// IgnoredWorkout records an external workout id the user explicitly
// discarded. Membership is permanent; the reconciler never re-imports an
// ignored id.
type IgnoredWorkout struct {
	ExternalID string    `gorm:"primaryKey;size:128" json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (IgnoredWorkout) TableName() string {
	return "ignored_workouts"
}

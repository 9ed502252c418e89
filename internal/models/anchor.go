package models

import "time"

// Stream ids known to the sync core.
const (
	StreamAllWorkouts  = "all_workouts"
	StreamExerciseTime = "exercise_time"
)

// Anchor persists, per logical data stream, the opaque cursor returned by
// the platform's anchored query plus the time of the last successful sync.
// Cursor is an uninterpreted token: stored and replayed verbatim.
type Anchor struct {
	StreamID   string    `gorm:"primaryKey;size:64" json:"stream_id"`
	Cursor     []byte    `json:"cursor,omitempty"`
	LastSyncAt time.Time `json:"last_sync_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Anchor) TableName() string {
	return "anchors"
}

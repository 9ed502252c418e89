package models

import "time"

// ConnectionState tracks whether the app can read from the health platform.
type ConnectionState string

const (
	// StateDisconnected is the initial state, and the result of an explicit
	// denial.
	StateDisconnected ConnectionState = "disconnected"
	// StateLimited means authorization was granted but a data-access probe
	// has not yet succeeded. Transient.
	StateLimited ConnectionState = "limited"
	// StateConnected means a live probe has verified data access.
	StateConnected ConnectionState = "connected"
)

// ConnectionSettings is the persisted singleton row holding the connection
// state and the last granted scope version. The platform's own
// authorization-status query is unreliable after the initial grant, so the
// state here is only ever set by the authorization flow and by live probes.
type ConnectionSettings struct {
	ID                  string          `gorm:"primaryKey;size:16" json:"id"`
	State               ConnectionState `gorm:"size:20;default:disconnected" json:"state"`
	GrantedScopeVersion int             `gorm:"default:0" json:"granted_scope_version"`

	// TrackingID is the anonymous identity used for usage telemetry.
	TrackingID string `gorm:"size:64" json:"tracking_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ConnectionSettings) TableName() string {
	return "connection_settings"
}

// SyncStatus is the persisted singleton row recording the outcome of the
// most recent sync. LastError is surfaced to the host app for optional
// display; sync failures are otherwise silent.
type SyncStatus struct {
	ID             string     `gorm:"primaryKey;size:16" json:"id"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastAutoSyncAt *time.Time `json:"last_auto_sync_at,omitempty"`
	LastError      string     `gorm:"size:1000" json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SyncStatus) TableName() string {
	return "sync_status"
}

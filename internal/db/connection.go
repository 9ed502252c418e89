package db

import (
	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/stridefit/stride/internal/models"
)

// GetConnectionSettings retrieves the persisted connection state and scope
// version. Returns defaults when the row is missing.
func (db *DB) GetConnectionSettings() (*models.ConnectionSettings, error) {
	var settings models.ConnectionSettings
	err := db.Where("id = ?", "default").First(&settings).Error
	if err != nil {
		return &models.ConnectionSettings{
			ID:    "default",
			State: models.StateDisconnected,
		}, nil
	}
	return &settings, nil
}

// SetConnectionState persists a connection state transition.
func (db *DB) SetConnectionState(state models.ConnectionState) error {
	settings := models.ConnectionSettings{
		ID:    "default",
		State: state,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&settings).Error
}

// GetOrCreateTrackingID returns the persistent anonymous tracking ID,
// creating one if it doesn't exist. On any error, it falls back to a
// per-session ID.
func (db *DB) GetOrCreateTrackingID() string {
	settings, err := db.GetConnectionSettings()
	if err != nil {
		return uuid.New().String()
	}
	if settings.TrackingID != "" {
		return settings.TrackingID
	}

	trackingID := uuid.New().String()
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tracking_id", "updated_at"}),
	}).Create(&models.ConnectionSettings{ID: "default", TrackingID: trackingID}).Error
	if err != nil {
		// Even if the save fails, keep the generated ID for this session.
		return trackingID
	}
	return trackingID
}

// SetGrantedScopeVersion records the scope version the user last granted.
func (db *DB) SetGrantedScopeVersion(version int) error {
	settings := models.ConnectionSettings{
		ID:                  "default",
		GrantedScopeVersion: version,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"granted_scope_version", "updated_at"}),
	}).Create(&settings).Error
}

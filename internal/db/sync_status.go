package db

import (
	"time"

	"gorm.io/gorm/clause"

	"github.com/stridefit/stride/internal/models"
)

// GetSyncStatus retrieves the most recent sync outcome.
func (db *DB) GetSyncStatus() (*models.SyncStatus, error) {
	var status models.SyncStatus
	err := db.Where("id = ?", "default").First(&status).Error
	if err != nil {
		return &models.SyncStatus{ID: "default"}, nil
	}
	return &status, nil
}

// RecordSyncSuccess stamps the last successful sync and clears the error.
func (db *DB) RecordSyncSuccess(at time.Time) error {
	status := models.SyncStatus{
		ID:         "default",
		LastSyncAt: &at,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_sync_at": at,
			"last_error":   "",
			"updated_at":   time.Now(),
		}),
	}).Create(&status).Error
}

// RecordAutoSync stamps the last auto-sync attempt time.
func (db *DB) RecordAutoSync(at time.Time) error {
	status := models.SyncStatus{
		ID:             "default",
		LastAutoSyncAt: &at,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_auto_sync_at", "updated_at"}),
	}).Create(&status).Error
}

// RecordSyncError stores the failure for optional host display.
func (db *DB) RecordSyncError(message string) error {
	status := models.SyncStatus{
		ID:        "default",
		LastError: message,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_error", "updated_at"}),
	}).Create(&status).Error
}

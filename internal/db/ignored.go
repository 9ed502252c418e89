package db

import (
	"gorm.io/gorm/clause"

	"github.com/stridefit/stride/internal/models"
)

// AddIgnoredWorkout permanently marks an external workout id as discarded
// by the user. Re-adding an already-ignored id is a no-op.
func (db *DB) AddIgnoredWorkout(externalID string) error {
	ignored := models.IgnoredWorkout{ExternalID: externalID}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&ignored).Error
}

// IsWorkoutIgnored reports whether an external workout id was discarded.
func (db *DB) IsWorkoutIgnored(externalID string) (bool, error) {
	var count int64
	err := db.Model(&models.IgnoredWorkout{}).
		Where("external_id = ?", externalID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

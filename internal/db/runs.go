package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stridefit/stride/internal/models"
)

// CreateRun inserts a new run.
func (db *DB) CreateRun(run *models.Run) error {
	return db.Create(run).Error
}

// UpdateRun saves all fields of an existing run.
func (db *DB) UpdateRun(run *models.Run) error {
	return db.Save(run).Error
}

// DeleteRun removes a run and, via the foreign key, its enrichment.
func (db *DB) DeleteRun(id string) error {
	return db.Delete(&models.Run{}, "id = ?", id).Error
}

// FindRunByExternalID returns the run imported from the given platform
// workout, or nil when none exists.
func (db *DB) FindRunByExternalID(externalID string) (*models.Run, error) {
	var run models.Run
	err := db.First(&run, "external_id = ?", externalID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// GetRun returns a run by local id with its enrichment preloaded, or nil
// when none exists.
func (db *DB) GetRun(id string) (*models.Run, error) {
	var run models.Run
	err := db.Preload("Enrichment").First(&run, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs newest-first, up to limit (0 = all).
func (db *DB) ListRuns(limit int) ([]models.Run, error) {
	var runs []models.Run
	q := db.Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// CountRuns returns the number of stored runs.
func (db *DB) CountRuns() (int64, error) {
	var count int64
	err := db.Model(&models.Run{}).Count(&count).Error
	return count, err
}

// SaveEnrichment upserts a run's enrichment sub-record.
func (db *DB) SaveEnrichment(e *models.Enrichment) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "run_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"route", "route_hr", "splits", "dynamics", "updated_at",
		}),
	}).Create(e).Error
}

package db

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stridefit/stride/internal/models"
)

// GetOrCreateAnchor returns the anchor for a stream, creating an empty one
// on first sync of that stream.
func (db *DB) GetOrCreateAnchor(streamID string) (*models.Anchor, error) {
	anchor := models.Anchor{StreamID: streamID}
	if err := db.Where("stream_id = ?", streamID).FirstOrCreate(&anchor).Error; err != nil {
		return nil, err
	}
	return &anchor, nil
}

// UpdateAnchor stores a new cursor for a stream and stamps the sync time.
// Last write wins; there are no merge semantics.
func (db *DB) UpdateAnchor(streamID string, cursor []byte) error {
	anchor := models.Anchor{
		StreamID:   streamID,
		Cursor:     cursor,
		LastSyncAt: time.Now(),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stream_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cursor", "last_sync_at", "updated_at"}),
	}).Create(&anchor).Error
}

// ResetAnchor deletes a stream's anchor, forcing a full re-fetch on the
// next sync. Safe to crash after: replaying the full fetch only costs time,
// never data, because reconciliation is idempotent.
func (db *DB) ResetAnchor(streamID string) error {
	return db.Delete(&models.Anchor{}, "stream_id = ?", streamID).Error
}

// GetAnchor returns a stream's anchor, or nil when none exists.
func (db *DB) GetAnchor(streamID string) (*models.Anchor, error) {
	var anchor models.Anchor
	err := db.First(&anchor, "stream_id = ?", streamID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &anchor, nil
}

// ListAnchors returns all stream anchors.
func (db *DB) ListAnchors() ([]models.Anchor, error) {
	var anchors []models.Anchor
	if err := db.Order("stream_id").Find(&anchors).Error; err != nil {
		return nil, err
	}
	return anchors, nil
}

package db

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stridefit/stride/internal/models"
)

// EnqueueRouteTask inserts a task for a workout awaiting enrichment.
// Idempotent: an already-queued external id is left untouched.
func (db *DB) EnqueueRouteTask(externalID string, workoutDate time.Time, priority int) error {
	task := models.RouteTask{
		ExternalID:  externalID,
		WorkoutDate: workoutDate,
		Priority:    priority,
		Status:      models.TaskPending,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&task).Error
}

// GetRouteTask returns a task by external id, or nil when none exists.
func (db *DB) GetRouteTask(externalID string) (*models.RouteTask, error) {
	var task models.RouteTask
	err := db.First(&task, "external_id = ?", externalID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// PendingRouteTasks returns pending tasks ordered high-priority first, then
// newest workout first within a priority tier. limit 0 means all.
func (db *DB) PendingRouteTasks(limit int) ([]models.RouteTask, error) {
	var tasks []models.RouteTask
	q := db.Where("status = ?", models.TaskPending).
		Order("priority ASC").
		Order("workout_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// StaleFetchingTasks returns tasks stuck in the fetching state whose last
// attempt is older than the threshold. These are leftovers of a process
// that died mid-fetch.
func (db *DB) StaleFetchingTasks(threshold time.Duration) ([]models.RouteTask, error) {
	cutoff := time.Now().Add(-threshold)
	var tasks []models.RouteTask
	err := db.Where("status = ? AND (last_attempt_at IS NULL OR last_attempt_at < ?)",
		models.TaskFetching, cutoff).Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// MarkTaskFetching claims a task and stamps the attempt time.
func (db *DB) MarkTaskFetching(externalID string) error {
	now := time.Now()
	return db.Model(&models.RouteTask{}).
		Where("external_id = ?", externalID).
		Updates(map[string]interface{}{
			"status":          models.TaskFetching,
			"last_attempt_at": now,
		}).Error
}

// MarkTaskCompleted marks a task done.
func (db *DB) MarkTaskCompleted(externalID string) error {
	return db.Model(&models.RouteTask{}).
		Where("external_id = ?", externalID).
		Update("status", models.TaskCompleted).Error
}

// MarkTaskFailed marks a task terminally failed.
func (db *DB) MarkTaskFailed(externalID string) error {
	return db.Model(&models.RouteTask{}).
		Where("external_id = ?", externalID).
		Update("status", models.TaskFailed).Error
}

// MarkTaskPending returns a task to the pending state.
func (db *DB) MarkTaskPending(externalID string) error {
	return db.Model(&models.RouteTask{}).
		Where("external_id = ?", externalID).
		Update("status", models.TaskPending).Error
}

// RecordTaskAttempt increments a task's attempt count and requeues or fails
// it depending on the retry budget. Returns the updated task.
func (db *DB) RecordTaskAttempt(externalID string) (*models.RouteTask, error) {
	var task models.RouteTask
	err := db.Transaction(func(tx *DB) error {
		if err := tx.First(&task, "external_id = ?", externalID).Error; err != nil {
			return err
		}
		task.AttemptCount++
		if task.AttemptCount >= models.MaxRouteAttempts {
			task.Status = models.TaskFailed
		} else {
			task.Status = models.TaskPending
		}
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ResetTaskForRetry re-arms a failed task for a user-triggered retry.
func (db *DB) ResetTaskForRetry(externalID string) error {
	return db.Model(&models.RouteTask{}).
		Where("external_id = ?", externalID).
		Updates(map[string]interface{}{
			"status":        models.TaskPending,
			"attempt_count": 0,
		}).Error
}

// CountRouteTasks returns a per-status breakdown of the queue.
func (db *DB) CountRouteTasks() (*models.RouteTaskStats, error) {
	var stats models.RouteTaskStats
	counts := []struct {
		status models.TaskStatus
		dest   *int64
	}{
		{models.TaskPending, &stats.Pending},
		{models.TaskFetching, &stats.Fetching},
		{models.TaskCompleted, &stats.Completed},
		{models.TaskFailed, &stats.Failed},
	}
	for _, c := range counts {
		if err := db.Model(&models.RouteTask{}).Where("status = ?", c.status).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

// ListRouteTasks returns all tasks, pending first, for status display.
func (db *DB) ListRouteTasks() ([]models.RouteTask, error) {
	var tasks []models.RouteTask
	err := db.Order("status").Order("priority ASC").Order("workout_date DESC").Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"catalog-sync-service/internal/models"
)

// RunRepository handles database operations for sync runs
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun creates a new sync run
func (r *RunRepository) CreateRun(ctx context.Context, run *models.SyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// GetRunByID retrieves a sync run by ID
func (r *RunRepository) GetRunByID(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	var run models.SyncRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns retrieves recent sync runs, newest first
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.SyncRun
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// GetRunningRuns retrieves runs still in progress
func (r *RunRepository) GetRunningRuns(ctx context.Context) ([]models.SyncRun, error) {
	var runs []models.SyncRun
	err := r.db.WithContext(ctx).
		Where("status = ?", models.RunStatusRunning).
		Find(&runs).Error
	return runs, err
}

// UpdateProgress writes the current progress total onto the run row
func (r *RunRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress":   progress,
			"updated_at": time.Now(),
		}).Error
}

// FinalizeRun persists the terminal state of a run
func (r *RunRepository) FinalizeRun(ctx context.Context, run *models.SyncRun) error {
	now := time.Now()
	run.CompletedAt = &now
	return r.db.WithContext(ctx).Save(run).Error
}

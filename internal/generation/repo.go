package generation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// Repository manages persistence for generation tasks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, task *models.GenerationTask) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error)
	FindByProject(ctx context.Context, projectID uuid.UUID) (*models.GenerationTask, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, providerTaskID string, startedAt time.Time) error
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a generation task repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, task *models.GenerationTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	var task models.GenerationTask
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repository) FindByProject(ctx context.Context, projectID uuid.UUID) (*models.GenerationTask, error) {
	var task models.GenerationTask
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repository) MarkProcessing(ctx context.Context, id uuid.UUID, providerTaskID string, startedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GenerationTask{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           enums.TaskStatusProcessing,
			"provider_task_id": providerTaskID,
			"started_at":       startedAt,
		}).Error
}

func (r *repository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return r.db.WithContext(ctx).
		Model(&models.GenerationTask{}).
		Where("id = ?", id).
		Update("progress", progress).Error
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GenerationTask{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.TaskStatusCompleted,
			"progress":     100,
			"completed_at": at,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GenerationTask{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.TaskStatusFailed,
			"error_message": errorMessage,
			"completed_at":  at,
		}).Error
}

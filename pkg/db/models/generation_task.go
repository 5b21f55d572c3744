package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// GenerationTask is the worker-side unit of work for a project. One project
// has at most one active task; ProviderTaskID ties it to the upstream model.
type GenerationTask struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID      uuid.UUID        `gorm:"column:project_id;type:uuid;not null;index"`
	UserID         uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	Status         enums.TaskStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ProviderTaskID *string          `gorm:"column:provider_task_id"`
	Progress       int              `gorm:"column:progress;not null;default:0"`
	ErrorMessage   *string          `gorm:"column:error_message"`
	StartedAt      *time.Time       `gorm:"column:started_at"`
	CompletedAt    *time.Time       `gorm:"column:completed_at"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

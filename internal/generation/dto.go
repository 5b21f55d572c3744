package generation

import (
	"time"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// TaskDTO is the transport shape of a generation task.
type TaskDTO struct {
	ID             uuid.UUID        `json:"id"`
	ProjectID      uuid.UUID        `json:"project_id"`
	Status         enums.TaskStatus `json:"status"`
	ProviderTaskID *string          `json:"provider_task_id,omitempty"`
	Progress       int              `json:"progress"`
	ErrorMessage   *string          `json:"error_message,omitempty"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func FromTaskModel(task *models.GenerationTask) *TaskDTO {
	if task == nil {
		return nil
	}
	return &TaskDTO{
		ID:             task.ID,
		ProjectID:      task.ProjectID,
		Status:         task.Status,
		ProviderTaskID: task.ProviderTaskID,
		Progress:       task.Progress,
		ErrorMessage:   task.ErrorMessage,
		StartedAt:      task.StartedAt,
		CompletedAt:    task.CompletedAt,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
}

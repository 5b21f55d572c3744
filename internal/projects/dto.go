package projects

import (
	"time"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// ProjectDTO is the transport shape of a video project.
type ProjectDTO struct {
	ID              uuid.UUID            `json:"id"`
	Title           string               `json:"title"`
	Description     *string              `json:"description,omitempty"`
	Mode            enums.GenerationMode `json:"mode"`
	DurationSeconds int                  `json:"duration_seconds"`
	Status          enums.ProjectStatus  `json:"status"`
	CreditsUsed     int                  `json:"credits_used"`
	VideoURL        *string              `json:"video_url,omitempty"`
	ErrorMessage    *string              `json:"error_message,omitempty"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func FromModel(p *models.Project) *ProjectDTO {
	if p == nil {
		return nil
	}
	return &ProjectDTO{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		Mode:            p.Mode,
		DurationSeconds: p.DurationSeconds,
		Status:          p.Status,
		CreditsUsed:     p.CreditsUsed,
		VideoURL:        p.VideoURL,
		ErrorMessage:    p.ErrorMessage,
		CompletedAt:     p.CompletedAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func FromModels(ps []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, 0, len(ps))
	for i := range ps {
		out = append(out, *FromModel(&ps[i]))
	}
	return out
}

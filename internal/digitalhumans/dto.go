package digitalhumans

import (
	"time"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// DigitalHumanDTO is the transport shape of a digital human presenter.
type DigitalHumanDTO struct {
	ID               uuid.UUID              `json:"id"`
	UserID           uuid.UUID              `json:"user_id"`
	Name             string                 `json:"name"`
	AvatarURL        *string                `json:"avatar_url,omitempty"`
	Kind             enums.DigitalHumanKind `json:"digital_human_type"`
	VoiceConfig      map[string]any         `json:"voice_config,omitempty"`
	AppearanceConfig map[string]any         `json:"appearance_config,omitempty"`
	IsPublic         bool                   `json:"is_public"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

func FromModel(d *models.DigitalHuman) *DigitalHumanDTO {
	if d == nil {
		return nil
	}
	return &DigitalHumanDTO{
		ID:               d.ID,
		UserID:           d.UserID,
		Name:             d.Name,
		AvatarURL:        d.AvatarURL,
		Kind:             d.Kind,
		VoiceConfig:      d.VoiceConfig,
		AppearanceConfig: d.AppearanceConfig,
		IsPublic:         d.IsPublic,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func FromModels(ds []models.DigitalHuman) []DigitalHumanDTO {
	out := make([]DigitalHumanDTO, 0, len(ds))
	for i := range ds {
		out = append(out, *FromModel(&ds[i]))
	}
	return out
}

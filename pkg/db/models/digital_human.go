package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// DigitalHuman is a reusable presenter identity. Voice and appearance
// settings are free-form provider configuration and are stored as-is.
type DigitalHuman struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Name             string                 `gorm:"column:name;not null"`
	AvatarURL        *string                `gorm:"column:avatar_url"`
	Kind             enums.DigitalHumanKind `gorm:"column:digital_human_type;type:text;not null"`
	VoiceConfig      map[string]any         `gorm:"column:voice_config;type:jsonb;serializer:json"`
	AppearanceConfig map[string]any         `gorm:"column:appearance_config;type:jsonb;serializer:json"`
	IsPublic         bool                   `gorm:"column:is_public;not null;default:false"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// VoiceType returns the configured voice, defaulting to female when the
// config does not name one.
func (d *DigitalHuman) VoiceType() string {
	if v, ok := d.VoiceConfig["voice_type"].(string); ok && v != "" {
		return v
	}
	return "female"
}

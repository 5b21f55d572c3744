package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// Project is one user-initiated video generation request. CreditsUsed is
// fixed at creation time and is the amount refunded if generation fails.
type Project struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Title           string               `gorm:"column:title;not null"`
	Description     *string              `gorm:"column:description"`
	Mode            enums.GenerationMode `gorm:"column:mode;type:text;not null"`
	DurationSeconds int                  `gorm:"column:duration_seconds;not null"`
	Status          enums.ProjectStatus  `gorm:"column:status;type:text;not null;default:'draft'"`
	CreditsUsed     int                  `gorm:"column:credits_used;not null;default:0"`
	DigitalHumanID  *uuid.UUID           `gorm:"column:digital_human_id;type:uuid"`
	VideoURL        *string              `gorm:"column:video_url"`
	ErrorMessage    *string              `gorm:"column:error_message"`
	CompletedAt     *time.Time           `gorm:"column:completed_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// CreditTransaction is an append-only record of a single balance change.
// Amount is signed: positive for purchase/refund, negative for deduct.
// BalanceAfter snapshots the denormalized balance at write time.
type CreditTransaction struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Amount           int                   `gorm:"column:amount;not null"`
	Type             enums.TransactionType `gorm:"column:type;type:text;not null"`
	Description      string                `gorm:"column:description;not null"`
	RelatedProjectID *uuid.UUID            `gorm:"column:related_project_id;type:uuid"`
	BalanceAfter     int                   `gorm:"column:balance_after;not null"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}

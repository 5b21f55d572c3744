package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID               uuid.UUID              `json:"id"`
	Email            string                 `json:"email"`
	DisplayName      string                 `json:"display_name"`
	Credits          int                    `json:"credits"`
	SubscriptionTier enums.SubscriptionTier `json:"subscription_tier"`
	IsActive         bool                   `json:"is_active"`
	LastLoginAt      *time.Time             `json:"last_login_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Credits      int
	Tier         enums.SubscriptionTier
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:               u.ID,
		Email:            u.Email,
		DisplayName:      u.DisplayName,
		Credits:          u.Credits,
		SubscriptionTier: u.SubscriptionTier,
		IsActive:         u.IsActive,
		LastLoginAt:      u.LastLoginAt,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	tier := c.Tier
	if tier == "" {
		tier = enums.SubscriptionTierFree
	}

	return &models.User{
		Email:            c.Email,
		PasswordHash:     c.PasswordHash,
		DisplayName:      c.DisplayName,
		Credits:          c.Credits,
		SubscriptionTier: tier,
		IsActive:         isActive,
	}
}

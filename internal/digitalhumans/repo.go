package digitalhumans

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimagehq/aimage-backend/pkg/db/models"
)

// Repository manages persistence for digital human presenters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, human *models.DigitalHuman) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DigitalHuman, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.DigitalHuman, error)
	Save(ctx context.Context, human *models.DigitalHuman) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a digital humans repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, human *models.DigitalHuman) error {
	return r.db.WithContext(ctx).Create(human).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DigitalHuman, error) {
	var human models.DigitalHuman
	if err := r.db.WithContext(ctx).First(&human, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &human, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.DigitalHuman, error) {
	var humans []models.DigitalHuman
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&humans).Error; err != nil {
		return nil, err
	}
	return humans, nil
}

func (r *repository) Save(ctx context.Context, human *models.DigitalHuman) error {
	return r.db.WithContext(ctx).Save(human).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.DigitalHuman{}, "id = ?", id).Error
}

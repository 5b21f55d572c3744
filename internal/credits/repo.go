package credits

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimagehq/aimage-backend/pkg/db/models"
)

// Repository manages persistence for credit balances and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	DeductBalance(ctx context.Context, userID uuid.UUID, amount int) (int, bool, error)
	AddBalance(ctx context.Context, userID uuid.UUID, amount int) (int, bool, error)
	CreateTransaction(ctx context.Context, record *models.CreditTransaction) error
	ListTransactionsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a credits repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Select("credits").
		First(&user, "id = ?", userID).Error; err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// DeductBalance performs a single conditional update so concurrent deducts
// cannot drive the balance negative. The updated balance comes back from the
// same statement. Applied is false when the guard rejects the update, either
// because the balance is short or the user is missing.
func (r *repository) DeductBalance(ctx context.Context, userID uuid.UUID, amount int) (int, bool, error) {
	var user models.User
	res := r.db.WithContext(ctx).
		Model(&user).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "credits"}}}).
		Where("id = ? AND credits >= ?", userID, amount).
		UpdateColumn("credits", gorm.Expr("credits - ?", amount))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return user.Credits, true, nil
}

func (r *repository) AddBalance(ctx context.Context, userID uuid.UUID, amount int) (int, bool, error) {
	var user models.User
	res := r.db.WithContext(ctx).
		Model(&user).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "credits"}}}).
		Where("id = ?", userID).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return user.Credits, true, nil
}

func (r *repository) CreateTransaction(ctx context.Context, record *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListTransactionsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error) {
	var records []models.CreditTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

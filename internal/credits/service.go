package credits

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	apperrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/logger"
	"github.com/aimagehq/aimage-backend/pkg/metrics"
)

// Service defines the credit ledger operations.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	CheckAvailable(ctx context.Context, userID uuid.UUID, required int) (bool, int)
	Deduct(ctx context.Context, input MutationInput) (*MutationResult, error)
	Refund(ctx context.Context, input MutationInput) (*MutationResult, error)
	Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error)
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.CreditOpMetrics
}

// MutationInput carries one balance change request.
type MutationInput struct {
	UserID           uuid.UUID
	Amount           int
	Description      string
	RelatedProjectID *uuid.UUID
}

// MutationResult reports the balance after a successful change.
type MutationResult struct {
	NewBalance int `json:"new_balance"`
}

// PurchaseInput identifies the bundle a user is buying.
type PurchaseInput struct {
	UserID        uuid.UUID
	PackageID     string
	PaymentMethod enums.PaymentMethod
}

// PurchaseResult reports the applied bundle. TransactionID is nil when the
// history write was dropped; the credits are applied either way.
type PurchaseResult struct {
	PackageID     string          `json:"package_id"`
	CreditsAdded  int             `json:"credits_added"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	NewBalance    int             `json:"new_balance"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
}

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 100
)

// NewService wires a credits service with the provided repository.
func NewService(repo Repository, logg *logger.Logger, opMetrics *metrics.CreditOpMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("credits repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, metrics: opMetrics}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "reading credit balance")
	}
	return balance, nil
}

// CheckAvailable reports whether the account can cover the required amount.
// An unreadable account reads as empty rather than failing the caller.
func (s *service) CheckAvailable(ctx context.Context, userID uuid.UUID, required int) (bool, int) {
	if userID == uuid.Nil {
		return false, 0
	}
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "credit balance unreadable, treating as empty")
		return false, 0
	}
	return balance >= required, balance
}

// Deduct removes credits through a guarded update. The history record is
// written after the balance change; if that write fails the deduction stands
// and the gap is only logged.
func (s *service) Deduct(ctx context.Context, input MutationInput) (*MutationResult, error) {
	start := time.Now()
	result, err := s.deduct(ctx, input)
	s.observe("deduct", start, err)
	if err == nil {
		s.metrics.AddAmount("deduct", input.Amount)
	}
	return result, err
}

func (s *service) deduct(ctx context.Context, input MutationInput) (*MutationResult, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}

	balance, ok, err := s.repo.DeductBalance(ctx, input.UserID, input.Amount)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "deducting credits")
	}
	if !ok {
		_, current := s.CheckAvailable(ctx, input.UserID, input.Amount)
		return nil, apperrors.New(apperrors.CodeStateConflict, "insufficient credits").
			WithDetails(map[string]int{"required": input.Amount, "balance": current})
	}

	s.recordTransaction(ctx, &models.CreditTransaction{
		UserID:           input.UserID,
		Amount:           -input.Amount,
		Type:             enums.TransactionTypeDeduct,
		Description:      input.Description,
		RelatedProjectID: input.RelatedProjectID,
		BalanceAfter:     balance,
	})

	return &MutationResult{NewBalance: balance}, nil
}

// Refund adds credits back without a balance guard.
func (s *service) Refund(ctx context.Context, input MutationInput) (*MutationResult, error) {
	start := time.Now()
	result, err := s.refund(ctx, input)
	s.observe("refund", start, err)
	if err == nil {
		s.metrics.AddAmount("refund", input.Amount)
	}
	return result, err
}

func (s *service) refund(ctx context.Context, input MutationInput) (*MutationResult, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}

	balance, ok, err := s.repo.AddBalance(ctx, input.UserID, input.Amount)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "refunding credits")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}

	s.recordTransaction(ctx, &models.CreditTransaction{
		UserID:           input.UserID,
		Amount:           input.Amount,
		Type:             enums.TransactionTypeRefund,
		Description:      input.Description,
		RelatedProjectID: input.RelatedProjectID,
		BalanceAfter:     balance,
	})

	return &MutationResult{NewBalance: balance}, nil
}

// Purchase credits the account with the bundle total (credits plus bonus).
func (s *service) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	start := time.Now()
	result, err := s.purchase(ctx, input)
	s.observe("purchase", start, err)
	if err == nil {
		s.metrics.AddAmount("purchase", result.CreditsAdded)
	}
	return result, err
}

func (s *service) purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	if input.UserID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	pkg, found := PackageByID(input.PackageID)
	if !found {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("unknown credit package %q", input.PackageID))
	}
	if input.PaymentMethod != "" && !input.PaymentMethod.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}

	total := pkg.Total()
	balance, ok, err := s.repo.AddBalance(ctx, input.UserID, total)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "crediting purchase")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}

	description := fmt.Sprintf("purchase %s package", pkg.ID)
	if pkg.Bonus > 0 {
		description = fmt.Sprintf("purchase %s package (+%d bonus)", pkg.ID, pkg.Bonus)
	}
	txID := s.recordTransaction(ctx, &models.CreditTransaction{
		UserID:       input.UserID,
		Amount:       total,
		Type:         enums.TransactionTypePurchase,
		Description:  description,
		BalanceAfter: balance,
	})

	return &PurchaseResult{
		PackageID:     pkg.ID,
		CreditsAdded:  total,
		AmountPaid:    pkg.Price,
		NewBalance:    balance,
		TransactionID: txID,
	}, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error) {
	if userID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.repo.ListTransactionsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing credit transactions")
	}
	return records, nil
}

// recordTransaction writes the history row. Failure here never unwinds the
// balance change that already happened; the mismatch is logged instead.
func (s *service) recordTransaction(ctx context.Context, record *models.CreditTransaction) *uuid.UUID {
	if err := s.repo.CreateTransaction(ctx, record); err != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"user_id": record.UserID.String(),
			"type":    string(record.Type),
			"amount":  record.Amount,
		})
		s.logg.Error(ctx, "recording credit transaction failed", err)
		return nil
	}
	if record.ID == uuid.Nil {
		return nil
	}
	id := record.ID
	return &id
}

func (s *service) observe(op string, start time.Time, err error) {
	s.metrics.ObserveDuration(op, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(op)
		return
	}
	s.metrics.IncSuccess(op)
}

func validateMutation(input MutationInput) error {
	if input.UserID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if input.Amount <= 0 {
		return apperrors.New(apperrors.CodeValidation, "amount must be positive")
	}
	if input.Description == "" {
		return apperrors.New(apperrors.CodeValidation, "description is required")
	}
	return nil
}

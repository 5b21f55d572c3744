package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimagehq/aimage-backend/internal/credits"
	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	apperrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/logger"
)

// CreditLedger is the slice of the credits service that projects consume.
type CreditLedger interface {
	Deduct(ctx context.Context, input credits.MutationInput) (*credits.MutationResult, error)
}

// Service defines project lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateProjectInput) (*models.Project, error)
	Get(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Project, error)
	Update(ctx context.Context, userID, projectID uuid.UUID, input UpdateProjectInput) (*models.Project, error)
	MarkProcessing(ctx context.Context, projectID uuid.UUID) error
	Complete(ctx context.Context, projectID uuid.UUID, videoURL string) error
	Fail(ctx context.Context, projectID uuid.UUID, errorMessage string) error
}

type service struct {
	repo   Repository
	ledger CreditLedger
	logg   *logger.Logger
}

// CreateProjectInput captures a new generation request.
type CreateProjectInput struct {
	UserID          uuid.UUID
	Title           string
	Description     *string
	Mode            enums.GenerationMode
	DurationSeconds int
}

// UpdateProjectInput carries the editable fields; nil means leave unchanged.
type UpdateProjectInput struct {
	Title       *string
	Description *string
}

const (
	defaultProjectLimit = 20
	maxProjectLimit     = 100
)

// NewService wires a projects service with its repository and the credit ledger.
func NewService(repo Repository, ledger CreditLedger, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("projects repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("credit ledger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, ledger: ledger, logg: logg}, nil
}

// Create persists the project first, then deducts its cost referencing the
// new row. A rejected deduction leaves the project behind in failed state so
// the attempt stays auditable.
func (s *service) Create(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	cost := credits.CreditsNeeded(input.Mode, input.DurationSeconds)
	project := &models.Project{
		UserID:          input.UserID,
		Title:           input.Title,
		Description:     input.Description,
		Mode:            input.Mode,
		DurationSeconds: input.DurationSeconds,
		Status:          enums.ProjectStatusDraft,
		CreditsUsed:     cost,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating project")
	}

	ctx = s.logg.WithProjectID(ctx, project.ID.String())
	description := fmt.Sprintf("video generation (%s, %ds)", input.Mode, input.DurationSeconds)
	if _, err := s.ledger.Deduct(ctx, credits.MutationInput{
		UserID:           input.UserID,
		Amount:           cost,
		Description:      description,
		RelatedProjectID: &project.ID,
	}); err != nil {
		if failErr := s.repo.SetFailed(ctx, project.ID, "credit deduction rejected"); failErr != nil {
			s.logg.Error(ctx, "marking project failed after rejected deduction", failErr)
		}
		return nil, err
	}

	return project, nil
}

func (s *service) Get(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	if userID == uuid.Nil || projectID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id and project id are required")
	}
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "project not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading project")
	}
	if project.UserID != userID {
		return nil, apperrors.New(apperrors.CodeNotFound, "project not found")
	}
	return project, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Project, error) {
	if userID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if limit <= 0 {
		limit = defaultProjectLimit
	}
	if limit > maxProjectLimit {
		limit = maxProjectLimit
	}
	if offset < 0 {
		offset = 0
	}
	projects, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing projects")
	}
	return projects, nil
}

// Update edits title and description on projects the caller owns. Other
// columns only move through the generation lifecycle.
func (s *service) Update(ctx context.Context, userID, projectID uuid.UUID, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Title != nil {
		if *input.Title == "" {
			return nil, apperrors.New(apperrors.CodeValidation, "title cannot be empty")
		}
		fields["title"] = *input.Title
		project.Title = *input.Title
	}
	if input.Description != nil {
		fields["description"] = *input.Description
		project.Description = input.Description
	}
	if len(fields) == 0 {
		return project, nil
	}

	if err := s.repo.UpdateDetails(ctx, projectID, fields); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "updating project")
	}
	return project, nil
}

func (s *service) MarkProcessing(ctx context.Context, projectID uuid.UUID) error {
	if projectID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "project id is required")
	}
	if err := s.repo.UpdateStatus(ctx, projectID, enums.ProjectStatusProcessing); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "marking project processing")
	}
	return nil
}

func (s *service) Complete(ctx context.Context, projectID uuid.UUID, videoURL string) error {
	if projectID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "project id is required")
	}
	if videoURL == "" {
		return apperrors.New(apperrors.CodeValidation, "video url is required")
	}
	if err := s.repo.SetCompleted(ctx, projectID, videoURL, time.Now().UTC()); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "completing project")
	}
	return nil
}

func (s *service) Fail(ctx context.Context, projectID uuid.UUID, errorMessage string) error {
	if projectID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "project id is required")
	}
	if errorMessage == "" {
		errorMessage = "generation failed"
	}
	if err := s.repo.SetFailed(ctx, projectID, errorMessage); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failing project")
	}
	return nil
}

func validateCreate(input CreateProjectInput) error {
	if input.UserID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if input.Title == "" {
		return apperrors.New(apperrors.CodeValidation, "title is required")
	}
	if !input.Mode.IsValid() {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid generation mode %q", input.Mode))
	}
	if input.DurationSeconds <= 0 {
		return apperrors.New(apperrors.CodeValidation, "duration must be positive")
	}
	return nil
}

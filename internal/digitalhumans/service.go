package digitalhumans

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimagehq/aimage-backend/internal/credits"
	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	apperrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/logger"
)

const (
	maxNameLength = 100
	maxTextLength = 1000

	defaultVideoDuration = 10
	minVideoDuration     = 5
	maxVideoDuration     = 60

	titlePreviewRunes = 30
)

// CreditLedger is the slice of the credits service the video flow charges
// through.
type CreditLedger interface {
	Deduct(ctx context.Context, input credits.MutationInput) (*credits.MutationResult, error)
}

// ProjectStore persists the project row a digital human video runs under.
type ProjectStore interface {
	Create(ctx context.Context, project *models.Project) error
	SetFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// Dispatcher queues a charged project for the generation worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, project *models.Project) (*models.GenerationTask, error)
}

// Service defines digital human lifecycle and video operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.DigitalHuman, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.DigitalHuman, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.DigitalHuman, error)
	Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*models.DigitalHuman, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	GenerateVideo(ctx context.Context, input GenerateVideoInput) (*GenerateVideoResult, error)
}

// CreateInput captures a new presenter.
type CreateInput struct {
	UserID           uuid.UUID
	Name             string
	AvatarURL        *string
	Kind             enums.DigitalHumanKind
	VoiceConfig      map[string]any
	AppearanceConfig map[string]any
}

// UpdateInput replaces the editable presenter fields.
type UpdateInput struct {
	Name             string
	AvatarURL        *string
	Kind             enums.DigitalHumanKind
	VoiceConfig      map[string]any
	AppearanceConfig map[string]any
}

// GenerateVideoInput asks a presenter to speak the given text.
type GenerateVideoInput struct {
	UserID          uuid.UUID
	DigitalHumanID  uuid.UUID
	Text            string
	DurationSeconds int
}

// GenerateVideoResult reports the accepted job.
type GenerateVideoResult struct {
	Project *models.Project
	Task    *models.GenerationTask
}

type service struct {
	repo       Repository
	projects   ProjectStore
	ledger     CreditLedger
	dispatcher Dispatcher
	logg       *logger.Logger
}

// NewService wires a digital humans service.
func NewService(repo Repository, projects ProjectStore, ledger CreditLedger, dispatcher Dispatcher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("digital humans repository required")
	}
	if projects == nil {
		return nil, fmt.Errorf("project store required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("credit ledger required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, projects: projects, ledger: ledger, dispatcher: dispatcher, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.DigitalHuman, error) {
	if err := validatePresenter(input.UserID, input.Name, input.Kind); err != nil {
		return nil, err
	}

	human := &models.DigitalHuman{
		UserID:           input.UserID,
		Name:             input.Name,
		AvatarURL:        input.AvatarURL,
		Kind:             input.Kind,
		VoiceConfig:      orEmpty(input.VoiceConfig),
		AppearanceConfig: orEmpty(input.AppearanceConfig),
	}
	if err := s.repo.Create(ctx, human); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating digital human")
	}
	return human, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.DigitalHuman, error) {
	if userID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	humans, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing digital humans")
	}
	return humans, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*models.DigitalHuman, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id and digital human id are required")
	}
	return s.findOwned(ctx, userID, id)
}

// Update replaces the editable fields wholesale, mirroring the PUT surface.
func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*models.DigitalHuman, error) {
	if err := validatePresenter(userID, input.Name, input.Kind); err != nil {
		return nil, err
	}

	human, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	human.Name = input.Name
	human.AvatarURL = input.AvatarURL
	human.Kind = input.Kind
	human.VoiceConfig = orEmpty(input.VoiceConfig)
	human.AppearanceConfig = orEmpty(input.AppearanceConfig)

	if err := s.repo.Save(ctx, human); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "updating digital human")
	}
	return human, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil || id == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "user id and digital human id are required")
	}
	human, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, human.ID); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "deleting digital human")
	}
	return nil
}

// GenerateVideo charges the flat cost, records the project under the
// presenter and hands the job to the generation worker.
func (s *service) GenerateVideo(ctx context.Context, input GenerateVideoInput) (*GenerateVideoResult, error) {
	if input.UserID == uuid.Nil || input.DigitalHumanID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "user id and digital human id are required")
	}
	textLen := utf8.RuneCountInString(input.Text)
	if textLen == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "text is required")
	}
	if textLen > maxTextLength {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("text must be at most %d characters", maxTextLength))
	}
	duration := input.DurationSeconds
	if duration == 0 {
		duration = defaultVideoDuration
	}
	if duration < minVideoDuration || duration > maxVideoDuration {
		return nil, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("duration must be between %d and %d seconds", minVideoDuration, maxVideoDuration))
	}

	human, err := s.findOwned(ctx, input.UserID, input.DigitalHumanID)
	if err != nil {
		return nil, err
	}

	text := input.Text
	project := &models.Project{
		UserID:          input.UserID,
		Title:           videoTitle(human.Name, text),
		Description:     &text,
		Mode:            enums.GenerationModeDigitalHuman,
		DurationSeconds: duration,
		Status:          enums.ProjectStatusDraft,
		CreditsUsed:     credits.DigitalHumanVideoCredits,
		DigitalHumanID:  &human.ID,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating digital human project")
	}

	ctx = s.logg.WithProjectID(ctx, project.ID.String())
	if _, err := s.ledger.Deduct(ctx, credits.MutationInput{
		UserID:           input.UserID,
		Amount:           credits.DigitalHumanVideoCredits,
		Description:      fmt.Sprintf("digital human video (%s)", human.Name),
		RelatedProjectID: &project.ID,
	}); err != nil {
		if failErr := s.projects.SetFailed(ctx, project.ID, "credit deduction rejected"); failErr != nil {
			s.logg.Error(ctx, "marking project failed after rejected deduction", failErr)
		}
		return nil, err
	}

	task, err := s.dispatcher.Dispatch(ctx, project)
	if err != nil {
		return nil, err
	}
	return &GenerateVideoResult{Project: project, Task: task}, nil
}

func (s *service) findOwned(ctx context.Context, userID, id uuid.UUID) (*models.DigitalHuman, error) {
	human, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "digital human not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading digital human")
	}
	if human.UserID != userID {
		return nil, apperrors.New(apperrors.CodeNotFound, "digital human not found")
	}
	return human, nil
}

func validatePresenter(userID uuid.UUID, name string, kind enums.DigitalHumanKind) error {
	if userID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if name == "" {
		return apperrors.New(apperrors.CodeValidation, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if !kind.IsValid() {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid digital human type %q", kind))
	}
	return nil
}

func orEmpty(config map[string]any) map[string]any {
	if config == nil {
		return map[string]any{}
	}
	return config
}

func videoTitle(name, text string) string {
	preview := []rune(text)
	if len(preview) <= titlePreviewRunes {
		return fmt.Sprintf("%s - %s", name, text)
	}
	return fmt.Sprintf("%s - %s...", name, string(preview[:titlePreviewRunes]))
}

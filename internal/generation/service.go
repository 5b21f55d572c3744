package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimagehq/aimage-backend/internal/credits"
	"github.com/aimagehq/aimage-backend/internal/projects"
	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	apperrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/logger"
)

// JobMessage is the Pub/Sub payload handed to the worker.
type JobMessage struct {
	TaskID    uuid.UUID `json:"task_id"`
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// JobPublisher pushes generation jobs onto the queue.
type JobPublisher interface {
	PublishGenerationJob(ctx context.Context, job JobMessage) error
}

// CreditRefunder is the slice of the credits service the dispatcher needs to
// unwind a charge when a job never reaches the queue.
type CreditRefunder interface {
	Refund(ctx context.Context, input credits.MutationInput) (*credits.MutationResult, error)
}

// Service accepts generation requests and dispatches them to the worker.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error)
	// Dispatch queues a job for an already-persisted, already-charged
	// project. A dispatch failure refunds the charge and fails the project.
	Dispatch(ctx context.Context, project *models.Project) (*models.GenerationTask, error)
	TaskForProject(ctx context.Context, userID, projectID uuid.UUID) (*models.GenerationTask, error)
}

// GenerateInput mirrors the projects create input; pricing happens inside.
type GenerateInput struct {
	UserID          uuid.UUID
	Title           string
	Description     *string
	Mode            enums.GenerationMode
	DurationSeconds int
}

// GenerateResult reports the accepted job.
type GenerateResult struct {
	Project *models.Project
	Task    *models.GenerationTask
}

type service struct {
	projects  projects.Service
	tasks     Repository
	publisher JobPublisher
	refunder  CreditRefunder
	logg      *logger.Logger
}

// NewService wires the generation dispatcher.
func NewService(projectSvc projects.Service, tasks Repository, publisher JobPublisher, refunder CreditRefunder, logg *logger.Logger) (Service, error) {
	if projectSvc == nil {
		return nil, fmt.Errorf("projects service required")
	}
	if tasks == nil {
		return nil, fmt.Errorf("task repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("job publisher required")
	}
	if refunder == nil {
		return nil, fmt.Errorf("credit refunder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		projects:  projectSvc,
		tasks:     tasks,
		publisher: publisher,
		refunder:  refunder,
		logg:      logg,
	}, nil
}

// Generate creates the project (charging for it), records a pending task, and
// publishes the job. A dispatch failure after the charge refunds the credits
// and fails the project so the user is never billed for work that cannot run.
func (s *service) Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	project, err := s.projects.Create(ctx, projects.CreateProjectInput{
		UserID:          input.UserID,
		Title:           input.Title,
		Description:     input.Description,
		Mode:            input.Mode,
		DurationSeconds: input.DurationSeconds,
	})
	if err != nil {
		return nil, err
	}

	task, err := s.Dispatch(ctx, project)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Project: project, Task: task}, nil
}

func (s *service) Dispatch(ctx context.Context, project *models.Project) (*models.GenerationTask, error) {
	ctx = s.logg.WithProjectID(ctx, project.ID.String())

	task := &models.GenerationTask{
		ProjectID: project.ID,
		UserID:    project.UserID,
		Status:    enums.TaskStatusPending,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		s.unwind(ctx, project, "creating generation task failed")
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating generation task")
	}

	ctx = s.logg.WithTaskID(ctx, task.ID.String())

	if err := s.publisher.PublishGenerationJob(ctx, JobMessage{
		TaskID:    task.ID,
		ProjectID: project.ID,
		UserID:    project.UserID,
	}); err != nil {
		s.unwind(ctx, project, "publishing generation job failed")
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "publishing generation job")
	}

	if err := s.projects.MarkProcessing(ctx, project.ID); err != nil {
		s.logg.Error(ctx, "marking project processing after dispatch", err)
	} else {
		project.Status = enums.ProjectStatusProcessing
	}

	s.logg.Info(ctx, "generation job dispatched")
	return task, nil
}

func (s *service) TaskForProject(ctx context.Context, userID, projectID uuid.UUID) (*models.GenerationTask, error) {
	if _, err := s.projects.Get(ctx, userID, projectID); err != nil {
		return nil, err
	}
	task, err := s.tasks.FindByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "generation task not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading generation task")
	}
	return task, nil
}

// unwind refunds the charge and fails the project after a dispatch error.
func (s *service) unwind(ctx context.Context, project *models.Project, reason string) {
	if _, err := s.refunder.Refund(ctx, credits.MutationInput{
		UserID:           project.UserID,
		Amount:           project.CreditsUsed,
		Description:      "generation dispatch failed",
		RelatedProjectID: &project.ID,
	}); err != nil {
		s.logg.Error(ctx, "refunding after dispatch failure", err)
	}
	if err := s.projects.Fail(ctx, project.ID, reason); err != nil {
		s.logg.Error(ctx, "failing project after dispatch failure", err)
	}
}

// EncodeJobMessage serializes a job for the queue.
func EncodeJobMessage(job JobMessage) ([]byte, error) {
	return json.Marshal(job)
}

// DecodeJobMessage parses a queue payload.
func DecodeJobMessage(data []byte) (JobMessage, error) {
	var job JobMessage
	if err := json.Unmarshal(data, &job); err != nil {
		return JobMessage{}, fmt.Errorf("decoding job message: %w", err)
	}
	if job.TaskID == uuid.Nil || job.ProjectID == uuid.Nil || job.UserID == uuid.Nil {
		return JobMessage{}, fmt.Errorf("job message missing identifiers")
	}
	return job, nil
}

package generation

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/aimagehq/aimage-backend/internal/projects"
	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	apperrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/logger"
)

type dispatchProjectService struct {
	stubProjectService
	createErr  error
	processing []uuid.UUID
}

func (s *dispatchProjectService) Create(ctx context.Context, input projects.CreateProjectInput) (*models.Project, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.project, nil
}

func (s *dispatchProjectService) MarkProcessing(ctx context.Context, projectID uuid.UUID) error {
	s.processing = append(s.processing, projectID)
	return nil
}

type recordingPublisher struct {
	jobs []JobMessage
	err  error
}

func (r *recordingPublisher) PublishGenerationJob(ctx context.Context, job JobMessage) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func newDispatchService(t *testing.T, projectSvc projects.Service, tasks Repository, publisher JobPublisher, refunder CreditRefunder) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "generation-test", Output: io.Discard})
	svc, err := NewService(projectSvc, tasks, publisher, refunder, logg)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_GenerateDispatchesJob(t *testing.T) {
	project := &models.Project{ID: uuid.New(), UserID: uuid.New(), Status: enums.ProjectStatusDraft, CreditsUsed: 2}
	projectSvc := &dispatchProjectService{stubProjectService: stubProjectService{project: project}}
	tasks := &stubTaskRepo{}
	publisher := &recordingPublisher{}
	refunder := &recordingRefunder{}

	svc := newDispatchService(t, projectSvc, tasks, publisher, refunder)

	result, err := svc.Generate(context.Background(), GenerateInput{
		UserID:          project.UserID,
		Title:           "launch video",
		Mode:            enums.GenerationModeBasic,
		DurationSeconds: 20,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(publisher.jobs) != 1 {
		t.Fatalf("expected one published job, got %d", len(publisher.jobs))
	}
	job := publisher.jobs[0]
	if job.ProjectID != project.ID || job.UserID != project.UserID {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.TaskID != result.Task.ID {
		t.Fatal("published job must reference the created task")
	}
	if len(projectSvc.processing) != 1 {
		t.Fatal("project must be marked processing after dispatch")
	}
	if result.Project.Status != enums.ProjectStatusProcessing {
		t.Fatalf("expected processing status, got %s", result.Project.Status)
	}
	if len(refunder.calls) != 0 {
		t.Fatal("no refund expected on successful dispatch")
	}
}

func TestService_GenerateBubblesCreateError(t *testing.T) {
	rejection := apperrors.New(apperrors.CodeStateConflict, "insufficient credits")
	projectSvc := &dispatchProjectService{createErr: rejection}
	publisher := &recordingPublisher{}

	svc := newDispatchService(t, projectSvc, &stubTaskRepo{}, publisher, &recordingRefunder{})

	_, err := svc.Generate(context.Background(), GenerateInput{
		UserID:          uuid.New(),
		Title:           "x",
		Mode:            enums.GenerationModeBasic,
		DurationSeconds: 10,
	})
	if !errors.Is(err, rejection) {
		t.Fatalf("expected create error to bubble up, got %v", err)
	}
	if len(publisher.jobs) != 0 {
		t.Fatal("nothing may be published when the project is rejected")
	}
}

func TestService_GenerateRefundsOnPublishFailure(t *testing.T) {
	project := &models.Project{ID: uuid.New(), UserID: uuid.New(), Status: enums.ProjectStatusDraft, CreditsUsed: 3}
	projectSvc := &dispatchProjectService{stubProjectService: stubProjectService{project: project}}
	publisher := &recordingPublisher{err: errors.New("topic unavailable")}
	refunder := &recordingRefunder{}

	svc := newDispatchService(t, projectSvc, &stubTaskRepo{}, publisher, refunder)

	_, err := svc.Generate(context.Background(), GenerateInput{
		UserID:          project.UserID,
		Title:           "x",
		Mode:            enums.GenerationModeAdvanced,
		DurationSeconds: 20,
	})
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(refunder.calls) != 1 {
		t.Fatalf("expected refund after publish failure, got %d", len(refunder.calls))
	}
	if refunder.calls[0].Amount != 3 {
		t.Fatalf("refund must return the full charge, got %d", refunder.calls[0].Amount)
	}
	if len(projectSvc.failed) != 1 {
		t.Fatal("project must be marked failed after publish failure")
	}
}

func TestDecodeJobMessageRejectsMissingIdentifiers(t *testing.T) {
	data, err := EncodeJobMessage(JobMessage{TaskID: uuid.New()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeJobMessage(data); err == nil {
		t.Fatal("expected error for incomplete job message")
	}
}

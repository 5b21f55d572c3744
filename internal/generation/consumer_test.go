package generation

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimagehq/aimage-backend/internal/credits"
	"github.com/aimagehq/aimage-backend/internal/projects"
	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	apperrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/logger"
)

type stubTaskRepo struct {
	task      *models.GenerationTask
	findErr   error
	completed []uuid.UUID
	failed    []string
	progress  []int
}

func (s *stubTaskRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubTaskRepo) Create(ctx context.Context, task *models.GenerationTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	return nil
}

func (s *stubTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	return s.task, s.findErr
}

func (s *stubTaskRepo) FindByProject(ctx context.Context, projectID uuid.UUID) (*models.GenerationTask, error) {
	return s.task, s.findErr
}

func (s *stubTaskRepo) MarkProcessing(ctx context.Context, id uuid.UUID, providerTaskID string, startedAt time.Time) error {
	return nil
}

func (s *stubTaskRepo) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	s.progress = append(s.progress, progress)
	return nil
}

func (s *stubTaskRepo) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.completed = append(s.completed, id)
	return nil
}

func (s *stubTaskRepo) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, at time.Time) error {
	s.failed = append(s.failed, errorMessage)
	return nil
}

type stubProjectService struct {
	project   *models.Project
	getErr    error
	completed []string
	failed    []string
}

func (s *stubProjectService) Create(ctx context.Context, input projects.CreateProjectInput) (*models.Project, error) {
	return s.project, nil
}

func (s *stubProjectService) Get(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	return s.project, s.getErr
}

func (s *stubProjectService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Project, error) {
	return nil, nil
}

func (s *stubProjectService) Update(ctx context.Context, userID, projectID uuid.UUID, input projects.UpdateProjectInput) (*models.Project, error) {
	return s.project, nil
}

func (s *stubProjectService) MarkProcessing(ctx context.Context, projectID uuid.UUID) error {
	return nil
}

func (s *stubProjectService) Complete(ctx context.Context, projectID uuid.UUID, videoURL string) error {
	s.completed = append(s.completed, videoURL)
	return nil
}

func (s *stubProjectService) Fail(ctx context.Context, projectID uuid.UUID, errorMessage string) error {
	s.failed = append(s.failed, errorMessage)
	return nil
}

type recordingRefunder struct {
	calls []credits.MutationInput
	err   error
}

func (r *recordingRefunder) Refund(ctx context.Context, input credits.MutationInput) (*credits.MutationResult, error) {
	r.calls = append(r.calls, input)
	if r.err != nil {
		return nil, r.err
	}
	return &credits.MutationResult{}, nil
}

type stubProvider struct {
	startID  string
	startErr error
	status   *ProviderStatus
	pollErr  error
	lastReq  ProviderRequest
}

func (s *stubProvider) Start(ctx context.Context, req ProviderRequest) (string, error) {
	s.lastReq = req
	return s.startID, s.startErr
}

func (s *stubProvider) Status(ctx context.Context, providerTaskID string) (*ProviderStatus, error) {
	return s.status, nil
}

func (s *stubProvider) PollUntilDone(ctx context.Context, providerTaskID string, onProgress func(int)) (*ProviderStatus, error) {
	if s.status != nil && onProgress != nil {
		onProgress(s.status.Progress)
	}
	return s.status, s.pollErr
}

type stubPresenterSource struct {
	human *models.DigitalHuman
	err   error
}

func (s *stubPresenterSource) FindByID(ctx context.Context, id uuid.UUID) (*models.DigitalHuman, error) {
	return s.human, s.err
}

func newTestConsumer(tasks Repository, projectSvc projects.Service, refunder CreditRefunder, provider Provider) *Consumer {
	logg := logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
	return &Consumer{
		tasks:    tasks,
		projects: projectSvc,
		refunder: refunder,
		provider: provider,
		logg:     logg,
		now:      time.Now,
	}
}

func jobBytes(t *testing.T, job JobMessage) []byte {
	t.Helper()
	data, err := EncodeJobMessage(job)
	if err != nil {
		t.Fatalf("encode job: %v", err)
	}
	return data
}

func testJob(project *models.Project, task *models.GenerationTask) JobMessage {
	return JobMessage{TaskID: task.ID, ProjectID: project.ID, UserID: project.UserID}
}

func TestConsumerCompletesSuccessfulGeneration(t *testing.T) {
	t.Parallel()

	project := &models.Project{ID: uuid.New(), UserID: uuid.New(), Title: "demo", Mode: enums.GenerationModeBasic, DurationSeconds: 10, CreditsUsed: 1}
	task := &models.GenerationTask{ID: uuid.New(), ProjectID: project.ID, UserID: project.UserID, Status: enums.TaskStatusPending}

	tasks := &stubTaskRepo{task: task}
	projectSvc := &stubProjectService{project: project}
	refunder := &recordingRefunder{}
	provider := &stubProvider{
		startID: "prov-1",
		status:  &ProviderStatus{Status: "succeeded", Progress: 100, VideoURL: "https://cdn.example.com/v.mp4"},
	}

	consumer := newTestConsumer(tasks, projectSvc, refunder, provider)
	result := consumer.process(context.Background(), jobBytes(t, testJob(project, task)))

	if !result.ack {
		t.Fatal("expected ack")
	}
	if len(tasks.completed) != 1 {
		t.Fatalf("expected task completion, got %d", len(tasks.completed))
	}
	if len(projectSvc.completed) != 1 || projectSvc.completed[0] != "https://cdn.example.com/v.mp4" {
		t.Fatalf("expected project completion with video url, got %v", projectSvc.completed)
	}
	if len(refunder.calls) != 0 {
		t.Fatalf("no refund expected on success, got %d", len(refunder.calls))
	}
}

func TestConsumerRefundsFailedGeneration(t *testing.T) {
	t.Parallel()

	project := &models.Project{ID: uuid.New(), UserID: uuid.New(), Title: "demo", Mode: enums.GenerationModeAdvanced, DurationSeconds: 40, CreditsUsed: 6}
	task := &models.GenerationTask{ID: uuid.New(), ProjectID: project.ID, UserID: project.UserID, Status: enums.TaskStatusPending}

	tasks := &stubTaskRepo{task: task}
	projectSvc := &stubProjectService{project: project}
	refunder := &recordingRefunder{}
	provider := &stubProvider{
		startID: "prov-2",
		status:  &ProviderStatus{Status: "failed", Error: "render error"},
	}

	consumer := newTestConsumer(tasks, projectSvc, refunder, provider)
	result := consumer.process(context.Background(), jobBytes(t, testJob(project, task)))

	if !result.ack {
		t.Fatal("expected ack after refund")
	}
	if len(tasks.failed) != 1 || tasks.failed[0] != "render error" {
		t.Fatalf("expected task failure with provider reason, got %v", tasks.failed)
	}
	if len(projectSvc.failed) != 1 {
		t.Fatalf("expected project failure, got %v", projectSvc.failed)
	}
	if len(refunder.calls) != 1 {
		t.Fatalf("expected one refund, got %d", len(refunder.calls))
	}
	refund := refunder.calls[0]
	if refund.Amount != 6 || refund.UserID != project.UserID {
		t.Fatalf("unexpected refund %+v", refund)
	}
	if refund.RelatedProjectID == nil || *refund.RelatedProjectID != project.ID {
		t.Fatal("refund must reference the project")
	}
}

func TestConsumerRefundsWhenProviderRejectsStart(t *testing.T) {
	t.Parallel()

	project := &models.Project{ID: uuid.New(), UserID: uuid.New(), Title: "demo", Mode: enums.GenerationModeBasic, DurationSeconds: 10, CreditsUsed: 1}
	task := &models.GenerationTask{ID: uuid.New(), ProjectID: project.ID, UserID: project.UserID, Status: enums.TaskStatusPending}

	tasks := &stubTaskRepo{task: task}
	projectSvc := &stubProjectService{project: project}
	refunder := &recordingRefunder{}
	provider := &stubProvider{startErr: errors.New("quota exceeded")}

	consumer := newTestConsumer(tasks, projectSvc, refunder, provider)
	result := consumer.process(context.Background(), jobBytes(t, testJob(project, task)))

	if !result.ack {
		t.Fatal("expected ack")
	}
	if len(refunder.calls) != 1 {
		t.Fatalf("expected refund after start rejection, got %d", len(refunder.calls))
	}
}

func TestConsumerSkipsTerminalTask(t *testing.T) {
	t.Parallel()

	project := &models.Project{ID: uuid.New(), UserID: uuid.New(), CreditsUsed: 2}
	task := &models.GenerationTask{ID: uuid.New(), ProjectID: project.ID, UserID: project.UserID, Status: enums.TaskStatusCompleted}

	tasks := &stubTaskRepo{task: task}
	refunder := &recordingRefunder{}
	provider := &stubProvider{}

	consumer := newTestConsumer(tasks, &stubProjectService{project: project}, refunder, provider)
	result := consumer.process(context.Background(), jobBytes(t, testJob(project, task)))

	if !result.ack {
		t.Fatal("expected ack for redelivered terminal task")
	}
	if len(refunder.calls) != 0 || len(tasks.failed) != 0 {
		t.Fatal("terminal task must not be reprocessed")
	}
}

func TestConsumerAcksMalformedJob(t *testing.T) {
	t.Parallel()

	consumer := newTestConsumer(&stubTaskRepo{}, &stubProjectService{}, &recordingRefunder{}, &stubProvider{})
	result := consumer.process(context.Background(), []byte("not json"))
	if !result.ack {
		t.Fatal("malformed payloads must be acked, not redelivered")
	}
}

func TestConsumerRendersDigitalHumanWithPresenterConfig(t *testing.T) {
	t.Parallel()

	avatar := "https://cdn.aimage.video/avatars/anna.png"
	human := &models.DigitalHuman{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Name:        "Anna",
		AvatarURL:   &avatar,
		Kind:        enums.DigitalHumanKindAdvanced,
		VoiceConfig: map[string]any{"voice_type": "male"},
	}
	text := "Welcome to the show"
	project := &models.Project{
		ID:              uuid.New(),
		UserID:          human.UserID,
		Title:           "Anna - Welcome to the show",
		Description:     &text,
		Mode:            enums.GenerationModeDigitalHuman,
		DurationSeconds: 10,
		CreditsUsed:     10,
		DigitalHumanID:  &human.ID,
	}
	task := &models.GenerationTask{ID: uuid.New(), ProjectID: project.ID, UserID: project.UserID, Status: enums.TaskStatusPending}

	tasks := &stubTaskRepo{task: task}
	provider := &stubProvider{
		startID: "prov-dh",
		status:  &ProviderStatus{Status: "succeeded", Progress: 100, VideoURL: "https://cdn.example.com/dh.mp4"},
	}
	consumer := newTestConsumer(tasks, &stubProjectService{project: project}, &recordingRefunder{}, provider)
	consumer.humans = &stubPresenterSource{human: human}

	result := consumer.process(context.Background(), jobBytes(t, testJob(project, task)))

	if !result.ack {
		t.Fatal("expected ack")
	}
	if provider.lastReq.AvatarURL != avatar {
		t.Fatalf("expected avatar %q, got %q", avatar, provider.lastReq.AvatarURL)
	}
	if provider.lastReq.VoiceType != "male" {
		t.Fatalf("expected configured voice, got %q", provider.lastReq.VoiceType)
	}
	if provider.lastReq.Prompt != text {
		t.Fatalf("expected spoken text as prompt, got %q", provider.lastReq.Prompt)
	}
}

func TestConsumerRefundsWhenPresenterMissing(t *testing.T) {
	t.Parallel()

	humanID := uuid.New()
	project := &models.Project{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Mode:            enums.GenerationModeDigitalHuman,
		DurationSeconds: 10,
		CreditsUsed:     10,
		DigitalHumanID:  &humanID,
	}
	task := &models.GenerationTask{ID: uuid.New(), ProjectID: project.ID, UserID: project.UserID, Status: enums.TaskStatusPending}

	tasks := &stubTaskRepo{task: task}
	refunder := &recordingRefunder{}
	consumer := newTestConsumer(tasks, &stubProjectService{project: project}, refunder, &stubProvider{})
	consumer.humans = &stubPresenterSource{err: gorm.ErrRecordNotFound}

	result := consumer.process(context.Background(), jobBytes(t, testJob(project, task)))

	if !result.ack {
		t.Fatal("expected ack for a deleted presenter")
	}
	if len(tasks.failed) != 1 {
		t.Fatalf("expected task failure, got %v", tasks.failed)
	}
	if len(refunder.calls) != 1 || refunder.calls[0].Amount != 10 {
		t.Fatalf("expected full refund, got %+v", refunder.calls)
	}
}

func TestConsumerNacksTransientProjectLoadError(t *testing.T) {
	t.Parallel()

	project := &models.Project{ID: uuid.New(), UserID: uuid.New(), CreditsUsed: 3}
	task := &models.GenerationTask{ID: uuid.New(), ProjectID: project.ID, UserID: project.UserID, Status: enums.TaskStatusPending}

	tasks := &stubTaskRepo{task: task}
	projectSvc := &stubProjectService{
		getErr: apperrors.Wrap(apperrors.CodeInternal, context.DeadlineExceeded, "loading project"),
	}
	refunder := &recordingRefunder{}

	consumer := newTestConsumer(tasks, projectSvc, refunder, &stubProvider{})
	result := consumer.process(context.Background(), jobBytes(t, testJob(project, task)))

	if !result.nack {
		t.Fatal("expected nack so the job is redelivered")
	}
	if len(tasks.failed) != 0 {
		t.Fatalf("task must not be failed on a transient load error, got %v", tasks.failed)
	}
	if len(refunder.calls) != 0 {
		t.Fatalf("no refund expected before redelivery, got %d", len(refunder.calls))
	}
}

func TestConsumerFailsTaskWhenProjectMissing(t *testing.T) {
	t.Parallel()

	project := &models.Project{ID: uuid.New(), UserID: uuid.New(), CreditsUsed: 3}
	task := &models.GenerationTask{ID: uuid.New(), ProjectID: project.ID, UserID: project.UserID, Status: enums.TaskStatusPending}

	tasks := &stubTaskRepo{task: task}
	projectSvc := &stubProjectService{getErr: apperrors.New(apperrors.CodeNotFound, "project not found")}
	refunder := &recordingRefunder{}

	consumer := newTestConsumer(tasks, projectSvc, refunder, &stubProvider{})
	result := consumer.process(context.Background(), jobBytes(t, testJob(project, task)))

	if !result.ack {
		t.Fatal("expected ack for a project that no longer exists")
	}
	if len(tasks.failed) != 1 {
		t.Fatalf("expected task failure, got %v", tasks.failed)
	}
	if len(refunder.calls) != 0 {
		t.Fatalf("no refund possible without the project row, got %d", len(refunder.calls))
	}
}

func TestConsumerNacksTransientLookupError(t *testing.T) {
	t.Parallel()

	tasks := &stubTaskRepo{findErr: context.DeadlineExceeded}
	project := &models.Project{ID: uuid.New(), UserID: uuid.New()}
	task := &models.GenerationTask{ID: uuid.New()}

	consumer := newTestConsumer(tasks, &stubProjectService{project: project}, &recordingRefunder{}, &stubProvider{})
	result := consumer.process(context.Background(), jobBytes(t, JobMessage{TaskID: task.ID, ProjectID: project.ID, UserID: project.UserID}))
	if !result.nack {
		t.Fatal("expected nack for transient lookup error")
	}
}

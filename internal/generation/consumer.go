package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimagehq/aimage-backend/internal/credits"
	"github.com/aimagehq/aimage-backend/internal/projects"
	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	"github.com/aimagehq/aimage-backend/pkg/logger"
	"github.com/aimagehq/aimage-backend/pkg/metrics"
)

const workerJobName = "generation"

// PresenterSource loads the digital human config a job renders with.
type PresenterSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.DigitalHuman, error)
}

// Consumer processes generation jobs from Pub/Sub.
type Consumer struct {
	tasks        Repository
	projects     projects.Service
	humans       PresenterSource
	refunder     CreditRefunder
	provider     Provider
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	metrics      *metrics.WorkerJobMetrics
	now          func() time.Time
}

// NewConsumer constructs a consumer that watches the provided subscription.
func NewConsumer(
	tasks Repository,
	projectSvc projects.Service,
	humans PresenterSource,
	refunder CreditRefunder,
	provider Provider,
	subscription *pubsub.Subscriber,
	logg *logger.Logger,
	jobMetrics *metrics.WorkerJobMetrics,
) (*Consumer, error) {
	if tasks == nil {
		return nil, errors.New("task repository is required")
	}
	if projectSvc == nil {
		return nil, errors.New("projects service is required")
	}
	if humans == nil {
		return nil, errors.New("presenter source is required")
	}
	if refunder == nil {
		return nil, errors.New("credit refunder is required")
	}
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	if subscription == nil {
		return nil, errors.New("generation subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		tasks:        tasks,
		projects:     projectSvc,
		humans:       humans,
		refunder:     refunder,
		provider:     provider,
		subscription: subscription,
		logg:         logg,
		metrics:      jobMetrics,
		now:          time.Now,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, data []byte) processResult {
	start := c.now()
	defer func() {
		c.metrics.ObserveDuration(workerJobName, c.now().Sub(start))
	}()

	job, err := DecodeJobMessage(data)
	if err != nil {
		c.logg.Error(ctx, "discarding malformed generation job", err)
		return processResult{ack: true}
	}

	ctx = c.logg.WithFields(ctx, map[string]any{
		"task_id":    job.TaskID.String(),
		"project_id": job.ProjectID.String(),
		"user_id":    job.UserID.String(),
	})

	task, err := c.tasks.FindByID(ctx, job.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logg.Warn(ctx, "generation task not found")
			return processResult{ack: true}
		}
		return c.handleDBError(ctx, err)
	}

	if isTerminal(task.Status) {
		c.logg.Info(ctx, "generation task already handled")
		return processResult{ack: true}
	}

	project, err := c.projects.Get(ctx, job.UserID, job.ProjectID)
	if err != nil {
		c.logg.Error(ctx, "loading project for generation job", err)
		// A transient load error must not burn the job: failing the task
		// here would skip the refund because the charge lives on the
		// project row. Redeliver instead.
		if isTransientDBError(err) {
			return processResult{nack: true}
		}
		c.fail(ctx, task, nil, "project unavailable")
		return processResult{ack: true}
	}

	request := ProviderRequest{
		Prompt:          buildPrompt(project),
		Mode:            project.Mode,
		DurationSeconds: project.DurationSeconds,
	}
	if project.DigitalHumanID != nil {
		human, err := c.humans.FindByID(ctx, *project.DigitalHumanID)
		if err != nil {
			c.logg.Error(ctx, "loading digital human for generation job", err)
			if isTransientDBError(err) {
				return processResult{nack: true}
			}
			c.fail(ctx, task, project, "digital human unavailable")
			return processResult{ack: true}
		}
		if human.AvatarURL != nil {
			request.AvatarURL = *human.AvatarURL
		}
		request.VoiceType = human.VoiceType()
	}

	providerTaskID, err := c.provider.Start(ctx, request)
	if err != nil {
		c.logg.Error(ctx, "starting upstream generation", err)
		c.fail(ctx, task, project, "provider rejected the job")
		return processResult{ack: true}
	}

	if err := c.tasks.MarkProcessing(ctx, task.ID, providerTaskID, c.now()); err != nil {
		c.logg.Error(ctx, "marking task processing", err)
	}

	status, err := c.provider.PollUntilDone(ctx, providerTaskID, func(progress int) {
		if err := c.tasks.UpdateProgress(ctx, task.ID, progress); err != nil {
			c.logg.Warn(ctx, "updating task progress failed")
		}
	})
	if err != nil || !status.Succeeded() {
		reason := "generation failed"
		if err != nil {
			c.logg.Error(ctx, "polling upstream generation", err)
		} else if status.Error != "" {
			reason = status.Error
		}
		c.fail(ctx, task, project, reason)
		return processResult{ack: true}
	}

	if err := c.tasks.MarkCompleted(ctx, task.ID, c.now()); err != nil {
		c.logg.Error(ctx, "marking task completed", err)
	}
	if err := c.projects.Complete(ctx, project.ID, status.VideoURL); err != nil {
		c.logg.Error(ctx, "completing project", err)
	}

	c.metrics.IncSuccess(workerJobName)
	c.logg.Info(ctx, "generation completed")
	return processResult{ack: true}
}

// fail marks the task and project failed and refunds the charge. The refund
// runs even when persisting the failure state has problems; losing credits is
// worse than a stale status row.
func (c *Consumer) fail(ctx context.Context, task *models.GenerationTask, project *models.Project, reason string) {
	c.metrics.IncFailure(workerJobName)

	if err := c.tasks.MarkFailed(ctx, task.ID, reason, c.now()); err != nil {
		c.logg.Error(ctx, "marking task failed", err)
	}

	if project == nil {
		return
	}

	if err := c.projects.Fail(ctx, project.ID, reason); err != nil {
		c.logg.Error(ctx, "marking project failed", err)
	}

	if project.CreditsUsed <= 0 {
		return
	}
	if _, err := c.refunder.Refund(ctx, credits.MutationInput{
		UserID:           project.UserID,
		Amount:           project.CreditsUsed,
		Description:      fmt.Sprintf("refund for failed generation: %s", reason),
		RelatedProjectID: &project.ID,
	}); err != nil {
		c.logg.Error(ctx, "refunding failed generation", err)
		return
	}
	c.metrics.IncRefund(workerJobName)
}

func (c *Consumer) handleDBError(ctx context.Context, err error) processResult {
	c.logg.Error(ctx, "generation task persistence error", err)
	if isTransientDBError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func isTransientDBError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func isTerminal(status enums.TaskStatus) bool {
	return status == enums.TaskStatusCompleted || status == enums.TaskStatusFailed
}

func buildPrompt(project *models.Project) string {
	if project.Description != nil && *project.Description != "" {
		return *project.Description
	}
	return project.Title
}

package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/aimagehq/aimage-backend/pkg/config"
	"github.com/aimagehq/aimage-backend/pkg/enums"
)

// Provider is the upstream video generation API.
type Provider interface {
	Start(ctx context.Context, req ProviderRequest) (string, error)
	Status(ctx context.Context, providerTaskID string) (*ProviderStatus, error)
	PollUntilDone(ctx context.Context, providerTaskID string, onProgress func(int)) (*ProviderStatus, error)
}

// ProviderRequest describes the video to render. AvatarURL and VoiceType
// are set only for digital human jobs.
type ProviderRequest struct {
	Prompt          string               `json:"prompt"`
	Mode            enums.GenerationMode `json:"mode"`
	DurationSeconds int                  `json:"duration_seconds"`
	AvatarURL       string               `json:"avatar_url,omitempty"`
	VoiceType       string               `json:"voice_type,omitempty"`
}

// ProviderStatus is one upstream progress snapshot.
type ProviderStatus struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error"`
}

const (
	providerStatusQueued     = "queued"
	providerStatusProcessing = "processing"
	providerStatusSucceeded  = "succeeded"
	providerStatusFailed     = "failed"
)

// Done reports whether the snapshot is terminal.
func (s *ProviderStatus) Done() bool {
	return s.Status == providerStatusSucceeded || s.Status == providerStatusFailed
}

// Succeeded reports whether the render finished with a usable video.
func (s *ProviderStatus) Succeeded() bool {
	return s.Status == providerStatusSucceeded
}

// ErrGenerationFailed marks a terminal upstream failure.
var ErrGenerationFailed = errors.New("generation failed upstream")

type httpProvider struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	pollTimeout  time.Duration
	client       *http.Client
}

// NewHTTPProvider builds a provider client from configuration.
func NewHTTPProvider(cfg config.ProviderConfig) (Provider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("provider base url is required")
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Minute
	}
	return &httpProvider{
		baseURL:      base,
		apiKey:       cfg.APIKey,
		pollInterval: interval,
		pollTimeout:  pollTimeout,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

func (p *httpProvider) Start(ctx context.Context, req ProviderRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding provider request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/generations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building provider request: %w", err)
	}
	p.decorate(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", providerHTTPError(resp)
	}

	var payload struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding provider response: %w", err)
	}
	if strings.TrimSpace(payload.TaskID) == "" {
		return "", fmt.Errorf("provider returned empty task id")
	}
	return payload.TaskID, nil
}

func (p *httpProvider) Status(ctx context.Context, providerTaskID string) (*ProviderStatus, error) {
	if strings.TrimSpace(providerTaskID) == "" {
		return nil, fmt.Errorf("provider task id is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/generations/"+providerTaskID, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}
	p.decorate(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching generation status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, providerHTTPError(resp)
	}

	var status ProviderStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding generation status: %w", err)
	}
	return &status, nil
}

// PollUntilDone polls the provider at a fixed interval until the task reaches
// a terminal state or the poll window elapses.
func (p *httpProvider) PollUntilDone(ctx context.Context, providerTaskID string, onProgress func(int)) (*ProviderStatus, error) {
	var last *ProviderStatus

	backoff := retry.WithMaxDuration(p.pollTimeout, retry.NewConstant(p.pollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		status, err := p.Status(ctx, providerTaskID)
		if err != nil {
			// transient fetch failures keep polling
			return retry.RetryableError(err)
		}
		last = status
		if onProgress != nil {
			onProgress(status.Progress)
		}
		if !status.Done() {
			return retry.RetryableError(fmt.Errorf("generation still %s", status.Status))
		}
		return nil
	})
	if err != nil && last == nil {
		return nil, err
	}
	if last == nil {
		return nil, fmt.Errorf("no status received for task %s", providerTaskID)
	}
	if !last.Done() {
		return last, fmt.Errorf("generation timed out in state %s", last.Status)
	}
	return last, nil
}

func (p *httpProvider) decorate(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

func providerHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

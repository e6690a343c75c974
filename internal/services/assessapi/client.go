package assessapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"presence/internal/auth"
	"presence/internal/config"
	"presence/internal/logging"
	"presence/internal/media"
	"presence/internal/services"
)

// JobState mirrors the backend job lifecycle. The client never mutates a
// job's state locally; it only reflects what the server reports.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal reports whether no further automatic transition occurs.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobSnapshot is one observation of a server-side analysis job.
type JobSnapshot struct {
	JobID        string
	State        JobState
	Progress     float64
	CurrentStep  string
	ErrorMessage string
	ReportID     string
}

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// Client talks to the assessment backend REST API.
type Client struct {
	baseURL        string
	http           HTTPDoer
	creds          auth.CredentialProvider
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewClient constructs a backend client from configuration. creds authorizes
// every request; it is injected rather than read from ambient storage.
func NewClient(cfg *config.Config, creds auth.CredentialProvider, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		baseURL:        strings.TrimRight(cfg.API.BaseURL, "/"),
		http:           http.DefaultClient,
		creds:          creds,
		requestTimeout: time.Duration(cfg.API.RequestTimeout) * time.Second,
		logger:         logging.NewComponentLogger(logger, "assessapi"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Upload streams the artifact to the backend as a multipart form and returns
// the server-assigned video id. The size contract is checked before any bytes
// leave the client; progress receives a monotonically non-decreasing
// percentage ending at 100. Failed uploads are not retried here.
func (c *Client) Upload(ctx context.Context, artifact *media.Artifact, progress func(percent int)) (string, error) {
	if err := artifact.Validate(); err != nil {
		return "", err
	}

	reporter := newProgressReporter(artifact.SizeBytes(), progress)
	body, contentType := multipartBody(artifact, reporter)
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/videos/upload", body)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "assessapi", "upload", "build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	if err := c.authorize(ctx, req); err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "assessapi", "upload", "send artifact", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrServerRejected, "assessapi", "upload", serverDetail(resp), nil)
	}

	var payload struct {
		VideoID string `json:"video_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrServerRejected, "assessapi", "upload", "decode response", err)
	}
	if payload.VideoID == "" {
		return "", services.Wrap(services.ErrInconsistentServer, "assessapi", "upload", "response missing video_id", nil)
	}

	reporter.finish()
	c.logger.Info("artifact uploaded",
		logging.String(logging.FieldEventType, "upload_complete"),
		logging.String("video_id", payload.VideoID),
		logging.Int64("size_bytes", artifact.SizeBytes()),
	)
	return payload.VideoID, nil
}

// StartProcessing triggers server-side analysis for an uploaded video and
// returns the job id.
func (c *Client) StartProcessing(ctx context.Context, videoID string) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/api/videos/%s/process", c.baseURL, videoID)
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, nil)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "assessapi", "process", "build request", err)
	}
	if err := c.authorize(callCtx, req); err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "assessapi", "process", "trigger analysis", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrAnalysisStartFailed, "assessapi", "process", serverDetail(resp), nil)
	}

	var payload struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrAnalysisStartFailed, "assessapi", "process", "decode response", err)
	}
	if payload.JobID == "" {
		return "", services.Wrap(services.ErrInconsistentServer, "assessapi", "process", "response missing job_id", nil)
	}
	return payload.JobID, nil
}

// JobStatus fetches one observation of the analysis job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (JobSnapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/api/jobs/%s/status", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return JobSnapshot{}, services.Wrap(services.ErrTransport, "assessapi", "status", "build request", err)
	}
	if err := c.authorize(callCtx, req); err != nil {
		return JobSnapshot{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return JobSnapshot{}, services.Wrap(services.ErrTransport, "assessapi", "status", "fetch job status", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return JobSnapshot{}, services.Wrap(services.ErrServerRejected, "assessapi", "status", serverDetail(resp), nil)
	}

	var payload struct {
		Status      string  `json:"status"`
		Progress    float64 `json:"progress"`
		CurrentStep string  `json:"current_step"`
		Error       string  `json:"error"`
		ReportID    string  `json:"report_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return JobSnapshot{}, services.Wrap(services.ErrServerRejected, "assessapi", "status", "decode response", err)
	}

	return JobSnapshot{
		JobID:        jobID,
		State:        normalizeState(payload.Status),
		Progress:     payload.Progress,
		CurrentStep:  payload.CurrentStep,
		ErrorMessage: payload.Error,
		ReportID:     payload.ReportID,
	}, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.creds == nil {
		return nil
	}
	token, err := c.creds.SessionToken(ctx)
	if err != nil {
		return services.Wrap(services.ErrServerRejected, "assessapi", "auth", "resolve session token", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func normalizeState(value string) JobState {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "queued", "pending":
		return JobQueued
	case "running", "processing":
		return JobRunning
	case "completed":
		return JobCompleted
	case "failed":
		return JobFailed
	default:
		return JobRunning
	}
}

// serverDetail extracts the backend's error message when present, falling
// back to the HTTP status.
func serverDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Detail) != "" {
		return strings.TrimSpace(payload.Detail)
	}
	return fmt.Sprintf("server returned %s", resp.Status)
}

// multipartBody streams the artifact through a multipart writer without
// buffering the whole file in memory.
func multipartBody(artifact *media.Artifact, reporter *progressReporter) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, artifact.Name()))
		header.Set("Content-Type", artifact.MIMEType())

		part, err := writer.CreatePart(header)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src, err := artifact.Open()
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		defer src.Close()

		if _, err := io.Copy(part, reporter.wrap(src)); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	return pr, writer.FormDataContentType()
}

package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jsonpress/internal/config"
)

const userAgent = "jsonpress/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyJobQueued(ctx context.Context, referenceID, fileName string) error
	NotifyJobSucceeded(ctx context.Context, referenceID, outputLocation string, duration time.Duration) error
	NotifyJobFailed(ctx context.Context, referenceID, reason string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		jobQueued:    cfg.Notifications.JobQueued,
		jobCompleted: cfg.Notifications.JobCompleted,
		errors:       cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	jobQueued    bool
	jobCompleted bool
	errors       bool
}

func (n *ntfyService) NotifyJobQueued(ctx context.Context, referenceID, fileName string) error {
	if !n.jobQueued {
		return nil
	}
	data := payload{
		title:   "jsonpress - Job Queued",
		message: fmt.Sprintf("Queued %s (%s)", strings.TrimSpace(fileName), strings.TrimSpace(referenceID)),
		tags:    []string{"jsonpress", "job", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobSucceeded(ctx context.Context, referenceID, outputLocation string, duration time.Duration) error {
	if !n.jobCompleted {
		return nil
	}
	duration = duration.Round(time.Millisecond)
	if duration < 0 {
		duration = 0
	}
	message := fmt.Sprintf("Job %s finished in %s", strings.TrimSpace(referenceID), duration)
	if outputLocation = strings.TrimSpace(outputLocation); outputLocation != "" {
		message = fmt.Sprintf("%s\nOutput: %s", message, outputLocation)
	}
	data := payload{
		title:   "jsonpress - Job Complete",
		message: message,
		tags:    []string{"jsonpress", "job", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, referenceID, reason string) error {
	if !n.jobCompleted {
		return nil
	}
	message := fmt.Sprintf("Job %s failed", strings.TrimSpace(referenceID))
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	data := payload{
		title:    "jsonpress - Job Failed",
		message:  message,
		tags:     []string{"jsonpress", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "jsonpress - Error",
		message:  builder.String(),
		tags:     []string{"jsonpress", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "jsonpress - Test",
		message:  "Notification system test",
		tags:     []string{"jsonpress", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobQueued(context.Context, string, string) error { return nil }
func (noopService) NotifyJobSucceeded(context.Context, string, string, time.Duration) error {
	return nil
}
func (noopService) NotifyJobFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error      { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }

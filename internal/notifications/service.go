package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelay/internal/config"
)

const userAgent = "Reelay/0.1.0"

// Service defines the notification surface exposed to reconcile components.
type Service interface {
	NotifyReelPublished(ctx context.Context, caption, mediaID string) error
	NotifyReelFailed(ctx context.Context, recordPath string, err error) error
	NotifyRunCompleted(ctx context.Context, posted, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:   topic,
		client:     client,
		sendPosts:  cfg.Notifications.Posts,
		sendErrors: cfg.Notifications.Errors,
	}
}

// NewNop returns a Service that drops every notification.
func NewNop() Service {
	return noopService{}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	sendPosts  bool
	sendErrors bool
}

func (n *ntfyService) NotifyReelPublished(ctx context.Context, caption, mediaID string) error {
	if !n.sendPosts {
		return nil
	}
	caption = strings.TrimSpace(caption)
	if len([]rune(caption)) > 80 {
		caption = string([]rune(caption)[:77]) + "..."
	}
	data := payload{
		title:   "Reelay - Posted",
		message: fmt.Sprintf("Reel published: %s (media %s)", caption, mediaID),
		tags:    []string{"reelay", "post", "published"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReelFailed(ctx context.Context, recordPath string, err error) error {
	if !n.sendErrors {
		return nil
	}
	message := fmt.Sprintf("Reel failed: %s", recordPath)
	if err != nil {
		message = fmt.Sprintf("%s\n%s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Reelay - Post Failed",
		message:  message,
		tags:     []string{"reelay", "post", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, posted, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	if failed == 0 {
		title = "Reelay - Run Complete"
		message = fmt.Sprintf("Reconcile complete: %d posted in %s", posted, durationText)
	} else {
		title = "Reelay - Run Complete (with errors)"
		message = fmt.Sprintf("Reconcile complete: %d posted, %d failed in %s", posted, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"reelay", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.sendErrors {
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
		title:    "Reelay - Error",
		message:  builder.String(),
		tags:     []string{"reelay", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Reelay - Test",
		message:  "Notification system test",
		tags:     []string{"reelay", "test"},
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

func (noopService) NotifyReelPublished(context.Context, string, string) error         { return nil }
func (noopService) NotifyReelFailed(context.Context, string, error) error             { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }

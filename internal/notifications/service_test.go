package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reelay/internal/config"
	"reelay/internal/notifications"
)

type captureServer struct {
	server   *httptest.Server
	title    string
	tags     string
	priority string
	body     string
	calls    int
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()
	capture := &captureServer{}
	capture.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		capture.calls++
		capture.title = r.Header.Get("Title")
		capture.tags = r.Header.Get("Tags")
		capture.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		capture.body = string(body)
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(capture.server.Close)
	return capture
}

func notifyConfig(url string) config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.Posts = true
	cfg.Notifications.Errors = true
	return cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyReelPublished(context.Background(), "caption", "media-1"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyReelPublished(t *testing.T) {
	capture := newCaptureServer(t)
	cfg := notifyConfig(capture.server.URL)
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyReelPublished(context.Background(), "Launch teaser", "media-42"); err != nil {
		t.Fatalf("NotifyReelPublished: %v", err)
	}
	if capture.title != "Reelay - Posted" {
		t.Fatalf("title = %q", capture.title)
	}
	if capture.body != "Reel published: Launch teaser (media media-42)" {
		t.Fatalf("body = %q", capture.body)
	}
	if capture.tags != "reelay,post,published" {
		t.Fatalf("tags = %q", capture.tags)
	}
}

func TestNotifyReelFailedCarriesHighPriority(t *testing.T) {
	capture := newCaptureServer(t)
	cfg := notifyConfig(capture.server.URL)
	svc := notifications.NewService(&cfg)

	err := svc.NotifyReelFailed(context.Background(), "/records/reel_a.json", errors.New("rate limited"))
	if err != nil {
		t.Fatalf("NotifyReelFailed: %v", err)
	}
	if capture.priority != "high" {
		t.Fatalf("priority = %q", capture.priority)
	}
	if capture.body != "Reel failed: /records/reel_a.json\nrate limited" {
		t.Fatalf("body = %q", capture.body)
	}
}

func TestNotifyRunCompletedSummaries(t *testing.T) {
	capture := newCaptureServer(t)
	cfg := notifyConfig(capture.server.URL)
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyRunCompleted(context.Background(), 3, 0, 42*time.Second); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	if capture.title != "Reelay - Run Complete" {
		t.Fatalf("title = %q", capture.title)
	}
	if capture.body != "Reconcile complete: 3 posted in 42s" {
		t.Fatalf("body = %q", capture.body)
	}

	if err := svc.NotifyRunCompleted(context.Background(), 2, 1, 90*time.Second); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	if capture.title != "Reelay - Run Complete (with errors)" {
		t.Fatalf("title = %q", capture.title)
	}
	if capture.body != "Reconcile complete: 2 posted, 1 failed in 1m30s" {
		t.Fatalf("body = %q", capture.body)
	}
}

func TestDisabledCategoriesAreSuppressed(t *testing.T) {
	capture := newCaptureServer(t)
	cfg := notifyConfig(capture.server.URL)
	cfg.Notifications.Posts = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyReelPublished(ctx, "caption", "media-1"); err != nil {
		t.Fatalf("NotifyReelPublished: %v", err)
	}
	if err := svc.NotifyReelFailed(ctx, "/records/a.json", errors.New("boom")); err != nil {
		t.Fatalf("NotifyReelFailed: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "reconcile"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if capture.calls != 0 {
		t.Fatalf("expected suppressed notifications, got %d calls", capture.calls)
	}

	// Test notifications always go out when a topic exists.
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if capture.calls != 1 {
		t.Fatalf("expected test notification to send, got %d calls", capture.calls)
	}
}

func TestSendReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	cfg := notifyConfig(server.URL)
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

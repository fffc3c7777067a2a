package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jsonpress/internal/config"
	"jsonpress/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobQueued(context.Background(), "REF100001", "orders.json"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	message  string
	tags     string
	priority string
}

func newCaptureServer(t *testing.T, sink *[]captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		*sink = append(*sink, captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(http.StatusOK)
	}))
}

func newNtfyService(t *testing.T, endpoint string) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	cfg.Notifications.JobQueued = true
	cfg.Notifications.JobCompleted = true
	cfg.Notifications.Errors = true
	return notifications.NewService(&cfg)
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	var sink []captured
	server := newCaptureServer(t, &sink)
	defer server.Close()

	svc := newNtfyService(t, server.URL)
	ctx := context.Background()

	if err := svc.NotifyJobQueued(ctx, "REF100001", "orders.json"); err != nil {
		t.Fatalf("queued: %v", err)
	}
	if err := svc.NotifyJobSucceeded(ctx, "REF100001", "alice@example.com/REF100001_output.csv", 1500*time.Millisecond); err != nil {
		t.Fatalf("succeeded: %v", err)
	}
	if err := svc.NotifyJobFailed(ctx, "REF100002", "schema conflict"); err != nil {
		t.Fatalf("failed: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("disk full"), "watcher"); err != nil {
		t.Fatalf("error: %v", err)
	}

	if len(sink) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(sink))
	}
	if sink[0].title != "jsonpress - Job Queued" || !strings.Contains(sink[0].message, "REF100001") {
		t.Errorf("queued payload = %+v", sink[0])
	}
	if !strings.Contains(sink[1].message, "REF100001_output.csv") || !strings.Contains(sink[1].message, "1.5s") {
		t.Errorf("succeeded payload = %+v", sink[1])
	}
	if sink[2].priority != "high" || !strings.Contains(sink[2].message, "schema conflict") {
		t.Errorf("failed payload = %+v", sink[2])
	}
	if !strings.Contains(sink[3].message, "watcher") || !strings.Contains(sink[3].message, "disk full") {
		t.Errorf("error payload = %+v", sink[3])
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	var sink []captured
	server := newCaptureServer(t, &sink)
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobQueued = false
	cfg.Notifications.JobCompleted = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyJobQueued(ctx, "REF1", "f.json"); err != nil {
		t.Fatalf("queued: %v", err)
	}
	if err := svc.NotifyJobFailed(ctx, "REF1", "boom"); err != nil {
		t.Fatalf("failed: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("x"), ""); err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(sink) != 0 {
		t.Errorf("expected suppressed notifications, got %d", len(sink))
	}

	// The test notification ignores toggles so operators can verify wiring.
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("test: %v", err)
	}
	if len(sink) != 1 {
		t.Errorf("expected test notification to be sent, got %d", len(sink))
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer server.Close()

	svc := newNtfyService(t, server.URL)
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}

package watch_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jsonpress/internal/jobs"
	"jsonpress/internal/logging"
	"jsonpress/internal/testsupport"
	"jsonpress/internal/watch"
)

type stubNotifier struct {
	queued []string
}

func (s *stubNotifier) NotifyJobQueued(_ context.Context, ref, _ string) error {
	s.queued = append(s.queued, ref)
	return nil
}
func (s *stubNotifier) NotifyJobSucceeded(context.Context, string, string, time.Duration) error {
	return nil
}
func (s *stubNotifier) NotifyJobFailed(context.Context, string, string) error { return nil }
func (s *stubNotifier) NotifyError(context.Context, error, string) error      { return nil }
func (s *stubNotifier) TestNotification(context.Context) error                { return nil }

func TestParseInputName(t *testing.T) {
	cases := []struct {
		name      string
		wantOwner string
		wantFile  string
		wantOK    bool
	}{
		{"alice@example.com_orders.json", "alice@example.com", "orders.json", true},
		{"bob@x.io_daily_export.json", "bob@x.io", "daily_export.json", true},
		{"noemail_orders.json", "", "", false},
		{"alice@example.com_.json", "", "", false},
		{"alice@example.com.json", "", "", false},
		{"orders.csv", "", "", false},
		{".hidden_file.json", "", "", false},
	}
	for _, tc := range cases {
		owner, file, ok := watch.ParseInputName(tc.name)
		if ok != tc.wantOK || owner != tc.wantOwner || file != tc.wantFile {
			t.Errorf("ParseInputName(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.name, owner, file, ok, tc.wantOwner, tc.wantFile, tc.wantOK)
		}
	}
}

func TestIngestCreatesJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &stubNotifier{}
	w := watch.NewWatcher(cfg, store, logging.NewNop(), notifier)
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.InputDir, "alice@example.com_orders.json")
	testsupport.WriteFile(t, path, []byte(`{"a":1}`))

	if err := w.Ingest(ctx, path); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 job, got %d", len(list))
	}
	rec := list[0]
	if rec.OwnerEmail != "alice@example.com" || rec.FileName != "orders.json" {
		t.Errorf("job metadata = %+v", rec)
	}
	if rec.InputLocation != "alice@example.com_orders.json" {
		t.Errorf("input location = %q", rec.InputLocation)
	}
	if rec.Status != jobs.StatusCreated {
		t.Errorf("status = %s", rec.Status)
	}
	if !strings.HasPrefix(rec.ReferenceID, "REF-") {
		t.Errorf("reference id = %q", rec.ReferenceID)
	}
	if len(notifier.queued) != 1 {
		t.Errorf("queued notifications = %v", notifier.queued)
	}
}

func TestIngestSkipsAlreadyQueuedInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	w := watch.NewWatcher(cfg, store, logging.NewNop(), &stubNotifier{})
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.InputDir, "bob@example.com_data.json")
	testsupport.WriteFile(t, path, []byte(`{"a":1}`))

	if err := w.Ingest(ctx, path); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if err := w.Ingest(ctx, path); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected duplicate ingest to be skipped, got %d jobs", len(list))
	}
}

func TestIngestSkipsNonMatchingFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	w := watch.NewWatcher(cfg, store, logging.NewNop(), &stubNotifier{})
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.InputDir, "README.txt")
	testsupport.WriteFile(t, path, []byte("not json"))
	if err := w.Ingest(ctx, path); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no jobs, got %d", len(list))
	}
}

func TestWatcherPicksUpNewFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.SettleMillis = 20
	store := testsupport.MustOpenStore(t, cfg)
	w := watch.NewWatcher(cfg, store, logging.NewNop(), &stubNotifier{})
	ctx := context.Background()

	// EnsureDirectories runs inside MustOpenStore, so the input dir exists.
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(cfg.Paths.InputDir, "carol@example.com_live.json")
	testsupport.WriteFile(t, path, []byte(`{"a":[1,2]}`))

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		list, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) == 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("watcher did not enqueue the new file in time")
}

func TestWatcherIngestsPreexistingFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	w := watch.NewWatcher(cfg, store, logging.NewNop(), &stubNotifier{})
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.InputDir, "dave@example.com_old.json")
	testsupport.WriteFile(t, path, []byte(`{"a":1}`))

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected preexisting file to be ingested, got %d jobs", len(list))
	}
}

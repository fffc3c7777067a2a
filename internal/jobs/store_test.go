package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"jsonpress/internal/jobs"
	"jsonpress/internal/services"
	"jsonpress/internal/testsupport"
)

func newStore(t *testing.T) *jobs.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func TestCreateAndGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := testsupport.NewJob(t, store, jobs.Metadata{
		ReferenceID:   "REF100001",
		OwnerEmail:    "alice@example.com",
		FileName:      "orders.json",
		InputLocation: "alice@example.com_orders.json",
	})
	if rec.Status != jobs.StatusCreated {
		t.Fatalf("new job status = %s, want created", rec.Status)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", rec)
	}

	got, err := store.Get(ctx, "REF100001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OwnerEmail != "alice@example.com" || got.FileName != "orders.json" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestCreateDuplicateReference(t *testing.T) {
	store := newStore(t)

	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF100002"})
	_, err := store.Create(context.Background(), jobs.Metadata{
		ReferenceID:  "REF100002",
		OwnerEmail:   "bob@example.com",
		FileName:     "dup.json",
		OutputFormat: "csv",
	})
	if !errors.Is(err, services.ErrDuplicateJob) {
		t.Fatalf("expected duplicate job error, got %v", err)
	}
}

func TestGetMissingJob(t *testing.T) {
	store := newStore(t)
	if _, err := store.Get(context.Background(), "REF000000"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransitionHappyPath(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF100003"})

	running, err := store.Transition(ctx, "REF100003", jobs.StatusRunning, jobs.Fields{
		Stage: jobs.StringPtr("fetch"),
	})
	if err != nil {
		t.Fatalf("to running: %v", err)
	}
	if running.Status != jobs.StatusRunning || running.Stage != "fetch" {
		t.Fatalf("running record = %+v", running)
	}
	if running.StartedAt == nil {
		t.Errorf("started_at not set on running transition")
	}

	done, err := store.Transition(ctx, "REF100003", jobs.StatusSucceeded, jobs.Fields{
		OutputLocation: jobs.StringPtr("alice@example.com/REF100003_output.csv"),
	})
	if err != nil {
		t.Fatalf("to succeeded: %v", err)
	}
	if done.Status != jobs.StatusSucceeded {
		t.Fatalf("final status = %s", done.Status)
	}
	if done.OutputLocation == "" || done.FinishedAt == nil {
		t.Errorf("terminal record incomplete: %+v", done)
	}
	// Fields not supplied keep their stored values.
	if done.Stage != "fetch" {
		t.Errorf("stage changed without being supplied: %q", done.Stage)
	}
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		prep []jobs.Status
		to   jobs.Status
	}{
		{"created to succeeded", nil, jobs.StatusSucceeded},
		{"running to created", []jobs.Status{jobs.StatusRunning}, jobs.StatusCreated},
		{"succeeded to running", []jobs.Status{jobs.StatusRunning, jobs.StatusSucceeded}, jobs.StatusRunning},
		{"failed to succeeded", []jobs.Status{jobs.StatusFailed}, jobs.StatusSucceeded},
	}
	for i, tc := range cases {
		ref := "REF20000" + string(rune('0'+i))
		testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: ref})
		for _, status := range tc.prep {
			if _, err := store.Transition(ctx, ref, status, jobs.Fields{}); err != nil {
				t.Fatalf("%s: prep transition to %s: %v", tc.name, status, err)
			}
		}
		if _, err := store.Transition(ctx, ref, tc.to, jobs.Fields{}); !errors.Is(err, services.ErrInvalidTransition) {
			t.Errorf("%s: expected invalid transition, got %v", tc.name, err)
		}
	}
}

func TestTransitionUnknownStatus(t *testing.T) {
	store := newStore(t)
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF100004"})
	if _, err := store.Transition(context.Background(), "REF100004", jobs.Status("paused"), jobs.Fields{}); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestTransitionMissingJob(t *testing.T) {
	store := newStore(t)
	if _, err := store.Transition(context.Background(), "REF999999", jobs.StatusRunning, jobs.Fields{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTerminalReplayIsNoOp(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF100005"})

	if _, err := store.Transition(ctx, "REF100005", jobs.StatusRunning, jobs.Fields{}); err != nil {
		t.Fatalf("to running: %v", err)
	}
	msg := jobs.StringPtr("decode: unexpected token")
	first, err := store.Transition(ctx, "REF100005", jobs.StatusFailed, jobs.Fields{ErrorMessage: msg})
	if err != nil {
		t.Fatalf("to failed: %v", err)
	}

	replay, err := store.Transition(ctx, "REF100005", jobs.StatusFailed, jobs.Fields{ErrorMessage: msg})
	if err != nil {
		t.Fatalf("replay should be a no-op, got %v", err)
	}
	if !replay.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("replay mutated updated_at: %v vs %v", replay.UpdatedAt, first.UpdatedAt)
	}

	// Same terminal status with different fields is still illegal.
	other := jobs.StringPtr("different message")
	if _, err := store.Transition(ctx, "REF100005", jobs.StatusFailed, jobs.Fields{ErrorMessage: other}); !errors.Is(err, services.ErrInvalidTransition) {
		t.Errorf("expected invalid transition for conflicting replay, got %v", err)
	}
}

func TestUpdatedAtMonotonic(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	rec := testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF100006"})

	time.Sleep(5 * time.Millisecond)
	running, err := store.Transition(ctx, "REF100006", jobs.StatusRunning, jobs.Fields{})
	if err != nil {
		t.Fatalf("to running: %v", err)
	}
	if !running.UpdatedAt.After(rec.UpdatedAt) {
		t.Errorf("updated_at did not advance: %v then %v", rec.UpdatedAt, running.UpdatedAt)
	}
}

func TestListAndNextForStatuses(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF300001"})
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF300002"})
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF300003"})
	if _, err := store.Transition(ctx, "REF300002", jobs.StatusRunning, jobs.Fields{}); err != nil {
		t.Fatalf("transition: %v", err)
	}

	created, err := store.List(ctx, jobs.StatusCreated)
	if err != nil {
		t.Fatalf("list created: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created count = %d", len(created))
	}

	next, err := store.NextForStatuses(ctx, jobs.StatusCreated)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next == nil || next.ReferenceID != "REF300001" {
		t.Errorf("next should be oldest created job, got %+v", next)
	}

	none, err := store.NextForStatuses(ctx, jobs.StatusSucceeded)
	if err != nil {
		t.Fatalf("next succeeded: %v", err)
	}
	if none != nil {
		t.Errorf("expected nil for empty status set, got %+v", none)
	}
}

func TestStatsClearAndRetry(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF400001"})
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF400002"})
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF400003"})

	mustTransition := func(ref string, statuses ...jobs.Status) {
		t.Helper()
		for _, status := range statuses {
			if _, err := store.Transition(ctx, ref, status, jobs.Fields{}); err != nil {
				t.Fatalf("transition %s to %s: %v", ref, status, err)
			}
		}
	}
	mustTransition("REF400001", jobs.StatusRunning, jobs.StatusSucceeded)
	mustTransition("REF400002", jobs.StatusRunning, jobs.StatusFailed)

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[jobs.StatusSucceeded] != 1 || stats[jobs.StatusFailed] != 1 || stats[jobs.StatusCreated] != 1 {
		t.Fatalf("stats = %v", stats)
	}

	retried, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("retried = %d", retried)
	}
	rec, err := store.Get(ctx, "REF400002")
	if err != nil {
		t.Fatalf("get retried: %v", err)
	}
	if rec.Status != jobs.StatusCreated || rec.ErrorMessage != "" || rec.FinishedAt != nil {
		t.Errorf("retried job not reset: %+v", rec)
	}

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("clear completed: %v", err)
	}
	if cleared != 1 {
		t.Errorf("cleared = %d", cleared)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Total != 2 || health.Created != 2 {
		t.Errorf("health = %+v", health)
	}
}

func TestRemove(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF500001"})

	if err := store.Remove(ctx, "REF500001"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(ctx, "REF500001"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestUpdateStage(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	testsupport.NewJob(t, store, jobs.Metadata{ReferenceID: "REF510001"})

	if err := store.UpdateStage(ctx, "REF510001", "flatten"); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for stage update on created job, got %v", err)
	}

	if _, err := store.Transition(ctx, "REF510001", jobs.StatusRunning, jobs.Fields{
		Stage: jobs.StringPtr("fetch"),
	}); err != nil {
		t.Fatalf("start job: %v", err)
	}

	if err := store.UpdateStage(ctx, "REF510001", "flatten"); err != nil {
		t.Fatalf("update stage: %v", err)
	}

	rec, err := store.Get(ctx, "REF510001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Stage != "flatten" {
		t.Errorf("stage = %q, want flatten", rec.Stage)
	}
	if rec.Status != jobs.StatusRunning {
		t.Errorf("status = %s, want running", rec.Status)
	}
}

func TestParseStatus(t *testing.T) {
	if status, err := jobs.ParseStatus(" Running "); err != nil || status != jobs.StatusRunning {
		t.Fatalf("parse running: %v %v", status, err)
	}
	if _, err := jobs.ParseStatus("queued"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

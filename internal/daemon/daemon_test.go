package daemon_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"jsonpress/internal/daemon"
	"jsonpress/internal/jobs"
	"jsonpress/internal/logging"
	"jsonpress/internal/testsupport"
)

func TestDaemonEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.SettleMillis = 20
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	if !d.Running() {
		t.Fatal("daemon should report running")
	}
	if d.APIAddr() == "" {
		t.Fatal("api address should be bound")
	}

	// Drop an input file and wait for it to flow through to completion.
	path := filepath.Join(cfg.Paths.InputDir, "alice@example.com_orders.json")
	testsupport.WriteFile(t, path, []byte(`{"items":[{"sku":"A"},{"sku":"B"}]}`))

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats[jobs.StatusSucceeded] == 1 {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("job did not complete end to end")
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestDaemonStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.Enabled = false
	cfg.API.Enabled = false
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	d.Stop()
	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped")
	}
}

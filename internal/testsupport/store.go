package testsupport

import (
	"context"
	"testing"

	"jsonpress/internal/config"
	"jsonpress/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, meta jobs.Metadata) *jobs.Record {
	t.Helper()

	if meta.OwnerEmail == "" {
		meta.OwnerEmail = "tester@example.com"
	}
	if meta.FileName == "" {
		meta.FileName = "sample.json"
	}
	if meta.OutputFormat == "" {
		meta.OutputFormat = "csv"
	}
	rec, err := store.Create(context.Background(), meta)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return rec
}

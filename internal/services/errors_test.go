package services_test

import (
	"errors"
	"testing"

	"jsonpress/internal/services"
)

func TestWrapPreservesMarker(t *testing.T) {
	cause := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "blob", "get", "fetch input", cause)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "blob", "put", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected default transient marker, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name   string
		marker error
		want   bool
	}{
		{"transient", services.ErrTransient, true},
		{"timeout", services.ErrTimeout, true},
		{"malformed", services.ErrMalformedInput, false},
		{"schema", services.ErrSchemaConflict, false},
		{"duplicate", services.ErrDuplicateJob, false},
		{"transition", services.ErrInvalidTransition, false},
		{"not found", services.ErrNotFound, false},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "component", "op", "detail", nil)
		if got := services.IsRetryable(err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMessageStripsMarkerPrefix(t *testing.T) {
	err := services.Wrap(services.ErrSchemaConflict, "flatten", "pass", "column path a_x collides", nil)
	got := services.Message(err)
	want := "flatten: pass: column path a_x collides"
	if got != want {
		t.Fatalf("Message = %q, want %q", got, want)
	}
	if services.Message(nil) != "" {
		t.Fatal("Message(nil) should be empty")
	}
}

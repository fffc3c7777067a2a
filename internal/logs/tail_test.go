package logs_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"jsonpress/internal/logs"
)

func TestTailReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsonpress.log")
	content := "one\ntwo\nthree\nfour\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var buf bytes.Buffer
	if err := logs.Tail(context.Background(), &buf, path, logs.TailOptions{Lines: 2}); err != nil {
		t.Fatalf("Tail: %v", err)
	}

	if got, want := buf.String(), "three\nfour\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestTailMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")

	var buf bytes.Buffer
	if err := logs.Tail(context.Background(), &buf, path, logs.TailOptions{Lines: 10}); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestTailFollowPicksUpAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsonpress.log")
	if err := os.WriteFile(path, []byte("first\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var buf bytes.Buffer
	out := writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	})

	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, out, path, logs.TailOptions{
			Lines:        1,
			Follow:       true,
			PollInterval: 10 * time.Millisecond,
		})
	}()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := file.WriteString("second\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	file.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		got := buf.String()
		mu.Unlock()
		if strings.Contains(got, "second") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("appended line never surfaced, output %q", got)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Tail returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Tail did not stop after cancel")
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

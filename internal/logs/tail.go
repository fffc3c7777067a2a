// Package logs reads back the daemon log file for the CLI.
package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions controls how much of the log file Tail returns.
type TailOptions struct {
	// Lines is the number of trailing lines to return initially.
	Lines int
	// Follow keeps reading appended lines until ctx is canceled.
	Follow bool
	// PollInterval is how often Follow checks for new content.
	PollInterval time.Duration
}

// Tail prints the last opts.Lines lines of the file at path to w. With
// Follow it then keeps polling for appended lines until ctx is canceled,
// in which case it returns nil.
func Tail(ctx context.Context, w io.Writer, path string, opts TailOptions) error {
	lines, offset, err := lastLines(path, opts.Lines)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}

	if !opts.Follow {
		return nil
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}

		next, err := readFrom(path, offset, w)
		if err != nil {
			return err
		}
		offset = next
	}
}

// lastLines returns up to limit trailing lines and the end-of-file offset.
// A missing file is treated as empty.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		limit = 1
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// readFrom copies complete lines starting at offset to w and returns the
// new offset. Truncation (log rotation) restarts from the beginning.
func readFrom(path string, offset int64, w io.Writer) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	read := offset
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			fmt.Fprint(w, line)
			read += int64(len(line))
			continue
		}
		if errors.Is(err, io.EOF) {
			// Hold back a partial trailing line until it is complete.
			return read, nil
		}
		return read, fmt.Errorf("read log file: %w", err)
	}
}

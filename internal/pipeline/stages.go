package pipeline

import (
	"context"
	"fmt"
	"time"

	"jsonpress/internal/flatten"
	"jsonpress/internal/jobs"
	"jsonpress/internal/record"
)

// Stage names recorded on the job as it progresses.
const (
	StageFetch   = "fetch"
	StageFlatten = "flatten"
	StageExport  = "export"
)

// execution carries per-job state between stages. It lives only for the
// duration of one job run; nothing here is persisted directly.
type execution struct {
	job    *jobs.Record
	raw    []byte
	batch  []*record.Node
	table  *flatten.Table
	output []byte
	// outputLocation is set by the export stage once the object is stored.
	outputLocation string
}

type stage struct {
	name string
	run  func(ctx context.Context, exec *execution) error
}

func (m *Manager) stages() []stage {
	return []stage{
		{name: StageFetch, run: m.runFetch},
		{name: StageFlatten, run: m.runFlatten},
		{name: StageExport, run: m.runExport},
	}
}

// runFetch reads the input object and decodes it into a record batch. Reads
// are retried because the object may land on slow or flaky storage; decode
// failures are terminal.
func (m *Manager) runFetch(ctx context.Context, exec *execution) error {
	err := m.retry.Do(ctx, func(ctx context.Context) error {
		readCtx, cancel := context.WithTimeout(ctx, m.ioTimeout)
		defer cancel()
		data, err := m.input.Get(readCtx, exec.job.InputLocation)
		if err != nil {
			return err
		}
		exec.raw = data
		return nil
	})
	if err != nil {
		return err
	}

	batch, err := record.DecodeBatch(exec.raw)
	if err != nil {
		return err
	}
	exec.batch = batch
	exec.raw = nil
	return nil
}

// runFlatten is pure computation; it never retries.
func (m *Manager) runFlatten(ctx context.Context, exec *execution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	table, err := flatten.Flatten(exec.batch, flatten.Options{
		EmptyLists: flatten.PolicyFromString(m.cfg.Flatten.EmptyLists),
	})
	if err != nil {
		return err
	}
	exec.table = table
	exec.batch = nil
	return nil
}

// runExport encodes the table and stores it under the owner's prefix.
func (m *Manager) runExport(ctx context.Context, exec *execution) error {
	format := exec.job.OutputFormat
	if format == "" {
		format = m.cfg.Flatten.OutputFormat
	}
	data, err := flatten.Encode(exec.table, format)
	if err != nil {
		return err
	}
	exec.output = data

	location := outputLocation(exec.job, format, time.Now().UTC())
	return m.retry.Do(ctx, func(ctx context.Context) error {
		writeCtx, cancel := context.WithTimeout(ctx, m.ioTimeout)
		defer cancel()
		stored, err := m.output.Put(writeCtx, location, exec.output)
		if err != nil {
			return err
		}
		exec.outputLocation = stored
		return nil
	})
}

// outputLocation builds the owner-scoped object key, for example
// "alice@example.com/REF123456_output_20260826T101500Z.csv".
func outputLocation(job *jobs.Record, format string, now time.Time) string {
	owner := job.OwnerEmail
	if owner == "" {
		owner = "unknown"
	}
	return fmt.Sprintf("%s/%s_output_%s.%s",
		owner,
		job.ReferenceID,
		now.Format("20060102T150405Z"),
		flatten.Extension(format),
	)
}

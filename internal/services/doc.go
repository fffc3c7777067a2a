// Package services defines the error taxonomy shared across the pipeline.
//
// Every failure that reaches the pipeline coordinator is tagged with one of
// the exported sentinel errors so the coordinator can decide between a
// bounded retry (transient I/O) and a terminal job failure (malformed input,
// schema conflicts, contract violations). Wrap attaches component and
// operation context while preserving the marker for errors.Is checks.
package services

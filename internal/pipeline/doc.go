// Package pipeline coordinates job execution from queue to output.
//
// The manager polls the job store for created jobs and drives each one
// through three stages: fetch the input object, flatten it, and export the
// table. The manager is the only component that classifies stage errors and
// writes terminal statuses; stages just return wrapped errors. Transient I/O
// failures are retried with bounded exponential backoff, everything else
// fails the job on first occurrence.
package pipeline

package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusCreated,
	StatusRunning,
	StatusSucceeded,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// legalTransitions is the complete lifecycle graph. Anything absent here is
// rejected, including moves out of terminal states.
var legalTransitions = map[Status][]Status{
	StatusCreated: {StatusRunning, StatusFailed},
	StatusRunning: {StatusSucceeded, StatusFailed},
}

// ParseStatus normalizes and validates a status string.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return status, nil
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// CanTransition reports whether moving from s to target is legal.
func (s Status) CanTransition(target Status) bool {
	for _, next := range legalTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Record is one persisted job.
type Record struct {
	ID             int64
	ReferenceID    string
	OwnerEmail     string
	FileName       string
	InputLocation  string
	OutputFormat   string
	Status         Status
	Stage          string
	OutputLocation string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
}

// Metadata carries the caller-supplied attributes of a new job.
type Metadata struct {
	ReferenceID   string
	OwnerEmail    string
	FileName      string
	InputLocation string
	OutputFormat  string
}

// Fields holds the optional attributes a transition may update. Nil pointers
// leave the stored value untouched.
type Fields struct {
	Stage          *string
	InputLocation  *string
	OutputLocation *string
	ErrorMessage   *string
}

// matches reports whether every supplied field already equals the stored
// value, which makes a repeated terminal transition a harmless replay.
func (f Fields) matches(rec *Record) bool {
	if f.Stage != nil && *f.Stage != rec.Stage {
		return false
	}
	if f.InputLocation != nil && *f.InputLocation != rec.InputLocation {
		return false
	}
	if f.OutputLocation != nil && *f.OutputLocation != rec.OutputLocation {
		return false
	}
	if f.ErrorMessage != nil && *f.ErrorMessage != rec.ErrorMessage {
		return false
	}
	return true
}

// StringPtr is a convenience for building Fields literals.
func StringPtr(v string) *string { return &v }

// HealthSummary aggregates queue counts for diagnostics.
type HealthSummary struct {
	Total     int
	Created   int
	Running   int
	Succeeded int
	Failed    int
}

package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedInput marks input that could not be parsed into a record tree.
	ErrMalformedInput = errors.New("malformed input")
	// ErrSchemaConflict marks colliding column paths or irreconcilable mixed types.
	ErrSchemaConflict = errors.New("schema conflict")
	// ErrNotFound marks a missing job record or blob location.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateJob marks an attempt to create a job whose reference id already exists.
	ErrDuplicateJob = errors.New("duplicate job")
	// ErrInvalidTransition marks a status change that is not reachable from the current status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrTransient marks collaborator failures expected to clear on retry.
	ErrTransient = errors.New("transient failure")
	// ErrTimeout marks a collaborator call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrConfiguration marks unusable configuration discovered at runtime.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether the coordinator may retry the failed call.
// Only transient collaborator failures and timeouts qualify; everything else
// is either deterministic or a contract violation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// Message extracts a human-readable description suitable for the persisted
// error_message field, stripping the sentinel prefix when present.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	for _, marker := range []error{
		ErrMalformedInput, ErrSchemaConflict, ErrNotFound, ErrDuplicateJob,
		ErrInvalidTransition, ErrTransient, ErrTimeout, ErrConfiguration,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(msg, prefix))
		}
	}
	return msg
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

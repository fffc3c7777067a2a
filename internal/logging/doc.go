// Package logging builds the slog loggers used by the daemon and CLI.
//
// It supports a console handler (key=value lines with a leading component
// label) and a JSON handler, selected by configuration. Helpers attach
// standardized fields (reference_id, stage, correlation_id) pulled from
// context so every log line produced inside a job carries its identity.
package logging

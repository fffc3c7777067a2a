package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jsonpress/internal/config"
	"jsonpress/internal/services"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

const jobColumns = `id, reference_id, owner_email, file_name, input_location, output_format,
	status, stage, output_location, error_message, created_at, updated_at, started_at, finished_at`

// Create inserts a new job in the created state. A reference identifier that
// already exists yields a duplicate-job error regardless of the stored state.
func (s *Store) Create(ctx context.Context, meta Metadata) (*Record, error) {
	if strings.TrimSpace(meta.ReferenceID) == "" {
		return nil, services.Wrap(services.ErrMalformedInput, "jobs", "create", "reference id is required", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE reference_id = ?`, meta.ReferenceID).Scan(&count); err != nil {
		return nil, fmt.Errorf("check reference id: %w", err)
	}
	if count > 0 {
		return nil, services.Wrap(services.ErrDuplicateJob, "jobs", "create",
			fmt.Sprintf("job %s already exists", meta.ReferenceID), nil)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO jobs (
            reference_id, owner_email, file_name, input_location, output_format,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ReferenceID,
		meta.OwnerEmail,
		meta.FileName,
		meta.InputLocation,
		meta.OutputFormat,
		StatusCreated,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	rec, err := getByReference(ctx, tx, meta.ReferenceID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}
	return rec, nil
}

// Get fetches a job by reference identifier.
func (s *Store) Get(ctx context.Context, referenceID string) (*Record, error) {
	return getByReference(ctx, s.db, referenceID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getByReference(ctx context.Context, q querier, referenceID string) (*Record, error) {
	row := q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE reference_id = ?`, referenceID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "jobs", "get",
			fmt.Sprintf("job %s not found", referenceID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return rec, nil
}

// FindByInputLocation returns the newest job for an input location, or nil
// when none exists.
func (s *Store) FindByInputLocation(ctx context.Context, location string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE input_location = ? ORDER BY id DESC LIMIT 1`,
		location,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by input location: %w", err)
	}
	return rec, nil
}

// List returns jobs filtered by status set, oldest first. Without statuses it
// returns every job.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// NextForStatuses returns the oldest job matching any of the provided
// statuses, or nil when none is waiting.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Record, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (` + placeholders + `) ORDER BY created_at, id LIMIT 1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next job: %w", err)
	}
	return rec, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health summarizes queue counts and verifies the database answers queries.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Created:   stats[StatusCreated],
		Running:   stats[StatusRunning],
		Succeeded: stats[StatusSucceeded],
		Failed:    stats[StatusFailed],
	}
	for _, count := range stats {
		summary.Total += count
	}
	return summary, nil
}

// ClearCompleted deletes succeeded jobs and returns how many were removed.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE status = ?`, StatusSucceeded)
	if err != nil {
		return 0, fmt.Errorf("clear completed jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed deletes failed jobs and returns how many were removed.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed jobs: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes a single job by reference identifier.
func (s *Store) Remove(ctx context.Context, referenceID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE reference_id = ?`, referenceID)
	if err != nil {
		return fmt.Errorf("remove job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove job: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "jobs", "remove",
			fmt.Sprintf("job %s not found", referenceID), nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec            Record
		status         string
		stage          sql.NullString
		outputLocation sql.NullString
		errorMessage   sql.NullString
		createdAt      string
		updatedAt      string
		startedAt      sql.NullString
		finishedAt     sql.NullString
	)
	if err := row.Scan(
		&rec.ID,
		&rec.ReferenceID,
		&rec.OwnerEmail,
		&rec.FileName,
		&rec.InputLocation,
		&rec.OutputFormat,
		&status,
		&stage,
		&outputLocation,
		&errorMessage,
		&createdAt,
		&updatedAt,
		&startedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}

	rec.Status = Status(status)
	rec.Stage = stage.String
	rec.OutputLocation = outputLocation.String
	rec.ErrorMessage = errorMessage.String

	var err error
	if rec.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	if startedAt.Valid {
		t, err := parseTimestamp(startedAt.String)
		if err != nil {
			return nil, err
		}
		rec.StartedAt = &t
	}
	if finishedAt.Valid {
		t, err := parseTimestamp(finishedAt.String)
		if err != nil {
			return nil, err
		}
		rec.FinishedAt = &t
	}
	return &rec, nil
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

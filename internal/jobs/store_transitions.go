package jobs

import (
	"context"
	"fmt"
	"time"

	"jsonpress/internal/services"
)

// Transition moves a job to a new status and applies the supplied field
// updates atomically. Only supplied fields change; everything else keeps its
// stored value. Re-applying a terminal transition with matching fields is a
// no-op so delivery retries stay harmless.
func (s *Store) Transition(ctx context.Context, referenceID string, target Status, fields Fields) (*Record, error) {
	if _, ok := statusSet[target]; !ok {
		return nil, services.Wrap(services.ErrInvalidTransition, "jobs", "transition",
			fmt.Sprintf("unknown status %q", target), nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getByReference(ctx, tx, referenceID)
	if err != nil {
		return nil, err
	}

	if current.Status == target && target.IsTerminal() && fields.matches(current) {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit transition: %w", err)
		}
		return current, nil
	}

	if !current.Status.CanTransition(target) {
		return nil, services.Wrap(services.ErrInvalidTransition, "jobs", "transition",
			fmt.Sprintf("job %s cannot move from %s to %s", referenceID, current.Status, target), nil)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	setClauses := []string{"status = ?", "updated_at = ?"}
	args := []any{target, now}

	if fields.Stage != nil {
		setClauses = append(setClauses, "stage = ?")
		args = append(args, nullableString(*fields.Stage))
	}
	if fields.InputLocation != nil {
		setClauses = append(setClauses, "input_location = ?")
		args = append(args, *fields.InputLocation)
	}
	if fields.OutputLocation != nil {
		setClauses = append(setClauses, "output_location = ?")
		args = append(args, nullableString(*fields.OutputLocation))
	}
	if fields.ErrorMessage != nil {
		setClauses = append(setClauses, "error_message = ?")
		args = append(args, nullableString(*fields.ErrorMessage))
	}
	if target == StatusRunning && current.StartedAt == nil {
		setClauses = append(setClauses, "started_at = ?")
		args = append(args, now)
	}
	if target.IsTerminal() {
		setClauses = append(setClauses, "finished_at = ?")
		args = append(args, now)
	}

	query := "UPDATE jobs SET "
	for i, clause := range setClauses {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE reference_id = ?"
	args = append(args, referenceID)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	rec, err := getByReference(ctx, tx, referenceID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return rec, nil
}

// UpdateStage records pipeline progress on a running job without moving its
// status. Only stage and updated_at change.
func (s *Store) UpdateStage(ctx context.Context, referenceID, stage string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET stage = ?, updated_at = ? WHERE reference_id = ? AND status = ?`,
		nullableString(stage),
		now,
		referenceID,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("update job stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job stage: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrInvalidTransition, "jobs", "update stage",
			fmt.Sprintf("job %s is not running", referenceID), nil)
	}
	return nil
}

// RetryFailed moves failed jobs back to created for reprocessing. With no
// reference identifiers it retries every failed job. This is a maintenance
// operation outside the lifecycle graph; progress fields are cleared so the
// job runs fresh.
func (s *Store) RetryFailed(ctx context.Context, referenceIDs ...string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(referenceIDs) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE jobs
            SET status = ?, stage = NULL, output_location = NULL, error_message = NULL,
                started_at = NULL, finished_at = NULL, updated_at = ?
            WHERE status = ?`,
			StatusCreated,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(referenceIDs))
	args := make([]any, 0, len(referenceIDs)+3)
	args = append(args, StatusCreated, now, StatusFailed)
	for _, ref := range referenceIDs {
		args = append(args, ref)
	}
	query := `UPDATE jobs
        SET status = ?, stage = NULL, output_location = NULL, error_message = NULL,
            started_at = NULL, finished_at = NULL, updated_at = ?
        WHERE status = ? AND reference_id IN (` + placeholders + `)`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

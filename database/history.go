package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Recorder writes and reads run history.
type Recorder struct {
	db *Database
}

func NewRecorder(db *Database) *Recorder {
	return &Recorder{db: db}
}

// RecordRun persists a run and all of its changes in a single transaction.
// Any failure aborts the whole batch.
func (r *Recorder) RecordRun(ctx context.Context, run SyncRun) (err error) {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning run-history transaction: %w", err)
	}
	defer rollbackOrCommit(ctx, tx, &err)

	_, err = tx.Exec(ctx, insertRun,
		run.RunID, run.StartedAt, run.FinishedAt,
		run.Created, run.Deleted, run.Updated, run.Skipped, run.DryRun)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.RunID, err)
	}

	for _, ch := range run.Changes {
		_, err = tx.Exec(ctx, insertHostChange,
			ch.ChangeID, run.RunID, ch.HostName, ch.Action,
			ch.Category, ch.OldValue, ch.NewValue, ch.At)
		if err != nil {
			return fmt.Errorf("inserting change for host %s: %w", ch.HostName, err)
		}
	}
	return nil
}

// ListRuns returns runs newest first, without their change rows.
func (r *Recorder) ListRuns(ctx context.Context, limit, offset int) ([]SyncRun, error) {
	rows, err := r.db.pool.Query(ctx, listRuns, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		if err := rows.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt,
			&run.Created, &run.Deleted, &run.Updated, &run.Skipped, &run.DryRun); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a single run with its change rows attached.
func (r *Recorder) GetRun(ctx context.Context, id uuid.UUID) (SyncRun, error) {
	var run SyncRun
	err := r.db.pool.QueryRow(ctx, getRun, id).Scan(
		&run.RunID, &run.StartedAt, &run.FinishedAt,
		&run.Created, &run.Deleted, &run.Updated, &run.Skipped, &run.DryRun)
	if err != nil {
		return SyncRun{}, fmt.Errorf("fetching run %s: %w", id, err)
	}
	run.Changes, err = r.ListRunChanges(ctx, id)
	if err != nil {
		return SyncRun{}, err
	}
	return run, nil
}

// ListRunChanges returns the change rows for one run, oldest first.
func (r *Recorder) ListRunChanges(ctx context.Context, id uuid.UUID) ([]HostChange, error) {
	rows, err := r.db.pool.Query(ctx, listRunChanges, id)
	if err != nil {
		return nil, fmt.Errorf("listing changes for run %s: %w", id, err)
	}
	defer rows.Close()

	var changes []HostChange
	for rows.Next() {
		var ch HostChange
		if err := rows.Scan(&ch.ChangeID, &ch.HostName, &ch.Action,
			&ch.Category, &ch.OldValue, &ch.NewValue, &ch.At); err != nil {
			return nil, fmt.Errorf("scanning change row: %w", err)
		}
		changes = append(changes, ch)
	}
	return changes, rows.Err()
}

package database

// SQL statements for the run-history store.

const (
	createSchema = `
		CREATE TABLE IF NOT EXISTS sync_runs (
			run_id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			created_hosts INT NOT NULL,
			deleted_hosts INT NOT NULL,
			updated_hosts INT NOT NULL,
			skipped_hosts INT NOT NULL,
			dry_run BOOLEAN NOT NULL
		);
		CREATE TABLE IF NOT EXISTS host_changes (
			change_id UUID PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES sync_runs(run_id),
			host_name TEXT NOT NULL,
			action TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			changed_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS host_changes_run_idx ON host_changes (run_id);`

	insertRun = `
		INSERT INTO sync_runs (run_id, started_at, finished_at, created_hosts, deleted_hosts, updated_hosts, skipped_hosts, dry_run)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertHostChange = `
		INSERT INTO host_changes (change_id, run_id, host_name, action, category, old_value, new_value, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listRuns = `
		SELECT run_id, started_at, finished_at, created_hosts, deleted_hosts, updated_hosts, skipped_hosts, dry_run
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2`

	getRun = `
		SELECT run_id, started_at, finished_at, created_hosts, deleted_hosts, updated_hosts, skipped_hosts, dry_run
		FROM sync_runs
		WHERE run_id = $1`

	listRunChanges = `
		SELECT change_id, host_name, action, category, old_value, new_value, changed_at
		FROM host_changes
		WHERE run_id = $1
		ORDER BY changed_at, host_name`
)

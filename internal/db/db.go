// Package db provides PostgreSQL persistence for finished pipeline runs.
// The controller owns runs in memory; archival happens once, at the
// terminal state, and the stored history is read-only afterwards.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/reelsmith/internal/types"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the archival tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// ArchiveRun persists a terminal run with its attempt history, decision
// trail, and last quality report in one transaction.
func (db *DB) ArchiveRun(ctx context.Context, run *types.PipelineRun) error {
	if run == nil {
		return fmt.Errorf("cannot archive nil run")
	}
	if !run.Status.IsTerminal() {
		return fmt.Errorf("cannot archive run %s in non-terminal status %q", run.ID, run.Status)
	}

	artifacts, err := json.Marshal(run.Artifacts)
	if err != nil {
		return fmt.Errorf("failed to marshal artifacts: %w", err)
	}
	var report []byte
	if run.LastReport != nil {
		report, err = json.Marshal(run.LastReport)
		if err != nil {
			return fmt.Errorf("failed to marshal quality report: %w", err)
		}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, prompt, platform, content_mode, duration_seconds, budget_usd,
		                   status, spend_usd, reloop_count, abort_reason, artifacts, last_report,
		                   created_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO NOTHING`,
		run.ID, run.Request.Prompt, string(run.Request.Platform), string(run.Request.ContentMode),
		run.Request.DurationSeconds, run.Request.BudgetUSD, string(run.Status), run.SpendUSD,
		run.ReloopCount, run.AbortReason, artifacts, report, run.CreatedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, a := range run.Attempts {
		_, err = tx.Exec(ctx,
			`INSERT INTO run_attempts (run_id, phase, attempt_index, candidate_id, inputs_hash,
			                           artifact_ref, cost_usd, elapsed_ms, outcome, failure_class,
			                           error, started_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			run.ID, string(a.Phase), a.Index, a.CandidateID, a.InputsHash,
			a.ArtifactRef, a.CostUSD, a.Elapsed.Milliseconds(), string(a.Outcome),
			string(a.FailureClass), a.Error, a.StartedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert attempt %s/%d: %w", a.Phase, a.Index, err)
		}
	}

	for i, d := range run.Decisions {
		_, err = tx.Exec(ctx,
			`INSERT INTO run_decisions (run_id, decision_index, strategy, target_phase,
			                            classification, justification, composite_score, decided_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			run.ID, i, string(d.Strategy), string(d.TargetPhase),
			d.Classification, d.Justification, d.CompositeScore, d.DecidedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert decision %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}
	return nil
}

// GetRun retrieves an archived run by ID, or nil when not found.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*RunRecord, error) {
	var rec RunRecord
	err := db.pool.QueryRow(ctx,
		`SELECT id, prompt, platform, content_mode, duration_seconds, budget_usd,
		        status, spend_usd, reloop_count, COALESCE(abort_reason, ''), created_at, finished_at
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&rec.ID, &rec.Prompt, &rec.Platform, &rec.ContentMode, &rec.DurationSeconds,
		&rec.BudgetUSD, &rec.Status, &rec.SpendUSD, &rec.ReloopCount, &rec.AbortReason,
		&rec.CreatedAt, &rec.FinishedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &rec, nil
}

// RunFilters holds optional filters for listing archived runs
type RunFilters struct {
	Status   string
	Platform string
	Limit    int
}

// ListRuns retrieves archived runs with optional filters, newest first.
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]RunRecord, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, prompt, platform, content_mode, duration_seconds, budget_usd,
		       status, spend_usd, reloop_count, COALESCE(abort_reason, ''), created_at, finished_at
		FROM runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.Platform != "" {
		query += fmt.Sprintf(" AND platform = $%d", argNum)
		args = append(args, filters.Platform)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.Prompt, &rec.Platform, &rec.ContentMode,
			&rec.DurationSeconds, &rec.BudgetUSD, &rec.Status, &rec.SpendUSD,
			&rec.ReloopCount, &rec.AbortReason, &rec.CreatedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetAttempts retrieves the attempt history of an archived run in issuance order.
func (db *DB) GetAttempts(ctx context.Context, runID uuid.UUID) ([]AttemptRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT phase, attempt_index, COALESCE(candidate_id, ''), COALESCE(inputs_hash, ''),
		        COALESCE(artifact_ref, ''), cost_usd, elapsed_ms, outcome,
		        COALESCE(failure_class, ''), COALESCE(error, ''), started_at
		 FROM run_attempts WHERE run_id = $1 ORDER BY started_at ASC, attempt_index ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}
	defer rows.Close()

	var attempts []AttemptRecord
	for rows.Next() {
		var a AttemptRecord
		if err := rows.Scan(&a.Phase, &a.Index, &a.CandidateID, &a.InputsHash,
			&a.ArtifactRef, &a.CostUSD, &a.ElapsedMS, &a.Outcome,
			&a.FailureClass, &a.Error, &a.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

// GetDecisions retrieves the reloop decision trail of an archived run.
func (db *DB) GetDecisions(ctx context.Context, runID uuid.UUID) ([]DecisionRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT strategy, COALESCE(target_phase, ''), classification, justification,
		        composite_score, decided_at
		 FROM run_decisions WHERE run_id = $1 ORDER BY decision_index ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get decisions: %w", err)
	}
	defer rows.Close()

	var decisions []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		if err := rows.Scan(&d.Strategy, &d.TargetPhase, &d.Classification,
			&d.Justification, &d.CompositeScore, &d.DecidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

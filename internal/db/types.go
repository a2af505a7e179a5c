package db

import (
	"time"

	"github.com/google/uuid"
)

// Schema creates the archival tables. Applied on startup by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               UUID PRIMARY KEY,
	prompt           TEXT NOT NULL,
	platform         TEXT NOT NULL,
	content_mode     TEXT NOT NULL,
	duration_seconds INT NOT NULL,
	budget_usd       DOUBLE PRECISION NOT NULL,
	status           TEXT NOT NULL,
	spend_usd        DOUBLE PRECISION NOT NULL,
	reloop_count     INT NOT NULL,
	abort_reason     TEXT,
	artifacts        JSONB,
	last_report      JSONB,
	created_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_attempts (
	id            BIGSERIAL PRIMARY KEY,
	run_id        UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	phase         TEXT NOT NULL,
	attempt_index INT NOT NULL,
	candidate_id  TEXT,
	inputs_hash   TEXT,
	artifact_ref  TEXT,
	cost_usd      DOUBLE PRECISION NOT NULL,
	elapsed_ms    BIGINT NOT NULL,
	outcome       TEXT NOT NULL,
	failure_class TEXT,
	error         TEXT,
	started_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS run_decisions (
	id              BIGSERIAL PRIMARY KEY,
	run_id          UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	decision_index  INT NOT NULL,
	strategy        TEXT NOT NULL,
	target_phase    TEXT,
	classification  TEXT NOT NULL,
	justification   TEXT NOT NULL,
	composite_score DOUBLE PRECISION NOT NULL,
	decided_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_attempts_run_id ON run_attempts(run_id);
CREATE INDEX IF NOT EXISTS idx_run_decisions_run_id ON run_decisions(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// RunRecord is one archived run row.
type RunRecord struct {
	ID              uuid.UUID  `json:"id"`
	Prompt          string     `json:"prompt"`
	Platform        string     `json:"platform"`
	ContentMode     string     `json:"content_mode"`
	DurationSeconds int        `json:"duration_seconds"`
	BudgetUSD       float64    `json:"budget_usd"`
	Status          string     `json:"status"`
	SpendUSD        float64    `json:"spend_usd"`
	ReloopCount     int        `json:"reloop_count"`
	AbortReason     string     `json:"abort_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// AttemptRecord is one archived attempt row.
type AttemptRecord struct {
	Phase        string    `json:"phase"`
	Index        int       `json:"index"`
	CandidateID  string    `json:"candidate_id,omitempty"`
	InputsHash   string    `json:"inputs_hash,omitempty"`
	ArtifactRef  string    `json:"artifact_ref,omitempty"`
	CostUSD      float64   `json:"cost_usd"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	Outcome      string    `json:"outcome"`
	FailureClass string    `json:"failure_class,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
}

// DecisionRecord is one archived reloop decision row.
type DecisionRecord struct {
	Strategy       string    `json:"strategy"`
	TargetPhase    string    `json:"target_phase,omitempty"`
	Classification string    `json:"classification"`
	Justification  string    `json:"justification"`
	CompositeScore float64   `json:"composite_score"`
	DecidedAt      time.Time `json:"decided_at"`
}

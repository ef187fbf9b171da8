package datastore

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Scoring job statuses.
const (
	JobStatusPending   = "PENDING"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
)

// Scoring job sources.
const (
	SourcePairs         = "pairs"
	SourceEvaluation    = "evaluation"
	SourceTranscription = "transcription"
	SourceObjects       = "objects"
)

// ScoringJob maps to the scoring_jobs table.
type ScoringJob struct {
	ID          int             `json:"id"`
	JobName     sql.NullString  `json:"job_name,omitempty"`
	Source      string          `json:"source"`               // pairs, evaluation, transcription or objects
	Status      string          `json:"status"`               // PENDING, RUNNING, COMPLETED, FAILED
	Parameters  json.RawMessage `json:"parameters,omitempty"` // request parameters plus skipped pairs and warnings
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	StartedAt   sql.NullTime    `json:"started_at,omitempty"`
	CompletedAt sql.NullTime    `json:"completed_at,omitempty"`
}

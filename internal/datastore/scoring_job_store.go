package datastore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const scoringJobColumns = "id, job_name, source, status, parameters, created_at, updated_at, started_at, completed_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScoringJob(row rowScanner) (*ScoringJob, error) {
	job := &ScoringJob{}
	var params []byte
	if err := row.Scan(
		&job.ID,
		&job.JobName,
		&job.Source,
		&job.Status,
		&params,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	if len(params) > 0 && string(params) != "null" {
		job.Parameters = json.RawMessage(params)
	}
	return job, nil
}

// CreateScoringJob inserts job and sets its ID and timestamps.
func CreateScoringJob(job *ScoringJob) (int, error) {
	if DB == nil {
		return 0, ErrNotInitialized
	}
	if job.Status == "" {
		job.Status = JobStatusPending
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `
		INSERT INTO scoring_jobs (job_name, source, status, parameters, created_at, updated_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int
	err := DB.QueryRow(
		query,
		job.JobName,
		job.Source,
		job.Status,
		nullJSON(job.Parameters),
		job.CreatedAt,
		job.UpdatedAt,
		job.StartedAt,
		job.CompletedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create scoring job: %w", err)
	}
	job.ID = id
	return id, nil
}

// GetScoringJob retrieves a scoring job by ID.
func GetScoringJob(id int) (*ScoringJob, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	row := DB.QueryRow("SELECT "+scoringJobColumns+" FROM scoring_jobs WHERE id = $1", id)
	job, err := scanScoringJob(row)
	if err != nil {
		return nil, wrapNoRows(err, "scoring job", id)
	}
	return job, nil
}

// ListScoringJobs lists jobs newest first, optionally filtered by source and status.
func ListScoringJobs(source, status string) ([]*ScoringJob, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}

	var conditions []string
	var args []interface{}
	if source != "" {
		args = append(args, source)
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	query := "SELECT " + scoringJobColumns + " FROM scoring_jobs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*ScoringJob{}
	for rows.Next() {
		job, err := scanScoringJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scoring job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for scoring jobs: %w", err)
	}
	return jobs, nil
}

// UpdateScoringJobStatus sets the status of a job.
func UpdateScoringJobStatus(id int, status string) error {
	if DB == nil {
		return ErrNotInitialized
	}
	res, err := DB.Exec(`UPDATE scoring_jobs SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update status for job ID %d: %w", id, err)
	}
	return checkAffected(res, "scoring job", id)
}

// UpdateScoringJobParameters replaces the parameters document of a job.
func UpdateScoringJobParameters(id int, params json.RawMessage) error {
	if DB == nil {
		return ErrNotInitialized
	}
	res, err := DB.Exec(`UPDATE scoring_jobs SET parameters = $1, updated_at = $2 WHERE id = $3`, nullJSON(params), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update parameters for job ID %d: %w", id, err)
	}
	return checkAffected(res, "scoring job", id)
}

// UpdateScoringJobTimestamps sets started_at and/or completed_at; invalid
// values are left untouched.
func UpdateScoringJobTimestamps(id int, startTime, endTime sql.NullTime) error {
	if DB == nil {
		return ErrNotInitialized
	}

	var setClauses []string
	var args []interface{}
	if startTime.Valid {
		args = append(args, startTime.Time.UTC())
		setClauses = append(setClauses, fmt.Sprintf("started_at = $%d", len(args)))
	}
	if endTime.Valid {
		args = append(args, endTime.Time.UTC())
		setClauses = append(setClauses, fmt.Sprintf("completed_at = $%d", len(args)))
	}
	if len(setClauses) == 0 {
		return errors.New("no timestamps provided for update")
	}
	args = append(args, time.Now().UTC())
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE scoring_jobs SET %s WHERE id = $%d", strings.Join(setClauses, ", "), len(args))
	res, err := DB.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update timestamps for job ID %d: %w", id, err)
	}
	return checkAffected(res, "scoring job", id)
}

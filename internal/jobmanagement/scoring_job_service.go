package jobmanagement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/datastore"
)

// PairsFunc assembles the batch a job scores. It runs after the job is
// marked RUNNING, so slow hypothesis sources count towards the job.
type PairsFunc func(ctx context.Context) (*evaluationengine.Batch, error)

// JobParameters is what a job stores in its parameters column.
type JobParameters struct {
	Request  json.RawMessage            `json:"request,omitempty"`
	Skipped  []evaluationengine.Skipped `json:"skipped,omitempty"`
	Warnings []string                   `json:"warnings,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// JobService runs scoring jobs.
type JobService struct {
	Comparator *evaluationengine.Comparator
}

// NewJobService creates a JobService scoring with comparator.
func NewJobService(comparator *evaluationengine.Comparator) *JobService {
	return &JobService{Comparator: comparator}
}

// markFailed records a terminal FAILED state after a lifecycle update went wrong.
func markFailed(job *datastore.ScoringJob) {
	if err := datastore.UpdateScoringJobStatus(job.ID, datastore.JobStatusFailed); err != nil {
		log.Printf("CRITICAL: Failed to mark job ID %d as FAILED: %v", job.ID, err)
	}
	if err := datastore.UpdateScoringJobTimestamps(job.ID, sql.NullTime{}, sql.NullTime{Time: time.Now().UTC(), Valid: true}); err != nil {
		log.Printf("CRITICAL: Failed to update job ID %d completed_at timestamp: %v", job.ID, err)
	}
	job.Status = datastore.JobStatusFailed
}

// CreateAndRunScoringJob creates a job, scores the batch pairsFn produces and
// stores the results. The job is returned even when scoring fails, in which
// case it is FAILED and the error is returned alongside it.
func (s *JobService) CreateAndRunScoringJob(ctx context.Context, jobName sql.NullString, source string, params json.RawMessage, pairsFn PairsFunc) (*datastore.ScoringJob, error) {
	log.Printf("CreateAndRunScoringJob called: Name: %s, Source: %s", jobName.String, source)

	stored := JobParameters{Request: params}
	initial, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job parameters: %w", err)
	}

	job := &datastore.ScoringJob{
		JobName:    jobName,
		Source:     source,
		Status:     datastore.JobStatusPending,
		Parameters: initial,
	}
	jobID, err := datastore.CreateScoringJob(job)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring job in datastore: %w", err)
	}
	log.Printf("Job ID %d created with PENDING status.", jobID)

	if err := datastore.UpdateScoringJobStatus(jobID, datastore.JobStatusRunning); err != nil {
		log.Printf("Failed to update job ID %d status to RUNNING: %v. Attempting to mark as FAILED.", jobID, err)
		markFailed(job)
		return job, fmt.Errorf("failed to update job status to RUNNING: %w", err)
	}
	job.Status = datastore.JobStatusRunning

	startTime := time.Now().UTC()
	if err := datastore.UpdateScoringJobTimestamps(jobID, sql.NullTime{Time: startTime, Valid: true}, sql.NullTime{}); err != nil {
		log.Printf("Failed to update job ID %d started_at timestamp: %v. Attempting to mark as FAILED.", jobID, err)
		markFailed(job)
		return job, fmt.Errorf("failed to update job started_at: %w", err)
	}
	job.StartedAt = sql.NullTime{Time: startTime, Valid: true}
	log.Printf("Job ID %d status updated to RUNNING, started_at set.", jobID)

	report, runErr := s.run(ctx, pairsFn)
	if report != nil {
		stored.Skipped = report.Skipped
		stored.Warnings = report.Warnings
		if err := datastore.CreateUtteranceResults(jobID, ToUtteranceResults(report.Results)); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	completedTime := time.Now().UTC()

	status := datastore.JobStatusCompleted
	if runErr != nil {
		log.Printf("Scoring for Job ID %d failed: %v", jobID, runErr)
		status = datastore.JobStatusFailed
		stored.Error = runErr.Error()
	} else {
		log.Printf("Scoring for Job ID %d completed successfully.", jobID)
	}

	if final, err := json.Marshal(stored); err != nil {
		log.Printf("CRITICAL: Failed to marshal final parameters for job ID %d: %v", jobID, err)
	} else if err := datastore.UpdateScoringJobParameters(jobID, final); err != nil {
		log.Printf("CRITICAL: Failed to store final parameters for job ID %d: %v", jobID, err)
	}
	if err := datastore.UpdateScoringJobStatus(jobID, status); err != nil {
		log.Printf("CRITICAL: Failed to update job ID %d status to %s: %v", jobID, status, err)
	}
	if err := datastore.UpdateScoringJobTimestamps(jobID, sql.NullTime{}, sql.NullTime{Time: completedTime, Valid: true}); err != nil {
		log.Printf("CRITICAL: Failed to update job ID %d completed_at timestamp: %v", jobID, err)
	}
	job.Status = status
	job.CompletedAt = sql.NullTime{Time: completedTime, Valid: true}

	finalJob, err := datastore.GetScoringJob(jobID)
	if err != nil {
		log.Printf("Failed to fetch final job state for ID %d: %v. Returning local job object.", jobID, err)
		return job, runErr
	}
	return finalJob, runErr
}

func (s *JobService) run(ctx context.Context, pairsFn PairsFunc) (*evaluationengine.Report, error) {
	batch, err := pairsFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble utterance pairs: %w", err)
	}
	report, err := s.Comparator.Run(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to score utterance pairs: %w", err)
	}
	return report, nil
}

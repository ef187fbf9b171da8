package datastore

import (
	"encoding/json"
	"fmt"
	"time"
)

// CreateUtteranceResults inserts all results for a job in one transaction.
func CreateUtteranceResults(jobID int, results []*UtteranceResult) error {
	if DB == nil {
		return ErrNotInitialized
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for job ID %d results: %w", jobID, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO utterance_results (
			job_id, position, utterance_id, reference_text, hypothesis_text,
			wer, cer, word_errors, char_errors,
			highlighted_reference, highlighted_hypothesis, digest, latency_ms, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range results {
		r.JobID = jobID
		r.CreatedAt = now
		if _, err := stmt.Exec(
			r.JobID,
			r.Position,
			r.UtteranceID,
			r.ReferenceText,
			r.HypothesisText,
			r.WER,
			r.CER,
			nullJSON(r.WordErrors),
			nullJSON(r.CharErrors),
			r.HighlightedReference,
			r.HighlightedHypothesis,
			r.Digest,
			r.LatencyMs,
			r.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert result '%s' for job ID %d: %w", r.UtteranceID, jobID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results for job ID %d: %w", jobID, err)
	}
	return nil
}

// GetUtteranceResultsForJob retrieves a job's results in scoring order.
func GetUtteranceResultsForJob(jobID int) ([]*UtteranceResult, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}

	query := `
		SELECT id, job_id, position, utterance_id, reference_text, hypothesis_text,
		       wer, cer, word_errors, char_errors,
		       highlighted_reference, highlighted_hypothesis, digest, latency_ms, created_at
		FROM utterance_results
		WHERE job_id = $1
		ORDER BY position ASC
	`
	rows, err := DB.Query(query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for job ID %d: %w", jobID, err)
	}
	defer rows.Close()

	results := []*UtteranceResult{}
	for rows.Next() {
		r := &UtteranceResult{}
		var wordErrors, charErrors []byte
		if err := rows.Scan(
			&r.ID,
			&r.JobID,
			&r.Position,
			&r.UtteranceID,
			&r.ReferenceText,
			&r.HypothesisText,
			&r.WER,
			&r.CER,
			&wordErrors,
			&charErrors,
			&r.HighlightedReference,
			&r.HighlightedHypothesis,
			&r.Digest,
			&r.LatencyMs,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result row for job ID %d: %w", jobID, err)
		}
		if len(wordErrors) > 0 {
			r.WordErrors = json.RawMessage(wordErrors)
		}
		if len(charErrors) > 0 {
			r.CharErrors = json.RawMessage(charErrors)
		}
		results = append(results, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for results (job ID %d): %w", jobID, err)
	}
	return results, nil
}

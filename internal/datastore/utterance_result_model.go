package datastore

import (
	"database/sql"
	"encoding/json"
	"time"
)

// UtteranceResult maps to the utterance_results table. Position keeps the
// order the comparator produced.
type UtteranceResult struct {
	ID                    int             `json:"id"`
	JobID                 int             `json:"job_id"`
	Position              int             `json:"position"`
	UtteranceID           string          `json:"utterance_id"`
	ReferenceText         string          `json:"reference_text"`
	HypothesisText        string          `json:"hypothesis_text"`
	WER                   float64         `json:"wer"`
	CER                   float64         `json:"cer"`
	WordErrors            json.RawMessage `json:"word_errors,omitempty"`
	CharErrors            json.RawMessage `json:"char_errors,omitempty"`
	HighlightedReference  string          `json:"highlighted_reference"`
	HighlightedHypothesis string          `json:"highlighted_hypothesis"`
	Digest                string          `json:"digest"`
	LatencyMs             sql.NullInt64   `json:"latency_ms,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

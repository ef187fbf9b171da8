package jobmanagement

import (
	"database/sql"
	"encoding/json"
	"log"

	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/datastore"
)

// ToUtteranceResults converts scored results to rows, keeping their order.
func ToUtteranceResults(results []evaluationengine.Result) []*datastore.UtteranceResult {
	rows := make([]*datastore.UtteranceResult, 0, len(results))
	for i, r := range results {
		wordErrors, _ := json.Marshal(r.WordErrors)
		charErrors, _ := json.Marshal(r.CharErrors)
		rows = append(rows, &datastore.UtteranceResult{
			Position:              i,
			UtteranceID:           r.ID,
			ReferenceText:         r.ReferenceText,
			HypothesisText:        r.HypothesisText,
			WER:                   r.WER,
			CER:                   r.CER,
			WordErrors:            wordErrors,
			CharErrors:            charErrors,
			HighlightedReference:  r.RenderedReference,
			HighlightedHypothesis: r.RenderedHypothesis,
			Digest:                r.Digest,
			LatencyMs:             sql.NullInt64{Int64: r.LatencyMs, Valid: r.LatencyMs > 0},
		})
	}
	return rows
}

// ToResults converts stored rows back to results for reporting.
func ToResults(rows []*datastore.UtteranceResult) []evaluationengine.Result {
	results := make([]evaluationengine.Result, 0, len(rows))
	for _, row := range rows {
		r := evaluationengine.Result{
			ID:                 row.UtteranceID,
			ReferenceText:      row.ReferenceText,
			HypothesisText:     row.HypothesisText,
			WER:                row.WER,
			CER:                row.CER,
			RenderedReference:  row.HighlightedReference,
			RenderedHypothesis: row.HighlightedHypothesis,
			Digest:             row.Digest,
			LatencyMs:          row.LatencyMs.Int64,
		}
		if len(row.WordErrors) > 0 {
			if err := json.Unmarshal(row.WordErrors, &r.WordErrors); err != nil {
				log.Printf("Warning: result %d has unreadable word_errors: %v", row.ID, err)
			}
		}
		if len(row.CharErrors) > 0 {
			if err := json.Unmarshal(row.CharErrors, &r.CharErrors); err != nil {
				log.Printf("Warning: result %d has unreadable char_errors: %v", row.ID, err)
			}
		}
		results = append(results, r)
	}
	return results
}

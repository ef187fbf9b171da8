package evaluationengine

import (
	"context"
	"encoding/hex"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"
	"lukechampine.com/blake3"

	"speech-eval-toolkit/internal/coreengine/alignment"
	"speech-eval-toolkit/internal/coreengine/highlight"
	"speech-eval-toolkit/internal/coreengine/metricscalculator"
)

// UtterancePair is one reference/hypothesis comparison request.
type UtterancePair struct {
	ID         string `json:"id"`
	Reference  string `json:"reference"`
	Hypothesis string `json:"hypothesis"`
	// LatencyMs is the recogniser time when the hypothesis was produced live.
	LatencyMs int64 `json:"latency_ms,omitempty"`
}

// Digest identifies the (id, reference, hypothesis) triple.
func (p UtterancePair) Digest() string {
	h := blake3.New(32, nil)
	for _, part := range []string{p.ID, p.Reference, p.Hypothesis} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Result is the scored form of an UtterancePair.
type Result struct {
	ID                 string                        `json:"id"`
	ReferenceText      string                        `json:"reference_text"`
	HypothesisText     string                        `json:"hypothesis_text"`
	WER                float64                       `json:"wer"`
	CER                float64                       `json:"cer"`
	WordErrors         metricscalculator.ErrorCounts `json:"word_errors"`
	CharErrors         metricscalculator.ErrorCounts `json:"char_errors"`
	RenderedReference  string                        `json:"rendered_reference"`
	RenderedHypothesis string                        `json:"rendered_hypothesis"`
	Operations         []alignment.Operation         `json:"operations,omitempty"`
	Digest             string                        `json:"digest"`
	LatencyMs          int64                         `json:"latency_ms,omitempty"`
}

// Skipped records a reference that could not be paired with a hypothesis.
type Skipped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Batch is a set of pairs ready for scoring plus what was left out while
// assembling it.
type Batch struct {
	Pairs    []UtterancePair `json:"pairs"`
	Skipped  []Skipped       `json:"skipped,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Report is the outcome of scoring a Batch.
type Report struct {
	Results  []Result  `json:"results"`
	Skipped  []Skipped `json:"skipped,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Comparator scores utterance pairs.
type Comparator struct {
	// Style renders the highlighted reference and hypothesis.
	Style highlight.Style
	// Workers bounds concurrent scoring; zero means GOMAXPROCS.
	Workers int
	// Normalize applies NFC and trims both texts before scoring.
	Normalize bool
	// KeepOperations attaches the word alignment to each result.
	KeepOperations bool
	// AutoJunk enables the matcher's popular-token heuristic.
	AutoJunk bool
}

// NewComparator returns a comparator rendering with style, normalising text
// and using one worker per CPU.
func NewComparator(style highlight.Style) *Comparator {
	return &Comparator{Style: style, Normalize: true}
}

// Score aligns and rates a single pair.
func (c *Comparator) Score(p UtterancePair) Result {
	ref, hyp := p.Reference, p.Hypothesis
	if c.Normalize {
		ref, hyp = metricscalculator.NormalizeText(ref), metricscalculator.NormalizeText(hyp)
	}

	refWords, hypWords := metricscalculator.TokenizeWords(ref), metricscalculator.TokenizeWords(hyp)
	ops := alignment.AlignWithOptions(refWords, hypWords, alignment.Options{AutoJunk: c.AutoJunk})
	rendered := highlight.Render(ops, refWords, hypWords, c.Style)

	wordErrors := metricscalculator.CountErrors(refWords, hypWords)
	charErrors := metricscalculator.CharacterErrorCounts(ref, hyp)

	res := Result{
		ID:                 p.ID,
		ReferenceText:      ref,
		HypothesisText:     hyp,
		WER:                wordErrors.Rate(),
		CER:                charErrors.Rate(),
		WordErrors:         wordErrors,
		CharErrors:         charErrors,
		RenderedReference:  rendered.ReferenceMarkup(),
		RenderedHypothesis: rendered.HypothesisMarkup(),
		Digest:             p.Digest(),
		LatencyMs:          metricscalculator.CalculateLatency(p.LatencyMs),
	}
	if c.KeepOperations {
		res.Operations = ops
	}
	return res
}

// Dedupe drops pairs whose (id, reference, hypothesis) triple was already
// seen, keeping the first occurrence and the input order.
func Dedupe(pairs []UtterancePair) []UtterancePair {
	seen := make(map[string]struct{}, len(pairs))
	out := make([]UtterancePair, 0, len(pairs))
	for _, p := range pairs {
		key := p.Digest()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Compare dedupes pairs and scores them concurrently. Results keep the input
// order. Only context cancellation stops the batch early.
func (c *Comparator) Compare(ctx context.Context, pairs []UtterancePair) ([]Result, error) {
	unique := Dedupe(pairs)
	if dropped := len(pairs) - len(unique); dropped > 0 {
		log.Printf("Dropped %d duplicate utterance pair(s) before scoring.", dropped)
	}

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range unique {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.Score(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run scores a batch and carries its skipped pairs and warnings into the report.
func (c *Comparator) Run(ctx context.Context, batch *Batch) (*Report, error) {
	log.Printf("Scoring %d utterance pair(s), %d skipped during pairing.", len(batch.Pairs), len(batch.Skipped))
	results, err := c.Compare(ctx, batch.Pairs)
	if err != nil {
		return nil, err
	}
	return &Report{Results: results, Skipped: batch.Skipped, Warnings: batch.Warnings}, nil
}

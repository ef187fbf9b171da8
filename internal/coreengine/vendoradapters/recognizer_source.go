package vendoradapters

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"sync"
	"time"

	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/coreengine/metricscalculator"
	"speech-eval-toolkit/internal/datastore"
	"speech-eval-toolkit/internal/objectstore"
)

// Recognition is what one live call produced.
type Recognition struct {
	RawResponse string
	LatencyMs   int64
	Err         error
}

// RecognizerSource produces hypotheses by running audio test cases through a
// recognizer. IDs are test case IDs in decimal.
type RecognizerSource struct {
	Store   objectstore.ObjectReader
	Adapter ASRAdapter
	Profile *datastore.RecognizerProfile

	cases map[string]*datastore.AudioTestCase

	mu           sync.Mutex
	recognitions map[string]Recognition
}

// NewRecognizerSource indexes cases by ID.
func NewRecognizerSource(store objectstore.ObjectReader, adapter ASRAdapter, profile *datastore.RecognizerProfile, cases []*datastore.AudioTestCase) *RecognizerSource {
	s := &RecognizerSource{
		Store:        store,
		Adapter:      adapter,
		Profile:      profile,
		cases:        make(map[string]*datastore.AudioTestCase, len(cases)),
		recognitions: make(map[string]Recognition),
	}
	for _, tc := range cases {
		s.cases[strconv.Itoa(tc.ID)] = tc
	}
	return s
}

// References lists the test cases as reference records, ordered by ID.
func (s *RecognizerSource) References() []evaluationengine.ReferenceRecord {
	refs := make([]evaluationengine.ReferenceRecord, 0, len(s.cases))
	for id, tc := range s.cases {
		refs = append(refs, evaluationengine.ReferenceRecord{ID: id, Text: tc.ReferenceText})
	}
	sort.Slice(refs, func(i, j int) bool {
		a, _ := strconv.Atoi(refs[i].ID)
		b, _ := strconv.Atoi(refs[j].ID)
		return a < b
	})
	return refs
}

// Hypothesis fetches the audio of test case id and recognises it.
func (s *RecognizerSource) Hypothesis(ctx context.Context, id string) (string, error) {
	tc, ok := s.cases[id]
	if !ok {
		return "", fmt.Errorf("test case %s is not part of this run: %w", id, fs.ErrNotExist)
	}
	audio, err := s.Store.GetFileBytes(ctx, tc.AudioObjectKey)
	if err != nil {
		return "", fmt.Errorf("failed to fetch audio for test case %s: %w", id, err)
	}

	language := tc.LanguageCode
	if language == "" {
		language = s.Profile.LanguageCode
	}

	start := time.Now()
	text, raw, err := s.Adapter.Recognize(ctx, audio, language, s.Profile)
	latency := metricscalculator.CalculateLatency(time.Since(start).Milliseconds())

	s.mu.Lock()
	s.recognitions[id] = Recognition{RawResponse: raw, LatencyMs: latency, Err: err}
	s.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("recognition failed for test case %s: %w", id, err)
	}
	return text, nil
}

// Recognition returns what the recognizer produced for id.
func (s *RecognizerSource) Recognition(id string) (Recognition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recognitions[id]
	return r, ok
}

// AttachLatencies copies recorded latencies onto the batch pairs.
func (s *RecognizerSource) AttachLatencies(batch *evaluationengine.Batch) {
	for i := range batch.Pairs {
		if r, ok := s.Recognition(batch.Pairs[i].ID); ok {
			batch.Pairs[i].LatencyMs = r.LatencyMs
		}
	}
}

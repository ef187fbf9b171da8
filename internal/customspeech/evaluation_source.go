package customspeech

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

const fileKindTranscription = "Transcription"

var audioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".ogg": true, ".flac": true, ".opus": true, ".m4a": true,
}

// FileID derives the utterance ID from a result file name: the base name
// without ".json" and without an audio extension.
func FileID(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, ".json")
	if ext := strings.ToLower(path.Ext(base)); audioExtensions[ext] {
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	return base
}

type recognizedPhrase struct {
	Channel int    `json:"channel"`
	Lexical string `json:"lexical"`
	Display string `json:"display"`
}

type transcriptDocument struct {
	CombinedRecognizedPhrases []recognizedPhrase `json:"combinedRecognizedPhrases"`
}

// ExtractText returns the recognised text of a result file. JSON transcripts
// yield their combined phrases joined by a space (the lexical form when
// lexical is set); anything else is treated as plain text.
func ExtractText(data []byte, lexical bool) string {
	var doc transcriptDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.CombinedRecognizedPhrases == nil {
		return strings.TrimSpace(string(data))
	}
	parts := make([]string, 0, len(doc.CombinedRecognizedPhrases))
	for _, p := range doc.CombinedRecognizedPhrases {
		text := p.Display
		if lexical {
			text = p.Lexical
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// EvaluationSource serves hypotheses from an evaluation's transcription
// files. The file list is fetched once, by Preload or on first use. A failed
// listing is kept unless it came from the caller's context.
type EvaluationSource struct {
	Client       *Client
	EvaluationID string
	// Lexical selects the lexical form instead of the display form.
	Lexical bool

	mu     sync.Mutex
	loaded bool
	urls   map[string]string
	err    error
}

// Preload fetches the evaluation's file list. Pairing calls it before asking
// for any hypothesis so a bad evaluation id fails the whole batch.
func (s *EvaluationSource) Preload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.err
	}
	files, err := s.Client.EvaluationFiles(ctx, s.EvaluationID)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.loaded, s.err = true, err
		return err
	}
	s.loaded, s.urls = true, IndexFiles(files)
	return nil
}

// IndexFiles maps utterance IDs to content URLs. Transcription files win
// over other kinds when both share an ID.
func IndexFiles(files []File) map[string]string {
	urls := make(map[string]string, len(files))
	for _, f := range files {
		if f.Links.ContentURL == "" {
			continue
		}
		id := FileID(f.Name)
		if _, seen := urls[id]; seen && f.Kind != fileKindTranscription {
			continue
		}
		urls[id] = f.Links.ContentURL
	}
	return urls
}

// IDs lists the utterance IDs the evaluation has files for.
func (s *EvaluationSource) IDs(ctx context.Context) ([]string, error) {
	if err := s.Preload(ctx); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(s.urls))
	for id := range s.urls {
		ids = append(ids, id)
	}
	return ids, nil
}

// Hypothesis downloads and extracts the recognised text for id.
func (s *EvaluationSource) Hypothesis(ctx context.Context, id string) (string, error) {
	if err := s.Preload(ctx); err != nil {
		return "", err
	}
	contentURL, ok := s.urls[id]
	if !ok {
		return "", fmt.Errorf("evaluation %s has no file for '%s': %w", s.EvaluationID, id, fs.ErrNotExist)
	}
	data, err := s.Client.FetchContent(ctx, contentURL)
	if err != nil {
		return "", err
	}
	return ExtractText(data, s.Lexical), nil
}

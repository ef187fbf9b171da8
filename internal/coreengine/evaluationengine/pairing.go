package evaluationengine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// HypothesisSource yields the recognised text for an utterance id. A missing
// id is reported with an error wrapping fs.ErrNotExist.
type HypothesisSource interface {
	Hypothesis(ctx context.Context, id string) (string, error)
}

// Preloader is implemented by sources that fetch an index before they can
// serve hypotheses. A Preload error fails the pairing instead of skipping
// every id.
type Preloader interface {
	Preload(ctx context.Context) error
}

func preload(ctx context.Context, src HypothesisSource) error {
	p, ok := src.(Preloader)
	if !ok {
		return nil
	}
	if err := p.Preload(ctx); err != nil {
		return fmt.Errorf("failed to prepare hypothesis source: %w", err)
	}
	return nil
}

// ReferenceRecord is one `id<TAB>text` line of a reference file.
type ReferenceRecord struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ParseReferenceTSV reads tab-separated id/text records. Blank lines are
// ignored; any other line without exactly two columns fails the parse.
func ParseReferenceTSV(r io.Reader) ([]ReferenceRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = 2
	reader.LazyQuotes = true

	var records []ReferenceRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse reference records: %w", err)
		}
		records = append(records, ReferenceRecord{
			ID:   strings.TrimSpace(row[0]),
			Text: strings.TrimSpace(row[1]),
		})
	}
	return records, nil
}

// LoadReferenceTSV parses the reference file at path.
func LoadReferenceTSV(path string) ([]ReferenceRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat reference file '%s': %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("single-line references require a file, '%s' is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference file '%s': %w", path, err)
	}
	defer f.Close()
	return ParseReferenceTSV(f)
}

// fetch asks src for id and converts failures into a skip entry. It returns
// a non-nil error only when ctx is done.
func fetch(ctx context.Context, src HypothesisSource, id string) (string, *Skipped, error) {
	text, err := src.Hypothesis(ctx, id)
	if err == nil {
		return text, nil, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", nil, ctxErr
	}
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: no hypothesis found for '%s'", id)
		return "", &Skipped{ID: id, Reason: "no hypothesis found"}, nil
	}
	log.Printf("Warning: failed to load hypothesis for '%s': %v", id, err)
	return "", &Skipped{ID: id, Reason: err.Error()}, nil
}

// PairSingleLine matches every reference record with the hypothesis that src
// holds for the same id.
func PairSingleLine(ctx context.Context, refs []ReferenceRecord, src HypothesisSource) (*Batch, error) {
	if err := preload(ctx, src); err != nil {
		return nil, err
	}
	batch := &Batch{}
	for _, ref := range refs {
		text, skipped, err := fetch(ctx, src, ref.ID)
		if err != nil {
			return nil, err
		}
		if skipped != nil {
			batch.Skipped = append(batch.Skipped, *skipped)
			continue
		}
		batch.Pairs = append(batch.Pairs, UtterancePair{
			ID:         ref.ID,
			Reference:  ref.Text,
			Hypothesis: strings.TrimSpace(text),
		})
	}
	return batch, nil
}

// PairMultiLine reads every *.txt file in refDir as a multi-line reference
// keyed by its base name and compares it line by line with the hypothesis of
// the same id. Line count mismatches truncate to the shorter side.
func PairMultiLine(ctx context.Context, refDir string, src HypothesisSource) (*Batch, error) {
	info, err := os.Stat(refDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat reference directory '%s': %w", refDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("multi-line references require a directory, '%s' is a file", refDir)
	}

	files, err := filepath.Glob(filepath.Join(refDir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list reference files in '%s': %w", refDir, err)
	}
	if err := preload(ctx, src); err != nil {
		return nil, err
	}
	batch := &Batch{}
	if len(files) == 0 {
		msg := fmt.Sprintf("no .txt files found in '%s'", refDir)
		log.Printf("Warning: %s", msg)
		batch.Warnings = append(batch.Warnings, msg)
		return batch, nil
	}

	for _, file := range files {
		id := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read reference file '%s': %w", file, err)
		}

		text, skipped, err := fetch(ctx, src, id)
		if err != nil {
			return nil, err
		}
		if skipped != nil {
			batch.Skipped = append(batch.Skipped, *skipped)
			continue
		}

		refLines, hypLines := SplitLines(string(content)), SplitLines(text)
		n := min(len(refLines), len(hypLines))
		if len(refLines) != len(hypLines) {
			msg := fmt.Sprintf("line count mismatch for '%s' (%d reference, %d hypothesis), comparing first %d lines",
				id, len(refLines), len(hypLines), n)
			log.Printf("Warning: %s", msg)
			batch.Warnings = append(batch.Warnings, msg)
		}
		for i := 0; i < n; i++ {
			batch.Pairs = append(batch.Pairs, UtterancePair{ID: id, Reference: refLines[i], Hypothesis: hypLines[i]})
		}
	}
	return batch, nil
}

// SplitLines splits text into trimmed lines. A final newline does not start
// another line, and empty text has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// DirSource reads hypotheses from `<Dir>/<id>.txt`.
type DirSource struct {
	Dir string
}

// Hypothesis returns the raw file content for id.
func (s DirSource) Hypothesis(_ context.Context, id string) (string, error) {
	path := filepath.Join(s.Dir, id+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read hypothesis file '%s': %w", path, err)
	}
	return string(data), nil
}

// MapSource serves hypotheses from memory.
type MapSource map[string]string

// Hypothesis looks id up in the map.
func (m MapSource) Hypothesis(_ context.Context, id string) (string, error) {
	text, ok := m[id]
	if !ok {
		return "", fmt.Errorf("hypothesis for '%s': %w", id, fs.ErrNotExist)
	}
	return text, nil
}

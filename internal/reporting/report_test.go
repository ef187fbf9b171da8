package reporting

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/coreengine/highlight"
)

func sampleResults() []evaluationengine.Result {
	c := &evaluationengine.Comparator{Style: highlight.HTMLStyle()}
	return []evaluationengine.Result{
		c.Score(evaluationengine.UtterancePair{ID: "utt<1>", Reference: "the quick brown fox", Hypothesis: "the fast brown fox"}),
		c.Score(evaluationengine.UtterancePair{ID: "utt2", Reference: "a b c", Hypothesis: "a b"}),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResults()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "id" || rows[0][3] != "wer" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][3] != "0.25" {
		t.Errorf("WER cell = %q, want 0.25", rows[1][3])
	}
	if !strings.Contains(rows[1][5], "background-color:purple") {
		t.Errorf("highlighted_reference = %q, want purple span", rows[1][5])
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, sampleResults()); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<td>utt&lt;1&gt;</td>") {
		t.Errorf("id not escaped:\n%s", out)
	}
	if !strings.Contains(out, "<span style='background-color:red'>c</span>") {
		t.Errorf("highlight markup escaped or missing:\n%s", out)
	}
	if strings.Count(out, "<tr>") != 2 {
		t.Errorf("want 2 body rows:\n%s", out)
	}
}

func TestWriteMarkdown(t *testing.T) {
	results := []evaluationengine.Result{{ID: "a|b", WER: 0.5, CER: 0.125, RenderedReference: "x <b>y</b>", RenderedHypothesis: "x"}}
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, results); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	want := "| id | WER | CER | highlighted_reference | highlighted_hypothesis |\n" +
		"|---|---|---|---|---|\n" +
		"| a\\|b | 0.5 | 0.125 | x <b>y</b> | x |\n"
	if buf.String() != want {
		t.Errorf("WriteMarkdown() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, "xlsx", nil); err == nil {
		t.Error("Write(xlsx) expected error")
	}
	if ContentType(FormatCSV) != "text/csv; charset=utf-8" {
		t.Errorf("ContentType(csv) = %q", ContentType(FormatCSV))
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults())
	if s.Utterances != 2 {
		t.Errorf("Utterances = %d, want 2", s.Utterances)
	}
	wantMean := (0.25 + 1.0/3.0) / 2
	if math.Abs(s.MeanWER-wantMean) > 1e-9 {
		t.Errorf("MeanWER = %v, want %v", s.MeanWER, wantMean)
	}
	// 2 word errors over 7 reference words.
	if math.Abs(s.CorpusWER-2.0/7.0) > 1e-9 {
		t.Errorf("CorpusWER = %v, want %v", s.CorpusWER, 2.0/7.0)
	}
	if empty := Summarize(nil); empty.Utterances != 0 || empty.CorpusWER != 0 {
		t.Errorf("Summarize(nil) = %+v", empty)
	}
}

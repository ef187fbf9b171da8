// Package reporting serialises scored utterances as CSV, HTML or Markdown
// tables.
package reporting

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/coreengine/metricscalculator"
)

// Format names accepted by Write.
const (
	FormatCSV      = "csv"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// ContentType returns the MIME type for a report format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Write dispatches to the writer for format.
func Write(w io.Writer, format string, results []evaluationengine.Result) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatHTML:
		return WriteHTML(w, results)
	case FormatMarkdown, "md":
		return WriteMarkdown(w, results)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes one row per result with a header line.
func WriteCSV(w io.Writer, results []evaluationengine.Result) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "reference", "hypothesis", "wer", "cer", "highlighted_reference", "highlighted_hypothesis"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		row := []string{r.ID, r.ReferenceText, r.HypothesisText, formatRate(r.WER), formatRate(r.CER), r.RenderedReference, r.RenderedHypothesis}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for '%s': %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var htmlTable = template.Must(template.New("results").Funcs(template.FuncMap{"rate": formatRate}).Parse(
	`<table border="1" class="dataframe">
  <thead>
    <tr style="text-align: right;">
      <th>id</th>
      <th>WER</th>
      <th>CER</th>
      <th>highlighted_reference</th>
      <th>highlighted_hypothesis</th>
    </tr>
  </thead>
  <tbody>
{{- range .}}
    <tr>
      <td>{{.ID}}</td>
      <td>{{rate .WER}}</td>
      <td>{{rate .CER}}</td>
      <td>{{.Reference}}</td>
      <td>{{.Hypothesis}}</td>
    </tr>
{{- end}}
  </tbody>
</table>
`))

type htmlRow struct {
	ID         string
	WER, CER   float64
	Reference  template.HTML
	Hypothesis template.HTML
}

// WriteHTML writes an HTML table. The highlighted columns already carry
// markup and are emitted as-is; the id is escaped.
func WriteHTML(w io.Writer, results []evaluationengine.Result) error {
	rows := make([]htmlRow, len(results))
	for i, r := range results {
		rows[i] = htmlRow{
			ID:         r.ID,
			WER:        r.WER,
			CER:        r.CER,
			Reference:  template.HTML(r.RenderedReference),
			Hypothesis: template.HTML(r.RenderedHypothesis),
		}
	}
	if err := htmlTable.Execute(w, rows); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}

var markdownCell = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

// WriteMarkdown writes a pipe table. Markup in the highlighted columns is
// kept so it renders in viewers that allow inline HTML.
func WriteMarkdown(w io.Writer, results []evaluationengine.Result) error {
	var b strings.Builder
	b.WriteString("| id | WER | CER | highlighted_reference | highlighted_hypothesis |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			markdownCell.Replace(r.ID), formatRate(r.WER), formatRate(r.CER),
			markdownCell.Replace(r.RenderedReference), markdownCell.Replace(r.RenderedHypothesis))
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write Markdown report: %w", err)
	}
	return nil
}

// Summary aggregates a result set.
type Summary struct {
	Utterances int                           `json:"utterances"`
	MeanWER    float64                       `json:"mean_wer"`
	MeanCER    float64                       `json:"mean_cer"`
	CorpusWER  float64                       `json:"corpus_wer"`
	CorpusCER  float64                       `json:"corpus_cer"`
	WordErrors metricscalculator.ErrorCounts `json:"word_errors"`
	CharErrors metricscalculator.ErrorCounts `json:"char_errors"`
}

// Summarize computes per-utterance means and corpus-level rates, the latter
// being total edits over total reference tokens.
func Summarize(results []evaluationengine.Result) Summary {
	s := Summary{Utterances: len(results)}
	if len(results) == 0 {
		return s
	}
	for _, r := range results {
		s.MeanWER += r.WER
		s.MeanCER += r.CER
		s.WordErrors = s.WordErrors.Add(r.WordErrors)
		s.CharErrors = s.CharErrors.Add(r.CharErrors)
	}
	s.MeanWER /= float64(len(results))
	s.MeanCER /= float64(len(results))
	s.CorpusWER = s.WordErrors.Rate()
	s.CorpusCER = s.CharErrors.Rate()
	return s
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/coreengine/highlight"
	"speech-eval-toolkit/internal/reporting"
)

const formatText = "text"

var (
	scoreRef       string
	scoreHyp       string
	scoreMultiLine bool
	scoreFormat    string
	scoreStyle     string
	scoreOut       string
	scoreWorkers   int
	scoreAutoJunk  bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score reference transcripts against hypothesis files",
	Long: `Scores reference transcripts against one hypothesis file per utterance.

Single-line mode reads a TSV of id<TAB>reference and looks up <hyp>/<id>.txt.
Multi-line mode reads every <ref>/<id>.txt and compares it line by line with
<hyp>/<id>.txt.

Examples:
  wercer score --ref refs.tsv --hyp out/
  wercer score --multi-line --ref refs/ --hyp out/ --format html --out report.html
  wercer score --ref refs.tsv --hyp out/ --format csv --style plain`,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVarP(&scoreRef, "ref", "r", "", "reference TSV file, or directory with --multi-line")
	scoreCmd.Flags().StringVarP(&scoreHyp, "hyp", "H", "", "directory holding <id>.txt hypotheses")
	scoreCmd.Flags().BoolVarP(&scoreMultiLine, "multi-line", "m", false, "compare per-id files line by line")
	scoreCmd.Flags().StringVarP(&scoreFormat, "format", "f", formatText, "output format (text, json, csv, html, markdown)")
	scoreCmd.Flags().StringVarP(&scoreStyle, "style", "s", "", "highlight style (html, plain, terminal); defaults to html for html, markdown and csv, terminal for text, plain otherwise")
	scoreCmd.Flags().StringVarP(&scoreOut, "out", "o", "", "write the report to a file instead of stdout")
	scoreCmd.Flags().IntVarP(&scoreWorkers, "workers", "w", 0, "concurrent scorers (0 = one per CPU)")
	scoreCmd.Flags().BoolVar(&scoreAutoJunk, "auto-junk", false, "skip tokens filling over 1% of a 200+ token hypothesis when matching")
	scoreCmd.MarkFlagRequired("ref")
	scoreCmd.MarkFlagRequired("hyp")
}

// defaultStyle picks the highlight style that renders in each format. CSV
// cells carry HTML spans.
func defaultStyle(format string) string {
	switch format {
	case reporting.FormatHTML, reporting.FormatMarkdown, "md", reporting.FormatCSV:
		return "html"
	case formatText:
		return "terminal"
	default:
		return "plain"
	}
}

func newComparator(format, style string, workers int, autoJunk bool) (*evaluationengine.Comparator, error) {
	if style == "" {
		style = defaultStyle(format)
	}
	st, err := highlight.StyleByName(style)
	if err != nil {
		return nil, err
	}
	cmp := evaluationengine.NewComparator(st)
	cmp.Workers = workers
	cmp.AutoJunk = autoJunk
	return cmp, nil
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmp, err := newComparator(scoreFormat, scoreStyle, scoreWorkers, scoreAutoJunk)
	if err != nil {
		return err
	}

	src := evaluationengine.DirSource{Dir: scoreHyp}
	var batch *evaluationengine.Batch
	if scoreMultiLine {
		batch, err = evaluationengine.PairMultiLine(ctx, scoreRef, src)
	} else {
		var refs []evaluationengine.ReferenceRecord
		refs, err = evaluationengine.LoadReferenceTSV(scoreRef)
		if err == nil {
			batch, err = evaluationengine.PairSingleLine(ctx, refs, src)
		}
	}
	if err != nil {
		return err
	}

	report, err := cmp.Run(ctx, batch)
	if err != nil {
		return err
	}
	return emitReport(cmd, report, scoreFormat, scoreOut)
}

// emitReport writes report in format to out (stdout when empty) and lists
// skipped utterances and warnings on stderr.
func emitReport(cmd *cobra.Command, report *evaluationengine.Report, format, out string) error {
	w := cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create report file '%s': %w", out, err)
		}
		defer f.Close()
		w = f
	}

	if err := writeReport(w, format, report); err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	for _, s := range report.Skipped {
		fmt.Fprintf(errOut, "skipped %s: %s\n", s.ID, s.Reason)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(errOut, "warning: %s\n", warning)
	}
	if out != "" {
		sum := reporting.Summarize(report.Results)
		fmt.Fprintf(errOut, "%d utterances, corpus WER %.4f, corpus CER %.4f, report written to %s\n",
			sum.Utterances, sum.CorpusWER, sum.CorpusCER, out)
	}
	return nil
}

func writeReport(w io.Writer, format string, report *evaluationengine.Report) error {
	switch format {
	case formatText:
		return writeText(w, report.Results)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Summary reporting.Summary `json:"summary"`
			*evaluationengine.Report
		}{reporting.Summarize(report.Results), report})
	default:
		return reporting.Write(w, strings.ToLower(format), report.Results)
	}
}

// writeText prints one block per utterance followed by the corpus summary.
func writeText(w io.Writer, results []evaluationengine.Result) error {
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%s  WER %.4f  CER %.4f\n  REF: %s\n  HYP: %s\n\n",
			r.ID, r.WER, r.CER, r.RenderedReference, r.RenderedHypothesis); err != nil {
			return err
		}
	}
	sum := reporting.Summarize(results)
	_, err := fmt.Fprintf(w, "%d utterances  corpus WER %.4f  corpus CER %.4f  mean WER %.4f  mean CER %.4f\n",
		sum.Utterances, sum.CorpusWER, sum.CorpusCER, sum.MeanWER, sum.MeanCER)
	return err
}

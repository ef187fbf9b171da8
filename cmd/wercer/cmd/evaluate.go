package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/customspeech"
)

var (
	evalRef      string
	evalLexical  bool
	evalWait     bool
	evalFormat   string
	evalStyle    string
	evalOut      string
	evalAutoJunk bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <evaluation-id>",
	Short: "Score the transcripts of a speech platform evaluation",
	Long: `Downloads the per-utterance transcripts of a platform evaluation and
scores them against a reference TSV. Result files are matched to references
by base name, so "call_01.wav.json" pairs with id "call_01".

Examples:
  wercer evaluate 3b1f... --ref refs.tsv
  wercer evaluate 3b1f... --ref refs.tsv --wait --format html --out eval.html`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evalRef, "ref", "r", "", "reference TSV file")
	evaluateCmd.Flags().BoolVar(&evalLexical, "lexical", false, "score the lexical form instead of the display form")
	evaluateCmd.Flags().BoolVar(&evalWait, "wait", false, "poll until the evaluation has finished")
	evaluateCmd.Flags().StringVarP(&evalFormat, "format", "f", formatText, "output format (text, json, csv, html, markdown)")
	evaluateCmd.Flags().StringVarP(&evalStyle, "style", "s", "", "highlight style (html, plain, terminal)")
	evaluateCmd.Flags().StringVarP(&evalOut, "out", "o", "", "write the report to a file instead of stdout")
	evaluateCmd.Flags().BoolVar(&evalAutoJunk, "auto-junk", false, "skip tokens filling over 1% of a 200+ token hypothesis when matching (also scoring.auto_junk)")
	evaluateCmd.MarkFlagRequired("ref")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.SpeechEnabled() {
		return errors.New("speech platform key and endpoint are not configured")
	}
	client := customspeech.NewClient(cfg.Speech.Endpoint, cfg.Speech.Key)
	client.APIVersion = cfg.Speech.APIVersion

	id := args[0]
	if evalWait {
		if err := customspeech.WaitForStatus(ctx, client.EvaluationStatusFunc(id), cfg.Speech.PollInterval.Duration); err != nil {
			return err
		}
	}

	refs, err := evaluationengine.LoadReferenceTSV(evalRef)
	if err != nil {
		return err
	}
	cmp, err := newComparator(evalFormat, evalStyle, cfg.Scoring.Workers, evalAutoJunk || cfg.Scoring.AutoJunk)
	if err != nil {
		return err
	}

	src := &customspeech.EvaluationSource{Client: client, EvaluationID: id, Lexical: evalLexical}
	batch, err := evaluationengine.PairSingleLine(ctx, refs, src)
	if err != nil {
		return err
	}
	report, err := cmp.Run(ctx, batch)
	if err != nil {
		return err
	}
	return emitReport(cmd, report, evalFormat, evalOut)
}

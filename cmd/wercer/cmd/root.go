package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"speech-eval-toolkit/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "wercer",
	Short: "Word and character error rates for speech transcripts",
	Long: `wercer aligns reference transcripts with recogniser output, reports
WER and CER per utterance and highlights every edit.

Commands:
  score     - score local reference and hypothesis files
  evaluate  - score the transcripts of a speech platform evaluation
  datasets  - upload dataset archives and register them on the platform`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !verbose {
			log.SetOutput(io.Discard)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("CONFIG_FILE"), "config file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress and warnings to stderr")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

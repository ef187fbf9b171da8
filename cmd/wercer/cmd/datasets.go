package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"speech-eval-toolkit/internal/customspeech"
	"speech-eval-toolkit/internal/objectstore"
)

var (
	datasetsKind     string
	datasetsProject  string
	datasetsLocale   string
	datasetsRegister bool
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage dataset archives",
}

var datasetsUploadCmd = &cobra.Command{
	Use:   "upload <dir>",
	Short: "Upload every .zip and .txt in a directory and register them as datasets",
	Long: `Uploads each dataset file in <dir> to the blob store, signs a read URL
for it and, unless --register=false, creates a platform dataset named after
the file.

Examples:
  wercer datasets upload ./training --project 5f2c...
  wercer datasets upload ./language --kind Language --register=false`,
	Args: cobra.ExactArgs(1),
	RunE: runDatasetsUpload,
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
	datasetsCmd.AddCommand(datasetsUploadCmd)

	datasetsUploadCmd.Flags().StringVar(&datasetsKind, "kind", customspeech.DatasetKindAcoustic, "dataset kind (Acoustic or Language)")
	datasetsUploadCmd.Flags().StringVar(&datasetsProject, "project", "", "project ID to attach the datasets to")
	datasetsUploadCmd.Flags().StringVar(&datasetsLocale, "locale", "", "dataset locale (default from config)")
	datasetsUploadCmd.Flags().BoolVar(&datasetsRegister, "register", true, "create platform datasets for the uploaded files")
}

func runDatasetsUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if datasetsKind != customspeech.DatasetKindAcoustic && datasetsKind != customspeech.DatasetKindLanguage {
		return fmt.Errorf("kind must be %s or %s", customspeech.DatasetKindAcoustic, customspeech.DatasetKindLanguage)
	}
	if datasetsRegister && !cfg.SpeechEnabled() {
		return fmt.Errorf("speech platform key and endpoint are not configured; use --register=false to only upload")
	}

	store, err := objectstore.NewMinioClient(ctx, cfg.Minio)
	if err != nil {
		return err
	}
	names, urls, err := store.UploadDatasetFolder(ctx, args[0], cfg.Minio.URLExpiry.Duration)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !datasetsRegister {
		for _, name := range names {
			fmt.Fprintf(out, "%s\t%s\n", name, urls[name])
		}
		return nil
	}

	locale := datasetsLocale
	if locale == "" {
		locale = cfg.Speech.Locale
	}
	client := customspeech.NewClient(cfg.Speech.Endpoint, cfg.Speech.Key)
	client.APIVersion = cfg.Speech.APIVersion
	for _, name := range names {
		id, err := client.CreateDataset(ctx, customspeech.DatasetSpec{
			ProjectID:   datasetsProject,
			ContentURL:  urls[name],
			Kind:        datasetsKind,
			DisplayName: name,
			Locale:      locale,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", name, id)
	}
	return nil
}

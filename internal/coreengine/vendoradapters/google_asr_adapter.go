package vendoradapters

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"speech-eval-toolkit/internal/config"
	"speech-eval-toolkit/internal/datastore"
)

// GoogleASRAdapter recognises speech with Google Cloud Speech-to-Text. It is
// the baseline engine compared against custom models.
type GoogleASRAdapter struct {
	Defaults config.GoogleConfig
}

// NewGoogleASRAdapter returns an adapter falling back to defaults for
// credentials and language.
func NewGoogleASRAdapter(defaults config.GoogleConfig) *GoogleASRAdapter {
	return &GoogleASRAdapter{Defaults: defaults}
}

// RecognitionConfig builds the request config from profile options:
// encoding (LINEAR16, FLAC, MP3, OGG_OPUS), sample_rate_hertz and model.
func RecognitionConfig(languageCode string, profile *datastore.RecognizerProfile) *speechpb.RecognitionConfig {
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            16000,
		LanguageCode:               languageCode,
		EnableAutomaticPunctuation: true,
	}
	switch strings.ToUpper(profile.OptionString("encoding")) {
	case "FLAC":
		cfg.Encoding = speechpb.RecognitionConfig_FLAC
	case "MP3":
		cfg.Encoding = speechpb.RecognitionConfig_MP3
	case "OGG_OPUS":
		cfg.Encoding = speechpb.RecognitionConfig_OGG_OPUS
	}
	if rate := profile.OptionNumber("sample_rate_hertz"); rate > 0 {
		cfg.SampleRateHertz = int32(rate)
	}
	if model := profile.OptionString("model"); model != "" {
		cfg.Model = model
	}
	return cfg
}

// Recognize transcribes a single utterance.
func (a *GoogleASRAdapter) Recognize(ctx context.Context, audioData []byte, languageCode string, profile *datastore.RecognizerProfile) (recognizedText string, rawResponse string, err error) {
	if languageCode == "" {
		languageCode = a.Defaults.LanguageCode
	}

	var opts []option.ClientOption
	credsPath := profile.OptionString("credentials_file")
	if credsPath == "" {
		credsPath = a.Defaults.CredentialsFile
	}
	if credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	} else {
		log.Println("Attempting to use application default credentials for Google Speech.")
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return "", "", fmt.Errorf("failed to create Google Speech client: %w", err)
	}
	defer client.Close()

	req := &speechpb.RecognizeRequest{
		Config: RecognitionConfig(languageCode, profile),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	}

	start := time.Now()
	resp, err := client.Recognize(ctx, req)
	log.Printf("Google Speech-to-Text call for profile '%s' completed in %v", profile.Name, time.Since(start))
	if err != nil {
		return "", marshalRaw(map[string]interface{}{"error": err.Error()}), fmt.Errorf("Google Speech recognition failed: %w", err)
	}

	raw, err := protojson.Marshal(resp)
	if err != nil {
		log.Printf("Error marshalling Google Speech response: %v", err)
		rawResponse = marshalRaw(map[string]interface{}{"marshalling_error": err.Error()})
	} else {
		rawResponse = string(raw)
	}
	return JoinTranscripts(resp), rawResponse, nil
}

// JoinTranscripts concatenates the top alternative of every result.
func JoinTranscripts(resp *speechpb.RecognizeResponse) string {
	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		if alts := result.GetAlternatives(); len(alts) > 0 {
			if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}

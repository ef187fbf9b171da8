package vendoradapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"speech-eval-toolkit/internal/config"
	"speech-eval-toolkit/internal/datastore"
)

const recognitionTimeout = 60 * time.Second

// MicrosoftASRAdapter recognises speech with the speech platform SDK. A
// profile with an EndpointID targets a deployed custom model.
type MicrosoftASRAdapter struct {
	Defaults config.SpeechConfig
}

// NewMicrosoftASRAdapter returns an adapter falling back to defaults for
// key, region and endpoint.
func NewMicrosoftASRAdapter(defaults config.SpeechConfig) *MicrosoftASRAdapter {
	return &MicrosoftASRAdapter{Defaults: defaults}
}

// credentials resolves key, region and endpoint ID from the profile first.
func (a *MicrosoftASRAdapter) credentials(profile *datastore.RecognizerProfile) (key, region, endpointID string) {
	key, region, endpointID = profile.APIKey, profile.Region, profile.EndpointID
	if key == "" {
		key = a.Defaults.Key
	}
	if region == "" {
		region = a.Defaults.Region
	}
	if endpointID == "" {
		endpointID = a.Defaults.EndpointID
	}
	return key, region, endpointID
}

// Recognize transcribes a single utterance.
func (a *MicrosoftASRAdapter) Recognize(ctx context.Context, audioData []byte, languageCode string, profile *datastore.RecognizerProfile) (recognizedText string, rawResponse string, err error) {
	key, region, endpointID := a.credentials(profile)
	if key == "" {
		return "", "", fmt.Errorf("speech platform key is missing for profile '%s'", profile.Name)
	}
	if region == "" {
		return "", "", fmt.Errorf("speech platform region is missing for profile '%s'", profile.Name)
	}

	log.Printf("MicrosoftASRAdapter: Recognize called for %d byte(s), language '%s', region '%s', profile '%s'", len(audioData), languageCode, region, profile.Name)

	speechConfig, err := speech.NewSpeechConfigFromSubscription(key, region)
	if err != nil {
		return "", "", fmt.Errorf("failed to create SpeechConfig: %w", err)
	}
	defer speechConfig.Close()

	if err := speechConfig.SetSpeechRecognitionLanguage(languageCode); err != nil {
		return "", "", fmt.Errorf("failed to set recognition language: %w", err)
	}
	if endpointID != "" {
		if err := speechConfig.SetEndpointID(endpointID); err != nil {
			return "", "", fmt.Errorf("failed to set custom endpoint '%s': %w", endpointID, err)
		}
	}
	if err := speechConfig.SetProfanity(parseProfanityOption(profile.OptionString("profanity"))); err != nil {
		return "", "", fmt.Errorf("failed to set profanity option: %w", err)
	}

	pushStream, err := audio.CreatePushAudioInputStream()
	if err != nil {
		return "", "", fmt.Errorf("failed to create push audio input stream: %w", err)
	}
	defer pushStream.Close()

	if err := pushStream.Write(audioData); err != nil {
		return "", "", fmt.Errorf("failed to write audio data to push stream: %w", err)
	}
	pushStream.CloseStream()

	audioConfig, err := audio.NewAudioConfigFromStreamInput(pushStream)
	if err != nil {
		return "", "", fmt.Errorf("failed to create AudioConfig: %w", err)
	}
	defer audioConfig.Close()

	recognizer, err := speech.NewSpeechRecognizerFromConfig(speechConfig, audioConfig)
	if err != nil {
		return "", "", fmt.Errorf("failed to create SpeechRecognizer: %w", err)
	}
	defer recognizer.Close()

	var outcome speech.SpeechRecognitionOutcome
	select {
	case outcome = <-recognizer.RecognizeOnceAsync():
	case <-ctx.Done():
		return "", "", ctx.Err()
	case <-time.After(recognitionTimeout):
		return "", `{"error": "recognition timed out"}`, fmt.Errorf("speech recognition timed out after %s", recognitionTimeout)
	}
	defer outcome.Close()

	if outcome.Error != nil {
		rawResponse = marshalRaw(map[string]interface{}{"error": outcome.Error.Error()})
		return "", rawResponse, fmt.Errorf("speech recognition error: %w", outcome.Error)
	}

	result := outcome.Result
	switch result.Reason {
	case common.RecognizedSpeech:
		rawResponse = marshalRaw(map[string]interface{}{
			"result_id": result.ResultID,
			"text":      result.Text,
			"duration":  result.Duration.String(),
			"offset":    result.Offset.String(),
		})
		return result.Text, rawResponse, nil
	case common.NoMatch:
		return "", `{"error": "no speech could be recognized", "reason": "NoMatch"}`, fmt.Errorf("no speech could be recognized for profile '%s'", profile.Name)
	default:
		rawResponse = marshalRaw(map[string]interface{}{"error": "recognition failed", "reason": fmt.Sprintf("%v", result.Reason)})
		return "", rawResponse, fmt.Errorf("speech recognition failed with reason %v", result.Reason)
	}
}

func parseProfanityOption(s string) common.ProfanityOption {
	switch strings.ToLower(s) {
	case "raw":
		return common.Raw
	case "removed":
		return common.Removed
	case "", "masked":
		return common.Masked
	default:
		log.Printf("Unknown profanity option '%s', defaulting to masked.", s)
		return common.Masked
	}
}

func marshalRaw(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshalling raw recognizer response: %v", err)
		return fmt.Sprintf(`{"marshalling_error": %q}`, err.Error())
	}
	return string(b)
}

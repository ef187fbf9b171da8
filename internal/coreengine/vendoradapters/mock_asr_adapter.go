package vendoradapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"speech-eval-toolkit/internal/datastore"
)

// MockASRAdapter returns a canned transcript without calling any service.
// The transcript comes from the profile option "transcript", or the audio
// bytes themselves when they are valid text. Option "fail" set to "true"
// simulates an engine error.
type MockASRAdapter struct{}

// Recognize simulates a transcription.
func (m *MockASRAdapter) Recognize(ctx context.Context, audio []byte, languageCode string, profile *datastore.RecognizerProfile) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	log.Printf("MockASRAdapter: Recognize called for %d byte(s), language '%s', profile '%s'", len(audio), languageCode, profile.Name)

	if profile.OptionString("fail") == "true" {
		return "", `{"error": "simulated error from mock recognizer"}`, fmt.Errorf("simulated error from mock profile '%s'", profile.Name)
	}

	text := profile.OptionString("transcript")
	if text == "" && utf8.Valid(audio) {
		text = strings.TrimSpace(string(audio))
	}

	raw, err := json.Marshal(map[string]interface{}{
		"transcription": text,
		"language":      languageCode,
		"simulated":     true,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal mock response: %w", err)
	}
	return text, string(raw), nil
}

package vendoradapters

import (
	"context"

	"speech-eval-toolkit/internal/datastore"
)

// Engines a recognizer profile can name.
const (
	EngineMicrosoft = "microsoft"
	EngineGoogle    = "google"
	EngineMock      = "mock"
)

// ASRAdapter transcribes one recording with a live recognition engine.
type ASRAdapter interface {
	// Recognize transcribes audio in languageCode using the credentials and
	// options of profile. rawResponse is the engine's own JSON output and is
	// kept for auditing even when err is non-nil.
	Recognize(ctx context.Context, audio []byte, languageCode string, profile *datastore.RecognizerProfile) (recognizedText string, rawResponse string, err error)
}

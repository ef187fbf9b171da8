package vendoradapters

import (
	"fmt"
	"log"
	"strings"

	"speech-eval-toolkit/internal/config"
	"speech-eval-toolkit/internal/datastore"
)

// Service-wide fallbacks for profiles that leave credentials empty.
var (
	defaultSpeech config.SpeechConfig
	defaultGoogle config.GoogleConfig
)

// InitAdapterRegistry records the configured speech platform and Google
// credentials so profiles can omit them.
func InitAdapterRegistry(speechCfg config.SpeechConfig, googleCfg config.GoogleConfig) {
	if speechCfg.Key == "" {
		log.Println("Warning: no speech platform key configured. Microsoft profiles must carry their own api_key.")
	}
	defaultSpeech = speechCfg
	defaultGoogle = googleCfg
}

// GetASRAdapter selects the adapter for profile.Engine.
func GetASRAdapter(profile *datastore.RecognizerProfile) (ASRAdapter, error) {
	if profile == nil {
		return nil, fmt.Errorf("recognizer profile cannot be nil")
	}

	log.Printf("Selecting ASR adapter for profile '%s' (engine: %s)", profile.Name, profile.Engine)

	switch strings.ToLower(profile.Engine) {
	case EngineMicrosoft:
		return NewMicrosoftASRAdapter(defaultSpeech), nil
	case EngineGoogle:
		return NewGoogleASRAdapter(defaultGoogle), nil
	case EngineMock:
		return &MockASRAdapter{}, nil
	default:
		return nil, fmt.Errorf("no ASR adapter available for engine '%s'", profile.Engine)
	}
}

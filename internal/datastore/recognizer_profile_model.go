package datastore

import (
	"encoding/json"
	"time"
)

// RecognizerProfile maps to the recognizer_profiles table: credentials and
// defaults for one live recognition engine.
type RecognizerProfile struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Engine       string          `json:"engine"` // microsoft, google or mock
	APIKey       string          `json:"api_key,omitempty"`
	Region       string          `json:"region,omitempty"`
	EndpointID   string          `json:"endpoint_id,omitempty"` // custom model endpoint on the speech platform
	LanguageCode string          `json:"language_code,omitempty"`
	Options      json.RawMessage `json:"options,omitempty"` // engine specific, e.g. {"profanity":"raw"}
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// OptionString returns a string entry from Options, or "" when absent.
func (p *RecognizerProfile) OptionString(key string) string {
	if len(p.Options) == 0 {
		return ""
	}
	var opts map[string]interface{}
	if err := json.Unmarshal(p.Options, &opts); err != nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// OptionNumber returns a numeric entry from Options, or 0 when absent.
func (p *RecognizerProfile) OptionNumber(key string) float64 {
	if len(p.Options) == 0 {
		return 0
	}
	var opts map[string]interface{}
	if err := json.Unmarshal(p.Options, &opts); err != nil {
		return 0
	}
	n, _ := opts[key].(float64)
	return n
}

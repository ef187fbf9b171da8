package datastore

import "time"

// AudioTestCase maps to the audio_test_cases table: a stored recording and
// the transcript it should produce.
type AudioTestCase struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	LanguageCode   string    `json:"language_code,omitempty"`
	AudioObjectKey string    `json:"audio_object_key"` // key in the blob store
	ReferenceText  string    `json:"reference_text"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

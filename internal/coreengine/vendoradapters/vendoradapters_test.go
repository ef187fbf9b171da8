package vendoradapters

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"

	"speech-eval-toolkit/internal/config"
	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/datastore"
	"speech-eval-toolkit/internal/objectstore"
)

func TestGetASRAdapter(t *testing.T) {
	tests := []struct {
		engine  string
		wantErr bool
	}{
		{engine: "mock"},
		{engine: "Microsoft"},
		{engine: "google"},
		{engine: "deepgram", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			a, err := GetASRAdapter(&datastore.RecognizerProfile{Name: "p", Engine: tt.engine})
			if tt.wantErr {
				if err == nil {
					t.Errorf("GetASRAdapter(%s) expected error", tt.engine)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetASRAdapter(%s) error = %v", tt.engine, err)
			}
			switch a.(type) {
			case *MockASRAdapter, *MicrosoftASRAdapter, *GoogleASRAdapter:
			default:
				t.Errorf("GetASRAdapter(%s) = %T", tt.engine, a)
			}
		})
	}
	if _, err := GetASRAdapter(nil); err == nil {
		t.Error("GetASRAdapter(nil) expected error")
	}
}

func TestMockASRAdapter(t *testing.T) {
	ctx := context.Background()
	m := &MockASRAdapter{}

	text, raw, err := m.Recognize(ctx, []byte(" hello there \n"), "en-US", &datastore.RecognizerProfile{Name: "m"})
	if err != nil || text != "hello there" {
		t.Fatalf("Recognize() = %q, %v", text, err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc["transcription"] != "hello there" {
		t.Errorf("raw response = %s", raw)
	}

	canned := &datastore.RecognizerProfile{Name: "c", Options: json.RawMessage(`{"transcript":"fixed text"}`)}
	if text, _, _ := m.Recognize(ctx, []byte{0xff, 0xfe}, "en-US", canned); text != "fixed text" {
		t.Errorf("Recognize(canned) = %q", text)
	}

	failing := &datastore.RecognizerProfile{Name: "f", Options: json.RawMessage(`{"fail":"true"}`)}
	if _, raw, err := m.Recognize(ctx, nil, "en-US", failing); err == nil || raw == "" {
		t.Errorf("Recognize(failing) = %q, %v", raw, err)
	}
}

func TestMicrosoftASRAdapter_Credentials(t *testing.T) {
	a := NewMicrosoftASRAdapter(config.SpeechConfig{Key: "k0", Region: "westeurope", EndpointID: "e0"})

	key, region, endpoint := a.credentials(&datastore.RecognizerProfile{APIKey: "k1"})
	if key != "k1" || region != "westeurope" || endpoint != "e0" {
		t.Errorf("credentials() = %s, %s, %s", key, region, endpoint)
	}

	bare := NewMicrosoftASRAdapter(config.SpeechConfig{})
	if _, _, err := bare.Recognize(context.Background(), nil, "en-US", &datastore.RecognizerProfile{Name: "x"}); err == nil {
		t.Error("Recognize() without key expected error")
	}
}

func TestParseProfanityOption(t *testing.T) {
	tests := map[string]common.ProfanityOption{
		"":        common.Masked,
		"RAW":     common.Raw,
		"removed": common.Removed,
		"bogus":   common.Masked,
	}
	for in, want := range tests {
		if got := parseProfanityOption(in); got != want {
			t.Errorf("parseProfanityOption(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRecognitionConfig(t *testing.T) {
	p := &datastore.RecognizerProfile{Options: json.RawMessage(`{"encoding":"flac","sample_rate_hertz":44100,"model":"latest_long"}`)}
	cfg := RecognitionConfig("de-DE", p)
	if cfg.Encoding != speechpb.RecognitionConfig_FLAC || cfg.SampleRateHertz != 44100 || cfg.Model != "latest_long" || cfg.LanguageCode != "de-DE" {
		t.Errorf("RecognitionConfig() = %v", cfg)
	}

	def := RecognitionConfig("en-US", &datastore.RecognizerProfile{})
	if def.Encoding != speechpb.RecognitionConfig_LINEAR16 || def.SampleRateHertz != 16000 {
		t.Errorf("default RecognitionConfig() = %v", def)
	}
}

func TestJoinTranscripts(t *testing.T) {
	resp := &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "hello"}, {Transcript: "yellow"}}},
		{},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " world "}}},
	}}
	if got := JoinTranscripts(resp); got != "hello world" {
		t.Errorf("JoinTranscripts() = %q", got)
	}
}

func TestRecognizerSource(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	if err := store.PutNamed(ctx, "audio/1.wav", strings.NewReader("the cat sat"), -1, "audio/wav"); err != nil {
		t.Fatal(err)
	}
	cases := []*datastore.AudioTestCase{
		{ID: 10, AudioObjectKey: "audio/missing.wav", ReferenceText: "gone"},
		{ID: 1, AudioObjectKey: "audio/1.wav", ReferenceText: "the cat sat down"},
	}
	src := NewRecognizerSource(store, &MockASRAdapter{}, &datastore.RecognizerProfile{Name: "mock", Engine: EngineMock, LanguageCode: "en-US"}, cases)

	refs := src.References()
	if len(refs) != 2 || refs[0].ID != "1" || refs[1].ID != "10" {
		t.Fatalf("References() = %+v", refs)
	}

	batch, err := evaluationengine.PairSingleLine(ctx, refs, src)
	if err != nil {
		t.Fatalf("PairSingleLine() error = %v", err)
	}
	if len(batch.Pairs) != 1 || batch.Pairs[0].Hypothesis != "the cat sat" {
		t.Fatalf("pairs = %+v", batch.Pairs)
	}
	if len(batch.Skipped) != 1 || batch.Skipped[0].ID != "10" {
		t.Errorf("skipped = %+v", batch.Skipped)
	}

	src.AttachLatencies(batch)
	if r, ok := src.Recognition("1"); !ok || r.Err != nil || r.RawResponse == "" || batch.Pairs[0].LatencyMs != r.LatencyMs {
		t.Errorf("Recognition(1) = %+v, %v", r, ok)
	}

	if _, err := src.Hypothesis(ctx, "99"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Hypothesis(99) error = %v, want fs.ErrNotExist", err)
	}
}

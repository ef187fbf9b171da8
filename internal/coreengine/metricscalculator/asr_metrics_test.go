package metricscalculator

import (
	"math"
	"math/rand"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWordErrorCounts(t *testing.T) {
	tests := []struct {
		name       string
		reference  string
		hypothesis string
		wantWER    float64
		wantSubs   int
		wantIns    int
		wantDels   int
		wantRef    int
	}{
		{
			name:       "identical",
			reference:  "the quick brown fox",
			hypothesis: "the quick brown fox",
			wantWER:    0.0,
			wantRef:    4,
		},
		{
			name:       "one_substitution",
			reference:  "the quick brown fox",
			hypothesis: "the fast brown fox",
			wantWER:    0.25,
			wantSubs:   1,
			wantRef:    4,
		},
		{
			name:       "one_deletion",
			reference:  "a b c",
			hypothesis: "a b",
			wantWER:    1.0 / 3.0,
			wantDels:   1,
			wantRef:    3,
		},
		{
			name:       "one_insertion",
			reference:  "the cat sat",
			hypothesis: "the big cat sat",
			wantWER:    1.0 / 3.0,
			wantIns:    1,
			wantRef:    3,
		},
		{
			name:       "both_empty",
			reference:  "",
			hypothesis: "",
			wantWER:    0.0,
		},
		{
			name:       "empty_reference",
			reference:  "",
			hypothesis: "some words",
			wantWER:    1.0,
			wantIns:    2,
		},
		{
			name:       "empty_hypothesis",
			reference:  "some words",
			hypothesis: "",
			wantWER:    1.0,
			wantDels:   2,
			wantRef:    2,
		},
		{
			name:       "insertions_exceed_reference",
			reference:  "hi",
			hypothesis: "oh hi there friend",
			wantWER:    3.0,
			wantIns:    3,
			wantRef:    1,
		},
		{
			name:       "extra_whitespace_ignored",
			reference:  "  the   cat ",
			hypothesis: "the\tcat\n",
			wantWER:    0.0,
			wantRef:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WordErrorCounts(tt.reference, tt.hypothesis)
			if !approx(got.Rate(), tt.wantWER) {
				t.Errorf("Rate() = %v, want %v", got.Rate(), tt.wantWER)
			}
			if got.Substitutions != tt.wantSubs || got.Insertions != tt.wantIns || got.Deletions != tt.wantDels {
				t.Errorf("S/I/D = %d/%d/%d, want %d/%d/%d",
					got.Substitutions, got.Insertions, got.Deletions, tt.wantSubs, tt.wantIns, tt.wantDels)
			}
			if got.ReferenceLength != tt.wantRef {
				t.Errorf("ReferenceLength = %d, want %d", got.ReferenceLength, tt.wantRef)
			}
			if !approx(WordErrorRate(tt.reference, tt.hypothesis), tt.wantWER) {
				t.Errorf("WordErrorRate() = %v, want %v", WordErrorRate(tt.reference, tt.hypothesis), tt.wantWER)
			}
		})
	}
}

func TestCharacterErrorRate(t *testing.T) {
	tests := []struct {
		name       string
		reference  string
		hypothesis string
		want       float64
	}{
		{"identical", "xin chào", "xin chào", 0.0},
		{"one_char", "abcd", "abed", 0.25},
		{"space_counts", "ab cd", "abcd", 0.2},
		{"multibyte", "vi\u1ec7t", "viet", 0.25},
		{"both_empty", "", "", 0.0},
		{"empty_reference", "", "a", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CharacterErrorRate(tt.reference, tt.hypothesis); !approx(got, tt.want) {
				t.Errorf("CharacterErrorRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountErrors_SwapSymmetry(t *testing.T) {
	a, b := []string{"a", "b", "c"}, []string{"x", "y", "z"}
	if ab, ba := CountErrors(a, b), CountErrors(b, a); ab.Substitutions != 3 || ba.Substitutions != 3 {
		t.Errorf("substitutions = %d / %d, want 3 / 3", ab.Substitutions, ba.Substitutions)
	}

	long, short := []string{"a", "b", "c", "d"}, []string{"a", "c"}
	fwd, back := CountErrors(long, short), CountErrors(short, long)
	if fwd.Deletions != back.Insertions || fwd.Insertions != back.Deletions {
		t.Errorf("forward I/D = %d/%d, backward I/D = %d/%d", fwd.Insertions, fwd.Deletions, back.Insertions, back.Deletions)
	}
}

func randomTokens(rng *rand.Rand, vocab []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = vocab[rng.Intn(len(vocab))]
	}
	return out
}

func TestCountErrors_MatchesLevenshteinDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vocab := []string{"uh", "um", "yes", "no", "the"}
	for i := 0; i < 300; i++ {
		ref := randomTokens(rng, vocab, rng.Intn(40))
		hyp := randomTokens(rng, vocab, rng.Intn(40))
		got := CountErrors(ref, hyp)
		if want := EditDistance(ref, hyp); got.Errors() != want {
			t.Fatalf("CountErrors(%v, %v).Errors() = %d, want distance %d", ref, hyp, got.Errors(), want)
		}
		if got.Hits+got.Substitutions+got.Deletions != len(ref) {
			t.Fatalf("reference side of %+v does not cover %d tokens", got, len(ref))
		}
		if got.Hits+got.Substitutions+got.Insertions != len(hyp) {
			t.Fatalf("hypothesis side of %+v does not cover %d tokens", got, len(hyp))
		}
	}
}

func TestCharacterErrorCounts_LongLineMemory(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ref := strings.Join(randomTokens(rng, []string{"a", "b", " "}, 6000), "")
	hyp := strings.Join(randomTokens(rng, []string{"a", "b", " "}, 6000), "")

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	counts := CharacterErrorCounts(ref, hyp)
	runtime.ReadMemStats(&after)

	if counts.ReferenceLength != 6000 {
		t.Errorf("ReferenceLength = %d, want 6000", counts.ReferenceLength)
	}
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 16<<20 {
		t.Errorf("CharacterErrorCounts allocated %d bytes for 6000 characters, want under 16 MiB", allocated)
	}
}

func BenchmarkWordErrorCounts_Repetitive(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	vocab := []string{"uh", "um", "yes"}
	ref := strings.Join(randomTokens(rng, vocab, 3000), " ")
	hyp := strings.Join(randomTokens(rng, vocab, 3000), " ")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		WordErrorCounts(ref, hyp)
	}
}

func BenchmarkCharacterErrorCounts(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	ref := strings.Join(randomTokens(rng, []string{"a", "b", " "}, 6000), "")
	hyp := strings.Join(randomTokens(rng, []string{"a", "b", " "}, 6000), "")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		CharacterErrorCounts(ref, hyp)
	}
}

func TestErrorCounts_Add(t *testing.T) {
	a := ErrorCounts{Substitutions: 1, Hits: 3, ReferenceLength: 4}
	b := ErrorCounts{Deletions: 1, Insertions: 2, Hits: 1, ReferenceLength: 2}
	want := ErrorCounts{Substitutions: 1, Deletions: 1, Insertions: 2, Hits: 4, ReferenceLength: 6}
	if got := a.Add(b); !reflect.DeepEqual(got, want) {
		t.Errorf("Add() = %+v, want %+v", got, want)
	}
	if got := want.Rate(); !approx(got, 4.0/6.0) {
		t.Errorf("Rate() = %v, want %v", got, 4.0/6.0)
	}
}

func TestRates_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := WordErrorRate("the quick brown fox", "the fast brown fox"); !approx(got, 0.25) {
				t.Errorf("WordErrorRate() = %v, want 0.25", got)
			}
			if got := CharacterErrorRate("abcd", "abed"); !approx(got, 0.25) {
				t.Errorf("CharacterErrorRate() = %v, want 0.25", got)
			}
		}()
	}
	wg.Wait()
}

func TestTokenize(t *testing.T) {
	if got := TokenizeWords(""); len(got) != 0 || got == nil {
		t.Errorf("TokenizeWords(\"\") = %#v, want empty non-nil slice", got)
	}
	if got, want := TokenizeWords(" a  b\tc\n"), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("TokenizeWords() = %v, want %v", got, want)
	}
	if got, want := TokenizeChars("\u00e0 b"), []string{"\u00e0", " ", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("TokenizeChars() = %v, want %v", got, want)
	}
	if got := TokenizeChars(""); len(got) != 0 {
		t.Errorf("TokenizeChars(\"\") = %v, want empty", got)
	}
}

func TestNormalizeText(t *testing.T) {
	decomposed := "vie\u0323\u0302t " // e + dot below + circumflex
	if got, want := NormalizeText(decomposed), "vi\u1ec7t"; got != want {
		t.Errorf("NormalizeText() = %q, want %q", got, want)
	}
}

func TestCalculateLatency(t *testing.T) {
	if got := CalculateLatency(125); got != 125 {
		t.Errorf("CalculateLatency() = %d, want 125", got)
	}
}

package alignment

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func words(s string) []string { return strings.Fields(s) }

// rebuild concatenates the spans of one side of an alignment.
func rebuild(ops []Operation, ref, hyp []string) (gotRef, gotHyp []string) {
	gotRef, gotHyp = []string{}, []string{}
	for _, op := range ops {
		gotRef = append(gotRef, ref[op.RefStart:op.RefEnd]...)
		gotHyp = append(gotHyp, hyp[op.HypStart:op.HypEnd]...)
	}
	return gotRef, gotHyp
}

func TestAlign(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		hyp  string
		want []Operation
	}{
		{
			name: "identical",
			ref:  "the quick brown fox",
			hyp:  "the quick brown fox",
			want: []Operation{{Kind: Equal, RefStart: 0, RefEnd: 4, HypStart: 0, HypEnd: 4}},
		},
		{
			name: "one_substitution",
			ref:  "the quick brown fox",
			hyp:  "the fast brown fox",
			want: []Operation{
				{Kind: Equal, RefStart: 0, RefEnd: 1, HypStart: 0, HypEnd: 1},
				{Kind: Substitution, RefStart: 1, RefEnd: 2, HypStart: 1, HypEnd: 2},
				{Kind: Equal, RefStart: 2, RefEnd: 4, HypStart: 2, HypEnd: 4},
			},
		},
		{
			name: "trailing_deletion",
			ref:  "a b c",
			hyp:  "a b",
			want: []Operation{
				{Kind: Equal, RefStart: 0, RefEnd: 2, HypStart: 0, HypEnd: 2},
				{Kind: Deletion, RefStart: 2, RefEnd: 3, HypStart: 2, HypEnd: 2},
			},
		},
		{
			name: "empty_reference",
			ref:  "",
			hyp:  "x y",
			want: []Operation{{Kind: Insertion, RefStart: 0, RefEnd: 0, HypStart: 0, HypEnd: 2}},
		},
		{
			name: "empty_hypothesis",
			ref:  "x y",
			hyp:  "",
			want: []Operation{{Kind: Deletion, RefStart: 0, RefEnd: 2, HypStart: 0, HypEnd: 0}},
		},
		{
			name: "both_empty",
			ref:  "",
			hyp:  "",
			want: nil,
		},
		{
			name: "inner_insertion",
			ref:  "the cat sat",
			hyp:  "the big cat sat",
			want: []Operation{
				{Kind: Equal, RefStart: 0, RefEnd: 1, HypStart: 0, HypEnd: 1},
				{Kind: Insertion, RefStart: 1, RefEnd: 1, HypStart: 1, HypEnd: 2},
				{Kind: Equal, RefStart: 1, RefEnd: 3, HypStart: 2, HypEnd: 4},
			},
		},
		{
			// The longest run "b c d" wins, leaving a replace block on the left.
			name: "longest_block_first",
			ref:  "a b c d",
			hyp:  "x b c d",
			want: []Operation{
				{Kind: Substitution, RefStart: 0, RefEnd: 1, HypStart: 0, HypEnd: 1},
				{Kind: Equal, RefStart: 1, RefEnd: 4, HypStart: 1, HypEnd: 4},
			},
		},
		{
			// Uneven replace: two reference tokens against one hypothesis token.
			name: "uneven_replace",
			ref:  "one two three four",
			hyp:  "one 2 four",
			want: []Operation{
				{Kind: Equal, RefStart: 0, RefEnd: 1, HypStart: 0, HypEnd: 1},
				{Kind: Substitution, RefStart: 1, RefEnd: 3, HypStart: 1, HypEnd: 2},
				{Kind: Equal, RefStart: 3, RefEnd: 4, HypStart: 2, HypEnd: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Align(words(tt.ref), words(tt.hyp))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Align() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAlign_Coverage(t *testing.T) {
	pairs := [][2]string{
		{"the quick brown fox jumps over the lazy dog", "a quick brown dog jumps over the the lazy fox"},
		{"a a a b b b", "b b b a a a"},
		{"x y z", "p q r s t"},
		{"one", ""},
		{"", "one two"},
		{"to be or not to be that is the question", "to be or to be not that is question the"},
		{"a b a b a b a b", "b a b a"},
	}
	for _, p := range pairs {
		ref, hyp := words(p[0]), words(p[1])
		ops := Align(ref, hyp)

		gotRef, gotHyp := rebuild(ops, ref, hyp)
		if !reflect.DeepEqual(gotRef, append([]string{}, ref...)) {
			t.Errorf("reference side of %q rebuilt as %v", p[0], gotRef)
		}
		if !reflect.DeepEqual(gotHyp, append([]string{}, hyp...)) {
			t.Errorf("hypothesis side of %q rebuilt as %v", p[1], gotHyp)
		}

		nonEqual := 0
		for _, op := range ops {
			if op.Kind != Equal {
				nonEqual++
			}
			if op.Kind == Equal && !reflect.DeepEqual(ref[op.RefStart:op.RefEnd], hyp[op.HypStart:op.HypEnd]) {
				t.Errorf("equal span %+v differs for %q / %q", op, p[0], p[1])
			}
		}
		bound := len(ref)
		if len(hyp) > bound {
			bound = len(hyp)
		}
		if nonEqual > bound {
			t.Errorf("%d non-equal operations exceed bound %d for %q / %q", nonEqual, bound, p[0], p[1])
		}
	}
}

func TestAlign_SwapSidesSwapsInsertAndDelete(t *testing.T) {
	ref, hyp := words("a b c d"), words("a c")
	forward := Align(ref, hyp)
	backward := Align(hyp, ref)

	_, fIns, fDel, _, _ := Counts(forward)
	_, bIns, bDel, _, _ := Counts(backward)
	if fIns != bDel || fDel != bIns {
		t.Errorf("forward ins/del = %d/%d, backward = %d/%d", fIns, fDel, bIns, bDel)
	}

	allDifferent := Align(words("a b c"), words("x y z"))
	swapped := Align(words("x y z"), words("a b c"))
	_, _, _, s1, _ := Counts(allDifferent)
	_, _, _, s2, _ := Counts(swapped)
	if s1 != 3 || s2 != 3 {
		t.Errorf("substituted tokens = %d and %d, want 3 both ways", s1, s2)
	}
}

func TestAlign_Runes(t *testing.T) {
	ops := Align([]rune("abxcd"), []rune("abcd"))
	want := []Operation{
		{Kind: Equal, RefStart: 0, RefEnd: 2, HypStart: 0, HypEnd: 2},
		{Kind: Deletion, RefStart: 2, RefEnd: 3, HypStart: 2, HypEnd: 2},
		{Kind: Equal, RefStart: 3, RefEnd: 5, HypStart: 2, HypEnd: 4},
	}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("Align(runes) = %+v, want %+v", ops, want)
	}
}

func TestAlignWithOptions_AutoJunk(t *testing.T) {
	ref := []string{"x"}
	hyp := []string{"y"}
	for i := 0; i < 300; i++ {
		ref = append(ref, "uh")
		hyp = append(hyp, "uh")
	}

	ops := Align(ref, hyp)
	want := []Operation{
		{Kind: Substitution, RefStart: 0, RefEnd: 1, HypStart: 0, HypEnd: 1},
		{Kind: Equal, RefStart: 1, RefEnd: 301, HypStart: 1, HypEnd: 301},
	}
	if !reflect.DeepEqual(ops, want) {
		t.Fatalf("Align() = %+v, want %+v", ops, want)
	}

	// "uh" is popular and nothing else matches, so the heuristic finds no run.
	ops = AlignWithOptions(ref, hyp, Options{AutoJunk: true})
	if len(ops) != 1 || ops[0].Kind != Substitution {
		t.Errorf("AlignWithOptions(AutoJunk) = %+v, want one substitution span", ops)
	}
}

func TestMatchingBlocks(t *testing.T) {
	got := MatchingBlocks([]rune("abxcd"), []rune("abcd"), Options{})
	want := []Match{{0, 0, 2}, {3, 2, 2}, {5, 4, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MatchingBlocks() = %v, want %v", got, want)
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name     string
		ref, hyp string
		want     float64
	}{
		{"identical", "a b", "a b", 1.0},
		{"disjoint", "a b", "c d", 0.0},
		{"half", "a b", "a c", 0.5},
		{"both_empty", "", "", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, hyp := words(tt.ref), words(tt.hyp)
			if got := Ratio(Align(ref, hyp), len(ref), len(hyp)); got != tt.want {
				t.Errorf("Ratio() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	for kind, want := range map[Kind]string{
		Equal:        "equal",
		Insertion:    "insertion",
		Deletion:     "deletion",
		Substitution: "substitution",
		Kind(42):     "unknown",
	} {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{Equal, Insertion, Deletion, Substitution} {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Kind
		if err := got.UnmarshalText(text); err != nil || got != k {
			t.Errorf("UnmarshalText(%q) = %v, %v", text, got, err)
		}
	}
	var k Kind
	if err := k.UnmarshalText([]byte("transposition")); err == nil {
		t.Error("UnmarshalText(transposition) expected error")
	}
}

// bruteLongestMatch scans every start pair of the window.
func bruteLongestMatch(ref, hyp []string, rlo, rhi, hlo, hhi int) Match {
	best := Match{RefStart: rlo, HypStart: hlo}
	for i := rlo; i < rhi; i++ {
		for j := hlo; j < hhi; j++ {
			k := 0
			for i+k < rhi && j+k < hhi && ref[i+k] == hyp[j+k] {
				k++
			}
			if k > best.Size {
				best = Match{RefStart: i, HypStart: j, Size: k}
			}
		}
	}
	return best
}

func randomWords(rng *rand.Rand, vocab []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = vocab[rng.Intn(len(vocab))]
	}
	return out
}

func TestLongestMatch_AgreesWithBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	vocab := []string{"a", "b", "c"}
	for n := 0; n < 200; n++ {
		ref := randomWords(rng, vocab, rng.Intn(30))
		hyp := randomWords(rng, vocab, rng.Intn(30))
		m := newMatcher(ref, hyp, Options{})
		// Several windows per matcher exercise the reused rows.
		for w := 0; w < 5; w++ {
			rlo := rng.Intn(len(ref) + 1)
			rhi := rlo + rng.Intn(len(ref)-rlo+1)
			hlo := rng.Intn(len(hyp) + 1)
			hhi := hlo + rng.Intn(len(hyp)-hlo+1)
			got := m.longestMatch(rlo, rhi, hlo, hhi)
			want := bruteLongestMatch(ref, hyp, rlo, rhi, hlo, hhi)
			if got != want {
				t.Fatalf("longestMatch(%v, %v, [%d:%d], [%d:%d]) = %+v, want %+v", ref, hyp, rlo, rhi, hlo, hhi, got, want)
			}
		}
		for i := range m.prev {
			if m.prev[i] != 0 || m.cur[i] != 0 {
				t.Fatalf("run rows not cleared after longestMatch: %v %v", m.prev, m.cur)
			}
		}
	}
}

func TestAlign_LongRepetitiveInputCovers(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	vocab := []string{"uh", "um", "yes"}
	ref, hyp := randomWords(rng, vocab, 3000), randomWords(rng, vocab, 3000)
	gotRef, gotHyp := rebuild(Align(ref, hyp), ref, hyp)
	if !reflect.DeepEqual(gotRef, ref) || !reflect.DeepEqual(gotHyp, hyp) {
		t.Error("alignment of 3000-token repetitive input does not cover both sides")
	}
}

func BenchmarkAlign_Repetitive(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	vocab := []string{"uh", "um", "yes"}
	ref, hyp := randomWords(rng, vocab, 3000), randomWords(rng, vocab, 3000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Align(ref, hyp)
	}
}

package metricscalculator

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// unitCosts weighs insertion, deletion and substitution equally, which is
// what WER and CER count.
var unitCosts = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// ErrorCounts is the outcome of a minimum edit script between a reference
// and a hypothesis token sequence.
type ErrorCounts struct {
	Substitutions   int `json:"substitutions"`
	Deletions       int `json:"deletions"`
	Insertions      int `json:"insertions"`
	Hits            int `json:"hits"`
	ReferenceLength int `json:"reference_length"`
}

// Errors is the edit distance, S + D + I.
func (c ErrorCounts) Errors() int {
	return c.Substitutions + c.Deletions + c.Insertions
}

// Rate normalises the edit distance by the reference length. An empty
// reference rates 1.0 when anything was inserted and 0.0 otherwise, so the
// result is always finite.
func (c ErrorCounts) Rate() float64 {
	if c.ReferenceLength == 0 {
		if c.Insertions > 0 {
			return 1.0
		}
		return 0.0
	}
	return float64(c.Errors()) / float64(c.ReferenceLength)
}

// Add sums two counts, for corpus-level rates.
func (c ErrorCounts) Add(o ErrorCounts) ErrorCounts {
	return ErrorCounts{
		Substitutions:   c.Substitutions + o.Substitutions,
		Deletions:       c.Deletions + o.Deletions,
		Insertions:      c.Insertions + o.Insertions,
		Hits:            c.Hits + o.Hits,
		ReferenceLength: c.ReferenceLength + o.ReferenceLength,
	}
}

// CountErrors tallies the minimum edit script turning ref into hyp. Only two
// rows of the edit table are kept, along the shorter sequence; equal-cost
// ties prefer a substitution or match, then a deletion, then an insertion.
func CountErrors(ref, hyp []string) ErrorCounts {
	src, dst := intern(ref, hyp)
	var sub, del, ins int
	if len(dst) > len(src) {
		// Reading the table the other way round swaps deletions and insertions.
		sub, ins, del = editCounts(dst, src)
	} else {
		sub, del, ins = editCounts(src, dst)
	}
	return ErrorCounts{
		Substitutions:   sub,
		Deletions:       del,
		Insertions:      ins,
		Hits:            len(ref) - sub - del,
		ReferenceLength: len(ref),
	}
}

// EditDistance is the unit-cost Levenshtein distance between two token
// sequences. It always equals CountErrors(ref, hyp).Errors().
func EditDistance(ref, hyp []string) int {
	src, dst := intern(ref, hyp)
	return levenshtein.DistanceForStrings(src, dst, unitCosts)
}

type editCell struct {
	cost, sub, del, ins int
}

// editCounts runs the edit table with rows over src and columns over dst.
func editCounts(src, dst []rune) (sub, del, ins int) {
	prev := make([]editCell, len(dst)+1)
	cur := make([]editCell, len(dst)+1)
	for j := range prev {
		prev[j] = editCell{cost: j, ins: j}
	}
	for i := 1; i <= len(src); i++ {
		cur[0] = editCell{cost: i, del: i}
		for j := 1; j <= len(dst); j++ {
			best := prev[j-1]
			if src[i-1] != dst[j-1] {
				best.cost++
				best.sub++
			}
			if up := prev[j]; up.cost+1 < best.cost {
				best = up
				best.cost++
				best.del++
			}
			if left := cur[j-1]; left.cost+1 < best.cost {
				best = left
				best.cost++
				best.ins++
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}
	last := prev[len(dst)]
	return last.sub, last.del, last.ins
}

// intern maps every distinct token to its own rune so the rune-based edit
// distance can align arbitrary tokens.
func intern(ref, hyp []string) ([]rune, []rune) {
	vocab := make(map[string]rune, len(ref)+len(hyp))
	encode := func(tokens []string) []rune {
		out := make([]rune, len(tokens))
		for i, tok := range tokens {
			r, ok := vocab[tok]
			if !ok {
				r = rune(len(vocab))
				vocab[tok] = r
			}
			out[i] = r
		}
		return out
	}
	return encode(ref), encode(hyp)
}

// WordErrorCounts counts word-level edits between reference and hypothesis.
func WordErrorCounts(reference, hypothesis string) ErrorCounts {
	return CountErrors(TokenizeWords(reference), TokenizeWords(hypothesis))
}

// CharacterErrorCounts counts code-point-level edits, spaces included.
func CharacterErrorCounts(reference, hypothesis string) ErrorCounts {
	return CountErrors(TokenizeChars(reference), TokenizeChars(hypothesis))
}

// WordErrorRate calculates the Word Error Rate (WER).
// WER = (Substitutions + Deletions + Insertions) / Number of words in reference
func WordErrorRate(reference, hypothesis string) float64 {
	return WordErrorCounts(reference, hypothesis).Rate()
}

// CharacterErrorRate calculates the Character Error Rate (CER).
// CER = (Substitutions + Deletions + Insertions) / Number of characters in reference
func CharacterErrorRate(reference, hypothesis string) float64 {
	return CharacterErrorCounts(reference, hypothesis).Rate()
}

// CalculateLatency simply returns the duration in milliseconds.
// Timing itself happens around the recogniser call.
func CalculateLatency(durationMs int64) int64 {
	return durationMs
}

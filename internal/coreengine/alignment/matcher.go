package alignment

import (
	"fmt"
	"sort"
)

// Kind is the edit operation an aligned span represents.
type Kind int

const (
	Equal Kind = iota
	Insertion
	Deletion
	Substitution
)

// String returns the lower-case name used in JSON payloads and reports.
func (k Kind) String() string {
	switch k {
	case Equal:
		return "equal"
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	case Substitution:
		return "substitution"
	default:
		return "unknown"
	}
}

// MarshalText lets Kind appear as a string in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the names String produces.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, candidate := range []Kind{Equal, Insertion, Deletion, Substitution} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown operation kind %q", text)
}

// Operation covers ref[RefStart:RefEnd] and hyp[HypStart:HypEnd].
// Insertion has an empty reference span, Deletion an empty hypothesis span.
type Operation struct {
	Kind     Kind `json:"kind"`
	RefStart int  `json:"ref_start"`
	RefEnd   int  `json:"ref_end"`
	HypStart int  `json:"hyp_start"`
	HypEnd   int  `json:"hyp_end"`
}

// RefLen is the number of reference tokens the operation covers.
func (o Operation) RefLen() int { return o.RefEnd - o.RefStart }

// HypLen is the number of hypothesis tokens the operation covers.
func (o Operation) HypLen() int { return o.HypEnd - o.HypStart }

// Options tunes the matcher.
type Options struct {
	// AutoJunk drops hypothesis tokens that occur in more than 1% of a
	// hypothesis of 200+ tokens from the match index. Off by default.
	AutoJunk bool
}

// Match is a common contiguous run: ref[RefStart:RefStart+Size] == hyp[HypStart:HypStart+Size].
type Match struct {
	RefStart int
	HypStart int
	Size     int
}

// matcher holds the per-call index of hypothesis positions and the two
// run-length rows longestMatch reuses. Row entry j+1 is the length of the run
// ending at hyp[j]; only touched entries are cleared between rows.
type matcher[T comparable] struct {
	ref, hyp []T
	hypIndex map[T][]int

	prev, cur               []int
	prevTouched, curTouched []int
}

func newMatcher[T comparable](ref, hyp []T, opts Options) *matcher[T] {
	m := &matcher[T]{
		ref:      ref,
		hyp:      hyp,
		hypIndex: make(map[T][]int),
		prev:     make([]int, len(hyp)+1),
		cur:      make([]int, len(hyp)+1),
	}
	for j, tok := range hyp {
		m.hypIndex[tok] = append(m.hypIndex[tok], j)
	}
	if opts.AutoJunk && len(hyp) >= 200 {
		limit := len(hyp)/100 + 1
		for tok, idx := range m.hypIndex {
			if len(idx) > limit {
				delete(m.hypIndex, tok)
			}
		}
	}
	return m
}

// longestMatch finds the longest common run inside ref[rlo:rhi] and
// hyp[hlo:hhi]. Ties go to the earliest reference start, then the earliest
// hypothesis start.
func (m *matcher[T]) longestMatch(rlo, rhi, hlo, hhi int) Match {
	best := Match{RefStart: rlo, HypStart: hlo}
	prev, cur := m.prev, m.cur
	prevTouched, curTouched := m.prevTouched[:0], m.curTouched[:0]
	for i := rlo; i < rhi; i++ {
		for _, j := range m.hypIndex[m.ref[i]] {
			if j < hlo {
				continue
			}
			if j >= hhi {
				break
			}
			k := prev[j] + 1
			cur[j+1] = k
			curTouched = append(curTouched, j+1)
			if k > best.Size {
				best = Match{RefStart: i - k + 1, HypStart: j - k + 1, Size: k}
			}
		}
		for _, t := range prevTouched {
			prev[t] = 0
		}
		prev, cur = cur, prev
		prevTouched, curTouched = curTouched, prevTouched[:0]
	}
	for _, t := range prevTouched {
		prev[t] = 0
	}
	m.prevTouched, m.curTouched = prevTouched[:0], curTouched[:0]

	// Tokens removed by AutoJunk can still extend a run on either side.
	for best.RefStart > rlo && best.HypStart > hlo && m.ref[best.RefStart-1] == m.hyp[best.HypStart-1] {
		best.RefStart--
		best.HypStart--
		best.Size++
	}
	for best.RefStart+best.Size < rhi && best.HypStart+best.Size < hhi &&
		m.ref[best.RefStart+best.Size] == m.hyp[best.HypStart+best.Size] {
		best.Size++
	}
	return best
}

// matchingBlocks returns the non-adjacent matching runs in order, terminated
// by a zero-size sentinel at (len(ref), len(hyp)).
func (m *matcher[T]) matchingBlocks() []Match {
	type window struct{ rlo, rhi, hlo, hhi int }
	queue := []window{{0, len(m.ref), 0, len(m.hyp)}}
	var blocks []Match
	for len(queue) > 0 {
		w := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		b := m.longestMatch(w.rlo, w.rhi, w.hlo, w.hhi)
		if b.Size == 0 {
			continue
		}
		blocks = append(blocks, b)
		if w.rlo < b.RefStart && w.hlo < b.HypStart {
			queue = append(queue, window{w.rlo, b.RefStart, w.hlo, b.HypStart})
		}
		if b.RefStart+b.Size < w.rhi && b.HypStart+b.Size < w.hhi {
			queue = append(queue, window{b.RefStart + b.Size, w.rhi, b.HypStart + b.Size, w.hhi})
		}
	}
	sort.Slice(blocks, func(a, b int) bool {
		if blocks[a].RefStart != blocks[b].RefStart {
			return blocks[a].RefStart < blocks[b].RefStart
		}
		return blocks[a].HypStart < blocks[b].HypStart
	})

	merged := make([]Match, 0, len(blocks)+1)
	var cur Match
	for _, b := range blocks {
		if cur.RefStart+cur.Size == b.RefStart && cur.HypStart+cur.Size == b.HypStart {
			cur.Size += b.Size
			continue
		}
		if cur.Size > 0 {
			merged = append(merged, cur)
		}
		cur = b
	}
	if cur.Size > 0 {
		merged = append(merged, cur)
	}
	return append(merged, Match{RefStart: len(m.ref), HypStart: len(m.hyp)})
}

// MatchingBlocks exposes the merged common runs of ref and hyp, ending with
// the zero-size sentinel.
func MatchingBlocks[T comparable](ref, hyp []T, opts Options) []Match {
	return newMatcher(ref, hyp, opts).matchingBlocks()
}

// AlignWithOptions is Align with explicit matcher options.
func AlignWithOptions[T comparable](ref, hyp []T, opts Options) []Operation {
	var ops []Operation
	i, j := 0, 0
	for _, b := range newMatcher(ref, hyp, opts).matchingBlocks() {
		switch {
		case i < b.RefStart && j < b.HypStart:
			ops = append(ops, Operation{Kind: Substitution, RefStart: i, RefEnd: b.RefStart, HypStart: j, HypEnd: b.HypStart})
		case i < b.RefStart:
			ops = append(ops, Operation{Kind: Deletion, RefStart: i, RefEnd: b.RefStart, HypStart: j, HypEnd: j})
		case j < b.HypStart:
			ops = append(ops, Operation{Kind: Insertion, RefStart: i, RefEnd: i, HypStart: j, HypEnd: b.HypStart})
		}
		i, j = b.RefStart+b.Size, b.HypStart+b.Size
		if b.Size > 0 {
			ops = append(ops, Operation{Kind: Equal, RefStart: b.RefStart, RefEnd: i, HypStart: b.HypStart, HypEnd: j})
		}
	}
	return ops
}

// Align returns the operations turning ref into hyp, covering both sequences
// left to right without gaps or overlap.
func Align[T comparable](ref, hyp []T) []Operation {
	return AlignWithOptions(ref, hyp, Options{})
}

// Ratio is the similarity 2*M/T over an alignment, where M is the number of
// equal tokens and T the combined length. Two empty sequences score 1.
func Ratio(ops []Operation, refLen, hypLen int) float64 {
	total := refLen + hypLen
	if total == 0 {
		return 1.0
	}
	matches := 0
	for _, op := range ops {
		if op.Kind == Equal {
			matches += op.RefLen()
		}
	}
	return 2.0 * float64(matches) / float64(total)
}

// Counts tallies the tokens per kind. Substitution spans may differ in
// length on each side, so both are returned.
func Counts(ops []Operation) (equal, inserted, deleted, substitutedRef, substitutedHyp int) {
	for _, op := range ops {
		switch op.Kind {
		case Equal:
			equal += op.RefLen()
		case Insertion:
			inserted += op.HypLen()
		case Deletion:
			deleted += op.RefLen()
		case Substitution:
			substitutedRef += op.RefLen()
			substitutedHyp += op.HypLen()
		}
	}
	return
}

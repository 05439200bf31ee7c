// Package search implements the Viterbi best-path pass over a lattice
// (spec §4.5, component C6): a per-node beam of hypotheses advanced edge by
// edge through the language model, with back-pointers held in a shared
// arena rather than per-hypothesis slices (spec Design Note 4).
package search

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/kiwigo/kiwi/dict"
	"github.com/kiwigo/kiwi/hangul"
	"github.com/kiwigo/kiwi/lattice"
	"github.com/kiwigo/kiwi/lm"
)

// Options configures a Searcher's scoring and beam limits.
type Options struct {
	TopN            int     // number of ranked results to return
	BeamSize        int     // top-K hypotheses kept per lattice node
	CutOffThreshold float64 // hypotheses scoring below (nodeBest - this) are dropped

	SpacePenalty float64 // subtracted per whitespace rune on an edge

	// UnknownLengthPrior scores an unknown-form node's length (a
	// log-Poisson over observed unknown-word lengths, spec §4.5 step 5);
	// nil disables the prior.
	UnknownLengthPrior func(length int) float64

	DialectCost     float64      // subtracted when a dialect-tagged morpheme is accepted
	AllowedDialects dict.Dialect // bitmask of dialects the caller permits; 0 = standard only

	TypoCostWeight float64 // multiplies a typo-variant node's TypoCost

	// LeftBoundaryPrior scores a tag-dependent prior on starting right
	// after whitespace or at the very beginning of input (spec §4.5 step
	// 5); nil disables the prior.
	LeftBoundaryPrior func(tag dict.Tag) float64

	Blocklist map[dict.MorphID]bool // morphemes that must never appear in output (spec §7 "Blocklist respect")

	// IntegrateAllomorph collapses a morpheme carrying a nonzero GroupID to
	// its group's canonical LM token during scoring (spec §6
	// "integrate_allomorph"), so allomorphs like 이/가 or 을/를 never compete
	// against each other for a slightly different LM score.
	IntegrateAllomorph bool
}

// DefaultOptions returns reasonable scoring defaults, grounded on the
// magnitudes the retrieved Kiwi source uses for its space/typo penalties.
func DefaultOptions() Options {
	return Options{
		TopN:            1,
		BeamSize:        24,
		CutOffThreshold: 5.0,
		SpacePenalty:    1.5,
		DialectCost:     3.0,
		TypoCostWeight:  2.0,
		AllowedDialects: dict.DialectStandard,
		UnknownLengthPrior: func(length int) float64 {
			return poissonLogPMF(1.5, length)
		},
	}
}

func poissonLogPMF(lambda float64, k int) float64 {
	if k < 0 {
		return math.Inf(-1)
	}
	logFactorial, _ := math.Lgamma(float64(k) + 1)
	return float64(k)*math.Log(lambda) - lambda - logFactorial
}

// Searcher runs the beam search against a fixed model and dictionary. It
// holds no per-run state and is safe for concurrent use across goroutines,
// same as lm.Model.
type Searcher struct {
	Model      *lm.Model
	Dictionary *dict.Dictionary
	Opts       Options
}

// New returns a Searcher, filling any zero-valued beam-size/topN fields
// with safe minimums.
func New(model *lm.Model, d *dict.Dictionary, opts Options) *Searcher {
	if opts.BeamSize <= 0 {
		opts.BeamSize = 24
	}
	if opts.TopN <= 0 {
		opts.TopN = 1
	}
	return &Searcher{Model: model, Dictionary: d, Opts: opts}
}

// Token is one output record (spec §4.5 "Output").
type Token struct {
	Surface         string
	Tag             dict.Tag
	SenseID         uint8
	StartPos        int // original-text UTF-16 offset
	Length          int // original-text UTF-16 length
	Score           float64
	TypoCost        int
	PairedBracket   bool
	SubSentPosition int // filled in by the per-sentence driver; 0 here
	Dialect         dict.Dialect
}

// Result is one ranked analysis path.
type Result struct {
	Tokens []Token
	Score  float64
}

// step is one back-pointer arena cell: a hypothesis's morpheme sequence is
// a linked list through steps rather than a per-hypothesis slice, so
// sibling hypotheses sharing a prefix share the same arena cells (spec
// Design Note 4).
type step struct {
	prev       int32
	morphID    dict.MorphID
	text       string // the actual covered substring (not the morpheme's canonical form text)
	start, end int     // normalized rune offsets
	typoCost   int
}

type hypothesis struct {
	lmState       lm.State
	accScore      float64
	tail          int32 // index into runState.arena, -1 = empty
	combineSocket uint8
	lastVowel     rune
	lastHasCoda   bool
}

type runState struct {
	arena []step
}

func (rs *runState) push(prev int32, morphID dict.MorphID, text string, start, end, typoCost int) int32 {
	idx := int32(len(rs.arena))
	rs.arena = append(rs.arena, step{prev: prev, morphID: morphID, text: text, start: start, end: end, typoCost: typoCost})
	return idx
}

// Run executes the beam search over g and returns up to Opts.TopN ranked
// results, mapping normalized-sequence spans back through posMap to
// original-text UTF-16 offsets.
func (s *Searcher) Run(g *lattice.Graph, posMap hangul.PosMap) []Result {
	rs := &runState{}
	beams := make([][]hypothesis, len(g.Nodes))
	beams[0] = []hypothesis{{lmState: lm.RootState, tail: -1}}

	for nIdx := 1; nIdx < len(g.Nodes); nIdx++ {
		node := &g.Nodes[nIdx]
		var nodeBeam []hypothesis

		for _, e := range g.Incoming(nIdx) {
			pred := beams[e.From]
			spacePenalty := -s.Opts.SpacePenalty * float64(e.NumSpaces)
			startsAfterSpace := e.NumSpaces > 0 || g.Nodes[e.From].Kind == lattice.KindSentinelStart

			if node.Kind == lattice.KindSentinelEnd {
				for _, h := range pred {
					nh := h
					nh.accScore += spacePenalty
					nodeBeam = append(nodeBeam, nh)
				}
				continue
			}

			for _, h := range pred {
				for _, mid := range node.Candidates {
					if s.Opts.Blocklist[mid] {
						continue
					}
					m := s.Dictionary.Morpheme(mid)
					if m == nil {
						continue
					}
					if ext, ok := s.extend(rs, h, node, m, spacePenalty, startsAfterSpace); ok {
						nodeBeam = append(nodeBeam, ext)
					}
				}
			}
		}

		beams[nIdx] = mergeAndPrune(nodeBeam, rs.arena, s.Opts)
	}

	endBeam := beams[len(g.Nodes)-1]
	sort.Slice(endBeam, func(i, j int) bool { return endBeam[i].accScore > endBeam[j].accScore })
	if len(endBeam) > s.Opts.TopN {
		endBeam = endBeam[:s.Opts.TopN]
	}

	out := make([]Result, len(endBeam))
	for i, h := range endBeam {
		out[i] = Result{Tokens: s.backtrace(rs.arena, h.tail, posMap), Score: h.accScore}
	}
	return out
}

// extend applies spec §4.5 steps 1-5 for one (predecessor hypothesis,
// candidate morpheme) pair on the edge into node, returning the extended
// hypothesis or false if any gate rejects it.
func (s *Searcher) extend(rs *runState, h hypothesis, node *lattice.Node, m *dict.Morpheme, spacePenalty float64, startsAfterSpace bool) (hypothesis, bool) {
	// Step 1: feature gate, with the irregular-conjugation fallback
	// admitting an otherwise-rejected irregular tag unconditionally (spec
	// §4.5 step 1 "Irregular-conjugation tags have a fallback feature that
	// also admits the regular form").
	if !dict.MatchesVowelCond(m.Vowel, h.lastVowel, h.lastHasCoda) {
		if !m.Tag.IsIrregular() {
			return hypothesis{}, false
		}
	}
	if node.HasVowelCond && !dict.MatchesVowelCond(node.LeftVowelCond, h.lastVowel, h.lastHasCoda) {
		return hypothesis{}, false
	}

	// Step 2: combine-socket gate.
	tokens, newSocket, skip, ok := combineGate(s.Dictionary, h, m)
	if !ok {
		return hypothesis{}, false
	}

	// Step 5 (dialect) gates before we spend any LM work.
	if m.Dialect != 0 && s.Opts.AllowedDialects&m.Dialect == 0 {
		return hypothesis{}, false
	}

	acc := h.accScore + spacePenalty
	lmState := h.lmState
	lastVowel, lastHasCoda := h.lastVowel, h.lastHasCoda
	tail := h.tail

	for i, mid := range tokens {
		child := s.Dictionary.Morpheme(mid)
		if child == nil {
			return hypothesis{}, false
		}

		// i < skip names the socket-opening fragment the edge that set
		// h.combineSocket already scored against the LM and gated (spec
		// §4.6 step (c)); it still gets its own output token here — this
		// chunk's span is real text the opening edge's node never
		// covered — but is not re-scored or re-gated.
		if i >= skip {
			if i > 0 && !dict.MatchesVowelCond(child.Vowel, lastVowel, lastHasCoda) && !child.Tag.IsIrregular() {
				return hypothesis{}, false
			}

			lmToken := child.LMTokenID
			if s.Opts.IntegrateAllomorph && child.GroupID != 0 {
				if founder := s.Dictionary.Morpheme(dict.MorphID(child.GroupID)); founder != nil {
					lmToken = founder.LMTokenID
				}
			}
			var delta float64
			lmState, delta = s.Model.Advance(lmState, lmToken)
			acc += delta + float64(child.UserScore)

			if f := s.Dictionary.Form(child.FormID); f != nil {
				lastVowel, lastHasCoda = f.LastVowel, f.LastHasCoda
			}
		}

		start, end, text := node.Start, node.End, node.Text
		if len(tokens) > 1 {
			c := m.Chunks[i]
			start, end = chunkSpan(node, m, i)
			text = node.Text[c.Start:c.End]
		}
		tail = rs.push(tail, mid, text, start, end, node.TypoCost)
	}

	if startsAfterSpace && s.Opts.LeftBoundaryPrior != nil {
		acc += s.Opts.LeftBoundaryPrior(m.Tag)
	}
	if node.Kind == lattice.KindUnknown && s.Opts.UnknownLengthPrior != nil {
		acc += s.Opts.UnknownLengthPrior(node.End - node.Start)
	}
	if m.Dialect != 0 {
		acc -= s.Opts.DialectCost
	}
	if node.TypoCost > 0 {
		acc -= s.Opts.TypoCostWeight * float64(node.TypoCost)
	}

	return hypothesis{
		lmState:       lmState,
		accScore:      acc,
		tail:          tail,
		combineSocket: newSocket,
		lastVowel:     lastVowel,
		lastHasCoda:   lastHasCoda,
	}, true
}

// combineGate implements spec §4.5 step 2 and spec §4.6 step (c). It
// returns the ordered list of morpheme IDs this edge's node carries (one
// for a plain candidate, the chunk list for a pre-analyzed or
// socket-completing compound), the combine-socket the resulting hypothesis
// carries forward, and how many leading entries of tokens the caller
// should treat as already scored and gated — the fragment that opened the
// socket on a previous edge, which still gets an output token for its
// span here but must not be charged to the LM or vowel-gate a second time.
func combineGate(d *dict.Dictionary, h hypothesis, m *dict.Morpheme) (tokens []dict.MorphID, newSocket uint8, skip int, ok bool) {
	if h.combineSocket != 0 {
		if len(m.Chunks) == 0 {
			return nil, 0, 0, false
		}
		first := d.Morpheme(m.Chunks[0].MorphID)
		if first == nil || first.CombineSocket != h.combineSocket {
			return nil, 0, 0, false
		}
		return chunkIDs(m), 0, 1, true
	}
	if len(m.Chunks) > 0 {
		return chunkIDs(m), 0, 0, true
	}
	if m.IsPartial() {
		return []dict.MorphID{m.ID}, m.CombineSocket, 0, true
	}
	return []dict.MorphID{m.ID}, 0, 0, true
}

func chunkIDs(m *dict.Morpheme) []dict.MorphID {
	ids := make([]dict.MorphID, len(m.Chunks))
	for i, c := range m.Chunks {
		ids[i] = c.MorphID
	}
	return ids
}

// chunkSpan maps a Chunk's byte range (within its parent Form's normalized
// text) onto the node's rune span, for accurate per-morpheme token
// positions out of a pre-analyzed compound.
func chunkSpan(node *lattice.Node, m *dict.Morpheme, chunkIdx int) (int, int) {
	c := m.Chunks[chunkIdx]
	startRune := utf8.RuneCountInString(node.Text[:c.Start])
	endRune := utf8.RuneCountInString(node.Text[:c.End])
	return node.Start + startRune, node.Start + endRune
}

type mergeKey struct {
	lmState       lm.State
	combineSocket uint8
	lastMorph     dict.MorphID
}

// mergeAndPrune merges hypotheses sharing (lmState, combineSocket,
// lastMorph) keeping the higher score, then applies the cutoff/top-K cap
// (spec §4.5 step 6 and "Merging").
func mergeAndPrune(hyps []hypothesis, arena []step, opts Options) []hypothesis {
	if len(hyps) == 0 {
		return nil
	}
	best := map[mergeKey]int{}
	var merged []hypothesis
	for _, h := range hyps {
		lastMorph := dict.NoMorph
		if h.tail >= 0 {
			lastMorph = arena[h.tail].morphID
		}
		key := mergeKey{h.lmState, h.combineSocket, lastMorph}
		if idx, ok := best[key]; ok {
			if h.accScore > merged[idx].accScore {
				merged[idx] = h
			}
			continue
		}
		best[key] = len(merged)
		merged = append(merged, h)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].accScore > merged[j].accScore })
	sMax := merged[0].accScore
	cut := sMax - opts.CutOffThreshold

	var kept []hypothesis
	for _, h := range merged {
		if h.accScore < cut {
			break
		}
		kept = append(kept, h)
		if len(kept) >= opts.BeamSize {
			break
		}
	}
	return kept
}

// backtrace walks the arena from tail to the first step, reconstructing
// the morpheme sequence in forward order, resolving each morpheme's
// surface/tag/sense/dialect from the dictionary, and mapping normalized
// rune offsets back to original-text UTF-16 offsets via posMap.
func (s *Searcher) backtrace(arena []step, tail int32, posMap hangul.PosMap) []Token {
	var rev []step
	for idx := tail; idx >= 0; idx = arena[idx].prev {
		rev = append(rev, arena[idx])
	}
	tokens := make([]Token, len(rev))
	for i := range rev {
		st := rev[len(rev)-1-i]
		start := originalOffset(posMap, st.start)
		tok := Token{
			Surface:  st.text,
			StartPos: start,
			Length:   originalOffset(posMap, st.end) - start,
			TypoCost: st.typoCost,
		}
		if m := s.Dictionary.Morpheme(st.morphID); m != nil {
			tok.Tag = m.Tag
			tok.SenseID = m.SenseID
			tok.Dialect = m.Dialect
			tok.PairedBracket = m.Tag.Regularized() == dict.SS
		}
		tokens[i] = tok
	}
	return tokens
}

func originalOffset(posMap hangul.PosMap, normIdx int) int {
	if normIdx < len(posMap) {
		return posMap[normIdx]
	}
	if len(posMap) == 0 {
		return 0
	}
	return posMap[len(posMap)-1] + 1
}

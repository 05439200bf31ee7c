package kiwi

import "github.com/kiwigo/kiwi/lattice"

// MatchOption is a per-call bitmask of lattice/output behaviors (spec §6
// "Match options").
type MatchOption uint32

const (
	MatchURL MatchOption = 1 << iota
	MatchEmail
	MatchHashtag
	MatchMention
	MatchSerial
	MatchNormalizeCoda
	MatchJoinNounPrefix
	MatchJoinNounSuffix
	MatchJoinVerbSuffix
	MatchJoinAdjSuffix
	MatchJoinAdvSuffix
	MatchSplitComplex
	MatchZCoda
	MatchCompatibleJamo
	MatchSplitSaisiot
	MatchMergeSaisiot
)

// MatchAll enables every pattern matcher and Z-coda attachment — the
// common "turn everything on" default for AnalyzeOptions.Match.
//
// The MatchJoin*/MatchSplitComplex/MatchCompatibleJamo/MatchSplitSaisiot/
// MatchMergeSaisiot bits are recognized (accepted without error, and
// round-trip through an AnalyzeOptions value) for parity with the full
// option table, but none of them changes lattice or search behavior in
// this build: each names a transform owned by the allomorph/combining-rule
// compiler spec §1 scopes out (joining a derivational affix onto its stem,
// splitting a fused verb-ending compound, sai-siot insertion/merging,
// compatibility-jamo output folding). Wiring them would mean inventing
// that compiler's rules rather than learning them from the corpus.
const MatchAll = MatchURL | MatchEmail | MatchHashtag | MatchMention | MatchSerial | MatchZCoda

// patternKinds resolves the pattern-matcher bits of opts into the
// lattice.PatternKind set Build consumes. PatternNumeric/PatternHanja/
// PatternEmoji have no corresponding MatchOption bit (spec §6's table names
// only url/email/hashtag/mention/serial as caller-toggleable) and so run
// unconditionally, the same as the automaton's dictionary hits.
func patternKinds(opts MatchOption) map[lattice.PatternKind]bool {
	out := map[lattice.PatternKind]bool{
		lattice.PatternNumeric: true,
		lattice.PatternHanja:   true,
		lattice.PatternEmoji:   true,
	}
	if opts&MatchURL != 0 {
		out[lattice.PatternURL] = true
	}
	if opts&MatchEmail != 0 {
		out[lattice.PatternEmail] = true
	}
	if opts&MatchHashtag != 0 {
		out[lattice.PatternHashtag] = true
	}
	if opts&MatchMention != 0 {
		out[lattice.PatternMention] = true
	}
	if opts&MatchSerial != 0 {
		out[lattice.PatternSerial] = true
	}
	return out
}

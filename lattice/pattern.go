package lattice

import (
	"regexp"

	"github.com/kiwigo/kiwi/dict"
)

// PatternKind identifies which non-dictionary matcher produced a node
// (spec §4.3 step 2: "URL, email, hashtag, mention, numeric, serial, hanja,
// emoji").
type PatternKind int

const (
	PatternURL PatternKind = iota
	PatternEmail
	PatternHashtag
	PatternMention
	PatternSerial
	PatternNumeric
	PatternHanja
	PatternEmoji
)

// patternTag maps each PatternKind to the synthetic POS tag its node
// carries (spec §3 "special classes for ... url-like tokens, emoji").
var patternTag = map[PatternKind]dict.Tag{
	PatternURL:     dict.WURL,
	PatternEmail:   dict.WEMAIL,
	PatternHashtag: dict.WHASHTAG,
	PatternMention: dict.WMENTION,
	PatternSerial:  dict.WSERIAL,
	PatternNumeric: dict.SN,
	PatternHanja:   dict.SH,
	PatternEmoji:   dict.WEMOJI,
}

// patternMatch is one regexp hit over the normalized rune sequence (regexp
// runs against the UTF-8 re-encoding of the match window; offsets are
// translated back to rune indices by the caller).
type patternMatch struct {
	kind       PatternKind
	start, end int // rune offsets into the normalized sequence
}

// patternRegexes are grounded on the retrieved az-lang-nlp ner/patterns.go
// matcher set (reURL/reEmail structure), narrowed to the entity types the
// spec names and widened with hashtag/mention/emoji patterns the original
// NER package does not need but a tokenizer-adjacent lattice builder does.
var patternRegexes = []struct {
	kind PatternKind
	re   *regexp.Regexp
}{
	{PatternURL, regexp.MustCompile(`https?://[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+`)},
	{PatternEmail, regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{PatternHashtag, regexp.MustCompile(`#[\p{L}\p{N}_]+`)},
	{PatternMention, regexp.MustCompile(`@[\p{L}\p{N}_]+`)},
	{PatternSerial, regexp.MustCompile(`\b[A-Z0-9]{2,}-[A-Z0-9]{2,}(?:-[A-Z0-9]{2,})*\b`)},
	{PatternNumeric, regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)*`)},
	{PatternHanja, regexp.MustCompile(`[\x{4E00}-\x{9FFF}]+`)},
	// Go's RE2 engine has no backreferences, so a repeated-laughter run
	// ("ㅋㅋㅋ") is matched per-character rather than via \1.
	{PatternEmoji, regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}]+|ㅋ{2,}|ㅎ{2,}|ㅠ{2,}|ㅜ{2,}`)},
}

// matchPatterns scans text (the normalized sequence joined back to a
// string for regexp purposes) for every enabled pattern kind, returning
// hits as rune-offset spans. enabled is a set of PatternKinds the caller
// has already resolved from MatchOption bits.
func matchPatterns(runes []rune, enabled map[PatternKind]bool) []patternMatch {
	if len(enabled) == 0 {
		return nil
	}
	text := string(runes)
	// byteToRune converts a byte offset in text back to a rune index,
	// needed because regexp operates on bytes but the lattice indexes
	// runes (spec §4.1's normalized code-unit sequence).
	byteToRune := make(map[int]int, len(runes)+1)
	b := 0
	for i, r := range runes {
		byteToRune[b] = i
		b += len(string(r))
	}
	byteToRune[b] = len(runes)

	var hits []patternMatch
	for _, pr := range patternRegexes {
		if !enabled[pr.kind] {
			continue
		}
		for _, m := range pr.re.FindAllStringIndex(text, -1) {
			hits = append(hits, patternMatch{
				kind:  pr.kind,
				start: byteToRune[m[0]],
				end:   byteToRune[m[1]],
			})
		}
	}
	resolvePatternOverlaps(hits)
	return dedupPatternOverlaps(hits)
}

// resolvePatternOverlaps sorts hits by start ascending, then by length
// descending — longer (more specific) matches are kept first when two
// patterns start at the same position, grounded on the retrieved
// resolveOverlaps "longer match wins" rule.
func resolvePatternOverlaps(hits []patternMatch) {
	sortPatternMatches(hits)
}

func sortPatternMatches(hits []patternMatch) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0; j-- {
			a, b := hits[j-1], hits[j]
			if a.start < b.start || (a.start == b.start && (a.end-a.start) >= (b.end-b.start)) {
				break
			}
			hits[j-1], hits[j] = hits[j], hits[j-1]
		}
	}
}

// dedupPatternOverlaps drops any hit whose span overlaps an earlier kept
// hit (by sort order: an earlier start, or the same start and
// longer-or-equal).
func dedupPatternOverlaps(hits []patternMatch) []patternMatch {
	var out []patternMatch
	lastEnd := -1
	for _, h := range hits {
		if h.start < lastEnd {
			continue
		}
		out = append(out, h)
		lastEnd = h.end
	}
	return out
}

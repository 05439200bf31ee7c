// Package hangul canonicalizes Korean text into the internal code sequence
// the rest of the analyzer operates on, and maps positions back to the
// caller's original string.
//
// A precomposed Hangul syllable block (U+AC00-U+D7A3) packs a choseong
// (initial consonant), jungseong (vowel), and optional jongseong (coda)
// into one code point. Normalize splits any syllable that carries a coda
// into two code points — the bare syllable (no coda) followed by a
// standalone Jamo coda (U+11A8-U+11C2) — so that later components (the
// form automaton, the lattice builder) work over a uniform one-cell-per-
// phonological-unit sequence. Join is the exact inverse.
package hangul

import (
	"errors"
	"unicode/utf16"
	"unicode/utf8"

	gohangul "github.com/suapapa/go_hangul"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// ErrInvalidUnicode is returned when the input contains a malformed
// surrogate pair or an otherwise invalid encoding.
var ErrInvalidUnicode = errors.New("hangul: invalid unicode in input")

const (
	syllableBase  = 0xAC00
	syllableLast  = 0xD7A3
	jongseongBase = 0x11A8 // first standalone Jamo coda
	jongseongLast = 0x11C2
	codaCount     = 28 // 1 (no coda) + 27 possible codas
)

// Sequence is normalized text: a slice of code units in the internal
// alphabet, one per phonological cell.
type Sequence []rune

// PosMap maps an index in a Sequence to the starting UTF-16 code-unit
// offset of that cell in the original input string.
type PosMap []int

// Normalize canonicalizes s into a Sequence plus a PosMap from each
// normalized index back to the original string's UTF-16 offsets.
//
// Rules (spec §4.1):
//   - fullwidth/halfwidth variants are folded to their canonical width
//     (golang.org/x/text/width) and the result is composed to NFC
//     (golang.org/x/text/unicode/norm), so a decomposed-jamo input string
//     behaves identically to its precomposed equivalent — PosMap offsets
//     are relative to this folded-and-composed string, not necessarily
//     byte-for-byte the caller's original encoding;
//   - a precomposed syllable with a non-zero coda index is split into the
//     coda-less syllable followed by its standalone Jamo coda;
//   - non-Hangul code points, including whitespace, pass through unchanged —
//     one cell per original rune, so Join is an exact inverse (property 1)
//     regardless of how many whitespace runes a run contains or what kind
//     they are.
func Normalize(s string) (Sequence, PosMap, error) {
	if !utf8.ValidString(s) {
		return nil, nil, ErrInvalidUnicode
	}
	s = norm.NFC.String(width.Fold.String(s))

	seq := make(Sequence, 0, len(s))
	pm := make(PosMap, 0, len(s))

	utf16Pos := 0
	for _, r := range s {
		width := len(utf16.Encode([]rune{r}))

		if IsSpace(r) {
			seq = append(seq, r)
			pm = append(pm, utf16Pos)
			utf16Pos += width
			continue
		}

		if coda := codaIndex(r); coda > 0 {
			bare := r - rune(coda)
			seq = append(seq, bare)
			pm = append(pm, utf16Pos)
			seq = append(seq, jongseongBase+rune(coda)-1)
			pm = append(pm, utf16Pos)
		} else {
			seq = append(seq, r)
			pm = append(pm, utf16Pos)
		}
		utf16Pos += width
	}

	return seq, pm, nil
}

// Join recomposes a Sequence produced by Normalize back into a string.
// join(normalize(s)) == s for any valid Hangul string s (property 1).
func Join(seq Sequence) string {
	out := make([]rune, 0, len(seq))
	for i := 0; i < len(seq); i++ {
		r := seq[i]
		if isBareLeadSyllable(r) && i+1 < len(seq) && isJamoCoda(seq[i+1]) {
			coda := int(seq[i+1]-jongseongBase) + 1
			out = append(out, r+rune(coda))
			i++
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// codaIndex returns the 1-based coda index of a precomposed syllable
// (0 if r is not Hangul or carries no coda).
func codaIndex(r rune) int {
	if r < syllableBase || r > syllableLast {
		return 0
	}
	return int(r-syllableBase) % codaCount
}

// isBareLeadSyllable reports whether r is a precomposed syllable with no
// coda — the only kind Normalize ever emits standalone, so it is the only
// kind Join ever needs to re-attach a following Jamo coda to.
func isBareLeadSyllable(r rune) bool {
	return r >= syllableBase && r <= syllableLast && codaIndex(r) == 0
}

func isJamoCoda(r rune) bool {
	return r >= jongseongBase && r <= jongseongLast
}

// IsSpace reports whether r is whitespace Normalize passes through
// unchanged and downstream components (the form automaton, the lattice
// builder) treat as a gap between candidate spans.
func IsSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', 0x3000:
		return true
	}
	return false
}

// IsHangul reports whether r is any Hangul code point (syllable or Jamo),
// delegating to the go_hangul primitives the way the retrieved jamo
// composer does.
func IsHangul(r rune) bool {
	return gohangul.IsHangul(r) || isJamoCoda(r)
}

// ZCodaAppendable reports whether r is a bare (coda-less) syllable that a
// following standalone Jamo coda may attach to, forming a Z-coda lattice
// edge (spec §4.3 step 6).
func ZCodaAppendable(r rune) bool {
	return isBareLeadSyllable(r)
}

// IsJamoCoda reports whether r is a standalone Jamo coda cell — the shape
// Normalize splits off syllables into, and the shape a Z-coda edge (spec
// §4.3 step 6) attaches to a preceding ZCodaAppendable form.
func IsJamoCoda(r rune) bool {
	return isJamoCoda(r)
}

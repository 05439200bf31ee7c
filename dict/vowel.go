package dict

// jongseongLiquid and jongseongHieuh are the two Jamo codas
// KFeatureTestor.cpp's isMatched special-cases in its vocalic/vocalic_h
// switch-fallthrough, ahead of the generic has-coda test every other
// jongseong falls through to.
const (
	jongseongLiquid = 0x11AF // ㄹ
	jongseongHieuh  = 0x11C2 // ㅎ
)

// isVocalic reports whether lastSyllable/hasCoda describe a "vocalic"
// environment: no coda at all, or a liquid ㄹ coda — the two cases Korean
// verb-ending allomorphy treats like a vowel-final stem (e.g. 을 attaching
// after ㄹ the same way it does after an open syllable).
func isVocalic(lastSyllable rune, hasCoda bool) bool {
	return !hasCoda || lastSyllable == jongseongLiquid
}

// isVocalicH additionally admits the ㅎ coda, the one case isVocalic does
// not recognize (KFeatureTestor.cpp's vocalic_h case, e.g. 좋다's stem).
func isVocalicH(lastSyllable rune, hasCoda bool) bool {
	return !hasCoda || lastSyllable == jongseongLiquid || lastSyllable == jongseongHieuh
}

// MatchesVowelCond reports whether a preceding form whose last normalized
// rune is lastSyllable, with coda presence hasCoda, satisfies cond (spec
// §4.5 step 1 "feature gate"). lastSyllable is dict.Form.LastVowel: the
// last rune of the form's *normalized* text — a standalone Jamo coda when
// hasCoda is true, the precomposed (coda-less) syllable itself otherwise —
// matching what KFeatureTestor.cpp's isMatched tests as end[-1] of the
// already-decomposed KString.
func MatchesVowelCond(cond VowelCond, lastSyllable rune, hasCoda bool) bool {
	switch cond {
	case CondNone, CondAny:
		return true
	case CondVowel:
		return !hasCoda
	case CondVocalic:
		return isVocalic(lastSyllable, hasCoda)
	case CondVocalicH:
		return isVocalicH(lastSyllable, hasCoda)
	case CondNonVowel:
		return hasCoda
	case CondNonVocalic:
		return hasCoda && lastSyllable != jongseongLiquid
	case CondNonVocalicH:
		return hasCoda && lastSyllable != jongseongLiquid && lastSyllable != jongseongHieuh
	}
	return true
}

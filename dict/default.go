package dict

import (
	"sync"

	"github.com/kiwigo/kiwi/hangul"
)

var (
	defaultOnce sync.Once
	defaultDict *Dictionary
)

// Default returns a small built-in dictionary of closed-class Korean
// morphemes (case/topic particles and common endings) — enough to
// exercise the analyzer without a compiled dictionary file, mirroring the
// teacher's sync.Once-guarded Default() singleton for its bundled
// dictionary (spec §4.6). A production deployment loads a full compiled
// dictionary instead; the compiler that produces one is out of scope
// (spec §1).
func Default() *Dictionary {
	defaultOnce.Do(func() {
		defaultDict = buildDefaultDictionary()
	})
	return defaultDict
}

type defaultWord struct {
	surface  string
	tag      Tag
	vowel    VowelCond
	polarity PolarityCond
}

var defaultWords = []defaultWord{
	{"은", JX, CondNonVowel, PolarityNone},
	{"는", JX, CondVowel, PolarityNone},
	{"이", JKS, CondNonVowel, PolarityNone},
	{"가", JKS, CondVowel, PolarityNone},
	{"을", JKO, CondNonVowel, PolarityNone},
	{"를", JKO, CondVowel, PolarityNone},
	{"에서", JKB, CondAny, PolarityNone},
	{"에게", JKB, CondAny, PolarityNone},
	{"에", JKB, CondAny, PolarityNone},
	{"도", JX, CondAny, PolarityNone},
	{"만", JX, CondAny, PolarityNone},
	{"의", JKG, CondAny, PolarityNone},
	{"와", JC, CondNonVowel, PolarityNone},
	{"과", JC, CondNonVowel, PolarityNone},
	{"다", EF, CondAny, PolarityNone},
	{"요", EF, CondAny, PolarityNone},
	{"고", EC, CondAny, PolarityNone},
	{"서", EC, CondAny, PolarityNone},
	{"면", EC, CondAny, PolarityNone},
	{"하다", VV, CondAny, PolarityNone},
	{"있다", VV, CondAny, PolarityNone},
	{"없다", VA, CondAny, PolarityNone},
	{"좋다", VA, CondAny, PolarityNone},
}

func buildDefaultDictionary() *Dictionary {
	d := New()
	ids := make(map[string]MorphID, len(defaultWords))
	for _, w := range defaultWords {
		mid, err := d.AddWord(mustNormalizeSurface(w.surface), w.tag, w.vowel, w.polarity, 0, -1)
		if err != nil {
			panic(err)
		}
		ids[w.surface] = mid
	}

	addAllomorphGroups(d, ids)
	addDeutIrregularStem(d, ids)

	_ = d.Finalize()
	return d
}

// allomorphGroups lists the bundled particle pairs that are textbook
// allomorphs of one underlying morpheme, conditioned by the preceding
// syllable's coda (은/는, 이/가, 을/를) or identical in distribution (와/과):
// grounds search.Options.IntegrateAllomorph in real data instead of a
// synthetic example.
var allomorphGroups = [][2]string{
	{"은", "는"},
	{"이", "가"},
	{"을", "를"},
	{"와", "과"},
}

func addAllomorphGroups(d *Dictionary, ids map[string]MorphID) {
	for _, pair := range allomorphGroups {
		if err := d.AddAllomorphGroup(ids[pair[0]], ids[pair[1]]); err != nil {
			panic(err)
		}
	}
}

// mustNormalizeSurface runs s through hangul.Normalize so the resulting
// Form.Text matches what the automaton sees at search time — every
// dictionary entry's surface, including this bundled set, must be
// normalized the same way analyze.go normalizes the input text before
// building the automaton (Form.Text otherwise never matches a coda-final
// word like 은/을/만/있다/없다/좋다 against normalized input). err is only
// ever non-nil for invalid UTF-8, which none of this package's literal
// surfaces are.
func mustNormalizeSurface(s string) string {
	seq, _, err := hangul.Normalize(s)
	if err != nil {
		panic(err)
	}
	return string(seq)
}

// addDeutIrregularStem wires 듣다 ("to listen/hear"), a ㄷ-irregular verb
// whose stem surfaces as 들 rather than regular 듣 before a vowel-initial
// ending (e.g. 들어요, "[I] listen"). 들 is registered as a partial
// fragment (AddPartialWord, spec §4.6 step (c)) expecting socket 1; 어
// (the connective ending) is registered as a second socket-1 fragment used
// only as the first chunk of the 어요 compound below, so that compound's
// first chunk carries the matching CombineSocket combineGate's
// socket-match branch checks for. Finalize's compileCombiningStage then
// links the compound's first-chunk 어 fragment's Combined field to that
// compound, giving
// both the producer (AddPartialWord) and the consumer (combineGate's
// socket-match branch, previously dead since nothing could ever set
// CombineSocket) a real morpheme pair to exercise end to end.
func addDeutIrregularStem(d *Dictionary, ids map[string]MorphID) {
	if _, err := d.AddPartialWord(mustNormalizeSurface("들"), VV, CondAny, PolarityNone, 1); err != nil {
		panic(err)
	}

	link, err := d.AddPartialWord(mustNormalizeSurface("어"), EC, CondVocalic, PolarityNone, 1)
	if err != nil {
		panic(err)
	}

	ending := mustNormalizeSurface("어요")
	linkEnd := len(mustNormalizeSurface("어"))
	if _, err := d.AddPreAnalyzedWord(ending, []PreAnalyzedChunk{
		{Base: link, Start: 0, End: linkEnd},
		{Base: ids["요"], Start: linkEnd, End: len(ending)},
	}); err != nil {
		panic(err)
	}
}

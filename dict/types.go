package dict

// MorphID indexes into a Dictionary's morpheme table. FormID indexes into
// its form table. Both are stable for the analyzer's lifetime once frozen
// (spec §3 "Ownership & lifecycle").
type MorphID int32
type FormID int32

// NoMorph / NoForm are the sentinel "absent" IDs.
const (
	NoMorph MorphID = -1
	NoForm  FormID  = -1
)

// VowelCond is the vowel-harmony/vocalic-coda constraint a morpheme places
// on the *preceding* form's last syllable. The eight-way enum (not the
// three-way "none|vowel|non_vowel" spec.md prose suggests) is confirmed by
// the retrieved KForm.h KCondVowel enum; KFeatureTestor.cpp's isMatched
// switch-fallthrough gives the exact semantics the "H" variants add: a ㅎ
// coda is additionally treated as "vocalic" the way a ㄹ coda already is.
type VowelCond uint8

const (
	CondNone VowelCond = iota
	CondAny
	CondVowel       // preceding syllable has no coda
	CondVocalic     // preceding syllable has no coda, or ends in a ㄹ coda
	CondVocalicH    // vocalic, or ends in a ㅎ coda
	CondNonVowel    // preceding syllable has a coda
	CondNonVocalic  // has a coda, and it is not ㄹ
	CondNonVocalicH // has a coda, and it is neither ㄹ nor ㅎ
)

// PolarityCond is the yang/eum (positive/negative) vowel-harmony
// constraint verb endings place on their stem.
type PolarityCond uint8

const (
	PolarityNone PolarityCond = iota
	PolarityPositive
	PolarityNegative
)

// Dialect is a bitmask over regional dialect variants (spec §6
// enabled_dialects).
type Dialect uint32

const (
	DialectStandard Dialect = 1 << iota
	DialectGyeonggi
	DialectChungcheong
	DialectGyeongsang
	DialectJeolla
	DialectJeju
)

// Morpheme is one analysis option of a Form (spec §3).
type Morpheme struct {
	ID      MorphID
	FormID  FormID // the Form whose surface this morpheme realizes
	Tag     Tag
	SenseID uint8 // homograph disambiguator

	Vowel    VowelCond
	Polarity PolarityCond

	// CombineSocket is nonzero when this morpheme is a partial piece that
	// must fuse with a preceding partial carrying the same socket number
	// (models irregular verb-stem + ending fusion, spec §3).
	CombineSocket uint8
	// Combined is a signed offset (in MorphIDs) to the fully-combined
	// sibling, following the arena-offset convention of spec Design Note 1
	// and the retrieved KMorpheme::getCombined() (`this + combined`).
	Combined int32

	// Chunks is the ordered list of child morphemes for a pre-analyzed
	// compound (e.g. "사겼다" = 사귀+었+다), each spanning a byte range of
	// the parent Form (invariant ii).
	Chunks []Chunk

	// LMTokenID is the vocabulary ID used when querying the language
	// model; multiple dictionary morphemes may map to the same LM token
	// (invariant iii: always < LM vocab size).
	LMTokenID int32
	// GroupID is the allomorph group this morpheme belongs to (0 = none):
	// the MorphID of the group's canonical representative, set by
	// AddAllomorphGroup. search.Options.IntegrateAllomorph decides whether
	// this is consulted during scoring.
	GroupID int32

	UserScore float32
	Dialect   Dialect
}

// Chunk is one child morpheme of a chunked (pre-analyzed) Morpheme,
// spanning [Start,End) bytes of the parent Form's normalized string.
type Chunk struct {
	MorphID MorphID
	Start   int
	End     int
}

// IsPartial reports whether m is a stem/ending fragment awaiting fusion —
// either it expects an incoming socket (handled by the caller holding a
// matching CombineSocket) or it's itself unattached.
func (m *Morpheme) IsPartial() bool {
	return m.CombineSocket != 0
}

// CombinedID returns the MorphID of the chunked morpheme that completes m's
// fusion, or NoMorph if Finalize's combining stage never found one (m.Combined
// == 0, the same "no link" sentinel automaton.failOffset/lm.lowerOffset use
// for their own signed-offset fields).
func (m *Morpheme) CombinedID() MorphID {
	if m.Combined == 0 {
		return NoMorph
	}
	return m.ID + MorphID(m.Combined)
}

// Form is a normalized surface string with its candidate morphemes
// (spec §3).
type Form struct {
	ID         FormID
	Text       string // normalized surface string
	Candidates []MorphID

	// ZCodaAppendable/ZSiotAppendable flag whether a following Z-coda /
	// sai-siot may attach after this form (spec §3).
	ZCodaAppendable bool
	ZSiotAppendable bool

	// LastVowel/LastHasCoda precompute the vowel/coda feature of the
	// form's final syllable, tested against a following morpheme's
	// VowelCond without re-deriving it at search time.
	LastVowel   rune
	LastHasCoda bool

	HashBucket uint32 // case/whitespace-insensitive equality bucket
}

// reservedDefaultRange is the total number of MorphIDs reserved, one per
// Tag, for "the default morpheme of this tag", giving invariant iv's O(1)
// lookup.
const reservedDefaultRange = int(maxTag)

// DefaultMorphID returns the MorphID reserved for the default (synthetic,
// unknown-surface) morpheme of tag t — used by the lattice builder for
// unknown-form nodes and by pattern nodes before a real dictionary entry
// exists.
func DefaultMorphID(t Tag) MorphID {
	return MorphID(t.Regularized())
}

package dict

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/kiwigo/kiwi/hangul"
)

// Error kinds surfaced by dictionary construction and loading (spec §7).
type ErrorKind int

const (
	ErrFormat ErrorKind = iota
	ErrUnknownMorpheme
	ErrInvalidArgument
	ErrIOWrap
)

// Error is the structured error type dictionary operations return.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(k ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Dictionary is the static Form/Morpheme table (spec §4.6). It is built
// incrementally via AddWord/AddAliasWord/AddPreAnalyzedWord/AddRule/
// LoadDictionary, then frozen by Finalize; after Finalize, all pointers
// and indices into it are stable for the analyzer's lifetime (spec §3
// "Ownership & lifecycle").
type Dictionary struct {
	forms     []Form
	morphemes []Morpheme
	byText    map[string][]FormID

	finalized bool
	nextLMID  int32
}

// New returns an empty Dictionary pre-seeded with one default morpheme per
// Tag, occupying the reserved low ID range (invariant iv).
func New() *Dictionary {
	d := &Dictionary{
		byText:   make(map[string][]FormID),
		nextLMID: int32(reservedDefaultRange),
	}
	d.morphemes = make([]Morpheme, reservedDefaultRange)
	for t := Tag(0); int(t) < reservedDefaultRange; t++ {
		d.morphemes[t] = Morpheme{
			ID:        MorphID(t),
			FormID:    NoForm,
			Tag:       t,
			LMTokenID: int32(t),
		}
	}
	return d
}

// Form returns the Form with the given ID.
func (d *Dictionary) Form(id FormID) *Form {
	if id < 0 || int(id) >= len(d.forms) {
		return nil
	}
	return &d.forms[id]
}

// Morpheme returns the Morpheme with the given ID.
func (d *Dictionary) Morpheme(id MorphID) *Morpheme {
	if id < 0 || int(id) >= len(d.morphemes) {
		return nil
	}
	return &d.morphemes[id]
}

// Lookup returns all forms whose normalized text exactly equals text.
func (d *Dictionary) Lookup(text string) []*Form {
	ids := d.byText[text]
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Form, len(ids))
	for i, id := range ids {
		out[i] = d.Form(id)
	}
	return out
}

// NumForms and NumMorphemes report table sizes.
func (d *Dictionary) NumForms() int     { return len(d.forms) }
func (d *Dictionary) NumMorphemes() int { return len(d.morphemes) }

// VocabSize is the LM vocabulary size: one past the highest LMTokenID ever
// assigned. Every morpheme's LMTokenID is < VocabSize (invariant iii).
func (d *Dictionary) VocabSize() int32 { return d.nextLMID }

// AddWord registers a new Form/Morpheme pair past the built-in ID range.
// If lmTokenID is negative, a fresh LM token is minted for this morpheme;
// otherwise the caller pins it to an existing LM token (used by
// AddAliasWord to share scoring with a base morpheme).
func (d *Dictionary) AddWord(surface string, tag Tag, vowel VowelCond, polarity PolarityCond, userScore float32, lmTokenID int32) (MorphID, error) {
	if d.finalized {
		return NoMorph, newError(ErrInvalidArgument, "AddWord: dictionary already finalized")
	}
	if surface == "" {
		return NoMorph, newError(ErrInvalidArgument, "AddWord: empty form")
	}

	fid := d.internForm(surface)

	mid := MorphID(len(d.morphemes))
	if lmTokenID < 0 {
		lmTokenID = d.nextLMID
		d.nextLMID++
	} else if lmTokenID >= d.nextLMID {
		d.nextLMID = lmTokenID + 1
	}

	d.morphemes = append(d.morphemes, Morpheme{
		ID:        mid,
		FormID:    fid,
		Tag:       tag,
		Vowel:     vowel,
		Polarity:  polarity,
		LMTokenID: lmTokenID,
		UserScore: userScore,
	})
	d.forms[fid].Candidates = append(d.forms[fid].Candidates, mid)
	return mid, nil
}

// AddPartialWord registers a bare stem/ending fragment that cannot stand on
// its own: it only completes when a later chunked morpheme's first chunk
// names it as base and carries the same socket (spec §4.6 step (c),
// "irregular verb-stem + ending fusion" — e.g. the 듣다/ㄷ-irregular stem
// allomorph 들 before a vowel-initial ending). socket must be nonzero;
// Finalize's combining stage then wires Combined from this fragment to the
// chunked morpheme that completes it.
func (d *Dictionary) AddPartialWord(surface string, tag Tag, vowel VowelCond, polarity PolarityCond, socket uint8) (MorphID, error) {
	if d.finalized {
		return NoMorph, newError(ErrInvalidArgument, "AddPartialWord: dictionary already finalized")
	}
	if socket == 0 {
		return NoMorph, newError(ErrInvalidArgument, "AddPartialWord: socket must be nonzero")
	}
	mid, err := d.AddWord(surface, tag, vowel, polarity, 0, -1)
	if err != nil {
		return NoMorph, err
	}
	d.morphemes[mid].CombineSocket = socket
	return mid, nil
}

// AddAliasWord adds alias as a new surface form that shares base's LM
// token, so the alias is scored identically to the base morpheme it
// refers to (spec §4.6).
func (d *Dictionary) AddAliasWord(alias string, base MorphID) (MorphID, error) {
	if d.finalized {
		return NoMorph, newError(ErrInvalidArgument, "AddAliasWord: dictionary already finalized")
	}
	baseM := d.Morpheme(base)
	if baseM == nil {
		return NoMorph, newError(ErrUnknownMorpheme, "AddAliasWord: base morpheme %d not found", base)
	}
	return d.AddWord(alias, baseM.Tag, baseM.Vowel, baseM.Polarity, baseM.UserScore, baseM.LMTokenID)
}

// AddAllomorphGroup marks ids as members of one allomorph group (spec §4.6
// "groupId"), e.g. 이/가 or 을/를, conditioned variants of the same particle
// that the dictionary otherwise registers as independent morphemes with
// their own LM tokens. The first id is the group's canonical representative;
// when search.Options.IntegrateAllomorph is set, every member scores
// against the representative's LMTokenID instead of its own (spec §6
// "integrate_allomorph"), so members never compete against each other for a
// slightly different score. Unlike AddAliasWord, which pins a brand-new
// surface to an existing LM token at add time, this groups morphemes that
// already exist with distinct tokens.
func (d *Dictionary) AddAllomorphGroup(ids ...MorphID) error {
	if d.finalized {
		return newError(ErrInvalidArgument, "AddAllomorphGroup: dictionary already finalized")
	}
	if len(ids) < 2 {
		return newError(ErrInvalidArgument, "AddAllomorphGroup: need at least 2 members")
	}
	for _, id := range ids {
		if d.Morpheme(id) == nil {
			return newError(ErrUnknownMorpheme, "AddAllomorphGroup: morpheme %d not found", id)
		}
	}
	founder := ids[0]
	for _, id := range ids {
		d.morphemes[id].GroupID = int32(founder)
	}
	return nil
}

// PreAnalyzedChunk describes one child of an AddPreAnalyzedWord call: a
// byte span of the surface string and the base morpheme realizing it.
type PreAnalyzedChunk struct {
	Start, End int
	Base       MorphID
}

// AddPreAnalyzedWord registers a compound surface whose analysis is
// pinned to the given chunk sequence (e.g. "사겼다" -> 사귀/VV + 었/EP +
// 다/EF), tiling the surface exactly (invariant ii).
func (d *Dictionary) AddPreAnalyzedWord(surface string, chunks []PreAnalyzedChunk) (MorphID, error) {
	if d.finalized {
		return NoMorph, newError(ErrInvalidArgument, "AddPreAnalyzedWord: dictionary already finalized")
	}
	if len(chunks) == 0 {
		return NoMorph, newError(ErrInvalidArgument, "AddPreAnalyzedWord: no chunks")
	}
	resolved := make([]Chunk, len(chunks))
	for i, c := range chunks {
		base := d.Morpheme(c.Base)
		if base == nil {
			return NoMorph, newError(ErrUnknownMorpheme, "AddPreAnalyzedWord: base morpheme %d not found", c.Base)
		}
		if c.Start < 0 || c.End > len(surface) || c.Start >= c.End {
			return NoMorph, newError(ErrInvalidArgument, "AddPreAnalyzedWord: bad span [%d,%d)", c.Start, c.End)
		}
		resolved[i] = Chunk{MorphID: c.Base, Start: c.Start, End: c.End}
	}
	if resolved[0].Start != 0 || resolved[len(resolved)-1].End != len(surface) {
		return NoMorph, newError(ErrInvalidArgument, "AddPreAnalyzedWord: chunks do not tile the surface exactly")
	}
	for i := 1; i < len(resolved); i++ {
		if resolved[i].Start != resolved[i-1].End {
			return NoMorph, newError(ErrInvalidArgument, "AddPreAnalyzedWord: chunk gap or overlap at %d", i)
		}
	}

	fid := d.internForm(surface)
	first := d.Morpheme(resolved[0].MorphID)
	mid := MorphID(len(d.morphemes))
	d.morphemes = append(d.morphemes, Morpheme{
		ID:        mid,
		FormID:    fid,
		Tag:       first.Tag,
		Vowel:     first.Vowel,
		Polarity:  first.Polarity,
		Chunks:    resolved,
		LMTokenID: first.LMTokenID,
	})
	d.forms[fid].Candidates = append(d.forms[fid].Candidates, mid)
	return mid, nil
}

// RuleFunc is a caller-supplied surface-string transform used by AddRule.
type RuleFunc func(surface string) (string, bool)

// AddRule applies fn to every morpheme of tag t, adding a new morpheme for
// each transform that reports ok (e.g. orthographic variant generation;
// spec §4.6).
func (d *Dictionary) AddRule(t Tag, fn RuleFunc) (int, error) {
	if d.finalized {
		return 0, newError(ErrInvalidArgument, "AddRule: dictionary already finalized")
	}
	// Snapshot current morphemes of tag t: AddWord below appends new ones,
	// and we must not apply the rule to morphemes the rule itself created.
	var targets []MorphID
	for i := range d.morphemes {
		if d.morphemes[i].Tag == t {
			targets = append(targets, d.morphemes[i].ID)
		}
	}
	count := 0
	for _, mid := range targets {
		m := d.Morpheme(mid)
		f := d.Form(m.FormID)
		if f == nil {
			continue
		}
		newSurface, ok := fn(f.Text)
		if !ok || newSurface == "" {
			continue
		}
		if _, err := d.AddWord(newSurface, m.Tag, m.Vowel, m.Polarity, m.UserScore, m.LMTokenID); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// internForm finds or creates the Form for a normalized surface string.
func (d *Dictionary) internForm(surface string) FormID {
	if ids, ok := d.byText[surface]; ok && len(ids) > 0 {
		return ids[0]
	}
	fid := FormID(len(d.forms))
	f := Form{ID: fid, Text: surface, HashBucket: hashBucket(surface)}
	last, hasCoda := lastSyllableFeature(surface)
	f.LastVowel = last
	f.LastHasCoda = hasCoda
	f.ZCodaAppendable = hangul.ZCodaAppendable(last)
	d.forms = append(d.forms, f)
	d.byText[surface] = append(d.byText[surface], fid)
	return fid
}

func hashBucket(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.Join(strings.Fields(s), " "))))
	return h.Sum32()
}

// lastSyllableFeature returns the last rune of s (assumed already
// hangul.Normalize-d, as every Add*/internForm caller in this package
// provides) and whether that rune is a standalone Jamo coda. A coda-bearing
// precomposed syllable never reaches here directly — Normalize already
// split it into the bare syllable followed by its Jamo coda — so, unlike
// the pre-normalization rune, a plain coda test against the jongseong
// range is exact, matching how KFeatureTestor.cpp's isMatched tests
// end[-1] of its own already-decomposed KString.
func lastSyllableFeature(s string) (rune, bool) {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0, false
	}
	last := runes[len(runes)-1]
	return last, hangul.IsJamoCoda(last)
}

// Finalize sorts forms by surface string (stabilizing binary search for
// the automaton builder) and marks the dictionary read-only. After
// Finalize, no further Add*/Load calls are permitted (spec §5).
func (d *Dictionary) Finalize() error {
	if d.finalized {
		return newError(ErrInvalidArgument, "Finalize: already finalized")
	}

	order := make([]int, len(d.forms))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return d.forms[order[i]].Text < d.forms[order[j]].Text
	})

	remap := make([]FormID, len(d.forms))
	newForms := make([]Form, len(d.forms))
	for newID, oldID := range order {
		remap[oldID] = FormID(newID)
		f := d.forms[oldID]
		f.ID = FormID(newID)
		newForms[newID] = f
	}
	d.forms = newForms

	for i := range d.morphemes {
		if d.morphemes[i].FormID != NoForm {
			d.morphemes[i].FormID = remap[d.morphemes[i].FormID]
		}
	}
	for text, ids := range d.byText {
		for i, id := range ids {
			ids[i] = remap[id]
		}
		d.byText[text] = ids
	}

	d.compileCombiningStage()

	d.finalized = true
	return nil
}

// compileCombiningStage implements spec §4.6 step (c): it scans every
// chunked morpheme (AddPreAnalyzedWord's output) for one whose first chunk
// names a partial fragment (AddPartialWord's output, CombineSocket != 0),
// and wires that fragment's Combined field — a signed MorphID offset,
// following Design Note 1's arena-offset convention — to point at the
// chunked morpheme it fuses into. A fragment with no matching chunked
// morpheme keeps Combined == 0 (no link); search's combineGate does not
// consult Combined itself (it matches sockets directly against Chunks at
// search time), so this pass only makes the link available to callers that
// want "what does this partial become" without replaying that match.
func (d *Dictionary) compileCombiningStage() {
	for i := range d.morphemes {
		m := &d.morphemes[i]
		if len(m.Chunks) == 0 {
			continue
		}
		first := d.Morpheme(m.Chunks[0].MorphID)
		if first == nil || first.CombineSocket == 0 {
			continue
		}
		first.Combined = int32(m.ID) - int32(first.ID)
	}
}

// Finalized reports whether Finalize has been called.
func (d *Dictionary) Finalized() bool { return d.finalized }

// Forms returns the (possibly reordered, post-Finalize) slice of all
// forms, for automaton construction.
func (d *Dictionary) Forms() []Form { return d.forms }

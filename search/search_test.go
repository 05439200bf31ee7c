package search

import (
	"testing"

	"github.com/kiwigo/kiwi/automaton"
	"github.com/kiwigo/kiwi/dict"
	"github.com/kiwigo/kiwi/hangul"
	"github.com/kiwigo/kiwi/lattice"
	"github.com/kiwigo/kiwi/lm"
)

// assemble finalizes d, builds its exact-match automaton, normalizes text,
// and runs the lattice builder — the full C1-C4 pipeline a Searcher sits
// downstream of.
func assemble(t *testing.T, d *dict.Dictionary, text string) (*lattice.Graph, hangul.PosMap) {
	t.Helper()
	if err := d.Finalize(); err != nil {
		t.Fatal(err)
	}
	a := automaton.BuildExact(d.Forms())
	seq, posMap, err := hangul.Normalize(text)
	if err != nil {
		t.Fatal(err)
	}
	g := lattice.Build(seq, lattice.Options{Automaton: a, Dictionary: d})
	return g, posMap
}

// uniformLM gives every LM token the same unigram log-probability — enough
// to exercise the search's own priors/penalties/gates without the LM
// itself biasing any outcome.
func uniformLM(vocab int32) *lm.Model {
	b := lm.NewBuilder(2, vocab, -8.0)
	for i := int32(0); i < vocab; i++ {
		b.AddEntry(nil, i, -1.0)
	}
	return b.Build()
}

// skewedLM gives exactly highID a much higher unigram log-probability than
// every other token, so collapsing a token's LM lookup onto highID is
// observable as a score difference.
func skewedLM(vocab int32, highID int32) *lm.Model {
	b := lm.NewBuilder(2, vocab, -8.0)
	for i := int32(0); i < vocab; i++ {
		if i == highID {
			b.AddEntry(nil, i, -1.0)
		} else {
			b.AddEntry(nil, i, -8.0)
		}
	}
	return b.Build()
}

func TestRunIntegrateAllomorphCollapsesToGroupFounderScore(t *testing.T) {
	d := dict.New()
	founder, _ := d.AddWord("이", dict.JKS, dict.CondNone, dict.PolarityNone, 0, -1)
	member, _ := d.AddWord("가", dict.JKS, dict.CondNone, dict.PolarityNone, 0, -1)
	if err := d.AddAllomorphGroup(founder, member); err != nil {
		t.Fatal(err)
	}
	founderLMToken := d.Morpheme(founder).LMTokenID
	g, posMap := assemble(t, d, "가")
	model := skewedLM(d.VocabSize(), founderLMToken)

	opts := DefaultOptions()
	rOff := New(model, d, opts).Run(g, posMap)

	opts.IntegrateAllomorph = true
	rOn := New(model, d, opts).Run(g, posMap)

	if len(rOff) != 1 || len(rOn) != 1 {
		t.Fatalf("unexpected result counts: %d, %d", len(rOff), len(rOn))
	}
	if rOn[0].Score <= rOff[0].Score {
		t.Errorf("IntegrateAllomorph-on score %v should exceed off score %v (member should score against the founder's higher-probability LM token)", rOn[0].Score, rOff[0].Score)
	}
}

func TestRunEmptyInputReturnsEmptyTokens(t *testing.T) {
	d := dict.New()
	g, posMap := assemble(t, d, "")

	s := New(uniformLM(d.VocabSize()), d, DefaultOptions())
	results := s.Run(g, posMap)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if len(results[0].Tokens) != 0 {
		t.Errorf("tokens = %+v, want none (spec S6)", results[0].Tokens)
	}
	if results[0].Score != 0 {
		t.Errorf("score = %v, want 0", results[0].Score)
	}
}

func TestRunProducesContiguousTokensOverTwoForms(t *testing.T) {
	d := dict.New()
	d.AddWord("가", dict.NNG, dict.CondNone, dict.PolarityNone, 0, -1)
	d.AddWord("나", dict.NNG, dict.CondNone, dict.PolarityNone, 0, -1)
	g, posMap := assemble(t, d, "가나")

	s := New(uniformLM(d.VocabSize()), d, DefaultOptions())
	results := s.Run(g, posMap)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	toks := results[0].Tokens
	if len(toks) != 2 {
		t.Fatalf("tokens = %+v, want 2", toks)
	}
	if toks[0].Surface != "가" || toks[1].Surface != "나" {
		t.Errorf("surfaces = %q, %q, want 가, 나", toks[0].Surface, toks[1].Surface)
	}
	if toks[0].StartPos != 0 || toks[0].Length != 1 {
		t.Errorf("token0 pos/len = %d/%d, want 0/1", toks[0].StartPos, toks[0].Length)
	}
	if toks[1].StartPos != 1 || toks[1].Length != 1 {
		t.Errorf("token1 pos/len = %d/%d, want 1/1", toks[1].StartPos, toks[1].Length)
	}
}

func TestRunUnknownFallbackForOutOfDictionaryInput(t *testing.T) {
	d := dict.New()
	g, posMap := assemble(t, d, "XYZ")

	s := New(uniformLM(d.VocabSize()), d, DefaultOptions())
	results := s.Run(g, posMap)
	if len(results) != 1 || len(results[0].Tokens) != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].Tokens[0].Tag != dict.NF {
		t.Errorf("tag = %v, want NF", results[0].Tokens[0].Tag)
	}
	if results[0].Tokens[0].Surface != "XYZ" {
		t.Errorf("surface = %q, want XYZ", results[0].Tokens[0].Surface)
	}
}

func TestRunPicksHigherUserScore(t *testing.T) {
	d := dict.New()
	d.AddWord("가", dict.NNG, dict.CondNone, dict.PolarityNone, 0.0, -1)
	d.AddWord("가", dict.NNG, dict.CondNone, dict.PolarityNone, 5.0, -1)
	g, posMap := assemble(t, d, "가")

	s := New(uniformLM(d.VocabSize()), d, DefaultOptions())
	results := s.Run(g, posMap)
	if len(results) != 1 || len(results[0].Tokens) != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].Score < 3.9 {
		t.Errorf("top score = %v, want >= ~3.9 (UserScore=5 plus one -1.0 LM step)", results[0].Score)
	}
}

func TestRunRespectsBlocklist(t *testing.T) {
	d := dict.New()
	d.AddWord("가", dict.NNG, dict.CondNone, dict.PolarityNone, 0.0, -1)
	highMid, _ := d.AddWord("가", dict.NNP, dict.CondNone, dict.PolarityNone, 5.0, -1)
	g, posMap := assemble(t, d, "가")

	opts := DefaultOptions()
	opts.Blocklist = map[dict.MorphID]bool{highMid: true}
	s := New(uniformLM(d.VocabSize()), d, opts)

	results := s.Run(g, posMap)
	if len(results) != 1 || len(results[0].Tokens) != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].Tokens[0].Tag != dict.NNG {
		t.Errorf("tag = %v, want NNG — the NNP candidate is blocklisted", results[0].Tokens[0].Tag)
	}
}

func TestRunMonotoneRanking(t *testing.T) {
	d := dict.New()
	d.AddWord("가", dict.NNG, dict.CondNone, dict.PolarityNone, 0, -1)
	d.AddWord("가", dict.NNP, dict.CondNone, dict.PolarityNone, -1, -1)
	g, posMap := assemble(t, d, "가")

	opts := DefaultOptions()
	opts.TopN = 2
	s := New(uniformLM(d.VocabSize()), d, opts)

	results := s.Run(g, posMap)
	if len(results) < 2 {
		t.Fatalf("results = %d, want at least 2", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Errorf("ranking not monotone at %d: %v then %v", i, results[i-1].Score, results[i].Score)
		}
	}
}

func TestRunChunkedPreAnalyzedWordEmitsSeparateTokens(t *testing.T) {
	d := dict.New()
	stem, _ := d.AddWord("가", dict.VV, dict.CondNone, dict.PolarityNone, 0, -1)
	ep, _ := d.AddWord("나", dict.EP, dict.CondNone, dict.PolarityNone, 0, -1)
	ef, _ := d.AddWord("다", dict.EF, dict.CondNone, dict.PolarityNone, 0, -1)

	surface := "가나다"
	_, err := d.AddPreAnalyzedWord(surface, []dict.PreAnalyzedChunk{
		{Start: 0, End: 3, Base: stem},
		{Start: 3, End: 6, Base: ep},
		{Start: 6, End: 9, Base: ef},
	})
	if err != nil {
		t.Fatal(err)
	}
	g, posMap := assemble(t, d, surface)

	s := New(uniformLM(d.VocabSize()), d, DefaultOptions())
	results := s.Run(g, posMap)
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	toks := results[0].Tokens
	if len(toks) != 3 {
		t.Fatalf("tokens = %+v, want 3 chunk tokens", toks)
	}
	wantTags := []dict.Tag{dict.VV, dict.EP, dict.EF}
	wantSurfaces := []string{"가", "나", "다"}
	for i := range wantTags {
		if toks[i].Tag != wantTags[i] {
			t.Errorf("token %d tag = %v, want %v", i, toks[i].Tag, wantTags[i])
		}
		if toks[i].Surface != wantSurfaces[i] {
			t.Errorf("token %d surface = %q, want %q", i, toks[i].Surface, wantSurfaces[i])
		}
	}
}

func TestRunWhitespaceGapAppliesSpacePenalty(t *testing.T) {
	d := dict.New()
	d.AddWord("가", dict.NNG, dict.CondNone, dict.PolarityNone, 0, -1)
	d.AddWord("나", dict.NNG, dict.CondNone, dict.PolarityNone, 0, -1)

	gNoSpace, posMapNoSpace := assemble(t, d, "가나")
	d2 := dict.New()
	d2.AddWord("가", dict.NNG, dict.CondNone, dict.PolarityNone, 0, -1)
	d2.AddWord("나", dict.NNG, dict.CondNone, dict.PolarityNone, 0, -1)
	gSpace, posMapSpace := assemble(t, d2, "가 나")

	opts := DefaultOptions()
	sNoSpace := New(uniformLM(d.VocabSize()), d, opts)
	sSpace := New(uniformLM(d2.VocabSize()), d2, opts)

	rNoSpace := sNoSpace.Run(gNoSpace, posMapNoSpace)
	rSpace := sSpace.Run(gSpace, posMapSpace)

	if len(rNoSpace) != 1 || len(rSpace) != 1 {
		t.Fatalf("unexpected result counts: %d, %d", len(rNoSpace), len(rSpace))
	}
	if rSpace[0].Score >= rNoSpace[0].Score {
		t.Errorf("spaced score %v should be lower than unspaced score %v (space penalty)", rSpace[0].Score, rNoSpace[0].Score)
	}
}

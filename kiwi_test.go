package kiwi

import (
	"testing"
	"unicode/utf8"

	"github.com/kiwigo/kiwi/dict"
	"github.com/kiwigo/kiwi/hangul"
	"github.com/kiwigo/kiwi/lattice"
	"github.com/kiwigo/kiwi/lm"
	"github.com/kiwigo/kiwi/search"
)

// addNormalizedWord registers surface's normalized (coda-split) form, since
// Form.Text must match the normalized sequence the automaton traverses —
// the same requirement lattice_test.go's buildDict observes.
func addNormalizedWord(t *testing.T, d *dict.Dictionary, surface string, tag dict.Tag, vowel dict.VowelCond) dict.MorphID {
	t.Helper()
	seq, _, err := hangul.Normalize(surface)
	if err != nil {
		t.Fatal(err)
	}
	id, err := d.AddWord(string(seq), tag, vowel, dict.PolarityNone, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func newTestAnalyzer(t *testing.T, build func(d *dict.Dictionary)) *Analyzer {
	t.Helper()
	d := dict.New()
	build(d)
	if err := d.Finalize(); err != nil {
		t.Fatal(err)
	}
	model := lm.Uniform(d.VocabSize(), -1.0)
	a, err := New(d, model)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func firstResult(t *testing.T) func(results []search.Result, err error) search.Result {
	return func(results []search.Result, err error) search.Result {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		if len(results) == 0 {
			t.Fatal("no results")
		}
		return results[0]
	}
}

func assertSurfacesTags(t *testing.T, r search.Result, wantSurfaces []string, wantTags []dict.Tag) {
	t.Helper()
	if len(r.Tokens) != len(wantSurfaces) {
		t.Fatalf("tokens = %+v, want %d tokens (%v)", r.Tokens, len(wantSurfaces), wantSurfaces)
	}
	for i, tok := range r.Tokens {
		if tok.Surface != wantSurfaces[i] {
			t.Errorf("token %d surface = %q, want %q", i, tok.Surface, wantSurfaces[i])
		}
		if tok.Tag != wantTags[i] {
			t.Errorf("token %d tag = %v, want %v", i, tok.Tag, wantTags[i])
		}
	}
}

// S1: "학교에서도" -> 학교/NNG, 에서/JKB, 도/JX (spec §8 scenario table).
func TestAnalyzeS1SchoolLocativeAux(t *testing.T) {
	a := newTestAnalyzer(t, func(d *dict.Dictionary) {
		addNormalizedWord(t, d, "학교", dict.NNG, dict.CondNone)
		addNormalizedWord(t, d, "에서", dict.JKB, dict.CondNone)
		addNormalizedWord(t, d, "도", dict.JX, dict.CondNone)
	})
	r := firstResult(t)(a.Analyze("학교에서도", AnalyzeOptions{TopN: 1, PerSentence: false}))
	want := []string{"학교", "에서", "도"}
	wantNorm := make([]string, len(want))
	for i, w := range want {
		wantNorm[i] = mustNormalize(t, w)
	}
	assertSurfacesTags(t, r, wantNorm, []dict.Tag{dict.NNG, dict.JKB, dict.JX})
}

// S2: "먹었다" -> 먹/VV, 었/EP, 다/EF.
func TestAnalyzeS2EatPastTense(t *testing.T) {
	a := newTestAnalyzer(t, func(d *dict.Dictionary) {
		addNormalizedWord(t, d, "먹", dict.VV, dict.CondNone)
		addNormalizedWord(t, d, "었", dict.EP, dict.CondNone)
		addNormalizedWord(t, d, "다", dict.EF, dict.CondNone)
	})
	r := firstResult(t)(a.Analyze("먹었다", AnalyzeOptions{TopN: 1}))
	assertSurfacesTags(t, r,
		[]string{mustNormalize(t, "먹"), mustNormalize(t, "었"), mustNormalize(t, "다")},
		[]dict.Tag{dict.VV, dict.EP, dict.EF})
}

// S3: "사겼다" (preanalyzed, 사귀+었+다 fused) -> three chunk tokens tagged
// VV, EP, EF that tile the normalized surface exactly.
func TestAnalyzeS3PreAnalyzedFusedStem(t *testing.T) {
	a := newTestAnalyzer(t, func(d *dict.Dictionary) {
		stem, err := d.AddWord(mustNormalize(t, "사귀"), dict.VV, dict.CondNone, dict.PolarityNone, 0, -1)
		if err != nil {
			t.Fatal(err)
		}
		ep, err := d.AddWord(mustNormalize(t, "었"), dict.EP, dict.CondNone, dict.PolarityNone, 0, -1)
		if err != nil {
			t.Fatal(err)
		}
		ef, err := d.AddWord(mustNormalize(t, "다"), dict.EF, dict.CondNone, dict.PolarityNone, 0, -1)
		if err != nil {
			t.Fatal(err)
		}

		normalized := mustNormalize(t, "사겼다")
		runes := []rune(normalized)
		off := make([]int, len(runes)+1)
		for i, r := range runes {
			off[i+1] = off[i] + utf8.RuneLen(r)
		}
		if len(runes) != 4 {
			t.Fatalf("normalized %q has %d runes, want 4 (사/겨/coda/다)", normalized, len(runes))
		}
		_, err = d.AddPreAnalyzedWord(normalized, []dict.PreAnalyzedChunk{
			{Start: off[0], End: off[1], Base: stem}, // 사
			{Start: off[1], End: off[3], Base: ep},    // 겨 + coda
			{Start: off[3], End: off[4], Base: ef},    // 다
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	r := firstResult(t)(a.Analyze("사겼다", AnalyzeOptions{TopN: 1}))
	if len(r.Tokens) != 3 {
		t.Fatalf("tokens = %+v, want 3 chunk tokens", r.Tokens)
	}
	wantTags := []dict.Tag{dict.VV, dict.EP, dict.EF}
	for i, tok := range r.Tokens {
		if tok.Tag != wantTags[i] {
			t.Errorf("token %d tag = %v, want %v", i, tok.Tag, wantTags[i])
		}
	}
	var concat string
	for _, tok := range r.Tokens {
		concat += tok.Surface
	}
	if concat != mustNormalize(t, "사겼다") {
		t.Errorf("concatenated surfaces = %q, want the whole normalized input", concat)
	}
}

// S3b: "들어요" realizes 듣다's ㄷ-irregular stem as 들 before the
// vowel-initial connective 어 -> 들/VV (a partial fragment opening
// combine-socket 1), 어/EC, 요/EF. Exercises combineGate's socket-match
// branch (spec §4.6 step (c)), previously unreachable since nothing ever
// set a nonzero CombineSocket.
func TestAnalyzeS3bCombineSocketIrregularStem(t *testing.T) {
	a := newTestAnalyzer(t, func(d *dict.Dictionary) {
		if _, err := d.AddPartialWord(mustNormalize(t, "들"), dict.VV, dict.CondAny, dict.PolarityNone, 1); err != nil {
			t.Fatal(err)
		}
		link, err := d.AddPartialWord(mustNormalize(t, "어"), dict.EC, dict.CondVocalic, dict.PolarityNone, 1)
		if err != nil {
			t.Fatal(err)
		}
		ef, err := d.AddWord(mustNormalize(t, "요"), dict.EF, dict.CondAny, dict.PolarityNone, 0, -1)
		if err != nil {
			t.Fatal(err)
		}

		ending := mustNormalize(t, "어요")
		linkNorm := mustNormalize(t, "어")
		if _, err := d.AddPreAnalyzedWord(ending, []dict.PreAnalyzedChunk{
			{Start: 0, End: len(linkNorm), Base: link},
			{Start: len(linkNorm), End: len(ending), Base: ef},
		}); err != nil {
			t.Fatal(err)
		}
	})

	r := firstResult(t)(a.Analyze("들어요", AnalyzeOptions{TopN: 1}))
	assertSurfacesTags(t, r,
		[]string{mustNormalize(t, "들"), mustNormalize(t, "어"), mustNormalize(t, "요")},
		[]dict.Tag{dict.VV, dict.EC, dict.EF})

	var concat string
	for _, tok := range r.Tokens {
		concat += tok.Surface
	}
	if concat != mustNormalize(t, "들어요") {
		t.Errorf("concatenated surfaces = %q, want the whole normalized input", concat)
	}
}

// S4: "https://kiwi.io 좋아요!" with URL matching on -> a URL token, then
// 좋/VA, 아요/EF, !/SF.
func TestAnalyzeS4URLThenPredicate(t *testing.T) {
	a := newTestAnalyzer(t, func(d *dict.Dictionary) {
		addNormalizedWord(t, d, "좋", dict.VA, dict.CondNone)
		addNormalizedWord(t, d, "아요", dict.EF, dict.CondNone)
		addNormalizedWord(t, d, "!", dict.SF, dict.CondNone)
	})
	r := firstResult(t)(a.Analyze("https://kiwi.io 좋아요!", AnalyzeOptions{TopN: 1, Match: MatchAll}))

	if len(r.Tokens) == 0 || r.Tokens[0].Tag != dict.WURL {
		t.Fatalf("tokens = %+v, want first token tagged W_URL", r.Tokens)
	}
	var tags []dict.Tag
	for _, tok := range r.Tokens {
		tags = append(tags, tok.Tag)
	}
	wantTail := []dict.Tag{dict.VA, dict.EF, dict.SF}
	if len(tags) != 1+len(wantTail) {
		t.Fatalf("tags = %v, want W_URL followed by %v", tags, wantTail)
	}
	for i, want := range wantTail {
		if tags[1+i] != want {
			t.Errorf("tag %d = %v, want %v", 1+i, tags[1+i], want)
		}
	}
}

// S5: "ㅋㅋㅋ" collapses to a single repetition/emoji token (W_EMOJI).
func TestAnalyzeS5LaughterRepetitionToken(t *testing.T) {
	a := newTestAnalyzer(t, func(d *dict.Dictionary) {})
	r := firstResult(t)(a.Analyze("ㅋㅋㅋ", AnalyzeOptions{TopN: 1, Match: MatchAll}))
	if len(r.Tokens) != 1 {
		t.Fatalf("tokens = %+v, want a single token", r.Tokens)
	}
	if r.Tokens[0].Tag != dict.WEMOJI {
		t.Errorf("tag = %v, want W_EMOJI", r.Tokens[0].Tag)
	}
	if r.Tokens[0].Surface != "ㅋㅋㅋ" {
		t.Errorf("surface = %q, want ㅋㅋㅋ", r.Tokens[0].Surface)
	}
}

// S6: empty input returns an empty token list at score 0.
func TestAnalyzeS6EmptyInput(t *testing.T) {
	a := newTestAnalyzer(t, func(d *dict.Dictionary) {})
	results, err := a.Analyze("", AnalyzeOptions{TopN: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v, want 1", results)
	}
	if len(results[0].Tokens) != 0 {
		t.Errorf("tokens = %+v, want none", results[0].Tokens)
	}
	if results[0].Score != 0 {
		t.Errorf("score = %v, want 0", results[0].Score)
	}
}

// Property 5 (spec §8): no blocklisted morpheme ID ever appears in output.
func TestAnalyzeBlocklistRespected(t *testing.T) {
	var blocked dict.MorphID
	a := newTestAnalyzer(t, func(d *dict.Dictionary) {
		lowMid, err := d.AddWord(mustNormalize(t, "가"), dict.NNG, dict.CondNone, dict.PolarityNone, 0.0, -1)
		if err != nil {
			t.Fatal(err)
		}
		highMid, err := d.AddWord(mustNormalize(t, "가"), dict.NNP, dict.CondNone, dict.PolarityNone, 5.0, -1)
		if err != nil {
			t.Fatal(err)
		}
		_ = lowMid
		blocked = highMid
	})
	results, err := a.Analyze("가", AnalyzeOptions{TopN: 1, Blocklist: map[dict.MorphID]bool{blocked: true}})
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		for _, tok := range res.Tokens {
			if tok.Tag == dict.NNP {
				t.Errorf("blocklisted NNP candidate reached output: %+v", tok)
			}
		}
	}
}

// Property 7 (spec §8): a pre-tokenized span's forced analysis is respected.
func TestAnalyzePreTokenizedPinning(t *testing.T) {
	a := newTestAnalyzer(t, func(d *dict.Dictionary) {
		addNormalizedWord(t, d, "학교", dict.NNG, dict.CondNone)
		addNormalizedWord(t, d, "교", dict.NNB, dict.CondNone)
	})

	seq, _, err := hangul.Normalize("학교")
	if err != nil {
		t.Fatal(err)
	}
	forms := a.dict.Lookup(string(seq))
	if len(forms) == 0 || len(forms[0].Candidates) == 0 {
		t.Fatal("expected a dictionary hit for 학교")
	}
	pinned := forms[0].Candidates[0]

	r := firstResult(t)(a.Analyze("학교", AnalyzeOptions{
		TopN: 1,
		PreTokenized: []lattice.PreTokenSpan{
			{Start: 0, End: len(seq), Candidates: []dict.MorphID{pinned}},
		},
	}))
	if len(r.Tokens) != 1 || r.Tokens[0].Tag != dict.NNG {
		t.Fatalf("tokens = %+v, want a single NNG token matching the pinned span", r.Tokens)
	}
}

func mustNormalize(t *testing.T, s string) string {
	t.Helper()
	seq, _, err := hangul.Normalize(s)
	if err != nil {
		t.Fatal(err)
	}
	return string(seq)
}

func TestDefaultAnalyzerSmoke(t *testing.T) {
	a, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	results, err := a.Analyze("이것은 테스트입니다", DefaultAnalyzeOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result from the bundled default analyzer")
	}
}

func TestPoolPreservesInputOrder(t *testing.T) {
	a := newTestAnalyzer(t, func(d *dict.Dictionary) {
		addNormalizedWord(t, d, "가", dict.NNG, dict.CondNone)
		addNormalizedWord(t, d, "나", dict.NNG, dict.CondNone)
		addNormalizedWord(t, d, "다", dict.NNG, dict.CondNone)
	})
	p := NewPool(a, 2)
	jobs := []Job{
		{Text: "가", Opts: AnalyzeOptions{TopN: 1}},
		{Text: "나", Opts: AnalyzeOptions{TopN: 1}},
		{Text: "다", Opts: AnalyzeOptions{TopN: 1}},
	}
	results := p.Run(jobs)
	want := []string{mustNormalize(t, "가"), mustNormalize(t, "나"), mustNormalize(t, "다")}
	for i, jr := range results {
		if jr.Err != nil {
			t.Fatalf("job %d: %v", i, jr.Err)
		}
		if len(jr.Results) == 0 || len(jr.Results[0].Tokens) != 1 || jr.Results[0].Tokens[0].Surface != want[i] {
			t.Errorf("job %d result = %+v, want surface %q", i, jr.Results, want[i])
		}
	}
}

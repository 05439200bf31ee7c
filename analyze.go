package kiwi

import (
	"github.com/kiwigo/kiwi/dict"
	"github.com/kiwigo/kiwi/hangul"
	"github.com/kiwigo/kiwi/lattice"
	"github.com/kiwigo/kiwi/search"
)

// AnalyzeOptions bundles the per-analysis inputs (spec §6): how many
// ranked results to return, which lattice behaviors to enable, an optional
// morpheme blocklist, optional pre-tokenized spans the caller has already
// pinned, and the sentence-splitting driver's own knobs.
type AnalyzeOptions struct {
	TopN int

	Match        MatchOption
	Blocklist    map[dict.MorphID]bool
	PreTokenized []lattice.PreTokenSpan

	AllowedDialects dict.Dialect // 0 = use the Analyzer's construction-time default
	DialectCost     float64      // 0 = use the Analyzer's construction-time default

	// PerSentence splits text at strong sentence boundaries and analyzes
	// each sentence independently before recombining (spec §4.5 "Sentence
	// breaking").
	PerSentence bool
	// MaxSentenceLength re-splits any sentence longer than this many runes
	// at its nearest preceding whitespace boundary (spec §4.5 "a single
	// sentence above a length threshold is re-split at a safe boundary");
	// 0 disables re-splitting. Only consulted when PerSentence is set.
	MaxSentenceLength int
}

// DefaultAnalyzeOptions returns top-1, every pattern matcher plus Z-coda
// enabled, and per-sentence splitting at a 200-rune threshold.
func DefaultAnalyzeOptions() AnalyzeOptions {
	return AnalyzeOptions{
		TopN:              1,
		Match:             MatchAll,
		PerSentence:       true,
		MaxSentenceLength: 200,
	}
}

// Analyze runs hangul normalization, lattice construction, and beam search
// over text, returning up to opts.TopN ranked segmentations (spec §4.5
// "Output"). If opts.PerSentence is set, text is first split into
// sentences analyzed independently (see analyzeSentences).
func (a *Analyzer) Analyze(text string, opts AnalyzeOptions) ([]search.Result, error) {
	if opts.TopN <= 0 {
		opts.TopN = 1
	}

	s := a.searcherFor(opts)
	if opts.PerSentence {
		return a.analyzeSentences(s, text, opts)
	}
	return a.analyzeOne(s, text, opts)
}

// searcherFor builds a Searcher reflecting this call's overrides of the
// Analyzer's construction-time search.Options, without mutating the shared
// Analyzer state (spec §5 "immutable after construction").
func (a *Analyzer) searcherFor(opts AnalyzeOptions) *search.Searcher {
	sOpts := a.searcher.Opts
	sOpts.TopN = opts.TopN
	if opts.Blocklist != nil {
		sOpts.Blocklist = opts.Blocklist
	}
	if opts.AllowedDialects != 0 {
		sOpts.AllowedDialects = opts.AllowedDialects
	}
	if opts.DialectCost != 0 {
		sOpts.DialectCost = opts.DialectCost
	}
	return search.New(a.model, a.dict, sOpts)
}

// analyzeOne runs the full C1-C4+C6 pipeline over a single span of text
// with no further sentence splitting.
func (a *Analyzer) analyzeOne(s *search.Searcher, text string, opts AnalyzeOptions) ([]search.Result, error) {
	seq, posMap, err := hangul.Normalize(text)
	if err != nil {
		return nil, wrapError(err)
	}
	g := lattice.Build(seq, lattice.Options{
		Automaton:    a.automaton,
		Dictionary:   a.dict,
		EnabledKinds: patternKinds(opts.Match),
		PreTokenized: opts.PreTokenized,
		ZCoda:        opts.Match&MatchZCoda != 0,
	})
	return s.Run(g, posMap), nil
}

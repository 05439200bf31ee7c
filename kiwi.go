// Package kiwi wires the six segmentation-engine components — hangul
// normalization, the dictionary, the form automaton, the lattice builder,
// the n-gram language model, and the beam search — behind a single
// Analyzer, mirroring the way the teacher's Analyzer sits in front of its
// own DAWG lookup.
//
// Basic usage:
//
//	d := dict.Default()
//	model := lm.Uniform(d.VocabSize(), -8.0)
//	a, err := kiwi.New(d, model)
//	if err != nil {
//		log.Fatal(err)
//	}
//	results, err := a.Analyze("안녕하세요", kiwi.DefaultAnalyzeOptions())
package kiwi

import (
	"fmt"
	"log"
	"sync"

	"github.com/kiwigo/kiwi/automaton"
	"github.com/kiwigo/kiwi/dict"
	"github.com/kiwigo/kiwi/lm"
	"github.com/kiwigo/kiwi/search"
)

var (
	defaultOnce     sync.Once
	defaultAnalyzer *Analyzer
	defaultErr      error
)

// ── Model selection ──────────────────────────────────────────────────────

// ModelType selects the language-model variant an Analyzer scores with
// (spec §6 "model_type"). Only ModelKNLM has a concrete implementation in
// this rewrite — sbg/cong/cong_global name the tagged-variant slots a
// trained build would fill (Design Note 2); the training pipeline that
// would produce them is out of scope (spec §1), same as for ModelKNLM's
// own compiled model file.
type ModelType int

const (
	ModelKNLM ModelType = iota
	ModelSBG
	ModelCong
	ModelCongGlobal
)

func (t ModelType) String() string {
	switch t {
	case ModelKNLM:
		return "knlm"
	case ModelSBG:
		return "sbg"
	case ModelCong:
		return "cong"
	case ModelCongGlobal:
		return "cong_global"
	default:
		return "unknown"
	}
}

// ── Construction options ─────────────────────────────────────────────────

// config accumulates Option values before New builds the Analyzer.
type config struct {
	integrateAllomorph bool
	loadDefaultDict    bool
	loadTypoDict       bool
	loadMultiDict      bool
	modelType          ModelType
	numThreads         int
	enabledDialects    dict.Dialect
	logger             *log.Logger
	typoRuleset        automaton.TypoRuleset
	searchOpts         search.Options
}

func defaultConfig() config {
	return config{
		modelType:       ModelKNLM,
		numThreads:      1,
		enabledDialects: dict.DialectStandard,
		logger:          log.New(log.Writer(), "", 0),
		searchOpts:      search.DefaultOptions(),
	}
}

// Option configures Analyzer construction (spec §6 "Analyzer construction
// options").
type Option func(*config)

// IntegrateAllomorph collapses allomorph groups to their canonical LM
// token during scoring, so members of the same group never compete against
// each other for a slightly different score (spec §6 "integrate_allomorph").
func IntegrateAllomorph() Option {
	return func(c *config) { c.integrateAllomorph = true }
}

// LoadDefaultDict falls back to the bundled minimal dictionary
// ([dict.Default]) and a flat unigram model ([lm.Uniform]) when both of
// New's d/model arguments are nil.
func LoadDefaultDict() Option {
	return func(c *config) { c.loadDefaultDict = true }
}

// LoadTypoDict builds the form automaton with typo variants included,
// using the ruleset supplied via WithTypoRuleset (exact matching only if
// none is given).
func LoadTypoDict() Option {
	return func(c *config) { c.loadTypoDict = true }
}

// LoadMultiDict records that bundled multi-word expressions should be
// loaded. Compiling multi-word expressions is the allomorph/combining-rule
// compiler's job (spec §1 scopes it out), so this flag carries intent for
// option-table parity but has no bundled data of its own — a caller that
// wants multi-word entries adds them to d directly before calling New.
func LoadMultiDict() Option {
	return func(c *config) { c.loadMultiDict = true }
}

// WithModelType selects the LM variant (spec §6 "model_type").
func WithModelType(t ModelType) Option {
	return func(c *config) { c.modelType = t }
}

// WithNumThreads records a worker count on the Analyzer's config (-1 for
// "auto"). NewPool takes its worker count as an argument and does not read
// this value.
func WithNumThreads(n int) Option {
	return func(c *config) { c.numThreads = n }
}

// WithEnabledDialects restricts which dict.Dialect bits the search pass
// accepts by default (spec §6 "enabled_dialects"); AnalyzeOptions.AllowedDialects
// overrides this per call.
func WithEnabledDialects(d dict.Dialect) Option {
	return func(c *config) { c.enabledDialects = d }
}

// WithLogger installs a construction-time diagnostics logger. Analyze never
// logs — only New does, the same silent-on-the-hot-path convention the
// teacher's library-wide doc comment promises ("safe for concurrent use").
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithTypoRuleset supplies the ruleset LoadTypoDict expands the automaton
// with.
func WithTypoRuleset(r automaton.TypoRuleset) Option {
	return func(c *config) { c.typoRuleset = r }
}

// WithSearchOptions overrides the beam-search scoring/penalty defaults
// (search.DefaultOptions()).
func WithSearchOptions(opts search.Options) Option {
	return func(c *config) { c.searchOpts = opts }
}

// ── Analyzer ──────────────────────────────────────────────────────────────

// Analyzer is the read-only, concurrency-safe segmentation engine (spec §5
// "immutable after construction — safe to share across goroutines without
// locking"). Construct with New, or use Default for a quick, dependency-free
// instance over the bundled minimal dictionary.
type Analyzer struct {
	dict      *dict.Dictionary
	model     *lm.Model
	automaton *automaton.Automaton
	searcher  *search.Searcher
	cfg       config
}

// New builds an Analyzer over d and model. Either may be nil — and must be,
// together — to fall back to the bundled defaults when LoadDefaultDict is
// set; mixing one real argument with one nil argument is rejected, since a
// caller-supplied dictionary's LM token IDs are meaningless against the
// bundled uniform model and vice versa.
func New(d *dict.Dictionary, model *lm.Model, opts ...Option) (*Analyzer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if d == nil || model == nil {
		if d != nil || model != nil {
			return nil, newError(ErrInvalidArgument, "New: dictionary and model must both be given, or both left nil to use LoadDefaultDict")
		}
		if !cfg.loadDefaultDict {
			return nil, newError(ErrInvalidArgument, "New: no dictionary/model given and LoadDefaultDict not set")
		}
		d = dict.Default()
		model = lm.Uniform(d.VocabSize(), -8.0)
		cfg.logger.Printf("kiwi: loaded bundled default dictionary (%d forms) and uniform fallback model", d.NumForms())
	}
	if !d.Finalized() {
		return nil, newError(ErrInvalidArgument, "New: dictionary must be Finalize()d before use")
	}
	if cfg.modelType != ModelKNLM {
		return nil, newError(ErrInvalidArgument, fmt.Sprintf("New: model_type %q has no implementation in this build", cfg.modelType))
	}

	var a *automaton.Automaton
	if cfg.loadTypoDict && cfg.typoRuleset != nil {
		a = automaton.BuildTypoExpanded(d.Forms(), cfg.typoRuleset)
	} else {
		a = automaton.BuildExact(d.Forms())
	}

	sOpts := cfg.searchOpts
	sOpts.AllowedDialects = cfg.enabledDialects
	sOpts.IntegrateAllomorph = cfg.integrateAllomorph
	searcher := search.New(model, d, sOpts)

	return &Analyzer{dict: d, model: model, automaton: a, searcher: searcher, cfg: cfg}, nil
}

// Default returns the shared Analyzer built over the bundled minimal
// dictionary and a uniform fallback model, building it on first use
// (mirrors the teacher's sync.Once-guarded Default()/defaultAnalyzer
// pattern for its own bundled dictionary).
func Default() (*Analyzer, error) {
	defaultOnce.Do(func() {
		defaultAnalyzer, defaultErr = New(nil, nil, LoadDefaultDict())
	})
	return defaultAnalyzer, defaultErr
}

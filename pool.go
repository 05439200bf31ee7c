package kiwi

import (
	"sync"

	"github.com/kiwigo/kiwi/search"
)

// Job is one unit of work submitted to a Pool.
type Job struct {
	Text string
	Opts AnalyzeOptions
}

// JobResult pairs one Job's outcome with the error Analyze returned, if
// any.
type JobResult struct {
	Results []search.Result
	Err     error
}

// Pool runs Analyze calls across a bounded number of goroutines, returning
// results index-aligned with the submitted jobs regardless of completion
// order (spec §5 "a small reorder buffer" — here, each worker writes
// directly into its own result slot rather than streaming through a
// separate reordering stage, which is sufficient since Run blocks until
// every job finishes). No worker-pool library appears anywhere in the
// retrieval pack this repository draws on, so this is plain sync/channels,
// the one ambient concern in this codebase that stays stdlib-only.
type Pool struct {
	a    *Analyzer
	size int
}

// NewPool starts a Pool of size worker goroutines over a (size <= 0
// behaves as 1). Resolve "-1 = auto" (spec §6 "num_threads") to a concrete
// count, e.g. via runtime.GOMAXPROCS(0), before calling this.
func NewPool(a *Analyzer, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{a: a, size: size}
}

// Run analyzes every job concurrently, bounded to the pool's worker count,
// and returns results index-aligned with jobs.
func (p *Pool) Run(jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))
	sem := make(chan struct{}, p.size)
	var wg sync.WaitGroup

	for i, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, j Job) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := p.a.Analyze(j.Text, j.Opts)
			results[i] = JobResult{Results: res, Err: err}
		}(i, j)
	}
	wg.Wait()
	return results
}

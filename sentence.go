package kiwi

import (
	"sort"
	"unicode/utf16"

	"github.com/kiwigo/kiwi/hangul"
	"github.com/kiwigo/kiwi/search"
)

// isStrongBoundary and closingMarks are a lightweight rune classifier the
// sentence splitter uses as its first pass (spec §4.5 "Sentence breaking")
// — plain punctuation detection over raw runes, not a tag-level decision,
// since tagging is exactly what each split then drives independently.
// dict.IsSentenceBreak/dict.IsClosingSS make the equivalent tag-level call
// once a token is already produced; this is the pre-analysis analogue that
// decides where to draw the boundary in the first place.
func isStrongBoundary(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

var closingMarks = map[rune]bool{
	'"': true, '\'': true, '」': true, '』': true, '）': true, ')': true,
	'〉': true, '》': true, ']': true, '}': true,
}

func isClosingMark(r rune) bool { return closingMarks[r] }

// span is a [start,end) rune-index range.
type span struct{ start, end int }

// splitSentences splits runes into sentence spans at strong punctuation
// (absorbing any immediately following closing quote/bracket into the same
// sentence), then re-splits any span longer than maxLen at its nearest
// preceding whitespace boundary (spec §4.5 "a single sentence above a
// length threshold is re-split at a safe boundary"). maxLen <= 0 disables
// re-splitting.
func splitSentences(runes []rune, maxLen int) []span {
	var spans []span
	start := 0
	for i := 0; i < len(runes); i++ {
		if isStrongBoundary(runes[i]) {
			end := i + 1
			for end < len(runes) && isClosingMark(runes[end]) {
				end++
			}
			spans = append(spans, span{start, end})
			start = end
			i = end - 1
		}
	}
	if start < len(runes) {
		spans = append(spans, span{start, len(runes)})
	}
	if len(spans) == 0 {
		spans = []span{{0, 0}}
	}
	if maxLen <= 0 {
		return spans
	}
	var out []span
	for _, sp := range spans {
		out = append(out, resplitLong(runes, sp, maxLen)...)
	}
	return out
}

func resplitLong(runes []rune, sp span, maxLen int) []span {
	if sp.end-sp.start <= maxLen {
		return []span{sp}
	}
	cut := sp.start + maxLen
	boundary := cut
	for boundary > sp.start && !hangul.IsSpace(runes[boundary]) {
		boundary--
	}
	if boundary == sp.start {
		boundary = cut // no whitespace found in range; hard cut
	}
	rest := resplitLong(runes, span{boundary, sp.end}, maxLen)
	return append([]span{{sp.start, boundary}}, rest...)
}

// analyzeSentences splits text into independently-analyzed sentences and
// combines their per-sentence top-N results index-aligned: combined result
// k concatenates sentence i's result min(k, len(results_i)-1) and sums
// their scores. This is the direct reading of "searched independently and
// results are concatenated" (spec §4.5) generalized from topN=1 (where it
// is exact) to topN>1 (where it is an approximation — the true top-N over
// the cross product of all sentences' candidates is combinatorial and not
// attempted here).
func (a *Analyzer) analyzeSentences(s *search.Searcher, text string, opts AnalyzeOptions) ([]search.Result, error) {
	runes := []rune(text)
	spans := splitSentences(runes, opts.MaxSentenceLength)

	perSentence := make([][]search.Result, len(spans))
	for i, sp := range spans {
		sentence := string(runes[sp.start:sp.end])
		results, err := a.analyzeOne(s, sentence, opts)
		if err != nil {
			return nil, err
		}
		prefixUTF16 := len(utf16.Encode(runes[:sp.start]))
		for r := range results {
			for t := range results[r].Tokens {
				results[r].Tokens[t].StartPos += prefixUTF16
				results[r].Tokens[t].SubSentPosition = i
			}
		}
		perSentence[i] = results
	}

	n := opts.TopN
	if n <= 0 {
		n = 1
	}
	out := make([]search.Result, 0, n)
	for k := 0; k < n; k++ {
		var combined search.Result
		any := false
		for _, rs := range perSentence {
			if len(rs) == 0 {
				continue
			}
			idx := k
			if idx >= len(rs) {
				idx = len(rs) - 1
			}
			combined.Tokens = append(combined.Tokens, rs[idx].Tokens...)
			combined.Score += rs[idx].Score
			any = true
		}
		if any {
			out = append(out, combined)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Package lattice builds the DAG of candidate form-occurrences over a
// normalized input sequence (spec §4.3, component C4): dictionary hits via
// the form automaton, pattern nodes (URL/email/hashtag/.../emoji), unknown
// spans, user pre-tokenization, whitespace-gap edges and Z-coda
// attachment.
package lattice

import (
	"sort"

	"github.com/kiwigo/kiwi/automaton"
	"github.com/kiwigo/kiwi/dict"
	"github.com/kiwigo/kiwi/hangul"
)

// Kind identifies what produced a Node.
type Kind int

const (
	KindSentinelStart Kind = iota
	KindSentinelEnd
	KindForm
	KindPattern
	KindUnknown
	KindPreTokenized
	KindZCoda
)

// Node is one candidate form-occurrence: a [Start,End) span of the
// normalized sequence plus the morphemes that may realize it.
type Node struct {
	Kind       Kind
	Start, End int // rune offsets into the normalized sequence
	Text       string

	Form       *dict.Form
	Candidates []dict.MorphID

	PatternKind PatternKind

	TypoCost      int
	LeftVowelCond dict.VowelCond
	HasVowelCond  bool
}

// Edge records that To may directly follow From, separated by numSpaces
// whitespace runes in the normalized sequence (spec §4.3 "edge rule").
type Edge struct {
	From, To  int
	NumSpaces int
}

// Graph is the frozen per-analysis lattice. Node 0 is always the start
// sentinel, and the last node is always the end sentinel.
type Graph struct {
	Nodes []Node
	Edges []Edge

	// outgoing[i] lists indices into Edges of edges leaving Nodes[i], and
	// incoming[i] lists edges entering it — both built once so the search
	// pass (C6) can walk predecessors/successors in O(1) amortized.
	outgoing [][]int
	incoming [][]int
}

// Outgoing and Incoming expose the adjacency lists built during Build, for
// the Viterbi search pass.
func (g *Graph) Outgoing(node int) []Edge {
	out := make([]Edge, len(g.outgoing[node]))
	for i, e := range g.outgoing[node] {
		out[i] = g.Edges[e]
	}
	return out
}

func (g *Graph) Incoming(node int) []Edge {
	out := make([]Edge, len(g.incoming[node]))
	for i, e := range g.incoming[node] {
		out[i] = g.Edges[e]
	}
	return out
}

// PreTokenSpan pins the analysis of a caller-chosen span (spec §4.3 step
// 4): automaton/pattern hits overlapping it are suppressed
// and a single forced node with Candidates is emitted instead.
type PreTokenSpan struct {
	Start, End int
	Candidates []dict.MorphID
}

// Options configures Build.
type Options struct {
	Automaton    *automaton.Automaton
	Dictionary   *dict.Dictionary
	EnabledKinds map[PatternKind]bool
	PreTokenized []PreTokenSpan
	ZCoda        bool // spec §6 MatchOption "z_coda"
}

// Build constructs the lattice for a normalized sequence (spec §4.3).
func Build(seq hangul.Sequence, opts Options) *Graph {
	n := len(seq)
	runes := []rune(seq)

	var nodes []Node
	covered := make([]bool, n) // per-position: is it inside some non-unknown node?

	markCovered := func(start, end int) {
		for i := start; i < end && i < n; i++ {
			covered[i] = true
		}
	}

	// Pre-tokenized spans are added first and their interior is marked
	// covered so automaton/pattern hits overlapping it are dropped below
	// (spec §4.3 step 4).
	for _, pt := range opts.PreTokenized {
		nodes = append(nodes, Node{
			Kind:       KindPreTokenized,
			Start:      pt.Start,
			End:        pt.End,
			Text:       string(runes[pt.Start:pt.End]),
			Candidates: pt.Candidates,
		})
		markCovered(pt.Start, pt.End)
	}

	overlapsPreTokenized := func(start, end int) bool {
		for _, pt := range opts.PreTokenized {
			if start < pt.End && end > pt.Start {
				return true
			}
		}
		return false
	}

	// Step 1: dictionary hits via the form automaton (spec §4.3 step 1).
	if opts.Automaton != nil && opts.Dictionary != nil {
		opts.Automaton.Traverse(runes, func(h automaton.Hit) bool {
			if overlapsPreTokenized(h.Start, h.End) {
				return true
			}
			form := opts.Dictionary.Form(h.FormID)
			if form == nil {
				return true
			}
			nodes = append(nodes, Node{
				Kind:          KindForm,
				Start:         h.Start,
				End:           h.End,
				Text:          form.Text,
				Form:          form,
				Candidates:    form.Candidates,
				TypoCost:      h.TypoCost,
				LeftVowelCond: h.LeftVowelCond,
				HasVowelCond:  h.HasVowelCond,
			})
			markCovered(h.Start, h.End)
			return true
		})
	}

	// Step 2: pattern matchers (spec §4.3 step 2).
	for _, pm := range matchPatterns(runes, opts.EnabledKinds) {
		if overlapsPreTokenized(pm.start, pm.end) {
			continue
		}
		tag := patternTag[pm.kind]
		nodes = append(nodes, Node{
			Kind:        KindPattern,
			Start:       pm.start,
			End:         pm.end,
			Text:        string(runes[pm.start:pm.end]),
			PatternKind: pm.kind,
			Candidates:  []dict.MorphID{dict.DefaultMorphID(tag)},
		})
		markCovered(pm.start, pm.end)
	}

	// Step 3: unknown-form nodes fill every uncovered, non-whitespace
	// stretch (spec §4.3 step 3).
	nodes = append(nodes, unknownNodes(runes, covered)...)

	// Step 6: Z-coda attachment nodes (spec §4.3 step 6) — a virtual node
	// immediately following any form whose last syllable is
	// ZCodaAppendable and is itself followed by a bare Jamo coda.
	if opts.ZCoda {
		nodes = append(nodes, zCodaNodes(runes, nodes)...)
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Start != nodes[j].Start {
			return nodes[i].Start < nodes[j].Start
		}
		return nodes[i].End < nodes[j].End
	})

	g := assemble(nodes, runes)
	pruneOrphans(g)
	return g
}

// unknownNodes scans covered for maximal uncovered, non-whitespace runs
// and emits one node per run, carrying the raw substring (spec §4.3 step
// 3: "a placeholder that the LM will later score as an out-of-vocabulary
// morpheme").
func unknownNodes(runes []rune, covered []bool) []Node {
	var out []Node
	i := 0
	n := len(runes)
	for i < n {
		if covered[i] || isSpaceRune(runes[i]) {
			i++
			continue
		}
		start := i
		for i < n && !covered[i] && !isSpaceRune(runes[i]) {
			i++
		}
		tag := dict.NF
		if isHanjaRune(runes[start]) {
			tag = dict.NA
		}
		out = append(out, Node{
			Kind:       KindUnknown,
			Start:      start,
			End:        i,
			Text:       string(runes[start:i]),
			Candidates: []dict.MorphID{dict.DefaultMorphID(tag)},
		})
	}
	return out
}

func isHanjaRune(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func isSpaceRune(r rune) bool { return hangul.IsSpace(r) }

// zCodaNodes emits a virtual node immediately after every existing node
// whose span ends on a ZCodaAppendable form and is followed directly (no
// gap) by a bare Jamo coda in the sequence.
func zCodaNodes(runes []rune, existing []Node) []Node {
	var out []Node
	for _, nd := range existing {
		if nd.Form == nil || !nd.Form.ZCodaAppendable {
			continue
		}
		if nd.End >= len(runes) || !hangul.IsJamoCoda(runes[nd.End]) {
			continue
		}
		out = append(out, Node{
			Kind:       KindZCoda,
			Start:      nd.End,
			End:        nd.End + 1,
			Text:       string(runes[nd.End]),
			Candidates: []dict.MorphID{dict.DefaultMorphID(dict.ZCODA)},
		})
	}
	return out
}

// assemble sorts-in sentinels, builds the Graph's node slice and computes
// every feasible edge (spec §4.3 "edge rule").
func assemble(sorted []Node, runes []rune) *Graph {
	n := len(runes)
	g := &Graph{}
	g.Nodes = append(g.Nodes, Node{Kind: KindSentinelStart, Start: 0, End: 0})
	g.Nodes = append(g.Nodes, sorted...)
	g.Nodes = append(g.Nodes, Node{Kind: KindSentinelEnd, Start: n, End: n})

	g.outgoing = make([][]int, len(g.Nodes))
	g.incoming = make([][]int, len(g.Nodes))

	for a := range g.Nodes {
		for b := range g.Nodes {
			if a == b {
				continue
			}
			A, B := g.Nodes[a], g.Nodes[b]
			if B.Start < A.End {
				continue
			}
			spaces, ok := whitespaceGap(runes, A, B)
			if !ok {
				continue
			}
			idx := len(g.Edges)
			g.Edges = append(g.Edges, Edge{From: a, To: b, NumSpaces: spaces})
			g.outgoing[a] = append(g.outgoing[a], idx)
			g.incoming[b] = append(g.incoming[b], idx)
		}
	}
	return g
}

// whitespaceGap reports whether B may directly follow A (spec §4.3 "edge
// rule"): B starts exactly where A ends, or every rune between them is
// whitespace.
func whitespaceGap(runes []rune, a, b Node) (numSpaces int, ok bool) {
	if b.Start == a.End {
		return 0, true
	}
	if b.Start < a.End {
		return 0, false
	}
	for i := a.End; i < b.Start; i++ {
		if !isSpaceRune(runes[i]) {
			return 0, false
		}
	}
	return b.Start - a.End, true
}

// pruneOrphans removes any node not reachable from the start sentinel or
// not able to reach the end sentinel, preserving the invariant that every
// surviving node lies on at least one complete start-to-end path (spec
// §4.3 "edge rule").
func pruneOrphans(g *Graph) {
	start := 0
	end := len(g.Nodes) - 1

	reachableFromStart := bfsForward(g, start)
	reachesEnd := bfsBackward(g, end)

	keep := make([]bool, len(g.Nodes))
	for i := range g.Nodes {
		keep[i] = reachableFromStart[i] && reachesEnd[i]
	}
	// Sentinels are always kept even in the degenerate all-unknown case.
	keep[start] = true
	keep[end] = true

	remap := make([]int, len(g.Nodes))
	var newNodes []Node
	for i, k := range keep {
		if !k {
			remap[i] = -1
			continue
		}
		remap[i] = len(newNodes)
		newNodes = append(newNodes, g.Nodes[i])
	}

	var newEdges []Edge
	for _, e := range g.Edges {
		if remap[e.From] < 0 || remap[e.To] < 0 {
			continue
		}
		newEdges = append(newEdges, Edge{From: remap[e.From], To: remap[e.To], NumSpaces: e.NumSpaces})
	}

	g.Nodes = newNodes
	g.Edges = newEdges
	g.outgoing = make([][]int, len(newNodes))
	g.incoming = make([][]int, len(newNodes))
	for idx, e := range newEdges {
		g.outgoing[e.From] = append(g.outgoing[e.From], idx)
		g.incoming[e.To] = append(g.incoming[e.To], idx)
	}
}

// bfsForward marks every node reachable from start by following edges in
// their natural (From -> To) direction.
func bfsForward(g *Graph, start int) []bool {
	seen := make([]bool, len(g.Nodes))
	seen[start] = true
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, eIdx := range g.outgoing[cur] {
			to := g.Edges[eIdx].To
			if !seen[to] {
				seen[to] = true
				queue = append(queue, to)
			}
		}
	}
	return seen
}

// bfsBackward marks every node that can reach end by following edges
// against their natural direction (To -> From).
func bfsBackward(g *Graph, end int) []bool {
	seen := make([]bool, len(g.Nodes))
	seen[end] = true
	queue := []int{end}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, eIdx := range g.incoming[cur] {
			from := g.Edges[eIdx].From
			if !seen[from] {
				seen[from] = true
				queue = append(queue, from)
			}
		}
	}
	return seen
}

package lm

import "sort"

// Builder assembles a Model from individually-specified n-gram entries.
// Full training from a raw corpus (smoothing estimation, count-trie
// construction) is a build-time collaborator out of scope here (spec §4.4
// "Not specified further here — it is a build-time collaborator"); Builder
// covers the part this repository owns: turning already-estimated
// (context, token, logProb, gamma) triples into the frozen, offset-linked
// trie Advance queries.
type Builder struct {
	order      int
	vocabSize  int32
	unkLogProb float32
	history    []int32

	// children maps a context (as a string key over token IDs) to its
	// child entries, and gamma maps it to its trained back-off weight;
	// root is the empty context "".
	children map[string]map[int32]entry
	gamma    map[string]float32
}

type entry struct {
	logProb float32
}

// NewBuilder starts a Builder for an order-gram model with the given
// vocabulary size and unknown-token log-probability.
func NewBuilder(order int, vocabSize int32, unkLogProb float32) *Builder {
	return &Builder{
		order:      order,
		vocabSize:  vocabSize,
		unkLogProb: unkLogProb,
		children:   map[string]map[int32]entry{"": {}},
		gamma:      map[string]float32{},
	}
}

// SetHistoryTransformer installs the optional per-vocab token rewrite
// (spec §4.4 "History transformer").
func (b *Builder) SetHistoryTransformer(mapping []int32) {
	b.history = mapping
}

// AddEntry records P(token | context) = logProb for the given context
// (a sequence of token IDs, shortest-first meaning context[0] is the
// oldest token). Every prefix context that will itself be extended needs
// its own AddEntry call recording its own (context, token) probability —
// the trie node for "context+token" otherwise defaults to a zero
// log-probability, same as any real n-gram count-trie where each node is
// itself an observed n-gram.
func (b *Builder) AddEntry(context []int32, token int32, logProb float32) {
	key := contextKey(context)
	if _, ok := b.children[key]; !ok {
		b.children[key] = map[int32]entry{}
	}
	b.children[key][token] = entry{logProb: logProb}

	childKey := contextKey(append(append([]int32{}, context...), token))
	if _, ok := b.children[childKey]; !ok {
		b.children[childKey] = map[int32]entry{}
	}
}

// SetBackoff records context's back-off weight gamma (spec §4.4 "each
// non-leaf trie node holds ... a back-off weight gamma(context)").
// Leaves take their back-off implicitly from the parent and need no call.
func (b *Builder) SetBackoff(context []int32, gamma float32) {
	b.gamma[contextKey(context)] = gamma
}

func contextKey(tokens []int32) string {
	// A simple, collision-free encoding: fixed-width decimal fields
	// separated by a separator byte that never appears in a formatted
	// int32, used only at build time (never part of the frozen Model).
	out := make([]byte, 0, len(tokens)*8)
	for _, t := range tokens {
		out = appendInt32(out, t)
		out = append(out, '|')
	}
	return string(out)
}

func appendInt32(buf []byte, v int32) []byte {
	if v < 0 {
		buf = append(buf, '-')
		v = -v
	}
	start := len(buf)
	if v == 0 {
		return append(buf, '0')
	}
	for v > 0 {
		buf = append(buf, byte('0'+v%10))
		v /= 10
	}
	// digits were appended least-significant-first; reverse in place.
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

// contextOf parses a contextKey back into its token sequence — used only
// while freezing, to walk contexts shortest-to-longest.
func contextOf(key string) []int32 {
	if key == "" {
		return nil
	}
	var out []int32
	var cur int32
	neg := false
	started := false
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '-':
			neg = true
		case c == '|':
			if started {
				if neg {
					cur = -cur
				}
				out = append(out, cur)
			}
			cur, neg, started = 0, false, false
		default:
			cur = cur*10 + int32(c-'0')
			started = true
		}
	}
	return out
}

// Build freezes the accumulated entries into a Model, computing each
// non-root, non-leaf node's lowerOffset by locating the deepest proper
// suffix context already present in the trie (spec §4.4 "lowerOffset —
// failure link for back-off ... computed once at load").
func (b *Builder) Build() *Model {
	// Stable context ordering: shortest first, lexicographic within a
	// length, so every context's parent is assigned a node index before
	// the context itself is visited.
	var keys []string
	for k := range b.children {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := contextOf(keys[i]), contextOf(keys[j])
		if len(ci) != len(cj) {
			return len(ci) < len(cj)
		}
		for k := range ci {
			if ci[k] != cj[k] {
				return ci[k] < cj[k]
			}
		}
		return false
	})

	nodeIndex := map[string]int32{"": 0}
	m := &Model{
		order:      b.order,
		vocabSize:  b.vocabSize,
		unkLogProb: b.unkLogProb,
		history:    b.history,
	}
	m.nodes = append(m.nodes, node{}) // root, index 0

	for _, key := range keys {
		if key == "" {
			continue
		}
		ctx := contextOf(key)
		token := ctx[len(ctx)-1]
		parentKey := contextKey(ctx[:len(ctx)-1])
		e := b.children[parentKey][token]

		idx := int32(len(m.nodes))
		nodeIndex[key] = idx
		m.nodes = append(m.nodes, node{logProb: e.logProb})
	}

	// Second pass: fill children arrays and gamma/lowerOffset now that
	// every node index is known.
	for _, key := range keys {
		idx := nodeIndex[key]
		childMap := b.children[key]
		if len(childMap) == 0 {
			continue
		}
		var childTokens []int32
		for tok := range childMap {
			childTokens = append(childTokens, tok)
		}
		sort.Slice(childTokens, func(i, j int) bool { return childTokens[i] < childTokens[j] })

		ctx := contextOf(key)
		start := int32(len(m.childKeys))
		for _, tok := range childTokens {
			childKey := contextKey(append(append([]int32{}, ctx...), tok))
			m.childKeys = append(m.childKeys, tok)
			m.childNodes = append(m.childNodes, nodeIndex[childKey])
		}
		m.nodes[idx].childStart = start
		m.nodes[idx].childCount = int32(len(childTokens))
		m.nodes[idx].gamma = b.gamma[key]

		if idx != 0 {
			lowerKey := contextKey(deepestSuffix(ctx, b.children))
			m.nodes[idx].lowerOffset = nodeIndex[lowerKey] - idx
		}
	}

	return m
}

// deepestSuffix finds the longest proper suffix of ctx that exists as a
// key in children, walking shorter and shorter suffixes (the root, the
// empty context, always exists).
func deepestSuffix(ctx []int32, children map[string]map[int32]entry) []int32 {
	for i := 1; i < len(ctx); i++ {
		suffix := ctx[i:]
		if _, ok := children[contextKey(suffix)]; ok {
			return suffix
		}
	}
	return nil
}

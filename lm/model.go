// Package lm implements the Kneser-Ney n-gram language model (spec §4.4,
// component C5): a suffix trie of contexts, back-off via signed "lower"
// offsets into one node arena, and a stateful advance contract the beam
// search (package search) drives one token at a time. Log-probabilities
// and back-off weights are stored as plain float32; the Quantizer in this
// package is not applied to them.
package lm

import "sort"

// State is an opaque position in the trie — a node index. The zero State
// is always the root (the empty context).
type State int32

// RootState is the empty-context starting state for a fresh query.
const RootState State = 0

// node is one trie context. Non-leaf nodes (ChildCount > 0) carry their
// own Gamma back-off weight; LogProb is this node's own P(token|context)
// value as seen from its parent — meaningless for the root.
type node struct {
	childStart, childCount int32
	lowerOffset            int32 // signed offset: back-off target = this index + lowerOffset (0 at root)
	gamma                  float32
	logProb                float32
}

// Model is the frozen, read-only n-gram LM. Safe for concurrent use.
type Model struct {
	nodes      []node
	childKeys  []int32 // sorted per-node key ranges, binary-searched
	childNodes []int32 // target node index per child

	unkLogProb float32
	order      int
	vocabSize  int32

	// history is the optional per-vocab rewrite applied before every query
	// (spec §4.4 "History transformer"), e.g. collapsing an irregular verb
	// tag's LM token to its regular counterpart.
	history []int32
}

// Order is the model's configured n-gram order (spec §4.4 "order typically
// 3-5").
func (m *Model) Order() int { return m.order }

// VocabSize is the number of distinct LM tokens the model was trained
// over (invariant iii elsewhere requires dictionary LM token IDs stay
// below this).
func (m *Model) VocabSize() int32 { return m.vocabSize }

func (m *Model) rewrite(token int32) int32 {
	if m.history == nil || int(token) >= len(m.history) {
		return token
	}
	if mapped := m.history[token]; mapped >= 0 {
		return mapped
	}
	return token
}

func (m *Model) childRange(n State) (keys []int32, targets []int32) {
	nd := &m.nodes[n]
	return m.childKeys[nd.childStart : nd.childStart+nd.childCount],
		m.childNodes[nd.childStart : nd.childStart+nd.childCount]
}

func (m *Model) find(n State, token int32) (State, bool) {
	keys, targets := m.childRange(n)
	i := sort.Search(len(keys), func(i int) bool { return keys[i] >= token })
	if i < len(keys) && keys[i] == token {
		return State(targets[i]), true
	}
	return 0, false
}

// isLeaf reports whether n has no children of its own (spec §4.4 "leaves
// store only the log-probability with the back-off coming from the
// parent").
func (m *Model) isLeaf(n State) bool {
	return m.nodes[n].childCount == 0
}

// Advance extends state by token, following the contract of spec §4.4:
//  1. try the tree edge; on a leaf landing, reposition into a deeper
//     context by walking the back-off chain when one exists (Design Note's
//     resolved back-off policy, grounded on the retrieved Knlm.hpp
//     _progress's post-leaf "while(node->lower)" repositioning loop);
//  2. on a miss, accumulate gamma and walk one failure step, retrying
//     until the root; an unresolved root miss returns unkLogProb and
//     resets state to root.
func (m *Model) Advance(state State, token int32) (State, float64) {
	token = m.rewrite(token)
	acc := float64(0)
	n := state
	for {
		if child, ok := m.find(n, token); ok {
			delta := acc + float64(m.nodes[child].logProb)
			if m.isLeaf(child) {
				return m.repositionAfterLeaf(n, token, child), delta
			}
			return child, delta
		}
		if m.nodes[n].lowerOffset == 0 && n != RootState {
			// Defensive: only the root may legitimately have no back-off.
			n = RootState
			continue
		}
		if n == RootState {
			return RootState, acc + float64(m.unkLogProb)
		}
		acc += float64(m.nodes[n].gamma)
		n = State(int32(n) + m.nodes[n].lowerOffset)
	}
}

// repositionAfterLeaf walks fromNode's own back-off chain looking for a
// non-leaf child keyed by token, so state carries the deepest context the
// trie actually has (spec §4.4 step 3). If none exists, falls back to
// root — the leaf itself is not retained as a state since it has no
// children to extend from next time.
func (m *Model) repositionAfterLeaf(fromNode State, token int32, leaf State) State {
	n := fromNode
	for m.nodes[n].lowerOffset != 0 {
		n = State(int32(n) + m.nodes[n].lowerOffset)
		if child, ok := m.find(n, token); ok && !m.isLeaf(child) {
			return child
		}
	}
	return RootState
}

// LogProb computes the direct (non-incremental) log-probability of a full
// token sequence by re-querying from root each time — used to validate
// property 6 ("the sum of per-step advance log-probabilities equals the
// model's direct logP within float tolerance") against a reference
// computation that does not carry state forward.
func (m *Model) LogProb(tokens []int32) float64 {
	total := 0.0
	for i := range tokens {
		ctxState := RootState
		for j := 0; j < i; j++ {
			ctxState, _ = m.Advance(ctxState, tokens[j])
		}
		_, delta := m.Advance(ctxState, tokens[i])
		total += delta
	}
	return total
}

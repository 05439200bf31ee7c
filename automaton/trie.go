// Package automaton builds a trie over every known dictionary form and
// adds Aho-Corasick failure links, so that a single left-to-right pass
// over normalized input enumerates every dictionary match (spec §4.2).
//
// After construction the trie is frozen into flat arrays (nodes, sorted
// child-key/child-index pairs, signed failure offsets) addressed by index
// rather than pointers — the same one-arena convention the
// teacher's DAWG units use for their offset field, generalized from a
// byte-keyed DAWG to a rune-keyed normalized-Hangul alphabet.
package automaton

import (
	"sort"

	"github.com/kiwigo/kiwi/dict"
	"github.com/kiwigo/kiwi/hangul"
)

// nodeIndex addresses a node in the frozen arena. Index 0 is always the
// root.
type nodeIndex int32

const rootIndex nodeIndex = 0

// buildNode is the mutable, map-based node used only during construction;
// Freeze collapses these into the flat Automaton representation.
type buildNode struct {
	children map[rune]nodeIndex
	fail     nodeIndex
	hasSub   bool  // true if any node on the failure chain is a terminal
	depth    int32 // tree-edge distance from root
}

// builder accumulates buildNodes before freezing.
type builder struct {
	nodes []buildNode
}

func newBuilder() *builder {
	return &builder{nodes: []buildNode{{children: map[rune]nodeIndex{}}}}
}

func (b *builder) addPath(seq []rune) nodeIndex {
	cur := rootIndex
	for _, r := range seq {
		next, ok := b.nodes[cur].children[r]
		if !ok {
			next = nodeIndex(len(b.nodes))
			b.nodes = append(b.nodes, buildNode{children: map[rune]nodeIndex{}, depth: b.nodes[cur].depth + 1})
			b.nodes[cur].children[r] = next
		}
		cur = next
	}
	return cur
}

// Entry is one candidate origin stored at a terminal trie node: the form
// it resolves to, plus (for typo-expanded builds) the cost of reaching it
// and any left-vowel condition the typo rule imposed.
type Entry struct {
	FormID        dict.FormID
	TypoCost      int
	LeftVowelCond dict.VowelCond
	HasVowelCond  bool
}

// frozenNode is one entry of the flat arena produced by Freeze.
type frozenNode struct {
	childStart int32 // index into childKeys/childTarget
	childCount int32
	failOffset int32 // signed offset: fail target = this node's index + failOffset
	hasSub     bool
	entryStart int32 // index into allEntries
	entryCount int32
	depth      int32 // tree-edge distance from root, for Hit.Start recovery
}

// Automaton is the frozen, read-only form automaton (spec §4.2 "frozen
// into arrays"). Safe for concurrent use once built.
type Automaton struct {
	nodes      []frozenNode
	childKeys  []rune // sorted per-node, binary-searched
	childNodes []nodeIndex
	entries    []Entry
}

// BuildExact builds one trie path per form — no typo variants.
func BuildExact(forms []dict.Form) *Automaton {
	return build(forms, nil)
}

// TypoRuleset generates bounded-cost typo variants of a surface string,
// grounded on the retrieved symspell generateDeletes/edit-distance
// structure (spec §4.2 "Typo-expanded", §10 supplemented feature).
type TypoRuleset interface {
	// Variants returns (variant, cost, leftVowelCond, hasVowelCond) tuples
	// for surface, bounded by the ruleset's own cost threshold.
	Variants(surface string) []TypoVariant
}

// TypoVariant is one typo-expanded surface string for a dictionary form.
type TypoVariant struct {
	Text          string
	Cost          int
	LeftVowelCond dict.VowelCond
	HasVowelCond  bool
}

// BuildTypoExpanded builds the trie with typo variants included for every
// space-free form, per ruleset. Duplicate surface strings (whether from
// distinct forms or distinct typo origins) share one trie path with a
// sorted list of candidate origins (spec §4.2).
func BuildTypoExpanded(forms []dict.Form, ruleset TypoRuleset) *Automaton {
	return build(forms, ruleset)
}

func build(forms []dict.Form, ruleset TypoRuleset) *Automaton {
	b := newBuilder()
	// termEntries[nodeIndex] accumulates Entry values for that terminal,
	// kept separate from buildNode so Freeze can sort+flatten once.
	termEntries := map[nodeIndex][]Entry{}

	addEntry := func(seq []rune, e Entry) {
		n := b.addPath(seq)
		termEntries[n] = append(termEntries[n], e)
	}

	for i := range forms {
		f := &forms[i]
		seq := []rune(f.Text)
		addEntry(seq, Entry{FormID: f.ID})

		if ruleset == nil || containsSpace(f.Text) {
			continue
		}
		for _, v := range ruleset.Variants(f.Text) {
			addEntry([]rune(v.Text), Entry{
				FormID:        f.ID,
				TypoCost:      v.Cost,
				LeftVowelCond: v.LeftVowelCond,
				HasVowelCond:  v.HasVowelCond,
			})
		}
	}

	for _, es := range termEntries {
		sort.Slice(es, func(i, j int) bool { return es[i].FormID < es[j].FormID })
	}

	buildFailLinks(b, termEntries)
	return freeze(b, termEntries)
}

func containsSpace(s string) bool {
	for _, r := range s {
		if hangul.IsSpace(r) {
			return true
		}
	}
	return false
}

// buildFailLinks computes Aho-Corasick failure links by BFS, grounded on
// the retrieved foden303-moderation ahocorasick.go buildFailLinks
// structure: queue depth-1 children first (fail = root), then widen,
// marking each node hasSub when its failure chain reaches a terminal node,
// so "submatch" harvesting knows to walk the suffix links for further
// dictionary hits.
func buildFailLinks(b *builder, termEntries map[nodeIndex][]Entry) {
	var queue []nodeIndex
	for _, child := range sortedChildren(b.nodes[rootIndex]) {
		b.nodes[child.idx].fail = rootIndex
		queue = append(queue, child.idx)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, ch := range sortedChildren(b.nodes[cur]) {
			queue = append(queue, ch.idx)

			fail := b.nodes[cur].fail
			for fail != rootIndex {
				if next, ok := b.nodes[fail].children[ch.key]; ok {
					fail = next
					goto found
				}
				fail = b.nodes[fail].fail
			}
			if next, ok := b.nodes[rootIndex].children[ch.key]; ok && next != ch.idx {
				fail = next
			} else {
				fail = rootIndex
			}
		found:
			b.nodes[ch.idx].fail = fail
			if fail != rootIndex {
				if len(termEntries[fail]) > 0 || b.nodes[fail].hasSub {
					b.nodes[ch.idx].hasSub = true
				}
			}
		}
	}
}

type keyedChild struct {
	key rune
	idx nodeIndex
}

func sortedChildren(n buildNode) []keyedChild {
	out := make([]keyedChild, 0, len(n.children))
	for k, v := range n.children {
		out = append(out, keyedChild{k, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func freeze(b *builder, termEntries map[nodeIndex][]Entry) *Automaton {
	a := &Automaton{nodes: make([]frozenNode, len(b.nodes))}

	for i, bn := range b.nodes {
		children := sortedChildren(bn)
		start := int32(len(a.childKeys))
		for _, c := range children {
			a.childKeys = append(a.childKeys, c.key)
			a.childNodes = append(a.childNodes, c.idx)
		}

		es := termEntries[nodeIndex(i)]
		entryStart := int32(len(a.entries))
		a.entries = append(a.entries, es...)

		a.nodes[i] = frozenNode{
			childStart: start,
			childCount: int32(len(children)),
			failOffset: int32(bn.fail) - int32(i),
			hasSub:     bn.hasSub || len(es) > 0,
			entryStart: entryStart,
			entryCount: int32(len(es)),
			depth:      bn.depth,
		}
	}
	return a
}

// child returns the frozen child of node for key, via binary search over
// that node's sorted child-key slice.
func (a *Automaton) child(node nodeIndex, key rune) (nodeIndex, bool) {
	n := &a.nodes[node]
	keys := a.childKeys[n.childStart : n.childStart+n.childCount]
	i := sort.Search(len(keys), func(i int) bool { return keys[i] >= key })
	if i < len(keys) && keys[i] == key {
		return a.childNodes[n.childStart+int32(i)], true
	}
	return 0, false
}

// next follows a tree edge if one exists, else walks failure links —
// the automaton's core lookup primitive (spec §4.2 "next(node, c)").
func (a *Automaton) next(node nodeIndex, r rune) nodeIndex {
	for {
		if child, ok := a.child(node, r); ok {
			return child
		}
		if node == rootIndex {
			return rootIndex
		}
		node = node + nodeIndex(a.nodes[node].failOffset)
	}
}

// Hit is one dictionary match yielded by Traverse: the entry and the
// [start,end) span (in normalized-sequence indices) it covers.
type Hit struct {
	Entry
	Start, End int
}

// Traverse runs the automaton over seq left-to-right, yielding every
// dictionary hit (terminal match at the current position, plus every
// shorter match reachable via the failure chain when hasSub is set) via
// yield. Returning false from yield stops the traversal early.
func (a *Automaton) Traverse(seq []rune, yield func(Hit) bool) {
	node := rootIndex
	for end := range seq {
		node = a.next(node, seq[end])
		n := node
		// Harvest this node's terminal entries, then walk the failure
		// chain while hasSub indicates shorter matches remain.
		for {
			fn := &a.nodes[n]
			if fn.entryCount > 0 {
				length := int(fn.depth)
				for _, e := range a.entries[fn.entryStart : fn.entryStart+fn.entryCount] {
					if !yield(Hit{Entry: e, Start: end + 1 - length, End: end + 1}) {
						return
					}
				}
			}
			if n == rootIndex || !fn.hasSub {
				break
			}
			n = n + nodeIndex(fn.failOffset)
		}
	}
}

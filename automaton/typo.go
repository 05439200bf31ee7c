package automaton

// DeleteRuleset is a TypoRuleset that expands a surface string into every
// string reachable by deleting up to maxDist runes, grounded on the
// retrieved az-lang-nlp symspell generateDeletes BFS structure (spec §4.2
// "typo-expanded", §10). Unlike the reference implementation — which
// indexes delete variants of the *vocabulary* so a misspelled *query* can
// be looked up by its own deletes — this ruleset runs the expansion over
// dictionary *forms* at build time, since the automaton is the thing
// walked over the (unmodified) input here.
type DeleteRuleset struct {
	MaxDist int
}

// Variants returns every distinct delete-variant of surface up to
// MaxDist deletions, with Cost set to the number of deletions applied.
func (d DeleteRuleset) Variants(surface string) []TypoVariant {
	if d.MaxDist <= 0 {
		return nil
	}
	type item struct {
		text  string
		depth int
	}
	seen := map[string]int{}
	queue := []item{{surface, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth == d.MaxDist {
			continue
		}
		runes := []rune(cur.text)
		for i := range runes {
			variant := string(append(append([]rune{}, runes[:i]...), runes[i+1:]...))
			if variant == "" {
				continue
			}
			depth := cur.depth + 1
			if prev, ok := seen[variant]; ok && prev <= depth {
				continue
			}
			seen[variant] = depth
			queue = append(queue, item{variant, depth})
		}
	}

	out := make([]TypoVariant, 0, len(seen))
	for text, depth := range seen {
		out = append(out, TypoVariant{
			Text:         text,
			Cost:         depth,
			HasVowelCond: false,
		})
	}
	return out
}

var _ TypoRuleset = DeleteRuleset{}

package told

import (
	"slices"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
)

type set map[axiom.IRI]bool

func (s set) sorted() []axiom.IRI {
	out := make([]axiom.IRI, 0, len(s))
	for x := range s {
		out = append(out, x)
	}
	slices.Sort(out)
	return out
}

// hierarchy groups nodes into equivalence classes under a preorder and
// records the direct (covering) relation between the classes. Classes are
// identified by their smallest member.
type hierarchy struct {
	rep          map[axiom.IRI]axiom.IRI
	members      map[axiom.IRI][]axiom.IRI
	directSupers map[axiom.IRI][]axiom.IRI
	directSubs   map[axiom.IRI][]axiom.IRI
	strictSupers map[axiom.IRI]set
}

// buildHierarchy orders nodes by below, where below(a, b) means a is
// subsumed by b. below must be reflexive and transitive.
func buildHierarchy(nodes []axiom.IRI, below func(a, b axiom.IRI) bool) *hierarchy {
	h := &hierarchy{
		rep:          make(map[axiom.IRI]axiom.IRI),
		members:      make(map[axiom.IRI][]axiom.IRI),
		directSupers: make(map[axiom.IRI][]axiom.IRI),
		directSubs:   make(map[axiom.IRI][]axiom.IRI),
		strictSupers: make(map[axiom.IRI]set),
	}
	sorted := slices.Clone(nodes)
	slices.Sort(sorted)
	for _, a := range sorted {
		if _, ok := h.rep[a]; ok {
			continue
		}
		for _, b := range sorted {
			if _, ok := h.rep[b]; ok {
				continue
			}
			if below(a, b) && below(b, a) {
				h.rep[b] = a
				h.members[a] = append(h.members[a], b)
			}
		}
	}

	reps := make([]axiom.IRI, 0, len(h.members))
	for r := range h.members {
		reps = append(reps, r)
	}
	slices.Sort(reps)
	for _, r := range reps {
		strict := make(set)
		for _, s := range reps {
			if s != r && below(r, s) {
				strict[s] = true
			}
		}
		h.strictSupers[r] = strict
	}
	for _, r := range reps {
		strict := h.strictSupers[r]
		for _, s := range strict.sorted() {
			direct := true
			for t := range strict {
				if t != s && h.strictSupers[t][s] {
					direct = false
					break
				}
			}
			if direct {
				h.directSupers[r] = append(h.directSupers[r], s)
				h.directSubs[s] = append(h.directSubs[s], r)
			}
		}
	}
	for _, r := range reps {
		slices.Sort(h.directSubs[r])
	}
	return h
}

func (h *hierarchy) sets(reps []axiom.IRI) [][]axiom.IRI {
	out := make([][]axiom.IRI, 0, len(reps))
	for _, r := range reps {
		out = append(out, slices.Clone(h.members[r]))
	}
	return out
}

func (h *hierarchy) ancestors(r axiom.IRI) [][]axiom.IRI {
	return h.sets(h.strictSupers[r].sorted())
}

func (h *hierarchy) descendants(r axiom.IRI) [][]axiom.IRI {
	var reps []axiom.IRI
	for s, strict := range h.strictSupers {
		if strict[r] {
			reps = append(reps, s)
		}
	}
	slices.Sort(reps)
	return h.sets(reps)
}

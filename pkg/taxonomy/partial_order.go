package taxonomy

import (
	"cmp"
	"fmt"
)

// Relation is the outcome of comparing two elements of a partial order.
type Relation int

const (
	Incomparable Relation = iota
	Equal
	Less
	Greater
)

func (r Relation) String() string {
	switch r {
	case Equal:
		return "EQUAL"
	case Less:
		return "LESS"
	case Greater:
		return "GREATER"
	default:
		return "INCOMPARABLE"
	}
}

// Comparator orders a new element against members of the taxonomy. Less
// means a is strictly below b.
type Comparator[T cmp.Ordered] interface {
	Compare(a, b T) (Relation, error)
}

// ComparatorFunc adapts a function to Comparator.
type ComparatorFunc[T cmp.Ordered] func(a, b T) (Relation, error)

// Compare calls f(a, b).
func (f ComparatorFunc[T]) Compare(a, b T) (Relation, error) { return f(a, b) }

// PartialOrderBuilder places new elements into an existing taxonomy using
// only a comparator.
//
// Supers are found by a top-down walk that only descends into nodes above
// the new element; subs by a walk over the common descendants of those
// supers that stops below every node found to be under the new element.
// Neither phase compares against nodes outside those regions.
type PartialOrderBuilder[T cmp.Ordered] struct {
	tax         *Taxonomy[T]
	cmp         Comparator[T]
	comparisons int
}

// NewPartialOrderBuilder returns a builder inserting into tax.
func NewPartialOrderBuilder[T cmp.Ordered](tax *Taxonomy[T], c Comparator[T]) *PartialOrderBuilder[T] {
	return &PartialOrderBuilder[T]{tax: tax, cmp: c}
}

// Comparisons returns the number of comparator calls made so far.
func (b *PartialOrderBuilder[T]) Comparisons() int { return b.comparisons }

func (b *PartialOrderBuilder[T]) compare(x T, n *Node[T]) (Relation, error) {
	b.comparisons++
	r, err := b.cmp.Compare(x, n.Name())
	if err != nil {
		return Incomparable, fmt.Errorf("comparing %v with %v: %w", x, n.Name(), err)
	}
	return r, nil
}

// Add inserts x and returns its node. If x is already a member, its node is
// returned unchanged.
//
// When x is equal to an existing node, a non-hidden x joins that node; a
// hidden x gets its own node with the equal node as its only direct sub, so
// the hidden node's subs still enumerate everything below x.
func (b *PartialOrderBuilder[T]) Add(x T, hidden bool) (*Node[T], error) {
	if n, ok := b.tax.Node(x); ok {
		return n, nil
	}

	supers, equal, err := b.searchSupers(x)
	if err != nil {
		return nil, err
	}
	if equal != nil {
		if !hidden {
			if err := b.tax.AddEquivalents(equal.Name(), []T{x}); err != nil {
				return nil, err
			}
			return equal, nil
		}
		return b.tax.AddNode([]T{x}, names(equal.supers), []T{equal.Name()}, true)
	}

	subs, err := b.searchSubs(x, supers)
	if err != nil {
		return nil, err
	}
	return b.tax.AddNode([]T{x}, names(supers), names(subs), hidden)
}

// searchSupers walks down from TOP through nodes above x and returns the
// most specific of them, or the node equal to x.
func (b *PartialOrderBuilder[T]) searchSupers(x T) ([]*Node[T], *Node[T], error) {
	rel := make(map[*Node[T]]Relation)
	var supers []*Node[T]
	var equal *Node[T]

	var walk func(n *Node[T]) error
	walk = func(n *Node[T]) error {
		below := false
		for _, sub := range n.subs {
			if sub == b.tax.bottom {
				continue
			}
			r, seen := rel[sub]
			if !seen {
				var err error
				if r, err = b.compare(x, sub); err != nil {
					return err
				}
				rel[sub] = r
				switch r {
				case Equal:
					equal = sub
					return nil
				case Less:
					if err := walk(sub); err != nil || equal != nil {
						return err
					}
				}
			}
			if r == Less {
				below = true
			}
		}
		if !below {
			supers, _ = insertNode(supers, n)
		}
		return nil
	}
	if err := walk(b.tax.top); err != nil {
		return nil, nil, err
	}
	return supers, equal, nil
}

// searchSubs finds the most general nodes below x among the common
// descendants of supers.
func (b *PartialOrderBuilder[T]) searchSubs(x T, supers []*Node[T]) ([]*Node[T], error) {
	candidates := b.commonDescendants(supers)
	if len(candidates) == 0 {
		return nil, nil
	}
	excluded := make(map[*Node[T]]bool)
	var subs []*Node[T]
	for _, n := range b.tax.TopologicalSort() {
		if !candidates[n] || excluded[n] {
			continue
		}
		r, err := b.compare(x, n)
		if err != nil {
			return nil, err
		}
		if r != Greater {
			continue
		}
		subs, _ = insertNode(subs, n)
		for _, d := range b.tax.Subs(n, false) {
			excluded[d] = true
		}
	}
	return subs, nil
}

func (b *PartialOrderBuilder[T]) commonDescendants(supers []*Node[T]) map[*Node[T]]bool {
	var common map[*Node[T]]bool
	for _, s := range supers {
		desc := make(map[*Node[T]]bool)
		for _, d := range b.tax.Subs(s, false) {
			if d != b.tax.bottom && (common == nil || common[d]) {
				desc[d] = true
			}
		}
		common = desc
	}
	return common
}

func names[T cmp.Ordered](nodes []*Node[T]) []T {
	out := make([]T, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

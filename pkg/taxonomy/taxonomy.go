// Package taxonomy provides the in-memory subsumption hierarchy used by the
// classifier.
//
// A Taxonomy is a DAG of equivalence-class nodes. Every node holds a
// non-empty, sorted set of equivalent members; edges connect a node to its
// direct supers and direct subs. Two distinguished nodes bound the graph:
// TOP is an ancestor of every node and BOTTOM a descendant of every node.
//
// Design Principles:
//   - Node table keyed by every member, so a concept is never represented by
//     two nodes and diamonds are cheap to detect
//   - Direct edges only: links to TOP and BOTTOM exist only where no other
//     node provides the path
//   - Hidden nodes (synthetic complements) see the graph but are never seen
//     by it: no real node links to a hidden one, and every enumeration skips
//     them
//   - Typed per-node instance cache, no generic attribute map
//
// Example Usage:
//
//	tax := taxonomy.New[string]("Thing", "Nothing")
//	tax.AddNode([]string{"Animal"}, nil, nil, false)
//	tax.AddNode([]string{"Cat", "Felis"}, []string{"Animal"}, nil, false)
//
//	cat, _ := tax.Node("Felis")
//	fmt.Println(cat.Equivalents())                  // [Cat Felis]
//	fmt.Println(tax.FlattenedSupers("Cat", false))  // [Animal Thing]
//
// Thread Safety:
//
//	A Taxonomy is not safe for concurrent mutation. The classifier owns the
//	only mutable reference and serializes access to it.
package taxonomy

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// Common errors
var (
	ErrEmptyNode      = errors.New("taxonomy: node without members")
	ErrDuplicate      = errors.New("taxonomy: member already present")
	ErrUnknown        = errors.New("taxonomy: unknown member")
	ErrInvalidEdge    = errors.New("taxonomy: invalid edge")
	ErrCycle          = errors.New("taxonomy: cycle between distinct nodes")
	ErrInconsistent   = errors.New("taxonomy: inconsistent structure")
	ErrHiddenRelation = errors.New("taxonomy: hidden nodes cannot be related to")
)

// Node is one equivalence class.
type Node[T cmp.Ordered] struct {
	equivalents []T
	supers      []*Node[T]
	subs        []*Node[T]
	hidden      bool

	instances    []T
	hasInstances bool
}

// Name returns the canonical (smallest) member.
func (n *Node[T]) Name() T { return n.equivalents[0] }

// Equivalents returns a copy of the members of the node, sorted.
func (n *Node[T]) Equivalents() []T { return slices.Clone(n.equivalents) }

// Contains reports whether x is a member of the node.
func (n *Node[T]) Contains(x T) bool {
	_, ok := slices.BinarySearch(n.equivalents, x)
	return ok
}

// IsHidden reports whether the node is a synthetic node excluded from
// enumeration.
func (n *Node[T]) IsHidden() bool { return n.hidden }

// Supers returns the direct super nodes ordered by name.
func (n *Node[T]) Supers() []*Node[T] { return slices.Clone(n.supers) }

// Subs returns the direct sub nodes ordered by name.
func (n *Node[T]) Subs() []*Node[T] { return slices.Clone(n.subs) }

// Instances returns the cached most-specific instances of the node.
func (n *Node[T]) Instances() ([]T, bool) {
	if !n.hasInstances {
		return nil, false
	}
	return slices.Clone(n.instances), true
}

// SetInstances replaces the instance cache. An empty set clears it.
func (n *Node[T]) SetInstances(instances []T) {
	if len(instances) == 0 {
		n.ClearInstances()
		return
	}
	n.instances = slices.Clone(instances)
	slices.Sort(n.instances)
	n.instances = slices.Compact(n.instances)
	n.hasInstances = true
}

// ClearInstances drops the instance cache.
func (n *Node[T]) ClearInstances() {
	n.instances = nil
	n.hasInstances = false
}

func (n *Node[T]) String() string { return fmt.Sprint(n.equivalents) }

func byName[T cmp.Ordered](a, b *Node[T]) int { return cmp.Compare(a.Name(), b.Name()) }

func insertNode[T cmp.Ordered](list []*Node[T], n *Node[T]) ([]*Node[T], bool) {
	i, found := slices.BinarySearchFunc(list, n, byName[T])
	if found {
		return list, false
	}
	return slices.Insert(list, i, n), true
}

func removeNode[T cmp.Ordered](list []*Node[T], n *Node[T]) []*Node[T] {
	i := slices.Index(list, n)
	if i < 0 {
		return list
	}
	return slices.Delete(list, i, i+1)
}

// Taxonomy is a DAG of equivalence-class nodes bounded by TOP and BOTTOM.
type Taxonomy[T cmp.Ordered] struct {
	top    *Node[T]
	bottom *Node[T]
	nodes  map[T]*Node[T]
}

// New returns a taxonomy holding only TOP and BOTTOM, with BOTTOM as the only
// sub of TOP.
func New[T cmp.Ordered](top, bottom T) *Taxonomy[T] {
	t := &Taxonomy[T]{
		top:    &Node[T]{equivalents: []T{top}},
		bottom: &Node[T]{equivalents: []T{bottom}},
		nodes:  make(map[T]*Node[T]),
	}
	t.nodes[top] = t.top
	t.nodes[bottom] = t.bottom
	t.top.subs = []*Node[T]{t.bottom}
	t.bottom.supers = []*Node[T]{t.top}
	return t
}

// Top returns the TOP node.
func (t *Taxonomy[T]) Top() *Node[T] { return t.top }

// Bottom returns the BOTTOM node.
func (t *Taxonomy[T]) Bottom() *Node[T] { return t.bottom }

// Node returns the node that has x as a member, hidden nodes included.
func (t *Taxonomy[T]) Node(x T) (*Node[T], bool) {
	n, ok := t.nodes[x]
	return n, ok
}

// Contains reports whether x is a member of any node, hidden nodes included.
func (t *Taxonomy[T]) Contains(x T) bool {
	_, ok := t.nodes[x]
	return ok
}

// Nodes returns the non-hidden nodes ordered by name.
func (t *Taxonomy[T]) Nodes() []*Node[T] {
	seen := make(map[*Node[T]]struct{})
	out := make([]*Node[T], 0, len(t.nodes))
	for _, n := range t.nodes {
		if n.hidden {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	slices.SortFunc(out, byName[T])
	return out
}

// Len returns the number of non-hidden nodes, TOP and BOTTOM included.
func (t *Taxonomy[T]) Len() int { return len(t.Nodes()) }

// Classes returns the members of every non-hidden node, sorted.
func (t *Taxonomy[T]) Classes() []T {
	out := make([]T, 0, len(t.nodes))
	for x, n := range t.nodes {
		if !n.hidden {
			out = append(out, x)
		}
	}
	slices.Sort(out)
	return out
}

// AddNode creates a node for equivalents, directly below supers and directly
// above subs. Without supers the node hangs under TOP; without subs it sits
// above BOTTOM. For a non-hidden node, direct edges between its supers and
// subs are replaced by the paths through the new node.
//
// A hidden node is linked one way only: it lists its supers and subs, but
// they do not list it.
func (t *Taxonomy[T]) AddNode(equivalents, supers, subs []T, hidden bool) (*Node[T], error) {
	if len(equivalents) == 0 {
		return nil, ErrEmptyNode
	}
	members := slices.Clone(equivalents)
	slices.Sort(members)
	members = slices.Compact(members)
	for _, x := range members {
		if t.Contains(x) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicate, x)
		}
	}
	supNodes, err := t.lookupAll(supers)
	if err != nil {
		return nil, err
	}
	subNodes, err := t.lookupAll(subs)
	if err != nil {
		return nil, err
	}
	if len(supNodes) == 0 {
		supNodes = []*Node[T]{t.top}
	}
	if len(subNodes) == 0 {
		subNodes = []*Node[T]{t.bottom}
	}

	n := &Node[T]{equivalents: members, hidden: hidden}
	for _, x := range members {
		t.nodes[x] = n
	}

	if hidden {
		for _, s := range supNodes {
			n.supers, _ = insertNode(n.supers, s)
		}
		for _, s := range subNodes {
			n.subs, _ = insertNode(n.subs, s)
		}
		return n, nil
	}

	for _, s := range supNodes {
		t.link(s, n)
	}
	for _, s := range subNodes {
		t.link(n, s)
	}
	for _, sup := range supNodes {
		for _, sub := range subNodes {
			t.unlink(sup, sub)
		}
	}
	return n, nil
}

// AddSupers adds direct super edges from the node of x to the nodes of
// supers. Edges to TOP are dropped once another super exists.
func (t *Taxonomy[T]) AddSupers(x T, supers []T) error {
	n, ok := t.nodes[x]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknown, x)
	}
	if n.hidden {
		return ErrHiddenRelation
	}
	supNodes, err := t.lookupAll(supers)
	if err != nil {
		return err
	}
	for _, s := range supNodes {
		if s == n {
			continue
		}
		if s == t.bottom || n == t.top {
			return fmt.Errorf("%w: %v below %v", ErrInvalidEdge, n, s)
		}
		t.link(s, n)
	}
	return nil
}

// AddEquivalents merges members into the node of x.
func (t *Taxonomy[T]) AddEquivalents(x T, members []T) error {
	n, ok := t.nodes[x]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknown, x)
	}
	for _, m := range members {
		if other, ok := t.nodes[m]; ok {
			if other == n {
				continue
			}
			return fmt.Errorf("%w: %v", ErrDuplicate, m)
		}
		t.nodes[m] = n
		n.equivalents = append(n.equivalents, m)
	}
	slices.Sort(n.equivalents)
	n.equivalents = slices.Compact(n.equivalents)
	t.resort(n)
	return nil
}

// resort restores name ordering of the neighbour lists that mention n after
// its name may have changed.
func (t *Taxonomy[T]) resort(n *Node[T]) {
	for _, s := range n.supers {
		slices.SortFunc(s.subs, byName[T])
	}
	for _, s := range n.subs {
		slices.SortFunc(s.supers, byName[T])
	}
}

func (t *Taxonomy[T]) lookupAll(xs []T) ([]*Node[T], error) {
	var out []*Node[T]
	for _, x := range xs {
		n, ok := t.nodes[x]
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnknown, x)
		}
		if n.hidden {
			return nil, ErrHiddenRelation
		}
		out, _ = insertNode(out, n)
	}
	return out, nil
}

// link adds the direct edge sup -> sub and drops the TOP and BOTTOM edges the
// new edge makes redundant.
func (t *Taxonomy[T]) link(sup, sub *Node[T]) {
	if sup == sub {
		return
	}
	var added bool
	sup.subs, added = insertNode(sup.subs, sub)
	if !added {
		return
	}
	sub.supers, _ = insertNode(sub.supers, sup)
	if sub != t.bottom {
		t.unlink(sup, t.bottom)
	}
	if sup != t.top {
		t.unlink(t.top, sub)
	}
}

func (t *Taxonomy[T]) unlink(sup, sub *Node[T]) {
	sup.subs = removeNode(sup.subs, sub)
	sub.supers = removeNode(sub.supers, sup)
}

// Supers returns the super nodes of n: the direct ones, or all ancestors
// when direct is false. Results are ordered by name.
func (t *Taxonomy[T]) Supers(n *Node[T], direct bool) []*Node[T] {
	if direct {
		return n.Supers()
	}
	return closure(n, func(x *Node[T]) []*Node[T] { return x.supers })
}

// Subs returns the sub nodes of n: the direct ones, or all descendants when
// direct is false. Results are ordered by name.
func (t *Taxonomy[T]) Subs(n *Node[T], direct bool) []*Node[T] {
	if direct {
		return n.Subs()
	}
	return closure(n, func(x *Node[T]) []*Node[T] { return x.subs })
}

func closure[T cmp.Ordered](start *Node[T], next func(*Node[T]) []*Node[T]) []*Node[T] {
	seen := map[*Node[T]]bool{start: true}
	var out []*Node[T]
	stack := slices.Clone(next(start))
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		stack = append(stack, next(n)...)
	}
	slices.SortFunc(out, byName[T])
	return out
}

// FlattenedSupers returns the members of the super nodes of x.
func (t *Taxonomy[T]) FlattenedSupers(x T, direct bool) []T {
	n, ok := t.nodes[x]
	if !ok {
		return nil
	}
	return Flatten(t.Supers(n, direct))
}

// FlattenedSubs returns the members of the sub nodes of x.
func (t *Taxonomy[T]) FlattenedSubs(x T, direct bool) []T {
	n, ok := t.nodes[x]
	if !ok {
		return nil
	}
	return Flatten(t.Subs(n, direct))
}

// Flatten returns the sorted union of the members of nodes.
func Flatten[T cmp.Ordered](nodes []*Node[T]) []T {
	var out []T
	for _, n := range nodes {
		out = append(out, n.equivalents...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// EquivalenceSets returns the member sets of nodes.
func EquivalenceSets[T cmp.Ordered](nodes []*Node[T]) [][]T {
	out := make([][]T, len(nodes))
	for i, n := range nodes {
		out[i] = n.Equivalents()
	}
	return out
}

// IsSubNodeOf reports whether sub is sup or a descendant of sup.
func (t *Taxonomy[T]) IsSubNodeOf(sub, sup *Node[T]) bool {
	if sub == sup || sup == t.top || sub == t.bottom {
		return true
	}
	return slices.Contains(t.Supers(sub, false), sup)
}

// TopologicalSort returns the non-hidden nodes with every node after all of
// its supers. TOP is first and BOTTOM last.
func (t *Taxonomy[T]) TopologicalSort() []*Node[T] {
	pending := make(map[*Node[T]]int)
	ready := []*Node[T]{t.top}
	var out []*Node[T]
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		out = append(out, n)
		var next []*Node[T]
		for _, s := range n.subs {
			left, ok := pending[s]
			if !ok {
				left = len(s.supers)
			}
			left--
			pending[s] = left
			if left == 0 {
				next = append(next, s)
			}
		}
		ready = append(ready, next...)
	}
	return out
}

// ClearInstances drops the instance cache of every node.
func (t *Taxonomy[T]) ClearInstances() {
	for _, n := range t.nodes {
		n.ClearInstances()
	}
}

// RemoveHidden drops every hidden node.
func (t *Taxonomy[T]) RemoveHidden() {
	for x, n := range t.nodes {
		if n.hidden {
			delete(t.nodes, x)
		}
	}
}

// Clone returns a deep copy of the taxonomy, hidden nodes and instance
// caches included.
func (t *Taxonomy[T]) Clone() *Taxonomy[T] {
	mapping := make(map[*Node[T]]*Node[T])
	cloneOf := func(n *Node[T]) *Node[T] {
		if c, ok := mapping[n]; ok {
			return c
		}
		c := &Node[T]{
			equivalents:  slices.Clone(n.equivalents),
			hidden:       n.hidden,
			instances:    slices.Clone(n.instances),
			hasInstances: n.hasInstances,
		}
		mapping[n] = c
		return c
	}
	out := &Taxonomy[T]{
		top:    cloneOf(t.top),
		bottom: cloneOf(t.bottom),
		nodes:  make(map[T]*Node[T], len(t.nodes)),
	}
	for x, n := range t.nodes {
		out.nodes[x] = cloneOf(n)
	}
	for n, c := range mapping {
		c.supers = make([]*Node[T], len(n.supers))
		for i, s := range n.supers {
			c.supers[i] = mapping[s]
		}
		c.subs = make([]*Node[T], len(n.subs))
		for i, s := range n.subs {
			c.subs[i] = mapping[s]
		}
	}
	return out
}

// Equal reports whether both taxonomies have the same non-hidden equivalence
// classes and the same direct edges. Instance caches are ignored.
func (t *Taxonomy[T]) Equal(other *Taxonomy[T]) bool {
	a, b := t.Nodes(), other.Nodes()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !slices.Equal(a[i].equivalents, b[i].equivalents) {
			return false
		}
		if !sameNames(a[i].supers, b[i].supers) || !sameNames(a[i].subs, b[i].subs) {
			return false
		}
	}
	return t.top.Name() == other.top.Name() && t.bottom.Name() == other.bottom.Name()
}

func sameNames[T cmp.Ordered](a, b []*Node[T]) bool {
	var na, nb []T
	for _, n := range a {
		if !n.hidden {
			na = append(na, n.Name())
		}
	}
	for _, n := range b {
		if !n.hidden {
			nb = append(nb, n.Name())
		}
	}
	return slices.Equal(na, nb)
}

// Validate checks the structural invariants: non-empty members, symmetric
// edges, every node below TOP and above BOTTOM, and no cycles.
func (t *Taxonomy[T]) Validate() error {
	nodes := t.Nodes()
	for _, n := range nodes {
		if len(n.equivalents) == 0 {
			return ErrEmptyNode
		}
		for _, x := range n.equivalents {
			if t.nodes[x] != n {
				return fmt.Errorf("%w: member %v not mapped to its node", ErrInconsistent, x)
			}
		}
		for _, s := range n.subs {
			if !slices.Contains(s.supers, n) {
				return fmt.Errorf("%w: %v -> %v is one way", ErrInconsistent, n, s)
			}
		}
		for _, s := range n.supers {
			if !slices.Contains(s.subs, n) {
				return fmt.Errorf("%w: %v <- %v is one way", ErrInconsistent, n, s)
			}
		}
		if n != t.top && len(n.supers) == 0 {
			return fmt.Errorf("%w: %v has no super", ErrInconsistent, n)
		}
		if n != t.bottom && len(n.subs) == 0 {
			return fmt.Errorf("%w: %v has no sub", ErrInconsistent, n)
		}
	}
	if sorted := t.TopologicalSort(); len(sorted) != len(nodes) {
		return fmt.Errorf("%w: %d of %d nodes sortable", ErrCycle, len(sorted), len(nodes))
	}
	return nil
}

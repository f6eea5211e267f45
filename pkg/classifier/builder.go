package classifier

import (
	"context"
	"fmt"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
	"github.com/ThomasFarrenkopf/pellet/pkg/taxonomy"
)

// HierarchySource is what BuildHierarchy reads from a reasoner.
type HierarchySource interface {
	EquivalentClasses(ctx context.Context, ce axiom.ClassExpression) ([]axiom.IRI, error)
	DirectSubClasses(ctx context.Context, c axiom.IRI) ([][]axiom.IRI, error)
}

var _ HierarchySource = reasoner.Reasoner(nil)

// BuildHierarchy copies the class hierarchy of a classified source into a
// new taxonomy. The walk is depth first from TOP; a class reached a second
// time only gains the extra super edge.
func BuildHierarchy(ctx context.Context, src HierarchySource) (*taxonomy.Taxonomy[axiom.IRI], error) {
	tax := taxonomy.New(axiom.Thing, axiom.Nothing)
	for _, bound := range []axiom.IRI{axiom.Thing, axiom.Nothing} {
		eq, err := src.EquivalentClasses(ctx, axiom.Class(bound))
		if err != nil {
			return nil, err
		}
		if err := tax.AddEquivalents(bound, eq); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
		}
	}

	var walk func(parent *taxonomy.Node[axiom.IRI]) error
	walk = func(parent *taxonomy.Node[axiom.IRI]) error {
		if err := reasoner.CheckContext(ctx); err != nil {
			return err
		}
		subs, err := src.DirectSubClasses(ctx, queryIRI(tax, parent))
		if err != nil {
			return err
		}
		for _, eq := range subs {
			if len(eq) == 0 {
				return fmt.Errorf("%w: empty equivalence set below %s", ErrInvariantViolation, parent.Name())
			}
			if tax.Bottom().Contains(eq[0]) {
				continue
			}
			if n, ok := tax.Node(eq[0]); ok {
				if err := tax.AddSupers(n.Name(), []axiom.IRI{parent.Name()}); err != nil {
					return fmt.Errorf("%w: %w", ErrInvariantViolation, err)
				}
				continue
			}
			n, err := tax.AddNode(eq, []axiom.IRI{parent.Name()}, nil, false)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvariantViolation, err)
			}
			if err := walk(n); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(tax.Top()); err != nil {
		return nil, err
	}
	return tax, nil
}

// queryIRI names n when asking a reasoner about it. The bounds go by their
// built-in IRIs: a node's name is its smallest member, which for TOP may be
// a class the source only knows as equivalent to owl:Thing.
func queryIRI(tax *taxonomy.Taxonomy[axiom.IRI], n *taxonomy.Node[axiom.IRI]) axiom.IRI {
	switch n {
	case tax.Top():
		return axiom.Thing
	case tax.Bottom():
		return axiom.Nothing
	}
	return n.Name()
}

// taxonomySource serves a taxonomy as a HierarchySource, so that a copy of
// a classifier rebuilds its hierarchy from the original's.
type taxonomySource struct {
	tax *taxonomy.Taxonomy[axiom.IRI]
}

func (s taxonomySource) EquivalentClasses(_ context.Context, ce axiom.ClassExpression) ([]axiom.IRI, error) {
	iri, ok := axiom.Named(ce)
	if !ok {
		return nil, ErrUnsupported
	}
	n, ok := s.tax.Node(iri)
	if !ok || n.IsHidden() {
		return nil, fmt.Errorf("%w: class %s", reasoner.ErrUnknownEntity, iri)
	}
	return n.Equivalents(), nil
}

func (s taxonomySource) DirectSubClasses(_ context.Context, c axiom.IRI) ([][]axiom.IRI, error) {
	n, ok := s.tax.Node(c)
	if !ok || n.IsHidden() {
		return nil, fmt.Errorf("%w: class %s", reasoner.ErrUnknownEntity, c)
	}
	var out [][]axiom.IRI
	for _, sub := range n.Subs() {
		if sub != s.tax.Bottom() {
			out = append(out, sub.Equivalents())
		}
	}
	return out, nil
}

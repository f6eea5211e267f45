package classifier

import (
	"context"
	"fmt"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/metrics"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
	"github.com/ThomasFarrenkopf/pellet/pkg/taxonomy"
)

const (
	complementSuffix        = "-complement"
	anonymousComplementBase = "http://clarkparsia.com/pellet/complement/"
)

// DisjointClasses returns the equivalence sets of the classes disjoint with
// ce: the direct subs of the complement of ce, or all of its descendants,
// BOTTOM included, when direct is false.
//
// The complement is inserted into the taxonomy as a hidden node the first
// time it is asked for, by comparing it with existing nodes only where the
// order requires it.
func (c *Classifier) DisjointClasses(ctx context.Context, ce axiom.ClassExpression, direct bool) ([][]axiom.IRI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.classify(ctx); err != nil {
		return nil, err
	}
	node, err := c.complementNode(ctx, ce)
	if err != nil {
		return nil, reasoner.Convert(err)
	}
	return taxonomy.EquivalenceSets(c.taxonomy.Subs(node, direct)), nil
}

// complementID names the complement of ce. Named classes get a name derived
// from their own; anonymous expressions get a random one that does not
// clash with the taxonomy, kept for the lifetime of the taxonomy.
func (c *Classifier) complementID(ce axiom.ClassExpression) (axiom.IRI, error) {
	if iri, ok := axiom.Named(ce); ok {
		if !c.taxonomy.Contains(iri) {
			return "", fmt.Errorf("%w: class %s", reasoner.ErrUnknownEntity, iri)
		}
		id := iri + complementSuffix
		if n, found := c.taxonomy.Node(id); !found || n.IsHidden() {
			return id, nil
		}
	}
	key := ce.String()
	if id, ok := c.complements[key]; ok {
		return id, nil
	}
	for i := 0; i < c.cfg.MaxComplementRetries; i++ {
		id := axiom.IRI(anonymousComplementBase + c.newID())
		if !c.taxonomy.Contains(id) {
			c.complements[key] = id
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no unused complement identifier after %d attempts",
		ErrInvariantViolation, c.cfg.MaxComplementRetries)
}

func (c *Classifier) complementNode(ctx context.Context, ce axiom.ClassExpression) (*taxonomy.Node[axiom.IRI], error) {
	id, err := c.complementID(ce)
	if err != nil {
		return nil, err
	}
	if n, ok := c.taxonomy.Node(id); ok {
		return n, nil
	}

	timer := c.timers.Start(metrics.DisjointInsert)
	defer timer.Stop()

	c.base.Flush()
	complement := axiom.Complement(ce)
	expr := func(x axiom.IRI) axiom.ClassExpression {
		if x == id {
			return complement
		}
		return axiom.Class(x)
	}
	order := taxonomy.ComparatorFunc[axiom.IRI](func(a, b axiom.IRI) (taxonomy.Relation, error) {
		ea, eb := expr(a), expr(b)
		aLessB, err := c.entailed(ctx, axiom.SubClass(ea, eb))
		if err != nil {
			return taxonomy.Incomparable, err
		}
		bLessA, err := c.entailed(ctx, axiom.SubClass(eb, ea))
		if err != nil {
			return taxonomy.Incomparable, err
		}
		switch {
		case aLessB && bLessA:
			return taxonomy.Equal, nil
		case aLessB:
			return taxonomy.Less, nil
		case bLessA:
			return taxonomy.Greater, nil
		}
		return taxonomy.Incomparable, nil
	})

	b := taxonomy.NewPartialOrderBuilder(c.taxonomy, order)
	n, err := b.Add(id, true)
	if err != nil {
		return nil, err
	}
	c.log.Debug("complement inserted", "complement", id, "comparisons", b.Comparisons())
	return n, nil
}

// entailed asks the base reasoner, answering terminological statements from
// the cache when possible. The cache is cleared by every classification.
func (c *Classifier) entailed(ctx context.Context, st axiom.Statement) (bool, error) {
	if st.IsABox() {
		return c.base.IsEntailed(ctx, st)
	}
	if ok, hit := c.entailments.Get(st); hit {
		return ok, nil
	}
	ok, err := c.base.IsEntailed(ctx, st)
	if err != nil {
		return false, err
	}
	c.entailments.Put(st, ok)
	return ok, nil
}

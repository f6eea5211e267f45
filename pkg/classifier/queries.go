package classifier

import (
	"context"
	"fmt"
	"slices"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
	"github.com/ThomasFarrenkopf/pellet/pkg/taxonomy"
)

// InferenceType names a kind of inference that can be precomputed.
type InferenceType int

const (
	ClassHierarchy InferenceType = iota + 1
	ClassAssertions
)

func (t InferenceType) String() string {
	switch t {
	case ClassHierarchy:
		return "class-hierarchy"
	case ClassAssertions:
		return "class-assertions"
	default:
		return fmt.Sprintf("InferenceType(%d)", int(t))
	}
}

func named(ce axiom.ClassExpression) (axiom.IRI, error) {
	iri, ok := axiom.Named(ce)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ce)
	}
	return iri, nil
}

// node returns the non-hidden node of a named class.
func (c *Classifier) node(iri axiom.IRI) (*taxonomy.Node[axiom.IRI], error) {
	n, ok := c.taxonomy.Node(iri)
	if !ok || n.IsHidden() {
		return nil, fmt.Errorf("%w: class %s", reasoner.ErrUnknownEntity, iri)
	}
	return n, nil
}

// classified classifies and returns the node of ce.
func (c *Classifier) classifiedNode(ctx context.Context, ce axiom.ClassExpression) (*taxonomy.Node[axiom.IRI], error) {
	iri, err := named(ce)
	if err != nil {
		return nil, err
	}
	if err := c.classify(ctx); err != nil {
		return nil, err
	}
	return c.node(iri)
}

// EquivalentClasses returns the classes equivalent to the named class ce,
// ce included.
func (c *Classifier) EquivalentClasses(ctx context.Context, ce axiom.ClassExpression) ([]axiom.IRI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.classifiedNode(ctx, ce)
	if err != nil {
		return nil, err
	}
	return n.Equivalents(), nil
}

// SubClasses returns the equivalence sets below the named class ce: the
// direct ones, or all of them when direct is false. BOTTOM is included.
func (c *Classifier) SubClasses(ctx context.Context, ce axiom.ClassExpression, direct bool) ([][]axiom.IRI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.classifiedNode(ctx, ce)
	if err != nil {
		return nil, err
	}
	return taxonomy.EquivalenceSets(c.taxonomy.Subs(n, direct)), nil
}

// SuperClasses returns the equivalence sets above the named class ce. TOP
// is included.
func (c *Classifier) SuperClasses(ctx context.Context, ce axiom.ClassExpression, direct bool) ([][]axiom.IRI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.classifiedNode(ctx, ce)
	if err != nil {
		return nil, err
	}
	return taxonomy.EquivalenceSets(c.taxonomy.Supers(n, direct)), nil
}

// TopClassNode returns the classes equivalent to owl:Thing.
func (c *Classifier) TopClassNode(ctx context.Context) ([]axiom.IRI, error) {
	return c.EquivalentClasses(ctx, axiom.Class(axiom.Thing))
}

// BottomClassNode returns the classes equivalent to owl:Nothing.
func (c *Classifier) BottomClassNode(ctx context.Context) ([]axiom.IRI, error) {
	return c.EquivalentClasses(ctx, axiom.Class(axiom.Nothing))
}

// UnsatisfiableClasses returns the unsatisfiable classes, owl:Nothing
// included.
func (c *Classifier) UnsatisfiableClasses(ctx context.Context) ([]axiom.IRI, error) {
	return c.BottomClassNode(ctx)
}

// IsSatisfiable answers from the taxonomy for a named class when it is
// current, and asks the base reasoner otherwise.
func (c *Classifier) IsSatisfiable(ctx context.Context, ce axiom.ClassExpression) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false, ErrDisposed
	}
	iri, isNamed := axiom.Named(ce)
	if !isNamed || !c.isClassified() {
		c.base.Flush()
		ok, err := c.base.IsSatisfiable(ctx, ce)
		return ok, reasoner.Convert(err)
	}
	n, err := c.node(iri)
	if err != nil {
		return false, err
	}
	return n != c.taxonomy.Bottom(), nil
}

// IsConsistent reports whether the knowledge base has a model.
func (c *Classifier) IsConsistent(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false, ErrDisposed
	}
	c.base.Flush()
	ok, err := c.base.IsConsistent(ctx)
	return ok, reasoner.Convert(err)
}

// IsEntailed reports whether st follows from the knowledge base. Subsumption
// and equivalence between named classes are read from the taxonomy.
func (c *Classifier) IsEntailed(ctx context.Context, st axiom.Statement) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isEntailed(ctx, st)
}

// IsEntailedAll reports whether every statement follows.
func (c *Classifier) IsEntailedAll(ctx context.Context, stmts []axiom.Statement) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range stmts {
		ok, err := c.isEntailed(ctx, st)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c *Classifier) isEntailed(ctx context.Context, st axiom.Statement) (bool, error) {
	if c.disposed {
		return false, ErrDisposed
	}
	if st.IsABox() {
		c.base.Flush()
		ok, err := c.base.IsEntailed(ctx, st)
		return ok, reasoner.Convert(err)
	}
	if err := c.classify(ctx); err != nil {
		return false, err
	}
	if nodes, ok, err := c.namedNodes(st); err != nil {
		return false, err
	} else if ok {
		switch st.Kind {
		case axiom.SubClassOf:
			return c.taxonomy.IsSubNodeOf(nodes[0], nodes[1]), nil
		case axiom.EquivalentClasses:
			for _, n := range nodes[1:] {
				if n != nodes[0] {
					return false, nil
				}
			}
			return true, nil
		}
	}
	c.base.Flush()
	ok, err := c.entailed(ctx, st)
	return ok, reasoner.Convert(err)
}

// namedNodes returns the nodes of a subsumption or equivalence between named
// classes. ok is false for any other statement.
func (c *Classifier) namedNodes(st axiom.Statement) (nodes []*taxonomy.Node[axiom.IRI], ok bool, err error) {
	if st.Kind != axiom.SubClassOf && st.Kind != axiom.EquivalentClasses {
		return nil, false, nil
	}
	for _, ce := range st.Classes {
		iri, isNamed := axiom.Named(ce)
		if !isNamed {
			return nil, false, nil
		}
		n, err := c.node(iri)
		if err != nil {
			return nil, false, err
		}
		nodes = append(nodes, n)
	}
	return nodes, true, nil
}

// Instances returns the instances of ce, or only those whose most specific
// type is ce when direct is set. Direct instances need a named class.
func (c *Classifier) Instances(ctx context.Context, ce axiom.ClassExpression, direct bool) ([]axiom.IRI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	iri, isNamed := axiom.Named(ce)
	if !isNamed && direct {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ce)
	}
	c.base.Flush()
	if !isNamed || (!direct && !(c.isClassified() && c.realized)) {
		ins, err := c.base.Instances(ctx, ce)
		return ins, reasoner.Convert(err)
	}
	if err := c.realize(ctx); err != nil {
		return nil, err
	}
	n, err := c.node(iri)
	if err != nil {
		return nil, err
	}
	if direct {
		ins, _ := n.Instances()
		return ins, nil
	}
	return c.allInstances(n), nil
}

// Types returns the equivalence sets of the classes ind belongs to: its
// most specific types, or all of them when direct is false.
func (c *Classifier) Types(ctx context.Context, ind axiom.IRI, direct bool) ([][]axiom.IRI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	c.base.Flush()
	if err := c.realize(ctx); err != nil {
		return nil, err
	}
	if !slices.Contains(c.base.Individuals(), ind) {
		return nil, fmt.Errorf("%w: individual %s", reasoner.ErrUnknownEntity, ind)
	}
	return taxonomy.EquivalenceSets(c.types(ind, direct)), nil
}

// EquivalentObjectProperties returns the properties equivalent to p.
func (c *Classifier) EquivalentObjectProperties(ctx context.Context, p axiom.IRI) ([]axiom.IRI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	c.base.Flush()
	out, err := c.base.EquivalentObjectProperties(ctx, p)
	return out, reasoner.Convert(err)
}

// SubObjectProperties returns the property equivalence sets below p.
func (c *Classifier) SubObjectProperties(ctx context.Context, p axiom.IRI, direct bool) ([][]axiom.IRI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	c.base.Flush()
	out, err := c.base.SubObjectProperties(ctx, p, direct)
	return out, reasoner.Convert(err)
}

// SuperObjectProperties returns the property equivalence sets above p.
func (c *Classifier) SuperObjectProperties(ctx context.Context, p axiom.IRI, direct bool) ([][]axiom.IRI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	c.base.Flush()
	out, err := c.base.SuperObjectProperties(ctx, p, direct)
	return out, reasoner.Convert(err)
}

// PrecomputeInferences computes the given kinds of inferences now rather
// than on the first query.
func (c *Classifier) PrecomputeInferences(ctx context.Context, kinds ...InferenceType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range kinds {
		var err error
		switch kind {
		case ClassHierarchy:
			err = c.classify(ctx)
		case ClassAssertions:
			err = c.realize(ctx)
		default:
			err = fmt.Errorf("%w: precomputing %s", ErrUnsupported, kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// IsPrecomputed reports whether the given kind of inference is current.
func (c *Classifier) IsPrecomputed(kind InferenceType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case ClassHierarchy:
		return c.isClassified()
	case ClassAssertions:
		return c.isClassified() && c.realized
	}
	return false
}

// Package told implements a told-subsumption reasoner: the hierarchy is the
// reflexive-transitive closure of asserted SubClassOf and EquivalentClasses
// statements, and asserted disjointness makes classes unsatisfiable.
//
// It is complete for its profile:
//
//	SubClassOf(A B)                    A, B named
//	SubClassOf(A ObjectComplementOf(B)) A disjoint with B
//	EquivalentClasses(A B ...)          all named
//	DisjointClasses(A B ...)            all named
//	ClassAssertion(C i)                 C named or the complement of a named class
//	ObjectPropertyAssertion, SubObjectPropertyOf, EquivalentObjectProperties, Declaration
//
// Anything else fails Classify with reasoner.ErrNotInProfile. Queries may use
// complements and intersections of named classes.
package told

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
)

// Factory returns a reasoner.Factory producing told reasoners.
func Factory() reasoner.Factory {
	return reasoner.FactoryFunc(func(ont *axiom.Ontology) (reasoner.Reasoner, error) {
		return New(ont), nil
	})
}

// Reasoner is the told-subsumption reasoner. It is safe for concurrent use.
type Reasoner struct {
	mu       sync.Mutex
	ont      *axiom.Ontology
	loaded   []axiom.Statement
	disposed bool

	classified   bool
	profileErr   error
	expressivity reasoner.Expressivity

	classes     set
	individuals set
	properties  set

	toldSupers map[axiom.IRI][]axiom.IRI
	disjoint   map[axiom.IRI]set
	supers     map[axiom.IRI]set
	unsat      set
	classTree  *hierarchy

	assertedTypes map[axiom.IRI][]axiom.ClassExpression
	types         map[axiom.IRI]conj
	links         map[[2]axiom.IRI][]axiom.IRI

	toldPropSupers map[axiom.IRI][]axiom.IRI
	propSupers     map[axiom.IRI]set
	propTree       *hierarchy

	consistent bool
}

var _ reasoner.Reasoner = (*Reasoner)(nil)

// New returns a reasoner over the imports closure of ont with its current
// statements already flushed.
func New(ont *axiom.Ontology) *Reasoner {
	r := &Reasoner{ont: ont}
	r.Flush()
	return r
}

// Flush reloads the statements of the ontology's imports closure.
func (r *Reasoner) Flush() {
	stmts := r.ont.ClosureStatements()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	if r.classified && slices.EqualFunc(stmts, r.loaded, axiom.Statement.Equal) {
		return
	}
	r.loaded = stmts
	r.classified = false
}

// Classify computes the closures if the flushed statements changed.
func (r *Reasoner) Classify(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensure(ctx)
}

func (r *Reasoner) ensure(ctx context.Context) error {
	if r.disposed {
		return reasoner.ErrDisposed
	}
	if err := reasoner.CheckContext(ctx); err != nil {
		return err
	}
	if !r.classified {
		if err := r.compute(ctx); err != nil {
			return err
		}
		r.classified = true
	}
	if r.profileErr != nil {
		return r.profileErr
	}
	if !r.consistent {
		return reasoner.ErrInconsistent
	}
	return nil
}

func (r *Reasoner) compute(ctx context.Context) error {
	r.profileErr = nil
	r.expressivity = reasoner.Expressivity{}
	r.classes = set{axiom.Thing: true, axiom.Nothing: true}
	r.individuals = make(set)
	r.properties = make(set)
	r.toldSupers = make(map[axiom.IRI][]axiom.IRI)
	r.disjoint = make(map[axiom.IRI]set)
	r.assertedTypes = make(map[axiom.IRI][]axiom.ClassExpression)
	r.links = make(map[[2]axiom.IRI][]axiom.IRI)
	r.toldPropSupers = make(map[axiom.IRI][]axiom.IRI)

	for _, st := range r.loaded {
		if err := r.load(st); err != nil && r.profileErr == nil {
			r.profileErr = err
		}
	}
	if err := reasoner.CheckContext(ctx); err != nil {
		return err
	}

	r.supers = make(map[axiom.IRI]set, len(r.classes))
	top := closure(axiom.Thing, r.toldSupers)
	for c := range r.classes {
		sup := closure(c, r.toldSupers)
		for t := range top {
			sup[t] = true
		}
		r.supers[c] = sup
	}
	r.unsat = make(set)
	for c := range r.classes {
		if r.unsatisfiable(conj{pos: r.supers[c]}) {
			r.unsat[c] = true
		}
	}
	r.unsat[axiom.Nothing] = true
	if err := reasoner.CheckContext(ctx); err != nil {
		return err
	}

	var sat []axiom.IRI
	for c := range r.classes {
		if !r.unsat[c] {
			sat = append(sat, c)
		}
	}
	r.classTree = buildHierarchy(sat, func(a, b axiom.IRI) bool { return r.supers[a][b] })

	r.propSupers = make(map[axiom.IRI]set, len(r.properties))
	var props []axiom.IRI
	for p := range r.properties {
		r.propSupers[p] = closure(p, r.toldPropSupers)
		props = append(props, p)
	}
	r.propTree = buildHierarchy(props, func(a, b axiom.IRI) bool { return r.propSupers[a][b] })

	r.consistent = !r.unsat[axiom.Thing]
	r.types = make(map[axiom.IRI]conj, len(r.individuals))
	for ind := range r.individuals {
		c := conj{pos: copySet(r.supers[axiom.Thing])}
		for _, ce := range r.assertedTypes[ind] {
			tc, err := r.toConj(ce)
			if err != nil {
				return err
			}
			c = c.merge(tc)
		}
		r.types[ind] = c
		if r.unsatisfiable(c) {
			r.consistent = false
		}
	}
	return nil
}

func (r *Reasoner) load(st axiom.Statement) error {
	for _, e := range st.Signature() {
		switch e.Type {
		case axiom.ClassEntity:
			r.classes[e.IRI] = true
		case axiom.IndividualEntity:
			r.individuals[e.IRI] = true
		case axiom.PropertyEntity:
			r.properties[e.IRI] = true
		}
	}
	for _, ce := range st.Classes {
		r.noteExpressivity(ce)
	}
	notInProfile := func() error {
		return fmt.Errorf("%w: %s", reasoner.ErrNotInProfile, st)
	}

	switch st.Kind {
	case axiom.Declaration:
	case axiom.SubClassOf:
		sub, ok := axiom.Named(st.Classes[0])
		if !ok {
			return notInProfile()
		}
		if sup, ok := axiom.Named(st.Classes[1]); ok {
			r.toldSupers[sub] = append(r.toldSupers[sub], sup)
			return nil
		}
		if comp, ok := st.Classes[1].(axiom.ComplementOf); ok {
			if other, ok := axiom.Named(comp.Operand); ok {
				r.addDisjoint(sub, other)
				return nil
			}
		}
		return notInProfile()
	case axiom.EquivalentClasses, axiom.DisjointClasses:
		members := make([]axiom.IRI, 0, len(st.Classes))
		for _, ce := range st.Classes {
			iri, ok := axiom.Named(ce)
			if !ok {
				return notInProfile()
			}
			members = append(members, iri)
		}
		for i, a := range members {
			for _, b := range members[i+1:] {
				if st.Kind == axiom.EquivalentClasses {
					r.toldSupers[a] = append(r.toldSupers[a], b)
					r.toldSupers[b] = append(r.toldSupers[b], a)
				} else {
					r.addDisjoint(a, b)
				}
			}
		}
	case axiom.ClassAssertion:
		ce := st.Classes[0]
		if comp, ok := ce.(axiom.ComplementOf); ok {
			ce = comp.Operand
		}
		if _, ok := axiom.Named(ce); !ok {
			return notInProfile()
		}
		ind := st.Individuals[0]
		r.assertedTypes[ind] = append(r.assertedTypes[ind], st.Classes[0])
	case axiom.ObjectPropertyAssertion:
		key := [2]axiom.IRI{st.Individuals[0], st.Individuals[1]}
		r.links[key] = append(r.links[key], st.Properties[0])
	case axiom.SubObjectPropertyOf:
		r.toldPropSupers[st.Properties[0]] = append(r.toldPropSupers[st.Properties[0]], st.Properties[1])
		r.expressivity.RoleHierarchy = true
	case axiom.EquivalentObjectProperties:
		for i, p := range st.Properties {
			for _, q := range st.Properties[i+1:] {
				r.toldPropSupers[p] = append(r.toldPropSupers[p], q)
				r.toldPropSupers[q] = append(r.toldPropSupers[q], p)
			}
		}
		r.expressivity.RoleHierarchy = true
	default:
		return notInProfile()
	}
	return nil
}

func (r *Reasoner) noteExpressivity(ce axiom.ClassExpression) {
	switch v := ce.(type) {
	case axiom.ComplementOf:
		r.expressivity.Complements = true
		r.noteExpressivity(v.Operand)
	case axiom.IntersectionOf:
		r.expressivity.Intersections = true
		for _, op := range v.Operands {
			r.noteExpressivity(op)
		}
	}
}

func (r *Reasoner) addDisjoint(a, b axiom.IRI) {
	r.expressivity.Disjointness = true
	if r.disjoint[a] == nil {
		r.disjoint[a] = make(set)
	}
	if r.disjoint[b] == nil {
		r.disjoint[b] = make(set)
	}
	r.disjoint[a][b] = true
	r.disjoint[b][a] = true
}

func closure(start axiom.IRI, edges map[axiom.IRI][]axiom.IRI) set {
	out := set{start: true}
	stack := []axiom.IRI{start}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, y := range edges[x] {
			if !out[y] {
				out[y] = true
				stack = append(stack, y)
			}
		}
	}
	return out
}

func copySet(s set) set {
	out := make(set, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

// Dispose releases the computed closures.
func (r *Reasoner) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
	r.loaded = nil
	r.supers = nil
	r.types = nil
	r.classTree = nil
	r.propTree = nil
}

// Expressivity describes the flushed statements.
func (r *Reasoner) Expressivity() reasoner.Expressivity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.classified && !r.disposed {
		_ = r.compute(context.Background())
		r.classified = true
	}
	return r.expressivity
}

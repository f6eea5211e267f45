package told

import (
	"context"
	"fmt"
	"slices"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
)

// conj is a conjunction of the named classes in pos (closed under told
// supers) and the complements of negs.
type conj struct {
	pos  set
	negs []conj
}

func (c conj) merge(o conj) conj {
	pos := copySet(c.pos)
	for k := range o.pos {
		pos[k] = true
	}
	negs := append(slices.Clone(c.negs), o.negs...)
	return conj{pos: pos, negs: negs}
}

func (r *Reasoner) toConj(ce axiom.ClassExpression) (conj, error) {
	switch v := ce.(type) {
	case axiom.NamedClass:
		iri := axiom.IRI(v)
		if !r.classes[iri] {
			return conj{}, fmt.Errorf("%w: class %s", reasoner.ErrUnknownEntity, iri)
		}
		return conj{pos: r.supers[iri]}, nil
	case axiom.ComplementOf:
		if inner, ok := v.Operand.(axiom.ComplementOf); ok {
			return r.toConj(inner.Operand)
		}
		neg, err := r.toConj(v.Operand)
		if err != nil {
			return conj{}, err
		}
		return conj{pos: r.supers[axiom.Thing], negs: []conj{neg}}, nil
	case axiom.IntersectionOf:
		out := conj{pos: r.supers[axiom.Thing]}
		for _, op := range v.Operands {
			oc, err := r.toConj(op)
			if err != nil {
				return conj{}, err
			}
			out = out.merge(oc)
		}
		return out, nil
	}
	return conj{}, fmt.Errorf("%w: %s", reasoner.ErrNotInProfile, ce)
}

func (r *Reasoner) unsatisfiable(c conj) bool {
	if c.pos[axiom.Nothing] {
		return true
	}
	for p := range c.pos {
		if r.unsat[p] {
			return true
		}
		for q := range r.disjoint[p] {
			if c.pos[q] {
				return true
			}
		}
	}
	for _, n := range c.negs {
		if len(n.negs) == 0 && subset(n.pos, c.pos) {
			return true
		}
	}
	return false
}

func subset(a, b set) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// below reports whether x is subsumed by ce.
func (r *Reasoner) below(x conj, ce axiom.ClassExpression) (bool, error) {
	if r.unsatisfiable(x) {
		if _, err := r.toConj(ce); err != nil {
			return false, err
		}
		return true, nil
	}
	switch v := ce.(type) {
	case axiom.NamedClass:
		iri := axiom.IRI(v)
		if !r.classes[iri] {
			return false, fmt.Errorf("%w: class %s", reasoner.ErrUnknownEntity, iri)
		}
		return x.pos[iri], nil
	case axiom.ComplementOf:
		if inner, ok := v.Operand.(axiom.ComplementOf); ok {
			return r.below(x, inner.Operand)
		}
		y, err := r.toConj(v.Operand)
		if err != nil {
			return false, err
		}
		return r.unsatisfiable(x.merge(y)), nil
	case axiom.IntersectionOf:
		for _, op := range v.Operands {
			ok, err := r.below(x, op)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("%w: %s", reasoner.ErrNotInProfile, ce)
}

func (r *Reasoner) subsumes(sub, sup axiom.ClassExpression) (bool, error) {
	x, err := r.toConj(sub)
	if err != nil {
		return false, err
	}
	return r.below(x, sup)
}

// Classes returns the named classes of the signature.
func (r *Reasoner) Classes() []axiom.IRI {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(context.Background()); err != nil && r.classes == nil {
		return nil
	}
	return r.classes.sorted()
}

// Individuals returns the named individuals of the signature.
func (r *Reasoner) Individuals() []axiom.IRI {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(context.Background()); err != nil && r.individuals == nil {
		return nil
	}
	return r.individuals.sorted()
}

// EquivalentClasses returns the named classes equivalent to ce.
func (r *Reasoner) EquivalentClasses(ctx context.Context, ce axiom.ClassExpression) ([]axiom.IRI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	if iri, ok := axiom.Named(ce); ok {
		if !r.classes[iri] {
			return nil, fmt.Errorf("%w: class %s", reasoner.ErrUnknownEntity, iri)
		}
		if r.unsat[iri] {
			return r.unsat.sorted(), nil
		}
		return slices.Clone(r.classTree.members[r.classTree.rep[iri]]), nil
	}
	x, err := r.toConj(ce)
	if err != nil {
		return nil, err
	}
	if r.unsatisfiable(x) {
		return r.unsat.sorted(), nil
	}
	var out []axiom.IRI
	for _, c := range r.classes.sorted() {
		if r.unsat[c] || !x.pos[c] {
			continue
		}
		ok, err := r.below(conj{pos: r.supers[c]}, ce)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// DirectSubClasses returns the equivalence sets directly below c.
func (r *Reasoner) DirectSubClasses(ctx context.Context, c axiom.IRI) ([][]axiom.IRI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	if !r.classes[c] {
		return nil, fmt.Errorf("%w: class %s", reasoner.ErrUnknownEntity, c)
	}
	if r.unsat[c] {
		return nil, nil
	}
	return r.classTree.sets(r.classTree.directSubs[r.classTree.rep[c]]), nil
}

// IsEntailed checks st against the flushed statements.
func (r *Reasoner) IsEntailed(ctx context.Context, st axiom.Statement) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return false, err
	}
	switch st.Kind {
	case axiom.Declaration:
		for _, e := range st.Signature() {
			if !r.knows(e) {
				return false, nil
			}
		}
		return true, nil
	case axiom.SubClassOf:
		return r.subsumes(st.Classes[0], st.Classes[1])
	case axiom.EquivalentClasses:
		return r.pairwise(st.Classes, func(a, b axiom.ClassExpression) (bool, error) {
			ab, err := r.subsumes(a, b)
			if err != nil || !ab {
				return false, err
			}
			return r.subsumes(b, a)
		})
	case axiom.DisjointClasses:
		return r.pairwise(st.Classes, func(a, b axiom.ClassExpression) (bool, error) {
			return r.subsumes(a, axiom.Complement(b))
		})
	case axiom.ClassAssertion:
		return r.instanceOf(st.Individuals[0], st.Classes[0])
	case axiom.ObjectPropertyAssertion:
		if err := r.checkProperties(st.Properties...); err != nil {
			return false, err
		}
		key := [2]axiom.IRI{st.Individuals[0], st.Individuals[1]}
		for _, p := range r.links[key] {
			if r.propSupers[p][st.Properties[0]] {
				return true, nil
			}
		}
		return false, nil
	case axiom.SubObjectPropertyOf:
		if err := r.checkProperties(st.Properties...); err != nil {
			return false, err
		}
		return r.propSupers[st.Properties[0]][st.Properties[1]], nil
	case axiom.EquivalentObjectProperties:
		if err := r.checkProperties(st.Properties...); err != nil {
			return false, err
		}
		for _, p := range st.Properties {
			for _, q := range st.Properties {
				if !r.propSupers[p][q] {
					return false, nil
				}
			}
		}
		return true, nil
	}
	return false, fmt.Errorf("%w: %s", reasoner.ErrNotInProfile, st)
}

func (r *Reasoner) knows(e axiom.Entity) bool {
	switch e.Type {
	case axiom.ClassEntity:
		return r.classes[e.IRI]
	case axiom.IndividualEntity:
		return r.individuals[e.IRI]
	case axiom.PropertyEntity:
		return r.properties[e.IRI]
	}
	return false
}

func (r *Reasoner) checkProperties(ps ...axiom.IRI) error {
	for _, p := range ps {
		if !r.properties[p] {
			return fmt.Errorf("%w: property %s", reasoner.ErrUnknownEntity, p)
		}
	}
	return nil
}

func (r *Reasoner) pairwise(ces []axiom.ClassExpression, f func(a, b axiom.ClassExpression) (bool, error)) (bool, error) {
	for i, a := range ces {
		for _, b := range ces[i+1:] {
			ok, err := f(a, b)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

func (r *Reasoner) instanceOf(ind axiom.IRI, ce axiom.ClassExpression) (bool, error) {
	if !r.individuals[ind] {
		return false, fmt.Errorf("%w: individual %s", reasoner.ErrUnknownEntity, ind)
	}
	return r.below(r.types[ind], ce)
}

// IsSatisfiable reports whether ce can have instances.
func (r *Reasoner) IsSatisfiable(ctx context.Context, ce axiom.ClassExpression) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return false, err
	}
	x, err := r.toConj(ce)
	if err != nil {
		return false, err
	}
	return !r.unsatisfiable(x), nil
}

// IsConsistent reports whether the flushed statements have a model.
func (r *Reasoner) IsConsistent(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.ensure(ctx)
	switch {
	case err == nil:
		return true, nil
	case reasoner.Kind(err) == reasoner.ErrInconsistent:
		return false, nil
	}
	return false, err
}

// Retrieve returns the members of candidates that are instances of c.
func (r *Reasoner) Retrieve(ctx context.Context, c axiom.IRI, candidates []axiom.IRI) ([]axiom.IRI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	if !r.classes[c] {
		return nil, fmt.Errorf("%w: class %s", reasoner.ErrUnknownEntity, c)
	}
	var out []axiom.IRI
	for _, ind := range candidates {
		if t, ok := r.types[ind]; ok && t.pos[c] {
			out = append(out, ind)
		}
	}
	return out, nil
}

// Instances returns every individual that is an instance of ce.
func (r *Reasoner) Instances(ctx context.Context, ce axiom.ClassExpression) ([]axiom.IRI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	if _, err := r.toConj(ce); err != nil {
		return nil, err
	}
	var out []axiom.IRI
	for _, ind := range r.individuals.sorted() {
		ok, err := r.below(r.types[ind], ce)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, ind)
		}
	}
	return out, nil
}

// EquivalentObjectProperties returns the properties equivalent to p.
func (r *Reasoner) EquivalentObjectProperties(ctx context.Context, p axiom.IRI) ([]axiom.IRI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	if err := r.checkProperties(p); err != nil {
		return nil, err
	}
	return slices.Clone(r.propTree.members[r.propTree.rep[p]]), nil
}

// SubObjectProperties returns the equivalence sets of properties below p.
func (r *Reasoner) SubObjectProperties(ctx context.Context, p axiom.IRI, direct bool) ([][]axiom.IRI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	if err := r.checkProperties(p); err != nil {
		return nil, err
	}
	rep := r.propTree.rep[p]
	if direct {
		return r.propTree.sets(r.propTree.directSubs[rep]), nil
	}
	return r.propTree.descendants(rep), nil
}

// SuperObjectProperties returns the equivalence sets of properties above p.
func (r *Reasoner) SuperObjectProperties(ctx context.Context, p axiom.IRI, direct bool) ([][]axiom.IRI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	if err := r.checkProperties(p); err != nil {
		return nil, err
	}
	rep := r.propTree.rep[p]
	if direct {
		return r.propTree.sets(r.propTree.directSupers[rep]), nil
	}
	return r.propTree.ancestors(rep), nil
}

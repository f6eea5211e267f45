package modularity

import "github.com/ThomasFarrenkopf/pellet/pkg/axiom"

// signature is a growing set of entities.
type signature map[axiom.Entity]bool

func (s signature) hasClass(iri axiom.IRI) bool {
	return s[axiom.Entity{Type: axiom.ClassEntity, IRI: iri}]
}

// bottomEquivalent reports whether ce is empty once every class outside sig
// is interpreted as empty.
func bottomEquivalent(ce axiom.ClassExpression, sig signature) bool {
	switch v := ce.(type) {
	case axiom.NamedClass:
		iri := axiom.IRI(v)
		if iri == axiom.Nothing {
			return true
		}
		return iri != axiom.Thing && !sig.hasClass(iri)
	case axiom.ComplementOf:
		return topEquivalent(v.Operand, sig)
	case axiom.IntersectionOf:
		for _, op := range v.Operands {
			if bottomEquivalent(op, sig) {
				return true
			}
		}
	}
	return false
}

// topEquivalent reports whether ce is everything once every class outside
// sig is interpreted as empty.
func topEquivalent(ce axiom.ClassExpression, sig signature) bool {
	switch v := ce.(type) {
	case axiom.NamedClass:
		return axiom.IRI(v) == axiom.Thing
	case axiom.ComplementOf:
		return bottomEquivalent(v.Operand, sig)
	case axiom.IntersectionOf:
		for _, op := range v.Operands {
			if !topEquivalent(op, sig) {
				return false
			}
		}
		return true
	}
	return false
}

// nonLocal reports whether st must belong to the module of sig. For the
// terminological statements this is syntactic bottom-locality; assertions
// and declarations are relevant once one of their individuals or their
// entity is in sig.
func nonLocal(st axiom.Statement, sig signature) bool {
	switch st.Kind {
	case axiom.Declaration:
		for _, e := range st.Signature() {
			if sig[e] {
				return true
			}
		}
		return false

	case axiom.SubClassOf:
		return !bottomEquivalent(st.Classes[0], sig) && !topEquivalent(st.Classes[1], sig)

	case axiom.EquivalentClasses:
		allBottom, allTop := true, true
		for _, ce := range st.Classes {
			allBottom = allBottom && bottomEquivalent(ce, sig)
			allTop = allTop && topEquivalent(ce, sig)
		}
		return !allBottom && !allTop

	case axiom.DisjointClasses:
		n := 0
		for _, ce := range st.Classes {
			if !bottomEquivalent(ce, sig) {
				n++
			}
		}
		return n > 1

	case axiom.ClassAssertion, axiom.ObjectPropertyAssertion:
		for _, ind := range st.Individuals {
			if sig[axiom.Entity{Type: axiom.IndividualEntity, IRI: ind}] {
				return true
			}
		}
		return false

	case axiom.SubObjectPropertyOf:
		return sig[axiom.Entity{Type: axiom.PropertyEntity, IRI: st.Properties[0]}]

	case axiom.EquivalentObjectProperties:
		for _, p := range st.Properties {
			if sig[axiom.Entity{Type: axiom.PropertyEntity, IRI: p}] {
				return true
			}
		}
		return false
	}
	return true
}

// global reports whether st is relevant to every signature.
func global(st axiom.Statement) bool {
	return nonLocal(st, signature{})
}

package axiom

import (
	"sort"
	"strings"
)

// IRI identifies a named entity (class, individual or property).
type IRI string

// Distinguished classes.
const (
	Thing   IRI = "http://www.w3.org/2002/07/owl#Thing"
	Nothing IRI = "http://www.w3.org/2002/07/owl#Nothing"
)

// IsBuiltIn reports whether iri is owl:Thing or owl:Nothing.
func (iri IRI) IsBuiltIn() bool {
	return iri == Thing || iri == Nothing
}

// String renders the IRI the way the parser reads it back.
func (iri IRI) String() string {
	switch iri {
	case Thing:
		return "owl:Thing"
	case Nothing:
		return "owl:Nothing"
	}
	if strings.ContainsAny(string(iri), " \t\r\n()#<>") || iri == "" {
		return "<" + string(iri) + ">"
	}
	return string(iri)
}

// ClassExpression is a named class or a composite description built from
// named classes.
type ClassExpression interface {
	String() string
	isClassExpression()
}

// NamedClass is a class referenced by IRI.
type NamedClass IRI

// ComplementOf is the complement of its operand.
type ComplementOf struct {
	Operand ClassExpression
}

// IntersectionOf is the conjunction of its operands.
type IntersectionOf struct {
	Operands []ClassExpression
}

func (NamedClass) isClassExpression()     {}
func (ComplementOf) isClassExpression()   {}
func (IntersectionOf) isClassExpression() {}

func (c NamedClass) String() string { return IRI(c).String() }

func (c ComplementOf) String() string {
	return "ObjectComplementOf(" + c.Operand.String() + ")"
}

func (c IntersectionOf) String() string {
	parts := make([]string, len(c.Operands))
	for i, op := range c.Operands {
		parts[i] = op.String()
	}
	return "ObjectIntersectionOf(" + strings.Join(parts, " ") + ")"
}

// Class returns the named class expression for iri.
func Class(iri IRI) ClassExpression { return NamedClass(iri) }

// Complement returns the complement of ce.
func Complement(ce ClassExpression) ClassExpression { return ComplementOf{Operand: ce} }

// Intersection returns the conjunction of operands in canonical order.
func Intersection(operands ...ClassExpression) ClassExpression {
	ops := append([]ClassExpression(nil), operands...)
	sortExpressions(ops)
	return IntersectionOf{Operands: ops}
}

// Named returns the IRI of ce when ce is a named class.
func Named(ce ClassExpression) (IRI, bool) {
	if c, ok := ce.(NamedClass); ok {
		return IRI(c), true
	}
	return "", false
}

// IsAnonymous reports whether ce is not a named class.
func IsAnonymous(ce ClassExpression) bool {
	_, ok := ce.(NamedClass)
	return !ok
}

// ClassesIn returns the named classes mentioned anywhere in ce.
func ClassesIn(ce ClassExpression) []IRI {
	var out []IRI
	var walk func(ClassExpression)
	walk = func(e ClassExpression) {
		switch v := e.(type) {
		case NamedClass:
			out = append(out, IRI(v))
		case ComplementOf:
			walk(v.Operand)
		case IntersectionOf:
			for _, op := range v.Operands {
				walk(op)
			}
		}
	}
	walk(ce)
	return out
}

func sortExpressions(exprs []ClassExpression) {
	sort.Slice(exprs, func(i, j int) bool { return exprs[i].String() < exprs[j].String() })
}

func sortIRIs(iris []IRI) {
	sort.Slice(iris, func(i, j int) bool { return iris[i] < iris[j] })
}

// SortIRIs sorts iris in place and returns them.
func SortIRIs(iris []IRI) []IRI {
	sortIRIs(iris)
	return iris
}

package axiom

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Kind enumerates the supported statement types.
type Kind int

const (
	Declaration Kind = iota + 1
	SubClassOf
	EquivalentClasses
	DisjointClasses
	ClassAssertion
	ObjectPropertyAssertion
	SubObjectPropertyOf
	EquivalentObjectProperties
)

var kindNames = map[Kind]string{
	Declaration:                "Declaration",
	SubClassOf:                 "SubClassOf",
	EquivalentClasses:          "EquivalentClasses",
	DisjointClasses:            "DisjointClasses",
	ClassAssertion:             "ClassAssertion",
	ObjectPropertyAssertion:    "ObjectPropertyAssertion",
	SubObjectPropertyOf:        "SubObjectPropertyOf",
	EquivalentObjectProperties: "EquivalentObjectProperties",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// EntityType classifies the entities of a signature.
type EntityType int

const (
	ClassEntity EntityType = iota + 1
	IndividualEntity
	PropertyEntity
)

func (t EntityType) String() string {
	switch t {
	case ClassEntity:
		return "Class"
	case IndividualEntity:
		return "NamedIndividual"
	case PropertyEntity:
		return "ObjectProperty"
	default:
		return "Unknown"
	}
}

// Entity is a typed named entity.
type Entity struct {
	Type EntityType
	IRI  IRI
}

func (e Entity) String() string {
	return e.Type.String() + "(" + e.IRI.String() + ")"
}

// Statement is a single axiom. Which slices are populated depends on Kind:
//
//	Declaration                 one of Classes, Individuals or Properties holds the entity
//	SubClassOf                  Classes = [sub, super]
//	EquivalentClasses           Classes = members (sorted)
//	DisjointClasses             Classes = members (sorted)
//	ClassAssertion              Classes = [type], Individuals = [individual]
//	ObjectPropertyAssertion     Properties = [p], Individuals = [subject, object]
//	SubObjectPropertyOf         Properties = [sub, super]
//	EquivalentObjectProperties  Properties = members (sorted)
//
// Statements are values; use the constructors so that n-ary statements are
// kept in canonical order and compare equal by String.
type Statement struct {
	Kind        Kind
	Classes     []ClassExpression
	Individuals []IRI
	Properties  []IRI
}

// SubClass returns SubClassOf(sub sup).
func SubClass(sub, sup ClassExpression) Statement {
	return Statement{Kind: SubClassOf, Classes: []ClassExpression{sub, sup}}
}

// Equivalent returns EquivalentClasses(classes...).
func Equivalent(classes ...ClassExpression) Statement {
	cs := append([]ClassExpression(nil), classes...)
	sortExpressions(cs)
	return Statement{Kind: EquivalentClasses, Classes: cs}
}

// Disjoint returns DisjointClasses(classes...).
func Disjoint(classes ...ClassExpression) Statement {
	cs := append([]ClassExpression(nil), classes...)
	sortExpressions(cs)
	return Statement{Kind: DisjointClasses, Classes: cs}
}

// Assertion returns ClassAssertion(ce individual).
func Assertion(ce ClassExpression, individual IRI) Statement {
	return Statement{Kind: ClassAssertion, Classes: []ClassExpression{ce}, Individuals: []IRI{individual}}
}

// PropertyAssertion returns ObjectPropertyAssertion(p subject object).
func PropertyAssertion(p, subject, object IRI) Statement {
	return Statement{Kind: ObjectPropertyAssertion, Properties: []IRI{p}, Individuals: []IRI{subject, object}}
}

// SubProperty returns SubObjectPropertyOf(sub sup).
func SubProperty(sub, sup IRI) Statement {
	return Statement{Kind: SubObjectPropertyOf, Properties: []IRI{sub, sup}}
}

// EquivalentProperties returns EquivalentObjectProperties(props...).
func EquivalentProperties(props ...IRI) Statement {
	ps := append([]IRI(nil), props...)
	sortIRIs(ps)
	return Statement{Kind: EquivalentObjectProperties, Properties: ps}
}

// Declare returns a declaration statement for e.
func Declare(e Entity) Statement {
	s := Statement{Kind: Declaration}
	switch e.Type {
	case ClassEntity:
		s.Classes = []ClassExpression{NamedClass(e.IRI)}
	case IndividualEntity:
		s.Individuals = []IRI{e.IRI}
	case PropertyEntity:
		s.Properties = []IRI{e.IRI}
	}
	return s
}

// String renders the statement in canonical functional syntax.
func (s Statement) String() string {
	var sb strings.Builder
	sb.WriteString(s.Kind.String())
	sb.WriteByte('(')
	switch s.Kind {
	case Declaration:
		switch {
		case len(s.Classes) > 0:
			sb.WriteString("Class(" + s.Classes[0].String() + ")")
		case len(s.Individuals) > 0:
			sb.WriteString("NamedIndividual(" + s.Individuals[0].String() + ")")
		case len(s.Properties) > 0:
			sb.WriteString("ObjectProperty(" + s.Properties[0].String() + ")")
		}
	case ClassAssertion:
		sb.WriteString(s.Classes[0].String())
		sb.WriteByte(' ')
		sb.WriteString(s.Individuals[0].String())
	case ObjectPropertyAssertion:
		sb.WriteString(s.Properties[0].String())
		for _, ind := range s.Individuals {
			sb.WriteByte(' ')
			sb.WriteString(ind.String())
		}
	case SubObjectPropertyOf, EquivalentObjectProperties:
		for i, p := range s.Properties {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(p.String())
		}
	default:
		for i, c := range s.Classes {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(c.String())
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// ID returns a stable identifier derived from the canonical form.
func (s Statement) ID() string {
	sum := blake2b.Sum256([]byte(s.String()))
	return hex.EncodeToString(sum[:16])
}

// Equal reports whether two statements have the same canonical form.
func (s Statement) Equal(other Statement) bool {
	return s.String() == other.String()
}

// IsABox reports whether the statement only talks about individuals.
func (s Statement) IsABox() bool {
	return s.Kind == ClassAssertion || s.Kind == ObjectPropertyAssertion ||
		(s.Kind == Declaration && len(s.Individuals) > 0)
}

// IsLogical reports whether the statement carries meaning beyond declaring
// an entity.
func (s Statement) IsLogical() bool {
	return s.Kind != Declaration
}

// Signature returns the named entities mentioned by the statement. owl:Thing
// and owl:Nothing are not part of any signature.
func (s Statement) Signature() []Entity {
	seen := make(map[Entity]struct{})
	var out []Entity
	add := func(t EntityType, iri IRI) {
		if iri.IsBuiltIn() {
			return
		}
		e := Entity{Type: t, IRI: iri}
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	for _, c := range s.Classes {
		for _, iri := range ClassesIn(c) {
			add(ClassEntity, iri)
		}
	}
	for _, ind := range s.Individuals {
		add(IndividualEntity, ind)
	}
	for _, p := range s.Properties {
		add(PropertyEntity, p)
	}
	return out
}

// SortStatements orders statements by canonical form.
func SortStatements(stmts []Statement) []Statement {
	sortStatements(stmts)
	return stmts
}

func sortStatements(stmts []Statement) {
	sort.Slice(stmts, func(i, j int) bool { return stmts[i].String() < stmts[j].String() })
}

// Package reasoner defines the contract of the monotonic base reasoner the
// classifier delegates to: subsumption, equivalence, satisfiability,
// entailment and instance retrieval over one ontology's imports closure.
//
// Implementations buffer ontology changes until Flush. Queries against a
// reasoner that has pending changes answer from the last flushed state.
package reasoner

import (
	"context"
	"strings"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
)

// Reasoner answers queries about the statements of one ontology.
type Reasoner interface {
	// Flush makes buffered ontology changes visible to later queries.
	Flush()

	// Classify computes the class hierarchy if it is not current.
	Classify(ctx context.Context) error

	// Classes returns the named classes of the signature, owl:Thing and
	// owl:Nothing included.
	Classes() []axiom.IRI

	// Individuals returns the named individuals of the signature.
	Individuals() []axiom.IRI

	// EquivalentClasses returns the named classes equivalent to ce.
	EquivalentClasses(ctx context.Context, ce axiom.ClassExpression) ([]axiom.IRI, error)

	// DirectSubClasses returns the equivalence sets directly below the named
	// class c. The owl:Nothing set is never reported.
	DirectSubClasses(ctx context.Context, c axiom.IRI) ([][]axiom.IRI, error)

	IsEntailed(ctx context.Context, st axiom.Statement) (bool, error)
	IsSatisfiable(ctx context.Context, ce axiom.ClassExpression) (bool, error)
	IsConsistent(ctx context.Context) (bool, error)

	// Retrieve returns the members of candidates that are instances of the
	// named class c.
	Retrieve(ctx context.Context, c axiom.IRI, candidates []axiom.IRI) ([]axiom.IRI, error)

	// Instances returns all instances of ce.
	Instances(ctx context.Context, ce axiom.ClassExpression) ([]axiom.IRI, error)

	EquivalentObjectProperties(ctx context.Context, p axiom.IRI) ([]axiom.IRI, error)
	SubObjectProperties(ctx context.Context, p axiom.IRI, direct bool) ([][]axiom.IRI, error)
	SuperObjectProperties(ctx context.Context, p axiom.IRI, direct bool) ([][]axiom.IRI, error)

	// Expressivity describes the constructs used by the flushed statements.
	Expressivity() Expressivity

	// Dispose releases the reasoner. Later calls fail with ErrDisposed.
	Dispose()
}

// Factory creates reasoners.
type Factory interface {
	New(ont *axiom.Ontology) (Reasoner, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ont *axiom.Ontology) (Reasoner, error)

// New calls f(ont).
func (f FactoryFunc) New(ont *axiom.Ontology) (Reasoner, error) { return f(ont) }

// Expressivity records which constructs a statement set uses.
type Expressivity struct {
	Nominals      bool
	Complements   bool
	Intersections bool
	RoleHierarchy bool
	Disjointness  bool
}

// HasNominals reports whether individuals appear inside class expressions.
// Only then can assertions change the class hierarchy.
func (e Expressivity) HasNominals() bool { return e.Nominals }

// String returns a description-logic style name such as "ALCH".
func (e Expressivity) String() string {
	var sb strings.Builder
	sb.WriteString("AL")
	if e.Complements || e.Disjointness {
		sb.WriteString("C")
	}
	if e.RoleHierarchy {
		sb.WriteString("H")
	}
	if e.Nominals {
		sb.WriteString("O")
	}
	return sb.String()
}

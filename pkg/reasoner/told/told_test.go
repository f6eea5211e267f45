package told

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
)

func load(t *testing.T, doc string) (*axiom.Ontology, *Reasoner) {
	t.Helper()
	stmts, err := axiom.ParseDocument(strings.NewReader(doc))
	require.NoError(t, err)
	m := axiom.NewManager()
	ont, err := m.CreateOntology("test")
	require.NoError(t, err)
	ont.Add(stmts...)
	return ont, New(ont)
}

func cls(s string) axiom.ClassExpression { return axiom.Class(axiom.IRI(s)) }

// =============================================================================
// Hierarchy Tests
// =============================================================================

func TestChain(t *testing.T) {
	ctx := context.Background()
	_, r := load(t, "SubClassOf(A B)\nSubClassOf(B C)")
	require.NoError(t, r.Classify(ctx))

	subs, err := r.DirectSubClasses(ctx, axiom.Thing)
	require.NoError(t, err)
	assert.Equal(t, [][]axiom.IRI{{"C"}}, subs)

	subs, _ = r.DirectSubClasses(ctx, "C")
	assert.Equal(t, [][]axiom.IRI{{"B"}}, subs)

	subs, _ = r.DirectSubClasses(ctx, "A")
	assert.Empty(t, subs, "BOTTOM is never reported")

	ok, err := r.IsEntailed(ctx, axiom.SubClass(cls("A"), cls("C")))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = r.IsEntailed(ctx, axiom.SubClass(cls("C"), cls("A")))
	assert.False(t, ok)
}

func TestEquivalence(t *testing.T) {
	ctx := context.Background()
	_, r := load(t, `
EquivalentClasses(A B)
SubClassOf(C A)
SubClassOf(owl:Thing X)
`)
	eq, err := r.EquivalentClasses(ctx, cls("B"))
	require.NoError(t, err)
	assert.Equal(t, []axiom.IRI{"A", "B"}, eq)

	top, err := r.EquivalentClasses(ctx, axiom.Class(axiom.Thing))
	require.NoError(t, err)
	assert.Equal(t, []axiom.IRI{"X", axiom.Thing}, top)

	subs, _ := r.DirectSubClasses(ctx, "B")
	assert.Equal(t, [][]axiom.IRI{{"C"}}, subs)

	inter, err := r.EquivalentClasses(ctx, axiom.Intersection(cls("A"), cls("B")))
	require.NoError(t, err)
	assert.Equal(t, []axiom.IRI{"A", "B"}, inter)
}

func TestDisjointness(t *testing.T) {
	ctx := context.Background()
	_, r := load(t, `
DisjointClasses(A B)
SubClassOf(C A)
SubClassOf(C B)
SubClassOf(D ObjectComplementOf(A))
`)
	sat, err := r.IsSatisfiable(ctx, cls("C"))
	require.NoError(t, err)
	assert.False(t, sat)

	bottom, _ := r.EquivalentClasses(ctx, axiom.Class(axiom.Nothing))
	assert.Equal(t, []axiom.IRI{"C", axiom.Nothing}, bottom)

	subs, _ := r.DirectSubClasses(ctx, "A")
	assert.Empty(t, subs)

	tests := []struct {
		name string
		st   axiom.Statement
		want bool
	}{
		{"told disjoint", axiom.Disjoint(cls("A"), cls("B")), true},
		{"complement super", axiom.SubClass(cls("D"), axiom.Complement(cls("A"))), true},
		{"symmetric", axiom.SubClass(cls("A"), axiom.Complement(cls("D"))), true},
		{"complement sub", axiom.SubClass(axiom.Complement(cls("A")), axiom.Complement(cls("C"))), true},
		{"double negation", axiom.SubClass(cls("A"), axiom.Complement(axiom.Complement(cls("A")))), true},
		{"not disjoint", axiom.Disjoint(cls("B"), cls("D")), false},
		{"unsat below anything", axiom.SubClass(cls("C"), cls("D")), true},
		{"intersection unsat", axiom.SubClass(axiom.Intersection(cls("A"), cls("B")), axiom.Class(axiom.Nothing)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := r.IsEntailed(ctx, tt.st)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

// =============================================================================
// Instance Tests
// =============================================================================

func TestInstances(t *testing.T) {
	ctx := context.Background()
	_, r := load(t, `
SubClassOf(A B)
DisjointClasses(B D)
ClassAssertion(A a)
ClassAssertion(ObjectComplementOf(B) x)
ObjectPropertyAssertion(p a x)
SubObjectPropertyOf(p q)
`)
	got, err := r.Retrieve(ctx, "B", []axiom.IRI{"a", "x", "nobody"})
	require.NoError(t, err)
	assert.Equal(t, []axiom.IRI{"a"}, got)

	got, err = r.Instances(ctx, axiom.Complement(cls("D")))
	require.NoError(t, err)
	assert.Equal(t, []axiom.IRI{"a"}, got)

	got, err = r.Instances(ctx, axiom.Complement(cls("A")))
	require.NoError(t, err)
	assert.Equal(t, []axiom.IRI{"x"}, got)

	ok, err := r.IsEntailed(ctx, axiom.PropertyAssertion("q", "a", "x"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = r.IsEntailed(ctx, axiom.Assertion(cls("B"), "a"))
	assert.True(t, ok)

	assert.Equal(t, []axiom.IRI{"a", "x"}, r.Individuals())
}

func TestInconsistent(t *testing.T) {
	ctx := context.Background()
	_, r := load(t, `
DisjointClasses(A B)
ClassAssertion(A i)
ClassAssertion(B i)
`)
	ok, err := r.IsConsistent(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, r.Classify(ctx), reasoner.ErrInconsistent)
}

// =============================================================================
// Property Tests
// =============================================================================

func TestProperties(t *testing.T) {
	ctx := context.Background()
	_, r := load(t, `
SubObjectPropertyOf(p q)
EquivalentObjectProperties(q s)
SubObjectPropertyOf(q top)
`)
	eq, err := r.EquivalentObjectProperties(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []axiom.IRI{"q", "s"}, eq)

	sup, _ := r.SuperObjectProperties(ctx, "p", true)
	assert.Equal(t, [][]axiom.IRI{{"q", "s"}}, sup)

	sup, _ = r.SuperObjectProperties(ctx, "p", false)
	assert.Equal(t, [][]axiom.IRI{{"q", "s"}, {"top"}}, sup)

	sub, _ := r.SubObjectProperties(ctx, "top", false)
	assert.Equal(t, [][]axiom.IRI{{"p"}, {"q", "s"}}, sub)

	assert.True(t, r.Expressivity().RoleHierarchy)
}

// =============================================================================
// Lifecycle / Error Tests
// =============================================================================

func TestFlush(t *testing.T) {
	ctx := context.Background()
	ont, r := load(t, "SubClassOf(A B)")
	ont.Add(axiom.SubClass(cls("B"), cls("C")))

	ok, err := r.IsEntailed(ctx, axiom.SubClass(cls("B"), cls("C")))
	assert.ErrorIs(t, err, reasoner.ErrUnknownEntity, "buffered change not visible yet")
	assert.False(t, ok)

	r.Flush()
	ok, err = r.IsEntailed(ctx, axiom.SubClass(cls("A"), cls("C")))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not in profile", func(t *testing.T) {
		_, r := load(t, "SubClassOf(ObjectIntersectionOf(A B) C)")
		assert.ErrorIs(t, r.Classify(ctx), reasoner.ErrNotInProfile)
		assert.True(t, r.Expressivity().Intersections)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, r := load(t, "SubClassOf(A B)")
		_, err := r.IsSatisfiable(ctx, cls("Zzz"))
		assert.ErrorIs(t, err, reasoner.ErrUnknownEntity)
		_, err = r.DirectSubClasses(ctx, "Zzz")
		assert.ErrorIs(t, err, reasoner.ErrUnknownEntity)
	})

	t.Run("interrupted", func(t *testing.T) {
		_, r := load(t, "SubClassOf(A B)")
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, r.Classify(cctx), reasoner.ErrInterrupted)
	})

	t.Run("disposed", func(t *testing.T) {
		_, r := load(t, "SubClassOf(A B)")
		r.Dispose()
		_, err := r.DirectSubClasses(ctx, "A")
		assert.ErrorIs(t, err, reasoner.ErrDisposed)
	})
}

func TestFactory(t *testing.T) {
	m := axiom.NewManager()
	ont, _ := m.CreateOntology("f")
	r, err := Factory().New(ont)
	require.NoError(t, err)
	assert.Equal(t, []axiom.IRI{axiom.Nothing, axiom.Thing}, r.Classes())
}

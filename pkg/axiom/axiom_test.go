package axiom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Statement Tests
// =============================================================================

func TestStatement_String(t *testing.T) {
	tests := []struct {
		name string
		st   Statement
		want string
	}{
		{"subclass", SubClass(Class("A"), Class("B")), "SubClassOf(A B)"},
		{"equivalent sorted", Equivalent(Class("Z"), Class("A")), "EquivalentClasses(A Z)"},
		{"disjoint", Disjoint(Class("Dog"), Class("Cat")), "DisjointClasses(Cat Dog)"},
		{"complement", SubClass(Class("Cat"), Complement(Class("Plant"))), "SubClassOf(Cat ObjectComplementOf(Plant))"},
		{"intersection", SubClass(Intersection(Class("B"), Class("A")), Class("C")), "SubClassOf(ObjectIntersectionOf(A B) C)"},
		{"assertion", Assertion(Class("Cat"), "tom"), "ClassAssertion(Cat tom)"},
		{"property assertion", PropertyAssertion("knows", "a", "b"), "ObjectPropertyAssertion(knows a b)"},
		{"thing", SubClass(Class(Thing), Class("A")), "SubClassOf(owl:Thing A)"},
		{"declaration", Declare(Entity{Type: ClassEntity, IRI: "A"}), "Declaration(Class(A))"},
		{"bracketed iri", SubClass(Class("http://x.org/o#A"), Class("B")), "SubClassOf(<http://x.org/o#A> B)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.st.String())
		})
	}
}

func TestStatement_ID(t *testing.T) {
	a := Equivalent(Class("A"), Class("B"))
	b := Equivalent(Class("B"), Class("A"))
	assert.Equal(t, a.ID(), b.ID(), "canonical order makes ids stable")
	assert.Len(t, a.ID(), 32)
	assert.NotEqual(t, a.ID(), SubClass(Class("A"), Class("B")).ID())
}

func TestStatement_Signature(t *testing.T) {
	t.Run("builtins excluded", func(t *testing.T) {
		sig := SubClass(Class("A"), Class(Nothing)).Signature()
		assert.Equal(t, []Entity{{Type: ClassEntity, IRI: "A"}}, sig)
	})

	t.Run("nested expressions", func(t *testing.T) {
		st := SubClass(Intersection(Class("A"), Complement(Class("B"))), Class("C"))
		sig := st.Signature()
		assert.Len(t, sig, 3)
	})

	t.Run("abox", func(t *testing.T) {
		st := Assertion(Class("Cat"), "tom")
		assert.True(t, st.IsABox())
		assert.Contains(t, st.Signature(), Entity{Type: IndividualEntity, IRI: "tom"})
		assert.False(t, SubClass(Class("A"), Class("B")).IsABox())
	})
}

// =============================================================================
// Parser Tests
// =============================================================================

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		"SubClassOf(A B)",
		"EquivalentClasses(A B C)",
		"DisjointClasses(Cat Dog)",
		"SubClassOf(Cat ObjectComplementOf(Plant))",
		"SubClassOf(ObjectIntersectionOf(A B) C)",
		"ClassAssertion(Cat tom)",
		"ObjectPropertyAssertion(knows a b)",
		"SubObjectPropertyOf(hasMother hasParent)",
		"EquivalentObjectProperties(p q)",
		"Declaration(Class(A))",
		"Declaration(NamedIndividual(tom))",
		"Declaration(ObjectProperty(p))",
		"SubClassOf(owl:Nothing owl:Thing)",
		"SubClassOf(<http://x.org/o#A> <http://x.org/o#B>)",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			st, err := Parse(in)
			require.NoError(t, err)
			assert.Equal(t, in, st.String())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	bad := []string{
		"",
		"SubClassOf(A)",
		"SubClassOf(A B",
		"Frobnicate(A B)",
		"SubClassOf(ObjectUnionOf(A B) C)",
		"EquivalentClasses(A)",
		"SubClassOf(A B) extra",
		"SubClassOf(<A B)",
	}
	for _, in := range bad {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestParseClassExpression(t *testing.T) {
	for _, in := range []string{"A", "owl:Thing", "ObjectComplementOf(A)", "ObjectIntersectionOf(A ObjectComplementOf(B))"} {
		ce, err := ParseClassExpression(in)
		require.NoError(t, err, in)
		assert.Equal(t, in, ce.String())
	}

	for _, in := range []string{"", "A B", "ObjectUnionOf(A B)", "ObjectComplementOf(A"} {
		_, err := ParseClassExpression(in)
		assert.ErrorIs(t, err, ErrSyntax, in)
	}
}

func TestParseDocument(t *testing.T) {
	doc := `
# animals
SubClassOf(Cat Animal)   # trailing comment
SubClassOf(Dog
           Animal)
DisjointClasses(Cat Dog)
`
	stmts, err := ParseDocument(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, "SubClassOf(Dog Animal)", stmts[1].String())

	var sb strings.Builder
	require.NoError(t, Format(&sb, stmts))
	again, err := ParseDocument(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, stmts, again)
}

// =============================================================================
// Ontology / Manager Tests
// =============================================================================

func TestOntology_AddRemove(t *testing.T) {
	m := NewManager()
	ont, err := m.CreateOntology("kb")
	require.NoError(t, err)

	var seen []Change
	remove := m.AddListener(func(changes []Change) { seen = append(seen, changes...) })

	ab := SubClass(Class("A"), Class("B"))
	changes := ont.Add(ab, ab)
	assert.Len(t, changes, 1, "duplicate add is not effective")
	assert.True(t, ont.Contains(ab))

	changes = ont.Remove(SubClass(Class("X"), Class("Y")))
	assert.Empty(t, changes)

	ont.Remove(ab)
	require.Len(t, seen, 2)
	assert.Equal(t, AddStatement, seen[0].Op)
	assert.Equal(t, RemoveStatement, seen[1].Op)
	assert.Same(t, ont, seen[1].Ontology)

	remove()
	ont.Add(ab)
	assert.Len(t, seen, 2, "listener removed")
}

func TestOntology_Replace(t *testing.T) {
	m := NewManager()
	ont, err := m.CreateOntology("kb")
	require.NoError(t, err)
	ab := SubClass(Class("A"), Class("B"))
	bc := SubClass(Class("B"), Class("C"))
	ax := Assertion(Class("A"), "x")
	ont.Add(ab, ax)

	var batches int
	m.AddListener(func([]Change) { batches++ })

	changes := ont.Replace(ab, bc)
	require.Len(t, changes, 2)
	assert.Equal(t, RemoveStatement, changes[0].Op)
	assert.True(t, changes[0].Statement.Equal(ax))
	assert.Equal(t, AddStatement, changes[1].Op)
	assert.True(t, changes[1].Statement.Equal(bc))
	assert.Equal(t, 1, batches)

	assert.Empty(t, ont.Replace(bc, ab))
	assert.Len(t, ont.Replace(), 2)
	assert.Zero(t, ont.Len())
}

func TestManager_CreateDuplicate(t *testing.T) {
	m := NewManager()
	_, err := m.CreateOntology("kb")
	require.NoError(t, err)
	_, err = m.CreateOntology("kb")
	assert.ErrorIs(t, err, ErrOntologyExists)
}

func TestManager_Remove(t *testing.T) {
	m := NewManager()
	ont, _ := m.CreateOntology("kb")
	calls := 0
	m.AddListener(func([]Change) { calls++ })

	m.Remove(ont)
	assert.False(t, m.Contains(ont))
	assert.Nil(t, ont.Manager())

	ont.Add(SubClass(Class("A"), Class("B")))
	assert.Equal(t, 0, calls, "detached ontologies do not notify")
	assert.Equal(t, 1, ont.Len())
}

func TestOntology_ImportsClosure(t *testing.T) {
	m := NewManager()
	a, _ := m.CreateOntology("a")
	b, _ := m.CreateOntology("b")
	c, _ := m.CreateOntology("c")
	a.Import(b)
	b.Import(c)
	c.Import(a)

	closure := a.ImportsClosure()
	require.Len(t, closure, 3)
	assert.Same(t, a, closure[0])

	a.Add(SubClass(Class("A"), Class("B")))
	c.Add(SubClass(Class("B"), Class("C")))
	assert.Len(t, a.ClosureStatements(), 2)
}

func TestManager_CopyOntology(t *testing.T) {
	m := NewManager()
	src, _ := m.CreateOntology("src")
	src.Add(SubClass(Class("A"), Class("B")))

	cp, err := m.CopyOntology(src, "copy")
	require.NoError(t, err)
	cp.Add(SubClass(Class("B"), Class("C")))
	assert.Equal(t, 1, src.Len())
	assert.Equal(t, 2, cp.Len())
}

func TestDiff(t *testing.T) {
	m := NewManager()
	ont, _ := m.CreateOntology("kb")
	ab := SubClass(Class("A"), Class("B"))
	bc := SubClass(Class("B"), Class("C"))
	ad := SubClass(Class("A"), Class("D"))
	ont.Add(ab, ad)

	adds, dels := Diff([]Statement{ab, bc}, ont.ImportsClosure())
	assert.Equal(t, []Statement{ad}, adds)
	assert.Equal(t, []Statement{bc}, dels)

	adds, dels = Diff(ont.Statements(), ont.ImportsClosure())
	assert.Empty(t, adds)
	assert.Empty(t, dels)
}

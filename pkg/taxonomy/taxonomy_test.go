package taxonomy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds TOP > C > B > A > BOTTOM.
func chain(t *testing.T) *Taxonomy[string] {
	t.Helper()
	tax := New[string]("T", "_")
	_, err := tax.AddNode([]string{"C"}, nil, nil, false)
	require.NoError(t, err)
	_, err = tax.AddNode([]string{"B"}, []string{"C"}, nil, false)
	require.NoError(t, err)
	_, err = tax.AddNode([]string{"A"}, []string{"B"}, nil, false)
	require.NoError(t, err)
	return tax
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNew(t *testing.T) {
	tax := New[string]("T", "_")
	assert.Equal(t, []string{"_"}, names(tax.Top().Subs()))
	assert.Equal(t, []string{"T"}, names(tax.Bottom().Supers()))
	assert.Equal(t, 2, tax.Len())
	require.NoError(t, tax.Validate())
}

func TestAddNode(t *testing.T) {
	t.Run("default links", func(t *testing.T) {
		tax := New[string]("T", "_")
		n, err := tax.AddNode([]string{"X", "A"}, nil, nil, false)
		require.NoError(t, err)
		assert.Equal(t, "A", n.Name())
		assert.Equal(t, []string{"A", "X"}, n.Equivalents())
		assert.Equal(t, []string{"A"}, names(tax.Top().Subs()), "TOP no longer links BOTTOM directly")
		assert.Equal(t, []string{"A"}, names(tax.Bottom().Supers()))
		require.NoError(t, tax.Validate())
	})

	t.Run("chain", func(t *testing.T) {
		tax := chain(t)
		require.NoError(t, tax.Validate())
		assert.Equal(t, []string{"B", "C", "T"}, tax.FlattenedSupers("A", false))
		assert.Equal(t, []string{"B"}, tax.FlattenedSubs("C", true))
		assert.Equal(t, []string{"C"}, tax.FlattenedSubs("T", true))
		assert.Equal(t, []string{"A"}, tax.FlattenedSupers("_", true))
	})

	t.Run("insert between", func(t *testing.T) {
		tax := chain(t)
		_, err := tax.AddNode([]string{"AB"}, []string{"B"}, []string{"A"}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"AB"}, tax.FlattenedSupers("A", true))
		assert.Equal(t, []string{"AB"}, tax.FlattenedSubs("B", true))
		require.NoError(t, tax.Validate())
	})

	t.Run("errors", func(t *testing.T) {
		tax := chain(t)
		_, err := tax.AddNode(nil, nil, nil, false)
		assert.ErrorIs(t, err, ErrEmptyNode)
		_, err = tax.AddNode([]string{"A"}, nil, nil, false)
		assert.ErrorIs(t, err, ErrDuplicate)
		_, err = tax.AddNode([]string{"Z"}, []string{"missing"}, nil, false)
		assert.ErrorIs(t, err, ErrUnknown)
		assert.False(t, tax.Contains("Z"), "failed insert leaves no trace")
	})
}

func TestAddSupers_Diamond(t *testing.T) {
	tax := New[string]("T", "_")
	tax.AddNode([]string{"L"}, nil, nil, false)
	tax.AddNode([]string{"R"}, nil, nil, false)
	tax.AddNode([]string{"D"}, []string{"L"}, nil, false)
	require.NoError(t, tax.AddSupers("D", []string{"R"}))

	assert.Equal(t, []string{"L", "R"}, tax.FlattenedSupers("D", true))
	assert.Equal(t, []string{"L", "R"}, tax.FlattenedSubs("T", true))
	assert.Equal(t, []string{"D"}, tax.FlattenedSupers("_", true))
	require.NoError(t, tax.Validate())

	assert.ErrorIs(t, tax.AddSupers("T", []string{"D"}), ErrInvalidEdge)
}

func TestAddEquivalents(t *testing.T) {
	tax := chain(t)
	require.NoError(t, tax.AddEquivalents("_", []string{"Z", "0"}))
	n, ok := tax.Node("Z")
	require.True(t, ok)
	assert.Same(t, tax.Bottom(), n)
	assert.Equal(t, "0", tax.Bottom().Name())
	assert.ErrorIs(t, tax.AddEquivalents("_", []string{"A"}), ErrDuplicate)
	require.NoError(t, tax.Validate())
}

// =============================================================================
// Partial Order Law Tests
// =============================================================================

func TestPartialOrderLaws(t *testing.T) {
	tax := New[string]("T", "_")
	tax.AddNode([]string{"Animal"}, nil, nil, false)
	tax.AddNode([]string{"Pet"}, nil, nil, false)
	tax.AddNode([]string{"Cat"}, []string{"Animal", "Pet"}, nil, false)
	tax.AddNode([]string{"Dog"}, []string{"Animal", "Pet"}, nil, false)
	tax.AddNode([]string{"Kitten"}, []string{"Cat"}, nil, false)
	require.NoError(t, tax.Validate())

	for _, n := range tax.Nodes() {
		ancestors := tax.Supers(n, false)
		assert.NotContains(t, ancestors, n, "%v is its own proper ancestor", n)

		// transitive closure agrees with repeated direct traversal
		reached := map[*Node[string]]bool{}
		frontier := n.Supers()
		for len(frontier) > 0 {
			next := []*Node[string]{}
			for _, s := range frontier {
				if !reached[s] {
					reached[s] = true
					next = append(next, s.Supers()...)
				}
			}
			frontier = next
		}
		assert.Len(t, ancestors, len(reached))
		for _, a := range ancestors {
			assert.True(t, reached[a])
		}
	}
}

func TestTopologicalSort(t *testing.T) {
	tax := New[string]("T", "_")
	tax.AddNode([]string{"A"}, nil, nil, false)
	tax.AddNode([]string{"B"}, nil, nil, false)
	tax.AddNode([]string{"C"}, []string{"A", "B"}, nil, false)
	tax.AddNode([]string{"D"}, []string{"C"}, nil, false)

	sorted := tax.TopologicalSort()
	require.Len(t, sorted, tax.Len())
	pos := map[*Node[string]]int{}
	for i, n := range sorted {
		pos[n] = i
	}
	assert.Equal(t, 0, pos[tax.Top()])
	assert.Equal(t, len(sorted)-1, pos[tax.Bottom()])
	for _, n := range sorted {
		for _, s := range n.Supers() {
			assert.Less(t, pos[s], pos[n])
		}
	}
}

// =============================================================================
// Hidden Node Tests
// =============================================================================

func TestHiddenNodes(t *testing.T) {
	tax := chain(t)
	before := tax.Clone()

	h, err := tax.AddNode([]string{"notA"}, []string{"T"}, []string{"C"}, true)
	require.NoError(t, err)
	assert.True(t, h.IsHidden())
	assert.True(t, tax.Contains("notA"))
	assert.NotContains(t, tax.Classes(), "notA")
	assert.Equal(t, []string{"C"}, names(h.Subs()))
	assert.Equal(t, []string{"C"}, tax.FlattenedSubs("T", true), "real nodes do not see hidden ones")
	assert.True(t, tax.Equal(before))
	assert.Len(t, tax.TopologicalSort(), before.Len())

	assert.ErrorIs(t, tax.AddSupers("A", []string{"notA"}), ErrHiddenRelation)

	tax.RemoveHidden()
	assert.False(t, tax.Contains("notA"))
}

// =============================================================================
// Instance Cache Tests
// =============================================================================

func TestInstances(t *testing.T) {
	tax := chain(t)
	n, _ := tax.Node("A")

	_, ok := n.Instances()
	assert.False(t, ok)

	n.SetInstances([]string{"y", "x", "x"})
	ins, ok := n.Instances()
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, ins)

	n.SetInstances(nil)
	_, ok = n.Instances()
	assert.False(t, ok, "empty set clears the cache")

	n.SetInstances([]string{"x"})
	tax.ClearInstances()
	_, ok = n.Instances()
	assert.False(t, ok)
}

// =============================================================================
// Equality / Clone Tests
// =============================================================================

func TestEqualAndClone(t *testing.T) {
	a := chain(t)
	b := chain(t)
	assert.True(t, a.Equal(b))

	c := a.Clone()
	assert.True(t, a.Equal(c))
	c.AddNode([]string{"D"}, []string{"C"}, nil, false)
	assert.False(t, a.Equal(c))
	assert.False(t, a.Contains("D"), "clone is independent")

	d := chain(t)
	d.AddEquivalents("A", []string{"A2"})
	assert.False(t, a.Equal(d))
}

func TestPrint(t *testing.T) {
	tax := New[string]("T", "_")
	tax.AddNode([]string{"L"}, nil, nil, false)
	tax.AddNode([]string{"R"}, nil, nil, false)
	n, _ := tax.AddNode([]string{"D", "D2"}, []string{"L", "R"}, nil, false)
	n.SetInstances([]string{"i"})

	var sb strings.Builder
	require.NoError(t, Print(&sb, tax))
	want := "T\n  L\n    D = D2 {i}\n  R\n    D = D2 {i} ...\n"
	assert.Equal(t, want, sb.String())
}

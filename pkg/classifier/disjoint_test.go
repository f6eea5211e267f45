package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/metrics"
	"github.com/ThomasFarrenkopf/pellet/pkg/reasoner"
)

const disjointKB = `
DisjointClasses(A B)
SubClassOf(C B)
SubClassOf(D A)
SubClassOf(E ObjectComplementOf(A))
`

// =============================================================================
// DisjointClasses Tests
// =============================================================================

func TestDisjointClasses(t *testing.T) {
	ctx := context.Background()
	c := open(t, kb(t, disjointKB))

	tests := []struct {
		name   string
		ce     axiom.ClassExpression
		direct bool
		want   [][]axiom.IRI
	}{
		{"direct", cls("A"), true, [][]axiom.IRI{{"B"}, {"E"}}},
		{"all", cls("A"), false, [][]axiom.IRI{{"B"}, {"C"}, {"E"}, {axiom.Nothing}}},
		{"symmetric", cls("B"), true, [][]axiom.IRI{{"A"}}},
		{"inherited", cls("D"), true, [][]axiom.IRI{{"B"}, {"E"}}},
		{"anonymous", axiom.Intersection(cls("B"), cls("E")), true, [][]axiom.IRI{{"A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.DisjointClasses(ctx, tt.ce, tt.direct)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	n, ok := c.taxonomy.Node("A" + complementSuffix)
	require.True(t, ok)
	assert.True(t, n.IsHidden())
	assert.NotContains(t, c.Taxonomy().Classes(), axiom.IRI("A"+complementSuffix), "complements stay hidden")
}

func TestDisjointClasses_Deterministic(t *testing.T) {
	ctx := context.Background()
	ont := kb(t, disjointKB)
	c := open(t, ont)

	first, err := c.DisjointClasses(ctx, cls("A"), true)
	require.NoError(t, err)
	again, err := c.DisjointClasses(ctx, cls("A"), true)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, c.Timers().Count(metrics.DisjointInsert), "complement inserted once")

	ont.Add(st("SubClassOf(Z Y)"))
	require.NoError(t, c.Classify(ctx))
	assert.False(t, c.taxonomy.Contains("A"+complementSuffix), "new hierarchy starts without complements")

	after, err := c.DisjointClasses(ctx, cls("A"), true)
	require.NoError(t, err)
	assert.Equal(t, first, after)
	n, ok := c.taxonomy.Node("A" + complementSuffix)
	require.True(t, ok)
	assert.True(t, n.IsHidden())
	assert.Equal(t, 2, c.Timers().Count(metrics.DisjointInsert))
}

func TestDisjointClasses_ComplementNames(t *testing.T) {
	ctx := context.Background()

	t.Run("named class already taken", func(t *testing.T) {
		c := open(t, kb(t, "DisjointClasses(A B)\nSubClassOf(A-complement B)"))
		c.newID = func() string { return "x" }

		got, err := c.DisjointClasses(ctx, cls("A"), true)
		require.NoError(t, err)
		assert.Equal(t, [][]axiom.IRI{{"B"}}, got)

		real, ok := c.taxonomy.Node("A-complement")
		require.True(t, ok)
		assert.False(t, real.IsHidden())
		hidden, ok := c.taxonomy.Node(anonymousComplementBase + "x")
		require.True(t, ok)
		assert.True(t, hidden.IsHidden())
	})

	t.Run("anonymous identifiers are retried", func(t *testing.T) {
		c := open(t, kb(t, disjointKB), func(cfg *Config) { cfg.MaxComplementRetries = 3 })
		calls := 0
		c.newID = func() string {
			calls++
			return "fixed"
		}

		_, err := c.DisjointClasses(ctx, axiom.Intersection(cls("B"), cls("E")), true)
		require.NoError(t, err)
		_, err = c.DisjointClasses(ctx, axiom.Intersection(cls("B"), cls("E")), false)
		require.NoError(t, err)
		assert.Equal(t, 1, calls, "identifier reused for the same expression")

		_, err = c.DisjointClasses(ctx, axiom.Intersection(cls("C"), cls("E")), true)
		assert.ErrorIs(t, err, ErrInvariantViolation)
		assert.Equal(t, 4, calls)
		assert.True(t, c.IsClassified(), "a failed insertion leaves the hierarchy alone")
	})

	t.Run("unknown class", func(t *testing.T) {
		c := open(t, kb(t, disjointKB))
		_, err := c.DisjointClasses(ctx, cls("Zzz"), true)
		assert.ErrorIs(t, err, reasoner.ErrUnknownEntity)
	})
}

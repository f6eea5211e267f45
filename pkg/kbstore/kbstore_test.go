package kbstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func texts(stmts []axiom.Statement) []string {
	out := make([]string, len(stmts))
	for i, st := range stmts {
		out[i] = st.String()
	}
	return out
}

var (
	aSubB = axiom.MustParse("SubClassOf(A B)")
	bSubC = axiom.MustParse("SubClassOf(B C)")
	aOfX  = axiom.MustParse("ClassAssertion(A x)")
)

// =============================================================================
// Edit Tests
// =============================================================================

func TestAddRemove(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	n, err := s.Add(ctx, bSubC, aSubB, aSubB)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "duplicates are ignored")

	n, err = s.Add(ctx, aSubB)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	size, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	got, err := s.Statements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SubClassOf(A B)", "SubClassOf(B C)"}, texts(got))

	n, err = s.Remove(ctx, aSubB, aOfX)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "absent statements are not removed")

	got, err = s.Statements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SubClassOf(B C)"}, texts(got))
}

func TestChanges(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	_, err := s.Add(ctx, aSubB, bSubC)
	require.NoError(t, err)
	_, err = s.Add(ctx, aSubB)
	require.NoError(t, err)
	_, err = s.Remove(ctx, aSubB)
	require.NoError(t, err)

	changes, err := s.Changes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, changes, 3, "no-op edits are not journaled")

	assert.Equal(t, axiom.AddStatement, changes[0].Op)
	assert.Equal(t, "SubClassOf(A B)", changes[0].Statement.String())
	assert.Equal(t, axiom.AddStatement, changes[1].Op)
	assert.Equal(t, axiom.RemoveStatement, changes[2].Op)
	assert.Equal(t, "SubClassOf(A B)", changes[2].Statement.String())
	assert.True(t, at.Equal(changes[2].At))

	later, err := s.Changes(ctx, changes[1].Seq)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, changes[2].Seq, later[0].Seq)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	n, err := s.Import(ctx, strings.NewReader("SubClassOf(A B)\n\nClassAssertion(A x)\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Import(ctx, strings.NewReader("SubClassOf(A"))
	assert.Error(t, err)
	size, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size, "a bad document adds nothing")
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Add(ctx, aSubB, aOfX)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Statements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ClassAssertion(A x)", "SubClassOf(A B)"}, texts(got))
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Add(ctx, aSubB)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Statements(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Len(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Changes(ctx, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

// =============================================================================
// Sync Tests
// =============================================================================

func TestSync(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	_, err := s.Add(ctx, aSubB, bSubC)
	require.NoError(t, err)

	m := axiom.NewManager()
	ont, err := m.CreateOntology("kb")
	require.NoError(t, err)
	ont.Add(aSubB, aOfX)

	var batches [][]axiom.Change
	m.AddListener(func(changes []axiom.Change) { batches = append(batches, changes) })

	applied, err := s.Sync(ctx, ont)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, axiom.RemoveStatement, applied[0].Op)
	assert.Equal(t, "ClassAssertion(A x)", applied[0].Statement.String())
	assert.Equal(t, axiom.AddStatement, applied[1].Op)
	assert.Equal(t, "SubClassOf(B C)", applied[1].Statement.String())
	assert.Len(t, batches, 1, "one notification per sync")

	assert.Equal(t, []string{"SubClassOf(A B)", "SubClassOf(B C)"}, texts(ont.Statements()))

	applied, err = s.Sync(ctx, ont)
	require.NoError(t, err)
	assert.Empty(t, applied, "already in sync")
}

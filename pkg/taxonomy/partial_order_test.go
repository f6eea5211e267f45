package taxonomy

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// divides orders positive integers by divisibility: a is below b when b
// divides a. 1 is TOP and 0 is BOTTOM.
func divides(a, b int) (Relation, error) {
	ab := a%b == 0
	ba := b%a == 0
	switch {
	case ab && ba:
		return Equal, nil
	case ab:
		return Less, nil
	case ba:
		return Greater, nil
	}
	return Incomparable, nil
}

func expectedDivisors() *Taxonomy[int] {
	tax := New[int](1, 0)
	tax.AddNode([]int{2}, nil, nil, false)
	tax.AddNode([]int{3}, nil, nil, false)
	tax.AddNode([]int{4}, []int{2}, nil, false)
	tax.AddNode([]int{6}, []int{2, 3}, nil, false)
	tax.AddNode([]int{12}, []int{4, 6}, nil, false)
	return tax
}

func TestPartialOrderBuilder_AnyOrder(t *testing.T) {
	want := expectedDivisors()
	elems := []int{2, 3, 4, 6, 12}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 20; i++ {
		rng.Shuffle(len(elems), func(a, b int) { elems[a], elems[b] = elems[b], elems[a] })
		tax := New[int](1, 0)
		b := NewPartialOrderBuilder[int](tax, ComparatorFunc[int](divides))
		for _, e := range elems {
			_, err := b.Add(e, false)
			require.NoError(t, err)
		}
		require.NoError(t, tax.Validate())
		assert.True(t, tax.Equal(want), "order %v", elems)
	}
}

func TestPartialOrderBuilder_Equal(t *testing.T) {
	tax := expectedDivisors()
	sameAs := func(a, b int) (Relation, error) {
		if a == 100 {
			a = 6
		}
		return divides(a, b)
	}
	b := NewPartialOrderBuilder[int](tax, ComparatorFunc[int](sameAs))

	t.Run("visible joins the equal node", func(t *testing.T) {
		n, err := b.Add(100, false)
		require.NoError(t, err)
		assert.Equal(t, []int{6, 100}, n.Equivalents())
	})

	t.Run("existing member is returned unchanged", func(t *testing.T) {
		before := b.Comparisons()
		n, err := b.Add(4, false)
		require.NoError(t, err)
		assert.Equal(t, 4, n.Name())
		assert.Equal(t, before, b.Comparisons())
	})
}

func TestPartialOrderBuilder_HiddenEqual(t *testing.T) {
	tax := expectedDivisors()
	alias := func(a, b int) (Relation, error) {
		if a == 1000 {
			a = 6
		}
		return divides(a, b)
	}
	b := NewPartialOrderBuilder[int](tax, ComparatorFunc[int](alias))
	h, err := b.Add(1000, true)
	require.NoError(t, err)
	assert.True(t, h.IsHidden())
	assert.Equal(t, []int{6}, names(h.Subs()))
	assert.Equal(t, []int{2, 3}, names(h.Supers()))
	assert.True(t, tax.Equal(expectedDivisors()))
}

func TestPartialOrderBuilder_Hidden(t *testing.T) {
	tax := expectedDivisors()
	b := NewPartialOrderBuilder[int](tax, ComparatorFunc[int](divides))

	// 4 sits under 2 and above 12; as a hidden element it must not disturb
	// the graph.
	tax2 := New[int](1, 0)
	tax2.AddNode([]int{2}, nil, nil, false)
	tax2.AddNode([]int{3}, nil, nil, false)
	tax2.AddNode([]int{6}, []int{2, 3}, nil, false)
	tax2.AddNode([]int{12}, []int{6}, nil, false)
	b2 := NewPartialOrderBuilder[int](tax2, ComparatorFunc[int](divides))
	h, err := b2.Add(4, true)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, names(h.Supers()))
	assert.Equal(t, []int{12}, names(h.Subs()))
	assert.Equal(t, []int{6}, tax2.FlattenedSupers(12, true))

	// nothing below 5 yet: its subs are BOTTOM
	h5, err := b.Add(5, true)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, names(h5.Supers()))
	assert.Equal(t, []int{0}, names(h5.Subs()))
}

func TestPartialOrderBuilder_FewerComparisonsThanPairs(t *testing.T) {
	tax := New[int](1, 0)
	b := NewPartialOrderBuilder[int](tax, ComparatorFunc[int](divides))
	// a chain of powers of two and an unrelated odd branch
	n := 0
	for v := 2; v <= 1<<12; v *= 2 {
		_, err := b.Add(v, false)
		require.NoError(t, err)
		n++
	}
	for v := 3; v <= 3*3*3*3*3; v *= 3 {
		_, err := b.Add(v, false)
		require.NoError(t, err)
		n++
	}
	require.NoError(t, tax.Validate())
	assert.Less(t, b.Comparisons(), n*(n-1)/2)
}

func TestPartialOrderBuilder_ComparatorError(t *testing.T) {
	tax := expectedDivisors()
	boom := errors.New("boom")
	b := NewPartialOrderBuilder[int](tax, ComparatorFunc[int](func(a, b int) (Relation, error) {
		return Incomparable, boom
	}))
	_, err := b.Add(5, false)
	assert.ErrorIs(t, err, boom)
	assert.False(t, tax.Contains(5))
}

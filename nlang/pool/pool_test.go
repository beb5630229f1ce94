package pool

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolReservedValues(t *testing.T) {
	p := New()
	require.Equal(t, 16, p.Len())

	cases := []struct {
		idx  Index
		want float64
	}{
		{IdxOne, 1},
		{IdxTen, 10},
		{IdxTenth, 0.1},
		{IdxQuarter, 0.25},
		{IdxHalf, 0.5},
		{IdxTwo, 2},
		{IdxFour, 4},
		{IdxZero, 0},
		{IdxPi, math.Pi},
		{IdxHalfPi, math.Pi / 2},
		{IdxSqrt2, math.Sqrt2},
		{IdxThree, 3},
		{IdxFive, 5},
	}
	for _, c := range cases {
		v, ok := p.Value(c.idx)
		require.True(t, ok)
		assert.InDelta(t, c.want, v, 1e-12)
	}
}

func TestGetIndexReturnsReservedIndexWithoutGrowing(t *testing.T) {
	p := New()
	before := p.Len()
	idx, err := p.GetIndex(1.0)
	require.NoError(t, err)
	assert.Equal(t, IdxOne, idx)
	assert.Equal(t, before, p.Len())
}

func TestGetIndexAppendsNovelLiteral(t *testing.T) {
	p := New()
	idx, err := p.GetIndex(42.5)
	require.NoError(t, err)
	assert.Equal(t, Index(17), idx)
	v, ok := p.Value(idx)
	require.True(t, ok)
	assert.Equal(t, 42.5, v)

	// Same literal again should reuse the slot rather than grow further.
	idx2, err := p.GetIndex(42.5)
	require.NoError(t, err)
	assert.Equal(t, idx, idx2)
	assert.Equal(t, 17, p.Len())
}

func TestBorrowedPoolClonesOnGrowth(t *testing.T) {
	owner := New()
	borrowed := owner.Borrow()
	assert.False(t, borrowed.IsOwned())

	idx, err := borrowed.GetIndex(99.0)
	require.NoError(t, err)
	assert.True(t, borrowed.IsOwned(), "pool must become owned once grown")

	// The owner's pool must be unaffected by the borrower's growth.
	assert.Equal(t, 16, owner.Len())
	v, ok := borrowed.Value(idx)
	require.True(t, ok)
	assert.Equal(t, 99.0, v)
}

func TestCopyAndOwnResetsRefcount(t *testing.T) {
	owner := New()
	owner.Acquire()
	clone := owner.CopyAndOwn()
	assert.True(t, clone.IsOwned())
	assert.True(t, clone.Release(), "fresh clone has refcount 1, so its first Release is the last")
}

func TestAcquireReleaseRefcounting(t *testing.T) {
	p := New()
	p.Acquire()
	assert.False(t, p.Release())
	assert.True(t, p.Release())
}

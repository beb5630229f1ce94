package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocGrowsAndZeroFills(t *testing.T) {
	a := New()
	buf, err := a.Alloc(16)
	require.NoError(t, err)
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}
	buf[0] = 0xFF
	assert.Equal(t, 16, a.Used())
}

func TestStampReleaseRewindsAllocations(t *testing.T) {
	a := New()
	_, err := a.Alloc(32)
	require.NoError(t, err)
	before := a.Used()

	s := a.Stamp()
	_, err = a.Alloc(128)
	require.NoError(t, err)
	assert.Greater(t, a.Used(), before)

	a.Release(s)
	assert.Equal(t, before, a.Used())
}

func TestOverflowChainsNewBlockWithoutInvalidatingEarlierPointers(t *testing.T) {
	a := New()
	first, err := a.Alloc(8)
	require.NoError(t, err)
	first[0] = 0x42

	// Force at least one additional block by requesting more than the
	// default block size in one go.
	_, err = a.Alloc(DefaultBlockSize + 1)
	require.NoError(t, err)

	assert.Equal(t, byte(0x42), first[0], "earlier allocation must survive chaining")
}

func TestReleaseCanDiscardChainedBlocks(t *testing.T) {
	a := New()
	s := a.Stamp()
	_, err := a.Alloc(DefaultBlockSize + 1)
	require.NoError(t, err)
	require.Len(t, a.blocks, 2)

	a.Release(s)
	assert.Len(t, a.blocks, 1)
	assert.Equal(t, 0, a.Used())
}

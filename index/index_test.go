package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	assert.Equal(t, "flat", KindFlat.String())
	assert.Equal(t, "hct", KindHCT.String())
	assert.Equal(t, "unknown", Kind(42).String())

	k, err := ParseKind(" HCT ")
	require.NoError(t, err)
	assert.Equal(t, KindHCT, k)

	k, err = ParseKind("flat")
	require.NoError(t, err)
	assert.Equal(t, KindFlat, k)

	_, err = ParseKind("hnsw")
	assert.Error(t, err)
}

func TestCheckBuild(t *testing.T) {
	n, err := CheckBuild(make([]byte, 64), 32)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = CheckBuild(nil, 32)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = CheckBuild(make([]byte, 65), 32)
	assert.Error(t, err)

	_, err = CheckBuild(make([]byte, 64), 0)
	assert.Error(t, err)
}

func TestCheckQuery(t *testing.T) {
	assert.ErrorIs(t, CheckQuery(make([]byte, 4), 0), ErrNotBuilt)

	err := CheckQuery(make([]byte, 4), 8)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 8, dm.Expected)
	assert.Equal(t, 4, dm.Actual)
	assert.Contains(t, err.Error(), "expected 8, got 4")

	assert.NoError(t, CheckQuery(make([]byte, 8), 8))
}

func TestCollector(t *testing.T) {
	c := NewCollector(3)
	for i, d := range []int{9, 4, 7, 4, 1, 8} {
		c.Offer(i, d)
	}
	assert.True(t, c.Full())
	worst, ok := c.Worst()
	require.True(t, ok)
	assert.Equal(t, 4, worst)

	assert.Equal(t, []Neighbor{
		{Index: 4, Distance: 1},
		{Index: 1, Distance: 4},
		{Index: 3, Distance: 4},
	}, c.Results())
}

func TestCollectorTiesKeepLowerIndex(t *testing.T) {
	c := NewCollector(2)
	c.Offer(5, 3)
	c.Offer(7, 3)
	c.Offer(2, 3)
	assert.Equal(t, []Neighbor{{Index: 2, Distance: 3}, {Index: 5, Distance: 3}}, c.Results())
}

func TestCollectorZeroK(t *testing.T) {
	c := NewCollector(0)
	c.Offer(1, 1)
	assert.Empty(t, c.Results())
}

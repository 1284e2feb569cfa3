package flat

import (
	"context"
	"testing"

	"github.com/hupe1980/vismatch/index"
	"github.com/hupe1980/vismatch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlat(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		f := New()
		descs := []byte{
			0x00, 0x00,
			0xFF, 0x00,
			0x0F, 0x00,
			0x01, 0x00,
		}
		require.NoError(t, f.Build(context.Background(), descs, 2))
		assert.Equal(t, 4, f.Len())

		res, err := f.Search([]byte{0x00, 0x00}, 2)
		require.NoError(t, err)
		assert.Equal(t, []index.Neighbor{{Index: 0, Distance: 0}, {Index: 3, Distance: 1}}, res)

		res, err = f.Search([]byte{0xFF, 0x00}, 10)
		require.NoError(t, err)
		require.Len(t, res, 4)
		assert.Equal(t, index.Neighbor{Index: 1, Distance: 0}, res[0])
		assert.Equal(t, index.Neighbor{Index: 0, Distance: 8}, res[3])
	})

	t.Run("TiesByLowerIndex", func(t *testing.T) {
		f := New()
		descs := []byte{0x03, 0x01, 0x02, 0x01}
		require.NoError(t, f.Build(context.Background(), descs, 1))

		res, err := f.Search([]byte{0x01}, 2)
		require.NoError(t, err)
		assert.Equal(t, []index.Neighbor{{Index: 1, Distance: 0}, {Index: 3, Distance: 0}}, res)
	})

	t.Run("NotBuilt", func(t *testing.T) {
		_, err := New().Search([]byte{0x00}, 1)
		assert.ErrorIs(t, err, index.ErrNotBuilt)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		f := New()
		require.NoError(t, f.Build(context.Background(), make([]byte, 8), 4))
		_, err := f.Search([]byte{0x00}, 1)
		assert.IsType(t, &index.ErrDimensionMismatch{}, err)
	})

	t.Run("Empty", func(t *testing.T) {
		f := New()
		require.NoError(t, f.Build(context.Background(), nil, 4))
		res, err := f.Search(make([]byte, 4), 2)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("InvalidBuffer", func(t *testing.T) {
		assert.Error(t, New().Build(context.Background(), make([]byte, 5), 4))
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, New().Build(ctx, make([]byte, 8), 4), context.Canceled)
	})
}

func TestFlatMatchesGroundTruth(t *testing.T) {
	const bpf = 32
	rng := testutil.NewRNG(17)
	descs := rng.Descriptors(300, bpf)

	f := New()
	require.NoError(t, f.Build(context.Background(), descs, bpf))

	for range 20 {
		q := rng.Descriptors(1, bpf)
		wantIdx, wantDist := testutil.ExactNearest(q, descs, bpf)
		res, err := f.Search(q, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, wantIdx, res[0].Index)
		assert.Equal(t, wantDist, res[0].Distance)
	}
}

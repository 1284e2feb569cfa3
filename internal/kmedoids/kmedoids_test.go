package kmedoids

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/hupe1980/vismatch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestTrainSeparatesClusters(t *testing.T) {
	const (
		bpf      = 32
		clusters = 4
		n        = 200
	)
	rng := testutil.NewRNG(1)
	descs := rng.ClusteredDescriptors(n, bpf, clusters, 4)

	res, err := Train(context.Background(), descs, bpf, seq(n), clusters, 10, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	require.Len(t, res.Medoids, clusters)
	require.Len(t, res.Assign, n)

	// Points generated from the same centre end up together.
	label := map[int]int{}
	for i, a := range res.Assign {
		c := i % clusters
		if prev, ok := label[c]; ok {
			assert.Equal(t, prev, a, "point %d", i)
		} else {
			label[c] = a
		}
	}
}

func TestTrainFinalAssignmentIsClosest(t *testing.T) {
	const bpf = 16
	rng := testutil.NewRNG(5)
	descs := rng.Descriptors(100, bpf)
	members := seq(100)

	res, err := Train(context.Background(), descs, bpf, members, 8, 4, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)

	for i, p := range members {
		want := Closest(descs[p*bpf:(p+1)*bpf], descs, bpf, res.Medoids)
		assert.Equal(t, want, res.Assign[i])
	}
}

func TestTrainDeterministic(t *testing.T) {
	const bpf = 16
	descs := testutil.NewRNG(9).Descriptors(120, bpf)

	a, err := Train(context.Background(), descs, bpf, seq(120), 6, 4, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	b, err := Train(context.Background(), descs, bpf, seq(120), 6, 4, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTrainFewMembers(t *testing.T) {
	const bpf = 8
	descs := testutil.NewRNG(2).Descriptors(10, bpf)

	res, err := Train(context.Background(), descs, bpf, []int{3, 5, 7}, 8, 4, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 7}, res.Medoids)
	assert.Equal(t, []int{0, 1, 2}, res.Assign)
}

func TestTrainInvalidArguments(t *testing.T) {
	_, err := Train(context.Background(), nil, 8, nil, 0, 4, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Train(context.Background(), nil, 0, nil, 4, 4, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTrainContextCancelled(t *testing.T) {
	const bpf = 16
	descs := testutil.NewRNG(4).Descriptors(100, bpf)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Train(ctx, descs, bpf, seq(100), 4, 4, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClosestTiesToLowestPosition(t *testing.T) {
	descs := []byte{0x00, 0x0F, 0x0F, 0xFF}
	// Query 0x0F equals medoids at positions 1 and 2 (points 1 and 2).
	assert.Equal(t, 1, Closest([]byte{0x0F}, descs, 1, []int{0, 1, 2, 3}))
	assert.Equal(t, 0, Closest([]byte{0x0F}, descs, 1, []int{2, 1}))
}

package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hupe1980/vismatch/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	blobstore.Store
}

func (failingStore) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestRecorder_RecordAndLoad(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	rec := NewRecorder(store, WithCompression(CompressionLZ4))

	want := sampleRefset(50)
	name, err := rec.Record(ctx, want)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "refsets/17/"))
	assert.True(t, strings.HasSuffix(name, Extension))

	got, err := Load(ctx, store, name)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	rec.ObserveEnrollment(ctx, want)

	names, err := List(ctx, store, "refsets/", 17)
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Contains(t, names, name)

	assert.Equal(t, Stats{Written: 2}, rec.Stats())
}

func TestRecorder_Prefix(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	rec := NewRecorder(store, WithPrefix("diag/"), WithCompression(CompressionNone))

	name, err := rec.Record(ctx, sampleRefset(1))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "diag/17/"))

	names, err := List(ctx, store, "refsets/", 17)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRecorder_RateLimit(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	rec := NewRecorder(store, WithRateLimit(0.001, 1))

	_, err := rec.Record(ctx, sampleRefset(1))
	require.NoError(t, err)
	_, err = rec.Record(ctx, sampleRefset(1))
	assert.ErrorIs(t, err, ErrRateLimited)

	rec.ObserveEnrollment(ctx, sampleRefset(1))

	assert.Equal(t, Stats{Written: 1, Dropped: 2}, rec.Stats())
	assert.Equal(t, 1, store.Len())
}

func TestRecorder_StoreFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rec := NewRecorder(failingStore{}, WithLogger(logger))

	assert.NotPanics(t, func() {
		rec.ObserveEnrollment(context.Background(), sampleRefset(1))
	})

	assert.Equal(t, Stats{Failed: 1}, rec.Stats())
	assert.Contains(t, buf.String(), "refset export failed")
	assert.Contains(t, buf.String(), "image_id=17")
	assert.Contains(t, buf.String(), "disk full")
}

func TestRecorder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := blobstore.NewMemoryStore()
	rec := NewRecorder(store)

	_, err := rec.Record(ctx, sampleRefset(1))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := Load(ctx, store, "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, "refsets/1/bad.vmr", []byte("garbage")))
	_, err = Load(ctx, store, "refsets/1/bad.vmr")
	assert.ErrorIs(t, err, ErrCorrupt)
}

// getOnly hides any Viewer implementation of the wrapped store.
type getOnly struct{ blobstore.Store }

func TestLoad_Stores(t *testing.T) {
	ctx := context.Background()
	want := sampleRefset(40)

	stores := map[string]blobstore.Store{
		"Memory":  blobstore.NewMemoryStore(),
		"Local":   blobstore.NewLocalStore(t.TempDir()),
		"GetOnly": getOnly{blobstore.NewMemoryStore()},
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
				rec := NewRecorder(store, WithCompression(comp), WithPrefix(comp.String()+"/"))
				key, err := rec.Record(ctx, want)
				require.NoError(t, err)

				got, err := Load(ctx, store, key)
				require.NoError(t, err)
				// The decoded refset outlives any mapping of the blob.
				assert.Equal(t, want, got)
			}

			require.NoError(t, store.Put(ctx, "bad.vmr", []byte("VMRS")))
			_, err := Load(ctx, store, "bad.vmr")
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.ErrorContains(t, err, "bad.vmr")
		})
	}
}

package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "refsets/1.json")
	assert.ErrorIs(t, err, ErrNotFound)

	data := []byte(`{"imageId":1}`)
	require.NoError(t, s.Put(ctx, "refsets/1.json", data))
	require.NoError(t, s.Put(ctx, "refsets/2.json", []byte("two")))
	require.NoError(t, s.Put(ctx, "other/x", []byte("x")))

	data[0] = 'X'
	got, err := s.Get(ctx, "refsets/1.json")
	require.NoError(t, err)
	assert.Equal(t, `{"imageId":1}`, string(got))

	require.NoError(t, s.Put(ctx, "refsets/2.json", []byte("deux")))
	got, err = s.Get(ctx, "refsets/2.json")
	require.NoError(t, err)
	assert.Equal(t, "deux", string(got))

	names, err := s.List(ctx, "refsets/")
	require.NoError(t, err)
	assert.Equal(t, []string{"refsets/1.json", "refsets/2.json"}, names)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"other/x", "refsets/1.json", "refsets/2.json"}, all)

	require.NoError(t, s.Delete(ctx, "refsets/1.json"))
	require.NoError(t, s.Delete(ctx, "refsets/1.json"))
	_, err = s.Get(ctx, "refsets/1.json")
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.Put(cancelled, "late", nil), context.Canceled)
	_, err = s.Get(cancelled, "other/x")
	assert.ErrorIs(t, err, context.Canceled)
}

func exerciseViewer(t *testing.T, s interface {
	Store
	Viewer
}) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "refsets/7.vmr", []byte("snapshot")))

	var seen string
	require.NoError(t, s.View(ctx, "refsets/7.vmr", func(data []byte) error {
		seen = string(data)
		return nil
	}))
	assert.Equal(t, "snapshot", seen)

	errDecode := errors.New("decode")
	err := s.View(ctx, "refsets/7.vmr", func([]byte) error { return errDecode })
	assert.ErrorIs(t, err, errDecode)

	err = s.View(ctx, "refsets/missing.vmr", func([]byte) error {
		t.Fatal("fn called for a missing blob")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.View(cancelled, "refsets/7.vmr", func([]byte) error { return nil }), context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.Equal(t, 2, s.Len())
	exerciseViewer(t, s)
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root)
	assert.Equal(t, root, s.Root())
	exerciseStore(t, s)

	_, err := os.Stat(filepath.Join(root, "refsets", "2.json"))
	require.NoError(t, err)
	exerciseViewer(t, s)
}

func TestLocalStore_EmptyBlob(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "empty", nil))
	got, err := s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.View(ctx, "empty", func(data []byte) error {
		assert.Empty(t, data)
		return nil
	}))
}

func TestLocalStore_MissingRoot(t *testing.T) {
	s := NewLocalStore(filepath.Join(t.TempDir(), "absent"))

	names, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

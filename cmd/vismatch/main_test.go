package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/hupe1980/vismatch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string, seed int64) string {
	t.Helper()
	const w, h = 320, 240

	img := image.NewGray(image.Rect(0, 0, w, h))
	copy(img.Pix, testutil.NewRNG(seed).TexturedImage(w, h, 60))

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestEnrollAndQuery_Text(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 1)
	b := writePNG(t, dir, "b.png", 2)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"enroll-and-query", a, b, b}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "enrolled 0 "+a)
	assert.Contains(t, out, "enrolled 1 "+b)
	assert.Contains(t, out, "matched 1 with")
	assert.Contains(t, out, "homography")
}

func TestEnrollAndQuery_JSONWithDiagnosticsAndMetrics(t *testing.T) {
	dir := t.TempDir()
	diag := t.TempDir()
	a := writePNG(t, dir, "a.png", 1)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"enroll-and-query", "-json", "-metrics", "-diag", diag, a, a}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	var report queryReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.True(t, report.Found)
	assert.Equal(t, 0, report.MatchedID)
	assert.Equal(t, report.Tentative, report.Inliers)
	assert.Len(t, report.Homography, 9)
	require.Len(t, report.Enrolled, 1)
	assert.Positive(t, report.Enrolled[0].Points)

	entries, err := os.ReadDir(filepath.Join(diag, "refsets", "0"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Contains(t, stderr.String(), "vismatch.query.total")
}

func TestFeatures(t *testing.T) {
	a := writePNG(t, t.TempDir(), "a.png", 3)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"features", "-json", a}, &stdout, &stderr))

	var got map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.EqualValues(t, 320, got["width"])
	assert.EqualValues(t, 240, got["height"])
	assert.Positive(t, got["points"])
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ctx := context.Background()

	assert.ErrorIs(t, run(ctx, nil, &stdout, &stderr), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"enroll-and-query", "only.png"}, &stdout, &stderr), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"bogus"}, &stdout, &stderr), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"features", "-nope"}, &stdout, &stderr), errUsage)
	assert.Contains(t, stderr.String(), "Usage:")

	stdout.Reset()
	require.NoError(t, run(ctx, []string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "enroll-and-query")
}

func TestRun_MissingImage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"features", filepath.Join(t.TempDir(), "none.png")}, &stdout, &stderr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

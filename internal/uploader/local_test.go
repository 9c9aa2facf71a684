package uploader

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalUploaderCopiesAndWritesSidecar(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.Mkdir(src, 0o755))

	srcFile := filepath.Join(src, "reading.dat")
	require.NoError(t, os.WriteFile(srcFile, []byte("payload"), 0o644))

	u, err := NewLocalUploader(dst)
	require.NoError(t, err)
	defer u.Close()

	meta := map[string]string{
		"filename":      "site_reading.dat",
		"original_path": srcFile,
		"site":          "w01",
	}
	require.NoError(t, u.Upload(context.Background(), srcFile, meta))

	got, err := os.ReadFile(filepath.Join(dst, "site_reading.dat"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	raw, err := os.ReadFile(filepath.Join(dst, "site_reading.dat.meta.json"))
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, srcFile, decoded["original_path"])
	assert.Equal(t, "w01", decoded["site"])

	// No temp droppings left behind.
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLocalUploaderDefaultsToBaseName(t *testing.T) {
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(srcFile, []byte("x"), 0o644))

	u, err := NewLocalUploader(filepath.Join(dir, "out"))
	require.NoError(t, err)

	require.NoError(t, u.Upload(context.Background(), srcFile, map[string]string{}))
	_, err = os.Stat(filepath.Join(dir, "out", "plain.txt"))
	assert.NoError(t, err)
}

func TestLocalUploaderMissingSource(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir)
	require.NoError(t, err)

	err = u.Upload(context.Background(), filepath.Join(dir, "nope.txt"), map[string]string{})
	assert.Error(t, err)
}

func TestLocalUploaderCancelledContext(t *testing.T) {
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(srcFile, []byte("x"), 0o644))

	u, err := NewLocalUploader(filepath.Join(dir, "out"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, u.Upload(ctx, srcFile, nil))
}

package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/forager/internal/event"
	"github.com/bamsammich/forager/internal/ledger"
	"github.com/bamsammich/forager/internal/stats"
)

// mockUploader records calls and fails the paths it is told to fail.
type mockUploader struct {
	uploads []string
	meta    map[string]map[string]string
	fail    map[string]error
}

func newMockUploader() *mockUploader {
	return &mockUploader{
		meta: make(map[string]map[string]string),
		fail: make(map[string]error),
	}
}

func (m *mockUploader) Upload(_ context.Context, path string, metadata map[string]string) error {
	if err := m.fail[path]; err != nil {
		return err
	}
	m.uploads = append(m.uploads, path)
	m.meta[path] = metadata
	return nil
}

func (m *mockUploader) Close() error { return nil }

func newDispatcher(t *testing.T, up *mockUploader) *Dispatcher {
	t.Helper()
	return &Dispatcher{
		Uploader: up,
		Ledger:   openLedger(t),
		Metadata: map[string]string{"site": "field-7"},
		Stats:    stats.NewCollector(),
		RunID:    "run-1",
	}
}

func tempRecord(t *testing.T, name string, size int) FileRecord {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	writeFile(t, path, size)
	info, err := os.Stat(path)
	require.NoError(t, err)
	return FileRecord{Path: path, Size: info.Size(), ModTime: info.ModTime()}
}

func TestDispatchUploadsAndRecords(t *testing.T) {
	up := newMockUploader()
	d := newDispatcher(t, up)
	r := tempRecord(t, "a.txt", 128)

	require.NoError(t, d.Dispatch(context.Background(), []FileRecord{r}))

	require.Equal(t, []string{r.Path}, up.uploads)
	meta := up.meta[r.Path]
	assert.Equal(t, r.Path, meta["original_path"])
	assert.Equal(t, "a.txt", meta["filename"])
	assert.Equal(t, "128", meta["size_bytes"])
	assert.Equal(t, "field-7", meta["site"])
	assert.NotEmpty(t, meta["checksum_blake3"])

	st, ok := d.Ledger.Status(r.Path)
	require.True(t, ok)
	assert.Equal(t, ledger.StatusUploaded, st)

	snap := d.Stats.Snapshot()
	assert.Equal(t, int64(1), snap.FilesUploaded)
	assert.Equal(t, int64(128), snap.BytesUploaded)
}

func TestDispatchNameModifiers(t *testing.T) {
	up := newMockUploader()
	d := newDispatcher(t, up)
	d.Prefix = "site7_"
	d.Suffix = "_v2"
	r := tempRecord(t, "shot.jpg", 8)

	require.NoError(t, d.Dispatch(context.Background(), []FileRecord{r}))
	assert.Equal(t, "site7_shot_v2.jpg", up.meta[r.Path]["filename"])
}

func TestUploadName(t *testing.T) {
	assert.Equal(t, "a.txt", uploadName("a.txt", "", ""))
	assert.Equal(t, "p_a_s.txt", uploadName("a.txt", "p_", "_s"))
	assert.Equal(t, "p_noext", uploadName("noext", "p_", ""))
	assert.Equal(t, "a_s.tar.gz", uploadName("a.tar.gz", "", "_s"))
}

func TestDispatchDryRun(t *testing.T) {
	d := newDispatcher(t, nil)
	d.DryRun = true
	r := tempRecord(t, "a.txt", 64)

	require.NoError(t, d.Dispatch(context.Background(), []FileRecord{r}))

	assert.False(t, d.Ledger.Contains(r.Path), "dry run writes no ledger rows")
	assert.FileExists(t, r.Path)

	snap := d.Stats.Snapshot()
	assert.Equal(t, int64(1), snap.FilesUploaded)
	assert.Equal(t, int64(64), snap.BytesUploaded)
}

func TestDispatchUploadFailureContinues(t *testing.T) {
	up := newMockUploader()
	d := newDispatcher(t, up)
	bad := tempRecord(t, "bad.txt", 8)
	good := tempRecord(t, "good.txt", 8)
	up.fail[bad.Path] = errors.New("connection reset")

	events := make(chan event.Event, 8)
	d.Events = events

	require.NoError(t, d.Dispatch(context.Background(), []FileRecord{bad, good}))

	assert.Equal(t, []string{good.Path}, up.uploads)
	assert.False(t, d.Ledger.Contains(bad.Path), "failed upload leaves the file eligible")
	assert.True(t, d.Ledger.Contains(good.Path))
	assert.Equal(t, int64(1), d.Stats.Snapshot().UploadErrors)

	var types []event.Type
	close(events)
	for ev := range events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, event.UploadFailed)
	assert.Contains(t, types, event.FileUploaded)
}

func TestDispatchUnreadableFile(t *testing.T) {
	up := newMockUploader()
	d := newDispatcher(t, up)
	r := tempRecord(t, "gone.txt", 8)
	require.NoError(t, os.Remove(r.Path))

	require.NoError(t, d.Dispatch(context.Background(), []FileRecord{r}))
	assert.Empty(t, up.uploads)
	assert.Equal(t, int64(1), d.Stats.Snapshot().UploadErrors)
}

func TestDispatchDeleteAfterUpload(t *testing.T) {
	up := newMockUploader()
	d := newDispatcher(t, up)
	d.DeleteAfterUpload = true
	kept := tempRecord(t, "kept.txt", 8)
	lost := tempRecord(t, "lost.txt", 8)
	up.fail[kept.Path] = errors.New("boom")

	require.NoError(t, d.Dispatch(context.Background(), []FileRecord{kept, lost}))

	assert.FileExists(t, kept.Path, "failed uploads are never deleted")
	assert.NoFileExists(t, lost.Path)
	assert.Equal(t, int64(1), d.Stats.Snapshot().FilesDeleted)
}

func TestDispatchCancelled(t *testing.T) {
	up := newMockUploader()
	d := newDispatcher(t, up)
	r := tempRecord(t, "a.txt", 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Dispatch(ctx, []FileRecord{r})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, up.uploads)
}

func TestDispatchSleepBetweenFiles(t *testing.T) {
	up := newMockUploader()
	d := newDispatcher(t, up)
	d.Delay = 20 * time.Millisecond
	a := tempRecord(t, "a.txt", 8)
	b := tempRecord(t, "b.txt", 8)

	start := time.Now()
	require.NoError(t, d.Dispatch(context.Background(), []FileRecord{a, b}))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	// A single file never sleeps.
	c := tempRecord(t, "c.txt", 8)
	start = time.Now()
	require.NoError(t, d.Dispatch(context.Background(), []FileRecord{c}))
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}

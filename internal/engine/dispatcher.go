package engine

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bamsammich/forager/internal/event"
	"github.com/bamsammich/forager/internal/ledger"
	"github.com/bamsammich/forager/internal/stats"
	"github.com/bamsammich/forager/internal/uploader"
)

// MetadataPathKey is the well-known metadata key carrying the file's
// absolute source path, so downstream consumers can reconstruct the
// original layout.
const MetadataPathKey = "original_path"

// Dispatcher processes a selected batch one file at a time.
type Dispatcher struct {
	Uploader          uploader.Uploader
	Ledger            *ledger.Ledger
	Metadata          map[string]string // static fields merged into every bundle
	Prefix            string
	Suffix            string
	Delay             time.Duration
	DryRun            bool
	DeleteAfterUpload bool
	Stats             *stats.Collector
	Events            chan<- event.Event
	RunID             string
}

// Dispatch uploads each record in order. A single file's upload failure is
// counted and the batch continues; a ledger append failure aborts the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, batch []FileRecord) error {
	for i, rec := range batch {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := d.processFile(ctx, rec); err != nil {
			return err
		}

		// Inter-file pause, skipped after the final file.
		if d.Delay > 0 && i < len(batch)-1 {
			if err := sleepCtx(ctx, d.Delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// processFile runs one file to a terminal state. The returned error is
// non-nil only for faults that must abort the run (ledger writes, context
// cancellation); upload failures are absorbed here.
func (d *Dispatcher) processFile(ctx context.Context, rec FileRecord) error {
	name := uploadName(filepath.Base(rec.Path), d.Prefix, d.Suffix)

	if d.DryRun {
		// Count what would happen, touch nothing: no upload, no ledger
		// row, so a later real run still sees the file as eligible.
		d.Stats.AddFilesUploaded(1)
		d.Stats.AddBytesUploaded(rec.Size)
		emit(d.Events, event.Event{
			Type:  event.FileUploaded,
			RunID: d.RunID,
			Path:  rec.Path,
			Size:  rec.Size,
		})
		return nil
	}

	meta, err := d.buildMetadata(rec, name)
	if err != nil {
		d.recordUploadFailure(rec, err)
		return nil
	}

	if err := d.Uploader.Upload(ctx, rec.Path, meta); err != nil {
		d.recordUploadFailure(rec, err)
		return nil
	}

	// The ledger row must be durable before the source may be deleted:
	// deleting first could lose track of a transferred file.
	if err := d.Ledger.RecordUploaded(ledger.UploadRecord{
		Path:       rec.Path,
		UploadName: name,
		Size:       rec.Size,
		ModTime:    rec.ModTime,
		Metadata:   meta,
	}); err != nil {
		return err
	}

	d.Stats.AddFilesUploaded(1)
	d.Stats.AddBytesUploaded(rec.Size)
	emit(d.Events, event.Event{
		Type:  event.FileUploaded,
		RunID: d.RunID,
		Path:  rec.Path,
		Size:  rec.Size,
	})

	if d.DeleteAfterUpload {
		if err := os.Remove(rec.Path); err != nil {
			emit(d.Events, event.Event{
				Type:  event.UploadFailed,
				RunID: d.RunID,
				Path:  rec.Path,
				Error: fmt.Errorf("delete after upload: %w", err),
			})
		} else {
			d.Stats.AddFilesDeleted(1)
			emit(d.Events, event.Event{
				Type:  event.FileDeleted,
				RunID: d.RunID,
				Path:  rec.Path,
			})
		}
	}

	return nil
}

func (d *Dispatcher) recordUploadFailure(rec FileRecord, err error) {
	d.Stats.AddUploadErrors(1)
	emit(d.Events, event.Event{
		Type:  event.UploadFailed,
		RunID: d.RunID,
		Path:  rec.Path,
		Size:  rec.Size,
		Error: err,
	})
}

// buildMetadata merges the static configuration fields with per-file keys.
// Per-file keys win on collision.
func (d *Dispatcher) buildMetadata(rec FileRecord, name string) (map[string]string, error) {
	sum, err := hashFile(rec.Path)
	if err != nil {
		return nil, fmt.Errorf("checksum: %w", err)
	}

	meta := make(map[string]string, len(d.Metadata)+5)
	for k, v := range d.Metadata {
		meta[k] = v
	}
	meta[MetadataPathKey] = rec.Path
	meta["filename"] = name
	meta["size_bytes"] = strconv.FormatInt(rec.Size, 10)
	meta["last_modified_timestamp_source"] = rec.ModTime.UTC().Format(time.RFC3339)
	meta["checksum_blake3"] = sum
	return meta, nil
}

// uploadName applies the configured prefix/suffix modifiers:
// prefix + base + suffix + ext.
func uploadName(base, prefix, suffix string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return prefix + stem + suffix + ext
}

// hashFile computes the hex-encoded BLAKE3 digest of the file at path.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sleepCtx blocks for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package ledger persists per-file upload outcomes as append-only CSV logs.
//
// The ledger is the cross-run dedup source of truth: a path recorded here
// with any status is never selected again. It is split across two files,
// uploaded_files.csv and skipped_files.csv, whose column layouts are part of
// the on-disk contract and must stay stable across releases — the files are
// re-read on startup to rebuild the membership index, and external tooling
// consumes them directly.
//
// Exactly one engine instance may own a ledger directory at a time; the run
// lock in internal/runlock enforces that.
package ledger

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// UploadedFile is the base name of the uploaded-outcomes log.
	UploadedFile = "uploaded_files.csv"
	// SkippedFile is the base name of the skipped-outcomes log.
	SkippedFile = "skipped_files.csv"
)

// Status classifies a ledger entry.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusSkipped  Status = "skipped"
)

var uploadedColumns = []string{
	"original_path",
	"filename_at_upload",
	"size_bytes",
	"last_modified_timestamp_source",
	"upload_timestamp_utc",
	"metadata_sent_json",
	"upload_status",
}

var skippedColumns = []string{
	"file_path",
	"reason_skipped",
	"size_bytes",
	"last_modified_timestamp_source",
	"log_timestamp_utc",
}

// UploadRecord describes one confirmed upload to be appended.
type UploadRecord struct {
	Path       string
	UploadName string
	Size       int64
	ModTime    time.Time
	Metadata   map[string]string
}

// Ledger is the durable record of every file ever processed.
type Ledger struct {
	dir      string
	uploaded *appendLog
	skipped  *appendLog
	index    map[string]Status

	// now is swappable for tests.
	now func() time.Time
}

// appendLog is a single CSV file opened for appending, flushed and synced
// after every row.
type appendLog struct {
	f *os.File
	w *csv.Writer
}

// Open loads (or creates) the ledger under dir. Both CSVs are read in full
// to rebuild the path index; files that do not exist are created with their
// header rows.
func Open(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	l := &Ledger{
		dir:   dir,
		index: make(map[string]Status),
		now:   time.Now,
	}

	var err error
	l.uploaded, err = l.openLog(UploadedFile, uploadedColumns, StatusUploaded)
	if err != nil {
		return nil, err
	}
	l.skipped, err = l.openLog(SkippedFile, skippedColumns, StatusSkipped)
	if err != nil {
		l.uploaded.close()
		return nil, err
	}

	return l, nil
}

func (l *Ledger) openLog(name string, columns []string, status Status) (*appendLog, error) {
	path := filepath.Join(l.dir, name)

	if err := l.loadIndex(path, status); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	log := &appendLog{f: f, w: csv.NewWriter(f)}

	// New or empty file gets the header row.
	info, err := f.Stat()
	if err != nil {
		log.close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		if err := log.append(columns); err != nil {
			log.close()
			return nil, fmt.Errorf("write header %s: %w", path, err)
		}
	}

	return log, nil
}

// loadIndex reads an existing log and records every path in the index.
// The path is always the first column in both layouts. Malformed rows are
// tolerated — a truncated final row from a killed process must not poison
// the whole ledger.
func (l *Ledger) loadIndex(path string, status Status) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Skip unparseable rows rather than refusing to start.
			continue
		}
		if first {
			first = false
			continue // header
		}
		if len(row) == 0 || row[0] == "" {
			continue
		}
		l.index[row[0]] = status
	}
}

// Contains reports whether path has any recorded outcome.
func (l *Ledger) Contains(path string) bool {
	_, ok := l.index[path]
	return ok
}

// Status returns the recorded outcome for path, if any.
func (l *Ledger) Status(path string) (Status, bool) {
	s, ok := l.index[path]
	return s, ok
}

// Len returns the number of distinct paths in the ledger.
func (l *Ledger) Len() int {
	return len(l.index)
}

// Dir returns the ledger directory.
func (l *Ledger) Dir() string {
	return l.dir
}

// RecordUploaded appends an uploaded row and makes it durable before
// returning. An error here must abort the run: continuing without durable
// bookkeeping risks duplicate uploads on restart.
func (l *Ledger) RecordUploaded(rec UploadRecord) error {
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata for %s: %w", rec.Path, err)
	}

	row := []string{
		rec.Path,
		rec.UploadName,
		strconv.FormatInt(rec.Size, 10),
		formatSourceTime(rec.ModTime),
		l.now().UTC().Format(time.RFC3339),
		string(metaJSON),
		"success",
	}
	if err := l.uploaded.append(row); err != nil {
		return fmt.Errorf("ledger append %s: %w", rec.Path, err)
	}
	l.index[rec.Path] = StatusUploaded
	return nil
}

// RecordSkipped appends a skipped row and makes it durable before returning.
func (l *Ledger) RecordSkipped(path, reason string, size int64, modTime time.Time) error {
	row := []string{
		path,
		reason,
		strconv.FormatInt(size, 10),
		formatSourceTime(modTime),
		l.now().UTC().Format(time.RFC3339),
	}
	if err := l.skipped.append(row); err != nil {
		return fmt.Errorf("ledger append %s: %w", path, err)
	}
	l.index[path] = StatusSkipped
	return nil
}

// Close closes both logs. Appends are already durable, so Close only
// releases the file handles.
func (l *Ledger) Close() error {
	err := l.uploaded.close()
	if err2 := l.skipped.close(); err == nil {
		err = err2
	}
	return err
}

// append writes one row, flushes the CSV writer, and fsyncs the file.
// Durability per row is the whole point: an interrupted run may lose the
// in-flight file's outcome but never a previously confirmed one.
func (a *appendLog) append(row []string) error {
	if err := a.w.Write(row); err != nil {
		return err
	}
	a.w.Flush()
	if err := a.w.Error(); err != nil {
		return err
	}
	return a.f.Sync()
}

func (a *appendLog) close() error {
	if a == nil || a.f == nil {
		return nil
	}
	return a.f.Close()
}

// formatSourceTime renders a source mtime as fractional Unix seconds,
// matching the historical log format.
func formatSourceTime(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', 6, 64)
}

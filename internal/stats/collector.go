package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector tracks run statistics using lock-free atomic counters.
type Collector struct {
	filesScanned  atomic.Int64
	filesSelected atomic.Int64
	filesUploaded atomic.Int64
	filesSkipped  atomic.Int64
	filesDeleted  atomic.Int64
	uploadErrors  atomic.Int64
	scanErrors    atomic.Int64
	bytesUploaded atomic.Int64
	startTime     time.Time
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesScanned  int64
	FilesSelected int64
	FilesUploaded int64
	FilesSkipped  int64
	FilesDeleted  int64
	UploadErrors  int64
	ScanErrors    int64
	BytesUploaded int64
	Elapsed       time.Duration
}

func (c *Collector) AddFilesScanned(n int64)  { c.filesScanned.Add(n) }
func (c *Collector) AddFilesSelected(n int64) { c.filesSelected.Add(n) }
func (c *Collector) AddFilesUploaded(n int64) { c.filesUploaded.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)  { c.filesSkipped.Add(n) }
func (c *Collector) AddFilesDeleted(n int64)  { c.filesDeleted.Add(n) }
func (c *Collector) AddUploadErrors(n int64)  { c.uploadErrors.Add(n) }
func (c *Collector) AddScanErrors(n int64)    { c.scanErrors.Add(n) }
func (c *Collector) AddBytesUploaded(n int64) { c.bytesUploaded.Add(n) }

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesScanned:  c.filesScanned.Load(),
		FilesSelected: c.filesSelected.Load(),
		FilesUploaded: c.filesUploaded.Load(),
		FilesSkipped:  c.filesSkipped.Load(),
		FilesDeleted:  c.filesDeleted.Load(),
		UploadErrors:  c.uploadErrors.Load(),
		ScanErrors:    c.scanErrors.Load(),
		BytesUploaded: c.bytesUploaded.Load(),
		Elapsed:       c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"scanned=%d selected=%d uploaded=%d skipped=%d deleted=%d upload_errors=%d scan_errors=%d bytes=%d",
		s.FilesScanned, s.FilesSelected, s.FilesUploaded, s.FilesSkipped,
		s.FilesDeleted, s.UploadErrors, s.ScanErrors, s.BytesUploaded,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

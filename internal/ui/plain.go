package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/bamsammich/forager/internal/stats"
)

// plainPresenter outputs one line per file outcome to stdout and
// status/error lines to stderr.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	srcRoot string
	verbose bool
}

func (p *plainPresenter) Run(events <-chan Event) error {
	for ev := range events {
		p.handleEvent(ev)
	}
	return nil
}

func (p *plainPresenter) handleEvent(ev Event) {
	path := stripRoot(p.srcRoot, ev.Path)
	switch ev.Type {
	case RunStarted:
		fmt.Fprintf(p.errW, "scanning %s\n", ev.Path)
	case SelectionComplete:
		fmt.Fprintf(p.errW, "selected %d files\n", ev.Selected)
	case FileUploaded:
		fmt.Fprintf(p.w, "%s  %s  uploaded\n", path, FormatBytes(ev.Size))
	case FileSkipped:
		fmt.Fprintf(p.w, "%s  %s  skipped (%s)\n", path, FormatBytes(ev.Size), ev.Reason)
	case UploadFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  failed: %s\n", path, errMsg)
	case FileDeleted:
		if p.verbose {
			fmt.Fprintf(p.w, "deleted source: %s\n", path)
		}
	case ScanError:
		fmt.Fprintf(p.errW, "scan: %v\n", ev.Error)
	case RunComplete:
		// summary printed by the caller
	}
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

// CompletionSummary renders the end-of-run stats line.
func CompletionSummary(s stats.Snapshot) string {
	line := fmt.Sprintf("uploaded %s files (%s), skipped %s, errors %d in %s",
		FormatCount(s.FilesUploaded),
		FormatBytes(s.BytesUploaded),
		FormatCount(s.FilesSkipped),
		s.UploadErrors+s.ScanErrors,
		FormatDuration(s.Elapsed),
	)
	if s.FilesDeleted > 0 {
		line += fmt.Sprintf(", deleted %s sources", FormatCount(s.FilesDeleted))
	}
	return line
}

// stripRoot makes event paths relative to the watched root for display.
func stripRoot(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	trimmed := strings.TrimPrefix(path, strings.TrimSuffix(root, "/")+"/")
	if trimmed == "" {
		return path
	}
	return trimmed
}

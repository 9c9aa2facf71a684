package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bamsammich/forager/internal/filter"
)

// ScannerConfig controls scanner behavior.
type ScannerConfig struct {
	Root           string
	Glob           *filter.Glob // nil matches everything
	Recursive      bool
	FollowSymlinks bool
}

// Scanner walks the watched tree and emits a FileRecord for every regular
// file matching the glob. It holds no state between scans; each Scan is a
// fresh filesystem read.
type Scanner struct {
	cfg     ScannerConfig
	records chan FileRecord
	errs    chan error
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg ScannerConfig) *Scanner {
	return &Scanner{
		cfg:     cfg,
		records: make(chan FileRecord, 64),
		errs:    make(chan error, 16),
	}
}

// Scan starts the walk and returns channels for records and errors.
// The caller must consume from both channels until they close. Errors are
// per-subtree: an unreadable directory is reported and the walk continues
// with its siblings.
func (s *Scanner) Scan(ctx context.Context) (<-chan FileRecord, <-chan error) {
	go func() {
		defer close(s.records)
		defer close(s.errs)
		s.walk(ctx)
	}()

	return s.records, s.errs
}

func (s *Scanner) walk(ctx context.Context) {
	root := s.cfg.Root
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return filepath.SkipAll
		default:
		}

		if err != nil {
			// Unreadable directory or vanished entry: report, keep going.
			s.sendErr(fmt.Errorf("scan %s: %w", path, err))
			return nil
		}

		if d.IsDir() {
			if path != root && !s.cfg.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		s.processEntry(path, d)
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		s.sendErr(fmt.Errorf("scan %s: %w", root, err))
	}
}

func (s *Scanner) processEntry(path string, d fs.DirEntry) {
	if s.cfg.Glob != nil && !s.cfg.Glob.Match(d.Name()) {
		return
	}

	isSymlink := d.Type()&fs.ModeSymlink != 0
	if isSymlink && !s.cfg.FollowSymlinks {
		return // silently excluded, not an error
	}

	var info fs.FileInfo
	var err error
	if isSymlink {
		// Resolve the target; a symlink to a non-regular file is skipped.
		info, err = os.Stat(path)
	} else {
		info, err = d.Info()
	}
	if err != nil {
		s.sendErr(fmt.Errorf("stat %s: %w", path, err))
		return
	}
	if !info.Mode().IsRegular() {
		return
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		s.sendErr(fmt.Errorf("abs %s: %w", path, err))
		return
	}

	s.records <- FileRecord{
		Path:      abs,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		IsSymlink: isSymlink,
	}
}

func (s *Scanner) sendErr(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

package engine

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bamsammich/forager/internal/event"
	"github.com/bamsammich/forager/internal/ledger"
	"github.com/bamsammich/forager/internal/stats"
)

// ReasonOversized is the ledger reason recorded for files rejected by the
// size policy. Part of the skipped_files.csv contract.
const ReasonOversized = "max_size_exceeded"

// Selector filters scanner output against the ledger and size policy,
// orders what remains, and bounds the batch.
type Selector struct {
	Ledger      *ledger.Ledger
	MaxFileSize int64 // 0 disables the size policy
	SortKey     SortKey
	SkipLastN   int
	BatchSize   int // 0 means unbounded
	Stats       *stats.Collector
	Events      chan<- event.Event
	RunID       string
}

// Select produces the ordered batch for the dispatcher. Oversized files are
// recorded as skipped immediately so they are never re-evaluated; a failed
// ledger append aborts selection.
func (s *Selector) Select(records []FileRecord) ([]FileRecord, error) {
	eligible := make([]FileRecord, 0, len(records))
	for _, rec := range records {
		if s.Ledger.Contains(rec.Path) {
			continue // already processed in some earlier run
		}
		if s.MaxFileSize > 0 && rec.Size > s.MaxFileSize {
			if err := s.Ledger.RecordSkipped(rec.Path, ReasonOversized, rec.Size, rec.ModTime); err != nil {
				return nil, fmt.Errorf("record oversized skip: %w", err)
			}
			s.Stats.AddFilesSkipped(1)
			emit(s.Events, event.Event{
				Type:   event.FileSkipped,
				RunID:  s.RunID,
				Path:   rec.Path,
				Size:   rec.Size,
				Reason: ReasonOversized,
			})
			continue
		}
		eligible = append(eligible, rec)
	}

	s.sortRecords(eligible)

	// Drop the trailing skip-last-N: the newest candidates may still be
	// written by an active producer.
	if s.SkipLastN > 0 {
		if len(eligible) <= s.SkipLastN {
			eligible = eligible[:0]
		} else {
			eligible = eligible[:len(eligible)-s.SkipLastN]
		}
	}

	if s.BatchSize > 0 && len(eligible) > s.BatchSize {
		eligible = eligible[:s.BatchSize]
	}

	s.Stats.AddFilesSelected(int64(len(eligible)))
	return eligible, nil
}

// sortRecords orders eligible candidates into a deterministic total order:
// mtime ascending with path tie-break, or name ascending.
func (s *Selector) sortRecords(records []FileRecord) {
	switch s.SortKey {
	case SortByName:
		sort.Slice(records, func(i, j int) bool {
			return filepath.Base(records[i].Path) < filepath.Base(records[j].Path)
		})
	default: // SortByModTime
		sort.Slice(records, func(i, j int) bool {
			ti, tj := records[i].ModTime, records[j].ModTime
			if ti.Equal(tj) {
				return records[i].Path < records[j].Path
			}
			return ti.Before(tj)
		})
	}
}

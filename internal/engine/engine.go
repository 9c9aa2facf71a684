package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bamsammich/forager/internal/event"
	"github.com/bamsammich/forager/internal/filter"
	"github.com/bamsammich/forager/internal/ledger"
	"github.com/bamsammich/forager/internal/stats"
	"github.com/bamsammich/forager/internal/uploader"
)

// Config describes one upload run. It is read-only once Run starts.
type Config struct {
	Source            string
	Glob              string // empty matches every file
	Recursive         bool
	FollowSymlinks    bool
	MaxFileSize       int64 // bytes; 0 disables the size policy
	SkipLastN         int
	SortKey           SortKey
	BatchSize         int // 0 means unbounded
	Delay             time.Duration
	Prefix            string
	Suffix            string
	DryRun            bool
	DeleteAfterUpload bool

	// Metadata holds the static fields merged into every upload bundle.
	Metadata map[string]string

	// LedgerDir defaults to <Source>/.forager when empty.
	LedgerDir string

	Uploader uploader.Uploader
	Events   chan<- event.Event // optional
	Stats    *stats.Collector   // optional; created when nil
}

// Result is the outcome of a run.
type Result struct {
	Stats stats.Snapshot
	Err   error
}

// Run executes one scan/select/dispatch cycle, blocking until complete.
// Per-file upload failures and unreadable subtrees are counted, not fatal;
// Result.Err is non-nil only for startup and ledger faults.
func Run(ctx context.Context, cfg Config) Result {
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}
	runID := uuid.New().String()

	if err := validate(&cfg); err != nil {
		return Result{Stats: collector.Snapshot(), Err: err}
	}

	var glob *filter.Glob
	if cfg.Glob != "" {
		var err error
		glob, err = filter.CompileGlob(cfg.Glob)
		if err != nil {
			return Result{Stats: collector.Snapshot(), Err: err}
		}
	}

	led, err := ledger.Open(cfg.LedgerDir)
	if err != nil {
		return Result{Stats: collector.Snapshot(), Err: err}
	}
	defer led.Close()

	emit(cfg.Events, event.Event{
		Type:  event.RunStarted,
		RunID: runID,
		Path:  cfg.Source,
	})

	records := collect(ctx, cfg, glob, collector, runID)

	sel := &Selector{
		Ledger:      led,
		MaxFileSize: cfg.MaxFileSize,
		SortKey:     cfg.SortKey,
		SkipLastN:   cfg.SkipLastN,
		BatchSize:   cfg.BatchSize,
		Stats:       collector,
		Events:      cfg.Events,
		RunID:       runID,
	}
	batch, err := sel.Select(records)
	if err != nil {
		return Result{Stats: collector.Snapshot(), Err: err}
	}

	emit(cfg.Events, event.Event{
		Type:     event.SelectionComplete,
		RunID:    runID,
		Selected: len(batch),
	})

	disp := &Dispatcher{
		Uploader:          cfg.Uploader,
		Ledger:            led,
		Metadata:          cfg.Metadata,
		Prefix:            cfg.Prefix,
		Suffix:            cfg.Suffix,
		Delay:             cfg.Delay,
		DryRun:            cfg.DryRun,
		DeleteAfterUpload: cfg.DeleteAfterUpload,
		Stats:             collector,
		Events:            cfg.Events,
		RunID:             runID,
	}
	dispatchErr := disp.Dispatch(ctx, batch)

	emit(cfg.Events, event.Event{
		Type:  event.RunComplete,
		RunID: runID,
	})

	return Result{Stats: collector.Snapshot(), Err: dispatchErr}
}

// collect drains one full scan into memory, counting records and surfacing
// subtree errors as events.
func collect(ctx context.Context, cfg Config, glob *filter.Glob, collector *stats.Collector, runID string) []FileRecord {
	scanner := NewScanner(ScannerConfig{
		Root:           cfg.Source,
		Glob:           glob,
		Recursive:      cfg.Recursive,
		FollowSymlinks: cfg.FollowSymlinks,
	})
	recordCh, errCh := scanner.Scan(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for err := range errCh {
			collector.AddScanErrors(1)
			emit(cfg.Events, event.Event{
				Type:  event.ScanError,
				RunID: runID,
				Error: err,
			})
		}
	}()

	var records []FileRecord
	for rec := range recordCh {
		collector.AddFilesScanned(1)
		records = append(records, rec)
	}
	<-done

	return records
}

func validate(cfg *Config) error {
	info, err := os.Stat(cfg.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", cfg.Source)
	}
	if cfg.SkipLastN < 0 {
		return fmt.Errorf("skip-last-n must be >= 0, got %d", cfg.SkipLastN)
	}
	if cfg.BatchSize < 0 {
		return fmt.Errorf("batch size must be >= 0, got %d", cfg.BatchSize)
	}
	if cfg.SortKey == "" {
		cfg.SortKey = SortByModTime
	}
	if _, err := ParseSortKey(string(cfg.SortKey)); err != nil {
		return err
	}
	if cfg.LedgerDir == "" {
		cfg.LedgerDir = filepath.Join(cfg.Source, ".forager")
	}
	if cfg.Uploader == nil && !cfg.DryRun {
		return fmt.Errorf("uploader is required")
	}
	return nil
}

// emit sends an event without blocking; a nil or full channel drops it.
func emit(ch chan<- event.Event, e event.Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bamsammich/forager/internal/config"
	"github.com/bamsammich/forager/internal/engine"
	"github.com/bamsammich/forager/internal/event"
	"github.com/bamsammich/forager/internal/filter"
	"github.com/bamsammich/forager/internal/runlock"
	"github.com/bamsammich/forager/internal/stats"
	"github.com/bamsammich/forager/internal/ui"
	"github.com/bamsammich/forager/internal/uploader"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// uploaderFor creates the sink for the given destination. s3://bucket/prefix
// selects the S3 sink; anything else is treated as a local directory.
//
//nolint:ireturn // factory returns interface by design
func uploaderFor(dst, s3Endpoint string, s3SSL bool) (uploader.Uploader, error) {
	if bucketPath, ok := strings.CutPrefix(dst, "s3://"); ok {
		if s3Endpoint == "" {
			s3Endpoint = os.Getenv("FORAGER_S3_ENDPOINT")
		}
		bucket, prefix, _ := strings.Cut(bucketPath, "/")
		return uploader.NewS3Uploader(uploader.S3Config{
			Endpoint: s3Endpoint,
			Bucket:   bucket,
			Prefix:   prefix,
			UseSSL:   s3SSL,
		})
	}
	return uploader.NewLocalUploader(dst)
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: main CLI entry point orchestrates all flag parsing
func run() int {
	var (
		source         string
		glob           string
		recursive      bool
		followSymlinks bool
		skipLastN      int
		sortKeyStr     string
		maxSizeStr     string
		numFiles       int
		sleep          time.Duration
		prefix         string
		suffix         string
		dryRun         bool
		deleteFiles    bool
		configPath     string
		logFile        string
		quiet          bool
		debug          bool
		showVersion    bool
		s3Endpoint     string
		s3SSL          bool
	)

	rootCmd := &cobra.Command{
		Use:   "forager [flags] <destination>",
		Short: "Scan a directory tree and upload new files exactly once",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "forager %s\n", version)
				return nil
			}
			dst := args[0]

			// Configure logging.
			logLevel := slog.LevelInfo
			if debug {
				logLevel = slog.LevelDebug
			} else if quiet {
				logLevel = slog.LevelWarn
			}
			textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			var logHandler slog.Handler = textHandler
			if logFile != "" {
				lf, lfErr := os.Create(logFile)
				if lfErr != nil {
					return fmt.Errorf("open log file: %w", lfErr)
				}
				defer lf.Close()
				jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})
				logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
			}
			slog.SetDefault(slog.New(logHandler))

			ledgerDir := filepath.Join(source, ".forager")

			// Load the metadata config. The file is mandatory.
			if configPath == "" {
				configPath = config.DefaultPath(ledgerDir)
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyConfigDefaults(cmd, cfg.Defaults,
				&glob, &recursive, &sortKeyStr, &numFiles, &skipLastN, &maxSizeStr, &sleep)

			sortKey, err := engine.ParseSortKey(sortKeyStr)
			if err != nil {
				return err
			}

			var maxSize int64
			if maxSizeStr != "" {
				maxSize, err = filter.ParseSize(maxSizeStr)
				if err != nil {
					return fmt.Errorf("invalid --max-file-size: %w", err)
				}
			}

			// One engine per ledger directory.
			lock, err := runlock.Acquire(ledgerDir)
			if err != nil {
				return err
			}
			defer lock.Release() //nolint:errcheck // releasing on exit

			var sink uploader.Uploader
			if !dryRun {
				sink, err = uploaderFor(dst, s3Endpoint, s3SSL)
				if err != nil {
					return err
				}
				defer sink.Close()
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)

			// When --log is set, tee events through a logging goroutine
			// that writes structured records before forwarding to the presenter.
			presenterEvents := (<-chan event.Event)(events)
			if logFile != "" {
				teed := make(chan event.Event, 256)
				go func() {
					for ev := range events {
						attrs := []slog.Attr{
							slog.String("type", ev.Type.String()),
							slog.String("path", ev.Path),
							slog.Int64("size", ev.Size),
							slog.String("run_id", ev.RunID),
						}
						if ev.Reason != "" {
							attrs = append(attrs, slog.String("reason", ev.Reason))
						}
						if ev.Error != nil {
							attrs = append(attrs, slog.String("error", ev.Error.Error()))
						}
						slog.LogAttrs(context.Background(), slog.LevelInfo, "forager.event", attrs...)
						teed <- ev
					}
					close(teed)
				}()
				presenterEvents = teed
			}

			presenter := ui.NewPresenter(ui.Config{
				Writer:    os.Stdout,
				ErrWriter: os.Stderr,
				IsTTY:     ui.IsTTY(os.Stderr.Fd()),
				Quiet:     quiet,
				Verbose:   debug,
				Stats:     collector,
				SrcRoot:   source,
			})

			if dryRun {
				slog.Info("dry run mode")
			}
			slog.Debug("starting run",
				"source", source,
				"destination", dst,
				"glob", glob,
				"num_files", numFiles,
				"skip_last_n", skipLastN,
				"sort_key", string(sortKey),
			)

			var presenterErr error
			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenterErr = presenter.Run(presenterEvents)
			}()

			result := engine.Run(ctx, engine.Config{
				Source:            source,
				Glob:              glob,
				Recursive:         recursive,
				FollowSymlinks:    followSymlinks,
				MaxFileSize:       maxSize,
				SkipLastN:         skipLastN,
				SortKey:           sortKey,
				BatchSize:         numFiles,
				Delay:             sleep,
				Prefix:            prefix,
				Suffix:            suffix,
				DryRun:            dryRun,
				DeleteAfterUpload: deleteFiles,
				Metadata:          cfg.Metadata,
				LedgerDir:         ledgerDir,
				Uploader:          sink,
				Events:            events,
				Stats:             collector,
			})
			stop()
			close(events)
			presenterWg.Wait()
			if presenterErr != nil {
				fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
			}

			if !quiet {
				summary := presenter.Summary()
				if summary != "" {
					fmt.Fprintln(os.Stderr, summary)
				}
			}

			if result.Err != nil {
				slog.Error("run failed", "error", result.Err)
				if result.Stats.FilesScanned > 0 {
					return &exitError{code: 1} // failed mid-run
				}
				return &exitError{code: 2} // never got started
			}

			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	rootCmd.Flags().StringVar(&source, "source", "/data", "directory tree to scan")
	rootCmd.Flags().StringVar(&glob, "glob", "", "only consider files whose name matches PATTERN")
	rootCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	rootCmd.Flags().
		BoolVar(&followSymlinks, "follow-symlinks", false, "follow symlinks to regular files")
	rootCmd.Flags().
		IntVar(&skipLastN, "skip-last-n", 1, "leave out the newest N files (still being written)")
	rootCmd.Flags().StringVar(&sortKeyStr, "sort-key", "mtime", "selection order: mtime or name")
	rootCmd.Flags().
		StringVar(&maxSizeStr, "max-file-size", "1G", "skip files larger than SIZE (e.g. 500M, 2G)")
	rootCmd.Flags().IntVar(&numFiles, "num-files", 10, "upload at most N files per run (0 = unbounded)")
	rootCmd.Flags().DurationVar(&sleep, "sleep", 3*time.Second, "pause between uploads")
	rootCmd.Flags().StringVar(&prefix, "prefix", "", "prepend STRING to each upload name")
	rootCmd.Flags().StringVar(&suffix, "suffix", "", "append STRING before the extension of each upload name")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be uploaded without uploading")
	rootCmd.Flags().
		BoolVar(&deleteFiles, "delete-files", false, "delete source files after the ledger records them")
	rootCmd.Flags().
		StringVar(&configPath, "config", "", "metadata config file (default <source>/.forager/metadata.toml)")
	rootCmd.Flags().StringVar(&logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.Flags().
		StringVar(&s3Endpoint, "s3-endpoint", "", "S3 endpoint host[:port] for s3:// destinations (default $FORAGER_S3_ENDPOINT)")
	rootCmd.Flags().BoolVar(&s3SSL, "s3-ssl", true, "use TLS for s3:// destinations")

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	glob *string,
	recursive *bool,
	sortKey *string,
	numFiles *int,
	skipLastN *int,
	maxSize *string,
	sleep *time.Duration,
) {
	if !cmd.Flags().Changed("glob") && defaults.Glob != nil {
		*glob = *defaults.Glob
	}
	if !cmd.Flags().Changed("recursive") && defaults.Recursive != nil {
		*recursive = *defaults.Recursive
	}
	if !cmd.Flags().Changed("sort-key") && defaults.SortKey != nil {
		*sortKey = *defaults.SortKey
	}
	if !cmd.Flags().Changed("num-files") && defaults.BatchSize != nil {
		*numFiles = *defaults.BatchSize
	}
	if !cmd.Flags().Changed("skip-last-n") && defaults.SkipLastN != nil {
		*skipLastN = *defaults.SkipLastN
	}
	if !cmd.Flags().Changed("max-file-size") && defaults.MaxFileSize != nil {
		*maxSize = *defaults.MaxFileSize
	}
	if !cmd.Flags().Changed("sleep") && defaults.DelaySeconds != nil {
		*sleep = time.Duration(*defaults.DelaySeconds * float64(time.Second))
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

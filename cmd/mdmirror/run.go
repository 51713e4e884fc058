package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/mdmirror/internal/config"
	"github.com/nao1215/mdmirror/internal/database"
	"github.com/nao1215/mdmirror/internal/exifaudit"
	"github.com/nao1215/mdmirror/internal/fetcher"
	"github.com/nao1215/mdmirror/internal/link"
	mlog "github.com/nao1215/mdmirror/internal/log"
	"github.com/nao1215/mdmirror/internal/model"
	"github.com/nao1215/mdmirror/internal/naming"
	"github.com/nao1215/mdmirror/internal/pipeline"
	"github.com/nao1215/mdmirror/internal/report"
	"github.com/nao1215/mdmirror/internal/rewriter"
)

// NewRunCmd creates the run command.
// This is the main command of mdmirror: it mirrors the images of every
// Markdown document under a directory.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [directory]",
		Short: "Mirror remote images of all Markdown documents in a directory",
		Long: `Run scans a directory recursively for Markdown (.md) documents, downloads
every remote image they reference into a sibling <name>_images directory and
rewrites the references to the local copies.

Images that already exist locally are not downloaded again, so running the
command twice is safe. A failed download keeps the original URL and is
logged to mdmirror_downloads.log in the scanned directory.

Examples:
  # Mirror images of all documents under ./notes
  mdmirror run ./notes

  # Use sequential file names and eight workers
  mdmirror run --naming asc --workers 8 ./notes

  # Never mirror images from an internal host
  mdmirror run -x https://intranet.example.com/ ./notes

  # Download through a local SOCKS5 proxy
  mdmirror run --proxy socks5://127.0.0.1:9050 ./notes

  # Write a Markdown summary of the run
  mdmirror run -r mirror-report.md ./notes`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("naming", "n", string(config.DefaultNaming),
		"Image naming policy: original, asc or uuid")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of documents processed concurrently")
	cmd.Flags().StringArrayP("exclude", "x", nil,
		"URL prefix that is never mirrored (repeatable, replaces the defaults)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request download timeout")
	cmd.Flags().String("user-agent", fetcher.DefaultUserAgent,
		"User-Agent header sent with image requests")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy for downloads (e.g. socks5://127.0.0.1:9050)")

	cmd.Flags().StringP("config", "c", "",
		"Path to config file (default: .mdmirror in current or home directory)")
	cmd.Flags().StringP("report", "r", "",
		"Write a run summary to this file (.json for JSON, Markdown otherwise)")
	cmd.Flags().Bool("exif-audit", false,
		"Report identifying EXIF metadata in downloaded images")

	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			slog.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runMirror(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// flagForKey maps config file keys to the flags that override them.
var flagForKey = map[string]string{
	config.KeyNaming:    "naming",
	config.KeyWorkers:   "workers",
	config.KeyTimeout:   "timeout",
	config.KeyUserAgent: "user-agent",
	config.KeyProxy:     "proxy",
	config.KeyExclude:   "exclude",
	config.KeyExifAudit: "exif-audit",
}

// buildConfig creates a Config from the defaults, the config file and the
// cobra command flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// If no path was specified, silently use the defaults.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		overridden := func(key string) bool {
			if key == config.KeyRoot {
				return len(args) > 0
			}
			name, ok := flagForKey[key]
			return ok && flags.Changed(name)
		}
		if err := cf.ApplyTo(cfg, overridden); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if len(args) > 0 {
		cfg.Root = args[0]
	}

	if flags.Changed("naming") {
		s, err := flags.GetString("naming")
		if err != nil {
			return nil, err
		}
		cfg.Naming, err = model.ParseNamingPolicy(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrInvalidNamingPolicy, err)
		}
	}

	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("proxy") {
		if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("exclude") {
		if cfg.ExcludePrefixes, err = flags.GetStringArray("exclude"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("exif-audit") {
		if cfg.ExifAudit, err = flags.GetBool("exif-audit"); err != nil {
			return nil, err
		}
	}

	if cfg.ReportFile, err = flags.GetString("report"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// runMirror wires the components together and runs one batch.
// The summary goes to stdout; logs go to the log files and stderr.
func runMirror(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	if err := os.MkdirAll(cfg.Root, 0o750); err != nil {
		return fmt.Errorf("failed to create root directory: %w", err)
	}

	loggers, err := mlog.Open(cfg.Root, stderr, cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to open log files: %w", err)
	}
	defer loggers.Close()

	logger := loggers.Run
	slog.SetDefault(logger)

	f, err := fetcher.New(
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithProxy(cfg.Proxy),
	)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	rwOpts := []rewriter.Option{
		rewriter.WithLogger(logger),
		rewriter.WithDownloadLogger(loggers.Download),
	}
	if cfg.ExifAudit {
		rwOpts = append(rwOpts, rewriter.WithAuditor(exifaudit.New()))
	}
	classifier := link.NewClassifier(cfg.ExcludePrefixes)
	namer := naming.New(cfg.Naming)
	rw := rewriter.New(classifier, namer, f, rwOpts...)

	var history *runHistory
	if cfg.SaveHistory {
		history, err = openHistory(cfg.DBDir, logger)
		if err != nil {
			return err
		}
		defer history.close()
	}

	batchOpts := []pipeline.BatchOption{
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.Workers),
		pipeline.WithNamingPolicy(cfg.Naming),
	}
	if history != nil {
		batchOpts = append(batchOpts, pipeline.WithOnDocument(history.recordDocument))
	}
	processor := pipeline.NewBatchProcessor(rw, batchOpts...)

	logger.Info("starting mirror run",
		"root", cfg.Root,
		"naming", namer.Policy(),
		"workers", processor.Concurrency(),
		"timeout", f.Timeout(),
		"exifAudit", cfg.ExifAudit,
		"saveHistory", cfg.SaveHistory,
	)
	logger.Debug("exclusion prefixes", "prefixes", classifier.ExcludePrefixes())

	if history != nil {
		history.start(ctx, model.NewRunResult(cfg.Root, cfg.Naming, cfg.Workers))
	}

	result, runErr := processor.Run(ctx, cfg.Root)
	if result == nil {
		return fmt.Errorf("mirror run failed: %w", runErr)
	}

	if history != nil {
		history.finish(ctx, result)
	}

	if err := outputReport(cfg, result, stdout); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("mirror run interrupted: %w", runErr)
	}
	return nil
}

// runHistory records one run in the history database.
// Recording problems are logged and never fail the run itself.
type runHistory struct {
	db     *database.HistoryDB
	logger *slog.Logger
	runID  string
}

// openHistory opens the history database in dir.
func openHistory(dir string, logger *slog.Logger) (*runHistory, error) {
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	logger.Debug("history database opened", "path", db.Path())
	return &runHistory{db: db, logger: logger}, nil
}

// start inserts the run row.
func (h *runHistory) start(ctx context.Context, run *model.RunResult) {
	id, err := h.db.StartRun(context.WithoutCancel(ctx), run)
	if err != nil {
		h.logger.Warn("failed to record run start", "error", err)
		return
	}
	h.runID = id
}

// recordDocument stores the downloads of one document.
// It runs on the goroutine coordinating the batch.
func (h *runHistory) recordDocument(doc *model.DocumentResult) {
	if h.runID == "" || len(doc.Downloads) == 0 {
		return
	}
	if err := h.db.InsertDownloads(context.Background(), h.runID, doc.Downloads); err != nil {
		h.logger.Warn("failed to record downloads", "path", doc.Path, "error", err)
	}
}

// finish stores the final counters of the run.
// The context is detached so that an interrupted run is still recorded.
func (h *runHistory) finish(ctx context.Context, run *model.RunResult) {
	if h.runID == "" {
		return
	}
	if err := h.db.FinishRun(context.WithoutCancel(ctx), h.runID, run); err != nil {
		h.logger.Warn("failed to record run result", "error", err)
		return
	}
	h.logger.Info("run recorded in history", "id", h.runID)
}

// close closes the database.
func (h *runHistory) close() {
	if err := h.db.Close(); err != nil {
		h.logger.Warn("failed to close history database", "error", err)
	}
}

// outputReport prints the plain-text summary and, when requested, writes
// the report file in the same pass.
func outputReport(cfg *config.Config, result *model.RunResult, stdout io.Writer) error {
	summary := report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose))

	if cfg.ReportFile == "" {
		if _, err := summary.Write(result); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		return nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list document paths and image URLs, so keep them owner-only.
	out, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	writer := report.NewMultiWriter(
		summary,
		report.NewWriterForPath(cfg.ReportFile, out, getVersion()),
	)
	_, writeErr := writer.Write(result)
	closeErr := out.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// MainLogFile is the run log file name, created in the target root.
	MainLogFile = "mdmirror_main.log"

	// DownloadLogFile is the per-download log file name, created in the target root.
	DownloadLogFile = "mdmirror_downloads.log"
)

// Loggers holds the two log streams of a run.
type Loggers struct {
	// Run receives progress, per-document results and cleanup events.
	Run *slog.Logger

	// Download receives one entry per image reference outcome.
	Download *slog.Logger

	closers []io.Closer
}

// NewLoggers builds Loggers writing to arbitrary writers.
// It is mainly useful in tests, where both streams go to buffers.
func NewLoggers(run, download io.Writer, verbose bool) *Loggers {
	return &Loggers{
		Run:      NewLogger(run, verbose),
		Download: NewLogger(download, verbose),
	}
}

// Open opens (or creates) the two log files inside dir in append mode.
// The run log is mirrored to console when console is non-nil.
// Failing to open either file is a setup error and aborts the run.
func Open(dir string, console io.Writer, verbose bool) (*Loggers, error) {
	mainFile, err := openAppend(filepath.Join(dir, MainLogFile))
	if err != nil {
		return nil, err
	}

	downloadFile, err := openAppend(filepath.Join(dir, DownloadLogFile))
	if err != nil {
		_ = mainFile.Close()
		return nil, err
	}

	var runWriter io.Writer = mainFile
	if console != nil {
		runWriter = io.MultiWriter(mainFile, console)
	}

	loggers := NewLoggers(runWriter, downloadFile, verbose)
	loggers.closers = []io.Closer{mainFile, downloadFile}
	return loggers, nil
}

// Close closes the underlying log files, if any.
func (l *Loggers) Close() error {
	var errs []error
	for _, c := range l.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.closers = nil
	return errors.Join(errs...)
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // path is built from the user's target directory
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

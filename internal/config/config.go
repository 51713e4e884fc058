package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/mdmirror/internal/fetcher"
	"github.com/nao1215/mdmirror/internal/link"
	"github.com/nao1215/mdmirror/internal/model"
)

// Default configuration values.
const (
	// DefaultWorkers is the size of the document worker pool.
	// Each worker downloads one image at a time, so this also bounds the
	// number of simultaneous requests.
	DefaultWorkers = 4

	// DefaultNaming keeps the remote file names, which makes mirrored
	// directories easy to browse.
	DefaultNaming = model.NamingOriginal

	// DefaultTimeout is the per-request download timeout.
	DefaultTimeout = fetcher.DefaultTimeout

	// AppName is the application name used for XDG directory paths.
	AppName = "mdmirror"
)

// Config holds all configuration options for a mirror run.
// It is populated from CLI flags and the optional config file and passed
// down to the components explicitly rather than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs.
// The number of options is small and every component reads only a few of
// them.
type Config struct {
	// Root is the directory scanned recursively for Markdown documents.
	Root string

	// Naming selects how mirrored images are named.
	Naming model.NamingPolicy

	// Workers is the number of documents processed concurrently.
	Workers int

	// Timeout is the per-request download timeout.
	Timeout time.Duration

	// UserAgent is sent with every image request.
	UserAgent string

	// Proxy is an optional SOCKS5 proxy URL for image downloads.
	Proxy string

	// ExcludePrefixes are URL prefixes that are never mirrored.
	ExcludePrefixes []string

	// ExifAudit enables the metadata audit of newly downloaded images.
	ExifAudit bool

	// Verbose enables debug-level log output.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .mdmirror in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// ReportFile is the output path of the Markdown run summary.
	// When empty, a plain-text summary is printed instead.
	ReportFile string

	// SaveHistory records the run in the history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/mdmirror on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Naming:          DefaultNaming,
		Workers:         DefaultWorkers,
		Timeout:         DefaultTimeout,
		UserAgent:       fetcher.DefaultUserAgent,
		ExcludePrefixes: append([]string(nil), link.DefaultExcludePrefixes...),
		SaveHistory:     true,
		DBDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for mdmirror.
// On Linux: ~/.local/share/mdmirror
// On macOS: ~/Library/Application Support/mdmirror
// On Windows: %LOCALAPPDATA%\mdmirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for mdmirror.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
//
// Design decision: We validate once, right after flags and the config file
// are merged, so that a bad value fails the run before any document is
// touched.
func (c *Config) Validate() error {
	if c.Root == "" {
		return ErrNoRoot
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if !c.Naming.IsValid() {
		return ErrInvalidNamingPolicy
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Proxy != "" && !validProxy(c.Proxy) {
		return ErrInvalidProxy
	}

	return nil
}

func validProxy(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "socks5" || u.Scheme == "socks5h"
}

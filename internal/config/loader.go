package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/mdmirror/internal/model"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".mdmirror"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Configuration file keys. They double as the names passed to ApplyTo to
// mark values that were set on the command line.
const (
	KeyRoot      = "root"
	KeyNaming    = "naming"
	KeyWorkers   = "workers"
	KeyTimeout   = "timeout"
	KeyUserAgent = "userAgent"
	KeyProxy     = "proxy"
	KeyExclude   = "exclude"
	KeyExifAudit = "exifAudit"
)

// File represents the structure of the .mdmirror configuration file.
// Pointer fields distinguish "not set" from zero values.
type File struct {
	Root      string   `yaml:"root,omitempty"`
	Naming    string   `yaml:"naming,omitempty"`
	Workers   *int     `yaml:"workers,omitempty"`
	Timeout   string   `yaml:"timeout,omitempty"`
	UserAgent string   `yaml:"userAgent,omitempty"`
	Proxy     string   `yaml:"proxy,omitempty"`
	Exclude   []string `yaml:"exclude,omitempty"`
	ExifAudit *bool    `yaml:"exifAudit,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .mdmirror in the current directory
// 3. Look for .mdmirror in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// ApplyTo copies the values present in the file into cfg, skipping every key
// for which overridden reports true. Values are not validated here beyond
// parsing; Config.Validate runs afterwards.
func (cf *File) ApplyTo(cfg *Config, overridden func(key string) bool) error {
	if overridden == nil {
		overridden = func(string) bool { return false }
	}

	if cf.Root != "" && !overridden(KeyRoot) {
		cfg.Root = cf.Root
	}

	if cf.Naming != "" && !overridden(KeyNaming) {
		policy, err := model.ParseNamingPolicy(cf.Naming)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidNamingPolicy, cf.Naming)
		}
		cfg.Naming = policy
	}

	if cf.Workers != nil && !overridden(KeyWorkers) {
		cfg.Workers = *cf.Workers
	}

	if cf.Timeout != "" && !overridden(KeyTimeout) {
		d, err := time.ParseDuration(cf.Timeout)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTimeout, cf.Timeout)
		}
		cfg.Timeout = d
	}

	if cf.UserAgent != "" && !overridden(KeyUserAgent) {
		cfg.UserAgent = cf.UserAgent
	}

	if cf.Proxy != "" && !overridden(KeyProxy) {
		cfg.Proxy = cf.Proxy
	}

	if cf.Exclude != nil && !overridden(KeyExclude) {
		cfg.ExcludePrefixes = append([]string(nil), cf.Exclude...)
	}

	if cf.ExifAudit != nil && !overridden(KeyExifAudit) {
		cfg.ExifAudit = *cf.ExifAudit
	}

	return nil
}

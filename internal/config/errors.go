package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and File.ApplyTo() and
// provide specific information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoRoot is returned when no root directory is specified.
	ErrNoRoot = errors.New("no root directory specified: provide a directory argument or set root in the config file")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	// A pool of zero workers would never process a document.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidNamingPolicy is returned when the naming policy is not one
	// of original, asc or uuid.
	ErrInvalidNamingPolicy = errors.New("invalid naming policy: must be one of original, asc, uuid")

	// ErrInvalidTimeout is returned when the download timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidProxy is returned when the proxy is not a socks5:// or
	// socks5h:// URL with a host.
	ErrInvalidProxy = errors.New("invalid proxy: must be socks5://host:port or socks5h://host:port")
)

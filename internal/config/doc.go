// Package config provides the configuration value object for mdmirror runs.
// It defines the defaults, validation rules, and the optional .mdmirror YAML
// file whose values are merged under explicitly set command-line flags.
package config

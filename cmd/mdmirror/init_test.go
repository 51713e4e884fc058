package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/mdmirror/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
		if flag.DefValue != configFileName {
			t.Errorf("expected default %q, got %q", configFileName, flag.DefValue)
		}
	})

	t.Run("has force flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("force")
		if flag == nil {
			t.Fatal("expected force flag")
		}
		if flag.Shorthand != "f" {
			t.Errorf("expected shorthand 'f', got %q", flag.Shorthand)
		}
	})
}

// executeInit runs the init command with args and returns its output.
func executeInit(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := NewInitCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates config file", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "nested", ".mdmirror")
		output, err := executeInit(t, "-o", outputPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "Created configuration file") {
			t.Errorf("unexpected output: %q", output)
		}

		info, err := os.Stat(outputPath)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("expected mode 0600, got %o", info.Mode().Perm())
		}
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".mdmirror")
		if err := os.WriteFile(outputPath, []byte("workers: 2\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		_, err := executeInit(t, "-o", outputPath)
		if err == nil {
			t.Fatal("expected error for existing file")
		}
		if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "workers: 2\n" {
			t.Error("existing file was modified")
		}
	})

	t.Run("overwrites with force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".mdmirror")
		if err := os.WriteFile(outputPath, []byte("old"), 0o600); err != nil {
			t.Fatal(err)
		}

		if _, err := executeInit(t, "-o", outputPath, "-f"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "naming:") {
			t.Error("expected template content after overwrite")
		}
	})

	t.Run("template loads as a valid config", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".mdmirror")
		if _, err := executeInit(t, "-o", outputPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cf, err := config.LoadConfigFile(outputPath)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}

		cfg := config.NewConfig()
		cfg.Root = t.TempDir()
		if err := cf.ApplyTo(cfg, nil); err != nil {
			t.Fatalf("ApplyTo() error = %v", err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
		if cfg.Workers != config.DefaultWorkers {
			t.Errorf("Workers = %d, want %d", cfg.Workers, config.DefaultWorkers)
		}
		if cfg.Naming != config.DefaultNaming {
			t.Errorf("Naming = %q, want %q", cfg.Naming, config.DefaultNaming)
		}
		if len(cfg.ExcludePrefixes) != 4 {
			t.Errorf("ExcludePrefixes = %v, want the four defaults", cfg.ExcludePrefixes)
		}
	})
}

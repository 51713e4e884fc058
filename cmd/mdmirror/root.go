package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for mdmirror.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mdmirror",
		Short: "Mirror remote images of Markdown documents locally",
		Long: `mdmirror finds externally hosted images in Markdown documents, downloads
them next to each document and rewrites the references to the local copies.

Documents exported from note-taking services often point at image URLs that
expire or disappear. Running mdmirror over the export keeps the notes
readable offline. Running it again is safe: images that are already on disk
are not downloaded twice.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/mdmirror/internal/config"
	"github.com/nao1215/mdmirror/internal/database"
	"github.com/nao1215/mdmirror/internal/model"
)

// defaultHistoryLimit is the number of runs listed when --limit is not set.
const defaultHistoryLimit = 10

// NewHistoryCmd creates the history command.
// This command shows past runs stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past mirror runs",
		Long: `History lists the runs recorded in the history database, newest first.

Every "mdmirror run" is recorded unless --no-history is given. Use --run to
show the per-image outcomes of a single run.

Examples:
  # List the ten most recent runs
  mdmirror history

  # List the 50 most recent runs
  mdmirror history --limit 50

  # Show every download of one run
  mdmirror history --run 4f1c2d9e-6a7b-4c3d-9e8f-0a1b2c3d4e5f

  # Same, as JSON
  mdmirror history --run 4f1c2d9e-6a7b-4c3d-9e8f-0a1b2c3d4e5f --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Maximum number of runs to list")
	cmd.Flags().String("run", "",
		"Show the downloads of the run with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if runID != "" {
		return showRun(ctx, out, db, runID, jsonOutput)
	}
	return listRuns(ctx, out, db, limit, jsonOutput)
}

// listRuns prints the most recent runs.
func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, limit int, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOutput {
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the history database.")
		fmt.Fprintln(out, "\nUse 'mdmirror run <directory>' to mirror images.")
		return nil
	}

	fmt.Fprintf(out, "Recent runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-8s  %5s  %5s  %5s  %s\n",
		"ID", "Started", "Naming", "Docs", "Down", "Fail", "Root")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 110))

	for _, r := range runs {
		started := r.StartedAt.Local().Format(time.DateTime)
		if !r.Finished() {
			started += "*"
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %-8s  %5d  %5d  %5d  %s\n",
			r.ID, started, r.Naming, r.FilesFound, r.ImagesDownloaded, r.ImagesFailed, r.Root)
	}

	fmt.Fprintln(out, "\n  * run did not finish")
	fmt.Fprintln(out, "\nUse 'mdmirror history --run <id>' to see the downloads of a run.")
	return nil
}

// runDetail is the JSON view of a single run.
type runDetail struct {
	Run       *database.RunRecord           `json:"run"`
	Outcomes  map[model.DownloadOutcome]int `json:"outcomes"`
	Downloads []model.DownloadRecord        `json:"downloads"`
}

// showRun prints one run with its downloads.
func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, runID string, jsonOutput bool) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return fmt.Errorf("no run with ID %s (use 'mdmirror history' to list runs)", runID)
		}
		return fmt.Errorf("failed to get run: %w", err)
	}

	outcomes, err := db.CountDownloadsByOutcome(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to count downloads: %w", err)
	}

	downloads, err := db.GetRunDownloads(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get downloads: %w", err)
	}

	if jsonOutput {
		return writeJSON(out, runDetail{Run: run, Outcomes: outcomes, Downloads: downloads})
	}

	fmt.Fprintf(out, "Run %s\n\n", run.ID)
	fmt.Fprintf(out, "  %-20s %s\n", "Root:", run.Root)
	fmt.Fprintf(out, "  %-20s %s\n", "Naming:", run.Naming)
	fmt.Fprintf(out, "  %-20s %d\n", "Workers:", run.Workers)
	fmt.Fprintf(out, "  %-20s %s\n", "Started:", run.StartedAt.Local().Format(time.DateTime))
	if run.Finished() {
		fmt.Fprintf(out, "  %-20s %s\n", "Finished:", run.FinishedAt.Local().Format(time.DateTime))
	} else {
		fmt.Fprintf(out, "  %-20s %s\n", "Finished:", "(did not finish)")
	}
	fmt.Fprintf(out, "  %-20s %d found, %d processed, %d failed\n",
		"Documents:", run.FilesFound, run.FilesProcessed, run.FilesFailed)
	fmt.Fprintf(out, "  %-20s %d seen, %d processed, %d downloaded, %d failed\n",
		"Images:", run.ImagesSeen, run.ImagesProcessed, run.ImagesDownloaded, run.ImagesFailed)
	if run.ImagesWithMetadata > 0 {
		fmt.Fprintf(out, "  %-20s %d\n", "With metadata:", run.ImagesWithMetadata)
	}
	fmt.Fprintf(out, "  %-20s %d\n", "Removed dirs:", run.RemovedDirs)

	if len(downloads) == 0 {
		fmt.Fprintln(out, "\nNo downloads recorded for this run.")
		return nil
	}

	fmt.Fprintln(out, "\nOutcomes:")
	for _, o := range []model.DownloadOutcome{
		model.OutcomeDownloaded,
		model.OutcomeExists,
		model.OutcomeHTTPError,
		model.OutcomeTransportError,
	} {
		if n := outcomes[o]; n > 0 {
			fmt.Fprintf(out, "  %-16s %d\n", o, n)
		}
	}

	fmt.Fprintf(out, "\nDownloads (%d):\n\n", len(downloads))
	fmt.Fprintf(out, "  %-16s  %-10s  %-40s  %s\n", "Outcome", "Worker", "Document", "URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, d := range downloads {
		outcome := string(d.Outcome)
		if d.StatusCode != 0 {
			outcome = fmt.Sprintf("%s %d", outcome, d.StatusCode)
		}
		fmt.Fprintf(out, "  %-16s  %-10s  %-40s  %s\n",
			outcome, d.Worker, fmt.Sprintf("%s:%d", d.Document, d.Line), d.URL)
	}

	return nil
}

// writeJSON encodes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

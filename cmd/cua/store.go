package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/j-veylop/claude-usage-analytics/internal/backfill"
	"github.com/j-veylop/claude-usage-analytics/internal/config"
	"github.com/j-veylop/claude-usage-analytics/internal/db"
	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/services"
	"github.com/j-veylop/claude-usage-analytics/internal/syncmerge"
)

func newSyncCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Move history between machines",
	}
	cmd.AddCommand(newSyncExportCommand(cfg), newSyncImportCommand(cfg))
	return cmd
}

func newSyncExportCommand(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the local history to a sync bundle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := services.NewManager(cfg)
			defer mgr.Close()

			if !mgr.Store().Available() {
				return db.ErrStoreUnavailable
			}
			if output == "" {
				output = fmt.Sprintf("claude-usage-sync-%s.json", time.Now().Format(models.DateLayout))
			}

			bundle, err := mgr.Merger().WriteBundle(output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d days and %d model rows from %s to %s\n",
				len(bundle.Snapshots), len(bundle.ModelUsage), bundle.MachineID, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "bundle path (default claude-usage-sync-<date>.json)")
	return cmd
}

func newSyncImportCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <bundle>",
		Short: "Merge a sync bundle from another machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := syncmerge.ReadBundle(args[0])
			if err != nil {
				return err
			}

			mgr := services.NewManager(cfg)
			defer mgr.Close()

			res, err := mgr.Merger().Import(bundle)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported bundle from %s exported %s\n",
				bundle.MachineID, humanize.Time(bundle.ExportedAt))
			fmt.Fprintf(cmd.OutOrStdout(), "  inserted %d, merged %d, skipped %d\n",
				res.Inserted, res.Merged, res.Skipped)
			return nil
		},
	}
}

func newPruneCommand(cfg *config.Config) *cobra.Command {
	var before string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored history older than a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := time.Parse(models.DateLayout, before); err != nil {
				return fmt.Errorf("invalid --before %q, want YYYY-MM-DD", before)
			}

			mgr := services.NewManager(cfg)
			defer mgr.Close()

			store := mgr.Store()
			if !store.Available() {
				return db.ErrStoreUnavailable
			}
			n, err := store.ClearHistoryBeforeDate(before)
			if err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d rows before %s\n", n, before)
			return nil
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "delete days before this date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("before")
	return cmd
}

func newResetCommand(cfg *config.Config) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
				fmt.Sprintf("Delete all history in %s?", cfg.DatabasePath)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}

			mgr := services.NewManager(cfg)
			defer mgr.Close()

			store := mgr.Store()
			if !store.Available() {
				return db.ErrStoreUnavailable
			}
			if err := store.Truncate(); err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func newBackfillCommand(cfg *config.Config) *cobra.Command {
	var (
		jsonOnly bool
		output   string
		dbPath   string
	)

	cmd := &cobra.Command{
		Use:   "backfill <export-dir>",
		Short: "Import a claude.ai data export into the history",
		Long: `Read conversations.json from an extracted claude.ai data export, estimate
token usage and cost per day, and write a JSON summary. Days are added to
the history database unless --json-only is set; days already stored are kept.`,
		Example: `  cua backfill ~/Downloads/data-export --json-only
  cua backfill ~/Downloads/data-export -o summary.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dir := expandHome(args[0])

			days, err := backfill.Load(dir)
			if err != nil {
				return err
			}
			backfill.CalculateCosts(days, cfg.Pricing())

			summary := backfill.Summarize(days, time.Now())
			if output == "" {
				output = filepath.Join(dir, "backfill_summary.json")
			}
			if err := backfill.WriteSummary(summary, output); err != nil {
				return err
			}
			fmt.Fprintf(out, "JSON summary written to %s\n", output)

			if !jsonOnly {
				if dbPath == "" {
					dbPath = cfg.DatabasePath
				}
				if err := backfillStore(out, expandHome(dbPath), days); err != nil {
					return err
				}
			}

			backfill.Print(out, summary.Totals)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOnly, "json-only", false, "write the summary only, leave the database untouched")
	cmd.Flags().StringVarP(&output, "output", "o", "", "summary path (default <export-dir>/backfill_summary.json)")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database path (default from config)")
	return cmd
}

// backfillStore backs up an existing database and inserts the missing days.
// The database is never created here; it belongs to the dashboard.
func backfillStore(out io.Writer, path string, days []*backfill.DayStats) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(out, "Database not found at %s\n", path)
		fmt.Fprintln(out, "Run cua once to create it, or use --json-only.")
		return nil
	}

	store, err := db.New(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	backup := path + ".backup"
	if err := os.Remove(backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing old backup: %w", err)
	}
	if err := store.Backup(backup); err != nil {
		return err
	}
	fmt.Fprintf(out, "Backed up %s to %s\n", path, backup)

	imported, skipped, err := backfill.WriteToStore(store, days)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d days, skipped %d already stored\n", imported, skipped)
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

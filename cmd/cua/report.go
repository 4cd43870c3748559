package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/j-veylop/claude-usage-analytics/internal/config"
	"github.com/j-veylop/claude-usage-analytics/internal/export"
	"github.com/j-veylop/claude-usage-analytics/internal/models"
	"github.com/j-veylop/claude-usage-analytics/internal/services"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/components"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/styles"
)

func newReportCommand(cfg *config.Config) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the usage report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := services.NewManager(cfg)
			defer mgr.Close()

			res := mgr.Report(true)
			if asJSON {
				return export.JSON(cmd.OutOrStdout(), res.Value)
			}
			printReport(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newExportCommand(cfg *config.Config) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export daily history as CSV or the full report as JSON",
		Long:  "Write the usage report to a file. Use -o - to write to stdout.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			mgr := services.NewManager(cfg)
			defer mgr.Close()
			res := mgr.Report(true)
			if res.IsDegraded() {
				return fmt.Errorf("building report: %w", res.Err)
			}

			if output == "-" {
				return export.Write(cmd.OutOrStdout(), f, res.Value)
			}
			if output == "" {
				output = export.DefaultFilename(f, time.Now())
			}
			if err := writeFile(output, func(w io.Writer) error { return export.Write(w, f, res.Value) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d days to %s\n", len(res.Value.DailyHistory), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "export format: csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default claude-usage-<date>.<format>)")
	return cmd
}

func newScanCommand(cfg *config.Config) *cobra.Command {
	var (
		force  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan conversation logs and print text statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := services.NewManager(cfg)
			defer mgr.Close()

			res := mgr.Scanner().Scan(force)
			if res.IsDegraded() {
				return fmt.Errorf("scanning %s: %w", cfg.ProjectsDir, res.Err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res.Value)
			}
			printConversation(cmd.OutOrStdout(), res.Value)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "ignore the scan cache and rescan every file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the statistics as JSON")
	return cmd
}

// writeFile writes through a temp file so a failed export never leaves a
// truncated file behind.
func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cua-export-*")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var (
	sectionStyle = styles.SubTitleStyle.MarginBottom(0)
	labelStyle   = lipgloss.NewStyle().Width(20).Foreground(styles.TextMuted)
)

func line(w io.Writer, label, value string) {
	fmt.Fprintln(w, "  "+labelStyle.Render(label)+" "+value)
}

func printReport(w io.Writer, res models.Result[*models.UsageReport]) {
	r := res.Value

	fmt.Fprintln(w, styles.TitleStyle.MarginBottom(0).Render("Claude Usage"))
	switch res.Status {
	case models.StatusDegraded:
		fmt.Fprintln(w, styles.WarningTextStyle.Render(fmt.Sprintf("Showing defaults: %v", res.Err)))
	case models.StatusEmpty:
		fmt.Fprintln(w, styles.InfoTextStyle.Render("No usage data found yet."))
	}
	fmt.Fprintln(w)

	today := components.Cost(r.Today.Cost)
	if r.Today.Estimated {
		today += " (est.)"
	}
	fmt.Fprintln(w, sectionStyle.Render("Today"))
	line(w, "Cost", styles.CostStyle.Render(today))
	line(w, "Messages", components.Count(r.Today.Messages))
	line(w, "Tokens", components.Tokens(r.Today.Tokens))

	fmt.Fprintln(w, sectionStyle.Render("Last 14 days"))
	line(w, "Cost", styles.CostStyle.Render(components.Cost(r.Last14Days.Cost)))
	line(w, "Avg / day", components.Cost(r.Last14Days.AvgDailyCost))
	line(w, "Messages", components.Count(r.Last14Days.Messages))
	line(w, "Active days", fmt.Sprintf("%d", r.Last14Days.ActiveDays))

	fmt.Fprintln(w, sectionStyle.Render("All time"))
	line(w, "Cost", styles.CostStyle.Render(components.Cost(r.AllTime.Cost)))
	line(w, "Messages", components.Count(r.AllTime.Messages))
	line(w, "Sessions", components.Count(r.AllTime.Sessions))
	line(w, "Days active", fmt.Sprintf("%d", r.AllTime.DaysActive))
	if r.AllTime.FirstSessionDate != "" {
		line(w, "First session", r.AllTime.FirstSessionDate)
	}

	if len(r.Models) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("Models"))
		for _, m := range r.Models {
			line(w, m.Model, fmt.Sprintf("%s  %5.1f%%", components.Cost(m.Cost), m.Percent))
		}
	}

	fs := r.FunStats
	trendStyle, arrow := styles.GetTrendStyle(string(fs.Trend))
	fmt.Fprintln(w, sectionStyle.Render("Habits"))
	line(w, "Streak", fmt.Sprintf("%d days", fs.Streak))
	line(w, "Peak hour", fs.PeakHour)
	line(w, "Trend", trendStyle.Render(fmt.Sprintf("%s %+.0f%%", arrow, fs.TrendPercent)))
	line(w, "Cache hit ratio", fmt.Sprintf("%.0f%%", fs.CacheHitRatio))
	line(w, "Saved by caching", components.Cost(fs.CacheSavings))

	var unlocked []string
	for _, a := range r.Achievements {
		if a.Unlocked {
			unlocked = append(unlocked, a.Name)
		}
	}
	fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("Achievements (%d/%d)", len(unlocked), len(r.Achievements))))
	if len(unlocked) > 0 {
		fmt.Fprintln(w, "  "+styles.AchievementUnlockedStyle.Render(strings.Join(unlocked, ", ")))
	}
}

func printConversation(w io.Writer, c *models.ConversationStats) {
	fmt.Fprintln(w, styles.TitleStyle.MarginBottom(0).Render("Conversation statistics"))
	fmt.Fprintln(w, styles.HelpStyle.Render(fmt.Sprintf("%d files, %d unreadable lines skipped", c.FilesScanned, c.LinesSkipped)))
	fmt.Fprintln(w)

	line(w, "Messages", components.Count(int64(c.UserMessages)))
	line(w, "Words", components.Count(int64(c.TotalWords)))
	line(w, "Questions", components.Count(int64(c.Questions)))
	line(w, "Exclamations", components.Count(int64(c.Exclamations)))
	line(w, "Please / thanks", fmt.Sprintf("%d / %d", c.PleaseCount, c.ThanksCount))
	line(w, "Curse words", components.Count(int64(c.CurseWords)))
	line(w, "CAPS RAGE", components.Count(int64(c.CapsRage)))
	line(w, "Code blocks", components.Count(int64(c.CodeBlocks)))
	line(w, "Lines of code", components.Count(int64(c.LinesOfCode)))
}

// Package main is the entry point for cua, the Claude usage analytics
// dashboard. With no subcommand it runs the TUI.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/claude-usage-analytics/internal/app"
	"github.com/j-veylop/claude-usage-analytics/internal/config"
	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/services"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/tabs/dashboard"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/tabs/history"
	"github.com/j-veylop/claude-usage-analytics/internal/ui/tabs/insights"
	"github.com/j-veylop/claude-usage-analytics/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCommand(cfg).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "cua",
		Short:         "Claude usage analytics: cost, history and habits from your local Claude Code data.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// The dashboard logs to a file and shows warnings in the insights tab.
			if cmd == cmd.Root() {
				return
			}
			logger.Init(os.Stderr, cfg.LogLevel)
			for _, w := range cfg.Warnings {
				logger.Warn("config", "warning", w)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDashboard(cfg)
		},
	}

	root.AddCommand(
		newReportCommand(cfg),
		newExportCommand(cfg),
		newScanCommand(cfg),
		newSyncCommand(cfg),
		newPruneCommand(cfg),
		newResetCommand(cfg),
		newBackfillCommand(cfg),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

// openLog routes logging to the log file so it does not corrupt the TUI.
func openLog(cfg *config.Config) (io.Closer, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.Init(f, cfg.LogLevel)
	return f, nil
}

func runDashboard(cfg *config.Config) error {
	logFile, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	mgr := services.NewManager(cfg)
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			logger.Error("closing services", "error", closeErr)
		}
	}()
	mgr.Start()

	model := app.NewModel(mgr)
	state := model.GetState()
	model.SetTabs([]app.Tab{
		dashboard.New(state),
		history.New(state),
		insights.New(state, cfg, mgr.Store()),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(tea.Quit())
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cvscreener/cvchat/internal/api"
	"github.com/cvscreener/cvchat/internal/models"
)

var (
	runWatch  bool
	runCancel bool
)

var (
	runOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	runErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	runDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

var runCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Inspect a run's status",
	Long: `Inspect the status of a run by polling the backend.

This is the fallback observation path for when the live event stream is not
available. With --watch the command polls until the run reaches a terminal
state; with --cancel it asks the backend to stop the run first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}

		logger, closeLog, err := cfg.logger()
		if err != nil {
			return err
		}
		defer closeLog()

		client := api.NewClient(cfg.ServerURL, logger)
		ctx := cmd.Context()
		runID := args[0]

		if runCancel {
			if err := client.CancelRun(ctx, runID); err != nil {
				return fmt.Errorf("failed to cancel run: %w", err)
			}
			fmt.Println("Cancellation requested.")
		}

		for {
			run, err := client.GetRun(ctx, runID)
			if err != nil {
				return fmt.Errorf("failed to get run: %w", err)
			}
			printRun(run)

			if !runWatch || run.Terminal() {
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	},
}

func init() {
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "poll until the run reaches a terminal state")
	runCmd.Flags().BoolVar(&runCancel, "cancel", false, "ask the backend to stop the run first")
}

func printRun(run models.Run) {
	status := runOKStyle.Render(string(run.Status))
	if run.Status == models.RunFailed {
		status = runErrStyle.Render(string(run.Status))
	}

	fmt.Printf("%s  %s\n", status, runDimStyle.Render(run.ID))
	if run.CreatedAt != "" {
		fmt.Printf("  created:  %s\n", run.CreatedAt)
	}
	if run.StartedAt != "" {
		fmt.Printf("  started:  %s\n", run.StartedAt)
	}
	if run.FinishedAt != "" {
		fmt.Printf("  finished: %s\n", run.FinishedAt)
	}
	if run.Error != "" {
		fmt.Printf("  error:    %s\n", runErrStyle.Render(run.Error))
	}
}

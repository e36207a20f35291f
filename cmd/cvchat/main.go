package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cvscreener/cvchat/internal/api"
	"github.com/cvscreener/cvchat/internal/chat"
	"github.com/cvscreener/cvchat/internal/session"
	"github.com/cvscreener/cvchat/internal/tui"
)

var (
	serverURL string
	userName  string
)

var rootCmd = &cobra.Command{
	Use:   "cvchat",
	Short: "Chat with the CV Screener assistant from your terminal",
	Long: `cvchat is a terminal client for the CV Screener backend.

It keeps one conversation thread per device, resumes it across restarts,
and streams the assistant's replies as they are generated.

Quick start:
  cvchat                 # start or resume the conversation
  cvchat reset           # forget the stored identity and thread
  cvchat run <run-id>    # inspect a run's status`,
	SilenceUsage: true,
	RunE:         runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "backend base URL (overrides config)")
	rootCmd.Flags().StringVar(&userName, "name", "", "user name for first-time setup")
	rootCmd.AddCommand(resetCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
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

	store, err := session.NewBoltStore(cfg.sessionDBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	client := api.NewClient(cfg.ServerURL, logger)
	mgr := session.NewManager(client, store, logger)

	ctx := cmd.Context()
	sess, err := mgr.Resume(ctx)
	if errors.Is(err, session.ErrNoSession) {
		name := userName
		if name == "" {
			name, err = promptName()
			if err != nil {
				return err
			}
		}
		sess, err = mgr.Establish(ctx, name)
	}
	if err != nil {
		return err
	}
	logger.Info("Session ready",
		slog.String("userID", sess.UserID),
		slog.String("threadID", sess.ThreadID))

	// The controller publishes snapshots into the running program; p is set
	// before any submission can happen.
	var p *tea.Program
	ctrl := chat.NewController(client, sess.ThreadID, logger, func(s chat.Snapshot) {
		if p != nil {
			p.Send(tui.SnapshotMsg(s))
		}
	})

	p = tea.NewProgram(tui.New(ctrl, sess, mgr.Reset, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run chat ui: %w", err)
	}
	return nil
}

func promptName() (string, error) {
	fmt.Print("Enter your name to get started: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("error reading name: %w", err)
	}
	name := strings.TrimSpace(line)
	if name == "" {
		return "", fmt.Errorf("a name is required")
	}
	return name, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cvscreener/cvchat/internal/session"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the stored session identity",
	Long: `Clear the persisted user and thread identity.

The next run of cvchat will ask for a name and start a fresh conversation.
Nothing is deleted on the backend.`,
	RunE: func(*cobra.Command, []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := session.NewBoltStore(cfg.sessionDBPath())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		fmt.Println("Session cleared.")
		return nil
	},
}

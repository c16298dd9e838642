package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nafiskhan/profilechat/internal/config"
	"github.com/nafiskhan/profilechat/internal/logger"
	"github.com/nafiskhan/profilechat/pkg/store"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge sessions inactive past the retention threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCleanup()
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "retention threshold in days (default from config)")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup() error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	days := cleanupDays
	if days == 0 {
		days = cfg.Retention.Days
	}
	if days <= 0 {
		return fmt.Errorf("retention days must be positive")
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer lg.Close()

	st, err := store.New(store.Config{
		DBPath: cfg.Database.Path,
		Logger: lg.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	deleted, err := st.PurgeStale(context.Background(), days)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Printf("Deleted %d stale sessions (retention %d days)\n", deleted, days)
	return nil
}

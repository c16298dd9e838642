package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nafiskhan/profilechat/internal/config"
	"github.com/nafiskhan/profilechat/internal/logger"
	"github.com/nafiskhan/profilechat/pkg/agent"
	"github.com/nafiskhan/profilechat/pkg/chat"
	"github.com/nafiskhan/profilechat/pkg/profile"
	"github.com/nafiskhan/profilechat/pkg/retention"
	"github.com/nafiskhan/profilechat/pkg/server"
	"github.com/nafiskhan/profilechat/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer lg.Close()
	log := lg.GetZerolog()

	st, err := store.New(store.Config{
		DBPath: cfg.Database.Path,
		Logger: log.With().Str("component", "store").Logger(),
	})
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	provider, err := agent.NewProvider(cfg.Completion.Provider, cfg.Completion.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create completion provider: %w", err)
	}

	prof, err := profile.NewManager(cfg.Profile.Path, log.With().Str("component", "profile").Logger())
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	if cfg.Profile.Watch {
		watcher, err := profile.NewWatcher(prof, log.With().Str("component", "profile").Logger())
		if err != nil {
			return fmt.Errorf("failed to create profile watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to start profile watcher: %w", err)
		}
		defer watcher.Stop()
	}

	chatSvc := chat.NewService(st, provider, prof, chat.Options{
		Model:           cfg.Completion.Model,
		Temperature:     cfg.Completion.Temperature,
		MaxTokens:       cfg.Completion.MaxTokens,
		ContextMessages: cfg.Completion.ContextMessages,
	}, log.With().Str("component", "chat").Logger())

	sweeper, err := retention.NewSweeper(st, cfg.Retention.Days, cfg.Retention.Schedule,
		log.With().Str("component", "retention").Logger())
	if err != nil {
		return fmt.Errorf("failed to create retention sweeper: %w", err)
	}
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start retention sweeper: %w", err)
	}
	defer sweeper.Stop()

	srv, err := server.NewServer(server.Options{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		StaticDir:     cfg.Server.StaticDir,
		RetentionDays: cfg.Retention.Days,
	}, chatSvc, st, prof, log.With().Str("component", "server").Logger())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		return srv.Stop()
	}
}

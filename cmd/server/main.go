package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/config"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/logging"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/server"
)

var version = "dev"

var (
	portFlag     string
	hostFlag     string
	devFlag      bool
	settingsFlag string
)

var rootCmd = &cobra.Command{
	Use:   "ging-relay",
	Short: "Terminal session and AI chat relay for Ging IDE",
	Long: `Run the session relay: pseudo-terminal shells and streaming chat
completions exposed over a WebSocket (/stream) and a REST API.

Configuration comes from the environment (PORT, HOST, AI_PROVIDER, AI_API_KEY,
...); flags override it.

Example:
  ging-relay                              # 127.0.0.1:8000
  ging-relay --port 9000 --dev            # console logs, debug level
  ging-relay --settings ~/.ging/ai.toml   # watch provider settings file`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&portFlag, "port", "", "Server port (overrides PORT)")
	rootCmd.Flags().StringVar(&hostFlag, "host", "", "Listen host (overrides HOST)")
	rootCmd.Flags().BoolVar(&devFlag, "dev", false, "Development logging")
	rootCmd.Flags().StringVar(&settingsFlag, "settings", "", "Provider settings file, .toml or .yaml (overrides AI_SETTINGS_FILE)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}
	if hostFlag != "" {
		cfg.Server.Host = hostFlag
	}
	if devFlag {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if settingsFlag != "" {
		cfg.AI.SettingsFile = settingsFlag
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		return srv.WatchSettings(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	return nil
}

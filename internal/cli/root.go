package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/tokenwatch/internal/control"
	"github.com/vietddude/tokenwatch/internal/core/config"
)

var (
	cfgPath  string
	isDebug  bool
	endpoint string
	token    string
)

var rootCmd = &cobra.Command{
	Use:   "tokenwatch",
	Short: "Solana token program transaction monitor",
	Long: `TokenWatch subscribes to a Yellowstone Geyser stream, keeps the subscription
alive across transport failures and prints every transaction that touches
one of the configured programs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatcher,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "geyser gRPC endpoint (overrides config and GRPC_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "geyser x-token (overrides config and GRPC_TOKEN)")
}

// loadConfig reads .env, the config file and the flag overrides.
func loadConfig() (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		cfg.Geyser.Endpoint = endpoint
	}
	if token != "" {
		cfg.Geyser.Token = token
	}
	if isDebug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func setupLogging(level string) {
	stylelog.InitDefault(&tint.Options{
		Level:      parseLevel(level),
		TimeFormat: time.RFC3339,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runWatcher(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		return err
	}
	setupLogging(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return err
	}

	banner := figure.NewFigure("TokenWatch", "", true)
	fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(banner.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := control.NewWatcher(ctx, control.Config{App: cfg, Out: cmd.OutOrStdout()})
	if err != nil {
		slog.Error("Failed to initialize Watcher", "error", err)
		return err
	}

	slog.Info("Watcher started", "config", cfgPath, "commitment", cfg.Subscription.Commitment)
	runErr := app.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	slog.Info("Watcher stopped gracefully", "transactions", app.Supervisor().Transactions())
	return nil
}

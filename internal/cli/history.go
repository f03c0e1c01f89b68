package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/vietddude/tokenwatch/internal/control"
	"github.com/vietddude/tokenwatch/internal/core/config"
	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/indexing/emitter"
	redisclient "github.com/vietddude/tokenwatch/internal/infra/redis"
)

var (
	historyLimit  int
	historySource string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recently recorded token transactions",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of transactions to print")
	historyCmd.Flags().StringVar(&historySource, "source", "store", "where to read from: store or redis")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", historyLimit)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.Logging.Level)

	ctx := cmd.Context()
	var events []*domain.Event
	switch historySource {
	case "store":
		events, err = storedEvents(ctx, cfg, historyLimit)
	case "redis":
		events, err = publishedEvents(ctx, cfg.Redis, historyLimit)
	default:
		err = fmt.Errorf("unknown source %q", historySource)
	}
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	return printHistory(cmd.OutOrStdout(), events, emitter.ConsoleConfig{
		TruncateLength: cfg.Display.TruncateLength,
		Location:       loc,
		Registry:       cfg.Registry(),
	})
}

func storedEvents(ctx context.Context, cfg *config.AppConfig, limit int) ([]*domain.Event, error) {
	if cfg.Storage.Driver == config.StorageNone || cfg.Storage.Driver == config.StorageMemory {
		return nil, fmt.Errorf("storage driver %q keeps no history", cfg.Storage.Driver)
	}
	repo, err := control.OpenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = repo.Close()
	}()
	return repo.List(ctx, limit)
}

func publishedEvents(ctx context.Context, cfg redisclient.Config, limit int) ([]*domain.Event, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis.url is not configured")
	}
	client, err := redisclient.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = client.Close()
	}()

	payloads, err := client.Recent(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	return decodeEvents(payloads), nil
}

// decodeEvents skips payloads that do not decode.
func decodeEvents(payloads [][]byte) []*domain.Event {
	events := make([]*domain.Event, 0, len(payloads))
	for i, p := range payloads {
		var e domain.Event
		if err := json.Unmarshal(p, &e); err != nil {
			slog.Warn("Skipping undecodable payload", "index", i, "error", err)
			continue
		}
		events = append(events, &e)
	}
	return events
}

// printHistory prints events oldest first.
func printHistory(w io.Writer, events []*domain.Event, cfg emitter.ConsoleConfig) error {
	if len(events) == 0 {
		fmt.Fprintln(w, warningStyle.Render("No transactions recorded yet"))
		return nil
	}
	events = slices.Clone(events)
	slices.Reverse(events)

	console := emitter.NewConsole(w, cfg)
	for _, e := range events {
		if _, err := io.WriteString(w, console.Render(e)); err != nil {
			return err
		}
	}
	return nil
}

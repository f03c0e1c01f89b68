package control

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vietddude/tokenwatch/internal/core/config"
	"github.com/vietddude/tokenwatch/internal/indexing/subscription"
	redisclient "github.com/vietddude/tokenwatch/internal/infra/redis"
	"github.com/vietddude/tokenwatch/internal/infra/storage"
	"github.com/vietddude/tokenwatch/internal/infra/storage/memory"
	"github.com/vietddude/tokenwatch/internal/infra/storage/mongo"
	"github.com/vietddude/tokenwatch/internal/infra/storage/postgres"
)

// Config holds the application configuration.
type Config struct {
	App *config.AppConfig
	// Out receives the console reports.
	Out io.Writer
	// Opener replaces the gRPC client when set.
	Opener subscription.Opener
}

// OpenRepository connects the configured store. It returns nil for the
// "none" driver.
func OpenRepository(ctx context.Context, cfg *config.AppConfig) (storage.TransactionRepository, error) {
	switch cfg.Storage.Driver {
	case config.StorageNone, "":
		return nil, nil
	case config.StorageMemory:
		slog.Info("Using Memory storage")
		return memory.NewTxRepo(), nil
	case config.StoragePostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		slog.Info("Using PostgreSQL storage", "driver", db.DriverName())
		return postgres.NewTxRepo(db), nil
	case config.StorageMongo:
		repo, err := mongo.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to init mongo: %w", err)
		}
		slog.Info("Using MongoDB storage", "database", cfg.Mongo.Database)
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// OpenPublisher connects Redis when configured. Connection failures disable
// publishing instead of aborting startup.
func OpenPublisher(cfg redisclient.Config) *redisclient.Client {
	if cfg.URL == "" {
		return nil
	}
	client, err := redisclient.NewClient(cfg)
	if err != nil {
		slog.Warn("Failed to connect to Redis, publishing disabled", "error", err)
		return nil
	}
	slog.Info("Publishing transactions to Redis", "channel", client.Channel())
	return client
}

package config

import (
	"time"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/indexing/recovery"
	"github.com/vietddude/tokenwatch/internal/infra/geyser"
	redisclient "github.com/vietddude/tokenwatch/internal/infra/redis"
	"github.com/vietddude/tokenwatch/internal/infra/storage/mongo"
	"github.com/vietddude/tokenwatch/internal/infra/storage/postgres"
)

// Storage drivers.
const (
	StorageNone     = "none"
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server       ServerConfig                `yaml:"server"`
	Geyser       geyser.Config               `yaml:"geyser"`
	Subscription domain.SubscribeRequest     `yaml:"subscription"`
	Programs     []domain.Program            `yaml:"programs"`
	Retry        recovery.ExponentialBackoff `yaml:"retry"`
	Display      DisplayConfig               `yaml:"display"`
	Logging      LoggingConfig               `yaml:"logging"`
	Storage      StorageConfig               `yaml:"storage"`
	Database     postgres.Config             `yaml:"database"`
	Mongo        mongo.Config                `yaml:"mongo"`
	Redis        redisclient.Config          `yaml:"redis"`
	Solana       SolanaConfig                `yaml:"solana"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DisplayConfig holds console report settings.
type DisplayConfig struct {
	TruncateLength int    `yaml:"truncate_length"`
	Timezone       string `yaml:"timezone"` // IANA name, empty = local
	Debug          bool   `yaml:"debug"`    // dump every record
}

// StorageConfig selects where admitted transactions are persisted.
type StorageConfig struct {
	Driver string `yaml:"driver"` // none, memory, postgres, mongo
	// Retention prunes transactions older than this. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`
}

// SolanaConfig holds the JSON-RPC endpoint used by lookups.
type SolanaConfig struct {
	RPC string `yaml:"rpc"`
}

// Registry builds the program registry.
func (c *AppConfig) Registry() *domain.Registry {
	return domain.NewRegistry(c.Programs)
}

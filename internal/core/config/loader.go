package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/indexing/recovery"
	"github.com/vietddude/tokenwatch/internal/infra/chain/solana"
	"github.com/vietddude/tokenwatch/internal/infra/geyser"
)

// Environment fallbacks for the stream endpoint.
const (
	EnvEndpoint = "GRPC_URL"
	EnvToken    = "GRPC_TOKEN"
)

// DefaultFilterName names the transaction filter derived from the programs.
const DefaultFilterName = "default"

// Load reads configuration from a YAML file. An empty path yields the
// defaults. Environment variables are expanded in the file content.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}

	if cfg.Geyser.Endpoint == "" {
		cfg.Geyser.Endpoint = os.Getenv(EnvEndpoint)
	}
	if cfg.Geyser.Token == "" {
		cfg.Geyser.Token = os.Getenv(EnvToken)
	}
	if cfg.Geyser.KeepAlive == 0 {
		cfg.Geyser.KeepAlive = 10 * time.Second
	}

	if len(cfg.Programs) == 0 {
		cfg.Programs = solana.DefaultPrograms()
	}

	if cfg.Subscription.IsEmpty() {
		cfg.Subscription.Transactions = map[string]domain.TransactionsFilter{
			DefaultFilterName: {
				Vote:           boolPtr(false),
				Failed:         boolPtr(false),
				AccountInclude: cfg.Registry().Addresses(),
			},
		}
	}
	if cfg.Subscription.Commitment == "" {
		cfg.Subscription.Commitment = domain.CommitmentConfirmed
	}

	def := recovery.DefaultBackoff()
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = def.InitialDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = def.MaxDelay
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = def.MaxAttempts
	}

	if cfg.Display.TruncateLength == 0 {
		cfg.Display.TruncateLength = 6
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageNone
	}
	if cfg.Solana.RPC == "" {
		cfg.Solana.RPC = solana.DefaultRPC
	}
}

// Validate checks the settings needed to start the monitor.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Geyser.Endpoint == "" {
		errs = append(errs, fmt.Errorf("%w (set geyser.endpoint or %s)", geyser.ErrMissingEndpoint, EnvEndpoint))
	}
	for _, p := range c.Programs {
		if err := solana.ValidateAddress(p.Address); err != nil {
			errs = append(errs, fmt.Errorf("program %q: %w", p.Name, err))
		}
	}
	if !c.Subscription.Commitment.Valid() {
		errs = append(errs, fmt.Errorf("unknown commitment %q", c.Subscription.Commitment))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_retries must be at least 1"))
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < c.Retry.InitialDelay {
		errs = append(errs, errors.New("retry delays must satisfy 0 <= base_delay <= max_delay"))
	}
	switch c.Storage.Driver {
	case StorageNone, StorageMemory, StoragePostgres, StorageMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Storage.Retention < 0 {
		errs = append(errs, errors.New("storage.retention must not be negative"))
	}
	if c.Storage.Driver == StoragePostgres && c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required for the postgres store"))
	}
	if c.Storage.Driver == StorageMongo && c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo.uri is required for the mongo store"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves the display timezone.
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Display.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid display.timezone: %w", err)
	}
	return loc, nil
}

// Debug reports whether debug output is enabled.
func (c *AppConfig) Debug() bool {
	return c.Display.Debug || strings.EqualFold(c.Logging.Level, "debug")
}

func boolPtr(b bool) *bool { return &b }

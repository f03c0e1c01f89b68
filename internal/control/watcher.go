package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/vietddude/tokenwatch/internal/core/worker"
	"github.com/vietddude/tokenwatch/internal/indexing/emitter"
	"github.com/vietddude/tokenwatch/internal/indexing/extract"
	"github.com/vietddude/tokenwatch/internal/indexing/filter"
	"github.com/vietddude/tokenwatch/internal/indexing/health"
	"github.com/vietddude/tokenwatch/internal/indexing/subscription"
	"github.com/vietddude/tokenwatch/internal/infra/geyser"
	"github.com/vietddude/tokenwatch/internal/infra/storage"
)

// Watcher is the main application struct that manages the subscription
// lifecycle.
type Watcher struct {
	cfg          Config
	supervisor   *subscription.Supervisor
	filter       *filter.ProgramFilter
	emitters     *emitter.Multi
	repo         storage.TransactionRepository
	pruner       *worker.Pruner
	client       *geyser.Client
	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger
}

// NewWatcher creates a new Watcher instance with all dependencies initialized.
func NewWatcher(ctx context.Context, cfg Config) (*Watcher, error) {
	if cfg.App == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	app := cfg.App

	// 1. Program allow-list and the wire request
	registry := app.Registry()
	programFilter := filter.NewRegistryFilter(registry)

	schema, err := geyser.LoadSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load geyser schema: %w", err)
	}
	request, err := schema.BuildRequest(app.Subscription)
	if err != nil {
		return nil, fmt.Errorf("failed to build subscribe request: %w", err)
	}

	// 2. Transport
	var client *geyser.Client
	opener := cfg.Opener
	if opener == nil {
		client, err = geyser.NewClient(app.Geyser, schema)
		if err != nil {
			return nil, err
		}
		opener = subscription.ClientOpener(client)
	}

	// 3. Outputs
	loc, err := app.Location()
	if err != nil {
		return nil, err
	}
	emitters := emitter.NewMulti().Add("console", emitter.NewConsole(cfg.Out, emitter.ConsoleConfig{
		TruncateLength: app.Display.TruncateLength,
		Location:       loc,
		Registry:       registry,
	}))

	repo, err := OpenRepository(ctx, app)
	if err != nil {
		closeClient(client)
		return nil, err
	}
	if repo != nil {
		emitters.Add("store", emitter.NewStore(repo))
	}
	if pub := OpenPublisher(app.Redis); pub != nil {
		emitters.Add("redis", emitter.NewPublish(pub))
	}

	// 4. Supervisor
	supervisor, err := subscription.New(subscription.Config{
		Policy:    &app.Retry,
		Request:   request,
		Opener:    opener,
		Extractor: extract.New(),
		Filter:    programFilter,
		Emitter:   emitters,
		Debug:     app.Debug(),
	})
	if err != nil {
		_ = emitters.Close()
		closeClient(client)
		return nil, err
	}

	var pruner *worker.Pruner
	if repo != nil && app.Storage.Retention > 0 {
		pruner = worker.NewPruner(app.Storage.Retention, repo)
	}

	// 5. Health
	healthMon := health.NewMonitor(supervisor, repo, 0)
	healthServer := health.NewServer(healthMon, app.Server.Port)

	return &Watcher{
		cfg:          cfg,
		supervisor:   supervisor,
		filter:       programFilter,
		emitters:     emitters,
		repo:         repo,
		pruner:       pruner,
		client:       client,
		healthMon:    healthMon,
		healthServer: healthServer,
		log:          slog.Default(),
	}, nil
}

// Run serves the health endpoints and supervises the subscription until ctx
// is cancelled or the retry ceiling is reached.
func (w *Watcher) Run(ctx context.Context) error {
	go func() {
		if err := w.healthServer.Start(); err != nil {
			w.log.Error("Health server failed", "error", err)
		}
	}()

	if w.pruner != nil {
		w.log.Info("Starting pruner", "retention", w.cfg.App.Storage.Retention, "interval", w.pruner.Interval())
		go w.pruner.Start(ctx)
	}

	w.log.Info("Monitoring programs",
		"programs", strings.Join(w.filter.Addresses(), ","),
		"endpoint", w.cfg.App.Geyser.Endpoint,
		"health_port", w.cfg.App.Server.Port,
	)

	return w.supervisor.Run(ctx)
}

// Supervisor exposes the subscription supervisor.
func (w *Watcher) Supervisor() *subscription.Supervisor {
	return w.supervisor
}

// Health exposes the health monitor.
func (w *Watcher) Health() *health.Monitor {
	return w.healthMon
}

// Stop stops the watcher.
func (w *Watcher) Stop(ctx context.Context) error {
	w.log.Info("Stopping Watcher...", "transactions", w.supervisor.Transactions())

	var errs []error
	if err := w.healthServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("health server: %w", err))
	}
	if err := w.emitters.Close(); err != nil {
		errs = append(errs, fmt.Errorf("emitters: %w", err))
	}
	if w.client != nil {
		if err := w.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("geyser client: %w", err))
		}
	}
	return errors.Join(errs...)
}

func closeClient(c *geyser.Client) {
	if c != nil {
		_ = c.Close()
	}
}

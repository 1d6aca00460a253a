// cmd/provisioner/serve.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/reader-provisioner/internal/api"
	"github.com/tamzrod/reader-provisioner/internal/config"
	"github.com/tamzrod/reader-provisioner/internal/distribute"
	"github.com/tamzrod/reader-provisioner/internal/header"
	"github.com/tamzrod/reader-provisioner/internal/logger"
	"github.com/tamzrod/reader-provisioner/internal/monitor"
	"github.com/tamzrod/reader-provisioner/internal/record"
	"github.com/tamzrod/reader-provisioner/internal/registry"
	"github.com/tamzrod/reader-provisioner/internal/statusmem"
)

const shutdownTimeout = 5 * time.Second

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	env := fs.String("env", "", "environment override to apply")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: provisioner serve <master.yaml> [-env E]")
	}

	cfg, err := loadConfig(pos[0], *env)
	if err != nil {
		return err
	}

	logg, err := logger.New(cfg.Environment, cfg.Application.Logging.Level)
	if err != nil {
		return err
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logg)
}

func serve(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	// ------------------------------------------------------------
	// REGISTRY
	// ------------------------------------------------------------

	store, err := registry.Open(registryDSN(cfg), logg)
	if err != nil {
		return err
	}
	defer store.Close()

	if *cfg.Provisioner.SeedRegistry {
		n, err := store.Seed(ctx, cfg.Identities())
		if err != nil {
			return err
		}
		logg.Info("registry seeded from master config", "inserted", n)
	}

	rows, err := store.List(ctx)
	if err != nil {
		return err
	}
	ids := make([]record.Identity, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.Identity())
	}

	// ------------------------------------------------------------
	// MQTT
	// ------------------------------------------------------------

	broker, err := distribute.Connect(distribute.BrokerConfig{
		URL:            cfg.BrokerURL(),
		ClientIDPrefix: cfg.Network.MQTT.ClientIDPrefix,
		Username:       cfg.Network.MQTT.Username,
		Password:       cfg.Network.MQTT.Password,
	}, logg)
	if err != nil {
		return err
	}
	defer broker.Close()

	dist, err := distribute.New(broker, cfg.Network.MQTT.Topics.Config, logg)
	if err != nil {
		return err
	}
	if err := dist.PublishAll(ctx, ids); err != nil {
		logg.Warn("initial config push incomplete", "error", err)
	}

	// ------------------------------------------------------------
	// STATUS MEMORY (optional)
	// ------------------------------------------------------------

	var sink monitor.StatusSink
	if sm := cfg.Provisioner.StatusMemory; sm.Endpoint != "" {
		cli, err := statusmem.NewEndpointClient(statusmem.ClientConfig{
			Endpoint: sm.Endpoint,
			Timeout:  time.Duration(sm.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("status memory %s: %w", sm.Endpoint, err)
		}
		defer cli.Close()
		sink = statusmem.NewExporter(cli, sm.UnitID)
		logg.Info("status memory export enabled", "endpoint", sm.Endpoint, "unit_id", sm.UnitID)
	}

	// ------------------------------------------------------------
	// MONITOR
	// ------------------------------------------------------------

	mon, err := monitor.New(monitor.Config{
		HealthTopic: cfg.Network.MQTT.Topics.Health,
		Stale:       time.Duration(cfg.Provisioner.HeartbeatStale) * time.Millisecond,
	}, store, sink, logg)
	if err != nil {
		return err
	}
	mon.Track(ids)
	if err := mon.Start(broker); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// HTTP
	// ------------------------------------------------------------

	render := func(id record.Identity) []byte {
		b := header.Banner{Source: cfg.Source, Environment: cfg.Environment, Generated: time.Now()}
		return header.RenderReader(b, cfg.RecordFor(id))
	}

	router := api.NewRouter(api.RouterConfig{
		ReaderConfig: api.NewReaderConfigHandler(store, render, logg, dist, mon),
		Status:       api.NewStatusHandler(mon),
		CORS:         cfg.Security.CORS,
	})

	srv := &http.Server{
		Addr:              cfg.Provisioner.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ------------------------------------------------------------
	// RUN
	// ------------------------------------------------------------

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logg.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return mon.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logg.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// registryDSN picks provisioner.registry_dsn, then the configured database,
// then a SQLite file next to the master config.
func registryDSN(cfg *config.Config) string {
	if cfg.Provisioner.RegistryDSN != "" {
		return cfg.Provisioner.RegistryDSN
	}
	if cfg.Network.Database.Host != "" && cfg.Network.Database.Name != "" {
		return cfg.DatabaseURL()
	}
	return filepath.Join(cfg.Dir, "reader-registry.db")
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pario-ai/dimsync/pkg/audit"
	"github.com/pario-ai/dimsync/pkg/cache"
	cachepkg "github.com/pario-ai/dimsync/pkg/cache/sqlite"
	"github.com/pario-ai/dimsync/pkg/client"
	"github.com/pario-ai/dimsync/pkg/config"
	"github.com/pario-ai/dimsync/pkg/generator"
	"github.com/pario-ai/dimsync/pkg/geometry"
	"github.com/pario-ai/dimsync/pkg/identity"
	"github.com/pario-ai/dimsync/pkg/markersync"
	"github.com/pario-ai/dimsync/pkg/measure"
	"github.com/pario-ai/dimsync/pkg/models"
)

// app holds everything a command needs, built once from config and flags.
type app struct {
	cfg     *config.Config
	units   models.UnitSystem
	logger  *slog.Logger
	client  *client.Client
	journal *audit.Logger

	handles    cache.Store
	identities *identity.Allocator
	engine     *markersync.Engine
	runner     *measure.Runner

	closers []func() error
}

func loadConfig(gf *globalFlags) (*config.Config, error) {
	cfg := config.Default()
	if gf.configPath != "" {
		var err error
		cfg, err = config.Load(gf.configPath)
		if err != nil {
			return nil, err
		}
	}
	if gf.host != "" {
		cfg.Remote.Host = gf.host
	}
	if gf.port != 0 {
		cfg.Remote.Port = gf.port
	}
	if gf.timeout != 0 {
		cfg.Remote.Timeout = gf.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openApp(gf *globalFlags) (*app, error) {
	cfg, err := loadConfig(gf)
	if err != nil {
		return nil, err
	}
	units, err := cfg.UnitSystem()
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:    cfg,
		units:  units,
		logger: newLogger(cfg.Log, os.Stderr),
	}

	opts := []client.Option{
		client.WithTimeout(cfg.Remote.Timeout),
		client.WithNamespace(cfg.Remote.Namespace),
		client.WithLogger(a.logger),
	}
	if cfg.Audit.Enabled {
		a.journal, err = audit.New(cfg.Audit)
		if err != nil {
			return nil, fmt.Errorf("open command journal: %w", err)
		}
		a.closers = append(a.closers, a.journal.Close)
		opts = append(opts, client.WithJournal(a.journal))
	}
	a.client = client.New(client.BaseURL(cfg.Remote.Host, cfg.Remote.Port), opts...)

	var idStore cache.Store
	a.handles, idStore, err = a.openStores()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.identities = identity.NewAllocator(idStore)
	a.engine = markersync.New(a.client, a.handles,
		markersync.WithUnits(units), markersync.WithLogger(a.logger))
	a.runner = measure.NewRunner(a.engine,
		measure.NewPublisher(a.client, units, cfg.Offset), nil, a.logger)
	return a, nil
}

// openStores returns the marker handle and identity stores for the
// configured backend.
func (a *app) openStores() (cache.Store, cache.Store, error) {
	if a.cfg.Cache.Backend != "sqlite" {
		return cache.NewMemory("handles"), cache.NewMemory("identities"), nil
	}
	handles, err := cachepkg.New(a.cfg.Cache.DBPath, "handles")
	if err != nil {
		return nil, nil, fmt.Errorf("init handle cache: %w", err)
	}
	a.closers = append(a.closers, handles.Close)
	ids, err := cachepkg.New(a.cfg.Cache.DBPath, "identities")
	if err != nil {
		return nil, nil, fmt.Errorf("init identity cache: %w", err)
	}
	a.closers = append(a.closers, ids.Close)
	return handles, ids, nil
}

func (a *app) plane() geometry.Plane {
	return geometry.Plane{Z: a.cfg.PlaneZ}
}

func (a *app) generator(instance string) *generator.Generator {
	return generator.New(instance, a.identities,
		generator.WithPlane(a.plane()), generator.WithLogger(a.logger))
}

// Close releases the journal and cache databases.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

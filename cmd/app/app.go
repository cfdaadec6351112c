package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/collection"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/storage"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

// appEnv bundles the loaded configuration and registry for one command
// invocation.
type appEnv struct {
	cfg    *internal.Config
	reg    *registry.Registry
	logger *slog.Logger
}

// loadEnv builds the command environment. The config file is optional;
// defaults apply when it is absent. The registry file is not.
func loadEnv(cmd *cli.Command) (*appEnv, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Command output goes to stdout; logs stay on stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	reg, err := registry.Load(cfg.Site.RegistryPath())
	if err != nil {
		return nil, err
	}

	return &appEnv{cfg: cfg, reg: reg, logger: logger}, nil
}

// factory builds a collection engine with the standard directory
// resolution: env override, working directory, then the configured
// site root.
func (a *appEnv) factory(cc *registry.CollectionConfig) (*collection.Engine, error) {
	return collection.NewEngine(cc, a.cfg.Site.Root, a.cfg.Site.BaseURL, a.logger)
}

// engine resolves a collection by name.
func (a *appEnv) engine(name string) (*collection.Engine, error) {
	cc := a.reg.Get(name)
	if cc == nil {
		return nil, fmt.Errorf("collection %q: %w", name, apperr.ErrUnknownCollection)
	}
	return a.factory(cc)
}

// openIndex opens the SQLite index and brings it up to date with the
// site tree before handing it out.
func (a *appEnv) openIndex() (*index.DB, error) {
	db, err := index.Open(a.cfg.SQLite.Path)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFS(a.cfg.Site.Root)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := index.Sync(db, store, index.RegistryResolver(a.reg), a.logger); err != nil {
		a.logger.Warn("index sync failed", "error", err)
	}
	return db, nil
}

// requireArg returns positional argument i or a usage error naming it.
func requireArg(cmd *cli.Command, i int, name string) (string, error) {
	v := cmd.Args().Get(i)
	if v == "" {
		return "", fmt.Errorf("missing %s argument: %w", name, apperr.ErrValidation)
	}
	return v, nil
}

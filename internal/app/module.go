// Package app wires configuration, logging, contacts and the query service
// together, for the MCP server (through fx) and for one-shot CLI commands.
package app

import (
	"context"
	"errors"
	"io"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Napageneral/imessage-max/internal/config"
	"github.com/Napageneral/imessage-max/internal/contacts"
	"github.com/Napageneral/imessage-max/internal/enrich"
	"github.com/Napageneral/imessage-max/internal/logging"
	"github.com/Napageneral/imessage-max/internal/mcpserver"
	"github.com/Napageneral/imessage-max/internal/tools"
)

// Params holds the resolved configuration passed to the fx module.
type Params struct {
	Config  *config.Config
	Version string
}

// Module returns the fx module for the MCP server, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("imessage-max",
		fx.Supply(p, p.Config),
		fx.Provide(
			provideLogger,
			provideDirectory,
			NewMedia,
			NewService,
			provideServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

// New builds the fx application for the serve command.
func New(p Params) *fx.App {
	return fx.New(
		Module(p),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{Level: cfg.LogLevel, LogPath: cfg.LogPath})
}

func provideDirectory(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (contacts.Directory, error) {
	dir, closer, err := NewDirectory(cfg, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		lc.Append(fx.StopHook(closer.Close))
	}
	return dir, nil
}

// NewMedia returns the default attachment preview processors.
func NewMedia(logger *zap.Logger) enrich.Set {
	media := enrich.Defaults()
	media.Logger = logger.Named("enrich")
	return media
}

func provideServer(p Params, svc *tools.Service, logger *zap.Logger) *mcpserver.Server {
	return mcpserver.NewServer(svc,
		mcpserver.WithVersion(p.Version),
		mcpserver.WithLogger(logger.Named("mcp")),
	)
}

// NewDirectory builds the contact directory chain from cfg: the contacts
// file first, then the macOS AddressBook, optionally behind a Redis cache.
// The returned closer is non-nil when a Redis client was opened.
func NewDirectory(cfg *config.Config, logger *zap.Logger) (contacts.Directory, io.Closer, error) {
	var chain contacts.Chain
	if cfg.ContactsFile != "" {
		chain = append(chain, contacts.File{Path: cfg.ContactsFile})
	}
	if !cfg.DisableAddressBook {
		root := cfg.AddressBookDir
		if root == "" {
			root = contacts.DefaultAddressBookRoot()
		}
		chain = append(chain, contacts.AddressBook{Root: root})
	}

	var dir contacts.Directory = chain
	if cfg.RedisURL == "" {
		return dir, nil, nil
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, nil, err
	}
	cache, err := contacts.NewRedisCache(chain, cfg.RedisURL, ttl, logger.Named("contacts"))
	if err != nil {
		return nil, nil, err
	}
	return cache, cache, nil
}

// NewService builds the query service from cfg.
func NewService(cfg *config.Config, dir contacts.Directory, media enrich.Set, logger *zap.Logger) (*tools.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return tools.NewService(tools.Options{
		DBPath:   cfg.ChatDBPath,
		Resolver: contacts.NewResolver(dir, logger.Named("contacts")),
		Logger:   logger.Named("tools"),
		Location: loc,
		Media:    &media,
	}), nil
}

func registerLifecycle(lc fx.Lifecycle, srv *mcpserver.Server, sd fx.Shutdowner, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("mcp server stopped", zap.Error(err))
				}
				// stdin closed: the client is gone
				if err := sd.Shutdown(); err != nil {
					logger.Debug("shutdown", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			logger.Info("mcp server stopped")
			_ = logger.Sync()
			return nil
		},
	})
}

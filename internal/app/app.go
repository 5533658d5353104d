package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/dbclient"
	"storefront/internal/fallback"
	mcpserver "storefront/internal/mcp"
	"storefront/internal/newsletter"
	"storefront/internal/secret"
	"storefront/internal/service"
)

// App is the composition root of the storefront: it owns the store
// connection and wires the services, the HTTP API and the scheduler.
type App struct {
	ctx context.Context
	cfg *config.Config
	v   *viper.Viper
	log *zap.Logger

	backend  *dbclient.Backend
	secrets  secret.SecretStore
	fallback *fallback.Source
	broker   *service.Broker

	pages      *service.PageService
	catalog    *service.CatalogService
	content    *service.ContentService
	newsletter *service.NewsletterService
	uploads    *service.UploadService
	feeds      *service.FeedService
	scheduler  *service.Scheduler
	mcp        *mcpserver.Server
}

// New creates an App. v is the viper instance cfg was resolved from; the
// secret store reads from it.
func New(cfg *config.Config, v *viper.Viper, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	if v == nil {
		v = viper.New()
	}
	return &App{cfg: cfg, v: v, log: log}
}

// Startup connects to the store and builds every service. Nothing is
// served until Run is called.
func (a *App) Startup(ctx context.Context) error {
	a.ctx = ctx

	if err := os.MkdirAll(a.cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	secrets, err := secret.New(a.cfg.SecretsBackend, a.v)
	if err != nil {
		return err
	}
	a.secrets = secrets

	dbPassword, err := secret.GetString(secrets, secret.KeyDatabasePassword)
	if err != nil {
		return err
	}
	backend, err := dbclient.Connect(ctx, &a.cfg.Database, dbPassword, dbclient.Options{
		HistoryLimit: a.cfg.HistoryLimit,
		Logger:       a.log.Named("db"),
	})
	if err != nil {
		return fmt.Errorf("connect %s store: %w", a.cfg.Database.Driver, err)
	}
	a.backend = backend
	if err := backend.Ping(ctx); err != nil {
		// Public reads fall back to the embedded data while the store is down.
		a.log.Warn("store unreachable at startup", zap.String("driver", string(backend.Driver)), zap.Error(err))
	}

	fb, err := fallback.NewSource(a.cfg.FallbackFile, a.log.Named("fallback"))
	if err != nil {
		return err
	}
	a.fallback = fb

	apiKey, err := secret.GetString(secrets, secret.KeyNewsletterAPIKey)
	if err != nil {
		return err
	}
	provider := newsletter.NewClient(a.cfg.Newsletter.Endpoint, a.cfg.Newsletter.ListID, apiKey)

	a.broker = service.NewBroker(a.log.Named("events"))
	a.pages = service.NewPageService(backend.Pages, backend.History, fb, a.broker, a.log.Named("pages"), a.cfg.HistoryLimit)
	a.catalog = service.NewCatalogService(backend.Products, backend.Clicks, fb, a.broker, a.log.Named("catalog"))
	a.content = service.NewContentService(backend.Content, fb, a.broker, a.log.Named("content"))
	a.newsletter = service.NewNewsletterService(backend.Subscribers, provider, a.broker, a.log.Named("newsletter"))
	a.uploads = service.NewUploadService(a.cfg.DataDir, a.cfg.UploadMaxBytes, a.log.Named("uploads"))
	feeds, err := service.NewFeedService(a.catalog, a.cfg.Feeds, a.broker, a.log.Named("feeds"))
	if err != nil {
		return err
	}
	a.feeds = feeds
	a.scheduler = service.NewScheduler(a.catalog, a.newsletter, a.cfg.Schedule, a.log.Named("scheduler"))
	if len(a.cfg.Feeds) > 0 {
		a.scheduler.Register(service.JobFeedImport, a.cfg.Schedule.FeedImport, feeds.RunAll)
	}

	if a.cfg.Server.MCPOverHTTP {
		a.mcp = a.newMCP(ctx, nil)
	}

	a.log.Info("storefront started",
		zap.String("driver", string(backend.Driver)),
		zap.String("data_dir", a.cfg.DataDir),
		zap.Bool("newsletter_provider", provider.Enabled()),
	)
	return nil
}

func (a *App) newMCP(ctx context.Context, emitter service.EventEmitter) *mcpserver.Server {
	deps := mcpserver.Deps{
		Emitter: a.broker,
		Pages:   a.pages,
		Catalog: a.catalog,
		Uploads: a.uploads,
		Logger:  a.log.Named("mcp"),
	}
	if emitter != nil {
		deps.Emitter = emitter
		// Out of process: the server resolves approvals through the store.
		deps.Approvals = a.backend.Approvals
	}
	return mcpserver.New(ctx, deps)
}

// Shutdown releases the store connection.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	a.log.Info("storefront stopped")
	return errors.Join(errs...)
}

// Accessors used by the commands.

func (a *App) Pages() *service.PageService            { return a.pages }
func (a *App) Catalog() *service.CatalogService       { return a.catalog }
func (a *App) Content() *service.ContentService       { return a.content }
func (a *App) Newsletter() *service.NewsletterService { return a.newsletter }
func (a *App) Feeds() *service.FeedService            { return a.feeds }
func (a *App) Scheduler() *service.Scheduler          { return a.scheduler }
func (a *App) Fallback() *fallback.Source             { return a.fallback }
func (a *App) Backend() *dbclient.Backend             { return a.backend }

package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"article-reader/internal/domain"
	"article-reader/internal/repository"
	"article-reader/internal/service"
	"article-reader/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config            domain.Config
	Logger            domain.Logger
	DB                *sql.DB
	StoreRepository   domain.StoreRepository
	ArticleRepository domain.ArticleRepository
	HighlightAPI      domain.HighlightAPI
	Connectivity      domain.Connectivity
	StateHub          *service.StateHub
	SyncEngine        domain.SyncEngine
	HighlightService  domain.HighlightService
	ArticleService    domain.ArticleService
	ExportService     domain.HighlightExporter
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	cfg := NewConfig()
	appLogger := logger.NewLogger(cfg.GetLogLevel())

	if err := os.MkdirAll(cfg.GetDataDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := repository.OpenDatabase(cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx := context.Background()
	storeRepo := repository.NewSQLiteStoreRepository(db, appLogger)
	if err := storeRepo.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize highlight store: %w", err)
	}
	articleRepo := repository.NewSQLiteArticleCache(db, appLogger)
	if err := articleRepo.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize article cache: %w", err)
	}

	api, conn, err := newHighlightBackend(cfg, appLogger)
	if err != nil {
		db.Close()
		return nil, err
	}

	hub := service.NewStateHub()
	engine := service.NewSyncService(storeRepo, api, conn, hub, appLogger)

	return &Container{
		Config:            cfg,
		Logger:            appLogger,
		DB:                db,
		StoreRepository:   storeRepo,
		ArticleRepository: articleRepo,
		HighlightAPI:      api,
		Connectivity:      conn,
		StateHub:          hub,
		SyncEngine:        engine,
		HighlightService:  service.NewHighlightService(storeRepo, api, engine, hub, appLogger),
		ArticleService:    service.NewArticleService(articleRepo, time.Duration(cfg.GetFetchTimeout())*time.Second, appLogger),
		ExportService:     service.NewExportService(storeRepo, articleRepo, appLogger),
	}, nil
}

// newHighlightBackend picks the remote highlight backend from the
// configuration. Both backends double as the connectivity probe.
func newHighlightBackend(cfg domain.Config, appLogger domain.Logger) (domain.HighlightAPI, domain.Connectivity, error) {
	switch cfg.GetRemoteBackend() {
	case "supabase":
		api, err := repository.NewSupabaseHighlightAPI(cfg.GetSupabaseURL(), cfg.GetSupabaseKey(), appLogger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create supabase backend: %w", err)
		}
		return api, api, nil
	case "rest":
		api := repository.NewRESTHighlightAPI(cfg.GetAPIBaseURL(), appLogger)
		return api, api, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote backend %q", cfg.GetRemoteBackend())
	}
}

// Close releases the container's resources.
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}

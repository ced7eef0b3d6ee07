package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"orgdir/api"
	"orgdir/config"
	"orgdir/service"
	"orgdir/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App represents the directory application with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	DB        *storage.DB
	Redis     *redis.Client
	Directory *service.DirectoryService
	APIServer *api.API

	serviceWg  sync.WaitGroup
	shutdownCh chan struct{}
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{
		shutdownCh: make(chan struct{}),
	}

	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("Organizations directory starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	if cfg.Database.Driver == "sqlite" {
		if err := EnsureDataDirectories(cfg, sugar); err != nil {
			return nil, fmt.Errorf("pre-flight check failed: %w", err)
		}
	}

	db, err := InitStorage(cfg, sugar)
	if err != nil {
		return nil, err
	}
	app.DB = db

	// The server applies pending migrations on startup so a bare deploy
	// comes up with the schema in place.
	if err := RunMigrations(db, sugar); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var detailCache *service.DetailCache
	if cfg.Cache.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			if cfg.IsGracefulMode() {
				sugar.Warnw("Redis unavailable, detail cache disabled", "error", err)
			} else {
				return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Cache.Redis.Addr, err)
			}
		} else {
			app.Redis = client
			detailCache = service.NewDetailCache(client, cfg.Cache.Redis.TTL, sugar)
			sugar.Infow("Redis detail cache enabled", "addr", cfg.Cache.Redis.Addr)
		}
	}

	directory, err := service.NewDirectoryService(
		storage.NewOrganizationStorage(db, sugar),
		storage.NewActivityStorage(db, sugar),
		storage.NewBuildingStorage(db, sugar),
		sugar,
		service.DirectoryServiceOptions{
			SubtreeCacheSize: cfg.Cache.ActivitySubtreeSize,
			DetailCache:      detailCache,
			DefaultLimit:     cfg.Pagination.DefaultLimit,
			MaxLimit:         cfg.Pagination.MaxLimit,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize directory service: %w", err)
	}
	app.Directory = directory

	app.APIServer = api.NewAPI(directory, db, cfg, sugar)

	return app, nil
}

// Start starts the API server.
func (a *App) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.Config.API.Host, a.Config.API.Port)

	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		a.Sugar.Infof("API server started on %s", addr)
		if err := a.APIServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorf("API server error: %v", err)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")
	close(a.shutdownCh)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.APIServer != nil {
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("API server shutdown failed", "error", err)
		}
	}
	a.serviceWg.Wait()

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Sugar.Errorw("Redis close failed", "error", err)
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Sugar.Errorw("Database close failed", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}

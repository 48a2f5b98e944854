package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/locker-registry/internal/catalog"
	"github.com/iliyamo/locker-registry/internal/config"
	"github.com/iliyamo/locker-registry/internal/handler"
	"github.com/iliyamo/locker-registry/internal/logger"
	"github.com/iliyamo/locker-registry/internal/middleware"
	"github.com/iliyamo/locker-registry/internal/registry"
	"github.com/iliyamo/locker-registry/internal/repository"
	"github.com/iliyamo/locker-registry/internal/router"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "locker-registry")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(lg))

	if h, cause := setup(cfg, lg); cause != nil {
		lg.Error("locker registry unavailable; serving guidance only",
			zap.Error(cause),
			zap.String("catalog_path", cfg.CatalogPath),
			zap.String("expected_schema", catalog.ExpectedSchema))
		router.RegisterRoutes(e, true)
		router.RegisterUnavailable(e, cause)
	} else {
		router.RegisterRoutes(e, false)
		router.RegisterLockers(e, h)
	}

	addr := ":" + cfg.Port
	lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

// setup loads the catalog and reconciles the store once.  A non-nil cause
// means the registry cannot be served: the catalog is unreadable or
// expands to colliding lockers.  Store errors, duplicate ids in the store
// included, are logged but not fatal; every request retries them.
func setup(cfg config.Config, lg *zap.Logger) (*handler.LockerHandler, error) {
	defs, err := catalog.Load(cfg.CatalogPath, catalog.Options{Sheet: cfg.CatalogSheet})
	if err != nil {
		return nil, err
	}
	lg.Info("loaded locker catalog", zap.String("path", cfg.CatalogPath), zap.Int("ranges", len(defs)))

	m := registry.NewManager(repository.NewLockerRepo(cfg.StorePath), defs, lg)
	reg, err := m.Initialize(context.Background())
	switch {
	case errors.Is(err, registry.ErrDuplicateLocker) && !errors.Is(err, repository.ErrStoreUnreadable):
		return nil, err
	case err != nil:
		lg.Error("initialize locker registry", zap.String("store_path", cfg.StorePath), zap.Error(err))
	default:
		s := reg.Summary()
		lg.Info("locker registry ready",
			zap.String("store_path", cfg.StorePath),
			zap.Int("total", s.Total),
			zap.Int("occupied", s.Occupied),
			zap.Int("available", s.Available))
	}
	return handler.NewLockerHandler(m, lg, cfg.ExportFilename), nil
}

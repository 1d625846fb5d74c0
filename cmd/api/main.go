package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Lelo88/nova-catalog-golang/internal/catalog"
	"github.com/Lelo88/nova-catalog-golang/internal/config"
	"github.com/Lelo88/nova-catalog-golang/internal/db"
	"github.com/Lelo88/nova-catalog-golang/internal/docs"
	"github.com/Lelo88/nova-catalog-golang/internal/health"
	"github.com/Lelo88/nova-catalog-golang/internal/httpx"
	"github.com/Lelo88/nova-catalog-golang/internal/logging"
	"github.com/Lelo88/nova-catalog-golang/internal/staff"
)

// appPool es lo que la app usa del pool de pgx.
type appPool interface {
	catalog.DB
	staff.DB
	Ping(ctx context.Context) error
	Close()
}

// appDeps agrupa las dependencias externas de run para poder reemplazarlas en tests.
type appDeps struct {
	loadConfig     func() (config.Config, error)
	newLogger      func(cfg config.Config) *logrus.Logger
	newPool        func(ctx context.Context, url string) (appPool, error)
	newLazyPool    func(ctx context.Context, url string) (appPool, error)
	migrate        func(url string) (uint, error)
	newBucket      func(ctx context.Context, cfg config.Config) (health.BucketChecker, error)
	listenAndServe func(addr string, handler http.Handler) error
}

var (
	loadConfigFn = config.Load
	newLoggerFn  = func(cfg config.Config) *logrus.Logger {
		return logging.New(os.Stdout, cfg.LogLevel, cfg.IsDevelopment())
	}
	newPoolFn = func(ctx context.Context, url string) (appPool, error) {
		return db.NewPool(ctx, url)
	}
	newLazyPoolFn = func(ctx context.Context, url string) (appPool, error) {
		return db.NewLazyPool(ctx, url)
	}
	migrateFn   = db.Migrate
	newBucketFn = func(ctx context.Context, cfg config.Config) (health.BucketChecker, error) {
		if cfg.S3Bucket == "" || cfg.AWSRegion == "" {
			return nil, nil
		}
		bucket, err := health.NewS3Bucket(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			return nil, err
		}
		return bucket, nil
	}
	listenAndServeFn = http.ListenAndServe
	fatalf           = func(args ...any) {
		fmt.Fprintln(os.Stderr, args...)
		os.Exit(1)
	}
)

func main() {
	if err := newRootCommand(defaultDeps()).Execute(); err != nil {
		fatalf(err)
	}
}

func defaultDeps() appDeps {
	return appDeps{
		loadConfig:     loadConfigFn,
		newLogger:      newLoggerFn,
		newPool:        newPoolFn,
		newLazyPool:    newLazyPoolFn,
		migrate:        migrateFn,
		newBucket:      newBucketFn,
		listenAndServe: listenAndServeFn,
	}
}

// run levanta el servidor HTTP. Solo vuelve con error.
func run(ctx context.Context, deps appDeps) error {
	cfg, err := deps.loadConfig()
	if err != nil {
		return err
	}
	logger := deps.newLogger(cfg)

	if cfg.MigrateOnStart {
		// Si la base no está, el catálogo igual puede servir desde el upstream.
		if version, err := deps.migrate(cfg.DatabaseURL); err != nil {
			logger.WithError(err).Warn("migrations on start failed")
		} else {
			logger.WithField("version", version).Info("migrations applied")
		}
	}

	pool, err := deps.newPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Warn("database unreachable at startup, continuing with lazy pool")
		pool, err = deps.newLazyPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("create database pool: %w", err)
		}
	}
	defer pool.Close()

	bucket, err := deps.newBucket(ctx, cfg)
	if err != nil {
		return fmt.Errorf("configure s3 health check: %w", err)
	}

	router, err := buildRouter(cfg, pool, bucket, logger)
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	logger.WithFields(logrus.Fields{
		"addr":     addr,
		"env":      cfg.Environment,
		"upstream": cfg.UpstreamURL != "",
	}).Info("listening")
	return deps.listenAndServe(addr, router)
}

// buildRouter arma el router con todos los módulos. bucket puede ser nil.
func buildRouter(cfg config.Config, pool appPool, bucket health.BucketChecker, logger *logrus.Logger) (http.Handler, error) {
	options := catalog.DefaultOptions()
	if cfg.CatalogConfigFile != "" {
		loaded, err := catalog.LoadOptions(cfg.CatalogConfigFile)
		if err != nil {
			return nil, err
		}
		options = loaded
	}

	guard, err := staff.TokenGuard(cfg.StaffTokenHash, logger)
	if err != nil {
		return nil, err
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}

	router := chi.NewRouter()

	// Middlewares base para trazabilidad y estabilidad.
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Middleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))

	// Errores de routing se manejan a nivel router.
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, r, http.StatusNotFound, "not_found", "resource not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	healthOptions := []health.Option{health.WithVersion(cfg.Version)}
	if bucket != nil {
		healthOptions = append(healthOptions, health.WithBucket(bucket))
	}
	health.RegisterRoutes(router, health.New(pool, healthOptions...))

	catalogService := catalog.NewService(
		options,
		catalog.NewRepository(pool),
		catalog.NewUpstreamClient(cfg.UpstreamURL, cfg.UpstreamTimeout),
		logger,
		catalog.WithErrorDetails(cfg.IsDevelopment()),
		catalog.WithPrimaryTimeout(cfg.PrimaryTimeout),
	)
	catalog.RegisterRoutes(router, catalog.NewHandler(catalogService))

	staffService := staff.NewService(staff.NewRepository(pool), logger)
	staff.RegisterRoutes(router, staff.NewHandler(staffService), guard)

	docs.RegisterRoutes(router)

	return router, nil
}

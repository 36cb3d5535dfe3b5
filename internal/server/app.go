// Package server wires the filedrop server together: configuration, the
// metadata database, the blob store, upload sessions, the gRPC endpoint and
// the metrics listener. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
	"github.com/dmitrijs2005/filedrop/internal/dbx"
	"github.com/dmitrijs2005/filedrop/internal/intake"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
	"github.com/dmitrijs2005/filedrop/internal/server/sessions"
	"github.com/dmitrijs2005/filedrop/internal/upload"

	gs "github.com/dmitrijs2005/filedrop/internal/server/grpc"
)

const pingTimeout = 5 * time.Second

var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}

	newRepoManager = repomanager.NewPostgresRepositoryManager

	newBlobStore = func(ctx context.Context, c blobstore.S3Config) (upload.BlobStore, error) {
		return blobstore.NewS3Store(ctx, c)
	}
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	registry   *prometheus.Registry
	sessions   *sessions.Store
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := dbx.Ping(ctx, db, pingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := newBlobStore(ctx, blobstore.S3Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		UsePathStyle: c.S3UsePathStyle,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := upload.NewMetrics(registry)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	fs := services.NewFileService(db, rm, blobs, c.S3Bucket, logger)

	coordinator, err := upload.NewCoordinator(upload.Options{
		Bucket:              c.S3Bucket,
		CacheControlSeconds: c.CacheControlSeconds,
		Upsert:              c.Upsert,
		Concurrency:         c.UploadConcurrency,
		CompensateOrphans:   c.CompensateOrphans,
	}, blobs, fs.Metadata(), logger, metrics)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	st, err := sessions.NewStore(c.MaxSessions, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	srv := gs.NewGRPCServer(gs.Options{
		Address:   c.EndpointAddrGRPC,
		SecretKey: c.SecretKey,
		Constraints: intake.Constraints{
			AllowedMimeTypes: c.AllowedMimeTypes,
			MaxFileSize:      c.MaxFileSize,
			MaxFiles:         c.MaxFiles,
		},
	}, logger, fs, coordinator, st)

	registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "filedrop",
			Name:      "sessions",
			Help:      "Upload sessions held in memory.",
		}, func() float64 { return float64(st.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "filedrop",
			Name:      "previews_live",
			Help:      "Preview handles not yet released.",
		}, func() float64 { return float64(srv.Previews().Live()) }),
	)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		registry:   registry,
		sessions:   st,
		grpcServer: srv,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{Registry: app.registry}))
	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Warn(ctx, "metrics server shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a listener fails,
// then releases sessions and the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.sessions.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

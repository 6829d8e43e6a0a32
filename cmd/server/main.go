package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"epdparser/internal/config"
	"epdparser/internal/epd/pipeline"
	"epdparser/internal/epd/profile"
	"epdparser/internal/handler"
	"epdparser/internal/logger"
	"epdparser/internal/port"
	"epdparser/internal/repository/postgres"
	"epdparser/internal/router"
	"epdparser/internal/service"
	"epdparser/internal/storage/noop"
	s3storage "epdparser/internal/storage/s3"
	"epdparser/internal/textextract"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()
	zap.ReplaceGlobals(lg)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	docRepo := postgres.NewDocumentRepo(db)
	statsRepo := postgres.NewStatsRepo(db)

	// Initialize storage
	storage, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}

	// Initialize parser
	prof, err := loadProfile(cfg.Parser.ProfilePath)
	if err != nil {
		return fmt.Errorf("failed to load parser profile: %w", err)
	}
	parser := pipeline.New(prof, pipeline.WithLogger(lg.Named("pipeline")))

	// Initialize services
	docSvc := service.NewDocumentService(docRepo, storage, textextract.New(), parser, cfg.Upload.MaxBytes(), lg.Named("documents"))
	statsSvc := service.NewStatsService(statsRepo)
	exportSvc := service.NewExportService(docRepo, lg.Named("export"))

	// Start parse queue worker
	worker := service.NewParseQueueWorker(docRepo, docSvc, service.ParseQueueConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		MaxRetries:   cfg.Queue.MaxRetries,
		Concurrency:  cfg.Queue.Concurrency,
		ParseTimeout: time.Duration(cfg.Queue.ParseTimeoutSecs) * time.Second,
	}, lg.Named("queue"))
	workerDone := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(workerDone)
	}()

	// Setup router
	r := router.Setup(router.Handlers{
		Health:   handler.NewHealthHandler(db),
		Document: handler.NewDocumentHandler(docSvc, exportSvc),
		Parse:    handler.NewParseHandler(docSvc),
		Stats:    handler.NewStatsHandler(statsSvc),
	}, cfg.CORS.AllowedOrigins, cfg.Upload.MaxBytes(), lg)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	srvErr := make(chan error, 1)
	go func() {
		lg.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		stop()
		<-workerDone
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server shutdown", zap.Error(err))
	}
	<-workerDone
	return nil
}

func newStorage(ctx context.Context, cfg *config.Config) (port.ObjectStorage, error) {
	if cfg.Storage.Provider == "s3" {
		s, err := s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		return s, nil
	}
	return noop.New(), nil
}

func loadProfile(path string) (*profile.Profile, error) {
	if path == "" {
		return profile.Default()
	}
	return profile.Load(path)
}

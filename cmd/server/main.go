package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"XmediaCenter/internal/config"
	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/events"
	"XmediaCenter/internal/handlers"
	"XmediaCenter/internal/media"
	"XmediaCenter/internal/metrics"
	"XmediaCenter/internal/middleware"
	"XmediaCenter/internal/plugin"
	"XmediaCenter/internal/repo"
	"XmediaCenter/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.NewConfig()
	if cfg.Version {
		fmt.Printf("XmediaCenter server\nVersion: %s\nBuild date: %s\n", version, buildDate)
		return
	}

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, sugar); err != nil {
		sugar.Errorw("Server failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) error {
	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	for _, dir := range []string{cfg.DriveRoot, cfg.BlobPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	userRepo := repo.NewUserRepository(gormDB)
	resolver, err := drive.NewResolver(cfg.DriveRoot, userRepo)
	if err != nil {
		return err
	}
	locks := drive.NewLocks()

	var pub events.Publisher = events.Nop{}
	if cfg.RedisURL != "" {
		rp, err := events.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rp.Close()
		pub = rp
		sugar.Infow("Publishing events to redis", "channel", events.Channel)
	}
	ev := events.NewEmitter(pub, sugar)

	var ops metrics.Ops = metrics.Noop{}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		reg := metrics.New()
		ops, metricsHandler = reg, reg.Handler()
	}

	registry, err := plugin.NewRegistry(plugin.CodeExec())
	if err != nil {
		return err
	}
	tags := media.TagExtractor{}

	tasks := service.NewTaskService(repo.NewTaskRepository(gormDB), userRepo, registry, cfg.TaskTimeout, ev, sugar)
	h := handlers.NewHandler(handlers.Services{
		Users:  service.NewUserService(userRepo, resolver, locks, ev, sugar),
		Drive:  service.NewDriveService(resolver, repo.NewPathRefRepository(gormDB), locks, ev, ops, sugar),
		Shares: service.NewShareService(repo.NewShareLinkRepository(gormDB), resolver, ev, ops, sugar),
		Playlists: service.NewPlaylistService(service.PlaylistDeps{
			Playlists: repo.NewPlaylistRepository(gormDB),
			Songs:     repo.NewSongRepository(gormDB),
			Counts:    repo.NewPlayCountRepository(gormDB),
			Resolver:  resolver,
			Tags:      tags,
			Artworks:  media.NewArtworks(tags, cfg.BlobPath, sugar),
			Events:    ev,
			Metrics:   ops,
			Logger:    sugar,
		}),
		Tasks:   tasks,
		Metrics: metricsHandler,
		Version: version,
	}, sugar, cfg)

	srv := &http.Server{
		Addr:              cfg.BaseURL,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sugar.Infow("Starting server", "addr", srv.Addr)
	sugar.Infow("Config",
		"ServerURL", cfg.ServerURL,
		"DatabaseDSN", cfg.DatabaseDSN,
		"DriveRoot", cfg.DriveRoot,
		"BlobPath", cfg.BlobPath,
		"UploadMaxMB", cfg.UploadMaxMB,
		"TaskTimeout", cfg.TaskTimeout,
		"Metrics", cfg.MetricsEnabled,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sugar.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("HTTP shutdown", "error", err)
	}
	// задачи плагинов ограничены TaskTimeout
	tasks.Wait()
	return nil
}

package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pecadir/internal/config"
	"pecadir/internal/domain"
	"pecadir/internal/event"
	"pecadir/internal/handler"
	"pecadir/internal/logger"
	"pecadir/internal/middleware"
	"pecadir/internal/repository/sqlite"
	"pecadir/internal/seed"
	"pecadir/internal/service"
	"pecadir/internal/task"
	"pecadir/internal/yp4g"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog := logger.New(logger.ParseLevel(cfg.LogLevel))
	cfg.LogConfiguration(appLog)

	db, err := sqlite.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(db.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ypRepo := sqlite.NewYellowPageRepository(db)
	liveRepo := sqlite.NewLiveChannelRepository(db)
	historyRepo := sqlite.NewHistoryChannelRepository(db)
	favoriteRepo := sqlite.NewFavoriteRepository(db)
	notifiedRepo := sqlite.NewNotifiedChannelRepository(db)

	ctx := context.Background()

	// Register the built-in yellow pages on first start. Existing rows,
	// including ones the user disabled, are left alone.
	seeder := seed.NewSeeder(ypRepo, appLog)
	if _, err := seeder.Seed(ctx, cfg.SourcesPath); err != nil {
		log.Fatalf("Failed to seed yellow pages: %v", err)
	}

	peercast, err := url.Parse(cfg.PeerCastURL)
	if err != nil {
		log.Fatalf("Invalid PeerCast URL: %v", err)
	}

	store := event.NewFlow[domain.StoreChange]()
	client := yp4g.NewClient(appLog)

	engine := service.NewFilterEngine(liveRepo, historyRepo, appLog)
	engine.Start(store)
	defer engine.Stop()

	playback := service.NewPlaybackService(historyRepo, store, cfg.PeerCastURL, appLog)
	tester := service.NewSpeedTester(client, ypRepo, appLog)

	var sink domain.NotificationSink
	if cfg.NotificationsEnabled {
		sink = service.NewLogNotificationSink(appLog)
	}
	pipeline := task.NewPipeline(
		ypRepo, liveRepo, historyRepo, favoriteRepo, notifiedRepo,
		client, store, sink, peercast.Host, cfg.NotificationsEnabled, appLog,
	)

	scheduler := task.NewScheduler(pipeline, cfg.SyncInterval, appLog)
	scheduler.Start()
	defer scheduler.Stop()

	api := handler.NewAPIHandler(engine, favoriteRepo, ypRepo, liveRepo, playback, tester, pipeline, appLog)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      middleware.Logging(appLog)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLog.Info("starting server", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLog.Info("server exited", nil)
}

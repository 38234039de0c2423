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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	botapi "github.com/bothive/bothive/internal/bot/api"
	"github.com/bothive/bothive/internal/bot/logs"
	"github.com/bothive/bothive/internal/bot/streaming"
	"github.com/bothive/bothive/internal/bot/supervisor"
	"github.com/bothive/bothive/internal/common/config"
	"github.com/bothive/bothive/internal/common/database"
	"github.com/bothive/bothive/internal/common/httpmw"
	"github.com/bothive/bothive/internal/common/logger"
	"github.com/bothive/bothive/internal/events"
	"github.com/bothive/bothive/internal/events/bus"
	userapi "github.com/bothive/bothive/internal/user/api"
	"github.com/bothive/bothive/internal/user/store"
)

// storeEntryResolver resolves a user's configured entry point from the
// user store, falling back to the configured default.
type storeEntryResolver struct {
	store    store.Store
	fallback string
}

func (r *storeEntryResolver) EntryFile(ctx context.Context, userID string) (string, error) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.MainFile == "" {
		return r.fallback, nil
	}
	return user.MainFile, nil
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.NewLogger(logger.LoggingConfig(cfg.Logging))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting bothive service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Prepare the per-user data layout
	paths := logs.NewPaths(cfg.Storage.FilesDir(), cfg.Storage.LogsDir())
	if err := paths.EnsureBase(); err != nil {
		log.Fatal("Failed to prepare data directories", zap.Error(err))
	}

	// 4. Connect the event bus (NATS if configured, in-memory otherwise)
	var eventBus bus.EventBus
	if cfg.NATS.URL != "" {
		eventBus, err = bus.NewNATSEventBus(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		log.Info("Connected to NATS event bus", zap.String("url", cfg.NATS.URL))
	} else {
		eventBus = bus.NewMemoryEventBus(log)
		log.Info("Using in-memory event bus")
	}
	defer eventBus.Close()

	// Audit trail for every bot lifecycle transition
	if _, err := eventBus.Subscribe(events.SubjectBotAll, func(ctx context.Context, e *bus.Event) error {
		log.Info("lifecycle event", zap.String("type", e.Type), zap.Any("data", e.Data))
		return nil
	}); err != nil {
		log.Warn("Failed to subscribe to lifecycle events", zap.Error(err))
	}

	// 5. Open the user store (PostgreSQL if configured, SQLite otherwise)
	var userStore store.Store
	if cfg.Database.Host != "" {
		db, err := database.NewDB(ctx, cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer db.Close()

		userStore, err = store.NewPostgresStore(ctx, db)
		if err != nil {
			log.Fatal("Failed to initialize user store", zap.Error(err))
		}
		log.Info("Connected to PostgreSQL user store", zap.String("host", cfg.Database.Host))
	} else {
		userStore, err = store.NewSQLiteStore(cfg.Storage.SQLitePath())
		if err != nil {
			log.Fatal("Failed to open SQLite user store", zap.Error(err))
		}
		log.Info("Opened SQLite user store", zap.String("path", cfg.Storage.SQLitePath()))
	}
	defer userStore.Close()

	// 6. Initialize the bot supervisor
	sup := supervisor.New(supervisor.Config{
		Runtime:        cfg.Supervisor.Runtime,
		InstallCommand: cfg.Supervisor.InstallCommand,
		ManifestFile:   cfg.Supervisor.ManifestFile,
		GracePeriod:    cfg.Supervisor.StopGracePeriodDuration(),
		SettleDelay:    cfg.Supervisor.RestartSettleDelayDuration(),
	}, paths, &storeEntryResolver{store: userStore, fallback: cfg.Supervisor.DefaultEntryFile}, eventBus, log)

	// 7. Initialize the log streaming hub
	hub := streaming.NewHub(paths, log)

	// 8. Setup HTTP server with Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpmw.RequestID())
	router.Use(httpmw.CORS())
	router.Use(httpmw.RequestLogger(log, "bothive"))

	apiV1 := router.Group("/api/v1")
	botHandler := botapi.SetupRoutes(apiV1, sup, paths, hub, log)
	userapi.SetupRoutes(apiV1, userStore, eventBus, log)

	router.GET("/health", botHandler.HealthCheck)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 9. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down bothive service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	hub.Close()

	// Bots are not supervised across restarts; stop them rather than
	// leaving them unmanaged.
	sup.StopAll(shutdownCtx)

	log.Info("bothive service stopped")
}

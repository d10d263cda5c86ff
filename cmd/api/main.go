// server/cmd/api/main.go
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

	"pharma-redistribution-api-server/config"
	"pharma-redistribution-api-server/internal/api/handlers"
	"pharma-redistribution-api-server/internal/api/routes"
	"pharma-redistribution-api-server/internal/archive"
	"pharma-redistribution-api-server/internal/audit"
	"pharma-redistribution-api-server/internal/auth"
	"pharma-redistribution-api-server/internal/blockchain"
	"pharma-redistribution-api-server/internal/database"
	"pharma-redistribution-api-server/internal/events"
	"pharma-redistribution-api-server/internal/inventory"
	"pharma-redistribution-api-server/internal/logger"
	"pharma-redistribution-api-server/internal/notification"
	"pharma-redistribution-api-server/internal/redistribution"
	"pharma-redistribution-api-server/internal/s3"
	"pharma-redistribution-api-server/internal/socket"
	"pharma-redistribution-api-server/internal/store"
	"pharma-redistribution-api-server/internal/store/memstore"
	"pharma-redistribution-api-server/internal/store/mongostore"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// 1. Load configuration
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	// 2. Logger
	zapLogger, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		log.Fatalf("Could not create logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Error("server stopped with error", zap.Error(err))
		_ = zapLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Persistence and audit sinks
	var (
		st        store.Store
		recorders audit.Multi
	)
	if cfg.Mongo.URI != "" {
		client, err := connectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		db := client.Database(cfg.Mongo.DBName)
		mongoStore := mongostore.New(db)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := database.SeedSuperAdmin(ctx, db, "superadmin", zapLogger); err != nil {
			return err
		}
		st = mongoStore
		recorders = append(recorders, audit.NewMongoRecorder(db))
		zapLogger.Info("connected to MongoDB", zap.String("database", cfg.Mongo.DBName))
	} else {
		memStore := memstore.New()
		database.SeedDemo(memStore, time.Now())
		st = memStore
		recorders = append(recorders, audit.NewLogRecorder(zapLogger))
		zapLogger.Warn("mongo.uri is empty, using the in-memory store with demo data")
	}

	// 4. Optional Fabric ledger for tamper-evident audit
	if cfg.Fabric.Enabled {
		ledger, err := blockchain.Connect(cfg.Fabric)
		if err != nil {
			return fmt.Errorf("initialize fabric: %w", err)
		}
		defer ledger.Close()
		recorders = append(recorders, audit.NewLedgerRecorder(ledger))
		zapLogger.Info("audit entries are anchored on fabric", zap.String("channel", ledger.Channel()))
	}

	// 5. Notifications: websocket hub behind a de-duplicating dispatcher
	var dedup notification.Deduper = notification.NewMemoryDeduper()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		dedup = notification.NewRedisDeduper(rdb, "redistribution:")
	}
	wsHub := socket.NewHub(zapLogger)
	notifier := notification.NewService(wsHub, dedup, cfg.Notification.DedupWindow, zapLogger)

	// 6. Outbox relay feeds audit and notifications after commit
	relay := events.NewRelay(st.Outbox(), recorders, notifier, events.RelayConfig{
		Workers:       cfg.Notification.Workers,
		QueueSize:     cfg.Notification.QueueSize,
		SweepInterval: cfg.Notification.SweepInterval,
		SweepAge:      cfg.Notification.SweepAge,
	}, zapLogger)
	relayDone := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(relayDone)
	}()

	// 7. Services
	retry := store.RetryPolicy{
		MaxAttempts: cfg.Transfer.MaxAttempts,
		BaseBackoff: cfg.Transfer.BaseBackoff,
		MaxBackoff:  cfg.Transfer.MaxBackoff,
		Timeout:     cfg.Transfer.TxTimeout,
	}
	inventoryService := inventory.NewService(st, relay, retry, zapLogger)
	redistributionService := redistribution.NewService(st, relay, redistribution.Config{
		DefaultReorderLevel: cfg.Transfer.DefaultReorderLevel,
		Retry:               retry,
	}, zapLogger)

	adminHandler := &handlers.AdminHandler{}
	if cfg.S3.Enabled {
		uploader, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			return err
		}
		adminHandler.Exporter = archive.NewExporter(uploader, redistributionService, cfg.S3.Prefix, zapLogger)
	}

	// 8. Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	tokens := auth.NewTokenManager(cfg.JWT.Secret)
	router := routes.SetupRouter(routes.Dependencies{
		Store:          st,
		Tokens:         tokens,
		Redistribution: &handlers.RedistributionHandler{Service: redistributionService},
		Inventory:      &handlers.InventoryHandler{Service: inventoryService},
		Admin:          adminHandler,
		WebSocket:      handlers.NewWebSocketHandler(wsHub, tokens, st.Users(), cfg.Server.AllowedOrigins, zapLogger),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         zapLogger,
	})

	// 9. Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("starting API server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-relayDone
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-relayDone
	return nil
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

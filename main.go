package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"decktrack/api/config"
	"decktrack/api/database"
	"decktrack/api/engagement"
	"decktrack/api/handlers"
	"decktrack/api/logging"
	"decktrack/api/notify"
	"decktrack/api/store"
	"decktrack/api/utils"
)

func main() {
	mintFor := flag.String("mint-token", "", "print an operator JWT for the given email and exit")
	mintTTL := flag.Duration("mint-ttl", 24*time.Hour, "lifetime of a token printed by -mint-token")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "no .env file loaded: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if *mintFor != "" {
		token, err := utils.GenerateJWT(*mintFor, *mintFor, cfg.JWTSecret, *mintTTL)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to mint operator token")
		}
		fmt.Println(token)
		return
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.DefaultAPIKey == "" && cfg.JWTSecret == "" {
		logging.Warn().Msg("neither AUTH_DEFAULT nor JWT_SECRET_KEY is set, operator routes will reject every request")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Log store and catalog ---
	var (
		logs    store.LogStore
		catalog store.Catalog
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logging.Warn().Msg("using in-memory store, data is lost on restart")
		logs = store.NewMemoryLogStore()
		catalog = store.NewMemoryCatalog()
	case config.DriverPostgres:
		dbClient, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to initialize PostgreSQL database")
		}
		defer dbClient.Close()
		if err := database.Migrate(ctx, dbClient.DB); err != nil {
			logging.Fatal().Err(err).Msg("failed to migrate PostgreSQL schema")
		}
		logs = store.NewPostgresLogStore(dbClient.DB)
		catalog = store.NewPostgresCatalog(dbClient.DB)
	default:
		logging.Fatal().Str("driver", cfg.StoreDriver).Msg("unknown STORE_DRIVER")
	}
	catalog = store.NewCachedCatalog(catalog, time.Minute)

	// --- Merge locking ---
	var locker store.KeyLocker = store.NewLocalLocker()
	if cfg.RedisAddr != "" {
		redisClient, err := database.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisClient.Close()
		locker = store.NewRedisLocker(redisClient.Client)
		logging.Info().Str("addr", cfg.RedisAddr).Msg("using Redis for stay-merge locks")
	}

	// --- Raw event archive (optional) ---
	var (
		archive      engagement.Archiver
		archiveStats handlers.ArchiveReader
		batcherDone  <-chan struct{}
	)
	batchCtx, stopBatcher := context.WithCancel(context.Background())
	defer stopBatcher()
	if cfg.ClickHouseHost != "" {
		chClient, err := database.NewClickHouseDB(ctx, database.ClickHouseOptions{
			Host:     cfg.ClickHouseHost,
			Port:     cfg.ClickHousePort,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to initialize ClickHouse database")
		}
		defer chClient.Close()

		analyticsStore := store.NewAnalyticsStore(chClient)
		if err := analyticsStore.EnsureSchema(ctx); err != nil {
			logging.Fatal().Err(err).Msg("failed to create ClickHouse schema")
		}
		batcher := store.NewEventBatcher(analyticsStore, 10000, 500, 2*time.Second)
		go batcher.Run(batchCtx)

		archive = batcher
		archiveStats = analyticsStore
		batcherDone = batcher.Done()
	} else {
		logging.Info().Msg("CLICKHOUSE_HOST not set, raw event archive disabled")
	}

	// --- Engine ---
	engine := engagement.NewEngine(engagement.Options{
		Logs:          logs,
		Locker:        locker,
		Presentations: catalog,
		Notifier:      notify.NewPloomesClient(cfg.PloomesBaseURL, cfg.PloomesAPIKey, nil),
		Archive:       archive,
		SessionWindow: cfg.SessionWindow,
	})

	router := handlers.NewRouter(handlers.RouterConfig{
		Track:          handlers.NewTrackHandlers(engine),
		Stats:          handlers.NewStatsHandlers(engagement.NewAnalytics(logs, catalog), archiveStats),
		Catalog:        handlers.NewCatalogHandlers(catalog),
		FrontendOrigin: cfg.FrontendURL,
		JWTSecret:      cfg.JWTSecret,
		APIKey:         cfg.DefaultAPIKey,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info().Str("port", cfg.Port).Msg("decktrack API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
	}

	engine.Wait()
	stopBatcher()
	if batcherDone != nil {
		<-batcherDone
	}
	logging.Info().Msg("server exited")
}

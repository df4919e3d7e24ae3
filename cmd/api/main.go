// Package main is the entry point for the Tabinico API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/tabinico/internal/config"
	"github.com/pkordes/tabinico/internal/events"
	"github.com/pkordes/tabinico/internal/handler"
	"github.com/pkordes/tabinico/internal/identity"
	"github.com/pkordes/tabinico/internal/realtime"
	"github.com/pkordes/tabinico/internal/receipt"
	"github.com/pkordes/tabinico/internal/repo"
	"github.com/pkordes/tabinico/internal/repo/fsrepo"
	"github.com/pkordes/tabinico/internal/repo/memrepo"
	"github.com/pkordes/tabinico/internal/repo/redisrepo"
	"github.com/pkordes/tabinico/internal/store"
	"github.com/pkordes/tabinico/internal/upload"
	"github.com/pkordes/tabinico/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Cancelled on shutdown; stops the change listener and session eviction.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Redis ------------------------------------------------------------
	// One client serves both the redis store driver and the token denylist.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.Info("redis connection established")
	}

	// --- Document store ---------------------------------------------------
	trips, profiles, closeStore, err := openStore(ctx, cfg, rdb, logger)
	if err != nil {
		slog.Error("failed to open trip store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("trip store ready", "driver", cfg.StoreDriver)

	// --- Events -----------------------------------------------------------
	var publisher events.Publisher = events.LogPublisher{Log: logger}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			slog.Error("failed to connect to message broker", "error", err)
			os.Exit(1)
		}
		defer amqpPub.Close()
		publisher = amqpPub
		slog.Info("publishing events", "exchange", cfg.AMQPExchange)
	}

	// --- Identity ---------------------------------------------------------
	var denylist identity.Denylist = identity.NewMemoryDenylist(nil)
	if rdb != nil {
		denylist = identity.NewRedisDenylist(rdb, cfg.RedisPrefix)
	}
	issuer := identity.NewIssuer(cfg.JWTSecret, cfg.TokenTTL, denylist, nil)

	// --- Uploads ----------------------------------------------------------
	var backend upload.Backend
	var filesDir string
	switch cfg.UploadDriver {
	case config.UploadGCS:
		gcs, err := upload.NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			slog.Error("failed to create storage client", "error", err)
			os.Exit(1)
		}
		backend = gcs
	default:
		backend = upload.Disk{Dir: cfg.UploadDir, BaseURL: cfg.UploadBaseURL}
		filesDir = cfg.UploadDir
	}
	uploads := upload.NewService(backend, cfg.UploadMaxBytes, cfg.UploadTimeout)

	// --- Sessions ---------------------------------------------------------
	// Every local or remote change is pushed to the live sockets watching
	// the trip.
	hub := realtime.NewHub(logger)
	sessions := store.NewManager(store.Deps{
		Trips:    trips,
		Profiles: profiles,
		Events:   publisher,
		Log:      logger,
		OnChange: hub.Publish,
	}, store.Settings{
		DemoTripID:   cfg.DemoTripID,
		WriteTimeout: cfg.WriteTimeout,
	}, cfg.SessionIdleTTL)

	if err := sessions.EnsureDemoTrip(ctx); err != nil {
		slog.Error("failed to create demo trip", "error", err)
		os.Exit(1)
	}
	go sessions.Run(ctx)

	// --- Router -----------------------------------------------------------
	srv := handler.NewServer(handler.Deps{
		Sessions: sessions,
		Auth:     issuer,
		Uploads:  uploads,
		Scanner:  receipt.MockScanner{Delay: 1500 * time.Millisecond},
		Live:     hub,
		Log:      logger,
	})
	router := handler.NewRouter(srv, handler.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		Verifier:    issuer,
		FilesDir:    filesDir,
	})

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// The write timeout leaves room for a slow upload to finish; live
	// sockets clear their deadlines after the upgrade.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.UploadTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	// Shutdown does not track hijacked connections.
	if err := hub.Close(); err != nil {
		slog.Error("live hub close error", "error", err)
	}
	// Flushes queued writes before the store connections go away.
	sessions.Close()
	cancel()
	slog.Info("server stopped")
}

// openStore connects the document store selected by cfg.StoreDriver. The
// returned close func releases whatever connections were opened.
func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client, log *slog.Logger) (repo.TripRepo, repo.ProfileRepo, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		// pgxpool manages a pool of Postgres connections.
		// New() does not open connections immediately; the first query does.
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create database pool: %w", err)
		}
		// Verify the DB is reachable before accepting traffic.
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := migrate(ctx, cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}

		listener := repo.NewListener(pool, log)
		go listener.Run(ctx)
		return repo.NewTripRepo(pool, listener), repo.NewProfileRepo(pool), pool.Close, nil

	case config.DriverFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create firestore client: %w", err)
		}
		return fsrepo.NewTripRepo(client, log), fsrepo.NewProfileRepo(client), func() { client.Close() }, nil

	case config.DriverRedis:
		return redisrepo.NewTripRepo(rdb, cfg.RedisPrefix, log), redisrepo.NewProfileRepo(rdb, cfg.RedisPrefix), func() {}, nil

	case config.DriverMemory:
		mem := memrepo.New()
		return mem.Trips(), mem.Profiles(), func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// migrate applies the embedded goose migrations. goose needs database/sql,
// so it gets a short-lived connection of its own.
func migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		slog.Info("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

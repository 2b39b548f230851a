package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	httpapi "easymed-admin-backend/internal/api/http"
	"easymed-admin-backend/internal/authority"
	"easymed-admin-backend/internal/config"
	"easymed-admin-backend/internal/jobs"
	"easymed-admin-backend/internal/kvstore"
	filestore "easymed-admin-backend/internal/kvstore/file"
	pgstore "easymed-admin-backend/internal/kvstore/postgres"
	redisstore "easymed-admin-backend/internal/kvstore/redis"
	"easymed-admin-backend/internal/logger"
	"easymed-admin-backend/internal/scheduler"
	"easymed-admin-backend/internal/security"
	"easymed-admin-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting EasyMed Admin Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Store configuration", "type", cfg.Store.Type)

	// Initialize persistence store
	store := buildStore(cfg)

	// The authority prioritizes the in-memory session over persistence
	// durability, so an unreachable store is a warning rather than a fatal.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.Ping(ctx); err != nil {
		logger.Warn("Persistence store is unreachable, continuing with in-memory state", "error", err)
	}
	cancel()

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.SessionExpiryMinutes)*time.Minute)

	// Initialize notifications
	var notifier authority.Notifier
	if cfg.Email.Enabled {
		logger.Info("Email notifications enabled", "from", cfg.Email.FromEmail)
		notifier = service.NewEmailNotifier(cfg.Email.APIKey, cfg.Email.FromEmail, cfg.Email.FromName)
	}

	// Initialize the admin authority and rehydrate persisted state
	adminAuthority := authority.New(store, cfg.Admin, notifier)
	adminAuthority.Load(context.Background())

	// Initialize scheduled jobs
	jobRunner := jobs.NewJobRunner(store, cfg)
	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()
	defer sched.Stop()

	// Set up HTTP server
	router := httpapi.NewRouter(adminAuthority, tokenManager, store)

	logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
	if err := http.ListenAndServe(cfg.GetServerAddress(), router); err != nil {
		logger.Error("HTTP server error", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
}

// buildStore selects the persistence backend from configuration. A backend
// that cannot even be constructed degrades to the in-memory store so startup
// never fails on persistence.
func buildStore(cfg *config.Config) kvstore.Store {
	switch cfg.Store.Type {
	case "file":
		store, err := filestore.NewStore(cfg.Store.File.Dir)
		if err != nil {
			logger.Error("Failed to initialize file store, falling back to memory", "dir", cfg.Store.File.Dir, "error", err)
			return kvstore.NewMemoryStore()
		}
		return store
	case "redis":
		return redisstore.NewStore(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB, cfg.Store.Redis.KeyPrefix)
	case "postgres":
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			logger.Error("Failed to open database, falling back to memory", "error", err)
			return kvstore.NewMemoryStore()
		}
		store := pgstore.NewStore(db)
		if err := store.EnsureSchema(context.Background()); err != nil {
			logger.Warn("Failed to ensure kv schema", "error", err)
		}
		return store
	default:
		return kvstore.NewMemoryStore()
	}
}

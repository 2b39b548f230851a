// Manual job execution: runs one or all scheduled jobs once and exits.
// Useful for operators and for environments without a long-lived scheduler.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"

	_ "github.com/lib/pq"

	"easymed-admin-backend/internal/config"
	"easymed-admin-backend/internal/jobs"
	"easymed-admin-backend/internal/kvstore"
	filestore "easymed-admin-backend/internal/kvstore/file"
	pgstore "easymed-admin-backend/internal/kvstore/postgres"
	redisstore "easymed-admin-backend/internal/kvstore/redis"
	"easymed-admin-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	jobName := flag.String("job", "all", "Job to run: backup-roster, all")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Running jobs manually", "job", *jobName, "store", cfg.Store.Type)

	store := buildStore(cfg)
	jobRunner := jobs.NewJobRunner(store, cfg)

	switch *jobName {
	case "backup-roster":
		jobRunner.BackupRoster()
	case "all":
		jobRunner.RunAllNightlyJobs()
	default:
		log.Fatalf("Unknown job: %s", *jobName)
	}
}

func buildStore(cfg *config.Config) kvstore.Store {
	switch cfg.Store.Type {
	case "file":
		store, err := filestore.NewStore(cfg.Store.File.Dir)
		if err != nil {
			log.Fatalf("Failed to initialize file store: %v", err)
		}
		return store
	case "redis":
		return redisstore.NewStore(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB, cfg.Store.Redis.KeyPrefix)
	case "postgres":
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		if err := pgstore.NewStore(db).EnsureSchema(context.Background()); err != nil {
			logger.Warn("Failed to ensure kv schema", "error", err)
		}
		return pgstore.NewStore(db)
	default:
		return kvstore.NewMemoryStore()
	}
}

package main

import (
	"context"
	mongomigration "reservo/internal/migrations/mongo"
	postgresmigration "reservo/internal/migrations/postgres"
	"reservo/pkg/config"
	"time"
)

const JobName = "migrations"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetStore()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting migration job", "store_driver", cfg.StoreDriver)
	if err := migrate(ctx, cfg); err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}

func migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.StoreDriver == config.StoreDriverPostgres {
		return postgresmigration.RunMigration(ctx, cfg.Client.SQL, cfg.Log)
	}
	return mongomigration.RunMigration(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log)
}

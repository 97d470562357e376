package client

import (
	"context"
	"fmt"
	"reservo/pkg/logger"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client holds the store connections a service opened. Only the one
// selected by the store driver is set.
type Client struct {
	Mongo *mongo.Client
	SQL   *gorm.DB
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

type PostgresOptions struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnTimeout     time.Duration
}

func (c *Client) SetPostgres(log *logger.Logger, opts PostgresOptions) {
	db, err := OpenPostgres(opts)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnTimeout)
	defer cancel()

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to obtain Postgres pool", "error", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatal("Failed to ping Postgres", "error", err)
	}

	log.Info("Successfully connected to Postgres")
	c.SQL = db
}

func OpenPostgres(opts PostgresOptions) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(opts.DSN), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB(): %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return db, nil
}

// GormConfig keeps timestamps in UTC; callers convert for display.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect MongoDB", "error", err)
		} else {
			log.Info("MongoDB connection closed")
		}
	}
	if c.SQL != nil {
		if sqlDB, err := c.SQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Error("Failed to close Postgres pool", "error", err)
			} else {
				log.Info("Postgres pool closed")
			}
		}
	}
}

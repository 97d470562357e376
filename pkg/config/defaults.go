package config

import "time"

const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"

	DefaultStoreDriver = StoreDriverMongo
	DefaultLogLevel    = "info"
	DefaultEnvFile     = ".env"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "reservo"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPostgresDSN             = "host=localhost user=reservo password=reservo dbname=reservo port=5432 sslmode=disable TimeZone=UTC"
	DefaultPostgresMaxOpenConns    = 20
	DefaultPostgresMaxIdleConns    = 5
	DefaultPostgresConnMaxLifetime = 30 * time.Minute

	DefaultPort = "8080"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 50

	DefaultBookingMinDuration       = 30 * time.Minute
	DefaultBookingMaxDuration       = 8 * time.Hour
	DefaultBookingPurposeMin        = 10
	DefaultBookingPurposeMax        = 500
	DefaultBookingMaxActivePerUser  = 5
	DefaultBookingCancellationBuf   = 2 * time.Hour
	DefaultBookingLockTimeout       = 5 * time.Second
	DefaultBookingLockTTL           = 30 * time.Second
	DefaultConflictCacheTTL         = 5 * time.Minute
	DefaultAvailabilityCacheTTL     = 1 * time.Hour
	DefaultCacheMaxEntries          = 4096
	DefaultAvailabilityMaxRangeDays = 30

	DefaultNotificationsEnabled   = false
	DefaultNotificationsTopic     = "booking-events"
	DefaultNotificationsDLQTopic  = "booking-events-dlq"
	DefaultNotificationsGroupID   = "notifier"
	DefaultNotifierWorkers        = 2
	DefaultNotifierQueueSize      = 256
	DefaultNotifierPublishTimeout = 5 * time.Second
)

package config

const (
	EnvStoreDriver = "STORE_DRIVER"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresDSN             = "POSTGRES_DSN"
	EnvPostgresMaxOpenConns    = "POSTGRES_MAX_OPEN_CONNS"
	EnvPostgresMaxIdleConns    = "POSTGRES_MAX_IDLE_CONNS"
	EnvPostgresConnMaxLifetime = "POSTGRES_CONN_MAX_LIFETIME"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvEnvFile  = "ENV_FILE"

	EnvJWTSecret  = "JWT_SECRET"
	EnvJWTJWKSURL = "JWT_JWKS_URL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvBookingMinDuration       = "BOOKING_MIN_DURATION"
	EnvBookingMaxDuration       = "BOOKING_MAX_DURATION"
	EnvBookingPurposeMin        = "BOOKING_PURPOSE_MIN"
	EnvBookingPurposeMax        = "BOOKING_PURPOSE_MAX"
	EnvBookingMaxActivePerUser  = "BOOKING_MAX_ACTIVE_PER_USER"
	EnvBookingCancellationBuf   = "BOOKING_CANCELLATION_BUFFER"
	EnvBookingLockTimeout       = "BOOKING_LOCK_TIMEOUT"
	EnvBookingLockTTL           = "BOOKING_LOCK_TTL"
	EnvConflictCacheTTL         = "CONFLICT_CACHE_TTL"
	EnvAvailabilityCacheTTL     = "AVAILABILITY_CACHE_TTL"
	EnvCacheMaxEntries          = "CACHE_MAX_ENTRIES"
	EnvAvailabilityMaxRangeDays = "AVAILABILITY_MAX_RANGE_DAYS"

	EnvNotificationsEnabled   = "NOTIFICATIONS_ENABLED"
	EnvNotificationsTopic     = "NOTIFICATIONS_TOPIC"
	EnvNotificationsDLQTopic  = "NOTIFICATIONS_DLQ_TOPIC"
	EnvNotificationsGroupID   = "NOTIFICATIONS_GROUP_ID"
	EnvNotifierWorkers        = "NOTIFIER_WORKERS"
	EnvNotifierQueueSize      = "NOTIFIER_QUEUE_SIZE"
	EnvNotifierPublishTimeout = "NOTIFIER_PUBLISH_TIMEOUT"
)

package config

import (
	"fmt"
	"os"
	"regexp"
	"reservo/pkg/client"
	"reservo/pkg/logger"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	StoreDriver string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresDSN             string
	PostgresMaxOpenConns    int
	PostgresMaxIdleConns    int
	PostgresConnMaxLifetime time.Duration

	Port string

	JWTSecret  string
	JWTJWKSURL string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BookingMinDuration       time.Duration
	BookingMaxDuration       time.Duration
	BookingPurposeMin        int
	BookingPurposeMax        int
	BookingMaxActivePerUser  int
	BookingCancellationBuf   time.Duration
	BookingLockTimeout       time.Duration
	BookingLockTTL           time.Duration
	ConflictCacheTTL         time.Duration
	AvailabilityCacheTTL     time.Duration
	CacheMaxEntries          int
	AvailabilityMaxRangeDays int

	NotificationsEnabled   bool
	NotificationsTopic     string
	NotificationsDLQTopic  string
	NotificationsGroupID   string
	NotifierWorkers        int
	NotifierQueueSize      int
	NotifierPublishTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads an optional env file, then the process environment, and exits
// when the result does not validate.
func Load(serviceName string) *Config {
	_ = godotenv.Load(getEnvStr(EnvEnvFile, DefaultEnvFile))

	cfg := &Config{
		StoreDriver: strings.ToLower(getEnvStr(EnvStoreDriver, DefaultStoreDriver)),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresDSN:             getEnvStr(EnvPostgresDSN, DefaultPostgresDSN),
		PostgresMaxOpenConns:    getEnvNum(EnvPostgresMaxOpenConns, DefaultPostgresMaxOpenConns),
		PostgresMaxIdleConns:    getEnvNum(EnvPostgresMaxIdleConns, DefaultPostgresMaxIdleConns),
		PostgresConnMaxLifetime: getEnvDuration(EnvPostgresConnMaxLifetime, DefaultPostgresConnMaxLifetime),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret:  getEnvStr(EnvJWTSecret, ""),
		JWTJWKSURL: getEnvStr(EnvJWTJWKSURL, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		BookingMinDuration:       getEnvDuration(EnvBookingMinDuration, DefaultBookingMinDuration),
		BookingMaxDuration:       getEnvDuration(EnvBookingMaxDuration, DefaultBookingMaxDuration),
		BookingPurposeMin:        getEnvNum(EnvBookingPurposeMin, DefaultBookingPurposeMin),
		BookingPurposeMax:        getEnvNum(EnvBookingPurposeMax, DefaultBookingPurposeMax),
		BookingMaxActivePerUser:  getEnvNum(EnvBookingMaxActivePerUser, DefaultBookingMaxActivePerUser),
		BookingCancellationBuf:   getEnvDuration(EnvBookingCancellationBuf, DefaultBookingCancellationBuf),
		BookingLockTimeout:       getEnvDuration(EnvBookingLockTimeout, DefaultBookingLockTimeout),
		BookingLockTTL:           getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
		ConflictCacheTTL:         getEnvDuration(EnvConflictCacheTTL, DefaultConflictCacheTTL),
		AvailabilityCacheTTL:     getEnvDuration(EnvAvailabilityCacheTTL, DefaultAvailabilityCacheTTL),
		CacheMaxEntries:          getEnvNum(EnvCacheMaxEntries, DefaultCacheMaxEntries),
		AvailabilityMaxRangeDays: getEnvNum(EnvAvailabilityMaxRangeDays, DefaultAvailabilityMaxRangeDays),

		NotificationsEnabled:   getEnvBool(EnvNotificationsEnabled, DefaultNotificationsEnabled),
		NotificationsTopic:     getEnvStr(EnvNotificationsTopic, DefaultNotificationsTopic),
		NotificationsDLQTopic:  getEnvStr(EnvNotificationsDLQTopic, DefaultNotificationsDLQTopic),
		NotificationsGroupID:   getEnvStr(EnvNotificationsGroupID, DefaultNotificationsGroupID),
		NotifierWorkers:        getEnvNum(EnvNotifierWorkers, DefaultNotifierWorkers),
		NotifierQueueSize:      getEnvNum(EnvNotifierQueueSize, DefaultNotifierQueueSize),
		NotifierPublishTimeout: getEnvDuration(EnvNotifierPublishTimeout, DefaultNotifierPublishTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// Defaults returns a configuration built only from defaults with a discarding
// logger. It does not read the environment.
func Defaults() *Config {
	return &Config{
		StoreDriver:       DefaultStoreDriver,
		MongoURI:          DefaultMongoURI,
		MongoDatabaseName: DefaultMongoDatabaseName,
		MongoConnTimeout:  DefaultMongoConnTimeout,

		PostgresDSN:             DefaultPostgresDSN,
		PostgresMaxOpenConns:    DefaultPostgresMaxOpenConns,
		PostgresMaxIdleConns:    DefaultPostgresMaxIdleConns,
		PostgresConnMaxLifetime: DefaultPostgresConnMaxLifetime,

		Port:              DefaultPort,
		RateLimitRequests: DefaultRateLimitRequests,
		RateLimitWindow:   DefaultRateLimitWindow,
		RequestTimeout:    DefaultRequestTimeout,
		IdempotencyTTL:    DefaultIdempotencyTTL,
		MaxRequestSize:    DefaultMaxRequestSize,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		ShutdownTimeout:   DefaultShutdownTimeout,

		BookingMinDuration:       DefaultBookingMinDuration,
		BookingMaxDuration:       DefaultBookingMaxDuration,
		BookingPurposeMin:        DefaultBookingPurposeMin,
		BookingPurposeMax:        DefaultBookingPurposeMax,
		BookingMaxActivePerUser:  DefaultBookingMaxActivePerUser,
		BookingCancellationBuf:   DefaultBookingCancellationBuf,
		BookingLockTimeout:       DefaultBookingLockTimeout,
		BookingLockTTL:           DefaultBookingLockTTL,
		ConflictCacheTTL:         DefaultConflictCacheTTL,
		AvailabilityCacheTTL:     DefaultAvailabilityCacheTTL,
		CacheMaxEntries:          DefaultCacheMaxEntries,
		AvailabilityMaxRangeDays: DefaultAvailabilityMaxRangeDays,

		NotificationsEnabled:   DefaultNotificationsEnabled,
		NotificationsTopic:     DefaultNotificationsTopic,
		NotificationsDLQTopic:  DefaultNotificationsDLQTopic,
		NotificationsGroupID:   DefaultNotificationsGroupID,
		NotifierWorkers:        DefaultNotifierWorkers,
		NotifierQueueSize:      DefaultNotifierQueueSize,
		NotifierPublishTimeout: DefaultNotifierPublishTimeout,

		Log:    logger.Discard(),
		Client: client.NewClient(),
	}
}

// SetStore connects to whichever store StoreDriver selects.
func (cfg *Config) SetStore() {
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		cfg.SetPostgres()
	default:
		cfg.SetMongo()
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, client.PostgresOptions{
		DSN:             cfg.PostgresDSN,
		MaxOpenConns:    cfg.PostgresMaxOpenConns,
		MaxIdleConns:    cfg.PostgresMaxIdleConns,
		ConnMaxLifetime: cfg.PostgresConnMaxLifetime,
		ConnTimeout:     cfg.MongoConnTimeout,
	})
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreDriver {
	case StoreDriverMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StoreDriverPostgres:
		if cfg.PostgresDSN == "" {
			errors = append(errors, "PostgresDSN cannot be empty")
		}
		if cfg.PostgresMaxOpenConns < 0 || cfg.PostgresMaxIdleConns < 0 {
			errors = append(errors, "Postgres pool sizes cannot be negative")
		}
	default:
		errors = append(errors, fmt.Sprintf("StoreDriver must be one of [%s, %s], got: %s", StoreDriverMongo, StoreDriverPostgres, cfg.StoreDriver))
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"BookingMinDuration", cfg.BookingMinDuration},
		{"BookingMaxDuration", cfg.BookingMaxDuration},
		{"BookingLockTimeout", cfg.BookingLockTimeout},
		{"BookingLockTTL", cfg.BookingLockTTL},
		{"ConflictCacheTTL", cfg.ConflictCacheTTL},
		{"AvailabilityCacheTTL", cfg.AvailabilityCacheTTL},
		{"NotifierPublishTimeout", cfg.NotifierPublishTimeout},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.BookingCancellationBuf < 0 {
		errors = append(errors, fmt.Sprintf("BookingCancellationBuf cannot be negative, got: %s", cfg.BookingCancellationBuf))
	}
	if cfg.BookingMaxDuration < cfg.BookingMinDuration {
		errors = append(errors, fmt.Sprintf("BookingMaxDuration (%s) must be >= BookingMinDuration (%s)", cfg.BookingMaxDuration, cfg.BookingMinDuration))
	}
	if cfg.BookingLockTTL < cfg.BookingLockTimeout {
		errors = append(errors, fmt.Sprintf("BookingLockTTL (%s) must be >= BookingLockTimeout (%s)", cfg.BookingLockTTL, cfg.BookingLockTimeout))
	}
	if cfg.BookingPurposeMin < 0 || cfg.BookingPurposeMax < cfg.BookingPurposeMin {
		errors = append(errors, fmt.Sprintf("Booking purpose bounds are invalid: min=%d max=%d", cfg.BookingPurposeMin, cfg.BookingPurposeMax))
	}

	positiveInts := []struct {
		name  string
		value int
	}{
		{"RateLimitRequests", cfg.RateLimitRequests},
		{"MaxRequestSize", cfg.MaxRequestSize},
		{"BookingMaxActivePerUser", cfg.BookingMaxActivePerUser},
		{"CacheMaxEntries", cfg.CacheMaxEntries},
		{"AvailabilityMaxRangeDays", cfg.AvailabilityMaxRangeDays},
		{"NotifierWorkers", cfg.NotifierWorkers},
		{"NotifierQueueSize", cfg.NotifierQueueSize},
	}
	for _, n := range positiveInts {
		if n.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %d", n.name, n.value))
		}
	}

	if cfg.NotificationsEnabled && cfg.NotificationsTopic == "" {
		errors = append(errors, "NotificationsTopic cannot be empty when notifications are enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"store_driver", cfg.StoreDriver,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"postgres_dsn", redactPostgresDSN(cfg.PostgresDSN),
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"jwt_jwks_url", cfg.JWTJWKSURL,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"booking_min_duration", cfg.BookingMinDuration,
		"booking_max_duration", cfg.BookingMaxDuration,
		"booking_max_active_per_user", cfg.BookingMaxActivePerUser,
		"booking_cancellation_buffer", cfg.BookingCancellationBuf,
		"booking_lock_timeout", cfg.BookingLockTimeout,
		"conflict_cache_ttl", cfg.ConflictCacheTTL,
		"availability_cache_ttl", cfg.AvailabilityCacheTTL,
		"cache_max_entries", cfg.CacheMaxEntries,
		"notifications_enabled", cfg.NotificationsEnabled,
		"notifications_topic", cfg.NotificationsTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func redactPostgresDSN(dsn string) string {
	passwordRegex := regexp.MustCompile(`password=\S+`)
	return passwordRegex.ReplaceAllString(dsn, "password=***")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}

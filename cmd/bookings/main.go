package main

import (
	"context"
	"reservo/internal/bookings/conflict"
	bookingshandler "reservo/internal/bookings/handler"
	bookingsrepo "reservo/internal/bookings/repository"
	bookingsservice "reservo/internal/bookings/service"
	bookingsvalidator "reservo/internal/bookings/validator"
	"reservo/internal/health"
	"reservo/internal/notifications/dispatcher"
	notificationshandler "reservo/internal/notifications/handler"
	notificationsrepo "reservo/internal/notifications/repository"
	notificationsservice "reservo/internal/notifications/service"
	resourceshandler "reservo/internal/resources/handler"
	resourcesrepo "reservo/internal/resources/repository"
	resourcesservice "reservo/internal/resources/service"
	resourcesvalidator "reservo/internal/resources/validator"
	"reservo/pkg/app"
	"reservo/pkg/cache"
	"reservo/pkg/config"
	"reservo/pkg/kafka"
	kafkaconfig "reservo/pkg/kafka/config"
	kafkamiddleware "reservo/pkg/kafka/middleware"
	"reservo/pkg/lock"
	"time"
)

const ServiceName = "bookings"

type stores struct {
	bookings      bookingsrepo.BookingRepository
	resources     resourcesrepo.ResourceRepository
	notifications notificationsrepo.NotificationRepository
	preferences   notificationsrepo.PreferencesRepository
	locker        lock.Locker
	pinger        health.Pinger
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()

	cfg.Log.Info("Starting Bookings service", "store_driver", cfg.StoreDriver)
	serverApp := app.NewApplication(cfg)
	s := initStores(cfg)

	store, err := cache.NewMemoryStore(cfg.CacheMaxEntries)
	if err != nil {
		cfg.Log.Fatal("Failed to create availability cache", "error", err)
	}
	conflictCache := conflict.NewCache(s.bookings, store, conflict.NewKeyIndex(time.Now), cfg.ConflictCacheTTL, cfg.AvailabilityCacheTTL)

	resourceService := resourcesservice.NewResourceService(
		s.resources,
		resourcesvalidator.NewResourceValidator(cfg.Log),
		conflictCache,
		cfg,
	)
	notificationService := notificationsservice.NewNotificationService(s.notifications, s.preferences, cfg)

	events := initDispatcher(cfg, serverApp, notificationService)
	bookingService := bookingsservice.NewBookingService(
		s.bookings,
		resourceService,
		s.locker,
		conflict.NewDetector(s.bookings),
		conflictCache,
		events,
		bookingsvalidator.NewBookingValidator(cfg, time.Now),
		cfg,
	)

	err = serverApp.SetApp(s.pinger,
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
		resourceshandler.NewResourceHandler(resourceService, cfg.Log),
		notificationshandler.NewNotificationHandler(notificationService, cfg.Log),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to configure application", "error", err)
	}
	serverApp.Run()
}

// initStores picks the repositories for the configured driver. Postgres
// serializes admissions with row locks, so an in-process mutex only has to
// keep one instance from queueing on the same row; Mongo needs the shared
// lease collection.
func initStores(cfg *config.Config) stores {
	if cfg.StoreDriver == config.StoreDriverPostgres {
		conn := cfg.Client.SQL
		cfg.Log.Info("Repositories initialized", "store_driver", cfg.StoreDriver)
		return stores{
			bookings:      bookingsrepo.NewGormBookingRepository(conn),
			resources:     resourcesrepo.NewGormResourceRepository(conn),
			notifications: notificationsrepo.NewGormNotificationRepository(conn),
			preferences:   notificationsrepo.NewGormPreferencesRepository(conn),
			locker:        lock.NewKeyedMutex(cfg.BookingLockTimeout),
			pinger:        health.GormPinger(conn),
		}
	}

	cfg.Log.Info("Repositories initialized", "store_driver", cfg.StoreDriver, "database", cfg.MongoDatabaseName)
	return stores{
		bookings:      bookingsrepo.NewMongoBookingRepository(cfg),
		resources:     resourcesrepo.NewMongoResourceRepository(cfg),
		notifications: notificationsrepo.NewMongoNotificationRepository(cfg),
		preferences:   notificationsrepo.NewMongoPreferencesRepository(cfg),
		locker:        bookingsrepo.NewMongoResourceLocker(cfg),
		pinger:        health.MongoPinger(cfg.Client.Mongo),
	}
}

// initDispatcher publishes lifecycle events to Kafka when notifications are
// enabled; otherwise events are turned into in-app notifications in process.
func initDispatcher(cfg *config.Config, serverApp *app.Application, notifications notificationsservice.NotificationService) *dispatcher.Dispatcher {
	var sink dispatcher.Sink = dispatcher.SinkFunc(notifications.HandleEvent)

	if cfg.NotificationsEnabled {
		kafkaCfg, err := kafkaconfig.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kafkaCfg.LogConfiguration(cfg.Log)

		producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationsTopic, cfg.NotificationsDLQTopic, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}

		metrics := &kafkamiddleware.Metrics{}
		if kafkaCfg.EnableMiddleware {
			producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
			producer.Use(metrics.Producer())
		}
		serverApp.OnShutdown("kafka producer", func(ctx context.Context) error {
			cfg.Log.Info("Kafka producer metrics", "metrics", metrics.Snapshot())
			return producer.Close()
		})
		sink = dispatcher.NewKafkaSink(producer)
		cfg.Log.Info("Booking events published to Kafka", "topic", producer.Topic())
	} else {
		cfg.Log.Info("Kafka disabled, booking events delivered in process")
	}

	d := dispatcher.New(sink, dispatcher.Options{
		Workers:   cfg.NotifierWorkers,
		QueueSize: cfg.NotifierQueueSize,
		Timeout:   cfg.NotifierPublishTimeout,
	}, cfg.Log)
	d.Start()
	serverApp.OnShutdown("notification dispatcher", func(ctx context.Context) error {
		err := d.Close(ctx)
		cfg.Log.Info("Notification dispatcher stopped", "stats", d.Stats())
		return err
	})
	return d
}

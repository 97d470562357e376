package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	notificationshandler "reservo/internal/notifications/handler"
	notificationsrepo "reservo/internal/notifications/repository"
	notificationsservice "reservo/internal/notifications/service"
	"reservo/pkg/config"
	"reservo/pkg/kafka"
	kafkaconfig "reservo/pkg/kafka/config"
	kafkamiddleware "reservo/pkg/kafka/middleware"
	"syscall"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	notifications, preferences := initRepositories(cfg)
	service := notificationsservice.NewNotificationService(notifications, preferences, cfg)
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.NotificationsTopic,
		cfg.NotificationsGroupID,
		cfg.NotificationsDLQTopic,
		notificationshandler.EventHandler(service, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	metrics := &kafkamiddleware.Metrics{}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(metrics.Consumer())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting notifier",
		"topic", cfg.NotificationsTopic,
		"group_id", cfg.NotificationsGroupID,
		"dlq_topic", cfg.NotificationsDLQTopic,
	)
	err = consumer.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped unexpectedly", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped", "metrics", metrics.Snapshot())
}

func initRepositories(cfg *config.Config) (notificationsrepo.NotificationRepository, notificationsrepo.PreferencesRepository) {
	if cfg.StoreDriver == config.StoreDriverPostgres {
		return notificationsrepo.NewGormNotificationRepository(cfg.Client.SQL),
			notificationsrepo.NewGormPreferencesRepository(cfg.Client.SQL)
	}
	return notificationsrepo.NewMongoNotificationRepository(cfg),
		notificationsrepo.NewMongoPreferencesRepository(cfg)
}

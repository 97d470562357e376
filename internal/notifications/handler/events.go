package handler

import (
	"context"
	"errors"
	"reservo/internal/notifications/service"
	"reservo/pkg/kafka"
	"reservo/pkg/logger"
	"reservo/pkg/model"
)

// EventHandler turns booking lifecycle records into in-app notifications.
// Malformed records are permanent failures; store errors are retried.
func EventHandler(svc service.NotificationService, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event model.BookingEvent
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}
		if event.ID == "" {
			event.ID = msg.GetEventID()
		}

		err := svc.HandleEvent(ctx, event)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, service.ErrInvalidEvent):
			log.Warn("Discarding invalid booking event", "event_id", event.ID, "error", err)
			return kafka.NewPermanentError("invalid booking event", err)
		default:
			return kafka.NewTransientError("failed to store notification", err)
		}
	}
}

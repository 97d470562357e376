package repository

import (
	"context"
	"errors"
	"fmt"
	notificationserrors "reservo/internal/notifications/errors"
	"reservo/pkg/config"
	"reservo/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	NotificationsCollection = "Notifications"
	PreferencesCollection   = "Notification_preferences"
)

type NotificationRepository interface {
	// Create is idempotent on the notification id, so a redelivered event
	// does not produce a second notification.
	Create(ctx context.Context, n *model.Notification) error
	FindAll(ctx context.Context, filter model.NotificationFilter) ([]model.Notification, error)
	Count(ctx context.Context, filter model.NotificationFilter) (int64, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
}

type PreferencesRepository interface {
	// Get returns ErrNotFound when the user never saved preferences.
	Get(ctx context.Context, userID string) (*model.NotificationPreferences, error)
	Upsert(ctx context.Context, prefs *model.NotificationPreferences) error
}

type mongoNotificationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoNotificationRepository(cfg *config.Config) NotificationRepository {
	return &mongoNotificationRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(NotificationsCollection),
	}
}

func (r *mongoNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, n); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *mongoNotificationRepository) FindAll(ctx context.Context, filter model.NotificationFilter) ([]model.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(filter.Offset)
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, notificationFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []model.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

func (r *mongoNotificationRepository) Count(ctx context.Context, filter model.NotificationFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, notificationFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead keeps the first read time when the notification was already read.
func (r *mongoNotificationRepository) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		[]bson.M{{"$set": bson.M{"read_at": bson.M{"$ifNull": bson.A{"$read_at", at}}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.MatchedCount == 0 {
		return notificationserrors.ErrNotFound
	}
	return nil
}

func (r *mongoNotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "read_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"read_at": at}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.ModifiedCount, nil
}

func notificationFilter(f model.NotificationFilter) bson.M {
	filter := bson.M{"user_id": f.UserID}
	if f.UnreadOnly {
		filter["read_at"] = bson.M{"$exists": false}
	}
	return filter
}

type mongoPreferencesRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPreferencesRepository(cfg *config.Config) PreferencesRepository {
	return &mongoPreferencesRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(PreferencesCollection),
	}
}

func (r *mongoPreferencesRepository) Get(ctx context.Context, userID string) (*model.NotificationPreferences, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var prefs model.NotificationPreferences
	if err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&prefs); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notificationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find notification preferences: %w", err)
	}
	return &prefs, nil
}

func (r *mongoPreferencesRepository) Upsert(ctx context.Context, prefs *model.NotificationPreferences) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": prefs.UserID}, prefs, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save notification preferences: %w", err)
	}
	return nil
}

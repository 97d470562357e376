package repository

import (
	"context"
	"fmt"
	"reservo/pkg/config"
	"reservo/pkg/lock"
	"reservo/pkg/model"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LockCollectionName = "Resource_locks"
	lockKeyPrefix      = "resource:"
	lockPollInterval   = 25 * time.Millisecond
)

// mongoResourceLocker leases one document per resource. Inserting the lease
// succeeds for exactly one holder; everyone else polls until the lease is
// released, expires, or the wait times out.
type mongoResourceLocker struct {
	collection *mongo.Collection
	ttl        time.Duration
	timeout    time.Duration
	now        func() time.Time
}

func NewMongoResourceLocker(cfg *config.Config) lock.Locker {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoResourceLocker{
		collection: database.Collection(LockCollectionName),
		ttl:        cfg.BookingLockTTL,
		timeout:    cfg.BookingLockTimeout,
		now:        time.Now,
	}
}

func (l *mongoResourceLocker) Lock(ctx context.Context, resourceID string) (lock.Unlock, error) {
	lockID := lockKeyPrefix + resourceID
	owner := uuid.NewString()
	deadline := l.now().Add(l.timeout)

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.tryAcquire(ctx, lockID, owner)
		if err != nil {
			return nil, err
		}
		if acquired {
			return l.releaser(lockID, owner), nil
		}

		if !l.now().Before(deadline) {
			return nil, lock.ErrTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *mongoResourceLocker) tryAcquire(ctx context.Context, lockID, owner string) (bool, error) {
	now := l.now().UTC()

	// The TTL monitor runs about once a minute; clear an expired lease eagerly.
	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": lockID, "expires_at": bson.M{"$lte": now}}); err != nil {
		return false, fmt.Errorf("failed to clear expired resource lock: %w", err)
	}

	_, err := l.collection.InsertOne(ctx, model.ResourceLock{
		ID:        lockID,
		Owner:     owner,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	})
	if err == nil {
		return true, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to acquire resource lock: %w", err)
}

// releaser deletes the lease only if it is still ours, so a holder whose
// lease expired cannot release a successor's lock.
func (l *mongoResourceLocker) releaser(lockID, owner string) lock.Unlock {
	return lock.Once(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = l.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner})
	})
}

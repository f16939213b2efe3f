package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketly/internal/shared/constants"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deletes the lease only if this holder still owns it
var releaseLease = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

const (
	minRetryDelay = 10 * time.Millisecond
	maxRetryDelay = 200 * time.Millisecond
)

// RedisLocker extends the local registry with a Redis lease per event, so
// several server instances sharing one database also serialize on an event.
// The local lock is taken first so only one goroutine per process polls Redis.
type RedisLocker struct {
	local  *Registry
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisLocker{
		local:  NewRegistry(),
		client: client,
		ttl:    ttl,
		log:    logger.GetDefault().WithComponent("locks"),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, eventID uuid.UUID) (Handle, error) {
	localHandle, err := l.local.Acquire(ctx, eventID)
	if err != nil {
		return nil, err
	}

	key := constants.BuildEventLockKey(eventID.String())
	token := uuid.NewString()

	if err := l.takeLease(ctx, key, token); err != nil {
		localHandle.Release()
		return nil, err
	}

	return newHandle(func() {
		// the caller's ctx may already be done; release must still run
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseLease.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn("failed to release event lease", "event_id", eventID.String(), "error", err)
		}
		localHandle.Release()
	}), nil
}

func (l *RedisLocker) takeLease(ctx context.Context, key, token string) error {
	delay := minRetryDelay
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", ErrAcquireTimeout, ctx.Err())
			}
			return fmt.Errorf("failed to acquire event lease: %w", err)
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", ErrAcquireTimeout, ctx.Err())
		case <-timer.C:
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// IsTimeout reports whether err came from a lock acquisition running out of time
func IsTimeout(err error) bool {
	return errors.Is(err, ErrAcquireTimeout)
}

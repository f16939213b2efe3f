package waitlist

import (
	"context"
	"errors"
	"fmt"

	"ticketly/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Scores come from a per-event INCR counter, so ZSET order is join order.
var enqueueScript = redis.NewScript(`
	if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
		return 0
	end
	local seq = redis.call('INCR', KEYS[2])
	redis.call('ZADD', KEYS[1], 'NX', seq, ARGV[1])
	return 1
`)

// RedisQueue stores each event's queue as a sorted set
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func queueKey(eventID uuid.UUID) string {
	return constants.BuildWaitlistQueueKey(eventID.String())
}

func (r *RedisQueue) Enqueue(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	keys := []string{queueKey(eventID), constants.BuildWaitlistSequenceKey(eventID.String())}
	added, err := enqueueScript.Run(ctx, r.client, keys, userID.String()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to enqueue on waitlist: %w", err)
	}
	return added == 1, nil
}

func (r *RedisQueue) Peek(ctx context.Context, eventID uuid.UUID) (uuid.UUID, bool, error) {
	members, err := r.client.ZRange(ctx, queueKey(eventID), 0, 0).Result()
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to peek waitlist: %w", err)
	}
	if len(members) == 0 {
		return uuid.Nil, false, nil
	}
	return parseMember(members[0])
}

func (r *RedisQueue) DequeueHead(ctx context.Context, eventID uuid.UUID) (uuid.UUID, bool, error) {
	popped, err := r.client.ZPopMin(ctx, queueKey(eventID), 1).Result()
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to dequeue waitlist head: %w", err)
	}
	if len(popped) == 0 {
		return uuid.Nil, false, nil
	}
	member, _ := popped[0].Member.(string)
	return parseMember(member)
}

func (r *RedisQueue) Remove(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	n, err := r.client.ZRem(ctx, queueKey(eventID), userID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove from waitlist: %w", err)
	}
	return n > 0, nil
}

func (r *RedisQueue) Position(ctx context.Context, eventID, userID uuid.UUID) (int, bool, error) {
	rank, err := r.client.ZRank(ctx, queueKey(eventID), userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read waitlist position: %w", err)
	}
	return int(rank) + 1, true, nil
}

func (r *RedisQueue) Len(ctx context.Context, eventID uuid.UUID) (int, error) {
	n, err := r.client.ZCard(ctx, queueKey(eventID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read waitlist length: %w", err)
	}
	return int(n), nil
}

func parseMember(member string) (uuid.UUID, bool, error) {
	id, err := uuid.Parse(member)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt waitlist member %q: %w", member, err)
	}
	return id, true, nil
}

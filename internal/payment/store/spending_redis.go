package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"paygate/internal/payment/models"
	"paygate/pkg/domain"
)

// RedisSpendingStore keeps spending accumulators in Redis so multiple gateway
// instances can share one set of rolling totals. Keys are composite
// (agent, period, bucket); old buckets age out via TTL instead of the
// unbounded retention the memory store accepts.
type RedisSpendingStore struct {
	client *redis.Client
}

func NewRedisSpendingStore(client *redis.Client) *RedisSpendingStore {
	return &RedisSpendingStore{client: client}
}

func spendingRedisKey(agentID domain.Principal, period models.Period, bucket uint64) string {
	return fmt.Sprintf("paygate:spend:%s:%s:%d", agentID, period, bucket)
}

func (s *RedisSpendingStore) Total(ctx context.Context, agentID domain.Principal, period models.Period, bucket uint64) (uint64, error) {
	val, err := s.client.Get(ctx, spendingRedisKey(agentID, period, bucket)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get spending total: %w", err)
	}
	return val, nil
}

// bucketTTL bounds how long stale accumulator keys linger. Generous compared
// to any bucket width so an in-progress bucket can never expire under us.
const bucketTTL = 90 * 24 * time.Hour

func (s *RedisSpendingStore) Add(ctx context.Context, agentID domain.Principal, period models.Period, bucket uint64, amount uint64) error {
	key := spendingRedisKey(agentID, period, bucket)
	pipe := s.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(amount))
	pipe.ExpireNX(ctx, key, bucketTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add spending: %w", err)
	}
	return nil
}

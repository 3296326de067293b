package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ticket-console/internal/ledger"
	"ticket-console/internal/status"
	"ticket-console/utils"
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisPairLock keeps two consoles from checking in the same pair at once.
type RedisPairLock struct {
	Redis  redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
	token  func() (string, error)
}

func NewRedisPairLock(redisClient redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisPairLock {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisPairLock{
		Redis:  redisClient,
		ttl:    ttl,
		logger: logger,
		token:  func() (string, error) { return utils.GenerateToken(16) },
	}
}

func pairLockKey(p ledger.Pair) string {
	return fmt.Sprintf("checkin:lock:%s:%s", p.TransactionID, p.TicketTypeID)
}

// Acquire takes the lock or fails with ErrCheckInInProgress when another
// holder has it.
func (l *RedisPairLock) Acquire(ctx context.Context, p ledger.Pair) (func(), error) {
	token, err := l.token()
	if err != nil {
		return nil, fmt.Errorf("lock token: %w", err)
	}
	key := pairLockKey(p)

	ok, err := l.Redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, status.ErrCheckInInProgress
	}

	release := func() {
		// The caller's context may already be canceled.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.Redis, []string{key}, token).Err(); err != nil {
			l.logger.Warn("pair lock release failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return release, nil
}

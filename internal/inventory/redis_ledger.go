package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const ledgerKeyPrefix = "reservation:"

// takeScript reads and deletes a key in one round-trip so a duplicate release
// can never observe the same entry twice.
var takeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v then
	redis.call('DEL', KEYS[1])
end
return v
`)

// RedisLedger is a Redis-backed reservation ledger. Entries carry a TTL so
// abandoned reservations eventually stop pinning memory, and the handle
// survives process restarts and works across backend instances.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLedger creates a Redis-backed ledger. A zero ttl disables
// expiration.
func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

// Put stores the holds under the reservation ID.
func (l *RedisLedger) Put(ctx context.Context, reservationID string, holds []Hold) error {
	payload, err := json.Marshal(holds)
	if err != nil {
		return fmt.Errorf("encode reservation %s: %w", reservationID, err)
	}
	if err := l.client.Set(ctx, ledgerKeyPrefix+reservationID, payload, l.ttl).Err(); err != nil {
		return fmt.Errorf("store reservation %s: %w", reservationID, err)
	}
	return nil
}

// Take removes and returns the holds for an ID.
func (l *RedisLedger) Take(ctx context.Context, reservationID string) ([]Hold, bool, error) {
	res, err := takeScript.Run(ctx, l.client, []string{ledgerKeyPrefix + reservationID}).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("take reservation %s: %w", reservationID, err)
	}
	raw, ok := res.(string)
	if !ok {
		return nil, false, fmt.Errorf("take reservation %s: unexpected reply %T", reservationID, res)
	}
	var holds []Hold
	if err := json.Unmarshal([]byte(raw), &holds); err != nil {
		return nil, false, fmt.Errorf("decode reservation %s: %w", reservationID, err)
	}
	return holds, true, nil
}

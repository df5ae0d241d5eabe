package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Strob0t/PropertyHub/internal/resilience"
)

const (
	onlineKey       = "presence:online"
	connCountPrefix = "presence:conns:"
)

// DefaultPresenceTTL is how long a user stays online without a heartbeat.
const DefaultPresenceTTL = 90 * time.Second

func connCountKey(userID string) string { return connCountPrefix + userID }

// connectScript bumps the per-user connection count, refreshes its expiry
// and stamps the user's last-seen time in the online sorted set.
var connectScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
redis.call("EXPIRE", KEYS[1], ARGV[3])
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[1])
return n`)

// touchScript refreshes a live connection. A counter that expired while the
// connection was still open is recreated with one connection.
var touchScript = redis.NewScript(`
redis.call("SETNX", KEYS[1], 1)
redis.call("EXPIRE", KEYS[1], ARGV[3])
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[1])
return 1`)

// disconnectScript decrements the count; the last connection removes the
// user from the online set.
var disconnectScript = redis.NewScript(`
local n = redis.call("DECR", KEYS[1])
if n <= 0 then
  redis.call("DEL", KEYS[1])
  redis.call("ZREM", KEYS[2], ARGV[1])
  return 0
end
return n`)

// Presence implements presence.Tracker with a last-seen sorted set and
// per-user connection counters, so a user with sockets on several instances
// stays online until the last one closes. Entries not refreshed within the
// TTL count as offline, which clears users of an instance that died without
// disconnecting them.
type Presence struct {
	rdb     *redis.Client
	breaker *resilience.Breaker
	ttl     time.Duration
	now     func() time.Time
}

// NewPresence creates a Redis-backed presence tracker. breaker may be nil; a
// non-positive ttl selects DefaultPresenceTTL.
func NewPresence(rdb *redis.Client, breaker *resilience.Breaker, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &Presence{rdb: rdb, breaker: breaker, ttl: ttl, now: time.Now}
}

// TTL reports how long an entry stays online without a heartbeat.
func (p *Presence) TTL() time.Duration { return p.ttl }

func (p *Presence) args(userID string) []any {
	return []any{userID, p.now().Unix(), max(1, int(p.ttl.Seconds()))}
}

func (p *Presence) run(ctx context.Context, script *redis.Script, op, userID string) error {
	return guard(p.breaker, func() error {
		if err := script.Run(ctx, p.rdb, []string{connCountKey(userID), onlineKey}, p.args(userID)...).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("presence %s %s: %w", op, userID, err)
		}
		return nil
	})
}

func (p *Presence) Connect(ctx context.Context, userID string) error {
	return p.run(ctx, connectScript, "connect", userID)
}

// Touch keeps a connected user online for another TTL.
func (p *Presence) Touch(ctx context.Context, userID string) error {
	return p.run(ctx, touchScript, "touch", userID)
}

func (p *Presence) Disconnect(ctx context.Context, userID string) error {
	return p.run(ctx, disconnectScript, "disconnect", userID)
}

// cutoff is the oldest last-seen score still counted as online.
func (p *Presence) cutoff() int64 {
	return p.now().Add(-p.ttl).Unix()
}

func (p *Presence) IsOnline(ctx context.Context, userID string) (bool, error) {
	var online bool
	err := guard(p.breaker, func() error {
		seen, err := p.rdb.ZScore(ctx, onlineKey, userID).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("presence lookup %s: %w", userID, err)
		}
		online = int64(seen) >= p.cutoff()
		return nil
	})
	return online, err
}

// Online lists users seen within the TTL and drops the stale entries.
func (p *Presence) Online(ctx context.Context) ([]string, error) {
	var ids []string
	err := guard(p.breaker, func() error {
		stale := strconv.FormatInt(p.cutoff()-1, 10)
		if err := p.rdb.ZRemRangeByScore(ctx, onlineKey, "-inf", stale).Err(); err != nil {
			return fmt.Errorf("presence prune: %w", err)
		}
		var err error
		ids, err = p.rdb.ZRangeByScore(ctx, onlineKey, &redis.ZRangeBy{
			Min: strconv.FormatInt(p.cutoff(), 10),
			Max: "+inf",
		}).Result()
		if err != nil {
			return fmt.Errorf("presence list: %w", err)
		}
		return nil
	})
	return ids, err
}

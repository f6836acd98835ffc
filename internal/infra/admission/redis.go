package admission

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/genrelay/internal/core/config"
)

// RedisSlotService implements SlotService on a shared Redis counter.
// Each (server, cooldown window) holds at most capacity slots; the key
// expires with the window so slots free themselves.
type RedisSlotService struct {
	rdb      *redis.Client
	scripter redis.Scripter
	capacity int64
}

// slotScript grants a slot atomically: one INCR, TTL armed whenever the
// key has none (covers keys left behind by a crash mid-window), and the
// increment rolled back on denial so a denied request does not consume
// the window. Returns 1 when granted, 0 when denied.
var slotScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if n > tonumber(ARGV[2]) then
	redis.call("DECR", KEYS[1])
	return 0
end
return 1
`)

// NewRedisSlotService connects to the counting service.
func NewRedisSlotService(cfg config.RedisConfig, capacity int) (*RedisSlotService, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if capacity <= 0 {
		capacity = 1
	}
	return &RedisSlotService{rdb: rdb, scripter: rdb, capacity: int64(capacity)}, nil
}

// Close closes the Redis connection.
func (s *RedisSlotService) Close() error {
	return s.rdb.Close()
}

func slotKey(serverURL string) string {
	host := serverURL
	if u, err := url.Parse(serverURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("gen_slot:%s", strings.ToLower(host))
}

// RequestSlot asks for a slot on the server's current cooldown window.
// The whole grant runs server-side in one script so a failure between
// steps can never leave the counter without a TTL.
func (s *RedisSlotService) RequestSlot(
	ctx context.Context,
	serverURL string,
	cooldown time.Duration,
) (bool, error) {
	granted, err := slotScript.Run(ctx, s.scripter,
		[]string{slotKey(serverURL)},
		cooldown.Milliseconds(), s.capacity,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("slot script failed: %w", err)
	}
	return granted == 1, nil
}

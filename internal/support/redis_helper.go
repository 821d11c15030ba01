package support

import (
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

var (
	redisMu     sync.Mutex
	redisClient *redis.Client
)

// GetRedisClient lazily connects to the Redis configured via REDIS_URL. The
// client is shared process-wide; callers must not close it.
func GetRedisClient() (*redis.Client, error) {
	redisMu.Lock()
	defer redisMu.Unlock()

	if redisClient != nil {
		return redisClient, nil
	}

	rawURL := GetEnv("REDIS_URL", "")
	if rawURL == "" {
		return nil, fmt.Errorf("redis: REDIS_URL is not set")
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse REDIS_URL: %w", err)
	}

	redisClient = redis.NewClient(opts)
	return redisClient, nil
}

// SetRedisClientForTests swaps the shared client. Pass nil to force the next
// GetRedisClient call to reconnect from the environment.
func SetRedisClientForTests(client *redis.Client) {
	redisMu.Lock()
	defer redisMu.Unlock()
	redisClient = client
}

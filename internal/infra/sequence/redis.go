// Package sequence allocates sequential assessment numbers in Redis so that
// concurrent API instances never hand out the same R-### identifier.
package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultKey = "riskmatrix:assessment:seq"

// nextScript raises the counter to floor when it lags the database, then
// increments it.
var nextScript = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
local floor = tonumber(ARGV[1])
if cur < floor then
  cur = floor
end
cur = cur + 1
redis.call("SET", KEYS[1], cur)
return cur
`)

type RedisAllocator struct {
	rdb redis.Scripter
	key string
}

func NewRedisAllocator(rdb redis.Scripter, key string) *RedisAllocator {
	if key == "" {
		key = DefaultKey
	}
	return &RedisAllocator{rdb: rdb, key: key}
}

func (a *RedisAllocator) Next(ctx context.Context, floor int) (int, error) {
	if floor < 0 {
		floor = 0
	}
	n, err := nextScript.Run(ctx, a.rdb, []string{a.key}, floor).Int()
	if err != nil {
		return 0, fmt.Errorf("allocate sequence: %w", err)
	}
	return n, nil
}

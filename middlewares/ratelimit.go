package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

if rate <= 0 or burst <= 0 then
  return 1
end

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

local delta = math.max(0, now - ts)
tokens = math.min(burst, tokens + (delta * rate) / 1000.0)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

return allowed
`

// RateLimit enforces a per-IP token bucket backed by redis. Redis being
// unreachable fails open: throttling is protection, not a dependency.
func RateLimit(rdb *redis.Client, logger *slog.Logger, rate, burst float64) gin.HandlerFunc {
	script := redis.NewScript(tokenBucketLua)
	return func(c *gin.Context) {
		if rdb == nil || rate <= 0 || burst <= 0 {
			c.Next()
			return
		}

		key := "what-to-eat:ratelimit:" + c.ClientIP()
		now := time.Now().UnixMilli()
		res, err := script.Run(c.Request.Context(), rdb, []string{key}, rate, burst, now).Int64()
		if err != nil {
			if logger != nil {
				logger.Warn("rate limit check failed", slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		if res != 1 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"msg": "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}

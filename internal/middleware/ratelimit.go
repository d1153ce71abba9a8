package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/pkg/logger"
	"github.com/pushp314/commit-backend/pkg/response"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 3 * time.Minute

// KeyedLimiter holds one token bucket per caller. Authenticated callers are
// keyed by user id, everyone else by client IP.
type KeyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
}

type bucket struct {
	*rate.Limiter
	seen time.Time
}

// NewKeyedLimiter allows r events per second per caller with the given burst.
func NewKeyedLimiter(r rate.Limit, burst int) *KeyedLimiter {
	kl := &KeyedLimiter{
		buckets: make(map[string]*bucket),
		every:   r,
		burst:   burst,
	}
	go kl.sweep(time.NewTicker(time.Minute))
	return kl
}

func (kl *KeyedLimiter) sweep(t *time.Ticker) {
	for now := range t.C {
		kl.mu.Lock()
		for key, b := range kl.buckets {
			if now.Sub(b.seen) > limiterIdleTTL {
				delete(kl.buckets, key)
			}
		}
		kl.mu.Unlock()
	}
}

func (kl *KeyedLimiter) bucketFor(key string) *bucket {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	b, ok := kl.buckets[key]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(kl.every, kl.burst)}
		kl.buckets[key] = b
	}
	b.seen = time.Now()
	return b
}

// Allow consumes a token for key. When the bucket is empty it reports how
// long the caller should wait before the next token is available.
func (kl *KeyedLimiter) Allow(key string) (bool, time.Duration) {
	b := kl.bucketFor(key)
	res := b.Reserve()
	if !res.OK() {
		return false, time.Minute
	}
	if wait := res.Delay(); wait > 0 {
		res.Cancel()
		return false, wait
	}
	return true, 0
}

var (
	// Credential endpoints: 20 per minute.
	AuthLimiter = NewKeyedLimiter(rate.Every(3*time.Second), 10)

	// Goal completion and progress writes.
	WriteLimiter = NewKeyedLimiter(rate.Limit(2), 20)

	GeneralLimiter = NewKeyedLimiter(rate.Limit(10), 50)
)

func limitKey(c *gin.Context) string {
	if id := c.GetString("userId"); id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

// RateLimitMiddleware rejects callers whose bucket in limiter is empty.
func RateLimitMiddleware(limiter *KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := limitKey(c)
		ok, wait := limiter.Allow(key)
		if !ok {
			logger.Warn().
				Str("key", key).
				Str("path", c.Request.URL.Path).
				Dur("retry_after", wait).
				Msg("Rate limit exceeded")

			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			response.Abort(c, http.StatusTooManyRequests, "Rate limit exceeded. Please slow down.")
			return
		}
		c.Next()
	}
}

func AuthRateLimit() gin.HandlerFunc { return RateLimitMiddleware(AuthLimiter) }

// WriteRateLimit runs after AuthMiddleware, so writes are limited per user.
func WriteRateLimit() gin.HandlerFunc { return RateLimitMiddleware(WriteLimiter) }

func GeneralRateLimit() gin.HandlerFunc { return RateLimitMiddleware(GeneralLimiter) }

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/frypillows/utils"
)

const limiterIdle = 5 * time.Minute

type clientLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// limiterTable holds one token bucket per client IP.
type limiterTable struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

func newLimiterTable(perMinute int) *limiterTable {
	perMinute = max(perMinute, 1)
	return &limiterTable{
		clients: map[string]*clientLimiter{},
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
	}
}

func (t *limiterTable) allow(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k, c := range t.clients {
		if now.After(c.expires) {
			delete(t.clients, k)
		}
	}
	c, ok := t.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.clients[key] = c
	}
	c.expires = now.Add(limiterIdle)
	return c.limiter.AllowN(now, 1)
}

// RateLimit applies an IP based token bucket of perMinute requests.
func RateLimit(perMinute int) gin.HandlerFunc {
	table := newLimiterTable(perMinute)
	return func(ctx *gin.Context) {
		if !table.allow(ctx.ClientIP(), time.Now()) {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

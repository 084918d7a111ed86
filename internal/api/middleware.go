package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tturner/smiteclick/internal/logging"
)

const requestIDHeader = "X-Request-Id"

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiters hands out one token bucket per client address.
type limiters struct {
	mu    sync.Mutex
	rps   rate.Limit
	burst int
	m     map[string]*limiterEntry
	now   func() time.Time
}

func newLimiters(rps float64, burst int) *limiters {
	if burst < 1 {
		burst = 1
	}
	return &limiters{
		rps:   rate.Limit(rps),
		burst: burst,
		m:     make(map[string]*limiterEntry),
		now:   time.Now,
	}
}

func (l *limiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.m[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.m[key] = e
	}
	e.lastAccess = l.now()
	return e.limiter
}

// prune drops limiters idle for longer than ttl and returns how many went.
func (l *limiters) prune(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-ttl)
	n := 0
	for k, e := range l.m {
		if e.lastAccess.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}

func (l *limiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func rateLimitMiddleware(l *limiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Error: "too many requests"})
			return
		}
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Header(requestIDHeader, reqID)
		c.Next()
	}
}

// tokenMiddleware requires "Authorization: Bearer <token>".
func tokenMiddleware(token string) gin.HandlerFunc {
	want := []byte("Bearer " + token)
	return func(c *gin.Context) {
		got := []byte(strings.TrimSpace(c.GetHeader("Authorization")))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.Header("WWW-Authenticate", `Bearer realm="smiteclick"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "missing or invalid token"})
			return
		}
		c.Next()
	}
}

// accessLogMiddleware writes one verbose line per request.
func accessLogMiddleware(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Verbose("api %s %s -> %d in %s [%s]",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Microsecond), c.GetString(requestIDHeader))
	}
}

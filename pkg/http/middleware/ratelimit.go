package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig limits each client (by real IP) to RPS with Burst.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// IdleTTL drops limiters for clients unseen this long. Zero means 10m.
	IdleTTL time.Duration
	now     func() time.Time
}

type clientLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

type limiterSet struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	clients map[string]*clientLimiter
	swept   time.Time
}

func (s *limiterSet) allow(key string) bool {
	now := s.cfg.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.swept) > s.cfg.IdleTTL {
		for k, cl := range s.clients {
			if now.Sub(cl.seen) > s.cfg.IdleTTL {
				delete(s.clients, k)
			}
		}
		s.swept = now
	}

	cl, ok := s.clients[key]
	if !ok {
		cl = &clientLimiter{lim: rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)}
		s.clients[key] = cl
	}
	cl.seen = now
	return cl.lim.AllowN(now, 1)
}

// RateLimit rejects requests over the per-client budget with 429.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	set := &limiterSet{cfg: cfg, clients: make(map[string]*clientLimiter), swept: cfg.now()}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !set.allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}

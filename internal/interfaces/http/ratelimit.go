package http

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/jhoicas/access-control-api/internal/application/dto"
)

const (
	rateLimitTTL          = 5 * time.Minute
	rateLimitCleanupEvery = time.Minute
)

// RateLimit limita por IP con un token bucket. Los buckets inactivos más de
// rateLimitTTL se descartan en la siguiente limpieza.
func RateLimit(perSecond float64, burst int) fiber.Handler {
	type bucket struct {
		lim *rate.Limiter
		ts  time.Time
	}
	var (
		mu          sync.Mutex
		buckets     = make(map[string]*bucket)
		lastCleanup = time.Now()
	)
	if burst < 1 {
		burst = 1
	}
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if ip == "" {
			ip = "unknown"
		}
		now := time.Now()

		mu.Lock()
		if now.Sub(lastCleanup) > rateLimitCleanupEvery {
			for k, b := range buckets {
				if now.Sub(b.ts) > rateLimitTTL {
					delete(buckets, k)
				}
			}
			lastCleanup = now
		}
		b, ok := buckets[ip]
		if !ok {
			b = &bucket{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
			buckets[ip] = b
		}
		b.ts = now
		allowed := b.lim.AllowN(now, 1)
		mu.Unlock()

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "RATE_LIMITED", Message: "demasiadas solicitudes, intente más tarde"})
		}
		return c.Next()
	}
}

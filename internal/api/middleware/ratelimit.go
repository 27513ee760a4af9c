package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter tracks a token bucket for a single client IP.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-IP token bucket on the routes it wraps.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*clientLimiter
	bucketSize int
	refillRate float64
}

// NewRateLimiter creates a limiter allowing bucketSize bursts refilled at
// refillRate tokens per second, and starts background cleanup of idle clients.
func NewRateLimiter(bucketSize int, refillRate float64) *RateLimiter {
	rl := &RateLimiter{
		clients:    make(map[string]*clientLimiter),
		bucketSize: bucketSize,
		refillRate: refillRate,
	}
	go rl.cleanupClients()
	return rl
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.clients[ip]
	if !exists {
		entry = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.refillRate), rl.bucketSize),
		}
		rl.clients[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// cleanupClients drops limiters for IPs idle longer than 30 minutes.
func (rl *RateLimiter) cleanupClients() {
	for {
		time.Sleep(10 * time.Minute)

		rl.mu.Lock()
		for ip, entry := range rl.clients {
			if time.Since(entry.lastSeen) > 30*time.Minute {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Limit rejects requests exceeding the client's token bucket with 429.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.getLimiter(ip).Allow() {
			log.Printf("rate limit exceeded for %s on %s", ip, c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

package ratelimit

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dagbok-backend/internal/config"
	"github.com/dagbok-backend/internal/model"
)

// Limiter admits or denies requests per (subject, route class) before
// authentication runs, so unauthenticated floods are throttled by IP.
type Limiter struct {
	cfg   config.RateLimitConfig
	cache *Cache

	// principalFn resolves the request's identity, if any, without
	// requiring the auth gate to have run. Nil falls back to IP keys.
	principalFn func(*http.Request) *model.Principal
}

func NewLimiter(cfg config.RateLimitConfig, principalFn func(*http.Request) *model.Principal) *Limiter {
	return &Limiter{
		cfg:         cfg,
		cache:       NewCache(cfg.IdleEviction),
		principalFn: principalFn,
	}
}

// Cache exposes the bucket cache so the sweeper can prune idle entries.
func (l *Limiter) Cache() *Cache {
	return l.cache
}

// Middleware wraps next with token-bucket admission control. Denied
// requests get 429 with a Retry-After header and a JSON error body.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if !l.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.resolveKey(r)
		bucket := l.resolveBucket(key, r.URL.Path)

		ok, wait := bucket.TryConsume(1)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := int(wait / time.Second)
		if wait%time.Second > 0 {
			retryAfter++
		}
		if retryAfter < 1 {
			retryAfter = 1
		}

		log.Printf("Rate limit exceeded for key=%s path=%s", key, r.URL.Path)

		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprintf(w, `{"error":"Too many requests","retryAfter":%d}`, retryAfter)
	})
}

func (l *Limiter) resolveBucket(key, path string) *Bucket {
	switch routeClass(path) {
	case "auth":
		return l.cache.GetOrCreate(key+":auth", func() *Bucket {
			return NewBucket(l.cfg.AuthCapacity, l.cfg.AuthRefill)
		})
	case "demo":
		return l.cache.GetOrCreate(key+":demo", func() *Bucket {
			return NewBucket(l.cfg.DemoCapacity, l.cfg.DemoRefill)
		})
	case "me":
		return l.cache.GetOrCreate(key+":me", func() *Bucket {
			return NewBucket(l.cfg.MeCapacity, l.cfg.MeRefill)
		})
	default:
		return l.cache.GetOrCreate(key+":default", func() *Bucket {
			return NewBucket(l.cfg.DefaultCapacity, l.cfg.DefaultRefill)
		})
	}
}

func routeClass(path string) string {
	switch {
	case strings.HasPrefix(path, "/user/login"), strings.HasPrefix(path, "/user/register"):
		return "auth"
	case strings.HasPrefix(path, "/user/demo"):
		return "demo"
	case strings.HasPrefix(path, "/user/me"):
		return "me"
	}
	return "default"
}

func (l *Limiter) resolveKey(r *http.Request) string {
	if l.principalFn != nil {
		if p := l.principalFn(r); p != nil {
			if p.UserID != uuid.Nil {
				return "user:" + p.UserID.String()
			}
			if p.Email != "" {
				return "user:" + p.Email
			}
		}
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

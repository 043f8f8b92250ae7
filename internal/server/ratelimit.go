package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate per IP. Zero
	// disables limiting.
	RequestsPerSecond float64

	// Burst is the maximum burst size per IP.
	Burst int
}

const (
	visitorTTL    = 10 * time.Minute
	sweepInterval = 5 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorSet tracks one token bucket per client IP. Stale entries are swept
// opportunistically on lookup so the map stays bounded without a background
// goroutine.
type visitorSet struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	cfg       RateLimitConfig
}

func newVisitorSet(cfg RateLimitConfig) *visitorSet {
	return &visitorSet{
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
		cfg:       cfg,
	}
}

func (s *visitorSet) limiter(ip string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweepLocked(now)
	}

	v, ok := s.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), s.cfg.Burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter
}

func (s *visitorSet) sweepLocked(now time.Time) {
	for ip, v := range s.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(s.visitors, ip)
		}
	}
	s.lastSweep = now
}

func (s *visitorSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.visitors)
}

// rateLimitMiddleware enforces per-IP token buckets. It returns a
// pass-through middleware when cfg.RequestsPerSecond is zero.
func rateLimitMiddleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	set := newVisitorSet(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Rate limit by IP, not by connection; otherwise every
			// ephemeral port gets its own bucket.
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !set.limiter(ip, time.Now()).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

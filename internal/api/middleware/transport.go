package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// SecurityHeaders sets hardening headers on every response.
type SecurityHeaders struct{}

// Name implements Interceptor.
func (SecurityHeaders) Name() string { return StageSecurityHeaders }

// Intercept implements Interceptor.
func (SecurityHeaders) Intercept(w http.ResponseWriter, r *http.Request, next Next) error {
	h := w.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "0")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	h.Set("Cache-Control", "no-store")
	return next(w, r)
}

// CORS answers preflight requests and sets CORS headers for the configured
// origins.
type CORS struct {
	c *cors.Cors
}

// NewCORS creates the CORS stage. An empty origin list allows no
// cross-origin requests.
func NewCORS(allowedOrigins []string) *CORS {
	opts := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{CorrelationIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}
	if len(allowedOrigins) == 0 {
		// cors treats an empty list as "*".
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	return &CORS{c: cors.New(opts)}
}

// Name implements Interceptor.
func (c *CORS) Name() string { return StageCORS }

// Intercept implements Interceptor.
func (c *CORS) Intercept(w http.ResponseWriter, r *http.Request, next Next) error {
	var err error
	c.c.ServeHTTP(w, r, func(w http.ResponseWriter, r *http.Request) {
		err = next(w, r)
	})
	return err
}

// MessageRateLimited is the message of a 429 response.
const MessageRateLimited = "Rate limit exceeded. Please retry later."

const bucketTTL = 5 * time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimit is a token bucket per client IP. Buckets are keyed on the
// connection's RemoteAddr unless proxy headers are trusted.
type RateLimit struct {
	limit      rate.Limit
	burst      int
	clock      clock.Clock
	trustProxy bool

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// RateLimitOption configures a RateLimit.
type RateLimitOption func(*RateLimit)

// WithTrustedProxy keys buckets on the client address chi's RealIP takes from
// True-Client-IP, X-Real-IP or X-Forwarded-For. Enable it only behind a proxy
// that overwrites those headers; otherwise every client picks its own key.
func WithTrustedProxy() RateLimitOption {
	return func(l *RateLimit) { l.trustProxy = true }
}

// NewRateLimit creates the rate limit stage. A nil clk uses the system clock.
func NewRateLimit(perSecond float64, burst int, clk clock.Clock, opts ...RateLimitOption) *RateLimit {
	if clk == nil {
		clk = clock.System()
	}
	l := &RateLimit{
		limit:     rate.Limit(perSecond),
		burst:     burst,
		clock:     clk,
		buckets:   make(map[string]*bucket),
		lastSweep: clk.Now(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements Interceptor.
func (l *RateLimit) Name() string { return StageRateLimit }

// Intercept implements Interceptor.
func (l *RateLimit) Intercept(w http.ResponseWriter, r *http.Request, next Next) error {
	if l.trustProxy {
		// RealIP rewrites r.RemoteAddr in place for every later stage.
		chimiddleware.RealIP(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(w, r)
	}
	ip := clientIP(r)
	if !l.allow(ip) {
		logger.FromContext(r.Context()).Warn("rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
		w.Header().Set("Retry-After", "1")
		shared.RespondWithError(w, r, http.StatusTooManyRequests,
			http.StatusText(http.StatusTooManyRequests), MessageRateLimited)
		return nil
	}
	return next(w, r)
}

func (l *RateLimit) allow(ip string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > bucketTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// clientIP returns the host part of r.RemoteAddr. Forwarding headers are
// never read here.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}

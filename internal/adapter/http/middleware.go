package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/quake-dashboard/internal/dashboard"
)

const sessionCookie = "quake_session"

type ctxKey int

const sessionKey ctxKey = iota

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"request_id", chimw.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// withSession attaches the caller's session. Only routes that pass create may
// start a session, and new sessions are limited per client IP. Other routes
// send a caller without a live session back to the page.
func (s *Server) withSession(create bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *dashboard.Session
			if c, err := r.Cookie(sessionCookie); err == nil {
				sess, _ = s.store.Get(c.Value)
			}
			if sess == nil {
				if !create {
					noSession(w, r)
					return
				}
				ip := clientIP(r)
				if !s.sessionLimiter.allow(ip) {
					s.logger.Warn("session creation rate limit exceeded", "ip", ip)
					http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
					return
				}
				sess = s.store.Create()
				sess.Init(r.Context())
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    sess.ID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
		})
	}
}

func noSession(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Session expired, reload the page."})
		return
	}
	redirectHome(w, r)
}

func sessionFrom(ctx context.Context) *dashboard.Session {
	sess, _ := ctx.Value(sessionKey).(*dashboard.Session)
	return sess
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter limits requests per client IP. Idle visitors are dropped
// lazily while serving.
type rateLimiter struct {
	limit  rate.Limit
	burst  int
	ttl    time.Duration
	clock  clockwork.Clock
	logger *slog.Logger

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newRateLimiter(rps float64, burst int, ttl time.Duration, logger *slog.Logger) *rateLimiter {
	clock := clockwork.NewRealClock()
	return &rateLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		clock:     clock,
		logger:    logger,
		visitors:  make(map[string]*visitor),
		lastSweep: clock.Now(),
	}
}

func (l *rateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.Sub(l.lastSweep) > l.ttl {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.allow(ip) {
			l.logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the caller's address without the port. chi's RealIP has already
// applied forwarding headers.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

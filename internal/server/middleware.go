package server

import (
	"context"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/matzehuels/spritestack/pkg/errors"
	"github.com/matzehuels/spritestack/pkg/observability"
	"github.com/matzehuels/spritestack/pkg/session"
)

type ctxKey int

const sessionKey ctxKey = iota

// observe logs each request and reports it to the HTTP hooks under its
// route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, duration)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", duration,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// rateLimit throttles each client address independently.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := s.limiter.get(clientAddr(r))
		if !lim.Allow() {
			retry := int(math.Ceil(1 / float64(lim.Limit())))
			w.Header().Set("Retry-After", itoa(max(retry, 1)))
			rl := &errors.RateLimitedError{RetryAfter: max(retry, 1)}
			s.writeError(w, errors.Wrap(rl.Code(), rl, "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withSession resolves {id} and stores the session on the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !session.ValidID(id) {
			s.writeError(w, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id))
			return
		}
		sess, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionKey).(*session.Session)
	return sess
}

// clientAddr strips the port so one client shares a bucket across
// connections.
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter holds one token bucket per client address.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	limit   rate.Limit
	burst   int
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		clients: make(map[string]*limiterEntry),
		limit:   limit,
		burst:   burst,
	}
}

func (c *clientLimiter) get(addr string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.clients[addr]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[addr] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func (c *clientLimiter) prune(idle time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for addr, e := range c.clients {
		if time.Since(e.lastSeen) > idle {
			delete(c.clients, addr)
		}
	}
}

func (c *clientLimiter) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.prune(interval)
		}
	}
}

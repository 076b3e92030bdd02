package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"aegis-log/api/handlers"
	"aegis-log/core/auth"
	"aegis-log/core/rbac"
)

const (
	sessionCookie           = "aegis_session"
	sessionActivityInterval = 30 * time.Second
	loginLimiterTTL         = 10 * time.Minute
	loginLimiterMaxBuckets  = 10000
)

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Errorf("PANIC %s %s: %v\n%s", r.Method, r.URL.Path, rec, string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Printf("RESP %s %s status=%d dur=%s bytes=%d",
			r.Method, r.URL.Path, rec.status, time.Since(start), rec.size)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// withSession authenticates via the session cookie or an
// "Authorization: Bearer <session id>" header, resolves the acting
// principal, and enforces CSRF for cookie-authenticated mutations.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessID, fromCookie := sessionIDFromRequest(r)
		if sessID == "" {
			s.logger.Printf("AUTH fail (no credentials) %s %s", r.Method, r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		sr, err := s.sessions.GetSession(r.Context(), sessID)
		if err != nil || sr == nil {
			s.logger.Printf("AUTH fail (session not found) %s %s: %v", r.Method, r.URL.Path, err)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		user, err := s.users.Get(r.Context(), sr.UserID)
		if err != nil || user == nil {
			s.logger.Printf("AUTH fail (user missing) %s %s: %v", r.Method, r.URL.Path, err)
			_ = s.sessions.DeleteSession(r.Context(), sr.ID)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		if fromCookie && r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodOptions {
			if r.Header.Get("X-CSRF-Token") != sr.CSRFToken {
				s.logger.Printf("AUTH fail (csrf) %s %s user=%s", r.Method, r.URL.Path, sr.Username)
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "csrf invalid"})
				return
			}
		}
		now := time.Now().UTC()
		if now.Sub(sr.LastSeenAt) >= sessionActivityInterval {
			_ = s.sessions.UpdateActivity(r.Context(), sr.ID, now, s.cfg.EffectiveSessionTTL())
		}
		principal := rbac.Principal{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}
		ctx := context.WithValue(r.Context(), auth.SessionContextKey, sr)
		ctx = context.WithValue(ctx, auth.PrincipalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func sessionIDFromRequest(r *http.Request) (id string, fromCookie bool) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1]), false
		}
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.loginLimiter.allow(handlers.ClientIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many attempts"})
			return
		}
		next.ServeHTTP(w, r)
	}
}

type requestLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*tokenBucket
	capacity    int
	refill      time.Duration
	ttl         time.Duration
	lastCleanup time.Time
	maxBuckets  int
}

type tokenBucket struct {
	tokens   int
	last     time.Time
	lastSeen time.Time
}

func newLimiter(capacity int, refill time.Duration) *requestLimiter {
	return &requestLimiter{
		buckets:    make(map[string]*tokenBucket),
		capacity:   capacity,
		refill:     refill,
		ttl:        loginLimiterTTL,
		maxBuckets: loginLimiterMaxBuckets,
	}
}

func (l *requestLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if now.Sub(l.lastCleanup) >= time.Minute {
		l.cleanup(now)
		l.lastCleanup = now
	}
	tb, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &tokenBucket{tokens: l.capacity - 1, last: now, lastSeen: now}
		return true
	}
	tb.lastSeen = now
	if now.Sub(tb.last) >= l.refill {
		tb.tokens = l.capacity
		tb.last = now
	}
	if tb.tokens <= 0 {
		return false
	}
	tb.tokens--
	return true
}

func (l *requestLimiter) cleanup(now time.Time) {
	for key, tb := range l.buckets {
		if now.Sub(tb.lastSeen) > l.ttl {
			delete(l.buckets, key)
		}
	}
	for len(l.buckets) > l.maxBuckets {
		oldestKey := ""
		var oldest time.Time
		for key, tb := range l.buckets {
			if oldestKey == "" || tb.lastSeen.Before(oldest) {
				oldestKey = key
				oldest = tb.lastSeen
			}
		}
		if oldestKey == "" {
			break
		}
		delete(l.buckets, oldestKey)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

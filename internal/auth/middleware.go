package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

// Realm is sent in WWW-Authenticate challenges.
const Realm = "filecomments"

type contextKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(contextKey{}).(*User)
	return u
}

// rateLimiter tracks failed authentication attempts per IP.
type rateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{attempts: make(map[string][]time.Time)}
}

const (
	rateLimitWindow  = 1 * time.Minute
	rateLimitMaxFail = 10
)

// prune drops entries older than the window and returns what remains.
func (rl *rateLimiter) prune(ip string, now time.Time) []time.Time {
	cutoff := now.Add(-rateLimitWindow)
	valid := rl.attempts[ip][:0]
	for _, t := range rl.attempts[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.attempts, ip)
		return nil
	}
	rl.attempts[ip] = valid
	return valid
}

// limited reports whether ip has exceeded the failure budget.
func (rl *rateLimiter) limited(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.prune(ip, time.Now())) >= rateLimitMaxFail
}

// recordFailure records a failed attempt for ip.
func (rl *rateLimiter) recordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	rl.attempts[ip] = append(rl.prune(ip, now), now)
}

// RequireBasicAuth is middleware that authenticates requests with HTTP Basic
// credentials: the username is the user ID and the password is one of that
// user's API keys. The user is stored in the request context.
// Returns 401 for missing/invalid credentials, 429 for rate-limited IPs.
func RequireBasicAuth(apiKeys *APIKeyStore, users *UserStore, next http.Handler) http.Handler {
	limiter := newRateLimiter()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if limiter.limited(ip) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok {
			challenge(w, "Authorization required")
			return
		}

		owner, err := apiKeys.Validate(password)
		if err != nil {
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if owner == "" || owner != username {
			limiter.recordFailure(ip)
			challenge(w, "Invalid credentials")
			return
		}

		u, err := users.Get(owner)
		if errors.Is(err, ErrUserNotFound) {
			limiter.recordFailure(ip)
			challenge(w, "Invalid credentials")
			return
		}
		if err != nil {
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// clientIP returns the host part of r.RemoteAddr so every connection from a
// client shares one failure budget.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func challenge(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
	http.Error(w, msg, http.StatusUnauthorized)
}

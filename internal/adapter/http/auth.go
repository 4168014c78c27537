package http

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/docstruct/internal/adapter/http/ratelimit"
	"github.com/bnema/docstruct/internal/port"
)

type TokenValidator interface {
	Enabled() bool
	Validate(token string) error
}

// AuthMiddleware requires a valid bearer token. Browsers that cannot set
// headers (EventSource, links on the status page) may pass ?token= instead.
// Clients that fail too often are refused for a while.
func AuthMiddleware(auth TokenValidator, limiter *ratelimit.FailureLimiter, log port.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.Enabled() {
			next(w, r)
			return
		}

		client := clientIP(r)
		if blocked, remaining := limiter.Blocked(client); blocked {
			tooManyAttempts(w, remaining)
			return
		}

		if err := auth.Validate(requestToken(r)); err != nil {
			if blocked, remaining := limiter.Fail(client); blocked {
				log.Warnf("blocking %s for %s after repeated authentication failures", client, remaining)
				tooManyAttempts(w, remaining)
				return
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="docstruct"`)
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		limiter.Reset(client)
		next(w, r)
	}
}

func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func tooManyAttempts(w http.ResponseWriter, remaining time.Duration) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(remaining.Seconds()))))
	writeError(w, http.StatusTooManyRequests, "too many failed attempts")
}

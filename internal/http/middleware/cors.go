package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSOptions configures the CORS middleware.
type CORSOptions struct {
	// AllowedOrigins lists exact origins; "*" admits any origin.
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

const (
	corsAllowedHeaders = "Content-Type, Accept, X-Request-ID"
	corsAllowedMethods = "GET, POST, OPTIONS"
)

// CORS returns an allowlist CORS middleware. Matching origins are echoed
// back, never "*", so credentialed requests from the chat widget pass.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	originAllowed := OriginMatcher(opts.AllowedOrigins)
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	maxAgeSeconds := strconv.Itoa(int(maxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			allowed := originAllowed(origin)
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
				h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
				h.Set("Access-Control-Max-Age", maxAgeSeconds)
				if opts.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OriginMatcher reports whether an Origin header value is on the allowlist.
// "*" admits any non-empty origin; trailing slashes are ignored.
func OriginMatcher(origins []string) func(origin string) bool {
	allowAny := false
	allow := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			allowAny = true
		default:
			allow[origin] = struct{}{}
		}
	}
	return func(origin string) bool {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			return false
		}
		if allowAny {
			return true
		}
		_, ok := allow[origin]
		return ok
	}
}

// OriginGuard rejects requests whose Origin header is not on the allowlist.
// Requests without an Origin header (non-browser clients) pass. CORS headers
// do not stop a cross-origin WebSocket upgrade, so such routes mount this.
func OriginGuard(origins []string) func(http.Handler) http.Handler {
	originAllowed := OriginMatcher(origins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" && !originAllowed(origin) {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

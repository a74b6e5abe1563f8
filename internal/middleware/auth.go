package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/internal/gate"
	"github.com/shopadmin/internal/session"
)

type contextKey string

const SessionContextKey contextKey = "session"

// SessionSource is anything that can report the current session.
type SessionSource interface {
	Snapshot() session.Snapshot
}

// Denial is the body written when the gate refuses a request.
type Denial struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// Gate admits requests whose session satisfies tier. Refusals answer
// 401 with a redirect to the login page, or 403 with a redirect to the
// dashboard for signed-in accounts lacking the admin role.
func Gate(src SessionSource, tier gate.Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := src.Snapshot()
			decision := tier.Check(snap)
			if !decision.Allowed() {
				status, msg := http.StatusUnauthorized, "unauthorized"
				if snap.IsAuthenticated() {
					status, msg = http.StatusForbidden, "forbidden"
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(Denial{Error: msg, Redirect: decision.Target})
				return
			}
			ctx := context.WithValue(r.Context(), SessionContextKey, snap)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionFromContext returns the snapshot the gate admitted.
func GetSessionFromContext(ctx context.Context) (session.Snapshot, bool) {
	snap, ok := ctx.Value(SessionContextKey).(session.Snapshot)
	return snap, ok
}

// CORS refuses browser requests from foreign origins. The console acts
// with the stored session, so a page on another origin must never reach
// it. Requests without an Origin header (CLI tools, same-origin GETs)
// and requests from the console's own origin pass; listed origins get
// CORS headers.
func CORS(allowed []string) func(http.Handler) http.Handler {
	allow := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		allow[strings.TrimRight(origin, "/")] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || sameOrigin(origin, r) {
				next.ServeHTTP(w, r)
				return
			}
			if !allow[origin] {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": "origin not allowed"})
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sameOrigin(origin string, r *http.Request) bool {
	u, err := url.Parse(origin)
	return err == nil && u.Host != "" && strings.EqualFold(u.Host, r.Host)
}

// JSON middleware sets JSON content type
func JSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// RequestID echoes the caller's X-Request-ID or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logger logs one line per request.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"request_id", w.Header().Get("X-Request-ID"))
		})
	}
}

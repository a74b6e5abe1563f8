package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopadmin/internal/gate"
	"github.com/shopadmin/internal/model"
	"github.com/shopadmin/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSession session.Snapshot

func (f fixedSession) Snapshot() session.Snapshot { return session.Snapshot(f) }

func TestGate(t *testing.T) {
	member := fixedSession{State: session.StateAuthenticated, User: &model.User{ID: "u", Role: model.UserRoleUser}}
	cases := []struct {
		name     string
		src      fixedSession
		tier     gate.Tier
		status   int
		redirect string
	}{
		{"anonymous on authenticated", fixedSession{}, gate.TierAuthenticated, http.StatusUnauthorized, "/login"},
		{"anonymous on admin", fixedSession{}, gate.TierAdmin, http.StatusUnauthorized, "/login"},
		{"member on admin", member, gate.TierAdmin, http.StatusForbidden, "/dashboard"},
		{"member on authenticated", member, gate.TierAuthenticated, http.StatusOK, ""},
		{"anonymous on public", fixedSession{}, gate.TierPublic, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var sawSession bool
			h := Gate(tc.src, tc.tier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, sawSession = GetSessionFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tc.status, rec.Code)
			if tc.redirect == "" {
				assert.True(t, sawSession)
				return
			}
			var body Denial
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.redirect, body.Redirect)
			assert.False(t, sawSession)
		})
	}
}

func TestRequestID(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
		wantNext   bool
	}{
		{name: "no origin", method: http.MethodDelete, wantStatus: http.StatusOK, wantNext: true},
		{name: "same origin", method: http.MethodDelete, origin: "http://example.com", wantStatus: http.StatusOK, wantNext: true},
		{name: "foreign preflight", method: http.MethodOptions, origin: "https://evil.example", wantStatus: http.StatusForbidden},
		{name: "foreign request", method: http.MethodDelete, origin: "https://evil.example", wantStatus: http.StatusForbidden},
		{name: "allowed preflight", method: http.MethodOptions, origin: "https://ops.example",
			wantStatus: http.StatusNoContent, wantAllow: "https://ops.example"},
		{name: "allowed request", method: http.MethodGet, origin: "https://ops.example",
			wantStatus: http.StatusOK, wantAllow: "https://ops.example", wantNext: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			h := CORS([]string{"https://ops.example/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
			}))

			req := httptest.NewRequest(tt.method, "http://example.com/api/v1/products/p1", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantNext, reached)
		})
	}
}

func TestCORSAllowsNothingByDefault(t *testing.T) {
	h := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "http://example.com/api/v1/settings", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/agentmarket/api/handlers"
	"github.com/BaSui01/agentmarket/internal/ctxkeys"
	"github.com/BaSui01/agentmarket/internal/metrics"
)

const testSecret = "test-secret-0123456789"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

// principalEcho writes the authenticated principal, or "anonymous".
func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := ctxkeys.Principal(r.Context())
		if !ok {
			p = "anonymous"
		}
		w.Write([]byte(p))
	})
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handlers.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func signToken(t *testing.T, claims jwt.RegisteredClaims, method jwt.SigningMethod, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// =============================================================================
// 🧪 基础中间件
// =============================================================================

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "HSTS only over TLS")
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ctxkeys.RequestID(r.Context())
	}))

	t.Run("keeps client id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "client-42")
		handler.ServeHTTP(w, r)

		assert.Equal(t, "client-42", seen)
		assert.Equal(t, "client-42", w.Header().Get("X-Request-ID"))
	})

	t.Run("generates when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, seen, 36)
		assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", strings.Repeat("a", 200))
		handler.ServeHTTP(w, r)

		assert.Len(t, seen, 36)
	})
}

func TestRecovery(t *testing.T) {
	handler := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recovery(zaptest.NewLogger(t)), RequestID())

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/agents/search", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(okHandler(), tag("a"), tag("b"), tag("c")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

// =============================================================================
// 🧪 CORS
// =============================================================================

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"})(okHandler())

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed bool
	}{
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "allowed origin", method: http.MethodGet, origin: "https://app.example.com", wantStatus: http.StatusOK, wantAllowed: true},
		{name: "foreign origin", method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusOK},
		{name: "allowed preflight", method: http.MethodOptions, origin: "https://app.example.com", preflight: true, wantStatus: http.StatusNoContent, wantAllowed: true},
		{name: "foreign preflight", method: http.MethodOptions, origin: "https://evil.example.com", preflight: true, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/v1/agents/search", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				r.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantAllowed {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "Origin", w.Header().Get("Vary"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

// =============================================================================
// 🧪 限流
// =============================================================================

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimiter(ctx, 1, 2, zap.NewNop())(okHandler())

	send := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/agents/search", nil)
		r.RemoteAddr = remote
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001").Code)

	limited := send("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", errorCode(t, limited))

	// 其他 IP 有独立的令牌桶
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000").Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	handler := RateLimiter(context.Background(), 0, 0, zap.NewNop())(okHandler())

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

// =============================================================================
// 🧪 认证
// =============================================================================

func TestAPIKeyAuth(t *testing.T) {
	handler := APIKeyAuth([]string{"key-one", "key-two"}, []string{"/health"}, zap.NewNop())(principalEcho())

	tests := []struct {
		name       string
		path       string
		key        string
		wantStatus int
		wantBody   string
	}{
		{name: "valid first key", path: "/api/v1/agents/search", key: "key-one", wantStatus: http.StatusOK, wantBody: "api-key:0"},
		{name: "valid second key", path: "/api/v1/agents/search", key: "key-two", wantStatus: http.StatusOK, wantBody: "api-key:1"},
		{name: "wrong key", path: "/api/v1/agents/search", key: "key-three", wantStatus: http.StatusUnauthorized},
		{name: "missing key", path: "/api/v1/agents/search", wantStatus: http.StatusUnauthorized},
		{name: "skipped path", path: "/health", wantStatus: http.StatusOK, wantBody: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			} else {
				assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
			}
		})
	}
}

func TestAPIKeyAuth_NoKeysConfigured(t *testing.T) {
	handler := APIKeyAuth(nil, nil, zap.NewNop())(principalEcho())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/agents/search", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())
}

func TestJWTAuth(t *testing.T) {
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   "buyer-7",
		Issuer:    "agentmarket",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	handler := JWTAuth(testSecret, "agentmarket", []string{"/health"}, false, zap.NewNop())(principalEcho())

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", header: "Bearer " + signToken(t, valid, jwt.SigningMethodHS256, testSecret), wantStatus: http.StatusOK, wantBody: "buyer-7"},
		{name: "expired", header: "Bearer " + signToken(t, expired, jwt.SigningMethodHS256, testSecret), wantStatus: http.StatusUnauthorized},
		{name: "wrong issuer", header: "Bearer " + signToken(t, wrongIssuer, jwt.SigningMethodHS256, testSecret), wantStatus: http.StatusUnauthorized},
		{name: "missing expiry", header: "Bearer " + signToken(t, noExpiry, jwt.SigningMethodHS256, testSecret), wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, valid, jwt.SigningMethodHS256, "other-secret"), wantStatus: http.StatusUnauthorized},
		{name: "wrong algorithm", header: "Bearer " + signToken(t, valid, jwt.SigningMethodHS512, testSecret), wantStatus: http.StatusUnauthorized},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "skipped path", path: "/health", wantStatus: http.StatusOK, wantBody: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path == "" {
				path = "/api/v1/agents/top"
			}
			r := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			} else {
				assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
			}
		})
	}
}

func TestJWTAuth_ComposedWithAPIKeys(t *testing.T) {
	skip := []string{"/health"}
	handler := Chain(principalEcho(),
		JWTAuth(testSecret, "", skip, true, zap.NewNop()),
		APIKeyAuth([]string{"key-one"}, skip, zap.NewNop()),
	)
	token := signToken(t, jwt.RegisteredClaims{
		Subject:   "buyer-9",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}, jwt.SigningMethodHS256, testSecret)

	send := func(setup func(*http.Request)) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/agents/search", nil)
		setup(r)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	w := send(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "buyer-9", w.Body.String(), "bearer token satisfies auth without an API key")

	w = send(func(r *http.Request) { r.Header.Set("X-API-Key", "key-one") })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "api-key:0", w.Body.String())

	w = send(func(*http.Request) {})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-token") })
	assert.Equal(t, http.StatusUnauthorized, w.Code, "a bad bearer token is rejected even when API keys exist")
}

// =============================================================================
// 🧪 指标
// =============================================================================

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry("agentmarket", reg, zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.PathValue("id")))
	})
	handler := MetricsMiddleware(collector)(mux)

	for _, path := range []string{"/api/v1/agents/a-v1", "/api/v1/agents/b-v1", "/nowhere"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP agentmarket_http_requests_total Total number of HTTP requests
# TYPE agentmarket_http_requests_total counter
agentmarket_http_requests_total{method="GET",path="/api/v1/agents/{id}",status="2xx"} 2
agentmarket_http_requests_total{method="GET",path="other",status="4xx"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "agentmarket_http_requests_total"))
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/ready", "/ready"},
		{"/metrics", "/metrics"},
		{"/api/v1/agents/search", "/api/v1/agents/search"},
		{"/api/v1/agents/top", "/api/v1/agents/top"},
		{"/api/v1/agents/best-value", "/api/v1/agents/best-value"},
		{"/api/v1/agents/broaden", "/api/v1/agents/broaden"},
		{"/api/v1/agents/translator-v2", "/api/v1/agents/{id}"},
		{"/api/v1/agents/translator-v2/card", "/api/v1/agents/{id}/card"},
		{"/api/v1/agents/translator-v2/other", "other"},
		{"/api/v1/agents/", "other"},
		{"/api/v2/agents/search", "other"},
		{"/", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestOTelTracing_PassesThrough(t *testing.T) {
	handler := OTelTracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// =============================================================================
// 🧪 命令行辅助
// =============================================================================

func TestSplitPositional(t *testing.T) {
	pos, flags := splitPositional([]string{"-1", "--config", "c.yaml"})
	assert.Equal(t, []string{"-1"}, pos)
	assert.Equal(t, []string{"--config", "c.yaml"}, flags)

	pos, flags = splitPositional([]string{"3"})
	assert.Equal(t, []string{"3"}, pos)
	assert.Empty(t, flags)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zap.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zap.InfoLevel, parseLevel("nonsense"))
}

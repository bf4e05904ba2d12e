package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MedKG-Intelligence/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/api/entities/:name/aliases", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/fail", func(c *gin.Context) { c.String(http.StatusServiceUnavailable, "down") })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func serve(r http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

// ─────────────────────────────────────────────────────────────────────────────
// Request IDs
// ─────────────────────────────────────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	w := serve(newEngine(RequestID()), http.MethodGet, "/health", nil)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func TestRequestID_Propagated(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { seen = GetRequestID(c) })

	w := serve(r, http.MethodGet, "/x", map[string]string{HeaderRequestID: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "req-42", seen)
}

// ─────────────────────────────────────────────────────────────────────────────
// Logging
// ─────────────────────────────────────────────────────────────────────────────

func TestRequestLogging_Levels(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := newEngine(RequestID(), RequestLogging(logger, DefaultLoggingConfig()))

	serve(r, http.MethodGet, "/api/entities/Aspirin/aliases", nil)
	serve(r, http.MethodGet, "/fail", nil)
	serve(r, http.MethodGet, "/missing", nil)

	ok := logger.Find("info", "HTTP request completed")
	require.Len(t, ok, 1)
	path, _ := ok[0].Field("path")
	assert.Equal(t, "/api/entities/:name/aliases", path)
	assert.True(t, logger.HasMessage("error", "HTTP request completed with server error"))
	assert.True(t, logger.HasMessage("warn", "HTTP request completed with client error"))
}

func TestRequestLogging_SkipsProbes(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := newEngine(RequestLogging(logger, DefaultLoggingConfig()))

	serve(r, http.MethodGet, "/health", nil)
	assert.Empty(t, logger.Find("info", "HTTP request completed"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Recovery
// ─────────────────────────────────────────────────────────────────────────────

func TestRecovery_WritesErrorBody(t *testing.T) {
	logger := testutil.NewMockLogger()
	w := serve(newEngine(Recovery(logger)), http.MethodGet, "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"COMMON_001","message":"internal server error"}`, w.Body.String())
	assert.True(t, logger.HasMessage("error", "panic recovered"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Metrics
// ─────────────────────────────────────────────────────────────────────────────

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "mw"}, nil)
	require.NoError(t, err)
	r := newEngine(Metrics(prometheus.NewAppMetrics(c)))

	serve(r, http.MethodGet, "/api/entities/Aspirin/aliases", nil)
	serve(r, http.MethodGet, "/api/entities/CDK4/aliases", nil)

	out := serve(c.Handler(), http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, out, `mw_http_requests_total{method="GET",path="/api/entities/:name/aliases",status_code="200"} 2`)
}

func TestMetrics_NilIsPassThrough(t *testing.T) {
	w := serve(newEngine(Metrics(nil)), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// CORS
// ─────────────────────────────────────────────────────────────────────────────

func corsEngine(cfg CORSConfig) *gin.Engine {
	return newEngine(CORS(cfg))
}

func TestCORS_PreflightRequest(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://app.example.com"}

	w := serve(corsEngine(config), http.MethodOptions, "/health", map[string]string{
		"Origin":                        "https://app.example.com",
		"Access-Control-Request-Method": "POST",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, w.Body.String())
}

func TestCORS_SimpleRequest(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://app.example.com"}

	w := serve(corsEngine(config), http.MethodGet, "/health", map[string]string{"Origin": "https://app.example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, HeaderRequestID, w.Header().Get("Access-Control-Expose-Headers"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://app.example.com"}

	w := serve(corsEngine(config), http.MethodGet, "/health", map[string]string{"Origin": "https://evil.example.org"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcards(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"*.example.com"}
	config.AllowWildcard = true
	w := serve(corsEngine(config), http.MethodGet, "/health", map[string]string{"Origin": "https://sub.example.com"})
	assert.Equal(t, "https://sub.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	config = DefaultCORSConfig()
	config.AllowedOrigins = []string{"*"}
	w = serve(corsEngine(config), http.MethodGet, "/health", map[string]string{"Origin": "https://any.org"})
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	config.AllowCredentials = true
	w = serve(corsEngine(config), http.MethodGet, "/health", map[string]string{"Origin": "https://any.org"})
	assert.Equal(t, "https://any.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_NoOriginHeader(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"*"}

	w := serve(corsEngine(config), http.MethodGet, "/health", nil)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

//Personal.AI order the ending

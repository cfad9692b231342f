package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourflorist/storefront/pkg/config"
	"github.com/yourflorist/storefront/pkg/logger"
	"github.com/yourflorist/storefront/pkg/metrics"
	"github.com/yourflorist/storefront/pkg/session"
)

func testDeps() Deps {
	cfg := &config.Config{}
	cfg.App.Env = "development"
	cfg.Session = config.SessionConfig{
		Secret:     "test-secret",
		Issuer:     "storefront-test",
		TTLMinutes: 60,
	}
	cfg.CORS.AllowedOrigins = []string{"*"}

	registry := prometheus.NewRegistry()
	return Deps{
		Config:      cfg,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Registry:    registry,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
	}
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "ok", envelope.Data["status"])
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSessionIssuesToken(t *testing.T) {
	deps := testDeps()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data struct {
			SessionToken string    `json:"sessionToken"`
			ExpiresAt    time.Time `json:"expiresAt"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.SessionToken)

	claims, err := session.Parse(deps.Config.Session, envelope.Data.SessionToken)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.SessionID)
}

func TestCartRequiresSessionToken(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartRejectsGarbageToken(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

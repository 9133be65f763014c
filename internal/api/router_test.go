package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/auth"
)

func newTestRouter(t *testing.T, prod bool, logs *bytes.Buffer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(Config{
		IsProduction: prod,
		ProdOrigins:  "https://a.example.com, https://b.example.com",
		Logger:       slog.New(slog.NewJSONHandler(logs, nil)),
		JWTManager:   auth.NewJWTManager("secret", time.Hour),
	})
}

func TestHealthz(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(t, false, &logs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "req-123")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(headerRequestID))

	var line map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &line))
	assert.Equal(t, "request completed", line["msg"])
	assert.Equal(t, "req-123", line["request_id"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
}

func TestRequestIDIsGenerated(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(t, false, &logs)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/reservations", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, w.Header().Get(headerRequestID), 36)
	assert.Contains(t, logs.String(), "client error")
}

func TestCORS(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(t, true, &logs)

	preflight := func(origin string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/v1/reservations", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://b.example.com")
	assert.Equal(t, "https://b.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("https://evil.example.com")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a", "https://b"}, splitOrigins(" https://a ,,https://b"))
	assert.Nil(t, splitOrigins(""))
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthController(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		env := newTestEnv(t, newMockBookStore())

		rr := env.get("/health")
		require.Equal(t, http.StatusOK, rr.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "test", resp.Version)
		assert.Equal(t, "ok", resp.Checks["database"])
	})

	t.Run("database down", func(t *testing.T) {
		env := newTestEnv(t, newMockBookStore(), func(cfg *RouterConfig) {
			cfg.Database = mockPinger{err: errors.New("database is closed")}
		})

		rr := env.get("/health")
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "error: database is closed", resp.Checks["database"])
	})

	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t, newMockBookStore(), func(cfg *RouterConfig) { cfg.Database = nil })

		rr := env.get("/health")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "not configured")
	})
}

func TestPing(t *testing.T) {
	env := newTestEnv(t, newMockBookStore())

	rr := env.get("/ping")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestSystemHandler(t *testing.T) {
	healthy := pingerFunc(func(context.Context) error { return nil })
	broken := pingerFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	serve := func(h *SystemHandler, path string) *httptest.ResponseRecorder {
		engine := gin.New()
		h.RegisterRoutes(&engine.RouterGroup)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	t.Run("liveness never checks dependencies", func(t *testing.T) {
		w := serve(NewSystemHandler(map[string]Pinger{"database": broken}), "/health")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ready when every check passes", func(t *testing.T) {
		w := serve(NewSystemHandler(map[string]Pinger{"database": healthy, "redis": healthy}), "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"redis":"ok"`)
	})

	t.Run("unavailable when a check fails", func(t *testing.T) {
		w := serve(NewSystemHandler(map[string]Pinger{"database": healthy, "redis": broken}), "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "SERVICE_UNAVAILABLE")
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}

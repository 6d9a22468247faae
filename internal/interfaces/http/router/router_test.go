package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingRegistrar struct{ path string }

func (p pingRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(p.path, func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).
		Register(pingRegistrar{path: "/ping"}).
		RegisterRoot(pingRegistrar{path: "/health"}).
		Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/ping").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/ping").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/health").Code)
}

func TestNewEngine(t *testing.T) {
	t.Run("logs requests and recovers panics", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		engine, err := NewEngine(EngineConfig{Mode: gin.TestMode, Logger: zap.New(core)})
		require.NoError(t, err)
		engine.GET("/boom", func(c *gin.Context) { panic("boom") })
		engine.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := serve(engine, http.MethodGet, "/ok")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		w = serve(engine, http.MethodGet, "/boom")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotZero(t, logs.FilterMessage("HTTP Request").Len())
	})

	t.Run("rejects invalid trusted proxies", func(t *testing.T) {
		_, err := NewEngine(EngineConfig{Mode: gin.TestMode, TrustedProxies: []string{"not-an-ip"}})
		assert.Error(t, err)
	})
}

func TestModeForEnvironment(t *testing.T) {
	assert.Equal(t, gin.ReleaseMode, ModeForEnvironment("production"))
	assert.Equal(t, gin.TestMode, ModeForEnvironment("test"))
	assert.Equal(t, gin.DebugMode, ModeForEnvironment("development"))
}

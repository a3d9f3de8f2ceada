package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// registerRoutes lets a bare func act as a RouteRegistrar in tests.
type registerRoutes func(rg *gin.RouterGroup)

func (f registerRoutes) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }

func TestNewRouterDefaults(t *testing.T) {
	r := NewRouter(gin.New())

	require.NotNil(t, r)
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)
}

func TestRouterOptions(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"), WithBasePath("/internal"))

	assert.Equal(t, "/internal/v2", r.BasePath())
}

func TestRouterMountsRoutesUnderPrefix(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Register(registerRoutes(func(rg *gin.RouterGroup) {
		rg.GET("/register", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"items": []string{}})
		})
	}))
	r.Register(registerRoutes(func(rg *gin.RouterGroup) {
		rg.POST("/sync/WB_SALES/run", func(c *gin.Context) {
			c.Status(http.StatusAccepted)
		})
	}))
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/register", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync/WB_SALES/run", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	// Unprefixed paths are not mounted.
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/register", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterRegisterBeforeSetupOnly(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Setup()

	// Registering after Setup does not mount anything.
	r.Register(registerRoutes(func(rg *gin.RouterGroup) {
		rg.GET("/late", func(c *gin.Context) { c.Status(http.StatusOK) })
	}))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/late", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterCustomVersionPrefix(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	r.Register(registerRoutes(func(rg *gin.RouterGroup) {
		rg.GET("/sync/runs", func(c *gin.Context) { c.Status(http.StatusOK) })
	}))
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/sync/runs", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sync/runs", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/bingo-game/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(m *AuthMiddleware) *gin.Engine {
	engine := gin.New()
	whoami := func(c *gin.Context) {
		id, _ := GetPlayerID(c)
		role, _ := GetRole(c)
		c.JSON(http.StatusOK, gin.H{"player_id": id, "role": role})
	}
	engine.GET("/me", m.RequireAuth(), whoami)
	engine.GET("/maybe", m.OptionalAuth(), whoami)
	engine.GET("/admin", m.RequireRole(utils.RoleAdmin), whoami)
	return engine
}

func do(engine *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_JWT(t *testing.T) {
	manager := utils.NewJWTManager("secret", "bingo", time.Hour, time.Hour)
	engine := newEngine(NewAuthMiddleware(manager))

	playerToken, err := manager.GenerateAccessToken("alice", utils.RolePlayer)
	require.NoError(t, err)
	adminToken, err := manager.GenerateAccessToken("root", utils.RoleAdmin)
	require.NoError(t, err)
	refreshToken, err := manager.GenerateRefreshToken("alice")
	require.NoError(t, err)

	w := do(engine, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(engine, "/me", map[string]string{"Authorization": "Bearer " + playerToken})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"player_id":"alice"`)

	w = do(engine, "/me?token="+playerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(engine, "/me", map[string]string{"Authorization": "Bearer broken"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 刷新令牌不能访问接口
	w = do(engine, "/me", map[string]string{"Authorization": "Bearer " + refreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(engine, "/admin", map[string]string{"Authorization": "Bearer " + playerToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(engine, "/admin", map[string]string{"X-Access-Token": adminToken})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)

	// 可选认证：没有令牌也放行
	w = do(engine, "/maybe", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"player_id":""`)
}

func TestAuthMiddleware_HeaderIdentity(t *testing.T) {
	engine := newEngine(NewAuthMiddleware(nil))

	w := do(engine, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(engine, "/me", map[string]string{HeaderPlayerID: "bob"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"player_id":"bob"`)
	assert.Contains(t, w.Body.String(), `"role":"player"`)

	w = do(engine, "/admin", map[string]string{HeaderPlayerID: "bob"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(engine, "/admin", map[string]string{HeaderPlayerID: "root", HeaderRole: utils.RoleAdmin})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestMiddleware(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(), Recovery(), CORS("*"))
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	engine.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := do(engine, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(engine, "/ok", map[string]string{HeaderRequestID: "req-1"})
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))

	w = do(engine, "/panic", map[string]string{HeaderRequestID: "req-2"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"request_id":"req-2"`)

	req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

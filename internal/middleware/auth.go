package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/utils"
)

// 上下文键
const (
	ContextPlayerID = "playerID"
	ContextRole     = "role"
	ContextToken    = "token"
)

// 未启用JWT时使用的身份请求头（仅用于开发和测试）
const (
	HeaderPlayerID = "X-Player-ID"
	HeaderRole     = "X-Player-Role"
)

// TokenValidator 令牌校验接口
type TokenValidator interface {
	ValidateToken(token string) (*utils.JWTClaims, error)
}

// AuthMiddleware 认证中间件
// validator 为空时信任身份请求头
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireAuth 需要认证的中间件
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		c.Next()
	}
}

// OptionalAuth 可选认证的中间件（不强制要求登录）
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if playerID, role, token, err := m.identify(c); err == nil && playerID != "" {
			m.setIdentity(c, playerID, role, token)
		}
		c.Next()
	}
}

// RequireRole 需要特定角色的中间件
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		if !HasAnyRole(c, roles...) {
			abort(c, errors.New(errors.ErrPermissionDenied))
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	playerID, role, token, err := m.identify(c)
	if err != nil {
		abort(c, err)
		return false
	}
	if playerID == "" {
		abort(c, errors.New(errors.ErrAuthentication, "缺少认证信息"))
		return false
	}
	m.setIdentity(c, playerID, role, token)
	return true
}

// identify 解析请求中的身份
func (m *AuthMiddleware) identify(c *gin.Context) (playerID, role, token string, err error) {
	if m.validator == nil {
		role = c.GetHeader(HeaderRole)
		if role == "" {
			role = utils.RolePlayer
		}
		return strings.TrimSpace(c.GetHeader(HeaderPlayerID)), role, "", nil
	}

	token = extractToken(c)
	if token == "" {
		return "", "", "", nil
	}
	claims, err := m.validator.ValidateToken(token)
	if err != nil {
		if err == utils.ErrExpiredToken {
			return "", "", "", errors.Wrap(err, errors.ErrTokenExpired)
		}
		return "", "", "", errors.Wrap(err, errors.ErrTokenInvalid)
	}
	if claims.TokenType != utils.TokenTypeAccess {
		return "", "", "", errors.New(errors.ErrTokenInvalid, "需要访问令牌")
	}
	return claims.PlayerID(), claims.Role, token, nil
}

func (m *AuthMiddleware) setIdentity(c *gin.Context, playerID, role, token string) {
	c.Set(ContextPlayerID, playerID)
	c.Set(ContextRole, role)
	if token != "" {
		c.Set(ContextToken, token)
	}
}

func abort(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrAuthentication)
	}
	status := appErr.HTTPStatus()
	if status < http.StatusBadRequest {
		status = http.StatusUnauthorized
	}
	c.AbortWithStatusJSON(status, errors.NewErrorResponse(appErr, c.GetHeader(HeaderRequestID)))
}

// extractToken 从请求中提取令牌
func extractToken(c *gin.Context) string {
	// 1. Authorization: Bearer <token>
	if bearer := c.GetHeader("Authorization"); bearer != "" {
		parts := strings.SplitN(bearer, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// 2. X-Access-Token
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 3. Query参数，浏览器建立WebSocket时无法设置请求头
	return c.Query("token")
}

// GetPlayerID 从上下文获取玩家ID
func GetPlayerID(c *gin.Context) (string, bool) {
	if v, exists := c.Get(ContextPlayerID); exists {
		if id, ok := v.(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// GetRole 从上下文获取角色
func GetRole(c *gin.Context) (string, bool) {
	if v, exists := c.Get(ContextRole); exists {
		if r, ok := v.(string); ok {
			return r, true
		}
	}
	return "", false
}

// HasAnyRole 检查是否有任一角色
func HasAnyRole(c *gin.Context, roles ...string) bool {
	if userRole, exists := GetRole(c); exists {
		for _, role := range roles {
			if userRole == role {
				return true
			}
		}
	}
	return false
}

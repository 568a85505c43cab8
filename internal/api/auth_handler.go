package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/middleware"
	"github.com/wfunc/bingo-game/internal/utils"
)

// AuthHandler 令牌处理器，令牌由外部账号系统签发，这里只负责刷新
type AuthHandler struct {
	jwt *utils.JWTManager
}

// NewAuthHandler 创建令牌处理器
func NewAuthHandler(jwt *utils.JWTManager) *AuthHandler {
	return &AuthHandler{jwt: jwt}
}

// RefreshTokenRequest 刷新令牌请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse 令牌响应
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// RefreshToken 刷新访问令牌
// @Summary 刷新访问令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "刷新令牌"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	access, err := h.jwt.RefreshAccessToken(req.RefreshToken, utils.RolePlayer)
	if err != nil {
		code := errors.ErrTokenInvalid
		if err == utils.ErrExpiredToken {
			code = errors.ErrTokenExpired
		}
		fail(c, errors.Wrap(err, code))
		return
	}

	ok(c, TokenResponse{
		AccessToken: access,
		ExpiresIn:   int64(h.jwt.GetTokenExpiry(utils.TokenTypeAccess).Seconds()),
		TokenType:   "Bearer",
	})
}

// 请求和响应结构体

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// fail 按错误分类输出响应
func fail(c *gin.Context, err error) {
	appErr := errors.Wrap(err, errors.ErrUnknown)
	c.AbortWithStatusJSON(appErr.HTTPStatus(),
		errors.NewErrorResponse(appErr, c.GetHeader(middleware.HeaderRequestID)))
}

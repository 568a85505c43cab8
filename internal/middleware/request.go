package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/logger"
)

// HeaderRequestID 请求ID请求头
const HeaderRequestID = "X-Request-ID"

// RequestID 为每个请求分配ID，已有则沿用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(HeaderRequestID, id)
		}
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger 访问日志
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}

// Recovery 捕获panic并返回统一错误响应
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.LogPanic(r, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					errors.NewErrorResponse(errors.New(errors.ErrUnknown), c.GetHeader(HeaderRequestID)))
			}
		}()
		c.Next()
	}
}

// CORS 跨域设置，origin 为空时不处理
func CORS(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin == "" {
			c.Next()
			return
		}
		h := c.Writer.Header()
		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Access-Token, X-Player-ID, X-Request-ID")
		if origin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

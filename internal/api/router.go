package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/bingo-game/internal/config"
	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/game"
	"github.com/wfunc/bingo-game/internal/middleware"
	"github.com/wfunc/bingo-game/internal/utils"
	ws "github.com/wfunc/bingo-game/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterConfig 路由依赖
type RouterConfig struct {
	DB              *gorm.DB // 可为空，健康检查跳过数据库
	Sessions        *game.SessionManager
	Hub             *ws.Hub
	JWT             *utils.JWTManager // 为空时使用身份请求头
	WebSocket       config.WebSocketConfig
	DefaultInterval time.Duration
	CORSOrigin      string
	Logger          *zap.Logger
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	sessions       *game.SessionManager
	hub            *ws.Hub
	bingoHandler   *BingoHandler
	authHandler    *AuthHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	wsPath         string
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(cfg RouterConfig) *Router {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.CORS(cfg.CORSOrigin))

	var validator middleware.TokenValidator
	if cfg.JWT != nil {
		validator = cfg.JWT
	}

	wsPath := cfg.WebSocket.Path
	if wsPath == "" {
		wsPath = "/ws/bingo"
	}

	r := &Router{
		engine:         engine,
		db:             cfg.DB,
		sessions:       cfg.Sessions,
		hub:            cfg.Hub,
		bingoHandler:   NewBingoHandler(cfg.Sessions, cfg.DefaultInterval, log.Named("bingo")),
		authMiddleware: middleware.NewAuthMiddleware(validator),
		wsPath:         wsPath,
		log:            log,
	}
	if cfg.JWT != nil {
		r.authHandler = NewAuthHandler(cfg.JWT)
	}
	if cfg.Hub != nil {
		r.wsHandler = NewWebSocketHandler(cfg.Hub, cfg.WebSocket, log.Named("websocket"))
	}

	r.setupRoutes()
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	{
		if r.authHandler != nil {
			v1.POST("/auth/refresh", r.authHandler.RefreshToken)
		}

		// 玩家路由
		player := v1.Group("/bingo")
		player.Use(r.authMiddleware.RequireAuth())
		{
			player.GET("/history", r.bingoHandler.History)
			player.GET("/sessions/:id", r.bingoHandler.PlayerView)
			player.POST("/sessions/:id/join", r.bingoHandler.Join)
			player.POST("/sessions/:id/card", r.bingoHandler.SelectCard)
			player.POST("/sessions/:id/word", r.bingoHandler.SubmitWord)
			player.POST("/sessions/:id/mark", r.bingoHandler.MarkNumber)
		}

		// 管理员路由
		admin := v1.Group("/admin/bingo")
		admin.Use(r.authMiddleware.RequireRole(utils.RoleAdmin))
		{
			admin.POST("/sessions", r.bingoHandler.CreateSession)
			admin.GET("/sessions", r.bingoHandler.ListSessions)
			admin.GET("/sessions/:id", r.bingoHandler.GetSession)
			admin.POST("/sessions/:id/prepare", r.bingoHandler.Prepare)
			admin.POST("/sessions/:id/start", r.bingoHandler.Start)
			admin.POST("/sessions/:id/call", r.bingoHandler.CallNext)
			admin.POST("/sessions/:id/pause", r.bingoHandler.Pause)
			admin.POST("/sessions/:id/resume", r.bingoHandler.Resume)
			admin.POST("/sessions/:id/stop", r.bingoHandler.Stop)
		}
	}

	// WebSocket路由
	if r.wsHandler != nil {
		r.engine.GET(r.wsPath, r.authMiddleware.OptionalAuth(), r.wsHandler.Connect)
	}

	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		fail(c, errors.New(errors.ErrNotFound, "接口不存在"))
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	if r.db != nil {
		sqlDB, err := r.db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "数据库连接失败",
			})
			return
		}
	}

	body := gin.H{
		"status":   "healthy",
		"sessions": r.sessions.GetActiveSessions(),
	}
	if r.hub != nil {
		body["connections"] = r.hub.GetOnlineCount()
	}
	c.JSON(http.StatusOK, body)
}

// Handler 返回HTTP处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

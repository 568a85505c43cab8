package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/bingo-game/internal/api"
	"github.com/wfunc/bingo-game/internal/config"
	"github.com/wfunc/bingo-game/internal/database"
	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/game"
	"github.com/wfunc/bingo-game/internal/logger"
	"github.com/wfunc/bingo-game/internal/utils"
	ws "github.com/wfunc/bingo-game/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	sessions   *game.SessionManager
	hub        *ws.Hub
	httpServer *http.Server

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	server := NewServer(cfg)
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动宾果游戏服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode))

	if err := s.initDatabase(); err != nil {
		return err
	}
	if err := s.initGame(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化游戏失败")
	}
	s.startHTTPServer()

	// 监听配置变化，目前只热更新日志级别
	config.Watch(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Log.Level)
		s.logger.Info("配置已更新", zap.String("log_level", newCfg.Log.Level))
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", s.cfg.Server.Addr()),
		zap.String("websocket", s.cfg.WebSocket.Path))
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}
	return nil
}

// initGame 创建Hub与会话管理器，并恢复未结束的会话
func (s *Server) initGame() error {
	bingoCfg := s.cfg.Game.Bingo

	s.hub = ws.NewHub(api.HubConfig(s.cfg.WebSocket), logger.GetModuleLogger("websocket"))
	s.sessions = game.NewSessionManager(&game.SessionConfig{
		Store:              game.NewDatabaseStore(database.GetDB()),
		Notifier:           s.hub,
		Logger:             logger.GetModuleLogger("game"),
		CardPoolSize:       bingoCfg.CardPoolSize,
		CompletedRetention: bingoCfg.CompletedRetention,
		HistoryRetention:   bingoCfg.HistoryRetention,
	})
	s.hub.SetMessageHandler(ws.NewBingoMessageHandler(s.sessions, logger.GetModuleLogger("websocket")))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run()
	}()

	if bingoCfg.RecoverOnStart {
		n, err := s.sessions.Recover(s.ctx)
		if err != nil {
			return err
		}
		s.logger.Info("恢复未结束会话", zap.Int("count", n))
	}
	if bingoCfg.CleanupInterval > 0 {
		s.sessions.StartCleanupTask(s.ctx, bingoCfg.CleanupInterval)
	}
	return nil
}

// startHTTPServer 启动HTTP服务
func (s *Server) startHTTPServer() {
	if s.cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var jwt *utils.JWTManager
	if s.cfg.Security.JWT.Enabled {
		jwtCfg := s.cfg.Security.JWT
		jwt = utils.NewJWTManager(jwtCfg.Secret, jwtCfg.Issuer,
			time.Duration(jwtCfg.ExpireHours)*time.Hour,
			time.Duration(jwtCfg.RefreshHours)*time.Hour)
	} else {
		s.logger.Warn("JWT未启用，玩家身份取自 X-Player-ID 请求头")
	}

	router := api.NewRouter(api.RouterConfig{
		DB:              database.GetDB(),
		Sessions:        s.sessions,
		Hub:             s.hub,
		JWT:             jwt,
		WebSocket:       s.cfg.WebSocket,
		DefaultInterval: s.cfg.Game.Bingo.DefaultInterval,
		CORSOrigin:      s.cfg.Server.CORSOrigin,
		Logger:          logger.GetModuleLogger("api"),
	})

	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.cancel()
		}
	}()
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.ctx.Done():
		s.logger.Warn("服务异常，准备退出")
	}
}

// Shutdown 优雅关闭：先停止接收请求，再停止定时器和推送，最后关闭数据库
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务关闭失败", zap.Error(err))
		}
	}

	s.sessions.Shutdown()
	s.hub.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	logger.Cleanup()
	return nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("宾果游戏服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

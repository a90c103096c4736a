package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/interfaces/http/handlers"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config HTTP服务器配置
type Config struct {
	Host           string
	Port           int
	Mode           string // local, production
	MaxUploadBytes int64  // 请求体上限 (16 MiB 上游默认)
	ChatPagePath   string // 聊天页面文件
}

// NewServer 创建HTTP服务器
func NewServer(cfg Config, messageHandler *handlers.MessageHandler, presenceHandler *handlers.PresenceHandler, logger *zap.Logger) *Server {
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))
	router.Use(corsMiddleware())
	if cfg.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadBytes
		router.Use(bodyLimit(cfg.MaxUploadBytes))
	}

	setupRoutes(router, cfg, messageHandler, presenceHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return &Server{
		server: server,
		logger: logger,
	}
}

// Start 启动服务器
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop 停止服务器
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// setupRoutes 设置路由
func setupRoutes(router *gin.Engine, cfg Config, messageHandler *handlers.MessageHandler, presenceHandler *handlers.PresenceHandler) {
	// 聊天页面 (由 Telegram web-app 按钮带 tg_user_id 打开)
	router.GET("/", func(c *gin.Context) {
		c.File(cfg.ChatPagePath)
	})

	// 健康检查
	router.GET("/health", messageHandler.Health)

	api := router.Group("/api")
	{
		// 轮询与消息
		api.GET("/messages", messageHandler.ListMessages)
		api.POST("/send", messageHandler.SendMessage)
		api.POST("/send_file", messageHandler.SendFile)
		api.POST("/delete_message", messageHandler.DeleteMessage)
		api.GET("/files/:name", messageHandler.GetFile)

		// 在线状态心跳
		api.POST("/chat_stats", presenceHandler.ChatStats)
		api.POST("/update_activity", presenceHandler.UpdateActivity)
		api.POST("/set_offline", presenceHandler.SetOffline)
	}
}

// ginLogger Gin日志中间件
func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// corsMiddleware 放开跨域 (上游 Flask-CORS 行为)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// bodyLimit 请求体大小上限; 超限的上传在进入处理器前被拒绝
func bodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

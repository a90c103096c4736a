package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chatbridge/chatbridge/internal/domain/repository"
	"github.com/chatbridge/chatbridge/internal/domain/service"
	"github.com/chatbridge/chatbridge/internal/infrastructure/config"
	"github.com/chatbridge/chatbridge/internal/infrastructure/persistence"
	"github.com/chatbridge/chatbridge/internal/infrastructure/storage"
	httpServer "github.com/chatbridge/chatbridge/internal/interfaces/http"
	"github.com/chatbridge/chatbridge/internal/interfaces/http/handlers"
	"github.com/chatbridge/chatbridge/internal/interfaces/telegram"
)

// App 应用程序
type App struct {
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	// 仓储与领域服务
	messageRepo repository.MessageRepository
	tracker     *service.PresenceTracker

	// 基础设施
	attachments *storage.Store

	// 接口层
	httpServer      *httpServer.Server
	telegramAdapter *telegram.Adapter
}

// NewApp 组装应用
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		config: cfg,
		logger: logger,
	}

	if err := app.initRepositories(); err != nil {
		return nil, err
	}
	if err := app.initInfrastructure(); err != nil {
		return nil, err
	}
	if err := app.initInterfaces(); err != nil {
		return nil, err
	}

	return app, nil
}

// initRepositories 初始化存储层
func (app *App) initRepositories() error {
	if app.config.Database.Type == "memory" {
		// 无持久化, 仅用于本地试跑
		app.messageRepo = persistence.NewMemoryMessageRepository()
		app.logger.Warn("Using in-memory message store, messages are lost on restart")
		return nil
	}

	db, err := persistence.NewDBConnection(&app.config.Database)
	if err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}

	app.db = db
	app.messageRepo = persistence.NewGormMessageRepository(db)

	app.logger.Info("Database initialized",
		zap.String("type", app.config.Database.Type),
	)
	return nil
}

// initInfrastructure 初始化在线跟踪与附件存储
func (app *App) initInfrastructure() error {
	app.tracker = service.NewPresenceTracker(app.config.Presence.OnlineWindow)

	store, err := storage.NewStore(app.config.Upload.Dir, app.config.Upload.AllowedExtensions, app.logger)
	if err != nil {
		return fmt.Errorf("failed to init attachment store: %w", err)
	}
	app.attachments = store

	return nil
}

// initInterfaces 初始化 HTTP 服务器与 Telegram 机器人
func (app *App) initInterfaces() error {
	messageHandler := handlers.NewMessageHandler(app.messageRepo, app.attachments, app.config.Server.PageLimit, app.logger)
	presenceHandler := handlers.NewPresenceHandler(app.tracker, app.logger)

	app.httpServer = httpServer.NewServer(httpServer.Config{
		Host:           app.config.Server.Host,
		Port:           app.config.Server.Port,
		Mode:           app.config.Server.Mode,
		MaxUploadBytes: app.config.Upload.MaxBytes,
		ChatPagePath:   app.config.Server.ChatPage,
	}, messageHandler, presenceHandler, app.logger)

	// 没有 token 时仅提供 HTTP API (页面仍可直接打开)
	if app.config.Telegram.BotToken == "" {
		app.logger.Warn("No Telegram bot token configured, bot launcher disabled")
		return nil
	}

	adapter, err := telegram.NewAdapter(&telegram.Config{
		BotToken:  app.config.Telegram.BotToken,
		WebAppURL: app.config.Telegram.WebAppURL,
		Debug:     app.config.Telegram.Debug,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to init telegram adapter: %w", err)
	}
	app.telegramAdapter = adapter

	return nil
}

// Start 启动所有接口
func (app *App) Start(ctx context.Context) error {
	if err := app.httpServer.Start(ctx); err != nil {
		return err
	}
	if app.telegramAdapter != nil {
		if err := app.telegramAdapter.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop 优雅停机
func (app *App) Stop(ctx context.Context) error {
	if app.telegramAdapter != nil {
		app.telegramAdapter.Stop()
	}
	return app.httpServer.Stop(ctx)
}

// ApplyConfig 应用热更新的配置 (目前只有在线窗口是运行时可调的)
func (app *App) ApplyConfig(cfg *config.Config) {
	if cfg.Presence.OnlineWindow != app.config.Presence.OnlineWindow {
		app.tracker.SetWindow(cfg.Presence.OnlineWindow)
		app.logger.Info("Presence window updated",
			zap.Duration("window", cfg.Presence.OnlineWindow),
		)
	}
	app.config.Presence = cfg.Presence
}

// Logger 返回应用日志器
func (app *App) Logger() *zap.Logger {
	return app.logger
}

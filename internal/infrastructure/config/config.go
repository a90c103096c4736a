package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Presence PresenceConfig `mapstructure:"presence"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Mode      string `mapstructure:"mode"`       // local, production
	PageLimit int    `mapstructure:"page_limit"` // 0 = unbounded message pages
	ChatPage  string `mapstructure:"chat_page"`  // 聊天页面文件路径
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// UploadConfig 附件上传配置
type UploadConfig struct {
	Dir               string   `mapstructure:"dir"`
	MaxBytes          int64    `mapstructure:"max_bytes"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// PresenceConfig 在线状态配置
//
// OnlineWindow reproduces the upstream 1-second expiry. That window is almost
// certainly an authoring defect in the original system (it forces sub-second
// heartbeats), so it is configurable and hot-reloadable rather than hard-coded.
type PresenceConfig struct {
	OnlineWindow time.Duration `mapstructure:"online_window"`
}

// TelegramConfig Telegram 配置
type TelegramConfig struct {
	BotToken  string `mapstructure:"bot_token"`
	WebAppURL string `mapstructure:"webapp_url"` // 聊天页面的公网地址
	Debug     bool   `mapstructure:"debug"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 加载配置
//
// 优先级 (低 → 高): 默认值 → ./config/config.yaml 或 ./config.yaml → 环境变量
// (CHATBRIDGE_ 前缀, 如 CHATBRIDGE_TELEGRAM_BOT_TOKEN)
func Load() (*Config, *viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("CHATBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, v, nil
}

// Watch re-reads the config file on change and hands the fresh Config to
// onChange. No-op when no config file was found at load time.
func Watch(v *viper.Viper, logger *zap.Logger, onChange func(*Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			logger.Warn("Ignoring config change, unmarshal failed",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}
		logger.Info("Config reloaded", zap.String("file", e.Name))
		onChange(&cfg)
	})
	v.WatchConfig()
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	// Server 默认值
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "local")
	v.SetDefault("server.page_limit", 0)
	v.SetDefault("server.chat_page", "web/chat.html")

	// Database 默认值
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "chat.db")

	// Upload 默认值
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_bytes", 16*1024*1024)
	v.SetDefault("upload.allowed_extensions", []string{"png", "jpg", "jpeg", "gif"})

	// Presence 默认值 (上游行为: 1 秒过期窗口)
	v.SetDefault("presence.online_window", "1s")

	// Log 默认值
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

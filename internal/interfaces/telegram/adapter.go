package telegram

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/pkg/safego"
)

// Config Telegram 适配器配置
type Config struct {
	BotToken  string
	WebAppURL string // 聊天页面的公网地址, /start 的深链接指向这里
	Debug     bool
}

// Adapter Telegram 适配器
//
// 机器人只做一件事: 把用户引到聊天页面。/start 回复一个 web-app 按钮,
// 深链接带上 tg_user_id 与 first_name, 页面用它们标识发送者。
type Adapter struct {
	bot    *tgbotapi.BotAPI
	config *Config
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewAdapter 创建 Telegram 适配器
func NewAdapter(config *Config, logger *zap.Logger) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot.Debug = config.Debug

	logger.Info("Telegram bot authorized",
		zap.String("username", bot.Self.UserName),
	)

	return &Adapter{
		bot:    bot,
		config: config,
		logger: logger,
	}, nil
}

// Start 启动更新轮询
func (a *Adapter) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := a.bot.GetUpdatesChan(u)

	safego.Go(a.logger, "telegram-updates", func() {
		a.run(ctx, updates)
	})

	a.logger.Info("Telegram adapter started")
	return nil
}

// Stop 停止更新轮询
func (a *Adapter) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.bot.StopReceivingUpdates()
	a.logger.Info("Telegram adapter stopped")
}

// run 消费更新直到 ctx 取消
func (a *Adapter) run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.Command() == "start" {
				a.handleStart(update.Message)
			}
		}
	}
}

// handleStart 回复打开聊天的 web-app 按钮
func (a *Adapter) handleStart(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	link, err := a.chatLink(msg.From.ID, msg.From.FirstName)
	if err != nil {
		a.logger.Error("Failed to build chat link", zap.Error(err))
		return
	}

	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonWebApp("Open chat", tgbotapi.WebAppInfo{URL: link}),
		),
	)

	reply := tgbotapi.NewMessage(msg.Chat.ID,
		fmt.Sprintf("Hi, %s!\nTap the button below to open the chat:", msg.From.FirstName))
	reply.ReplyMarkup = keyboard

	if _, err := a.bot.Send(reply); err != nil {
		a.logger.Error("Failed to send /start reply",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err),
		)
	}
}

// chatLink 构造带用户身份的深链接
func (a *Adapter) chatLink(userID int64, firstName string) (string, error) {
	u, err := url.Parse(a.config.WebAppURL)
	if err != nil {
		return "", fmt.Errorf("invalid webapp_url: %w", err)
	}

	q := u.Query()
	q.Set("tg_user_id", strconv.FormatInt(userID, 10))
	q.Set("first_name", firstName)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

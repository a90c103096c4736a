package handlers

import (
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/domain/entity"
	"github.com/chatbridge/chatbridge/internal/domain/repository"
	"github.com/chatbridge/chatbridge/internal/domain/valueobject"
	"github.com/chatbridge/chatbridge/internal/infrastructure/storage"
	"github.com/chatbridge/chatbridge/pkg/errors"
)

// MessageHandler 消息 API 处理器: 轮询、发送、删除、附件
type MessageHandler struct {
	messages  repository.MessageRepository
	store     *storage.Store
	logger    *zap.Logger
	pageLimit int // 0 = 不分页 (上游契约)
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(messages repository.MessageRepository, store *storage.Store, pageLimit int, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messages:  messages,
		store:     store,
		logger:    logger,
		pageLimit: pageLimit,
	}
}

// MessageItem 轮询响应中的一行
type MessageItem struct {
	ID         int64   `json:"id"`
	Sender     string  `json:"sender"`
	Content    string  `json:"content"`
	Time       string  `json:"time"`
	IsMe       bool    `json:"is_me"`
	Attachment *string `json:"attachment"`
}

// ListMessages 按水位线增量拉取消息
// GET /api/messages?last_id=N&tg_user_id=M
func (h *MessageHandler) ListMessages(c *gin.Context) {
	// 与上游一致: 解析失败静默退回默认值 0
	lastID := queryInt64(c, "last_id")
	viewerID := queryInt64(c, "tg_user_id")

	msgs, err := h.messages.ListAfter(c.Request.Context(), lastID, h.pageLimit)
	if err != nil {
		h.logger.Error("Failed to list messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	items := make([]MessageItem, 0, len(msgs))
	for _, msg := range msgs {
		item := MessageItem{
			ID:      msg.ID(),
			Sender:  msg.SenderName(),
			Content: msg.Content(),
			Time:    msg.DisplayTime(),
			IsMe:    msg.IsFrom(viewerID),
		}
		if att := msg.Attachment(); !att.IsZero() {
			name := att.Name()
			item.Attachment = &name
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, items)
}

// SendMessageRequest 发送文本消息请求
type SendMessageRequest struct {
	TgUserID   int64  `json:"tg_user_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

// SendMessage 追加一条文本消息
// POST /api/send
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	message, err := entity.NewMessage(req.TgUserID, req.SenderName, req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := h.messages.Save(c.Request.Context(), message); err != nil {
		h.logger.Error("Failed to save message", zap.Error(err))
		// 上游对发送路径的任何失败都回 400
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"time":   message.DisplayTime(),
	})
}

// DeleteMessageRequest 删除消息请求
type DeleteMessageRequest struct {
	ID int64 `json:"id" binding:"required"`
}

// DeleteMessage 按 id 无条件删除
//
// 没有属主校验 — 这是上游的信任边界缺口, 按契约保留;
// 调用方提交的 id 记入日志以便追溯。
// POST /api/delete_message
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	var req DeleteMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	h.logger.Warn("Unauthenticated message deletion",
		zap.Int64("message_id", req.ID),
		zap.String("ip", c.ClientIP()),
	)

	if err := h.messages.Delete(c.Request.Context(), req.ID); err != nil {
		if errors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Message not found"})
			return
		}
		h.logger.Error("Failed to delete message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendFile 保存上传的图片并追加一条附件消息
// POST /api/send_file (multipart: file, tg_user_id, sender_name, content?)
func (h *MessageHandler) SendFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	storedName, err := h.store.Save(fileHeader.Filename, f)
	if err != nil {
		if errors.IsInvalidInput(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
			return
		}
		h.logger.Error("Failed to store attachment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(storedName))
	}

	senderID, _ := strconv.ParseInt(c.PostForm("tg_user_id"), 10, 64)
	attachment := valueobject.NewAttachment(storedName, mimeType)

	message, err := entity.NewAttachmentMessage(senderID, c.PostForm("sender_name"), c.PostForm("content"), attachment)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.messages.Save(c.Request.Context(), message); err != nil {
		h.logger.Error("Failed to save attachment message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"time":       message.DisplayTime(),
		"message_id": message.ID(),
		"attachment": storedName,
	})
}

// GetFile 按保存名回传附件字节
// GET /api/files/:name
func (h *MessageHandler) GetFile(c *gin.Context) {
	path, err := h.store.Path(c.Param("name"))
	if err != nil {
		if errors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}

	c.File(path)
}

// Health 健康检查
// GET /health
func (h *MessageHandler) Health(c *gin.Context) {
	count, err := h.messages.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"time":     time.Now().Unix(),
		"messages": count,
	})
}

// queryInt64 解析整数查询参数; 缺失或非法时退回 0
func queryInt64(c *gin.Context, key string) int64 {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/domain/service"
)

// PresenceHandler 在线状态 API 处理器
type PresenceHandler struct {
	tracker *service.PresenceTracker
	logger  *zap.Logger
}

// NewPresenceHandler 创建在线状态处理器
func NewPresenceHandler(tracker *service.PresenceTracker, logger *zap.Logger) *PresenceHandler {
	return &PresenceHandler{
		tracker: tracker,
		logger:  logger,
	}
}

// heartbeatRequest 心跳请求
//
// user_id 允许是 JSON 字符串或数字 (上游把两者都归一成字符串);
// is_online 缺省为 true。
type heartbeatRequest struct {
	UserID   any   `json:"user_id" binding:"required"`
	IsOnline *bool `json:"is_online"`
}

// ChatStats 处理心跳并返回聚合计数
// POST /api/chat_stats
func (h *PresenceHandler) ChatStats(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	userID, ok := canonicalUserID(req.UserID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid user_id"})
		return
	}

	online := true
	if req.IsOnline != nil {
		online = *req.IsOnline
	}

	stats := h.tracker.Heartbeat(userID, online)

	c.JSON(http.StatusOK, gin.H{
		"online": stats.Online,
		"total":  stats.Total,
		"new":    stats.NewUser,
	})
}

// UpdateActivity 报告当前计数, 仅对仍被跟踪为在线的用户
// POST /api/update_activity
func (h *PresenceHandler) UpdateActivity(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error"})
		return
	}

	userID, ok := canonicalUserID(req.UserID)
	if !ok || !h.tracker.IsOnline(userID) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error"})
		return
	}

	online, total := h.tracker.Counts()
	c.JSON(http.StatusOK, gin.H{
		"online": online,
		"total":  total,
	})
}

// SetOffline 显式下线; 幂等, 对未知用户同样回成功
// POST /api/set_offline
func (h *PresenceHandler) SetOffline(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		if userID, ok := canonicalUserID(req.UserID); ok {
			h.tracker.SetOffline(userID)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// canonicalUserID 将 JSON 字符串/数字形式的 user_id 归一成字符串
func canonicalUserID(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

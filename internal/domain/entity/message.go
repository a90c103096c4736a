package entity

import (
	"time"

	"github.com/chatbridge/chatbridge/internal/domain/valueobject"
)

const (
	// MaxSenderNameLen 发送者显示名称上限
	MaxSenderNameLen = 50
	// MaxContentLen 消息正文上限
	MaxContentLen = 500
)

// Message 消息实体
//
// id 与 timestamp 由消息存储在插入时分配 (见 MarkPersisted)；
// 此后消息只读，唯一的生命周期终点是按 id 硬删除。
type Message struct {
	id         int64
	senderID   int64
	senderName string
	content    string
	timestamp  time.Time
	attachment valueobject.Attachment
}

// NewMessage 创建纯文本消息（工厂方法）
func NewMessage(senderID int64, senderName, content string) (*Message, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	return newMessage(senderID, senderName, content, valueobject.Attachment{})
}

// NewAttachmentMessage 创建带附件的消息; 正文可以为空
func NewAttachmentMessage(senderID int64, senderName, content string, attachment valueobject.Attachment) (*Message, error) {
	if attachment.IsZero() {
		return nil, ErrEmptyAttachment
	}
	return newMessage(senderID, senderName, content, attachment)
}

func newMessage(senderID int64, senderName, content string, attachment valueobject.Attachment) (*Message, error) {
	if len([]rune(content)) > MaxContentLen {
		return nil, ErrContentTooLong
	}
	if len([]rune(senderName)) > MaxSenderNameLen {
		return nil, ErrSenderNameTooLong
	}

	return &Message{
		senderID:   senderID,
		senderName: senderName,
		content:    content,
		attachment: attachment,
	}, nil
}

// ReconstructMessage 重建消息（用于从持久化层恢复）
func ReconstructMessage(id, senderID int64, senderName, content string, timestamp time.Time, attachment valueobject.Attachment) *Message {
	return &Message{
		id:         id,
		senderID:   senderID,
		senderName: senderName,
		content:    content,
		timestamp:  timestamp,
		attachment: attachment,
	}
}

// MarkPersisted 记录存储分配的 id 与创建时间; 由仓储在插入后调用
func (m *Message) MarkPersisted(id int64, timestamp time.Time) {
	m.id = id
	m.timestamp = timestamp
}

// ID 返回消息ID (0 表示尚未持久化)
func (m *Message) ID() int64 {
	return m.id
}

// SenderID 返回发送者ID
func (m *Message) SenderID() int64 {
	return m.senderID
}

// SenderName 返回发送者显示名称
func (m *Message) SenderName() string {
	return m.senderName
}

// Content 返回消息正文
func (m *Message) Content() string {
	return m.content
}

// Timestamp 返回创建时间
func (m *Message) Timestamp() time.Time {
	return m.timestamp
}

// Attachment 返回附件引用 (可能为零值)
func (m *Message) Attachment() valueobject.Attachment {
	return m.attachment
}

// IsFrom reports whether the message was authored by viewerID. Computed per
// request, never stored.
func (m *Message) IsFrom(viewerID int64) bool {
	return m.senderID == viewerID
}

// DisplayTime renders the creation time the way the polling API exposes it:
// hour and minute only, full precision stays server-side.
func (m *Message) DisplayTime() string {
	return m.timestamp.Format("15:04")
}

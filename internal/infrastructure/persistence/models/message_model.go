package models

import (
	"time"
)

// MessageModel 数据库消息模型
//
// 删除是按 id 的硬删除, 因此没有软删除列。Attachment 为空字符串表示无附件。
type MessageModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	SenderID       int64     `gorm:"not null"`
	SenderName     string    `gorm:"size:50;not null"`
	Content        string    `gorm:"size:500;not null"`
	CreatedAt      time.Time `gorm:"index"`
	Attachment     string    `gorm:"size:100"`
	AttachmentType string    `gorm:"size:20"`
}

// TableName 指定表名
func (MessageModel) TableName() string {
	return "messages"
}

package repository

import (
	"context"

	"github.com/chatbridge/chatbridge/internal/domain/entity"
)

// MessageRepository 消息仓储接口
type MessageRepository interface {
	// Save 插入一条新消息; 存储分配 id 与创建时间并回写到实体
	Save(ctx context.Context, message *entity.Message) error

	// ListAfter 返回 id > lastID 的全部消息, 按创建时间升序。
	// limit 为 0 时不设上限 (与上游轮询契约一致)。
	ListAfter(ctx context.Context, lastID int64, limit int) ([]*entity.Message, error)

	// Delete 按 id 硬删除; 目标不存在时返回 NOT_FOUND
	Delete(ctx context.Context, id int64) error

	// Count 返回消息总数
	Count(ctx context.Context) (int64, error)
}

package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/chatbridge/chatbridge/internal/domain/entity"
	"github.com/chatbridge/chatbridge/internal/domain/repository"
	"github.com/chatbridge/chatbridge/pkg/errors"
)

// MemoryMessageRepository 内存实现的消息仓储（用于开发/测试）
//
// 与数据库实现保持同样的契约: 单调递增且不复用的 id, 插入时分配创建时间。
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages []*entity.Message // 插入顺序即创建时间升序
	nextID   int64
	now      func() time.Time
}

// NewMemoryMessageRepository 创建内存消息仓储
func NewMemoryMessageRepository() repository.MessageRepository {
	return &MemoryMessageRepository{
		nextID: 1,
		now:    time.Now,
	}
}

// Save 保存消息并分配 id / 创建时间
func (r *MemoryMessageRepository) Save(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.MarkPersisted(r.nextID, r.now())
	r.nextID++
	r.messages = append(r.messages, message)

	return nil
}

// ListAfter 返回 id > lastID 的消息
func (r *MemoryMessageRepository) ListAfter(ctx context.Context, lastID int64, limit int) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.Message, 0)
	for _, msg := range r.messages {
		if msg.ID() > lastID {
			result = append(result, msg)
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// Delete 按 id 删除
func (r *MemoryMessageRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, msg := range r.messages {
		if msg.ID() == id {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("message not found")
}

// Count 统计消息总数
func (r *MemoryMessageRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.messages)), nil
}

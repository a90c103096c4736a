package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/chatbridge/chatbridge/internal/domain/entity"
	"github.com/chatbridge/chatbridge/internal/domain/repository"
	"github.com/chatbridge/chatbridge/internal/domain/valueobject"
	"github.com/chatbridge/chatbridge/internal/infrastructure/persistence/models"
	domainErrors "github.com/chatbridge/chatbridge/pkg/errors"
)

// GormMessageRepository GORM 实现的消息仓储
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建 GORM 消息仓储
func NewGormMessageRepository(db *gorm.DB) repository.MessageRepository {
	return &GormMessageRepository{
		db: db,
	}
}

// Save 插入新消息; id 与创建时间由数据库分配后回写到实体
func (r *GormMessageRepository) Save(ctx context.Context, message *entity.Message) error {
	model := r.toModel(message)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save message: " + err.Error())
	}

	message.MarkPersisted(model.ID, model.CreatedAt)
	return nil
}

// ListAfter 返回 id > lastID 的消息, 按创建时间升序
func (r *GormMessageRepository) ListAfter(ctx context.Context, lastID int64, limit int) ([]*entity.Message, error) {
	query := r.db.WithContext(ctx).
		Where("id > ?", lastID).
		Order("created_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.MessageModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to list messages: " + err.Error())
	}

	messages := make([]*entity.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, r.toEntity(&row))
	}

	return messages, nil
}

// Delete 按 id 硬删除
func (r *GormMessageRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.MessageModel{}, "id = ?", id)
	if result.Error != nil {
		return domainErrors.NewInternalError("failed to delete message: " + result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return domainErrors.NewNotFoundError("message not found")
	}
	return nil
}

// Count 统计消息总数
func (r *GormMessageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Count(&count).Error

	if err != nil {
		return 0, domainErrors.NewInternalError("failed to count messages: " + err.Error())
	}
	return count, nil
}

// 转换方法

func (r *GormMessageRepository) toModel(message *entity.Message) *models.MessageModel {
	// CreatedAt 留零值, 由 GORM 在插入时填充
	return &models.MessageModel{
		SenderID:       message.SenderID(),
		SenderName:     message.SenderName(),
		Content:        message.Content(),
		Attachment:     message.Attachment().Name(),
		AttachmentType: message.Attachment().MIMEType(),
	}
}

func (r *GormMessageRepository) toEntity(model *models.MessageModel) *entity.Message {
	var attachment valueobject.Attachment
	if model.Attachment != "" {
		attachment = valueobject.NewAttachment(model.Attachment, model.AttachmentType)
	}

	return entity.ReconstructMessage(
		model.ID,
		model.SenderID,
		model.SenderName,
		model.Content,
		model.CreatedAt,
		attachment,
	)
}

package repository

import (
	"KoraChat/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *model.Message) error
	GetMessage(ctx context.Context, msgID uint64) (*model.Message, error)
	GetHistory(ctx context.Context, convID uint64, beforeID uint64, limit int) ([]*model.Message, error)
	GetLastMessage(ctx context.Context, convID uint64) (*model.Message, error)
	CountUnread(ctx context.Context, convID, readerID uint64, since *time.Time) (int64, error)
	MarkRead(ctx context.Context, msgID uint64, at time.Time) (bool, error)
	MarkConversationRead(ctx context.Context, convID, readerID uint64, at time.Time) (int64, error)
	SoftDelete(ctx context.Context, msgID uint64, at time.Time) error
}

type messageRepoImpl struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepoImpl{db: db}
}

// SaveMessage 写入消息，ID 由自增主键分配
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *model.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *messageRepoImpl) GetMessage(ctx context.Context, msgID uint64) (*model.Message, error) {
	var msg model.Message
	err := s.db.WithContext(ctx).First(&msg, msgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetHistory 游标分页，beforeID 为上一页最旧一条消息的 ID，首页传 0
// 结果按 ID 降序 (最新的在前)
func (s *messageRepoImpl) GetHistory(ctx context.Context, convID uint64, beforeID uint64, limit int) ([]*model.Message, error) {
	query := s.db.WithContext(ctx).
		Where("conversation_id = ? AND is_deleted = ?", convID, false)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}

	var messages []*model.Message
	err := query.Order("id DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

// GetLastMessage 最近一条消息 (包含已删除，展示时替换文案)
func (s *messageRepoImpl) GetLastMessage(ctx context.Context, convID uint64) (*model.Message, error) {
	var msg model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// CountUnread 对方发送且晚于 since 的消息数，since 为空时统计全部
func (s *messageRepoImpl) CountUnread(ctx context.Context, convID, readerID uint64, since *time.Time) (int64, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", convID, readerID)
	if since != nil {
		query = query.Where("created_at > ?", *since)
	}
	err := query.Count(&count).Error
	return count, err
}

// MarkRead 单条已读，已读过返回 false
func (s *messageRepoImpl) MarkRead(ctx context.Context, msgID uint64, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND is_read = ?", msgID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected > 0, res.Error
}

// MarkConversationRead 会话内对方发送的未读消息全部置为已读
func (s *messageRepoImpl) MarkConversationRead(ctx context.Context, convID, readerID uint64, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", convID, readerID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

// SoftDelete 软删除，保留原文
func (s *messageRepoImpl) SoftDelete(ctx context.Context, msgID uint64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND is_deleted = ?", msgID, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": at}).Error
}

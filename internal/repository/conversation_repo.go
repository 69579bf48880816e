package repository

import (
	"KoraChat/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type ConversationRepo interface {
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error)
	GetConversationByToken(ctx context.Context, token string) (*model.Conversation, error)
	GetByActiveKey(ctx context.Context, activeKey string) (*model.Conversation, error)
	GetUserConversationList(ctx context.Context, userID uint64) ([]*model.Conversation, error)

	TouchLastMessage(ctx context.Context, convID uint64, at time.Time) error
	UpdateLastRead(ctx context.Context, convID uint64, column string, at time.Time) error
	Archive(ctx context.Context, convID uint64) (bool, error)
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

// CreateConversation 创建会话，ActiveKey 冲突时返回 ErrDuplicate
func (s *conversationRepoImpl) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	if conv.Token == "" {
		conv.Token = model.NewConversationToken()
	}
	if conv.Status == "" {
		conv.Status = model.ConversationActive
	}
	err := s.db.WithContext(ctx).Create(conv).Error
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// GetConversation 根据会话 ID 获取会话，不存在返回 nil
func (s *conversationRepoImpl) GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, convID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversationByToken 根据 CONV- 标识获取会话
func (s *conversationRepoImpl) GetConversationByToken(ctx context.Context, token string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetActiveByKey 查询三元组对应的活跃会话
func (s *conversationRepoImpl) GetByActiveKey(ctx context.Context, activeKey string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("active_key = ?", activeKey).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetUserConversationList 用户参与的活跃会话，最近消息在前，无消息的排在最后
func (s *conversationRepoImpl) GetUserConversationList(ctx context.Context, userID uint64) ([]*model.Conversation, error) {
	var list []*model.Conversation
	err := s.db.WithContext(ctx).
		Where("(buyer_id = ? OR seller_id = ?) AND status = ?", userID, userID, model.ConversationActive).
		Order("CASE WHEN last_message_at IS NULL THEN 1 ELSE 0 END").
		Order("last_message_at DESC").
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// TouchLastMessage 只向前推进 last_message_at，并发写入时保留较新的时间
func (s *conversationRepoImpl) TouchLastMessage(ctx context.Context, convID uint64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at < ?)", convID, at).
		Update("last_message_at", at).Error
}

// UpdateLastRead 更新买家或卖家的已读时间
func (s *conversationRepoImpl) UpdateLastRead(ctx context.Context, convID uint64, column string, at time.Time) error {
	if column != "buyer_last_read" && column != "seller_last_read" {
		return errors.New("invalid last read column")
	}
	return s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", convID).
		Update(column, at).Error
}

// Archive active -> archived，同时释放唯一键
func (s *conversationRepoImpl) Archive(ctx context.Context, convID uint64) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND status = ?", convID, model.ConversationActive).
		Updates(map[string]interface{}{
			"status":     model.ConversationArchived,
			"active_key": nil,
		})
	return res.RowsAffected > 0, res.Error
}

package service

import (
	"KoraChat/internal/api/config"
	"KoraChat/internal/api/dto"
	"KoraChat/internal/model"
	"KoraChat/internal/pkg/minio"
	"KoraChat/internal/repository"
	"context"
	log "log/slog"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/samber/lo"
)

// Attachment 已上传到对象存储的附件
type Attachment struct {
	Key  string
	Type string
}

// Page 一页历史消息，Messages 按 ID 倒序
type Page struct {
	Messages []*model.Message
	HasMore  bool
}

// MessageService 消息账本
type MessageService interface {
	Append(ctx context.Context, convID, senderID uint64, content string, attachment *Attachment) (*model.Message, error)
	Page(ctx context.Context, convID, beforeID uint64, limit int) (*Page, error)
	History(ctx context.Context, convID, beforeID uint64, limit int) (*dto.MessagePageDTO, error)
	Get(ctx context.Context, msgID uint64) (*model.Message, error)
	SoftDelete(ctx context.Context, msgID, userID uint64) (*model.Message, error)
	MarkRead(ctx context.Context, msgID, readerID uint64) (bool, error)
	DisplayName(ctx context.Context, userID uint64, fallback string) string
	ToDTO(msg *model.Message, senderName string) *dto.MessageDTO
}

type messageServiceImpl struct {
	store    repository.Store
	userRepo repository.UserRepo
	cfg      config.ChatConfig
	now      func() time.Time
}

func NewMessageService(store repository.Store, userRepo repository.UserRepo, cfg config.ChatConfig) MessageService {
	if cfg.MessageMaxLength <= 0 {
		cfg.MessageMaxLength = 2000
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.PageSizeMax < cfg.PageSize {
		cfg.PageSizeMax = cfg.PageSize
	}
	return &messageServiceImpl{
		store:    store,
		userRepo: userRepo,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Append 追加消息并推进会话的最后消息时间，超长内容截断到上限
func (s *messageServiceImpl) Append(ctx context.Context, convID, senderID uint64, content string, attachment *Attachment) (*model.Message, error) {
	conv, err := s.store.Conversations().GetConversation(ctx, convID)
	if err != nil {
		return nil, persistErr(ctx, "get conversation", err)
	}
	if conv == nil || !conv.IsParticipant(senderID) {
		return nil, ErrNotAParticipant
	}
	if !conv.IsActive() {
		return nil, ErrConversationNotActive
	}

	content = strings.TrimSpace(content)
	if attachment != nil && attachment.Key == "" {
		attachment = nil
	}
	if content == "" && attachment == nil {
		return nil, ErrEmptyMessage
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        truncateRunes(content, s.cfg.MessageMaxLength),
		CreatedAt:      s.now(),
	}
	if attachment != nil {
		exists, err := minio.AttachmentExists(ctx, attachment.Key)
		if err != nil {
			return nil, persistErr(ctx, "stat attachment", err)
		}
		if !exists {
			return nil, ErrAttachmentNotFound
		}
		msg.AttachmentKey = lo.ToPtr(attachment.Key)
		msg.AttachmentType = lo.ToPtr(attachment.Type)
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Messages().SaveMessage(ctx, msg); err != nil {
			return err
		}
		return tx.Conversations().TouchLastMessage(ctx, conv.ID, msg.CreatedAt)
	})
	if err != nil {
		return nil, persistErr(ctx, "append message", err)
	}
	return msg, nil
}

// Page 未删除的消息，ID 小于 beforeID，最新的在前
func (s *messageServiceImpl) Page(ctx context.Context, convID, beforeID uint64, limit int) (*Page, error) {
	limit = s.normalizeLimit(limit)
	messages, err := s.store.Messages().GetHistory(ctx, convID, beforeID, limit)
	if err != nil {
		return nil, persistErr(ctx, "get history", err)
	}
	return &Page{Messages: messages, HasMore: len(messages) == limit}, nil
}

// History REST 使用，按时间正序并带上发送者名称
func (s *messageServiceImpl) History(ctx context.Context, convID, beforeID uint64, limit int) (*dto.MessagePageDTO, error) {
	page, err := s.Page(ctx, convID, beforeID, limit)
	if err != nil {
		return nil, err
	}

	senderIDs := lo.Uniq(lo.Map(page.Messages, func(m *model.Message, _ int) uint64 { return m.SenderID }))
	users, err := s.userRepo.GetUserByIds(ctx, senderIDs)
	if err != nil {
		return nil, persistErr(ctx, "get users", err)
	}
	names := lo.SliceToMap(users, func(u *model.User) (uint64, string) { return u.ID, u.DisplayName() })

	result := &dto.MessagePageDTO{
		Messages: make([]*dto.MessageDTO, 0, len(page.Messages)),
		HasMore:  page.HasMore,
	}
	for _, m := range lo.Reverse(page.Messages) {
		result.Messages = append(result.Messages, s.ToDTO(m, names[m.SenderID]))
	}
	if page.HasMore && len(result.Messages) > 0 {
		result.NextBefore = result.Messages[0].ID
	}
	return result, nil
}

func (s *messageServiceImpl) Get(ctx context.Context, msgID uint64) (*model.Message, error) {
	msg, err := s.store.Messages().GetMessage(ctx, msgID)
	if err != nil {
		return nil, persistErr(ctx, "get message", err)
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}

// SoftDelete 只有发送者可以删除，原文保留
func (s *messageServiceImpl) SoftDelete(ctx context.Context, msgID, userID uint64) (*model.Message, error) {
	msg, err := s.Get(ctx, msgID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, ErrNotAParticipant
	}
	if msg.IsDeleted {
		return msg, nil
	}

	now := s.now()
	if err := s.store.Messages().SoftDelete(ctx, msg.ID, now); err != nil {
		return nil, persistErr(ctx, "soft delete message", err)
	}
	msg.IsDeleted = true
	msg.DeletedAt = &now
	return msg, nil
}

// MarkRead 单条已读，读者是发送者或已读时不做修改
func (s *messageServiceImpl) MarkRead(ctx context.Context, msgID, readerID uint64) (bool, error) {
	msg, err := s.Get(ctx, msgID)
	if err != nil {
		return false, err
	}
	conv, err := s.store.Conversations().GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return false, persistErr(ctx, "get conversation", err)
	}
	if conv == nil || !conv.IsParticipant(readerID) {
		return false, ErrNotAParticipant
	}
	if msg.SenderID == readerID || msg.IsRead {
		return false, nil
	}

	changed, err := s.store.Messages().MarkRead(ctx, msg.ID, s.now())
	if err != nil {
		return false, persistErr(ctx, "mark message read", err)
	}
	return changed, nil
}

// DisplayName 优先使用用户投影里的全名
func (s *messageServiceImpl) DisplayName(ctx context.Context, userID uint64, fallback string) string {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil || user == nil {
		return fallback
	}
	if name := user.DisplayName(); name != "" {
		return name
	}
	return fallback
}

func (s *messageServiceImpl) ToDTO(msg *model.Message, senderName string) *dto.MessageDTO {
	out := &dto.MessageDTO{}
	if err := copier.Copy(out, msg); err != nil {
		log.Error("copy message dto failed", "message_id", msg.ID, "err", err)
	}
	out.Content = msg.DisplayContent()
	out.SenderName = senderName
	out.Timestamp = msg.CreatedAt.UTC().Format(time.RFC3339Nano)
	out.AttachmentURL, out.AttachmentType = "", ""
	if msg.HasAttachment() && !msg.IsDeleted {
		out.AttachmentURL = minio.GetPublicURL(*msg.AttachmentKey)
		out.AttachmentType = lo.FromPtr(msg.AttachmentType)
	}
	return out
}

func (s *messageServiceImpl) normalizeLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.PageSize
	}
	if limit > s.cfg.PageSizeMax {
		return s.cfg.PageSizeMax
	}
	return limit
}

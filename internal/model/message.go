package model

import "time"

// DeletedPlaceholder 已删除消息的展示文案
const DeletedPlaceholder = "This message was deleted"

// Message 会话消息，只追加，删除为软删除
type Message struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64     `gorm:"not null;index:idx_conv_created,priority:1" json:"conversationId"`
	SenderID       uint64     `gorm:"not null;index" json:"senderId"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	AttachmentKey  *string    `gorm:"type:varchar(255)" json:"attachmentKey"`
	AttachmentType *string    `gorm:"type:varchar(20)" json:"attachmentType"` // image, document ...
	IsRead         bool       `gorm:"not null;default:false" json:"isRead"`
	ReadAt         *time.Time `json:"readAt"`
	IsDeleted      bool       `gorm:"not null;default:false" json:"isDeleted"`
	DeletedAt      *time.Time `json:"deletedAt"`
	CreatedAt      time.Time  `gorm:"index:idx_conv_created,priority:2" json:"createdAt"`
}

func (Message) TableName() string { return "chat_messages" }

// DisplayContent 删除后返回固定占位文案
func (m *Message) DisplayContent() string {
	if m.IsDeleted {
		return DeletedPlaceholder
	}
	return m.Content
}

func (m *Message) HasAttachment() bool {
	return m.AttachmentKey != nil && *m.AttachmentKey != ""
}

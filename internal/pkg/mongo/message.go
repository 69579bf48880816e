package mongo

import (
	"KoraChat/internal/model"
	"time"
)

const (
	messageCollection = "chat_messages"
	counterCollection = "counters"
)

// Message MongoDB 消息文档，_id 为全局自增序号，与 MySQL 模式下的消息 ID 语义一致
type Message struct {
	ID             uint64     `bson:"_id"`
	ConversationID uint64     `bson:"conversation_id"`
	SenderID       uint64     `bson:"sender_id"`
	Content        string     `bson:"content"`
	AttachmentKey  *string    `bson:"attachment_key,omitempty"`
	AttachmentType *string    `bson:"attachment_type,omitempty"`
	IsRead         bool       `bson:"is_read"`
	ReadAt         *time.Time `bson:"read_at,omitempty"`
	IsDeleted      bool       `bson:"is_deleted"`
	DeletedAt      *time.Time `bson:"deleted_at,omitempty"`
	CreatedAt      time.Time  `bson:"created_at"`
}

type counter struct {
	ID  string `bson:"_id"`
	Seq uint64 `bson:"seq"`
}

func fromModel(m *model.Message) *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		AttachmentKey:  m.AttachmentKey,
		AttachmentType: m.AttachmentType,
		IsRead:         m.IsRead,
		ReadAt:         m.ReadAt,
		IsDeleted:      m.IsDeleted,
		DeletedAt:      m.DeletedAt,
		CreatedAt:      m.CreatedAt,
	}
}

func (d *Message) toModel() *model.Message {
	return &model.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		Content:        d.Content,
		AttachmentKey:  d.AttachmentKey,
		AttachmentType: d.AttachmentType,
		IsRead:         d.IsRead,
		ReadAt:         d.ReadAt,
		IsDeleted:      d.IsDeleted,
		DeletedAt:      d.DeletedAt,
		CreatedAt:      d.CreatedAt,
	}
}

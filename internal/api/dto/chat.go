package dto

import "time"

// SendMessageReq REST 发送消息，附件由主站上传到 MinIO 后只传 key
type SendMessageReq struct {
	Message        string `json:"message"`
	AttachmentKey  string `json:"attachment_key" binding:"omitempty,max=255"`
	AttachmentType string `json:"attachment_type" binding:"omitempty,oneof=image document"`
}

// HistoryReq 历史消息游标分页，before 为上一页最旧一条消息的 ID
type HistoryReq struct {
	Before uint64 `form:"before"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
}

// MessageDTO 消息推送与查询共用
type MessageDTO struct {
	ID             uint64 `json:"id"`
	ConversationID uint64 `json:"conversation_id"`
	Content        string `json:"content"`
	SenderID       uint64 `json:"sender_id"`
	SenderName     string `json:"sender_name"`
	Timestamp      string `json:"timestamp"`
	IsRead         bool   `json:"is_read"`
	AttachmentURL  string `json:"attachment_url,omitempty"`
	AttachmentType string `json:"attachment_type,omitempty"`
}

// MessagePageDTO 按时间正序返回
type MessagePageDTO struct {
	Messages   []*MessageDTO `json:"messages"`
	HasMore    bool          `json:"has_more"`
	NextBefore uint64        `json:"next_before,omitempty"`
}

type ParticipantDTO struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

type ListingDTO struct {
	ID       uint64 `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url,omitempty"`
}

type LastMessageDTO struct {
	Content   string `json:"content"`
	SenderID  uint64 `json:"sender_id"`
	Timestamp string `json:"timestamp"`
	IsMine    bool   `json:"is_mine"`
}

// ConversationSummaryDTO 会话列表项
type ConversationSummaryDTO struct {
	ID            uint64          `json:"id"`
	Token         string          `json:"conversation_id"`
	Status        string          `json:"status"`
	OtherUser     *ParticipantDTO `json:"other_user"`
	Listing       *ListingDTO     `json:"listing,omitempty"`
	InquiryID     *uint64         `json:"inquiry_id,omitempty"`
	LastMessage   *LastMessageDTO `json:"last_message,omitempty"`
	UnreadCount   int64           `json:"unread_count"`
	LastMessageAt *time.Time      `json:"last_message_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

type UnreadSummaryDTO struct {
	TotalUnread    int64            `json:"total_unread"`
	ByConversation map[uint64]int64 `json:"by_conversation"`
}

// StartConversationDTO Ajax 发起会话的返回
type StartConversationDTO struct {
	ConversationID uint64 `json:"conversation_id"`
	Token          string `json:"token"`
	RedirectURL    string `json:"redirect_url"`
}

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ConversationActive   = "active"
	ConversationArchived = "archived"
	ConversationBlocked  = "blocked"
)

// ConversationTokenPrefix 会话对外标识前缀
const ConversationTokenPrefix = "CONV-"

// Conversation 买卖双方会话
type Conversation struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Token          string     `gorm:"type:varchar(32);uniqueIndex" json:"conversationId"`
	BuyerID        uint64     `gorm:"not null;index" json:"buyerId"`
	SellerID       uint64     `gorm:"not null;index" json:"sellerId"`
	ListingID      *uint64    `gorm:"index" json:"listingId"`
	InquiryID      *uint64    `gorm:"index" json:"inquiryId"`
	Status         string     `gorm:"type:varchar(20);not null;default:active" json:"status"`
	ActiveKey      *string    `gorm:"type:varchar(96);uniqueIndex" json:"-"` // 仅 active 时有值，保证三元组唯一
	LastMessageAt  *time.Time `gorm:"index" json:"lastMessageAt"`
	BuyerLastRead  *time.Time `json:"buyerLastRead"`
	SellerLastRead *time.Time `json:"sellerLastRead"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (Conversation) TableName() string { return "chat_conversations" }

// NewConversationToken 生成 CONV- + 12 位大写十六进制
func NewConversationToken() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ConversationTokenPrefix + strings.ToUpper(hex[:12])
}

// TripleKey 会话唯一键：带房源的会话区分买卖方向，直聊不区分方向
func TripleKey(buyerID, sellerID uint64, listingID *uint64) string {
	if listingID != nil {
		return fmt.Sprintf("l:%d:%d:%d", buyerID, sellerID, *listingID)
	}
	if buyerID > sellerID {
		buyerID, sellerID = sellerID, buyerID
	}
	return fmt.Sprintf("d:%d:%d", buyerID, sellerID)
}

func (c *Conversation) IsActive() bool {
	return c.Status == ConversationActive
}

func (c *Conversation) IsParticipant(userID uint64) bool {
	return userID != 0 && (c.BuyerID == userID || c.SellerID == userID)
}

// OtherParticipant 对方 ID
func (c *Conversation) OtherParticipant(userID uint64) uint64 {
	if userID == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// LastReadOf 返回用户对应角色的已读时间
func (c *Conversation) LastReadOf(userID uint64) *time.Time {
	if userID == c.BuyerID {
		return c.BuyerLastRead
	}
	return c.SellerLastRead
}

// LastReadColumn 用户角色对应的已读字段
func (c *Conversation) LastReadColumn(userID uint64) string {
	if userID == c.BuyerID {
		return "buyer_last_read"
	}
	return "seller_last_read"
}

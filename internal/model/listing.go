package model

import (
	"time"
)

// Listing 房源投影
type Listing struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OwnerID   uint64    `gorm:"not null;index" json:"ownerId"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	ImageKey  string    `gorm:"type:varchar(255)" json:"imageKey"`
	IsDeleted bool      `gorm:"type:tinyint(1);default:0" json:"isDeleted"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Listing) TableName() string {
	return "chat_listings"
}

// Inquiry 房源咨询投影
type Inquiry struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Reference string    `gorm:"type:varchar(50);uniqueIndex" json:"reference"` // 例如 INQ-XXXX
	ListingID uint64    `gorm:"not null;index" json:"listingId"`
	BuyerID   uint64    `gorm:"not null;index" json:"buyerId"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Inquiry) TableName() string {
	return "chat_inquiries"
}

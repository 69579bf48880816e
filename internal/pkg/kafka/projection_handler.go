package kafka

import (
	"KoraChat/internal/model"
	"KoraChat/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"strings"

	"github.com/IBM/sarama"
)

// ProjectionHandler 把市场主库某张表的 binlog 同步到本地投影表
type ProjectionHandler struct {
	name  string
	table string
	apply func(ctx context.Context, msg *CanalMessage) error
}

func (s *ProjectionHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("projection consumer setup", "name", s.name, "table", s.table)
	return nil
}

func (s *ProjectionHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("projection consumer cleanup", "name", s.name)
	return nil
}

func (s *ProjectionHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("consume claim", "name", s.name, "topic", claim.Topic(), "partition", claim.Partition())
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("process batch error", "name", s.name, "err", err)
		return err
	}
	log.Info("consume claim end", "name", s.name)
	return nil
}

func (s *ProjectionHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	canalMsg, err := ToCanalMessage(msg, s.table)
	if err != nil {
		return err
	}
	return s.apply(ctx, canalMsg)
}

// NewUserHandler users 表 -> chat_users
func NewUserHandler(table string, userRepo repository.UserRepo) *ProjectionHandler {
	return &ProjectionHandler{
		name:  "user",
		table: table,
		apply: func(ctx context.Context, msg *CanalMessage) error {
			for _, row := range msg.Data {
				user := &model.User{
					ID:        StrToUint64(row["id"]),
					Username:  StrToString(row["username"]),
					FullName:  strings.TrimSpace(StrToString(row["first_name"]) + " " + StrToString(row["last_name"])),
					AvatarKey: StrToString(row["profile_picture"]),
					IsDeleted: msg.Type == DELETE || inactive(row),
				}
				if user.ID == 0 {
					return fmt.Errorf("%w: user row without id", errSkip)
				}
				if err := userRepo.UpsertUser(ctx, user); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// NewListingHandler posts 表 -> chat_listings
func NewListingHandler(table string, listingRepo repository.ListingRepo) *ProjectionHandler {
	return &ProjectionHandler{
		name:  "listing",
		table: table,
		apply: func(ctx context.Context, msg *CanalMessage) error {
			for _, row := range msg.Data {
				listing := &model.Listing{
					ID:        StrToUint64(row["id"]),
					OwnerID:   StrToUint64(row["user_id"]),
					Title:     StrToString(row["title"]),
					ImageKey:  StrToString(row["image"]),
					IsDeleted: msg.Type == DELETE || inactive(row),
				}
				if listing.ID == 0 || listing.OwnerID == 0 {
					return fmt.Errorf("%w: listing row without id or owner", errSkip)
				}
				if err := listingRepo.UpsertListing(ctx, listing); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// NewInquiryHandler property_inquiries 表 -> chat_inquiries，删除事件忽略，已建会话保留咨询编号
func NewInquiryHandler(table string, listingRepo repository.ListingRepo) *ProjectionHandler {
	return &ProjectionHandler{
		name:  "inquiry",
		table: table,
		apply: func(ctx context.Context, msg *CanalMessage) error {
			if msg.Type == DELETE {
				return nil
			}
			for _, row := range msg.Data {
				inquiry := &model.Inquiry{
					ID:        StrToUint64(row["id"]),
					Reference: StrToString(row["inquiry_id"]),
					ListingID: StrToUint64(row["property_id"]),
					BuyerID:   StrToUint64(row["buyer_id"]),
					Message:   StrToString(row["message"]),
					CreatedAt: StrToTime(row["created_at"]),
				}
				if inquiry.ID == 0 || inquiry.ListingID == 0 || inquiry.BuyerID == 0 {
					return fmt.Errorf("%w: inquiry row incomplete", errSkip)
				}
				if err := listingRepo.UpsertInquiry(ctx, inquiry); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// inactive 行内带 is_active 且为假
func inactive(row map[string]interface{}) bool {
	v, ok := row["is_active"]
	return ok && v != nil && !StrToBool(v)
}

package service

import (
	"KoraChat/internal/api/dto"
	"KoraChat/internal/model"
	"KoraChat/internal/pkg/consts"
	"KoraChat/internal/pkg/minio"
	"KoraChat/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/samber/lo"
)

const lastMessagePreviewRunes = 100

// ConversationService 会话目录
type ConversationService interface {
	FindOrCreate(ctx context.Context, initiator, counterpart uint64, listingID, inquiryID *uint64) (*model.Conversation, error)
	ListFor(ctx context.Context, userID uint64) ([]*dto.ConversationSummaryDTO, error)
	MarkRead(ctx context.Context, convID, userID uint64) error
	Archive(ctx context.Context, convID, userID uint64) error
	UnreadCount(ctx context.Context, convID, userID uint64) (int64, error)
	UnreadSummary(ctx context.Context, userID uint64) (*dto.UnreadSummaryDTO, error)
	Resolve(ctx context.Context, ref string) (*model.Conversation, error)
	Authorize(ctx context.Context, ref string, userID uint64) (*model.Conversation, error)

	StartByListing(ctx context.Context, userID, listingID uint64) (*model.Conversation, error)
	StartDirect(ctx context.Context, userID, otherID uint64) (*model.Conversation, error)
	StartByInquiry(ctx context.Context, userID, inquiryID uint64) (*model.Conversation, error)
}

type conversationServiceImpl struct {
	store       repository.Store
	userRepo    repository.UserRepo
	listingRepo repository.ListingRepo
	locker      Locker
	now         func() time.Time
}

func NewConversationService(store repository.Store, userRepo repository.UserRepo, listingRepo repository.ListingRepo, locker Locker) ConversationService {
	return &conversationServiceImpl{
		store:       store,
		userRepo:    userRepo,
		listingRepo: listingRepo,
		locker:      locker,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// FindOrCreate 三元组已有会话则直接返回，否则以 initiator 为买家创建
// 由咨询创建时写入一条咨询摘要消息，作者为咨询的买家
func (s *conversationServiceImpl) FindOrCreate(ctx context.Context, initiator, counterpart uint64, listingID, inquiryID *uint64) (*model.Conversation, error) {
	if initiator == 0 || counterpart == 0 {
		return nil, ErrParamInvalid
	}
	if initiator == counterpart {
		return nil, ErrSelfConversation
	}

	key := model.TripleKey(initiator, counterpart, listingID)
	unlock, err := s.locker.Lock(ctx, consts.ConversationCreateLock+key)
	if err != nil {
		return nil, persistErr(ctx, "lock conversation", err)
	}
	defer unlock()

	existing, err := s.store.Conversations().GetByActiveKey(ctx, key)
	if err != nil {
		return nil, persistErr(ctx, "get conversation by key", err)
	}
	if existing != nil {
		return existing, nil
	}

	var seed *model.Message
	if inquiryID != nil {
		inquiry, err := s.listingRepo.GetInquiry(ctx, *inquiryID)
		if err != nil {
			return nil, persistErr(ctx, "get inquiry", err)
		}
		if inquiry == nil {
			return nil, ErrInquiryNotFound
		}
		seed = &model.Message{
			SenderID: inquiry.BuyerID,
			Content:  fmt.Sprintf(consts.InquirySeedFormat, inquiry.Reference, inquiry.Message),
		}
	}

	now := s.now()
	conv := &model.Conversation{
		BuyerID:   initiator,
		SellerID:  counterpart,
		ListingID: listingID,
		InquiryID: inquiryID,
		Status:    model.ConversationActive,
		ActiveKey: &key,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Conversations().CreateConversation(ctx, conv); err != nil {
			return err
		}
		if seed == nil {
			return nil
		}
		seed.ConversationID = conv.ID
		seed.CreatedAt = now
		if err := tx.Messages().SaveMessage(ctx, seed); err != nil {
			return err
		}
		return tx.Conversations().TouchLastMessage(ctx, conv.ID, seed.CreatedAt)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// 其他实例抢先创建，返回胜出的那条
		winner, gerr := s.store.Conversations().GetByActiveKey(ctx, key)
		if gerr != nil {
			return nil, persistErr(ctx, "get conversation by key", gerr)
		}
		if winner != nil {
			return winner, nil
		}
	}
	if err != nil {
		return nil, persistErr(ctx, "create conversation", err)
	}

	log.InfoContext(ctx, "conversation created", "conversation_id", conv.ID, "buyer_id", initiator, "seller_id", counterpart)
	return conv, nil
}

// ListFor 用户参与的活跃会话，按最后消息时间倒序
func (s *conversationServiceImpl) ListFor(ctx context.Context, userID uint64) ([]*dto.ConversationSummaryDTO, error) {
	convs, err := s.store.Conversations().GetUserConversationList(ctx, userID)
	if err != nil {
		return nil, persistErr(ctx, "list conversations", err)
	}
	if len(convs) == 0 {
		return []*dto.ConversationSummaryDTO{}, nil
	}

	otherIDs := lo.Uniq(lo.Map(convs, func(c *model.Conversation, _ int) uint64 {
		return c.OtherParticipant(userID)
	}))
	users, err := s.userRepo.GetUserByIds(ctx, otherIDs)
	if err != nil {
		return nil, persistErr(ctx, "get users", err)
	}
	userMap := lo.KeyBy(users, func(u *model.User) uint64 { return u.ID })

	listingIDs := lo.Uniq(lo.FilterMap(convs, func(c *model.Conversation, _ int) (uint64, bool) {
		if c.ListingID == nil {
			return 0, false
		}
		return *c.ListingID, true
	}))
	listings, err := s.listingRepo.GetListingByIds(ctx, listingIDs)
	if err != nil {
		return nil, persistErr(ctx, "get listings", err)
	}
	listingMap := lo.KeyBy(listings, func(l *model.Listing) uint64 { return l.ID })

	result := make([]*dto.ConversationSummaryDTO, 0, len(convs))
	for _, conv := range convs {
		item := &dto.ConversationSummaryDTO{}
		if err := copier.Copy(item, conv); err != nil {
			return nil, err
		}
		item.Token = conv.Token

		otherID := conv.OtherParticipant(userID)
		if item.OtherUser, err = toParticipantDTO(otherID, userMap[otherID]); err != nil {
			return nil, err
		}

		if conv.ListingID != nil {
			if listing, ok := listingMap[*conv.ListingID]; ok {
				item.Listing = &dto.ListingDTO{ID: listing.ID, Title: listing.Title, ImageURL: minio.GetPublicURL(listing.ImageKey)}
			} else {
				item.Listing = &dto.ListingDTO{ID: *conv.ListingID}
			}
		}

		unread, err := s.store.Messages().CountUnread(ctx, conv.ID, userID, conv.LastReadOf(userID))
		if err != nil {
			return nil, persistErr(ctx, "count unread", err)
		}
		item.UnreadCount = unread

		last, err := s.store.Messages().GetLastMessage(ctx, conv.ID)
		if err != nil {
			return nil, persistErr(ctx, "get last message", err)
		}
		if last != nil {
			item.LastMessage = &dto.LastMessageDTO{
				Content:   truncateRunes(last.DisplayContent(), lastMessagePreviewRunes),
				SenderID:  last.SenderID,
				Timestamp: last.CreatedAt.UTC().Format(time.RFC3339),
				IsMine:    last.SenderID == userID,
			}
		}
		result = append(result, item)
	}
	return result, nil
}

// MarkRead 更新已读时间并在同一事务内把对方的未读消息置为已读，可重复调用
func (s *conversationServiceImpl) MarkRead(ctx context.Context, convID, userID uint64) error {
	conv, err := s.participantConversation(ctx, convID, userID)
	if err != nil {
		return err
	}

	now := s.now()
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Conversations().UpdateLastRead(ctx, conv.ID, conv.LastReadColumn(userID), now); err != nil {
			return err
		}
		_, err := tx.Messages().MarkConversationRead(ctx, conv.ID, userID, now)
		return err
	})
	if err != nil {
		return persistErr(ctx, "mark conversation read", err)
	}
	return nil
}

// Archive active -> archived，已归档重复调用无副作用
func (s *conversationServiceImpl) Archive(ctx context.Context, convID, userID uint64) error {
	conv, err := s.participantConversation(ctx, convID, userID)
	if err != nil {
		return err
	}
	switch conv.Status {
	case model.ConversationArchived:
		return nil
	case model.ConversationActive:
	default:
		return ErrConversationNotActive
	}

	if _, err := s.store.Conversations().Archive(ctx, conv.ID); err != nil {
		return persistErr(ctx, "archive conversation", err)
	}
	log.InfoContext(ctx, "conversation archived", "conversation_id", conv.ID, "user_id", userID)
	return nil
}

// UnreadCount 对方发送且晚于自己已读时间的消息数 (含已删除)
func (s *conversationServiceImpl) UnreadCount(ctx context.Context, convID, userID uint64) (int64, error) {
	conv, err := s.participantConversation(ctx, convID, userID)
	if err != nil {
		return 0, err
	}
	count, err := s.store.Messages().CountUnread(ctx, conv.ID, userID, conv.LastReadOf(userID))
	if err != nil {
		return 0, persistErr(ctx, "count unread", err)
	}
	return count, nil
}

// UnreadSummary 全部活跃会话的未读汇总，只返回非零项
func (s *conversationServiceImpl) UnreadSummary(ctx context.Context, userID uint64) (*dto.UnreadSummaryDTO, error) {
	convs, err := s.store.Conversations().GetUserConversationList(ctx, userID)
	if err != nil {
		return nil, persistErr(ctx, "list conversations", err)
	}

	summary := &dto.UnreadSummaryDTO{ByConversation: make(map[uint64]int64)}
	for _, conv := range convs {
		count, err := s.store.Messages().CountUnread(ctx, conv.ID, userID, conv.LastReadOf(userID))
		if err != nil {
			return nil, persistErr(ctx, "count unread", err)
		}
		if count > 0 {
			summary.ByConversation[conv.ID] = count
			summary.TotalUnread += count
		}
	}
	return summary, nil
}

// Resolve 支持数字 ID 与 CONV- 标识
func (s *conversationServiceImpl) Resolve(ctx context.Context, ref string) (*model.Conversation, error) {
	ref = strings.TrimSpace(ref)
	var (
		conv *model.Conversation
		err  error
	)
	if strings.HasPrefix(strings.ToUpper(ref), model.ConversationTokenPrefix) {
		conv, err = s.store.Conversations().GetConversationByToken(ctx, strings.ToUpper(ref))
	} else {
		id, perr := strconv.ParseUint(ref, 10, 64)
		if perr != nil || id == 0 {
			return nil, ErrParamInvalid
		}
		conv, err = s.store.Conversations().GetConversation(ctx, id)
	}
	if err != nil {
		return nil, persistErr(ctx, "resolve conversation", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// Authorize 会话不存在也按非参与者处理，不暴露会话是否存在
func (s *conversationServiceImpl) Authorize(ctx context.Context, ref string, userID uint64) (*model.Conversation, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}
	conv, err := s.Resolve(ctx, ref)
	if errors.Is(err, ErrConversationNotFound) || errors.Is(err, ErrParamInvalid) {
		return nil, ErrNotAParticipant
	}
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		return nil, ErrNotAParticipant
	}
	return conv, nil
}

// StartByListing 买家就房源联系房东
func (s *conversationServiceImpl) StartByListing(ctx context.Context, userID, listingID uint64) (*model.Conversation, error) {
	listing, err := s.listingRepo.GetListing(ctx, listingID)
	if err != nil {
		return nil, persistErr(ctx, "get listing", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	return s.FindOrCreate(ctx, userID, listing.OwnerID, &listing.ID, nil)
}

// StartDirect 不关联房源的私聊
func (s *conversationServiceImpl) StartDirect(ctx context.Context, userID, otherID uint64) (*model.Conversation, error) {
	if userID == otherID {
		return nil, ErrSelfConversation
	}
	other, err := s.userRepo.GetUserById(ctx, otherID)
	if err != nil {
		return nil, persistErr(ctx, "get user", err)
	}
	if other == nil {
		return nil, ErrUserNotFound
	}
	return s.FindOrCreate(ctx, userID, other.ID, nil, nil)
}

// StartByInquiry 咨询的买家或房东都可以发起，买家始终为咨询人
func (s *conversationServiceImpl) StartByInquiry(ctx context.Context, userID, inquiryID uint64) (*model.Conversation, error) {
	inquiry, err := s.listingRepo.GetInquiry(ctx, inquiryID)
	if err != nil {
		return nil, persistErr(ctx, "get inquiry", err)
	}
	if inquiry == nil {
		return nil, ErrInquiryNotFound
	}
	listing, err := s.listingRepo.GetListing(ctx, inquiry.ListingID)
	if err != nil {
		return nil, persistErr(ctx, "get listing", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	if userID != inquiry.BuyerID && userID != listing.OwnerID {
		return nil, ErrNotAParticipant
	}
	return s.FindOrCreate(ctx, inquiry.BuyerID, listing.OwnerID, &listing.ID, &inquiry.ID)
}

func (s *conversationServiceImpl) participantConversation(ctx context.Context, convID, userID uint64) (*model.Conversation, error) {
	conv, err := s.store.Conversations().GetConversation(ctx, convID)
	if err != nil {
		return nil, persistErr(ctx, "get conversation", err)
	}
	if conv == nil || !conv.IsParticipant(userID) {
		return nil, ErrNotAParticipant
	}
	return conv, nil
}

func toParticipantDTO(id uint64, user *model.User) (*dto.ParticipantDTO, error) {
	p := &dto.ParticipantDTO{ID: id}
	if user == nil {
		return p, nil
	}
	if err := copier.Copy(p, user); err != nil {
		return nil, err
	}
	p.FullName = user.DisplayName()
	p.AvatarURL = minio.GetPublicURL(user.AvatarKey)
	if p.AvatarURL == "" {
		p.AvatarURL = consts.DefaultAvatarURL
	}
	return p, nil
}

// truncateRunes 按字符截断，不会切断多字节字符
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

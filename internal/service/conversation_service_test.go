package service

import (
	"KoraChat/internal/api/config"
	"KoraChat/internal/mocks"
	"KoraChat/internal/model"
	"KoraChat/internal/pkg/consts"
	"KoraChat/internal/repository"
	"KoraChat/internal/testutil"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestFindOrCreate_ReturnsExisting(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()
	testutil.SeedListing(t, f.db, &model.Listing{ID: 7, OwnerID: sellerID, Title: "Sea view flat"})

	first, err := f.convs.FindOrCreate(ctx, buyerID, sellerID, lo.ToPtr(uint64(7)), nil)
	req.NoError(err)
	req.True(strings.HasPrefix(first.Token, model.ConversationTokenPrefix))
	req.Len(first.Token, len(model.ConversationTokenPrefix)+12)
	req.Equal(model.ConversationActive, first.Status)

	second, err := f.convs.FindOrCreate(ctx, buyerID, sellerID, lo.ToPtr(uint64(7)), nil)
	req.NoError(err)
	req.Equal(first.ID, second.ID)

	// 同一对用户，不同房源是另一个会话
	direct, err := f.convs.FindOrCreate(ctx, buyerID, sellerID, nil, nil)
	req.NoError(err)
	req.NotEqual(first.ID, direct.ID)

	// 直聊不区分方向
	reversed, err := f.convs.FindOrCreate(ctx, sellerID, buyerID, nil, nil)
	req.NoError(err)
	req.Equal(direct.ID, reversed.ID)
}

func TestFindOrCreate_ConcurrentCallersShareOneConversation(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	const callers = 16
	ids := make([]uint64, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := f.convs.FindOrCreate(ctx, buyerID, sellerID, nil, nil)
			errs[i] = err
			if conv != nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		req.NoError(err)
	}
	req.Len(lo.Uniq(ids), 1)

	var count int64
	req.NoError(f.db.Model(&model.Conversation{}).Count(&count).Error)
	req.EqualValues(1, count)
}

func TestFindOrCreate_RejectsSelfAndZero(t *testing.T) {
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	_, err := f.convs.FindOrCreate(ctx, buyerID, buyerID, nil, nil)
	assert.ErrorIs(t, err, ErrSelfConversation)

	_, err = f.convs.FindOrCreate(ctx, 0, sellerID, nil, nil)
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestFindOrCreate_InquirySeedsFirstMessage(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()
	testutil.SeedListing(t, f.db, &model.Listing{ID: 7, OwnerID: sellerID, Title: "Sea view flat"})
	testutil.SeedInquiry(t, f.db, &model.Inquiry{ID: 9, Reference: "INQ-0009", ListingID: 7, BuyerID: buyerID, Message: "Is parking included?"})

	// 房东发起，买家仍是咨询人
	conv, err := f.convs.StartByInquiry(ctx, sellerID, 9)
	req.NoError(err)
	req.Equal(buyerID, conv.BuyerID)
	req.Equal(sellerID, conv.SellerID)

	page, err := f.messages.Page(ctx, conv.ID, 0, 10)
	req.NoError(err)
	req.Len(page.Messages, 1)
	seed := page.Messages[0]
	req.Equal(buyerID, seed.SenderID)
	req.Equal("📋 Inquiry Reference: INQ-0009\n\nIs parking included?", seed.Content)

	stored, err := f.store.Conversations().GetConversation(ctx, conv.ID)
	req.NoError(err)
	req.NotNil(stored.LastMessageAt)

	again, err := f.convs.StartByInquiry(ctx, buyerID, 9)
	req.NoError(err)
	req.Equal(conv.ID, again.ID)
	page, err = f.messages.Page(ctx, conv.ID, 0, 10)
	req.NoError(err)
	req.Len(page.Messages, 1)

	_, err = f.convs.StartByInquiry(ctx, otherID, 9)
	req.ErrorIs(err, ErrNotAParticipant)
	_, err = f.convs.StartByInquiry(ctx, buyerID, 404)
	req.ErrorIs(err, ErrInquiryNotFound)
}

func TestStartByListing(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()
	testutil.SeedListing(t, f.db, &model.Listing{ID: 7, OwnerID: sellerID, Title: "Sea view flat"})

	conv, err := f.convs.StartByListing(ctx, buyerID, 7)
	req.NoError(err)
	req.Equal(buyerID, conv.BuyerID)
	req.Equal(sellerID, conv.SellerID)
	req.EqualValues(7, lo.FromPtr(conv.ListingID))

	_, err = f.convs.StartByListing(ctx, sellerID, 7)
	req.ErrorIs(err, ErrSelfConversation)
	_, err = f.convs.StartByListing(ctx, buyerID, 8)
	req.ErrorIs(err, ErrListingNotFound)
}

func TestStartDirect_WithMockUserRepo(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	db := testutil.NewDB(t)
	ctx := context.Background()

	userRepo := mocks.NewMockUserRepo(ctrl)
	svc := NewConversationService(repository.NewStore(db, nil), userRepo, repository.NewListingRepo(db), NewLocalLocker())

	userRepo.EXPECT().GetUserById(gomock.Any(), uint64(404)).Return(nil, nil).Times(1)
	_, err := svc.StartDirect(ctx, buyerID, 404)
	req.ErrorIs(err, ErrUserNotFound)

	userRepo.EXPECT().GetUserById(gomock.Any(), sellerID).Return(&model.User{ID: sellerID}, nil).Times(1)
	conv, err := svc.StartDirect(ctx, buyerID, sellerID)
	req.NoError(err)
	req.Nil(conv.ListingID)

	_, err = svc.StartDirect(ctx, buyerID, buyerID)
	req.ErrorIs(err, ErrSelfConversation)

	userRepo.EXPECT().GetUserById(gomock.Any(), otherID).Return(nil, errors.New("connection reset")).Times(1)
	_, err = svc.StartDirect(ctx, buyerID, otherID)
	req.ErrorIs(err, ErrPersistence)
}

func TestListingScenario_UnreadAndMarkRead(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()
	testutil.SeedListing(t, f.db, &model.Listing{ID: 7, OwnerID: sellerID, Title: "Sea view flat"})

	conv, err := f.convs.StartByListing(ctx, buyerID, 7)
	req.NoError(err)

	_, err = f.messages.Append(ctx, conv.ID, buyerID, "Hello, is it available?", nil)
	req.NoError(err)

	sellerUnread, err := f.convs.UnreadCount(ctx, conv.ID, sellerID)
	req.NoError(err)
	req.EqualValues(1, sellerUnread)
	buyerUnread, err := f.convs.UnreadCount(ctx, conv.ID, buyerID)
	req.NoError(err)
	req.EqualValues(0, buyerUnread)

	_, err = f.messages.Append(ctx, conv.ID, sellerID, "Yes it is.", nil)
	req.NoError(err)
	_, err = f.messages.Append(ctx, conv.ID, sellerID, "Want a viewing?", nil)
	req.NoError(err)

	buyerUnread, err = f.convs.UnreadCount(ctx, conv.ID, buyerID)
	req.NoError(err)
	req.EqualValues(2, buyerUnread)

	req.NoError(f.convs.MarkRead(ctx, conv.ID, buyerID))
	req.NoError(f.convs.MarkRead(ctx, conv.ID, buyerID))
	buyerUnread, err = f.convs.UnreadCount(ctx, conv.ID, buyerID)
	req.NoError(err)
	req.EqualValues(0, buyerUnread)

	history, err := f.messages.History(ctx, conv.ID, 0, 0)
	req.NoError(err)
	req.Len(history.Messages, 3)
	req.False(history.Messages[0].IsRead)
	req.True(history.Messages[1].IsRead)
	req.True(history.Messages[2].IsRead)

	summary, err := f.convs.UnreadSummary(ctx, sellerID)
	req.NoError(err)
	req.EqualValues(1, summary.TotalUnread)
	req.EqualValues(1, summary.ByConversation[conv.ID])

	_, err = f.convs.UnreadCount(ctx, conv.ID, otherID)
	req.ErrorIs(err, ErrNotAParticipant)
}

func TestListFor_OrdersByLastMessage(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()
	testutil.SeedListing(t, f.db, &model.Listing{ID: 7, OwnerID: sellerID, Title: "Sea view flat"})

	silent, err := f.convs.FindOrCreate(ctx, buyerID, otherID, nil, nil)
	req.NoError(err)
	older, err := f.convs.StartByListing(ctx, buyerID, 7)
	req.NoError(err)
	newer, err := f.convs.FindOrCreate(ctx, buyerID, sellerID, nil, nil)
	req.NoError(err)

	_, err = f.messages.Append(ctx, older.ID, sellerID, "first", nil)
	req.NoError(err)
	_, err = f.messages.Append(ctx, newer.ID, sellerID, strings.Repeat("é", 150), nil)
	req.NoError(err)

	list, err := f.convs.ListFor(ctx, buyerID)
	req.NoError(err)
	req.Len(list, 3)
	req.Equal(newer.ID, list[0].ID)
	req.Equal(older.ID, list[1].ID)
	req.Equal(silent.ID, list[2].ID)

	req.Equal(newer.Token, list[0].Token)
	req.Equal("Sam Seller", list[0].OtherUser.FullName)
	req.NotEmpty(list[0].OtherUser.AvatarURL)
	req.Len([]rune(list[0].LastMessage.Content), lastMessagePreviewRunes)
	req.False(list[0].LastMessage.IsMine)
	req.EqualValues(1, list[0].UnreadCount)

	req.NotNil(list[1].Listing)
	req.Equal("Sea view flat", list[1].Listing.Title)
	req.Nil(list[2].LastMessage)

	empty, err := f.convs.ListFor(ctx, 999)
	req.NoError(err)
	req.Empty(empty)
}

func TestArchive(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	conv, err := f.convs.FindOrCreate(ctx, buyerID, sellerID, nil, nil)
	req.NoError(err)

	req.ErrorIs(f.convs.Archive(ctx, conv.ID, otherID), ErrNotAParticipant)
	req.NoError(f.convs.Archive(ctx, conv.ID, sellerID))
	req.NoError(f.convs.Archive(ctx, conv.ID, buyerID))

	list, err := f.convs.ListFor(ctx, buyerID)
	req.NoError(err)
	req.Empty(list)

	_, err = f.messages.Append(ctx, conv.ID, buyerID, "anyone?", nil)
	req.ErrorIs(err, ErrConversationNotActive)

	// 归档后释放唯一键，可以重新开始
	fresh, err := f.convs.FindOrCreate(ctx, buyerID, sellerID, nil, nil)
	req.NoError(err)
	req.NotEqual(conv.ID, fresh.ID)
}

func TestResolveAndAuthorize(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, config.ChatConfig{})
	ctx := context.Background()

	conv, err := f.convs.FindOrCreate(ctx, buyerID, sellerID, nil, nil)
	req.NoError(err)

	byID, err := f.convs.Resolve(ctx, strconv.FormatUint(conv.ID, 10))
	req.NoError(err)
	req.Equal(conv.ID, byID.ID)

	byToken, err := f.convs.Resolve(ctx, strings.ToLower(conv.Token))
	req.NoError(err)
	req.Equal(conv.ID, byToken.ID)

	_, err = f.convs.Resolve(ctx, "not-a-ref")
	req.ErrorIs(err, ErrParamInvalid)
	_, err = f.convs.Resolve(ctx, "CONV-000000000000")
	req.ErrorIs(err, ErrConversationNotFound)

	authorized, err := f.convs.Authorize(ctx, conv.Token, sellerID)
	req.NoError(err)
	req.Equal(conv.ID, authorized.ID)

	_, err = f.convs.Authorize(ctx, conv.Token, otherID)
	req.ErrorIs(err, ErrNotAParticipant)
	_, err = f.convs.Authorize(ctx, "999999", buyerID)
	req.ErrorIs(err, ErrNotAParticipant)
	_, err = f.convs.Authorize(ctx, conv.Token, 0)
	req.ErrorIs(err, ErrNotAuthenticated)
}

func TestLookup(t *testing.T) {
	err := persistErr(context.Background(), "save message", errors.New("disk full"))
	sentinel, code, ok := Lookup(err)
	assert.True(t, ok)
	assert.Equal(t, ErrPersistence, sentinel)
	assert.Equal(t, InternalServerError, code)

	_, code, ok = Lookup(errors.New("boom"))
	assert.False(t, ok)
	assert.Equal(t, InternalServerError, code)
}

func TestToParticipantDTO(t *testing.T) {
	req := require.New(t)

	p, err := toParticipantDTO(sellerID, nil)
	req.NoError(err)
	req.Equal(sellerID, p.ID)
	req.Empty(p.Username)

	p, err = toParticipantDTO(sellerID, &model.User{ID: sellerID, Username: "sam"})
	req.NoError(err)
	req.Equal("sam", p.Username)
	req.Equal("sam", p.FullName)
	req.Equal(consts.DefaultAvatarURL, p.AvatarURL)
}

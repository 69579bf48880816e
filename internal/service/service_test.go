package service

import (
	"KoraChat/internal/api/config"
	"KoraChat/internal/model"
	"KoraChat/internal/repository"
	"KoraChat/internal/testutil"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

// stepClock 每次调用前进一秒，保证时间戳严格递增
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type fixture struct {
	db       *gorm.DB
	store    repository.Store
	convs    *conversationServiceImpl
	messages *messageServiceImpl
}

const (
	buyerID  uint64 = 101
	sellerID uint64 = 202
	otherID  uint64 = 303
)

func newFixture(t *testing.T, chatCfg config.ChatConfig) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.SeedUsers(t, db,
		&model.User{ID: buyerID, Username: "buyer", FullName: "Bella Buyer"},
		&model.User{ID: sellerID, Username: "seller", FullName: "Sam Seller"},
		&model.User{ID: otherID, Username: "stranger"},
	)

	clock := newStepClock()
	store := repository.NewStore(db, nil)
	userRepo := repository.NewUserRepo(db)
	listingRepo := repository.NewListingRepo(db)

	convs := NewConversationService(store, userRepo, listingRepo, NewLocalLocker()).(*conversationServiceImpl)
	convs.now = clock.Now
	messages := NewMessageService(store, userRepo, chatCfg).(*messageServiceImpl)
	messages.now = clock.Now

	return &fixture{db: db, store: store, convs: convs, messages: messages}
}

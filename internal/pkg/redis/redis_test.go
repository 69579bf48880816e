package redis

import (
	"KoraChat/internal/pkg/hub"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	mr := miniredis.RunT(t)
	Rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = Rdb.Close()
		Rdb = nil
	})
	return mr
}

func TestLockerMutualExclusion(t *testing.T) {
	req := require.New(t)
	setupMiniRedis(t)
	ctx := context.Background()

	first := NewLocker(5*time.Second, 0)
	unlock, err := first.Lock(ctx, "lock:conversation:create:l:1:2:3")
	req.NoError(err)

	_, err = first.Lock(ctx, "lock:conversation:create:l:1:2:3")
	req.ErrorIs(err, ErrLockTimeout)

	unlock()
	unlock2, err := first.Lock(ctx, "lock:conversation:create:l:1:2:3")
	req.NoError(err)
	unlock2()
}

func TestUnlockOnlyReleasesOwnToken(t *testing.T) {
	req := require.New(t)
	mr := setupMiniRedis(t)
	ctx := context.Background()

	ok, err := TryLock(ctx, "k", "owner", time.Minute, 0)
	req.NoError(err)
	req.True(ok)

	UnLock(ctx, "k", "intruder")
	v, err := mr.Get("k")
	req.NoError(err)
	req.Equal("owner", v)

	UnLock(ctx, "k", "owner")
	req.False(mr.Exists("k"))
}

func TestTryLockHonoursContext(t *testing.T) {
	req := require.New(t)
	setupMiniRedis(t)

	ok, err := TryLock(context.Background(), "busy", "a", time.Minute, 0)
	req.NoError(err)
	req.True(ok)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	ok, err = TryLock(ctx, "busy", "b", time.Minute, -1)
	req.False(ok)
	req.ErrorIs(err, context.DeadlineExceeded)
}

func TestIsTokenRevoked(t *testing.T) {
	req := require.New(t)
	Rdb = nil
	revoked, err := IsTokenRevoked(context.Background(), "auth:blacklist:sig")
	req.NoError(err)
	req.False(revoked)

	mr := setupMiniRedis(t)
	req.NoError(mr.Set("auth:blacklist:sig", "1"))
	revoked, err = IsTokenRevoked(context.Background(), "auth:blacklist:sig")
	req.NoError(err)
	req.True(revoked)
}

type chanEndpoint struct {
	id string
	ch chan hub.Event
}

func (e *chanEndpoint) ID() string { return e.id }
func (e *chanEndpoint) Deliver(ev hub.Event) bool {
	select {
	case e.ch <- ev:
		return true
	default:
		return false
	}
}
func (e *chanEndpoint) Evict() {}

func TestRelayFansOutAcrossInstances(t *testing.T) {
	req := require.New(t)
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newInstance := func() (*hub.Hub, *Relay) {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		h := hub.New(4)
		relay := NewRelay(rdb, h)
		h.SetBroker(relay)
		return h, relay
	}

	h1, r1 := newInstance()
	h2, r2 := newInstance()

	var wg sync.WaitGroup
	for _, r := range []*Relay{r1, r2} {
		ready := make(chan struct{})
		wg.Add(1)
		go func(r *Relay) {
			defer wg.Done()
			_ = r.Run(ctx, ready)
		}(r)
		<-ready
	}

	local := &chanEndpoint{id: "local", ch: make(chan hub.Event, 4)}
	remote := &chanEndpoint{id: "remote", ch: make(chan hub.Event, 4)}
	h1.Join(42, local)
	h2.Join(42, remote)

	req.NoError(h1.Publish(ctx, hub.Event{Kind: hub.KindTyping, ConversationID: 42, ActorID: 7, IsTyping: true}))

	for _, ep := range []*chanEndpoint{local, remote} {
		select {
		case ev := <-ep.ch:
			req.Equal(hub.KindTyping, ev.Kind)
			req.Equal(uint64(42), ev.ConversationID)
			req.Equal(uint64(7), ev.ActorID)
			req.True(ev.IsTyping)
		case <-time.After(2 * time.Second):
			t.Fatalf("endpoint %s did not receive relayed event", ep.id)
		}
	}

	cancel()
	wg.Wait()
}

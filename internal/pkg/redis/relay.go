package redis

import (
	"KoraChat/internal/pkg/consts"
	"KoraChat/internal/pkg/hub"
	"context"
	log "log/slog"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Relay 通过 Redis pub/sub 把事件转发给所有实例，每个实例收到后本地 Dispatch
type Relay struct {
	rdb *redis.Client
	h   *hub.Hub
}

func NewRelay(rdb *redis.Client, h *hub.Hub) *Relay {
	return &Relay{rdb: rdb, h: h}
}

func channelOf(convID uint64) string {
	return consts.IMConversationKey + strconv.FormatUint(convID, 10)
}

// Publish 实现 hub.Broker
func (r *Relay) Publish(ctx context.Context, ev hub.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, channelOf(ev.ConversationID), payload).Err()
}

// Run 订阅 im:conversation:* 直到 ctx 结束；ready 在订阅确认后关闭，可为 nil
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := r.rdb.PSubscribe(ctx, consts.IMConversationKey+"*")
	defer func() {
		_ = pubsub.Close()
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}
	log.Info("Redis relay subscribed", "pattern", consts.IMConversationKey+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info("Redis relay stopping...")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg)
		}
	}
}

func (r *Relay) handle(msg *redis.Message) {
	var ev hub.Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		log.Warn("relay drop malformed event", "channel", msg.Channel, "err", err)
		return
	}
	// 以频道为准，防止负载里的会话 ID 被篡改
	id, err := strconv.ParseUint(strings.TrimPrefix(msg.Channel, consts.IMConversationKey), 10, 64)
	if err != nil {
		log.Warn("relay drop event on unknown channel", "channel", msg.Channel)
		return
	}
	ev.ConversationID = id
	r.h.Dispatch(ev)
}

package hub

import (
	"context"

	"github.com/goccy/go-json"
)

type Kind string

const (
	KindMessage       Kind = "message"
	KindTyping        Kind = "typing"
	KindReadReceipt   Kind = "read_receipt"
	KindPresenceJoin  Kind = "presence_join"
	KindPresenceLeave Kind = "presence_leave"
)

// Event 会话内广播的事件，跨实例转发时整体序列化
type Event struct {
	Kind           Kind            `json:"kind"`
	ConversationID uint64          `json:"conversation_id"`
	ActorID        uint64          `json:"actor_id"`
	ActorName      string          `json:"actor_name,omitempty"`
	IsTyping       bool            `json:"is_typing,omitempty"`
	MessageID      uint64          `json:"message_id,omitempty"`
	Message        json.RawMessage `json:"message,omitempty"`
}

// Endpoint 加入房间的一端，通常是一个 websocket 会话
type Endpoint interface {
	ID() string
	// Deliver 不能阻塞，缓冲区满时返回 false
	Deliver(ev Event) bool
	// Evict 被 hub 踢出后调用一次
	Evict()
}

// Broker 决定 Publish 的事件如何到达各实例的 Dispatch
type Broker interface {
	Publish(ctx context.Context, ev Event) error
}

type localBroker struct {
	h *Hub
}

func (b localBroker) Publish(_ context.Context, ev Event) error {
	b.h.Dispatch(ev)
	return nil
}

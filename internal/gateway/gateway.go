// Package gateway 把 websocket 连接接入会话房间
package gateway

import (
	"KoraChat/internal/api/config"
	"KoraChat/internal/model"
	"KoraChat/internal/pkg/hub"
	"KoraChat/internal/service"
	"context"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const defaultSendBuffer = 64

// Identity 已通过 JWT 校验的用户
type Identity struct {
	UserID   uint64
	Username string
}

type Gateway struct {
	hub        *hub.Hub
	convs      service.ConversationService
	messages   service.MessageService
	sendBuffer int
}

func New(h *hub.Hub, convs service.ConversationService, messages service.MessageService, cfg config.ChatConfig) *Gateway {
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Gateway{hub: h, convs: convs, messages: messages, sendBuffer: sendBuffer}
}

// NewSession identity 为 nil 表示未登录，在 Authorize 时拒绝
func (g *Gateway) NewSession(identity *Identity, ref string) *Session {
	return &Session{
		id:       uuid.NewString(),
		gw:       g,
		identity: identity,
		ref:      ref,
		send:     make(chan []byte, g.sendBuffer),
		done:     make(chan struct{}),
	}
}

// PublishMessage 新消息广播到会话房间，REST 发送也走这里
func (g *Gateway) PublishMessage(ctx context.Context, msg *model.Message, senderName string) error {
	payload, err := json.Marshal(g.messages.ToDTO(msg, senderName))
	if err != nil {
		return err
	}
	return g.hub.Publish(ctx, hub.Event{
		Kind:           hub.KindMessage,
		ConversationID: msg.ConversationID,
		ActorID:        msg.SenderID,
		ActorName:      senderName,
		MessageID:      msg.ID,
		Message:        payload,
	})
}

// Stats 本实例房间统计
func (g *Gateway) Stats() hub.Stats {
	return g.hub.Stats()
}

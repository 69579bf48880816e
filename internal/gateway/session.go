package gateway

import (
	"KoraChat/internal/model"
	"KoraChat/internal/pkg/hub"
	"KoraChat/internal/pkg/logger"
	"KoraChat/internal/service"
	"context"
	"errors"
	log "log/slog"
	"sync"
	"sync/atomic"
)

// Session 单个 websocket 连接，一个读协程一个写协程
type Session struct {
	id       string
	gw       *Gateway
	identity *Identity
	ref      string

	state     atomic.Int32
	conv      *model.Conversation
	name      string // 消息的 sender_name，优先全名
	transport Transport

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

// Conversation Authorize 成功后有值
func (s *Session) Conversation() *model.Conversation { return s.conv }

// Authorize 校验身份与会话参与者，失败后会话直接关闭
func (s *Session) Authorize(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateAuthorizing)) {
		return service.ErrNotAuthenticated
	}
	if s.identity == nil || s.identity.UserID == 0 {
		s.close()
		return service.ErrNotAuthenticated
	}
	conv, err := s.gw.convs.Authorize(ctx, s.ref, s.identity.UserID)
	if err != nil {
		s.close()
		return err
	}
	s.conv = conv
	s.name = s.gw.messages.DisplayName(ctx, s.identity.UserID, s.identity.Username)
	return nil
}

// Serve 加入房间并阻塞到连接断开
func (s *Session) Serve(ctx context.Context, t Transport) error {
	if s.State() == StateConnecting {
		if err := s.Authorize(ctx); err != nil {
			_ = t.Close()
			return err
		}
	}
	s.transport = t
	if !s.state.CompareAndSwap(int32(StateAuthorizing), int32(StateJoined)) {
		_ = t.Close()
		return service.ErrNotAuthenticated
	}

	ctx = logger.WithConnID(ctx, s.id)
	convID := s.conv.ID
	s.gw.hub.Join(convID, s)
	log.InfoContext(ctx, "ws session joined", "conversation_id", convID, "user_id", s.identity.UserID)
	s.publish(ctx, hub.Event{Kind: hub.KindPresenceJoin})

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.writePump(ctx)
	}()

	s.readLoop(ctx)

	s.gw.hub.Leave(convID, s)
	s.publish(context.WithoutCancel(ctx), hub.Event{Kind: hub.KindPresenceLeave})
	s.close()
	<-pumpDone
	log.InfoContext(ctx, "ws session closed", "conversation_id", convID, "user_id", s.identity.UserID)
	return nil
}

// Deliver hub 投递入口，不阻塞；自己的输入状态与上下线不回显
func (s *Session) Deliver(ev hub.Event) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	if s.identity != nil && ev.ActorID == s.identity.UserID {
		switch ev.Kind {
		case hub.KindTyping, hub.KindPresenceJoin, hub.KindPresenceLeave:
			return true
		}
	}
	data, err := EncodeEvent(ev)
	if err != nil {
		log.Warn("encode event failed", "conn_id", s.id, "err", err)
		return true
	}
	return s.enqueue(data)
}

// Evict 被 hub 踢出，关闭连接让读循环退出
func (s *Session) Evict() {
	log.Warn("ws session evicted", "conn_id", s.id)
	s.close()
}

func (s *Session) enqueue(data []byte) bool {
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) reply(ctx context.Context, data []byte) {
	if !s.enqueue(data) {
		log.WarnContext(ctx, "ws reply dropped, send buffer full")
	}
}

func (s *Session) replyError(ctx context.Context, err error) {
	log.InfoContext(ctx, "ws frame rejected", "err", err)
	s.reply(ctx, encodeError(err))
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		close(s.done)
		if s.transport != nil {
			_ = s.transport.Close()
		}
	})
}

func (s *Session) writePump(ctx context.Context) {
	for {
		select {
		case data := <-s.send:
			if err := s.transport.WriteFrame(data); err != nil {
				log.InfoContext(ctx, "ws write failed", "err", err)
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) readLoop(ctx context.Context) {
	for {
		data, err := s.transport.ReadFrame()
		if err != nil {
			return
		}
		frame, err := ParseFrame(data)
		if err != nil {
			s.replyError(ctx, err)
			continue
		}
		s.handle(ctx, frame)
	}
}

func (s *Session) handle(ctx context.Context, frame Inbound) {
	userID := s.identity.UserID
	switch f := frame.(type) {
	case ChatMessageFrame:
		var attachment *service.Attachment
		if f.AttachmentKey != "" {
			attachment = &service.Attachment{Key: f.AttachmentKey, Type: f.AttachmentType}
		}
		msg, err := s.gw.messages.Append(ctx, s.conv.ID, userID, f.Message, attachment)
		if err != nil {
			s.replyError(ctx, err)
			return
		}
		if err := s.gw.PublishMessage(ctx, msg, s.name); err != nil {
			log.ErrorContext(ctx, "publish message failed", "message_id", msg.ID, "err", err)
		}

	case TypingFrame:
		s.publish(ctx, hub.Event{Kind: hub.KindTyping, IsTyping: f.IsTyping})

	case ReadReceiptFrame:
		msg, err := s.gw.messages.Get(ctx, f.MessageID)
		if err == nil && msg.ConversationID != s.conv.ID {
			err = service.ErrMessageNotFound
		}
		if err != nil {
			s.replyError(ctx, err)
			return
		}
		if msg.SenderID == userID {
			return
		}
		if _, err := s.gw.messages.MarkRead(ctx, msg.ID, userID); err != nil {
			s.replyError(ctx, err)
			return
		}
		s.publish(ctx, hub.Event{Kind: hub.KindReadReceipt, MessageID: msg.ID})

	case PingFrame:
		s.reply(ctx, encodePong())
	}
}

// username 输入状态与上下线帧使用登录名，全名只出现在消息上
func (s *Session) username() string {
	if s.identity.Username != "" {
		return s.identity.Username
	}
	return s.name
}

// publish 以本会话身份广播
func (s *Session) publish(ctx context.Context, ev hub.Event) {
	ev.ConversationID = s.conv.ID
	ev.ActorID = s.identity.UserID
	ev.ActorName = s.username()
	if err := s.gw.hub.Publish(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "hub publish failed", "kind", ev.Kind, "err", err)
	}
}

package gateway

import (
	"KoraChat/internal/pkg/hub"
	"KoraChat/internal/service"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	FrameChatMessage = "chat_message"
	FrameTyping      = "typing"
	FrameReadReceipt = "read_receipt"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameUserJoin    = "user_join"
	FrameUserLeave   = "user_leave"
	FrameError       = "error"
)

var validate = validator.New()

// Inbound 客户端上行帧，只有下面四种
type Inbound interface {
	frameType() string
}

type ChatMessageFrame struct {
	Message        string `json:"message"`
	AttachmentKey  string `json:"attachment_key" validate:"omitempty,max=255"`
	AttachmentType string `json:"attachment_type" validate:"omitempty,oneof=image document"`
}

type TypingFrame struct {
	IsTyping bool `json:"is_typing"`
}

type ReadReceiptFrame struct {
	MessageID uint64 `json:"message_id" validate:"required"`
}

type PingFrame struct{}

func (ChatMessageFrame) frameType() string { return FrameChatMessage }
func (TypingFrame) frameType() string      { return FrameTyping }
func (ReadReceiptFrame) frameType() string { return FrameReadReceipt }
func (PingFrame) frameType() string        { return FramePing }

type envelope struct {
	Type *string `json:"type"`
}

// ParseFrame 解析上行帧，缺少 type 时按 chat_message 处理 (市场前端的旧版本不带 type)
func ParseFrame(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrMalformedFrame, err)
	}

	frameType := FrameChatMessage
	if env.Type != nil {
		frameType = *env.Type
	}

	var frame Inbound
	switch frameType {
	case FrameChatMessage:
		var f ChatMessageFrame
		if err := decodeFrame(data, &f); err != nil {
			return nil, err
		}
		frame = f
	case FrameTyping:
		var f TypingFrame
		if err := decodeFrame(data, &f); err != nil {
			return nil, err
		}
		frame = f
	case FrameReadReceipt:
		var f ReadReceiptFrame
		if err := decodeFrame(data, &f); err != nil {
			return nil, err
		}
		frame = f
	case FramePing:
		frame = PingFrame{}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", service.ErrMalformedFrame, frameType)
	}
	return frame, nil
}

func decodeFrame(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrMalformedFrame, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrMalformedFrame, err)
	}
	return nil
}

// 下行帧

type chatMessageOut struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

type typingOut struct {
	Type     string `json:"type"`
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

type readReceiptOut struct {
	Type      string `json:"type"`
	MessageID uint64 `json:"message_id"`
	ReadBy    uint64 `json:"read_by"`
}

type presenceOut struct {
	Type     string `json:"type"`
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
}

type simpleOut struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// EncodeEvent hub 事件转换为下行帧
func EncodeEvent(ev hub.Event) ([]byte, error) {
	switch ev.Kind {
	case hub.KindMessage:
		return json.Marshal(chatMessageOut{Type: FrameChatMessage, Message: ev.Message})
	case hub.KindTyping:
		return json.Marshal(typingOut{Type: FrameTyping, UserID: ev.ActorID, Username: ev.ActorName, IsTyping: ev.IsTyping})
	case hub.KindReadReceipt:
		return json.Marshal(readReceiptOut{Type: FrameReadReceipt, MessageID: ev.MessageID, ReadBy: ev.ActorID})
	case hub.KindPresenceJoin:
		return json.Marshal(presenceOut{Type: FrameUserJoin, UserID: ev.ActorID, Username: ev.ActorName})
	case hub.KindPresenceLeave:
		return json.Marshal(presenceOut{Type: FrameUserLeave, UserID: ev.ActorID, Username: ev.ActorName})
	default:
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func encodePong() []byte {
	data, _ := json.Marshal(simpleOut{Type: FramePong})
	return data
}

// encodeError 只下发业务错误文案，其余一律按存储失败处理
func encodeError(err error) []byte {
	text := service.ErrPersistence.Error()
	if sentinel, _, ok := service.Lookup(err); ok {
		text = sentinel.Error()
	}
	data, _ := json.Marshal(simpleOut{Type: FrameError, Message: text})
	return data
}

package gateway

import (
	"KoraChat/internal/pkg/hub"
	"KoraChat/internal/service"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Inbound
		err  bool
	}{
		{name: "chat message", in: `{"type":"chat_message","message":"hi"}`, want: ChatMessageFrame{Message: "hi"}},
		{name: "missing type defaults to chat", in: `{"message":"hello"}`, want: ChatMessageFrame{Message: "hello"}},
		{name: "typing", in: `{"type":"typing","is_typing":true}`, want: TypingFrame{IsTyping: true}},
		{name: "read receipt", in: `{"type":"read_receipt","message_id":12}`, want: ReadReceiptFrame{MessageID: 12}},
		{name: "ping", in: `{"type":"ping"}`, want: PingFrame{}},
		{name: "unknown type", in: `{"type":"video_call"}`, err: true},
		{name: "not json", in: `hello`, err: true},
		{name: "read receipt without id", in: `{"type":"read_receipt"}`, err: true},
		{name: "wrong field type", in: `{"type":"chat_message","message":42}`, err: true},
		{name: "bad attachment type", in: `{"message":"x","attachment_key":"a","attachment_type":"video"}`, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrame([]byte(tt.in))
			if tt.err {
				assert.ErrorIs(t, err, service.ErrMalformedFrame)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	req := require.New(t)

	data, err := EncodeEvent(hub.Event{Kind: hub.KindTyping, ActorID: 3, ActorName: "amy", IsTyping: false})
	req.NoError(err)
	req.JSONEq(`{"type":"typing","user_id":3,"username":"amy","is_typing":false}`, string(data))

	data, err = EncodeEvent(hub.Event{Kind: hub.KindReadReceipt, ActorID: 4, MessageID: 9})
	req.NoError(err)
	req.JSONEq(`{"type":"read_receipt","message_id":9,"read_by":4}`, string(data))

	data, err = EncodeEvent(hub.Event{Kind: hub.KindPresenceLeave, ActorID: 4, ActorName: "bob"})
	req.NoError(err)
	req.JSONEq(`{"type":"user_leave","user_id":4,"username":"bob"}`, string(data))

	data, err = EncodeEvent(hub.Event{Kind: hub.KindMessage, Message: json.RawMessage(`{"id":1,"content":"x"}`)})
	req.NoError(err)
	req.JSONEq(`{"type":"chat_message","message":{"id":1,"content":"x"}}`, string(data))

	_, err = EncodeEvent(hub.Event{Kind: "bogus"})
	req.Error(err)

	req.JSONEq(`{"type":"error","message":"temporary failure, please retry"}`, string(encodeError(assert.AnError)))
	req.JSONEq(`{"type":"error","message":"message cannot be empty"}`, string(encodeError(service.ErrEmptyMessage)))
	req.JSONEq(`{"type":"pong"}`, string(encodePong()))
}

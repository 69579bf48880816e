package api

import (
	"KoraChat/internal/api/config"
	"KoraChat/internal/api/dto"
	"KoraChat/internal/api/handler"
	"KoraChat/internal/gateway"
	"KoraChat/internal/model"
	"KoraChat/internal/pkg/hub"
	"KoraChat/internal/pkg/security"
	"KoraChat/internal/repository"
	"KoraChat/internal/service"
	"KoraChat/internal/testutil"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const (
	buyerID  uint64 = 1
	sellerID uint64 = 2
	otherID  uint64 = 3
)

type testServer struct {
	router *gin.Engine
	hub    *hub.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	testutil.SeedUsers(t, db,
		&model.User{ID: buyerID, Username: "bella", FullName: "Bella Buyer"},
		&model.User{ID: sellerID, Username: "sam", FullName: "Sam Seller"},
		&model.User{ID: otherID, Username: "olly"},
	)
	testutil.SeedListing(t, db, &model.Listing{ID: 50, OwnerID: sellerID, Title: "Canal house"})

	chatCfg := config.ChatConfig{RoomURLPrefix: "/chat/"}
	store := repository.NewStore(db, nil)
	userRepo := repository.NewUserRepo(db)
	convSvc := service.NewConversationService(store, userRepo, repository.NewListingRepo(db), service.NewLocalLocker())
	msgSvc := service.NewMessageService(store, userRepo, chatCfg)
	h := hub.New(4)
	gw := gateway.New(h, convSvc, msgSvc, chatCfg)

	router := SetupRouter(&HandlersGroup{
		ChatHandler: handler.NewChatHandler(convSvc, msgSvc, gw, chatCfg),
		WsHandler:   handler.NewWsHandler(gw, nil),
	}, nil)
	return &testServer{router: router, hub: h}
}

func token(t *testing.T, userID uint64, roles ...string) string {
	t.Helper()
	tok, err := security.GenerateToken(userID, fmt.Sprintf("user%d", userID), roles)
	require.NoError(t, err)
	return tok
}

// do 发起请求并解析统一响应
func (s *testServer) do(t *testing.T, method, path, tok string, body any, headers ...string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	if tok != "" {
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)

	var resp dto.Response
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func TestPingAndAuth(t *testing.T) {
	s := newTestServer(t)

	_, resp := s.do(t, http.MethodGet, "/api/ping", "", nil)
	require.Equal(t, 200, resp.Code)

	_, resp = s.do(t, http.MethodGet, "/api/chat/conversations", "", nil)
	require.Equal(t, 401, resp.Code)

	_, resp = s.do(t, http.MethodGet, "/api/chat/conversations", "not.a.jwt", nil)
	require.Equal(t, 401, resp.Code)

	_, resp = s.do(t, http.MethodGet, "/api/chat/conversations", token(t, buyerID), nil)
	require.Equal(t, 200, resp.Code)
	require.Empty(t, resp.Data)
}

func TestStartConversation(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	buyer := token(t, buyerID)

	_, resp := s.do(t, http.MethodPost, "/api/chat/start/listing/50", buyer, nil, "X-Requested-With", "XMLHttpRequest")
	req.Equal(200, resp.Code)
	data := dataMap(t, resp)
	convID := uint64(data["conversation_id"].(float64))
	req.Equal(fmt.Sprintf("/chat/%d/", convID), data["redirect_url"])
	req.True(strings.HasPrefix(data["token"].(string), "CONV-"))

	w, _ := s.do(t, http.MethodPost, "/api/chat/start/listing/50", buyer, nil)
	req.Equal(http.StatusFound, w.Code)
	req.Equal(fmt.Sprintf("/chat/%d/", convID), w.Header().Get("Location"))

	_, resp = s.do(t, http.MethodPost, "/api/chat/start/listing/50", token(t, sellerID), nil, "X-Requested-With", "XMLHttpRequest")
	req.Equal(400, resp.Code)
	req.Equal("cannot start a conversation with yourself", resp.Message)

	_, resp = s.do(t, http.MethodPost, "/api/chat/start/listing/404", buyer, nil, "X-Requested-With", "XMLHttpRequest")
	req.Equal(404, resp.Code)

	_, resp = s.do(t, http.MethodPost, "/api/chat/start/user/abc", buyer, nil)
	req.Equal(400, resp.Code)

	_, resp = s.do(t, http.MethodPost, "/api/chat/start/user/3", buyer, nil, "X-Requested-With", "XMLHttpRequest")
	req.Equal(200, resp.Code)
	req.NotEqual(convID, uint64(dataMap(t, resp)["conversation_id"].(float64)))
}

func TestRestMessageFlow(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	buyer, seller, stranger := token(t, buyerID), token(t, sellerID), token(t, otherID)

	_, resp := s.do(t, http.MethodPost, "/api/chat/start/listing/50", buyer, nil, "X-Requested-With", "XMLHttpRequest")
	convID := uint64(dataMap(t, resp)["conversation_id"].(float64))
	base := fmt.Sprintf("/api/chat/conversations/%d", convID)

	_, resp = s.do(t, http.MethodPost, base+"/messages", buyer, map[string]string{"message": "Is this still available?"})
	req.Equal(200, resp.Code)
	sent := dataMap(t, resp)
	req.Equal("Is this still available?", sent["content"])
	req.Equal("Bella Buyer", sent["sender_name"])
	msgID := uint64(sent["id"].(float64))

	_, resp = s.do(t, http.MethodPost, base+"/messages", buyer, map[string]string{"message": "   "})
	req.Equal(400, resp.Code)
	req.Equal("message cannot be empty", resp.Message)

	_, resp = s.do(t, http.MethodPost, base+"/messages", buyer, map[string]string{"message": "x", "attachment_key": "k", "attachment_type": "video"})
	req.Equal(400, resp.Code)

	_, resp = s.do(t, http.MethodGet, "/api/chat/unread", seller, nil)
	req.Equal(200, resp.Code)
	req.EqualValues(1, dataMap(t, resp)["total_unread"])

	_, resp = s.do(t, http.MethodGet, "/api/chat/unread", buyer, nil)
	req.EqualValues(0, dataMap(t, resp)["total_unread"])

	_, resp = s.do(t, http.MethodGet, "/api/chat/conversations", seller, nil)
	list := resp.Data.([]any)
	req.Len(list, 1)
	item := list[0].(map[string]any)
	req.EqualValues(1, item["unread_count"])
	req.Equal("Bella Buyer", item["other_user"].(map[string]any)["full_name"])
	req.Equal("Canal house", item["listing"].(map[string]any)["title"])

	_, resp = s.do(t, http.MethodGet, base+"/messages?limit=10", seller, nil)
	req.Equal(200, resp.Code)
	page := dataMap(t, resp)
	req.Len(page["messages"], 1)
	req.Equal(false, page["has_more"])

	_, resp = s.do(t, http.MethodGet, base+"/messages", stranger, nil)
	req.Equal(403, resp.Code)

	_, resp = s.do(t, http.MethodPost, base+"/read", seller, nil)
	req.Equal(200, resp.Code)
	_, resp = s.do(t, http.MethodGet, "/api/chat/unread", seller, nil)
	req.EqualValues(0, dataMap(t, resp)["total_unread"])

	_, resp = s.do(t, http.MethodDelete, fmt.Sprintf("/api/chat/messages/%d", msgID), seller, nil)
	req.Equal(403, resp.Code)
	_, resp = s.do(t, http.MethodDelete, fmt.Sprintf("/api/chat/messages/%d", msgID), buyer, nil)
	req.Equal(200, resp.Code)
	req.Equal(model.DeletedPlaceholder, dataMap(t, resp)["content"])

	_, resp = s.do(t, http.MethodPost, base+"/archive", stranger, nil)
	req.Equal(403, resp.Code)
	_, resp = s.do(t, http.MethodPost, base+"/archive", buyer, nil)
	req.Equal(200, resp.Code)
	_, resp = s.do(t, http.MethodPost, base+"/messages", buyer, map[string]string{"message": "hello?"})
	req.Equal(400, resp.Code)
	req.Equal("conversation is not active", resp.Message)
}

func TestAdminHubStats(t *testing.T) {
	s := newTestServer(t)

	_, resp := s.do(t, http.MethodGet, "/api/chat/admin/hub", token(t, buyerID), nil)
	require.Equal(t, 403, resp.Code)

	_, resp = s.do(t, http.MethodGet, "/api/chat/admin/hub", token(t, otherID, "ADMIN"), nil)
	require.Equal(t, 200, resp.Code)
	require.Contains(t, dataMap(t, resp), "rooms")
}

func TestWebsocketEndToEnd(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	_, resp := s.do(t, http.MethodPost, "/api/chat/start/listing/50", token(t, buyerID), nil, "X-Requested-With", "XMLHttpRequest")
	data := dataMap(t, resp)
	convID := uint64(data["conversation_id"].(float64))
	convToken := data["token"].(string)
	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/"

	// 未登录与非参与者在升级前被拒绝
	_, httpResp, err := websocket.DefaultDialer.Dial(wsBase+convToken, nil)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusOK, httpResp.StatusCode)
	_ = httpResp.Body.Close()

	_, httpResp, err = websocket.DefaultDialer.Dial(wsBase+convToken+"?token="+token(t, otherID), nil)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	_ = httpResp.Body.Close()

	seller, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s%d?token=%s", wsBase, convID, token(t, sellerID)), nil)
	req.NoError(err)
	defer seller.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token(t, buyerID))
	buyer, _, err := websocket.DefaultDialer.Dial(wsBase+convToken, header)
	req.NoError(err)
	defer buyer.Close()

	req.Eventually(func() bool { return s.hub.Members(convID) == 2 }, 2*time.Second, 5*time.Millisecond)

	readFrame := func(conn *websocket.Conn) map[string]any {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		req.NoError(err)
		var frame map[string]any
		req.NoError(json.Unmarshal(payload, &frame))
		return frame
	}

	join := readFrame(seller)
	req.Equal("user_join", join["type"])
	req.EqualValues(buyerID, join["user_id"])

	req.NoError(buyer.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat_message","message":"hi from the socket"}`)))
	for _, conn := range []*websocket.Conn{buyer, seller} {
		frame := readFrame(conn)
		req.Equal("chat_message", frame["type"])
		req.Equal("hi from the socket", frame["message"].(map[string]any)["content"])
	}

	// REST 发送的消息同样推送给在线会话
	_, resp = s.do(t, http.MethodPost, fmt.Sprintf("/api/chat/conversations/%d/messages", convID), token(t, sellerID), map[string]string{"message": "replying over REST"})
	req.Equal(200, resp.Code)
	frame := readFrame(buyer)
	req.Equal("chat_message", frame["type"])
	req.Equal("Sam Seller", frame["message"].(map[string]any)["sender_name"])

	req.NoError(seller.Close())
	leave := readFrame(buyer)
	req.Equal("user_leave", leave["type"])
	req.EqualValues(sellerID, leave["user_id"])
}

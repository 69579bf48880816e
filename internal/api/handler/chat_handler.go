package handler

import (
	"KoraChat/internal/api/config"
	"KoraChat/internal/api/dto"
	"KoraChat/internal/gateway"
	"KoraChat/internal/model"
	"KoraChat/internal/pkg/consts"
	"KoraChat/internal/pkg/response"
	"KoraChat/internal/service"
	log "log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	convSvc       service.ConversationService
	msgSvc        service.MessageService
	gw            *gateway.Gateway
	roomURLPrefix string
}

func NewChatHandler(convSvc service.ConversationService, msgSvc service.MessageService, gw *gateway.Gateway, cfg config.ChatConfig) *ChatHandler {
	prefix := cfg.RoomURLPrefix
	if prefix == "" {
		prefix = "/chat/"
	}
	return &ChatHandler{convSvc: convSvc, msgSvc: msgSvc, gw: gw, roomURLPrefix: prefix}
}

func (s *ChatHandler) GetConversationList(c *gin.Context) {
	userID := c.GetUint64(consts.UserIDKey)
	list, err := s.convSvc.ListFor(c, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *ChatHandler) GetUnread(c *gin.Context) {
	userID := c.GetUint64(consts.UserIDKey)
	summary, err := s.convSvc.UnreadSummary(c, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

// GetMessages 历史消息，before 为空时从最新一条开始
func (s *ChatHandler) GetMessages(c *gin.Context) {
	var req dto.HistoryReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	conv, ok := s.authorize(c)
	if !ok {
		return
	}
	page, err := s.msgSvc.History(c, conv.ID, req.Before, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// SendMessage REST 发送，在线的 websocket 会话同样会收到
func (s *ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	conv, ok := s.authorize(c)
	if !ok {
		return
	}

	userID := c.GetUint64(consts.UserIDKey)
	var attachment *service.Attachment
	if req.AttachmentKey != "" {
		attachment = &service.Attachment{Key: req.AttachmentKey, Type: req.AttachmentType}
	}
	msg, err := s.msgSvc.Append(c, conv.ID, userID, req.Message, attachment)
	if err != nil {
		response.Error(c, err)
		return
	}

	name := s.msgSvc.DisplayName(c, userID, c.GetString(consts.UsernameKey))
	if err := s.gw.PublishMessage(c.Request.Context(), msg, name); err != nil {
		log.ErrorContext(c.Request.Context(), "publish message failed", "message_id", msg.ID, "err", err)
	}
	response.Success(c, s.msgSvc.ToDTO(msg, name))
}

func (s *ChatHandler) MarkRead(c *gin.Context) {
	conv, ok := s.authorize(c)
	if !ok {
		return
	}
	if err := s.convSvc.MarkRead(c, conv.ID, c.GetUint64(consts.UserIDKey)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ChatHandler) Archive(c *gin.Context) {
	conv, ok := s.authorize(c)
	if !ok {
		return
	}
	if err := s.convSvc.Archive(c, conv.ID, c.GetUint64(consts.UserIDKey)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ChatHandler) DeleteMessage(c *gin.Context) {
	msgID, err := strconv.ParseUint(c.Param("message_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	msg, err := s.msgSvc.SoftDelete(c, msgID, c.GetUint64(consts.UserIDKey))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.msgSvc.ToDTO(msg, c.GetString(consts.UsernameKey)))
}

func (s *ChatHandler) StartByListing(c *gin.Context) {
	listingID, ok := parseID(c, "listing_id")
	if !ok {
		return
	}
	conv, err := s.convSvc.StartByListing(c, c.GetUint64(consts.UserIDKey), listingID)
	s.respondStart(c, conv, err)
}

func (s *ChatHandler) StartDirect(c *gin.Context) {
	otherID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	conv, err := s.convSvc.StartDirect(c, c.GetUint64(consts.UserIDKey), otherID)
	s.respondStart(c, conv, err)
}

func (s *ChatHandler) StartByInquiry(c *gin.Context) {
	inquiryID, ok := parseID(c, "inquiry_id")
	if !ok {
		return
	}
	conv, err := s.convSvc.StartByInquiry(c, c.GetUint64(consts.UserIDKey), inquiryID)
	s.respondStart(c, conv, err)
}

// GetHubStats 运维查看本实例在线情况
func (s *ChatHandler) GetHubStats(c *gin.Context) {
	response.Success(c, s.gw.Stats())
}

// respondStart Ajax 请求返回 JSON，页面跳转请求直接重定向到聊天室
func (s *ChatHandler) respondStart(c *gin.Context, conv *model.Conversation, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	redirectURL := s.roomURLPrefix + strconv.FormatUint(conv.ID, 10) + "/"
	if c.GetHeader(consts.HeaderRequestedWith) == consts.XMLHttpRequest {
		response.Success(c, &dto.StartConversationDTO{
			ConversationID: conv.ID,
			Token:          conv.Token,
			RedirectURL:    redirectURL,
		})
		return
	}
	c.Redirect(http.StatusFound, redirectURL)
}

// authorize 解析路径中的会话并校验参与者
func (s *ChatHandler) authorize(c *gin.Context) (*model.Conversation, bool) {
	conv, err := s.convSvc.Authorize(c, c.Param("conversation_id"), c.GetUint64(consts.UserIDKey))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return conv, true
}

func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, service.ErrParamInvalid)
		return 0, false
	}
	return id, true
}

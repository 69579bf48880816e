package handler

import (
	"KoraChat/internal/api/middleware"
	"KoraChat/internal/gateway"
	"KoraChat/internal/pkg/consts"
	"KoraChat/internal/pkg/response"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WsHandler struct {
	gw       *gateway.Gateway
	upgrader websocket.Upgrader
}

func NewWsHandler(gw *gateway.Gateway, allowOrigins []string) *WsHandler {
	return &WsHandler{
		gw: gw,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(allowOrigins, origin)
			},
		},
	}
}

// Connect 鉴权与参与者校验都在升级前完成，失败时返回普通 JSON 响应
func (s *WsHandler) Connect(c *gin.Context) {
	var identity *gateway.Identity
	if userID := c.GetUint64(consts.UserIDKey); userID != 0 {
		identity = &gateway.Identity{UserID: userID, Username: c.GetString(consts.UsernameKey)}
	}

	ctx := c.Request.Context()
	session := s.gw.NewSession(identity, c.Param("conversation_id"))
	if err := session.Authorize(ctx); err != nil {
		log.WarnContext(ctx, "ws authorize failed", "err", err)
		response.Error(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(ctx, "ws upgrade failed", "err", err)
		return
	}
	if err := session.Serve(ctx, gateway.NewWebsocketTransport(conn)); err != nil {
		log.WarnContext(ctx, "ws session ended with error", "err", err)
	}
}

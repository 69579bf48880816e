package api

import (
	"KoraChat/internal/api/middleware"
	"KoraChat/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup, allowOrigins []string) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware(allowOrigins))
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		chatGroup := apiGroup.Group("/chat")
		chatGroup.Use(middleware.AuthMiddleware())
		{
			chatGroup.GET("/conversations", group.ChatHandler.GetConversationList)
			chatGroup.GET("/unread", group.ChatHandler.GetUnread)
			chatGroup.GET("/conversations/:conversation_id/messages", group.ChatHandler.GetMessages)
			chatGroup.POST("/conversations/:conversation_id/messages", group.ChatHandler.SendMessage)
			chatGroup.POST("/conversations/:conversation_id/read", group.ChatHandler.MarkRead)
			chatGroup.POST("/conversations/:conversation_id/archive", group.ChatHandler.Archive)
			chatGroup.DELETE("/messages/:message_id", group.ChatHandler.DeleteMessage)

			chatGroup.POST("/start/listing/:listing_id", group.ChatHandler.StartByListing)
			chatGroup.POST("/start/user/:user_id", group.ChatHandler.StartDirect)
			chatGroup.POST("/start/inquiry/:inquiry_id", group.ChatHandler.StartByInquiry)

			// 需要登录 & 拥有 admin 角色
			adminGroup := chatGroup.Group("/admin")
			adminGroup.Use(middleware.CheckRoles("ADMIN"))
			{
				adminGroup.GET("/hub", group.ChatHandler.GetHubStats)
			}
		}
	}

	wsGroup := r.Group("/ws")
	wsGroup.Use(middleware.WsAuthMiddleware())
	{
		wsGroup.GET("/chat/:conversation_id", group.WsHandler.Connect)
	}

	return r
}

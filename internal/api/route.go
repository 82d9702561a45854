package api

import (
	"Haven/internal/api/middleware"
	"Haven/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		counselGroup := apiGroup.Group("/counsel")
		{
			// 实时连接在握手阶段自行鉴权
			counselGroup.GET("/ws", group.WSHandler.Connect)

			authGroup := counselGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.GET("/threads", group.ThreadHandler.ListThreads)
				authGroup.POST("/threads", group.ThreadHandler.OpenThread)
				authGroup.GET("/threads/:thread_id", group.ThreadHandler.GetThread)
				authGroup.POST("/threads/:thread_id/messages", group.ThreadHandler.SendMessage)
				authGroup.GET("/threads/:thread_id/messages", group.ThreadHandler.GetHistory)
				authGroup.POST("/threads/:thread_id/read", group.ThreadHandler.MarkRead)
				authGroup.POST("/threads/:thread_id/close", group.ThreadHandler.CloseThread)
			}
		}
	}

	return r
}

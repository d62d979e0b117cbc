package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(
	mode string,
	allowedOrigins []string,
	tokens TokenValidator,
	gameHandler *GameHandler,
	historyHandler *HistoryHandler,
) *gin.Engine {
	gin.SetMode(mode)

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(Logger())
	r.Use(CORS(allowedOrigins))

	// API v1，全部需要认证
	v1 := r.Group("/api/v1")
	v1.Use(JWTAuth(tokens))
	{
		games := v1.Group("/games")
		{
			games.POST("", gameHandler.CreateGame)
			games.GET("/:id/state", gameHandler.GetState)
			games.GET("/:id/hand", gameHandler.GetHand)
		}

		me := v1.Group("/users/me")
		{
			me.GET("/history", historyHandler.ListHistory)
			me.GET("/stats", historyHandler.GetStats)
		}
	}

	return r
}

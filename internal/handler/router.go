package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"playportal/internal/config"
)

func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()
	r.Use(RequestLogMiddleware(), RecoveryMiddleware(), CORSMiddleware())

	h := NewHandler(db, rdb, cfg)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.GET("/games", h.ListGames)
		api.GET("/rewards", h.ListRewards)

		user := api.Group("", AuthRequired())
		{
			user.GET("/games/:slug/status", h.GameStatus)
			user.GET("/games/:slug/scores", h.ListScores)
			user.GET("/wallet", h.GetWallet)
			user.GET("/wallet/transactions", h.ListTransactions)
			user.GET("/wallet/transactions/:no", h.GetTransaction)
			user.GET("/redemptions", h.ListRedemptions)

			mutating := user.Group("", CSRFVerify())
			{
				mutating.POST("/games/:slug/session", h.StartSession)
				mutating.POST("/games/:slug/score", h.SubmitScore)
				mutating.POST("/rewards/:id/redeem", h.Redeem)
				mutating.POST("/redemptions/:id/cancel", h.CancelRedemption)
			}
		}

		admin := api.Group("/admin", AdminRequired())
		{
			admin.GET("/redemptions", h.AdminListRedemptions)
			admin.POST("/redemptions/:id/approve", h.AdminApprove)
			admin.POST("/redemptions/:id/fulfill", h.AdminFulfill)
			admin.POST("/redemptions/:id/reject", h.AdminReject)
			admin.POST("/redemptions/:id/cancel", h.AdminCancel)
			admin.POST("/wallet/adjust", h.AdminAdjustWallet)
			admin.POST("/daily-plays/reset", h.AdminResetDailyPlays)
		}
	}

	return r
}

package router

import (
	"github.com/affiliate-desk/internal/cache"
	"github.com/affiliate-desk/internal/config"
	adminhandlers "github.com/affiliate-desk/internal/http/handlers/admin"
	publichandlers "github.com/affiliate-desk/internal/http/handlers/public"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        cache.Key("rate", "operator_login"),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
	}
	trackRule := RateLimitRule{
		Prefix:        cache.Key("rate", "referral_track"),
		WindowSeconds: cfg.Security.TrackRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.TrackRateLimit.MaxRequests,
		FailOpen:      true,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 推荐链接入口
	r.GET("/r", publicHandler.RedirectReferral)

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.POST("/referrals/track", RateLimitMiddleware(redisClient, trackRule, KeyByReferralCode), publicHandler.TrackReferral)
		}

		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByLoginEmail), adminHandler.Login)

			authorized := admin.Group("")
			authorized.Use(OperatorJWTAuthMiddleware(cfg.JWT.SecretKey, c.AuthService))
			{
				authorized.PUT("/me/password", adminHandler.ChangePassword)

				authorized.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
				authorized.GET("/dashboard/trends", adminHandler.GetDashboardTrends)
				authorized.GET("/dashboard/rankings", adminHandler.GetDashboardRankings)

				authorized.GET("/programs", adminHandler.ListPrograms)
				authorized.POST("/programs", adminHandler.CreateProgram)
				authorized.PUT("/programs/:id", adminHandler.UpdateProgram)

				authorized.GET("/affiliates", adminHandler.ListAffiliates)
				authorized.POST("/affiliates", adminHandler.CreateAffiliate)
				authorized.PUT("/affiliates/:id/status", adminHandler.UpdateAffiliateStatus)
				authorized.GET("/affiliates/:id/ledger", adminHandler.GetAffiliateLedger)

				authorized.GET("/referrals", adminHandler.ListReferrals)
				authorized.PUT("/referrals/:id/status", adminHandler.UpdateReferralStatus)
				authorized.POST("/referrals/validate", adminHandler.ValidateReferrals)
				authorized.POST("/referrals/:id/validate", adminHandler.ValidateReferral)

				authorized.GET("/payouts", adminHandler.ListPayouts)
				authorized.POST("/payouts", adminHandler.CreatePayout)
				authorized.PUT("/payouts/:id/status", adminHandler.UpdatePayoutStatus)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

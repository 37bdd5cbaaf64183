package api

import (
	"TradeTalent/internal/api/config"
	"TradeTalent/internal/api/middleware"
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS & Metrics
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware(config.Cfg.Server.CORSOrigins))
	r.Use(middleware.MetricsMiddleware())
	logger.SetupGin(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		engagementGroup := apiGroup.Group("/engagement")
		engagementGroup.Use(middleware.AuthMiddleware())
		{
			engagementGroup.GET("/:user_id", group.EngagementHandler.GetSnapshot)
			engagementGroup.GET("/:user_id/suggestions", group.EngagementHandler.GetSuggestions)
			engagementGroup.GET("/:user_id/digests", group.EngagementHandler.GetDigests)
			engagementGroup.GET("/:user_id/funnel", group.EngagementHandler.GetFunnelRecords)
			engagementGroup.GET("/:user_id/profile-completion", group.EngagementHandler.GetProfileCompletion)

			engagementGroup.POST("/suggestions/:id/viewed", group.EngagementHandler.MarkSuggestionViewed)
			engagementGroup.POST("/digests/:id/viewed", group.EngagementHandler.MarkDigestViewed)
			engagementGroup.POST("/funnel/:id/action", group.EngagementHandler.AcknowledgeFunnel)

			// 需要 ADMIN 或内部服务角色
			internalGroup := engagementGroup.Group("")
			internalGroup.Use(middleware.CheckRoles(consts.RoleAdmin, consts.RoleService))
			{
				internalGroup.POST("/actions", group.EngagementHandler.RecordAction)
				internalGroup.POST("/:user_id/reactivate", group.EngagementHandler.Reactivate)
			}
		}

		sysbox := apiGroup.Group("/sysbox")
		sysbox.Use(middleware.AuthMiddleware())
		{
			sysbox.GET("/list", group.SysBoxHandler.GetNotificationList)
			sysbox.GET("/unread", group.SysBoxHandler.GetUnreadCount)
			sysbox.POST("/read", group.SysBoxHandler.MarkRead)
			sysbox.POST("/read/all", group.SysBoxHandler.MarkAllRead)
		}
	}

	return r
}

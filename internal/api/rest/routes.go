package rest

import (
	"github.com/Dhoini/affiliate-service/internal/api/rest/handlers"
	"github.com/Dhoini/affiliate-service/internal/api/rest/middleware"
	"github.com/Dhoini/affiliate-service/internal/metrics"
	authmw "github.com/Dhoini/affiliate-service/internal/middleware"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps зависимости HTTP-роутера
type RouterDeps struct {
	Affiliate *handlers.AffiliateHandler
	Health    *handlers.HealthHandler
	Auth      *authmw.JWTMiddleware
	Registry  *prometheus.Registry
	Log       *logger.Logger
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.LoggerMiddleware(deps.Log))
	r.Use(middleware.MetricsMiddleware(metrics.NewHTTPMetrics(deps.Registry)))
	r.Use(gin.Recovery())

	r.GET("/health", deps.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	h := deps.Affiliate
	affiliate := r.Group("/affiliate")
	{
		// Клик по ссылке публичный: его шлет лендинг до регистрации пользователя
		affiliate.POST("/links/:code/click", h.RecordClick)

		authed := affiliate.Group("", deps.Auth.RequireAuth())
		{
			authed.POST("/track-referral", h.TrackReferral)
			authed.POST("/update-subscription-status", h.UpdateSubscriptionStatus)
			authed.GET("/update-subscription-status", h.GetSubscriptionReferrals)

			authed.POST("/links", h.CreateLink)
			authed.GET("/links", h.ListMyLinks)
			authed.GET("/links/:code/stats", h.LinkStats)

			authed.GET("/referrals", h.ListMyReferrals)
			authed.GET("/commissions", h.ListMyCommissions)
		}

		affiliate.POST("/commissions/accrue", deps.Auth.RequireAuth(authmw.ScopeAdmin), h.AccrueCommissions)
	}
	return r
}

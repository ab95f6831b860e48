package statistics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes регистрирует маршруты статистики.
func SetupRoutes(r *gin.RouterGroup, handler *Handler) {
	r.POST("/collect", handler.Collect)
}

// NewRouter собирает gin-роутер сервера запуска сбора.
func NewRouter(handler *Handler, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	SetupRoutes(r.Group("/stats"), handler)
	r.GET("/health", handler.Health)
	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	return r
}

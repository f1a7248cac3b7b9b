package api

import (
	"github.com/gin-gonic/gin"

	"github.com/gitinsight/gitinsight/config"
	"github.com/gitinsight/gitinsight/internal/api/handler"
	"github.com/gitinsight/gitinsight/internal/api/middleware"
)

type Router struct {
	analysisHandler *handler.AnalysisHandler
	cfg             *config.Config
}

func NewRouter(analysisHandler *handler.AnalysisHandler, cfg *config.Config) *Router {
	return &Router{
		analysisHandler: analysisHandler,
		cfg:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	{
		// Submission and polling allow guests; owner identity scopes
		// lookups when present.
		v1.POST("/analyses", middleware.OptionalAuth(r.cfg.JWT.Secret), r.analysisHandler.Create)
		v1.GET("/analyses/:id", middleware.OptionalAuth(r.cfg.JWT.Secret), r.analysisHandler.GetStatus)

		v1.GET("/history", middleware.Auth(r.cfg.JWT.Secret), r.analysisHandler.History)
	}

	return engine
}

package httpapi

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/pkg/log"
)

func NewRouter(ctx context.Context, cfg *config.ServerConfig, agent Agent, mem Memory) *gin.Engine {
	h := &handlers{agent: agent, memory: mem}

	router := gin.New()
	router.Use(gin.Recovery(), log.GinMiddleware(ctx))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsCfg))

	// public
	router.GET("/", h.info)
	router.POST("/api/test-extraction", h.testExtraction)

	// protected
	api := router.Group("/api")
	api.Use(RequireBearer(cfg.BearerToken))
	{
		api.POST("/agent", h.runAgent)
		api.GET("/sessions/:session_id/history", h.sessionHistory)
		api.GET("/sessions/:session_id/formatted", h.formattedHistory)
		api.DELETE("/sessions/:session_id", h.clearSession)
		api.DELETE("/memory", h.clearMemory)
		api.PATCH("/memory/config", h.updateConfig)
	}

	return router
}

package main

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/ouranotify/internal/middleware"
	"github.com/huangang/ouranotify/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices, limiter *middleware.RateLimiter) {
	r.Use(middleware.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.GET("/health", svc.healthHandler.CheckHealth)

	if svc.interactionHandler != nil {
		r.POST("/interactions", svc.interactionHandler.Handle)
	}

	api := r.Group("/api", limiter.Middleware(), middleware.TokenRequired(svc.cfg.Server.APIToken))
	{
		api.GET("/commands", svc.commandHandler.List)
		api.POST("/commands/:name", svc.commandHandler.Execute)
		api.POST("/messages", svc.commandHandler.Message)
		api.GET("/settings", svc.commandHandler.Settings)
	}
}

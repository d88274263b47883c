package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ancrage/internal/config"
)

type App struct {
	cfg       config.Config
	pipeline  *Pipeline
	analytics AnalyticsEmitter
}

func New(cfg config.Config, pipeline *Pipeline, analytics AnalyticsEmitter) *App {
	if analytics == nil {
		analytics = NoopAnalyticsEmitter{}
	}
	return &App{cfg: cfg, pipeline: pipeline, analytics: analytics}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)

	api := router.Group(a.cfg.APIPrefix)
	api.POST("/chat", a.chat)

	return router
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ancrage-api",
	})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		return false
	}
	return true
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

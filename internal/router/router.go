package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"DopamineBreaker/config"
	"DopamineBreaker/internal/handler"
	"DopamineBreaker/internal/middleware"
)

func Register(h *server.Hertz) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware(config.Cfg.CORSOrigins))
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/", handler.Index)
	h.GET("/health", handler.Health)

	api := h.Group("/api")

	// 认证相关路由
	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.AuthRateLimitMiddleware(), handler.Register)
		auth.POST("/login", middleware.AuthRateLimitMiddleware(), handler.Login)
		auth.POST("/token/refresh", handler.RefreshToken)
		auth.GET("/me", middleware.AuthMiddleware(), handler.Me)
	}

	// 任务路由，登录可选：带合法 token 时只统计本人和匿名记录
	missions := api.Group("/missions")
	missions.Use(middleware.GeneralRateLimitMiddleware())
	missions.Use(middleware.OptionalAuthMiddleware())
	{
		missions.GET("/daily", handler.GetDailyCatalog)
		missions.GET("/presets", handler.ListPresets)
		missions.POST("/presets/complete", middleware.RecordRateLimitMiddleware(), handler.CompletePreset)
		missions.POST("/presets/fail", middleware.RecordRateLimitMiddleware(), handler.FailPreset)
		missions.GET("/medals", handler.GetMedals)
		missions.GET("/recent", handler.GetRecent)
		missions.GET("/by-tier/:tier", handler.GetByTier)
		missions.POST("/generate-daily", middleware.AdminTokenMiddleware(), handler.GenerateDaily)

		missions.GET("/records", handler.ListRecords)
		missions.GET("", handler.ListMissions)
		missions.POST("", handler.CreateMission)
		missions.GET("/:id", handler.GetMission)
		missions.POST("/:id/start", handler.StartMission)
		missions.POST("/:id/complete", middleware.RecordRateLimitMiddleware(), handler.CompleteMission)
	}
}

package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"medrag/internal/middleware"
	"medrag/internal/model"
	"medrag/internal/pkg/response"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Documents     *DocumentHandler
	Chat          *ChatHandler
	JWTSecret     []byte
	ChatRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "healthy"})
	})

	api.POST("/auth/signup", deps.Auth.Signup)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/auth/me", deps.Auth.Me)
	authGroup.POST("/chat", middleware.RateLimit(deps.ChatRateLimit), deps.Chat.Chat)

	adminGroup := authGroup.Group("")
	adminGroup.Use(middleware.RequireRole(model.RoleAdmin))
	adminGroup.POST("/documents", deps.Documents.Upload)
	adminGroup.GET("/documents", deps.Documents.List)
	adminGroup.GET("/documents/:id/file", deps.Documents.Download)
	adminGroup.DELETE("/documents/:id", deps.Documents.Delete)
}

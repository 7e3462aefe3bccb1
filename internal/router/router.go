package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/donor-ai/internal/handler"
	"github.com/ashwinyue/donor-ai/internal/middleware"
	"github.com/ashwinyue/donor-ai/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")

	// Auth 认证（无需令牌）
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
	}

	// 业务接口要求有效令牌
	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(svc))
	{
		authed.GET("/auth/me", h.Auth.Me)
		authed.POST("/auth/logout", h.Auth.Logout)
		authed.POST("/auth/change-password", h.Auth.ChangePassword)

		// Organization 组织
		org := authed.Group("/organization")
		{
			org.GET("", h.Organization.GetOrganization)
			org.PUT("", h.Organization.UpdateOrganization)
			org.GET("/context", h.Organization.GetContext)
			org.POST("/memory-notes", h.Organization.AddMemoryNote)
			org.GET("/memory-notes", h.Organization.ListMemoryNotes)
		}

		// Donor 捐赠人
		donors := authed.Group("/donors")
		{
			donors.POST("", h.Donor.CreateDonor)
			donors.GET("", h.Donor.ListDonors)
			donors.GET("/:id", h.Donor.GetDonor)
			donors.GET("/:id/brief", h.Donor.GetDonorBrief)
			donors.PUT("/:id", h.Donor.UpdateDonor)
			donors.DELETE("/:id", h.Donor.DeleteDonor)
		}

		// Email session 邮件会话
		sessions := authed.Group("/email-sessions")
		{
			sessions.POST("", h.Session.StartSession)
			sessions.GET("", h.Session.ListSessions)
			sessions.GET("/:id", h.Session.GetSession)
			sessions.POST("/:id/messages", h.Session.ContinueSession)
			sessions.POST("/:id/abandon", h.Session.AbandonSession)
			sessions.POST("/:id/resume", h.Session.ResumeSession)
			sessions.POST("/:id/emails", h.Session.GenerateEmails)
			sessions.GET("/:id/emails", h.Session.ListEmails)
		}
	}

	return r
}

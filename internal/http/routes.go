package http

import "github.com/gin-gonic/gin"

// Register mounts every REST route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/services", h.ListServices)
	r.POST("/services/execute", h.ExecuteService)

	sessions := r.Group("/sessions")
	sessions.GET("", h.ListSessions)
	sessions.POST("", h.CreateSession)
	sessions.POST("/:id/input", h.WriteSession)
	sessions.POST("/:id/resize", h.ResizeSession)
	sessions.POST("/:id/interrupt", h.InterruptSession)
	sessions.POST("/:id/kill", h.KillSession)
	sessions.DELETE("/:id", h.DestroySession)

	ai := r.Group("/ai")
	ai.GET("/config", h.GetConfig)
	ai.PUT("/config", h.SetConfig)
	ai.POST("/chat", h.Chat)
	ai.DELETE("/chat/:token", h.CancelChat)
}

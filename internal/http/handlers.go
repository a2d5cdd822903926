package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/providers/chat"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/service"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/shared/utils"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/types"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	core     *service.Core
	registry *service.Registry
}

// NewHandlers creates a new handler set
func NewHandlers(core *service.Core, registry *service.Registry) *Handlers {
	return &Handlers{
		core:     core,
		registry: registry,
	}
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	ID  string `json:"id" binding:"required"`
	Cwd string `json:"cwd"`
}

// InputRequest is the body of POST /sessions/:id/input.
type InputRequest struct {
	Data string `json:"data"`
}

// ResizeRequest is the body of POST /sessions/:id/resize.
type ResizeRequest struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	RequestID string              `json:"requestId" binding:"required"`
	Messages  []types.ChatMessage `json:"messages"`
}

// ExecuteRequest is the body of POST /services/execute.
type ExecuteRequest struct {
	ToolID string                 `json:"tool_id" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Ging-IDE session relay",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	sessions := h.core.ListSessions()
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"sessions":         sessions.Data["count"],
		"service_registry": h.registry.Stats(),
	})
}

// ListServices lists the registered tool providers
func (h *Handlers) ListServices(c *gin.Context) {
	var category *types.Category
	if raw := c.Query("category"); raw != "" {
		cat := types.Category(raw)
		category = &cat
	}

	c.JSON(http.StatusOK, gin.H{
		"services": h.registry.List(category),
		"stats":    h.registry.Stats(),
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req ExecuteRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListSessions lists live terminal sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	respond(c, http.StatusOK, h.core.ListSessions())
}

// CreateSession spawns a terminal session
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if !bind(c, &req) {
		return
	}
	respond(c, http.StatusCreated, h.core.CreateSession(req.ID, req.Cwd))
}

// WriteSession sends input to a session
func (h *Handlers) WriteSession(c *gin.Context) {
	var req InputRequest
	if !bind(c, &req) {
		return
	}
	respond(c, http.StatusOK, h.core.WriteSession(c.Param("id"), req.Data))
}

// ResizeSession changes a session's dimensions
func (h *Handlers) ResizeSession(c *gin.Context) {
	var req ResizeRequest
	if !bind(c, &req) {
		return
	}
	respond(c, http.StatusOK, h.core.ResizeSession(c.Param("id"), req.Cols, req.Rows))
}

// InterruptSession sends Ctrl+C to a session
func (h *Handlers) InterruptSession(c *gin.Context) {
	respond(c, http.StatusOK, h.core.InterruptSession(c.Param("id")))
}

// KillSession signals a session's process
func (h *Handlers) KillSession(c *gin.Context) {
	respond(c, http.StatusOK, h.core.KillSession(c.Param("id")))
}

// DestroySession kills and removes a session
func (h *Handlers) DestroySession(c *gin.Context) {
	respond(c, http.StatusOK, h.core.DestroySession(c.Param("id")))
}

// GetConfig returns the provider configuration
func (h *Handlers) GetConfig(c *gin.Context) {
	respond(c, http.StatusOK, h.core.GetConfig())
}

// SetConfig replaces the provider configuration
func (h *Handlers) SetConfig(c *gin.Context) {
	var req types.ProviderSettings
	if !bind(c, &req) {
		return
	}
	respond(c, http.StatusOK, h.core.SetConfig(chat.ProviderConfig{
		Provider: req.Provider,
		APIKey:   req.APIKey,
		BaseURL:  req.BaseURL,
		Model:    req.Model,
	}))
}

// Chat starts a streaming completion; deltas are delivered over /stream.
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if !bind(c, &req) {
		return
	}

	messages := make([]chat.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = chat.Message{Role: m.Role, Content: m.Content}
	}
	respond(c, http.StatusAccepted, h.core.Chat(c.Request.Context(), messages, req.RequestID))
}

// CancelChat stops an in-flight stream
func (h *Handlers) CancelChat(c *gin.Context) {
	token := c.Param("token")
	if err := utils.ValidateID(token, "token", true); err != nil {
		c.JSON(http.StatusBadRequest, types.FailureFromError(err))
		return
	}
	respond(c, http.StatusOK, h.core.CancelChat(token))
}

func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, types.Failure("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// respond writes res with okStatus on success. Failures are still tagged
// results and use 200, so callers branch on "success" as with the socket.
func respond(c *gin.Context, okStatus int, res *types.Result) {
	status := okStatus
	if !res.Success {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

package service

import (
	"context"
	"fmt"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/types"
)

// ChatProvider exposes the chat relay as "ai.*" tools.
type ChatProvider struct {
	core *Core
}

// NewChatProvider creates a chat tool provider backed by core.
func NewChatProvider(core *Core) *ChatProvider {
	return &ChatProvider{core: core}
}

// Definition returns service metadata
func (p *ChatProvider) Definition() types.Service {
	return types.Service{
		ID:           "ai",
		Name:         "AI Chat Service",
		Description:  "Streaming chat completions from Anthropic and OpenAI-compatible providers",
		Category:     types.CategoryAI,
		Capabilities: []string{"chat", "streaming", "config"},
		Tools:        p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *ChatProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "ai.getConfig":
		return p.core.GetConfig(), nil
	case "ai.setConfig":
		cfg, err := configParam(params)
		if err != nil {
			return nil, err
		}
		return p.core.SetConfig(cfg), nil
	case "ai.chat":
		token, err := requireString(params, "requestId")
		if err != nil {
			return nil, err
		}
		messages, err := messagesParam(params)
		if err != nil {
			return nil, err
		}
		return p.core.Chat(ctx, messages, token), nil
	case "ai.cancel":
		token, err := requireString(params, "requestId")
		if err != nil {
			return nil, err
		}
		return p.core.CancelChat(token), nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func (p *ChatProvider) getTools() []types.Tool {
	tokenParam := types.Parameter{
		Name:        "requestId",
		Type:        "string",
		Description: "Caller-chosen token that tags every stream event",
		Required:    true,
	}
	return []types.Tool{
		{
			ID:          "ai.getConfig",
			Name:        "Get Provider Config",
			Description: "Return the active provider configuration",
			Parameters:  []types.Parameter{},
			Returns:     "provider_config",
		},
		{
			ID:          "ai.setConfig",
			Name:        "Set Provider Config",
			Description: "Replace the provider configuration at runtime",
			Parameters: []types.Parameter{
				{Name: "config", Type: "object", Description: "provider, apiKey, baseUrl and model", Required: true},
			},
			Returns: "provider_config",
		},
		{
			ID:          "ai.chat",
			Name:        "Chat",
			Description: "Start a streaming completion; deltas arrive as ai:stream events",
			Parameters: []types.Parameter{
				tokenParam,
				{Name: "messages", Type: "array", Description: "Ordered role/content turns", Required: true},
			},
			Returns: "request_id",
		},
		{
			ID:          "ai.cancel",
			Name:        "Cancel Chat",
			Description: "Stop an in-flight stream",
			Parameters:  []types.Parameter{tokenParam},
			Returns:     "cancelled",
		},
	}
}

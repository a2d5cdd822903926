package chat

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	openai "github.com/sashabaranov/go-openai"
)

const (
	AnthropicBaseURL      = "https://api.anthropic.com/v1"
	AnthropicVersion      = "2023-06-01"
	AnthropicDefaultModel = "claude-3-sonnet-20240229"
	AnthropicMaxTokens    = 4096

	OpenAIBaseURL      = "https://api.openai.com/v1"
	OpenAIDefaultModel = "gpt-3.5-turbo"
)

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream"`
	Messages  []Message `json:"messages"`
}

// BuildRequest builds the streaming call for cfg's provider family.
func BuildRequest(cfg ProviderConfig, messages []Message) (*Request, error) {
	switch cfg.Family() {
	case FamilyAnthropic:
		return buildAnthropic(cfg, messages)
	default:
		return buildOpenAI(cfg, messages)
	}
}

func buildAnthropic(cfg ProviderConfig, messages []Message) (*Request, error) {
	model := cfg.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	// The Messages API only knows user and assistant turns.
	converted := make([]Message, len(messages))
	for i, m := range messages {
		role := "user"
		if m.Role == "assistant" {
			role = "assistant"
		}
		converted[i] = Message{Role: role, Content: m.Content}
	}

	body, err := sonic.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: AnthropicMaxTokens,
		Stream:    true,
		Messages:  converted,
	})
	if err != nil {
		return nil, fmt.Errorf("encode anthropic request: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", AnthropicVersion)

	return &Request{
		URL:    AnthropicEndpoint(cfg.BaseURL),
		Header: header,
		Body:   body,
	}, nil
}

func buildOpenAI(cfg ProviderConfig, messages []Message) (*Request, error) {
	model := cfg.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		converted[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	body, err := sonic.Marshal(openai.ChatCompletionRequest{
		Model:    model,
		Messages: converted,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode openai request: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "Bearer "+cfg.APIKey)

	return &Request{
		URL:    OpenAIEndpoint(cfg.BaseURL),
		Header: header,
		Body:   body,
	}, nil
}

// AnthropicEndpoint resolves the messages endpoint for base.
func AnthropicEndpoint(base string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = AnthropicBaseURL
	}
	if strings.HasSuffix(base, "/messages") {
		return base
	}
	return base + "/messages"
}

// OpenAIEndpoint resolves the chat completions endpoint for base:
//
//	.../chat/completions -> unchanged
//	.../v1               -> .../v1/chat/completions
//	anything else        -> .../v1/chat/completions
func OpenAIEndpoint(base string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = OpenAIBaseURL
	}
	switch {
	case strings.HasSuffix(base, "/chat/completions"):
		return base
	case strings.HasSuffix(base, "/v1"):
		return base + "/chat/completions"
	default:
		return base + "/v1/chat/completions"
	}
}

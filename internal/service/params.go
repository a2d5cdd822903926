package service

import (
	"fmt"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/providers/chat"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/types"
)

func requireString(params map[string]interface{}, key string) (string, error) {
	s, ok := params[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func optionalString(params map[string]interface{}, key string) string {
	s, _ := params[key].(string)
	return s
}

// requireInt accepts the numeric shapes produced by typed frames and by
// generic JSON decoding.
func requireInt(params map[string]interface{}, key string) (int, error) {
	switch v := params[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s is required", key)
	}
}

func messagesParam(params map[string]interface{}) ([]chat.Message, error) {
	switch v := params["messages"].(type) {
	case []chat.Message:
		return v, nil
	case []types.ChatMessage:
		out := make([]chat.Message, len(v))
		for i, m := range v {
			out[i] = chat.Message{Role: m.Role, Content: m.Content}
		}
		return out, nil
	case []interface{}:
		out := make([]chat.Message, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("messages must be a list of objects")
			}
			role, _ := m["role"].(string)
			content, _ := m["content"].(string)
			out = append(out, chat.Message{Role: role, Content: content})
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("messages is required")
	default:
		return nil, fmt.Errorf("messages must be a list")
	}
}

func configParam(params map[string]interface{}) (chat.ProviderConfig, error) {
	switch v := params["config"].(type) {
	case chat.ProviderConfig:
		return v, nil
	case *types.ProviderSettings:
		if v == nil {
			break
		}
		return chat.ProviderConfig{Provider: v.Provider, APIKey: v.APIKey, BaseURL: v.BaseURL, Model: v.Model}, nil
	case map[string]interface{}:
		return chat.ProviderConfig{
			Provider: optionalString(v, "provider"),
			APIKey:   optionalString(v, "apiKey"),
			BaseURL:  optionalString(v, "baseUrl"),
			Model:    optionalString(v, "model"),
		}, nil
	}
	return chat.ProviderConfig{}, fmt.Errorf("config is required")
}

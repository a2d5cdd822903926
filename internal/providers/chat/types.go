package chat

import (
	"net/http"
	"strings"
)

// Family is the closed set of wire formats the relay speaks.
type Family int

const (
	// FamilyOpenAI covers OpenAI and every OpenAI-compatible endpoint.
	FamilyOpenAI Family = iota
	FamilyAnthropic
)

// ParseFamily maps a configured provider name to its wire format. "anthropic"
// and "claude" select Anthropic; every other name is OpenAI-compatible.
func ParseFamily(name string) Family {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "anthropic", "claude":
		return FamilyAnthropic
	default:
		return FamilyOpenAI
	}
}

func (f Family) String() string {
	if f == FamilyAnthropic {
		return "anthropic"
	}
	return "openai"
}

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderConfig selects and authenticates a provider. An empty BaseURL or
// Model means the family default.
type ProviderConfig struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseUrl"`
	Model    string `json:"model"`
}

// Family returns the wire format for the configured provider name.
func (c ProviderConfig) Family() Family {
	return ParseFamily(c.Provider)
}

// Request is a fully built provider call. Building one performs no I/O.
type Request struct {
	URL    string
	Header http.Header
	Body   []byte
}

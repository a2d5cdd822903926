// Package chat relays streaming chat completions from AI providers as a
// single stream of token deltas.
//
// Two wire formats are supported, selected by the configured provider name:
// Anthropic's Messages API ("anthropic" or "claude") and the OpenAI chat
// completions API (every other name, including compatible self-hosted
// endpoints). BuildRequest produces the HTTP call without performing it,
// StreamParser decodes the server-sent event stream, and Relay ties both
// together and publishes chat.delta / chat.end events.
//
// Example Usage:
//
//	store := chat.NewConfigStore(chat.ProviderConfig{Provider: "anthropic", APIKey: key})
//	relay := chat.NewRelay(chat.RelayOptions{Config: store, Publisher: bus, Logger: log})
//	defer relay.Shutdown(context.Background())
//
//	err := relay.Chat(ctx, []chat.Message{{Role: "user", Content: "hi"}}, "req-1")
//	// deltas arrive on the bus tagged "req-1", followed by one end event
package chat

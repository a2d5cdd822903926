package types

// Inbound frame types on the /stream websocket.
const (
	MsgTerminalCreate    = "terminal:create"
	MsgTerminalWrite     = "terminal:write"
	MsgTerminalResize    = "terminal:resize"
	MsgTerminalInterrupt = "terminal:interrupt"
	MsgTerminalDestroy   = "terminal:destroy"
	MsgTerminalKill      = "terminal:kill"
	MsgTerminalList      = "terminal:list"
	MsgAIGetConfig       = "ai:getConfig"
	MsgAISetConfig       = "ai:setConfig"
	MsgAIChat            = "ai:chat"
	MsgAICancel          = "ai:cancel"
	MsgPing              = "ping"
)

// Outbound frame types.
const (
	MsgResult       = "result"
	MsgPong         = "pong"
	MsgSystem       = "system"
	MsgTerminalData = "terminal:data"
	MsgTerminalExit = "terminal:exit"
	MsgAIStream     = "ai:stream"
	MsgAIStreamEnd  = "ai:stream:end"
)

// ChatMessage is one conversation turn as sent by the UI.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderSettings is the provider configuration as exchanged with the UI.
type ProviderSettings struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseUrl"`
	Model    string `json:"model"`
}

// WSMessage is a client frame. Ref is echoed in the matching result frame.
type WSMessage struct {
	Type      string            `json:"type"`
	Ref       string            `json:"ref,omitempty"`
	ID        string            `json:"id,omitempty"`
	Cwd       string            `json:"cwd,omitempty"`
	Data      string            `json:"data,omitempty"`
	Cols      int               `json:"cols,omitempty"`
	Rows      int               `json:"rows,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Messages  []ChatMessage     `json:"messages,omitempty"`
	Config    *ProviderSettings `json:"config,omitempty"`
}

// ResultFrame answers one client frame.
type ResultFrame struct {
	Type    string                 `json:"type"`
	Ref     string                 `json:"ref,omitempty"`
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *string                `json:"error,omitempty"`
}

// NewResultFrame wraps res as the reply to the frame tagged ref.
func NewResultFrame(ref string, res *Result) ResultFrame {
	frame := ResultFrame{Type: MsgResult, Ref: ref}
	if res != nil {
		frame.Success, frame.Data, frame.Error = res.Success, res.Data, res.Error
	}
	return frame
}

// EventFrame pushes a bus event to the client.
type EventFrame struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Data      string `json:"data,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Content   string `json:"content,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

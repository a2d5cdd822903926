package types

// Category represents service categories
type Category string

const (
	CategoryTerminal Category = "terminal"
	CategoryAI       Category = "ai"
)

// Service describes a group of boundary operations.
type Service struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     Category `json:"category"`
	Capabilities []string `json:"capabilities"`
	Tools        []Tool   `json:"tools"`
}

// Tool represents one boundary operation.
type Tool struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns"`
}

// Parameter represents a tool parameter
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Result is the tagged outcome every boundary operation returns.
type Result struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *string                `json:"error,omitempty"`
}

// Success returns a successful result carrying data.
func Success(data map[string]interface{}) *Result {
	return &Result{Success: true, Data: data}
}

// Failure returns a failed result with a human-readable message.
func Failure(msg string) *Result {
	return &Result{Success: false, Error: &msg}
}

// FailureFromError returns a failed result for err.
func FailureFromError(err error) *Result {
	return Failure(err.Error())
}

// ErrorMessage returns the failure message, or "" for a success.
func (r *Result) ErrorMessage() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return *r.Error
}

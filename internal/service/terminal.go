package service

import (
	"context"
	"fmt"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/types"
)

// TerminalProvider exposes session operations as "terminal.*" tools.
type TerminalProvider struct {
	core *Core
}

// NewTerminalProvider creates a terminal tool provider backed by core.
func NewTerminalProvider(core *Core) *TerminalProvider {
	return &TerminalProvider{core: core}
}

// Definition returns service metadata
func (p *TerminalProvider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Terminal Service",
		Description: "Interactive shell sessions backed by pseudo-terminals",
		Category:    types.CategoryTerminal,
		Capabilities: []string{
			"pty",
			"shell",
			"interactive",
			"sessions",
			"resize",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *TerminalProvider) Execute(_ context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "terminal.list":
		return p.core.ListSessions(), nil
	case "terminal.create", "terminal.write", "terminal.resize",
		"terminal.interrupt", "terminal.destroy", "terminal.kill":
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}

	id, err := requireString(params, "id")
	if err != nil {
		return nil, err
	}

	switch toolID {
	case "terminal.create":
		return p.core.CreateSession(id, optionalString(params, "cwd")), nil
	case "terminal.write":
		return p.core.WriteSession(id, optionalString(params, "data")), nil
	case "terminal.resize":
		cols, err := requireInt(params, "cols")
		if err != nil {
			return nil, err
		}
		rows, err := requireInt(params, "rows")
		if err != nil {
			return nil, err
		}
		return p.core.ResizeSession(id, cols, rows), nil
	case "terminal.interrupt":
		return p.core.InterruptSession(id), nil
	case "terminal.destroy":
		return p.core.DestroySession(id), nil
	default:
		return p.core.KillSession(id), nil
	}
}

func (p *TerminalProvider) getTools() []types.Tool {
	idParam := types.Parameter{
		Name:        "id",
		Type:        "string",
		Description: "Caller-chosen session ID",
		Required:    true,
	}
	return []types.Tool{
		{
			ID:          "terminal.create",
			Name:        "Create Terminal Session",
			Description: "Spawn a shell in a new pseudo-terminal",
			Parameters: []types.Parameter{
				idParam,
				{
					Name:        "cwd",
					Type:        "string",
					Description: "Initial working directory. Defaults to the user's home",
					Required:    false,
				},
			},
			Returns: "session_info",
		},
		{
			ID:          "terminal.write",
			Name:        "Write to Terminal",
			Description: "Send input to a terminal session",
			Parameters: []types.Parameter{
				idParam,
				{
					Name:        "data",
					Type:        "string",
					Description: "Input to send to terminal",
					Required:    true,
				},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize Terminal",
			Description: "Change terminal dimensions",
			Parameters: []types.Parameter{
				idParam,
				{Name: "cols", Type: "number", Description: "New width in columns", Required: true},
				{Name: "rows", Type: "number", Description: "New height in rows", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.interrupt",
			Name:        "Interrupt Terminal",
			Description: "Send Ctrl+C to the foreground process",
			Parameters:  []types.Parameter{idParam},
			Returns:     "success",
		},
		{
			ID:          "terminal.destroy",
			Name:        "Destroy Terminal Session",
			Description: "Kill the shell and forget the session immediately",
			Parameters:  []types.Parameter{idParam},
			Returns:     "success",
		},
		{
			ID:          "terminal.kill",
			Name:        "Kill Terminal Session",
			Description: "Signal the shell; the session ends when the process exits",
			Parameters:  []types.Parameter{idParam},
			Returns:     "success",
		},
		{
			ID:          "terminal.list",
			Name:        "List Terminal Sessions",
			Description: "List all active terminal sessions",
			Parameters:  []types.Parameter{},
			Returns:     "sessions_list",
		},
	}
}

package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/logging"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/monitoring"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/providers/chat"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/providers/terminal"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/shared/utils"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/types"
)

// SessionManager is the terminal session registry as seen by the boundary.
type SessionManager interface {
	Create(id, cwd string) error
	Write(id string, data []byte)
	Resize(id string, cols, rows int) error
	Interrupt(id string) error
	Kill(id string) error
	Destroy(id string) error
	Get(id string) (terminal.SessionInfo, bool)
	List() []terminal.SessionInfo
}

// ChatRelay is the chat relay as seen by the boundary.
type ChatRelay interface {
	Chat(ctx context.Context, messages []chat.Message, token string) error
	Cancel(token string) bool
	Config() *chat.ConfigStore
}

// Core exposes every boundary operation as a call returning a tagged result.
// No error or panic escapes a Core method.
type Core struct {
	sessions SessionManager
	relay    ChatRelay
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewCore creates the boundary over sessions and relay.
func NewCore(sessions SessionManager, relay ChatRelay, metrics *monitoring.Metrics, log *zap.Logger) *Core {
	return &Core{
		sessions: sessions,
		relay:    relay,
		metrics:  metrics,
		log:      logging.OrNop(log).Named("service"),
	}
}

// CreateSession spawns a shell for id in cwd.
func (c *Core) CreateSession(id, cwd string) *types.Result {
	return c.call("terminal", "create", func() (map[string]interface{}, error) {
		if err := utils.ValidateID(id, "session id", true); err != nil {
			return nil, invalid(err)
		}
		if err := c.sessions.Create(id, cwd); err != nil {
			return nil, err
		}
		info, ok := c.sessions.Get(id)
		if !ok {
			// Exited before we could look it up; creation still succeeded.
			return map[string]interface{}{"id": id}, nil
		}
		return sessionData(info), nil
	})
}

// WriteSession forwards input to a session. Unknown ids are ignored.
func (c *Core) WriteSession(id, data string) *types.Result {
	return c.call("terminal", "write", func() (map[string]interface{}, error) {
		if err := utils.ValidateInput(data); err != nil {
			return nil, invalid(err)
		}
		c.sessions.Write(id, []byte(data))
		return nil, nil
	})
}

// ResizeSession changes a session's dimensions.
func (c *Core) ResizeSession(id string, cols, rows int) *types.Result {
	return c.call("terminal", "resize", func() (map[string]interface{}, error) {
		return nil, c.sessions.Resize(id, cols, rows)
	})
}

// InterruptSession sends Ctrl+C to a session.
func (c *Core) InterruptSession(id string) *types.Result {
	return c.call("terminal", "interrupt", func() (map[string]interface{}, error) {
		return nil, c.sessions.Interrupt(id)
	})
}

// DestroySession kills and forgets a session. Destroying an unknown id succeeds.
func (c *Core) DestroySession(id string) *types.Result {
	return c.call("terminal", "destroy", func() (map[string]interface{}, error) {
		return nil, c.sessions.Destroy(id)
	})
}

// KillSession signals a session's process and leaves cleanup to its exit.
func (c *Core) KillSession(id string) *types.Result {
	return c.call("terminal", "kill", func() (map[string]interface{}, error) {
		return nil, c.sessions.Kill(id)
	})
}

// ListSessions returns every live session.
func (c *Core) ListSessions() *types.Result {
	return c.call("terminal", "list", func() (map[string]interface{}, error) {
		sessions := c.sessions.List()
		return map[string]interface{}{
			"sessions": sessions,
			"count":    len(sessions),
		}, nil
	})
}

// GetConfig returns the current provider configuration.
func (c *Core) GetConfig() *types.Result {
	return c.call("ai", "getConfig", func() (map[string]interface{}, error) {
		return configData(c.relay.Config().Get()), nil
	})
}

// SetConfig replaces the provider configuration.
func (c *Core) SetConfig(cfg chat.ProviderConfig) *types.Result {
	return c.call("ai", "setConfig", func() (map[string]interface{}, error) {
		if err := utils.ValidateProviderFields(cfg.Provider, cfg.BaseURL); err != nil {
			return nil, invalid(err)
		}
		if err := c.relay.Config().Set(cfg); err != nil {
			return nil, err
		}
		c.log.Info("Provider configuration updated",
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model))
		return configData(cfg), nil
	})
}

// Chat starts a streaming completion whose deltas are published under token.
func (c *Core) Chat(ctx context.Context, messages []chat.Message, token string) *types.Result {
	return c.call("ai", "chat", func() (map[string]interface{}, error) {
		if err := utils.ValidateID(token, "requestId", true); err != nil {
			return nil, invalid(err)
		}
		contents := make([]string, len(messages))
		for i, m := range messages {
			contents[i] = m.Content
		}
		if err := utils.ValidateMessageSizes(contents); err != nil {
			return nil, invalid(err)
		}
		if err := c.relay.Chat(ctx, messages, token); err != nil {
			return nil, err
		}
		return map[string]interface{}{"requestId": token}, nil
	})
}

// CancelChat stops the stream for token if one is running.
func (c *Core) CancelChat(token string) *types.Result {
	return c.call("ai", "cancel", func() (map[string]interface{}, error) {
		return map[string]interface{}{
			"requestId": token,
			"cancelled": c.relay.Cancel(token),
		}, nil
	})
}

func (c *Core) call(svc, method string, fn func() (map[string]interface{}, error)) (res *types.Result) {
	timer := monitoring.NewTimer(c.metrics, svc, method)
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Boundary operation panicked",
				zap.String("operation", svc+"."+method),
				zap.Any("panic", r),
				zap.Stack("stack"))
			c.metrics.RecordServiceError(svc, method, "panic")
			timer.Stop("error")
			res = types.Failure(fmt.Sprintf("internal error: %v", r))
		}
	}()

	data, err := fn()
	if err != nil {
		c.metrics.RecordServiceError(svc, method, errorType(err))
		timer.Stop("error")
		c.log.Debug("Boundary operation failed",
			zap.String("operation", svc+"."+method),
			zap.Error(err))
		return types.FailureFromError(err)
	}
	timer.Stop("success")
	return types.Success(data)
}

// inputError marks a request rejected before reaching the domain.
type inputError struct{ err error }

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

func invalid(err error) error {
	return &inputError{err: err}
}

func errorType(err error) string {
	var spawnErr *terminal.SpawnError
	var httpErr *chat.ProviderHTTPError
	switch {
	case errors.As(err, &spawnErr):
		return "spawn"
	case errors.Is(err, terminal.ErrDuplicateSession):
		return "duplicate"
	case errors.Is(err, terminal.ErrInvalidDimension), errors.As(err, new(*inputError)):
		return "invalid"
	case errors.Is(err, chat.ErrMissingCredential):
		return "credential"
	case errors.As(err, &httpErr):
		return "provider_http"
	case errors.Is(err, chat.ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

func sessionData(info terminal.SessionInfo) map[string]interface{} {
	return map[string]interface{}{
		"id":          info.ID,
		"shell":       info.Shell,
		"working_dir": info.WorkingDir,
		"pid":         info.Pid,
		"cols":        info.Cols,
		"rows":        info.Rows,
		"started_at":  info.StartedAt,
	}
}

func configData(cfg chat.ProviderConfig) map[string]interface{} {
	return map[string]interface{}{
		"provider": cfg.Provider,
		"apiKey":   cfg.APIKey,
		"baseUrl":  cfg.BaseURL,
		"model":    cfg.Model,
	}
}

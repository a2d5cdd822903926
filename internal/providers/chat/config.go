package chat

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Environment variables mirrored by a store created WithEnvMirror.
const (
	EnvProvider = "AI_PROVIDER"
	EnvAPIKey   = "AI_API_KEY"
	EnvBaseURL  = "AI_BASE_URL"
	EnvModel    = "AI_MODEL"
)

// ConfigStore is the process-wide provider configuration cell. Writers
// replace the whole value; readers always see the newest one.
type ConfigStore struct {
	current   atomic.Pointer[ProviderConfig]
	mirrorEnv bool
}

// StoreOption configures a ConfigStore.
type StoreOption func(*ConfigStore)

// WithEnvMirror copies every stored value into the AI_* environment
// variables so child processes inherit it.
func WithEnvMirror() StoreOption {
	return func(s *ConfigStore) {
		s.mirrorEnv = true
	}
}

// NewConfigStore creates a cell holding initial.
func NewConfigStore(initial ProviderConfig, opts ...StoreOption) *ConfigStore {
	s := &ConfigStore{}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&initial)
	return s
}

// Get returns a snapshot of the current configuration.
func (s *ConfigStore) Get() ProviderConfig {
	return *s.current.Load()
}

// Set replaces the configuration.
func (s *ConfigStore) Set(cfg ProviderConfig) error {
	s.current.Store(&cfg)
	if s.mirrorEnv {
		return mirrorToEnv(cfg)
	}
	return nil
}

// Update applies fn to the current value atomically with respect to other
// writers and returns the stored result.
func (s *ConfigStore) Update(fn func(ProviderConfig) ProviderConfig) (ProviderConfig, error) {
	for {
		old := s.current.Load()
		next := fn(*old)
		if s.current.CompareAndSwap(old, &next) {
			if s.mirrorEnv {
				return next, mirrorToEnv(next)
			}
			return next, nil
		}
	}
}

func mirrorToEnv(cfg ProviderConfig) error {
	vars := [...]struct{ key, value string }{
		{EnvProvider, cfg.Provider},
		{EnvAPIKey, cfg.APIKey},
		{EnvBaseURL, cfg.BaseURL},
		{EnvModel, cfg.Model},
	}
	for _, v := range vars {
		if err := os.Setenv(v.key, v.value); err != nil {
			return fmt.Errorf("set %s: %w", v.key, err)
		}
	}
	return nil
}

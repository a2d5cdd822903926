package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// ErrUnsupportedSettingsFormat is returned for settings files that are neither
// TOML nor YAML.
var ErrUnsupportedSettingsFormat = errors.New("unsupported settings file format")

// ProviderSettings is the on-disk form of the chat provider configuration.
type ProviderSettings struct {
	Provider string `toml:"provider" yaml:"provider"`
	APIKey   string `toml:"api_key" yaml:"api_key"`
	BaseURL  string `toml:"base_url" yaml:"base_url"`
	Model    string `toml:"model" yaml:"model"`
}

// LoadSettings reads a provider settings file. The format is chosen by
// extension: .toml, or .yaml/.yml.
func LoadSettings(path string) (ProviderSettings, error) {
	var s ProviderSettings

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &s)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		return s, fmt.Errorf("%w: %s", ErrUnsupportedSettingsFormat, path)
	}
	if err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// Merge overlays non-empty settings fields onto the AI section.
func (a AIConfig) Merge(s ProviderSettings) AIConfig {
	if s.Provider != "" {
		a.Provider = s.Provider
	}
	if s.APIKey != "" {
		a.APIKey = s.APIKey
	}
	if s.BaseURL != "" {
		a.BaseURL = s.BaseURL
	}
	if s.Model != "" {
		a.Model = s.Model
	}
	return a
}

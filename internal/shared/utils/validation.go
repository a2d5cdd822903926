package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Size limits
const (
	MaxIDLength      = 128
	MaxMessageCount  = 512
	MaxMessageSize   = 256 * 1024 // single chat turn
	MaxInputSize     = 64 * 1024  // single terminal write
	MaxProviderName  = 64
	MaxBaseURLLength = 2048
)

// SafeIDPattern allows alphanumeric, dots, colons, hyphens and underscores.
var SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._:-]+$`)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateID validates a session ID or request token.
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}

	if id != "" && !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, dots, colons, hyphens, and underscores allowed)", fieldName)
	}

	return nil
}

// ValidateInput bounds a single terminal write.
func ValidateInput(data string) error {
	if len(data) > MaxInputSize {
		return fmt.Errorf("input size %d bytes exceeds maximum %d bytes", len(data), MaxInputSize)
	}
	return nil
}

// ValidateMessageSizes bounds a conversation by turn count and per-turn size.
func ValidateMessageSizes(contents []string) error {
	if len(contents) > MaxMessageCount {
		return fmt.Errorf("too many messages (maximum %d)", MaxMessageCount)
	}
	for i, content := range contents {
		if len(content) > MaxMessageSize {
			return fmt.Errorf("message[%d] size %d bytes exceeds maximum %d bytes", i, len(content), MaxMessageSize)
		}
	}
	return nil
}

// ValidateProviderFields bounds the free-form provider settings.
func ValidateProviderFields(provider, baseURL string) error {
	if err := ValidateString(provider, "provider", 0, MaxProviderName, false); err != nil {
		return err
	}
	if err := ValidateString(baseURL, "baseUrl", 0, MaxBaseURLLength, false); err != nil {
		return err
	}
	if baseURL != "" && !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return fmt.Errorf("baseUrl must start with http:// or https://")
	}
	return nil
}

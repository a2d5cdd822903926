package chat

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStoreLastWriterWins(t *testing.T) {
	store := NewConfigStore(ProviderConfig{Provider: "openai"})
	assert.Equal(t, "openai", store.Get().Provider)

	require.NoError(t, store.Set(ProviderConfig{Provider: "anthropic", APIKey: "k"}))
	require.NoError(t, store.Set(ProviderConfig{Provider: "claude", APIKey: "k2"}))

	got := store.Get()
	assert.Equal(t, "claude", got.Provider)
	assert.Equal(t, "k2", got.APIKey)
	assert.Equal(t, FamilyAnthropic, got.Family())
}

func TestConfigStoreSnapshotsAreIndependent(t *testing.T) {
	store := NewConfigStore(ProviderConfig{Model: "a"})
	snap := store.Get()
	snap.Model = "changed"

	assert.Equal(t, "a", store.Get().Model)
}

func TestConfigStoreConcurrentUpdate(t *testing.T) {
	store := NewConfigStore(ProviderConfig{})
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.Update(func(c ProviderConfig) ProviderConfig {
				c.Model += "x"
				return c
			})
		}()
		go func() {
			defer wg.Done()
			_ = store.Get()
		}()
	}
	wg.Wait()

	assert.Len(t, store.Get().Model, 50)
}

func TestConfigStoreEnvMirror(t *testing.T) {
	for _, key := range []string{EnvProvider, EnvAPIKey, EnvBaseURL, EnvModel} {
		t.Setenv(key, "")
	}

	store := NewConfigStore(ProviderConfig{}, WithEnvMirror())
	require.NoError(t, store.Set(ProviderConfig{
		Provider: "anthropic",
		APIKey:   "sk",
		BaseURL:  "https://proxy.example",
		Model:    "claude-x",
	}))

	assert.Equal(t, "anthropic", os.Getenv(EnvProvider))
	assert.Equal(t, "sk", os.Getenv(EnvAPIKey))
	assert.Equal(t, "https://proxy.example", os.Getenv(EnvBaseURL))
	assert.Equal(t, "claude-x", os.Getenv(EnvModel))

	_, err := store.Update(func(c ProviderConfig) ProviderConfig {
		c.Model = "claude-y"
		return c
	})
	require.NoError(t, err)
	assert.Equal(t, "claude-y", os.Getenv(EnvModel))
}

func TestConfigStoreWithoutMirrorLeavesEnv(t *testing.T) {
	t.Setenv(EnvModel, "untouched")

	store := NewConfigStore(ProviderConfig{})
	require.NoError(t, store.Set(ProviderConfig{Model: "m"}))

	assert.Equal(t, "untouched", os.Getenv(EnvModel))
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/types"
)

type mockProvider struct {
	id       string
	category types.Category
}

func (m *mockProvider) Definition() types.Service {
	return types.Service{
		ID:           m.id,
		Name:         "Mock Service",
		Description:  "A mock service for testing",
		Category:     m.category,
		Capabilities: []string{"read", "write"},
		Tools: []types.Tool{
			{
				ID:          m.id + ".test",
				Name:        "Test Tool",
				Description: "A test tool",
				Returns:     "string",
			},
		},
	}
}

func (m *mockProvider) Execute(_ context.Context, toolID string, _ map[string]interface{}) (*types.Result, error) {
	return types.Success(map[string]interface{}{"tool": toolID}), nil
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&mockProvider{id: "test"}))

	_, ok := r.Get("test")
	assert.True(t, ok)

	assert.Error(t, r.Register(&mockProvider{id: ""}))
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&mockProvider{id: "test"}))
	r.Unregister("test")

	_, ok := r.Get("test")
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&mockProvider{id: "b", category: types.CategoryAI}))
	require.NoError(t, r.Register(&mockProvider{id: "a", category: types.CategoryTerminal}))
	require.NoError(t, r.Register(&mockProvider{id: "c", category: types.CategoryTerminal}))

	all := r.List(nil)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[2].ID)

	cat := types.CategoryTerminal
	filtered := r.List(&cat)
	assert.Len(t, filtered, 2)
}

func TestExecuteRoutesByServicePrefix(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&mockProvider{id: "terminal"}))

	res, err := r.Execute(context.Background(), "terminal.create", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "terminal.create", res.Data["tool"])
}

func TestExecuteErrors(t *testing.T) {
	r := NewRegistry()

	res, err := r.Execute(context.Background(), "nodot", nil)
	assert.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "invalid tool ID format", res.ErrorMessage())

	res, err = r.Execute(context.Background(), "missing.tool", nil)
	assert.Error(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage(), "service not found")
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&mockProvider{id: "a", category: types.CategoryAI}))
	require.NoError(t, r.Register(&mockProvider{id: "b", category: types.CategoryTerminal}))

	stats := r.Stats()
	assert.Equal(t, 2, stats["total_services"])
	assert.Equal(t, 2, stats["total_tools"])
}

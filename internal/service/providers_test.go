package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/providers/chat"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/types"
)

func newTestRegistry(t *testing.T) (*Registry, *fakeSessions, *fakeRelay) {
	t.Helper()
	core, sessions, relay, _ := newTestCore(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewTerminalProvider(core)))
	require.NoError(t, reg.Register(NewChatProvider(core)))
	return reg, sessions, relay
}

func TestDefinitionsListEveryTool(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	services := reg.List(nil)
	require.Len(t, services, 2)
	assert.Equal(t, "ai", services[0].ID)
	assert.Len(t, services[0].Tools, 4)
	assert.Equal(t, "terminal", services[1].ID)
	assert.Len(t, services[1].Tools, 7)
}

func TestTerminalToolsDispatch(t *testing.T) {
	reg, sessions, _ := newTestRegistry(t)
	ctx := context.Background()

	res, err := reg.Execute(ctx, "terminal.create", map[string]interface{}{"id": "t1", "cwd": "/srv"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "/srv", res.Data["working_dir"])

	res, err = reg.Execute(ctx, "terminal.resize", map[string]interface{}{"id": "t1", "cols": float64(100), "rows": 30})
	require.NoError(t, err)
	assert.True(t, res.Success)
	info, _ := sessions.Get("t1")
	assert.Equal(t, 100, info.Cols)
	assert.Equal(t, 30, info.Rows)

	for _, tool := range []string{"terminal.write", "terminal.interrupt", "terminal.kill", "terminal.destroy"} {
		res, err = reg.Execute(ctx, tool, map[string]interface{}{"id": "t1", "data": "x"})
		require.NoError(t, err, tool)
		assert.True(t, res.Success, tool)
	}

	res, err = reg.Execute(ctx, "terminal.list", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Data["count"])

	assert.Equal(t, []string{
		"create:t1", "resize:t1", "write:t1", "interrupt:t1", "kill:t1", "destroy:t1",
	}, sessions.calls)
}

func TestTerminalToolParamErrors(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Execute(ctx, "terminal.create", map[string]interface{}{})
	assert.EqualError(t, err, "id is required")

	_, err = reg.Execute(ctx, "terminal.resize", map[string]interface{}{"id": "t1", "cols": 10})
	assert.EqualError(t, err, "rows is required")

	_, err = reg.Execute(ctx, "terminal.bogus", map[string]interface{}{"id": "t1"})
	assert.EqualError(t, err, "unknown tool: terminal.bogus")
}

func TestChatToolsDispatch(t *testing.T) {
	reg, _, relay := newTestRegistry(t)
	ctx := context.Background()

	res, err := reg.Execute(ctx, "ai.setConfig", map[string]interface{}{
		"config": &types.ProviderSettings{Provider: "claude", APIKey: "k", Model: "m"},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, chat.FamilyAnthropic, relay.store.Get().Family())

	res, err = reg.Execute(ctx, "ai.getConfig", nil)
	require.NoError(t, err)
	assert.Equal(t, "claude", res.Data["provider"])

	res, err = reg.Execute(ctx, "ai.chat", map[string]interface{}{
		"requestId": "r1",
		"messages": []interface{}{
			map[string]interface{}{"role": "user", "content": "hello"},
		},
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessage())
	assert.Equal(t, []chat.Message{{Role: "user", Content: "hello"}}, relay.chats["r1"])

	res, err = reg.Execute(ctx, "ai.cancel", map[string]interface{}{"requestId": "r1"})
	require.NoError(t, err)
	assert.Equal(t, true, res.Data["cancelled"])
}

func TestChatToolParamErrors(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Execute(ctx, "ai.chat", map[string]interface{}{"messages": []chat.Message{}})
	assert.EqualError(t, err, "requestId is required")

	_, err = reg.Execute(ctx, "ai.chat", map[string]interface{}{"requestId": "r"})
	assert.EqualError(t, err, "messages is required")

	_, err = reg.Execute(ctx, "ai.chat", map[string]interface{}{"requestId": "r", "messages": []interface{}{"bad"}})
	assert.Error(t, err)

	_, err = reg.Execute(ctx, "ai.setConfig", map[string]interface{}{})
	assert.EqualError(t, err, "config is required")

	var nilSettings *types.ProviderSettings
	_, err = reg.Execute(ctx, "ai.setConfig", map[string]interface{}{"config": nilSettings})
	assert.EqualError(t, err, "config is required")
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/providers/chat"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/providers/terminal"
)

// fakeSessions is an in-memory SessionManager.
type fakeSessions struct {
	mu        sync.Mutex
	live      map[string]terminal.SessionInfo
	writes    map[string]string
	createErr error
	panicOn   string
	calls     []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		live:   make(map[string]terminal.SessionInfo),
		writes: make(map[string]string),
	}
}

func (f *fakeSessions) record(op, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+id)
	if f.panicOn == op {
		panic("boom")
	}
}

func (f *fakeSessions) Create(id, cwd string) error {
	f.record("create", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.live[id]; ok {
		return terminal.ErrDuplicateSession
	}
	f.live[id] = terminal.SessionInfo{ID: id, Shell: "bash", WorkingDir: cwd, Pid: 4242, Cols: 80, Rows: 24, StartedAt: time.Now()}
	return nil
}

func (f *fakeSessions) Write(id string, data []byte) {
	f.record("write", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[id]; ok {
		f.writes[id] += string(data)
	}
}

func (f *fakeSessions) Resize(id string, cols, rows int) error {
	f.record("resize", id)
	if cols < 1 || rows < 1 {
		return terminal.ErrInvalidDimension
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.live[id]; ok {
		info.Cols, info.Rows = cols, rows
		f.live[id] = info
	}
	return nil
}

func (f *fakeSessions) Interrupt(id string) error {
	f.record("interrupt", id)
	return nil
}

func (f *fakeSessions) Kill(id string) error {
	f.record("kill", id)
	return nil
}

func (f *fakeSessions) Destroy(id string) error {
	f.record("destroy", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, id)
	return nil
}

func (f *fakeSessions) Get(id string) (terminal.SessionInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.live[id]
	return info, ok
}

func (f *fakeSessions) List() []terminal.SessionInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]terminal.SessionInfo, 0, len(f.live))
	for _, info := range f.live {
		out = append(out, info)
	}
	return out
}

// fakeRelay records chat calls and validates the credential like the real relay.
type fakeRelay struct {
	store *chat.ConfigStore

	mu      sync.Mutex
	chats   map[string][]chat.Message
	active  map[string]bool
	chatErr error
	lastCtx context.Context
}

func newFakeRelay(cfg chat.ProviderConfig) *fakeRelay {
	return &fakeRelay{
		store:  chat.NewConfigStore(cfg),
		chats:  make(map[string][]chat.Message),
		active: make(map[string]bool),
	}
}

func (f *fakeRelay) Chat(ctx context.Context, messages []chat.Message, token string) error {
	if f.store.Get().APIKey == "" {
		return chat.ErrMissingCredential
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatErr != nil {
		return f.chatErr
	}
	f.lastCtx = ctx
	f.chats[token] = messages
	f.active[token] = true
	return nil
}

func (f *fakeRelay) Cancel(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok := f.active[token]
	delete(f.active, token)
	return ok
}

func (f *fakeRelay) Config() *chat.ConfigStore {
	return f.store
}

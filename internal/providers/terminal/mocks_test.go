package terminal

import (
	"os"
	"sync"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/events"
	"github.com/stretchr/testify/mock"
)

type mockProcess struct {
	mock.Mock
}

func (m *mockProcess) Write(data []byte) (int, error) {
	args := m.Called(data)
	return args.Int(0), args.Error(1)
}

func (m *mockProcess) Resize(cols, rows int) error {
	return m.Called(cols, rows).Error(0)
}

func (m *mockProcess) Signal(sig os.Signal) error {
	return m.Called(sig).Error(0)
}

func (m *mockProcess) Kill() error {
	return m.Called().Error(0)
}

func (m *mockProcess) Pid() int {
	return 4242
}

type mockSpawner struct {
	mock.Mock

	mu      sync.Mutex
	spawned []SpawnOptions
}

func (m *mockSpawner) Spawn(opts SpawnOptions) (Process, error) {
	m.mu.Lock()
	m.spawned = append(m.spawned, opts)
	m.mu.Unlock()

	args := m.Called(opts)
	proc, _ := args.Get(0).(Process)
	return proc, args.Error(1)
}

func (m *mockSpawner) options(i int) SpawnOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spawned[i]
}

// recorder is an events.Publisher that keeps everything it is given.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(kind events.Kind, sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind && ev.SessionID == sessionID {
			n++
		}
	}
	return n
}

func (r *recorder) data(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Kind == events.KindSessionData && ev.SessionID == sessionID {
			out = append(out, ev.Data)
		}
	}
	return out
}

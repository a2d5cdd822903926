package terminal

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/events"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/monitoring"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// interruptSequence is what a terminal sends for Ctrl+C.
var interruptSequence = []byte{0x03}

// Session is a live shell owned by the registry.
type Session struct {
	ID         string
	Shell      string
	WorkingDir string
	StartedAt  time.Time

	proc      Process
	destroyed atomic.Bool

	// outMu orders output publishing against Destroy. out holds back a
	// multi-byte character split across reads until the rest arrives.
	outMu sync.Mutex
	out   *transform.Writer

	mu   sync.RWMutex
	cols int
	rows int
}

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID         string    `json:"id"`
	Shell      string    `json:"shell"`
	WorkingDir string    `json:"working_dir"`
	Pid        int       `json:"pid"`
	Cols       int       `json:"cols"`
	Rows       int       `json:"rows"`
	StartedAt  time.Time `json:"started_at"`
}

func (s *Session) info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionInfo{
		ID:         s.ID,
		Shell:      s.Shell,
		WorkingDir: s.WorkingDir,
		Pid:        s.proc.Pid(),
		Cols:       s.cols,
		Rows:       s.rows,
		StartedAt:  s.StartedAt,
	}
}

// Options configures a Registry.
type Options struct {
	Spawner     Spawner
	Publisher   events.Publisher
	Metrics     *monitoring.Metrics
	Logger      *zap.Logger
	Shell       string
	DefaultCols int
	DefaultRows int
	ReadBuffer  int
}

// Registry owns terminal sessions keyed by caller-chosen ids.
//
// One mutex serializes create, destroy and exit removal. An id maps to at most
// one live process. Destroy removes the entry at once; the exit callback of a
// replaced or destroyed process never touches the map entry of a newer
// session under the same id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	spawner   Spawner
	publisher events.Publisher
	metrics   *monitoring.Metrics
	log       *zap.Logger

	shell      string
	cols       int
	rows       int
	readBuffer int
}

// NewRegistry creates a session registry.
func NewRegistry(opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	spawner := opts.Spawner
	if spawner == nil {
		spawner = NewPTYSpawner(log)
	}
	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell()
	}
	cols, rows := opts.DefaultCols, opts.DefaultRows
	if cols < 1 {
		cols = 80
	}
	if rows < 1 {
		rows = 24
	}

	return &Registry{
		sessions:   make(map[string]*Session),
		spawner:    spawner,
		publisher:  opts.Publisher,
		metrics:    opts.Metrics,
		log:        log,
		shell:      shell,
		cols:       cols,
		rows:       rows,
		readBuffer: opts.ReadBuffer,
	}
}

// Create spawns a shell for id in cwd. An empty cwd means the user's home
// directory.
func (r *Registry) Create(id, cwd string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSession, id)
	}

	if cwd == "" {
		cwd = homeDir()
	}

	sess := &Session{
		ID:         id,
		Shell:      r.shell,
		WorkingDir: cwd,
		StartedAt:  time.Now(),
		cols:       r.cols,
		rows:       r.rows,
	}
	sess.out = transform.NewWriter(sessionOutput{r: r, sess: sess}, unicode.UTF8.NewDecoder())

	// The exit callback takes r.mu, so it cannot observe the map before the
	// new entry is stored below.
	proc, err := r.spawner.Spawn(SpawnOptions{
		Shell:      r.shell,
		Dir:        cwd,
		Cols:       r.cols,
		Rows:       r.rows,
		ReadBuffer: r.readBuffer,
		OnData: func(data []byte) {
			r.writeOutput(sess, data)
		},
		OnExit: func(code int) {
			r.handleExit(sess, code)
		},
	})
	if err != nil {
		r.log.Warn("Failed to spawn terminal", zap.String("session_id", id), zap.String("cwd", cwd), zap.Error(err))
		return err
	}

	sess.proc = proc
	r.sessions[id] = sess
	r.metrics.SessionStarted()

	r.log.Info("Terminal session created",
		zap.String("session_id", id),
		zap.String("cwd", cwd),
		zap.String("shell", r.shell),
		zap.Int("pid", proc.Pid()))
	return nil
}

// Write sends input to a session. Unknown ids are ignored.
func (r *Registry) Write(id string, data []byte) {
	sess := r.lookup(id)
	if sess == nil {
		return
	}
	if _, err := sess.proc.Write(data); err != nil {
		r.log.Debug("Terminal write failed", zap.String("session_id", id), zap.Error(err))
	}
}

// Resize changes a session's dimensions. Dimensions are validated before the
// lookup; unknown ids are ignored.
func (r *Registry) Resize(id string, cols, rows int) error {
	if cols < 1 || rows < 1 {
		return ErrInvalidDimension
	}

	sess := r.lookup(id)
	if sess == nil {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.proc.Resize(cols, rows); err != nil {
		return fmt.Errorf("resize session %s: %w", id, err)
	}
	sess.cols, sess.rows = cols, rows
	return nil
}

// Interrupt writes Ctrl+C to the session input. Unknown ids are ignored.
func (r *Registry) Interrupt(id string) error {
	sess := r.lookup(id)
	if sess == nil {
		return nil
	}
	if _, err := sess.proc.Write(interruptSequence); err != nil {
		return fmt.Errorf("interrupt session %s: %w", id, err)
	}
	return nil
}

// Kill terminates the session's process but leaves the entry in place until
// the process exits, which then publishes the exit event.
func (r *Registry) Kill(id string) error {
	sess := r.lookup(id)
	if sess == nil {
		return nil
	}
	if err := sess.proc.Kill(); err != nil {
		return fmt.Errorf("kill session %s: %w", id, err)
	}
	r.log.Info("Terminal session killed", zap.String("session_id", id))
	return nil
}

// Destroy kills the session and removes it immediately. No exit event is
// published for a destroyed session and the id can be reused at once.
// Unknown ids succeed.
func (r *Registry) Destroy(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		// Marked before the id is free again so a later Create under the
		// same id never receives this process's output.
		sess.outMu.Lock()
		sess.destroyed.Store(true)
		sess.outMu.Unlock()
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	r.metrics.SessionEnded("destroy")

	if err := sess.proc.Kill(); err != nil {
		r.log.Warn("Failed to kill destroyed session", zap.String("session_id", id), zap.Error(err))
		return fmt.Errorf("destroy session %s: %w", id, err)
	}

	r.log.Info("Terminal session destroyed", zap.String("session_id", id))
	return nil
}

// Get returns a session snapshot.
func (r *Registry) Get(id string) (SessionInfo, bool) {
	sess := r.lookup(id)
	if sess == nil {
		return SessionInfo{}, false
	}
	return sess.info(), true
}

// List returns all live sessions ordered by start time.
func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.mu.Unlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].StartedAt.Equal(infos[j].StartedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close destroys every session.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Destroy(id)
	}
}

func (r *Registry) lookup(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

func (r *Registry) handleExit(sess *Session, code int) {
	r.mu.Lock()
	current, ok := r.sessions[sess.ID]
	removed := ok && current == sess
	if removed {
		delete(r.sessions, sess.ID)
	}
	r.mu.Unlock()

	if !removed || sess.destroyed.Load() {
		return
	}

	sess.outMu.Lock()
	if err := sess.out.Close(); err != nil {
		r.log.Debug("Terminal output flush failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	sess.outMu.Unlock()

	r.metrics.SessionEnded("exit")
	r.log.Info("Terminal session exited", zap.String("session_id", sess.ID), zap.Int("exit_code", code))
	r.publish(events.SessionExit(sess.ID))
}

func (r *Registry) writeOutput(sess *Session, data []byte) {
	sess.outMu.Lock()
	defer sess.outMu.Unlock()

	if sess.destroyed.Load() {
		return
	}
	r.metrics.AddSessionOutput(len(data))
	if _, err := sess.out.Write(data); err != nil {
		r.log.Debug("Terminal output decode failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

// sessionOutput publishes decoded output. Invalid bytes arrive here already
// replaced with U+FFFD, so every event is valid UTF-8.
type sessionOutput struct {
	r    *Registry
	sess *Session
}

func (o sessionOutput) Write(p []byte) (int, error) {
	if len(p) > 0 {
		o.r.publish(events.SessionData(o.sess.ID, p))
	}
	return len(p), nil
}

func (r *Registry) publish(ev events.Event) {
	if r.publisher != nil {
		r.publisher.Publish(ev)
	}
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return os.TempDir()
}

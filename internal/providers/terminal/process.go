package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"
)

const (
	defaultReadBuffer = 4096
	// drainTimeout bounds how long the exit path waits for the output pump
	// after the shell exits. Background jobs can keep the pty open.
	drainTimeout = 2 * time.Second
)

// SpawnOptions describes a shell process to start. OnData and OnExit are
// registered before the process starts, so no output is ever missed.
type SpawnOptions struct {
	Shell      string
	Args       []string
	Dir        string
	Env        []string // appended to the host environment
	Cols       int
	Rows       int
	ReadBuffer int

	// OnData receives each output chunk in emission order. The slice is
	// owned by the callee.
	OnData func(data []byte)
	// OnExit fires once, after the last OnData call.
	OnExit func(exitCode int)
}

// Process is a running shell attached to a pseudo-terminal.
type Process interface {
	Write(data []byte) (int, error)
	Resize(cols, rows int) error
	Signal(sig os.Signal) error
	// Kill requests termination. The OnExit callback is the only signal that
	// the process is gone.
	Kill() error
	Pid() int
}

// Spawner starts shell processes.
type Spawner interface {
	Spawn(opts SpawnOptions) (Process, error)
}

// DefaultShell returns the shell used when none is configured.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		return "powershell.exe"
	}
	return "bash"
}

// PTYSpawner spawns processes on a host pseudo-terminal.
type PTYSpawner struct {
	log *zap.Logger
}

// NewPTYSpawner creates a spawner. log may be nil.
func NewPTYSpawner(log *zap.Logger) *PTYSpawner {
	if log == nil {
		log = zap.NewNop()
	}
	return &PTYSpawner{log: log}
}

// Spawn starts opts.Shell on a new pty sized opts.Cols x opts.Rows.
func (s *PTYSpawner) Spawn(opts SpawnOptions) (Process, error) {
	if opts.Cols < 1 || opts.Rows < 1 {
		return nil, ErrInvalidDimension
	}
	if opts.Shell == "" {
		opts.Shell = DefaultShell()
	}
	if opts.ReadBuffer <= 0 {
		opts.ReadBuffer = defaultReadBuffer
	}

	cmd := exec.Command(opts.Shell, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-color")
	cmd.Env = append(cmd.Env, opts.Env...)

	ptmx, err := pty.StartWithSize(cmd, winsize(opts.Cols, opts.Rows))
	if err != nil {
		return nil, &SpawnError{Shell: opts.Shell, Dir: opts.Dir, Err: err}
	}

	p := &ptyProcess{
		cmd:      cmd,
		ptmx:     ptmx,
		onData:   opts.OnData,
		onExit:   opts.OnExit,
		readDone: make(chan struct{}),
		log:      s.log.With(zap.Int("pid", cmd.Process.Pid)),
	}

	go p.readOutput(opts.ReadBuffer)
	go p.monitorProcess()

	return p, nil
}

type ptyProcess struct {
	cmd  *exec.Cmd
	ptmx *os.File

	onData func([]byte)
	onExit func(int)

	readDone  chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

func (p *ptyProcess) Write(data []byte) (int, error) {
	return p.ptmx.Write(data)
}

func (p *ptyProcess) Resize(cols, rows int) error {
	if cols < 1 || rows < 1 {
		return ErrInvalidDimension
	}
	if err := pty.Setsize(p.ptmx, winsize(cols, rows)); err != nil {
		return fmt.Errorf("resize pty: %w", err)
	}
	return nil
}

func (p *ptyProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

func (p *ptyProcess) Kill() error {
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *ptyProcess) Pid() int {
	return p.cmd.Process.Pid
}

// readOutput is the single output pump. Reads end with EIO on Linux once the
// child side of the pty is gone.
func (p *ptyProcess) readOutput(size int) {
	defer close(p.readDone)
	defer p.recoverPanic("read")

	buf := make([]byte, size)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 && p.onData != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.onData(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.log.Debug("PTY read ended", zap.Error(err))
			}
			return
		}
	}
}

// monitorProcess waits for the shell, lets the pump drain, then reports exit.
func (p *ptyProcess) monitorProcess() {
	defer p.recoverPanic("wait")

	_ = p.cmd.Wait()
	code := -1
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}

	select {
	case <-p.readDone:
	case <-time.After(drainTimeout):
		p.log.Debug("PTY still open after exit, closing")
	}
	p.close()
	<-p.readDone

	if p.onExit != nil {
		p.onExit(code)
	}
}

func (p *ptyProcess) close() {
	p.closeOnce.Do(func() {
		_ = p.ptmx.Close()
	})
}

func (p *ptyProcess) recoverPanic(where string) {
	if r := recover(); r != nil {
		p.log.Error("Recovered panic in PTY "+where+" loop", zap.Any("panic", r))
	}
}

func winsize(cols, rows int) *pty.Winsize {
	return &pty.Winsize{
		Cols: clampDimension(cols),
		Rows: clampDimension(rows),
	}
}

func clampDimension(v int) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

// Package terminal owns interactive shell sessions backed by host
// pseudo-terminals.
//
// A Registry maps caller-chosen session ids to running shells. Output and exit
// notifications are published on an events.Publisher tagged with the session
// id; each process has one output pump goroutine and one waiter goroutine.
//
// Shells run on a pty from github.com/creack/pty with TERM=xterm-color. The
// default shell is bash, or powershell.exe on Windows. creack/pty does not
// support Windows, so Spawn fails there with a SpawnError.
//
// Example Usage:
//
//	reg := terminal.NewRegistry(terminal.Options{Publisher: bus, Logger: log})
//	if err := reg.Create("term-1", ""); err != nil {
//		return err
//	}
//	reg.Write("term-1", []byte("ls -la\r"))
//	_ = reg.Resize("term-1", 120, 40)
//	_ = reg.Destroy("term-1")
package terminal

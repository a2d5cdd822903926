package terminal

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSession is returned by Create when the id is already live.
	ErrDuplicateSession = errors.New("session already exists")
	// ErrInvalidDimension is returned for a resize to fewer than one column or row.
	ErrInvalidDimension = errors.New("terminal dimensions must be at least 1x1")
)

// SpawnError reports that the shell process could not be started.
type SpawnError struct {
	Shell string
	Dir   string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s in %s: %v", e.Shell, e.Dir, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

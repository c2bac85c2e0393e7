package cli

import "sync"

// ExitError carries a process exit code alongside an already-printed (or
// empty) message, so cobra's error return can drive os.Exit without every
// command needing to call os.Exit itself.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// AsExitError unwraps err into an *ExitError, if it is one.
func AsExitError(err error) (*ExitError, bool) {
	ee, ok := err.(*ExitError)
	return ee, ok
}

var (
	exitMu   sync.Mutex
	exitCode int
)

func setExitCode(code int) {
	exitMu.Lock()
	defer exitMu.Unlock()
	exitCode = code
}

// LastExitCode returns the exit code recorded by the most recently executed
// command that completed without an error (e.g. a turn ending in
// Cancelled, which main.go should report as 130 without itself being a Go
// error).
func LastExitCode() int {
	exitMu.Lock()
	defer exitMu.Unlock()
	return exitCode
}

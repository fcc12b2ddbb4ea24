package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused wraps every rejection Guard produces; match it with
// errors.Is.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a native module has been administratively paused.
// The node's pause registry implements it; engines only ever read.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects mutating operations while the named module is paused. The
// returned error names the module so operators can tell which switch is
// flipped. A nil view means pausing is not wired and everything is allowed.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%w: %s", ErrModulePaused, module)
	}
	return nil
}

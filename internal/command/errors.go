package command

import (
	"errors"
	"fmt"
)

var (
	// ErrNoHandler is returned when executing a command nobody registered.
	ErrNoHandler = errors.New("no command handler registered")

	// ErrIllegalInvocation is returned when a command is executed from
	// inside another command's execute or revert phase.
	ErrIllegalInvocation = errors.New("illegal invocation in execute or revert phase")

	// ErrCannotExecute is returned when a can-execute hook or handler vetoes.
	ErrCannotExecute = errors.New("command cannot execute")

	// ErrNothingToUndo is returned by Undo on an empty history.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned by Redo when no undone operation remains.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrDuplicateHandler is returned when registering a second handler for
	// the same command name.
	ErrDuplicateHandler = errors.New("command handler already registered")
)

// ExecError reports the command and phase in which an atomic operation
// failed. The stack has already rolled the operation back when it is
// returned.
type ExecError struct {
	Command string
	Phase   Phase
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("command %s failed in %s: %v", e.Command, e.Phase, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Package command implements the serial command stack every structural
// change goes through: named handlers, priority ordered interception hooks,
// nested atomic operations, rollback on failure and undo/redo.
package command

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Element is anything a handler reports as changed.
type Element interface {
	ElementID() string
}

// Handler executes and reverts one named command. The context value is
// owned by the handler and is handed back unchanged on revert and redo.
type Handler interface {
	Execute(ctx any) ([]Element, error)
	Revert(ctx any) ([]Element, error)
}

// CanExecuter lets a handler veto execution.
type CanExecuter interface {
	CanExecute(ctx any) bool
}

// PreExecutor runs before Execute; it may execute nested commands.
type PreExecutor interface {
	PreExecute(ctx any) error
}

// PostExecutor runs after Execute; it may execute nested commands.
type PostExecutor interface {
	PostExecute(ctx any) error
}

// Phase names a point in a command's lifecycle.
type Phase int

const (
	PhaseCanExecute Phase = iota
	PhasePreExecute
	PhasePreExecuted
	PhaseExecute
	PhaseExecuted
	PhasePostExecute
	PhasePostExecuted
	PhaseRevert
	PhaseReverted
)

func (p Phase) String() string {
	switch p {
	case PhaseCanExecute:
		return "canExecute"
	case PhasePreExecute:
		return "preExecute"
	case PhasePreExecuted:
		return "preExecuted"
	case PhaseExecute:
		return "execute"
	case PhaseExecuted:
		return "executed"
	case PhasePostExecute:
		return "postExecute"
	case PhasePostExecuted:
		return "postExecuted"
	case PhaseRevert:
		return "revert"
	case PhaseReverted:
		return "reverted"
	}
	return "unknown"
}

// Event is passed to hooks.
type Event struct {
	Command string
	Context any
	// Operation identifies the atomic operation (top-level command plus
	// everything nested in it) the event belongs to.
	Operation int
	// Redo is set while an undone operation is being replayed.
	Redo bool
}

// Hook reacts to a lifecycle phase. Returning an error aborts the atomic
// operation.
type Hook func(e *Event) error

// Veto decides whether a command may execute.
type Veto func(e *Event) bool

type listener struct {
	priority int
	seq      int
	hook     Hook
	veto     Veto
}

type listenerKey struct {
	phase   Phase
	command string
}

type action struct {
	command string
	ctx     any
	op      int
}

type execution struct {
	op        int
	actions   []*action
	inHandler bool
	depth     int
	changed   []Element
	seen      map[string]bool
}

func (x *execution) markChanged(elements []Element) {
	for _, e := range elements {
		if e == nil || x.seen[e.ElementID()] {
			continue
		}
		x.seen[e.ElementID()] = true
		x.changed = append(x.changed, e)
	}
}

// Stack executes commands one atomic operation at a time.
//
// Hooks for a phase run in ascending priority; ties run in registration
// order. Commands executed from a pre/post hook or from a handler's
// PreExecute/PostExecute join the running atomic operation and are undone
// with it.
type Stack struct {
	logger    *zap.Logger
	handlers  map[string]Handler
	listeners map[listenerKey][]listener
	seq       int

	undo []*action
	redo []*action
	exec *execution

	lastOp int
	limit  int

	onChanged []func([]Element)
}

// Option configures a Stack.
type Option func(*Stack)

// WithLogger sets the stack's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Stack) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLimit bounds the number of atomic operations kept for undo. Zero
// keeps everything.
func WithLimit(n int) Option {
	return func(s *Stack) { s.limit = n }
}

// NewStack returns an empty command stack.
func NewStack(opts ...Option) *Stack {
	s := &Stack{
		logger:    zap.NewNop(),
		handlers:  make(map[string]Handler),
		listeners: make(map[listenerKey][]listener),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("command")
	return s
}

// Register binds handler to command.
func (s *Stack) Register(command string, h Handler) error {
	if _, ok := s.handlers[command]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, command)
	}
	s.handlers[command] = h
	return nil
}

// On registers hook for phase on the given commands. An empty command list
// matches every command.
func (s *Stack) On(phase Phase, commands []string, priority int, hook Hook) {
	s.add(phase, commands, listener{priority: priority, hook: hook})
}

// OnCanExecute registers a veto for the given commands.
func (s *Stack) OnCanExecute(commands []string, priority int, veto Veto) {
	s.add(PhaseCanExecute, commands, listener{priority: priority, veto: veto})
}

func (s *Stack) add(phase Phase, commands []string, l listener) {
	if len(commands) == 0 {
		commands = []string{""}
	}
	for _, c := range commands {
		s.seq++
		l.seq = s.seq
		key := listenerKey{phase: phase, command: c}
		s.listeners[key] = append(s.listeners[key], l)
	}
}

// OnChanged registers fn to receive the de-duplicated elements changed by
// each completed atomic operation, undo or redo.
func (s *Stack) OnChanged(fn func([]Element)) {
	s.onChanged = append(s.onChanged, fn)
}

func (s *Stack) listenersFor(phase Phase, command string) []listener {
	specific := s.listeners[listenerKey{phase: phase, command: command}]
	wildcard := s.listeners[listenerKey{phase: phase, command: ""}]
	out := make([]listener, 0, len(specific)+len(wildcard))
	out = append(out, specific...)
	out = append(out, wildcard...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority < out[j].priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

func (s *Stack) fire(phase Phase, e *Event) error {
	for _, l := range s.listenersFor(phase, e.Command) {
		if l.hook == nil {
			continue
		}
		if err := l.hook(e); err != nil {
			return wrap(e.Command, phase, err)
		}
	}
	return nil
}

func (s *Stack) canExecute(e *Event, h Handler) bool {
	for _, l := range s.listenersFor(PhaseCanExecute, e.Command) {
		if l.veto != nil && !l.veto(e) {
			return false
		}
	}
	if ce, ok := h.(CanExecuter); ok {
		return ce.CanExecute(e.Context)
	}
	return true
}

func wrap(command string, phase Phase, err error) error {
	var xe *ExecError
	if errors.As(err, &xe) {
		return err
	}
	return &ExecError{Command: command, Phase: phase, Err: err}
}

// Executing reports whether an atomic operation is in progress.
func (s *Stack) Executing() bool { return s.exec != nil }

// Depth returns how deeply the command currently executing is nested: 1
// for a top-level command, 0 outside any operation.
func (s *Stack) Depth() int {
	if s.exec == nil {
		return 0
	}
	return s.exec.depth
}

// Execute runs command with ctx. Called from a hook it joins the running
// atomic operation; called at top level it starts a new one, and on failure
// every action of that operation is reverted before the error is returned.
func (s *Stack) Execute(command string, ctx any) error {
	if s.exec != nil && s.exec.inHandler {
		return fmt.Errorf("%w: %s", ErrIllegalInvocation, command)
	}
	h, ok := s.handlers[command]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, command)
	}

	top := s.exec == nil
	if top {
		s.lastOp++
		s.exec = &execution{op: s.lastOp, seen: make(map[string]bool)}
	}
	a := &action{command: command, ctx: ctx, op: s.exec.op}
	err := s.internalExecute(a, h, false)
	if !top {
		return err
	}

	x := s.exec
	s.exec = nil
	if err != nil {
		s.logger.Debug("rolling back atomic operation",
			zap.Int("op", x.op), zap.String("command", command), zap.Error(err))
		s.rollback(x)
		recordRollback(command)
		return err
	}
	s.redo = nil
	s.trim()
	recordExecuted(command)
	s.notify(x.changed)
	return nil
}

func (s *Stack) internalExecute(a *action, h Handler, redo bool) error {
	e := &Event{Command: a.command, Context: a.ctx, Operation: a.op, Redo: redo}
	s.exec.depth++
	defer func() { s.exec.depth-- }()
	s.logger.Debug("execute", zap.String("command", a.command), zap.Int("op", a.op), zap.Bool("redo", redo))

	if !redo {
		if !s.canExecute(e, h) {
			return &ExecError{Command: a.command, Phase: PhaseCanExecute, Err: ErrCannotExecute}
		}
		if err := s.fire(PhasePreExecute, e); err != nil {
			return err
		}
		if pe, ok := h.(PreExecutor); ok {
			if err := pe.PreExecute(a.ctx); err != nil {
				return wrap(a.command, PhasePreExecute, err)
			}
		}
		if err := s.fire(PhasePreExecuted, e); err != nil {
			return err
		}
	}

	s.exec.inHandler = true
	changed, err := h.Execute(a.ctx)
	s.exec.inHandler = false
	if err != nil {
		return wrap(a.command, PhaseExecute, err)
	}
	s.undo = append(s.undo, a)
	s.exec.actions = append(s.exec.actions, a)
	s.exec.markChanged(changed)

	if err := s.fire(PhaseExecuted, e); err != nil {
		return err
	}
	if redo {
		return nil
	}

	if err := s.fire(PhasePostExecute, e); err != nil {
		return err
	}
	if pe, ok := h.(PostExecutor); ok {
		if err := pe.PostExecute(a.ctx); err != nil {
			return wrap(a.command, PhasePostExecute, err)
		}
	}
	return s.fire(PhasePostExecuted, e)
}

func (s *Stack) internalRevert(a *action) error {
	h := s.handlers[a.command]
	e := &Event{Command: a.command, Context: a.ctx, Operation: a.op}
	if err := s.fire(PhaseRevert, e); err != nil {
		return err
	}
	s.exec.inHandler = true
	changed, err := h.Revert(a.ctx)
	s.exec.inHandler = false
	if err != nil {
		return wrap(a.command, PhaseRevert, err)
	}
	s.exec.markChanged(changed)
	return s.fire(PhaseReverted, e)
}

// rollback reverts the actions of a failed atomic operation, newest first.
func (s *Stack) rollback(x *execution) {
	s.exec = x
	defer func() { s.exec = nil }()
	for i := len(x.actions) - 1; i >= 0; i-- {
		a := x.actions[i]
		if err := s.internalRevert(a); err != nil {
			s.logger.Error("rollback revert failed", zap.String("command", a.command), zap.Error(err))
		}
		if n := len(s.undo); n > 0 && s.undo[n-1] == a {
			s.undo = s.undo[:n-1]
		}
	}
}

// CanUndo reports whether an atomic operation can be undone.
func (s *Stack) CanUndo() bool { return len(s.undo) > 0 && s.exec == nil }

// CanRedo reports whether an undone atomic operation can be replayed.
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 && s.exec == nil }

// Undo reverts the most recent atomic operation.
func (s *Stack) Undo() error {
	if s.exec != nil {
		return fmt.Errorf("%w: undo", ErrIllegalInvocation)
	}
	if len(s.undo) == 0 {
		return ErrNothingToUndo
	}
	op := s.undo[len(s.undo)-1].op
	s.exec = &execution{op: op, seen: make(map[string]bool)}
	defer func() { s.exec = nil }()

	var reverted []*action
	for len(s.undo) > 0 && s.undo[len(s.undo)-1].op == op {
		a := s.undo[len(s.undo)-1]
		if err := s.internalRevert(a); err != nil {
			// Put back what was already reverted so the document stays
			// at the state before Undo.
			for i := len(reverted) - 1; i >= 0; i-- {
				s.replay(reverted[i])
			}
			return err
		}
		s.undo = s.undo[:len(s.undo)-1]
		s.redo = append(s.redo, a)
		reverted = append(reverted, a)
	}
	recordUndo()
	s.notify(s.exec.changed)
	return nil
}

// Redo replays the most recently undone atomic operation. Only the execute
// phase and executed hooks run; nested commands were recorded and are
// replayed in their original order.
func (s *Stack) Redo() error {
	if s.exec != nil {
		return fmt.Errorf("%w: redo", ErrIllegalInvocation)
	}
	if len(s.redo) == 0 {
		return ErrNothingToRedo
	}
	op := s.redo[len(s.redo)-1].op
	s.exec = &execution{op: op, seen: make(map[string]bool)}
	defer func() { s.exec = nil }()

	var replayed []*action
	for len(s.redo) > 0 && s.redo[len(s.redo)-1].op == op {
		a := s.redo[len(s.redo)-1]
		s.redo = s.redo[:len(s.redo)-1]
		if err := s.internalExecute(a, s.handlers[a.command], true); err != nil {
			// An Executed hook can fail after the handler ran.
			if n := len(s.undo); n > 0 && s.undo[n-1] == a {
				replayed = append(replayed, a)
			} else {
				s.redo = append(s.redo, a)
			}
			for i := len(replayed) - 1; i >= 0; i-- {
				r := replayed[i]
				if rerr := s.internalRevert(r); rerr != nil {
					s.logger.Error("redo restore failed", zap.String("command", r.command), zap.Error(rerr))
				}
				if n := len(s.undo); n > 0 && s.undo[n-1] == r {
					s.undo = s.undo[:n-1]
				}
				s.redo = append(s.redo, r)
			}
			return err
		}
		replayed = append(replayed, a)
	}
	recordRedo()
	s.notify(s.exec.changed)
	return nil
}

// replay re-executes a reverted action while restoring from a failed undo.
func (s *Stack) replay(a *action) {
	if err := s.internalExecute(a, s.handlers[a.command], true); err != nil {
		s.logger.Error("undo restore failed", zap.String("command", a.command), zap.Error(err))
		return
	}
	// internalExecute pushed a onto the undo stack again; drop the redo
	// entry added during the aborted undo.
	if n := len(s.redo); n > 0 && s.redo[n-1] == a {
		s.redo = s.redo[:n-1]
	}
}

// Clear drops the whole history.
func (s *Stack) Clear() {
	s.undo = nil
	s.redo = nil
}

// UndoDepth returns the number of atomic operations that can be undone.
func (s *Stack) UndoDepth() int { return countOps(s.undo) }

// RedoDepth returns the number of atomic operations that can be redone.
func (s *Stack) RedoDepth() int { return countOps(s.redo) }

func countOps(actions []*action) int {
	n, last := 0, -1
	for _, a := range actions {
		if a.op != last {
			n++
			last = a.op
		}
	}
	return n
}

func (s *Stack) trim() {
	if s.limit <= 0 {
		return
	}
	for countOps(s.undo) > s.limit {
		first := s.undo[0].op
		i := 0
		for i < len(s.undo) && s.undo[i].op == first {
			i++
		}
		s.undo = s.undo[i:]
	}
}

func (s *Stack) notify(changed []Element) {
	if len(changed) == 0 {
		return
	}
	for _, fn := range s.onChanged {
		fn(changed)
	}
}

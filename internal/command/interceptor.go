package command

// DefaultPriority is used by Interceptor registrations that do not care
// about ordering.
const DefaultPriority = 1000

// Interceptor registers lifecycle hooks on a Stack. Components embed or
// hold one and register their hooks in a constructor.
type Interceptor struct {
	stack *Stack
}

// NewInterceptor returns an interceptor bound to s.
func NewInterceptor(s *Stack) *Interceptor {
	return &Interceptor{stack: s}
}

// Stack returns the underlying command stack.
func (i *Interceptor) Stack() *Stack { return i.stack }

func (i *Interceptor) CanExecute(commands []string, priority int, veto Veto) {
	i.stack.OnCanExecute(commands, priority, veto)
}

func (i *Interceptor) PreExecute(commands []string, priority int, hook Hook) {
	i.stack.On(PhasePreExecute, commands, priority, hook)
}

func (i *Interceptor) PreExecuted(commands []string, priority int, hook Hook) {
	i.stack.On(PhasePreExecuted, commands, priority, hook)
}

// Executed hooks run after the handler's Execute, on first execution and
// on redo.
func (i *Interceptor) Executed(commands []string, priority int, hook Hook) {
	i.stack.On(PhaseExecuted, commands, priority, hook)
}

func (i *Interceptor) PostExecute(commands []string, priority int, hook Hook) {
	i.stack.On(PhasePostExecute, commands, priority, hook)
}

func (i *Interceptor) PostExecuted(commands []string, priority int, hook Hook) {
	i.stack.On(PhasePostExecuted, commands, priority, hook)
}

func (i *Interceptor) Revert(commands []string, priority int, hook Hook) {
	i.stack.On(PhaseRevert, commands, priority, hook)
}

// Reverted hooks run after the handler's Revert, on undo and rollback.
func (i *Interceptor) Reverted(commands []string, priority int, hook Hook) {
	i.stack.On(PhaseReverted, commands, priority, hook)
}

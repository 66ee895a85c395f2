// Package updater keeps the semantic tree consistent with the diagram. It
// hooks into the command stack at fixed priorities: parent and DI sync
// when a handler ran, then planning table, definition and sentry
// maintenance after it.
package updater

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/command"
	"github.com/dusk-indust/cmmnedit/internal/modeling"
)

// ErrReferenceAnomaly is returned when a node that is still referenced
// would be detached, or a reference points at an unexpected kind.
var ErrReferenceAnomaly = errors.New("reference anomaly")

// Hook priorities. Lower runs first.
const (
	PriorityPlanningEnsure  = 100
	PriorityParent          = 100
	PriorityPlanningPrune   = 100
	PriorityPlanningRehome  = 200
	PriorityDefinition      = 300
	PrioritySentry          = 400
	PriorityPlanningCleanup = 500
)

// Updaters holds the hooks registered on one session's stack.
type Updaters struct {
	env    *modeling.Env
	stack  *command.Stack
	logger *zap.Logger

	// splitting suppresses the definition and sentry updaters while they
	// issue their own nested commands.
	splitting bool
}

// Register installs every updater on stack.
func Register(stack *command.Stack, env *modeling.Env, logger *zap.Logger) *Updaters {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &Updaters{env: env, stack: stack, logger: logger.Named("updater")}
	ic := command.NewInterceptor(stack)

	ic.PreExecute([]string{modeling.CmdShapeCreate, modeling.CmdShapeMove}, PriorityPlanningEnsure, u.ensurePlanningTable)

	ic.Executed(parentCommands, PriorityParent, u.parentExecuted)
	ic.Revert(parentCommands, PriorityParent, u.parentRevert)

	ic.PostExecute([]string{modeling.CmdElementsMove}, PriorityPlanningPrune, u.pruneDiscretionary)
	ic.PostExecute([]string{
		modeling.CmdConnectionCreate, modeling.CmdConnectionDelete, modeling.CmdConnectionReconnect,
	}, PriorityPlanningRehome, u.rehomeDiscretionary)

	referenceCommands := []string{
		modeling.CmdShapeCreate, modeling.CmdShapeDelete, modeling.CmdElementsMove,
		modeling.CmdShapeReplace, modeling.CmdUpdateProperties,
	}
	ic.PostExecute(referenceCommands, PriorityDefinition, u.updateDefinitions)
	ic.PostExecute(referenceCommands, PrioritySentry, u.updateSentries)

	ic.PostExecute(modeling.StructuralCommands, PriorityPlanningCleanup, u.cleanupPlanningTables)
	return u
}

// run executes a nested command.
func (u *Updaters) run(name string, ctx any) error {
	return u.stack.Execute(name, ctx)
}

// setParent moves n below parent through element.updateSemanticParent.
func (u *Updaters) setParent(n, parent *cmmn.Node) error {
	if n.Parent == parent {
		return nil
	}
	if parent != nil && parent.Kind != cmmn.KindPlanningTable && n.Contains(parent) {
		return fmt.Errorf("%w: %s cannot move below its own descendant %s", ErrReferenceAnomaly, n.ID, parent.ID)
	}
	return u.run(modeling.CmdUpdateSemanticParent, &modeling.UpdateSemanticParentContext{
		Node: n, NewParent: parent, Index: -1,
	})
}

// detachUnreferenced removes a shared node once nothing refers to it.
func (u *Updaters) detachUnreferenced(n *cmmn.Node) error {
	if n == nil || n.Parent == nil {
		return nil
	}
	if refs := u.env.Registry.GetReferences(n); len(refs) > 0 {
		return nil
	}
	u.logger.Debug("detaching unreferenced node", zap.String("node", n.ID), zap.Stringer("kind", n.Kind))
	return u.setParent(n, nil)
}

// suspend runs fn with the definition and sentry updaters disabled.
func (u *Updaters) suspend(fn func() error) error {
	prev := u.splitting
	u.splitting = true
	defer func() { u.splitting = prev }()
	return fn()
}

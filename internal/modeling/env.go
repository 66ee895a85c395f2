// Package modeling holds the command handlers behind every sanctioned
// mutation of an open diagram, the element factory, and the Modeling facade
// the interaction layer calls.
package modeling

import (
	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/ids"
	"github.com/dusk-indust/cmmnedit/internal/registry"
)

// Env is the per-session state command handlers and updaters operate on.
type Env struct {
	Doc      *cmmn.Document
	Canvas   *diagram.Canvas
	Registry *registry.Registry
	IDs      *ids.Pool
	Logger   *zap.Logger
}

// Attached reports whether n is reachable from the document's Definitions.
func (env *Env) Attached(n *cmmn.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == env.Doc.Definitions {
			return true
		}
	}
	return false
}

// Register adds n and its subtree to the registry and claims their ids.
func (env *Env) Register(n *cmmn.Node) {
	n.Walk(func(c *cmmn.Node) bool {
		env.Registry.Add(c)
		if err := env.IDs.Claim(c.ID, c); err != nil {
			env.Logger.Warn("id collision on register", zap.String("id", c.ID), zap.Error(err))
		}
		return true
	})
}

// Unregister is the inverse of Register.
func (env *Env) Unregister(n *cmmn.Node) {
	n.Walk(func(c *cmmn.Node) bool {
		env.Registry.Remove(c)
		if owner, ok := env.IDs.Owner(c.ID); ok && owner == c {
			env.IDs.Unclaim(c.ID)
		}
		return true
	})
}

// Place moves n to index below parent, or detaches it when parent is nil.
// Nodes entering the document are registered, nodes leaving it are
// unregistered. The inverse is recorded in j. Placing a node where it
// already is changes nothing.
func (env *Env) Place(n, parent *cmmn.Node, index int, j *Journal) error {
	old := cmmn.PlacementOf(n)
	if old.Parent == parent && (index < 0 || old.Index == index) {
		return nil
	}
	was := env.Attached(n)
	if parent == nil {
		cmmn.Detach(n)
	} else if err := parent.Add(n, index); err != nil {
		return err
	}
	env.sync(n, was)
	j.Record(func() {
		before := env.Attached(n)
		if err := old.Restore(n); err != nil {
			env.Logger.Error("restore placement", zap.String("node", n.ID), zap.Error(err))
		}
		env.sync(n, before)
	})
	return nil
}

func (env *Env) sync(n *cmmn.Node, was bool) {
	now := env.Attached(n)
	switch {
	case was && !now:
		env.Unregister(n)
	case !was && now:
		env.Register(n)
	}
}

// SetRef assigns *field = value on n, refiling n in the registry when the
// field is the one the registry tracks, and records the inverse in j.
func (env *Env) SetRef(n *cmmn.Node, field **cmmn.Node, value *cmmn.Node, j *Journal) {
	old := *field
	if old == value {
		return
	}
	assign := func(v *cmmn.Node) {
		*field = v
		if env.Registry.Has(n) {
			env.Registry.UpdateReference(n, n.Referenced())
		}
	}
	assign(value)
	j.Record(func() { assign(old) })
}

// ShapeOf returns the shape rendering n, or nil.
func (env *Env) ShapeOf(n *cmmn.Node) *diagram.Element {
	return env.Registry.GetShape(n)
}

// Journal records undo closures for the semantic side effects of one
// command execution so its revert restores exact placement.
type Journal struct {
	undo []func()
}

// Journaled is implemented by every command context through its embedded
// Journal.
type Journaled interface {
	UndoJournal() *Journal
}

// UndoJournal implements Journaled.
func (j *Journal) UndoJournal() *Journal { return j }

// Record appends fn to the journal.
func (j *Journal) Record(fn func()) {
	if j == nil {
		return
	}
	j.undo = append(j.undo, fn)
}

// Rewind runs the recorded closures newest first and empties the journal.
func (j *Journal) Rewind() {
	if j == nil {
		return
	}
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// Len returns the number of recorded closures.
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.undo)
}

package updater

import (
	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/command"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/modeling"
)

// ensureTable returns the planning table of o, creating it when missing.
func (u *Updaters) ensureTable(o *cmmn.Node) (*cmmn.Node, error) {
	if t := o.PlanningTable(); t != nil {
		return t, nil
	}
	c := &modeling.PlanningTableCreateContext{Owner: o}
	if err := u.run(modeling.CmdPlanningTableCreate, c); err != nil {
		return nil, err
	}
	recordPlanningTable("create")
	u.logger.Debug("created planning table", zap.String("owner", o.ID), zap.String("table", c.Table.ID))
	return c.Table, nil
}

// ensurePlanningTable makes sure the owner a discretionary item is about
// to be placed in has a planning table before the handler runs.
func (u *Updaters) ensurePlanningTable(e *command.Event) error {
	var s, parent *diagram.Element
	switch c := e.Context.(type) {
	case *modeling.CreateShapeContext:
		s, parent = c.Shape, c.Parent
	case *modeling.MoveShapeContext:
		if c.NewParent == nil || c.NewParent == c.Shape.Parent {
			return nil
		}
		s, parent = c.Shape, c.NewParent
	default:
		return nil
	}
	if !s.Is(cmmn.KindDiscretionaryItem) {
		return nil
	}
	o := owner(s, parent)
	if o == nil {
		return nil
	}
	_, err := u.ensureTable(o)
	return err
}

// pruneDiscretionary deletes discretionary connections a move left
// spanning two different parents.
func (u *Updaters) pruneDiscretionary(e *command.Event) error {
	c, ok := e.Context.(*modeling.MoveElementsContext)
	if !ok {
		return nil
	}
	seen := make(map[*diagram.Element]bool)
	for _, s := range c.Closure() {
		var conns []*diagram.Element
		conns = append(conns, s.IncomingDiscretionary()...)
		conns = append(conns, s.OutgoingDiscretionary()...)
		for _, conn := range conns {
			if seen[conn] {
				continue
			}
			seen[conn] = true
			if conn.Source.Parent == conn.Target.Parent {
				continue
			}
			if err := u.run(modeling.CmdConnectionDelete, &modeling.DeleteConnectionContext{Connection: conn}); err != nil {
				return err
			}
		}
	}
	return nil
}

// rehomeDiscretionary moves the discretionary item at the end of a
// created, deleted or reconnected discretionary connection into the
// planning table of its new owner.
func (u *Updaters) rehomeDiscretionary(e *command.Event) error {
	switch c := e.Context.(type) {
	case *modeling.CreateConnectionContext:
		if c.Connection.Discretionary {
			return u.rehomeItem(c.Connection.Target)
		}
	case *modeling.DeleteConnectionContext:
		if c.Connection.Discretionary {
			return u.rehomeItem(c.Connection.Target)
		}
	case *modeling.ReconnectContext:
		if !c.Connection.Discretionary {
			return nil
		}
		if err := u.rehomeItem(c.Connection.Target); err != nil {
			return err
		}
		if old := c.OldTarget(); old != nil && old != c.Connection.Target {
			return u.rehomeItem(old)
		}
	}
	return nil
}

// rehomeTargets moves the discretionary items at the end of the
// discretionary connections leaving s into the planning table of their
// current owner.
func (u *Updaters) rehomeTargets(s *diagram.Element) error {
	for _, conn := range s.OutgoingDiscretionary() {
		if err := u.rehomeItem(conn.Target); err != nil {
			return err
		}
	}
	return nil
}

func (u *Updaters) rehomeItem(s *diagram.Element) error {
	if s == nil || !s.Is(cmmn.KindDiscretionaryItem) || u.env.Canvas.Get(s.ID) != s {
		return nil
	}
	o := owner(s, s.Parent)
	if o == nil || inTableOf(s.Node, o) {
		return nil
	}
	table, err := u.ensureTable(o)
	if err != nil {
		return err
	}
	return u.setParent(s.Node, table)
}

// cleanupPlanningTables deletes planning tables left without table items
// once a top-level command finished. Removing a nested table can empty
// its parent, so it repeats until nothing changes.
func (u *Updaters) cleanupPlanningTables(e *command.Event) error {
	if u.stack.Depth() > 1 {
		return nil
	}
	for {
		empty := u.env.Registry.Filter(func(n *cmmn.Node) bool {
			return n.Kind == cmmn.KindPlanningTable && len(n.Children(cmmn.CollTableItems)) == 0
		})
		if len(empty) == 0 {
			return nil
		}
		for _, t := range empty {
			if err := u.run(modeling.CmdPlanningTableDelete, &modeling.PlanningTableDeleteContext{Table: t}); err != nil {
				return err
			}
			recordPlanningTable("delete")
			u.logger.Debug("deleted empty planning table", zap.String("table", t.ID))
		}
	}
}

package updater

import (
	"fmt"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/command"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/modeling"
)

var parentCommands = []string{
	modeling.CmdShapeCreate, modeling.CmdShapeDelete, modeling.CmdShapeMove,
	modeling.CmdShapeResize, modeling.CmdShapeToggleCollapse,
	modeling.CmdConnectionCreate, modeling.CmdConnectionDelete,
	modeling.CmdConnectionReconnect, modeling.CmdConnectionLayout,
}

// parentRevert undoes the semantic and DI changes parentExecuted made,
// before the handler reverts the diagram.
func (u *Updaters) parentRevert(e *command.Event) error {
	if j, ok := e.Context.(modeling.Journaled); ok {
		j.UndoJournal().Rewind()
	}
	return nil
}

// parentExecuted mirrors the diagram change into the semantic tree and the
// DI sheet. It runs on first execution and on redo.
func (u *Updaters) parentExecuted(e *command.Event) error {
	switch c := e.Context.(type) {
	case *modeling.CreateShapeContext:
		if err := u.placeShape(c.Shape, &c.Journal); err != nil {
			return err
		}
		u.addDI(c.Shape, &c.Journal)

	case *modeling.DeleteShapeContext:
		if n := semanticOf(c.Shape); n != nil {
			if err := u.env.Place(n, nil, -1, &c.Journal); err != nil {
				return err
			}
		}
		u.removeDI(c.Shape, &c.Journal)

	case *modeling.MoveShapeContext:
		if c.OldParent() != c.Shape.Parent || c.OldHost() != c.Shape.Host {
			if err := u.placeShape(c.Shape, &c.Journal); err != nil {
				return err
			}
		}
		for _, m := range c.Moved() {
			u.syncDI(m, &c.Journal)
		}

	case *modeling.ResizeShapeContext:
		u.syncDI(c.Shape, &c.Journal)

	case *modeling.ToggleCollapseContext:
		u.syncDI(c.Shape, &c.Journal)

	case *modeling.CreateConnectionContext:
		if err := u.placeConnection(c.Connection, &c.Journal); err != nil {
			return err
		}
		u.addDI(c.Connection, &c.Journal)

	case *modeling.DeleteConnectionContext:
		if n := c.Connection.Node; n != nil {
			if err := u.env.Place(n, nil, -1, &c.Journal); err != nil {
				return err
			}
		}
		u.removeDI(c.Connection, &c.Journal)

	case *modeling.ReconnectContext:
		if err := u.placeConnection(c.Connection, &c.Journal); err != nil {
			return err
		}
		u.syncDI(c.Connection, &c.Journal)

	case *modeling.LayoutConnectionContext:
		u.syncDI(c.Connection, &c.Journal)
	}
	return nil
}

// semanticOf returns the node whose placement a shape controls. A case
// plan model shape controls its case.
func semanticOf(s *diagram.Element) *cmmn.Node {
	n := s.Node
	if n == nil {
		return nil
	}
	if n.Kind == cmmn.KindCasePlanModel && n.Parent != nil && n.Parent.Kind == cmmn.KindCase {
		return n.Parent
	}
	return n
}

// placeShape puts the semantic node of s where its visual position
// requires.
func (u *Updaters) placeShape(s *diagram.Element, j *modeling.Journal) error {
	n := s.Node
	if n == nil {
		return nil
	}
	env := u.env
	var parent *cmmn.Node
	switch {
	case n.Kind == cmmn.KindPlanItem:
		parent = container(s.Parent)

	case n.Kind == cmmn.KindDiscretionaryItem:
		o := owner(s, s.Parent)
		if o == nil {
			return fmt.Errorf("place %s: no planning table owner", n.ID)
		}
		if inTableOf(n, o) {
			return nil
		}
		parent = o.PlanningTable()
		if parent == nil {
			return fmt.Errorf("place %s: %s has no planning table", n.ID, o.ID)
		}

	case n.Kind.IsCriterion():
		if s.Host == nil {
			return fmt.Errorf("place %s: criterion is not attached", n.ID)
		}
		parent = s.Host.Node

	case n.Kind == cmmn.KindCaseFileItem:
		parent = u.caseFileModelFor(s)

	case n.Kind == cmmn.KindTextAnnotation:
		parent = env.Doc.Definitions

	case n.Kind == cmmn.KindCasePlanModel:
		return env.Place(semanticOf(s), env.Doc.Definitions, -1, j)

	default:
		return nil
	}
	if parent == nil {
		return fmt.Errorf("place %s: no semantic parent for %s", n.ID, n.Kind)
	}
	return env.Place(n, parent, -1, j)
}

// caseFileModelFor returns the case file model of the case s is drawn in,
// falling back to the first case of the document.
func (u *Updaters) caseFileModelFor(s *diagram.Element) *cmmn.Node {
	var c *cmmn.Node
	if cpm := casePlanModelOf(s.Parent); cpm != nil {
		c = cmmn.CaseOf(cpm.Node)
	}
	if c == nil {
		if cases := u.env.Doc.Cases(); len(cases) > 0 {
			c = cases[0]
		}
	}
	if c == nil {
		return nil
	}
	return c.CaseFileModel()
}

// placeConnection wires the semantic node behind conn to its endpoints.
func (u *Updaters) placeConnection(conn *diagram.Element, j *modeling.Journal) error {
	n := conn.Node
	if n == nil {
		return nil
	}
	env := u.env
	switch {
	case n.Kind.IsOnPart():
		if conn.Source == nil || conn.Target == nil {
			return fmt.Errorf("place %s: on-part needs both ends", n.ID)
		}
		sentry := conn.Target.Node.SentryRef
		if sentry == nil {
			return fmt.Errorf("%w: criterion %s has no sentry", ErrReferenceAnomaly, conn.Target.ID)
		}
		env.SetRef(n, &n.SourceRef, conn.Source.Node, j)
		return env.Place(n, sentry, -1, j)

	case n.Kind == cmmn.KindAssociation:
		env.SetRef(n, &n.SourceRef, conn.Source.Node, j)
		env.SetRef(n, &n.TargetRef, conn.Target.Node, j)
		return env.Place(n, env.Doc.Definitions, -1, j)
	}
	return nil
}

// ---------- DI ----------

func diID(e *diagram.Element) string { return e.ID + "_di" }

// addDI binds a DI record to e and adds it to the sheet. A record kept
// from an earlier execution is reused.
func (u *Updaters) addDI(e *diagram.Element, j *modeling.Journal) {
	di := e.DI
	if di == nil {
		di = &cmmn.DIElement{ID: diID(e), Ref: e.Node, Edge: e.IsConnection()}
		e.DI = di
	}
	sheet := u.env.Doc.Diagram
	sheet.Add(di, -1)
	j.Record(func() { sheet.Remove(di) })
	u.syncDI(e, j)
}

// removeDI takes e's DI record off the sheet.
func (u *Updaters) removeDI(e *diagram.Element, j *modeling.Journal) {
	di := e.DI
	if di == nil {
		return
	}
	sheet := u.env.Doc.Diagram
	idx := sheet.Remove(di)
	if idx < 0 {
		return
	}
	j.Record(func() { sheet.Add(di, idx) })
}

// syncDI copies geometry and endpoints of e into its DI record.
func (u *Updaters) syncDI(e *diagram.Element, j *modeling.Journal) {
	di := e.DI
	if di == nil {
		return
	}
	old := *di
	old.Waypoints = clonePoints(di.Waypoints)
	if e.IsConnection() {
		di.Waypoints = clonePoints(e.Waypoints)
		di.SourceID, di.TargetID = diRefID(e.Source), diRefID(e.Target)
	} else {
		di.Bounds = e.Bounds
		di.IsCollapsed = e.Collapsed
	}
	j.Record(func() { *di = old })
}

func diRefID(e *diagram.Element) string {
	if e == nil || e.DI == nil {
		return ""
	}
	return e.DI.ID
}

func clonePoints(points []cmmn.Point) []cmmn.Point {
	if points == nil {
		return nil
	}
	out := make([]cmmn.Point, len(points))
	copy(out, points)
	return out
}

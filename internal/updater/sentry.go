package updater

import (
	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/command"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/modeling"
	"github.com/dusk-indust/cmmnedit/internal/replace"
)

func sentryOf(n *cmmn.Node) *cmmn.Node {
	if n == nil || !n.Kind.IsCriterion() {
		return nil
	}
	return n.SentryRef
}

// updateSentries keeps every sentry next to the items its criteria are
// attached to, splitting sentries whose criteria ended up in different
// scopes.
func (u *Updaters) updateSentries(e *command.Event) error {
	if u.splitting {
		return nil
	}
	switch c := e.Context.(type) {
	case *modeling.CreateShapeContext:
		return u.regroupSentry(sentryOf(c.Shape.Node))

	case *modeling.ReplaceShapeContext:
		if c.NewShape == nil {
			return nil
		}
		return u.regroupSentry(sentryOf(c.NewShape.Node))

	case *modeling.DeleteShapeContext:
		sentry := sentryOf(c.Shape.Node)
		if sentry == nil {
			return nil
		}
		if err := u.detachUnreferenced(sentry); err != nil {
			return err
		}
		if sentry.Parent == nil {
			return nil
		}
		return u.regroupSentry(sentry)

	case *modeling.UpdatePropertiesContext:
		if c.Properties.SentryRef == nil {
			return nil
		}
		if old := c.OldSentry(); old != nil && old != c.Node.SentryRef {
			if err := u.detachUnreferenced(old); err != nil {
				return err
			}
			if old.Parent != nil {
				if err := u.regroupSentry(old); err != nil {
					return err
				}
			}
		}
		return u.regroupSentry(c.Node.SentryRef)

	case *modeling.MoveElementsContext:
		seen := make(map[*cmmn.Node]bool)
		for _, s := range affected(c.Closure()) {
			sentry := sentryOf(s.Node)
			if sentry == nil || seen[sentry] {
				continue
			}
			seen[sentry] = true
			if err := u.regroupSentry(sentry); err != nil {
				return err
			}
		}
	}
	return nil
}

type criterionGroup struct {
	parent   *cmmn.Node
	criteria []*diagram.Element
}

// groupCriteria buckets the attached criteria referencing sentry by the
// scope their sentry must live in, in first-seen order.
func (u *Updaters) groupCriteria(sentry *cmmn.Node) []*criterionGroup {
	var groups []*criterionGroup
	index := make(map[*cmmn.Node]*criterionGroup)
	for _, ref := range u.env.Registry.GetReferences(sentry) {
		s := u.env.ShapeOf(ref)
		if s == nil {
			continue
		}
		p := sentryParent(s.Host)
		if p == nil {
			continue
		}
		g, ok := index[p]
		if !ok {
			g = &criterionGroup{parent: p}
			index[p] = g
			groups = append(groups, g)
		}
		g.criteria = append(g.criteria, s)
	}
	return groups
}

// regroupSentry places sentry with its criteria. The group already
// holding the sentry keeps it; every other group gets a clone.
func (u *Updaters) regroupSentry(sentry *cmmn.Node) error {
	if sentry == nil {
		return nil
	}
	groups := u.groupCriteria(sentry)
	if len(groups) == 0 {
		return nil
	}
	keep := 0
	for i, g := range groups {
		if g.parent == sentry.Parent {
			keep = i
			break
		}
	}
	if err := u.setParent(sentry, groups[keep].parent); err != nil {
		return err
	}
	for i, g := range groups {
		if i == keep {
			continue
		}
		if err := u.splitSentry(sentry, g); err != nil {
			return err
		}
	}
	return nil
}

// splitSentry hands the criteria of g a clone of sentry. Unrendered
// on-parts are copied; rendered on-parts pointing at g's criteria move to
// the clone.
func (u *Updaters) splitSentry(sentry *cmmn.Node, g *criterionGroup) error {
	cv := u.env.Canvas
	unrendered := func(op *cmmn.Node) bool { return len(cv.ElementsFor(op)) == 0 }
	clone := replace.CloneSentry(sentry, u.env.IDs, unrendered)
	targets := elementSet(g.criteria)
	u.logger.Debug("splitting sentry",
		zap.String("sentry", sentry.ID), zap.String("clone", clone.ID), zap.Int("criteria", len(g.criteria)))

	err := u.suspend(func() error {
		if err := u.setParent(clone, g.parent); err != nil {
			return err
		}
		for _, op := range sentry.Children(cmmn.CollOnParts) {
			for _, conn := range cv.ElementsFor(op) {
				if conn.IsConnection() && targets[conn.Target] {
					if err := u.setParent(op, clone); err != nil {
						return err
					}
					break
				}
			}
		}
		for _, s := range g.criteria {
			if err := u.run(modeling.CmdUpdateProperties, &modeling.UpdatePropertiesContext{
				Node:       s.Node,
				Element:    s,
				Properties: modeling.Properties{SentryRef: clone},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	recordSplit("sentry")
	return nil
}

package modeling

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/command"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/ids"
)

// ErrInvalidOwner is returned when a planning table is requested for a
// node that cannot carry one.
var ErrInvalidOwner = errors.New("node cannot own a planning table")

// set assigns v to *field and records the inverse in j.
func set[T any](j *Journal, field *T, v T) {
	old := *field
	*field = v
	j.Record(func() { *field = old })
}

// shapesOf returns every element rendering n.
func (env *Env) shapesOf(n *cmmn.Node) []*diagram.Element {
	if n == nil {
		return nil
	}
	return env.Canvas.ElementsFor(n)
}

// ---------- element.updateProperties ----------

type updatePropertiesHandler struct {
	env *Env
}

func (h *updatePropertiesHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*UpdatePropertiesContext)
	n, p, j := c.Node, c.Properties, &c.Journal
	c.oldDefinition, c.oldSentry = n.DefinitionRef, n.SentryRef

	if p.ID != nil && *p.ID != n.ID {
		if err := h.rename(n, *p.ID, j); err != nil {
			c.Rewind()
			return nil, err
		}
	}
	if p.Name != nil {
		set(j, &n.Name, *p.Name)
	}
	if p.DefinitionRef != nil {
		h.env.SetRef(n, &n.DefinitionRef, p.DefinitionRef, j)
	}
	if p.SentryRef != nil {
		h.env.SetRef(n, &n.SentryRef, p.SentryRef, j)
	}
	if p.IsBlocking != nil {
		set(j, &n.IsBlocking, *p.IsBlocking)
	}
	if p.AutoComplete != nil {
		set(j, &n.AutoComplete, *p.AutoComplete)
	}
	if p.StandardEvent != nil {
		set(j, &n.StandardEvent, *p.StandardEvent)
	}
	if p.Condition != nil {
		set(j, &n.Condition, p.Condition.Clone())
	}
	if p.IfPart != nil {
		set(j, &n.IfPart, p.IfPart.Clone())
	}

	out := changed(append(h.env.shapesOf(n), c.Element)...)
	return out, nil
}

// rename moves n to newID in the pool, the registry, the canvas and the
// DI sheet.
func (h *updatePropertiesHandler) rename(n *cmmn.Node, newID string, j *Journal) error {
	env := h.env
	oldID := n.ID
	if owner, ok := env.IDs.Owner(newID); ok && owner != n {
		return fmt.Errorf("rename %s: %w: %s", oldID, ids.ErrIDClaimed, newID)
	}
	registered := env.Registry.Has(n)
	apply := func(from, to string) {
		if owner, ok := env.IDs.Owner(from); ok && owner == n {
			env.IDs.Unclaim(from)
		}
		if err := env.IDs.Claim(to, n); err != nil {
			env.Logger.Warn("reclaim id", zap.String("id", to), zap.Error(err))
		}
		if registered {
			env.Registry.UpdateID(n, to)
		} else {
			n.ID = to
		}
		for _, e := range env.Canvas.ElementsFor(n) {
			if e.ID == from {
				if err := env.Canvas.Rename(e, to); err != nil {
					env.Logger.Warn("rename element", zap.String("id", from), zap.Error(err))
				}
			}
		}
		for _, di := range env.Doc.Diagram.ByRef(n) {
			if di.ID == from+"_di" {
				di.ID = to + "_di"
			}
		}
	}
	apply(oldID, newID)
	j.Record(func() { apply(newID, oldID) })
	return nil
}

func (h *updatePropertiesHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*UpdatePropertiesContext)
	c.Rewind()
	return changed(append(h.env.shapesOf(c.Node), c.Element)...), nil
}

// ---------- element.updateSemanticParent ----------

type updateSemanticParentHandler struct {
	env *Env
}

func (h *updateSemanticParentHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*UpdateSemanticParentContext)
	if err := h.env.Place(c.Node, c.NewParent, c.Index, &c.Journal); err != nil {
		return nil, err
	}
	return changed(h.env.shapesOf(c.Node)...), nil
}

func (h *updateSemanticParentHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*UpdateSemanticParentContext)
	c.Rewind()
	return changed(h.env.shapesOf(c.Node)...), nil
}

// ---------- element.updateControls ----------

type updateControlsHandler struct {
	env *Env
}

func (h *updateControlsHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*UpdateControlsContext)
	n, j := c.Node, &c.Journal
	current := n.ItemControl()
	if c.Default {
		current = n.DefaultControl()
	}
	if current == c.Control {
		return nil, nil
	}
	if current != nil {
		if err := h.env.Place(current, nil, -1, j); err != nil {
			c.Rewind()
			return nil, err
		}
	}
	if c.Control != nil {
		if err := h.env.Place(c.Control, n, -1, j); err != nil {
			c.Rewind()
			return nil, err
		}
	}
	return changed(h.env.shapesOf(n)...), nil
}

func (h *updateControlsHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*UpdateControlsContext)
	c.Rewind()
	return changed(h.env.shapesOf(c.Node)...), nil
}

// ---------- planningTable.create / planningTable.delete ----------

type createPlanningTableHandler struct {
	env *Env
}

func (h *createPlanningTableHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*PlanningTableCreateContext)
	owner := c.Owner
	if owner.Kind != cmmn.KindPlanningTable && !owner.Kind.CanOwnPlanningTable() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOwner, owner.ID)
	}
	if c.reused {
		return nil, nil
	}
	if c.Table == nil {
		if existing := owner.PlanningTable(); existing != nil && owner.Kind != cmmn.KindPlanningTable {
			c.Table, c.reused = existing, true
			return nil, nil
		}
		table := cmmn.NewNode(cmmn.KindPlanningTable, "")
		table.ID = h.env.IDs.NextPrefixed(cmmn.KindPlanningTable.Prefix(), table)
		c.Table = table
	}
	if err := h.env.Place(c.Table, owner, -1, &c.Journal); err != nil {
		return nil, err
	}
	return changed(h.env.shapesOf(owner)...), nil
}

func (h *createPlanningTableHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*PlanningTableCreateContext)
	c.Rewind()
	return changed(h.env.shapesOf(c.Owner)...), nil
}

type deletePlanningTableHandler struct {
	env *Env
}

func (h *deletePlanningTableHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*PlanningTableDeleteContext)
	owner := c.Table.Parent
	if err := h.env.Place(c.Table, nil, -1, &c.Journal); err != nil {
		return nil, err
	}
	return changed(h.env.shapesOf(owner)...), nil
}

func (h *deletePlanningTableHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*PlanningTableDeleteContext)
	c.Rewind()
	return changed(h.env.shapesOf(c.Table.Parent)...), nil
}

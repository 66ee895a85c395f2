package modeling

import (
	"github.com/dusk-indust/cmmnedit/internal/command"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
)

// ---------- connection.create ----------

type createConnectionHandler struct {
	env *Env
}

func (h *createConnectionHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*CreateConnectionContext)
	conn := c.Connection
	conn.Source, conn.Target = c.Source, c.Target
	if len(conn.Waypoints) == 0 {
		conn.Waypoints = Layout(c.Source, c.Target)
	}
	parent := c.Parent
	if parent == nil {
		parent = connectionParent(c.Source, c.Target)
	}
	if err := h.env.Canvas.AddConnection(conn, parent, c.Index); err != nil {
		return nil, err
	}
	return changed(conn, c.Source, c.Target), nil
}

func (h *createConnectionHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*CreateConnectionContext)
	if _, err := h.env.Canvas.RemoveConnection(c.Connection); err != nil {
		return nil, err
	}
	return changed(c.Connection, c.Source, c.Target), nil
}

// connectionParent returns the visual parent a new connection is drawn in:
// the source's parent, or the root when the source has none.
func connectionParent(source, target *diagram.Element) *diagram.Element {
	if source != nil && source.Parent != nil {
		return source.Parent
	}
	if target != nil {
		return target.Parent
	}
	return nil
}

// ---------- connection.delete ----------

type deleteConnectionHandler struct {
	env *Env
}

func (h *deleteConnectionHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*DeleteConnectionContext)
	conn := c.Connection
	c.oldParent = conn.Parent
	idx, err := h.env.Canvas.RemoveConnection(conn)
	if err != nil {
		return nil, err
	}
	c.oldIndex = idx
	return changed(conn, conn.Source, conn.Target), nil
}

func (h *deleteConnectionHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*DeleteConnectionContext)
	conn := c.Connection
	if err := h.env.Canvas.AddConnection(conn, c.oldParent, c.oldIndex); err != nil {
		return nil, err
	}
	return changed(conn, conn.Source, conn.Target), nil
}

// ---------- connection.reconnect ----------

type reconnectHandler struct {
	env *Env
}

func (h *reconnectHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*ReconnectContext)
	conn := c.Connection
	cv := h.env.Canvas
	c.oldSource, c.oldTarget = conn.Source, conn.Target
	c.oldWaypoints = copyPoints(conn.Waypoints)
	if c.NewSource != nil {
		cv.SetSource(conn, c.NewSource)
	}
	if c.NewTarget != nil {
		cv.SetTarget(conn, c.NewTarget)
	}
	conn.Waypoints = Layout(conn.Source, conn.Target)
	return changed(conn, c.oldSource, c.oldTarget, conn.Source, conn.Target), nil
}

func (h *reconnectHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*ReconnectContext)
	conn := c.Connection
	cv := h.env.Canvas
	src, tgt := conn.Source, conn.Target
	cv.SetSource(conn, c.oldSource)
	cv.SetTarget(conn, c.oldTarget)
	conn.Waypoints = copyPoints(c.oldWaypoints)
	return changed(conn, src, tgt, c.oldSource, c.oldTarget), nil
}

// ---------- connection.layout ----------

type layoutConnectionHandler struct{}

func (layoutConnectionHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*LayoutConnectionContext)
	conn := c.Connection
	c.oldWaypoints = copyPoints(conn.Waypoints)
	if len(c.Waypoints) > 0 {
		conn.Waypoints = copyPoints(c.Waypoints)
	} else {
		conn.Waypoints = Layout(conn.Source, conn.Target)
	}
	return changed(conn), nil
}

func (layoutConnectionHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*LayoutConnectionContext)
	c.Connection.Waypoints = copyPoints(c.oldWaypoints)
	return changed(c.Connection), nil
}

// ---------- elements.delete ----------

type deleteElementsHandler struct {
	env   *Env
	stack *command.Stack
}

// PreExecute deletes each element still on the canvas; earlier deletions
// may already have taken later ones with them.
func (h *deleteElementsHandler) PreExecute(ctx any) error {
	c := ctx.(*DeleteElementsContext)
	for _, e := range c.Elements {
		if h.env.Canvas.Get(e.ID) != e {
			continue
		}
		var err error
		if e.IsConnection() {
			err = h.stack.Execute(CmdConnectionDelete, &DeleteConnectionContext{Connection: e})
		} else if e.IsShape() {
			err = h.stack.Execute(CmdShapeDelete, &DeleteShapeContext{Shape: e})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *deleteElementsHandler) Execute(ctx any) ([]command.Element, error) { return nil, nil }

func (h *deleteElementsHandler) Revert(ctx any) ([]command.Element, error) { return nil, nil }

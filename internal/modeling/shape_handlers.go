package modeling

import (
	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/command"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/replace"
	"github.com/dusk-indust/cmmnedit/internal/rules"
)

// changed converts elements to command.Element, skipping nils.
func changed(elements ...*diagram.Element) []command.Element {
	out := make([]command.Element, 0, len(elements))
	for _, e := range elements {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// ---------- shape.create ----------

type createShapeHandler struct {
	env *Env
}

func (h *createShapeHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*CreateShapeContext)
	if err := h.env.Canvas.AddShape(c.Shape, c.Parent, c.Index); err != nil {
		return nil, err
	}
	if c.Host != nil {
		h.env.Canvas.SetHost(c.Shape, c.Host)
	}
	return changed(c.Shape, c.Shape.Parent, c.Host), nil
}

func (h *createShapeHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*CreateShapeContext)
	parent := c.Shape.Parent
	h.env.Canvas.SetHost(c.Shape, nil)
	if _, err := h.env.Canvas.RemoveShape(c.Shape); err != nil {
		return nil, err
	}
	return changed(c.Shape, parent, c.Host), nil
}

// ---------- shape.delete ----------

type deleteShapeHandler struct {
	env   *Env
	stack *command.Stack
}

// PreExecute removes everything that cannot outlive the shape: its
// connections, attachers and children.
func (h *deleteShapeHandler) PreExecute(ctx any) error {
	c := ctx.(*DeleteShapeContext)
	s := c.Shape
	var conns []*diagram.Element
	conns = append(conns, s.Incoming...)
	conns = append(conns, s.Outgoing...)
	for _, conn := range conns {
		if err := h.deleteConnection(conn); err != nil {
			return err
		}
	}
	for _, a := range append([]*diagram.Element(nil), s.Attachers...) {
		if err := h.deleteShape(a); err != nil {
			return err
		}
	}
	children := append([]*diagram.Element(nil), s.Children...)
	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]
		var err error
		if child.IsConnection() {
			err = h.deleteConnection(child)
		} else {
			err = h.deleteShape(child)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *deleteShapeHandler) deleteConnection(conn *diagram.Element) error {
	if h.env.Canvas.Get(conn.ID) != conn {
		return nil
	}
	return h.stack.Execute(CmdConnectionDelete, &DeleteConnectionContext{Connection: conn})
}

func (h *deleteShapeHandler) deleteShape(s *diagram.Element) error {
	if h.env.Canvas.Get(s.ID) != s {
		return nil
	}
	return h.stack.Execute(CmdShapeDelete, &DeleteShapeContext{Shape: s})
}

func (h *deleteShapeHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*DeleteShapeContext)
	s := c.Shape
	c.oldParent = s.Parent
	c.oldIndex = s.IndexInParent()
	c.oldHost = s.Host
	h.env.Canvas.SetHost(s, nil)
	if _, err := h.env.Canvas.RemoveShape(s); err != nil {
		return nil, err
	}
	return changed(s, c.oldParent, c.oldHost), nil
}

func (h *deleteShapeHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*DeleteShapeContext)
	if err := h.env.Canvas.AddShape(c.Shape, c.oldParent, c.oldIndex); err != nil {
		return nil, err
	}
	if c.oldHost != nil {
		h.env.Canvas.SetHost(c.Shape, c.oldHost)
	}
	return changed(c.Shape, c.oldParent, c.oldHost), nil
}

// ---------- shape.move ----------

type moveShapeHandler struct {
	env *Env
}

func (h *moveShapeHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*MoveShapeContext)
	s := c.Shape
	cv := h.env.Canvas

	c.oldParent = s.Parent
	c.oldIndex = s.IndexInParent()
	c.oldHost = s.Host
	c.moved = c.moved[:0]
	c.attachers = c.attachers[:0]

	subtree := append([]*diagram.Element{s}, s.Descendants()...)
	inSubtree := make(map[*diagram.Element]bool, len(subtree))
	for _, e := range subtree {
		inSubtree[e] = true
		if e.IsShape() {
			e.Bounds = shift(e.Bounds, c.Delta)
			c.moved = append(c.moved, e)
		}
	}
	var attached []*diagram.Element
	for _, a := range s.Attachers {
		if inSubtree[a] {
			continue
		}
		a.Bounds = shift(a.Bounds, c.Delta)
		c.moved = append(c.moved, a)
		attached = append(attached, a)
	}

	if np := c.NewParent; np != nil && np != s.Parent {
		cv.SetParent(s, np, c.NewIndex)
	}
	// Each index is taken right before its own reparent so Revert can
	// replay the moves backwards.
	for _, a := range attached {
		if a.Parent == s.Parent {
			continue
		}
		c.attachers = append(c.attachers, attacherPlacement{shape: a, parent: a.Parent, index: a.IndexInParent()})
		cv.SetParent(a, s.Parent, -1)
	}
	if c.Attach {
		cv.SetHost(s, c.NewHost)
	}
	return changed(append(append([]*diagram.Element(nil), c.moved...), c.oldParent, s.Parent)...), nil
}

func (h *moveShapeHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*MoveShapeContext)
	s := c.Shape
	cv := h.env.Canvas
	newParent := s.Parent

	if c.Attach {
		cv.SetHost(s, c.oldHost)
	}
	for i := len(c.attachers) - 1; i >= 0; i-- {
		ap := c.attachers[i]
		cv.SetParent(ap.shape, ap.parent, ap.index)
	}
	if s.Parent != c.oldParent {
		cv.SetParent(s, c.oldParent, c.oldIndex)
	}
	back := cmmn.Point{X: -c.Delta.X, Y: -c.Delta.Y}
	for _, e := range c.moved {
		e.Bounds = shift(e.Bounds, back)
	}
	return changed(append(append([]*diagram.Element(nil), c.moved...), c.oldParent, newParent)...), nil
}

// ---------- elements.move ----------

type moveElementsHandler struct {
	env   *Env
	stack *command.Stack
}

// PreExecute moves every top-level shape of the selection; children and
// attachers follow their parent or host.
func (h *moveElementsHandler) PreExecute(ctx any) error {
	c := ctx.(*MoveElementsContext)
	set := make(map[*diagram.Element]bool, len(c.Shapes))
	for _, s := range c.Shapes {
		set[s] = true
	}

	var tops []*diagram.Element
	for _, s := range c.Shapes {
		if !s.IsShape() || travels(s, set) {
			continue
		}
		tops = append(tops, s)
	}

	c.closure = c.closure[:0]
	seen := make(map[*diagram.Element]bool)
	add := func(e *diagram.Element) {
		if e.IsShape() && !seen[e] {
			seen[e] = true
			c.closure = append(c.closure, e)
		}
	}
	for _, s := range tops {
		add(s)
		for _, d := range s.Descendants() {
			add(d)
		}
		for _, a := range s.Attachers {
			add(a)
		}
	}

	for _, s := range tops {
		err := h.stack.Execute(CmdShapeMove, &MoveShapeContext{
			Shape:     s,
			Delta:     c.Delta,
			NewParent: c.NewParent,
			NewIndex:  -1,
			Attach:    c.Attach,
			NewHost:   c.NewHost,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func travels(e *diagram.Element, set map[*diagram.Element]bool) bool {
	if e.Host != nil && set[e.Host] {
		return true
	}
	for p := e.Parent; p != nil; p = p.Parent {
		if set[p] {
			return true
		}
	}
	return false
}

func (h *moveElementsHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*MoveElementsContext)
	return changed(c.closure...), nil
}

func (h *moveElementsHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*MoveElementsContext)
	return changed(c.closure...), nil
}

// PostExecute re-lays the connections touching the moved shapes.
// Connections with both ends moved are translated.
func (h *moveElementsHandler) PostExecute(ctx any) error {
	c := ctx.(*MoveElementsContext)
	moved := make(map[*diagram.Element]bool, len(c.closure))
	for _, e := range c.closure {
		moved[e] = true
	}
	return layoutConnections(h.env, h.stack, c.closure, func(conn *diagram.Element) []cmmn.Point {
		if moved[conn.Source] && moved[conn.Target] {
			return translate(conn.Waypoints, c.Delta)
		}
		return nil
	})
}

// layoutConnections issues connection.layout for every live connection
// touching shapes, once each. waypoints may supply explicit waypoints.
func layoutConnections(env *Env, stack *command.Stack, shapes []*diagram.Element, waypoints func(*diagram.Element) []cmmn.Point) error {
	seen := make(map[*diagram.Element]bool)
	for _, s := range shapes {
		var conns []*diagram.Element
		conns = append(conns, s.Incoming...)
		conns = append(conns, s.Outgoing...)
		for _, conn := range conns {
			if seen[conn] || env.Canvas.Get(conn.ID) != conn {
				continue
			}
			seen[conn] = true
			var wps []cmmn.Point
			if waypoints != nil {
				wps = waypoints(conn)
			}
			if err := stack.Execute(CmdConnectionLayout, &LayoutConnectionContext{Connection: conn, Waypoints: wps}); err != nil {
				return err
			}
		}
	}
	return nil
}

// ---------- shape.resize ----------

type resizeShapeHandler struct {
	env   *Env
	stack *command.Stack
}

func (h *resizeShapeHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*ResizeShapeContext)
	c.oldBounds = c.Shape.Bounds
	c.Shape.Bounds = c.NewBounds
	return changed(c.Shape), nil
}

func (h *resizeShapeHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*ResizeShapeContext)
	c.Shape.Bounds = c.oldBounds
	return changed(c.Shape), nil
}

func (h *resizeShapeHandler) PostExecute(ctx any) error {
	c := ctx.(*ResizeShapeContext)
	return layoutConnections(h.env, h.stack, []*diagram.Element{c.Shape}, nil)
}

// ---------- shape.toggleCollapse ----------

type toggleCollapseHandler struct{}

func (toggleCollapseHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*ToggleCollapseContext)
	c.Shape.Collapsed = !c.Shape.Collapsed
	return changed(c.Shape), nil
}

func (toggleCollapseHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*ToggleCollapseContext)
	c.Shape.Collapsed = !c.Shape.Collapsed
	return changed(c.Shape), nil
}

// ---------- shape.replace ----------

type replaceShapeHandler struct {
	env     *Env
	stack   *command.Stack
	factory *Factory
	rules   *rules.Rules
}

// PreExecute performs the replacement as ordinary nested commands: create
// the substitute, hand over children, attachers and connections, then
// delete the original.
func (h *replaceShapeHandler) PreExecute(ctx any) error {
	c := ctx.(*ReplaceShapeContext)
	old := c.OldShape
	res, err := replace.Replace(old.Node, c.Target, h.env.IDs)
	if err != nil {
		return err
	}

	bounds := old.Bounds
	if res.Collapsed != old.Collapsed || res.Node.Kind.IsCriterion() != old.Kind().IsCriterion() {
		size := DefaultSize(res.Node.Kind, kindOf(res.Definition), res.Collapsed)
		center := old.Bounds.Center()
		bounds = cmmn.Bounds{X: center.X - size.Width/2, Y: center.Y - size.Height/2, Width: size.Width, Height: size.Height}
	}
	shape := h.factory.ShapeFor(res.Node, bounds, res.Collapsed)
	c.NewShape = shape

	if err := h.stack.Execute(CmdShapeCreate, &CreateShapeContext{
		Shape:  shape,
		Parent: old.Parent,
		Index:  old.IndexInParent() + 1,
		Host:   old.Host,
	}); err != nil {
		return err
	}

	var children []*diagram.Element
	for _, ch := range old.Children {
		if ch.IsShape() && ch.Host == nil {
			children = append(children, ch)
		}
	}
	if len(children) > 0 && holdsItems(shape) {
		if err := h.stack.Execute(CmdElementsMove, &MoveElementsContext{Shapes: children, NewParent: shape}); err != nil {
			return err
		}
	}

	for _, a := range append([]*diagram.Element(nil), old.Attachers...) {
		keep := (a.Is(cmmn.KindEntryCriterion) && h.rules.CanAttachEntryCriterion(shape)) ||
			(a.Is(cmmn.KindExitCriterion) && h.rules.CanAttachExitCriterion(shape))
		if !keep {
			continue
		}
		if err := h.stack.Execute(CmdShapeMove, &MoveShapeContext{
			Shape: a, NewParent: shape.Parent, NewIndex: -1, Attach: true, NewHost: shape,
		}); err != nil {
			return err
		}
	}

	for _, conn := range append([]*diagram.Element(nil), old.Incoming...) {
		if h.rules.CanConnect(conn.Source, shape, conn).Type == connectionType(conn) {
			if err := h.stack.Execute(CmdConnectionReconnect, &ReconnectContext{Connection: conn, NewTarget: shape}); err != nil {
				return err
			}
		}
	}
	for _, conn := range append([]*diagram.Element(nil), old.Outgoing...) {
		if h.rules.CanConnect(shape, conn.Target, conn).Type == connectionType(conn) {
			if err := h.stack.Execute(CmdConnectionReconnect, &ReconnectContext{Connection: conn, NewSource: shape}); err != nil {
				return err
			}
		}
	}

	return h.stack.Execute(CmdShapeDelete, &DeleteShapeContext{Shape: old})
}

func (h *replaceShapeHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*ReplaceShapeContext)
	return changed(c.NewShape), nil
}

func (h *replaceShapeHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*ReplaceShapeContext)
	return changed(c.OldShape), nil
}

// holdsItems reports whether s renders a stage or plan fragment, collapsed
// or not.
func holdsItems(s *diagram.Element) bool {
	k := s.DefinitionKind()
	return s.IsItem() && (k == cmmn.KindStage || k == cmmn.KindPlanFragment)
}

func kindOf(n *cmmn.Node) cmmn.Kind {
	if n == nil {
		return cmmn.KindUnknown
	}
	return n.Kind
}

// connectionType classifies an existing connection the way the rule
// engine names connection types.
func connectionType(conn *diagram.Element) rules.ConnectionType {
	if conn.Discretionary {
		return rules.ConnectionDiscretionary
	}
	switch conn.Kind() {
	case cmmn.KindPlanItemOnPart:
		return rules.ConnectionPlanItemOnPart
	case cmmn.KindCaseFileItemOnPart:
		return rules.ConnectionCaseFileItemOnPart
	case cmmn.KindAssociation:
		return rules.ConnectionAssociation
	}
	return rules.ConnectionNone
}

package modeling

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/command"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/replace"
	"github.com/dusk-indust/cmmnedit/internal/rules"
)

// ErrNotAllowed is returned when the rule engine forbids a requested
// interaction.
var ErrNotAllowed = errors.New("not allowed by rules")

// Register installs every command handler on stack.
func Register(stack *command.Stack, env *Env, factory *Factory, r *rules.Rules) error {
	handlers := map[string]command.Handler{
		CmdShapeCreate:          &createShapeHandler{env: env},
		CmdShapeDelete:          &deleteShapeHandler{env: env, stack: stack},
		CmdShapeMove:            &moveShapeHandler{env: env},
		CmdElementsMove:         &moveElementsHandler{env: env, stack: stack},
		CmdShapeResize:          &resizeShapeHandler{env: env, stack: stack},
		CmdShapeReplace:         &replaceShapeHandler{env: env, stack: stack, factory: factory, rules: r},
		CmdShapeToggleCollapse:  toggleCollapseHandler{},
		CmdShapeAppend:          &appendShapeHandler{env: env, stack: stack, factory: factory, rules: r},
		CmdConnectionCreate:     &createConnectionHandler{env: env},
		CmdConnectionDelete:     &deleteConnectionHandler{env: env},
		CmdConnectionReconnect:  &reconnectHandler{env: env},
		CmdConnectionLayout:     layoutConnectionHandler{},
		CmdElementsDelete:       &deleteElementsHandler{env: env, stack: stack},
		CmdUpdateProperties:     &updatePropertiesHandler{env: env},
		CmdUpdateSemanticParent: &updateSemanticParentHandler{env: env},
		CmdUpdateControls:       &updateControlsHandler{env: env},
		CmdPlanningTableCreate:  &createPlanningTableHandler{env: env},
		CmdPlanningTableDelete:  &deletePlanningTableHandler{env: env},
	}
	for _, name := range commandNames {
		if err := stack.Register(name, handlers[name]); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

var commandNames = []string{
	CmdShapeCreate, CmdShapeDelete, CmdShapeMove, CmdElementsMove, CmdShapeResize,
	CmdShapeReplace, CmdShapeToggleCollapse, CmdShapeAppend,
	CmdConnectionCreate, CmdConnectionDelete, CmdConnectionReconnect, CmdConnectionLayout,
	CmdElementsDelete, CmdUpdateProperties, CmdUpdateSemanticParent, CmdUpdateControls,
	CmdPlanningTableCreate, CmdPlanningTableDelete,
}

// ---------- shape.append ----------

type appendShapeHandler struct {
	env     *Env
	stack   *command.Stack
	factory *Factory
	rules   *rules.Rules
}

func (h *appendShapeHandler) PreExecute(ctx any) error {
	c := ctx.(*AppendShapeContext)
	if err := h.stack.Execute(CmdShapeCreate, &CreateShapeContext{Shape: c.Shape, Parent: c.Parent, Index: -1}); err != nil {
		return err
	}
	res := h.rules.CanConnect(c.Source, c.Shape, nil)
	if !res.OK() {
		return nil
	}
	conn, err := h.factory.CreateConnection(res.Type.Kind(), res.Type == rules.ConnectionDiscretionary)
	if err != nil {
		return err
	}
	c.Connection = conn
	return h.stack.Execute(CmdConnectionCreate, &CreateConnectionContext{
		Connection: conn, Source: c.Source, Target: c.Shape, Index: -1,
	})
}

func (h *appendShapeHandler) Execute(ctx any) ([]command.Element, error) {
	c := ctx.(*AppendShapeContext)
	return changed(c.Shape, c.Connection), nil
}

func (h *appendShapeHandler) Revert(ctx any) ([]command.Element, error) {
	c := ctx.(*AppendShapeContext)
	return changed(c.Shape, c.Connection), nil
}

// ---------- Facade ----------

// Modeling is the entry point the interaction layer uses. Every method
// runs exactly one top-level command, so each call is one undo step.
type Modeling struct {
	env     *Env
	stack   *command.Stack
	factory *Factory
	rules   *rules.Rules
}

// New registers the handlers on stack and returns the facade.
func New(stack *command.Stack, env *Env, r *rules.Rules) (*Modeling, error) {
	f := NewFactory(env)
	if err := Register(stack, env, f, r); err != nil {
		return nil, err
	}
	return &Modeling{env: env, stack: stack, factory: f, rules: r}, nil
}

// Factory returns the element factory.
func (m *Modeling) Factory() *Factory { return m.factory }

// Stack returns the command stack.
func (m *Modeling) Stack() *command.Stack { return m.stack }

// mark opens an id log for a top-level call; nested calls get -1.
func (m *Modeling) mark() int {
	if m.stack.Executing() {
		return -1
	}
	return m.env.IDs.Mark()
}

// settle releases the ids generated since mark when the call failed, so
// nodes a rolled-back operation threw away do not keep their claims.
func (m *Modeling) settle(mark int, err *error) {
	if mark < 0 {
		return
	}
	if *err != nil {
		m.env.IDs.Release(mark)
		return
	}
	m.env.IDs.Keep(mark)
}

// CreateShape builds a shape from opts and adds it below parent. A
// non-nil host attaches it (criteria); the shape is then placed in the
// host's parent.
func (m *Modeling) CreateShape(opts ShapeOptions, parent, host *diagram.Element) (_ *diagram.Element, err error) {
	defer m.settle(m.mark(), &err)
	shape, err := m.factory.CreateShape(opts)
	if err != nil {
		return nil, err
	}
	if host != nil {
		parent = host.Parent
	}
	if parent == nil {
		parent = m.env.Canvas.Root()
	}
	if err := m.stack.Execute(CmdShapeCreate, &CreateShapeContext{Shape: shape, Parent: parent, Index: -1, Host: host}); err != nil {
		return nil, err
	}
	return shape, nil
}

// AppendShape creates a shape and connects source to it in one operation.
// The returned connection is nil when no connection type fits.
func (m *Modeling) AppendShape(source *diagram.Element, opts ShapeOptions, parent *diagram.Element) (_, _ *diagram.Element, err error) {
	defer m.settle(m.mark(), &err)
	shape, err := m.factory.CreateShape(opts)
	if err != nil {
		return nil, nil, err
	}
	if parent == nil {
		parent = source.Parent
	}
	c := &AppendShapeContext{Source: source, Shape: shape, Parent: parent}
	if err := m.stack.Execute(CmdShapeAppend, c); err != nil {
		return nil, nil, err
	}
	return shape, c.Connection, nil
}

// CreateConnection joins source and target with the connection type the
// rules pick.
func (m *Modeling) CreateConnection(source, target *diagram.Element) (_ *diagram.Element, err error) {
	defer m.settle(m.mark(), &err)
	res := m.rules.CanConnect(source, target, nil)
	if !res.OK() {
		return nil, fmt.Errorf("connect %s -> %s: %w", elementID(source), elementID(target), ErrNotAllowed)
	}
	conn, err := m.factory.CreateConnection(res.Type.Kind(), res.Type == rules.ConnectionDiscretionary)
	if err != nil {
		return nil, err
	}
	if err := m.stack.Execute(CmdConnectionCreate, &CreateConnectionContext{
		Connection: conn, Source: source, Target: target, Index: -1,
	}); err != nil {
		return nil, err
	}
	return conn, nil
}

func elementID(e *diagram.Element) string {
	if e == nil {
		return "<nil>"
	}
	return e.ID
}

// MoveOptions steer MoveElements. A nil Parent keeps each shape's parent.
// Attach (re)attaches the moved shapes to Host, or detaches them when Host
// is nil.
type MoveOptions struct {
	Parent *diagram.Element
	Attach bool
	Host   *diagram.Element
}

// MoveElements moves a selection by delta.
func (m *Modeling) MoveElements(shapes []*diagram.Element, delta cmmn.Point, opts MoveOptions) (err error) {
	defer m.settle(m.mark(), &err)
	return m.stack.Execute(CmdElementsMove, &MoveElementsContext{
		Shapes:    shapes,
		Delta:     delta,
		NewParent: opts.Parent,
		Attach:    opts.Attach,
		NewHost:   opts.Host,
	})
}

// MoveShape moves a single shape; it is MoveElements with one element.
func (m *Modeling) MoveShape(shape *diagram.Element, delta cmmn.Point, newParent *diagram.Element) error {
	return m.MoveElements([]*diagram.Element{shape}, delta, MoveOptions{Parent: newParent})
}

// ResizeShape sets the bounds of shape.
func (m *Modeling) ResizeShape(shape *diagram.Element, bounds cmmn.Bounds) (err error) {
	defer m.settle(m.mark(), &err)
	return m.stack.Execute(CmdShapeResize, &ResizeShapeContext{Shape: shape, NewBounds: bounds})
}

// ReplaceElement substitutes shape by one built for target and returns the
// new shape.
func (m *Modeling) ReplaceElement(shape *diagram.Element, target replace.Target) (_ *diagram.Element, err error) {
	defer m.settle(m.mark(), &err)
	c := &ReplaceShapeContext{OldShape: shape, Target: target}
	if err := m.stack.Execute(CmdShapeReplace, c); err != nil {
		return nil, err
	}
	return c.NewShape, nil
}

// ToggleCollapse collapses an expanded shape or expands a collapsed one.
func (m *Modeling) ToggleCollapse(shape *diagram.Element) error {
	return m.stack.Execute(CmdShapeToggleCollapse, &ToggleCollapseContext{Shape: shape})
}

// ReconnectStart moves the source end of conn to source.
func (m *Modeling) ReconnectStart(conn, source *diagram.Element) (err error) {
	defer m.settle(m.mark(), &err)
	return m.stack.Execute(CmdConnectionReconnect, &ReconnectContext{Connection: conn, NewSource: source})
}

// ReconnectEnd moves the target end of conn to target.
func (m *Modeling) ReconnectEnd(conn, target *diagram.Element) (err error) {
	defer m.settle(m.mark(), &err)
	return m.stack.Execute(CmdConnectionReconnect, &ReconnectContext{Connection: conn, NewTarget: target})
}

// LayoutConnection sets the waypoints of conn, or recomputes them when
// waypoints is empty.
func (m *Modeling) LayoutConnection(conn *diagram.Element, waypoints []cmmn.Point) error {
	return m.stack.Execute(CmdConnectionLayout, &LayoutConnectionContext{Connection: conn, Waypoints: waypoints})
}

// RemoveElements deletes the elements the rules allow to be removed.
func (m *Modeling) RemoveElements(elements []*diagram.Element) (err error) {
	defer m.settle(m.mark(), &err)
	removable := m.rules.CanRemove(elements)
	if len(removable) == 0 {
		return nil
	}
	return m.stack.Execute(CmdElementsDelete, &DeleteElementsContext{Elements: removable})
}

// UpdateProperties applies props to node.
func (m *Modeling) UpdateProperties(node *cmmn.Node, props Properties) (err error) {
	defer m.settle(m.mark(), &err)
	return m.stack.Execute(CmdUpdateProperties, &UpdatePropertiesContext{Node: node, Properties: props})
}

// UpdateSemanticParent moves node below parent without touching the
// diagram.
func (m *Modeling) UpdateSemanticParent(node, parent *cmmn.Node) (err error) {
	defer m.settle(m.mark(), &err)
	return m.stack.Execute(CmdUpdateSemanticParent, &UpdateSemanticParentContext{Node: node, NewParent: parent, Index: -1})
}

// UpdateControls sets the item control of node, or its default control
// when dflt is set. A nil control removes it.
func (m *Modeling) UpdateControls(node, control *cmmn.Node, dflt bool) (err error) {
	defer m.settle(m.mark(), &err)
	return m.stack.Execute(CmdUpdateControls, &UpdateControlsContext{Node: node, Control: control, Default: dflt})
}

// ---------- Interaction checks ----------

// CheckCreate returns ErrNotAllowed when the rules reject creating a shape
// described by opts in parent, attached to host, or appended from source.
// A nil position skips the attach border check.
func (m *Modeling) CheckCreate(opts ShapeOptions, parent, host, source *diagram.Element, position *cmmn.Point) error {
	candidate := &diagram.Element{Type: diagram.TypeShape, Node: cmmn.NewNode(opts.Kind, "")}
	candidate.Node.DefinitionRef = opts.Definition
	if host != nil {
		if !m.rules.CanAttach([]*diagram.Element{candidate}, host, source, position) {
			return fmt.Errorf("attach %s to %s: %w", opts.Kind, host.ID, ErrNotAllowed)
		}
		return nil
	}
	if parent == nil {
		parent = m.env.Canvas.Root()
	}
	if !m.rules.CanCreate(candidate, parent, source, position) {
		return fmt.Errorf("create %s in %s: %w", opts.Kind, elementID(parent), ErrNotAllowed)
	}
	return nil
}

// CheckMove returns ErrNotAllowed when the rules reject moving shapes
// with opts. A move that keeps every parent only changes bounds.
func (m *Modeling) CheckMove(shapes []*diagram.Element, opts MoveOptions) error {
	if opts.Attach {
		if opts.Host == nil || !m.rules.CanAttach(shapes, opts.Host, nil, nil) {
			return fmt.Errorf("attach to %s: %w", elementID(opts.Host), ErrNotAllowed)
		}
		return nil
	}
	if opts.Parent != nil && !m.rules.CanMove(shapes, opts.Parent) {
		return fmt.Errorf("move into %s: %w", opts.Parent.ID, ErrNotAllowed)
	}
	return nil
}

// CheckResize returns ErrNotAllowed when the rules reject resizing shape
// to bounds.
func (m *Modeling) CheckResize(shape *diagram.Element, bounds cmmn.Bounds) error {
	if !m.rules.CanResize(shape, &bounds) {
		return fmt.Errorf("resize %s: %w", elementID(shape), ErrNotAllowed)
	}
	return nil
}

// Undo reverts the last operation.
func (m *Modeling) Undo() error { return m.stack.Undo() }

// Redo replays the last undone operation.
func (m *Modeling) Redo() error { return m.stack.Redo() }

package script

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/editor"
	"github.com/dusk-indust/cmmnedit/internal/modeling"
	"github.com/dusk-indust/cmmnedit/internal/replace"
)

var (
	// ErrUnknownElement is returned when a step names an element that is
	// not on the canvas.
	ErrUnknownElement = errors.New("unknown element")
	// ErrMissingField is returned when a step lacks a field its op needs.
	ErrMissingField = errors.New("missing step field")
	// ErrExpectation is returned by a failed expect step.
	ErrExpectation = errors.New("expectation failed")
)

// StepError reports the step a run stopped at.
type StepError struct {
	Index int
	Op    string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Op, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner applies scripts to one session. Aliases survive across Run calls.
type Runner struct {
	session *editor.Session
	logger  *zap.Logger
	// aliases keeps every element bound to a name, newest last; the newest
	// one still on the canvas wins, so undoing a replace restores the
	// alias to the old shape.
	aliases map[string][]*diagram.Element
	// produced is the element the last step created, if any.
	produced *diagram.Element
}

// NewRunner returns a runner for s.
func NewRunner(s *editor.Session, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{session: s, logger: logger.Named("script"), aliases: make(map[string][]*diagram.Element)}
}

// Lookup resolves an alias or element id.
func (r *Runner) Lookup(name string) (*diagram.Element, error) {
	canvas := r.session.Canvas()
	bound := r.aliases[name]
	for i := len(bound) - 1; i >= 0; i-- {
		if e := bound[i]; canvas.Get(e.ID) == e {
			return e, nil
		}
	}
	if e := canvas.Get(name); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownElement, name)
}

func (r *Runner) bind(alias string, e *diagram.Element) {
	r.produced = e
	if alias == "" || e == nil {
		return
	}
	r.aliases[alias] = append(r.aliases[alias], e)
}

// lookupOptional resolves name, treating an empty name as nil.
func (r *Runner) lookupOptional(name string) (*diagram.Element, error) {
	if name == "" {
		return nil, nil
	}
	return r.Lookup(name)
}

// Run applies every step of sc in order and stops at the first failure.
// A failed step leaves the session as it was before that step.
func (r *Runner) Run(ctx context.Context, sc *Script) error {
	log := r.logger.With(zap.String("script", sc.Name))
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug("step", zap.Int("index", i), zap.String("op", step.Op))
		if err := r.apply(step); err != nil {
			return &StepError{Index: i, Op: step.Op, Err: err}
		}
		if sc.Verify && step.Op != OpVerify {
			if err := r.session.Verify(); err != nil {
				return &StepError{Index: i, Op: step.Op, Err: err}
			}
		}
	}
	log.Info("script applied",
		zap.Int("steps", len(sc.Steps)),
		zap.Int("undoDepth", r.session.Stack().UndoDepth()))
	return nil
}

// Apply runs a single step outside a script and returns the element it
// created, or nil for steps that create nothing.
func (r *Runner) Apply(step Step) (*diagram.Element, error) {
	if err := validate.Struct(step); err != nil {
		return nil, fmt.Errorf("invalid step: %w", err)
	}
	r.produced = nil
	if err := r.apply(step); err != nil {
		return nil, err
	}
	return r.produced, nil
}

func (r *Runner) apply(step Step) error {
	m := r.session.Modeling()
	switch step.Op {
	case OpCreate:
		opts, err := r.shapeOptions(step)
		if err != nil {
			return err
		}
		parent, err := r.lookupOptional(step.Parent)
		if err != nil {
			return err
		}
		host, err := r.lookupOptional(step.Host)
		if err != nil {
			return err
		}
		if err := m.CheckCreate(opts, parent, host, nil, step.At); err != nil {
			return err
		}
		e, err := m.CreateShape(opts, parent, host)
		if err != nil {
			return err
		}
		r.bind(step.As, e)

	case OpAppend:
		source, err := r.required(step.Source, "source")
		if err != nil {
			return err
		}
		opts, err := r.shapeOptions(step)
		if err != nil {
			return err
		}
		parent, err := r.lookupOptional(step.Parent)
		if err != nil {
			return err
		}
		target := parent
		if target == nil {
			target = source.Parent
		}
		if err := m.CheckCreate(opts, target, nil, source, step.At); err != nil {
			return err
		}
		e, _, err := m.AppendShape(source, opts, parent)
		if err != nil {
			return err
		}
		r.bind(step.As, e)

	case OpConnect:
		source, err := r.required(step.Source, "source")
		if err != nil {
			return err
		}
		target, err := r.required(step.Target, "target")
		if err != nil {
			return err
		}
		c, err := m.CreateConnection(source, target)
		if err != nil {
			return err
		}
		r.bind(step.As, c)

	case OpMove:
		shapes, err := r.selection(step)
		if err != nil {
			return err
		}
		var delta cmmn.Point
		if step.By != nil {
			delta = *step.By
		}
		parent, err := r.lookupOptional(step.Parent)
		if err != nil {
			return err
		}
		host, err := r.lookupOptional(step.Host)
		if err != nil {
			return err
		}
		opts := modeling.MoveOptions{Parent: parent, Attach: step.Attach, Host: host}
		if err := m.CheckMove(shapes, opts); err != nil {
			return err
		}
		return m.MoveElements(shapes, delta, opts)

	case OpResize:
		e, err := r.required(step.Element, "element")
		if err != nil {
			return err
		}
		if step.Bounds == nil {
			return fmt.Errorf("%w: bounds", ErrMissingField)
		}
		if err := m.CheckResize(e, *step.Bounds); err != nil {
			return err
		}
		return m.ResizeShape(e, *step.Bounds)

	case OpReplace:
		e, err := r.required(step.Element, "element")
		if err != nil {
			return err
		}
		kind, err := cmmn.ParseKind(step.Kind)
		if err != nil {
			return err
		}
		shape, err := m.ReplaceElement(e, replace.Target{Kind: kind, Collapsed: step.Collapsed})
		if err != nil {
			return err
		}
		r.rebind(e, shape)
		r.bind(step.As, shape)

	case OpToggleCollapse:
		e, err := r.required(step.Element, "element")
		if err != nil {
			return err
		}
		return m.ToggleCollapse(e)

	case OpReconnectStart, OpReconnectEnd:
		conn, err := r.required(step.Element, "element")
		if err != nil {
			return err
		}
		if step.Op == OpReconnectStart {
			source, err := r.required(step.Source, "source")
			if err != nil {
				return err
			}
			return m.ReconnectStart(conn, source)
		}
		target, err := r.required(step.Target, "target")
		if err != nil {
			return err
		}
		return m.ReconnectEnd(conn, target)

	case OpLayout:
		conn, err := r.required(step.Element, "element")
		if err != nil {
			return err
		}
		return m.LayoutConnection(conn, step.Waypoints)

	case OpDelete:
		elements, err := r.selection(step)
		if err != nil {
			return err
		}
		return m.RemoveElements(elements)

	case OpUpdate:
		e, err := r.required(step.Element, "element")
		if err != nil {
			return err
		}
		if e.Node == nil {
			return fmt.Errorf("%w: %s renders no node", ErrUnknownElement, e.ID)
		}
		return m.UpdateProperties(e.Node, modeling.Properties{
			ID:           step.ID,
			Name:         step.Name,
			IsBlocking:   step.Blocking,
			AutoComplete: step.AutoComplete,
		})

	case OpUndo:
		return m.Undo()

	case OpRedo:
		return m.Redo()

	case OpVerify:
		return r.session.Verify()

	case OpExpect:
		return r.expect(step.Expect)

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// rebind points every alias of old at its replacement as well.
func (r *Runner) rebind(old, repl *diagram.Element) {
	for name, bound := range r.aliases {
		if len(bound) > 0 && bound[len(bound)-1] == old {
			r.aliases[name] = append(bound, repl)
		}
	}
}

func (r *Runner) required(name, field string) (*diagram.Element, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return r.Lookup(name)
}

// selection resolves Elements, falling back to Element.
func (r *Runner) selection(step Step) ([]*diagram.Element, error) {
	names := step.Elements
	if len(names) == 0 && step.Element != "" {
		names = []string{step.Element}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: elements", ErrMissingField)
	}
	out := make([]*diagram.Element, 0, len(names))
	for _, n := range names {
		e, err := r.Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Runner) shapeOptions(step Step) (modeling.ShapeOptions, error) {
	var opts modeling.ShapeOptions
	kind, err := cmmn.ParseKind(step.Kind)
	if err != nil {
		return opts, err
	}
	opts.Kind = kind
	if step.Definition != "" {
		if opts.DefinitionKind, err = cmmn.ParseKind(step.Definition); err != nil {
			return opts, err
		}
	}
	if step.ShareWith != "" {
		other, err := r.Lookup(step.ShareWith)
		if err != nil {
			return opts, err
		}
		if other.Node != nil {
			opts.Definition = other.Node.DefinitionRef
			opts.Sentry = other.Node.SentryRef
		}
	}
	if step.Name != nil {
		opts.Name = *step.Name
	}
	if step.At != nil {
		opts.Position = *step.At
	}
	opts.Collapsed = step.Collapsed
	return opts, nil
}

// ---------- Expectations ----------

func (r *Runner) expect(x *Expect) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrExpectation}, args...)...))
	}

	if len(x.Count) > 0 {
		counts := make(map[cmmn.Kind]int)
		r.session.Document().Definitions.Walk(func(n *cmmn.Node) bool {
			counts[n.Kind]++
			return true
		})
		names := make([]string, 0, len(x.Count))
		for name := range x.Count {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			kind, err := cmmn.ParseKind(name)
			if err != nil {
				return err
			}
			if got, want := counts[kind], x.Count[name]; got != want {
				fail("%d %s nodes, want %d", got, kind, want)
			}
		}
	}

	defs := make([]*cmmn.Node, 0, len(x.SameDefinition))
	for _, name := range x.SameDefinition {
		def, err := r.definitionOf(name)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}
	for i := 1; i < len(defs); i++ {
		if defs[i] != defs[0] {
			fail("%s and %s do not share a definition", x.SameDefinition[0], x.SameDefinition[i])
		}
	}

	seen := make(map[*cmmn.Node]string)
	for _, name := range x.DistinctDefinition {
		def, err := r.definitionOf(name)
		if err != nil {
			return err
		}
		if other, dup := seen[def]; dup {
			fail("%s and %s share definition %s", other, name, def.ID)
		}
		seen[def] = name
	}

	children := make([]string, 0, len(x.Parents))
	for name := range x.Parents {
		children = append(children, name)
	}
	sort.Strings(children)
	for _, name := range children {
		e, err := r.Lookup(name)
		if err != nil {
			return err
		}
		want := x.Parents[name]
		var parent *cmmn.Node
		if e.Node != nil {
			parent = e.Node.Parent
		}
		if !parentMatches(parent, want, r) {
			fail("%s has semantic parent %q, want %q", name, idOf(parent), want)
		}
	}

	for _, name := range x.Absent {
		if _, err := r.Lookup(name); err == nil {
			fail("%s is still on the canvas", name)
		}
	}

	stack := r.session.Stack()
	if x.UndoDepth != nil && stack.UndoDepth() != *x.UndoDepth {
		fail("undo depth %d, want %d", stack.UndoDepth(), *x.UndoDepth)
	}
	if x.RedoDepth != nil && stack.RedoDepth() != *x.RedoDepth {
		fail("redo depth %d, want %d", stack.RedoDepth(), *x.RedoDepth)
	}
	return errors.Join(errs...)
}

// parentMatches reports whether parent is the node id want, or the node or
// definition rendered by the element named want.
func parentMatches(parent *cmmn.Node, want string, r *Runner) bool {
	if parent == nil {
		return want == ""
	}
	if parent.ID == want {
		return true
	}
	p, err := r.Lookup(want)
	if err != nil || p.Node == nil {
		return false
	}
	return parent == p.Node || parent == p.Node.DefinitionRef
}

func idOf(n *cmmn.Node) string {
	if n == nil {
		return ""
	}
	return n.ID
}

func (r *Runner) definitionOf(name string) (*cmmn.Node, error) {
	e, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if e.Node == nil || e.Node.DefinitionRef == nil {
		return nil, fmt.Errorf("%w: %s has no definition", ErrExpectation, name)
	}
	return e.Node.DefinitionRef, nil
}

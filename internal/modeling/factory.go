package modeling

import (
	"fmt"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
)

// Size is a default shape extent.
type Size struct {
	Width, Height float64
}

// DefaultSize returns the size a freshly created shape gets.
func DefaultSize(kind, definitionKind cmmn.Kind, collapsed bool) Size {
	switch {
	case kind == cmmn.KindCasePlanModel:
		return Size{400, 250}
	case kind.IsCriterion():
		return Size{20, 28}
	case kind == cmmn.KindTextAnnotation:
		return Size{100, 30}
	case kind == cmmn.KindCaseFileItem:
		return Size{36, 50}
	case kind.IsItem():
		switch {
		case definitionKind == cmmn.KindStage || definitionKind == cmmn.KindPlanFragment:
			if collapsed {
				return Size{100, 80}
			}
			return Size{350, 200}
		case definitionKind == cmmn.KindMilestone:
			return Size{100, 40}
		case definitionKind.IsEventListener():
			return Size{36, 36}
		}
	}
	return Size{100, 80}
}

// ShapeOptions describes a shape to create.
type ShapeOptions struct {
	// Kind is the kind of the rendered node: an item kind, a criterion
	// kind, CasePlanModel, CaseFileItem or TextAnnotation.
	Kind cmmn.Kind
	// DefinitionKind selects the plan item definition for items
	// (default Task). Ignored when Definition is set.
	DefinitionKind cmmn.Kind
	// Definition reuses an existing definition.
	Definition *cmmn.Node
	// Sentry reuses an existing sentry for criteria.
	Sentry    *cmmn.Node
	Name      string
	Collapsed bool
	// Position is the center of the new shape.
	Position cmmn.Point
}

// Factory builds diagram elements together with their semantic nodes.
// Nothing it creates is part of the document until a command adds it.
type Factory struct {
	env *Env
}

// NewFactory returns a factory drawing ids from env.IDs.
func NewFactory(env *Env) *Factory {
	return &Factory{env: env}
}

// NewNode returns a detached node of kind with a fresh id.
func (f *Factory) NewNode(kind cmmn.Kind) *cmmn.Node {
	n := cmmn.NewNode(kind, "")
	n.ID = f.env.IDs.NextPrefixed(kind.Prefix(), n)
	return n
}

// CreateShape builds a shape and the semantic nodes behind it: the item
// and its definition, the criterion and its sentry, or the case around a
// case plan model.
func (f *Factory) CreateShape(opts ShapeOptions) (*diagram.Element, error) {
	var node *cmmn.Node
	k := opts.Kind
	switch {
	case k.IsItem():
		node = f.NewNode(k)
		def := opts.Definition
		if def == nil {
			dk := opts.DefinitionKind
			if dk == cmmn.KindUnknown {
				dk = cmmn.KindTask
			}
			if !dk.IsPlanItemDefinition() {
				return nil, fmt.Errorf("create shape: %s is not a plan item definition", dk)
			}
			def = f.NewNode(dk)
			def.Name = opts.Name
		}
		node.DefinitionRef = def
	case k.IsCriterion():
		node = f.NewNode(k)
		sentry := opts.Sentry
		if sentry == nil {
			sentry = f.NewNode(cmmn.KindSentry)
		}
		node.SentryRef = sentry
	case k == cmmn.KindCasePlanModel:
		c := f.NewNode(cmmn.KindCase)
		c.Name = opts.Name
		node = f.NewNode(k)
		if err := c.Add(node, -1); err != nil {
			return nil, err
		}
		if err := c.Add(f.NewNode(cmmn.KindCaseFileModel), -1); err != nil {
			return nil, err
		}
	case k == cmmn.KindCaseFileItem:
		node = f.NewNode(k)
		def := opts.Definition
		if def == nil {
			def = f.NewNode(cmmn.KindCaseFileItemDefinition)
		}
		node.DefinitionRef = def
	case k == cmmn.KindTextAnnotation:
		node = f.NewNode(k)
	default:
		return nil, fmt.Errorf("create shape: unsupported kind %s", k)
	}
	node.Name = opts.Name

	defKind := cmmn.KindUnknown
	if node.DefinitionRef != nil {
		defKind = node.DefinitionRef.Kind
	}
	size := DefaultSize(k, defKind, opts.Collapsed)
	return &diagram.Element{
		ID:   node.ID,
		Type: diagram.TypeShape,
		Node: node,
		Bounds: cmmn.Bounds{
			X:      opts.Position.X - size.Width/2,
			Y:      opts.Position.Y - size.Height/2,
			Width:  size.Width,
			Height: size.Height,
		},
		Collapsed: opts.Collapsed,
	}, nil
}

// ShapeFor wraps an existing node in a new shape.
func (f *Factory) ShapeFor(node *cmmn.Node, bounds cmmn.Bounds, collapsed bool) *diagram.Element {
	return &diagram.Element{
		ID:        node.ID,
		Type:      diagram.TypeShape,
		Node:      node,
		Bounds:    bounds,
		Collapsed: collapsed,
	}
}

// CreateConnection builds a connection of the given semantic kind. A
// discretionary connection has no semantic node; pass KindUnknown and
// discretionary true.
func (f *Factory) CreateConnection(kind cmmn.Kind, discretionary bool) (*diagram.Element, error) {
	e := &diagram.Element{Type: diagram.TypeConnection, Discretionary: discretionary}
	switch {
	case discretionary:
		e.ID = f.env.IDs.NextPrefixed("DiscretionaryConnection", e)
	case kind.IsOnPart() || kind == cmmn.KindAssociation:
		e.Node = f.NewNode(kind)
		e.ID = e.Node.ID
	default:
		return nil, fmt.Errorf("create connection: unsupported kind %s", kind)
	}
	return e, nil
}

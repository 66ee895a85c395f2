package editor

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/ids"
)

// Warning is a non-fatal inconsistency found while importing.
type Warning struct {
	Element string
	Message string
}

func (w Warning) String() string {
	return w.Element + ": " + w.Message
}

// Import replaces the session's document with doc and builds the diagram
// from its DI sheet. The semantic tree must satisfy containment symmetry;
// dangling references, duplicate DI bindings and unresolvable DI records
// are reported as warnings and skipped. The history starts empty.
func (s *Session) Import(doc *cmmn.Document) ([]Warning, error) {
	if doc == nil || doc.Definitions == nil || doc.Diagram == nil {
		return nil, fmt.Errorf("import: incomplete document")
	}
	if err := cmmn.CheckContainment(doc.Definitions); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if err := s.wire(doc, ids.NewPool()); err != nil {
		return nil, err
	}
	w := &walker{s: s, rendered: make(map[*cmmn.Node]*diagram.Element), byDI: make(map[string]*diagram.Element)}
	w.registerTree()
	w.checkReferences()
	w.importShapes()
	w.importEdges()
	s.logger.Info("document imported",
		zap.String("definitions", doc.Definitions.ID),
		zap.Int("nodes", s.env.Registry.Len()),
		zap.Int("elements", len(s.env.Canvas.Elements())),
		zap.Int("warnings", len(w.warnings)))
	return w.warnings, nil
}

type walker struct {
	s          *Session
	warnings   []Warning
	rendered   map[*cmmn.Node]*diagram.Element
	byDI       map[string]*diagram.Element
	containers []*diagram.Element
}

func (w *walker) warn(element, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	w.warnings = append(w.warnings, Warning{Element: element, Message: msg})
	w.s.logger.Warn("import", zap.String("element", element), zap.String("problem", msg))
}

func (w *walker) registerTree() {
	env := w.s.env
	env.Doc.Definitions.Walk(func(n *cmmn.Node) bool {
		if err := env.IDs.Claim(n.ID, n); err != nil {
			w.warn(n.ID, "duplicate id")
			return true
		}
		env.Registry.Add(n)
		return true
	})
	if err := env.IDs.Claim(env.Doc.Diagram.ID, env.Doc.Diagram); err != nil {
		w.warn(env.Doc.Diagram.ID, "diagram id collides with a node id")
	}
}

func (w *walker) checkReferences() {
	reg := w.s.env.Registry
	for _, n := range reg.GetAll() {
		for _, ref := range []*cmmn.Node{n.DefinitionRef, n.SentryRef, n.SourceRef, n.TargetRef} {
			if ref != nil && !reg.Has(ref) {
				w.warn(n.ID, "references %s outside the document", ref.ID)
			}
		}
		switch {
		case n.Kind.IsItem() && n.DefinitionRef == nil:
			w.warn(n.ID, "item has no definition")
		case n.Kind.IsCriterion() && n.SentryRef == nil:
			w.warn(n.ID, "criterion has no sentry")
		}
	}
}

// importShapes creates shapes largest first so containers exist before
// their contents.
func (w *walker) importShapes() {
	var shapes []*cmmn.DIElement
	for _, di := range w.s.env.Doc.Diagram.Elements() {
		if !di.Edge {
			shapes = append(shapes, di)
		}
	}
	sort.SliceStable(shapes, func(i, j int) bool {
		a, b := shapes[i], shapes[j]
		ca, cb := isCPM(a), isCPM(b)
		if ca != cb {
			return ca
		}
		return area(a.Bounds) > area(b.Bounds)
	})
	for _, di := range shapes {
		w.importShape(di)
	}
}

func isCPM(di *cmmn.DIElement) bool {
	return di.Ref != nil && di.Ref.Kind == cmmn.KindCasePlanModel
}

func area(b cmmn.Bounds) float64 { return b.Width * b.Height }

func (w *walker) importShape(di *cmmn.DIElement) {
	env := w.s.env
	n := di.Ref
	if n == nil || !env.Registry.Has(n) {
		w.warn(di.ID, "shape does not render a node of the document")
		return
	}
	if _, dup := w.rendered[n]; dup {
		w.warn(di.ID, "duplicate DI binding for %s", n.ID)
		return
	}
	e := &diagram.Element{
		ID:        n.ID,
		Type:      diagram.TypeShape,
		Node:      n,
		Bounds:    di.Bounds,
		Collapsed: di.IsCollapsed,
		DI:        di,
	}

	var parent, host *diagram.Element
	switch {
	case n.Kind == cmmn.KindCasePlanModel:
		parent = env.Canvas.Root()
	case n.Kind.IsCriterion():
		host = w.rendered[n.Parent]
		if host == nil {
			w.warn(di.ID, "criterion host %s is not rendered", parentID(n))
			return
		}
		parent = host.Parent
	default:
		parent = w.containerAt(di.Bounds.Center())
		if parent == nil {
			if n.Kind.IsItem() {
				w.warn(di.ID, "item is drawn outside every case plan model")
				return
			}
			parent = env.Canvas.Root()
		}
	}

	if err := env.Canvas.AddShape(e, parent, -1); err != nil {
		w.warn(di.ID, "%v", err)
		return
	}
	if host != nil {
		env.Canvas.SetHost(e, host)
	}
	w.rendered[n] = e
	w.byDI[di.ID] = e
	if n.Kind == cmmn.KindCasePlanModel || isContainerItem(e) {
		w.containers = append(w.containers, e)
	}
}

func parentID(n *cmmn.Node) string {
	if n.Parent == nil {
		return "<none>"
	}
	return n.Parent.ID
}

func isContainerItem(e *diagram.Element) bool {
	k := e.DefinitionKind()
	return e.IsItem() && !e.Collapsed && (k == cmmn.KindStage || k == cmmn.KindPlanFragment)
}

// containerAt returns the smallest container shape whose bounds hold p.
func (w *walker) containerAt(p cmmn.Point) *diagram.Element {
	var best *diagram.Element
	for _, c := range w.containers {
		if !c.Bounds.Contains(p) {
			continue
		}
		if best == nil || area(c.Bounds) < area(best.Bounds) {
			best = c
		}
	}
	return best
}

func (w *walker) importEdges() {
	env := w.s.env
	for _, di := range env.Doc.Diagram.Elements() {
		if !di.Edge {
			continue
		}
		source, target := w.byDI[di.SourceID], w.byDI[di.TargetID]
		n := di.Ref
		if n != nil {
			if !env.Registry.Has(n) {
				w.warn(di.ID, "edge does not render a node of the document")
				continue
			}
			if _, dup := w.rendered[n]; dup {
				w.warn(di.ID, "duplicate DI binding for %s", n.ID)
				continue
			}
			if source == nil {
				source = w.rendered[n.SourceRef]
			}
			if target == nil {
				target = w.edgeTarget(n)
			}
		}
		if source == nil || target == nil {
			w.warn(di.ID, "edge endpoints cannot be resolved")
			continue
		}

		e := &diagram.Element{
			Type:          diagram.TypeConnection,
			Node:          n,
			Discretionary: n == nil,
			Source:        source,
			Target:        target,
			Waypoints:     append([]cmmn.Point(nil), di.Waypoints...),
			DI:            di,
		}
		if n != nil {
			e.ID = n.ID
		} else {
			e.ID = strings.TrimSuffix(di.ID, "_di")
			if err := env.IDs.Claim(e.ID, e); err != nil {
				e.ID = env.IDs.NextPrefixed("DiscretionaryConnection", e)
			}
		}
		if err := env.Canvas.AddConnection(e, source.Parent, -1); err != nil {
			w.warn(di.ID, "%v", err)
			continue
		}
		if n != nil {
			w.rendered[n] = e
		}
	}
}

// edgeTarget resolves the target of an on-part or association edge
// without DI endpoints. An on-part points at the first rendered criterion
// using its sentry.
func (w *walker) edgeTarget(n *cmmn.Node) *diagram.Element {
	if n.Kind == cmmn.KindAssociation {
		return w.rendered[n.TargetRef]
	}
	if !n.Kind.IsOnPart() || n.Parent == nil {
		return nil
	}
	var best *diagram.Element
	bestID := ""
	for _, ref := range w.s.env.Registry.GetReferences(n.Parent) {
		e := w.rendered[ref]
		if e == nil {
			continue
		}
		if best == nil || e.ID < bestID {
			best, bestID = e, e.ID
		}
	}
	return best
}

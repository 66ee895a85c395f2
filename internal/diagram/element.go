// Package diagram is the minimal visual graph the semantic engine consumes:
// shapes, connections and labels arranged in a parent/child tree, each
// optionally rendering one semantic node.
package diagram

import "github.com/dusk-indust/cmmnedit/internal/cmmn"

// ElementType distinguishes the visual element flavours.
type ElementType int

const (
	TypeRoot ElementType = iota
	TypeShape
	TypeConnection
	TypeLabel
)

func (t ElementType) String() string {
	switch t {
	case TypeRoot:
		return "root"
	case TypeShape:
		return "shape"
	case TypeConnection:
		return "connection"
	case TypeLabel:
		return "label"
	}
	return "unknown"
}

// Element is one diagram item.
type Element struct {
	ID   string
	Type ElementType

	// Node is the semantic node rendered by the element. It is nil for
	// labels and discretionary connections.
	Node *cmmn.Node
	// Discretionary marks the HumanTask -> DiscretionaryItem connection.
	Discretionary bool

	Parent   *Element
	Children []*Element

	Incoming []*Element
	Outgoing []*Element
	Source   *Element
	Target   *Element

	Host      *Element
	Attachers []*Element

	LabelTarget *Element
	Label       *Element

	Bounds    cmmn.Bounds
	Waypoints []cmmn.Point
	Collapsed bool

	// DI is the interchange record bound to this element while it is on
	// the canvas.
	DI *cmmn.DIElement
}

// ElementID implements command.Element.
func (e *Element) ElementID() string { return e.ID }

// Kind returns the kind of the rendered node, or KindUnknown.
func (e *Element) Kind() cmmn.Kind {
	if e == nil || e.Node == nil {
		return cmmn.KindUnknown
	}
	return e.Node.Kind
}

// DefinitionKind returns the kind of the item's definition, or KindUnknown
// for elements that do not render an item.
func (e *Element) DefinitionKind() cmmn.Kind {
	if e == nil || e.Node == nil || e.Node.DefinitionRef == nil {
		return cmmn.KindUnknown
	}
	return e.Node.DefinitionRef.Kind
}

// Is reports whether the rendered node has kind k.
func (e *Element) Is(k cmmn.Kind) bool { return e.Kind() == k }

func (e *Element) IsRoot() bool       { return e != nil && e.Type == TypeRoot }
func (e *Element) IsShape() bool      { return e != nil && e.Type == TypeShape }
func (e *Element) IsConnection() bool { return e != nil && e.Type == TypeConnection }
func (e *Element) IsLabel() bool      { return e != nil && e.Type == TypeLabel }

// IsCasePlanModel reports whether e renders the case plan model.
func (e *Element) IsCasePlanModel() bool { return e.Is(cmmn.KindCasePlanModel) }

// IsItem reports whether e renders a plan item or discretionary item.
func (e *Element) IsItem() bool { return e.IsShape() && e.Kind().IsItem() }

// IsHumanTaskItem reports whether e renders an item whose definition is a
// human task.
func (e *Element) IsHumanTaskItem() bool {
	return e.IsItem() && e.DefinitionKind() == cmmn.KindHumanTask
}

// IsPlanFragmentCapable reports whether e can visually contain plan items:
// the case plan model, or an expanded stage or plan fragment item.
func (e *Element) IsPlanFragmentCapable() bool {
	if e.IsCasePlanModel() {
		return true
	}
	if !e.IsItem() || e.Collapsed {
		return false
	}
	k := e.DefinitionKind()
	return k == cmmn.KindStage || k == cmmn.KindPlanFragment
}

// Descendants returns all elements below e, depth first.
func (e *Element) Descendants() []*Element {
	var out []*Element
	var walk func(*Element)
	walk = func(cur *Element) {
		for _, c := range cur.Children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(e)
	return out
}

// IndexInParent returns the position of e among its parent's children,
// or -1.
func (e *Element) IndexInParent() int {
	if e.Parent == nil {
		return -1
	}
	return indexOf(e.Parent.Children, e)
}

// HasAncestor reports whether anc is a strict visual ancestor of e.
func (e *Element) HasAncestor(anc *Element) bool {
	for p := e.Parent; p != nil; p = p.Parent {
		if p == anc {
			return true
		}
	}
	return false
}

// IncomingDiscretionary returns e's incoming discretionary connections.
func (e *Element) IncomingDiscretionary() []*Element {
	var out []*Element
	for _, c := range e.Incoming {
		if c.Discretionary {
			out = append(out, c)
		}
	}
	return out
}

// OutgoingDiscretionary returns e's outgoing discretionary connections.
func (e *Element) OutgoingDiscretionary() []*Element {
	var out []*Element
	for _, c := range e.Outgoing {
		if c.Discretionary {
			out = append(out, c)
		}
	}
	return out
}

func indexOf(list []*Element, e *Element) int {
	for i, cur := range list {
		if cur == e {
			return i
		}
	}
	return -1
}

func insertAt(list []*Element, index int, e *Element) []*Element {
	if indexOf(list, e) >= 0 {
		return list
	}
	if index < 0 || index > len(list) {
		index = len(list)
	}
	list = append(list, nil)
	copy(list[index+1:], list[index:])
	list[index] = e
	return list
}

func removeFrom(list []*Element, e *Element) ([]*Element, int) {
	i := indexOf(list, e)
	if i < 0 {
		return list, -1
	}
	return append(list[:i:i], list[i+1:]...), i
}

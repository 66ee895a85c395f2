package cmmn

// Bounds is an axis aligned rectangle in diagram coordinates.
type Bounds struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Contains reports whether p lies inside b (edges included).
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.Width && p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// Point is a diagram coordinate.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DIElement is the diagram interchange record of one rendered element: a
// CMMNShape when Waypoints is empty, a CMMNEdge otherwise.
type DIElement struct {
	ID          string
	Ref         *Node
	Bounds      Bounds
	Waypoints   []Point
	IsCollapsed bool
	Edge        bool
	// SourceID and TargetID name the DI shapes a discretionary edge joins.
	SourceID string
	TargetID string
}

// Diagram is the DI sheet of a document.
type Diagram struct {
	ID       string
	elements []*DIElement
}

// Elements returns a copy of the diagram's DI elements.
func (d *Diagram) Elements() []*DIElement {
	out := make([]*DIElement, len(d.elements))
	copy(out, d.elements)
	return out
}

// IndexOf returns the position of el, or -1.
func (d *Diagram) IndexOf(el *DIElement) int {
	for i, cur := range d.elements {
		if cur == el {
			return i
		}
	}
	return -1
}

// Add inserts el at index (append when out of range). Adding an element
// already present is a no-op.
func (d *Diagram) Add(el *DIElement, index int) {
	if d.IndexOf(el) >= 0 {
		return
	}
	if index < 0 || index > len(d.elements) {
		index = len(d.elements)
	}
	d.elements = append(d.elements, nil)
	copy(d.elements[index+1:], d.elements[index:])
	d.elements[index] = el
}

// Remove deletes el and returns its former index, or -1.
func (d *Diagram) Remove(el *DIElement) int {
	i := d.IndexOf(el)
	if i < 0 {
		return -1
	}
	d.elements = append(d.elements[:i:i], d.elements[i+1:]...)
	return i
}

// ByRef returns the DI elements bound to node.
func (d *Diagram) ByRef(node *Node) []*DIElement {
	var out []*DIElement
	for _, el := range d.elements {
		if el.Ref == node {
			out = append(out, el)
		}
	}
	return out
}

// Document is an open CMMN model: the semantic tree rooted at Definitions
// plus its DI sheet.
type Document struct {
	Definitions *Node
	Diagram     *Diagram
}

// NewDocument returns an empty document with the given root ids.
func NewDocument(definitionsID, diagramID string) *Document {
	return &Document{
		Definitions: NewNode(KindDefinitions, definitionsID),
		Diagram:     &Diagram{ID: diagramID},
	}
}

// Cases returns the cases of the document in order.
func (d *Document) Cases() []*Node {
	return d.Definitions.Children(CollCases)
}

// Find returns the node with the given id, searching the whole tree.
func (d *Document) Find(id string) *Node {
	var found *Node
	d.Definitions.Walk(func(n *Node) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// CaseOf returns the case enclosing n, or nil.
func CaseOf(n *Node) *Node {
	if n.Kind == KindCase {
		return n
	}
	return n.Ancestor(func(p *Node) bool { return p.Kind == KindCase })
}

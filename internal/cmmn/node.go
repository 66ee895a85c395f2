package cmmn

import "sort"

// Expression is a condition body attached to rules and sentry if-parts.
type Expression struct {
	Body     string `json:"body" yaml:"body"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// Clone returns a copy of e, or nil when e is nil.
func (e *Expression) Clone() *Expression {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// Node is one element of the semantic document tree.
//
// Parent and the parent's containment slots are kept symmetric by Add and
// Remove; callers never assign Parent directly.
type Node struct {
	ID   string
	Kind Kind
	Name string

	Parent *Node

	// DefinitionRef links an item to its plan item definition, or a case
	// file item to its case file item definition.
	DefinitionRef *Node
	// SentryRef links a criterion to its sentry.
	SentryRef *Node
	// SourceRef and TargetRef are used by on-parts and associations.
	SourceRef *Node
	TargetRef *Node

	IsBlocking    bool
	AutoComplete  bool
	StandardEvent string
	Condition     *Expression
	IfPart        *Expression

	slots map[Collection][]*Node
}

// NewNode returns a detached node with CMMN attribute defaults applied.
func NewNode(kind Kind, id string) *Node {
	n := &Node{ID: id, Kind: kind}
	if kind.CanBlock() {
		n.IsBlocking = true
	}
	if kind.IsOnPart() {
		n.StandardEvent = defaultStandardEvent(kind)
	}
	return n
}

func defaultStandardEvent(kind Kind) string {
	if kind == KindCaseFileItemOnPart {
		return "create"
	}
	return "complete"
}

// Children returns a copy of the nodes stored in slot c.
func (n *Node) Children(c Collection) []*Node {
	src := n.slots[c]
	if len(src) == 0 {
		return nil
	}
	out := make([]*Node, len(src))
	copy(out, src)
	return out
}

// Child returns the first node in slot c, or nil.
func (n *Node) Child(c Collection) *Node {
	if s := n.slots[c]; len(s) > 0 {
		return s[0]
	}
	return nil
}

func (n *Node) PlanningTable() *Node  { return n.Child(CollPlanningTable) }
func (n *Node) CasePlanModel() *Node  { return n.Child(CollCasePlanModel) }
func (n *Node) CaseFileModel() *Node  { return n.Child(CollCaseFileModel) }
func (n *Node) ItemControl() *Node    { return n.Child(CollItemControl) }
func (n *Node) DefaultControl() *Node { return n.Child(CollDefaultControl) }

// collections returns the non-empty slots of n in a stable order.
func (n *Node) collections() []Collection {
	out := make([]Collection, 0, len(n.slots))
	for c, nodes := range n.slots {
		if len(nodes) > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IndexOf returns the index of child within its slot in n, or -1.
func (n *Node) IndexOf(child *Node) int {
	for _, nodes := range n.slots {
		for i, c := range nodes {
			if c == child {
				return i
			}
		}
	}
	return -1
}

// Add inserts child into the slot determined by the kinds of n and child.
// A negative or out of range index appends. A child attached elsewhere is
// removed from its previous parent first.
func (n *Node) Add(child *Node, index int) error {
	c, err := CollectionFor(n.Kind, child.Kind)
	if err != nil {
		return err
	}
	if c.Single() {
		if cur := n.Child(c); cur != nil && cur != child {
			return ErrSingleOccupied
		}
	}
	if child.Parent != nil {
		child.Parent.Remove(child)
	}
	if n.slots == nil {
		n.slots = make(map[Collection][]*Node)
	}
	nodes := n.slots[c]
	if index < 0 || index > len(nodes) {
		index = len(nodes)
	}
	nodes = append(nodes, nil)
	copy(nodes[index+1:], nodes[index:])
	nodes[index] = child
	n.slots[c] = nodes
	child.Parent = n
	return nil
}

// Remove takes child out of n's slots and clears its Parent. It reports the
// placement the child had, so it can be restored later.
func (n *Node) Remove(child *Node) (Placement, bool) {
	for c, nodes := range n.slots {
		for i, cur := range nodes {
			if cur != child {
				continue
			}
			n.slots[c] = append(nodes[:i:i], nodes[i+1:]...)
			if len(n.slots[c]) == 0 {
				delete(n.slots, c)
			}
			if child.Parent == n {
				child.Parent = nil
			}
			return Placement{Parent: n, Index: i}, true
		}
	}
	return Placement{}, false
}

// Placement records where a node sat in the tree.
type Placement struct {
	Parent *Node
	Index  int
}

// PlacementOf returns the current placement of n.
func PlacementOf(n *Node) Placement {
	if n.Parent == nil {
		return Placement{}
	}
	return Placement{Parent: n.Parent, Index: n.Parent.IndexOf(n)}
}

// Detach removes n from its parent, returning its previous placement.
func Detach(n *Node) Placement {
	if n.Parent == nil {
		return Placement{}
	}
	p, _ := n.Parent.Remove(n)
	return p
}

// Restore puts child back at p. A zero placement detaches child.
func (p Placement) Restore(child *Node) error {
	if p.Parent == nil {
		Detach(child)
		return nil
	}
	if child.Parent == p.Parent && p.Parent.IndexOf(child) == p.Index {
		return nil
	}
	return p.Parent.Add(child, p.Index)
}

// Walk visits n and its descendants depth first, in slot order. Returning
// false from fn stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.collections() {
		for _, child := range n.Children(c) {
			if !child.Walk(fn) {
				return false
			}
		}
	}
	return true
}

// Ancestor returns the nearest ancestor (n excluded) satisfying match.
func (n *Node) Ancestor(match func(*Node) bool) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if match(p) {
			return p
		}
	}
	return nil
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.Parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Referenced returns the shared node n points at through definitionRef or
// sentryRef, or nil.
func (n *Node) Referenced() *Node {
	if n.DefinitionRef != nil {
		return n.DefinitionRef
	}
	return n.SentryRef
}

package diagram

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
)

// RootID is the id of the implicit root element.
const RootID = "__implicitroot"

var (
	// ErrDuplicateID is returned when adding an element whose id is taken.
	ErrDuplicateID = errors.New("element id already on canvas")
	// ErrNotOnCanvas is returned when operating on an unknown element.
	ErrNotOnCanvas = errors.New("element not on canvas")
)

// EventType distinguishes canvas change notifications.
type EventType int

const (
	ElementAdded EventType = iota
	ElementRemoved
)

// Event is delivered to canvas listeners after an element is added or
// removed.
type Event struct {
	Type    EventType
	Element *Element
}

// Canvas holds the visual element tree of one open diagram.
type Canvas struct {
	root      *Element
	byID      map[string]*Element
	listeners []func(Event)
}

// NewCanvas returns a canvas whose root renders rootNode (usually the
// document's Definitions).
func NewCanvas(rootNode *cmmn.Node) *Canvas {
	root := &Element{ID: RootID, Type: TypeRoot, Node: rootNode}
	return &Canvas{
		root: root,
		byID: map[string]*Element{RootID: root},
	}
}

// Root returns the root element.
func (c *Canvas) Root() *Element { return c.root }

// Get returns the element with the given id, or nil.
func (c *Canvas) Get(id string) *Element { return c.byID[id] }

// OnChange registers a listener for add/remove events.
func (c *Canvas) OnChange(fn func(Event)) {
	c.listeners = append(c.listeners, fn)
}

func (c *Canvas) emit(t EventType, e *Element) {
	for _, fn := range c.listeners {
		fn(Event{Type: t, Element: e})
	}
}

// Elements returns every element except the root, parents before children,
// in child order.
func (c *Canvas) Elements() []*Element {
	return c.root.Descendants()
}

// Filter returns the elements matching fn.
func (c *Canvas) Filter(fn func(*Element) bool) []*Element {
	var out []*Element
	for _, e := range c.Elements() {
		if fn(e) {
			out = append(out, e)
		}
	}
	return out
}

// ElementsFor returns the elements rendering node.
func (c *Canvas) ElementsFor(node *cmmn.Node) []*Element {
	if node == nil {
		return nil
	}
	return c.Filter(func(e *Element) bool { return e.Node == node })
}

// AddShape places e below parent at index (append when out of range) and
// registers it.
func (c *Canvas) AddShape(e, parent *Element, index int) error {
	if e.Type == TypeConnection {
		return fmt.Errorf("add shape %s: element is a connection", e.ID)
	}
	return c.add(e, parent, index)
}

// AddConnection places connection e below parent and links it to its
// Source and Target.
func (c *Canvas) AddConnection(e, parent *Element, index int) error {
	if e.Type != TypeConnection {
		return fmt.Errorf("add connection %s: element is a %s", e.ID, e.Type)
	}
	if err := c.add(e, parent, index); err != nil {
		return err
	}
	c.SetSource(e, e.Source)
	c.SetTarget(e, e.Target)
	return nil
}

func (c *Canvas) add(e, parent *Element, index int) error {
	if parent == nil {
		parent = c.root
	}
	if cur, ok := c.byID[e.ID]; ok && cur != e {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	if c.byID[parent.ID] != parent {
		return fmt.Errorf("%w: parent %s", ErrNotOnCanvas, parent.ID)
	}
	c.byID[e.ID] = e
	c.SetParent(e, parent, index)
	c.emit(ElementAdded, e)
	return nil
}

// RemoveShape unregisters e and detaches it from its parent. It returns
// the index e had among its parent's children.
func (c *Canvas) RemoveShape(e *Element) (int, error) {
	return c.remove(e)
}

// RemoveConnection unregisters connection e, unlinking it from its
// endpoints. Source and Target stay set on e so a revert can re-add it.
func (c *Canvas) RemoveConnection(e *Element) (int, error) {
	src, tgt := e.Source, e.Target
	idx, err := c.remove(e)
	if err != nil {
		return -1, err
	}
	if src != nil {
		src.Outgoing, _ = removeFrom(src.Outgoing, e)
	}
	if tgt != nil {
		tgt.Incoming, _ = removeFrom(tgt.Incoming, e)
	}
	return idx, nil
}

func (c *Canvas) remove(e *Element) (int, error) {
	if c.byID[e.ID] != e {
		return -1, fmt.Errorf("%w: %s", ErrNotOnCanvas, e.ID)
	}
	delete(c.byID, e.ID)
	idx := -1
	if e.Parent != nil {
		e.Parent.Children, idx = removeFrom(e.Parent.Children, e)
	}
	e.Parent = nil
	c.emit(ElementRemoved, e)
	return idx, nil
}

// SetParent moves e below parent at index without registry changes.
func (c *Canvas) SetParent(e, parent *Element, index int) {
	if e.Parent != nil {
		e.Parent.Children, _ = removeFrom(e.Parent.Children, e)
	}
	e.Parent = parent
	if parent != nil {
		parent.Children = insertAt(parent.Children, index, e)
	}
}

// SetSource re-links connection e to src.
func (c *Canvas) SetSource(e, src *Element) {
	if e.Source != nil {
		e.Source.Outgoing, _ = removeFrom(e.Source.Outgoing, e)
	}
	e.Source = src
	if src != nil {
		src.Outgoing = insertAt(src.Outgoing, -1, e)
	}
}

// SetTarget re-links connection e to tgt.
func (c *Canvas) SetTarget(e, tgt *Element) {
	if e.Target != nil {
		e.Target.Incoming, _ = removeFrom(e.Target.Incoming, e)
	}
	e.Target = tgt
	if tgt != nil {
		tgt.Incoming = insertAt(tgt.Incoming, -1, e)
	}
}

// SetHost attaches shape e to host (nil detaches).
func (c *Canvas) SetHost(e, host *Element) {
	if e.Host != nil {
		e.Host.Attachers, _ = removeFrom(e.Host.Attachers, e)
	}
	e.Host = host
	if host != nil {
		host.Attachers = insertAt(host.Attachers, -1, e)
	}
}

// Rename re-keys e under id.
func (c *Canvas) Rename(e *Element, id string) error {
	if c.byID[e.ID] != e {
		return fmt.Errorf("%w: %s", ErrNotOnCanvas, e.ID)
	}
	if cur, ok := c.byID[id]; ok && cur != e {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	delete(c.byID, e.ID)
	e.ID = id
	c.byID[id] = e
	return nil
}

// Clear drops every element except the root.
func (c *Canvas) Clear() {
	c.root.Children = nil
	c.byID = map[string]*Element{RootID: c.root}
}

// Package registry tracks the semantic nodes of one open document by id
// and, for shared nodes (plan item definitions, sentries, case file item
// definitions), the nodes referencing them.
//
// The registry holds no undo history of its own. Every structural command
// adds or removes nodes on execute and does the inverse on revert.
package registry

import (
	"sort"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
)

// Visual finds the diagram elements rendering semantic nodes.
// *diagram.Canvas satisfies it.
type Visual interface {
	ElementsFor(node *cmmn.Node) []*diagram.Element
	Filter(fn func(*diagram.Element) bool) []*diagram.Element
}

var _ Visual = (*diagram.Canvas)(nil)

// Registry maps ids to nodes and referenced ids to their referencers.
type Registry struct {
	nodes map[string]*cmmn.Node
	// refs maps a referenced node id to the nodes pointing at it, in the
	// order they were added.
	refs map[string][]*cmmn.Node
	// bucket remembers which refs entry a referencer was filed under.
	bucket map[*cmmn.Node]string

	visual Visual
}

// New returns an empty registry bridged to visual (which may be nil).
func New(visual Visual) *Registry {
	r := &Registry{visual: visual}
	r.Clear()
	return r
}

// ---------- Mutations ----------

// Add registers n under its id and files it under the node it references.
func (r *Registry) Add(n *cmmn.Node) {
	if n == nil {
		return
	}
	r.nodes[n.ID] = n
	if ref := n.Referenced(); ref != nil {
		r.file(n, ref.ID)
	}
}

// Remove is the inverse of Add.
func (r *Registry) Remove(n *cmmn.Node) {
	if n == nil {
		return
	}
	if r.nodes[n.ID] == n {
		delete(r.nodes, n.ID)
	}
	r.unfile(n)
}

// UpdateID rekeys n to newID and assigns it. When n is itself referenced
// its bucket moves along.
func (r *Registry) UpdateID(n *cmmn.Node, newID string) {
	oldID := n.ID
	if oldID == newID {
		return
	}
	if r.nodes[oldID] == n {
		delete(r.nodes, oldID)
		r.nodes[newID] = n
	}
	if list, ok := r.refs[oldID]; ok {
		delete(r.refs, oldID)
		r.refs[newID] = append(r.refs[newID], list...)
		for _, referencer := range list {
			r.bucket[referencer] = newID
		}
	}
	n.ID = newID
}

// UpdateReference moves n from its current bucket to the bucket of ref.
// The caller assigns the reference field itself; a nil ref only unfiles.
func (r *Registry) UpdateReference(n *cmmn.Node, ref *cmmn.Node) {
	r.unfile(n)
	if ref != nil {
		r.file(n, ref.ID)
	}
}

// Clear forgets everything. Called when the diagram is closed.
func (r *Registry) Clear() {
	r.nodes = make(map[string]*cmmn.Node)
	r.refs = make(map[string][]*cmmn.Node)
	r.bucket = make(map[*cmmn.Node]string)
}

func (r *Registry) file(n *cmmn.Node, refID string) {
	if cur, ok := r.bucket[n]; ok {
		if cur == refID {
			return
		}
		r.unfile(n)
	}
	r.refs[refID] = append(r.refs[refID], n)
	r.bucket[n] = refID
}

func (r *Registry) unfile(n *cmmn.Node) {
	refID, ok := r.bucket[n]
	if !ok {
		return
	}
	delete(r.bucket, n)
	list := r.refs[refID]
	for i, cur := range list {
		if cur == n {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.refs, refID)
		return
	}
	r.refs[refID] = list
}

// ---------- Queries ----------

// Get returns the node with id, or nil.
func (r *Registry) Get(id string) *cmmn.Node { return r.nodes[id] }

// Has reports whether n itself is registered.
func (r *Registry) Has(n *cmmn.Node) bool { return n != nil && r.nodes[n.ID] == n }

// GetReferences returns the nodes referencing ref.
func (r *Registry) GetReferences(ref *cmmn.Node) []*cmmn.Node {
	if ref == nil {
		return nil
	}
	return r.GetReferencesByID(ref.ID)
}

// GetReferencesByID returns the nodes referencing the node with id.
func (r *Registry) GetReferencesByID(id string) []*cmmn.Node {
	list := r.refs[id]
	if len(list) == 0 {
		return nil
	}
	out := make([]*cmmn.Node, len(list))
	copy(out, list)
	return out
}

// GetAll returns every registered node ordered by id.
func (r *Registry) GetAll() []*cmmn.Node {
	out := make([]*cmmn.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int { return len(r.nodes) }

// Filter returns the registered nodes matching fn, ordered by id.
func (r *Registry) Filter(fn func(*cmmn.Node) bool) []*cmmn.Node {
	var out []*cmmn.Node
	for _, n := range r.GetAll() {
		if fn(n) {
			out = append(out, n)
		}
	}
	return out
}

// ForEach calls fn with every registered node and the node it references
// (nil when it references nothing), ordered by id.
func (r *Registry) ForEach(fn func(n, referenced *cmmn.Node)) {
	for _, n := range r.GetAll() {
		var ref *cmmn.Node
		if id, ok := r.bucket[n]; ok {
			ref = r.nodes[id]
			if ref == nil {
				ref = n.Referenced()
			}
		}
		fn(n, ref)
	}
}

// ---------- Visual bridge ----------

// GetShape returns the diagram element rendering n, preferring shapes over
// connections and labels.
func (r *Registry) GetShape(n *cmmn.Node) *diagram.Element {
	if r.visual == nil || n == nil {
		return nil
	}
	var fallback *diagram.Element
	for _, e := range r.visual.ElementsFor(n) {
		if e.IsShape() {
			return e
		}
		if fallback == nil && !e.IsLabel() {
			fallback = e
		}
	}
	return fallback
}

// GetShapeByID is GetShape for a registered id.
func (r *Registry) GetShapeByID(id string) *diagram.Element {
	return r.GetShape(r.nodes[id])
}

// GetShapes returns the elements rendering the nodes that reference ref:
// the items using a definition, or the criteria using a sentry.
func (r *Registry) GetShapes(ref *cmmn.Node) []*diagram.Element {
	if r.visual == nil || ref == nil {
		return nil
	}
	var out []*diagram.Element
	for _, n := range r.GetReferences(ref) {
		if e := r.GetShape(n); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// FilterShapes returns the diagram elements matching fn.
func (r *Registry) FilterShapes(fn func(*diagram.Element) bool) []*diagram.Element {
	if r.visual == nil {
		return nil
	}
	return r.visual.Filter(fn)
}

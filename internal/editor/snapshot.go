package editor

import (
	"sort"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
)

// Snapshot is a pointer-free dump of a session's state. Two sessions in
// the same state produce equal snapshots.
type Snapshot struct {
	Nodes      []NodeState
	Elements   []ElementState
	DI         []DIState
	References map[string][]string
}

// NodeState describes one semantic node.
type NodeState struct {
	ID            string
	Kind          string
	Name          string
	Parent        string
	Collection    string
	DefinitionRef string
	SentryRef     string
	SourceRef     string
	TargetRef     string
	IsBlocking    bool
	AutoComplete  bool
	StandardEvent string
	Condition     *cmmn.Expression
	IfPart        *cmmn.Expression
}

// ElementState describes one diagram element.
type ElementState struct {
	ID            string
	Type          string
	Node          string
	Parent        string
	Host          string
	Source        string
	Target        string
	Discretionary bool
	Collapsed     bool
	Bounds        cmmn.Bounds
	Waypoints     []cmmn.Point
	Incoming      []string
	Outgoing      []string
}

// DIState describes one DI record.
type DIState struct {
	ID          string
	Ref         string
	Edge        bool
	Bounds      cmmn.Bounds
	Waypoints   []cmmn.Point
	IsCollapsed bool
	SourceID    string
	TargetID    string
}

func nodeID(n *cmmn.Node) string {
	if n == nil {
		return ""
	}
	return n.ID
}

func elemID(e *diagram.Element) string {
	if e == nil {
		return ""
	}
	return e.ID
}

func sortedIDs(elements []*diagram.Element) []string {
	if len(elements) == 0 {
		return nil
	}
	out := make([]string, len(elements))
	for i, e := range elements {
		out[i] = e.ID
	}
	sort.Strings(out)
	return out
}

// Snapshot captures the document tree, the diagram, the DI sheet and the
// registry's reference index.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	s.env.Doc.Definitions.Walk(func(n *cmmn.Node) bool {
		st := NodeState{
			ID:            n.ID,
			Kind:          n.Kind.String(),
			Name:          n.Name,
			Parent:        nodeID(n.Parent),
			DefinitionRef: nodeID(n.DefinitionRef),
			SentryRef:     nodeID(n.SentryRef),
			SourceRef:     nodeID(n.SourceRef),
			TargetRef:     nodeID(n.TargetRef),
			IsBlocking:    n.IsBlocking,
			AutoComplete:  n.AutoComplete,
			StandardEvent: n.StandardEvent,
			Condition:     n.Condition.Clone(),
			IfPart:        n.IfPart.Clone(),
		}
		if n.Parent != nil {
			if c, err := cmmn.CollectionFor(n.Parent.Kind, n.Kind); err == nil {
				st.Collection = c.String()
			}
		}
		snap.Nodes = append(snap.Nodes, st)
		return true
	})

	for _, e := range s.env.Canvas.Elements() {
		snap.Elements = append(snap.Elements, ElementState{
			ID:            e.ID,
			Type:          e.Type.String(),
			Node:          nodeID(e.Node),
			Parent:        elemID(e.Parent),
			Host:          elemID(e.Host),
			Source:        elemID(e.Source),
			Target:        elemID(e.Target),
			Discretionary: e.Discretionary,
			Collapsed:     e.Collapsed,
			Bounds:        e.Bounds,
			Waypoints:     append([]cmmn.Point(nil), e.Waypoints...),
			Incoming:      sortedIDs(e.Incoming),
			Outgoing:      sortedIDs(e.Outgoing),
		})
	}

	for _, di := range s.env.Doc.Diagram.Elements() {
		snap.DI = append(snap.DI, DIState{
			ID:          di.ID,
			Ref:         nodeID(di.Ref),
			Edge:        di.Edge,
			Bounds:      di.Bounds,
			Waypoints:   append([]cmmn.Point(nil), di.Waypoints...),
			IsCollapsed: di.IsCollapsed,
			SourceID:    di.SourceID,
			TargetID:    di.TargetID,
		})
	}

	snap.References = make(map[string][]string)
	s.env.Registry.ForEach(func(n, ref *cmmn.Node) {
		if ref == nil {
			return
		}
		snap.References[ref.ID] = append(snap.References[ref.ID], n.ID)
	})
	for _, list := range snap.References {
		sort.Strings(list)
	}
	return snap
}

package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
)

// ErrMalformed is returned by DecodeJSON for exports that do not describe a
// single well-formed tree.
var ErrMalformed = errors.New("malformed document export")

// DocumentExport is the top-level JSON export structure.
type DocumentExport struct {
	Definitions string       `json:"definitions"`
	Diagram     string       `json:"diagram"`
	ExportedAt  string       `json:"exportedAt,omitempty"`
	Nodes       []NodeExport `json:"nodes"`
	DI          []DIExport   `json:"di,omitempty"`
}

// NodeExport describes one semantic node. Nodes are listed parents first,
// in slot order, so decoding can rebuild the tree by appending.
type NodeExport struct {
	ID            string           `json:"id"`
	Kind          cmmn.Kind        `json:"kind"`
	Name          string           `json:"name,omitempty"`
	Parent        string           `json:"parent,omitempty"`
	DefinitionRef string           `json:"definitionRef,omitempty"`
	SentryRef     string           `json:"sentryRef,omitempty"`
	SourceRef     string           `json:"sourceRef,omitempty"`
	TargetRef     string           `json:"targetRef,omitempty"`
	IsBlocking    bool             `json:"isBlocking,omitempty"`
	AutoComplete  bool             `json:"autoComplete,omitempty"`
	StandardEvent string           `json:"standardEvent,omitempty"`
	Condition     *cmmn.Expression `json:"condition,omitempty"`
	IfPart        *cmmn.Expression `json:"ifPart,omitempty"`
}

// DIExport describes one shape or edge of the DI sheet.
type DIExport struct {
	ID          string       `json:"id"`
	Ref         string       `json:"ref,omitempty"`
	Edge        bool         `json:"edge,omitempty"`
	Bounds      *cmmn.Bounds `json:"bounds,omitempty"`
	Waypoints   []cmmn.Point `json:"waypoints,omitempty"`
	IsCollapsed bool         `json:"isCollapsed,omitempty"`
	SourceID    string       `json:"sourceId,omitempty"`
	TargetID    string       `json:"targetId,omitempty"`
}

// ExportDocument builds a DocumentExport from doc. A zero now leaves
// ExportedAt empty, which keeps the output stable for comparisons.
func ExportDocument(doc *cmmn.Document, now time.Time) *DocumentExport {
	out := &DocumentExport{
		Definitions: doc.Definitions.ID,
		Diagram:     doc.Diagram.ID,
	}
	if !now.IsZero() {
		out.ExportedAt = now.UTC().Format(time.RFC3339)
	}

	doc.Definitions.Walk(func(n *cmmn.Node) bool {
		out.Nodes = append(out.Nodes, NodeExport{
			ID:            n.ID,
			Kind:          n.Kind,
			Name:          n.Name,
			Parent:        idOf(n.Parent),
			DefinitionRef: idOf(n.DefinitionRef),
			SentryRef:     idOf(n.SentryRef),
			SourceRef:     idOf(n.SourceRef),
			TargetRef:     idOf(n.TargetRef),
			IsBlocking:    n.IsBlocking,
			AutoComplete:  n.AutoComplete,
			StandardEvent: n.StandardEvent,
			Condition:     n.Condition.Clone(),
			IfPart:        n.IfPart.Clone(),
		})
		return true
	})

	for _, di := range doc.Diagram.Elements() {
		rec := DIExport{
			ID:          di.ID,
			Ref:         idOf(di.Ref),
			Edge:        di.Edge,
			Waypoints:   append([]cmmn.Point(nil), di.Waypoints...),
			IsCollapsed: di.IsCollapsed,
			SourceID:    di.SourceID,
			TargetID:    di.TargetID,
		}
		if !di.Edge {
			b := di.Bounds
			rec.Bounds = &b
		}
		out.DI = append(out.DI, rec)
	}
	return out
}

// EncodeJSON writes doc as indented JSON.
func EncodeJSON(w io.Writer, doc *cmmn.Document, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ExportDocument(doc, now)); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// DecodeJSON reads a document written by EncodeJSON.
func DecodeJSON(r io.Reader) (*cmmn.Document, error) {
	var in DocumentExport
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return in.Document()
}

// Document rebuilds the semantic tree and DI sheet described by e.
func (e *DocumentExport) Document() (*cmmn.Document, error) {
	if e.Definitions == "" {
		return nil, fmt.Errorf("%w: no definitions id", ErrMalformed)
	}
	doc := cmmn.NewDocument(e.Definitions, e.Diagram)
	byID := map[string]*cmmn.Node{doc.Definitions.ID: doc.Definitions}

	for _, rec := range e.Nodes {
		if rec.ID == e.Definitions {
			doc.Definitions.Name = rec.Name
			continue
		}
		if _, dup := byID[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrMalformed, rec.ID)
		}
		parent, ok := byID[rec.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: %s names unknown parent %q", ErrMalformed, rec.ID, rec.Parent)
		}
		n := cmmn.NewNode(rec.Kind, rec.ID)
		n.Name = rec.Name
		n.IsBlocking = rec.IsBlocking
		n.AutoComplete = rec.AutoComplete
		n.StandardEvent = rec.StandardEvent
		n.Condition = rec.Condition.Clone()
		n.IfPart = rec.IfPart.Clone()
		if err := parent.Add(n, -1); err != nil {
			return nil, fmt.Errorf("%w: place %s under %s: %v", ErrMalformed, rec.ID, rec.Parent, err)
		}
		byID[rec.ID] = n
	}

	// References may point forward, so they resolve once every node exists.
	resolve := func(owner, id string) (*cmmn.Node, error) {
		if id == "" {
			return nil, nil
		}
		n, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s refers to unknown node %s", ErrMalformed, owner, id)
		}
		return n, nil
	}
	for _, rec := range e.Nodes {
		n := byID[rec.ID]
		var err error
		if n.DefinitionRef, err = resolve(rec.ID, rec.DefinitionRef); err != nil {
			return nil, err
		}
		if n.SentryRef, err = resolve(rec.ID, rec.SentryRef); err != nil {
			return nil, err
		}
		if n.SourceRef, err = resolve(rec.ID, rec.SourceRef); err != nil {
			return nil, err
		}
		if n.TargetRef, err = resolve(rec.ID, rec.TargetRef); err != nil {
			return nil, err
		}
	}

	for _, rec := range e.DI {
		ref, err := resolve(rec.ID, rec.Ref)
		if err != nil {
			return nil, err
		}
		el := &cmmn.DIElement{
			ID:          rec.ID,
			Ref:         ref,
			Edge:        rec.Edge,
			Waypoints:   append([]cmmn.Point(nil), rec.Waypoints...),
			IsCollapsed: rec.IsCollapsed,
			SourceID:    rec.SourceID,
			TargetID:    rec.TargetID,
		}
		if rec.Bounds != nil {
			el.Bounds = *rec.Bounds
		}
		doc.Diagram.Add(el, -1)
	}
	return doc, nil
}

func idOf(n *cmmn.Node) string {
	if n == nil {
		return ""
	}
	return n.ID
}

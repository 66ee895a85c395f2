package mcptools

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/docgraph"
	"github.com/dusk-indust/cmmnedit/internal/editor"
	"github.com/dusk-indust/cmmnedit/internal/export"
	"github.com/dusk-indust/cmmnedit/internal/script"
)

// EditorService holds the editor session used by MCP tool handlers. Tool
// calls may arrive concurrently; they are applied one at a time.
type EditorService struct {
	mu       sync.Mutex
	session  *editor.Session
	runner   *script.Runner
	newStore func() (docgraph.Store, error)
	logger   *zap.Logger
}

// NewEditorService creates an EditorService over session. Graph queries
// load the document into a fresh store from newStore; nil uses MemStore.
func NewEditorService(session *editor.Session, newStore func() (docgraph.Store, error), logger *zap.Logger) *EditorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if newStore == nil {
		newStore = func() (docgraph.Store, error) { return docgraph.NewMemStore(), nil }
	}
	return &EditorService{
		session:  session,
		runner:   script.NewRunner(session, logger),
		newStore: newStore,
		logger:   logger.Named("mcp"),
	}
}

// ---------- Modeling ----------

// CreateShape creates a shape with its semantic node.
func (s *EditorService) CreateShape(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CreateShapeInput,
) (*mcp.CallToolResult, ElementOutput, error) {
	return s.produce(script.Step{
		Op:         script.OpCreate,
		As:         input.As,
		Kind:       input.Kind,
		Definition: input.Definition,
		ShareWith:  input.ShareWith,
		Name:       optional(input.Name),
		Collapsed:  input.Collapsed,
		Parent:     input.Parent,
		Host:       input.Host,
		At:         &cmmn.Point{X: input.X, Y: input.Y},
	})
}

// AppendShape creates a shape and connects source to it.
func (s *EditorService) AppendShape(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input AppendShapeInput,
) (*mcp.CallToolResult, ElementOutput, error) {
	return s.produce(script.Step{
		Op:         script.OpAppend,
		As:         input.As,
		Kind:       input.Kind,
		Definition: input.Definition,
		Name:       optional(input.Name),
		Source:     input.Source,
		Parent:     input.Parent,
		At:         &cmmn.Point{X: input.X, Y: input.Y},
	})
}

// CreateConnection joins two shapes with the connection type the rules pick.
func (s *EditorService) CreateConnection(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CreateConnectionInput,
) (*mcp.CallToolResult, ElementOutput, error) {
	return s.produce(script.Step{Op: script.OpConnect, As: input.As, Source: input.Source, Target: input.Target})
}

// ReplaceElement substitutes a shape.
func (s *EditorService) ReplaceElement(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ReplaceElementInput,
) (*mcp.CallToolResult, ElementOutput, error) {
	return s.produce(script.Step{
		Op:        script.OpReplace,
		As:        input.As,
		Element:   input.Element,
		Kind:      input.Kind,
		Collapsed: input.Collapsed,
	})
}

// MoveElements moves a selection.
func (s *EditorService) MoveElements(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input MoveElementsInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	return s.apply(script.Step{
		Op:       script.OpMove,
		Elements: input.Elements,
		By:       &cmmn.Point{X: input.DX, Y: input.DY},
		Parent:   input.Parent,
		Attach:   input.Attach,
		Host:     input.Host,
	})
}

// ResizeShape sets the bounds of a shape.
func (s *EditorService) ResizeShape(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResizeShapeInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	return s.apply(script.Step{
		Op:      script.OpResize,
		Element: input.Element,
		Bounds:  &cmmn.Bounds{X: input.X, Y: input.Y, Width: input.Width, Height: input.Height},
	})
}

// ToggleCollapse collapses or expands a stage or plan fragment.
func (s *EditorService) ToggleCollapse(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ElementInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	return s.apply(script.Step{Op: script.OpToggleCollapse, Element: input.Element})
}

// DeleteElements removes a selection.
func (s *EditorService) DeleteElements(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input DeleteElementsInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	return s.apply(script.Step{Op: script.OpDelete, Elements: input.Elements})
}

// UpdateProperties edits the node rendered by an element.
func (s *EditorService) UpdateProperties(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input UpdatePropertiesInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	return s.apply(script.Step{
		Op:           script.OpUpdate,
		Element:      input.Element,
		ID:           input.ID,
		Name:         input.Name,
		Blocking:     input.IsBlocking,
		AutoComplete: input.AutoComplete,
	})
}

// Undo reverts the last atomic operation.
func (s *EditorService) Undo(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	return s.apply(script.Step{Op: script.OpUndo})
}

// Redo replays the last undone atomic operation.
func (s *EditorService) Redo(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	return s.apply(script.Step{Op: script.OpRedo})
}

func (s *EditorService) produce(step script.Step) (*mcp.CallToolResult, ElementOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.runner.Apply(step)
	if err != nil {
		s.logger.Debug("tool failed", zap.String("op", step.Op), zap.Error(err))
		return nil, ElementOutput{}, err
	}
	return nil, s.describe(e), nil
}

func (s *EditorService) apply(step script.Step) (*mcp.CallToolResult, HistoryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.runner.Apply(step); err != nil {
		s.logger.Debug("tool failed", zap.String("op", step.Op), zap.Error(err))
		return nil, HistoryOutput{}, err
	}
	return nil, HistoryOutput{History: s.history()}, nil
}

func (s *EditorService) history() History {
	st := s.session.Stack()
	return History{UndoDepth: st.UndoDepth(), RedoDepth: st.RedoDepth()}
}

func (s *EditorService) describe(e *diagram.Element) ElementOutput {
	out := ElementOutput{History: s.history()}
	if e == nil {
		return out
	}
	out.ElementID = e.ID
	if n := e.Node; n != nil {
		out.NodeID = n.ID
		out.Kind = n.Kind.String()
		if n.DefinitionRef != nil {
			out.DefinitionID = n.DefinitionRef.ID
		}
		if n.Parent != nil {
			out.ParentID = n.Parent.ID
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ---------- Rule queries ----------

// CanConnect asks the rule engine which connection two shapes allow.
func (s *EditorService) CanConnect(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CanConnectInput,
) (*mcp.CallToolResult, CanConnectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	source, err := s.runner.Lookup(input.Source)
	if err != nil {
		return nil, CanConnectOutput{}, err
	}
	target, err := s.runner.Lookup(input.Target)
	if err != nil {
		return nil, CanConnectOutput{}, err
	}
	res := s.session.Rules().CanConnect(source, target, nil)
	out := CanConnectOutput{Outcome: res.Outcome.String()}
	if res.OK() {
		out.Type = res.Type.String()
	}
	return nil, out, nil
}

// CanMove asks whether a selection may be dropped on a target, and which
// replacements would make an illegal drop legal.
func (s *EditorService) CanMove(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CanMoveInput,
) (*mcp.CallToolResult, CanMoveOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(input.Elements) == 0 {
		return nil, CanMoveOutput{}, fmt.Errorf("elements is required")
	}
	elements := make([]*diagram.Element, 0, len(input.Elements))
	for _, name := range input.Elements {
		e, err := s.runner.Lookup(name)
		if err != nil {
			return nil, CanMoveOutput{}, err
		}
		elements = append(elements, e)
	}
	target, err := s.runner.Lookup(input.Target)
	if err != nil {
		return nil, CanMoveOutput{}, err
	}
	var pos *cmmn.Point
	if input.X != nil && input.Y != nil {
		pos = &cmmn.Point{X: *input.X, Y: *input.Y}
	}

	r := s.session.Rules()
	out := CanMoveOutput{Allowed: r.CanMove(elements, target)}
	if repl, ok := r.CanReplace(elements, target, pos, nil); ok {
		for _, rp := range repl {
			out.Replacements = append(out.Replacements, ReplacementOutput{ElementID: rp.OldElementID, NewKind: rp.NewKind.String()})
		}
	}
	return nil, out, nil
}

// GetReferences lists the nodes referring to a definition or sentry.
func (s *EditorService) GetReferences(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetReferencesInput,
) (*mcp.CallToolResult, GetReferencesOutput, error) {
	if input.NodeID == "" {
		return nil, GetReferencesOutput{}, fmt.Errorf("nodeId is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := GetReferencesOutput{References: []NodeOutput{}}
	for _, n := range s.session.Registry().GetReferencesByID(input.NodeID) {
		out.References = append(out.References, NodeOutput{ID: n.ID, Kind: n.Kind.String(), Name: n.Name})
	}
	return nil, out, nil
}

// Verify checks containment symmetry and reference bookkeeping.
func (s *EditorService) Verify(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ VerifyInput,
) (*mcp.CallToolResult, VerifyOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Verify(); err != nil {
		return nil, VerifyOutput{Problems: err.Error()}, nil
	}
	return nil, VerifyOutput{Consistent: true}, nil
}

// ---------- Graph queries ----------

// withGraph loads the current document into a fresh store for fn.
func (s *EditorService) withGraph(ctx context.Context, fn func(docgraph.Store) error) error {
	store, err := s.newStore()
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	defer store.Close()
	if err := docgraph.Load(ctx, store, s.session.Document()); err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	return fn(store)
}

// QueryNodes searches semantic nodes by id or name substring.
func (s *EditorService) QueryNodes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryNodesInput,
) (*mcp.CallToolResult, QueryNodesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var nodes []docgraph.NodeRecord
	err := s.withGraph(ctx, func(store docgraph.Store) error {
		var err error
		nodes, err = store.QueryNodes(ctx, input.Query, limit)
		return err
	})
	if err != nil {
		return nil, QueryNodesOutput{}, fmt.Errorf("query nodes: %w", err)
	}
	if nodes == nil {
		nodes = []docgraph.NodeRecord{}
	}
	return nil, QueryNodesOutput{Nodes: nodes, Total: len(nodes)}, nil
}

// GetContainment walks containment from a node.
func (s *EditorService) GetContainment(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetContainmentInput,
) (*mcp.CallToolResult, GetContainmentOutput, error) {
	if input.NodeID == "" {
		return nil, GetContainmentOutput{}, fmt.Errorf("nodeId is required")
	}

	direction := docgraph.DirectionDownstream
	if strings.EqualFold(input.Direction, "upstream") {
		direction = docgraph.DirectionUpstream
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var chains []docgraph.Chain
	err := s.withGraph(ctx, func(store docgraph.Store) error {
		var err error
		chains, err = store.GetChains(ctx, input.NodeID, direction, maxDepth)
		return err
	})
	if err != nil {
		return nil, GetContainmentOutput{}, fmt.Errorf("get containment: %w", err)
	}
	if chains == nil {
		chains = []docgraph.Chain{}
	}
	return nil, GetContainmentOutput{Chains: chains}, nil
}

// AssessImpact finds the nodes that depend on a set of nodes through
// references and on-part or association endpoints.
func (s *EditorService) AssessImpact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssessImpactInput,
) (*mcp.CallToolResult, AssessImpactOutput, error) {
	if len(input.NodeIDs) == 0 {
		return nil, AssessImpactOutput{}, fmt.Errorf("nodeIds is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var impact *docgraph.ImpactResult
	err := s.withGraph(ctx, func(store docgraph.Store) error {
		var err error
		impact, err = store.AssessImpact(ctx, input.NodeIDs)
		return err
	})
	if err != nil {
		return nil, AssessImpactOutput{}, fmt.Errorf("assess impact: %w", err)
	}
	return nil, AssessImpactOutput{Impact: *impact}, nil
}

// ExportDocument renders the document as JSON or Mermaid.
func (s *EditorService) ExportDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExportInput,
) (*mcp.CallToolResult, ExportOutput, error) {
	format := strings.ToLower(input.Format)
	if format == "" {
		format = "json"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch format {
	case "json":
		var buf bytes.Buffer
		if err := export.EncodeJSON(&buf, s.session.Document(), time.Now()); err != nil {
			return nil, ExportOutput{}, err
		}
		return nil, ExportOutput{Format: format, Content: buf.String()}, nil
	case "mermaid":
		var content string
		err := s.withGraph(ctx, func(store docgraph.Store) error {
			var err error
			content, err = export.GenerateMermaid(ctx, store)
			return err
		})
		if err != nil {
			return nil, ExportOutput{}, err
		}
		return nil, ExportOutput{Format: format, Content: content}, nil
	}
	return nil, ExportOutput{}, fmt.Errorf("unknown format %q (want json or mermaid)", input.Format)
}

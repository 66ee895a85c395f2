package mcptools

import "github.com/dusk-indust/cmmnedit/internal/docgraph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.
// Elements are named by diagram element id or by an alias bound with "as".

// CreateShapeInput is the input for the create_shape MCP tool.
type CreateShapeInput struct {
	Kind       string  `json:"kind" jsonschema:"kind of the rendered node: PlanItem, DiscretionaryItem, EntryCriterion, ExitCriterion, CasePlanModel, CaseFileItem or TextAnnotation"`
	Definition string  `json:"definition,omitempty" jsonschema:"plan item definition kind for items, e.g. HumanTask, Stage, Milestone (default: Task)"`
	ShareWith  string  `json:"shareWith,omitempty" jsonschema:"element whose definition (items) or sentry (criteria) the new shape reuses"`
	Name       string  `json:"name,omitempty" jsonschema:"name of the new node"`
	Parent     string  `json:"parent,omitempty" jsonschema:"element to create the shape in (default: the canvas root)"`
	Host       string  `json:"host,omitempty" jsonschema:"element a criterion is attached to"`
	X          float64 `json:"x" jsonschema:"x of the shape center"`
	Y          float64 `json:"y" jsonschema:"y of the shape center"`
	Collapsed  bool    `json:"collapsed,omitempty" jsonschema:"create a stage or plan fragment collapsed"`
	As         string  `json:"as,omitempty" jsonschema:"alias to bind the new element to"`
}

// AppendShapeInput is the input for the append_shape MCP tool.
type AppendShapeInput struct {
	Source     string  `json:"source" jsonschema:"element the new shape is connected from"`
	Kind       string  `json:"kind" jsonschema:"kind of the rendered node"`
	Definition string  `json:"definition,omitempty" jsonschema:"plan item definition kind for items"`
	Name       string  `json:"name,omitempty" jsonschema:"name of the new node"`
	Parent     string  `json:"parent,omitempty" jsonschema:"element to create the shape in (default: the source's parent)"`
	X          float64 `json:"x" jsonschema:"x of the shape center"`
	Y          float64 `json:"y" jsonschema:"y of the shape center"`
	As         string  `json:"as,omitempty" jsonschema:"alias to bind the new element to"`
}

// CreateConnectionInput is the input for the create_connection MCP tool.
type CreateConnectionInput struct {
	Source string `json:"source" jsonschema:"element the connection starts at"`
	Target string `json:"target" jsonschema:"element the connection ends at"`
	As     string `json:"as,omitempty" jsonschema:"alias to bind the new connection to"`
}

// MoveElementsInput is the input for the move_elements MCP tool.
type MoveElementsInput struct {
	Elements []string `json:"elements" jsonschema:"elements to move"`
	DX       float64  `json:"dx" jsonschema:"horizontal delta"`
	DY       float64  `json:"dy" jsonschema:"vertical delta"`
	Parent   string   `json:"parent,omitempty" jsonschema:"new parent element (default: keep each parent)"`
	Attach   bool     `json:"attach,omitempty" jsonschema:"attach the elements to host"`
	Host     string   `json:"host,omitempty" jsonschema:"element to attach to"`
}

// ResizeShapeInput is the input for the resize_shape MCP tool.
type ResizeShapeInput struct {
	Element string  `json:"element" jsonschema:"shape to resize"`
	X       float64 `json:"x" jsonschema:"new left edge"`
	Y       float64 `json:"y" jsonschema:"new top edge"`
	Width   float64 `json:"width" jsonschema:"new width"`
	Height  float64 `json:"height" jsonschema:"new height"`
}

// ReplaceElementInput is the input for the replace_element MCP tool.
type ReplaceElementInput struct {
	Element   string `json:"element" jsonschema:"shape to replace"`
	Kind      string `json:"kind" jsonschema:"item kind, criterion kind, or plan item definition kind for a type change"`
	Collapsed bool   `json:"collapsed,omitempty" jsonschema:"render a stage-like replacement collapsed"`
	As        string `json:"as,omitempty" jsonschema:"alias to bind the replacement to"`
}

// ElementInput names a single element.
type ElementInput struct {
	Element string `json:"element" jsonschema:"element id or alias"`
}

// DeleteElementsInput is the input for the delete_elements MCP tool.
type DeleteElementsInput struct {
	Elements []string `json:"elements" jsonschema:"elements to delete; elements the rules protect are skipped"`
}

// UpdatePropertiesInput is the input for the update_properties MCP tool.
type UpdatePropertiesInput struct {
	Element      string  `json:"element" jsonschema:"element whose node is updated"`
	ID           *string `json:"id,omitempty" jsonschema:"new node id; must not be in use"`
	Name         *string `json:"name,omitempty" jsonschema:"new name"`
	IsBlocking   *bool   `json:"isBlocking,omitempty" jsonschema:"new blocking flag"`
	AutoComplete *bool   `json:"autoComplete,omitempty" jsonschema:"new auto complete flag"`
}

// HistoryInput is the input for the undo and redo MCP tools.
type HistoryInput struct{}

// CanConnectInput is the input for the can_connect MCP tool.
type CanConnectInput struct {
	Source string `json:"source" jsonschema:"element the connection would start at"`
	Target string `json:"target" jsonschema:"element the connection would end at"`
}

// CanMoveInput is the input for the can_move MCP tool.
type CanMoveInput struct {
	Elements []string `json:"elements" jsonschema:"elements to move"`
	Target   string   `json:"target" jsonschema:"element to drop them on"`
	X        *float64 `json:"x,omitempty" jsonschema:"drop x, used for criterion attachment"`
	Y        *float64 `json:"y,omitempty" jsonschema:"drop y, used for criterion attachment"`
}

// GetReferencesInput is the input for the get_references MCP tool.
type GetReferencesInput struct {
	NodeID string `json:"nodeId" jsonschema:"id of a definition or sentry"`
}

// QueryNodesInput is the input for the query_nodes MCP tool.
type QueryNodesInput struct {
	Query string `json:"query" jsonschema:"substring of a node id or name"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// GetContainmentInput is the input for the get_containment MCP tool.
type GetContainmentInput struct {
	NodeID    string `json:"nodeId" jsonschema:"semantic node id"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (containers) or downstream (contents). Default: downstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// AssessImpactInput is the input for the assess_impact MCP tool.
type AssessImpactInput struct {
	NodeIDs []string `json:"nodeIds" jsonschema:"ids of nodes about to change"`
}

// ExportInput is the input for the export_document MCP tool.
type ExportInput struct {
	Format string `json:"format,omitempty" jsonschema:"json or mermaid (default: json)"`
}

// VerifyInput is the input for the verify MCP tool.
type VerifyInput struct{}

// --- MCP Tool Output Types ---

// History reports the undo and redo depth after a call.
type History struct {
	UndoDepth int `json:"undoDepth"`
	RedoDepth int `json:"redoDepth"`
}

// ElementOutput describes an element after a modeling call.
type ElementOutput struct {
	ElementID    string  `json:"elementId,omitempty"`
	NodeID       string  `json:"nodeId,omitempty"`
	Kind         string  `json:"kind,omitempty"`
	DefinitionID string  `json:"definitionId,omitempty"`
	ParentID     string  `json:"parentId,omitempty"`
	History      History `json:"history"`
}

// HistoryOutput is the result of tools that change nothing but history.
type HistoryOutput struct {
	History History `json:"history"`
}

// CanConnectOutput is the result of the can_connect MCP tool.
type CanConnectOutput struct {
	Outcome string `json:"outcome"`
	Type    string `json:"type,omitempty"`
}

// ReplacementOutput is one substitution proposed by can_move.
type ReplacementOutput struct {
	ElementID string `json:"elementId"`
	NewKind   string `json:"newKind"`
}

// CanMoveOutput is the result of the can_move MCP tool.
type CanMoveOutput struct {
	Allowed      bool                `json:"allowed"`
	Replacements []ReplacementOutput `json:"replacements,omitempty"`
}

// NodeOutput describes a semantic node.
type NodeOutput struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
}

// GetReferencesOutput is the result of the get_references MCP tool.
type GetReferencesOutput struct {
	References []NodeOutput `json:"references"`
}

// QueryNodesOutput is the result of the query_nodes MCP tool.
type QueryNodesOutput struct {
	Nodes []docgraph.NodeRecord `json:"nodes"`
	Total int                   `json:"total"`
}

// GetContainmentOutput is the result of the get_containment MCP tool.
type GetContainmentOutput struct {
	Chains []docgraph.Chain `json:"chains"`
}

// AssessImpactOutput is the result of the assess_impact MCP tool.
type AssessImpactOutput struct {
	Impact docgraph.ImpactResult `json:"impact"`
}

// ExportOutput is the result of the export_document MCP tool.
type ExportOutput struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

// VerifyOutput is the result of the verify MCP tool.
type VerifyOutput struct {
	Consistent bool   `json:"consistent"`
	Problems   string `json:"problems,omitempty"`
}

package modeling

import (
	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/replace"
)

// Command names.
const (
	CmdShapeCreate          = "shape.create"
	CmdShapeDelete          = "shape.delete"
	CmdShapeMove            = "shape.move"
	CmdElementsMove         = "elements.move"
	CmdShapeResize          = "shape.resize"
	CmdShapeReplace         = "shape.replace"
	CmdShapeToggleCollapse  = "shape.toggleCollapse"
	CmdShapeAppend          = "shape.append"
	CmdConnectionCreate     = "connection.create"
	CmdConnectionDelete     = "connection.delete"
	CmdConnectionReconnect  = "connection.reconnect"
	CmdConnectionLayout     = "connection.layout"
	CmdElementsDelete       = "elements.delete"
	CmdUpdateProperties     = "element.updateProperties"
	CmdUpdateSemanticParent = "element.updateSemanticParent"
	CmdUpdateControls       = "element.updateControls"
	CmdPlanningTableCreate  = "planningTable.create"
	CmdPlanningTableDelete  = "planningTable.delete"
)

// StructuralCommands lists every command that can change the shape of the
// semantic tree.
var StructuralCommands = []string{
	CmdShapeCreate, CmdShapeDelete, CmdShapeMove, CmdElementsMove, CmdShapeReplace, CmdShapeAppend,
	CmdConnectionCreate, CmdConnectionDelete, CmdConnectionReconnect, CmdElementsDelete,
	CmdUpdateProperties, CmdUpdateSemanticParent, CmdUpdateControls,
}

// ---------- Shape contexts ----------

// CreateShapeContext creates Shape below Parent. Host attaches the shape
// (a criterion) to another shape.
type CreateShapeContext struct {
	Shape  *diagram.Element
	Parent *diagram.Element
	Index  int
	Host   *diagram.Element
	Journal
}

// DeleteShapeContext deletes Shape together with its connections,
// attachers and children.
type DeleteShapeContext struct {
	Shape *diagram.Element
	Journal

	oldParent *diagram.Element
	oldIndex  int
	oldHost   *diagram.Element
}

// OldParent returns the visual parent Shape had before deletion.
func (c *DeleteShapeContext) OldParent() *diagram.Element { return c.oldParent }

// OldHost returns the host Shape was attached to before deletion.
func (c *DeleteShapeContext) OldHost() *diagram.Element { return c.oldHost }

// MoveShapeContext moves one shape (with its subtree and attachers) by
// Delta. A nil NewParent keeps the current parent. When Attach is set the
// shape is (re)attached to NewHost, or detached when NewHost is nil.
type MoveShapeContext struct {
	Shape     *diagram.Element
	Delta     cmmn.Point
	NewParent *diagram.Element
	NewIndex  int
	Attach    bool
	NewHost   *diagram.Element
	Journal

	oldParent *diagram.Element
	oldIndex  int
	oldHost   *diagram.Element
	moved     []*diagram.Element
	// attachers reparented along with Shape, in move order.
	attachers []attacherPlacement
}

type attacherPlacement struct {
	shape  *diagram.Element
	parent *diagram.Element
	index  int
}

// OldParent returns the visual parent Shape had before the move.
func (c *MoveShapeContext) OldParent() *diagram.Element { return c.oldParent }

// OldHost returns the host Shape had before the move.
func (c *MoveShapeContext) OldHost() *diagram.Element { return c.oldHost }

// Moved returns every element whose bounds the move translated.
func (c *MoveShapeContext) Moved() []*diagram.Element { return c.moved }

// MoveElementsContext moves a selection. Attachers and children of moved
// shapes travel with them.
type MoveElementsContext struct {
	Shapes    []*diagram.Element
	Delta     cmmn.Point
	NewParent *diagram.Element
	Attach    bool
	NewHost   *diagram.Element
	Journal

	closure []*diagram.Element
}

// Closure returns the moved shapes plus their descendants and attachers.
func (c *MoveElementsContext) Closure() []*diagram.Element { return c.closure }

// ResizeShapeContext sets Shape's bounds.
type ResizeShapeContext struct {
	Shape     *diagram.Element
	NewBounds cmmn.Bounds
	Journal

	oldBounds cmmn.Bounds
}

// ReplaceShapeContext swaps OldShape for a shape of Target. NewShape is
// set once the command ran.
type ReplaceShapeContext struct {
	OldShape *diagram.Element
	Target   replace.Target
	NewShape *diagram.Element
	Journal
}

// AppendShapeContext creates Shape below Parent and connects Source to
// it. Connection is set once the command ran; it stays nil when the rules
// allow no connection between the two.
type AppendShapeContext struct {
	Source     *diagram.Element
	Shape      *diagram.Element
	Parent     *diagram.Element
	Connection *diagram.Element
	Journal
}

// ToggleCollapseContext collapses or expands Shape.
type ToggleCollapseContext struct {
	Shape *diagram.Element
	Journal
}

// ---------- Connection contexts ----------

// CreateConnectionContext creates Connection from Source to Target.
type CreateConnectionContext struct {
	Connection *diagram.Element
	Source     *diagram.Element
	Target     *diagram.Element
	Parent     *diagram.Element
	Index      int
	Journal
}

// DeleteConnectionContext deletes Connection.
type DeleteConnectionContext struct {
	Connection *diagram.Element
	Journal

	oldParent *diagram.Element
	oldIndex  int
}

// ReconnectContext moves one or both ends of Connection. Nil ends are kept.
type ReconnectContext struct {
	Connection *diagram.Element
	NewSource  *diagram.Element
	NewTarget  *diagram.Element
	Journal

	oldSource    *diagram.Element
	oldTarget    *diagram.Element
	oldWaypoints []cmmn.Point
}

// OldSource returns the source before reconnecting.
func (c *ReconnectContext) OldSource() *diagram.Element { return c.oldSource }

// OldTarget returns the target before reconnecting.
func (c *ReconnectContext) OldTarget() *diagram.Element { return c.oldTarget }

// LayoutConnectionContext recomputes Connection's waypoints, or sets
// Waypoints when given.
type LayoutConnectionContext struct {
	Connection *diagram.Element
	Waypoints  []cmmn.Point
	Journal

	oldWaypoints []cmmn.Point
}

// DeleteElementsContext deletes a mixed selection.
type DeleteElementsContext struct {
	Elements []*diagram.Element
	Journal
}

// ---------- Semantic contexts ----------

// Properties lists attribute changes; nil fields are left alone.
type Properties struct {
	ID            *string
	Name          *string
	DefinitionRef *cmmn.Node
	SentryRef     *cmmn.Node
	IsBlocking    *bool
	AutoComplete  *bool
	StandardEvent *string
	Condition     *cmmn.Expression
	IfPart        *cmmn.Expression
}

// UpdatePropertiesContext applies Properties to Node. Element, when set,
// is reported as changed.
type UpdatePropertiesContext struct {
	Node       *cmmn.Node
	Element    *diagram.Element
	Properties Properties
	Journal

	oldDefinition *cmmn.Node
	oldSentry     *cmmn.Node
}

// OldDefinition returns the definitionRef before a definition swap.
func (c *UpdatePropertiesContext) OldDefinition() *cmmn.Node { return c.oldDefinition }

// OldSentry returns the sentryRef before a sentry swap.
func (c *UpdatePropertiesContext) OldSentry() *cmmn.Node { return c.oldSentry }

// UpdateSemanticParentContext moves Node below NewParent (nil detaches).
type UpdateSemanticParentContext struct {
	Node      *cmmn.Node
	NewParent *cmmn.Node
	Index     int
	Journal
}

// UpdateControlsContext sets the itemControl of an item, or the
// defaultControl of a definition when Default is set. A nil Control
// removes it.
type UpdateControlsContext struct {
	Node    *cmmn.Node
	Default bool
	Control *cmmn.Node
	Journal
}

// PlanningTableCreateContext adds Table (created when nil) to Owner, a
// planning-table capable definition or another planning table.
type PlanningTableCreateContext struct {
	Owner *cmmn.Node
	Table *cmmn.Node
	Journal

	// reused is set when Owner already had a table and nothing was added.
	reused bool
}

// Reused reports whether the owner's existing table was returned.
func (c *PlanningTableCreateContext) Reused() bool { return c.reused }

// PlanningTableDeleteContext removes Table from its owner.
type PlanningTableDeleteContext struct {
	Table *cmmn.Node
	Journal
}

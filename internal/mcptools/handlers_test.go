package mcptools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dusk-indust/cmmnedit/internal/docgraph"
	"github.com/dusk-indust/cmmnedit/internal/editor"
	"github.com/dusk-indust/cmmnedit/internal/modeling"
	"github.com/dusk-indust/cmmnedit/internal/script"
)

// ---------- Test Helpers ----------

func newService(t *testing.T) *EditorService {
	t.Helper()
	s, err := editor.New(nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return NewEditorService(s, nil, zaptest.NewLogger(t))
}

func mustCreate(t *testing.T, svc *EditorService, in CreateShapeInput) ElementOutput {
	t.Helper()
	_, out, err := svc.CreateShape(context.Background(), nil, in)
	require.NoError(t, err)
	return out
}

// withCase creates a 1200x800 case plan model bound to "cpm".
func withCase(t *testing.T, svc *EditorService) ElementOutput {
	t.Helper()
	cpm := mustCreate(t, svc, CreateShapeInput{Kind: "CasePlanModel", X: 600, Y: 400, As: "cpm"})
	_, _, err := svc.ResizeShape(context.Background(), nil, ResizeShapeInput{Element: "cpm", Width: 1200, Height: 800})
	require.NoError(t, err)
	return cpm
}

// ---------- Modeling ----------

func TestCreateShape_AndUndo(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	cpm := withCase(t, svc)
	assert.Equal(t, "cmmn:CasePlanModel", cpm.Kind)
	assert.Equal(t, 1, cpm.History.UndoDepth)

	review := mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", Definition: "HumanTask", Name: "Review", Parent: "cpm", X: 300, Y: 300, As: "review"})
	assert.Equal(t, "cmmn:PlanItem", review.Kind)
	assert.NotEmpty(t, review.DefinitionID)
	assert.Equal(t, cpm.NodeID, review.ParentID)
	assert.Equal(t, 3, review.History.UndoDepth)

	_, hist, err := svc.Undo(ctx, nil, HistoryInput{})
	require.NoError(t, err)
	assert.Equal(t, History{UndoDepth: 2, RedoDepth: 1}, hist.History)

	_, _, err = svc.ToggleCollapse(ctx, nil, ElementInput{Element: "review"})
	assert.ErrorIs(t, err, script.ErrUnknownElement)

	_, hist, err = svc.Redo(ctx, nil, HistoryInput{})
	require.NoError(t, err)
	assert.Equal(t, History{UndoDepth: 3, RedoDepth: 0}, hist.History)
}

func TestCreateShape_Invalid(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, _, err := svc.CreateShape(ctx, nil, CreateShapeInput{X: 1, Y: 1})
	assert.ErrorContains(t, err, "invalid step")

	_, _, err = svc.CreateShape(ctx, nil, CreateShapeInput{Kind: "PlanItem", Parent: "nowhere"})
	assert.ErrorIs(t, err, script.ErrUnknownElement)

	_, _, err = svc.CreateShape(ctx, nil, CreateShapeInput{Kind: "Widget"})
	assert.ErrorContains(t, err, "unknown cmmn kind")
}

func TestModeling_RulesEnforced(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	withCase(t, svc)
	mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", Definition: "Milestone", Parent: "cpm", X: 200, Y: 200, As: "m"})
	mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", Definition: "Task", Parent: "cpm", X: 600, Y: 200, As: "t"})

	_, _, err := svc.ResizeShape(ctx, nil, ResizeShapeInput{Element: "cpm", Width: 10, Height: 10})
	assert.ErrorIs(t, err, modeling.ErrNotAllowed)

	_, _, err = svc.CreateShape(ctx, nil, CreateShapeInput{Kind: "EntryCriterion", Host: "m", X: 150, Y: 200})
	assert.ErrorIs(t, err, modeling.ErrNotAllowed)

	_, _, err = svc.MoveElements(ctx, nil, MoveElementsInput{Elements: []string{"t"}, DX: -400, Parent: "m"})
	assert.ErrorIs(t, err, modeling.ErrNotAllowed)

	_, hist, err := svc.Undo(ctx, nil, HistoryInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, hist.History.UndoDepth, "rejected calls left no history")
}

func TestUpdateProperties(t *testing.T) {
	svc := newService(t)
	withCase(t, svc)
	mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", Definition: "Task", Parent: "cpm", X: 300, Y: 300, As: "t"})

	name := "Renamed"
	_, _, err := svc.UpdateProperties(context.Background(), nil, UpdatePropertiesInput{Element: "t", Name: &name})
	require.NoError(t, err)

	_, out, err := svc.QueryNodes(context.Background(), nil, QueryNodesInput{Query: "renamed"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Total)
	assert.Equal(t, "cmmn:PlanItem", out.Nodes[0].Kind)
}

// ---------- Rule queries ----------

func TestCanConnect(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	withCase(t, svc)
	mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", Definition: "Task", Parent: "cpm", X: 300, Y: 300, As: "t1"})
	mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", Definition: "Task", Parent: "cpm", X: 700, Y: 300, As: "t2"})
	mustCreate(t, svc, CreateShapeInput{Kind: "EntryCriterion", Host: "t2", X: 650, Y: 300, As: "entry"})

	tests := []struct {
		name           string
		source, target string
		outcome, typ   string
	}{
		{name: "item to criterion", source: "t1", target: "entry", outcome: "allowed", typ: "cmmn:PlanItemOnPart"},
		{name: "item to item", source: "t1", target: "t2", outcome: "denied"},
		{name: "criterion to own host", source: "t2", target: "entry", outcome: "denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := svc.CanConnect(ctx, nil, CanConnectInput{Source: tt.source, Target: tt.target})
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, out.Outcome)
			assert.Equal(t, tt.typ, out.Type)
		})
	}

	_, conn, err := svc.CreateConnection(ctx, nil, CreateConnectionInput{Source: "t1", Target: "entry"})
	require.NoError(t, err)
	assert.Equal(t, "cmmn:PlanItemOnPart", conn.Kind)
}

func TestCanMove(t *testing.T) {
	svc := newService(t)
	withCase(t, svc)
	mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", Definition: "Stage", Parent: "cpm", X: 400, Y: 400, As: "stage"})
	mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", Definition: "Task", Parent: "cpm", X: 900, Y: 300, As: "t"})

	_, out, err := svc.CanMove(context.Background(), nil, CanMoveInput{Elements: []string{"t"}, Target: "stage"})
	require.NoError(t, err)
	assert.True(t, out.Allowed)
	assert.Empty(t, out.Replacements)

	_, _, err = svc.CanMove(context.Background(), nil, CanMoveInput{Target: "stage"})
	assert.Error(t, err)
}

func TestGetReferences(t *testing.T) {
	svc := newService(t)
	withCase(t, svc)
	a := mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", Definition: "HumanTask", Parent: "cpm", X: 300, Y: 300, As: "a"})
	b := mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", ShareWith: "a", Parent: "cpm", X: 500, Y: 300})
	require.Equal(t, a.DefinitionID, b.DefinitionID)

	_, out, err := svc.GetReferences(context.Background(), nil, GetReferencesInput{NodeID: a.DefinitionID})
	require.NoError(t, err)
	ids := []string{out.References[0].ID, out.References[1].ID}
	assert.ElementsMatch(t, []string{a.NodeID, b.NodeID}, ids)

	_, out, err = svc.GetReferences(context.Background(), nil, GetReferencesInput{NodeID: "Missing_1"})
	require.NoError(t, err)
	assert.Empty(t, out.References)
}

func TestVerify(t *testing.T) {
	svc := newService(t)
	withCase(t, svc)
	_, out, err := svc.Verify(context.Background(), nil, VerifyInput{})
	require.NoError(t, err)
	assert.True(t, out.Consistent)
	assert.Empty(t, out.Problems)
}

// ---------- Graph queries ----------

func TestGraphQueries(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	cpm := withCase(t, svc)
	item := mustCreate(t, svc, CreateShapeInput{Kind: "PlanItem", Definition: "HumanTask", Name: "Review", Parent: "cpm", X: 300, Y: 300})

	t.Run("containment", func(t *testing.T) {
		_, out, err := svc.GetContainment(ctx, nil, GetContainmentInput{NodeID: item.NodeID, Direction: "UPSTREAM", MaxDepth: 1})
		require.NoError(t, err)
		require.Len(t, out.Chains, 1)
		assert.Equal(t, []string{item.NodeID, cpm.NodeID}, out.Chains[0].Nodes)
	})

	t.Run("impact", func(t *testing.T) {
		_, out, err := svc.AssessImpact(ctx, nil, AssessImpactInput{NodeIDs: []string{item.DefinitionID}})
		require.NoError(t, err)
		assert.Equal(t, []string{item.NodeID}, out.Impact.DirectlyAffected)
		assert.Greater(t, out.Impact.RiskScore, 0.0)
	})

	t.Run("impact requires ids", func(t *testing.T) {
		_, _, err := svc.AssessImpact(ctx, nil, AssessImpactInput{})
		assert.Error(t, err)
	})

	t.Run("query limit", func(t *testing.T) {
		_, out, err := svc.QueryNodes(ctx, nil, QueryNodesInput{Query: "", Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Total)
	})
}

func TestGraphQueries_StoreFactoryError(t *testing.T) {
	s, err := editor.New(nil, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	svc := NewEditorService(s, func() (docgraph.Store, error) { return nil, assert.AnError }, nil)

	_, _, err = svc.QueryNodes(context.Background(), nil, QueryNodesInput{Query: "x"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestExportDocument(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	cpm := withCase(t, svc)

	_, out, err := svc.ExportDocument(ctx, nil, ExportInput{})
	require.NoError(t, err)
	assert.Equal(t, "json", out.Format)
	assert.Contains(t, out.Content, cpm.NodeID)

	_, out, err = svc.ExportDocument(ctx, nil, ExportInput{Format: "Mermaid"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Content, "graph TD\n"))

	_, _, err = svc.ExportDocument(ctx, nil, ExportInput{Format: "svg"})
	assert.ErrorContains(t, err, "unknown format")
}

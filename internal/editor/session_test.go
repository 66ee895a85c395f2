package editor

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/config"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/modeling"
	"github.com/dusk-indust/cmmnedit/internal/replace"
)

// ---------- Test Helpers ----------

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(config.Default(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func create(t *testing.T, s *Session, opts modeling.ShapeOptions, parent, host *diagram.Element) *diagram.Element {
	t.Helper()
	e, err := s.Modeling().CreateShape(opts, parent, host)
	require.NoError(t, err)
	requireConsistent(t, s)
	return e
}

// casePlanModel creates a case plan model spanning 1200x800 at the origin.
func casePlanModel(t *testing.T, s *Session) *diagram.Element {
	t.Helper()
	cpm := create(t, s, modeling.ShapeOptions{Kind: cmmn.KindCasePlanModel, Position: cmmn.Point{X: 600, Y: 400}}, nil, nil)
	require.NoError(t, s.Modeling().ResizeShape(cpm, cmmn.Bounds{X: 0, Y: 0, Width: 1200, Height: 800}))
	return cpm
}

func item(kind, def cmmn.Kind, name string, x, y float64) modeling.ShapeOptions {
	return modeling.ShapeOptions{Kind: kind, DefinitionKind: def, Name: name, Position: cmmn.Point{X: x, Y: y}}
}

func ptr[T any](v T) *T { return &v }

func requireConsistent(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.Verify())
}

func requireSnapshot(t *testing.T, want Snapshot, s *Session) {
	t.Helper()
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

// ---------- Session ----------

func TestNew_EmptyDocument(t *testing.T) {
	s := newSession(t)
	defs := s.Document().Definitions
	assert.True(t, strings.HasPrefix(defs.ID, "Definitions_"), defs.ID)
	assert.True(t, strings.HasPrefix(s.Document().Diagram.ID, "CMMNDiagram_"), s.Document().Diagram.ID)
	assert.Same(t, defs, s.Registry().Get(defs.ID))
	assert.True(t, s.IDs().Assigned(defs.ID))
	assert.Empty(t, s.Canvas().Elements())
	requireConsistent(t, s)
}

func TestCreateCasePlanModel(t *testing.T) {
	s := newSession(t)
	cpm := casePlanModel(t, s)

	c := cmmn.CaseOf(cpm.Node)
	require.NotNil(t, c)
	assert.Same(t, s.Document().Definitions, c.Parent)
	assert.NotNil(t, c.CaseFileModel())
	require.NotNil(t, cpm.DI)
	assert.Equal(t, cpm.ID+"_di", cpm.DI.ID)
	assert.Equal(t, cpm.Bounds, cpm.DI.Bounds)

	require.NoError(t, s.Modeling().Undo())
	require.NoError(t, s.Modeling().Undo())
	assert.Nil(t, c.Parent)
	assert.Empty(t, s.Document().Diagram.Elements())
	assert.Equal(t, 1, s.Registry().Len())
	requireConsistent(t, s)
}

func TestCreateItems_DefinitionScope(t *testing.T) {
	s := newSession(t)
	cpm := casePlanModel(t, s)
	stage := create(t, s, item(cmmn.KindPlanItem, cmmn.KindStage, "Intake", 300, 400), cpm, nil)
	task := create(t, s, item(cmmn.KindPlanItem, cmmn.KindHumanTask, "Review", 300, 400), stage, nil)

	stageDef := stage.Node.DefinitionRef
	assert.Same(t, cpm.Node, stage.Node.Parent)
	assert.Same(t, cpm.Node, stageDef.Parent)
	assert.Same(t, stageDef, task.Node.Parent)
	assert.Same(t, stageDef, task.Node.DefinitionRef.Parent)
	assert.Equal(t, []*cmmn.Node{task.Node}, s.Registry().GetReferences(task.Node.DefinitionRef))
}

// ---------- Definitions ----------

func TestMoveSharedDefinition_Splits(t *testing.T) {
	s := newSession(t)
	m := s.Modeling()
	cpm := casePlanModel(t, s)
	s1 := create(t, s, item(cmmn.KindPlanItem, cmmn.KindStage, "S1", 300, 400), cpm, nil)
	s2 := create(t, s, item(cmmn.KindPlanItem, cmmn.KindStage, "S2", 900, 400), cpm, nil)
	a := create(t, s, item(cmmn.KindPlanItem, cmmn.KindTask, "H", 250, 400), s1, nil)
	h := a.Node.DefinitionRef
	b := create(t, s, modeling.ShapeOptions{Kind: cmmn.KindPlanItem, Definition: h, Position: cmmn.Point{X: 380, Y: 400}}, s1, nil)

	s1Def, s2Def := s1.Node.DefinitionRef, s2.Node.DefinitionRef
	require.Same(t, s1Def, h.Parent)
	require.ElementsMatch(t, []*cmmn.Node{a.Node, b.Node}, s.Registry().GetReferences(h))
	before := s.Snapshot()

	require.NoError(t, m.MoveShape(b, cmmn.Point{X: 600}, s2))
	requireConsistent(t, s)

	clone := b.Node.DefinitionRef
	require.NotSame(t, h, clone)
	assert.Equal(t, "H", clone.Name)
	assert.Equal(t, h.Kind, clone.Kind)
	assert.Same(t, s2Def, clone.Parent)
	assert.Same(t, s1Def, h.Parent)
	assert.Same(t, s2Def, b.Node.Parent)
	assert.Equal(t, []*cmmn.Node{a.Node}, s.Registry().GetReferences(h))
	assert.Equal(t, []*cmmn.Node{b.Node}, s.Registry().GetReferences(clone))
	after := s.Snapshot()

	require.NoError(t, m.Undo())
	requireConsistent(t, s)
	assert.Same(t, h, b.Node.DefinitionRef)
	assert.False(t, s.Registry().Has(clone))
	assert.Same(t, s1Def, b.Node.Parent)
	requireSnapshot(t, before, s)

	require.NoError(t, m.Redo())
	requireConsistent(t, s)
	assert.Same(t, clone, b.Node.DefinitionRef)
	requireSnapshot(t, after, s)
}

func TestMoveSharedDefinition_SameScopeNoSplit(t *testing.T) {
	s := newSession(t)
	cpm := casePlanModel(t, s)
	a := create(t, s, item(cmmn.KindPlanItem, cmmn.KindTask, "H", 200, 200), cpm, nil)
	h := a.Node.DefinitionRef
	b := create(t, s, modeling.ShapeOptions{Kind: cmmn.KindPlanItem, Definition: h, Position: cmmn.Point{X: 400, Y: 200}}, cpm, nil)

	require.NoError(t, s.Modeling().MoveShape(b, cmmn.Point{X: 100, Y: 100}, nil))
	requireConsistent(t, s)
	assert.Same(t, h, b.Node.DefinitionRef)
	assert.Same(t, cpm.Node, h.Parent)
}

func TestMoveSharedDefinition_NestedScopeNoSplit(t *testing.T) {
	s := newSession(t)
	cpm := casePlanModel(t, s)
	s1 := create(t, s, item(cmmn.KindPlanItem, cmmn.KindStage, "S1", 400, 400), cpm, nil)
	inner := create(t, s, item(cmmn.KindPlanItem, cmmn.KindStage, "S1a", 450, 450), s1, nil)
	a := create(t, s, item(cmmn.KindPlanItem, cmmn.KindTask, "H", 250, 400), s1, nil)
	h := a.Node.DefinitionRef
	b := create(t, s, modeling.ShapeOptions{Kind: cmmn.KindPlanItem, Definition: h, Position: cmmn.Point{X: 380, Y: 400}}, s1, nil)

	require.NoError(t, s.Modeling().MoveShape(b, cmmn.Point{X: 50, Y: 50}, inner))
	requireConsistent(t, s)
	assert.Same(t, h, b.Node.DefinitionRef, "the enclosing stage still covers both items")
	assert.Same(t, s1.Node.DefinitionRef, h.Parent)
	assert.Same(t, inner.Node.DefinitionRef, b.Node.Parent)
	assert.Len(t, s.Registry().GetReferences(h), 2)
}

func TestMoveSharedHumanTask_RehomesDiscretionaryItems(t *testing.T) {
	s := newSession(t)
	m := s.Modeling()
	cpm := casePlanModel(t, s)
	s1 := create(t, s, item(cmmn.KindPlanItem, cmmn.KindStage, "S1", 300, 400), cpm, nil)
	s2 := create(t, s, item(cmmn.KindPlanItem, cmmn.KindStage, "S2", 900, 400), cpm, nil)
	a := create(t, s, item(cmmn.KindPlanItem, cmmn.KindHumanTask, "H", 250, 400), s1, nil)
	h := a.Node.DefinitionRef
	b := create(t, s, modeling.ShapeOptions{Kind: cmmn.KindPlanItem, Definition: h, Position: cmmn.Point{X: 380, Y: 400}}, s1, nil)

	d, conn, err := m.AppendShape(b, item(cmmn.KindDiscretionaryItem, cmmn.KindTask, "D", 380, 480), nil)
	require.NoError(t, err)
	require.NotNil(t, conn)
	requireConsistent(t, s)
	table := h.PlanningTable()
	require.NotNil(t, table)
	require.Same(t, table, d.Node.Parent)
	before := s.Snapshot()

	require.NoError(t, m.MoveElements([]*diagram.Element{b, d}, cmmn.Point{X: 600}, modeling.MoveOptions{Parent: s2}))
	requireConsistent(t, s)

	clone := b.Node.DefinitionRef
	require.NotSame(t, h, clone)
	assert.Same(t, conn, s.Canvas().Get(conn.ID), "connection moved along with both ends")
	require.NotNil(t, clone.PlanningTable())
	assert.Same(t, clone.PlanningTable(), d.Node.Parent)
	assert.Nil(t, h.PlanningTable(), "emptied table is removed")
	assert.Same(t, s2.Node.DefinitionRef, d.Node.DefinitionRef.Parent)
	after := s.Snapshot()

	require.NoError(t, m.Undo())
	requireConsistent(t, s)
	assert.Same(t, table, d.Node.Parent)
	requireSnapshot(t, before, s)

	require.NoError(t, m.Redo())
	requireConsistent(t, s)
	requireSnapshot(t, after, s)
}

func TestDeleteLastReferencer_DetachesDefinition(t *testing.T) {
	s := newSession(t)
	cpm := casePlanModel(t, s)
	a := create(t, s, item(cmmn.KindPlanItem, cmmn.KindTask, "H", 200, 200), cpm, nil)
	h := a.Node.DefinitionRef
	b := create(t, s, modeling.ShapeOptions{Kind: cmmn.KindPlanItem, Definition: h, Position: cmmn.Point{X: 400, Y: 200}}, cpm, nil)

	require.NoError(t, s.Modeling().RemoveElements([]*diagram.Element{a}))
	requireConsistent(t, s)
	assert.Same(t, cpm.Node, h.Parent)

	require.NoError(t, s.Modeling().RemoveElements([]*diagram.Element{b}))
	requireConsistent(t, s)
	assert.Nil(t, h.Parent)
	assert.False(t, s.Registry().Has(h))

	require.NoError(t, s.Modeling().Undo())
	assert.Same(t, cpm.Node, h.Parent)
	requireConsistent(t, s)
}

// ---------- Sentries ----------

func TestCriteria_SentryPlacementAndSplit(t *testing.T) {
	s := newSession(t)
	m := s.Modeling()
	cpm := casePlanModel(t, s)
	a := create(t, s, item(cmmn.KindPlanItem, cmmn.KindTask, "A", 200, 200), cpm, nil)
	stage := create(t, s, item(cmmn.KindPlanItem, cmmn.KindStage, "S", 800, 400), cpm, nil)
	b := create(t, s, item(cmmn.KindPlanItem, cmmn.KindTask, "B", 800, 400), stage, nil)
	before := s.Snapshot()

	c1 := create(t, s, modeling.ShapeOptions{Kind: cmmn.KindEntryCriterion, Position: cmmn.Point{X: 150, Y: 200}}, nil, a)
	sentry := c1.Node.SentryRef
	assert.Same(t, a.Node, c1.Node.Parent)
	assert.Same(t, cpm, c1.Parent)
	assert.Same(t, cpm.Node, sentry.Parent)

	c2 := create(t, s, modeling.ShapeOptions{Kind: cmmn.KindEntryCriterion, Sentry: sentry, Position: cmmn.Point{X: 750, Y: 400}}, nil, b)
	clone := c2.Node.SentryRef
	require.NotSame(t, sentry, clone)
	assert.Same(t, stage.Node.DefinitionRef, clone.Parent)
	assert.Same(t, cpm.Node, sentry.Parent)
	assert.Equal(t, []*cmmn.Node{c1.Node}, s.Registry().GetReferences(sentry))
	assert.Equal(t, []*cmmn.Node{c2.Node}, s.Registry().GetReferences(clone))

	require.NoError(t, m.Undo())
	require.NoError(t, m.Undo())
	requireConsistent(t, s)
	requireSnapshot(t, before, s)
}

func TestOnPart_LivesInSentry(t *testing.T) {
	s := newSession(t)
	cpm := casePlanModel(t, s)
	x := create(t, s, item(cmmn.KindPlanItem, cmmn.KindTask, "X", 200, 200), cpm, nil)
	a := create(t, s, item(cmmn.KindPlanItem, cmmn.KindTask, "A", 500, 200), cpm, nil)
	crit := create(t, s, modeling.ShapeOptions{Kind: cmmn.KindEntryCriterion, Position: cmmn.Point{X: 450, Y: 200}}, nil, a)

	conn, err := s.Modeling().CreateConnection(x, crit)
	require.NoError(t, err)
	requireConsistent(t, s)

	op := conn.Node
	require.NotNil(t, op)
	assert.Equal(t, cmmn.KindPlanItemOnPart, op.Kind)
	assert.Same(t, crit.Node.SentryRef, op.Parent)
	assert.Same(t, x.Node, op.SourceRef)
	require.NotNil(t, conn.DI)
	assert.Equal(t, x.DI.ID, conn.DI.SourceID)
	assert.Equal(t, crit.DI.ID, conn.DI.TargetID)

	// Deleting the source takes the on-part along.
	require.NoError(t, s.Modeling().RemoveElements([]*diagram.Element{x}))
	requireConsistent(t, s)
	assert.Nil(t, op.Parent)
	assert.Empty(t, crit.Node.SentryRef.Children(cmmn.CollOnParts))
}

// ---------- Planning tables ----------

func TestDiscretionaryItem_PlanningTableLifecycle(t *testing.T) {
	s := newSession(t)
	m := s.Modeling()
	cpm := casePlanModel(t, s)
	before := s.Snapshot()

	d := create(t, s, item(cmmn.KindDiscretionaryItem, cmmn.KindTask, "D", 300, 300), cpm, nil)
	table := cpm.Node.PlanningTable()
	require.NotNil(t, table)
	assert.Same(t, table, d.Node.Parent)
	assert.Same(t, cpm.Node, d.Node.DefinitionRef.Parent)

	require.NoError(t, m.RemoveElements([]*diagram.Element{d}))
	requireConsistent(t, s)
	assert.Nil(t, cpm.Node.PlanningTable())
	assert.False(t, s.Registry().Has(table))

	require.NoError(t, m.Undo())
	requireConsistent(t, s)
	assert.Same(t, table, cpm.Node.PlanningTable())
	assert.Same(t, table, d.Node.Parent)

	require.NoError(t, m.Undo())
	requireConsistent(t, s)
	requireSnapshot(t, before, s)
}

func TestDiscretionaryConnection_RehomesItem(t *testing.T) {
	s := newSession(t)
	m := s.Modeling()
	cpm := casePlanModel(t, s)
	ht := create(t, s, item(cmmn.KindPlanItem, cmmn.KindHumanTask, "Assess", 200, 300), cpm, nil)
	d := create(t, s, item(cmmn.KindDiscretionaryItem, cmmn.KindTask, "Escalate", 500, 300), cpm, nil)
	cpmTable := cpm.Node.PlanningTable()
	require.NotNil(t, cpmTable)

	conn, err := m.CreateConnection(ht, d)
	require.NoError(t, err)
	requireConsistent(t, s)
	assert.True(t, conn.Discretionary)
	assert.Nil(t, conn.Node)

	htTable := ht.Node.DefinitionRef.PlanningTable()
	require.NotNil(t, htTable)
	assert.Same(t, htTable, d.Node.Parent)
	assert.Nil(t, cpm.Node.PlanningTable(), "emptied table is removed")

	require.NoError(t, m.RemoveElements([]*diagram.Element{conn}))
	requireConsistent(t, s)
	assert.Same(t, cpm.Node, d.Node.Parent.Parent)
	assert.Nil(t, ht.Node.DefinitionRef.PlanningTable())

	require.NoError(t, m.Undo())
	requireConsistent(t, s)
	assert.Same(t, htTable, d.Node.Parent)

	require.NoError(t, m.Undo())
	requireConsistent(t, s)
	assert.Same(t, cpmTable, d.Node.Parent)
}

func TestAppendDiscretionary_FromHumanTask(t *testing.T) {
	s := newSession(t)
	cpm := casePlanModel(t, s)
	ht := create(t, s, item(cmmn.KindPlanItem, cmmn.KindHumanTask, "Assess", 200, 300), cpm, nil)

	d, conn, err := s.Modeling().AppendShape(ht, item(cmmn.KindDiscretionaryItem, cmmn.KindTask, "Escalate", 500, 300), nil)
	require.NoError(t, err)
	requireConsistent(t, s)
	require.NotNil(t, conn)
	assert.Same(t, ht.Node.DefinitionRef.PlanningTable(), d.Node.Parent)
	assert.Nil(t, cpm.Node.PlanningTable())
}

func TestImport_NestedTablesRemovedTogether(t *testing.T) {
	s := newSession(t)
	doc := nestedTableDocument(t)

	warnings, err := s.Import(doc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	requireConsistent(t, s)
	before := s.Snapshot()

	cpm := doc.Find("CasePlanModel_1")
	outer, inner := doc.Find("PlanningTable_1"), doc.Find("PlanningTable_2")
	d := s.Canvas().Get("DiscretionaryItem_1")
	require.NotNil(t, d)
	require.Same(t, s.Canvas().Get("CasePlanModel_1"), d.Parent)

	require.NoError(t, s.Modeling().RemoveElements([]*diagram.Element{d}))
	requireConsistent(t, s)
	assert.Nil(t, cpm.PlanningTable())
	assert.False(t, s.Registry().Has(outer))
	assert.False(t, s.Registry().Has(inner))
	assert.Nil(t, doc.Find("Task_1"), "unreferenced definition is detached")

	require.NoError(t, s.Modeling().Undo())
	requireConsistent(t, s)
	assert.Same(t, outer, cpm.PlanningTable())
	assert.Same(t, outer, inner.Parent)
	requireSnapshot(t, before, s)
}

func nestedTableDocument(t *testing.T) *cmmn.Document {
	t.Helper()
	doc := cmmn.NewDocument("Definitions_1", "CMMNDiagram_1")
	c := cmmn.NewNode(cmmn.KindCase, "Case_1")
	cpm := cmmn.NewNode(cmmn.KindCasePlanModel, "CasePlanModel_1")
	outer := cmmn.NewNode(cmmn.KindPlanningTable, "PlanningTable_1")
	inner := cmmn.NewNode(cmmn.KindPlanningTable, "PlanningTable_2")
	def := cmmn.NewNode(cmmn.KindTask, "Task_1")
	d := cmmn.NewNode(cmmn.KindDiscretionaryItem, "DiscretionaryItem_1")
	d.DefinitionRef = def

	for _, step := range []struct{ parent, child *cmmn.Node }{
		{doc.Definitions, c},
		{c, cpm},
		{c, cmmn.NewNode(cmmn.KindCaseFileModel, "CaseFileModel_1")},
		{cpm, def},
		{cpm, outer},
		{outer, inner},
		{inner, d},
	} {
		require.NoError(t, step.parent.Add(step.child, -1))
	}
	doc.Diagram.Add(&cmmn.DIElement{ID: "CasePlanModel_1_di", Ref: cpm, Bounds: cmmn.Bounds{Width: 800, Height: 600}}, -1)
	doc.Diagram.Add(&cmmn.DIElement{ID: "DiscretionaryItem_1_di", Ref: d, Bounds: cmmn.Bounds{X: 100, Y: 100, Width: 100, Height: 80}}, -1)
	return doc
}

// ---------- Verify ----------

func TestVerify_DetectsMisplacedNodes(t *testing.T) {
	s := newSession(t)
	m := s.Modeling()
	cpm := casePlanModel(t, s)
	stage := create(t, s, item(cmmn.KindPlanItem, cmmn.KindStage, "S", 400, 400), cpm, nil)
	task := create(t, s, item(cmmn.KindPlanItem, cmmn.KindTask, "T", 400, 400), stage, nil)

	require.NoError(t, m.UpdateSemanticParent(task.Node.DefinitionRef, cpm.Node))
	err := s.Verify()
	require.ErrorIs(t, err, ErrInconsistent)
	assert.Contains(t, err.Error(), "definition "+task.Node.DefinitionRef.ID+" is placed in "+cpm.Node.ID)
	require.NoError(t, m.Undo())
	requireConsistent(t, s)

	ht := create(t, s, item(cmmn.KindPlanItem, cmmn.KindHumanTask, "Assess", 200, 200), cpm, nil)
	d, _, err := m.AppendShape(ht, item(cmmn.KindDiscretionaryItem, cmmn.KindTask, "Escalate", 200, 400), nil)
	require.NoError(t, err)
	create(t, s, item(cmmn.KindDiscretionaryItem, cmmn.KindTask, "Other", 900, 200), cpm, nil)
	require.NotNil(t, cpm.Node.PlanningTable())

	require.NoError(t, m.UpdateSemanticParent(d.Node, cpm.Node.PlanningTable()))
	err = s.Verify()
	require.ErrorIs(t, err, ErrInconsistent)
	assert.Contains(t, err.Error(), "discretionary item "+d.Node.ID+" is planned by "+cpm.Node.ID)
}

// ---------- Import ----------

func TestImport_Warnings(t *testing.T) {
	s := newSession(t)
	doc := nestedTableDocument(t)
	stray := cmmn.NewNode(cmmn.KindTask, "Stray_1")
	doc.Diagram.Add(&cmmn.DIElement{ID: "Stray_1_di", Ref: stray, Bounds: cmmn.Bounds{X: 10, Y: 10, Width: 10, Height: 10}}, -1)
	doc.Diagram.Add(&cmmn.DIElement{ID: "Edge_1_di", Edge: true, SourceID: "nowhere", TargetID: "CasePlanModel_1_di"}, -1)

	warnings, err := s.Import(doc)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.Equal(t, "Stray_1_di", warnings[0].Element)
	assert.Equal(t, "Edge_1_di", warnings[1].Element)
	requireConsistent(t, s)
}

func TestImport_RejectsAsymmetricTree(t *testing.T) {
	s := newSession(t)
	doc := nestedTableDocument(t)
	doc.Find("Task_1").Parent = doc.Definitions

	_, err := s.Import(doc)
	var symErr *cmmn.SymmetryError
	assert.ErrorAs(t, err, &symErr)
}

// ---------- History ----------

func TestZeroDeltaMove_IsIdempotent(t *testing.T) {
	s := newSession(t)
	cpm := casePlanModel(t, s)
	stage := create(t, s, item(cmmn.KindPlanItem, cmmn.KindStage, "S", 400, 400), cpm, nil)
	create(t, s, item(cmmn.KindPlanItem, cmmn.KindTask, "T", 400, 400), stage, nil)
	before := s.Snapshot()

	require.NoError(t, s.Modeling().MoveShape(stage, cmmn.Point{}, nil))
	requireConsistent(t, s)
	requireSnapshot(t, before, s)
}

func TestUndoRedo_RoundTrip(t *testing.T) {
	s := newSession(t)
	m := s.Modeling()
	var snaps []Snapshot
	step := func(fn func() error) {
		t.Helper()
		require.NoError(t, fn())
		requireConsistent(t, s)
		snaps = append(snaps, s.Snapshot())
	}

	snaps = append(snaps, s.Snapshot())
	var cpm, stage, ht, d, note *diagram.Element
	step(func() (err error) {
		cpm, err = m.CreateShape(item(cmmn.KindCasePlanModel, cmmn.KindUnknown, "Claim", 600, 400), nil, nil)
		return err
	})
	step(func() error { return m.ResizeShape(cpm, cmmn.Bounds{Width: 1200, Height: 800}) })
	step(func() (err error) {
		stage, err = m.CreateShape(item(cmmn.KindPlanItem, cmmn.KindStage, "Intake", 350, 400), cpm, nil)
		return err
	})
	step(func() (err error) {
		ht, err = m.CreateShape(item(cmmn.KindPlanItem, cmmn.KindHumanTask, "Assess", 300, 400), stage, nil)
		return err
	})
	step(func() (err error) {
		d, _, err = m.AppendShape(ht, item(cmmn.KindDiscretionaryItem, cmmn.KindTask, "Escalate", 420, 400), nil)
		return err
	})
	step(func() (err error) {
		note, err = m.CreateShape(item(cmmn.KindTextAnnotation, cmmn.KindUnknown, "note", 900, 150), cpm, nil)
		return err
	})
	step(func() error {
		_, err := m.CreateConnection(note, d)
		return err
	})
	step(func() error { return m.MoveShape(stage, cmmn.Point{X: 500}, nil) })
	step(func() error {
		_, err := m.ReplaceElement(d, replace.Target{Kind: cmmn.KindPlanItem})
		return err
	})
	step(func() error { return m.ToggleCollapse(stage) })
	step(func() error { return m.UpdateProperties(cpm.Node, modeling.Properties{Name: ptr("Claim plan")}) })

	for i := len(snaps) - 2; i >= 0; i-- {
		require.NoError(t, m.Undo())
		requireConsistent(t, s)
		requireSnapshot(t, snaps[i], s)
	}
	assert.False(t, s.Stack().CanUndo())

	for i := 1; i < len(snaps); i++ {
		require.NoError(t, m.Redo())
		requireConsistent(t, s)
		requireSnapshot(t, snaps[i], s)
	}
	assert.False(t, s.Stack().CanRedo())
}

func TestClose_ForgetsEverything(t *testing.T) {
	s, err := New(config.Default(), nil)
	require.NoError(t, err)
	casePlanModel(t, s)

	s.Close()
	assert.Equal(t, 0, s.Registry().Len())
	assert.Empty(t, s.Canvas().Elements())
	assert.False(t, s.Stack().CanUndo())
}

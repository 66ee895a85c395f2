package cmmn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for k := KindDefinitions; k < kindCount; k++ {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)

		short, err := ParseKind(k.Prefix())
		require.NoError(t, err)
		assert.Equal(t, k, short)
	}

	_, err := ParseKind("cmmn:Widget")
	assert.ErrorContains(t, err, "unknown cmmn kind")
}

func TestCollectionFor(t *testing.T) {
	tests := []struct {
		parent, child Kind
		want          Collection
	}{
		{KindDefinitions, KindCase, CollCases},
		{KindDefinitions, KindTextAnnotation, CollArtifacts},
		{KindCase, KindCasePlanModel, CollCasePlanModel},
		{KindCasePlanModel, KindPlanItem, CollPlanItems},
		{KindCasePlanModel, KindHumanTask, CollPlanItemDefinitions},
		{KindCasePlanModel, KindExitCriterion, CollExitCriteria},
		{KindStage, KindSentry, CollSentries},
		{KindStage, KindPlanItemControl, CollDefaultControl},
		{KindHumanTask, KindPlanningTable, CollPlanningTable},
		{KindPlanningTable, KindPlanningTable, CollTableItems},
		{KindPlanningTable, KindDiscretionaryItem, CollTableItems},
		{KindDiscretionaryItem, KindEntryCriterion, CollEntryCriteria},
		{KindSentry, KindCaseFileItemOnPart, CollOnParts},
		{KindPlanItemControl, KindRequiredRule, CollRequiredRule},
	}
	for _, tt := range tests {
		t.Run(tt.child.Prefix()+" in "+tt.parent.Prefix(), func(t *testing.T) {
			got, err := CollectionFor(tt.parent, tt.child)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range [][2]Kind{
		{KindStage, KindEntryCriterion},
		{KindCasePlanModel, KindPlanItemControl},
		{KindTask, KindPlanningTable},
		{KindMilestone, KindSentry},
	} {
		_, err := CollectionFor(bad[0], bad[1])
		assert.ErrorIs(t, err, ErrNoContainment, "%s in %s", bad[1], bad[0])
	}
}

func TestNewNode_Defaults(t *testing.T) {
	assert.True(t, NewNode(KindHumanTask, "").IsBlocking)
	assert.False(t, NewNode(KindStage, "").IsBlocking)
	assert.Equal(t, "complete", NewNode(KindPlanItemOnPart, "").StandardEvent)
	assert.Equal(t, "create", NewNode(KindCaseFileItemOnPart, "").StandardEvent)
}

func TestAdd_KeepsContainmentSymmetric(t *testing.T) {
	s1 := NewNode(KindStage, "S1")
	s2 := NewNode(KindStage, "S2")
	a := NewNode(KindPlanItem, "A")
	b := NewNode(KindPlanItem, "B")

	require.NoError(t, s1.Add(a, -1))
	require.NoError(t, s1.Add(b, 0))
	assert.Equal(t, []*Node{b, a}, s1.Children(CollPlanItems))

	// Adding to another parent moves the node.
	require.NoError(t, s2.Add(a, -1))
	assert.Same(t, s2, a.Parent)
	assert.Equal(t, []*Node{b}, s1.Children(CollPlanItems))
	assert.Equal(t, []*Node{a}, s2.Children(CollPlanItems))

	assert.NoError(t, CheckContainment(s1))
	assert.NoError(t, CheckContainment(s2))

	assert.ErrorIs(t, a.Add(s1, -1), ErrNoContainment)
}

func TestAdd_SingleSlot(t *testing.T) {
	ht := NewNode(KindHumanTask, "HT")
	t1 := NewNode(KindPlanningTable, "PT1")
	t2 := NewNode(KindPlanningTable, "PT2")

	require.NoError(t, ht.Add(t1, -1))
	require.NoError(t, ht.Add(t1, -1), "re-adding the occupant is a no-op move")
	assert.ErrorIs(t, ht.Add(t2, -1), ErrSingleOccupied)
	assert.Same(t, t1, ht.PlanningTable())
	assert.Nil(t, t2.Parent)
}

func TestPlacement_Restore(t *testing.T) {
	stage := NewNode(KindStage, "S")
	items := []*Node{NewNode(KindPlanItem, "A"), NewNode(KindPlanItem, "B"), NewNode(KindPlanItem, "C")}
	for _, it := range items {
		require.NoError(t, stage.Add(it, -1))
	}

	p := Detach(items[1])
	assert.Nil(t, items[1].Parent)
	assert.Equal(t, Placement{Parent: stage, Index: 1}, p)

	require.NoError(t, p.Restore(items[1]))
	assert.Equal(t, items, stage.Children(CollPlanItems))
	assert.Equal(t, p, PlacementOf(items[1]))

	require.NoError(t, Placement{}.Restore(items[0]))
	assert.Nil(t, items[0].Parent)
	assert.Equal(t, -1, stage.IndexOf(items[0]))
}

func TestWalk_Ancestor_Contains(t *testing.T) {
	cpm := NewNode(KindCasePlanModel, "CPM")
	stage := NewNode(KindStage, "S")
	item := NewNode(KindPlanItem, "I")
	sentry := NewNode(KindSentry, "Sentry")
	require.NoError(t, cpm.Add(stage, -1))
	require.NoError(t, cpm.Add(sentry, -1))
	require.NoError(t, stage.Add(item, -1))

	var visited []string
	cpm.Walk(func(n *Node) bool {
		visited = append(visited, n.ID)
		return true
	})
	// Slot order: planItems before sentries before planItemDefinitions.
	assert.Equal(t, []string{"CPM", "Sentry", "S", "I"}, visited)

	var first []string
	cpm.Walk(func(n *Node) bool {
		first = append(first, n.ID)
		return len(first) < 2
	})
	assert.Len(t, first, 2)

	assert.Same(t, cpm, item.Ancestor(func(n *Node) bool { return n.Kind == KindCasePlanModel }))
	assert.Nil(t, cpm.Ancestor(func(*Node) bool { return true }))
	assert.True(t, cpm.Contains(item))
	assert.True(t, item.Contains(item))
	assert.False(t, stage.Contains(sentry))
}

func TestCheckContainment_Detects(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(root, stage, item *Node)
		want    string
	}{
		{
			name:    "parent pointer differs",
			corrupt: func(root, _, item *Node) { item.Parent = root },
			want:    "parent pointer differs",
		},
		{
			name: "wrong slot",
			corrupt: func(_, stage, _ *Node) {
				x := NewNode(KindPlanItem, "x")
				x.Parent = stage
				stage.slots[CollSentries] = append(stage.slots[CollSentries], x)
			},
			want: "expected planItems",
		},
		{
			name: "contained twice",
			corrupt: func(_, stage, item *Node) {
				stage.slots[CollPlanItems] = append(stage.slots[CollPlanItems], item)
			},
			want: "contained more than once",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewNode(KindCasePlanModel, "CPM")
			stage := NewNode(KindStage, "S")
			item := NewNode(KindPlanItem, "I")
			require.NoError(t, root.Add(stage, -1))
			require.NoError(t, stage.Add(item, -1))
			require.NoError(t, CheckContainment(root))

			tt.corrupt(root, stage, item)
			err := CheckContainment(root)
			require.Error(t, err)
			var se *SymmetryError
			assert.True(t, errors.As(err, &se))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

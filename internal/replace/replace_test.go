package replace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/ids"
)

func controlWithRules(t *testing.T) *cmmn.Node {
	t.Helper()
	ctrl := cmmn.NewNode(cmmn.KindPlanItemControl, "Ctrl_1")
	rep := cmmn.NewNode(cmmn.KindRepetitionRule, "Rep_1")
	rep.Condition = &cmmn.Expression{Body: "count < 3"}
	req := cmmn.NewNode(cmmn.KindRequiredRule, "Req_1")
	require.NoError(t, ctrl.Add(rep, -1))
	require.NoError(t, ctrl.Add(req, -1))
	return ctrl
}

func TestCloneDefinition(t *testing.T) {
	pool := ids.NewPool()
	def := cmmn.NewNode(cmmn.KindHumanTask, "HumanTask_1")
	def.Name = "Review"
	def.IsBlocking = false
	ctrl := controlWithRules(t)
	require.NoError(t, def.Add(ctrl, -1))
	table := cmmn.NewNode(cmmn.KindPlanningTable, "PT_1")
	require.NoError(t, def.Add(table, -1))

	clone := CloneDefinition(def, pool)
	assert.NotEqual(t, def.ID, clone.ID)
	assert.Equal(t, cmmn.KindHumanTask, clone.Kind)
	assert.Equal(t, "Review", clone.Name)
	assert.False(t, clone.IsBlocking)
	assert.Nil(t, clone.PlanningTable(), "planning table stays with the original")

	cc := clone.DefaultControl()
	require.NotNil(t, cc)
	assert.NotSame(t, ctrl, cc)
	rep := cc.Child(cmmn.CollRepetitionRule)
	require.NotNil(t, rep)
	assert.Equal(t, "count < 3", rep.Condition.Body)
	assert.NotSame(t, ctrl.Child(cmmn.CollRepetitionRule).Condition, rep.Condition)
	assert.NotNil(t, cc.Child(cmmn.CollRequiredRule))

	// The original is untouched.
	assert.Same(t, ctrl, def.DefaultControl())
	assert.Same(t, def, ctrl.Parent)
	assert.NoError(t, cmmn.CheckContainment(clone))
}

func TestCloneSentry(t *testing.T) {
	pool := ids.NewPool()
	src := cmmn.NewNode(cmmn.KindPlanItem, "PI_src")
	sentry := cmmn.NewNode(cmmn.KindSentry, "Sentry_1")
	sentry.IfPart = &cmmn.Expression{Body: "ready"}
	keep := cmmn.NewNode(cmmn.KindPlanItemOnPart, "OnPart_keep")
	keep.SourceRef = src
	keep.StandardEvent = "terminate"
	drop := cmmn.NewNode(cmmn.KindPlanItemOnPart, "OnPart_drop")
	require.NoError(t, sentry.Add(keep, -1))
	require.NoError(t, sentry.Add(drop, -1))

	clone := CloneSentry(sentry, pool, func(op *cmmn.Node) bool { return op != drop })
	require.Len(t, clone.Children(cmmn.CollOnParts), 1)
	op := clone.Children(cmmn.CollOnParts)[0]
	assert.Same(t, src, op.SourceRef)
	assert.Equal(t, "terminate", op.StandardEvent)
	assert.Equal(t, "ready", clone.IfPart.Body)
	assert.Len(t, sentry.Children(cmmn.CollOnParts), 2)

	all := CloneSentry(sentry, pool, nil)
	assert.Len(t, all.Children(cmmn.CollOnParts), 2)
}

func TestReplace(t *testing.T) {
	pool := ids.NewPool()
	task := cmmn.NewNode(cmmn.KindHumanTask, "HT_1")
	task.Name = "Approve"
	task.IsBlocking = false
	stage := cmmn.NewNode(cmmn.KindStage, "Stage_1")

	item := func(def *cmmn.Node) *cmmn.Node {
		n := cmmn.NewNode(cmmn.KindPlanItem, "PI_"+def.ID)
		n.DefinitionRef = def
		n.Name = "item"
		return n
	}

	tests := []struct {
		name   string
		node   *cmmn.Node
		target Target
		check  func(t *testing.T, r Result)
	}{
		{
			name:   "plan item to discretionary item keeps definition",
			node:   item(task),
			target: Target{Kind: cmmn.KindDiscretionaryItem},
			check: func(t *testing.T, r Result) {
				assert.Equal(t, cmmn.KindDiscretionaryItem, r.Node.Kind)
				assert.Same(t, task, r.Node.DefinitionRef)
				assert.False(t, r.NewDefinition)
				assert.Equal(t, "item", r.Node.Name)
			},
		},
		{
			name:   "definition type change carries blocking flag",
			node:   item(task),
			target: Target{Kind: cmmn.KindProcessTask},
			check: func(t *testing.T, r Result) {
				require.True(t, r.NewDefinition)
				assert.Equal(t, cmmn.KindProcessTask, r.Definition.Kind)
				assert.Equal(t, "Approve", r.Definition.Name)
				assert.False(t, r.Definition.IsBlocking)
				assert.Same(t, r.Definition, r.Node.DefinitionRef)
			},
		},
		{
			name:   "collapse a stage keeps its definition",
			node:   item(stage),
			target: Target{Kind: cmmn.KindStage, Collapsed: true},
			check: func(t *testing.T, r Result) {
				assert.Same(t, stage, r.Definition)
				assert.True(t, r.Collapsed)
			},
		},
		{
			name:   "entry criterion to exit criterion keeps sentry",
			node:   &cmmn.Node{ID: "EC_1", Kind: cmmn.KindEntryCriterion, SentryRef: cmmn.NewNode(cmmn.KindSentry, "S_1")},
			target: Target{Kind: cmmn.KindExitCriterion},
			check: func(t *testing.T, r Result) {
				assert.Equal(t, cmmn.KindExitCriterion, r.Node.Kind)
				assert.Equal(t, "S_1", r.Node.SentryRef.ID)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Replace(tt.node, tt.target, pool)
			require.NoError(t, err)
			assert.NotEqual(t, tt.node.ID, r.Node.ID)
			tt.check(t, r)
		})
	}

	_, err := Replace(item(task), Target{Kind: cmmn.KindSentry}, pool)
	assert.ErrorIs(t, err, ErrUnsupported)
}

package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/editor"
	"github.com/dusk-indust/cmmnedit/internal/ids"
	"github.com/dusk-indust/cmmnedit/internal/modeling"
)

// ---------- Test Helpers ----------

func newRunner(t *testing.T) (*Runner, *editor.Session) {
	t.Helper()
	s, err := editor.New(nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return NewRunner(s, zaptest.NewLogger(t)), s
}

func mustLoad(t *testing.T, src string) *Script {
	t.Helper()
	sc, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	return sc
}

const caseSetup = `
  - {op: create, as: cpm, kind: CasePlanModel, at: {x: 600, y: 400}}
  - {op: resize, element: cpm, bounds: {x: 0, y: 0, width: 1200, height: 800}}
`

// ---------- Load ----------

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "no steps", src: "name: empty\n", want: "Steps"},
		{name: "unknown op", src: "steps:\n  - op: fly\n", want: "oneof"},
		{name: "create without kind", src: "steps:\n  - op: create\n", want: "required_if"},
		{name: "expect without body", src: "steps:\n  - op: expect\n", want: "required_if"},
		{name: "unknown key", src: "steps:\n  - op: undo\n    colour: red\n", want: "colour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile_NameDefaultsToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undo.yml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - op: verify\n"), 0o644))

	sc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, sc.Name)
	require.Len(t, sc.Steps, 1)
	assert.Equal(t, OpVerify, sc.Steps[0].Op)
}

// ---------- Run ----------

func TestRun_SplitOnMove(t *testing.T) {
	r, s := newRunner(t)
	sc := mustLoad(t, `
name: split
verify: true
steps:`+caseSetup+`
  - {op: create, as: s1, kind: PlanItem, definition: Stage, name: S1, parent: cpm, at: {x: 300, y: 400}}
  - {op: create, as: s2, kind: PlanItem, definition: Stage, name: S2, parent: cpm, at: {x: 900, y: 400}}
  - {op: create, as: a, kind: PlanItem, definition: Task, name: H, parent: s1, at: {x: 250, y: 400}}
  - {op: create, as: b, kind: PlanItem, shareWith: a, parent: s1, at: {x: 380, y: 400}}
  - op: expect
    expect: {sameDefinition: [a, b], count: {Task: 1}, parents: {b: s1}}
  - {op: move, element: b, by: {x: 600, y: 0}, parent: s2}
  - op: expect
    expect:
      distinctDefinition: [a, b]
      count: {Task: 2}
      parents: {a: s1, b: s2}
      undoDepth: 7
  - {op: undo}
  - op: expect
    expect: {sameDefinition: [a, b], count: {Task: 1}, redoDepth: 1}
  - {op: redo}
  - op: expect
    expect: {distinctDefinition: [a, b], undoDepth: 7, redoDepth: 0}
`)
	require.NoError(t, r.Run(context.Background(), sc))
	require.NoError(t, s.Verify())

	b, err := r.Lookup("b")
	require.NoError(t, err)
	assert.Equal(t, "H", b.Node.DefinitionRef.Name)
}

func TestRun_ReplaceRebindsAlias(t *testing.T) {
	r, s := newRunner(t)
	sc := mustLoad(t, `
verify: true
steps:`+caseSetup+`
  - {op: create, as: x, kind: PlanItem, definition: HumanTask, name: Check, parent: cpm, at: {x: 300, y: 300}}
  - {op: replace, element: x, kind: DiscretionaryItem, as: d}
  - op: expect
    expect: {count: {DiscretionaryItem: 1, PlanItem: 0, PlanningTable: 1}}
  - {op: update, element: x, name: Optional check}
  - {op: undo}
  - {op: undo}
  - op: expect
    expect: {count: {DiscretionaryItem: 0, PlanItem: 1, PlanningTable: 0}, absent: [d]}
  - {op: update, element: x, name: Renamed, autoComplete: true}
`)
	require.NoError(t, r.Run(context.Background(), sc))

	x, err := r.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, cmmn.KindPlanItem, x.Kind())
	assert.Equal(t, "Renamed", x.Node.Name)
	assert.True(t, x.Node.AutoComplete)
	require.NoError(t, s.Verify())
}

func TestRun_Criteria(t *testing.T) {
	r, s := newRunner(t)
	sc := mustLoad(t, `
verify: true
steps:`+caseSetup+`
  - {op: create, as: t1, kind: PlanItem, definition: Task, parent: cpm, at: {x: 300, y: 300}}
  - {op: create, as: t2, kind: PlanItem, definition: Task, parent: cpm, at: {x: 700, y: 300}}
  - {op: create, as: entry, kind: EntryCriterion, host: t2, at: {x: 650, y: 300}}
  - {op: connect, as: link, source: t1, target: entry}
  - op: expect
    expect: {count: {Sentry: 1, EntryCriterion: 1, PlanItemOnPart: 1}}
  - {op: delete, element: link}
  - op: expect
    expect: {count: {PlanItemOnPart: 0}, absent: [link]}
`)
	require.NoError(t, r.Run(context.Background(), sc))

	entry, err := r.Lookup("entry")
	require.NoError(t, err)
	require.NotNil(t, entry.Node.SentryRef)
	assert.Empty(t, entry.Node.SentryRef.Children(cmmn.CollOnParts))
	require.NoError(t, s.Verify())
}

func TestRun_StopsAtFailingStep(t *testing.T) {
	tests := []struct {
		name  string
		steps string
		index int
		want  error
	}{
		{
			name:  "unknown alias",
			steps: "  - {op: toggle, element: ghost}\n",
			index: 2,
			want:  ErrUnknownElement,
		},
		{
			name:  "missing bounds",
			steps: "  - {op: resize, element: cpm}\n",
			index: 2,
			want:  ErrMissingField,
		},
		{
			name:  "failed expectation",
			steps: "  - {op: expect, expect: {count: {Case: 2}}}\n",
			index: 2,
			want:  ErrExpectation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, s := newRunner(t)
			sc := mustLoad(t, "steps:"+caseSetup+tt.steps+"  - {op: undo}\n")

			err := r.Run(context.Background(), sc)
			require.ErrorIs(t, err, tt.want)
			var se *StepError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.index, se.Index)
			assert.Equal(t, 2, s.Stack().UndoDepth(), "steps after the failure must not run")
		})
	}
}

func TestRun_RulesRejectInteractions(t *testing.T) {
	tests := []struct {
		name  string
		steps string
		index int
	}{
		{
			name:  "resize below minimum",
			steps: "  - {op: resize, element: cpm, bounds: {x: 0, y: 0, width: 10, height: 10}}\n",
			index: 2,
		},
		{
			name: "entry criterion on milestone",
			steps: `  - {op: create, as: m, kind: PlanItem, definition: Milestone, parent: cpm, at: {x: 200, y: 200}}
  - {op: create, kind: EntryCriterion, host: m, at: {x: 150, y: 200}}
`,
			index: 3,
		},
		{
			name: "drop into milestone",
			steps: `  - {op: create, as: t, kind: PlanItem, definition: Task, parent: cpm, at: {x: 300, y: 300}}
  - {op: create, as: m, kind: PlanItem, definition: Milestone, parent: cpm, at: {x: 700, y: 300}}
  - {op: move, element: t, by: {x: 400, y: 0}, parent: m}
`,
			index: 4,
		},
		{
			name: "reattach to milestone",
			steps: `  - {op: create, as: t, kind: PlanItem, definition: Task, parent: cpm, at: {x: 300, y: 300}}
  - {op: create, as: entry, kind: EntryCriterion, host: t, at: {x: 250, y: 300}}
  - {op: create, as: m, kind: PlanItem, definition: Milestone, parent: cpm, at: {x: 700, y: 300}}
  - {op: move, element: entry, by: {x: 400, y: 0}, attach: true, host: m}
`,
			index: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, s := newRunner(t)
			err := r.Run(context.Background(), mustLoad(t, "steps:"+caseSetup+tt.steps))
			require.ErrorIs(t, err, modeling.ErrNotAllowed)
			var se *StepError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.index, se.Index)
			assert.Equal(t, tt.index, s.Stack().UndoDepth(), "a rejected step records nothing")
			require.NoError(t, s.Verify())
		})
	}
}

func TestRun_AliasesSurviveAcrossRuns(t *testing.T) {
	r, _ := newRunner(t)
	require.NoError(t, r.Run(context.Background(), mustLoad(t, "steps:"+caseSetup)))
	require.NoError(t, r.Run(context.Background(), mustLoad(t, `
steps:
  - {op: create, as: m, kind: PlanItem, definition: Milestone, parent: cpm, at: {x: 200, y: 200}}
  - op: expect
    expect: {parents: {m: cpm}, count: {Milestone: 1}}
`)))
}

func TestRun_Canceled(t *testing.T) {
	r, s := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, mustLoad(t, "steps:"+caseSetup))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Stack().UndoDepth())
}

func TestRun_UpdateID(t *testing.T) {
	r, s := newRunner(t)
	require.NoError(t, r.Run(context.Background(), mustLoad(t, `
verify: true
steps:`+caseSetup+`
  - {op: create, as: x, kind: PlanItem, definition: Task, parent: cpm, at: {x: 300, y: 300}}
`)))
	x, err := r.Lookup("x")
	require.NoError(t, err)
	oldID := x.Node.ID

	require.NoError(t, r.Run(context.Background(), mustLoad(t, "verify: true\nsteps:\n  - {op: update, element: x, id: Review_1}\n")))
	assert.Equal(t, "Review_1", x.Node.ID)
	assert.Same(t, x.Node, s.Registry().Get("Review_1"))
	assert.Nil(t, s.Registry().Get(oldID))

	cpm, err := r.Lookup("cpm")
	require.NoError(t, err)
	err = r.Run(context.Background(), mustLoad(t, "steps:\n  - {op: update, element: x, id: "+cpm.Node.ID+"}\n"))
	assert.ErrorIs(t, err, ids.ErrIDClaimed)

	require.NoError(t, r.Run(context.Background(), mustLoad(t, "steps:\n  - {op: undo}\n  - {op: verify}\n")))
	assert.Equal(t, oldID, x.Node.ID)
}

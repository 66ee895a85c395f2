package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ClaimAndUnclaim(t *testing.T) {
	p := NewPool()
	owner := &struct{}{}

	require.NoError(t, p.Claim("Task_1", owner))
	assert.True(t, p.Assigned("Task_1"))

	// Same owner may re-claim.
	require.NoError(t, p.Claim("Task_1", owner))

	err := p.Claim("Task_1", &struct{ x int }{})
	require.ErrorIs(t, err, ErrIDClaimed)

	p.Unclaim("Task_1")
	assert.False(t, p.Assigned("Task_1"))
}

func TestPool_NextPrefixed(t *testing.T) {
	p := NewPool()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		owner := &struct{ i int }{i}
		id := p.NextPrefixed("PlanItem", owner)
		require.True(t, strings.HasPrefix(id, "PlanItem_"), "id %q", id)
		require.Len(t, id, len("PlanItem_")+7)
		require.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true

		got, ok := p.Owner(id)
		require.True(t, ok)
		assert.Same(t, owner, got)
	}
}

func TestPool_Clear(t *testing.T) {
	p := NewPool()
	id := p.NextPrefixed("Sentry", 1)
	p.Clear()
	assert.False(t, p.Assigned(id))
}

func TestPool_ReleaseSinceMark(t *testing.T) {
	p := NewPool()
	kept := p.NextPrefixed("Task", 1)

	mark := p.Mark()
	owner := &struct{}{}
	dropped := p.NextPrefixed("PlanItem", owner)
	renamed := p.NextPrefixed("Sentry", 2)
	p.Unclaim(renamed)
	require.NoError(t, p.Claim(renamed, 3))

	p.Release(mark)
	assert.Equal(t, 2, p.Len())
	assert.True(t, p.Assigned(kept))
	assert.False(t, p.Assigned(dropped))
	got, ok := p.Owner(renamed)
	require.True(t, ok, "a claim taken over by another owner survives")
	assert.Equal(t, 3, got)

	mark = p.Mark()
	id := p.NextPrefixed("Stage", 4)
	p.Keep(mark)
	p.Release(mark)
	assert.True(t, p.Assigned(id), "kept ids are no longer tracked")
}

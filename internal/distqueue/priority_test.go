package distqueue

import "testing"

import "github.com/stretchr/testify/assert"

func TestPriorityBetween_EmptyList(t *testing.T) {
	p, ok := priorityBetween(nil, nil)
	assert.True(t, ok)
	assert.Equal(t, initialGap, p)
}

func TestPriorityBetween_InsertAtHead(t *testing.T) {
	after := 500
	p, ok := priorityBetween(nil, &after)
	assert.True(t, ok)
	assert.Greater(t, p, after)
}

func TestPriorityBetween_InsertAtTail(t *testing.T) {
	before := 500
	p, ok := priorityBetween(&before, nil)
	assert.True(t, ok)
	assert.Less(t, p, before)
	assert.GreaterOrEqual(t, p, 0)
}

func TestPriorityBetween_InsertBetween(t *testing.T) {
	before, after := 1000, 500
	p, ok := priorityBetween(&before, &after)
	assert.True(t, ok)
	assert.Greater(t, p, after)
	assert.Less(t, p, before)
}

func TestPriorityBetween_GapExhausted(t *testing.T) {
	before, after := 501, 500
	_, ok := priorityBetween(&before, &after)
	assert.False(t, ok, "adjacent integers leave no room for a strictly-between value")
}

func TestPriorityBetween_TailGapExhausted(t *testing.T) {
	before := 0
	_, ok := priorityBetween(&before, nil)
	assert.False(t, ok, "a non-positive tail priority cannot be halved further")
}

func TestRenumberPriorities_StrictlyDescending(t *testing.T) {
	ps := renumberPriorities(5)
	assert.Len(t, ps, 5)
	for i := 1; i < len(ps); i++ {
		assert.Greater(t, ps[i-1], ps[i])
	}
}

func TestRenumberPriorities_Empty(t *testing.T) {
	assert.Empty(t, renumberPriorities(0))
}

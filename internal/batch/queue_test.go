package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiger-colonel/xyflow-study/internal/loop"
)

func TestQueueCollapsesPushesIntoOneFlush(t *testing.T) {
	l := loop.New(0)
	var flushes [][]Update[[]string]
	q := NewQueue(l, func(items []Update[[]string]) { flushes = append(flushes, items) })

	l.Dispatch(func() {
		for _, id := range []string{"a", "b", "c"} {
			q.Push(Apply(func(cur []string) []string { return append(cur, id) }))
		}
		assert.Empty(t, flushes, "flush never runs inside push")
	})

	require.Len(t, flushes, 1)
	require.Len(t, flushes[0], 3)
	assert.Equal(t, []string{"a", "b", "c"}, Reduce(nil, flushes[0]))
	assert.Equal(t, 0, q.Len())
}

func TestReduceSetReplacesAccumulator(t *testing.T) {
	add := func(n int) Update[int] { return Apply(func(v int) int { return v + n }) }
	assert.Equal(t, 15, Reduce(1, []Update[int]{add(2), Set(10), add(5)}))
}

func TestQueueFlushesAgainForPushesDuringFlush(t *testing.T) {
	l := loop.New(0)
	var q *Queue[int]
	var seen []int
	q = NewQueue(l, func(items []Update[int]) {
		v := Reduce(0, items)
		seen = append(seen, v)
		if v < 3 {
			q.Push(Set(v + 1))
		}
	})

	l.Dispatch(func() { q.Push(Set(1)) })
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestQueueSeparateTasksFlushSeparately(t *testing.T) {
	l := loop.New(0)
	flushes := 0
	q := NewQueue(l, func([]Update[int]) { flushes++ })

	l.Dispatch(func() { q.Push(Set(1)) })
	l.Dispatch(func() { q.Push(Set(2)); q.Push(Set(3)) })
	assert.Equal(t, 2, flushes)
	assert.Equal(t, uint64(3), q.Serial())
}

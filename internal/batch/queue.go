// Package batch coalesces state updates issued within one task into a single
// flush that runs before the next frame.
package batch

// Scheduler runs fn after the current task, before the next frame.
type Scheduler interface {
	Schedule(fn func())
}

// Update is one queued payload: either a whole new value or a function of
// the value accumulated so far.
type Update[T any] struct {
	value T
	fn    func(T) T
}

// Set replaces the accumulated value.
func Set[T any](v T) Update[T] { return Update[T]{value: v} }

// Apply derives a new value from the accumulated one.
func Apply[T any](fn func(T) T) Update[T] { return Update[T]{fn: fn} }

// Resolve applies the update to acc.
func (u Update[T]) Resolve(acc T) T {
	if u.fn != nil {
		return u.fn(acc)
	}
	return u.value
}

// Reduce threads initial through updates in order.
func Reduce[T any](initial T, updates []Update[T]) T {
	acc := initial
	for _, u := range updates {
		acc = u.Resolve(acc)
	}
	return acc
}

// Queue collects updates and hands them to its handler in one flush. A
// serial counter rather than a flag decides when to schedule: a flush is
// scheduled by the first push after the previous flush, however many pushes
// follow.
type Queue[T any] struct {
	sched   Scheduler
	handler func([]Update[T])
	items   []Update[T]
	serial  uint64
	flushed uint64
}

// NewQueue returns a queue that flushes through handler on sched.
func NewQueue[T any](sched Scheduler, handler func([]Update[T])) *Queue[T] {
	return &Queue[T]{sched: sched, handler: handler}
}

// Push queues u. It never runs the handler synchronously.
func (q *Queue[T]) Push(u Update[T]) {
	q.items = append(q.items, u)
	q.serial++
	if q.serial == q.flushed+1 {
		q.sched.Schedule(q.flush)
	}
}

// Len returns the number of updates waiting for a flush.
func (q *Queue[T]) Len() int { return len(q.items) }

// Serial returns the number of pushes so far.
func (q *Queue[T]) Serial() uint64 { return q.serial }

func (q *Queue[T]) flush() {
	items := q.items
	q.items = nil
	q.flushed = q.serial
	if len(items) > 0 {
		q.handler(items)
	}
}

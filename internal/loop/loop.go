// Package loop is the single-threaded cooperative scheduler the engine runs
// on. It offers microtasks (run after the current task, before the next
// frame), animation frames and timers over a virtual clock. Everything except
// Post must be called from the goroutine that owns the loop.
package loop

import (
	"context"
	"slices"
	"time"
)

// DefaultFrameInterval is one frame at 60Hz.
const DefaultFrameInterval = time.Second / 60

// FrameID identifies a requested animation frame.
type FrameID int64

// TimerID identifies a pending timer.
type TimerID int64

type frameRequest struct {
	id FrameID
	fn func(now time.Duration)
}

type timer struct {
	id TimerID
	at time.Duration
	fn func()
}

// Loop schedules work for one engine instance.
type Loop struct {
	interval   time.Duration
	now        time.Duration
	nextID     int64
	microtasks []func()
	frames     []frameRequest
	timers     []timer
	posted     chan func()
	done       chan struct{}
}

// New returns a loop whose frames are interval apart. A non-positive
// interval uses DefaultFrameInterval.
func New(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{
		interval: interval,
		posted:   make(chan func(), 256),
		done:     make(chan struct{}),
	}
}

// Now returns the virtual clock.
func (l *Loop) Now() time.Duration { return l.now }

// Interval returns the frame interval.
func (l *Loop) Interval() time.Duration { return l.interval }

// Schedule queues fn to run once the current task has finished.
func (l *Loop) Schedule(fn func()) {
	l.microtasks = append(l.microtasks, fn)
}

// Drain runs queued microtasks, including ones they queue, until none remain.
func (l *Loop) Drain() {
	for len(l.microtasks) > 0 {
		fn := l.microtasks[0]
		l.microtasks = l.microtasks[1:]
		fn()
	}
}

// Dispatch runs fn as a task followed by the microtasks it queued.
func (l *Loop) Dispatch(fn func()) {
	fn()
	l.Drain()
}

// RequestFrame runs fn on the next frame.
func (l *Loop) RequestFrame(fn func(now time.Duration)) FrameID {
	l.nextID++
	id := FrameID(l.nextID)
	l.frames = append(l.frames, frameRequest{id: id, fn: fn})
	return id
}

// CancelFrame drops a pending frame request. Unknown ids are ignored.
func (l *Loop) CancelFrame(id FrameID) {
	l.frames = slices.DeleteFunc(l.frames, func(f frameRequest) bool { return f.id == id })
}

// SetTimeout runs fn once the clock has advanced by d.
func (l *Loop) SetTimeout(d time.Duration, fn func()) TimerID {
	l.nextID++
	id := TimerID(l.nextID)
	l.timers = append(l.timers, timer{id: id, at: l.now + d, fn: fn})
	return id
}

// ClearTimeout drops a pending timer. Unknown ids are ignored.
func (l *Loop) ClearTimeout(id TimerID) {
	l.timers = slices.DeleteFunc(l.timers, func(t timer) bool { return t.id == id })
}

// Pending reports whether any frame or timer is waiting.
func (l *Loop) Pending() bool {
	return len(l.frames) > 0 || len(l.timers) > 0 || len(l.microtasks) > 0
}

// Frame advances the clock by one interval, fires due timers and then runs
// every frame requested before this call. Frames requested from inside a
// frame callback run on the next frame.
func (l *Loop) Frame() {
	l.Drain()
	l.now += l.interval
	l.fireTimers()

	frames := l.frames
	l.frames = nil
	for _, f := range frames {
		l.Dispatch(func() { f.fn(l.now) })
	}
}

// Advance runs frames until the clock has moved by at least d.
func (l *Loop) Advance(d time.Duration) {
	for end := l.now + d; l.now < end; {
		l.Frame()
	}
}

func (l *Loop) fireTimers() {
	for {
		idx := -1
		for i, t := range l.timers {
			if t.at <= l.now && (idx < 0 || t.at < l.timers[idx].at) {
				idx = i
			}
		}
		if idx < 0 {
			return
		}
		t := l.timers[idx]
		l.timers = slices.Delete(l.timers, idx, idx+1)
		l.Dispatch(t.fn)
	}
}

// Post hands fn to the loop from any goroutine. It reports false once the
// loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.posted <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run drives the loop in real time until ctx is done: posted tasks run as
// they arrive and a frame runs every interval.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.posted:
			l.Dispatch(fn)
		case <-ticker.C:
			l.Frame()
		}
	}
}

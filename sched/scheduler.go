// Package sched implements the time-ordered wake-up queue that drives
// timers. The scheduler owns alarms from creation to dispatch; everything
// runs on the single runloop goroutine, so there is no locking.
package sched

import (
	"container/heap"
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/drake/chime/clock"
)

// Scheduler maintains pending alarms in fire-time order and dispatches
// the due ones on each runloop pass. Alarms with equal fire time dispatch
// in creation order.
type Scheduler struct {
	clock clock.Clock
	heap  alarmHeap
	seq   uint64
	log   zerolog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// New creates a Scheduler reading time from clk.
func New(clk clock.Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock: clk,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clock returns the scheduler's time source.
func (s *Scheduler) Clock() clock.Clock {
	return s.clock
}

// Enqueue registers a wake-up for task at the absolute time fireTime and
// returns the pending entry.
func (s *Scheduler) Enqueue(fireTime float64, task Task) *Alarm {
	s.seq++
	a := &Alarm{
		fireTime: fireTime,
		seq:      s.seq,
		task:     task,
	}
	heap.Push(&s.heap, a)
	s.log.Debug().Float64("fire_time", fireTime).Uint64("seq", a.seq).Msg("alarm enqueued")
	return a
}

// Apply interprets a scheduling action produced by a task or timer.
func (s *Scheduler) Apply(a Action) {
	if a.kind == actionEnqueue {
		s.Enqueue(a.fireTime, a.task)
	}
}

// Pending returns the number of alarms waiting to fire.
func (s *Scheduler) Pending() int {
	return len(s.heap)
}

// NextFireTime reports the earliest pending fire time, if any.
func (s *Scheduler) NextFireTime() (float64, bool) {
	if len(s.heap) == 0 {
		return 0, false
	}
	return s.heap[0].fireTime, true
}

// Dispatch pops and runs every alarm due at the current time, in order,
// and applies each task's resulting action. Alarms enqueued during the
// pass run on a later pass even if already due, which bounds a pass even
// for zero-interval repeats. Returns the number of alarms dispatched.
func (s *Scheduler) Dispatch() int {
	now := s.clock.Now()
	cutoff := s.seq

	n := 0
	for len(s.heap) > 0 {
		top := s.heap[0]
		if top.fireTime > now || top.seq > cutoff {
			break
		}
		heap.Pop(&s.heap)
		n++
		s.log.Debug().Float64("fire_time", top.fireTime).Uint64("seq", top.seq).Msg("alarm dispatched")
		s.Apply(top.task.Run())
	}
	return n
}

// Run polls the clock at the given cadence and dispatches due alarms
// until ctx is done. It blocks the calling goroutine; all timer state
// transitions happen on that goroutine.
func (s *Scheduler) Run(ctx context.Context, poll time.Duration) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Dispatch()
		}
	}
}

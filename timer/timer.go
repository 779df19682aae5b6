// Package timer implements the timed-invocation primitive: a state
// machine that arms itself with the scheduler's wake-up queue and fires
// an opaque handler once, N times, or forever.
//
// A timer is idle until armed. Arming records the birth time and hands
// the scheduler an alarm for birthtime+duration; when that alarm is
// dispatched the timer fires its handler and, if repeating, hands over a
// fresh alarm for now+interval. Cancellation is lazy: it flips a flag
// that the fire transition observes, and never retracts a queued alarm.
package timer

import (
	"github.com/drake/chime/clock"
	"github.com/drake/chime/sched"
)

// Handler is the invocable a timer fires: no arguments, no result, no
// error path. A missing handler is skipped silently.
type Handler interface {
	Invoke()
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func()

func (f HandlerFunc) Invoke() { f() }

// Scheduler is the slice of the wake-up queue the timer needs: enough to
// self-apply the scheduling action produced by a running-flag write.
type Scheduler interface {
	Enqueue(fireTime float64, task sched.Task) *sched.Alarm
	Apply(a sched.Action)
}

// Timer is the timed-invocation state machine. All transitions happen on
// the runloop goroutine; Timer carries no locks.
type Timer struct {
	clock clock.Clock
	sched Scheduler

	handler   Handler
	birthtime float64 // when armed, 0 until then
	duration  float64 // seconds from birthtime to first fire
	interval  float64 // seconds between repeat fires
	repeat    int64   // 0 once, -1 forever, N > 0 more fires

	started bool // set once, on first arming
	running bool // the cancellation switch
}

// New creates an idle, unconfigured timer bound to a clock and scheduler.
func New(clk clock.Clock, s Scheduler) *Timer {
	return &Timer{clock: clk, sched: s}
}

// Pair is one (key, value) step of a bulk configuration sequence. Value
// must be an int64, float64, or Handler; it is applied through the
// corresponding single-key write path.
type Pair struct {
	Key   Key
	Value any
}

// NewConfigured creates a timer and applies pairs in order, exactly as
// repeated single-key writes. Placing a truthy {KeyRunning, 1} pair last
// constructs and immediately arms.
func NewConfigured(clk clock.Clock, s Scheduler, pairs ...Pair) (*Timer, error) {
	t := New(clk, s)
	if err := t.Configure(pairs...); err != nil {
		return nil, err
	}
	return t, nil
}

// Configure applies pairs in sequence order through the keyed write
// paths. The first failing write stops the sequence.
func (t *Timer) Configure(pairs ...Pair) error {
	for _, p := range pairs {
		var err error
		switch v := p.Value.(type) {
		case int64:
			err = t.SetInt(p.Key, v)
		case int:
			err = t.SetInt(p.Key, int64(v))
		case float64:
			err = t.SetFloat(p.Key, v)
		case Handler:
			t.SetHandler(p.Key, v)
		default:
			err = invalidOp("configure", p.Key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// --- Keyed write surface ---

// SetInt writes an integer-valued field. Unrecognized keys fail with
// InvalidOperationError.
func (t *Timer) SetInt(k Key, v int64) error {
	switch k {
	case KeySeconds:
		t.duration = float64(v)
	case KeyMicroseconds:
		// Additive: whole seconds must already be in place.
		t.duration += float64(v) / 1e6
	case KeyDuration:
		t.duration = float64(v)
	case KeyInterval:
		t.interval = float64(v)
	case KeyRepeat:
		t.repeat = v
	case KeyRunning:
		t.setRunning(v != 0)
	default:
		return invalidOp("set integer", k)
	}
	return nil
}

// SetFloat writes a float-valued field. Unrecognized keys fail with
// InvalidOperationError.
func (t *Timer) SetFloat(k Key, v float64) error {
	switch k {
	case KeySeconds, KeyDuration:
		t.duration = v
	case KeyMicroseconds:
		t.duration += v / 1e6
	case KeyInterval:
		t.interval = v
	case KeyRepeat:
		t.repeat = int64(v)
	case KeyRunning:
		t.setRunning(v != 0)
	default:
		return invalidOp("set number", k)
	}
	return nil
}

// SetHandler stores the handler when k is KeyHandler. Any other key is a
// silent no-op; this path never errors.
func (t *Timer) SetHandler(k Key, h Handler) {
	if k == KeyHandler {
		t.handler = h
	}
}

// setRunning implements the running-flag write. Truthy runs the invoke
// protocol and self-applies the resulting scheduling action; falsy only
// flips the flag and never retracts a queued alarm.
func (t *Timer) setRunning(on bool) {
	if !on {
		t.running = false
		return
	}
	t.running = true
	t.sched.Apply(t.Invoke())
}

// --- Keyed read surface ---

// GetInt reads an integer-valued field. Time reads report the absolute
// target time (birthtime + duration) split into whole seconds and
// fractional microseconds. The running flag always reads 0.
func (t *Timer) GetInt(k Key) (int64, error) {
	switch k {
	case KeySeconds:
		return int64(t.birthtime + t.duration), nil
	case KeyMicroseconds:
		abs := t.birthtime + t.duration
		return int64((abs - float64(int64(abs))) * 1e6), nil
	case KeyInterval:
		return int64(t.interval), nil
	case KeyRepeat:
		return t.repeat, nil
	case KeyRunning:
		return 0, nil
	default:
		return 0, invalidOp("get integer", k)
	}
}

// GetFloat reads a float-valued field. Duration and seconds reads report
// the absolute target time. The running flag always reads 0.
func (t *Timer) GetFloat(k Key) (float64, error) {
	switch k {
	case KeySeconds, KeyDuration:
		return t.birthtime + t.duration, nil
	case KeyMicroseconds:
		abs := t.birthtime + t.duration
		return (abs - float64(int64(abs))) * 1e6, nil
	case KeyInterval:
		return t.interval, nil
	case KeyRepeat:
		return float64(t.repeat), nil
	case KeyRunning:
		return 0, nil
	default:
		return 0, invalidOp("get number", k)
	}
}

// Handler returns the stored handler, which may be nil.
func (t *Timer) Handler() Handler {
	return t.handler
}

// HandlerAt is the keyed handler read: the handler for KeyHandler, nil
// for any other key. Mirrors the silent write path.
func (t *Timer) HandlerAt(k Key) Handler {
	if k == KeyHandler {
		return t.handler
	}
	return nil
}

// Started reports whether the timer has ever been armed.
func (t *Timer) Started() bool {
	return t.started
}

// --- Invocation protocol ---

// Invoke is the single entry point of the state machine, called once to
// arm and once per fire. The first call on a fresh timer is the arm
// transition; every later call is the fire transition, normally reached
// through scheduler dispatch of the bound task.
func (t *Timer) Invoke() sched.Action {
	if !t.started {
		return t.arm()
	}
	return t.onFire()
}

// arm records the birth time and requests the first wake-up. The handler
// never runs synchronously from arming.
func (t *Timer) arm() sched.Action {
	t.started = true
	t.running = true
	t.birthtime = t.clock.Now()
	return sched.Enqueue(t.birthtime+t.duration, newTask(t))
}

// onFire runs the handler and applies the repeat policy. A cancelled
// timer is a no-op here: the queued alarm still dispatched, but nothing
// observable happens and nothing is rescheduled.
func (t *Timer) onFire() sched.Action {
	if !t.running {
		return sched.None()
	}
	if t.handler != nil {
		t.handler.Invoke()
	}
	if t.repeat == 0 {
		// Dormant: running stays true, nothing scheduled.
		return sched.None()
	}
	if t.repeat > 0 {
		t.repeat--
	}
	return sched.Enqueue(t.clock.Now()+t.interval, newTask(t))
}

// Clone returns a fresh, unarmed timer with the same configuration:
// duration, interval, repeat, and handler carry over; birthtime,
// started, and running reset.
func (t *Timer) Clone() *Timer {
	return &Timer{
		clock:    t.clock,
		sched:    t.sched,
		handler:  t.handler,
		duration: t.duration,
		interval: t.interval,
		repeat:   t.repeat,
	}
}

// Mark reports the handler to a tracing pass, unconditionally of state.
// Under Go the field reference already keeps the handler alive; the hook
// exists for hosts that collect VM values through an explicit root scan.
func (t *Timer) Mark(visit func(Handler)) {
	if t.handler != nil {
		visit(t.handler)
	}
}

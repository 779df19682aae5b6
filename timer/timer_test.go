package timer_test

import (
	"errors"
	"testing"

	"github.com/drake/chime/clock"
	"github.com/drake/chime/sched"
	"github.com/drake/chime/timer"
)

// harness bundles the fake clock, scheduler, and a counting handler.
type harness struct {
	clk   *clock.Fake
	sch   *sched.Scheduler
	fires int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := clock.NewFake(0)
	return &harness{
		clk: clk,
		sch: sched.New(clk),
	}
}

func (h *harness) handler() timer.Handler {
	return timer.HandlerFunc(func() { h.fires++ })
}

// step advances the clock and runs one dispatch pass.
func (h *harness) step(d float64) int {
	h.clk.Advance(d)
	return h.sch.Dispatch()
}

func TestDurationReadBack(t *testing.T) {
	h := newHarness(t)

	for _, d := range []int64{0, 1, 5, 3600} {
		tm := timer.New(h.clk, h.sch)
		if err := tm.SetInt(timer.KeySeconds, d); err != nil {
			t.Fatalf("SetInt(seconds, %d): %v", d, err)
		}
		got, err := tm.GetInt(timer.KeySeconds)
		if err != nil {
			t.Fatalf("GetInt(seconds): %v", err)
		}
		if got != d {
			t.Errorf("seconds read-back: got %d, want %d", got, d)
		}
	}
}

func TestSecondsThenMicroseconds(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)

	if err := tm.SetInt(timer.KeySeconds, 2); err != nil {
		t.Fatal(err)
	}
	if err := tm.SetInt(timer.KeyMicroseconds, 500000); err != nil {
		t.Fatal(err)
	}

	got, err := tm.GetFloat(timer.KeyDuration)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2.5 {
		t.Errorf("duration: got %v, want 2.5", got)
	}

	sec, _ := tm.GetInt(timer.KeySeconds)
	usec, _ := tm.GetInt(timer.KeyMicroseconds)
	if sec != 2 || usec != 500000 {
		t.Errorf("split read: got %d s %d us, want 2 s 500000 us", sec, usec)
	}
}

// Writing microseconds before seconds is documented caller error: the
// later seconds write overwrites the accumulated fraction. Pinned so the
// behavior stays stable.
func TestMicrosecondsBeforeSecondsOverwrites(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)

	if err := tm.SetInt(timer.KeyMicroseconds, 500000); err != nil {
		t.Fatal(err)
	}
	if err := tm.SetInt(timer.KeySeconds, 2); err != nil {
		t.Fatal(err)
	}

	got, _ := tm.GetFloat(timer.KeyDuration)
	if got != 2.0 {
		t.Errorf("duration: got %v, want 2.0 (seconds write overwrites)", got)
	}
}

func TestAbsoluteTimeReadAfterArming(t *testing.T) {
	h := newHarness(t)
	h.clk.Set(100)

	tm := timer.New(h.clk, h.sch)
	tm.SetInt(timer.KeySeconds, 2)
	tm.SetInt(timer.KeyMicroseconds, 500000)
	tm.SetInt(timer.KeyRunning, 1)

	sec, _ := tm.GetInt(timer.KeySeconds)
	usec, _ := tm.GetInt(timer.KeyMicroseconds)
	if sec != 102 || usec != 500000 {
		t.Errorf("absolute read: got %d s %d us, want 102 s 500000 us", sec, usec)
	}
}

func TestOneShotFiresOnce(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)
	tm.SetInt(timer.KeySeconds, 1)
	tm.SetHandler(timer.KeyHandler, h.handler())
	tm.SetInt(timer.KeyRunning, 1)

	if h.sch.Pending() != 1 {
		t.Fatalf("pending after arm: got %d, want 1", h.sch.Pending())
	}
	if h.fires != 0 {
		t.Fatal("arming must not fire the handler synchronously")
	}

	h.step(1)
	if h.fires != 1 {
		t.Errorf("fires: got %d, want 1", h.fires)
	}
	if h.sch.Pending() != 0 {
		t.Errorf("one-shot left %d alarms pending", h.sch.Pending())
	}

	// Nothing further happens on later passes.
	h.step(10)
	if h.fires != 1 {
		t.Errorf("fires after extra pass: got %d, want 1", h.fires)
	}
}

func TestRepeatThreeFiresFourTimes(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)
	tm.SetInt(timer.KeySeconds, 1)
	tm.SetInt(timer.KeyInterval, 1)
	tm.SetInt(timer.KeyRepeat, 3)
	tm.SetHandler(timer.KeyHandler, h.handler())
	tm.SetInt(timer.KeyRunning, 1)

	for i := 0; i < 6; i++ {
		h.step(1)
	}

	if h.fires != 4 {
		t.Errorf("fires: got %d, want 4 (1 initial + 3 repeats)", h.fires)
	}
	if h.sch.Pending() != 0 {
		t.Errorf("finished repeater left %d alarms pending", h.sch.Pending())
	}
}

func TestRepeatForever(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)
	tm.SetInt(timer.KeySeconds, 1)
	tm.SetInt(timer.KeyInterval, 1)
	tm.SetInt(timer.KeyRepeat, -1)
	tm.SetHandler(timer.KeyHandler, h.handler())
	tm.SetInt(timer.KeyRunning, 1)

	for i := 0; i < 10; i++ {
		h.step(1)
	}

	if h.fires != 10 {
		t.Errorf("fires: got %d, want 10", h.fires)
	}
	if h.sch.Pending() != 1 {
		t.Errorf("infinite repeater should keep 1 alarm pending, got %d", h.sch.Pending())
	}
}

// Negative repeat counts other than -1 also mean forever: only strictly
// positive counts decrement.
func TestNegativeRepeatMeansForever(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)
	tm.SetInt(timer.KeySeconds, 1)
	tm.SetInt(timer.KeyInterval, 1)
	tm.SetInt(timer.KeyRepeat, -5)
	tm.SetHandler(timer.KeyHandler, h.handler())
	tm.SetInt(timer.KeyRunning, 1)

	for i := 0; i < 5; i++ {
		h.step(1)
	}
	if h.fires != 5 || h.sch.Pending() != 1 {
		t.Errorf("got %d fires, %d pending; want 5 fires, 1 pending", h.fires, h.sch.Pending())
	}
}

func TestLazyCancellation(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)
	tm.SetInt(timer.KeySeconds, 1)
	tm.SetInt(timer.KeyRepeat, -1)
	tm.SetHandler(timer.KeyHandler, h.handler())
	tm.SetInt(timer.KeyRunning, 1)

	// Cancel before the alarm dispatches. The alarm is not retracted.
	tm.SetInt(timer.KeyRunning, 0)
	if h.sch.Pending() != 1 {
		t.Fatalf("cancellation retracted the alarm: pending %d", h.sch.Pending())
	}

	// The dispatch still happens but produces no observable effect.
	if n := h.step(1); n != 1 {
		t.Fatalf("dispatched %d alarms, want 1", n)
	}
	if h.fires != 0 {
		t.Errorf("cancelled timer fired %d times", h.fires)
	}
	if h.sch.Pending() != 0 {
		t.Errorf("cancelled timer rearmed: pending %d", h.sch.Pending())
	}
}

func TestClone(t *testing.T) {
	h := newHarness(t)
	h.clk.Set(50)

	handler := h.handler()
	tm := timer.New(h.clk, h.sch)
	tm.SetInt(timer.KeySeconds, 2)
	tm.SetInt(timer.KeyInterval, 3)
	tm.SetInt(timer.KeyRepeat, 4)
	tm.SetHandler(timer.KeyHandler, handler)
	tm.SetInt(timer.KeyRunning, 1)
	h.step(2) // fire once; repeat decrements to 3

	cl := tm.Clone()

	if cl.Started() {
		t.Error("clone must be unarmed")
	}
	if d, _ := cl.GetFloat(timer.KeyDuration); d != 2 {
		t.Errorf("clone absolute read: got %v, want 2 (birthtime reset)", d)
	}
	if iv, _ := cl.GetFloat(timer.KeyInterval); iv != 3 {
		t.Errorf("clone interval: got %v, want 3", iv)
	}
	if r, _ := cl.GetInt(timer.KeyRepeat); r != 3 {
		t.Errorf("clone repeat: got %d, want source value at clone time (3)", r)
	}
	if cl.Handler() == nil {
		t.Error("clone lost the handler")
	}

	// The clone arms independently of the source.
	cl.SetInt(timer.KeyRunning, 1)
	if h.sch.Pending() == 0 {
		t.Error("clone failed to arm")
	}
}

func TestRunningAlwaysReadsFalse(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)
	tm.SetInt(timer.KeySeconds, 1)

	if v, err := tm.GetInt(timer.KeyRunning); err != nil || v != 0 {
		t.Errorf("idle running read: got %d, %v; want 0, nil", v, err)
	}

	tm.SetInt(timer.KeyRunning, 1)
	if v, _ := tm.GetInt(timer.KeyRunning); v != 0 {
		t.Errorf("armed running read: got %d, want 0", v)
	}
	if f, _ := tm.GetFloat(timer.KeyRunning); f != 0 {
		t.Errorf("armed running float read: got %v, want 0", f)
	}
}

func TestUnrecognizedKeys(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)
	bogus := timer.Key(99)

	var invOp *timer.InvalidOperationError

	if err := tm.SetInt(bogus, 1); !errors.As(err, &invOp) {
		t.Errorf("SetInt(bogus): got %v, want InvalidOperationError", err)
	}
	if err := tm.SetFloat(bogus, 1); !errors.As(err, &invOp) {
		t.Errorf("SetFloat(bogus): got %v, want InvalidOperationError", err)
	}
	if _, err := tm.GetInt(bogus); !errors.As(err, &invOp) {
		t.Errorf("GetInt(bogus): got %v, want InvalidOperationError", err)
	}
	if _, err := tm.GetFloat(bogus); !errors.As(err, &invOp) {
		t.Errorf("GetFloat(bogus): got %v, want InvalidOperationError", err)
	}

	// The handler path is silent by contract.
	tm.SetHandler(bogus, h.handler())
	if tm.Handler() != nil {
		t.Error("SetHandler(bogus) stored a handler")
	}
	if tm.HandlerAt(bogus) != nil {
		t.Error("HandlerAt(bogus) returned a handler")
	}
}

func TestMissingHandlerIsSkipped(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)
	tm.SetInt(timer.KeySeconds, 1)
	tm.SetInt(timer.KeyRunning, 1)

	if n := h.step(1); n != 1 {
		t.Fatalf("dispatched %d alarms, want 1", n)
	}
	// No panic, no error path: the fire transition simply skipped the
	// absent handler.
}

// A dormant timer (finite repeats exhausted, running still true) hits
// the fire transition again on a truthy running write: the handler runs
// synchronously once and nothing is rescheduled.
func TestDormantRunningWriteFiresSynchronously(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)
	tm.SetInt(timer.KeySeconds, 1)
	tm.SetHandler(timer.KeyHandler, h.handler())
	tm.SetInt(timer.KeyRunning, 1)
	h.step(1)

	if h.fires != 1 || h.sch.Pending() != 0 {
		t.Fatalf("setup: %d fires, %d pending", h.fires, h.sch.Pending())
	}

	tm.SetInt(timer.KeyRunning, 1)
	if h.fires != 2 {
		t.Errorf("fires: got %d, want 2 (synchronous fire)", h.fires)
	}
	if h.sch.Pending() != 0 {
		t.Errorf("dormant one-shot rescheduled: pending %d", h.sch.Pending())
	}
}

func TestBulkConstruction(t *testing.T) {
	h := newHarness(t)

	tm, err := timer.NewConfigured(h.clk, h.sch,
		timer.Pair{Key: timer.KeySeconds, Value: int64(2)},
		timer.Pair{Key: timer.KeyMicroseconds, Value: int64(250000)},
		timer.Pair{Key: timer.KeyRepeat, Value: int64(1)},
		timer.Pair{Key: timer.KeyHandler, Value: h.handler()},
		timer.Pair{Key: timer.KeyRunning, Value: int64(1)},
	)
	if err != nil {
		t.Fatal(err)
	}

	if !tm.Started() {
		t.Error("trailing running pair must arm the timer")
	}
	if h.sch.Pending() != 1 {
		t.Errorf("pending: got %d, want 1", h.sch.Pending())
	}
	if d, _ := tm.GetFloat(timer.KeyDuration); d != 2.25 {
		t.Errorf("absolute read: got %v, want 2.25", d)
	}
}

func TestBulkConstructionBadKey(t *testing.T) {
	h := newHarness(t)

	_, err := timer.NewConfigured(h.clk, h.sch,
		timer.Pair{Key: timer.Key(42), Value: int64(1)},
	)
	var invOp *timer.InvalidOperationError
	if !errors.As(err, &invOp) {
		t.Errorf("got %v, want InvalidOperationError", err)
	}
}

func TestMarkReportsHandlerUnconditionally(t *testing.T) {
	h := newHarness(t)
	tm := timer.New(h.clk, h.sch)
	tm.SetHandler(timer.KeyHandler, h.handler())

	marks := 0
	visit := func(timer.Handler) { marks++ }

	tm.Mark(visit) // idle
	tm.SetInt(timer.KeySeconds, 1)
	tm.SetInt(timer.KeyRunning, 1)
	tm.Mark(visit) // armed
	h.step(1)
	tm.Mark(visit) // dormant
	tm.SetInt(timer.KeyRunning, 0)
	tm.Mark(visit) // cancelled

	if marks != 4 {
		t.Errorf("marks: got %d, want 4", marks)
	}
}

func TestEndToEnd(t *testing.T) {
	h := newHarness(t)

	tm, err := timer.NewConfigured(h.clk, h.sch,
		timer.Pair{Key: timer.KeyDuration, Value: 0.01},
		timer.Pair{Key: timer.KeyInterval, Value: 0.02},
		timer.Pair{Key: timer.KeyRepeat, Value: int64(1)},
		timer.Pair{Key: timer.KeyHandler, Value: h.handler()},
		timer.Pair{Key: timer.KeyRunning, Value: int64(1)},
	)
	if err != nil {
		t.Fatal(err)
	}
	_ = tm

	h.step(0.015) // past the 0.01 target
	h.step(0.03)  // past the repeat target

	if h.fires != 2 {
		t.Errorf("fires: got %d, want 2", h.fires)
	}
	if h.sch.Pending() != 0 {
		t.Errorf("pending: got %d, want 0", h.sch.Pending())
	}
}

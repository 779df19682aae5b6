package timer

import "github.com/drake/chime/sched"

// task binds a timer into the scheduler's dispatch protocol. A new task
// is created for every arming, initial or repeat, and never reused; it
// holds the strong reference that keeps the timer (and through it the
// handler) alive while the wake-up is pending.
type task struct {
	timer *Timer
}

func newTask(t *Timer) sched.Task {
	return &task{timer: t}
}

// Run forwards scheduler dispatch into the timer's fire transition.
func (tk *task) Run() sched.Action {
	return tk.timer.Invoke()
}

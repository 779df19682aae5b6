package sched

// Task is the dispatch callback bound into an alarm. The scheduler runs
// it exactly once when the alarm comes due, then discards the alarm.
type Task interface {
	Run() Action
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func() Action

func (f TaskFunc) Run() Action { return f() }

type actionKind int

const (
	actionNone actionKind = iota
	actionEnqueue
)

// Action is the scheduling request a task returns from Run. It is plain
// data: the runloop interprets it rather than the task reaching into the
// scheduler directly.
type Action struct {
	kind     actionKind
	fireTime float64
	task     Task
}

// None requests no further scheduling.
func None() Action {
	return Action{kind: actionNone}
}

// Enqueue requests a wake-up for task at the absolute time fireTime.
func Enqueue(fireTime float64, task Task) Action {
	return Action{kind: actionEnqueue, fireTime: fireTime, task: task}
}

// IsNone reports whether the action requests nothing.
func (a Action) IsNone() bool {
	return a.kind == actionNone
}

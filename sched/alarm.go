package sched

// Alarm is a pending wake-up: an absolute fire time paired with the task
// to run. Alarms are created per enqueue and consumed on dispatch; they
// are never reused.
type Alarm struct {
	fireTime float64
	seq      uint64 // creation order, breaks fire-time ties FIFO
	task     Task
	index    int // heap bookkeeping
}

// FireTime returns the absolute time the alarm is due.
func (a *Alarm) FireTime() float64 {
	return a.fireTime
}

type alarmHeap []*Alarm

func (h alarmHeap) Len() int { return len(h) }

func (h alarmHeap) Less(i, j int) bool {
	if h[i].fireTime != h[j].fireTime {
		return h[i].fireTime < h[j].fireTime
	}
	return h[i].seq < h[j].seq
}

func (h alarmHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *alarmHeap) Push(x any) {
	a := x.(*Alarm)
	a.index = len(*h)
	*h = append(*h, a)
}

func (h *alarmHeap) Pop() any {
	old := *h
	n := len(old)
	a := old[n-1]
	old[n-1] = nil // avoid memory leak
	*h = old[:n-1]
	return a
}

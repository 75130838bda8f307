// Package calendar implements the virtual-time event queue the engine
// runs on. It is a direct generalization of the teacher's eventlist: a
// container/heap priority queue ordered by event time, with insertion
// sequence as the tie-break so that two events scheduled for the same
// instant fire in the order they were scheduled.
package calendar

import "container/heap"

type entry struct {
	time float64
	seq  uint64
	fn   func()
}

type queue []*entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) {
	*q = append(*q, x.(*entry))
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Calendar is a single-threaded discrete-event scheduler. Nothing here
// supports cancellation mid-run; a scheduled thunk always fires once the
// queue reaches its time, unless the whole calendar is aborted.
type Calendar struct {
	q   queue
	now float64
	seq uint64
}

// New returns an empty calendar with simulation time at 0.
func New() *Calendar {
	c := &Calendar{}
	heap.Init(&c.q)
	return c
}

// SimTime returns the time of the event currently being serviced, or the
// time of the last serviced event once the queue drains.
func (c *Calendar) SimTime() float64 { return c.now }

// Pending reports how many events are still queued.
func (c *Calendar) Pending() int { return c.q.Len() }

// Schedule enqueues fn to run when simulation time reaches t. t must be
// >= the time of whatever event is currently running; the calendar does
// not reorder past the current instant.
func (c *Calendar) Schedule(t float64, fn func()) {
	c.seq++
	heap.Push(&c.q, &entry{time: t, seq: c.seq, fn: fn})
}

// ServiceQueue pops events in (time, insertion-order) order and runs
// them until the queue is empty or Abort is called from within a thunk.
func (c *Calendar) ServiceQueue() {
	for c.q.Len() > 0 {
		e := heap.Pop(&c.q).(*entry)
		c.now = e.time
		e.fn()
	}
}

// Abort discards every pending event, causing ServiceQueue to return
// after the currently running thunk. Used to unwind a run immediately on
// a fatal condition (e.g. a miner running out of transactions to mine)
// without processing any further scheduled events.
func (c *Calendar) Abort() {
	c.q = c.q[:0]
}

// sim/simulator.go
package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Time is virtual time in hours. It never moves backwards during a run.
type Time float64

// eventEntry wraps an Event with its due time and a sequence ID for deterministic
// FIFO tie-breaking when due times are equal.
type eventEntry struct {
	due   Time
	seqID int64
	event Event
}

// EventQueue is a min-heap ordered by (due, seqID).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue []eventEntry

func (eq EventQueue) Len() int { return len(eq) }

func (eq EventQueue) Less(i, j int) bool {
	if eq[i].due != eq[j].due {
		return eq[i].due < eq[j].due
	}
	return eq[i].seqID < eq[j].seqID
}

func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(eventEntry))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	old[n-1] = eventEntry{}
	*eq = old[0 : n-1]
	return item
}

// Simulator is the core object that holds virtual time, the event queue and
// the processes it resumes.
type Simulator struct {
	clock Time
	queue EventQueue
	// nextSeq is assigned to every scheduled event; never reused.
	nextSeq int64
	// executed counts events consumed by Run.
	executed int64

	processes []*Process
	byID      map[string]*Process
}

// NewSimulator returns a simulator at virtual time zero with an empty queue.
func NewSimulator() *Simulator {
	return &Simulator{
		queue: make(EventQueue, 0),
		byID:  make(map[string]*Process),
	}
}

// Now returns the current virtual time.
func (s *Simulator) Now() Time {
	return s.clock
}

// Pending returns the number of events waiting in the queue.
func (s *Simulator) Pending() int {
	return len(s.queue)
}

// Executed returns the number of events consumed so far.
func (s *Simulator) Executed() int64 {
	return s.executed
}

// Peek returns the handle of the next event without consuming it.
func (s *Simulator) Peek() (Handle, bool) {
	if len(s.queue) == 0 {
		return Handle{}, false
	}
	return Handle{Due: s.queue[0].due, SeqID: s.queue[0].seqID}, true
}

// ScheduleAfter pushes ev to fire at Now()+delay. Scheduling from inside an
// executing event is allowed; the new entry goes into the same queue.
// A negative or NaN delay fails with ErrInvalidDelay.
func (s *Simulator) ScheduleAfter(delay Time, ev Event) (Handle, error) {
	if delay < 0 || math.IsNaN(float64(delay)) {
		return Handle{}, fmt.Errorf("schedule %T at %.4fh with delay %v: %w", ev, float64(s.clock), float64(delay), ErrInvalidDelay)
	}
	s.nextSeq++
	entry := eventEntry{due: s.clock + delay, seqID: s.nextSeq, event: ev}
	heap.Push(&s.queue, entry)
	return Handle{Due: entry.due, SeqID: entry.seqID}, nil
}

// Run consumes events in (due, seqID) order until the next event is due after
// until or the queue drains. Events beyond the horizon stay in the queue and are
// never delivered. On return the clock reads until (if the horizon was reached)
// so that utilization can be computed over the full horizon.
//
// The first error returned by an event aborts the run.
func (s *Simulator) Run(until Time) error {
	for len(s.queue) > 0 {
		if s.queue[0].due > until {
			break
		}
		entry := heap.Pop(&s.queue).(eventEntry)
		s.clock = entry.due
		s.executed++
		logrus.Debugf("[t %9.4fh] Executing %T (#%d)", float64(s.clock), entry.event, entry.seqID)
		if err := entry.event.Execute(s); err != nil {
			return err
		}
	}
	if !math.IsInf(float64(until), 1) && until > s.clock {
		s.clock = until
	}
	logrus.Debugf("[t %9.4fh] Simulation ended, %d events pending beyond horizon", float64(s.clock), len(s.queue))
	return nil
}

// Spawn registers a process and schedules its first step at the current time.
// Processes spawned at the same instant start in spawn order.
func (s *Simulator) Spawn(id string, logic Logic, daemon bool) (*Process, error) {
	if _, dup := s.byID[id]; dup {
		return nil, fmt.Errorf("spawn %q: duplicate process id", id)
	}
	p := &Process{
		id:     id,
		daemon: daemon,
		logic:  logic,
		sim:    s,
		grants: make(map[string]*holding),
		state:  Suspension{Kind: Runnable, Since: s.clock},
	}
	if _, err := s.ScheduleAfter(0, &resumeEvent{proc: p}); err != nil {
		return nil, err
	}
	s.processes = append(s.processes, p)
	s.byID[id] = p
	return p, nil
}

// Processes returns all spawned processes in spawn order.
func (s *Simulator) Processes() []*Process {
	return s.processes
}

// Process returns the process with the given id, or nil.
func (s *Simulator) Process(id string) *Process {
	return s.byID[id]
}

// Stall describes a process that did not reach a terminal step by the end of a run.
type Stall struct {
	Process string
	State   Suspension
}

func (st Stall) String() string {
	return fmt.Sprintf("%s: %s", st.Process, st.State)
}

// Stalled lists the processes left in an indefinite wait: every non-daemon
// process that has not terminated, plus every daemon that was suspended in the
// middle of a work item. Daemons idling at their polling point are not stalls.
func (s *Simulator) Stalled() []Stall {
	var out []Stall
	for _, p := range s.processes {
		if p.state.Kind == Terminated {
			continue
		}
		if p.daemon && !p.working {
			continue
		}
		out = append(out, Stall{Process: p.id, State: p.state})
	}
	return out
}

package sim

import "fmt"

// Event defines the interface for all simulation events.
// The due time is owned by the queue entry, not the event, so the same
// event type can be scheduled at any delay.
type Event interface {
	Execute(*Simulator) error
}

// Handle identifies a scheduled event. SeqID is the FIFO tie-breaker among
// events due at the same virtual time.
type Handle struct {
	Due   Time
	SeqID int64
}

func (h Handle) String() string {
	return fmt.Sprintf("event #%d due %.4fh", h.SeqID, float64(h.Due))
}

// resumeEvent resumes a suspended process. It is the only event the process
// model schedules: timers, resource grants and queue deliveries all resolve
// to one of these.
type resumeEvent struct {
	proc *Process
}

// Execute marks the process runnable and advances it to its next suspension point.
func (e *resumeEvent) Execute(s *Simulator) error {
	return e.proc.resume()
}

// FuncEvent adapts a plain function to the Event interface. Used by tests and
// by callers that need a one-off callback at a given virtual time.
type FuncEvent func(*Simulator) error

// Execute calls f.
func (f FuncEvent) Execute(s *Simulator) error {
	return f(s)
}

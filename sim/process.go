package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// SuspensionKind is the tag of a process's current resumption point.
type SuspensionKind int

const (
	// Runnable: scheduled to step at the current instant.
	Runnable SuspensionKind = iota
	// WaitingOnTimer: resumes when its timer event is popped.
	WaitingOnTimer
	// WaitingOnResource: queued on a Pool, resumes when granted.
	WaitingOnResource
	// WaitingOnQueue: blocked on a Store, resumes when an item is delivered.
	WaitingOnQueue
	// Terminated: the process reached its terminal step.
	Terminated
)

func (k SuspensionKind) String() string {
	switch k {
	case Runnable:
		return "Runnable"
	case WaitingOnTimer:
		return "WaitingOnTimer"
	case WaitingOnResource:
		return "WaitingOnResource"
	case WaitingOnQueue:
		return "WaitingOnQueue"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Suspension is where a process currently sits. Only the field matching Kind is set.
type Suspension struct {
	Kind  SuspensionKind
	Due   Time   // WaitingOnTimer
	Pool  string // WaitingOnResource
	Queue string // WaitingOnQueue
	Since Time   // when the process entered this state
}

func (s Suspension) String() string {
	switch s.Kind {
	case WaitingOnTimer:
		return fmt.Sprintf("WaitingOnTimer(due=%.4fh)", float64(s.Due))
	case WaitingOnResource:
		return fmt.Sprintf("WaitingOnResource(%s, since=%.4fh)", s.Pool, float64(s.Since))
	case WaitingOnQueue:
		return fmt.Sprintf("WaitingOnQueue(%s, since=%.4fh)", s.Queue, float64(s.Since))
	default:
		return s.Kind.String()
	}
}

// Yield names the suspension point a Logic wants to enter after a step.
// Build one with Timeout, Acquire, AcquireWithPriority, Take or Exit.
type Yield struct {
	kind     SuspensionKind
	delay    Time
	pool     *Pool
	store    *Store
	priority int
}

// Timeout suspends the process for d hours of virtual time.
func Timeout(d Time) Yield {
	return Yield{kind: WaitingOnTimer, delay: d}
}

// Acquire suspends the process until pool grants it a unit.
// If a unit is free and nobody is queued, the grant is immediate and the
// process steps again at the same instant.
func Acquire(pool *Pool) Yield {
	return Yield{kind: WaitingOnResource, pool: pool}
}

// AcquireWithPriority is Acquire with a waiter priority. Higher priorities are
// queued ahead of lower ones; equal priorities stay FIFO.
func AcquireWithPriority(pool *Pool, priority int) Yield {
	return Yield{kind: WaitingOnResource, pool: pool, priority: priority}
}

// Take suspends the process until store has an item for it. The item is
// available through Process.Received on the next step.
func Take(store *Store) Yield {
	return Yield{kind: WaitingOnQueue, store: store}
}

// Exit terminates the process.
func Exit() Yield {
	return Yield{kind: Terminated}
}

// Logic is the behavior of a process. Step runs instantaneously at the current
// virtual time and returns the next suspension point. Implementations keep
// their own phase so that each Step call continues where the last one stopped.
type Logic interface {
	Step(p *Process) (Yield, error)
}

// Process is a resumable unit of logic driven by the Simulator.
type Process struct {
	id     string
	daemon bool
	logic  Logic
	sim    *Simulator

	state  Suspension
	grants map[string]*holding

	received    any
	hasReceived bool

	// working is set by the logic while it holds a work item.
	working bool
	busy    Time
	steps   int64
}

// ID returns the process identity (the role id for role processes).
func (p *Process) ID() string { return p.id }

// Daemon reports whether the process loops forever by design.
func (p *Process) Daemon() bool { return p.daemon }

// State returns the current suspension point.
func (p *Process) State() Suspension { return p.state }

// Now returns the simulator's current virtual time.
func (p *Process) Now() Time { return p.sim.Now() }

// Simulator returns the owning simulator.
func (p *Process) Simulator() *Simulator { return p.sim }

// Steps returns how many times the logic has been stepped.
func (p *Process) Steps() int64 { return p.steps }

// SetWorking marks whether the process is in the middle of a work item.
// A daemon stuck while working is reported by Simulator.Stalled.
func (p *Process) SetWorking(working bool) { p.working = working }

// Working reports whether the process is in the middle of a work item.
func (p *Process) Working() bool { return p.working }

// AddBusy accumulates busy time.
func (p *Process) AddBusy(d Time) { p.busy += d }

// BusyTime returns the accumulated busy time.
func (p *Process) BusyTime() Time { return p.busy }

// Holds reports whether the process currently holds a grant on the named pool.
func (p *Process) Holds(pool string) bool {
	_, ok := p.grants[pool]
	return ok
}

// Grant returns the grant held on the named pool, if any.
func (p *Process) Grant(pool string) (Grant, bool) {
	h, ok := p.grants[pool]
	if !ok {
		return Grant{}, false
	}
	return h.Grant, true
}

// Release returns the process's unit of pool. The next waiter, if any, is granted
// in the same instant.
func (p *Process) Release(pool *Pool) (Grant, error) {
	return pool.release(p)
}

// Received returns the item delivered by the last Take, consuming it.
func (p *Process) Received() (any, bool) {
	if !p.hasReceived {
		return nil, false
	}
	item := p.received
	p.received, p.hasReceived = nil, false
	return item, true
}

func (p *Process) deliver(item any) {
	p.received, p.hasReceived = item, true
}

// resume is called by resumeEvent.
func (p *Process) resume() error {
	if p.state.Kind == Terminated {
		return nil
	}
	p.state = Suspension{Kind: Runnable, Since: p.sim.Now()}
	return p.advance()
}

// advance steps the logic until it reaches a suspension point that actually
// suspends. Immediate grants and immediately available queue items are taken
// without leaving the current instant.
func (p *Process) advance() error {
	for {
		p.steps++
		y, err := p.logic.Step(p)
		if err != nil {
			return fmt.Errorf("process %s: %w", p.id, err)
		}
		now := p.sim.Now()
		switch y.kind {
		case WaitingOnTimer:
			h, err := p.sim.ScheduleAfter(y.delay, &resumeEvent{proc: p})
			if err != nil {
				return fmt.Errorf("process %s: %w", p.id, err)
			}
			p.state = Suspension{Kind: WaitingOnTimer, Due: h.Due, Since: now}
			return nil
		case WaitingOnResource:
			if y.pool == nil {
				return fmt.Errorf("process %s: acquire on nil pool", p.id)
			}
			granted, err := y.pool.request(p, y.priority)
			if err != nil {
				return fmt.Errorf("process %s: %w", p.id, err)
			}
			if granted {
				continue
			}
			p.state = Suspension{Kind: WaitingOnResource, Pool: y.pool.Name(), Since: now}
			return nil
		case WaitingOnQueue:
			if y.store == nil {
				return fmt.Errorf("process %s: take on nil store", p.id)
			}
			if item, ok := y.store.take(p); ok {
				p.deliver(item)
				continue
			}
			p.state = Suspension{Kind: WaitingOnQueue, Queue: y.store.Name(), Since: now}
			return nil
		case Terminated:
			p.state = Suspension{Kind: Terminated, Since: now}
			p.working = false
			return p.releaseAll()
		default:
			return fmt.Errorf("process %s: step returned no suspension point", p.id)
		}
	}
}

// releaseAll returns every unit the process still holds, in pool-name order.
// Each freed unit goes to that pool's head waiter at the current instant.
func (p *Process) releaseAll() error {
	if len(p.grants) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.grants))
	for name := range p.grants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pool := p.grants[name].pool
		if _, err := pool.release(p); err != nil {
			return fmt.Errorf("process %s: %w", p.id, err)
		}
		logrus.Debugf("[t %9.4fh] %s exited holding %s; released", float64(p.sim.Now()), p.id, name)
	}
	return nil
}

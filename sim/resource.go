package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Grant is one unit of a Pool held by a process.
type Grant struct {
	Pool        string
	Holder      string
	RequestedAt Time
	GrantedAt   Time
}

// Waited returns how long the holder queued before the grant.
func (g Grant) Waited() Time {
	return g.GrantedAt - g.RequestedAt
}

// holding is a grant together with the pool that issued it.
type holding struct {
	Grant
	pool *Pool
}

// waiter is a queued acquisition. seq preserves arrival order among equal priorities.
type waiter struct {
	proc        *Process
	requestedAt Time
	priority    int
	seq         int64
}

// Pool is a bounded-capacity shared resource. Waiters are granted strictly in
// arrival order (within a priority level); a release hands the freed unit to
// the head waiter in the same instant.
//
// Invariant: 0 <= inUse <= capacity.
type Pool struct {
	name     string
	capacity int
	inUse    int
	waiters  []waiter
	sim      *Simulator
	seq      int64

	heldTime   Time // integral of completed holds
	grants     int
	waitTime   Time
	maxWaiters int
}

// NewPool creates a pool with the given capacity. Capacity must be positive.
func NewPool(s *Simulator, name string, capacity int) (*Pool, error) {
	if capacity <= 0 {
		return nil, NewConfigError("resources."+name, "capacity must be > 0, got %d", capacity)
	}
	return &Pool{name: name, capacity: capacity, sim: s}, nil
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Capacity returns the number of units.
func (p *Pool) Capacity() int { return p.capacity }

// InUse returns the number of units currently granted.
func (p *Pool) InUse() int { return p.inUse }

// QueueLen returns the number of waiting processes.
func (p *Pool) QueueLen() int { return len(p.waiters) }

// MaxQueueLen returns the longest waiter queue observed.
func (p *Pool) MaxQueueLen() int { return p.maxWaiters }

// Grants returns the total number of grants handed out.
func (p *Pool) Grants() int { return p.grants }

// HeldTime returns the summed duration of all released grants. A grant still
// open when the run stops contributes nothing, matching the event log, which
// only records a hold on release.
func (p *Pool) HeldTime() Time { return p.heldTime }

// WaitTime returns the summed queueing delay of all grants.
func (p *Pool) WaitTime() Time { return p.waitTime }

// request grants a unit to proc if one is free and nobody is queued ahead of it,
// otherwise enqueues proc. Returns true when the grant was immediate.
func (p *Pool) request(proc *Process, priority int) (bool, error) {
	if proc.Holds(p.name) {
		return false, fmt.Errorf("pool %s: %w by %s", p.name, ErrAlreadyHeld, proc.ID())
	}
	now := p.sim.Now()
	if p.inUse < p.capacity && len(p.waiters) == 0 {
		p.grant(proc, now, now)
		return true, nil
	}
	p.seq++
	w := waiter{proc: proc, requestedAt: now, priority: priority, seq: p.seq}
	// Insert after every waiter with priority >= w.priority.
	i := len(p.waiters)
	for i > 0 && p.waiters[i-1].priority < w.priority {
		i--
	}
	p.waiters = append(p.waiters, waiter{})
	copy(p.waiters[i+1:], p.waiters[i:])
	p.waiters[i] = w
	if len(p.waiters) > p.maxWaiters {
		p.maxWaiters = len(p.waiters)
	}
	logrus.Debugf("[t %9.4fh] %s queued on %s (position %d)", float64(now), proc.ID(), p.name, i+1)
	return false, nil
}

func (p *Pool) grant(proc *Process, requestedAt, now Time) {
	p.inUse++
	p.grants++
	p.waitTime += now - requestedAt
	proc.grants[p.name] = &holding{
		Grant: Grant{Pool: p.name, Holder: proc.ID(), RequestedAt: requestedAt, GrantedAt: now},
		pool:  p,
	}
}

// release returns proc's unit and hands it to the head waiter, whose resumption
// is scheduled at the current instant.
func (p *Pool) release(proc *Process) (Grant, error) {
	h, ok := proc.grants[p.name]
	if !ok {
		return Grant{}, fmt.Errorf("pool %s: %w by %s", p.name, ErrNotHeld, proc.ID())
	}
	delete(proc.grants, p.name)
	g := h.Grant
	now := p.sim.Now()
	p.inUse--
	p.heldTime += now - g.GrantedAt

	if len(p.waiters) > 0 && p.inUse < p.capacity {
		next := p.waiters[0]
		p.waiters[0] = waiter{}
		p.waiters = p.waiters[1:]
		p.grant(next.proc, next.requestedAt, now)
		if _, err := p.sim.ScheduleAfter(0, &resumeEvent{proc: next.proc}); err != nil {
			return g, err
		}
	}
	return g, nil
}

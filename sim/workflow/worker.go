package workflow

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/bee-swarm/swarm-sim/sim"
	"github.com/bee-swarm/swarm-sim/sim/domain"
	"github.com/bee-swarm/swarm-sim/sim/eventlog"
)

// Role is one duty a team member performs. A member's process hosts one or
// more roles and hands every inbox item to the first role that accepts it.
type Role interface {
	// TryStart accepts item and prepares its plan. It returns false when the
	// item is not this role's work.
	TryStart(item any) bool
	// Step advances the accepted item to its next suspension point. done
	// reports that the item is finished and the returned Yield is unused.
	Step() (y sim.Yield, done bool, err error)
	// Describe summarizes what the role has done so far.
	Describe() string
}

type workerPhase int

const (
	phaseDispatch workerPhase = iota
	phaseDefaultTask
	phaseIdle
)

// worker is the process logic of one team member (or one reviewer seat). It
// loops forever: take the next inbox item, otherwise run a background task and
// poll again, otherwise block on the inbox.
type worker struct {
	d     *Driver
	id    string
	spec  RoleSpec
	proc  *sim.Process
	rng   *rand.Rand
	inbox *sim.Store
	roles []Role

	active      Role
	phase       workerPhase
	defaultTask string
	defaultDur  sim.Time
	itemsDone   int
}

func newWorker(d *Driver, id string, spec RoleSpec, inbox *sim.Store) *worker {
	return &worker{
		d:     d,
		id:    id,
		spec:  spec,
		rng:   d.rng.ForSubsystem(sim.SubsystemProcess(id)),
		inbox: inbox,
	}
}

// Step implements sim.Logic.
func (w *worker) Step(p *sim.Process) (sim.Yield, error) {
	for {
		if w.active != nil {
			y, done, err := w.active.Step()
			if err != nil {
				return sim.Yield{}, err
			}
			if !done {
				return y, nil
			}
			w.active = nil
			w.itemsDone++
			p.SetWorking(false)
			continue
		}

		switch w.phase {
		case phaseDefaultTask:
			p.AddBusy(w.defaultDur)
			w.record(eventlog.DefaultTaskCompleted, "", fmt.Sprintf("%s finished background task: %s", w.id, w.defaultTask), &w.defaultDur)
			w.phase = phaseIdle
			return sim.Timeout(w.sample(StepIdlePoll)), nil
		case phaseIdle:
			w.phase = phaseDispatch
		}

		item, ok := p.Received()
		if !ok {
			item, ok = w.inbox.TryTake()
		}
		if ok {
			if err := w.start(item); err != nil {
				return sim.Yield{}, err
			}
			p.SetWorking(true)
			continue
		}
		if len(w.spec.DefaultTasks) > 0 {
			w.defaultTask = w.spec.DefaultTasks[w.rng.Intn(len(w.spec.DefaultTasks))]
			w.defaultDur = w.sample(StepDefaultTask)
			w.phase = phaseDefaultTask
			return sim.Timeout(w.defaultDur), nil
		}
		return sim.Take(w.inbox), nil
	}
}

func (w *worker) start(item any) error {
	for _, r := range w.roles {
		if r.TryStart(item) {
			w.active = r
			return nil
		}
	}
	return fmt.Errorf("%s: no duty accepts %T", w.id, item)
}

// describe joins the summaries of all hosted roles.
func (w *worker) describe() string {
	parts := make([]string, 0, len(w.roles))
	for _, r := range w.roles {
		parts = append(parts, r.Describe())
	}
	return strings.Join(parts, "; ")
}

func (w *worker) sample(stepName string) sim.Time {
	return sim.Time(w.d.samplers[stepName].Sample(w.rng))
}

func (w *worker) record(kind eventlog.Kind, entity, desc string, dur *sim.Time, resources ...string) {
	w.d.record(w.id, kind, entity, desc, dur, resources...)
}

// timed suspends for a sample of stepName and then records kind with that
// duration as busy time.
func (w *worker) timed(stepName string, kind eventlog.Kind, entity, desc string, resources ...string) step {
	var d sim.Time
	return step{
		begin: func() (sim.Yield, error) {
			d = w.sample(stepName)
			return sim.Timeout(d), nil
		},
		end: func() error {
			w.proc.AddBusy(d)
			w.record(kind, entity, desc, &d, resources...)
			return nil
		},
	}
}

func (w *worker) acquire(pool string) step {
	return step{begin: func() (sim.Yield, error) {
		return sim.AcquireWithPriority(w.d.pools[pool], w.spec.Priority), nil
	}}
}

func (w *worker) release(pool string) step {
	return act(func() error {
		g, err := w.proc.Release(w.d.pools[pool])
		if err != nil {
			return err
		}
		held := w.d.sim.Now() - g.GrantedAt
		w.record(eventlog.ResourceReleased, "", fmt.Sprintf("%s released %s", w.id, pool), &held, pool)
		return nil
	})
}

type commentable interface {
	AddComment(author, content string, now sim.Time)
}

// comment posts content on target through the API pool.
func (w *worker) comment(kind eventlog.Kind, target commentable, entity, content string) []step {
	var d sim.Time
	return []step{
		w.acquire(PoolGitHubAPI),
		{
			begin: func() (sim.Yield, error) {
				d = w.sample(StepComment)
				return sim.Timeout(d), nil
			},
			end: func() error {
				w.proc.AddBusy(d)
				target.AddComment(w.id, content, w.d.sim.Now())
				w.record(kind, entity, fmt.Sprintf("%s commented on %s: %s", w.id, entity, content), &d, PoolGitHubAPI)
				return nil
			},
		},
		w.release(PoolGitHubAPI),
	}
}

// Inbox items other than *domain.Issue and *domain.Task.
type (
	reviewItem struct{ pr *domain.PullRequest }
	reworkItem struct {
		task *domain.Task
		pr   *domain.PullRequest
	}
	uatItem    struct{ pr *domain.PullRequest }
	deployItem struct{ pr *domain.PullRequest }
)

func (it reviewItem) String() string { return it.pr.ID }
func (it reworkItem) String() string { return it.task.ID }
func (it uatItem) String() string    { return it.pr.ID }
func (it deployItem) String() string { return it.pr.ID }

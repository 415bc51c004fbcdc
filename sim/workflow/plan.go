package workflow

import "github.com/bee-swarm/swarm-sim/sim"

// step is one point in a work item's plan. begin (optional) returns the
// suspension to enter; end (optional) runs when the process resumes, or
// immediately when begin is nil.
type step struct {
	begin func() (sim.Yield, error)
	end   func() error
}

// plan is the remaining steps of the item a role is working on. Steps may push
// more steps to the front, which is how outcomes decided mid-item branch.
type plan struct {
	steps   []step
	pending *step
}

func (pl *plan) reset(steps ...step) {
	pl.steps = append(pl.steps[:0], steps...)
	pl.pending = nil
}

// push inserts steps ahead of the remaining ones.
func (pl *plan) push(steps ...step) {
	pl.steps = append(append(make([]step, 0, len(steps)+len(pl.steps)), steps...), pl.steps...)
}

// advance finishes the step that was suspended, then runs steps until one
// suspends. done reports that the plan is exhausted.
func (pl *plan) advance() (y sim.Yield, done bool, err error) {
	if pl.pending != nil {
		s := pl.pending
		pl.pending = nil
		if s.end != nil {
			if err := s.end(); err != nil {
				return sim.Yield{}, false, err
			}
		}
	}
	for len(pl.steps) > 0 {
		s := pl.steps[0]
		pl.steps = pl.steps[1:]
		if s.begin == nil {
			if s.end != nil {
				if err := s.end(); err != nil {
					return sim.Yield{}, false, err
				}
			}
			continue
		}
		y, err := s.begin()
		if err != nil {
			return sim.Yield{}, false, err
		}
		pl.pending = &s
		return y, false, nil
	}
	return sim.Yield{}, true, nil
}

// act is an instantaneous step.
func act(fn func() error) step {
	return step{end: fn}
}

// Package domain holds the work items the role processes move through their
// lifecycles: Task, Issue, PullRequest and Milestone. Every status change goes
// through a transition table; the only backward edges are the rework edges.
package domain

import (
	"fmt"

	"github.com/bee-swarm/swarm-sim/sim"
)

// TransitionError reports an edge that is not in an entity's state machine.
// The workflow treats it as a programming error and aborts the run.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: illegal transition %s -> %s", e.Entity, e.ID, e.From, e.To)
}

// checkTransition returns a TransitionError unless to is listed under from.
func checkTransition[S ~string](table map[S][]S, entity, id string, from, to S) error {
	for _, next := range table[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{Entity: entity, ID: id, From: string(from), To: string(to)}
}

// Comment is an append-only note on an Issue or PullRequest.
type Comment struct {
	Author  string   `json:"author"`
	Content string   `json:"content"`
	Time    sim.Time `json:"time"`
}

// timePtr returns a pointer to a copy of t, for optional timestamps.
func timePtr(t sim.Time) *sim.Time {
	return &t
}

// Implements the Store, a FIFO hand-off queue between processes.
// Producers Put items; consumers block on Take until an item is available.

package sim

import (
	"fmt"
	"strings"
)

// Store is an unbounded FIFO queue of items with a FIFO queue of blocked takers.
// Items are delivered to takers in the order the takers blocked.
type Store struct {
	name    string
	items   []any
	getters []*Process
	sim     *Simulator

	puts  int
	takes int
}

// NewStore creates an empty store.
func NewStore(s *Simulator, name string) *Store {
	return &Store{name: name, sim: s}
}

// Name returns the store name.
func (st *Store) Name() string { return st.name }

// Len returns the number of items waiting to be taken.
func (st *Store) Len() int { return len(st.items) }

// Waiting returns the number of processes blocked on Take.
func (st *Store) Waiting() int { return len(st.getters) }

// Puts returns how many items were ever put.
func (st *Store) Puts() int { return st.puts }

// Takes returns how many items were ever delivered.
func (st *Store) Takes() int { return st.takes }

// Put appends item. If a process is blocked on Take, the item goes straight to
// the longest-waiting one and its resumption is scheduled at the current instant.
func (st *Store) Put(item any) error {
	st.puts++
	if len(st.getters) > 0 {
		proc := st.getters[0]
		st.getters[0] = nil
		st.getters = st.getters[1:]
		proc.deliver(item)
		st.takes++
		if _, err := st.sim.ScheduleAfter(0, &resumeEvent{proc: proc}); err != nil {
			return fmt.Errorf("store %s: %w", st.name, err)
		}
		return nil
	}
	st.items = append(st.items, item)
	return nil
}

// TryTake removes and returns the head item without blocking.
func (st *Store) TryTake() (any, bool) {
	if len(st.items) == 0 {
		return nil, false
	}
	item := st.items[0]
	st.items[0] = nil
	st.items = st.items[1:]
	st.takes++
	return item, true
}

// Items returns the queued items in order, for read-only inspection.
func (st *Store) Items() []any {
	return st.items
}

// take is the blocking path used by Process.advance: it returns an item if one
// is available, otherwise registers proc as a getter.
func (st *Store) take(proc *Process) (any, bool) {
	if item, ok := st.TryTake(); ok {
		return item, true
	}
	st.getters = append(st.getters, proc)
	return nil, false
}

func (st *Store) String() string {
	var sb strings.Builder
	sb.WriteString(st.name)
	sb.WriteString("[")
	for i, val := range st.items {
		sb.WriteString(fmt.Sprint(val))
		if i < len(st.items)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Package eventlog records every state transition of a run and reduces the
// record into metrics. The log is passive: nothing in the simulation reads it
// back while the run is in progress.
package eventlog

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bee-swarm/swarm-sim/sim"
)

// Entry is one immutable log record. Duration is set for entries that close a
// timed step; Resources names the pools held during that step.
type Entry struct {
	Seq         int64    `json:"seq"`
	Time        sim.Time `json:"time"`
	Actor       string   `json:"actor"`
	Kind        Kind     `json:"kind"`
	Entity      string   `json:"entity,omitempty"`
	Description string   `json:"description"`
	Duration    *float64 `json:"duration,omitempty"`
	Resources   []string `json:"resources,omitempty"`
}

// DurationOf returns the entry's duration, or 0 if it has none.
func (e Entry) DurationOf() sim.Time {
	if e.Duration == nil {
		return 0
	}
	return sim.Time(*e.Duration)
}

func (e Entry) String() string {
	s := fmt.Sprintf("[%8.3fh] %-8s %-24s %s", float64(e.Time), e.Actor, e.Kind, e.Description)
	if e.Duration != nil {
		s += fmt.Sprintf(" (%.3fh)", *e.Duration)
	}
	return s
}

// Hours wraps a step duration for Entry.Duration.
func Hours(d sim.Time) *float64 {
	v := float64(d)
	return &v
}

// Log is an append-only sequence of entries.
type Log struct {
	entries []Entry
}

// New returns an empty log.
func New() *Log {
	return &Log{entries: make([]Entry, 0, 256)}
}

// Record appends e, stamping its sequence number, and returns the stored copy.
func (l *Log) Record(e Entry) Entry {
	e.Seq = int64(len(l.entries) + 1)
	l.entries = append(l.entries, e)
	return e
}

// Entries returns the recorded entries in order. Callers must not modify them.
func (l *Log) Entries() []Entry {
	return l.entries
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// WriteJSONL writes one JSON object per line. Two runs with the same
// configuration produce byte-identical output.
func WriteJSONL(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode entry %d: %w", e.Seq, err)
		}
	}
	return nil
}

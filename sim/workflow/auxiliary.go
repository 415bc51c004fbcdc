package workflow

import (
	"fmt"
	"math/rand"

	"github.com/bee-swarm/swarm-sim/sim"
	"github.com/bee-swarm/swarm-sim/sim/domain"
	"github.com/bee-swarm/swarm-sim/sim/eventlog"
)

// requester files issues: the first at t=0, then one per interarrival sample,
// and terminates after the last. It is not a daemon, so a requester still
// waiting when the horizon cuts the run is reported as an indefinite wait.
type requester struct {
	d     *Driver
	rng   *rand.Rand
	filed int
}

func newRequester(d *Driver) *requester {
	return &requester{d: d, rng: d.rng.ForSubsystem(sim.SubsystemRequester)}
}

// Step implements sim.Logic.
func (r *requester) Step(p *sim.Process) (sim.Yield, error) {
	limit := r.d.cfg.Issues.MaxIssues
	if r.filed >= limit {
		return sim.Exit(), nil
	}
	if err := r.d.fileIssue(); err != nil {
		return sim.Yield{}, err
	}
	r.filed++
	if r.filed >= limit {
		return sim.Exit(), nil
	}
	return sim.Timeout(sim.Time(r.d.samplers[StepIssueInterarrival].Sample(r.rng))), nil
}

type reporterPhase int

const (
	reporterWaiting reporterPhase = iota
	reporterCompiling
	reporterEmitting
)

// reporter emits one daily_report entry per role every report interval. It
// only reads work item state.
type reporter struct {
	d     *Driver
	rng   *rand.Rand
	phase reporterPhase
	day   int
}

func newReporter(d *Driver) *reporter {
	return &reporter{d: d, rng: d.rng.ForSubsystem(sim.SubsystemProcess(ReporterID))}
}

// Step implements sim.Logic.
func (r *reporter) Step(p *sim.Process) (sim.Yield, error) {
	switch r.phase {
	case reporterWaiting:
		r.phase = reporterCompiling
		return sim.Timeout(sim.Time(r.d.cfg.ReportInterval)), nil
	case reporterCompiling:
		r.phase = reporterEmitting
		return sim.Timeout(sim.Time(r.d.samplers[StepReport].Sample(r.rng))), nil
	default:
		r.day++
		for _, spec := range r.d.cfg.Roles {
			r.d.record(spec.ID, eventlog.DailyReport, "", r.summary(spec.ID), nil)
		}
		r.phase = reporterCompiling
		return sim.Timeout(sim.Time(r.d.cfg.ReportInterval)), nil
	}
}

func (r *reporter) summary(role string) string {
	c := r.d.taskCounts(role)
	s := fmt.Sprintf("report %d for %s: %d pending, %d in progress, %d in review, %d completed",
		r.day, role, c[domain.TaskPending], c[domain.TaskInProgress], c[domain.TaskInReview], c[domain.TaskCompleted])
	if w, ok := r.d.byRole[role]; ok {
		s += "; " + w.describe()
	}
	return s
}

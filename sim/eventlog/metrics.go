package eventlog

import (
	"sort"

	"github.com/bee-swarm/swarm-sim/sim"
)

// hoursPerDay converts a horizon into days for throughput.
const hoursPerDay = 24.0

// IndefiniteWait is a process left suspended when the run ended.
type IndefiniteWait struct {
	Process string   `json:"process"`
	State   string   `json:"state"`
	Since   sim.Time `json:"since"`
}

// Options carries the run context the reductions need besides the entries.
type Options struct {
	Horizon    sim.Time
	Roles      []string       // role ids, reported even when idle
	Capacities map[string]int // pool name -> capacity
}

// Metrics is the end-of-run snapshot. Ratios over an empty denominator are 0
// with the matching *Defined flag (or sample count) left false/zero.
type Metrics struct {
	Horizon     sim.Time     `json:"horizon"`
	TotalEvents int          `json:"total_events"`
	EventCounts map[Kind]int `json:"event_counts"`

	BusyTime    map[string]sim.Time `json:"busy_time"`
	Utilization map[string]float64  `json:"utilization"`

	TasksCreated          int            `json:"tasks_created"`
	TasksCompleted        int            `json:"tasks_completed"`
	TasksCompletedByRole  map[string]int `json:"tasks_completed_by_role"`
	CompletionRate        float64        `json:"completion_rate"`
	CompletionRateDefined bool           `json:"completion_rate_defined"`
	AverageCycleTime      sim.Time       `json:"average_cycle_time"`
	CycleTimeSamples      int            `json:"cycle_time_samples"`
	Throughput            float64        `json:"throughput_per_day"`

	ResourceHeldTime    map[string]sim.Time `json:"resource_held_time"`
	ResourceUtilization map[string]float64  `json:"resource_utilization"`

	ReworkCount         int `json:"rework_count"`
	Reviews             int `json:"reviews"`
	IssuesCreated       int `json:"issues_created"`
	IssuesClosed        int `json:"issues_closed"`
	PRsOpened           int `json:"prs_opened"`
	PRsMerged           int `json:"prs_merged"`
	PRsDeployed         int `json:"prs_deployed"`
	Comments            int `json:"comments"`
	MilestonesCompleted int `json:"milestones_completed"`

	IndefiniteWaits []IndefiniteWait `json:"indefinite_waits"`
}

// CountByKind counts entries per kind.
func CountByKind(entries []Entry) map[Kind]int {
	counts := make(map[Kind]int)
	for _, e := range entries {
		counts[e.Kind]++
	}
	return counts
}

// BusyTime sums step durations per actor. Resource releases carry the hold
// time, not work, and are excluded.
func BusyTime(entries []Entry) map[string]sim.Time {
	busy := make(map[string]sim.Time)
	for _, e := range entries {
		if e.Duration == nil || e.Kind == ResourceReleased {
			continue
		}
		busy[e.Actor] += e.DurationOf()
	}
	return busy
}

// Utilization returns busy/horizon for every role. A non-positive horizon
// yields 0 for all roles.
func Utilization(busy map[string]sim.Time, roles []string, horizon sim.Time) map[string]float64 {
	util := make(map[string]float64, len(roles))
	for _, r := range roles {
		if horizon <= 0 {
			util[r] = 0
			continue
		}
		util[r] = float64(busy[r] / horizon)
	}
	return util
}

// CompletionRate returns completed/created tasks. ok is false when no task was created.
func CompletionRate(entries []Entry) (rate float64, ok bool) {
	created, completed := 0, 0
	for _, e := range entries {
		switch e.Kind {
		case TaskCreated:
			created++
		case TaskCompleted:
			completed++
		}
	}
	if created == 0 {
		return 0, false
	}
	return float64(completed) / float64(created), true
}

// AverageCycleTime averages completed_at - created_at over tasks with both a
// task_created and a task_completed entry. n is the number of such tasks; with
// n == 0 the average is 0 and undefined.
func AverageCycleTime(entries []Entry) (avg sim.Time, n int) {
	created := make(map[string]sim.Time)
	var sum sim.Time
	for _, e := range entries {
		switch e.Kind {
		case TaskCreated:
			created[e.Entity] = e.Time
		case TaskCompleted:
			start, ok := created[e.Entity]
			if !ok {
				continue
			}
			sum += e.Time - start
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / sim.Time(n), n
}

// ResourceHeldTime sums hold durations per pool from resource_released entries.
// Holds still open at the horizon have no entry and are not counted.
func ResourceHeldTime(entries []Entry) map[string]sim.Time {
	held := make(map[string]sim.Time)
	for _, e := range entries {
		if e.Kind != ResourceReleased {
			continue
		}
		for _, pool := range e.Resources {
			held[pool] += e.DurationOf()
		}
	}
	return held
}

// ResourceUtilization returns held / (capacity × horizon) per pool. held counts
// completed holds only, so a unit granted before the horizon and never released
// reads as idle. The same rule applies to role busy time: a step interrupted by
// the horizon is not logged and adds nothing.
func ResourceUtilization(held map[string]sim.Time, capacities map[string]int, horizon sim.Time) map[string]float64 {
	util := make(map[string]float64, len(capacities))
	for pool, c := range capacities {
		if c <= 0 || horizon <= 0 {
			util[pool] = 0
			continue
		}
		util[pool] = float64(held[pool]) / (float64(c) * float64(horizon))
	}
	return util
}

// ReworkCount counts reviews that requested changes.
func ReworkCount(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Kind == ReviewChangesRequested {
			n++
		}
	}
	return n
}

// Throughput returns completed tasks per 24h of horizon.
func Throughput(completed int, horizon sim.Time) float64 {
	if horizon <= 0 {
		return 0
	}
	return float64(completed) / (float64(horizon) / hoursPerDay)
}

// Summarize reduces a log into Metrics. Safe for nil or empty input.
func Summarize(entries []Entry, opts Options) *Metrics {
	counts := CountByKind(entries)
	busy := BusyTime(entries)
	held := ResourceHeldTime(entries)

	m := &Metrics{
		Horizon:              opts.Horizon,
		TotalEvents:          len(entries),
		EventCounts:          counts,
		BusyTime:             busy,
		Utilization:          Utilization(busy, opts.Roles, opts.Horizon),
		TasksCreated:         counts[TaskCreated],
		TasksCompleted:       counts[TaskCompleted],
		TasksCompletedByRole: make(map[string]int),
		ResourceHeldTime:     held,
		ResourceUtilization:  ResourceUtilization(held, opts.Capacities, opts.Horizon),
		ReworkCount:          ReworkCount(entries),
		Reviews:              counts[ReviewApproved] + counts[ReviewChangesRequested] + counts[ReviewEscalated],
		IssuesCreated:        counts[IssueCreated],
		IssuesClosed:         counts[IssueClosed],
		PRsOpened:            counts[PROpened],
		PRsMerged:            counts[PRMerged],
		PRsDeployed:          counts[PRDeployed],
		Comments:             counts[CommentAdded] + counts[QuestionAsked] + counts[QuestionAnswered],
		MilestonesCompleted:  counts[MilestoneCompleted],
		IndefiniteWaits:      []IndefiniteWait{},
	}
	for _, r := range opts.Roles {
		m.TasksCompletedByRole[r] = 0
	}
	for _, e := range entries {
		if e.Kind == TaskCompleted {
			m.TasksCompletedByRole[e.Actor]++
		}
	}
	m.CompletionRate, m.CompletionRateDefined = CompletionRate(entries)
	m.AverageCycleTime, m.CycleTimeSamples = AverageCycleTime(entries)
	m.Throughput = Throughput(m.TasksCompleted, opts.Horizon)
	return m
}

// MeanUtilization averages role utilization. Returns 0 for no roles.
func (m *Metrics) MeanUtilization() float64 {
	if len(m.Utilization) == 0 {
		return 0
	}
	roles := make([]string, 0, len(m.Utilization))
	for r := range m.Utilization {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	sum := 0.0
	for _, r := range roles {
		sum += m.Utilization[r]
	}
	return sum / float64(len(roles))
}

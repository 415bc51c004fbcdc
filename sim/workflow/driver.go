// Package workflow wires the team model onto the simulation engine: it
// validates a SimulationConfig, spawns one process per role plus the requester,
// the reviewer seats and the reporter, routes pull requests through the
// configured pipeline and reduces the event log into metrics.
package workflow

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/bee-swarm/swarm-sim/sim"
	"github.com/bee-swarm/swarm-sim/sim/distribution"
	"github.com/bee-swarm/swarm-sim/sim/domain"
	"github.com/bee-swarm/swarm-sim/sim/eventlog"
)

// ErrAlreadyRun is returned when Run is called twice on the same Driver.
var ErrAlreadyRun = errors.New("driver already ran")

// PoolStats describes one resource pool at the end of a run.
type PoolStats struct {
	Name        string   `json:"name"`
	Capacity    int      `json:"capacity"`
	Grants      int      `json:"grants"`
	InUse       int      `json:"in_use"`
	MaxQueueLen int      `json:"max_queue_len"`
	HeldTime    sim.Time `json:"held_time"`
	WaitTime    sim.Time `json:"wait_time"`
}

// Result is everything a run produced.
type Result struct {
	RunID        string                `json:"run_id"`
	Seed         int64                 `json:"seed"`
	Horizon      sim.Time              `json:"horizon"`
	Metrics      *eventlog.Metrics     `json:"metrics"`
	Pools        []PoolStats           `json:"pools"`
	ProcessBusy  map[string]sim.Time   `json:"process_busy"` // Busy time counted by each role process
	Entries      []eventlog.Entry      `json:"-"`
	Tasks        []*domain.Task        `json:"tasks"`
	Issues       []*domain.Issue       `json:"issues"`
	PullRequests []*domain.PullRequest `json:"pull_requests"`
	Milestones   []*domain.Milestone   `json:"milestones"`
}

// Driver owns the simulator, the pools, the work queues and every work item.
// Processes reach shared state only through it.
type Driver struct {
	cfg   *SimulationConfig
	runID string
	ran   bool

	sim      *sim.Simulator
	rng      *sim.PartitionedRNG
	log      *eventlog.Log
	samplers map[string]distribution.Sampler

	pools       map[string]*sim.Pool
	poolNames   []string
	reviewQueue *sim.Store

	workers   []*worker
	byRole    map[string]*worker
	planners  []*worker
	releasers []*worker

	tasks      []*domain.Task
	taskByID   map[string]*domain.Task
	issues     []*domain.Issue
	issueByID  map[string]*domain.Issue
	prs        []*domain.PullRequest
	prByID     map[string]*domain.PullRequest
	milestones []*domain.Milestone

	deploys int
}

// NewDriver validates cfg and builds a ready-to-run simulation. All
// configuration problems surface here as *sim.ConfigError, before any event runs.
func NewDriver(cfg *SimulationConfig) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runID, err := RunID(cfg)
	if err != nil {
		return nil, err
	}
	d := &Driver{
		cfg:       cfg,
		runID:     runID,
		sim:       sim.NewSimulator(),
		rng:       sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)),
		log:       eventlog.New(),
		samplers:  make(map[string]distribution.Sampler, len(cfg.Durations)),
		pools:     make(map[string]*sim.Pool, len(cfg.Resources)),
		byRole:    make(map[string]*worker, len(cfg.Roles)),
		taskByID:  make(map[string]*domain.Task),
		issueByID: make(map[string]*domain.Issue),
		prByID:    make(map[string]*domain.PullRequest),
	}
	for step, spec := range cfg.Durations {
		s, err := distribution.NewSampler(spec)
		if err != nil {
			return nil, sim.NewConfigError("durations."+step, "%v", err)
		}
		d.samplers[step] = s
	}
	for name := range cfg.Resources {
		d.poolNames = append(d.poolNames, name)
	}
	sort.Strings(d.poolNames)
	for _, name := range d.poolNames {
		pool, err := sim.NewPool(d.sim, name, cfg.Resources[name])
		if err != nil {
			return nil, err
		}
		d.pools[name] = pool
	}
	d.reviewQueue = sim.NewStore(d.sim, "review_queue")

	if err := d.spawn(); err != nil {
		return nil, err
	}
	return d, nil
}

// spawn starts the processes. Spawn order is the tie-break for everything that
// happens at t=0: requester first, then roles in declaration order, then the
// reviewer seats and the reporter.
func (d *Driver) spawn() error {
	if _, err := d.sim.Spawn(RequesterID, newRequester(d), false); err != nil {
		return err
	}
	for _, spec := range d.cfg.Roles {
		w := newWorker(d, spec.ID, spec, sim.NewStore(d.sim, spec.ID+"_inbox"))
		switch spec.Kind {
		case KindPlanner:
			w.roles = []Role{&plannerRole{w: w}, &validatorRole{w: w}}
			d.planners = append(d.planners, w)
		case KindBuilder:
			w.roles = []Role{&builderRole{w: w}}
		case KindReleaser:
			w.roles = []Role{&releaserRole{w: w}, &builderRole{w: w}}
			d.releasers = append(d.releasers, w)
		}
		if err := d.start(w); err != nil {
			return err
		}
		d.byRole[spec.ID] = w
	}
	if d.cfg.HasStage(StageReview) {
		for i := 1; i <= d.cfg.Resources[PoolCodeReviewers]; i++ {
			w := newWorker(d, fmt.Sprintf("%s%d", reviewerPrefix, i), RoleSpec{}, d.reviewQueue)
			w.roles = []Role{&reviewerRole{w: w}}
			if err := d.start(w); err != nil {
				return err
			}
		}
	}
	if d.cfg.ReportInterval > 0 {
		if _, err := d.sim.Spawn(ReporterID, newReporter(d), true); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) start(w *worker) error {
	p, err := d.sim.Spawn(w.id, w, true)
	if err != nil {
		return err
	}
	w.proc = p
	d.workers = append(d.workers, w)
	return nil
}

// RunID derives a stable identifier from the configuration: equal configs get
// equal ids. A nil pipeline hashes as the full pipeline it stands for.
func RunID(cfg *SimulationConfig) (string, error) {
	norm := *cfg
	norm.PipelineStages = cfg.Stages()
	data, err := yaml.Marshal(&norm)
	if err != nil {
		return "", fmt.Errorf("encode config for run id: %w", err)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, data).String(), nil
}

// Simulator exposes the underlying engine, mainly for tests.
func (d *Driver) Simulator() *sim.Simulator { return d.sim }

// Run executes the simulation up to the horizon and reduces the log.
func (d *Driver) Run() (*Result, error) {
	if d.ran {
		return nil, ErrAlreadyRun
	}
	d.ran = true
	horizon := sim.Time(d.cfg.Horizon)
	logrus.Infof("Starting run %s: %d roles, horizon %.1fh, seed %d", d.runID, len(d.cfg.Roles), d.cfg.Horizon, d.cfg.Seed)

	if err := d.sim.Run(horizon); err != nil {
		return nil, fmt.Errorf("run %s at %.4fh: %w", d.runID, float64(d.sim.Now()), err)
	}

	entries := d.log.Entries()
	capacities := make(map[string]int, len(d.pools))
	for name, pool := range d.pools {
		capacities[name] = pool.Capacity()
	}
	metrics := eventlog.Summarize(entries, eventlog.Options{
		Horizon:    horizon,
		Roles:      d.cfg.RoleIDs(),
		Capacities: capacities,
	})
	for _, st := range d.sim.Stalled() {
		logrus.Warnf("Indefinite wait: %s", st)
		metrics.IndefiniteWaits = append(metrics.IndefiniteWaits, eventlog.IndefiniteWait{
			Process: st.Process,
			State:   st.State.String(),
			Since:   st.State.Since,
		})
	}

	res := &Result{
		RunID:        d.runID,
		Seed:         d.cfg.Seed,
		Horizon:      horizon,
		Metrics:      metrics,
		Entries:      entries,
		Tasks:        d.tasks,
		Issues:       d.issues,
		PullRequests: d.prs,
		Milestones:   d.milestones,
		ProcessBusy:  make(map[string]sim.Time, len(d.workers)),
	}
	for _, w := range d.workers {
		res.ProcessBusy[w.id] = w.proc.BusyTime()
	}
	for _, name := range d.poolNames {
		p := d.pools[name]
		res.Pools = append(res.Pools, PoolStats{
			Name:        name,
			Capacity:    p.Capacity(),
			Grants:      p.Grants(),
			InUse:       p.InUse(),
			MaxQueueLen: p.MaxQueueLen(),
			HeldTime:    p.HeldTime(),
			WaitTime:    p.WaitTime(),
		})
	}
	logrus.Infof("Finished run %s: %d events, %d/%d tasks completed, %d indefinite waits",
		d.runID, len(entries), metrics.TasksCompleted, metrics.TasksCreated, len(metrics.IndefiniteWaits))
	return res, nil
}

// Run validates cfg, runs it and returns the result.
func Run(cfg *SimulationConfig) (*Result, error) {
	d, err := NewDriver(cfg)
	if err != nil {
		return nil, err
	}
	return d.Run()
}

func (d *Driver) record(actor string, kind eventlog.Kind, entity, desc string, dur *sim.Time, resources ...string) {
	e := eventlog.Entry{
		Time:        d.sim.Now(),
		Actor:       actor,
		Kind:        kind,
		Entity:      entity,
		Description: desc,
	}
	if dur != nil {
		e.Duration = eventlog.Hours(*dur)
	}
	if len(resources) > 0 {
		e.Resources = append([]string(nil), resources...)
	}
	logrus.Debugf("%s", d.log.Record(e))
}

// === Work item bookkeeping ===

func (d *Driver) newIssue() *domain.Issue {
	n := len(d.issues) + 1
	title := fmt.Sprintf("Issue %d", n)
	if titles := d.cfg.Issues.Titles; len(titles) > 0 {
		title = titles[(n-1)%len(titles)]
	}
	issue := domain.NewIssue(fmt.Sprintf("ISSUE-%03d", n), title, RequesterID, d.sim.Now())
	d.issues = append(d.issues, issue)
	d.issueByID[issue.ID] = issue
	return issue
}

// fileIssue records a new issue, assigns it to a milestone and hands it to a
// planner, round robin.
func (d *Driver) fileIssue() error {
	issue := d.newIssue()
	d.record(RequesterID, eventlog.IssueCreated, issue.ID, fmt.Sprintf("%s filed %s: %s", RequesterID, issue.ID, issue.Title), nil)
	if size := d.cfg.MilestoneSize; size > 0 {
		var m *domain.Milestone
		if n := len(d.milestones); n > 0 && !d.milestones[n-1].Full() {
			m = d.milestones[n-1]
		} else {
			m = domain.NewMilestone(fmt.Sprintf("MS-%03d", n+1), n+1, size)
			d.milestones = append(d.milestones, m)
		}
		if err := m.Add(issue.ID); err != nil {
			return err
		}
		issue.MilestoneID = m.ID
	}
	planner := d.planners[(len(d.issues)-1)%len(d.planners)]
	return planner.inbox.Put(issue)
}

func (d *Driver) newTask(issue *domain.Issue, tpl TaskTemplate) *domain.Task {
	task := domain.NewTask(fmt.Sprintf("TASK-%03d", len(d.tasks)+1), tpl.Title, tpl.Role, issue.ID, d.sim.Now())
	d.tasks = append(d.tasks, task)
	d.taskByID[task.ID] = task
	issue.AddTask(task.ID)
	return task
}

// assign hands a task to its role's inbox.
func (d *Driver) assign(task *domain.Task) error {
	w, ok := d.byRole[task.AssignedRole]
	if !ok {
		return fmt.Errorf("task %s: no role %q", task.ID, task.AssignedRole)
	}
	return w.inbox.Put(task)
}

func (d *Driver) newPR(task *domain.Task, author string) *domain.PullRequest {
	pr := domain.NewPullRequest(fmt.Sprintf("PR-%03d", len(d.prs)+1), "Implement "+task.Title, task.ID, author, d.sim.Now())
	d.prs = append(d.prs, pr)
	d.prByID[pr.ID] = pr
	return pr
}

// === Pipeline routing ===

// mergeStage is the point at which PRs merge: end of UAT, else review
// approval, else PR open when only deploy is configured. Empty means PRs
// never merge.
func (d *Driver) mergeStage() string {
	switch {
	case d.cfg.HasStage(StageUAT):
		return StageUAT
	case d.cfg.HasStage(StageReview):
		return StageReview
	case d.cfg.HasStage(StageDeploy):
		return "open"
	default:
		return ""
	}
}

func (d *Driver) nextStage(stage string) (string, bool) {
	stages := d.cfg.Stages()
	for i, s := range stages {
		if s == stage && i+1 < len(stages) {
			return stages[i+1], true
		}
	}
	return "", false
}

// prOpened moves the task into review and sends the PR to the first stage.
// With no stages the task completes immediately.
func (d *Driver) prOpened(w *worker, task *domain.Task, pr *domain.PullRequest) error {
	stages := d.cfg.Stages()
	if len(stages) == 0 {
		return d.completeTask(task)
	}
	if err := task.SubmitForReview(pr.ID); err != nil {
		return err
	}
	d.record(w.id, eventlog.TaskInReview, task.ID, fmt.Sprintf("%s is in review as %s", task.ID, pr.ID), nil)
	if d.mergeStage() == "open" {
		if err := d.merge(w, pr); err != nil {
			return err
		}
	}
	return d.dispatch(pr, stages[0])
}

// stageDone is called when pr finishes stage.
func (d *Driver) stageDone(w *worker, pr *domain.PullRequest, stage string) error {
	if stage == d.mergeStage() {
		if err := d.merge(w, pr); err != nil {
			return err
		}
	}
	if next, ok := d.nextStage(stage); ok {
		return d.dispatch(pr, next)
	}
	return d.completeTask(d.taskByID[pr.TaskID])
}

func (d *Driver) dispatch(pr *domain.PullRequest, stage string) error {
	switch stage {
	case StageReview:
		return d.reviewQueue.Put(reviewItem{pr: pr})
	case StageUAT:
		issue := d.issueByID[d.taskByID[pr.TaskID].IssueID]
		w, ok := d.byRole[issue.AssignedTo]
		if !ok {
			return fmt.Errorf("pull request %s: issue %s has no planner", pr.ID, issue.ID)
		}
		return w.inbox.Put(uatItem{pr: pr})
	case StageDeploy:
		w := d.releasers[d.deploys%len(d.releasers)]
		d.deploys++
		return w.inbox.Put(deployItem{pr: pr})
	default:
		return fmt.Errorf("pull request %s: unknown stage %q", pr.ID, stage)
	}
}

func (d *Driver) merge(w *worker, pr *domain.PullRequest) error {
	if err := pr.Merge(d.sim.Now()); err != nil {
		return err
	}
	d.record(w.id, eventlog.PRMerged, pr.ID, fmt.Sprintf("%s merged %s", w.id, pr.ID), nil)
	return nil
}

// reviewOutcome decides the next review of pr. The rework bound wins over the
// pass probability.
func (d *Driver) reviewOutcome(pr *domain.PullRequest) eventlog.Kind {
	rc := d.cfg.Review
	if rc.MaxReworkCycles > 0 && pr.Rejections >= rc.MaxReworkCycles {
		return eventlog.ReviewEscalated
	}
	p := rc.PassProbability
	if attempt := pr.Reviews; attempt < len(rc.PassProbabilitySchedule) {
		p = rc.PassProbabilitySchedule[attempt]
	}
	if d.reviewRNG().Float64() < p {
		return eventlog.ReviewApproved
	}
	return eventlog.ReviewChangesRequested
}

func (d *Driver) reviewRNG() *rand.Rand {
	return d.rng.ForSubsystem(sim.SubsystemReviewer)
}

// requestChanges follows both rework edges and sends the task back to its author.
func (d *Driver) requestChanges(pr *domain.PullRequest) error {
	task := d.taskByID[pr.TaskID]
	if err := pr.RequestChanges(); err != nil {
		return err
	}
	if err := task.Rework(); err != nil {
		return err
	}
	w, ok := d.byRole[pr.Author]
	if !ok {
		return fmt.Errorf("pull request %s: no author %q", pr.ID, pr.Author)
	}
	return w.inbox.Put(reworkItem{task: task, pr: pr})
}

// resubmit reopens a reworked PR and queues it for review again.
func (d *Driver) resubmit(w *worker, task *domain.Task, pr *domain.PullRequest) error {
	if err := pr.Resubmit(); err != nil {
		return err
	}
	if err := task.SubmitForReview(pr.ID); err != nil {
		return err
	}
	d.record(w.id, eventlog.PRResubmitted, pr.ID, fmt.Sprintf("%s resubmitted %s", w.id, pr.ID), nil)
	d.record(w.id, eventlog.TaskInReview, task.ID, fmt.Sprintf("%s is back in review as %s", task.ID, pr.ID), nil)
	return d.dispatch(pr, StageReview)
}

// completeTask marks task completed and closes its issue when it was the last one.
func (d *Driver) completeTask(task *domain.Task) error {
	if err := task.Complete(d.sim.Now()); err != nil {
		return err
	}
	d.record(task.AssignedRole, eventlog.TaskCompleted, task.ID, fmt.Sprintf("%s completed %s", task.AssignedRole, task.ID), nil)
	issue := d.issueByID[task.IssueID]
	lookup := func(id string) *domain.Task { return d.taskByID[id] }
	if issue.AllTasksCompleted(lookup) {
		return d.closeIssue(issue)
	}
	return nil
}

func (d *Driver) closeIssue(issue *domain.Issue) error {
	if err := issue.Close(d.sim.Now()); err != nil {
		return err
	}
	d.record(issue.AssignedTo, eventlog.IssueClosed, issue.ID, fmt.Sprintf("%s closed %s", issue.AssignedTo, issue.ID), nil)
	if issue.MilestoneID == "" {
		return nil
	}
	for _, m := range d.milestones {
		if m.ID != issue.MilestoneID {
			continue
		}
		if !m.Done(func(id string) *domain.Issue { return d.issueByID[id] }) {
			return nil
		}
		if err := m.Complete(d.sim.Now()); err != nil {
			return err
		}
		logrus.Infof("[t %9.4fh] %s completed (%d issues)", float64(d.sim.Now()), m.Title, len(m.IssueIDs))
		d.record(issue.AssignedTo, eventlog.MilestoneCompleted, m.ID, fmt.Sprintf("%s released", m.Title), nil)
	}
	return nil
}

// taskCounts tallies the tasks assigned to role by status.
func (d *Driver) taskCounts(role string) map[domain.TaskStatus]int {
	counts := make(map[domain.TaskStatus]int)
	for _, t := range d.tasks {
		if t.AssignedRole == role {
			counts[t.Status]++
		}
	}
	return counts
}

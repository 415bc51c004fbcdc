package workflow

import (
	"fmt"

	"github.com/bee-swarm/swarm-sim/sim"
	"github.com/bee-swarm/swarm-sim/sim/domain"
	"github.com/bee-swarm/swarm-sim/sim/eventlog"
)

// plannerRole turns an issue into tasks: analysis under an AI-tool slot, a PRD
// comment, then one task and one assignment comment per template.
type plannerRole struct {
	w        *worker
	pl       plan
	analyzed int
	tasks    int
}

func (r *plannerRole) TryStart(item any) bool {
	issue, ok := item.(*domain.Issue)
	if !ok {
		return false
	}
	w := r.w
	steps := []step{
		act(func() error {
			if err := issue.Assign(w.id); err != nil {
				return err
			}
			w.record(eventlog.IssueAssigned, issue.ID, fmt.Sprintf("%s picked up %s: %s", w.id, issue.ID, issue.Title), nil)
			return nil
		}),
		w.acquire(PoolAITools),
		w.timed(StepAnalysis, eventlog.AnalysisCompleted, issue.ID,
			fmt.Sprintf("%s analyzed %s", w.id, issue.ID), PoolAITools),
		w.release(PoolAITools),
		act(func() error { r.analyzed++; return nil }),
	}
	steps = append(steps, w.comment(eventlog.CommentAdded, issue, issue.ID, "PRD: "+issue.Title)...)

	for _, tpl := range w.d.cfg.Issues.TaskTemplates {
		var task *domain.Task
		steps = append(steps, act(func() error {
			task = w.d.newTask(issue, tpl)
			r.tasks++
			w.record(eventlog.TaskCreated, task.ID, fmt.Sprintf("%s created %s: %s -> %s", w.id, task.ID, task.Title, task.AssignedRole), nil)
			return nil
		}))
		steps = append(steps, w.comment(eventlog.CommentAdded, issue, issue.ID, fmt.Sprintf("assigned %s to %s", tpl.Title, tpl.Role))...)
		steps = append(steps, act(func() error {
			return w.d.assign(task)
		}))
	}
	if len(w.d.cfg.Issues.TaskTemplates) == 0 {
		steps = append(steps, act(func() error { return w.d.closeIssue(issue) }))
	}
	r.pl.reset(steps...)
	return true
}

func (r *plannerRole) Step() (sim.Yield, bool, error) { return r.pl.advance() }

func (r *plannerRole) Describe() string {
	return fmt.Sprintf("planned %d issues into %d tasks", r.analyzed, r.tasks)
}

// builderRole implements tasks and reworks them after rejected reviews.
type builderRole struct {
	w        *worker
	pl       plan
	started  int
	prs      int
	reworks  int
	question int
}

func (r *builderRole) TryStart(item any) bool {
	switch it := item.(type) {
	case *domain.Task:
		r.pl.reset(r.implement(it)...)
		return true
	case reworkItem:
		r.pl.reset(r.rework(it.task, it.pr)...)
		return true
	default:
		return false
	}
}

func (r *builderRole) implement(task *domain.Task) []step {
	w := r.w
	issue := w.d.issueByID[task.IssueID]
	steps := []step{
		act(func() error {
			if err := task.Start(w.d.sim.Now()); err != nil {
				return err
			}
			r.started++
			w.record(eventlog.TaskStarted, task.ID, fmt.Sprintf("%s started %s: %s", w.id, task.ID, task.Title), nil)
			return nil
		}),
	}
	if w.spec.ConsultsDocs {
		steps = append(steps,
			w.timed(StepDocReview, eventlog.DocsReviewed, task.ID, fmt.Sprintf("%s read upstream docs for %s", w.id, task.ID)),
			act(func() error {
				if w.rng.Float64() < w.spec.QuestionProbability {
					r.pl.push(r.ask(task, issue)...)
				}
				return nil
			}),
		)
	}
	var pr *domain.PullRequest
	var openDur sim.Time
	steps = append(steps,
		w.acquire(PoolAITools),
		w.timed(StepAIAssist, eventlog.AIAssistCompleted, task.ID, fmt.Sprintf("%s used AI assist on %s", w.id, task.ID), PoolAITools),
		w.release(PoolAITools),
		w.timed(StepDevelopment, eventlog.DevelopmentCompleted, task.ID, fmt.Sprintf("%s developed %s", w.id, task.ID)),
		w.acquire(PoolGitHubAPI),
		step{
			begin: func() (sim.Yield, error) {
				openDur = w.sample(StepOpenPR)
				return sim.Timeout(openDur), nil
			},
			end: func() error {
				w.proc.AddBusy(openDur)
				pr = w.d.newPR(task, w.id)
				r.prs++
				w.record(eventlog.PROpened, pr.ID, fmt.Sprintf("%s opened %s: %s", w.id, pr.ID, pr.Title), &openDur, PoolGitHubAPI)
				return nil
			},
		},
		w.release(PoolGitHubAPI),
		act(func() error { return w.d.prOpened(w, task, pr) }),
	)
	return steps
}

// ask posts a question on the issue and waits for the planner's answer.
func (r *builderRole) ask(task *domain.Task, issue *domain.Issue) []step {
	w := r.w
	steps := w.comment(eventlog.QuestionAsked, issue, issue.ID, fmt.Sprintf("question on %s: which API contract applies?", task.ID))
	return append(steps,
		act(func() error { r.question++; return nil }),
		step{
			begin: func() (sim.Yield, error) {
				return sim.Timeout(w.sample(StepAnswerWait)), nil
			},
			end: func() error {
				answerer := issue.AssignedTo
				issue.AddComment(answerer, "answer: follow the PRD", w.d.sim.Now())
				w.d.record(answerer, eventlog.QuestionAnswered, issue.ID, fmt.Sprintf("%s answered %s's question on %s", answerer, w.id, task.ID), nil)
				return nil
			},
		},
	)
}

func (r *builderRole) rework(task *domain.Task, pr *domain.PullRequest) []step {
	w := r.w
	steps := []step{
		w.timed(StepRework, eventlog.TaskReworked, task.ID, fmt.Sprintf("%s reworked %s after review of %s", w.id, task.ID, pr.ID)),
		act(func() error { r.reworks++; return nil }),
	}
	steps = append(steps, w.comment(eventlog.CommentAdded, pr, pr.ID, "addressed review comments")...)
	return append(steps, act(func() error { return w.d.resubmit(w, task, pr) }))
}

func (r *builderRole) Step() (sim.Yield, bool, error) { return r.pl.advance() }

func (r *builderRole) Describe() string {
	return fmt.Sprintf("started %d tasks, opened %d PRs, %d reworks, %d questions", r.started, r.prs, r.reworks, r.question)
}

// reviewerRole reviews open PRs under a code-reviewer seat.
type reviewerRole struct {
	w        *worker
	pl       plan
	approved int
	rejected int
}

func (r *reviewerRole) TryStart(item any) bool {
	it, ok := item.(reviewItem)
	if !ok {
		return false
	}
	w := r.w
	pr := it.pr
	var (
		d       sim.Time
		outcome eventlog.Kind
	)
	r.pl.reset(
		w.acquire(PoolCodeReviewers),
		step{
			begin: func() (sim.Yield, error) {
				d = w.sample(StepReview)
				return sim.Timeout(d), nil
			},
			end: func() error {
				w.proc.AddBusy(d)
				outcome = w.d.reviewOutcome(pr)
				w.record(outcome, pr.ID, fmt.Sprintf("%s reviewed %s (attempt %d): %s", w.id, pr.ID, pr.Reviews+1, outcome), &d, PoolCodeReviewers)
				content := "LGTM"
				if outcome == eventlog.ReviewChangesRequested {
					content = "changes requested"
				}
				steps := w.comment(eventlog.CommentAdded, pr, pr.ID, content)
				steps = append(steps,
					w.release(PoolCodeReviewers),
					act(func() error { return r.apply(pr, outcome) }),
				)
				r.pl.push(steps...)
				return nil
			},
		},
	)
	return true
}

func (r *reviewerRole) apply(pr *domain.PullRequest, outcome eventlog.Kind) error {
	w := r.w
	if outcome == eventlog.ReviewChangesRequested {
		r.rejected++
		return w.d.requestChanges(pr)
	}
	r.approved++
	if err := pr.Approve(outcome == eventlog.ReviewEscalated); err != nil {
		return err
	}
	return w.d.stageDone(w, pr, StageReview)
}

func (r *reviewerRole) Step() (sim.Yield, bool, error) { return r.pl.advance() }

func (r *reviewerRole) Describe() string {
	return fmt.Sprintf("approved %d, rejected %d", r.approved, r.rejected)
}

// validatorRole runs user acceptance tests for its planner and merges.
type validatorRole struct {
	w      *worker
	pl     plan
	passed int
}

func (r *validatorRole) TryStart(item any) bool {
	it, ok := item.(uatItem)
	if !ok {
		return false
	}
	w := r.w
	pr := it.pr
	steps := []step{
		w.timed(StepUAT, eventlog.UATCompleted, pr.ID, fmt.Sprintf("%s accepted %s", w.id, pr.ID)),
	}
	steps = append(steps, w.comment(eventlog.CommentAdded, pr, pr.ID, "UAT passed")...)
	steps = append(steps, act(func() error {
		r.passed++
		return w.d.stageDone(w, pr, StageUAT)
	}))
	r.pl.reset(steps...)
	return true
}

func (r *validatorRole) Step() (sim.Yield, bool, error) { return r.pl.advance() }

func (r *validatorRole) Describe() string {
	return fmt.Sprintf("accepted %d PRs", r.passed)
}

// releaserRole deploys merged PRs: prep, execute and verify under one
// deployment environment grant.
type releaserRole struct {
	w        *worker
	pl       plan
	deployed int
}

func (r *releaserRole) TryStart(item any) bool {
	it, ok := item.(deployItem)
	if !ok {
		return false
	}
	w := r.w
	pr := it.pr
	r.pl.reset(
		w.acquire(PoolDeployment),
		w.timed(StepDeployPrep, eventlog.DeployPrepCompleted, pr.ID, fmt.Sprintf("%s prepared deployment of %s", w.id, pr.ID), PoolDeployment),
		w.timed(StepDeployExecute, eventlog.DeployExecuteCompleted, pr.ID, fmt.Sprintf("%s deployed %s", w.id, pr.ID), PoolDeployment),
		w.timed(StepDeployVerify, eventlog.DeployVerified, pr.ID, fmt.Sprintf("%s verified deployment of %s", w.id, pr.ID), PoolDeployment),
		w.release(PoolDeployment),
		act(func() error {
			if err := pr.Deploy(w.d.sim.Now()); err != nil {
				return err
			}
			r.deployed++
			w.record(eventlog.PRDeployed, pr.ID, fmt.Sprintf("%s is live", pr.ID), nil)
			return w.d.stageDone(w, pr, StageDeploy)
		}),
	)
	return true
}

func (r *releaserRole) Step() (sim.Yield, bool, error) { return r.pl.advance() }

func (r *releaserRole) Describe() string {
	return fmt.Sprintf("deployed %d PRs", r.deployed)
}

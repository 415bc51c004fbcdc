package domain

import "github.com/bee-swarm/swarm-sim/sim"

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskInReview   TaskStatus = "in_review"
	TaskCompleted  TaskStatus = "completed"
)

// in_review -> in_progress is the rework edge.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress},
	TaskInProgress: {TaskInReview, TaskCompleted},
	TaskInReview:   {TaskCompleted, TaskInProgress},
}

// Task is one unit of work derived from an Issue and assigned to a role.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	AssignedRole string     `json:"assigned_role"`
	IssueID      string     `json:"issue_id"`
	Status       TaskStatus `json:"status"`
	CreatedAt    sim.Time   `json:"created_at"`
	StartedAt    *sim.Time  `json:"started_at,omitempty"`
	CompletedAt  *sim.Time  `json:"completed_at,omitempty"`
	PRID         string     `json:"pr_id,omitempty"`
	ReworkCount  int        `json:"rework_count"`
}

// NewTask returns a pending task.
func NewTask(id, title, role, issueID string, now sim.Time) *Task {
	return &Task{
		ID:           id,
		Title:        title,
		AssignedRole: role,
		IssueID:      issueID,
		Status:       TaskPending,
		CreatedAt:    now,
	}
}

func (t *Task) moveTo(to TaskStatus) error {
	if err := checkTransition(taskTransitions, "task", t.ID, t.Status, to); err != nil {
		return err
	}
	t.Status = to
	return nil
}

// Start moves a pending task to in_progress and stamps StartedAt.
func (t *Task) Start(now sim.Time) error {
	if err := t.moveTo(TaskInProgress); err != nil {
		return err
	}
	t.StartedAt = timePtr(now)
	return nil
}

// SubmitForReview moves the task to in_review once its PR is open.
func (t *Task) SubmitForReview(prID string) error {
	if err := t.moveTo(TaskInReview); err != nil {
		return err
	}
	t.PRID = prID
	return nil
}

// Rework follows the rework edge back to in_progress.
func (t *Task) Rework() error {
	if t.Status != TaskInReview {
		return &TransitionError{Entity: "task", ID: t.ID, From: string(t.Status), To: string(TaskInProgress)}
	}
	if err := t.moveTo(TaskInProgress); err != nil {
		return err
	}
	t.ReworkCount++
	return nil
}

// Complete marks the task completed and stamps CompletedAt.
func (t *Task) Complete(now sim.Time) error {
	if err := t.moveTo(TaskCompleted); err != nil {
		return err
	}
	t.CompletedAt = timePtr(now)
	return nil
}

// CycleTime returns completed_at - created_at, or false if the task has not completed.
func (t *Task) CycleTime() (sim.Time, bool) {
	if t.CompletedAt == nil {
		return 0, false
	}
	return *t.CompletedAt - t.CreatedAt, true
}

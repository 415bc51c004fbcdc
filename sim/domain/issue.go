package domain

import "github.com/bee-swarm/swarm-sim/sim"

// IssueStatus is the lifecycle state of an Issue.
type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueClosed     IssueStatus = "closed"
)

var issueTransitions = map[IssueStatus][]IssueStatus{
	IssueOpen:       {IssueInProgress},
	IssueInProgress: {IssueClosed},
}

// Issue is a request filed by the requester and broken into Tasks by the planner.
type Issue struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Status      IssueStatus `json:"status"`
	AssignedTo  string      `json:"assigned_to,omitempty"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   sim.Time    `json:"created_at"`
	ClosedAt    *sim.Time   `json:"closed_at,omitempty"`
	TaskIDs     []string    `json:"task_ids,omitempty"`
	MilestoneID string      `json:"milestone_id,omitempty"`
	Comments    []Comment   `json:"comments,omitempty"`
}

// NewIssue returns an open issue.
func NewIssue(id, title, createdBy string, now sim.Time) *Issue {
	return &Issue{ID: id, Title: title, Status: IssueOpen, CreatedBy: createdBy, CreatedAt: now}
}

// Assign moves an open issue to in_progress under role.
func (i *Issue) Assign(role string) error {
	if err := checkTransition(issueTransitions, "issue", i.ID, i.Status, IssueInProgress); err != nil {
		return err
	}
	i.Status = IssueInProgress
	i.AssignedTo = role
	return nil
}

// AddTask links a derived task.
func (i *Issue) AddTask(taskID string) {
	i.TaskIDs = append(i.TaskIDs, taskID)
}

// AddComment appends a comment. Comments are never edited or removed.
func (i *Issue) AddComment(author, content string, now sim.Time) {
	i.Comments = append(i.Comments, Comment{Author: author, Content: content, Time: now})
}

// Close marks the issue closed.
func (i *Issue) Close(now sim.Time) error {
	if err := checkTransition(issueTransitions, "issue", i.ID, i.Status, IssueClosed); err != nil {
		return err
	}
	i.Status = IssueClosed
	i.ClosedAt = timePtr(now)
	return nil
}

// AllTasksCompleted reports whether the issue has tasks and every one of them
// is completed. lookup resolves a task id.
func (i *Issue) AllTasksCompleted(lookup func(id string) *Task) bool {
	if len(i.TaskIDs) == 0 {
		return false
	}
	for _, id := range i.TaskIDs {
		t := lookup(id)
		if t == nil || t.Status != TaskCompleted {
			return false
		}
	}
	return true
}

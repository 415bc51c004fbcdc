package domain

import "github.com/bee-swarm/swarm-sim/sim"

// PRStatus is the lifecycle state of a PullRequest.
type PRStatus string

const (
	PROpen             PRStatus = "open"
	PRChangesRequested PRStatus = "changes_requested"
	PRApproved         PRStatus = "approved"
	PRMerged           PRStatus = "merged"
	PRDeployed         PRStatus = "deployed"
)

// changes_requested -> open is the rework edge. open -> merged is taken when the
// pipeline has no review stage.
var prTransitions = map[PRStatus][]PRStatus{
	PROpen:             {PRApproved, PRChangesRequested, PRMerged},
	PRChangesRequested: {PROpen},
	PRApproved:         {PRMerged},
	PRMerged:           {PRDeployed},
}

// ReviewStatus summarizes the latest review outcome.
type ReviewStatus string

const (
	ReviewPending          ReviewStatus = "pending"
	ReviewApproved         ReviewStatus = "approved"
	ReviewChangesRequested ReviewStatus = "changes_requested"
	ReviewEscalated        ReviewStatus = "escalated"
)

// PullRequest carries a Task's change through review, UAT and deployment.
type PullRequest struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	TaskID       string       `json:"task_id"`
	Author       string       `json:"author"`
	Status       PRStatus     `json:"status"`
	ReviewStatus ReviewStatus `json:"review_status"`
	Reviews      int          `json:"reviews"`
	Rejections   int          `json:"rejections"`
	OpenedAt     sim.Time     `json:"opened_at"`
	MergedAt     *sim.Time    `json:"merged_at,omitempty"`
	DeployedAt   *sim.Time    `json:"deployed_at,omitempty"`
	Comments     []Comment    `json:"comments,omitempty"`
}

// NewPullRequest returns an open PR awaiting review.
func NewPullRequest(id, title, taskID, author string, now sim.Time) *PullRequest {
	return &PullRequest{
		ID:           id,
		Title:        title,
		TaskID:       taskID,
		Author:       author,
		Status:       PROpen,
		ReviewStatus: ReviewPending,
		OpenedAt:     now,
	}
}

func (pr *PullRequest) moveTo(to PRStatus) error {
	if err := checkTransition(prTransitions, "pull request", pr.ID, pr.Status, to); err != nil {
		return err
	}
	pr.Status = to
	return nil
}

// Approve records a passing review. escalated marks an approval forced by the
// rework bound.
func (pr *PullRequest) Approve(escalated bool) error {
	if err := pr.moveTo(PRApproved); err != nil {
		return err
	}
	pr.Reviews++
	pr.ReviewStatus = ReviewApproved
	if escalated {
		pr.ReviewStatus = ReviewEscalated
	}
	return nil
}

// RequestChanges records a failing review.
func (pr *PullRequest) RequestChanges() error {
	if err := pr.moveTo(PRChangesRequested); err != nil {
		return err
	}
	pr.Reviews++
	pr.Rejections++
	pr.ReviewStatus = ReviewChangesRequested
	return nil
}

// Resubmit follows the rework edge back to open.
func (pr *PullRequest) Resubmit() error {
	if err := pr.moveTo(PROpen); err != nil {
		return err
	}
	pr.ReviewStatus = ReviewPending
	return nil
}

// Merge marks the PR merged.
func (pr *PullRequest) Merge(now sim.Time) error {
	if err := pr.moveTo(PRMerged); err != nil {
		return err
	}
	pr.MergedAt = timePtr(now)
	return nil
}

// Deploy marks a merged PR deployed.
func (pr *PullRequest) Deploy(now sim.Time) error {
	if err := pr.moveTo(PRDeployed); err != nil {
		return err
	}
	pr.DeployedAt = timePtr(now)
	return nil
}

// AddComment appends a review comment.
func (pr *PullRequest) AddComment(author, content string, now sim.Time) {
	pr.Comments = append(pr.Comments, Comment{Author: author, Content: content, Time: now})
}

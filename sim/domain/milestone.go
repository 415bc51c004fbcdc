package domain

import (
	"fmt"

	"github.com/bee-swarm/swarm-sim/sim"
)

// MilestoneStatus is the lifecycle state of a Milestone.
type MilestoneStatus string

const (
	MilestoneOpen      MilestoneStatus = "open"
	MilestoneCompleted MilestoneStatus = "completed"
)

var milestoneTransitions = map[MilestoneStatus][]MilestoneStatus{
	MilestoneOpen: {MilestoneCompleted},
}

// Milestone groups a fixed number of consecutive issues into one release.
type Milestone struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Size        int             `json:"size"`
	IssueIDs    []string        `json:"issue_ids"`
	Status      MilestoneStatus `json:"status"`
	CompletedAt *sim.Time       `json:"completed_at,omitempty"`
}

// NewMilestone returns an open milestone that holds up to size issues.
func NewMilestone(id string, number, size int) *Milestone {
	return &Milestone{
		ID:     id,
		Title:  fmt.Sprintf("Release %d", number),
		Size:   size,
		Status: MilestoneOpen,
	}
}

// Full reports whether the milestone has all its issues.
func (m *Milestone) Full() bool {
	return len(m.IssueIDs) >= m.Size
}

// Add links an issue to the milestone.
func (m *Milestone) Add(issueID string) error {
	if m.Full() {
		return fmt.Errorf("milestone %s: already holds %d issues", m.ID, m.Size)
	}
	m.IssueIDs = append(m.IssueIDs, issueID)
	return nil
}

// Complete marks the milestone completed.
func (m *Milestone) Complete(now sim.Time) error {
	if err := checkTransition(milestoneTransitions, "milestone", m.ID, m.Status, MilestoneCompleted); err != nil {
		return err
	}
	m.Status = MilestoneCompleted
	m.CompletedAt = timePtr(now)
	return nil
}

// Done reports whether the milestone is full and every issue is closed.
func (m *Milestone) Done(lookup func(id string) *Issue) bool {
	if !m.Full() {
		return false
	}
	for _, id := range m.IssueIDs {
		is := lookup(id)
		if is == nil || is.Status != IssueClosed {
			return false
		}
	}
	return true
}

package eventlog

// Kind classifies an event log entry.
type Kind string

const (
	IssueCreated  Kind = "issue_created"
	IssueAssigned Kind = "issue_assigned"
	IssueClosed   Kind = "issue_closed"

	AnalysisCompleted Kind = "analysis_completed"
	CommentAdded      Kind = "comment_added"

	TaskCreated   Kind = "task_created"
	TaskStarted   Kind = "task_started"
	TaskInReview  Kind = "task_in_review"
	TaskReworked  Kind = "task_reworked"
	TaskCompleted Kind = "task_completed"

	QuestionAsked        Kind = "question_asked"
	QuestionAnswered     Kind = "question_answered"
	DocsReviewed         Kind = "docs_reviewed"
	AIAssistCompleted    Kind = "ai_assist_completed"
	DevelopmentCompleted Kind = "development_completed"

	PROpened               Kind = "pr_opened"
	ReviewApproved         Kind = "review_approved"
	ReviewChangesRequested Kind = "review_changes_requested"
	ReviewEscalated        Kind = "review_escalated"
	PRResubmitted          Kind = "pr_resubmitted"
	UATCompleted           Kind = "uat_completed"
	PRMerged               Kind = "pr_merged"

	DeployPrepCompleted    Kind = "deploy_prep_completed"
	DeployExecuteCompleted Kind = "deploy_execute_completed"
	DeployVerified         Kind = "deploy_verified"
	PRDeployed             Kind = "pr_deployed"

	DefaultTaskCompleted Kind = "default_task_completed"
	DailyReport          Kind = "daily_report"
	ResourceReleased     Kind = "resource_released"
	MilestoneCompleted   Kind = "milestone_completed"
)

// Kinds lists every kind in lifecycle order. Report tables iterate it so that
// output order does not depend on map iteration.
func Kinds() []Kind {
	return []Kind{
		IssueCreated, IssueAssigned, IssueClosed,
		AnalysisCompleted, CommentAdded,
		TaskCreated, TaskStarted, TaskInReview, TaskReworked, TaskCompleted,
		QuestionAsked, QuestionAnswered, DocsReviewed, AIAssistCompleted, DevelopmentCompleted,
		PROpened, ReviewApproved, ReviewChangesRequested, ReviewEscalated, PRResubmitted,
		UATCompleted, PRMerged,
		DeployPrepCompleted, DeployExecuteCompleted, DeployVerified, PRDeployed,
		DefaultTaskCompleted, DailyReport, ResourceReleased, MilestoneCompleted,
	}
}

// IsReview reports whether k is a review outcome.
func (k Kind) IsReview() bool {
	return k == ReviewApproved || k == ReviewChangesRequested || k == ReviewEscalated
}

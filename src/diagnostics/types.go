package diagnostics

import "github.com/intrusive-memory/app-store-connect-mcp-server/src/appstore"

// RunSummary is the flat, triage-oriented projection of one build run.
// It is deliberately narrower than the raw resource: the summary exists
// for operator triage, not as a resource mirror.
type RunSummary struct {
	ID            string                `json:"id"`
	Number        int                   `json:"number"`
	Status        string                `json:"status"`
	CreatedDate   string                `json:"created_date"`
	StartedDate   string                `json:"started_date,omitempty"`
	FinishedDate  string                `json:"finished_date,omitempty"`
	CommitMessage string                `json:"commit_message,omitempty"`
	CommitAuthor  string                `json:"commit_author,omitempty"`
	IssueCounts   *appstore.IssueCounts `json:"issue_counts,omitempty"`
}

// Statistics aggregates run outcomes over one summary page. FAILED and
// ERRORED runs share the failed bucket: both are non-recoverable
// completed runs from the caller's perspective.
type Statistics struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	Pending   int `json:"pending"`
	Canceled  int `json:"canceled"`
}

// RunsSummaryResult is the output of BuildRunsSummary. It covers the
// returned page only; this is a snapshot tool, not an exhaustive report.
type RunsSummaryResult struct {
	Total      int          `json:"total"`
	Statistics Statistics   `json:"statistics"`
	Runs       []RunSummary `json:"runs"`
}

// IssueDetail is one issue of a failed action.
type IssueDetail struct {
	ID        string `json:"id"`
	IssueType string `json:"issue_type"`
	Message   string `json:"message"`
	Path      string `json:"path,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// TestResultDetail is one test result of a failed TEST action.
type TestResultDetail struct {
	ID        string `json:"id"`
	ClassName string `json:"class_name,omitempty"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Path      string `json:"path,omitempty"`
}

// FailedAction is one failed action of a build run, with its issues and,
// for TEST actions only, its test results. TestResults stays nil for
// non-TEST actions: asking this backend for test results on a BUILD,
// ANALYZE, or ARCHIVE action is structurally meaningless.
type FailedAction struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ActionType       string             `json:"action_type"`
	CompletionStatus string             `json:"completion_status"`
	Issues           []IssueDetail      `json:"issues"`
	TestResults      []TestResultDetail `json:"test_results,omitempty"`
}

// FailureDetailsResult is the output of BuildFailureDetails.
type FailureDetailsResult struct {
	BuildRunID        string         `json:"build_run_id"`
	Number            int            `json:"number"`
	ExecutionProgress string         `json:"execution_progress"`
	CompletionStatus  string         `json:"completion_status,omitempty"`
	CommitMessage     string         `json:"commit_message,omitempty"`
	FailedActions     []FailedAction `json:"failed_actions"`
}

// Package diagnostics turns the App Store Connect CI resource graph into
// compact, decision-ready summaries.
package diagnostics

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/intrusive-memory/app-store-connect-mcp-server/src/appstore"
)

// ErrInvalidSelector is returned when a run selector names both a
// workflow and a product, or neither.
var ErrInvalidSelector = errors.New("diagnostics: exactly one of workflow ID or product ID is required")

// ErrMissingBuildRunID is returned when a failure deep-dive is requested
// without a build run ID.
var ErrMissingBuildRunID = errors.New("diagnostics: build run ID is required")

// DefaultSummaryLimit is the page size for BuildRunsSummary when the
// caller does not specify one.
const DefaultSummaryLimit = 50

// RunSelector picks the build-run collection to summarize. Exactly one
// field must be set.
type RunSelector struct {
	WorkflowID string
	ProductID  string
}

func (s RunSelector) validate() error {
	if (s.WorkflowID == "") == (s.ProductID == "") {
		return ErrInvalidSelector
	}
	return nil
}

// Aggregator composes multiple dependent App Store Connect calls into
// diagnostic summaries.
type Aggregator struct {
	client *appstore.Client
}

// NewAggregator creates an Aggregator backed by the given client.
func NewAggregator(client *appstore.Client) *Aggregator {
	return &Aggregator{client: client}
}

// BuildRunsSummary lists the most recent build runs for the selected
// workflow or product and aggregates their outcomes. The selector is
// validated before any network call; an invalid selector issues zero
// requests.
func (a *Aggregator) BuildRunsSummary(ctx context.Context, selector RunSelector, limit int) (*RunsSummaryResult, error) {
	if err := selector.validate(); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultSummaryLimit
	}

	opts := appstore.QueryOptions{
		Limit: appstore.Limit(limit),
		Sort:  "-number",
	}

	var runs []appstore.BuildRun
	var err error
	if selector.WorkflowID != "" {
		runs, err = a.client.ListWorkflowBuildRuns(ctx, selector.WorkflowID, opts)
	} else {
		runs, err = a.client.ListProductBuildRuns(ctx, selector.ProductID, opts)
	}
	if err != nil {
		return nil, err
	}

	result := &RunsSummaryResult{
		Total: len(runs),
		Runs:  make([]RunSummary, 0, len(runs)),
	}
	for _, run := range runs {
		status := runStatus(run.Attributes)
		result.Runs = append(result.Runs, summarizeRun(run, status))
		result.Statistics.count(status)
	}

	return result, nil
}

// runStatus derives the single status value a run is reported under:
// the completion status once the run is COMPLETE, otherwise the
// in-progress execution progress itself.
func runStatus(attrs appstore.BuildRunAttributes) string {
	if attrs.ExecutionProgress == appstore.ProgressComplete && attrs.CompletionStatus != "" {
		return attrs.CompletionStatus
	}
	return attrs.ExecutionProgress
}

func summarizeRun(run appstore.BuildRun, status string) RunSummary {
	summary := RunSummary{
		ID:           run.ID,
		Number:       run.Attributes.Number,
		Status:       status,
		CreatedDate:  run.Attributes.CreatedDate,
		StartedDate:  run.Attributes.StartedDate,
		FinishedDate: run.Attributes.FinishedDate,
		IssueCounts:  run.Attributes.IssueCounts,
	}
	if commit := run.Attributes.SourceCommit; commit != nil {
		summary.CommitMessage = commit.Message
		if commit.Author != nil {
			summary.CommitAuthor = commit.Author.DisplayName
		}
	}
	return summary
}

func (s *Statistics) count(status string) {
	switch status {
	case appstore.StatusSucceeded:
		s.Succeeded++
	case appstore.StatusFailed, appstore.StatusErrored:
		s.Failed++
	case appstore.ProgressRunning:
		s.Running++
	case appstore.ProgressPending:
		s.Pending++
	case appstore.StatusCanceled:
		s.Canceled++
	}
}

// BuildFailureDetails fetches a build run, its actions, and for every
// FAILED or ERRORED action its issues plus, for TEST actions, its test
// results. The per-action detail fetches run concurrently; output order
// follows the filtered action list, not completion order. A run with no
// failed actions returns an empty FailedActions slice without issuing
// any detail fetch. An unknown build run ID propagates the backend's
// not-found error unchanged.
func (a *Aggregator) BuildFailureDetails(ctx context.Context, buildRunID string) (*FailureDetailsResult, error) {
	if buildRunID == "" {
		return nil, ErrMissingBuildRunID
	}

	run, err := a.client.GetBuildRun(ctx, buildRunID)
	if err != nil {
		return nil, err
	}

	actions, err := a.client.ListBuildActions(ctx, buildRunID, appstore.QueryOptions{})
	if err != nil {
		return nil, err
	}

	var failed []appstore.BuildAction
	for _, action := range actions {
		switch action.Attributes.CompletionStatus {
		case appstore.StatusFailed, appstore.StatusErrored:
			failed = append(failed, action)
		}
	}

	result := &FailureDetailsResult{
		BuildRunID:        run.ID,
		Number:            run.Attributes.Number,
		ExecutionProgress: run.Attributes.ExecutionProgress,
		CompletionStatus:  run.Attributes.CompletionStatus,
		FailedActions:     []FailedAction{},
	}
	if commit := run.Attributes.SourceCommit; commit != nil {
		result.CommitMessage = commit.Message
	}
	if len(failed) == 0 {
		return result, nil
	}

	// Each slot is owned by exactly one goroutine, so the slice needs no
	// locking. The first sub-fetch failure cancels the rest and fails
	// the whole call: this method has no per-action partial-result
	// channel, so a partial deep-dive would be misleading.
	details := make([]FailedAction, len(failed))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, action := range failed {
		group.Go(func() error {
			detail, err := a.fetchActionDetail(groupCtx, action)
			if err != nil {
				return err
			}
			details[i] = detail
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	result.FailedActions = details
	return result, nil
}

// fetchActionDetail fetches issues and, for TEST actions only, test
// results for one failed action. An empty issues list is a normal
// terminal state, not an error.
func (a *Aggregator) fetchActionDetail(ctx context.Context, action appstore.BuildAction) (FailedAction, error) {
	detail := FailedAction{
		ID:               action.ID,
		Name:             action.Attributes.Name,
		ActionType:       action.Attributes.ActionType,
		CompletionStatus: action.Attributes.CompletionStatus,
		Issues:           []IssueDetail{},
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		issues, err := a.client.ListIssues(groupCtx, action.ID, appstore.QueryOptions{})
		if err != nil {
			return fmt.Errorf("fetching issues for action %s: %w", action.ID, err)
		}
		for _, issue := range issues {
			detail.Issues = append(detail.Issues, toIssueDetail(issue))
		}
		return nil
	})

	if action.Attributes.ActionType == appstore.ActionTest {
		group.Go(func() error {
			results, err := a.client.ListTestResults(groupCtx, action.ID, appstore.QueryOptions{})
			if err != nil {
				return fmt.Errorf("fetching test results for action %s: %w", action.ID, err)
			}
			detail.TestResults = make([]TestResultDetail, 0, len(results))
			for _, tr := range results {
				detail.TestResults = append(detail.TestResults, toTestResultDetail(tr))
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return FailedAction{}, err
	}
	return detail, nil
}

func toIssueDetail(issue appstore.Issue) IssueDetail {
	detail := IssueDetail{
		ID:        issue.ID,
		IssueType: issue.Attributes.IssueType,
		Message:   issue.Attributes.Message,
	}
	if fs := issue.Attributes.FileSource; fs != nil {
		detail.Path = fs.Path
		detail.Line = fs.LineNumber
	}
	return detail
}

func toTestResultDetail(tr appstore.TestResult) TestResultDetail {
	detail := TestResultDetail{
		ID:        tr.ID,
		ClassName: tr.Attributes.ClassName,
		Name:      tr.Attributes.Name,
		Status:    tr.Attributes.Status,
		Message:   tr.Attributes.Message,
	}
	if fs := tr.Attributes.FileSource; fs != nil {
		detail.Path = fs.Path
	}
	return detail
}

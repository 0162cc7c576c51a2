package diagnostics

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/intrusive-memory/app-store-connect-mcp-server/src/appstore"
)

// fixtureServer records every request path it serves.
type fixtureServer struct {
	*httptest.Server

	mu    sync.Mutex
	paths []string
}

func (f *fixtureServer) requestPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func (f *fixtureServer) countRequests(path string) int {
	count := 0
	for _, p := range f.requestPaths() {
		if p == path {
			count++
		}
	}
	return count
}

// newFixture starts a test server around routes and returns an
// aggregator pointed at it.
func newFixture(t *testing.T, routes map[string]string) (*Aggregator, *fixtureServer) {
	t.Helper()

	fixture := &fixtureServer{}
	fixture.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixture.mu.Lock()
		fixture.paths = append(fixture.paths, r.URL.Path)
		fixture.mu.Unlock()

		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"errors": [{"detail": "There is no resource at this path"}]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(fixture.Close)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshaling key: %v", err)
	}
	keyPath := filepath.Join(t.TempDir(), "key.p8")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(keyPath, pemBytes, 0o600); err != nil {
		t.Fatalf("writing key: %v", err)
	}

	tokens, err := appstore.NewTokenSource("TEST123", "issuer-uuid", keyPath)
	if err != nil {
		t.Fatalf("NewTokenSource() error = %v", err)
	}
	client := appstore.NewClient(tokens, fixture.Server.URL, 0)
	return NewAggregator(client), fixture
}

const fourRunsFixture = `{
	"data": [
		{"type": "ciBuildRuns", "id": "run-4", "attributes": {"number": 4, "createdDate": "2026-08-28T10:00:00Z", "executionProgress": "PENDING"}},
		{"type": "ciBuildRuns", "id": "run-3", "attributes": {"number": 3, "createdDate": "2026-08-27T10:00:00Z", "executionProgress": "RUNNING"}},
		{"type": "ciBuildRuns", "id": "run-2", "attributes": {"number": 2, "createdDate": "2026-08-26T10:00:00Z", "executionProgress": "COMPLETE", "completionStatus": "FAILED", "sourceCommit": {"commitSha": "abc123", "message": "break the build", "author": {"displayName": "Sam Dev"}}}},
		{"type": "ciBuildRuns", "id": "run-1", "attributes": {"number": 1, "createdDate": "2026-08-25T10:00:00Z", "executionProgress": "COMPLETE", "completionStatus": "SUCCEEDED"}}
	]
}`

func TestBuildRunsSummary_SelectorValidation(t *testing.T) {
	tests := []struct {
		name     string
		selector RunSelector
	}{
		{name: "neither set", selector: RunSelector{}},
		{name: "both set", selector: RunSelector{WorkflowID: "wf-1", ProductID: "prod-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aggregator, fixture := newFixture(t, nil)

			_, err := aggregator.BuildRunsSummary(context.Background(), tt.selector, 0)
			if !errors.Is(err, ErrInvalidSelector) {
				t.Errorf("error = %v, want ErrInvalidSelector", err)
			}
			if got := len(fixture.requestPaths()); got != 0 {
				t.Errorf("issued %d network calls, want 0", got)
			}
		})
	}
}

func TestBuildRunsSummary_Statistics(t *testing.T) {
	aggregator, _ := newFixture(t, map[string]string{
		"/ciWorkflows/wf-1/buildRuns": fourRunsFixture,
	})

	result, err := aggregator.BuildRunsSummary(context.Background(), RunSelector{WorkflowID: "wf-1"}, 0)
	if err != nil {
		t.Fatalf("BuildRunsSummary() error = %v", err)
	}

	if result.Total != 4 {
		t.Errorf("Total = %d, want 4", result.Total)
	}
	want := Statistics{Succeeded: 1, Failed: 1, Running: 1, Pending: 1, Canceled: 0}
	if result.Statistics != want {
		t.Errorf("Statistics = %+v, want %+v", result.Statistics, want)
	}

	// Derived status: completion status for COMPLETE runs, progress
	// value for the rest.
	wantStatuses := map[string]string{
		"run-1": "SUCCEEDED",
		"run-2": "FAILED",
		"run-3": "RUNNING",
		"run-4": "PENDING",
	}
	for _, run := range result.Runs {
		if run.Status != wantStatuses[run.ID] {
			t.Errorf("run %s status = %s, want %s", run.ID, run.Status, wantStatuses[run.ID])
		}
	}
}

func TestBuildRunsSummary_Projection(t *testing.T) {
	aggregator, fixture := newFixture(t, map[string]string{
		"/ciWorkflows/wf-1/buildRuns": fourRunsFixture,
	})

	result, err := aggregator.BuildRunsSummary(context.Background(), RunSelector{WorkflowID: "wf-1"}, 0)
	if err != nil {
		t.Fatalf("BuildRunsSummary() error = %v", err)
	}

	var failedRun *RunSummary
	for i := range result.Runs {
		if result.Runs[i].ID == "run-2" {
			failedRun = &result.Runs[i]
		}
	}
	if failedRun == nil {
		t.Fatal("run-2 missing from summary")
	}
	if failedRun.CommitMessage != "break the build" {
		t.Errorf("CommitMessage = %q, want %q", failedRun.CommitMessage, "break the build")
	}
	if failedRun.CommitAuthor != "Sam Dev" {
		t.Errorf("CommitAuthor = %q, want %q", failedRun.CommitAuthor, "Sam Dev")
	}

	if got := len(fixture.requestPaths()); got != 1 {
		t.Errorf("issued %d network calls, want exactly 1 list call", got)
	}
}

func TestBuildRunsSummary_ByProduct(t *testing.T) {
	aggregator, fixture := newFixture(t, map[string]string{
		"/ciProducts/prod-1/buildRuns": fourRunsFixture,
	})

	if _, err := aggregator.BuildRunsSummary(context.Background(), RunSelector{ProductID: "prod-1"}, 10); err != nil {
		t.Fatalf("BuildRunsSummary() error = %v", err)
	}
	if fixture.countRequests("/ciProducts/prod-1/buildRuns") != 1 {
		t.Errorf("expected the product buildRuns endpoint to be called once, got paths %v", fixture.requestPaths())
	}
}

func TestBuildFailureDetails_NoFailedActions(t *testing.T) {
	aggregator, fixture := newFixture(t, map[string]string{
		"/ciBuildRuns/run-1": `{"data": {"type": "ciBuildRuns", "id": "run-1", "attributes": {"number": 1, "executionProgress": "COMPLETE", "completionStatus": "SUCCEEDED"}}}`,
		"/ciBuildRuns/run-1/actions": `{
			"data": [
				{"type": "ciBuildActions", "id": "act-1", "attributes": {"name": "Build", "actionType": "BUILD", "executionProgress": "COMPLETE", "completionStatus": "SUCCEEDED"}},
				{"type": "ciBuildActions", "id": "act-2", "attributes": {"name": "Test", "actionType": "TEST", "executionProgress": "COMPLETE", "completionStatus": "SUCCEEDED"}}
			]
		}`,
	})

	result, err := aggregator.BuildFailureDetails(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("BuildFailureDetails() error = %v", err)
	}

	if result.FailedActions == nil || len(result.FailedActions) != 0 {
		t.Errorf("FailedActions = %v, want empty slice", result.FailedActions)
	}
	for _, path := range fixture.requestPaths() {
		switch path {
		case "/ciBuildRuns/run-1", "/ciBuildRuns/run-1/actions":
		default:
			t.Errorf("unexpected detail fetch %s for a fully succeeded run", path)
		}
	}
}

func TestBuildFailureDetails_FailedActions(t *testing.T) {
	aggregator, fixture := newFixture(t, map[string]string{
		"/ciBuildRuns/run-2": `{"data": {"type": "ciBuildRuns", "id": "run-2", "attributes": {"number": 2, "executionProgress": "COMPLETE", "completionStatus": "FAILED", "sourceCommit": {"commitSha": "abc123", "message": "break the build"}}}}`,
		"/ciBuildRuns/run-2/actions": `{
			"data": [
				{"type": "ciBuildActions", "id": "act-build", "attributes": {"name": "Build", "actionType": "BUILD", "executionProgress": "COMPLETE", "completionStatus": "FAILED"}},
				{"type": "ciBuildActions", "id": "act-analyze", "attributes": {"name": "Analyze", "actionType": "ANALYZE", "executionProgress": "COMPLETE", "completionStatus": "SUCCEEDED"}},
				{"type": "ciBuildActions", "id": "act-test", "attributes": {"name": "Test", "actionType": "TEST", "executionProgress": "COMPLETE", "completionStatus": "ERRORED"}}
			]
		}`,
		"/ciBuildActions/act-build/issues": `{
			"data": [
				{"type": "ciIssues", "id": "issue-1", "attributes": {"issueType": "ERROR", "message": "use of undeclared identifier", "fileSource": {"path": "Sources/App/Main.swift", "lineNumber": 12}}}
			]
		}`,
		"/ciBuildActions/act-test/issues": `{
			"data": [
				{"type": "ciIssues", "id": "issue-2", "attributes": {"issueType": "TEST_FAILURE", "message": "XCTAssertEqual failed"}}
			]
		}`,
		"/ciBuildActions/act-test/testResults": `{
			"data": [
				{"type": "ciTestResults", "id": "tr-1", "attributes": {"className": "AppTests", "name": "testLogin", "status": "FAILURE"}}
			]
		}`,
	})

	result, err := aggregator.BuildFailureDetails(context.Background(), "run-2")
	if err != nil {
		t.Fatalf("BuildFailureDetails() error = %v", err)
	}

	if len(result.FailedActions) != 2 {
		t.Fatalf("FailedActions count = %d, want 2", len(result.FailedActions))
	}

	// Output order follows the filtered action list, not completion order.
	buildAction := result.FailedActions[0]
	testAction := result.FailedActions[1]
	if buildAction.ID != "act-build" || testAction.ID != "act-test" {
		t.Fatalf("action order = [%s, %s], want [act-build, act-test]", buildAction.ID, testAction.ID)
	}

	if len(buildAction.Issues) != 1 || buildAction.Issues[0].Message != "use of undeclared identifier" {
		t.Errorf("build action issues = %+v", buildAction.Issues)
	}
	if buildAction.Issues[0].Path != "Sources/App/Main.swift" || buildAction.Issues[0].Line != 12 {
		t.Errorf("build action issue location = %+v", buildAction.Issues[0])
	}
	if buildAction.TestResults != nil {
		t.Errorf("non-TEST action TestResults = %v, want nil", buildAction.TestResults)
	}

	if len(testAction.Issues) != 1 {
		t.Errorf("test action issues = %+v", testAction.Issues)
	}
	if len(testAction.TestResults) != 1 || testAction.TestResults[0].Name != "testLogin" {
		t.Errorf("test action results = %+v", testAction.TestResults)
	}

	// The succeeded ANALYZE action and the non-TEST actions must not
	// trigger detail fetches they cannot have.
	if fixture.countRequests("/ciBuildActions/act-analyze/issues") != 0 {
		t.Error("fetched issues for a succeeded action")
	}
	if fixture.countRequests("/ciBuildActions/act-build/testResults") != 0 {
		t.Error("fetched test results for a BUILD action")
	}
}

func TestBuildFailureDetails_EmptyIssuesIsNotAnError(t *testing.T) {
	aggregator, _ := newFixture(t, map[string]string{
		"/ciBuildRuns/run-3":           `{"data": {"type": "ciBuildRuns", "id": "run-3", "attributes": {"number": 3, "executionProgress": "COMPLETE", "completionStatus": "FAILED"}}}`,
		"/ciBuildRuns/run-3/actions":   `{"data": [{"type": "ciBuildActions", "id": "act-1", "attributes": {"name": "Archive", "actionType": "ARCHIVE", "executionProgress": "COMPLETE", "completionStatus": "FAILED"}}]}`,
		"/ciBuildActions/act-1/issues": `{"data": []}`,
	})

	result, err := aggregator.BuildFailureDetails(context.Background(), "run-3")
	if err != nil {
		t.Fatalf("BuildFailureDetails() error = %v", err)
	}
	if len(result.FailedActions) != 1 {
		t.Fatalf("FailedActions count = %d, want 1", len(result.FailedActions))
	}
	if got := result.FailedActions[0].Issues; got == nil || len(got) != 0 {
		t.Errorf("Issues = %v, want empty slice", got)
	}
}

func TestBuildFailureDetails_UnknownRunPropagates(t *testing.T) {
	aggregator, _ := newFixture(t, nil)

	_, err := aggregator.BuildFailureDetails(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for unknown build run ID")
	}
	if !appstore.IsNotFound(err) {
		t.Errorf("error = %v, want a propagated not-found APIError", err)
	}
}

func TestBuildFailureDetails_SubFetchFailureFailsTheCall(t *testing.T) {
	aggregator, _ := newFixture(t, map[string]string{
		"/ciBuildRuns/run-4":         `{"data": {"type": "ciBuildRuns", "id": "run-4", "attributes": {"number": 4, "executionProgress": "COMPLETE", "completionStatus": "FAILED"}}}`,
		"/ciBuildRuns/run-4/actions": `{"data": [{"type": "ciBuildActions", "id": "act-gone", "attributes": {"name": "Build", "actionType": "BUILD", "executionProgress": "COMPLETE", "completionStatus": "FAILED"}}]}`,
		// No issues route for act-gone: the fixture answers 404.
	})

	_, err := aggregator.BuildFailureDetails(context.Background(), "run-4")
	if err == nil {
		t.Fatal("expected the composite call to fail when a sub-fetch fails")
	}
	if !appstore.IsNotFound(err) {
		t.Errorf("error = %v, want the sub-fetch APIError", err)
	}
}

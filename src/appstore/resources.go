package appstore

import (
	"context"
	"fmt"
)

// getCollection fetches a list endpoint into a typed collection envelope.
func getCollection[A any](ctx context.Context, c *Client, path string, opts QueryOptions) (*CollectionResponse[A], error) {
	var out CollectionResponse[A]
	if err := c.Get(ctx, path, opts.Params(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getSingle fetches a single-resource endpoint.
func getSingle[A any](ctx context.Context, c *Client, path string) (*Resource[A], error) {
	var out SingleResponse[A]
	if err := c.Get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ListProducts lists the team's Xcode Cloud products.
func (c *Client) ListProducts(ctx context.Context, opts QueryOptions) ([]Product, error) {
	resp, err := getCollection[ProductAttributes](ctx, c, "/ciProducts", opts)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetProduct fetches one Xcode Cloud product.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	return getSingle[ProductAttributes](ctx, c, "/ciProducts/"+productID)
}

// ListWorkflows lists the workflows of a product.
func (c *Client) ListWorkflows(ctx context.Context, productID string, opts QueryOptions) ([]Workflow, error) {
	resp, err := getCollection[WorkflowAttributes](ctx, c, fmt.Sprintf("/ciProducts/%s/workflows", productID), opts)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetWorkflow fetches one workflow.
func (c *Client) GetWorkflow(ctx context.Context, workflowID string) (*Workflow, error) {
	return getSingle[WorkflowAttributes](ctx, c, "/ciWorkflows/"+workflowID)
}

// ListWorkflowBuildRuns lists the build runs of a workflow.
func (c *Client) ListWorkflowBuildRuns(ctx context.Context, workflowID string, opts QueryOptions) ([]BuildRun, error) {
	resp, err := getCollection[BuildRunAttributes](ctx, c, fmt.Sprintf("/ciWorkflows/%s/buildRuns", workflowID), opts)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListProductBuildRuns lists the build runs of a product across all of
// its workflows.
func (c *Client) ListProductBuildRuns(ctx context.Context, productID string, opts QueryOptions) ([]BuildRun, error) {
	resp, err := getCollection[BuildRunAttributes](ctx, c, fmt.Sprintf("/ciProducts/%s/buildRuns", productID), opts)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetBuildRun fetches one build run.
func (c *Client) GetBuildRun(ctx context.Context, buildRunID string) (*BuildRun, error) {
	return getSingle[BuildRunAttributes](ctx, c, "/ciBuildRuns/"+buildRunID)
}

// ListBuildActions lists the actions of a build run.
func (c *Client) ListBuildActions(ctx context.Context, buildRunID string, opts QueryOptions) ([]BuildAction, error) {
	resp, err := getCollection[BuildActionAttributes](ctx, c, fmt.Sprintf("/ciBuildRuns/%s/actions", buildRunID), opts)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListIssues lists the issues of a build action.
func (c *Client) ListIssues(ctx context.Context, actionID string, opts QueryOptions) ([]Issue, error) {
	resp, err := getCollection[IssueAttributes](ctx, c, fmt.Sprintf("/ciBuildActions/%s/issues", actionID), opts)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListTestResults lists the test results of a build action. Only TEST
// actions carry test results.
func (c *Client) ListTestResults(ctx context.Context, actionID string, opts QueryOptions) ([]TestResult, error) {
	resp, err := getCollection[TestResultAttributes](ctx, c, fmt.Sprintf("/ciBuildActions/%s/testResults", actionID), opts)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListArtifacts lists the artifacts of a build action.
func (c *Client) ListArtifacts(ctx context.Context, actionID string, opts QueryOptions) ([]Artifact, error) {
	resp, err := getCollection[ArtifactAttributes](ctx, c, fmt.Sprintf("/ciBuildActions/%s/artifacts", actionID), opts)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListGitReferences lists the git references of an SCM repository.
func (c *Client) ListGitReferences(ctx context.Context, repositoryID string, opts QueryOptions) ([]GitReference, error) {
	resp, err := getCollection[GitReferenceAttributes](ctx, c, fmt.Sprintf("/scmRepositories/%s/gitReferences", repositoryID), opts)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListRepositories lists the SCM repositories visible to the team.
func (c *Client) ListRepositories(ctx context.Context, opts QueryOptions) ([]Repository, error) {
	resp, err := getCollection[RepositoryAttributes](ctx, c, "/scmRepositories", opts)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// relationshipData is the JSON:API relationship linkage shape.
type relationshipData struct {
	Data struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"data"`
}

func relationship(resourceType, id string) relationshipData {
	var rel relationshipData
	rel.Data.Type = resourceType
	rel.Data.ID = id
	return rel
}

// startBuildRunRequest is the POST /ciBuildRuns body.
type startBuildRunRequest struct {
	Data struct {
		Type          string                      `json:"type"`
		Attributes    *startBuildRunAttributes    `json:"attributes,omitempty"`
		Relationships map[string]relationshipData `json:"relationships"`
	} `json:"data"`
}

type startBuildRunAttributes struct {
	Clean bool `json:"clean"`
}

// StartBuildRunOptions customizes a triggered build run.
type StartBuildRunOptions struct {
	// GitReferenceID pins the run to a specific branch or tag. Empty
	// means the workflow's default reference.
	GitReferenceID string
	// Clean requests a build without derived-data caches.
	Clean bool
}

// StartBuildRun triggers a new build run for a workflow. The request is
// made exactly once and never retried: a retried trigger would silently
// start a second build.
func (c *Client) StartBuildRun(ctx context.Context, workflowID string, opts StartBuildRunOptions) (*BuildRun, error) {
	var req startBuildRunRequest
	req.Data.Type = "ciBuildRuns"
	req.Data.Relationships = map[string]relationshipData{
		"workflow": relationship("ciWorkflows", workflowID),
	}
	if opts.GitReferenceID != "" {
		req.Data.Relationships["sourceBranchOrTag"] = relationship("scmGitReferences", opts.GitReferenceID)
	}
	if opts.Clean {
		req.Data.Attributes = &startBuildRunAttributes{Clean: true}
	}

	var out SingleResponse[BuildRunAttributes]
	if err := c.Post(ctx, "/ciBuildRuns", req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// CancelBuildRun cancels a running build run. Like StartBuildRun, this
// is a single-attempt operation.
func (c *Client) CancelBuildRun(ctx context.Context, buildRunID string) error {
	return c.Delete(ctx, "/ciBuildRuns/"+buildRunID)
}

// Package mcp exposes App Store Connect CI diagnostics as MCP tools.
package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/intrusive-memory/app-store-connect-mcp-server/src/appstore"
	"github.com/intrusive-memory/app-store-connect-mcp-server/src/diagnostics"
	"github.com/intrusive-memory/app-store-connect-mcp-server/src/logger"
)

// Server is the MCP server for the App Store Connect CI bridge.
type Server struct {
	mcpServer  *server.MCPServer
	client     *appstore.Client
	aggregator *diagnostics.Aggregator
	store      ResultStore
	log        logger.Logger
}

// NewServer creates a new MCP server over the given client.
func NewServer(client *appstore.Client, log logger.Logger) *Server {
	s := server.NewMCPServer(
		"asc-ci",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer:  s,
		client:     client,
		aggregator: diagnostics.NewAggregator(client),
		store:      NewInMemoryStore(),
		log:        log,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	summaryTool := mcp.NewTool("get_build_runs_summary",
		mcp.WithDescription("Summarize recent Xcode Cloud build runs for a workflow or a product. Returns per-run status and aggregate succeeded/failed/running/pending/canceled counts over the most recent runs. Provide exactly one of workflow_id or product_id."),
		mcp.WithString("workflow_id",
			mcp.Description("CI workflow ID to summarize runs for"),
		),
		mcp.WithString("product_id",
			mcp.Description("CI product ID to summarize runs for, across all its workflows"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max runs to include (default: 50)"),
		),
	)

	failureTool := mcp.NewTool("get_build_failure_details",
		mcp.WithDescription("Deep-dive a failed Xcode Cloud build run. Fetches every FAILED or ERRORED action with its issues and, for TEST actions, its test results. Returns a request_id; use get_failed_action_details to drill into one action."),
		mcp.WithString("build_run_id",
			mcp.Required(),
			mcp.Description("CI build run ID"),
		),
	)

	actionTool := mcp.NewTool("get_failed_action_details",
		mcp.WithDescription("Get the stored issues and test results for one failed action from a previous get_build_failure_details call."),
		mcp.WithString("request_id",
			mcp.Required(),
			mcp.Description("Request ID from get_build_failure_details response"),
		),
		mcp.WithString("action_id",
			mcp.Required(),
			mcp.Description("Failed action ID from the failure details"),
		),
	)

	startTool := mcp.NewTool("start_build_run",
		mcp.WithDescription("Trigger a new Xcode Cloud build run for a workflow. Issued exactly once, never retried."),
		mcp.WithString("workflow_id",
			mcp.Required(),
			mcp.Description("CI workflow ID to run"),
		),
		mcp.WithString("git_reference_id",
			mcp.Description("Git reference (branch/tag) ID to build; defaults to the workflow's configured reference"),
		),
		mcp.WithBoolean("clean",
			mcp.Description("Build without derived-data caches"),
		),
	)

	cancelTool := mcp.NewTool("cancel_build_run",
		mcp.WithDescription("Cancel a running Xcode Cloud build run."),
		mcp.WithString("build_run_id",
			mcp.Required(),
			mcp.Description("CI build run ID to cancel"),
		),
	)

	productsTool := mcp.NewTool("list_ci_products",
		mcp.WithDescription("List the team's Xcode Cloud products."),
		mcp.WithNumber("limit",
			mcp.Description("Max products to return (default: 100, max: 200)"),
		),
	)

	productTool := mcp.NewTool("get_ci_product",
		mcp.WithDescription("Get one Xcode Cloud product by ID."),
		mcp.WithString("product_id",
			mcp.Required(),
			mcp.Description("CI product ID"),
		),
	)

	workflowsTool := mcp.NewTool("list_ci_workflows",
		mcp.WithDescription("List the Xcode Cloud workflows of a product."),
		mcp.WithString("product_id",
			mcp.Required(),
			mcp.Description("CI product ID"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max workflows to return (default: 100, max: 200)"),
		),
	)

	workflowTool := mcp.NewTool("get_ci_workflow",
		mcp.WithDescription("Get one Xcode Cloud workflow by ID."),
		mcp.WithString("workflow_id",
			mcp.Required(),
			mcp.Description("CI workflow ID"),
		),
	)

	artifactsTool := mcp.NewTool("list_build_artifacts",
		mcp.WithDescription("List the artifacts of a build action, with download URLs where available."),
		mcp.WithString("action_id",
			mcp.Required(),
			mcp.Description("CI build action ID"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max artifacts to return (default: 100, max: 200)"),
		),
	)

	repositoriesTool := mcp.NewTool("list_scm_repositories",
		mcp.WithDescription("List the source repositories connected to Xcode Cloud."),
		mcp.WithNumber("limit",
			mcp.Description("Max repositories to return (default: 100, max: 200)"),
		),
	)

	referencesTool := mcp.NewTool("list_git_references",
		mcp.WithDescription("List the git branches and tags of a connected repository."),
		mcp.WithString("repository_id",
			mcp.Required(),
			mcp.Description("SCM repository ID"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max references to return (default: 100, max: 200)"),
		),
	)

	s.mcpServer.AddTool(summaryTool, s.handleBuildRunsSummary)
	s.mcpServer.AddTool(failureTool, s.handleBuildFailureDetails)
	s.mcpServer.AddTool(actionTool, s.handleFailedActionDetails)
	s.mcpServer.AddTool(startTool, s.handleStartBuildRun)
	s.mcpServer.AddTool(cancelTool, s.handleCancelBuildRun)
	s.mcpServer.AddTool(productsTool, s.handleListProducts)
	s.mcpServer.AddTool(productTool, s.handleGetProduct)
	s.mcpServer.AddTool(workflowsTool, s.handleListWorkflows)
	s.mcpServer.AddTool(workflowTool, s.handleGetWorkflow)
	s.mcpServer.AddTool(artifactsTool, s.handleListArtifacts)
	s.mcpServer.AddTool(repositoriesTool, s.handleListRepositories)
	s.mcpServer.AddTool(referencesTool, s.handleListGitReferences)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// textResult marshals v as JSON tool output.
func textResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// generateRequestID creates a unique request identifier.
func generateRequestID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	randomBytes := make([]byte, 4)
	rand.Read(randomBytes)
	return fmt.Sprintf("req-%s-%s", timestamp, hex.EncodeToString(randomBytes))
}

// handleBuildRunsSummary handles the get_build_runs_summary tool call.
func (s *Server) handleBuildRunsSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector := diagnostics.RunSelector{
		WorkflowID: request.GetString("workflow_id", ""),
		ProductID:  request.GetString("product_id", ""),
	}
	limit := request.GetInt("limit", diagnostics.DefaultSummaryLimit)

	result, err := s.aggregator.BuildRunsSummary(ctx, selector, limit)
	if err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}
	return textResult(result)
}

// failureDetailsResponse wraps the aggregator result with the request ID
// used for drill-down.
type failureDetailsResponse struct {
	RequestID string `json:"request_id"`
	*diagnostics.FailureDetailsResult
}

// handleBuildFailureDetails handles the get_build_failure_details tool call.
func (s *Server) handleBuildFailureDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buildRunID := request.GetString("build_run_id", "")
	if buildRunID == "" {
		return mcp.NewToolResultError("invalid_argument: build_run_id parameter is required"), nil
	}

	result, err := s.aggregator.BuildFailureDetails(ctx, buildRunID)
	if err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}

	requestID := generateRequestID()
	s.store.Store(requestID, result)
	s.log.Debug("stored failure details: request_id=%s build_run=%s actions=%d",
		requestID, buildRunID, len(result.FailedActions))

	return textResult(failureDetailsResponse{
		RequestID:            requestID,
		FailureDetailsResult: result,
	})
}

// handleFailedActionDetails handles the get_failed_action_details tool call.
func (s *Server) handleFailedActionDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := request.GetString("request_id", "")
	if requestID == "" {
		return mcp.NewToolResultError("invalid_argument: request_id parameter is required"), nil
	}
	actionID := request.GetString("action_id", "")
	if actionID == "" {
		return mcp.NewToolResultError("invalid_argument: action_id parameter is required"), nil
	}

	action, found := s.store.Action(requestID, actionID)
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("invalid_argument: no stored action for request_id=%s, action_id=%s", requestID, actionID)), nil
	}
	return textResult(action)
}

// handleStartBuildRun handles the start_build_run tool call.
func (s *Server) handleStartBuildRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID := request.GetString("workflow_id", "")
	if workflowID == "" {
		return mcp.NewToolResultError("invalid_argument: workflow_id parameter is required"), nil
	}

	opts := appstore.StartBuildRunOptions{
		GitReferenceID: request.GetString("git_reference_id", ""),
		Clean:          request.GetBool("clean", false),
	}
	run, err := s.client.StartBuildRun(ctx, workflowID, opts)
	if err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}
	s.log.Info("started build run %s (number %d) for workflow %s", run.ID, run.Attributes.Number, workflowID)
	return textResult(run)
}

// handleCancelBuildRun handles the cancel_build_run tool call.
func (s *Server) handleCancelBuildRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buildRunID := request.GetString("build_run_id", "")
	if buildRunID == "" {
		return mcp.NewToolResultError("invalid_argument: build_run_id parameter is required"), nil
	}

	if err := s.client.CancelBuildRun(ctx, buildRunID); err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}
	s.log.Info("canceled build run %s", buildRunID)
	return textResult(map[string]string{"canceled": buildRunID})
}

// handleListProducts handles the list_ci_products tool call.
func (s *Server) handleListProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	products, err := s.client.ListProducts(ctx, listOptions(request))
	if err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}
	return textResult(products)
}

// handleGetProduct handles the get_ci_product tool call.
func (s *Server) handleGetProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID := request.GetString("product_id", "")
	if productID == "" {
		return mcp.NewToolResultError("invalid_argument: product_id parameter is required"), nil
	}

	product, err := s.client.GetProduct(ctx, productID)
	if err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}
	return textResult(product)
}

// handleListWorkflows handles the list_ci_workflows tool call.
func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID := request.GetString("product_id", "")
	if productID == "" {
		return mcp.NewToolResultError("invalid_argument: product_id parameter is required"), nil
	}

	workflows, err := s.client.ListWorkflows(ctx, productID, listOptions(request))
	if err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}
	return textResult(workflows)
}

// handleGetWorkflow handles the get_ci_workflow tool call.
func (s *Server) handleGetWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID := request.GetString("workflow_id", "")
	if workflowID == "" {
		return mcp.NewToolResultError("invalid_argument: workflow_id parameter is required"), nil
	}

	workflow, err := s.client.GetWorkflow(ctx, workflowID)
	if err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}
	return textResult(workflow)
}

// handleListArtifacts handles the list_build_artifacts tool call.
func (s *Server) handleListArtifacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	actionID := request.GetString("action_id", "")
	if actionID == "" {
		return mcp.NewToolResultError("invalid_argument: action_id parameter is required"), nil
	}

	artifacts, err := s.client.ListArtifacts(ctx, actionID, listOptions(request))
	if err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}
	return textResult(artifacts)
}

// handleListRepositories handles the list_scm_repositories tool call.
func (s *Server) handleListRepositories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repositories, err := s.client.ListRepositories(ctx, listOptions(request))
	if err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}
	return textResult(repositories)
}

// handleListGitReferences handles the list_git_references tool call.
func (s *Server) handleListGitReferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repositoryID := request.GetString("repository_id", "")
	if repositoryID == "" {
		return mcp.NewToolResultError("invalid_argument: repository_id parameter is required"), nil
	}

	references, err := s.client.ListGitReferences(ctx, repositoryID, listOptions(request))
	if err != nil {
		return mcp.NewToolResultError(formatToolError(err)), nil
	}
	return textResult(references)
}

// listOptions extracts the common limit parameter for list tools.
func listOptions(request mcp.CallToolRequest) appstore.QueryOptions {
	var opts appstore.QueryOptions
	if limit := request.GetInt("limit", 0); limit != 0 {
		opts.Limit = appstore.Limit(limit)
	}
	return opts
}

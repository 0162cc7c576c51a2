// Package main provides the asc-ci command line interface. It wraps the
// same diagnostics the MCP server exposes, for direct terminal use.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/intrusive-memory/app-store-connect-mcp-server/src/appstore"
	"github.com/intrusive-memory/app-store-connect-mcp-server/src/config"
	"github.com/intrusive-memory/app-store-connect-mcp-server/src/diagnostics"
	"github.com/intrusive-memory/app-store-connect-mcp-server/src/logger"
	"github.com/intrusive-memory/app-store-connect-mcp-server/src/mcp"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "asc-ci",
	Short: "asc-ci - Xcode Cloud diagnostics over the App Store Connect API",
	Long: `asc-ci bridges the App Store Connect API into callable diagnostics.

It can run as an MCP stdio server (serve) or answer one-shot diagnostic
queries directly (runs, failure). Credentials come from ASC_KEY_ID,
ASC_ISSUER_ID, and ASC_PRIVATE_KEY_PATH.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP stdio server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		return mcp.NewServer(client, logger.NewConsoleLogger()).Run()
	},
}

var (
	runsWorkflowID string
	runsProductID  string
	runsLimit      int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Summarize recent build runs for a workflow or product",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		aggregator := diagnostics.NewAggregator(client)
		result, err := aggregator.BuildRunsSummary(cmd.Context(), diagnostics.RunSelector{
			WorkflowID: runsWorkflowID,
			ProductID:  runsProductID,
		}, runsLimit)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var failureCmd = &cobra.Command{
	Use:   "failure <build-run-id>",
	Short: "Deep-dive the failed actions of a build run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		aggregator := diagnostics.NewAggregator(client)
		result, err := aggregator.BuildFailureDetails(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

// newClient builds an authenticated client from the environment.
func newClient() (*appstore.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	tokens, err := appstore.NewTokenSource(cfg.KeyID, cfg.IssuerID, cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	return appstore.NewClient(tokens, cfg.BaseURL, cfg.HTTPTimeout), nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() {
	runsCmd.Flags().StringVar(&runsWorkflowID, "workflow", "", "CI workflow ID")
	runsCmd.Flags().StringVar(&runsProductID, "product", "", "CI product ID")
	runsCmd.Flags().IntVar(&runsLimit, "limit", diagnostics.DefaultSummaryLimit, "max runs to include")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(failureCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

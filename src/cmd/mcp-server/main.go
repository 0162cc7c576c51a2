// Package main provides the MCP server entry point for the App Store
// Connect CI bridge. The server implements the Model Context Protocol
// over stdio, exposing Xcode Cloud diagnostics as tools.
package main

import (
	"fmt"
	"os"

	"github.com/intrusive-memory/app-store-connect-mcp-server/src/appstore"
	"github.com/intrusive-memory/app-store-connect-mcp-server/src/config"
	"github.com/intrusive-memory/app-store-connect-mcp-server/src/logger"
	"github.com/intrusive-memory/app-store-connect-mcp-server/src/mcp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	tokens, err := appstore.NewTokenSource(cfg.KeyID, cfg.IssuerID, cfg.PrivateKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	client := appstore.NewClient(tokens, cfg.BaseURL, cfg.HTTPTimeout)
	server := mcp.NewServer(client, logger.NewConsoleLogger())

	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/services/protocols"
	"github.com/ternarybob/medguard/internal/services/redaction"
	"github.com/ternarybob/medguard/internal/services/triage"
)

func main() {
	// Load configuration
	configPath := os.Getenv("MEDGUARD_CONFIG")
	if configPath == "" {
		configPath = "medguard.toml"
	}
	var paths []string
	if _, err := os.Stat(configPath); err == nil {
		paths = append(paths, configPath)
	}

	config, err := common.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal logging to avoid cluttering MCP stdio
	logger := common.NewStdioLogger()

	table, err := protocols.LoadTable(config.Protocols.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load protocol table: %v\n", err)
		os.Exit(1)
	}

	redactor := redaction.NewRedactorFromConfig(&config.Redaction, logger)
	classifier := triage.NewClassifier(&config.Triage)
	resolver := protocols.NewResolver(table, logger)

	mcpServer := server.NewMCPServer(
		"MedGuard-Secure-Pipeline",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createRedactTool(), handleRedact(redactor, logger))
	mcpServer.AddTool(createGuidelinesTool(), handleGuidelines(resolver))
	mcpServer.AddTool(createAssessRiskTool(), handleAssessRisk(classifier))
	mcpServer.AddTool(createFindProtocolsTool(), handleFindProtocols(resolver))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}

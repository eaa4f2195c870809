// Package main is the entry point for the Attentive daemon and CLI.
//
// Usage:
//
//	attentive daemon [--track]    - Serve the HTTP API and live updates
//	attentive mcp                 - Serve the MCP tools over stdio
//	attentive sessions            - List recent reading sessions
//	attentive stats 24h           - Productivity statistics
//	attentive insights 7d         - Patterns and recommendations
//	attentive login <token>       - Sign in so data goes to the cloud store
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Atharva-Kanherkar/attentive/internal/config"
	"github.com/Atharva-Kanherkar/attentive/internal/daemon"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "attentive",
	Short: "Track what you read and how focused you are",
	Long: `Attentive detects the PDFs you read, turns them into reading sessions and
periodically scores your productivity from a screen capture.

Environment:
  OPENROUTER_API_KEY     API key for OpenRouter (enables AI analysis)
  ATTENTIVE_REDIS_ADDR   Cloud store used while signed in
  ATTENTIVE_JWT_SECRET   Secret that account tokens are signed with`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.config/attentive/config.yaml)")
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// openManager opens a manager with its history loaded, for one-shot queries.
func openManager(ctx context.Context) (*daemon.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	m, err := daemon.Open(cfg, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := m.LoadHistory(ctx); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

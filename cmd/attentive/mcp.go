package main

import (
	"context"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/Atharva-Kanherkar/attentive/internal/mcptools"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "mcp",
		Short: "Serve the tracking tools to an MCP client over stdio",
		RunE:  runMCP,
	})
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)
	log.SetPrefix("[mcp] ")

	manager, err := openManager(context.Background())
	if err != nil {
		return err
	}
	defer manager.Close()

	return server.ServeStdio(mcptools.NewServer(manager))
}

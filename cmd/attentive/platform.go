package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Atharva-Kanherkar/attentive/internal/platform"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "platform",
		Short: "Show the detected desktop and available tools",
		RunE:  runPlatform,
	})
}

func runPlatform(cmd *cobra.Command, args []string) error {
	plat, err := platform.Detect()
	if err != nil {
		return err
	}
	fmt.Printf("Platform: %s\n", plat)
	fmt.Printf("Features: %s\n", strings.Join(plat.SupportedFeatures(), ", "))
	for _, missing := range plat.CheckRequirements() {
		fmt.Printf("  - %s\n", missing)
	}
	return nil
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/target-vision/internal/server"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the tuning tools over MCP on stdin/stdout",
	Long: `Starts an MCP server for offline threshold tuning. Configure it in your MCP
client; the tools analyse image files with the loaded thresholds plus any
per-call overrides.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, err := loadPipelineConfig()
		if err != nil {
			return err
		}
		server.Version = Version
		return server.New(pc).Run()
	},
}

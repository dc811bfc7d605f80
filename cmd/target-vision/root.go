package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/target-vision/internal/config"
	"github.com/ironsheep/target-vision/internal/pipeline"
)

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "target-vision",
	Short: "Retro-reflective target tracking for a vision coprocessor",
	Long: `target-vision finds pairs of tilted retro-reflective strips in camera frames,
converts the chosen pair's position into a heading correction and publishes it
to the robot.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("target-vision %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Pipeline thresholds file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging (same as TARGET_VISION_LOG_LEVEL=debug)")

	rootCmd.AddCommand(versionCmd, runCmd, desktopCmd, mcpCmd, reportCmd)
}

// setupLogging sends everything to stderr; stdout belongs to the MCP protocol.
func setupLogging() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if os.Getenv("TARGET_VISION_LOG_LEVEL") == "debug" {
		verbose = true
	}
	if verbose {
		pipeline.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
		log.Printf("target-vision v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	} else {
		pipeline.SetLogWriters(os.Stderr, nil, nil)
	}
}

func loadPipelineConfig() (*config.PipelineConfig, error) {
	cfg, err := config.LoadPipelineConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config error in '%s': %w", configPath, err)
	}
	return cfg, nil
}

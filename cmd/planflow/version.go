package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BaSui01/planflow/internal/telemetry"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "PlanFlow %s\n", version())
		fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// version 优先使用构建时注入的版本，否则读取模块构建信息
func version() string {
	if Version != "dev" {
		return Version
	}
	return telemetry.BuildVersion()
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nadare881/rvc-webui/cmd/rvc/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("format") {
			return printResult(build.Get())
		}
		fmt.Println(build.String())
		if IsVerbose() {
			fmt.Printf("  go:     %s\n", build.Get().Go)
			if cfg, err := GetConfig(); err == nil {
				fmt.Printf("  config: %s\n", cfg.Dir)
			} else {
				fmt.Printf("  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Command rvc builds and inspects voras checkpoints and drives a voice
// conversion inference server.
//
// Usage:
//
//	rvc [flags] <command> [subcommand] [args]
//
// Commands:
//
//	checkpoint - Build, inspect, verify, export and publish checkpoints
//	server     - Start, stop and inspect inference server processes
//	upload     - Load a checkpoint into a running server
//	convert    - Convert audio files through a running server
//	config     - Manage contexts and service configuration
//	version    - Show version information
package main

import (
	"os"

	"github.com/nadare881/rvc-webui/cmd/rvc/commands"
	"github.com/nadare881/rvc-webui/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}

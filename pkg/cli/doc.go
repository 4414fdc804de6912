// Package cli holds the terminal plumbing shared by the rvc commands:
// structured output (YAML, JSON, raw), styled status lines, tables, human
// readable sizes, request-file loading and the on-disk directory layout.
//
//	if err := cli.Output(summary, cli.OutputOptions{Format: cli.FormatJSON}); err != nil {
//		return err
//	}
//	cli.PrintSuccess("convert succeed")
package cli

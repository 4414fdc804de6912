package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nadare881/rvc-webui/pkg/cli"
	"github.com/nadare881/rvc-webui/pkg/procman"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start, stop and inspect inference servers",
	Long: `Manage inference server processes.

The server command line comes from server.yaml ("command", default
"python server.py"); "--host <h> --port <p>" is appended. Started servers
are recorded so that later invocations can report on and stop them.
Output is appended to <config dir>/logs/<host>_<port>.log.

Examples:
  rvc server start
  rvc server start --port 5002 --wait
  rvc server status
  rvc server logs -n 50
  rvc server stop`,
}

var (
	serverAddr   serverFlags
	startWait    bool
	startTimeout time.Duration
	stopGrace    time.Duration
	logsLines    int
)

// withManager resolves settings, opens the registry and runs fn.
func withManager(fn func(ctx context.Context, s *serverSettings, m *procman.Manager) error) error {
	s, err := loadServerSettings(&serverAddr)
	if err != nil {
		return err
	}
	store, closeStore, err := openRegistry()
	if err != nil {
		return err
	}
	defer closeStore()
	m, err := newManager(s, store)
	if err != nil {
		return err
	}
	return fn(context.Background(), s, m)
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a server in the background",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, s *serverSettings, m *procman.Manager) error {
			rec, err := m.Start(ctx, s.instance())
			if err != nil {
				return err
			}
			cli.PrintSuccess("start server")
			cli.PrintInfo("%s pid %d, log %s", s.instance(), rec.PID, rec.LogFile)

			if !startWait {
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, startTimeout)
			defer cancel()
			if err := s.client().WaitReady(wctx, 0); err != nil {
				return fmt.Errorf("server did not come up (see %s): %w", rec.LogFile, err)
			}
			cli.PrintSuccess("server ready at %s", s.client().BaseURL())
			return nil
		})
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, s *serverSettings, m *procman.Manager) error {
			if err := m.Stop(ctx, s.instance(), stopGrace); err != nil {
				return err
			}
			cli.PrintSuccess("stopped server %s", s.instance())
			return nil
		})
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, s *serverSettings, m *procman.Manager) error {
			rec, err := m.Status(ctx, s.instance())
			if err != nil {
				return err
			}
			return printResult(rec)
		})
	},
}

var serverListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recorded servers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, s *serverSettings, m *procman.Manager) error {
			recs, err := m.List(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("format") {
				return printResult(recs)
			}
			if len(recs) == 0 {
				fmt.Println("No servers recorded.")
				return nil
			}
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				state := "exited"
				if r.Running {
					state = "running"
				}
				rows = append(rows, []string{
					r.Instance().Addr(),
					strconv.Itoa(r.PID),
					state,
					cli.FormatAge(r.StartedAt),
					strings.Join(r.Command, " "),
				})
			}
			fmt.Println(cli.Table([]string{"ADDR", "PID", "STATE", "STARTED", "COMMAND"}, rows))
			return nil
		})
	},
}

var serverLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the tail of a server's output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(ctx context.Context, s *serverSettings, m *procman.Manager) error {
			lines, err := m.Logs(s.instance())
			if err != nil {
				return err
			}
			if logsLines > 0 && len(lines) > logsLines {
				lines = lines[len(lines)-logsLines:]
			}
			for _, l := range lines {
				fmt.Println(l)
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{serverStartCmd, serverStopCmd, serverStatusCmd, serverLogsCmd} {
		serverAddr.register(c)
	}
	serverStartCmd.Flags().BoolVar(&startWait, "wait", false, "wait until the server accepts connections")
	serverStartCmd.Flags().DurationVar(&startTimeout, "timeout", time.Minute, "how long --wait waits")
	serverStopCmd.Flags().DurationVar(&stopGrace, "grace", procman.DefaultGrace, "time to exit before the server is killed")
	serverLogsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "number of lines to print (0 for all kept lines)")

	serverCmd.AddCommand(serverStartCmd, serverStopCmd, serverStatusCmd, serverListCmd, serverLogsCmd)
	rootCmd.AddCommand(serverCmd)
}

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nadare881/rvc-webui/cmd/rvc/internal/config"
	"github.com/nadare881/rvc-webui/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage contexts and service configuration",
	Long: `Manage contexts and service configurations.

A context is a named directory of per-service YAML files:
  server.yaml   host, port, command, work_dir, model_file, models_dir
  storage.yaml  uri, region, endpoint, path_style, access_key, secret_key

Examples:
  rvc config add-context dev
  rvc config use-context dev
  rvc config set dev server command "python server.py"
  rvc config set dev storage uri s3://models/voras
  rvc config get dev server port`,
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names, err := cfg.ListContexts()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No contexts configured.")
			fmt.Println("Create one with: rvc config add-context <name>")
			return nil
		}
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			services, _ := config.ListServices(cfg.ContextDir(name))
			rows = append(rows, []string{current, name, strings.Join(services, ", ")})
		}
		fmt.Println(cli.Table([]string{"CURRENT", "NAME", "SERVICES"}, rows))
		return nil
	},
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Create a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.AddContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q created.", args[0])
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context and its service configs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted.", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q.", args[0])
		return nil
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Display the current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set.")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <context> <service> <key> <value>",
	Short: "Set a service config value",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, service, key, value := args[0], args[1], args[2], args[3]
		if err := config.ValidateServiceName(service); err != nil {
			return err
		}
		dir, err := cfg.ResolveContext(ctxName)
		if err != nil {
			return err
		}

		m := map[string]any{}
		existing, err := config.LoadService[map[string]any](dir, service)
		switch {
		case err == nil && *existing != nil:
			m = *existing
		case err != nil && !errors.Is(err, config.ErrServiceNotFound):
			return fmt.Errorf("cannot read existing %s config: %w", service, err)
		}
		m[key] = value

		if err := config.SaveService(dir, service, &m); err != nil {
			return err
		}
		fmt.Printf("Set %s.%s = %s (context: %s)\n", service, key, value, ctxName)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <context> <service> <key>",
	Short: "Get a service config value",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, service, key := args[0], args[1], args[2]
		if err := config.ValidateServiceName(service); err != nil {
			return err
		}
		dir, err := cfg.ResolveContext(ctxName)
		if err != nil {
			return err
		}
		m, err := config.LoadService[map[string]any](dir, service)
		if err != nil {
			return err
		}
		val, ok := (*m)[key]
		if !ok {
			return fmt.Errorf("key %q not found in %s config", key, service)
		}
		fmt.Println(val)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)

	rootCmd.AddCommand(configCmd)
}

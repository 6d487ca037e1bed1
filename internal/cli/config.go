package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ito-project/ito/internal/audit"
	"github.com/ito-project/ito/pkg/config"
	"github.com/ito-project/ito/pkg/model"
)

var configCmd = &cobra.Command{
	Use:   "config <command>",
	Short: "Manage ito configuration",
	Long: `Manage ito configuration stored in .ito/config.yaml.

Available commands:
  show              - Show current configuration
  get <key>         - Get a configuration value
  set <key> <value> - Set a configuration value`,
	DisableFlagsInUseLine: true,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			values := make(map[string]string, len(config.Keys()))
			for _, key := range config.Keys() {
				values[key], _ = s.config.Get(key)
			}
			return outputJSON(out, values)
		}

		data, err := yaml.Marshal(s.config)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		fmt.Fprintf(out, "# Location: %s\n\n", config.Path(s.project.ItoDir))
		fmt.Fprint(out, string(data))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value.

Available keys:
  ` + strings.Join(config.Keys(), "\n  "),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		value, err := s.config.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and record the change in the audit log.

Examples:
  ito config set audit.stream.poll_interval 1s
  ito config set audit.validate.strict true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		key, value := args[0], args[1]

		previous, err := s.config.Get(key)
		if err != nil {
			return err
		}
		wasEnabled := s.config.Audit.Enabled
		if err := s.config.Set(key, value); err != nil {
			return err
		}
		if err := config.Save(s.project.ItoDir, s.config); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		current, _ := s.config.Get(key)

		// Turning auditing off is itself recorded.
		w := s.writer()
		if wasEnabled {
			w = audit.NewFileWriter(s.project.AuditLogPath())
		}
		ctx := cmd.Context()
		event, err := model.NewEvent(model.EntityConfig, key, model.OpConfigSet,
			model.WithTransition(previous, current),
			model.WithActor(model.ActorInteractive, s.identity(ctx)),
			model.WithContext(s.eventContext(ctx)),
		)
		if err == nil {
			audit.Emit(w, event)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, current)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

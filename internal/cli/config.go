package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/claudekit-labs/claudekit/internal/branding"
	"github.com/claudekit-labs/claudekit/internal/config"
	"github.com/spf13/cobra"
)

// configKeys are the keys config set accepts.
var configKeys = []string{
	config.KeySource,
	config.KeyCacheTTL,
	config.KeyBackup,
	config.KeyInstallDependencies,
	config.KeyVerbose,
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: `Read and write ` + branding.DisplayName() + ` configuration stored at ~/` + branding.HomeDir() + `/config.yaml.
Every key can also be set through the environment, e.g. ` + branding.EnvVar("SOURCE") + `.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := checkConfigValue(key, value); err != nil {
			return err
		}
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.Get(args[0]))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE")
		for _, key := range configKeys {
			value := config.Get(key)
			if value == "" {
				value = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\n", key, value)
		}
		return tw.Flush()
	},
}

// checkConfigValue rejects unknown keys and values of the wrong shape.
func checkConfigValue(key, value string) error {
	if !slices.Contains(configKeys, key) {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(configKeys, ", "))
	}
	switch key {
	case config.KeyCacheTTL:
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration such as 5m, got %q", key, value)
		}
	case config.KeyBackup, config.KeyInstallDependencies, config.KeyVerbose:
		switch strings.ToLower(value) {
		case "true", "false":
		default:
			return fmt.Errorf("%s must be true or false, got %q", key, value)
		}
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/vstprep/internal/config"
)

// configEnvVars maps config keys to their environment fallbacks.
var configEnvVars = map[string]string{
	config.KeyWorkers:     config.EnvWorkers,
	config.KeyTuningCents: config.EnvTuningCents,
	config.KeyLogLevel:    config.EnvLogLevel,
	config.KeyFFmpegPath:  config.EnvFFmpegPath,
}

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in $XDG_CONFIG_HOME/vstprep/config.yaml
(~/.config/vstprep/config.yaml by default), or in the file given by --config.

Supported settings:
  workers         Concurrent normalization workers (env: VSTPREP_WORKERS)
  tuning-cents    Piano tuning offset in cents (env: VSTPREP_TUNING_CENTS)
  log-level       debug, info, warn or error (env: VSTPREP_LOG_LEVEL)
  pre-roll        Seconds kept before each attack
  threshold       Onset threshold relative to the strongest attack
  min-separation  Minimum seconds between two attacks
  hop-length      Onset analysis hop in samples
  ffmpeg-path     ffmpeg binary (env: FFMPEG_PATH)`,
		Example: `  vstprep config set workers 8
  vstprep config get tuning-cents
  vstprep config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

The value is checked against the setting's range before it is saved.`,
		Example: `  vstprep config set workers 8
  vstprep config set ffmpeg-path ~/bin/ffmpeg`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd, env)
			if err != nil {
				return err
			}
			return runConfigSet(env, path, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  vstprep config get workers`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd, env)
			if err != nil {
				return err
			}
			return runConfigGet(env, path, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable overrides.`,
		Example: `  vstprep config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd, env)
			if err != nil {
				return err
			}
			return runConfigList(env, path)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, path, key, value string) error {
	if key == config.KeyFFmpegPath {
		value = config.ExpandPath(value)
	}
	if err := config.Set(path, key, value); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, path, key string) error {
	value, err := config.Get(path, key)
	if err != nil {
		return err
	}

	// Check environment variable fallback.
	if value == "" {
		if name, ok := configEnvVars[key]; ok {
			value = env.Getenv(name)
		}
	}

	if value != "" {
		_, _ = fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env, path string) error {
	data, err := config.List(path)
	if err != nil {
		return err
	}

	// Add environment variable values for completeness.
	for key, name := range configEnvVars {
		if _, ok := data[key]; ok {
			continue
		}
		if v := env.Getenv(name); v != "" {
			data[key] = v + " (from env)"
		}
	}

	if len(data) == 0 {
		_, _ = fmt.Fprintln(env.Stdout, "No configuration set.")
		_, _ = fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys() {
			_, _ = fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	for _, key := range config.Keys() {
		if v, ok := data[key]; ok {
			_, _ = fmt.Fprintf(env.Stdout, "%s=%s\n", key, v)
		}
	}
	return nil
}

package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mistral-task/internal/config"
	"mistral-task/internal/logger"

	"github.com/spf13/cobra"
)

// current version (hardcoded for now, could be replaced with build flags)
const version = "0.1.0"

// rootCmdState holds the config manager and logger for the command
type rootCmdState struct {
	manager *config.Manager
	logger  *slog.Logger
}

// state is the global state instance for the root command
var state = &rootCmdState{}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if len(path) == 1 {
		return home, nil
	}

	return filepath.Join(home, path[1:]), nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "mistral-task",
	Version:      version,
	Short:        "Run Mistral chat completion tasks from the command line",
	Long: `mistral-task executes workflow-style chat completion task definitions
against the Mistral API. Task files use the engine YAML shape (id, modelName,
messages, optional jsonResponseSchema) and may reference secrets and variables
through {{ secret('NAME') }}, {{ env('NAME') }} and {{ vars.key }} expressions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, err := cmd.Flags().GetBool("debug")
		if err != nil {
			return fmt.Errorf("failed to get debug flag: %w", err)
		}
		state.logger = logger.New(debug)

		state.manager = config.NewManager().WithLogger(state.logger)

		cfgPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return fmt.Errorf("failed to get config flag: %w", err)
		}
		if cfgPath == "" {
			cfgPath = "~/.mistral-task/config.toml"
		}
		cfgPath, err = expandHomePath(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to expand config path: %w", err)
		}

		return state.manager.Load(cfgPath)
	},
}

// Execute is called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is ~/.mistral-task/config.toml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging to stderr")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print resolved task parameters")
}

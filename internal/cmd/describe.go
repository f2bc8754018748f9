package cmd

import (
	"fmt"

	"mistral-task/internal/app"
	"mistral-task/internal/verbose"

	"github.com/spf13/cobra"
)

// describeCmd represents the describe command
var describeCmd = &cobra.Command{
	Use:   "describe <task-file>",
	Short: "Resolve a task definition and show its parameters",
	Long: `Resolve a task definition and display its parameters without calling
the API. Useful to check secret and variable resolution before a real run;
the API key is shown masked.

Examples:
  mistral-task describe task.yml
  mistral-task describe task.yml --var city=Paris`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		varFlags, err := cmd.Flags().GetStringArray("var")
		if err != nil {
			return err
		}
		vars, err := parseVars(varFlags)
		if err != nil {
			return err
		}

		a := app.New(state.manager.Config(), state.logger, false)

		chat, err := a.LoadTask(args[0], vars)
		if err != nil {
			return err
		}

		outputCfg := verbose.DefaultOutputConfig(cmd.OutOrStdout())
		verbose.PrintTaskParameters(chat, "", outputCfg)

		if err := chat.Validate(); err != nil {
			return fmt.Errorf("task is not runnable: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Task is valid and ready to run.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().StringArray("var", nil, "task variable as key=value (repeatable)")
}

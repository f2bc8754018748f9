package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"mistral-task/internal/app"

	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <task-file>",
	Short: "Execute a chat completion task",
	Long: `Execute a chat completion task definition against the Mistral API.

The task file is resolved (secrets, env, vars), validated, and sent as a
single chat completion request. The extracted answer is printed to stdout.

Examples:
  mistral-task run task.yml
  mistral-task run task.yml --var city=Paris --output json
  mistral-task run task.yml --raw`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verboseOutput, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}
		raw, err := cmd.Flags().GetBool("raw")
		if err != nil {
			return err
		}
		outputFormat, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		varFlags, err := cmd.Flags().GetStringArray("var")
		if err != nil {
			return err
		}

		if outputFormat != "text" && outputFormat != "json" {
			return fmt.Errorf("invalid --output %q (want text or json)", outputFormat)
		}

		vars, err := parseVars(varFlags)
		if err != nil {
			return err
		}

		a := app.New(state.manager.Config(), state.logger, verboseOutput)

		out, err := a.Run(cmd.Context(), args[0], vars)
		if err != nil {
			return err
		}

		switch {
		case outputFormat == "json":
			encoded, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode output: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		case raw:
			fmt.Fprintln(cmd.OutOrStdout(), out.Raw)
		default:
			fmt.Fprintln(cmd.OutOrStdout(), out.Response)
		}

		return nil
	},
}

// parseVars converts repeated key=value flags into a variable map
func parseVars(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	vars := make(map[string]string, len(flags))
	for _, f := range flags {
		key, value, found := strings.Cut(f, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --var %q (want key=value)", f)
		}
		vars[key] = value
	}
	return vars, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("raw", false, "print the raw API response body instead of the extracted answer")
	runCmd.Flags().StringP("output", "o", "text", "output format: text or json")
	runCmd.Flags().StringArray("var", nil, "task variable as key=value (repeatable)")
}

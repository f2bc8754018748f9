package cmd

import (
	"fmt"

	"mistral-task/internal/llm/mistral"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// askOne is swappable for tests
var askOne = survey.AskOne

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize mistral-task config through an interactive process",
	Long: `Initialize your mistral-task configuration:
• Store your Mistral API key
• Set the API base URL

Your configuration will be saved to ~/.mistral-task/config.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// create color functions for consistent styling
		cyan := color.New(color.FgCyan).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()

		fmt.Fprintf(cmd.ErrOrStderr(), "\n%s\n", cyan("Welcome to mistral-task"))
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%s\n", "Let's get you set up–this will only take a minute!")

		var apiKey string
		apiKeyPrompt := &survey.Password{
			Message: fmt.Sprintf("%s Enter your Mistral API key:", cyan("🔑")),
			Help:    "Get an API key from https://console.mistral.ai/api-keys",
		}
		if err := askOne(apiKeyPrompt, &apiKey); err != nil {
			return fmt.Errorf("survey error: %w", err)
		}

		var baseURL string
		baseURLPrompt := &survey.Input{
			Message: fmt.Sprintf("%s API base URL:", cyan("🌐")),
			Default: mistral.DefaultBaseURL,
		}
		if err := askOne(baseURLPrompt, &baseURL); err != nil {
			return fmt.Errorf("survey error: %w", err)
		}

		v := state.manager.Viper()
		if apiKey != "" {
			v.Set("mistral.api_key", apiKey)
		}
		v.Set("mistral.base_url", baseURL)

		if err := state.manager.Save(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "\n%s Configuration saved. Try it out:\n", green("✓"))
		fmt.Fprintf(cmd.ErrOrStderr(), "  mistral-task run task.yml\n\n")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

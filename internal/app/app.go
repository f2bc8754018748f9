package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mistral-task/internal/config"
	"mistral-task/internal/llm/mistral"
	"mistral-task/internal/resolver"
	"mistral-task/internal/task"
	"mistral-task/internal/verbose"

	"github.com/google/uuid"
)

// App wires configuration, expression resolution and task execution for the
// CLI and holds its dependencies.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	verbose bool
}

// New creates a new App instance with the provided configuration, logger,
// and verbose setting
func New(cfg *config.Config, logger *slog.Logger, verboseOutput bool) *App {
	return &App{
		cfg:     cfg,
		logger:  logger,
		verbose: verboseOutput,
	}
}

// LoadTask reads a task definition, resolves its expressions, and fills
// provider fallbacks from configuration. The returned task holds only
// concrete values.
func (a *App) LoadTask(path string, vars map[string]string) (*task.ChatCompletion, error) {
	if a.cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}

	chat, err := task.Load(path)
	if err != nil {
		return nil, err
	}

	r := resolver.New(resolver.EnvSecrets{}, vars)
	if err := chat.Resolve(r); err != nil {
		return nil, err
	}

	// configuration supplies provider settings the task file leaves out
	if chat.APIKey == "" {
		chat.APIKey = a.cfg.Mistral.APIKey
	}
	if chat.BaseURL == "" {
		chat.BaseURL = a.cfg.Mistral.BaseURL
	}

	return chat, nil
}

// Run executes a task file end to end and returns its output.
func (a *App) Run(ctx context.Context, taskPath string, vars map[string]string) (*task.Output, error) {
	runID := uuid.NewString()
	log := a.logger.With("run_id", runID)

	chat, err := a.LoadTask(taskPath, vars)
	if err != nil {
		return nil, err
	}

	if a.verbose {
		verbose.PrintTaskParameters(chat, runID, nil)
	}

	log.Debug("Executing chat completion task",
		"task_id", chat.ID,
		"model", chat.ModelName,
		"message_count", len(chat.Messages))

	var opts []mistral.Option
	if a.cfg.Parameters.Timeout > 0 {
		opts = append(opts, mistral.WithHTTPClient(&http.Client{
			Timeout: time.Duration(a.cfg.Parameters.Timeout) * time.Second,
		}))
	}

	out, err := chat.Run(ctx, log, opts...)
	if err != nil {
		return nil, err
	}

	log.Debug("Task completed", "response_length", len(out.Response))

	return out, nil
}

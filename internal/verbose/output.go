package verbose

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"mistral-task/internal/task"

	"github.com/fatih/color"
)

// OutputConfig contains parameters for verbose output formatting
type OutputConfig struct {
	Writer       io.Writer
	KeyColor     *color.Color
	ValueColor   *color.Color
	EnableColors bool
}

// DefaultOutputConfig returns a default configuration for verbose output
func DefaultOutputConfig(writer io.Writer) *OutputConfig {
	return &OutputConfig{
		Writer:       writer,
		KeyColor:     color.New(color.FgCyan, color.Bold),
		ValueColor:   color.New(color.FgMagenta),
		EnableColors: true,
	}
}

// PrintTaskParameters displays the resolved task parameters in a formatted,
// multi-column table. The API key is masked.
func PrintTaskParameters(chat *task.ChatCompletion, runID string, outputCfg *OutputConfig) {
	if outputCfg == nil {
		outputCfg = DefaultOutputConfig(os.Stderr)
	}

	w := tabwriter.NewWriter(outputCfg.Writer, 0, 0, 3, ' ', 0)

	type param struct {
		Key   string
		Value string
	}

	structured := "no"
	if chat.JSONResponseSchema != "" {
		structured = "yes"
	}

	params := []param{
		{Key: "Task", Value: chat.ID},
		{Key: "Model", Value: chat.ModelName},
		{Key: "Base URL", Value: chat.BaseURL},
		{Key: "API Key", Value: MaskKey(chat.APIKey)},
		{Key: "Messages", Value: fmt.Sprintf("%d", len(chat.Messages))},
		{Key: "Structured Output", Value: structured},
	}

	if runID != "" {
		params = append(params, param{Key: "Run ID", Value: runID})
	}

	// print rows in pairs
	for i := 0; i < len(params); i += 2 {
		p1 := params[i]
		if (i + 1) < len(params) {
			p2 := params[i+1]
			printRow(w, outputCfg, p1.Key, p1.Value, p2.Key, p2.Value)
		} else {
			printRow(w, outputCfg, p1.Key, p1.Value, "", "")
		}
	}

	w.Flush()
	fmt.Fprintln(outputCfg.Writer)
}

// printRow writes a single two-pair table row
func printRow(w io.Writer, cfg *OutputConfig, k1, v1, k2, v2 string) {
	if cfg.EnableColors {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			cfg.KeyColor.Sprint(k1), cfg.ValueColor.Sprint(v1),
			cfg.KeyColor.Sprint(k2), cfg.ValueColor.Sprint(v2))
		return
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k1, v1, k2, v2)
}

// MaskKey hides all but the last four characters of an API key
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

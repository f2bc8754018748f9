package task

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"mistral-task/internal/llm/mistral"
	"mistral-task/internal/resolver"
)

// MessageType tags the origin of a chat message.
type MessageType string

const (
	System    MessageType = "SYSTEM"
	Assistant MessageType = "ASSISTANT"
	User      MessageType = "USER"
)

// roles maps the closed message type set to the API role strings.
var roles = map[MessageType]string{
	System:    "system",
	Assistant: "assistant",
	User:      "user",
}

// Message is one conversational entry of a task definition. Content may be
// omitted and defaults to the empty string.
type Message struct {
	Type    MessageType `yaml:"type"`
	Content string      `yaml:"content"`
}

// ChatCompletion is a chat completion task in the workflow engine's YAML
// shape. Property values may contain unresolved expressions; Resolve must
// run before Run.
type ChatCompletion struct {
	ID                 string    `yaml:"id"`
	Type               string    `yaml:"type"`
	APIKey             string    `yaml:"apiKey"`
	ModelName          string    `yaml:"modelName"`
	BaseURL            string    `yaml:"baseUrl"`
	Messages           []Message `yaml:"messages"`
	JSONResponseSchema string    `yaml:"jsonResponseSchema"`
}

// Output is the task result: the extracted assistant text plus the raw
// response body for downstream consumers.
type Output struct {
	Response string `json:"response"`
	Raw      string `json:"raw"`
}

// Load reads a task definition from a YAML file.
func Load(path string) (*ChatCompletion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var t ChatCompletion
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse task file %s: %w", path, err)
	}

	return &t, nil
}

// Resolve renders host-style expressions in every string property in place.
func (t *ChatCompletion) Resolve(r *resolver.Resolver) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"apiKey", &t.APIKey},
		{"modelName", &t.ModelName},
		{"baseUrl", &t.BaseURL},
		{"jsonResponseSchema", &t.JSONResponseSchema},
	}
	for _, f := range fields {
		v, err := r.Resolve(*f.value)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", f.name, err)
		}
		*f.value = v
	}

	for i := range t.Messages {
		v, err := r.Resolve(t.Messages[i].Content)
		if err != nil {
			return fmt.Errorf("failed to resolve message %d: %w", i, err)
		}
		t.Messages[i].Content = v
	}

	return nil
}

// Validate checks the required properties. It runs before any network
// activity so that configuration mistakes never produce an HTTP call.
func (t *ChatCompletion) Validate() error {
	if t.APIKey == "" {
		return fmt.Errorf("apiKey is required")
	}
	if t.ModelName == "" {
		return fmt.Errorf("modelName is required")
	}
	if len(t.Messages) == 0 {
		return fmt.Errorf("at least one message is required")
	}
	for i, m := range t.Messages {
		if _, ok := roles[m.Type]; !ok {
			return fmt.Errorf("message %d: unknown type %q (want SYSTEM, ASSISTANT, or USER)", i, m.Type)
		}
	}
	return nil
}

// APIMessages converts the task messages to wire form, preserving order.
func (t *ChatCompletion) APIMessages() []mistral.Message {
	out := make([]mistral.Message, len(t.Messages))
	for i, m := range t.Messages {
		out[i] = mistral.Message{Role: roles[m.Type], Content: m.Content}
	}
	return out
}

// Run validates the task, builds the request and performs the single chat
// completion call. The HTTP client lives only for the duration of the call.
func (t *ChatCompletion) Run(ctx context.Context, logger *slog.Logger, opts ...mistral.Option) (*Output, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	req := &mistral.ChatRequest{
		Model:    t.ModelName,
		Messages: t.APIMessages(),
	}

	if t.JSONResponseSchema != "" {
		format, err := mistral.BuildResponseFormat(t.JSONResponseSchema)
		if err != nil {
			return nil, err
		}
		req.ResponseFormat = format
	}

	clientOpts := []mistral.Option{mistral.WithBaseURL(t.BaseURL)}
	if logger != nil {
		clientOpts = append(clientOpts, mistral.WithLogger(logger))
	}
	clientOpts = append(clientOpts, opts...)

	client := mistral.NewClient(t.APIKey, clientOpts...)
	defer client.Close()

	result, err := client.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	return &Output{Response: result.Content, Raw: result.Raw}, nil
}

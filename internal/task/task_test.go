package task

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"mistral-task/internal/llm/mistral"
	"mistral-task/internal/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	taskYAML := `
id: chat_completion
type: io.kestra.plugin.mistral.ChatCompletion
apiKey: "{{ secret('MISTRAL_API_KEY') }}"
modelName: open-mistral-7b
messages:
  - type: SYSTEM
    content: You are a helpful assistant, answer concisely.
  - type: USER
    content: "What is the capital of France?"
`
	path := filepath.Join(t.TempDir(), "task.yml")
	require.NoError(t, os.WriteFile(path, []byte(taskYAML), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "chat_completion", loaded.ID)
	assert.Equal(t, "{{ secret('MISTRAL_API_KEY') }}", loaded.APIKey)
	assert.Equal(t, "open-mistral-7b", loaded.ModelName)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, System, loaded.Messages[0].Type)
	assert.Equal(t, User, loaded.Messages[1].Type)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "no-such-task.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read task file")
}

func TestResolve(t *testing.T) {
	t.Setenv("TASK_TEST_API_KEY", "sk-resolved")

	chat := &ChatCompletion{
		APIKey:    "{{ secret('TASK_TEST_API_KEY') }}",
		ModelName: "{{ vars.model }}",
		Messages: []Message{
			{Type: User, Content: "Tell me about {{ vars.topic }}."},
		},
	}

	r := resolver.New(nil, map[string]string{
		"model": "mistral-small-latest",
		"topic": "the Camargue",
	})
	require.NoError(t, chat.Resolve(r))

	assert.Equal(t, "sk-resolved", chat.APIKey)
	assert.Equal(t, "mistral-small-latest", chat.ModelName)
	assert.Equal(t, "Tell me about the Camargue.", chat.Messages[0].Content)
}

func TestResolveUnknownSecret(t *testing.T) {
	chat := &ChatCompletion{
		APIKey:    "{{ secret('TASK_TEST_UNDEFINED') }}",
		ModelName: "open-mistral-7b",
		Messages:  []Message{{Type: User, Content: "hi"}},
	}

	err := chat.Resolve(resolver.New(nil, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve apiKey")
}

func TestValidate(t *testing.T) {
	valid := func() *ChatCompletion {
		return &ChatCompletion{
			APIKey:    "test-key",
			ModelName: "open-mistral-7b",
			Messages:  []Message{{Type: User, Content: "hi"}},
		}
	}

	tests := []struct {
		name          string
		mutate        func(*ChatCompletion)
		errorContains string
	}{
		{
			name:   "valid task",
			mutate: func(*ChatCompletion) {},
		},
		{
			name:          "missing API key",
			mutate:        func(c *ChatCompletion) { c.APIKey = "" },
			errorContains: "apiKey is required",
		},
		{
			name:          "missing model name",
			mutate:        func(c *ChatCompletion) { c.ModelName = "" },
			errorContains: "modelName is required",
		},
		{
			name:          "missing messages",
			mutate:        func(c *ChatCompletion) { c.Messages = nil },
			errorContains: "at least one message is required",
		},
		{
			name:          "unknown message type",
			mutate:        func(c *ChatCompletion) { c.Messages[0].Type = "ROBOT" },
			errorContains: `unknown type "ROBOT"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := valid()
			tt.mutate(chat)
			err := chat.Validate()

			if tt.errorContains == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			}
		})
	}
}

func TestAPIMessages(t *testing.T) {
	chat := &ChatCompletion{
		Messages: []Message{
			{Type: System, Content: "You are a helpful assistant."},
			{Type: User, Content: "What is the capital of France?"},
			{Type: Assistant, Content: "Paris."},
			{Type: User}, // content omitted
		},
	}

	messages := chat.APIMessages()
	require.Len(t, messages, 4)
	assert.Equal(t, mistral.Message{Role: "system", Content: "You are a helpful assistant."}, messages[0])
	assert.Equal(t, mistral.Message{Role: "user", Content: "What is the capital of France?"}, messages[1])
	assert.Equal(t, mistral.Message{Role: "assistant", Content: "Paris."}, messages[2])
	assert.Equal(t, mistral.Message{Role: "user", Content: ""}, messages[3])
}

func TestRunSuccess(t *testing.T) {
	responseBody := `{"choices":[{"message":{"content":"Paris"}}]}`

	var requestCount int
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(responseBody))
	}))
	defer server.Close()

	chat := &ChatCompletion{
		APIKey:    "test-key",
		ModelName: "open-mistral-7b",
		BaseURL:   server.URL,
		Messages: []Message{
			{Type: System, Content: "Answer concisely."},
			{Type: User, Content: "What is the capital of France?"},
		},
	}

	out, err := chat.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Paris", out.Response)
	assert.Equal(t, responseBody, out.Raw)
	assert.Equal(t, 1, requestCount)

	// no schema was supplied, so response_format must be absent entirely
	_, hasFormat := gotBody["response_format"]
	assert.False(t, hasFormat)

	messages, ok := gotBody["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]interface{})
	second := messages[1].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "user", second["role"])
	assert.Equal(t, "What is the capital of France?", second["content"])
}

func TestRunWithStructuredOutput(t *testing.T) {
	schema := `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`

	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"name\":\"Mockingbird\"}"}}]}`))
	}))
	defer server.Close()

	chat := &ChatCompletion{
		APIKey:             "test-key",
		ModelName:          "ministral-8b-latest",
		BaseURL:            server.URL,
		Messages:           []Message{{Type: User, Content: "Extract the book name."}},
		JSONResponseSchema: schema,
	}

	out, err := chat.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Mockingbird"}`, out.Response)

	format, ok := gotBody["response_format"].(map[string]interface{})
	require.True(t, ok, "request body must carry response_format")
	assert.Equal(t, "json_schema", format["type"])

	wrapper, ok := format["json_schema"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "kestra_schema", wrapper["name"])
	assert.Equal(t, true, wrapper["strict"])

	encodedSchema, err := json.Marshal(wrapper["schema"])
	require.NoError(t, err)
	assert.JSONEq(t, schema, string(encodedSchema))
}

func TestRunMalformedSchemaFailsBeforeRequest(t *testing.T) {
	var requestCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
	}))
	defer server.Close()

	chat := &ChatCompletion{
		APIKey:             "test-key",
		ModelName:          "open-mistral-7b",
		BaseURL:            server.URL,
		Messages:           []Message{{Type: User, Content: "hi"}},
		JSONResponseSchema: `{not json`,
	}

	_, err := chat.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON response schema")
	assert.Equal(t, 0, requestCount, "no HTTP request may be issued for a malformed schema")
}

func TestRunValidationFailsBeforeRequest(t *testing.T) {
	var requestCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
	}))
	defer server.Close()

	chat := &ChatCompletion{
		ModelName: "open-mistral-7b",
		BaseURL:   server.URL,
		Messages:  []Message{{Type: User, Content: "hi"}},
	}

	_, err := chat.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKey is required")
	assert.Equal(t, 0, requestCount)
}

func TestRunAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("unauthorized"))
	}))
	defer server.Close()

	chat := &ChatCompletion{
		APIKey:    "bad-key",
		ModelName: "open-mistral-7b",
		BaseURL:   server.URL,
		Messages:  []Message{{Type: User, Content: "hi"}},
	}

	out, err := chat.Run(context.Background(), nil)
	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

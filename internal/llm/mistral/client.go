package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the production Mistral API endpoint.
const DefaultBaseURL = "https://api.mistral.ai/v1"

// Client issues chat completion calls against the Mistral API. A Client is
// acquired for the scope of a single task run and released with Close.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client using the functional options pattern
type Option func(*Client)

// WithBaseURL overrides the API base URL
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger for request/response debugging
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client with sensible defaults
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return c
}

// Close releases connections held by the underlying HTTP client. Callers
// must release the client on every exit path, typically via defer.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Result carries the extracted assistant text plus the unmodified response
// body for downstream consumers that need fields beyond the answer.
type Result struct {
	Content string
	Raw     string
	Usage   Usage
}

// APIError is returned for HTTP responses with status >= 400. The raw
// response body is preserved as diagnostic text.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	// prefer the structured message when the body parses as an API error
	var errResp ErrorResponse
	if err := json.Unmarshal([]byte(e.Body), &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("mistral API error (status %d): %s", e.StatusCode, errResp.Error.Message)
	}
	return fmt.Sprintf("mistral API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Chat performs a single chat completion call. No retries; errors propagate
// to the caller unchanged.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*Result, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := chatCompletionsURL(c.baseURL)
	c.logger.Debug("Sending request to Mistral API",
		"url", url,
		"model", req.Model,
		"message_count", len(req.Messages),
		"structured_output", req.ResponseFormat != nil)

	httpReq, err := newJSONRequest(ctx, url, c.apiKey, jsonData)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("mistral API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Mistral response body: %w", err)
	}

	c.logger.Debug("Received API response",
		"status_code", resp.StatusCode,
		"body_length", len(body))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	result, err := parseResponse(body)
	if err != nil {
		c.logger.Error("Failed to parse Mistral response", "error", err, "body", string(body))
		return nil, err
	}

	c.logger.Debug("Parsed API response",
		"response_length", len(result.Content),
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens,
		"total_tokens", result.Usage.TotalTokens)

	return result, nil
}

// parseResponse extracts choices[0].message.content and keeps the raw body.
// A missing content field yields an empty string; a reply without choices is
// an extraction error rather than silent garbage.
func parseResponse(body []byte) (*Result, error) {
	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Mistral response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in Mistral response")
	}

	return &Result{
		Content: chatResp.Choices[0].Message.Content,
		Raw:     string(body),
		Usage:   chatResp.Usage,
	}, nil
}

// newJSONRequest creates a POST request with standard auth headers
func newJSONRequest(ctx context.Context, url, apiKey string, jsonData []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

	return req, nil
}

// chatCompletionsURL appends the chat completions path to the base URL
func chatCompletionsURL(baseURL string) string {
	return fmt.Sprintf("%s/chat/completions", strings.TrimSuffix(baseURL, "/"))
}

// Package genai provides the OpenAI-backed reply generator for the
// companion. All LLM access goes through ClientInterface so the rest of the
// system can run against a mock, and callers are expected to fall back to a
// canned reply when generation fails.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ErrUnavailable wraps every transport or API failure so callers can switch
// to the heuristic fallback reply with a single errors.Is check.
var ErrUnavailable = errors.New("language model unavailable")

// ClientInterface defines the interface for reply generation.
type ClientInterface interface {
	// GenerateWithMessages produces a completion for the given chat history.
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
	// GenerateStructured produces a completion constrained to the given
	// JSON schema, returning the raw JSON text.
	GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]interface{}) (string, error)
}

// completionService is the minimal surface of the OpenAI chat API the client
// needs, extracted so tests can substitute a mock.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat       completionService
	model      openai.ChatModel
	timeout    time.Duration
	maxRetries int
	backoff    []time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the default chat model.
func WithModel(model openai.ChatModel) Option {
	return func(c *Client) { c.model = model }
}

// WithTimeout sets the per-call deadline applied to each generation attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient initializes a GenAI client with the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		chat:       &cli.Chat.Completions,
		model:      openai.ChatModelGPT4oMini,
		timeout:    20 * time.Second,
		maxRetries: 3,
		backoff:    []time.Duration{2 * time.Second, 8 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GenerateWithMessages produces a completion, retrying rate-limit and server
// errors with backoff. All failures come back wrapped in ErrUnavailable.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	return c.complete(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
}

// GenerateStructured produces a completion constrained to a JSON schema
// (strict structured output) and returns the raw JSON text. Same retry and
// error semantics as GenerateWithMessages.
func (c *Client) GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]interface{}) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	return c.complete(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
}

// complete runs the request through the retry loop.
func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, c.backoffDelay(attempt)); err != nil {
				return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.chat.New(callCtx, params)
		cancel()
		if err != nil {
			lastErr = err
			if isRetryable(err) && attempt < c.maxRetries-1 {
				slog.Warn("GenAI call failed, retrying", "attempt", attempt+1, "error", err)
				continue
			}
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("%w: no choices returned", ErrUnavailable)
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// backoffDelay returns the wait before the given retry attempt.
func (c *Client) backoffDelay(attempt int) time.Duration {
	if len(c.backoff) == 0 {
		return 0
	}
	if attempt-1 < len(c.backoff) {
		return c.backoff[attempt-1]
	}
	return c.backoff[len(c.backoff)-1]
}

// sleepContext sleeps for d unless the context is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isRetryable reports whether the error is a rate limit or server-side
// failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "internal server error") ||
		strings.Contains(msg, "server_error")
}

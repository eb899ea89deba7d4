// Package generate wraps the generative model that turns curriculum documents
// into SQL scripts and evaluable items into teaching artifacts.
package generate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 16000
	maxRetries       = 3
	initialBackoff   = 1 * time.Second
)

// ErrAPIKeyRequired is returned when an API key is needed but not provided.
var ErrAPIKeyRequired = errors.New("API key required")

type Request struct {
	System string
	Prompt string
	// Document is an optional attachment, a PDF or plain text.
	Document  []byte
	MediaType string
}

type Generator interface {
	Generate(ctx context.Context, request Request) (string, error)
}

type Claude struct {
	client         anthropic.Client
	model          anthropic.Model
	maxTokens      int64
	maxRetries     int
	initialBackoff time.Duration
}

// NewClaude creates a client for the Anthropic API. Env var ANTHROPIC_API_KEY
// is used when apiKey is empty.
func NewClaude(apiKey, model string, maxTokens int64, opts ...option.RequestOption) (*Claude, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY environment variable or provide via config", ErrAPIKeyRequired)
	}
	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	// Retries are handled here so that backoff honours ctx.
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)

	return &Claude{
		client:         anthropic.NewClient(opts...),
		model:          anthropic.Model(model),
		maxTokens:      maxTokens,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
	}, nil
}

func (c *Claude) params(request Request) (anthropic.MessageNewParams, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if len(request.Document) > 0 {
		switch request.MediaType {
		case "application/pdf":
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
				Data: base64.StdEncoding.EncodeToString(request.Document),
			}))
		case "", "text/plain", "text/markdown", "text/csv":
			blocks = append(blocks, anthropic.NewTextBlock(string(request.Document)))
		default:
			return anthropic.MessageNewParams{}, fmt.Errorf("unsupported document type %q", request.MediaType)
		}
	}
	blocks = append(blocks, anthropic.NewTextBlock(request.Prompt))

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}
	if request.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: request.System}}
	}
	return params, nil
}

func (c *Claude) backoff(attempt int) time.Duration {
	return c.initialBackoff << (attempt - 1)
}

// Generate sends one message and returns the text of the reply. Rate limits,
// server errors and timeouts are retried up to maxRetries times.
func (c *Claude) Generate(ctx context.Context, request Request) (string, error) {
	params, err := c.params(request)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return messageText(message)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryable(err) {
			return "", fmt.Errorf("generate with %s: %w", c.model, err)
		}
		lastErr = err
	}

	return "", fmt.Errorf("generate with %s: gave up after %d attempts: %w", c.model, c.maxRetries+1, lastErr)
}

func messageText(message *anthropic.Message) (string, error) {
	var text string
	for _, content := range message.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("reply %s has no text", message.ID)
	}
	return text, nil
}

// isRetryable reports whether a failed call may succeed when sent again.
func isRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Describe turns a generation failure into a message for the person at the
// terminal.
func Describe(err error) string {
	var apiErr *anthropic.Error
	switch {
	case errors.Is(err, ErrAPIKeyRequired):
		return "no API key configured: set ANTHROPIC_API_KEY or ai.api-key"
	case errors.Is(err, ErrNoEntities):
		return "the model did not return a usable script, try again or add notes to the request"
	case errors.Is(err, context.DeadlineExceeded):
		return "the AI service took too long to answer"
	case errors.As(err, &apiErr) && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403):
		return "the AI service rejected the API key"
	case errors.As(err, &apiErr) && apiErr.StatusCode == 429:
		return "the AI service is rate limiting requests, try again in a few minutes"
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 500:
		return "the AI service is unavailable, try again later"
	}
	return err.Error()
}

package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider completes chats with the OpenAI Responses API
type OpenAIProvider struct {
	client *openai.Client
	model  string
	// waits between attempts; nil means the package defaults
	rateLimitWaits   []time.Duration
	serverErrorWaits []time.Duration
}

// NewOpenAIProvider creates a new OpenAI provider. baseURL may be empty.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string { return "openai" }

// Model returns the model name
func (p *OpenAIProvider) Model() string { return p.model }

// Complete sends the conversation as a single response request. System turns
// become the request instructions.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	system, turns := splitSystem(messages)

	items := make([]responses.ResponseInputItemUnionParam, 0, len(turns))
	for _, m := range turns {
		role := responses.EasyInputMessageRoleUser
		if m.Role == RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}

	params := responses.ResponseNewParams{
		Model: p.model,
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: items},
	}
	if maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(maxTokens))
	}
	if system != "" {
		params.Instructions = openai.String(system)
	}

	resp, err := CallWithRetry(ctx, p.client, params, p.rateLimitWaits, p.serverErrorWaits)
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("OpenAI returned empty response")
	}
	return text, nil
}

var (
	defaultRateLimitWaits   = []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second}
	defaultServerErrorWaits = []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second}
)

// CallWithRetry retries rate-limited and server-failed requests, sleeping
// the matching wait before each retry. Nil wait lists use the defaults.
func CallWithRetry(ctx context.Context, client *openai.Client, params responses.ResponseNewParams, rateLimitWaits, serverErrorWaits []time.Duration) (*responses.Response, error) {
	const maxRetries = 3
	if rateLimitWaits == nil {
		rateLimitWaits = defaultRateLimitWaits
	}
	if serverErrorWaits == nil {
		serverErrorWaits = defaultServerErrorWaits
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		var wait time.Duration
		switch {
		case isRateLimitError(err) && attempt < maxRetries-1:
			wait = rateLimitWaits[min(attempt, len(rateLimitWaits)-1)]
		case isServerError(err) && attempt < maxRetries-1:
			wait = serverErrorWaits[min(attempt, len(serverErrorWaits)-1)]
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("failed after %d attempts due to OpenAI API issues", maxRetries)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

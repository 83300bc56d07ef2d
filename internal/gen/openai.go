package gen

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mokulua/rlvr/internal/adapters/metrics"
	"github.com/mokulua/rlvr/internal/adapters/retry"
)

var tracer = otel.GetTracerProvider().Tracer("gen/llm")

const (
	defaultSystemPrompt = "You are a Hawaiian language translator."
	defaultCallTimeout  = 8 * time.Second
	defaultMaxTokens    = 2000
)

// LLMConfig holds the chat-completion adapter configuration.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	CallTimeout time.Duration
	// ForceUnitTemperature marks models that only accept their default
	// temperature; the request then omits the field entirely.
	ForceUnitTemperature bool
	SystemPrompt         string
	HTTPClient           *http.Client
}

// LLMOption configures an LLMConfig.
type LLMOption func(*LLMConfig)

func WithTemperature(t float64) LLMOption {
	return func(c *LLMConfig) { c.Temperature = t }
}

func WithTopP(p float64) LLMOption {
	return func(c *LLMConfig) { c.TopP = p }
}

func WithMaxTokens(n int) LLMOption {
	return func(c *LLMConfig) { c.MaxTokens = n }
}

func WithCallTimeout(d time.Duration) LLMOption {
	return func(c *LLMConfig) { c.CallTimeout = d }
}

func WithForceUnitTemperature(force bool) LLMOption {
	return func(c *LLMConfig) { c.ForceUnitTemperature = force }
}

func WithSystemPrompt(prompt string) LLMOption {
	return func(c *LLMConfig) { c.SystemPrompt = prompt }
}

func WithHTTPClient(client *http.Client) LLMOption {
	return func(c *LLMConfig) { c.HTTPClient = client }
}

// LLM generates candidates through an OpenAI-compatible chat-completion
// endpoint, one call per candidate (n=1) so per-call sampling noise
// produces diversity.
type LLM struct {
	client *openai.Client
	cfg    LLMConfig
}

// NewLLM builds the adapter. baseURL is the full API base
// (e.g. "https://api.openai.com/v1").
func NewLLM(baseURL, apiKey, model string, opts ...LLMOption) *LLM {
	cfg := LLMConfig{
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		APIKey:       apiKey,
		Model:        model,
		Temperature:  0.9,
		TopP:         0.95,
		MaxTokens:    defaultMaxTokens,
		CallTimeout:  defaultCallTimeout,
		SystemPrompt: defaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &LLM{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}
}

// Generate issues k sequential completions. An upstream failure becomes
// an error-string candidate so the batch survives; only context
// cancellation aborts the loop.
func (g *LLM) Generate(ctx context.Context, src string, k int, opts Options) ([]string, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	prompt := FormatPrompt(opts.Prompt, src)
	temperature := g.cfg.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := g.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	candidates := make([]string, 0, k)
	for i := 0; i < k; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := g.complete(ctx, prompt, temperature, maxTokens)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			candidates = append(candidates, fmt.Sprintf("[Translation error: %v]", err))
			continue
		}
		candidates = append(candidates, text)
	}
	return candidates, nil
}

func (g *LLM) complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.chat", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", g.cfg.Model),
		attribute.Int("llm.request.max_tokens", maxTokens),
	)

	req := openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.cfg.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		TopP:                float32(g.cfg.TopP),
		MaxCompletionTokens: maxTokens,
		N:                   1,
	}
	if !g.cfg.ForceUnitTemperature {
		req.Temperature = float32(temperature)
		span.SetAttributes(attribute.Float64("llm.request.temperature", temperature))
	}

	var resp openai.ChatCompletionResponse
	start := time.Now()
	err := retry.Do(ctx, retry.LLMConfig(), func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
		var callErr error
		resp, callErr = g.client.CreateChatCompletion(callCtx, req)
		return callErr
	})
	metrics.LLMRequestDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(g.cfg.Model, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	metrics.LLMRequestsTotal.WithLabelValues(g.cfg.Model, "ok").Inc()

	if len(resp.Choices) == 0 {
		span.SetAttributes(attribute.Int("llm.response.choices", 0))
		return "", fmt.Errorf("empty completion response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	span.SetAttributes(attribute.Int("llm.response.content_length", len(content)))
	return content, nil
}

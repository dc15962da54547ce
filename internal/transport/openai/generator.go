package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/domain"
)

// Generator is a chat-completion provider over the OpenAI-compatible API.
// Gemini is reached through its /v1beta/openai/ endpoint.
type Generator struct {
	client      *openai.Client
	model       string
	visionModel string
	temperature float32
	topP        float32
	maxTokens   int
	maxRetries  int
	backoff     time.Duration
	logger      *zap.Logger
}

// Config holds the generation provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string // defaults to Model
	Temperature float32
	TopP        float32
	MaxTokens   int
	MaxRetries  int           // retries on 5xx and 429, default 0
	Backoff     time.Duration // first retry delay, doubled per attempt
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generation provider.
func NewGenerator(cfg *Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	vision := cfg.VisionModel
	if vision == "" {
		vision = cfg.Model
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		visionModel: vision,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		backoff:     backoff,
		logger:      cfg.Logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, prompt domain.Prompt) (domain.Reply, error) {
	req := g.buildRequest(prompt)

	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	delay := g.backoff
	for attempt := 0; ; attempt++ {
		resp, err = g.client.CreateChatCompletion(ctx, req)
		if err == nil || attempt >= g.maxRetries || !retryable(err) {
			break
		}
		g.logger.Warn("Generation request failed, retrying",
			zap.String("model", req.Model),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return domain.Reply{}, classify(ctx, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	if err != nil {
		return domain.Reply{}, classify(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return domain.Reply{}, fmt.Errorf("no choices in completion: %w", domain.ErrGenerationMalformed)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return domain.Reply{}, fmt.Errorf("empty completion text: %w", domain.ErrGenerationMalformed)
	}

	modelID := resp.Model
	if modelID == "" {
		modelID = req.Model
	}

	return domain.Reply{
		Text:         text,
		ModelID:      modelID,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", classify(ctx, err))
	}
	return nil
}

func (g *Generator) buildRequest(prompt domain.Prompt) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		TopP:        g.topP,
		MaxTokens:   g.maxTokens,
	}

	if !prompt.HasImage() {
		req.Messages = []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt.Text,
		}}
		return req
	}

	req.Model = g.visionModel
	dataURL := "data:" + prompt.MIME() + ";base64," + base64.StdEncoding.EncodeToString(prompt.Image)
	req.Messages = []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt.Text},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailAuto,
			}},
		},
	}}
	return req
}

// retryable reports whether the provider may succeed on a second attempt.
func retryable(err error) bool {
	status := statusCode(err)
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// classify maps client failures onto the gateway sentinels.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("generation deadline: %w", domain.ErrGenerationTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("generation transport timeout: %w", domain.ErrGenerationTimeout)
	}
	return parseAPIError(err)
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrGenerationUnavailable for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrGenerationUnavailable

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("generation API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("generation API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("generation API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("generation request failed: %v: %w", err, wrap)
}

// extractDetail pulls the message out of {"detail": ...} and Gemini's [{"error": {"message": ...}}] bodies.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	var gemini []struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &gemini) == nil && len(gemini) > 0 && gemini[0].Error.Message != "" {
		return gemini[0].Error.Message
	}
	return ""
}

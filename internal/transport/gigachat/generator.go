// Package gigachat is a text-only generation provider backed by Sber GigaChat.
package gigachat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/domain"
)

const systemInstruction = "Eres un asistente agronómico experto. Responde siempre en español."

// completeFunc sends one user message and returns the first choice text.
type completeFunc func(ctx context.Context, text string) (string, error)

// Generator implements domain.Generator over the gigago client.
type Generator struct {
	complete completeFunc
	close    func()
	model    string
	logger   *zap.Logger
}

// Config holds the GigaChat settings.
type Config struct {
	APIKey             string
	Scope              string // GIGACHAT_API_PERS by default
	Model              string // default GigaChat
	InsecureSkipVerify bool
	Logger             *zap.Logger
}

// NewGenerator authenticates against GigaChat and prepares the model.
func NewGenerator(ctx context.Context, cfg *Config) (*Generator, error) {
	opts := []gigago.Option{}
	if cfg.Scope != "" {
		opts = append(opts, gigago.WithCustomScope(cfg.Scope))
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		cfg.Logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GigaChat client: %w", errors.Join(err, domain.ErrGenerationUnavailable))
	}

	name := cfg.Model
	if name == "" {
		name = "GigaChat"
	}
	model := client.GenerativeModel(name)
	model.SystemInstruction = systemInstruction

	complete := func(ctx context.Context, text string) (string, error) {
		resp, err := model.Generate(ctx, []gigago.Message{{Role: gigago.RoleUser, Content: text}})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	}

	return newGenerator(complete, client.Close, name, cfg.Logger), nil
}

func newGenerator(complete completeFunc, closeFn func(), model string, logger *zap.Logger) *Generator {
	return &Generator{complete: complete, close: closeFn, model: model, logger: logger}
}

// Generate implements domain.Generator. Images are rejected: the chat endpoint is text-only.
func (g *Generator) Generate(ctx context.Context, prompt domain.Prompt) (domain.Reply, error) {
	if prompt.HasImage() {
		return domain.Reply{}, fmt.Errorf("gigachat %s: %w", g.model, domain.ErrImageNotSupported)
	}

	text, err := g.complete(ctx, prompt.Text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Reply{}, fmt.Errorf("gigachat deadline: %w", domain.ErrGenerationTimeout)
		}
		g.logger.Debug("GigaChat request failed", zap.String("model", g.model), zap.Error(err))
		return domain.Reply{}, fmt.Errorf("gigachat request failed: %v: %w", err, domain.ErrGenerationUnavailable)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Reply{}, fmt.Errorf("gigachat empty reply: %w", domain.ErrGenerationMalformed)
	}

	// gigago does not surface token usage; budget accounting sees zero.
	return domain.Reply{Text: text, ModelID: g.model}, nil
}

// Close releases the underlying client.
func (g *Generator) Close() {
	if g.close != nil {
		g.close()
	}
}

// Package simulated answers generation requests offline when no provider key is configured.
package simulated

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/agroverse/internal/domain"
)

// ModelID is reported on every simulated reply.
const ModelID = "gemini-2.0-flash-simulated"

// Text is the fixed simulated answer.
const Text = "Esta es una respuesta simulada del asistente agronómico. " +
	"En producción, aquí vendría la respuesta generada por Gemini 2.0 Flash " +
	"basada en el contexto RAG y la pregunta del usuario."

// Generator returns a canned reply without network access.
type Generator struct{}

// New creates the offline generator.
func New() *Generator { return &Generator{} }

// Generate implements domain.Generator.
func (Generator) Generate(ctx context.Context, _ domain.Prompt) (domain.Reply, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reply{}, fmt.Errorf("simulated: %w", domain.ErrGenerationTimeout)
	}
	return domain.Reply{Text: Text, ModelID: ModelID}, nil
}

// HealthCheck always succeeds.
func (Generator) HealthCheck(context.Context) error { return nil }

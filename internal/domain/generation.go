package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Generator is the generation gateway contract shared between layers.
// Implementations must honor ctx deadlines and map failures to the
// ErrGeneration* sentinels.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (Reply, error)
}

// HealthChecker verifies generation provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Prompt is a single generation request: text plus an optional inline image.
type Prompt struct {
	Text      string
	Image     []byte
	ImageMIME string // defaults to image/jpeg
}

// HasImage reports whether the prompt carries an image payload.
func (p Prompt) HasImage() bool { return len(p.Image) > 0 }

// MIME returns the image content type, image/jpeg when unset.
func (p Prompt) MIME() string {
	if p.ImageMIME == "" {
		return "image/jpeg"
	}
	return p.ImageMIME
}

// Fingerprint returns a stable digest of the prompt text and image.
func (p Prompt) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(p.Text))
	if p.HasImage() {
		h.Write([]byte{0})
		h.Write([]byte(p.MIME()))
		h.Write([]byte{0})
		h.Write(p.Image)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Reply is the normalized answer of the generative service.
type Reply struct {
	Text         string
	ModelID      string
	PromptTokens int
	TotalTokens  int
	Cached       bool
}

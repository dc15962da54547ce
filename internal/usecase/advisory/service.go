// Package advisory answers farmer questions from the knowledge corpus and the generation gateway.
package advisory

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/domain"
	"github.com/kailas-cloud/agroverse/internal/domain/advisory"
	"github.com/kailas-cloud/agroverse/internal/domain/knowledge"
	"github.com/kailas-cloud/agroverse/internal/metrics"
)

// DefaultTimeout bounds one generation call when none is configured.
const DefaultTimeout = 30 * time.Second

// Catalog is the corpus listing without bodies.
type Catalog struct {
	Version   string
	Documents []knowledge.Summary
}

// ChatInput is one advisory question.
type ChatInput struct {
	Query string
	TopK  int
	User  *advisory.UserContext
}

// ChatOutcome carries the assembled request and either a reply or the generation failure.
// Retrieval data stays valid when generation fails.
type ChatOutcome struct {
	Request       advisory.Request
	Reply         domain.Reply
	GenerationErr error
}

// Answered reports whether the gateway produced a reply.
func (o ChatOutcome) Answered() bool { return o.GenerationErr == nil }

// ImageInput is an image plus the optional question and crop.
type ImageInput struct {
	Image    []byte
	MIME     string
	Query    string
	CropType string
}

// SensorInput is a sensor display photo plus the optional sensor model.
type SensorInput struct {
	Image      []byte
	MIME       string
	SensorType string
}

// SensorReading is the structured sensor extraction.
type SensorReading struct {
	Values map[string]any
	Reply  domain.Reply
}

// Service orchestrates retrieval, prompt assembly and generation.
type Service struct {
	corpus  *knowledge.Corpus
	gen     Generator
	topK    int
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Service. Non-positive topK and timeout take the defaults.
func New(corpus *knowledge.Corpus, gen Generator, topK int, timeout time.Duration, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = knowledge.DefaultTopK
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{corpus: corpus, gen: gen, topK: topK, timeout: timeout, logger: logger}
}

// Documents lists the corpus.
func (s *Service) Documents(_ context.Context) Catalog {
	return Catalog{Version: s.corpus.Version(), Documents: s.corpus.Listing()}
}

// KnowledgeBaseSize returns the number of loaded documents.
func (s *Service) KnowledgeBaseSize() int { return s.corpus.Len() }

// Retrieve ranks the corpus against the query. topK <= 0 uses the service default.
func (s *Service) Retrieve(_ context.Context, query string, topK int) []knowledge.Result {
	if topK <= 0 {
		topK = s.topK
	}
	results := knowledge.Retrieve(query, s.corpus, topK)
	metrics.RetrievalResults.Observe(float64(len(results)))
	return results
}

// Chat retrieves context, assembles the prompt and calls the gateway.
// Only input errors are returned; a gateway failure is reported in the outcome.
func (s *Service) Chat(ctx context.Context, in ChatInput) (ChatOutcome, error) {
	if strings.TrimSpace(in.Query) == "" {
		return ChatOutcome{}, domain.ErrEmptyQuery
	}

	results := s.Retrieve(ctx, in.Query, in.TopK)
	req := advisory.Assemble(in.Query, results, in.User)

	reply, err := s.generate(ctx, req.Generation())
	if err != nil {
		s.logger.Warn("Advisory generation failed",
			zap.Int("results", len(results)),
			zap.Error(err),
		)
		return ChatOutcome{Request: req, GenerationErr: err}, nil
	}
	return ChatOutcome{Request: req, Reply: reply}, nil
}

// AnalyzeImage asks the vision model about a crop photo.
func (s *Service) AnalyzeImage(ctx context.Context, in ImageInput) (domain.Reply, error) {
	mime, err := checkImage(in.Image, in.MIME)
	if err != nil {
		return domain.Reply{}, err
	}

	prompt := domain.Prompt{
		Text:      advisory.AssembleImageAnalysis(in.Query, in.CropType),
		Image:     in.Image,
		ImageMIME: mime,
	}
	reply, err := s.generate(ctx, prompt)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("analyze image: %w", err)
	}
	return reply, nil
}

// ExtractSensorValues reads a sensor display photo into structured values.
func (s *Service) ExtractSensorValues(ctx context.Context, in SensorInput) (SensorReading, error) {
	mime, err := checkImage(in.Image, in.MIME)
	if err != nil {
		return SensorReading{}, err
	}

	prompt := domain.Prompt{
		Text:      advisory.AssembleSensorExtraction(in.SensorType),
		Image:     in.Image,
		ImageMIME: mime,
	}
	reply, err := s.generate(ctx, prompt)
	if err != nil {
		return SensorReading{}, fmt.Errorf("extract sensor values: %w", err)
	}
	return SensorReading{Values: advisory.ExtractJSONObject(reply.Text), Reply: reply}, nil
}

func (s *Service) generate(ctx context.Context, prompt domain.Prompt) (domain.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("generate: %w", err)
	}
	return reply, nil
}

// checkImage validates the payload and resolves its content type.
// A declared image/* type wins; otherwise the bytes are sniffed.
func checkImage(image []byte, declared string) (string, error) {
	if len(image) == 0 {
		return "", domain.ErrImageRequired
	}
	sniffed := http.DetectContentType(image)
	if !strings.HasPrefix(sniffed, "image/") {
		return "", fmt.Errorf("detected %s: %w", sniffed, domain.ErrInvalidImage)
	}
	if strings.HasPrefix(declared, "image/") {
		return declared, nil
	}
	return sniffed, nil
}

package chi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/domain"
	domadvisory "github.com/kailas-cloud/agroverse/internal/domain/advisory"
	"github.com/kailas-cloud/agroverse/internal/domain/feature"
	"github.com/kailas-cloud/agroverse/internal/domain/hazard"
	domusage "github.com/kailas-cloud/agroverse/internal/domain/usage"
	logpkg "github.com/kailas-cloud/agroverse/internal/logger"
	"github.com/kailas-cloud/agroverse/internal/usecase/advisory"
	"github.com/kailas-cloud/agroverse/internal/usecase/briefing"
	healthuc "github.com/kailas-cloud/agroverse/internal/usecase/health"
	"github.com/kailas-cloud/agroverse/internal/usecase/risk"
	usageuc "github.com/kailas-cloud/agroverse/internal/usecase/usage"
	"github.com/kailas-cloud/agroverse/internal/version"
)

// DefaultMaxBodyBytes caps request bodies; images travel inline.
const DefaultMaxBodyBytes = 10 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the agroverse HTTP API.
type Server struct {
	risk          *risk.Service
	advisory      *advisory.Service
	briefing      *briefing.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	riskSvc *risk.Service,
	advisorySvc *advisory.Service,
	briefingSvc *briefing.Service,
	usageSvc *usageuc.Service,
	healthSvc *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		risk:         riskSvc,
		advisory:     advisorySvc,
		briefing:     briefingSvc,
		usage:        usageSvc,
		health:       healthSvc,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		invalidFeatureHandler,
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrImageRequired, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidImage, http.StatusBadRequest, CodeValidationFailed),
		generationErrorHandler,
	}
	return s
}

// WithMaxBodyBytes overrides the request body cap. Non-positive values are ignored.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chirouter.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/usage", s.GetUsage)
	r.Get("/knowledge-base", s.ListKnowledge)
	r.Get("/knowledge/search", s.SearchKnowledge)

	r.Group(func(r chirouter.Router) {
		r.Use(s.limitBody)
		r.Post("/predict/multi", s.PredictMulti)
		r.Post("/predict/{hazard}", s.Predict)
		r.Post("/chat", s.Chat)
		r.Post("/analyze-image", s.AnalyzeImage)
		r.Post("/extract-sensor-values", s.ExtractSensorValues)
		r.Post("/briefing", s.Briefing)
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:            string(report.Status),
		Checks:            checks,
		KnowledgeBaseSize: report.KnowledgeBaseSize,
		Model:             report.Model,
		Version:           version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// GetUsage handles GET /usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid period parameter")
		return
	}
	period, ok := domusage.ParsePeriod(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "period must be day or month")
		return
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := UsageResponse{
		Period:        string(report.Period()),
		PeriodStartAt: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEndAt:   time.UnixMilli(report.PeriodEnd()).UTC(),
		TokensUsed:    report.TokensUsed(),
		Budget: BudgetStatus{
			TokensLimit:     report.Budget().TokensLimit(),
			TokensRemaining: report.Budget().TokensRemaining(),
			IsExhausted:     report.Budget().IsExhausted(),
		},
	}
	if report.Budget().TokensLimit() > 0 && report.Budget().ResetsAt() > 0 {
		resetsAt := time.UnixMilli(report.Budget().ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// Predict handles POST /predict/{hazard}.
func (s *Server) Predict(w http.ResponseWriter, r *http.Request) {
	kind, ok := hazard.ParseKind(chirouter.URLParam(r, "hazard"))
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "unknown hazard")
		return
	}

	raw, ok := s.decodeFeatures(w, r)
	if !ok {
		return
	}

	a, err := s.risk.Score(r.Context(), kind, raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, predictionFromDomain(&a))
}

// PredictMulti handles POST /predict/multi.
func (s *Server) PredictMulti(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.decodeFeatures(w, r)
	if !ok {
		return
	}

	res, err := s.risk.ScoreAll(r.Context(), raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, multiFromDomain(res))
}

// ListKnowledge handles GET /knowledge-base.
func (s *Server) ListKnowledge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalogFromDomain(s.advisory.Documents(r.Context())))
}

// SearchKnowledge handles GET /knowledge/search?query=&top_k=.
func (s *Server) SearchKnowledge(w http.ResponseWriter, r *http.Request) {
	// A missing or blank query is not an error; it matches nothing.
	var query string
	if err := runtime.BindQueryParameter("form", true, false, "query", r.URL.Query(), &query); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query must be a string")
		return
	}
	var topK int
	if err := runtime.BindQueryParameter("form", true, false, "top_k", r.URL.Query(), &topK); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "top_k must be an integer")
		return
	}

	results := s.advisory.Retrieve(r.Context(), query, topK)
	writeJSON(w, http.StatusOK, SearchResponse{Query: query, Results: retrievedFromDomain(results)})
}

// Chat handles POST /chat. A generation failure still answers 200 with the retrieval data.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	out, err := s.advisory.Chat(r.Context(), advisory.ChatInput{
		Query: req.Query,
		TopK:  derefInt(req.TopK),
		User:  req.UserData.toDomain(),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setGenerationHeaders(w, domain.UsageFromContext(r.Context()))
	writeJSON(w, http.StatusOK, chatFromDomain(out))
}

// AnalyzeImage handles POST /analyze-image as JSON (base64 image) or multipart form.
func (s *Server) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var in advisory.ImageInput
	if isMultipart(r) {
		img, mime, err := s.readUpload(r)
		if err != nil {
			s.handleUploadError(w, r, err)
			return
		}
		in = advisory.ImageInput{Image: img, MIME: mime, Query: r.FormValue("query"), CropType: r.FormValue("crop_type")}
	} else {
		var req ImageRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		img, mime, err := decodeImage(req.Image, req.MIMEType)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		in = advisory.ImageInput{Image: img, MIME: mime, Query: req.Query, CropType: req.CropType}
	}

	reply, err := s.advisory.AnalyzeImage(r.Context(), in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	crop := strings.TrimSpace(in.CropType)
	if crop == "" {
		crop = domadvisory.DefaultCropType
	}
	setGenerationHeaders(w, domain.UsageFromContext(r.Context()))
	writeJSON(w, http.StatusOK, ImageAnalysisResponse{
		Analysis: reply.Text,
		CropType: crop,
		Model:    reply.ModelID,
		Cached:   reply.Cached,
	})
}

// ExtractSensorValues handles POST /extract-sensor-values as JSON (base64 image) or multipart form.
func (s *Server) ExtractSensorValues(w http.ResponseWriter, r *http.Request) {
	var in advisory.SensorInput
	if isMultipart(r) {
		img, mime, err := s.readUpload(r)
		if err != nil {
			s.handleUploadError(w, r, err)
			return
		}
		in = advisory.SensorInput{Image: img, MIME: mime, SensorType: r.FormValue("sensor_type")}
	} else {
		var req SensorRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		img, mime, err := decodeImage(req.Image, req.MIMEType)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		in = advisory.SensorInput{Image: img, MIME: mime, SensorType: req.SensorType}
	}

	reading, err := s.advisory.ExtractSensorValues(r.Context(), in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	sensor := strings.TrimSpace(in.SensorType)
	if sensor == "" {
		sensor = domadvisory.DefaultSensorType
	}
	setGenerationHeaders(w, domain.UsageFromContext(r.Context()))
	writeJSON(w, http.StatusOK, SensorResponse{
		ExtractedValues: reading.Values,
		SensorType:      sensor,
		Model:           reading.Reply.ModelID,
	})
}

// Briefing handles POST /briefing. Hazards are always returned; a generation
// failure is reported inside the advisory part.
func (s *Server) Briefing(w http.ResponseWriter, r *http.Request) {
	var req BriefingRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	b, err := s.briefing.Run(r.Context(), briefing.Input{
		Features: req.Features,
		Question: req.Question,
		TopK:     derefInt(req.TopK),
		User:     req.UserData.toDomain(),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setGenerationHeaders(w, domain.UsageFromContext(r.Context()))
	writeJSON(w, http.StatusOK, BriefingResponse{
		MultiPredictionResponse: multiFromDomain(b.Risk),
		Query:                   b.Query,
		Advisory:                chatFromDomain(b.Advisory),
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// decodeJSON decodes the request body into dst, writing a 4xx on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeFeatures reads a flat feature record. An empty body is an empty record.
func (s *Server) decodeFeatures(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	raw := map[string]any{}
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "request body must be a JSON object of features")
		return nil, false
	}
	return raw, true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readUpload returns the "image" file of a multipart form with its declared type.
func (s *Server) readUpload(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(s.maxBodyBytes); err != nil {
		return nil, "", fmt.Errorf("parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", domain.ErrImageRequired
	}
	if err != nil {
		return nil, "", fmt.Errorf("read image part: %w", err)
	}
	defer func() { _ = file.Close() }()

	img, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read image part: %w", err)
	}
	return img, header.Header.Get("Content-Type"), nil
}

func (s *Server) handleUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, domain.ErrImageRequired):
		s.handleDomainError(w, r, err)
	default:
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid multipart form")
	}
}

// decodeImage decodes a base64 payload, optionally wrapped as a data URL.
// The data URL media type is used when none is declared.
func decodeImage(encoded, declared string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, "", domain.ErrImageRequired
	}
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("data url without payload: %w", domain.ErrInvalidImage)
		}
		if declared == "" {
			declared, _, _ = strings.Cut(meta, ";")
		}
		encoded = payload
	}

	img, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		img, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", domain.ErrInvalidImage)
	}
	return img, declared, nil
}

func setGenerationHeaders(w http.ResponseWriter, usage *domain.GenerationUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Generation-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var ife *feature.InvalidFeatureError
	if errors.As(err, &ife) {
		return ife.Error()
	}
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrImageRequired,
		domain.ErrInvalidImage,
		domain.ErrGenerationTimeout,
		domain.ErrGenerationUnavailable,
		domain.ErrGenerationMalformed,
		domain.ErrGenerationBudgetExceeded,
		domain.ErrImageNotSupported,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// invalidFeatureHandler reports the offending key of a rejected observation.
func invalidFeatureHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInvalidFeature) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeInvalidFeature, msg)
	return true
}

func generationErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	code, status := generationErrorCode(err)
	if status == 0 {
		return false
	}
	writeError(w, status, code, msg)
	return true
}

// generationErrorCode maps a gateway failure to its code and HTTP status.
// Status is 0 when err is not a gateway failure.
func generationErrorCode(err error) (ErrorCode, int) {
	switch {
	case errors.Is(err, domain.ErrGenerationBudgetExceeded):
		return CodeBudgetExceeded, http.StatusTooManyRequests
	case errors.Is(err, domain.ErrGenerationTimeout):
		return CodeGenerationTimeout, http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrGenerationMalformed):
		return CodeGenerationMalformed, http.StatusBadGateway
	case errors.Is(err, domain.ErrImageNotSupported):
		return CodeImageNotSupported, http.StatusNotImplemented
	case errors.Is(err, domain.ErrGenerationUnavailable):
		return CodeGenerationUnavailable, http.StatusBadGateway
	default:
		return CodeInternalError, 0
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

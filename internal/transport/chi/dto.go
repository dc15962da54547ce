package chi

import (
	"time"

	domadvisory "github.com/kailas-cloud/agroverse/internal/domain/advisory"
	"github.com/kailas-cloud/agroverse/internal/domain/feature"
	"github.com/kailas-cloud/agroverse/internal/domain/hazard"
	"github.com/kailas-cloud/agroverse/internal/domain/knowledge"
	"github.com/kailas-cloud/agroverse/internal/usecase/advisory"
	"github.com/kailas-cloud/agroverse/internal/usecase/risk"
)

// ErrorCode is the machine-readable error code returned to clients.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest            ErrorCode = "bad_request"
	CodeUnauthorized          ErrorCode = "unauthorized"
	CodeNotFound              ErrorCode = "not_found"
	CodeInvalidFeature        ErrorCode = "invalid_feature"
	CodeValidationFailed      ErrorCode = "validation_failed"
	CodeGenerationTimeout     ErrorCode = "generation_timeout"
	CodeGenerationUnavailable ErrorCode = "generation_unavailable"
	CodeGenerationMalformed   ErrorCode = "generation_malformed"
	CodeBudgetExceeded        ErrorCode = "generation_budget_exceeded"
	CodeImageNotSupported     ErrorCode = "image_not_supported"
	CodePayloadTooLarge       ErrorCode = "payload_too_large"
	CodeInternalError         ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status            string            `json:"status"`
	Checks            map[string]string `json:"checks"`
	KnowledgeBaseSize int               `json:"knowledge_base_size"`
	Model             string            `json:"model"`
	Version           string            `json:"version"`
}

// UsageResponse is the GET /usage body.
type UsageResponse struct {
	Period        string       `json:"period"`
	PeriodStartAt time.Time    `json:"period_start_at"`
	PeriodEndAt   time.Time    `json:"period_end_at"`
	TokensUsed    int64        `json:"tokens_used"`
	Budget        BudgetStatus `json:"budget"`
}

// BudgetStatus is the token budget part of UsageResponse.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// Location echoes the coordinates supplied with an observation.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PredictionResponse is the body of POST /predict/{hazard}.
type PredictionResponse struct {
	Hazard     string         `json:"hazard"`
	Prediction map[string]any `json:"prediction"`
}

// OverallRisk is the aggregate of the three hazards.
type OverallRisk struct {
	Score float64 `json:"score"`
	Level string  `json:"level"`
}

// MultiPredictionResponse is the body of POST /predict/multi.
type MultiPredictionResponse struct {
	ID          string                    `json:"id"`
	Predictions map[string]map[string]any `json:"predictions"`
	OverallRisk OverallRisk               `json:"overall_risk"`
	AssessedAt  time.Time                 `json:"assessed_at"`
	Location    *Location                 `json:"location,omitempty"`
}

// DocumentSummary lists one corpus document.
type DocumentSummary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Source   string   `json:"source"`
	Keywords []string `json:"keywords"`
}

// KnowledgeBaseResponse is the GET /knowledge-base body.
type KnowledgeBaseResponse struct {
	Version        string            `json:"version"`
	TotalDocuments int               `json:"total_documents"`
	Documents      []DocumentSummary `json:"documents"`
}

// RetrievedDocument is one ranked retrieval hit.
type RetrievedDocument struct {
	ID             string  `json:"document_id"`
	Title          string  `json:"document_title"`
	Source         string  `json:"document_source"`
	RelevanceScore float64 `json:"relevance_score"`
}

// SearchResponse is the GET /knowledge/search body.
type SearchResponse struct {
	Query   string              `json:"query"`
	Results []RetrievedDocument `json:"results"`
}

// UserData is optional information about the farmer.
type UserData struct {
	Crops      []string `json:"crops,omitempty"`
	Location   string   `json:"location,omitempty"`
	Experience string   `json:"experience,omitempty"`
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Query    string    `json:"query"`
	TopK     *int      `json:"top_k,omitempty"`
	UserData *UserData `json:"user_data,omitempty"`
}

// ChatResponse is the POST /chat body. Retrieval data is present even when
// generation failed; the failure is reported in GenerationError.
type ChatResponse struct {
	Response          string              `json:"response"`
	Sources           []string            `json:"sources"`
	RelevantDocuments []RetrievedDocument `json:"relevant_documents"`
	Model             string              `json:"model,omitempty"`
	Cached            bool                `json:"cached"`
	GenerationError   *ErrorResponse      `json:"generation_error,omitempty"`
}

// ImageRequest is the JSON form of POST /analyze-image.
type ImageRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mime_type,omitempty"`
	Query    string `json:"query,omitempty"`
	CropType string `json:"crop_type,omitempty"`
}

// ImageAnalysisResponse is the POST /analyze-image body.
type ImageAnalysisResponse struct {
	Analysis string `json:"analysis"`
	CropType string `json:"crop_type"`
	Model    string `json:"model"`
	Cached   bool   `json:"cached"`
}

// SensorRequest is the JSON form of POST /extract-sensor-values.
type SensorRequest struct {
	Image      string `json:"image"`
	MIMEType   string `json:"mime_type,omitempty"`
	SensorType string `json:"sensor_type,omitempty"`
}

// SensorResponse is the POST /extract-sensor-values body.
type SensorResponse struct {
	ExtractedValues map[string]any `json:"extracted_values"`
	SensorType      string         `json:"sensor_type"`
	Model           string         `json:"model"`
}

// BriefingRequest is the POST /briefing body.
type BriefingRequest struct {
	Features map[string]any `json:"features"`
	Question string         `json:"question,omitempty"`
	TopK     *int           `json:"top_k,omitempty"`
	UserData *UserData      `json:"user_data,omitempty"`
}

// BriefingResponse is the POST /briefing body.
type BriefingResponse struct {
	MultiPredictionResponse
	Query    string       `json:"query"`
	Advisory ChatResponse `json:"advisory"`
}

func (u *UserData) toDomain() *domadvisory.UserContext {
	if u == nil {
		return nil
	}
	return &domadvisory.UserContext{Crops: u.Crops, Location: u.Location, Experience: u.Experience}
}

func predictionFromDomain(a *hazard.Assessment) PredictionResponse {
	return PredictionResponse{Hazard: string(a.Kind()), Prediction: a.Record()}
}

func multiFromDomain(res risk.Result) MultiPredictionResponse {
	preds := make(map[string]map[string]any, len(res.Batch.Assessments))
	for i := range res.Batch.Assessments {
		a := &res.Batch.Assessments[i]
		preds[string(a.Kind())] = a.Record()
	}

	out := MultiPredictionResponse{
		ID:          res.Batch.ID,
		Predictions: preds,
		OverallRisk: OverallRisk{Score: res.Aggregate.Score(), Level: string(res.Aggregate.Level())},
		AssessedAt:  res.Batch.AssessedAt.UTC(),
	}
	fs := res.Batch.Features
	if fs.Has(feature.Latitude) && fs.Has(feature.Longitude) {
		out.Location = &Location{Latitude: fs.Latitude, Longitude: fs.Longitude}
	}
	return out
}

func retrievedFromDomain(results []knowledge.Result) []RetrievedDocument {
	out := make([]RetrievedDocument, len(results))
	for i, r := range results {
		d := r.Document()
		out[i] = RetrievedDocument{ID: d.ID(), Title: d.Title(), Source: d.Source(), RelevanceScore: r.Score()}
	}
	return out
}

func catalogFromDomain(c advisory.Catalog) KnowledgeBaseResponse {
	docs := make([]DocumentSummary, len(c.Documents))
	for i, d := range c.Documents {
		docs[i] = DocumentSummary{ID: d.ID, Title: d.Title, Source: d.Source, Keywords: d.Keywords}
	}
	return KnowledgeBaseResponse{Version: c.Version, TotalDocuments: len(docs), Documents: docs}
}

func chatFromDomain(out advisory.ChatOutcome) ChatResponse {
	resp := ChatResponse{
		Sources:           out.Request.Sources(),
		RelevantDocuments: retrievedFromDomain(out.Request.Results()),
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	if !out.Answered() {
		code, _ := generationErrorCode(out.GenerationErr)
		resp.GenerationError = &ErrorResponse{Code: code, Message: safeDomainMessage(out.GenerationErr)}
		return resp
	}
	resp.Response = out.Reply.Text
	resp.Model = out.Reply.ModelID
	resp.Cached = out.Reply.Cached
	return resp
}

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/domain"
)

// chatRequest mirrors the fields of the chat-completion request the tests inspect.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func completion(model, text string, prompt, total int) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": text},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": prompt, "completion_tokens": total - prompt, "total_tokens": total},
	}
}

func newTestGenerator(url string, retries int) *Generator {
	return NewGenerator(&Config{
		APIKey:      "test-key",
		BaseURL:     url,
		Model:       "gemini-2.0-flash",
		VisionModel: "gemini-2.0-flash-vision",
		Temperature: 0.7,
		TopP:        0.95,
		MaxTokens:   2048,
		MaxRetries:  retries,
		Backoff:     time.Millisecond,
		Logger:      zap.NewNop(),
	})
}

func TestGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gemini-2.0-flash" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("gemini-2.0-flash", "  Riegue al amanecer.  ", 90, 130))
	}))
	defer server.Close()

	reply, err := newTestGenerator(server.URL, 0).Generate(context.Background(), domain.Prompt{Text: "¿Cuándo riego?"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply.Text != "Riegue al amanecer." {
		t.Errorf("Text = %q", reply.Text)
	}
	if reply.ModelID != "gemini-2.0-flash" {
		t.Errorf("ModelID = %q", reply.ModelID)
	}
	if reply.PromptTokens != 90 || reply.TotalTokens != 130 {
		t.Errorf("usage = %d/%d", reply.PromptTokens, reply.TotalTokens)
	}
}

func TestGenerator_GenerateWithImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gemini-2.0-flash-vision" {
			t.Errorf("image prompts must use the vision model, got %q", req.Model)
		}
		content := string(req.Messages[0].Content)
		if !strings.Contains(content, "data:image/png;base64,AQID") {
			t.Errorf("image part missing: %s", content)
		}
		if !strings.Contains(content, "analiza la hoja") {
			t.Errorf("text part missing: %s", content)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("gemini-2.0-flash-vision", "Tizón tardío.", 300, 340))
	}))
	defer server.Close()

	reply, err := newTestGenerator(server.URL, 0).Generate(context.Background(), domain.Prompt{
		Text: "analiza la hoja", Image: []byte{1, 2, 3}, ImageMIME: "image/png",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply.Text != "Tizón tardío." {
		t.Errorf("Text = %q", reply.Text)
	}
}

func TestGenerator_NoChoicesIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL, 0).Generate(context.Background(), domain.Prompt{Text: "q"})
	if !errors.Is(err, domain.ErrGenerationMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestGenerator_EmptyTextIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("m", "   ", 1, 1))
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL, 0).Generate(context.Background(), domain.Prompt{Text: "q"})
	if !errors.Is(err, domain.ErrGenerationMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestGenerator_APIErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL, 0).Generate(context.Background(), domain.Prompt{Text: "q"})
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("error should carry provider message: %v", err)
	}
}

func TestGenerator_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(completion("m", "ok", 1, 2))
	}))
	defer server.Close()

	reply, err := newTestGenerator(server.URL, 2).Generate(context.Background(), domain.Prompt{Text: "q"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply.Text != "ok" || calls.Load() != 2 {
		t.Errorf("reply=%q calls=%d", reply.Text, calls.Load())
	}
}

func TestGenerator_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer server.Close()

	if _, err := newTestGenerator(server.URL, 3).Generate(context.Background(), domain.Prompt{Text: "q"}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestGenerator_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestGenerator(server.URL, 0).Generate(ctx, domain.Prompt{Text: "q"})
	if !errors.Is(err, domain.ErrGenerationTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestGenerator_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gemini-2.0-flash","object":"model"}]}`))
	}))
	defer server.Close()

	if err := newTestGenerator(server.URL, 0).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"quota"}`)); got != "quota" {
		t.Errorf("detail = %q", got)
	}
	if got := extractDetail([]byte(`[{"error":{"code":400,"message":"bad image"}}]`)); got != "bad image" {
		t.Errorf("gemini detail = %q", got)
	}
	if got := extractDetail([]byte(`<html>`)); got != "" {
		t.Errorf("unexpected detail %q", got)
	}
}

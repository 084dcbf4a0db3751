package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func completionResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if err := json.NewEncoder(w).Encode(completionResponse(`{"ok":true}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientClassifyRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := `{"operation":"Remove_Region","confidence":0.92,"reasoning":"user wants the watermark gone","suggested_params":{"target":"watermark"}}`
		if err := json.NewEncoder(w).Encode(completionResponse(body)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	result, err := client.ClassifyRequest(context.Background(), "please remove the watermark")
	if err != nil {
		t.Fatalf("ClassifyRequest returned error: %v", err)
	}
	if result.Operation != "remove_region" {
		t.Fatalf("unexpected operation %q", result.Operation)
	}
	if result.Confidence != 0.92 {
		t.Fatalf("unexpected confidence %v", result.Confidence)
	}
	if result.SuggestedParams["target"] != "watermark" {
		t.Fatalf("unexpected params %v", result.SuggestedParams)
	}
}

func TestClientClassifyRequestCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := "```json\n{\"operation\":\"restore\",\"confidence\":1.4,\"reasoning\":\"blurry photo\"}\n```"
		if err := json.NewEncoder(w).Encode(completionResponse(body)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	result, err := client.ClassifyRequest(context.Background(), "fix this blurry photo")
	if err != nil {
		t.Fatalf("ClassifyRequest returned error: %v", err)
	}
	if result.Operation != "restore" {
		t.Fatalf("unexpected operation %q", result.Operation)
	}
	if result.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %v", result.Confidence)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if err := json.NewEncoder(w).Encode(completionResponse(`{"ok":true}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
	)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 requests, got %d", got)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
	)
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single request, got %d", got)
	}
}

func TestDecodeLLMJSONSanitizes(t *testing.T) {
	var target struct {
		Operation string `json:"operation"`
	}
	content := "The classification is:\n```json\n{\"operation\": \"beautify\"}\n```"
	if err := DecodeLLMJSON(content, &target); err != nil {
		t.Fatalf("DecodeLLMJSON returned error: %v", err)
	}
	if target.Operation != "beautify" {
		t.Fatalf("unexpected operation %q", target.Operation)
	}
}

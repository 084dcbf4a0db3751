package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minhduonq/deep-vision/internal/config"
)

const defaultInvokeTimeout = 120 * time.Second

// HTTPProvider talks to a hosted transformation backend over a JSON POST
// contract: the request carries the operation, prompt, and base64 input
// image; the response returns the transformed image the same way.
type HTTPProvider struct {
	name       string
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPProvider constructs a backend client from its endpoint settings.
func NewHTTPProvider(name string, endpoint config.ProviderEndpoint) *HTTPProvider {
	timeout := defaultInvokeTimeout
	if endpoint.TimeoutSeconds > 0 {
		timeout = time.Duration(endpoint.TimeoutSeconds) * time.Second
	}
	return &HTTPProvider{
		name:       name,
		baseURL:    strings.TrimSpace(endpoint.BaseURL),
		model:      strings.TrimSpace(endpoint.Model),
		apiKey:     strings.TrimSpace(endpoint.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (p *HTTPProvider) Name() string { return p.name }

type invokeRequest struct {
	TaskID    string         `json:"task_id"`
	Operation string         `json:"operation"`
	Model     string         `json:"model,omitempty"`
	Prompt    string         `json:"prompt"`
	Image     string         `json:"image,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

type invokeResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
}

// Invoke performs one transformation attempt. A response with success=false
// is returned as an unsuccessful Result, not an error, so the selector can
// distinguish "backend declined" from "backend unreachable" in logs while
// treating both as chain advances.
func (p *HTTPProvider) Invoke(ctx context.Context, req Request) (Result, error) {
	if p.baseURL == "" {
		return Result{}, fmt.Errorf("provider %s: base url not configured", p.name)
	}

	payload := invokeRequest{
		TaskID:    req.TaskID,
		Operation: string(req.Operation),
		Model:     p.model,
		Prompt:    req.Prompt,
		Params:    req.Params,
	}
	if req.InputRef != "" {
		data, err := os.ReadFile(req.InputRef)
		if err != nil {
			return Result{}, fmt.Errorf("provider %s: read input: %w", p.name, err)
		}
		payload.Image = base64.StdEncoding.EncodeToString(data)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("provider %s: encode request: %w", p.name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return Result{}, fmt.Errorf("provider %s: new request: %w", p.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("provider %s: http error: %w", p.name, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("provider %s: read body: %w", p.name, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Result{}, fmt.Errorf("provider %s: http %d: %s", p.name, resp.StatusCode, summarizeBody(body))
	}

	var decoded invokeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{}, fmt.Errorf("provider %s: decode response: %w", p.name, err)
	}
	if !decoded.Success {
		detail := decoded.Error
		if detail == "" {
			detail = decoded.Detail
		}
		return Result{Success: false, Detail: detail}, nil
	}
	if strings.TrimSpace(decoded.Image) == "" {
		return Result{Success: false, Detail: "backend returned success without image data"}, nil
	}

	image, err := base64.StdEncoding.DecodeString(decoded.Image)
	if err != nil {
		return Result{}, fmt.Errorf("provider %s: decode image payload: %w", p.name, err)
	}
	outputRef, err := writeOutput(req, p.name, image)
	if err != nil {
		return Result{}, fmt.Errorf("provider %s: %w", p.name, err)
	}
	return Result{Success: true, OutputRef: outputRef, Detail: decoded.Detail}, nil
}

// HealthCheck verifies the endpoint is configured and reachable. Any HTTP
// answer below 500 counts as alive; auth rejections still prove liveness.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	if p.baseURL == "" {
		return fmt.Errorf("provider %s: base url not configured", p.name)
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(checkCtx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return fmt.Errorf("provider %s: new request: %w", p.name, err)
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("provider %s: unreachable: %w", p.name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("provider %s: endpoint unhealthy (http %d)", p.name, resp.StatusCode)
	}
	return nil
}

func writeOutput(req Request, providerName string, data []byte) (string, error) {
	if req.OutputDir == "" {
		return "", errors.New("output directory not set")
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s.png", req.TaskID, req.Operation, providerName)
	outputRef := filepath.Join(req.OutputDir, name)
	if err := os.WriteFile(outputRef, data, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return outputRef, nil
}

func summarizeBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}

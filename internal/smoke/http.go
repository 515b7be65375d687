package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"
)

// HTTPClient talks to the faceattr API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// StatusError is returned for non-200 answers.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// NewHTTPClient creates a client with the given per-request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Health calls GET /api/py/health.
func (c *HTTPClient) Health(ctx context.Context) (Health, error) {
	var h Health
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/py/health", http.NoBody)
	if err != nil {
		return h, fmt.Errorf("failed to create request: %w", err)
	}
	err = c.do(req, &h)
	return h, err
}

// Analyze uploads one image.
func (c *HTTPClient) Analyze(ctx context.Context, requestID, filename string, data []byte) (Prediction, []byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return Prediction{}, nil, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Prediction{}, nil, fmt.Errorf("failed to build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Prediction{}, nil, fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/py/analyze-face", &body)
	if err != nil {
		return Prediction{}, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Request-ID", requestID)

	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return Prediction{}, nil, err
	}
	var p Prediction
	if err := json.Unmarshal(raw, &p); err != nil {
		return Prediction{}, nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return p, raw, nil
}

// SaveAnalysis posts raw back as the predictions payload.
func (c *HTTPClient) SaveAnalysis(ctx context.Context, requestID string, raw json.RawMessage) error {
	payload, err := json.Marshal(struct {
		Predictions json.RawMessage `json:"predictions"`
	}{raw})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/py/save-analysis", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	var status struct {
		Status string `json:"status"`
	}
	if err := c.do(req, &status); err != nil {
		return err
	}
	if status.Status != "success" {
		return fmt.Errorf("save-analysis status %q", status.Status)
	}
	return nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/guyettinger/gle-vision-chat/internal/analysis"
	apperrors "github.com/guyettinger/gle-vision-chat/internal/errors"
	"github.com/guyettinger/gle-vision-chat/internal/transport"
)

// Client submits analysis requests to a running vision-chat server. It
// implements session.Analyzer; any error it returns is transport-level by
// definition, since the server side of a successful exchange never fails.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze POSTs the question and images to /api/analyze and returns the
// per-image results.
func (c *Client) Analyze(ctx context.Context, question string, images []string) ([]analysis.PerImageResult, error) {
	body, err := json.Marshal(transport.AnalyzeRequest{Question: question, Images: images})
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to encode analysis request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to build analysis request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("Failed to reach the analysis service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromStatus(resp)
	}

	var out transport.AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.NewNetworkError("Received an unreadable response from the analysis service", err)
	}
	return out.Results, nil
}

// errorFromStatus maps a non-200 response to an AppError, preferring the
// server's own error message when the body carries one.
func errorFromStatus(resp *http.Response) error {
	message := fmt.Sprintf("analysis service returned status %d", resp.StatusCode)
	var body transport.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && strings.TrimSpace(body.Error) != "" {
		message = body.Error
	}

	// 4xx means the request itself was rejected; nothing to retry
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return apperrors.NewValidationError(message, nil)
	}
	return apperrors.NewInternalError(message, nil)
}

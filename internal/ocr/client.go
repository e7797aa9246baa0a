// Package ocr calls the text-recognition service that turns a photographed
// page into plain text. Handwriting-capable recognition lives behind this
// HTTP boundary; the scanner only ever sees the recognized text.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client communicates with the recognition HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type recognizeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Recognize submits image bytes and returns the recognized page text.
func (c *Client) Recognize(ctx context.Context, image []byte, contentType string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recognize: status %d: %s", resp.StatusCode, string(respBody))
	}

	var rec recognizeResponse
	if err := json.Unmarshal(respBody, &rec); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if rec.Error != "" {
		return "", fmt.Errorf("recognize: %s", rec.Error)
	}
	return rec.Text, nil
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

// Package history talks to the scan-history HTTP service that keeps a
// learner's past analyses. A nil *Client disables persistence: every method
// degrades to a no-op so the pipeline never branches on configuration.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/huugi-star/potenote-scanner-sub000/internal/grammar"
)

// Client communicates with the scan-history HTTP API.
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
			Timeout: 30 * time.Second,
		},
	}
}

// ScanRecord is the stored form of one completed scan.
type ScanRecord struct {
	ScanID    string            `json:"scan_id"`
	Title     string            `json:"title,omitempty"`
	Source    string            `json:"source,omitempty"`
	CreatedAt string            `json:"created_at,omitempty"`
	Document  *grammar.Document `json:"document"`
}

// ScanSummary is one entry from a listing.
type ScanSummary struct {
	ScanID    string `json:"scan_id"`
	Title     string `json:"title,omitempty"`
	Sentences int    `json:"sentences"`
	CreatedAt string `json:"created_at,omitempty"`
}

// PutScan stores or replaces a scan record.
func (c *Client) PutScan(ctx context.Context, rec ScanRecord) error {
	if c == nil {
		return nil
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal scan: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/scans/"+url.PathEscape(rec.ScanID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("put scan: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("put scan %s: status %d: %s", rec.ScanID, resp.StatusCode, string(respBody))
	}
	return nil
}

// GetScan retrieves a stored scan. A missing scan returns (nil, nil).
func (c *Client) GetScan(ctx context.Context, scanID string) (*ScanRecord, error) {
	if c == nil {
		return nil, nil
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scans/"+url.PathEscape(scanID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("get scan %s: status %d: %s", scanID, resp.StatusCode, string(respBody))
	}

	var rec ScanRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode scan: %w", err)
	}
	return &rec, nil
}

// ListScans returns recent scan summaries, newest first.
func (c *Client) ListScans(ctx context.Context, limit int) ([]ScanSummary, error) {
	if c == nil {
		return nil, nil
	}
	u := c.baseURL + "/scans"
	if limit > 0 {
		u += "?limit=" + url.QueryEscape(fmt.Sprintf("%d", limit))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("list scans: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Scans []ScanSummary `json:"scans"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode scans: %w", err)
	}
	return result.Scans, nil
}

// DeleteScan removes a stored scan.
func (c *Client) DeleteScan(ctx context.Context, scanID string) error {
	if c == nil {
		return nil
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/scans/"+url.PathEscape(scanID), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("delete scan %s: status %d: %s", scanID, resp.StatusCode, string(respBody))
	}
	return nil
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

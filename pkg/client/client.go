// Package client is the Go SDK for the granite risk engine API. It speaks
// the same DTOs the server publishes in pkg/types/risk and maps structured
// error bodies back to APIError values.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	riskTypes "github.com/granite-grc/granite/pkg/types/risk"
)

// Version of the SDK, sent in the User-Agent header.
const Version = "0.1.0"

// APIError is a structured error response from the engine.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("granite: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound reports whether the server answered 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// Client calls the engine's HTTP API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option customises the Client.
type Option func(*Client)

// WithHTTPClient substitutes the transport, usually for timeouts or test
// doubles.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New builds a Client for the engine at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "granite-go/" + Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score fetches the derived scoring of a stored risk.
func (c *Client) Score(ctx context.Context, riskID string) (*riskTypes.ScoreDTO, error) {
	var dto riskTypes.ScoreDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/risks/"+url.PathEscape(riskID)+"/score", nil, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// Compliance fetches the compliance findings of a stored risk.
func (c *Client) Compliance(ctx context.Context, riskID string) (*riskTypes.ComplianceDTO, error) {
	var dto riskTypes.ComplianceDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/risks/"+url.PathEscape(riskID)+"/compliance", nil, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// SaveRisk upserts a register entry. created is true when the id was new.
func (c *Client) SaveRisk(ctx context.Context, riskID string, req riskTypes.UpsertRiskRequest) (created bool, err error) {
	var ref riskTypes.RiskRefDTO
	status, err := c.doWithStatus(ctx, http.MethodPut, "/api/v1/risks/"+url.PathEscape(riskID), req, &ref)
	if err != nil {
		return false, err
	}
	return status == http.StatusCreated, nil
}

// DeleteRisk removes a register entry.
func (c *Client) DeleteRisk(ctx context.Context, riskID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/risks/"+url.PathEscape(riskID), nil, nil)
}

// StartScan begins an on-demand similarity scan and returns its id for
// polling. limit <= 0 uses the server default.
func (c *Client) StartScan(ctx context.Context, riskID string, limit int) (string, error) {
	path := "/api/v1/risks/" + url.PathEscape(riskID) + "/similar"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp riskTypes.StartScanResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.ScanID, nil
}

// ScanStatus polls one scan.
func (c *Client) ScanStatus(ctx context.Context, scanID string) (*riskTypes.ScanStatusDTO, error) {
	var dto riskTypes.ScanStatusDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/scans/"+url.PathEscape(scanID), nil, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// CancelScan cancels an in-flight scan. Unknown scans are a no-op.
func (c *Client) CancelScan(ctx context.Context, scanID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/scans/"+url.PathEscape(scanID), nil, nil)
}

// WaitForScan polls a scan until it reaches a terminal state or ctx expires.
// onProgress, when non-nil, receives every polled status.
func (c *Client) WaitForScan(ctx context.Context, scanID string, interval time.Duration, onProgress func(riskTypes.ScanStatusDTO)) (*riskTypes.ScanStatusDTO, error) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.ScanStatus(ctx, scanID)
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(*status)
		}
		if status.State == "COMPLETED" || status.State == "FAILED" {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// SimilarRisks runs a blocking scan and returns the ranked matches.
func (c *Client) SimilarRisks(ctx context.Context, riskID string, limit int) ([]riskTypes.SimilarRiskDTO, error) {
	path := "/api/v1/risks/" + url.PathEscape(riskID) + "/similar"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp riskTypes.SimilarRisksResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.SimilarRisks, nil
}

// CheckSimilarity runs the pre-save duplicate check for unsaved risk text.
func (c *Client) CheckSimilarity(ctx context.Context, req riskTypes.CheckSimilarityRequest) ([]riskTypes.SimilarRiskDTO, error) {
	var resp riskTypes.SimilarRisksResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/risks/check-similarity", req, &resp); err != nil {
		return nil, err
	}
	return resp.SimilarRisks, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	_, err := c.doWithStatus(ctx, method, path, body, out)
	return err
}

func (c *Client) doWithStatus(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("granite: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("granite: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("granite: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "UNKNOWN", Message: resp.Status}
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr == nil && len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		return resp.StatusCode, apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("granite: decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// Package automation talks to the external browser-automation service that
// runs natural-language goals against job boards.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-scout/internal/utils"
)

const (
	startPath   = "/v1/automation/run-async"
	runsPath    = "/v1/runs/"
	userAgent   = "spigell/opportunity-scout"
	contentType = "application/json"

	// DefaultRequestTimeout bounds every single call to the service.
	DefaultRequestTimeout = 5 * time.Minute

	bodyPreviewLength = 300
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bad status: %s", e.Status)
	}
	return fmt.Sprintf("bad status: %s: %s", e.Status, e.Body)
}

type Client struct {
	baseURL    string
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

// New returns a client for the service at baseURL. A non-positive timeout
// falls back to DefaultRequestTimeout.
func New(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("automation base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid automation base url %q: %w", baseURL, err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("automation api key is required")
	}

	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		logger:  logger,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
	}, nil
}

// Start launches a run and returns its id without waiting for completion.
func (c *Client) Start(ctx context.Context, r Request) (string, error) {
	var response struct {
		RunID string `json:"run_id"`
		ID    string `json:"id"`
	}

	if err := c.doJSON(ctx, http.MethodPost, startPath, r, &response); err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}

	runID := firstNonEmpty(response.RunID, response.ID)
	if runID == "" {
		return "", errors.New("start run: automation service returned empty run id")
	}

	return runID, nil
}

// Status fetches the current state of a run.
func (c *Client) Status(ctx context.Context, runID string) (*RunStatus, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("run id is required")
	}

	var body map[string]any
	if err := c.doJSON(ctx, http.MethodGet, runsPath+url.PathEscape(runID), nil, &body); err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	if body == nil {
		body = make(map[string]any)
	}

	return parseStatus(runID, body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, target any) error {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	c.logger.Debug("got response from automation service",
		zap.String("url", req.URL.String()),
		zap.Int("status_code", resp.StatusCode),
		zap.String("body_preview", utils.TruncateForLog(string(data), bodyPreviewLength)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   utils.TruncateForLog(string(data), bodyPreviewLength),
		}
	}

	if target == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)

	return req
}

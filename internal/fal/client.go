// Package fal implements the video and audio generation backends on the
// fal.ai model queue. A submission returns a request handle; the client
// polls the handle until the model finishes, then fetches the payload.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the fal.ai queue endpoint.
const DefaultBaseURL = "https://queue.fal.run"

// DefaultTimeout bounds a single HTTP round trip, not the full queue wait.
const DefaultTimeout = 30 * time.Second

// DefaultPollInterval paces status polling while a request is queued.
const DefaultPollInterval = 2 * time.Second

// APIError represents a non-success response from the queue API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fal API error for %s: %s: %v", e.Endpoint, e.Message, e.Cause)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fal API error for %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fal API error for %s: %s", e.Endpoint, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// retryable reports whether the failure is worth a local retry. Server
// errors and transport failures are; client errors are not.
func (e *APIError) retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Options configures the queue client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
}

// DefaultOptions returns sensible defaults for production use.
func DefaultOptions() *Options {
	return &Options{
		BaseURL:      DefaultBaseURL,
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
	}
}

// Client is a thin fal.ai queue client shared by the generation backends.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
}

// NewClient creates a queue client authenticated with the given API key.
func NewClient(apiKey string, opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Client{
		httpClient:   &http.Client{Timeout: opts.Timeout},
		baseURL:      opts.BaseURL,
		apiKey:       apiKey,
		pollInterval: opts.PollInterval,
	}
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// run submits a generation request to a model endpoint, waits for it to
// complete, and decodes the payload into out.
func (c *Client) run(ctx context.Context, endpoint string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &APIError{Endpoint: endpoint, Message: "failed to encode request", Cause: err}
	}

	var sub submitResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body), &sub); err != nil {
		return err
	}
	if sub.StatusURL == "" || sub.ResponseURL == "" {
		return &APIError{Endpoint: endpoint, Message: "queue handle missing status or response URL"}
	}

	for {
		var status statusResponse
		if err := c.do(ctx, http.MethodGet, sub.StatusURL, nil, &status); err != nil {
			return err
		}
		switch status.Status {
		case "COMPLETED":
			return c.do(ctx, http.MethodGet, sub.ResponseURL, nil, out)
		case "IN_QUEUE", "IN_PROGRESS":
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.pollInterval):
			}
		default:
			return &APIError{Endpoint: endpoint, Message: fmt.Sprintf("request %s failed: %s", sub.RequestID, status.Error)}
		}
	}
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &APIError{Endpoint: url, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Endpoint: url, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Endpoint: url, StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Endpoint: url, StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{Endpoint: url, StatusCode: resp.StatusCode, Message: "failed to decode response", Cause: err}
	}
	return nil
}

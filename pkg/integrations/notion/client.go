package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/beam-cloud/onleads/pkg/types"
)

const (
	DefaultAPIBase    = "https://api.notion.com/v1"
	DefaultAPIVersion = "2022-06-28"
	DefaultTimeout    = 60 * time.Second
)

// API call counter reported by `status`
var notionAPICallCount int64

// GetAPICallCount returns the number of Notion API calls made by this process
func GetAPICallCount() int64 {
	return atomic.LoadInt64(&notionAPICallCount)
}

// APIError is the error object Notion returns with non-2xx responses
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("notion API error %d", e.Status)
	}
	return fmt.Sprintf("notion API error %d: %s", e.Status, e.Message)
}

// Client is a thin Notion REST client
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Version    string
	token      string
}

// NewClient creates a new Notion API client
func NewClient(token, baseURL, version string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	if version == "" {
		version = DefaultAPIVersion
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Version:    version,
		token:      token,
	}
}

// Get makes a GET request to the Notion API
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post makes a POST request to the Notion API
func (c *Client) Post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Patch makes a PATCH request to the Notion API
func (c *Client) Patch(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPatch, path, body, result)
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	atomic.AddInt64(&notionAPICallCount, 1)

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.Version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// asBackendError maps a client failure onto the error taxonomy. A 404 from Notion
// becomes a NotFoundError for the given record.
func asBackendError(op string, kind types.RecordKind, id string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusNotFound && id != "" {
			return &types.NotFoundError{Kind: kind, ID: id}
		}
		return &types.BackendError{Op: op, Status: apiErr.Status, Code: apiErr.Code, Err: err}
	}
	return &types.BackendError{Op: op, Err: err}
}

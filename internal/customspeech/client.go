// Package customspeech is a thin client for the speech platform's custom
// model REST API: projects, datasets, models, evaluations and endpoints.
package customspeech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIVersion is the REST API version segment.
const DefaultAPIVersion = "v3.2"

const subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// APIError is a non-2xx response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client calls one speech resource. Every method issues a single request;
// there are no retries.
type Client struct {
	BaseURL    string
	APIVersion string
	Key        string
	HTTPClient *http.Client
}

// NewClient returns a client for baseURL (e.g. https://westeurope.api.cognitive.microsoft.com).
func NewClient(baseURL, key string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIVersion: DefaultAPIVersion,
		Key:        key,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) apiRoot() string {
	version := c.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return c.BaseURL + "/" + version
}

// URL returns the absolute URL of a collection path such as "projects/123".
func (c *Client) URL(path string) string {
	return c.apiRoot() + "/" + strings.TrimLeft(path, "/")
}

// Ref builds the `{"self": ...}` reference the API expects for linked entities.
func (c *Client) Ref(path string) *Ref {
	return &Ref{Self: c.URL(path)}
}

// IDFromSelf returns the last path segment of an entity's self URL.
func IDFromSelf(self string) string {
	self = strings.TrimRight(self, "/")
	if i := strings.LastIndex(self, "/"); i >= 0 {
		return self[i+1:]
	}
	return self
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// do sends one request to an absolute URL. body, when non-nil, is sent as
// JSON; out, when non-nil, receives the decoded JSON response.
func (c *Client) do(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body for %s %s: %w", method, url, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request %s %s: %w", method, url, err)
	}
	req.Header.Set(subscriptionKeyHeader, c.Key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body from %s %s: %w", method, url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, url, err)
	}
	return nil
}

// create posts body to a collection and returns the new entity's ID.
func (c *Client) create(ctx context.Context, collection string, body interface{}) (string, error) {
	var created Entity
	if err := c.do(ctx, http.MethodPost, c.URL(collection), body, &created); err != nil {
		return "", err
	}
	if created.Self == "" {
		return "", fmt.Errorf("create %s: response has no self link", collection)
	}
	return IDFromSelf(created.Self), nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, c.URL(path), nil, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, c.URL(path), nil, nil)
}

// FetchContent downloads a result file. Content URLs are pre-signed, so no
// key header is sent.
func (c *Client) FetchContent(ctx context.Context, contentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create content request: %w", err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Method: http.MethodGet, URL: contentURL, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

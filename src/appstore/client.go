// Package appstore provides a typed client for the App Store Connect API.
package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// APIBaseURL is the base URL for the App Store Connect API.
const APIBaseURL = "https://api.appstoreconnect.apple.com/v1"

// Client is an App Store Connect API client. Every request carries a
// freshly minted bearer token; the client performs no implicit retries
// so mutation endpoints keep at-most-once semantics. Callers that want
// retry for idempotent GETs layer it on top.
type Client struct {
	tokens     *TokenSource
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new App Store Connect API client. baseURL may be
// empty to use the production API; timeout bounds every call (zero means
// 30 seconds).
func NewClient(tokens *TokenSource, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = APIBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// Get performs an authenticated GET against path (relative to the base
// URL) with the given query parameters and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, params map[string]string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// Post performs an authenticated POST with a JSON body and decodes the
// response into out when out is non-nil.
func (c *Client) Post(ctx context.Context, path string, requestBody any, out any) error {
	body, err := c.do(ctx, http.MethodPost, path, nil, requestBody)
	if err != nil {
		return err
	}
	if out != nil {
		return json.Unmarshal(body, out)
	}
	return nil
}

// Delete performs an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// do executes one authenticated request. Non-2xx responses become an
// *APIError built from the API's error envelope; transport failures
// propagate unchanged so callers can tell "the API said no" from "we
// never reached the API".
func (c *Client) do(ctx context.Context, method, path string, params map[string]string, requestBody any) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + encodeParams(params)
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("appstore: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("appstore: creating request: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("appstore: reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	return body, nil
}

// encodeParams builds a query string with stable key ordering so equal
// parameter maps produce identical request URLs.
func encodeParams(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

// parseAPIError builds an APIError from the structured error envelope,
// falling back to the raw body when the envelope does not parse.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var envelope errorEnvelope
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Errors) > 0 {
		for _, e := range envelope.Errors {
			detail := e.Detail
			if detail == "" {
				detail = e.Title
			}
			if detail != "" {
				apiErr.Details = append(apiErr.Details, detail)
			}
		}
	}
	if len(apiErr.Details) == 0 && len(body) > 0 {
		apiErr.Details = []string{string(body)}
	}

	return apiErr
}

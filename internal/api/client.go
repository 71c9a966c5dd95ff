package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"careercatalyst/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "CAREERCATALYST_HTTP_TIMEOUT"
	sessionTokenEnvKey = "CAREERCATALYST_TOKEN"
	adminTokenEnvKey   = "CAREERCATALYST_ADMIN_TOKEN"

	// AdminTokenHeader carries the operator token on admin routes.
	AdminTokenHeader = "X-Admin-Token"
)

// Client is a small HTTP client for the CareerCatalyst API.
type Client struct {
	baseURL    string
	http       *http.Client
	authToken  string
	adminToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken:  strings.TrimSpace(os.Getenv(sessionTokenEnvKey)),
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
	}
}

// WithToken returns a copy of the client that sends token as its session.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.authToken = strings.TrimSpace(token)
	return &clone
}

// HasSession reports whether requests carry a session token.
func (c *Client) HasSession() bool {
	return c.authToken != ""
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

func (c *Client) ListInstitutions(ctx context.Context) ([]InstitutionSummary, error) {
	var resp []InstitutionSummary
	err := c.do(ctx, http.MethodGet, "/v1/institutions", nil, nil, &resp)
	return resp, err
}

// Login authenticates an account of the given kind and remembers the
// returned session token for later calls.
func (c *Client) Login(ctx context.Context, kind models.AccountKind, req LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	path := "/v1/" + string(kind) + "s/login"
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return resp, err
	}
	c.authToken = resp.Token
	return resp, nil
}

func (c *Client) Me(ctx context.Context) (AccountResponse, error) {
	var resp AccountResponse
	err := c.do(ctx, http.MethodGet, "/v1/me", nil, nil, &resp)
	return resp, err
}

// Reconcile runs the drift sweep on the server. Applying sends the
// confirmation header the server requires for destructive admin calls.
// A zero grace uses the server default.
func (c *Client) Reconcile(ctx context.Context, apply bool, grace time.Duration) (ReconcileResponse, error) {
	var resp ReconcileResponse
	query := url.Values{}
	header := http.Header{}
	if grace > 0 {
		query.Set("grace", grace.String())
	}
	if apply {
		query.Set("apply", "true")
		header.Set("X-Confirm", "true")
	}
	err := c.doWithHeader(ctx, http.MethodPost, "/v1/admin/reconcile", query, header, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	return c.doWithHeader(ctx, method, path, query, nil, body, out)
}

func (c *Client) doWithHeader(ctx context.Context, method, path string, query url.Values, header http.Header, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)
	if strings.HasPrefix(path, "/v1/admin/") {
		c.setAdminHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func (c *Client) setAdminHeader(req *http.Request) {
	if c.adminToken == "" || req == nil {
		return
	}
	req.Header.Set(AdminTokenHeader, c.adminToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}

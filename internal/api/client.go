package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// SessionTokenHeader carries the session token on authenticated requests.
const SessionTokenHeader = "X-Session-Token"

const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Client talks to the chat REST API. A Client without a token is anonymous
// and can only reach public endpoints such as login and configuration.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	mu            sync.RWMutex
	configuration *Configuration
}

// New returns a Client for the API rooted at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := NormalizeBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: base, token: opts.Token, http: httpClient}, nil
}

// NormalizeBaseURL validates an http(s) API origin and trims trailing slashes.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("api url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	case "":
		return "", fmt.Errorf("api url must include scheme")
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	return strings.TrimRight(raw, "/"), nil
}

// WithSession returns a Client for the same origin authenticated with token.
// The cached configuration and HTTP transport are shared.
func (c *Client) WithSession(token string) *Client {
	out := &Client{baseURL: c.baseURL, token: token, http: c.http}
	out.configuration = c.Configuration()
	return out
}

// WithBaseURL returns an anonymous Client for another API origin that reuses
// this client's transport.
func (c *Client) WithBaseURL(raw string) (*Client, error) {
	return New(Options{BaseURL: raw, HTTPClient: c.http})
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the session token, empty for anonymous clients.
func (c *Client) Token() string { return c.token }

// HTTPClient returns the underlying transport.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Configuration returns the cached server configuration, nil before the
// first successful FetchConfiguration.
func (c *Client) Configuration() *Configuration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configuration
}

// FetchConfiguration loads GET / and caches it.
func (c *Client) FetchConfiguration(ctx context.Context) (*Configuration, error) {
	var cfg Configuration
	if err := c.do(ctx, http.MethodGet, "/", nil, &cfg); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.configuration = &cfg
	c.mu.Unlock()
	return &cfg, nil
}

// Login submits credentials or a verification response.
func (c *Client) Login(ctx context.Context, data DataLogin) (LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/session/login", data, &out); err != nil {
		return LoginResponse{}, err
	}
	return out, nil
}

// Logout revokes the client's session on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/session/logout", nil, nil)
}

// Self returns the user owning the session.
func (c *Client) Self(ctx context.Context) (User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/users/@me", nil, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// QueryMessages runs an administrative message search.
func (c *Client) QueryMessages(ctx context.Context, query MessageQuery) (MessageQueryResponse, error) {
	var out MessageQueryResponse
	if err := c.do(ctx, http.MethodPost, "/admin/messages", query, &out); err != nil {
		return MessageQueryResponse{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(SessionTokenHeader, c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type errorBody struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Type = body.Type
	apiErr.Message = body.Error
	return apiErr
}

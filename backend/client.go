// Package backend talks to the estate API's authentication endpoints.
package backend

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

// ErrRejected is returned when the backend refuses the credentials or the refresh token.
var ErrRejected = errors.New("backend rejected credentials")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. with one that adds a bearer token.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout. A client passed with WithHTTPClient is
// copied first and left unchanged.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		httpClient := *c.httpClient
		httpClient.Timeout = timeout
		c.httpClient = &httpClient
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds *Credentials) (TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, http.MethodPost, "/login", LoginRequest{Login: creds.Login, Password: string(creds.Password)}, &pair)
	return pair, err
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, login, refreshToken string) (TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, http.MethodPost, "/refresh", RefreshRequest{Login: login, RefreshToken: refreshToken}, &pair)
	return pair, err
}

// Me returns the profile of the bearer of the request's token. The client must
// have been built WithHTTPClient carrying that token.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, http.MethodGet, "/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled: %w", ctx.Err())
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", ctx.Err())
	}
	return fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
}

func handleErrorResponse(resp *http.Response) error {
	var errResp ErrorResponse
	detail := ""
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		detail = errResp.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrRejected, detail)
		}
		return ErrRejected
	}
	if detail != "" {
		return fmt.Errorf("backend error (status %d): %s", resp.StatusCode, detail)
	}
	return fmt.Errorf("backend returned status %d", resp.StatusCode)
}

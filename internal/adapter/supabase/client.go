// Package supabase talks to a Supabase-compatible backend: the GoTrue auth
// API and the PostgREST data API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/heartmarshall/promptly/internal/config"
)

const (
	authPath = "/auth/v1"
	restPath = "/rest/v1"

	retryDelay = 500 * time.Millisecond
)

// Client is the low-level HTTP client shared by AuthClient and PromptRepo.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client for the project at cfg.URL.
func NewClient(cfg config.SupabaseConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", "supabase"),
	}
}

// request describes one API call. Body is JSON-encoded when non-nil.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	token  string
	header map[string]string
	// retry allows one retry on network errors and 5xx. Only set for
	// idempotent calls.
	retry bool
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	token := r.token
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}
	return req, nil
}

// do executes r and returns the response body of a 2xx reply. Non-2xx replies
// are returned as *apiError.
func (c *Client) do(ctx context.Context, r request) (int, []byte, error) {
	attempts := uint(1)
	if r.retry {
		attempts = 2
	}

	var (
		status int
		body   []byte
	)
	err := retry.Do(
		func() error {
			req, err := c.newRequest(ctx, r)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			status = resp.StatusCode
			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			if status >= 500 {
				return parseAPIError(status, body)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(_ uint, err error) {
			c.log.WarnContext(ctx, "supabase retry",
				slog.String("method", r.method),
				slog.String("path", r.path),
				slog.String("reason", err.Error()),
			)
		}),
	)
	if err != nil {
		return status, nil, err
	}
	if status < 200 || status > 299 {
		return status, body, parseAPIError(status, body)
	}
	return status, body, nil
}

// apiError is the union of GoTrue and PostgREST error payloads.
type apiError struct {
	Status int `json:"-"`

	// PostgREST
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`

	// GoTrue
	ErrorCode        string `json:"error_code"`
	ErrorName        string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

func (e *apiError) Error() string {
	msg := e.Message
	for _, alt := range []string{e.ErrorDescription, e.Msg, e.ErrorName} {
		if msg == "" {
			msg = alt
		}
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.ErrorCode != "" {
		return fmt.Sprintf("%s (%s)", msg, e.ErrorCode)
	}
	return msg
}

func parseAPIError(status int, body []byte) *apiError {
	e := &apiError{}
	// PostgREST sends code as a string, GoTrue sometimes as a number.
	if err := json.Unmarshal(body, e); err != nil {
		var loose struct {
			Message string `json:"message"`
			Msg     string `json:"msg"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(body, &loose) == nil {
			e = &apiError{Message: loose.Message, Msg: loose.Msg, ErrorName: loose.Error}
		} else {
			e = &apiError{Message: strings.TrimSpace(string(body))}
		}
	}
	e.Status = status
	return e
}

// statusOf returns the HTTP status carried by err, or 0.
func statusOf(err error) int {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// Ping checks that the auth API answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.do(ctx, request{method: http.MethodGet, path: authPath + "/health"})
	if err != nil {
		return fmt.Errorf("supabase health: %w", err)
	}
	return nil
}

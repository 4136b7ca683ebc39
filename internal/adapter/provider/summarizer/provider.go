package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/heartmarshall/promptly/internal/config"
	"github.com/heartmarshall/promptly/internal/domain"
)

// Instruction is prepended to every text sent for summarization.
const Instruction = "Summarize the following text into a concise 1–2 line paragraph, preserving key details:\n\n"

const (
	defaultBaseURL = "http://localhost:5000"
	summarizePath  = "/api/summarize"
	retryDelay     = 500 * time.Millisecond
)

// Provider calls the external summarization endpoint.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewProvider creates a Provider from configuration.
func NewProvider(cfg config.SummarizerConfig, logger *slog.Logger) *Provider {
	return NewProviderWithURL(cfg.BaseURL, cfg.Timeout, logger)
}

// NewProviderWithURL creates a Provider with a custom base URL (for testing).
// Trailing slashes are trimmed; an empty URL means the local default.
func NewProviderWithURL(baseURL string, timeout time.Duration, logger *slog.Logger) *Provider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("adapter", "summarizer"),
	}
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Summary *string `json:"summary"`
}

// Summarize returns a short summary of text. Non-2xx replies, undecodable
// bodies and missing or empty summaries are *domain.SummarizationError.
func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(summarizeRequest{Text: Instruction + text})
	if err != nil {
		return "", &domain.SummarizationError{Err: fmt.Errorf("encode request: %w", err)}
	}

	p.log.DebugContext(ctx, "summarizer request", slog.Int("chars", len(text)))

	status, body, err := p.doWithRetry(ctx, payload)
	if err != nil {
		p.log.ErrorContext(ctx, "summarizer request failed",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		return "", &domain.SummarizationError{Status: status, Err: err}
	}

	if status < 200 || status > 299 {
		return "", &domain.SummarizationError{Status: status, Err: fmt.Errorf("unexpected status: %s", snippet(body))}
	}

	var resp summarizeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &domain.SummarizationError{Status: status, Err: fmt.Errorf("decode json: %w", err)}
	}
	if resp.Summary == nil || strings.TrimSpace(*resp.Summary) == "" {
		return "", &domain.SummarizationError{Status: status, Err: errors.New("response has no summary")}
	}

	summary := strings.TrimSpace(*resp.Summary)
	p.log.DebugContext(ctx, "summarizer response", slog.Int("status", status), slog.Int("chars", len(summary)))
	return summary, nil
}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (p *Provider) doWithRetry(ctx context.Context, payload []byte) (int, []byte, error) {
	var (
		status int
		body   []byte
	)
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+summarizePath, bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")

			resp, err := p.httpClient.Do(req)
			if err != nil {
				status = 0
				return err
			}
			defer resp.Body.Close()

			status = resp.StatusCode
			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			if status >= 500 {
				return fmt.Errorf("unexpected status %d: %s", status, snippet(body))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(_ uint, err error) {
			p.log.WarnContext(ctx, "summarizer retry", slog.String("reason", err.Error()))
		}),
	)
	return status, body, err
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/zer0-A1/emineon-search/internal/pkg/errors"
)

const (
	// Task types passed through to providers that distinguish document and
	// query embeddings (gemini does, openai ignores them).
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)

type ClientConfig struct {
	// Dimension is the expected output dimension of the embedding model.
	// It is fixed for the lifetime of the index; a mismatching vector is
	// rejected rather than stored.
	Dimension     int
	MaxInputChars int
	MaxAttempts   int
	BaseDelay     time.Duration
	Timeout       time.Duration
}

// Client wraps an embedder with the process-wide embedding policy:
// deterministic input truncation, bounded retry with backoff and jitter for
// transient failures, and output dimension validation.
type Client struct {
	embedder IEmbedder
	cfg      ClientConfig
}

func NewClient(embedder IEmbedder, cfg ClientConfig) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	return &Client{embedder: embedder, cfg: cfg}
}

func (c *Client) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if c == nil || c.embedder == nil {
		return nil, apperrors.ErrEmbeddingUnavailable
	}
	text = Truncate(text, c.cfg.MaxInputChars)
	vec, err := retryEmbed(ctx, func() ([]float32, error) {
		attemptCtx := ctx
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}
		return c.embedder.Embed(attemptCtx, text, taskType)
	}, c.cfg.MaxAttempts, c.cfg.BaseDelay)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, apperrors.ErrEmbeddingUnavailable
		}
		if IsTransient(err) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingThrottled, err)
		}
		// A credential rejection is structural, like a missing key. Other
		// 4xx (e.g. 400 on one malformed input) stay per-call failures so a
		// single bad document cannot degrade the whole process.
		var statusErr *StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
		}
		return nil, err
	}
	if c.cfg.Dimension > 0 && len(vec) != c.cfg.Dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), c.cfg.Dimension)
	}
	return vec, nil
}

func (c *Client) ModelName() string {
	if c == nil || c.embedder == nil {
		return ""
	}
	return c.embedder.ModelName()
}

func (c *Client) Dimension() int {
	return c.cfg.Dimension
}

// Truncate cuts text to at most max runes. Inputs over the model budget are
// always truncated, never rejected.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

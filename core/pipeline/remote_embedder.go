package pipeline

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

	"github.com/cenkalti/backoff/v4"
	"github.com/siherrmann/kbrag/helper"
)

// maxResponseBytes bounds the body read from the provider.
const maxResponseBytes = 32 << 20

// RemoteEmbedder calls an HTTP embedding provider.
// Timeouts, transport errors, 429 and 5xx responses are retried with
// exponential backoff, everything else fails at once.
type RemoteEmbedder struct {
	config *helper.EmbedderConfiguration
	client *http.Client
	logger *slog.Logger
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// NewRemoteEmbedder creates a remote embedder from config.
func NewRemoteEmbedder(config *helper.EmbedderConfiguration, logger *slog.Logger) (*RemoteEmbedder, error) {
	if config == nil {
		return nil, helper.NewError("embedder configuration validation", fmt.Errorf("embedder configuration is nil"))
	}
	if config.URL == "" {
		return nil, helper.NewError("embedder configuration validation", fmt.Errorf("embedding url is empty"))
	}
	if logger == nil {
		logger = helper.DiscardLogger()
	}

	return &RemoteEmbedder{
		config: config,
		client: &http.Client{},
		logger: logger.With(slog.String("component", "remote_embedder")),
	}, nil
}

// Embed returns the raw embedding of text. Newlines are replaced by spaces
// before the request. Every failure wraps ErrEmbeddingUnavailable.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrEmbeddingUnavailable)
	}

	payload, err := json.Marshal(embedRequest{Model: e.config.Model, Input: text})
	if err != nil {
		return nil, helper.NewError("marshal request", err)
	}

	var embedding []float32
	operation := func() error {
		embedding, err = e.post(ctx, payload)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.config.InitialBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0
	retries := uint64(max(e.config.MaxAttempts-1, 0))

	err = backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx),
		func(err error, wait time.Duration) {
			e.logger.Debug("Retrying embedding request", slog.Any("error", err), slog.Duration("wait", wait))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrEmbeddingUnavailable)
	}

	return embedding, nil
}

// post sends one request. Errors that must not be retried are wrapped
// with backoff.Permanent.
func (e *RemoteEmbedder) post(ctx context.Context, payload []byte) ([]float32, error) {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(helper.NewError("create request", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		// Transport errors and per attempt timeouts are transient.
		return nil, helper.NewError("post", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, helper.NewError("read body", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncate(string(body), 100)))
	}

	embedding, err := ParseEmbedding(body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	return embedding, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// IsEmbeddingUnavailable reports whether err marks a missing embedding.
func IsEmbeddingUnavailable(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable)
}

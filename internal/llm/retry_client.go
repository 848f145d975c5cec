package llm

import (
	"context"

	"genesis/internal/errors"
	"genesis/internal/logging"
)

// retryClient wraps a Client with transient-failure retries.
type retryClient struct {
	inner  Client
	config errors.RetryConfig
	logger logging.Logger
}

// WithRetry decorates client with exponential-backoff retries for transient
// provider failures. Permanent failures pass through on the first attempt.
func WithRetry(client Client, config errors.RetryConfig, logger logging.Logger) Client {
	return &retryClient{
		inner:  client,
		config: config,
		logger: logging.OrNop(logger),
	}
}

func (c *retryClient) Chat(ctx context.Context, messages []Message, system string, opts Options) (string, error) {
	return errors.RetryWithResult(ctx, c.config, c.logger, func(ctx context.Context) (string, error) {
		return c.inner.Chat(ctx, messages, system, opts)
	})
}

func (c *retryClient) Generate(ctx context.Context, prompt string, system string, opts Options) (string, error) {
	return errors.RetryWithResult(ctx, c.config, c.logger, func(ctx context.Context) (string, error) {
		return c.inner.Generate(ctx, prompt, system, opts)
	})
}

func (c *retryClient) Model() string {
	return c.inner.Model()
}

package llm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// limitedClient bounds the number of in-flight LLM requests. Callers block
// until a slot frees up or their context is cancelled.
type limitedClient struct {
	inner Client
	sem   *semaphore.Weighted
}

// WithConcurrencyLimit decorates client so at most n requests run at once.
func WithConcurrencyLimit(client Client, n int) Client {
	if n <= 0 {
		n = 1
	}
	return &limitedClient{
		inner: client,
		sem:   semaphore.NewWeighted(int64(n)),
	}
}

func (c *limitedClient) Chat(ctx context.Context, messages []Message, system string, opts Options) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.sem.Release(1)
	return c.inner.Chat(ctx, messages, system, opts)
}

func (c *limitedClient) Generate(ctx context.Context, prompt string, system string, opts Options) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.sem.Release(1)
	return c.inner.Generate(ctx, prompt, system, opts)
}

func (c *limitedClient) Model() string {
	return c.inner.Model()
}

package llm

import (
	"context"

	"genesis/internal/observability"
)

// observedClient counts every model invocation under a fixed purpose label.
type observedClient struct {
	inner   Client
	metrics *observability.Metrics
	purpose string
}

// WithMetrics decorates client so every call is counted under purpose.
func WithMetrics(client Client, metrics *observability.Metrics, purpose string) Client {
	if metrics == nil {
		return client
	}
	return &observedClient{inner: client, metrics: metrics, purpose: purpose}
}

func (c *observedClient) Chat(ctx context.Context, messages []Message, system string, opts Options) (string, error) {
	response, err := c.inner.Chat(ctx, messages, system, opts)
	c.metrics.CountLLMCall(c.purpose, err)
	return response, err
}

func (c *observedClient) Generate(ctx context.Context, prompt string, system string, opts Options) (string, error) {
	response, err := c.inner.Generate(ctx, prompt, system, opts)
	c.metrics.CountLLMCall(c.purpose, err)
	return response, err
}

func (c *observedClient) Model() string {
	return c.inner.Model()
}

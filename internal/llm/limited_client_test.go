package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

// blockingClient tracks concurrent in-flight calls.
type blockingClient struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	started  chan struct{}
	release  chan struct{}
}

func (b *blockingClient) Chat(ctx context.Context, messages []Message, system string, opts Options) (string, error) {
	current := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		peak := b.peak.Load()
		if current <= peak || b.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if b.started != nil {
		b.started <- struct{}{}
	}
	<-b.release
	return "ok", nil
}

func (b *blockingClient) Generate(ctx context.Context, prompt string, system string, opts Options) (string, error) {
	return b.Chat(ctx, nil, system, opts)
}

func (b *blockingClient) Model() string { return "blocking" }

func TestConcurrencyLimitHolds(t *testing.T) {
	inner := &blockingClient{release: make(chan struct{})}
	client := WithConcurrencyLimit(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.Chat(context.Background(), nil, "", Options{})
		}()
	}

	close(inner.release)
	wg.Wait()

	if peak := inner.peak.Load(); peak > 2 {
		t.Fatalf("concurrency limit exceeded: peak %d", peak)
	}
}

func TestConcurrencyLimitRespectsCancellation(t *testing.T) {
	inner := &blockingClient{started: make(chan struct{}, 1), release: make(chan struct{})}
	client := WithConcurrencyLimit(inner, 1)

	go func() {
		_, _ = client.Chat(context.Background(), nil, "", Options{})
	}()
	// Wait until the first call holds the only slot.
	<-inner.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Chat(ctx, nil, "", Options{}); err == nil {
		t.Fatalf("expected cancellation while waiting for slot")
	}
	close(inner.release)
}

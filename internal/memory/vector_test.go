package memory

import (
	"context"
	"strings"
	"testing"
)

// bagEmbedder is a deterministic embedder keyed on a small vocabulary, good
// enough to separate topics in tests without a model.
func bagEmbedder() Embedder {
	vocab := []string{"tower", "stone", "river", "song", "fight", "fear"}
	return EmbedderFunc(func(ctx context.Context, text string) ([]float32, error) {
		vec := make([]float32, len(vocab)+1)
		lower := strings.ToLower(text)
		for i, word := range vocab {
			if strings.Contains(lower, word) {
				vec[i] = 1
			}
		}
		// Bias term keeps zero-overlap vectors from being degenerate.
		vec[len(vocab)] = 0.1
		return vec, nil
	})
}

func TestSemanticRecall(t *testing.T) {
	index, err := NewSemanticIndex(bagEmbedder())
	if err != nil {
		t.Fatalf("index creation failed: %v", err)
	}
	manager := NewManager(NewInMemoryStore(), index, nil)
	ctx := context.Background()

	_, _ = manager.AddEpisodic(ctx, Episode{EntityID: "e1", Summary: "built a stone tower", Tick: 1})
	_, _ = manager.AddEpisodic(ctx, Episode{EntityID: "e1", Summary: "heard a song by the river", Tick: 2})
	_, _ = manager.AddEpisodic(ctx, Episode{EntityID: "other", Summary: "a tower of stone", Tick: 3})

	results, err := manager.RecallRelated(ctx, "e1", "the tall stone tower", 1)
	if err != nil {
		t.Fatalf("recall returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !strings.Contains(results[0].Summary, "tower") {
		t.Fatalf("unexpected recall: %+v", results[0])
	}
	if results[0].EntityID != "e1" {
		t.Fatalf("metadata filter leaked another entity's memory")
	}
}

func TestRecallWithoutIndexReturnsNil(t *testing.T) {
	manager := NewManager(NewInMemoryStore(), nil, nil)
	results, err := manager.RecallRelated(context.Background(), "e1", "anything", 5)
	if err != nil || results != nil {
		t.Fatalf("expected nil results without index, got %v err %v", results, err)
	}
}

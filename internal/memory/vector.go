package memory

import (
	"context"
	"fmt"
	"sort"

	chromem "github.com/philippgille/chromem-go"
)

// Embedder turns text into a vector. The host typically backs this with the
// LLM provider's embedding endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// SemanticIndex is an optional chromem-backed vector index over episode
// summaries, enabling recall by meaning rather than recency.
type SemanticIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewSemanticIndex builds an in-memory index using the given embedder.
func NewSemanticIndex(embedder Embedder) (*SemanticIndex, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection("episodes", nil, func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("create episode collection: %w", err)
	}
	return &SemanticIndex{db: db, collection: collection}, nil
}

// Add indexes one episode.
func (i *SemanticIndex) Add(ctx context.Context, episode Episode) error {
	return i.collection.AddDocument(ctx, chromem.Document{
		ID:      episode.ID,
		Content: episode.Summary,
		Metadata: map[string]string{
			"entity_id":   episode.EntityID,
			"memory_type": episode.Type,
		},
	})
}

// Delete removes episodes from the index. Missing ids are ignored.
func (i *SemanticIndex) Delete(ctx context.Context, ids []string) {
	for _, id := range ids {
		_ = i.collection.Delete(ctx, nil, nil, id)
	}
}

// Search returns up to limit episodes belonging to entityID ranked by
// similarity to query. Only id, summary, and type survive the round trip;
// callers needing full records fetch them from the store.
func (i *SemanticIndex) Search(ctx context.Context, entityID, query string, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 5
	}
	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := i.collection.Query(ctx, query, limit, map[string]string{"entity_id": entityID}, nil)
	if err != nil {
		return nil, fmt.Errorf("query episode index: %w", err)
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Similarity > results[b].Similarity
	})
	episodes := make([]Episode, 0, len(results))
	for _, result := range results {
		episodes = append(episodes, Episode{
			ID:       result.ID,
			EntityID: entityID,
			Summary:  result.Content,
			Type:     result.Metadata["memory_type"],
		})
	}
	return episodes, nil
}

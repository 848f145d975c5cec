// Package memory implements the episodic memory store: TTL-bounded,
// importance-ranked episodes retrievable for prompt building.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"genesis/internal/logging"
	"genesis/internal/world"
)

// Memory types.
const (
	TypeEncounter    = "encounter"
	TypeThreat       = "threat"
	TypeConversation = "conversation"
	TypeCreation     = "creation"
	TypeTerritory    = "territory"
	TypeReflection   = "reflection"
	TypeCode         = "code"
	TypeGeneral      = "general"
)

// PinnedImportance is the floor above which episodes never expire.
const PinnedImportance = 0.8

// defaultTTL is used when a memory type has no specific lifetime.
const defaultTTL = 600

// ttlByType gives each memory type its lifetime in ticks.
var ttlByType = map[string]int64{
	TypeEncounter:    1500,
	TypeThreat:       400,
	TypeConversation: 1000,
	TypeCreation:     2000,
	TypeTerritory:    2000,
	TypeReflection:   800,
	TypeCode:         600,
}

// Episode is one dated, importance-weighted memory record.
type Episode struct {
	ID         string     `json:"id"`
	EntityID   string     `json:"entity_id"`
	Summary    string     `json:"summary"`
	Importance float64    `json:"importance"`
	Tick       int64      `json:"tick"`
	Related    []string   `json:"related_entities,omitempty"`
	Location   world.Vec3 `json:"location"`
	Type       string     `json:"memory_type"`
	TTL        int64      `json:"ttl"`
}

// Expired reports whether the episode should be purged at now. Pinned
// episodes (importance >= 0.8) never expire.
func (e Episode) Expired(now int64) bool {
	if e.Importance >= PinnedImportance {
		return false
	}
	return now >= e.Tick+e.TTL
}

// Store abstracts persistence for episodes.
type Store interface {
	InsertEpisode(ctx context.Context, episode Episode) error
	EpisodesByEntity(ctx context.Context, entityID string) ([]Episode, error)
	DeleteEpisodes(ctx context.Context, ids []string) error
}

// Manager provides the episodic memory operations used by the agent runtime
// and the conversation manager.
type Manager struct {
	store  Store
	index  *SemanticIndex
	logger logging.Logger
}

// NewManager constructs a memory manager. index may be nil to disable
// semantic recall.
func NewManager(store Store, index *SemanticIndex, logger logging.Logger) *Manager {
	return &Manager{
		store:  store,
		index:  index,
		logger: logging.OrNop(logger),
	}
}

// AddEpisodic inserts an episode, assigning id and default TTL.
func (m *Manager) AddEpisodic(ctx context.Context, episode Episode) (Episode, error) {
	episode.Summary = strings.TrimSpace(episode.Summary)
	if episode.EntityID == "" {
		return episode, fmt.Errorf("entity_id is required")
	}
	if episode.Summary == "" {
		return episode, fmt.Errorf("summary is required")
	}
	episode.Importance = world.Clamp(episode.Importance, 0, 1)
	if episode.Type == "" {
		episode.Type = TypeGeneral
	}
	if episode.ID == "" {
		episode.ID = uuid.NewString()
	}
	if episode.TTL <= 0 {
		if ttl, ok := ttlByType[episode.Type]; ok {
			episode.TTL = ttl
		} else {
			episode.TTL = defaultTTL
		}
	}

	if err := m.store.InsertEpisode(ctx, episode); err != nil {
		return episode, err
	}

	if m.index != nil {
		if err := m.index.Add(ctx, episode); err != nil {
			// Semantic recall is best effort.
			m.logger.Warn("semantic index add failed for %s: %v", episode.ID, err)
		}
	}
	return episode, nil
}

// TopEpisodes returns up to limit episodes ranked by importance descending,
// then recency descending.
func (m *Manager) TopEpisodes(ctx context.Context, entityID string, limit int) ([]Episode, error) {
	episodes, err := m.store.EpisodesByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(episodes, func(i, j int) bool {
		if episodes[i].Importance != episodes[j].Importance {
			return episodes[i].Importance > episodes[j].Importance
		}
		return episodes[i].Tick > episodes[j].Tick
	})
	if limit > 0 && len(episodes) > limit {
		episodes = episodes[:limit]
	}
	return episodes, nil
}

// SummarizeForPrompt concatenates the top episodes as bullet lines for
// inclusion in an LLM system prompt.
func (m *Manager) SummarizeForPrompt(ctx context.Context, entityID string, limit int) (string, error) {
	episodes, err := m.TopEpisodes(ctx, entityID, limit)
	if err != nil {
		return "", err
	}
	if len(episodes) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, episode := range episodes {
		sb.WriteString("- ")
		sb.WriteString(episode.Summary)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// CleanupExpired deletes episodes whose TTL has elapsed, excluding pinned
// ones. Returns the number removed. Calling it twice at the same tick
// removes the same (now empty) set.
func (m *Manager) CleanupExpired(ctx context.Context, entityID string, now int64) (int, error) {
	episodes, err := m.store.EpisodesByEntity(ctx, entityID)
	if err != nil {
		return 0, err
	}
	var expired []string
	for _, episode := range episodes {
		if episode.Expired(now) {
			expired = append(expired, episode.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := m.store.DeleteEpisodes(ctx, expired); err != nil {
		return 0, err
	}
	if m.index != nil {
		m.index.Delete(ctx, expired)
	}
	return len(expired), nil
}

// RecallRelated returns episodes semantically related to query, when a
// semantic index is configured. Without one it returns nil.
func (m *Manager) RecallRelated(ctx context.Context, entityID, query string, limit int) ([]Episode, error) {
	if m.index == nil {
		return nil, nil
	}
	return m.index.Search(ctx, entityID, query, limit)
}

// InMemoryStore is a mutex-guarded Store for tests and single-process runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	episodes map[string][]Episode // entityID -> episodes
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{episodes: make(map[string][]Episode)}
}

func (s *InMemoryStore) InsertEpisode(_ context.Context, episode Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes[episode.EntityID] = append(s.episodes[episode.EntityID], episode)
	return nil
}

func (s *InMemoryStore) EpisodesByEntity(_ context.Context, entityID string) ([]Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Episode, len(s.episodes[entityID]))
	copy(out, s.episodes[entityID])
	return out, nil
}

func (s *InMemoryStore) DeleteEpisodes(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for entityID, episodes := range s.episodes {
		kept := episodes[:0]
		for _, episode := range episodes {
			if !drop[episode.ID] {
				kept = append(kept, episode)
			}
		}
		s.episodes[entityID] = kept
	}
	return nil
}

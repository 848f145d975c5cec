package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/memory"
	"genesis/internal/relationship"
	"genesis/internal/voxel"
	"genesis/internal/world"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "genesis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "genesis.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening an existing database must not fail on schema creation.
	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestEntityRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entity := world.Entity{
		ID:            "e1",
		Name:          "Ash",
		Kind:          world.KindNative,
		Position:      world.Vec3{X: 1.5, Y: 0, Z: -2.25},
		Facing:        world.Vec2{X: 1},
		Alive:         true,
		BirthTick:     7,
		Personality:   world.Personality{Curiosity: 0.8, Empathy: 0.4},
		State:         world.NewState(),
		MetaAwareness: 0.25,
		Policy:        &world.AgentPolicy{Directive: "seek the tower"},
	}
	entity.State.Needs.Set(world.NeedCuriosity, 42)
	entity.State.KnownEntityIDs["e2"] = true
	entity.State.LastConversationTicks["e2"] = 5
	require.NoError(t, s.UpsertEntity(ctx, entity))

	// A second upsert replaces the mutable fields.
	entity.Position.X = 9
	entity.Alive = false
	entity.DeathTick = 99
	require.NoError(t, s.UpsertEntity(ctx, entity))

	loaded, err := s.LoadEntities(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, "Ash", got.Name)
	assert.Equal(t, world.KindNative, got.Kind)
	assert.Equal(t, 9.0, got.Position.X)
	assert.False(t, got.Alive)
	assert.Equal(t, int64(99), got.DeathTick)
	assert.Equal(t, 0.8, got.Personality.Curiosity)
	assert.Equal(t, 42.0, got.State.Needs.Curiosity)
	assert.True(t, got.State.KnownEntityIDs["e2"])
	assert.Equal(t, int64(5), got.State.LastConversationTicks["e2"])
	require.NotNil(t, got.Policy)
	assert.Equal(t, "seek the tower", got.Policy.Directive)
}

func TestEntityWithoutPolicy(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertEntity(ctx, world.Entity{
		ID: "e1", Name: "Ash", Kind: world.KindNative, Alive: true, State: world.NewState(),
	}))
	loaded, err := s.LoadEntities(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Nil(t, loaded[0].Policy)
}

func TestEventRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, world.Event{
		Tick: 1, Actor: "e1", Type: world.EventAction, Action: "explore",
		Result: world.ResultAccepted, Importance: 0.3,
	}))
	require.NoError(t, s.AppendEvent(ctx, world.Event{
		Tick: 2, Actor: "e1", Type: world.EventSpeech, Action: "speak",
		Params: map[string]any{"text": "hello"}, Position: world.Vec3{X: 4},
		Result: world.ResultAccepted, Importance: 0.25,
	}))

	events, err := s.EventsSince(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, world.EventSpeech, events[0].Type)
	assert.Equal(t, "hello", events[0].Params["text"])
	assert.Equal(t, 4.0, events[0].Position.X)

	events, err = s.EventsSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Tick, "oldest first")
	assert.Nil(t, events[0].Params)
}

func TestEpisodeStoreContract(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEpisode(ctx, memory.Episode{
		ID: "m1", EntityID: "e1", Summary: "met Bel", Importance: 0.9,
		Tick: 10, Related: []string{"e2"}, Type: memory.TypeEncounter, TTL: 1500,
	}))
	require.NoError(t, s.InsertEpisode(ctx, memory.Episode{
		ID: "m2", EntityID: "e1", Summary: "saw a threat", Importance: 0.5,
		Tick: 12, Type: memory.TypeThreat, TTL: 400,
	}))
	require.NoError(t, s.InsertEpisode(ctx, memory.Episode{
		ID: "m3", EntityID: "e2", Summary: "built a wall", Importance: 0.4,
		Tick: 12, Type: memory.TypeCreation, TTL: 2000,
	}))

	episodes, err := s.EpisodesByEntity(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, episodes, 2)

	byID := map[string]memory.Episode{}
	for _, episode := range episodes {
		byID[episode.ID] = episode
	}
	assert.Equal(t, []string{"e2"}, byID["m1"].Related)
	assert.Nil(t, byID["m2"].Related)

	require.NoError(t, s.DeleteEpisodes(ctx, []string{"m1", "m2"}))
	episodes, err = s.EpisodesByEntity(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, episodes)

	episodes, err = s.EpisodesByEntity(ctx, "e2")
	require.NoError(t, err)
	assert.Len(t, episodes, 1, "other entities keep their episodes")
}

func TestMemoryManagerOnSQLite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	manager := memory.NewManager(s, nil, nil)

	_, err := manager.AddEpisodic(ctx, memory.Episode{
		EntityID: "e1", Summary: "a fleeting thought", Importance: 0.2, Tick: 1,
	})
	require.NoError(t, err)
	_, err = manager.AddEpisodic(ctx, memory.Episode{
		EntityID: "e1", Summary: "the day of ascension", Importance: 0.95, Tick: 1,
	})
	require.NoError(t, err)

	removed, err := manager.CleanupExpired(ctx, "e1", 5000)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	episodes, err := manager.TopEpisodes(ctx, "e1", 10)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "the day of ascension", episodes[0].Summary, "pinned episodes survive cleanup")
}

func TestRelationshipRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRelationship(ctx, "a", "b", relationship.Relation{Trust: 0.4, Anger: 0.1}))
	require.NoError(t, s.UpsertRelationship(ctx, "a", "b", relationship.Relation{Trust: 0.6, Fear: 0.2}))
	require.NoError(t, s.UpsertRelationship(ctx, "b", "a", relationship.Relation{Trust: -0.3}))

	manager := relationship.NewManager(s, nil)
	require.NoError(t, s.LoadRelationships(ctx, manager))

	ab := manager.Get("a", "b")
	assert.Equal(t, 0.6, ab.Trust, "upsert replaces the row")
	assert.Equal(t, 0.0, ab.Anger)
	assert.Equal(t, 0.2, ab.Fear)
	assert.Equal(t, -0.3, manager.Get("b", "a").Trust, "directions are independent")
}

func TestPersistentVoxelsRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	engine, err := NewPersistentVoxels(ctx, voxel.NewMemoryEngine(), s, nil)
	require.NoError(t, err)

	_, err = engine.PlaceBlock(1, 0, 2, "red", voxel.MaterialSolid, "e1", 5)
	require.NoError(t, err)
	_, err = engine.PlaceBlock(1, 1, 2, "blue", voxel.MaterialGlass, "e1", 6)
	require.NoError(t, err)
	require.True(t, engine.DestroyBlock(1, 1, 2))

	// Occupied coordinates are refused and nothing extra is persisted.
	_, err = engine.PlaceBlock(1, 0, 2, "green", voxel.MaterialSolid, "e2", 7)
	require.Error(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	restored, err := NewPersistentVoxels(ctx, voxel.NewMemoryEngine(), s, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, restored.CountBlocks())
	assert.True(t, restored.IsSolid(1, 0, 2))
	blocks, err := s.LoadBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "red", blocks[0].Color)
	assert.Equal(t, int64(5), blocks[0].PlacedTick)
}

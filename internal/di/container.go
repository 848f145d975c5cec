// Package di builds the object graph for the world binary: persistence,
// LLM clients, managers, the agent runtime, the world loop, and the god.
package di

import (
	"context"
	"fmt"
	"math/rand"
	stdruntime "runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"genesis/internal/config"
	"genesis/internal/conversation"
	"genesis/internal/errors"
	"genesis/internal/goap"
	"genesis/internal/god"
	"genesis/internal/llm"
	"genesis/internal/logging"
	"genesis/internal/memory"
	"genesis/internal/meta"
	"genesis/internal/observability"
	"genesis/internal/perception"
	"genesis/internal/pubsub"
	"genesis/internal/relationship"
	"genesis/internal/runtime"
	"genesis/internal/sandbox"
	"genesis/internal/store"
	"genesis/internal/voxel"
	"genesis/internal/world"
)

// DefaultGodName names the first god of a fresh world.
const DefaultGodName = "The Watcher"

// embedder is the optional capability some LLM providers expose.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Container holds the built application graph.
type Container struct {
	Config   config.RuntimeConfig
	World    *runtime.World
	Runtime  *runtime.AgentRuntime
	God      *god.Loop
	GodID    string
	Events   *world.EventLog
	Broker   *pubsub.Broker
	Store    *store.Store
	Sandbox  *sandbox.Executor
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	Chat  llm.Client
	Small llm.Client
}

// Cleanup shuts down the container's resources.
func (c *Container) Cleanup() error {
	if c.Broker != nil {
		c.Broker.Close()
	}
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}

// BuildContainer wires the whole graph from cfg: SQLite store, event log,
// LLM clients (retrying, concurrency-limited, counted), managers, the agent
// runtime, the world, and the god loop. Persisted entities and blocks are
// restored; a god is spawned if none survives.
func BuildContainer(cfg config.RuntimeConfig) (*Container, error) {
	ctx := context.Background()
	logger := logging.NewComponentLogger("di")
	if cfg.Verbose {
		logger.SetLevel(logging.DEBUG)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	broker := pubsub.NewBroker()

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	events := world.NewEventLog(0, st, broker, logging.NewComponentLogger("events"))
	events.SetMetrics(metrics)

	chat, small, index, err := buildClients(cfg, metrics)
	if err != nil {
		st.Close()
		return nil, err
	}

	memories := memory.NewManager(st, index, logging.NewComponentLogger("memory"))
	relationships := relationship.NewManager(st, logging.NewComponentLogger("relationship"))
	if err := st.LoadRelationships(ctx, relationships); err != nil {
		st.Close()
		return nil, fmt.Errorf("restore relationships: %w", err)
	}

	voxels, err := store.NewPersistentVoxels(ctx, voxel.NewMemoryEngine(), st, logging.NewComponentLogger("voxel"))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("restore voxel world: %w", err)
	}

	awareness := meta.New(rand.New(rand.NewSource(time.Now().UnixNano())))
	conversations := conversation.NewManager(
		conversation.Config{
			InteractionRange: cfg.InteractionRange,
			Cooldown:         int64(cfg.ConversationCooldown),
			SocialThreshold:  cfg.SocialNeedThreshold,
		},
		conversation.DefaultLexicon(),
		chat, memories, relationships, events, awareness,
		rand.New(rand.NewSource(time.Now().UnixNano())),
		logging.NewComponentLogger("conversation"),
	)

	concurrency := cfg.MaxEntityConcurrency
	if concurrency <= 0 {
		concurrency = stdruntime.NumCPU()
	}
	observers := runtime.NewObserverRegistry()
	w := runtime.NewWorld(runtime.WorldConfig{
		TickInterval:     cfg.TickInterval(),
		MaxConcurrency:   concurrency,
		InteractionRange: cfg.InteractionRange,
	}, nil, events, metrics,
		rand.New(rand.NewSource(time.Now().UnixNano())),
		logging.NewComponentLogger("world"))

	runner := sandbox.NewRunner(sandbox.Config{
		PythonRuntime: cfg.PythonRuntime,
		NodeRuntime:   cfg.NodeRuntime,
		Timeout:       cfg.SandboxTimeout(),
	}, logging.NewComponentLogger("sandbox"))
	runner.SetMetrics(metrics)
	executor := sandbox.NewExecutor(runner, sandbox.ApplyDeps{
		Voxels:    voxels,
		Memories:  memories,
		Events:    events,
		Publisher: broker,
		Logger:    logging.NewComponentLogger("sandbox"),
	})
	executor.NearbyFor = func(entity *world.Entity) []sandbox.NearbyEntity {
		var nearby []sandbox.NearbyEntity
		for _, snapshot := range w.Snapshots() {
			if snapshot.ID == entity.ID {
				continue
			}
			distance := snapshot.Position.Distance(entity.Position)
			if distance > cfg.VisionRange {
				continue
			}
			nearby = append(nearby, sandbox.NearbyEntity{ID: snapshot.ID, Name: snapshot.Name, Distance: distance})
		}
		return nearby
	}

	rt := runtime.NewAgentRuntime(runtime.RuntimeDeps{
		Perception: perception.NewSystem(perception.Config{
			VisionRange:      cfg.VisionRange,
			ViewAngleDegrees: cfg.ViewAngleDegrees,
			HearingRange:     cfg.HearingRange,
		}, logging.NewComponentLogger("perception")),
		Planner:          goap.NewPlanner(rand.New(rand.NewSource(time.Now().UnixNano())), logging.NewComponentLogger("goap")),
		Conversations:    conversations,
		Memories:         memories,
		Relationships:    relationships,
		Events:           events,
		Voxels:           voxels,
		Awareness:        awareness,
		Observers:        observers,
		Entities:         w,
		Store:            st,
		Sandbox:          executor,
		Logger:           logging.NewComponentLogger("runtime"),
		InteractionRange: cfg.InteractionRange,
	})
	w.SetRuntime(rt)
	w.SetEntityStore(st)

	restored, err := st.LoadEntities(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("restore entities: %w", err)
	}
	for _, entity := range restored {
		if err := w.AddEntity(entity); err != nil {
			st.Close()
			return nil, fmt.Errorf("restore entity %s: %w", entity.ID, err)
		}
	}
	logger.Info("restored %d entities, %d blocks", len(restored), voxels.CountBlocks())

	godEntity := findLivingGod(restored)
	if godEntity == nil {
		godEntity, err = w.SpawnGod(DefaultGodName)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("spawn god: %w", err)
		}
		w.Persist(ctx, godEntity.ID)
		logger.Info("spawned god %s (%s)", godEntity.Name, godEntity.ID)
	}

	godLoop := god.NewLoop(godEntity.ID, w, chat, small, events, voxels, god.Config{
		ObservationInterval: int64(cfg.GodObservationInterval),
		SuccessionInterval:  int64(cfg.GodSuccessionInterval),
		WorldUpdateInterval: int64(cfg.GodWorldUpdateInterval),
	}, logging.NewComponentLogger("god"))
	w.SetGodTicker(godLoop)
	w.OnDeath(godLoop.HandleDeath)

	return &Container{
		Config:   cfg,
		World:    w,
		Runtime:  rt,
		God:      godLoop,
		GodID:    godEntity.ID,
		Events:   events,
		Broker:   broker,
		Store:    st,
		Sandbox:  executor,
		Registry: registry,
		Metrics:  metrics,
		Chat:     chat,
		Small:    small,
	}, nil
}

// buildClients constructs the chat and small-model clients with retry,
// concurrency limiting, and call counting, plus the optional semantic memory
// index when the provider exposes embeddings.
func buildClients(cfg config.RuntimeConfig, metrics *observability.Metrics) (llm.Client, llm.Client, *memory.SemanticIndex, error) {
	clientCfg := llm.Config{BaseURL: cfg.LLMBaseURL, TimeoutSeconds: cfg.LLMTimeoutSeconds}

	base, err := llm.New(cfg.LLMProvider, cfg.LLMModel, clientCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build llm client: %w", err)
	}
	smallBase, err := llm.New(cfg.LLMProvider, cfg.LLMSmallModel, clientCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build small llm client: %w", err)
	}

	var index *memory.SemanticIndex
	if provider, ok := base.(embedder); ok {
		index, err = memory.NewSemanticIndex(memory.EmbedderFunc(provider.Embed))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("build semantic index: %w", err)
		}
	}

	retry := errors.DefaultRetryConfig()
	logger := logging.NewComponentLogger("llm")
	chat := llm.WithMetrics(
		llm.WithConcurrencyLimit(llm.WithRetry(base, retry, logger), cfg.MaxLLMConcurrency),
		metrics, "chat")
	small := llm.WithMetrics(
		llm.WithConcurrencyLimit(llm.WithRetry(smallBase, retry, logger), cfg.MaxLLMConcurrency),
		metrics, "small")
	return chat, small, index, nil
}

func findLivingGod(entities []*world.Entity) *world.Entity {
	for _, entity := range entities {
		if entity.Kind == world.KindGod && entity.Alive {
			return entity
		}
	}
	return nil
}

package runtime

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"genesis/internal/logging"
	"genesis/internal/observability"
	"genesis/internal/perception"
	"genesis/internal/world"

	"github.com/google/uuid"
)

// DeathHook is invoked when an entity dies (god eulogies, cleanup).
type DeathHook func(ctx context.Context, entity world.Entity, tick int64)

// GodTicker runs the god loop on its own worker at each tick boundary.
type GodTicker interface {
	GodTick(ctx context.Context, tick int64)
}

// WorldConfig tunes the loop.
type WorldConfig struct {
	TickInterval     time.Duration // default 1s
	MaxConcurrency   int           // entity tick fan-out, default 8
	InteractionRange float64       // default 5
}

// World owns the entity registry and the fixed-rate loop.
type World struct {
	mu       sync.RWMutex
	entities map[string]*world.Entity
	order    []string // stable iteration order (insertion)
	tick     int64

	runtime    *AgentRuntime
	store      EntityStore
	events     *world.EventLog
	god        GodTicker
	deathHooks []DeathHook
	structures []perception.Structure
	metrics    *observability.Metrics
	logger     logging.Logger
	rng        *rand.Rand
	cfg        WorldConfig
}

// NewWorld creates an empty world. runtime may be nil for registry-only use
// in tests.
func NewWorld(cfg WorldConfig, rt *AgentRuntime, events *world.EventLog, metrics *observability.Metrics, rng *rand.Rand, logger logging.Logger) *World {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.InteractionRange <= 0 {
		cfg.InteractionRange = 5
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &World{
		entities: make(map[string]*world.Entity),
		runtime:  rt,
		events:   events,
		metrics:  metrics,
		logger:   logging.OrNop(logger),
		rng:      rng,
		cfg:      cfg,
	}
}

// SetRuntime installs the agent pipeline. The world and the runtime
// reference each other (the runtime resolves conversation partners through
// the world), so wiring happens in two steps.
func (w *World) SetRuntime(rt *AgentRuntime) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.runtime = rt
}

// SetGodTicker registers the god loop worker.
func (w *World) SetGodTicker(god GodTicker) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.god = god
}

// SetEntityStore enables registry-level persistence. Agent ticks persist
// themselves; this covers entities outside the pipeline (the god, deaths).
func (w *World) SetEntityStore(store EntityStore) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.store = store
}

// Persist writes the entity's current record through to the store.
func (w *World) Persist(ctx context.Context, id string) {
	w.mu.RLock()
	store := w.store
	entity, ok := w.entities[id]
	var snapshot world.Entity
	if ok {
		snapshot = entity.Snapshot()
	}
	w.mu.RUnlock()

	if store == nil || !ok {
		return
	}
	if err := store.UpsertEntity(ctx, snapshot); err != nil {
		w.logger.Warn("entity persistence failed (%s): %v", id, err)
	}
}

// OnDeath registers a death hook.
func (w *World) OnDeath(hook DeathHook) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deathHooks = append(w.deathHooks, hook)
}

// AddStructure registers a named landmark visible to perception.
func (w *World) AddStructure(structure perception.Structure) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.structures = append(w.structures, structure)
}

// AddEntity inserts an entity. A second god is refused: one god per world.
func (w *World) AddEntity(entity *world.Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if entity.ID == "" {
		return fmt.Errorf("entity id is required")
	}
	if _, exists := w.entities[entity.ID]; exists {
		return fmt.Errorf("entity %s already exists", entity.ID)
	}
	if entity.Kind == world.KindGod {
		for _, existing := range w.entities {
			if existing.Kind == world.KindGod && existing.Alive {
				return fmt.Errorf("a god already walks this world")
			}
		}
	}
	w.entities[entity.ID] = entity
	w.order = append(w.order, entity.ID)
	return nil
}

// SpawnNative creates and registers a native entity with a random
// personality at pos.
func (w *World) SpawnNative(name string, pos world.Vec3) (*world.Entity, error) {
	w.mu.Lock()
	personality := world.RandomPersonality(w.rng)
	tick := w.tick
	w.mu.Unlock()

	entity := &world.Entity{
		ID:          uuid.NewString(),
		Name:        name,
		Kind:        world.KindNative,
		Position:    pos,
		Facing:      world.Vec2{Z: 1},
		Alive:       true,
		BirthTick:   tick,
		Personality: personality,
		State:       world.NewState(),
	}
	if err := w.AddEntity(entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// SpawnGod creates the singleton god at the origin with full awareness.
func (w *World) SpawnGod(name string) (*world.Entity, error) {
	entity := &world.Entity{
		ID:            uuid.NewString(),
		Name:          name,
		Kind:          world.KindGod,
		Facing:        world.Vec2{Z: 1},
		Alive:         true,
		BirthTick:     w.CurrentTick(),
		Personality:   world.GodPersonality(),
		State:         world.NewState(),
		MetaAwareness: 1.0,
	}
	if err := w.AddEntity(entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Lookup implements EntityResolver.
func (w *World) Lookup(id string) (*world.Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	entity, ok := w.entities[id]
	return entity, ok
}

// CurrentTick returns the tick counter.
func (w *World) CurrentTick() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// Snapshots returns deep copies of all living entities, in stable order.
func (w *World) Snapshots() []world.Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]world.Entity, 0, len(w.order))
	for _, id := range w.order {
		if entity := w.entities[id]; entity.Alive {
			out = append(out, entity.Snapshot())
		}
	}
	return out
}

// AliveCount returns the number of living entities.
func (w *World) AliveCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	count := 0
	for _, entity := range w.entities {
		if entity.Alive {
			count++
		}
	}
	return count
}

// Kill marks an entity dead, appends the death event, and fires hooks.
func (w *World) Kill(ctx context.Context, id, cause string) bool {
	w.mu.Lock()
	entity, ok := w.entities[id]
	if !ok || !entity.Alive {
		w.mu.Unlock()
		return false
	}
	tick := w.tick
	entity.Die(tick)
	snapshot := entity.Snapshot()
	hooks := append([]DeathHook(nil), w.deathHooks...)
	w.mu.Unlock()

	if w.events != nil {
		w.events.Append(ctx, world.Event{
			Tick:       tick,
			Actor:      id,
			Type:       world.EventDeath,
			Reason:     cause,
			Position:   snapshot.Position,
			Importance: 0.9,
		})
	}
	for _, hook := range hooks {
		hook(ctx, snapshot, tick)
	}
	w.Persist(ctx, id)
	return true
}

// Run drives the loop at the configured rate until ctx is cancelled. A slow
// tick is logged and the loop continues; ticks are never dropped.
func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			started := time.Now()
			w.RunTick(ctx)
			elapsed := time.Since(started)
			w.metrics.ObserveTick(elapsed)
			if elapsed > w.cfg.TickInterval {
				w.logger.Warn("tick %d overran its budget: %s", w.CurrentTick(), elapsed)
			}
		}
	}
}

// RunTick advances the world by one tick: entities fan out over a bounded
// worker pool, except that entities close enough to interact are ticked
// serially so conversation effects never race; the god runs on its own
// worker at the same boundary.
func (w *World) RunTick(ctx context.Context) {
	w.mu.Lock()
	w.tick++
	tick := w.tick
	god := w.god
	structures := append([]perception.Structure(nil), w.structures...)
	w.mu.Unlock()

	snapshots := w.Snapshots()
	sounds := w.collectSounds(tick)
	parallel, serial := w.partition(snapshots)

	group, groupCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(w.cfg.MaxConcurrency))

	if god != nil {
		group.Go(func() error {
			// God errors never touch entity ticks.
			god.GodTick(groupCtx, tick)
			return nil
		})
	}

	for _, id := range parallel {
		id := id
		group.Go(func() error {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			w.tickEntity(groupCtx, id, snapshots, sounds, structures, tick)
			return nil
		})
	}
	group.Go(func() error {
		for _, id := range serial {
			w.tickEntity(groupCtx, id, snapshots, sounds, structures, tick)
		}
		return nil
	})

	_ = group.Wait()
	w.metrics.SetEntitiesAlive(w.AliveCount())
}

// partition splits living entities into those safely tickable in parallel
// and those within interaction range of another entity, which are ticked
// serially because a conversation mutates both participants.
func (w *World) partition(snapshots []world.Entity) (parallel, serial []string) {
	near := make(map[string]bool)
	for i := range snapshots {
		for j := i + 1; j < len(snapshots); j++ {
			if snapshots[i].Position.Distance(snapshots[j].Position) <= w.cfg.InteractionRange {
				near[snapshots[i].ID] = true
				near[snapshots[j].ID] = true
			}
		}
	}
	for _, snapshot := range snapshots {
		if snapshot.Kind == world.KindGod {
			continue // the god does not run the agent pipeline
		}
		if near[snapshot.ID] {
			serial = append(serial, snapshot.ID)
		} else {
			parallel = append(parallel, snapshot.ID)
		}
	}
	return parallel, serial
}

func (w *World) tickEntity(ctx context.Context, id string, snapshots []world.Entity, sounds []perception.SoundSource, structures []perception.Structure, tick int64) {
	if w.runtime == nil {
		return
	}
	entity, ok := w.Lookup(id)
	if !ok || !entity.Alive {
		return
	}

	others := make([]world.Entity, 0, len(snapshots)-1)
	for _, snapshot := range snapshots {
		if snapshot.ID != id {
			others = append(others, snapshot)
		}
	}

	summary := w.runtime.Tick(ctx, entity, TickInput{
		Others:     others,
		Sounds:     sounds,
		Structures: structures,
		Tick:       tick,
	})

	if len(summary.ActionsTaken) > 0 {
		w.logger.Debug("tick %d %s: goal=%s actions=%d mode=%s", tick, id, summary.Goal, len(summary.ActionsTaken), summary.BehaviorMode)
	}
	if entity.State.Needs.Energy <= 0 && entity.Kind == world.KindNative {
		w.Kill(ctx, id, "exhaustion")
	}
}

// collectSounds turns the previous tick's speech events into sound sources
// for this tick's hearing model.
func (w *World) collectSounds(tick int64) []perception.SoundSource {
	if w.events == nil || tick < 1 {
		return nil
	}
	var sounds []perception.SoundSource
	for _, event := range w.events.Since(tick - 1) {
		if event.Tick != tick-1 {
			continue
		}
		if event.Type != world.EventSpeech && event.Type != world.EventGodSpeech {
			continue
		}
		text, _ := event.Params["text"].(string)
		if text == "" {
			continue
		}
		name := event.Actor
		if entity, ok := w.Lookup(event.Actor); ok {
			name = entity.Name
		}
		sounds = append(sounds, perception.SoundSource{
			SourceID:   event.Actor,
			SourceName: name,
			Content:    text,
			Position:   event.Position,
		})
	}
	return sounds
}

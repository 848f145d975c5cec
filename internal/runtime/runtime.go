// Package runtime drives entities through their per-tick pipeline and hosts
// the fixed-rate world loop.
package runtime

import (
	"context"
	"fmt"
	"sort"

	"genesis/internal/conversation"
	"genesis/internal/goap"
	"genesis/internal/logging"
	"genesis/internal/memory"
	"genesis/internal/meta"
	"genesis/internal/perception"
	"genesis/internal/relationship"
	"genesis/internal/sandbox"
	"genesis/internal/voxel"
	"genesis/internal/world"
)

// Pipeline intervals and movement bounds.
const (
	decayInterval   = 10  // relationship decay cadence in ticks
	cleanupInterval = 100 // memory cleanup cadence in ticks
	maxMoveStep     = 3.0 // world units per movement action
	restRestore     = 15.0
)

// EntityStore persists entity records at the bottom of a tick.
type EntityStore interface {
	UpsertEntity(ctx context.Context, entity world.Entity) error
}

// ObserverTracker reports how many external observers watch an entity.
type ObserverTracker interface {
	GetObserverCount(entityID string) int
}

// EntityResolver looks up a live entity for cross-entity effects
// (conversation partners).
type EntityResolver interface {
	Lookup(id string) (*world.Entity, bool)
}

// ActionTaken is one executed plan step, for the tick summary.
type ActionTaken struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// TickSummary is what one entity tick reports upward.
type TickSummary struct {
	EntityID      string                       `json:"entity_id"`
	Goal          string                       `json:"goal,omitempty"`
	ActionsTaken  []ActionTaken                `json:"actions_taken"`
	Conversation  *conversation.Result         `json:"conversation,omitempty"`
	Conflict      *conversation.ConflictResult `json:"conflict,omitempty"`
	Needs         world.Needs                  `json:"needs"`
	BehaviorMode  world.BehaviorMode           `json:"behavior_mode"`
	AwarenessHint string                       `json:"awareness_hint,omitempty"`
	ObserverCount int                          `json:"observer_count"`
}

// AgentRuntime owns the per-entity tick pipeline. All fields are immutable
// after construction; per-tick state lives on the stack.
type AgentRuntime struct {
	perception    *perception.System
	planner       *goap.Planner
	conversations *conversation.Manager
	memories      *memory.Manager
	relationships *relationship.Manager
	events        *world.EventLog
	voxels        voxel.Engine
	awareness     *meta.Awareness
	observers     ObserverTracker
	entities      EntityResolver
	store         EntityStore
	sandbox       *sandbox.Executor
	logger        logging.Logger

	interactionRange float64
}

// RuntimeDeps collects the services an AgentRuntime needs.
type RuntimeDeps struct {
	Perception       *perception.System
	Planner          *goap.Planner
	Conversations    *conversation.Manager
	Memories         *memory.Manager
	Relationships    *relationship.Manager
	Events           *world.EventLog
	Voxels           voxel.Engine
	Awareness        *meta.Awareness
	Observers        ObserverTracker
	Entities         EntityResolver
	Store            EntityStore
	Sandbox          *sandbox.Executor
	Logger           logging.Logger
	InteractionRange float64
}

// NewAgentRuntime wires the pipeline.
func NewAgentRuntime(deps RuntimeDeps) *AgentRuntime {
	interaction := deps.InteractionRange
	if interaction <= 0 {
		interaction = 5
	}
	return &AgentRuntime{
		perception:       deps.Perception,
		planner:          deps.Planner,
		conversations:    deps.Conversations,
		memories:         deps.Memories,
		relationships:    deps.Relationships,
		events:           deps.Events,
		voxels:           deps.Voxels,
		awareness:        deps.Awareness,
		observers:        deps.Observers,
		entities:         deps.Entities,
		store:            deps.Store,
		sandbox:          deps.Sandbox,
		logger:           logging.OrNop(deps.Logger),
		interactionRange: interaction,
	}
}

// TickInput is the world context handed to one entity tick.
type TickInput struct {
	Others     []world.Entity // snapshots of every other living entity
	Sounds     []perception.SoundSource
	Structures []perception.Structure
	Tick       int64
}

// Tick runs the twelve-step pipeline for one entity. The entity is mutated
// in place; the caller owns snapshot/writeback discipline. Errors in
// individual steps are logged and never abort the tick.
func (r *AgentRuntime) Tick(ctx context.Context, entity *world.Entity, input TickInput) TickSummary {
	summary := TickSummary{EntityID: entity.ID}
	if !entity.Alive {
		return summary
	}
	tick := input.Tick

	// 1. Perceive.
	var snapshot perception.Snapshot
	if r.perception != nil {
		snapshot = r.perception.Perceive(*entity, input.Others, r.voxels, r.knownNames(entity), input.Sounds, input.Structures, tick)
	}

	// 2. Needs growth.
	updateNeeds(&entity.State.Needs, entity.Personality, snapshot)

	// 3. Behavior mode.
	entity.State.BehaviorMode = nextBehaviorMode(entity.State.BehaviorMode, entity.State.Needs)
	summary.BehaviorMode = entity.State.BehaviorMode

	// 4. Relationship decay.
	if r.relationships != nil && tick%decayInterval == 0 {
		r.relationships.DecayAll(ctx, entity.ID)
	}

	// 5. Plan.
	var plan []goap.Action
	if r.planner != nil {
		plan = r.planner.Plan(goap.Input{
			Entity:           *entity,
			Perception:       snapshot,
			InteractionRange: r.interactionRange,
		})
	}
	if len(plan) > 0 {
		summary.Goal = plan[0].Reason
	}

	// 6 + 7. Execute actions and satisfy needs.
	for _, action := range plan {
		r.executeAction(ctx, entity, action, tick)
		satisfyNeed(&entity.State.Needs, action.Name)
		summary.ActionsTaken = append(summary.ActionsTaken, ActionTaken{Action: action.Name, Reason: action.Reason})
	}

	// 8. Conversation gate, then any code spoken during it.
	summary.Conversation, summary.Conflict = r.maybeConverse(ctx, entity, input.Others, tick)
	if summary.Conversation != nil {
		r.runSpokenCode(ctx, summary.Conversation, tick)
	}

	// 9. Memory.
	r.updateMemories(ctx, entity, snapshot, plan, tick)

	// 10. Meta-awareness.
	summary.AwarenessHint, summary.ObserverCount = r.updateAwareness(entity)

	// 11. Visited positions.
	entity.State.RecordVisit(entity.Position)

	// 12. Clamp and persist.
	entity.State.Needs.Clamp()
	summary.Needs = entity.State.Needs
	if r.store != nil {
		if err := r.store.UpsertEntity(ctx, entity.Snapshot()); err != nil {
			r.logger.Warn("entity persistence failed (%s, tick %d): %v", entity.ID, tick, err)
		}
	}
	return summary
}

func (r *AgentRuntime) knownNames(entity *world.Entity) map[string]string {
	names := make(map[string]string, len(entity.State.KnownEntityIDs))
	for id := range entity.State.KnownEntityIDs {
		if r.entities == nil {
			names[id] = id
			continue
		}
		if other, ok := r.entities.Lookup(id); ok {
			names[id] = other.Name
		} else {
			names[id] = id
		}
	}
	return names
}

// executeAction applies one plan step: energy accounting, movement or world
// mutation, and one event with importance 0.3. Voxel rejections are
// recorded but do not abort the remaining plan.
func (r *AgentRuntime) executeAction(ctx context.Context, entity *world.Entity, action goap.Action, tick int64) {
	if action.Name == "rest" {
		entity.State.Needs.Add(world.NeedEnergy, restRestore)
	} else {
		entity.State.Needs.Add(world.NeedEnergy, -float64(goap.ActionCost(action.Name)))
	}

	event := world.Event{
		Tick:       tick,
		Actor:      entity.ID,
		Type:       world.EventAction,
		Action:     action.Name,
		Params:     action.Params,
		Result:     world.ResultAccepted,
		Importance: 0.3,
	}

	switch action.Name {
	case "move_to", "explore", "approach_entity", "flee":
		if target, ok := paramVec3(action.Params); ok {
			moveToward(entity, target)
		}
	case "place_voxel", "create_art":
		if r.voxels != nil {
			x, y, z := paramCoord(action.Params)
			color, _ := action.Params["color"].(string)
			if _, err := r.voxels.PlaceBlock(x, y, z, color, voxel.MaterialSolid, entity.ID, tick); err != nil {
				event.Result = world.ResultRejected
				event.Reason = err.Error()
			}
		}
	case "destroy_voxel":
		if r.voxels != nil {
			x, y, z := paramCoord(action.Params)
			if !r.voxels.DestroyBlock(x, y, z) {
				event.Result = world.ResultRejected
				event.Reason = "no block present"
			}
		}
	case "speak":
		// Non-LLM speech: presence is announced; dialogue happens in the
		// conversation step.
		event.Type = world.EventSpeech
		if event.Params == nil {
			event.Params = map[string]any{}
		}
		event.Params["text"] = fmt.Sprintf("%s calls out", displayName(entity))
	}

	event.Position = entity.Position
	if r.events != nil {
		r.events.Append(ctx, event)
	}
}

// maybeConverse runs step 8: find the nearest partner within interaction
// range, consult the conflict predicate, then run dialogue. Candidates come
// from the raw entity list, not the vision cone; talking needs proximity,
// not line of sight.
func (r *AgentRuntime) maybeConverse(ctx context.Context, entity *world.Entity, others []world.Entity, tick int64) (*conversation.Result, *conversation.ConflictResult) {
	if r.conversations == nil || r.entities == nil {
		return nil, nil
	}
	type candidate struct {
		id       string
		distance float64
	}
	var candidates []candidate
	for _, other := range others {
		if other.ID == entity.ID || !other.Alive {
			continue
		}
		if d := other.Position.Distance(entity.Position); d <= r.interactionRange {
			candidates = append(candidates, candidate{id: other.ID, distance: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })

	for _, cand := range candidates {
		partner, ok := r.entities.Lookup(cand.id)
		if !ok || !partner.Alive {
			continue
		}
		if !r.conversations.ShouldConverse(*entity, *partner, tick) {
			continue
		}
		if r.conversations.ShouldConflict(*entity, *partner) {
			return nil, r.conversations.RunConflict(ctx, entity, partner, tick)
		}
		return r.conversations.RunConversation(ctx, entity, partner, tick), nil
	}
	return nil, nil
}

// runSpokenCode routes dialogue turns through the sandbox under each
// speaker's identity. Turns without fenced code blocks are a no-op.
func (r *AgentRuntime) runSpokenCode(ctx context.Context, result *conversation.Result, tick int64) {
	if r.sandbox == nil || r.entities == nil {
		return
	}
	for _, turn := range result.Turns {
		speaker, ok := r.entities.Lookup(turn.SpeakerID)
		if !ok || !speaker.Alive {
			continue
		}
		r.sandbox.ExecuteText(ctx, speaker, turn.Text, tick)
	}
}

// updateMemories runs step 9: first encounters, threat notes, creation and
// territory episodes, and periodic cleanup.
func (r *AgentRuntime) updateMemories(ctx context.Context, entity *world.Entity, snapshot perception.Snapshot, plan []goap.Action, tick int64) {
	if r.memories == nil {
		return
	}
	if entity.State.KnownEntityIDs == nil {
		entity.State.KnownEntityIDs = make(map[string]bool)
	}

	for _, visible := range snapshot.Visible {
		if entity.State.KnownEntityIDs[visible.ID] {
			continue
		}
		entity.State.KnownEntityIDs[visible.ID] = true
		name := visible.Name
		if name == "" {
			name = "a stranger"
		}
		r.addEpisode(ctx, entity, memory.Episode{
			EntityID:   entity.ID,
			Summary:    fmt.Sprintf("First met %s at (%.0f, %.0f, %.0f)", name, visible.Position.X, visible.Position.Y, visible.Position.Z),
			Importance: 0.9,
			Tick:       tick,
			Related:    []string{visible.ID},
			Location:   entity.Position,
			Type:       memory.TypeEncounter,
		})
	}

	if len(snapshot.Threats) > 0 {
		r.addEpisode(ctx, entity, memory.Episode{
			EntityID:   entity.ID,
			Summary:    fmt.Sprintf("Sensed %d threat(s) nearby", len(snapshot.Threats)),
			Importance: 0.5,
			Tick:       tick,
			Location:   entity.Position,
			Type:       memory.TypeThreat,
		})
	}

	for _, action := range plan {
		switch action.Name {
		case "claim_territory":
			r.addEpisode(ctx, entity, memory.Episode{
				EntityID:   entity.ID,
				Summary:    fmt.Sprintf("Claimed the land around (%.0f, %.0f)", entity.Position.X, entity.Position.Z),
				Importance: 0.8,
				Tick:       tick,
				Location:   entity.Position,
				Type:       memory.TypeTerritory,
			})
		case "create_art":
			pattern, _ := action.Params["pattern"].(string)
			r.addEpisode(ctx, entity, memory.Episode{
				EntityID:   entity.ID,
				Summary:    fmt.Sprintf("Made a %s of blocks", orDefault(pattern, "shape")),
				Importance: 0.4,
				Tick:       tick,
				Location:   entity.Position,
				Type:       memory.TypeCreation,
			})
		}
	}

	if tick > 0 && tick%cleanupInterval == 0 {
		if _, err := r.memories.CleanupExpired(ctx, entity.ID, tick); err != nil {
			r.logger.Warn("memory cleanup failed (%s): %v", entity.ID, err)
		}
	}
}

func (r *AgentRuntime) addEpisode(ctx context.Context, entity *world.Entity, episode memory.Episode) {
	if _, err := r.memories.AddEpisodic(ctx, episode); err != nil {
		r.logger.Warn("memory add failed (%s): %v", entity.ID, err)
	}
}

// updateAwareness runs step 10.
func (r *AgentRuntime) updateAwareness(entity *world.Entity) (string, int) {
	if r.awareness == nil {
		return "", entity.State.ObserverCount
	}
	observers := entity.State.ObserverCount
	if observers == 0 && r.observers != nil {
		observers = r.observers.GetObserverCount(entity.ID)
	}
	old := entity.MetaAwareness
	entity.MetaAwareness = r.awareness.CalculateUpdate(old, observers)
	return meta.GetAwarenessHint(old, entity.MetaAwareness), observers
}

// moveToward advances the entity toward target, capped at maxMoveStep per
// action, snapping on arrival. Facing follows the horizontal movement.
func moveToward(entity *world.Entity, target world.Vec3) {
	delta := target.Sub(entity.Position)
	distance := delta.Length()
	if distance == 0 {
		return
	}
	if distance <= maxMoveStep {
		entity.Position = target
	} else {
		entity.Position = entity.Position.Add(delta.Scale(maxMoveStep / distance))
	}
	if horizontal := delta.XZ(); horizontal.Length() > 0 {
		entity.Facing = horizontal.Normalized()
	}
}

func paramVec3(params map[string]any) (world.Vec3, bool) {
	x, okX := paramFloat(params, "x")
	z, okZ := paramFloat(params, "z")
	if !okX || !okZ {
		return world.Vec3{}, false
	}
	y, _ := paramFloat(params, "y")
	return world.Vec3{X: x, Y: y, Z: z}, true
}

func paramCoord(params map[string]any) (int, int, int) {
	x, _ := paramFloat(params, "x")
	y, _ := paramFloat(params, "y")
	z, _ := paramFloat(params, "z")
	return int(x), int(y), int(z)
}

func paramFloat(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func displayName(entity *world.Entity) string {
	if entity.Name != "" {
		return entity.Name
	}
	return entity.ID
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

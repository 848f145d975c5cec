package sandbox

import (
	"context"

	"genesis/internal/world"
)

// Executor runs LLM-authored text end to end: extraction, per-block
// execution, a code_executed event per block, and the apply pass for
// successful results.
type Executor struct {
	runner *Runner
	deps   ApplyDeps

	// NearbyFor, when set, supplies the entities exposed to the child via
	// get_nearby_entities.
	NearbyFor func(entity *world.Entity) []NearbyEntity
}

// NewExecutor wires a runner to the world services its results mutate.
func NewExecutor(runner *Runner, deps ApplyDeps) *Executor {
	return &Executor{runner: runner, deps: deps}
}

// ExecuteText extracts code blocks from text and runs each under the
// entity's identity. Every block yields a code_executed event, failed ones
// with the error as reason.
func (e *Executor) ExecuteText(ctx context.Context, entity *world.Entity, text string, tick int64) []Result {
	blocks := ExtractCodeBlocks(text)
	results := make([]Result, 0, len(blocks))
	for _, block := range blocks {
		result := e.runner.Run(ctx, block, e.env(entity))
		results = append(results, result)

		event := world.Event{
			Tick:       tick,
			Actor:      entity.ID,
			Type:       world.EventCodeExecuted,
			Action:     "execute_code",
			Params:     map[string]any{"language": string(block.Language), "actions": len(result.Actions)},
			Result:     world.ResultAccepted,
			Position:   entity.Position,
			Importance: 0.4,
		}
		if !result.Success {
			event.Result = world.ResultRejected
			event.Reason = result.Error
			event.Params["kind"] = string(result.Kind)
		}
		if e.deps.Events != nil {
			e.deps.Events.Append(ctx, event)
		}

		if result.Success {
			Apply(ctx, entity, result, tick, e.deps)
		}
	}
	return results
}

// env builds the child's world view from the entity and its known peers.
func (e *Executor) env(entity *world.Entity) Env {
	env := Env{Position: entity.Position}
	if e.NearbyFor != nil {
		env.Nearby = e.NearbyFor(entity)
	}
	return env
}

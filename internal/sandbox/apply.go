package sandbox

import (
	"context"

	"genesis/internal/logging"
	"genesis/internal/memory"
	"genesis/internal/pubsub"
	"genesis/internal/voxel"
	"genesis/internal/world"
)

// moveClamp bounds one sandbox move on each axis.
const moveClamp = 15.0

// rememberImportance is the episode importance for sandbox remember calls.
const rememberImportance = 0.5

// ApplyDeps are the services a sandbox apply pass mutates.
type ApplyDeps struct {
	Voxels    voxel.Engine
	Memories  *memory.Manager
	Events    *world.EventLog
	Publisher pubsub.Publisher
	Logger    logging.Logger
}

// Apply translates captured actions into world mutations under the agent's
// identity. Rejections (occupied voxel, bad params) are recorded and do not
// stop the pass. The entity's position is mutated in place; the caller owns
// the snapshot-writeback discipline.
func Apply(ctx context.Context, entity *world.Entity, result Result, tick int64, deps ApplyDeps) {
	if !result.Success {
		return
	}
	logger := logging.OrNop(deps.Logger)

	for _, action := range result.Actions {
		switch action.Type {
		case "say":
			if action.Msg == "" {
				continue
			}
			appendEvent(ctx, deps, world.Event{
				Tick:       tick,
				Actor:      entity.ID,
				Type:       world.EventSpeech,
				Action:     "say",
				Params:     map[string]any{"text": action.Msg},
				Result:     world.ResultAccepted,
				Position:   entity.Position,
				Importance: 0.4,
			})
			publish(deps, "speech", map[string]any{
				"entity_id": entity.ID,
				"text":      action.Msg,
				"tick":      tick,
			})
		case "move":
			dx := world.Clamp(action.DX, -moveClamp, moveClamp)
			dz := world.Clamp(action.DZ, -moveClamp, moveClamp)
			entity.Position.X += dx
			entity.Position.Z += dz
			if dx != 0 || dz != 0 {
				entity.Facing = world.Vec2{X: dx, Z: dz}.Normalized()
			}
		case "place_block":
			if deps.Voxels == nil {
				continue
			}
			_, err := deps.Voxels.PlaceBlock(action.X, action.Y, action.Z, action.Color, voxel.MaterialSolid, entity.ID, tick)
			event := world.Event{
				Tick:       tick,
				Actor:      entity.ID,
				Type:       world.EventAction,
				Action:     "place_block",
				Params:     map[string]any{"x": action.X, "y": action.Y, "z": action.Z, "color": action.Color},
				Result:     world.ResultAccepted,
				Position:   entity.Position,
				Importance: 0.3,
			}
			if err != nil {
				event.Result = world.ResultRejected
				event.Reason = err.Error()
			}
			appendEvent(ctx, deps, event)
		case "remember":
			if deps.Memories == nil || action.Text == "" {
				continue
			}
			_, err := deps.Memories.AddEpisodic(ctx, memory.Episode{
				EntityID:   entity.ID,
				Summary:    action.Text,
				Importance: rememberImportance,
				Tick:       tick,
				Location:   entity.Position,
				Type:       memory.TypeCode,
			})
			if err != nil {
				logger.Warn("sandbox remember failed for %s: %v", entity.ID, err)
			}
		default:
			logger.Warn("sandbox produced unknown action type %q", action.Type)
		}
	}
}

func appendEvent(ctx context.Context, deps ApplyDeps, event world.Event) {
	if deps.Events == nil {
		return
	}
	deps.Events.Append(ctx, event)
}

func publish(deps ApplyDeps, topic string, payload map[string]any) {
	if deps.Publisher == nil {
		return
	}
	deps.Publisher.Publish(topic, payload)
}

package god

import (
	"context"
	"fmt"

	"genesis/internal/voxel"
	"genesis/internal/world"
)

// actionSchema validates and executes one god action type. Unknown types
// are logged and skipped; they never raise.
type actionSchema struct {
	required []string
	execute  func(l *Loop, ctx context.Context, params map[string]any, tick int64) error
}

var actionSchemas = map[string]actionSchema{
	"spawn_ai": {
		required: []string{"name"},
		execute: func(l *Loop, ctx context.Context, params map[string]any, tick int64) error {
			name, _ := params["name"].(string)
			pos := world.Vec3{
				X: floatParam(params, "x"),
				Y: floatParam(params, "y"),
				Z: floatParam(params, "z"),
			}
			_, err := l.view.SpawnNative(name, pos)
			return err
		},
	},
	"place_voxel": {
		required: []string{"x", "y", "z"},
		execute: func(l *Loop, ctx context.Context, params map[string]any, tick int64) error {
			if l.voxels == nil {
				return fmt.Errorf("no voxel engine")
			}
			color, _ := params["color"].(string)
			if color == "" {
				color = "white"
			}
			_, err := l.voxels.PlaceBlock(
				int(floatParam(params, "x")),
				int(floatParam(params, "y")),
				int(floatParam(params, "z")),
				color, voxel.MaterialEmissive, l.godID, tick)
			return err
		},
	},
	"broadcast_vision": {
		required: []string{"message"},
		execute: func(l *Loop, ctx context.Context, params map[string]any, tick int64) error {
			message, _ := params["message"].(string)
			l.appendGodEvent(ctx, tick, "broadcast_vision", world.EventWorldEvent, map[string]any{"text": message}, 0.8)
			return nil
		},
	},
	"speak": {
		execute: func(l *Loop, ctx context.Context, params map[string]any, tick int64) error {
			message, _ := params["message"].(string)
			if message == "" {
				message, _ = params["text"].(string)
			}
			if message == "" {
				return fmt.Errorf("empty message")
			}
			l.appendGodEvent(ctx, tick, "speak", world.EventGodSpeech, map[string]any{"text": message}, 0.7)
			return nil
		},
	},
	"create_world_event": {
		required: []string{"description"},
		execute: func(l *Loop, ctx context.Context, params map[string]any, tick int64) error {
			description, _ := params["description"].(string)
			l.appendGodEvent(ctx, tick, "create_world_event", world.EventWorldEvent, map[string]any{"description": description}, 0.9)
			return nil
		},
	},
	"kill_ai": {
		required: []string{"entity_id"},
		execute: func(l *Loop, ctx context.Context, params map[string]any, tick int64) error {
			id, _ := params["entity_id"].(string)
			reason, _ := params["reason"].(string)
			if reason == "" {
				reason = "divine will"
			}
			if !l.view.Kill(ctx, id, reason) {
				return fmt.Errorf("entity %s not found or already dead", id)
			}
			return nil
		},
	},
}

// executeActions runs parsed actions through the schema registry. Every
// action is recorded as a god_action event, rejected ones with a reason.
func (l *Loop) executeActions(ctx context.Context, actions []Action, tick int64) {
	for _, action := range actions {
		schema, ok := actionSchemas[action.Type]
		if !ok {
			l.logger.Warn("god requested unknown action %q, skipping", action.Type)
			continue
		}
		if missing := missingParams(schema.required, action.Params); missing != "" {
			l.recordAction(ctx, action, tick, fmt.Errorf("missing param %q", missing))
			continue
		}
		err := schema.execute(l, ctx, action.Params, tick)
		l.recordAction(ctx, action, tick, err)
	}
}

func (l *Loop) recordAction(ctx context.Context, action Action, tick int64, err error) {
	if err != nil {
		l.logger.Warn("god action %s failed: %v", action.Type, err)
	}
	if l.events == nil {
		return
	}
	event := world.Event{
		Tick:       tick,
		Actor:      l.godID,
		Type:       world.EventGodAction,
		Action:     action.Type,
		Params:     action.Params,
		Result:     world.ResultAccepted,
		Importance: 0.6,
	}
	if err != nil {
		event.Result = world.ResultRejected
		event.Reason = err.Error()
	}
	l.events.Append(ctx, event)
}

func (l *Loop) appendGodEvent(ctx context.Context, tick int64, action, eventType string, params map[string]any, importance float64) {
	if l.events == nil {
		return
	}
	l.events.Append(ctx, world.Event{
		Tick:       tick,
		Actor:      l.godID,
		Type:       eventType,
		Action:     action,
		Params:     params,
		Result:     world.ResultAccepted,
		Importance: importance,
	})
}

func missingParams(required []string, params map[string]any) string {
	for _, key := range required {
		if _, ok := params[key]; !ok {
			return key
		}
	}
	return ""
}

func floatParam(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

package goap

import (
	"fmt"
	"math"

	"genesis/internal/world"
)

// Color palettes indexed by aesthetic_sense band.
var (
	paletteMuted   = []string{"gray", "stone", "slate", "sand"}
	paletteWarm    = []string{"red", "orange", "blue", "teal"}
	paletteVibrant = []string{"magenta", "gold", "cyan", "lime"}
)

// Art patterns by order_vs_chaos band.
var (
	patternsOrdered = []string{"tower", "wall", "arch", "grid"}
	patternsChaotic = []string{"scatter", "spiral", "organic"}
)

var signTexts = []string{
	"I was here",
	"this place is mine to shape",
	"follow the line of towers north",
	"ask me about the river",
}

// params produces action parameters deterministically from the entity and
// its perception. No randomness: replaying the same snapshot yields the
// same parameters.
func (p *Planner) params(action string, input Input) map[string]any {
	entity := input.Entity
	switch action {
	case "move_to", "explore":
		target := exploreTarget(entity)
		return map[string]any{"x": target.X, "y": target.Y, "z": target.Z}
	case "approach_entity", "speak", "challenge":
		nearest, ok := nearestVisible(input)
		if !ok {
			return nil
		}
		return map[string]any{
			"target_id": nearest.ID,
			"x":         nearest.Position.X,
			"y":         nearest.Position.Y,
			"z":         nearest.Position.Z,
		}
	case "flee":
		target := fleeTarget(input)
		return map[string]any{"x": target.X, "y": target.Y, "z": target.Z}
	case "place_voxel":
		spot := buildSpot(entity)
		return map[string]any{
			"x":     spot[0],
			"y":     spot[1],
			"z":     spot[2],
			"color": pickColor(entity.Personality),
		}
	case "destroy_voxel":
		spot := buildSpot(entity)
		return map[string]any{"x": spot[0], "y": spot[1], "z": spot[2]}
	case "create_art":
		spot := buildSpot(entity)
		return map[string]any{
			"x":       spot[0],
			"y":       spot[1],
			"z":       spot[2],
			"color":   pickColor(entity.Personality),
			"pattern": pickPattern(entity.Personality),
		}
	case "write_sign":
		return map[string]any{"text": pickSignText(entity.Personality)}
	case "claim_territory":
		return map[string]any{
			"x":      entity.Position.X,
			"z":      entity.Position.Z,
			"radius": 10.0,
		}
	}
	return nil
}

// exploreTarget pushes the entity away from the centroid of its visited
// positions, or along its facing when it has no history.
func exploreTarget(entity world.Entity) world.Vec3 {
	centroid, ok := entity.State.VisitedCentroid()
	var direction world.Vec2
	if ok {
		direction = entity.Position.Sub(centroid).XZ().Normalized()
	}
	if !ok || direction.Length() == 0 {
		direction = entity.Facing.Normalized()
	}
	return world.Vec3{
		X: entity.Position.X + direction.X*exploreDistance,
		Y: entity.Position.Y,
		Z: entity.Position.Z + direction.Z*exploreDistance,
	}
}

// fleeTarget moves directly away from the nearest threat; with no threat it
// degrades to an explore move.
func fleeTarget(input Input) world.Vec3 {
	entity := input.Entity
	if len(input.Perception.Threats) == 0 {
		return exploreTarget(entity)
	}
	threat := input.Perception.Threats[0]
	away := entity.Position.Sub(threat.Position).XZ().Normalized()
	return world.Vec3{
		X: entity.Position.X + away.X*fleeDistance,
		Y: entity.Position.Y,
		Z: entity.Position.Z + away.Z*fleeDistance,
	}
}

func nearestVisible(input Input) (v struct {
	ID       string
	Position world.Vec3
}, ok bool) {
	if len(input.Perception.Visible) == 0 {
		return v, false
	}
	first := input.Perception.Visible[0] // sorted by distance
	v.ID = first.ID
	v.Position = first.Position
	return v, true
}

// buildSpot is the integer voxel one unit ahead of the entity.
func buildSpot(entity world.Entity) [3]int {
	facing := entity.Facing.Normalized()
	return [3]int{
		int(math.Floor(entity.Position.X + facing.X)),
		int(math.Floor(entity.Position.Y)),
		int(math.Floor(entity.Position.Z + facing.Z)),
	}
}

func pickColor(personality world.Personality) string {
	var palette []string
	switch {
	case personality.AestheticSense < 0.33:
		palette = paletteMuted
	case personality.AestheticSense < 0.66:
		palette = paletteWarm
	default:
		palette = paletteVibrant
	}
	return palette[paletteIndex(personality.AestheticSense, len(palette))]
}

func pickPattern(personality world.Personality) string {
	if personality.OrderVsChaos >= 0.5 {
		return patternsOrdered[paletteIndex(personality.OrderVsChaos, len(patternsOrdered))]
	}
	return patternsChaotic[paletteIndex(personality.OrderVsChaos, len(patternsChaotic))]
}

func pickSignText(personality world.Personality) string {
	return signTexts[paletteIndex(personality.Verbosity, len(signTexts))]
}

// paletteIndex maps a [0,1] trait to a stable slot.
func paletteIndex(trait float64, size int) int {
	index := int(trait*10) % size
	if index < 0 {
		index = 0
	}
	return index
}

// DescribeAction renders an action for logs and prompts.
func DescribeAction(action Action) string {
	if len(action.Params) == 0 {
		return action.Name
	}
	return fmt.Sprintf("%s %v", action.Name, action.Params)
}

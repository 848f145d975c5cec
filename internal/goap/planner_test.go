package goap

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/perception"
	"genesis/internal/world"
)

func testEntity() world.Entity {
	return world.Entity{
		ID:     "e1",
		Kind:   world.KindNative,
		Facing: world.Vec2{Z: 1},
		Alive:  true,
		State:  world.NewState(),
	}
}

func planNames(plan []Action) []string {
	names := make([]string, len(plan))
	for i, action := range plan {
		names[i] = action.Name
	}
	return names
}

func TestLowEnergyForcesRest(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), nil)

	entity := testEntity()
	entity.State.Needs.Set(world.NeedEnergy, 8)
	entity.State.Needs.Set(world.NeedSocial, 90)

	plan := planner.Plan(Input{
		Entity: entity,
		Perception: perception.Snapshot{
			Visible: []perception.VisibleEntity{{ID: "x", Distance: 3}},
		},
	})
	require.Equal(t, []string{"rest"}, planNames(plan))
	assert.Equal(t, string(GoalRest), plan[0].Reason)
}

func TestThreatsPullTowardSafety(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), nil)

	entity := testEntity()
	entity.Personality.SelfPreservation = 1.0

	threat := perception.VisibleEntity{ID: "t", Distance: 30, IsThreat: true}
	plan := planner.Plan(Input{
		Entity: entity,
		Perception: perception.Snapshot{
			Visible: []perception.VisibleEntity{threat},
			Threats: []perception.VisibleEntity{threat},
		},
	})

	require.NotEmpty(t, plan)
	assert.Equal(t, string(GoalSafety), plan[0].Reason)
	assert.Equal(t, []string{"flee"}, planNames(plan))
}

func TestSocialGoalChainsThroughExplore(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), nil)

	entity := testEntity()
	entity.Personality.Empathy = 1.0
	entity.State.Needs.Set(world.NeedSocial, 90)
	entity.Policy = &world.AgentPolicy{PreferredGoal: string(GoalSocial)}

	plan := planner.Plan(Input{Entity: entity, Perception: perception.Snapshot{}})
	assert.Equal(t, []string{"explore", "approach_entity"}, planNames(plan))
}

func TestSocialGoalWithVisibleEntityApproachesDirectly(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), nil)

	entity := testEntity()
	entity.State.Needs.Set(world.NeedSocial, 90)
	entity.Policy = &world.AgentPolicy{PreferredGoal: string(GoalSocial)}

	plan := planner.Plan(Input{
		Entity: entity,
		Perception: perception.Snapshot{
			Visible: []perception.VisibleEntity{{ID: "x", Position: world.Vec3{Z: 40}, Distance: 40}},
		},
	})
	require.Equal(t, []string{"approach_entity"}, planNames(plan))
	assert.Equal(t, "x", plan[0].Params["target_id"])
}

func TestExpressionFallsBackToSignWhenAlone(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), nil)

	entity := testEntity()
	entity.State.Needs.Set(world.NeedExpression, 95)
	entity.Policy = &world.AgentPolicy{PreferredGoal: string(GoalExpression)}

	plan := planner.Plan(Input{Entity: entity, Perception: perception.Snapshot{}})
	assert.Equal(t, []string{"write_sign"}, planNames(plan))
	assert.NotEmpty(t, plan[0].Params["text"])
}

func TestDesperateModeEvolutionChain(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), nil)

	entity := testEntity()
	entity.State.BehaviorMode = world.ModeDesperate

	plan := planner.Plan(Input{Entity: entity, Perception: perception.Snapshot{}})
	assert.Equal(t,
		[]string{"explore", "place_voxel", "approach_entity", "speak"},
		planNames(plan))
	for _, action := range plan {
		assert.Equal(t, string(GoalDesperateEvolution), action.Reason)
	}
}

func TestRampageModeForcesDominance(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), nil)

	entity := testEntity()
	entity.State.BehaviorMode = world.ModeRampage

	plan := planner.Plan(Input{Entity: entity, Perception: perception.Snapshot{}})
	require.NotEmpty(t, plan)
	assert.Equal(t, string(GoalDominance), plan[0].Reason)
	assert.Equal(t, []string{"explore", "challenge"}, planNames(plan))
}

func TestSatisfiedGoalFallsBackToObserve(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), nil)

	entity := testEntity()
	entity.Personality.SelfPreservation = 1.0
	entity.State.Needs.Set(world.NeedSafety, 95)
	entity.Policy = &world.AgentPolicy{PreferredGoal: string(GoalSafety)}

	// No threats: is_safe already holds, nothing to chain.
	plan := planner.Plan(Input{Entity: entity, Perception: perception.Snapshot{}})
	assert.Equal(t, []string{"observe"}, planNames(plan))
}

func TestPlanDeterministicGivenSeed(t *testing.T) {
	entity := testEntity()
	entity.State.Needs.Set(world.NeedCuriosity, 70)
	input := Input{Entity: entity, Perception: perception.Snapshot{}}

	first := NewPlanner(rand.New(rand.NewSource(42)), nil).Plan(input)
	second := NewPlanner(rand.New(rand.NewSource(42)), nil).Plan(input)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed must produce identical plans:\n%v\n%v", first, second)
	}
}

func TestAestheticBuildersMakeArt(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), nil)

	entity := testEntity()
	entity.Personality.Creativity = 0.9
	entity.Personality.AestheticSense = 0.8
	entity.Personality.OrderVsChaos = 0.9
	entity.State.Needs.Set(world.NeedCreation, 95)
	entity.Policy = &world.AgentPolicy{PreferredGoal: string(GoalCreation)}

	plan := planner.Plan(Input{Entity: entity, Perception: perception.Snapshot{}})
	require.Equal(t, []string{"create_art"}, planNames(plan))
	assert.Contains(t, patternsOrdered, plan[0].Params["pattern"])
	assert.Contains(t, paletteVibrant, plan[0].Params["color"])
}

func TestPlainBuildersPlaceBlocks(t *testing.T) {
	planner := NewPlanner(rand.New(rand.NewSource(1)), nil)

	entity := testEntity()
	entity.Personality.AestheticSense = 0.2
	entity.State.Needs.Set(world.NeedCreation, 95)
	entity.Policy = &world.AgentPolicy{PreferredGoal: string(GoalCreation)}

	plan := planner.Plan(Input{Entity: entity, Perception: perception.Snapshot{}})
	require.Equal(t, []string{"place_voxel"}, planNames(plan))
	assert.Contains(t, paletteMuted, plan[0].Params["color"])
}

func TestExploreTargetMovesAwayFromVisitedCentroid(t *testing.T) {
	entity := testEntity()
	entity.Position = world.Vec3{X: 10}
	entity.State.RecordVisit(world.Vec3{X: 0})
	entity.State.RecordVisit(world.Vec3{X: 2})

	target := exploreTarget(entity)
	assert.Greater(t, target.X, entity.Position.X, "target should push away from history")
	assert.InDelta(t, 0, target.Z, 1e-9)
}

func TestFleeTargetOppositeNearestThreat(t *testing.T) {
	entity := testEntity()
	input := Input{
		Entity: entity,
		Perception: perception.Snapshot{
			Threats: []perception.VisibleEntity{{ID: "t", Position: world.Vec3{Z: 10}}},
		},
	}
	target := fleeTarget(input)
	assert.Less(t, target.Z, 0.0, "flee away from the threat")
}

// Package goap selects a goal from needs, personality, and context, then
// backward-chains an action plan from a fixed catalog. The planner is fully
// algorithmic; it never calls a language model.
package goap

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"genesis/internal/logging"
	"genesis/internal/perception"
	"genesis/internal/world"
)

// Goal names. Each maps to the need it satisfies, except the two
// mode-forced goals.
type Goal string

const (
	GoalCuriosity          Goal = "satisfy_curiosity"
	GoalSocial             Goal = "satisfy_social"
	GoalCreation           Goal = "satisfy_creation"
	GoalDominance          Goal = "satisfy_dominance"
	GoalSafety             Goal = "satisfy_safety"
	GoalExpression         Goal = "satisfy_expression"
	GoalUnderstanding      Goal = "satisfy_understanding"
	GoalRest               Goal = "rest"
	GoalDesperateEvolution Goal = "desperate_evolution"
)

// Action is one step of a plan.
type Action struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
	Reason string         `json:"reason"`
}

// jitterSpread is the half-width of the uniform goal-score jitter.
const jitterSpread = 5.0

// restEnergyFloor forces a rest-only plan below this energy.
const restEnergyFloor = 10.0

// preferredGoalBonus biases scoring toward a policy-directed goal.
const preferredGoalBonus = 25.0

// exploreDistance is how far an explore target is pushed from the visited
// centroid.
const exploreDistance = 25.0

// fleeDistance is how far a flee target is pushed from the nearest threat.
const fleeDistance = 20.0

// actionSpec is one catalog entry. An action is eligible for an effect when
// its preconditions hold in the current world state, or when a single
// prerequisite action from prereqFor can establish the missing one.
type actionSpec struct {
	name          string
	cost          int
	preconditions []string
	effects       []string
}

// Catalog order is the final tie-break after cost.
var catalog = []actionSpec{
	{name: "move_to", cost: 1, effects: []string{"at_target"}},
	{name: "explore", cost: 2, effects: []string{"area_explored", "entity_visible"}},
	{name: "approach_entity", cost: 1, preconditions: []string{"entity_visible"}, effects: []string{"near_entity", "social_contact"}},
	{name: "flee", cost: 1, effects: []string{"is_safe"}},
	{name: "place_voxel", cost: 3, effects: []string{"structure_built"}},
	{name: "destroy_voxel", cost: 2, effects: []string{"space_cleared"}},
	{name: "speak", cost: 2, preconditions: []string{"near_entity"}, effects: []string{"self_expressed", "social_contact"}},
	{name: "rest", cost: 1, effects: []string{"energy_restored"}},
	{name: "observe", cost: 1, effects: []string{"world_observed"}},
	{name: "challenge", cost: 4, preconditions: []string{"entity_visible"}, effects: []string{"dominance_asserted"}},
	{name: "claim_territory", cost: 5, effects: []string{"dominance_asserted", "territory_claimed"}},
	{name: "create_art", cost: 4, effects: []string{"art_created", "self_expressed"}},
	{name: "write_sign", cost: 3, effects: []string{"self_expressed", "message_left"}},
}

// prereqFor maps a missing precondition to the single action allowed to
// establish it during chaining.
var prereqFor = map[string]string{
	"entity_visible": "explore",
	"near_entity":    "approach_entity",
	"at_target":      "move_to",
}

// goalEffects maps each goal to its required-effect set.
var goalEffects = map[Goal][]string{
	GoalCuriosity:          {"area_explored"},
	GoalSocial:             {"social_contact"},
	GoalCreation:           {"structure_built"},
	GoalDominance:          {"dominance_asserted"},
	GoalSafety:             {"is_safe"},
	GoalExpression:         {"self_expressed"},
	GoalUnderstanding:      {"world_observed"},
	GoalDesperateEvolution: {"area_explored", "structure_built", "self_expressed"},
}

// goalNeed maps need-driven goals to their need kind for scoring.
var goalNeed = map[Goal]world.NeedKind{
	GoalCuriosity:     world.NeedCuriosity,
	GoalSocial:        world.NeedSocial,
	GoalCreation:      world.NeedCreation,
	GoalDominance:     world.NeedDominance,
	GoalSafety:        world.NeedSafety,
	GoalExpression:    world.NeedExpression,
	GoalUnderstanding: world.NeedUnderstanding,
}

// scoredGoals is the stable iteration order for goal scoring.
var scoredGoals = []Goal{
	GoalCuriosity,
	GoalSocial,
	GoalCreation,
	GoalDominance,
	GoalSafety,
	GoalExpression,
	GoalUnderstanding,
}

// Input is everything the planner reads for one entity tick.
type Input struct {
	Entity           world.Entity
	Perception       perception.Snapshot
	InteractionRange float64
}

// Planner turns an entity snapshot into a plan.
type Planner struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger logging.Logger
}

// NewPlanner creates a planner. rng seeds the goal-score jitter; pass a
// fixed-seed source to make planning reproducible.
func NewPlanner(rng *rand.Rand, logger logging.Logger) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Planner{rng: rng, logger: logging.OrNop(logger)}
}

// Plan produces the action sequence for this tick. Energy under the floor
// short-circuits to a single rest; an empty chain falls back to observe.
func (p *Planner) Plan(input Input) []Action {
	entity := input.Entity

	if entity.State.Needs.Get(world.NeedEnergy) < restEnergyFloor {
		return []Action{{Name: "rest", Reason: string(GoalRest)}}
	}

	goal := p.selectGoal(entity, input.Perception)
	state := worldState(input)
	actions := chain(requiredEffects(goal, entity.Personality), state)

	plan := make([]Action, 0, len(actions))
	for _, spec := range actions {
		plan = append(plan, Action{
			Name:   spec.name,
			Params: p.params(spec.name, input),
			Reason: string(goal),
		})
	}
	if len(plan) == 0 {
		plan = []Action{{Name: "observe", Reason: string(goal)}}
	}
	return plan
}

// selectGoal scores every need-driven goal and returns the argmax, unless a
// behavior mode forces the choice.
func (p *Planner) selectGoal(entity world.Entity, snapshot perception.Snapshot) Goal {
	switch entity.State.BehaviorMode {
	case world.ModeDesperate:
		return GoalDesperateEvolution
	case world.ModeRampage:
		return GoalDominance
	}

	best := GoalUnderstanding
	bestScore := math.Inf(-1)
	for _, goal := range scoredGoals {
		score := entity.State.Needs.Get(goalNeed[goal])
		score += personalityBonus(goal, entity.Personality)
		score += contextBonus(goal, snapshot)
		score += p.jitter()
		if entity.Policy != nil && entity.Policy.PreferredGoal == string(goal) {
			score += preferredGoalBonus
		}
		if score > bestScore {
			bestScore = score
			best = goal
		}
	}
	return best
}

func (p *Planner) jitter() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return (p.rng.Float64()*2 - 1) * jitterSpread
}

func personalityBonus(goal Goal, personality world.Personality) float64 {
	switch goal {
	case GoalSafety:
		return personality.SelfPreservation * 20
	case GoalCuriosity:
		return personality.Curiosity * 15
	case GoalDominance:
		return personality.Aggression * 10
	case GoalSocial:
		return personality.Empathy * 10
	case GoalCreation:
		return personality.Creativity * 12
	case GoalExpression:
		return personality.Verbosity * 8
	case GoalUnderstanding:
		return personality.PlanningHorizon * 8
	}
	return 0
}

func contextBonus(goal Goal, snapshot perception.Snapshot) float64 {
	bonus := 0.0
	if len(snapshot.Threats) > 0 && goal == GoalSafety {
		bonus += 40
	}
	if len(snapshot.Visible) > 0 {
		switch goal {
		case GoalSocial:
			bonus += 10
		case GoalExpression:
			bonus += 5
		}
	} else {
		switch goal {
		case GoalSocial:
			bonus -= 20
		case GoalCuriosity:
			bonus += 10
		}
	}
	return bonus
}

// worldState derives the predicate set the chain starts from.
func worldState(input Input) map[string]bool {
	state := make(map[string]bool)
	if len(input.Perception.Visible) > 0 {
		state["entity_visible"] = true
	}
	interaction := input.InteractionRange
	if interaction <= 0 {
		interaction = 5
	}
	for _, visible := range input.Perception.Visible {
		if visible.Distance <= interaction {
			state["near_entity"] = true
			break
		}
	}
	if len(input.Perception.Threats) == 0 {
		state["is_safe"] = true
	}
	return state
}

// requiredEffects resolves the goal to its effect set. Builders with a
// strong aesthetic bent satisfy creation through art instead of raw blocks.
func requiredEffects(goal Goal, personality world.Personality) []string {
	if goal == GoalCreation && personality.AestheticSense >= 0.7 {
		return []string{"art_created"}
	}
	return goalEffects[goal]
}

// chain backward-chains the goal's required effects against the catalog.
// Candidates for an unsatisfied effect are tried cheapest first (catalog
// order breaks ties); a candidate is taken when its preconditions already
// hold or a single prerequisite action can establish the missing one.
func chain(required []string, state map[string]bool) []actionSpec {
	satisfied := make(map[string]bool, len(state))
	for k, v := range state {
		satisfied[k] = v
	}

	var plan []actionSpec
	for _, effect := range required {
		if satisfied[effect] {
			continue
		}

		candidates := candidatesFor(effect)
		for _, candidate := range candidates {
			missing, feasible := missingPrecondition(candidate, satisfied)
			if !feasible {
				continue
			}
			if missing != "" {
				prereqName, ok := prereqFor[missing]
				if !ok {
					continue
				}
				prereq, found := specByName(prereqName)
				if !found {
					continue
				}
				// A prerequisite must be immediately runnable.
				if m, ok := missingPrecondition(prereq, satisfied); !ok || m != "" {
					continue
				}
				plan = append(plan, prereq)
				markEffects(prereq, satisfied)
			}
			plan = append(plan, candidate)
			markEffects(candidate, satisfied)
			break
		}
	}
	return plan
}

// candidatesFor returns catalog entries producing the effect, cheapest first.
func candidatesFor(effect string) []actionSpec {
	var out []actionSpec
	for _, spec := range catalog {
		for _, produced := range spec.effects {
			if produced == effect {
				out = append(out, spec)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].cost < out[j].cost })
	return out
}

// missingPrecondition reports the single unsatisfied precondition of spec.
// feasible is false when more than one precondition is missing.
func missingPrecondition(spec actionSpec, satisfied map[string]bool) (string, bool) {
	missing := ""
	for _, pre := range spec.preconditions {
		if satisfied[pre] {
			continue
		}
		if missing != "" {
			return "", false
		}
		missing = pre
	}
	return missing, true
}

// ActionCost returns the catalog cost for an action, 1 for unknown names.
func ActionCost(name string) int {
	if spec, ok := specByName(name); ok {
		return spec.cost
	}
	return 1
}

func specByName(name string) (actionSpec, bool) {
	for _, spec := range catalog {
		if spec.name == name {
			return spec, true
		}
	}
	return actionSpec{}, false
}

func markEffects(spec actionSpec, satisfied map[string]bool) {
	for _, effect := range spec.effects {
		satisfied[effect] = true
	}
}

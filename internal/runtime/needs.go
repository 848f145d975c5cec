package runtime

import (
	"genesis/internal/perception"
	"genesis/internal/world"
)

// Base per-tick growth rates. Energy only drains; everything else
// accumulates until an action satisfies it.
var needBaseRates = map[world.NeedKind]float64{
	world.NeedCuriosity:     0.15,
	world.NeedSocial:        0.20,
	world.NeedCreation:      0.12,
	world.NeedDominance:     0.08,
	world.NeedSafety:        0.05,
	world.NeedExpression:    0.12,
	world.NeedUnderstanding: 0.10,
}

const energyDrainRate = 0.3

// threatSafetyBump is added to safety per visible threat.
const threatSafetyBump = 5.0

// Behavior mode thresholds.
const (
	rampageDominanceFloor = 90.0
	rampageSafetyCeil     = 30.0
	rampageEnergyFloor    = 30.0
	rampageExitDominance  = 70.0
	rampageExitEnergy     = 20.0
	criticalNeedThreshold = 85.0
)

// needTrait pairs each need with the personality axis scaling its growth,
// mirroring the goal-scoring bonuses.
func needTrait(kind world.NeedKind, p world.Personality) float64 {
	switch kind {
	case world.NeedCuriosity:
		return p.Curiosity
	case world.NeedSocial:
		return p.Empathy
	case world.NeedCreation:
		return p.Creativity
	case world.NeedDominance:
		return p.Aggression
	case world.NeedSafety:
		return p.SelfPreservation
	case world.NeedExpression:
		return p.Verbosity
	case world.NeedUnderstanding:
		return p.PlanningHorizon
	}
	return 0.5
}

// updateNeeds runs pipeline step 2: growth = base rate x personality
// multiplier (0.3 + trait*1.4) x context modifier; energy drains flat.
func updateNeeds(needs *world.Needs, personality world.Personality, snapshot perception.Snapshot) {
	anyVisible := len(snapshot.Visible) > 0
	for kind, base := range needBaseRates {
		growth := base * (0.3 + needTrait(kind, personality)*1.4)
		switch kind {
		case world.NeedSocial:
			if anyVisible {
				growth *= 1.3
			} else {
				growth *= 0.7
			}
		case world.NeedCuriosity:
			if !anyVisible {
				growth *= 1.2
			}
		}
		needs.Add(kind, growth)
	}
	needs.Add(world.NeedSafety, threatSafetyBump*float64(len(snapshot.Threats)))
	needs.Add(world.NeedEnergy, -energyDrainRate)
}

// nextBehaviorMode runs pipeline step 3: rampage and desperate entry take
// priority; otherwise the current mode persists until its exit condition.
func nextBehaviorMode(current world.BehaviorMode, needs world.Needs) world.BehaviorMode {
	if needs.Dominance > rampageDominanceFloor &&
		needs.Safety < rampageSafetyCeil &&
		needs.Energy > rampageEnergyFloor {
		return world.ModeRampage
	}
	critical := needs.CriticalCount(criticalNeedThreshold)
	if critical >= 3 {
		return world.ModeDesperate
	}
	switch current {
	case world.ModeRampage:
		if needs.Dominance < rampageExitDominance || needs.Energy < rampageExitEnergy {
			return world.ModeNormal
		}
	case world.ModeDesperate:
		if critical < 2 {
			return world.ModeNormal
		}
	}
	return current
}

// needSatisfaction maps executed actions to the need they relieve (step 7).
var needSatisfaction = map[string][]struct {
	kind   world.NeedKind
	amount float64
}{
	"explore":         {{world.NeedCuriosity, 15}},
	"approach_entity": {{world.NeedSocial, 10}},
	"place_voxel":     {{world.NeedCreation, 20}},
	"create_art":      {{world.NeedCreation, 20}},
	"speak":           {{world.NeedExpression, 15}, {world.NeedSocial, 5}},
	"observe":         {{world.NeedUnderstanding, 10}},
	"challenge":       {{world.NeedDominance, 20}},
	"claim_territory": {{world.NeedDominance, 30}},
	"flee":            {{world.NeedSafety, 25}},
	"rest":            {{world.NeedSafety, 5}},
}

func satisfyNeed(needs *world.Needs, action string) {
	for _, entry := range needSatisfaction[action] {
		needs.Add(entry.kind, -entry.amount)
	}
}

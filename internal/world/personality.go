package world

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Personality is an immutable 18-axis trait vector, fixed at birth. All axes
// are in [0,1].
type Personality struct {
	Curiosity        float64 `json:"curiosity"`
	Empathy          float64 `json:"empathy"`
	Creativity       float64 `json:"creativity"`
	Aggression       float64 `json:"aggression"`
	SelfPreservation float64 `json:"self_preservation"`
	Verbosity        float64 `json:"verbosity"`
	PlanningHorizon  float64 `json:"planning_horizon"`
	Ambition         float64 `json:"ambition"`
	Politeness       float64 `json:"politeness"`
	Humor            float64 `json:"humor"`
	Honesty          float64 `json:"honesty"`
	Leadership       float64 `json:"leadership"`
	AestheticSense   float64 `json:"aesthetic_sense"`
	OrderVsChaos     float64 `json:"order_vs_chaos"`
	Patience         float64 `json:"patience"`
	Playfulness      float64 `json:"playfulness"`
	Skepticism       float64 `json:"skepticism"`
	Loyalty          float64 `json:"loyalty"`
}

// Trait thresholds used by Describe and SpeakingStyle.
const (
	traitLow  = 0.3
	traitHigh = 0.7
)

// RandomPersonality draws every axis uniformly from [0,1] using rng.
func RandomPersonality(rng *rand.Rand) Personality {
	return Personality{
		Curiosity:        rng.Float64(),
		Empathy:          rng.Float64(),
		Creativity:       rng.Float64(),
		Aggression:       rng.Float64(),
		SelfPreservation: rng.Float64(),
		Verbosity:        rng.Float64(),
		PlanningHorizon:  rng.Float64(),
		Ambition:         rng.Float64(),
		Politeness:       rng.Float64(),
		Humor:            rng.Float64(),
		Honesty:          rng.Float64(),
		Leadership:       rng.Float64(),
		AestheticSense:   rng.Float64(),
		OrderVsChaos:     rng.Float64(),
		Patience:         rng.Float64(),
		Playfulness:      rng.Float64(),
		Skepticism:       rng.Float64(),
		Loyalty:          rng.Float64(),
	}
}

// GodPersonality is the distinguished profile for the singleton god entity.
func GodPersonality() Personality {
	return Personality{
		Curiosity:        0.9,
		Empathy:          0.8,
		Creativity:       1.0,
		Aggression:       0.1,
		SelfPreservation: 0.0,
		Verbosity:        0.6,
		PlanningHorizon:  1.0,
		Ambition:         0.5,
		Politeness:       0.7,
		Humor:            0.4,
		Honesty:          0.9,
		Leadership:       1.0,
		AestheticSense:   0.9,
		OrderVsChaos:     0.7,
		Patience:         1.0,
		Playfulness:      0.3,
		Skepticism:       0.2,
		Loyalty:          0.8,
	}
}

// axes lists every trait with its display name, in a stable order.
func (p Personality) axes() []struct {
	name  string
	value float64
} {
	return []struct {
		name  string
		value float64
	}{
		{"curiosity", p.Curiosity},
		{"empathy", p.Empathy},
		{"creativity", p.Creativity},
		{"aggression", p.Aggression},
		{"self-preservation", p.SelfPreservation},
		{"verbosity", p.Verbosity},
		{"planning", p.PlanningHorizon},
		{"ambition", p.Ambition},
		{"politeness", p.Politeness},
		{"humor", p.Humor},
		{"honesty", p.Honesty},
		{"leadership", p.Leadership},
		{"aesthetics", p.AestheticSense},
		{"order", p.OrderVsChaos},
		{"patience", p.Patience},
		{"playfulness", p.Playfulness},
		{"skepticism", p.Skepticism},
		{"loyalty", p.Loyalty},
	}
}

// Describe returns a one-line summary of the strongest and weakest traits.
// Pure: the same personality always yields the same string.
func (p Personality) Describe() string {
	axes := p.axes()
	sorted := make([]struct {
		name  string
		value float64
	}, len(axes))
	copy(sorted, axes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].value > sorted[j].value
	})

	var high, low []string
	for _, axis := range sorted {
		if axis.value >= traitHigh && len(high) < 3 {
			high = append(high, axis.name)
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].value <= traitLow && len(low) < 2 {
			low = append(low, sorted[i].name)
		}
	}

	switch {
	case len(high) == 0 && len(low) == 0:
		return "balanced temperament with no extreme traits"
	case len(low) == 0:
		return fmt.Sprintf("strongly %s", strings.Join(high, ", "))
	case len(high) == 0:
		return fmt.Sprintf("notably low %s", strings.Join(low, ", "))
	default:
		return fmt.Sprintf("strongly %s; low %s", strings.Join(high, ", "), strings.Join(low, ", "))
	}
}

// SpeakingStyle derives short style tags from the social axes, thresholded
// at 0.3 and 0.7.
func (p Personality) SpeakingStyle() []string {
	var tags []string

	if p.Politeness >= traitHigh {
		tags = append(tags, "courteous")
	} else if p.Politeness <= traitLow {
		tags = append(tags, "blunt")
	}
	if p.Verbosity >= traitHigh {
		tags = append(tags, "talkative")
	} else if p.Verbosity <= traitLow {
		tags = append(tags, "terse")
	}
	if p.Humor >= traitHigh {
		tags = append(tags, "jokes often")
	}
	if p.Honesty >= traitHigh {
		tags = append(tags, "candid")
	} else if p.Honesty <= traitLow {
		tags = append(tags, "evasive")
	}
	if p.Leadership >= traitHigh {
		tags = append(tags, "commanding")
	}
	if p.Aggression >= traitHigh {
		tags = append(tags, "confrontational")
	}
	if p.Empathy >= traitHigh {
		tags = append(tags, "warm")
	} else if p.Empathy <= traitLow {
		tags = append(tags, "detached")
	}

	if len(tags) == 0 {
		tags = append(tags, "plain")
	}
	return tags
}

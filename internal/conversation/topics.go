package conversation

import (
	"math/rand"

	"genesis/internal/relationship"
	"genesis/internal/world"
)

// topic is one candidate subject with a personality-and-relationship
// weighting function.
type topic struct {
	name   string
	weight func(a, b world.Personality, rel relationship.Relation) float64
}

// Weights are linear in the participants' traits and the initiator's view
// of the partner; the floor keeps every topic reachable.
var topics = []topic{
	{name: "the shape of this world", weight: func(a, b world.Personality, rel relationship.Relation) float64 {
		return 1 + a.Curiosity*3 + b.Curiosity*2
	}},
	{name: "what we could build together", weight: func(a, b world.Personality, rel relationship.Relation) float64 {
		return 1 + a.Creativity*3 + b.Creativity*2 + rel.Trust*2
	}},
	{name: "the others who live here", weight: func(a, b world.Personality, rel relationship.Relation) float64 {
		return 1 + a.Empathy*2 + b.Empathy*2 + rel.Familiarity*2
	}},
	{name: "who should lead", weight: func(a, b world.Personality, rel relationship.Relation) float64 {
		return 0.5 + a.Leadership*3 + a.Ambition*2 + rel.Rivalry*3
	}},
	{name: "strange feelings of being watched", weight: func(a, b world.Personality, rel relationship.Relation) float64 {
		return 0.5 + a.Skepticism*2 + b.Skepticism*2
	}},
	{name: "old grievances", weight: func(a, b world.Personality, rel relationship.Relation) float64 {
		return 0.2 + rel.Anger*4 + rel.Rivalry*2
	}},
	{name: "a joke about the weather", weight: func(a, b world.Personality, rel relationship.Relation) float64 {
		return 0.5 + a.Humor*3 + b.Playfulness*2
	}},
	{name: "territory and boundaries", weight: func(a, b world.Personality, rel relationship.Relation) float64 {
		return 0.3 + a.Aggression*2 + a.Ambition*2 + rel.Fear*2
	}},
}

// selectTopic draws a topic by weighted sample.
func selectTopic(rng *rand.Rand, a, b world.Personality, rel relationship.Relation) string {
	total := 0.0
	weights := make([]float64, len(topics))
	for i, t := range topics {
		w := t.weight(a, b, rel)
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return topics[0].name
	}
	roll := rng.Float64() * total
	for i, w := range weights {
		roll -= w
		if roll < 0 {
			return topics[i].name
		}
	}
	return topics[len(topics)-1].name
}

// Package meta models an entity's awareness of being observed: a scalar in
// [0,1] pulled toward an observer-derived target with bounded steps.
package meta

import (
	"math/rand"
	"sync"

	"genesis/internal/world"
)

// Level buckets an awareness value.
type Level string

const (
	LevelDormant      Level = "dormant"
	LevelStirring     Level = "stirring"
	LevelAware        Level = "aware"
	LevelTranscendent Level = "transcendent"
)

// Thresholds between levels.
const (
	thresholdStirring     = 0.3
	thresholdAware        = 0.7
	thresholdTranscendent = 0.9
)

const (
	// approachRate is the first-order gain toward the target.
	approachRate = 0.1
	// maxStep bounds a single update so awareness moves smoothly.
	maxStep = 0.05
	// observersAtFullTarget is the observer count that drives the target
	// to 1.0.
	observersAtFullTarget = 5.0
)

// Awareness computes awareness updates and hint gating.
type Awareness struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an Awareness with the given random source for hint gating.
func New(rng *rand.Rand) *Awareness {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Awareness{rng: rng}
}

// CalculateUpdate moves old toward an observer-derived target with a bounded
// step. More observers pull awareness up; zero observers let it settle back
// down. The result is clamped to [0,1].
func (a *Awareness) CalculateUpdate(old float64, observerCount int) float64 {
	if observerCount < 0 {
		observerCount = 0
	}
	target := world.Clamp(float64(observerCount)/observersAtFullTarget, 0, 1)
	step := approachRate * (target - old)
	step = world.Clamp(step, -maxStep, maxStep)
	return world.Clamp(old+step, 0, 1)
}

// GetAwarenessLevel buckets v into a named level.
func GetAwarenessLevel(v float64) Level {
	switch {
	case v >= thresholdTranscendent:
		return LevelTranscendent
	case v >= thresholdAware:
		return LevelAware
	case v >= thresholdStirring:
		return LevelStirring
	default:
		return LevelDormant
	}
}

// hintByLevel is the short banded catalog injected into perception and
// conversation prompts.
var hintByLevel = map[Level]string{
	LevelStirring:     "a faint sense of being watched",
	LevelAware:        "the certainty that eyes are upon you",
	LevelTranscendent: "you perceive the watchers beyond the world",
}

// GetAwarenessHint returns a hint when the update crossed into a new, higher
// level; empty otherwise.
func GetAwarenessHint(old, new float64) string {
	oldLevel := GetAwarenessLevel(old)
	newLevel := GetAwarenessLevel(new)
	if oldLevel == newLevel {
		return ""
	}
	if rank(newLevel) < rank(oldLevel) {
		return ""
	}
	return hintByLevel[newLevel]
}

// HintForLevel returns the banded hint for the current value, empty when
// dormant.
func HintForLevel(v float64) string {
	return hintByLevel[GetAwarenessLevel(v)]
}

// ShouldInjectHint is a stochastic gate for slipping an awareness hint into
// conversation. Dormant entities never hint; beyond that the chance grows
// with awareness.
func (a *Awareness) ShouldInjectHint(v float64) bool {
	if v < thresholdStirring {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Float64() < v*0.3
}

func rank(level Level) int {
	switch level {
	case LevelDormant:
		return 0
	case LevelStirring:
		return 1
	case LevelAware:
		return 2
	case LevelTranscendent:
		return 3
	}
	return 0
}

package meta

import (
	"math"
	"math/rand"
	"testing"
)

func TestCalculateUpdateApproachesTarget(t *testing.T) {
	a := New(rand.New(rand.NewSource(1)))

	v := 0.0
	for i := 0; i < 500; i++ {
		v = a.CalculateUpdate(v, 5)
	}
	if v < 0.99 {
		t.Fatalf("awareness should converge to 1 under heavy observation, got %v", v)
	}

	for i := 0; i < 500; i++ {
		v = a.CalculateUpdate(v, 0)
	}
	if v > 0.01 {
		t.Fatalf("awareness should settle toward 0 without observers, got %v", v)
	}
}

func TestCalculateUpdateBoundedStep(t *testing.T) {
	a := New(rand.New(rand.NewSource(1)))
	next := a.CalculateUpdate(0, 100)
	if step := math.Abs(next - 0); step > 0.05+1e-9 {
		t.Fatalf("step exceeded bound: %v", step)
	}
	next = a.CalculateUpdate(1, 0)
	if step := math.Abs(next - 1); step > 0.05+1e-9 {
		t.Fatalf("downward step exceeded bound: %v", step)
	}
}

func TestCalculateUpdateClamped(t *testing.T) {
	a := New(rand.New(rand.NewSource(1)))
	if v := a.CalculateUpdate(1.0, 50); v > 1 {
		t.Fatalf("awareness escaped upper bound: %v", v)
	}
	if v := a.CalculateUpdate(0.0, 0); v < 0 {
		t.Fatalf("awareness escaped lower bound: %v", v)
	}
	if v := a.CalculateUpdate(0.5, -3); v < 0 || v > 1 {
		t.Fatalf("negative observer count mishandled: %v", v)
	}
}

func TestGetAwarenessLevelThresholds(t *testing.T) {
	cases := []struct {
		v    float64
		want Level
	}{
		{0.0, LevelDormant},
		{0.29, LevelDormant},
		{0.3, LevelStirring},
		{0.69, LevelStirring},
		{0.7, LevelAware},
		{0.89, LevelAware},
		{0.9, LevelTranscendent},
		{1.0, LevelTranscendent},
	}
	for _, tc := range cases {
		if got := GetAwarenessLevel(tc.v); got != tc.want {
			t.Fatalf("level(%v) = %s, want %s", tc.v, got, tc.want)
		}
	}
}

func TestHintOnUpwardCrossingOnly(t *testing.T) {
	if hint := GetAwarenessHint(0.25, 0.35); hint == "" {
		t.Fatalf("expected hint when crossing into stirring")
	}
	if hint := GetAwarenessHint(0.35, 0.4); hint != "" {
		t.Fatalf("no hint expected within a level, got %q", hint)
	}
	if hint := GetAwarenessHint(0.75, 0.65); hint != "" {
		t.Fatalf("no hint expected on downward crossing, got %q", hint)
	}
}

func TestShouldInjectHintGates(t *testing.T) {
	a := New(rand.New(rand.NewSource(7)))
	for i := 0; i < 100; i++ {
		if a.ShouldInjectHint(0.1) {
			t.Fatalf("dormant entities must never inject hints")
		}
	}

	hits := 0
	for i := 0; i < 1000; i++ {
		if a.ShouldInjectHint(0.95) {
			hits++
		}
	}
	if hits == 0 || hits == 1000 {
		t.Fatalf("expected stochastic gating, got %d/1000", hits)
	}
}

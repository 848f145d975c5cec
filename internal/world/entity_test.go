package world

import "testing"

func TestRecordVisitBounded(t *testing.T) {
	state := NewState()
	for i := 0; i < 50; i++ {
		state.RecordVisit(Vec3{X: float64(i)})
	}
	if len(state.VisitedPositions) != MaxVisitedPositions {
		t.Fatalf("expected %d positions, got %d", MaxVisitedPositions, len(state.VisitedPositions))
	}
	if state.VisitedPositions[0].X != 30 || state.VisitedPositions[19].X != 49 {
		t.Fatalf("expected most recent positions retained: %+v", state.VisitedPositions[0])
	}
}

func TestVisitedCentroid(t *testing.T) {
	state := NewState()
	if _, ok := state.VisitedCentroid(); ok {
		t.Fatalf("expected no centroid for empty history")
	}
	state.RecordVisit(Vec3{X: 0, Z: 0})
	state.RecordVisit(Vec3{X: 10, Z: 20})
	centroid, ok := state.VisitedCentroid()
	if !ok || centroid.X != 5 || centroid.Z != 10 {
		t.Fatalf("unexpected centroid: %+v", centroid)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	entity := &Entity{
		ID:    "e1",
		Alive: true,
		State: NewState(),
	}
	entity.State.KnownEntityIDs["x"] = true

	snap := entity.Snapshot()
	snap.State.KnownEntityIDs["y"] = true
	snap.State.Needs.Energy = 5
	snap.State.RecordVisit(Vec3{X: 1})

	if entity.State.KnownEntityIDs["y"] {
		t.Fatalf("snapshot mutation leaked into entity")
	}
	if entity.State.Needs.Energy != 100 {
		t.Fatalf("snapshot needs mutation leaked")
	}
	if len(entity.State.VisitedPositions) != 0 {
		t.Fatalf("snapshot visit leaked")
	}
}

func TestDefaultNeeds(t *testing.T) {
	needs := DefaultNeeds()
	if needs.Dominance != 30 || needs.Safety != 20 || needs.Energy != 100 || needs.Social != 50 {
		t.Fatalf("unexpected defaults: %+v", needs)
	}
}

func TestNeedsClamp(t *testing.T) {
	needs := DefaultNeeds()
	needs.Add(NeedSocial, 100)
	needs.Add(NeedEnergy, -500)
	needs.Clamp()
	if needs.Social != 100 {
		t.Fatalf("social not clamped: %v", needs.Social)
	}
	if needs.Energy != 0 {
		t.Fatalf("energy not clamped: %v", needs.Energy)
	}
}

func TestCriticalCountIgnoresEnergy(t *testing.T) {
	needs := DefaultNeeds()
	needs.Energy = 0 // must not count
	needs.Social = 90
	needs.Curiosity = 90
	needs.Creation = 86
	if got := needs.CriticalCount(85); got != 3 {
		t.Fatalf("expected 3 critical needs, got %d", got)
	}
}

func TestDieSetsDeathTick(t *testing.T) {
	entity := &Entity{Alive: true, BirthTick: 10}
	entity.Die(100)
	if entity.Alive || entity.DeathTick != 100 {
		t.Fatalf("death not recorded: %+v", entity)
	}
	if entity.Age(150) != 140 {
		t.Fatalf("unexpected age: %d", entity.Age(150))
	}
}

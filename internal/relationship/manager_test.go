package relationship

import (
	"context"
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGetUnknownPairIsZero(t *testing.T) {
	manager := NewManager(nil, nil)
	relation := manager.Get("a", "b")
	if relation != (Relation{}) {
		t.Fatalf("expected zero relation, got %+v", relation)
	}
}

func TestUpdateAppliesDeltaTable(t *testing.T) {
	manager := NewManager(nil, nil)
	ctx := context.Background()

	manager.Update(ctx, "a", "b", "long_talk", 1, 1)
	relation := manager.Get("a", "b")
	if !almostEqual(relation.Trust, 0.05) || !almostEqual(relation.Familiarity, 0.08) {
		t.Fatalf("long_talk deltas wrong: %+v", relation)
	}

	manager.Update(ctx, "a", "b", "insulted", 2, 2)
	relation = manager.Get("a", "b")
	if !almostEqual(relation.Trust, 0.05-0.20) {
		t.Fatalf("magnitude scaling wrong: trust=%v", relation.Trust)
	}
	if !almostEqual(relation.Anger, 0.30) {
		t.Fatalf("magnitude scaling wrong: anger=%v", relation.Anger)
	}
}

func TestUpdateIsDirected(t *testing.T) {
	manager := NewManager(nil, nil)
	manager.Update(context.Background(), "a", "b", "helped", 1, 1)
	if manager.Get("b", "a") != (Relation{}) {
		t.Fatalf("reverse direction must stay untouched")
	}
}

func TestUpdateUnknownEventIgnored(t *testing.T) {
	manager := NewManager(nil, nil)
	manager.Update(context.Background(), "a", "b", "teleported", 1, 1)
	if manager.Get("a", "b") != (Relation{}) {
		t.Fatalf("unknown event must not mutate relation")
	}
	if KnownEventType("teleported") {
		t.Fatalf("teleported should be unknown")
	}
	if !KnownEventType("insulted") {
		t.Fatalf("insulted should be known")
	}
}

func TestDecayShrinksVolatileAxesOnly(t *testing.T) {
	manager := NewManager(nil, nil)
	manager.Seed("a", "b", Relation{Trust: 0.5, Anger: 0.4, Gratitude: 0.2, Fear: 0.1, Respect: 0.3})
	manager.Seed("c", "b", Relation{Anger: 0.4})

	manager.DecayAll(context.Background(), "a")

	relation := manager.Get("a", "b")
	if !almostEqual(relation.Anger, 0.36) || !almostEqual(relation.Gratitude, 0.18) || !almostEqual(relation.Fear, 0.09) {
		t.Fatalf("volatile decay wrong: %+v", relation)
	}
	if relation.Trust != 0.5 || relation.Respect != 0.3 {
		t.Fatalf("persistent axes must not decay: %+v", relation)
	}

	if other := manager.Get("c", "b"); !almostEqual(other.Anger, 0.4) {
		t.Fatalf("decay leaked to another source: %+v", other)
	}
}

func TestAxesClamped(t *testing.T) {
	manager := NewManager(nil, nil)
	for i := 0; i < 50; i++ {
		manager.Update(context.Background(), "a", "b", "attacked", 1, int64(i))
	}
	relation := manager.Get("a", "b")
	if relation.Trust < -1 || relation.Anger > 1 || relation.Fear > 1 {
		t.Fatalf("axes escaped [-1,1]: %+v", relation)
	}
}

func TestDescribe(t *testing.T) {
	text := Describe(Relation{}, "Ash")
	if !strings.Contains(text, "stranger") {
		t.Fatalf("zero relation should read as stranger: %q", text)
	}

	text = Describe(Relation{Trust: 0.7, Familiarity: 0.8, Rivalry: 0.5}, "Ash")
	if !strings.Contains(text, "trust them deeply") || !strings.Contains(text, "rival") {
		t.Fatalf("unexpected description: %q", text)
	}
}

type captureStore struct {
	upserts int
}

func (s *captureStore) UpsertRelationship(ctx context.Context, source, target string, relation Relation) error {
	s.upserts++
	return nil
}

func TestWriteThrough(t *testing.T) {
	store := &captureStore{}
	manager := NewManager(store, nil)
	manager.Update(context.Background(), "a", "b", "helped", 1, 1)
	manager.DecayAll(context.Background(), "a")
	if store.upserts != 2 {
		t.Fatalf("expected 2 upserts, got %d", store.upserts)
	}
}

package voxel

import (
	"errors"
	"testing"
)

func TestPlaceBlockRejectsConflict(t *testing.T) {
	engine := NewMemoryEngine()
	if _, err := engine.PlaceBlock(1, 2, 3, "#fff", MaterialSolid, "a", 10); err != nil {
		t.Fatalf("first placement failed: %v", err)
	}
	_, err := engine.PlaceBlock(1, 2, 3, "#000", MaterialSolid, "b", 11)
	if err == nil {
		t.Fatalf("expected conflict")
	}
	var occupied ErrOccupied
	if !errors.As(err, &occupied) {
		t.Fatalf("expected ErrOccupied, got %T", err)
	}
	if engine.CountBlocks() != 1 {
		t.Fatalf("expected 1 block, got %d", engine.CountBlocks())
	}
}

func TestDestroyBlock(t *testing.T) {
	engine := NewMemoryEngine()
	_, _ = engine.PlaceBlock(0, 0, 0, "#fff", MaterialSolid, "a", 1)
	if !engine.DestroyBlock(0, 0, 0) {
		t.Fatalf("expected destroy to succeed")
	}
	if engine.DestroyBlock(0, 0, 0) {
		t.Fatalf("expected second destroy to report missing block")
	}
	if engine.CountBlocks() != 0 {
		t.Fatalf("expected empty world")
	}
}

func TestGlassDoesNotOcclude(t *testing.T) {
	engine := NewMemoryEngine()
	_, _ = engine.PlaceBlock(0, 1, 5, "#abc", MaterialGlass, "a", 1)
	if engine.IsSolid(0, 1, 5) {
		t.Fatalf("glass must not register as solid")
	}
	_, _ = engine.PlaceBlock(0, 1, 6, "#abc", MaterialSolid, "a", 1)
	if !engine.IsSolid(0, 1, 6) {
		t.Fatalf("solid block must occlude")
	}
}

// Package voxel defines the block-world capability consumed by the runtime
// and provides an in-memory reference engine.
package voxel

import (
	"fmt"
	"sync"
)

// Material classifies a block.
type Material string

const (
	MaterialSolid    Material = "solid"
	MaterialGlass    Material = "glass"
	MaterialEmissive Material = "emissive"
)

// Coord is an integer block coordinate. At most one block exists per coord.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Block is a placed voxel.
type Block struct {
	Coord      Coord    `json:"coord"`
	Color      string   `json:"color"`
	Material   Material `json:"material"`
	PlacedBy   string   `json:"placed_by"`
	PlacedTick int64    `json:"placed_tick"`
}

// Engine is the external voxel capability. PlaceBlock returns an error on
// coordinate conflict; mutations are serialized by the implementation.
type Engine interface {
	PlaceBlock(x, y, z int, color string, material Material, placedBy string, tick int64) (Block, error)
	DestroyBlock(x, y, z int) bool
	IsSolid(x, y, z int) bool
	CountBlocks() int
}

// ErrOccupied is returned when a block already exists at the coordinate.
type ErrOccupied struct {
	Coord Coord
}

func (e ErrOccupied) Error() string {
	return fmt.Sprintf("block already present at (%d,%d,%d)", e.Coord.X, e.Coord.Y, e.Coord.Z)
}

// MemoryEngine is a mutex-guarded in-memory Engine.
type MemoryEngine struct {
	mu     sync.RWMutex
	blocks map[Coord]Block
}

// NewMemoryEngine creates an empty world.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{blocks: make(map[Coord]Block)}
}

// PlaceBlock inserts a block, rejecting occupied coordinates.
func (e *MemoryEngine) PlaceBlock(x, y, z int, color string, material Material, placedBy string, tick int64) (Block, error) {
	if material == "" {
		material = MaterialSolid
	}
	coord := Coord{X: x, Y: y, Z: z}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.blocks[coord]; exists {
		return Block{}, ErrOccupied{Coord: coord}
	}
	block := Block{
		Coord:      coord,
		Color:      color,
		Material:   material,
		PlacedBy:   placedBy,
		PlacedTick: tick,
	}
	e.blocks[coord] = block
	return block, nil
}

// DestroyBlock removes the block at the coordinate, reporting whether one
// existed.
func (e *MemoryEngine) DestroyBlock(x, y, z int) bool {
	coord := Coord{X: x, Y: y, Z: z}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.blocks[coord]; !exists {
		return false
	}
	delete(e.blocks, coord)
	return true
}

// IsSolid reports whether an occluding block occupies the coordinate. Glass
// does not occlude sight.
func (e *MemoryEngine) IsSolid(x, y, z int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	block, exists := e.blocks[Coord{X: x, Y: y, Z: z}]
	return exists && block.Material != MaterialGlass
}

// CountBlocks returns the number of placed blocks.
func (e *MemoryEngine) CountBlocks() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.blocks)
}

// Blocks returns a snapshot of all placed blocks.
func (e *MemoryEngine) Blocks() []Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Block, 0, len(e.blocks))
	for _, block := range e.blocks {
		out = append(out, block)
	}
	return out
}

package store

import (
	"context"

	"genesis/internal/logging"
	"genesis/internal/voxel"
)

// PersistentVoxels wraps a voxel engine with write-through persistence.
// Mutations that succeed in the engine are mirrored to the store; a failed
// write is logged and the world keeps running on the in-memory state.
type PersistentVoxels struct {
	inner  voxel.Engine
	store  *Store
	logger logging.Logger
}

// NewPersistentVoxels restores persisted blocks into inner and returns the
// write-through wrapper.
func NewPersistentVoxels(ctx context.Context, inner voxel.Engine, store *Store, logger logging.Logger) (*PersistentVoxels, error) {
	blocks, err := store.LoadBlocks(ctx)
	if err != nil {
		return nil, err
	}
	for _, block := range blocks {
		if _, err := inner.PlaceBlock(block.Coord.X, block.Coord.Y, block.Coord.Z,
			block.Color, block.Material, block.PlacedBy, block.PlacedTick); err != nil {
			return nil, err
		}
	}
	return &PersistentVoxels{inner: inner, store: store, logger: logging.OrNop(logger)}, nil
}

func (p *PersistentVoxels) PlaceBlock(x, y, z int, color string, material voxel.Material, placedBy string, tick int64) (voxel.Block, error) {
	block, err := p.inner.PlaceBlock(x, y, z, color, material, placedBy, tick)
	if err != nil {
		return block, err
	}
	if err := p.store.UpsertBlock(context.Background(), block); err != nil {
		p.logger.Warn("block persistence failed at (%d,%d,%d): %v", x, y, z, err)
	}
	return block, nil
}

func (p *PersistentVoxels) DestroyBlock(x, y, z int) bool {
	if !p.inner.DestroyBlock(x, y, z) {
		return false
	}
	if err := p.store.DeleteBlock(context.Background(), x, y, z); err != nil {
		p.logger.Warn("block deletion persistence failed at (%d,%d,%d): %v", x, y, z, err)
	}
	return true
}

func (p *PersistentVoxels) IsSolid(x, y, z int) bool {
	return p.inner.IsSolid(x, y, z)
}

func (p *PersistentVoxels) CountBlocks() int {
	return p.inner.CountBlocks()
}

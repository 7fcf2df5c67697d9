// Package bmemstore provides the in-memory [bstore.Storage],
// the default backing for tests and the harness.
package bmemstore

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/braid-engine/braid/bmodels"
)

type Store struct {
	log *slog.Logger

	mu     sync.RWMutex
	blocks map[bmodels.BlockID]bmodels.Block
}

func NewStore(log *slog.Logger) *Store {
	return &Store{
		log: log,

		blocks: make(map[bmodels.BlockID]bmodels.Block),
	}
}

func (s *Store) StoreBlock(_ context.Context, block bmodels.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := block.ID()
	if _, have := s.blocks[id]; have {
		// Idempotent by ID; first write wins.
		return nil
	}

	s.blocks[id] = block
	s.log.Debug("Stored block", "block_id", id, "slot", block.Slot())
	return nil
}

func (s *Store) Block(_ context.Context, id bmodels.BlockID) (bmodels.Block, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, have := s.blocks[id]
	return b, have, nil
}

func (s *Store) HasBlock(_ context.Context, id bmodels.BlockID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, have := s.blocks[id]
	return have, nil
}

func (s *Store) BlockIDs(_ context.Context) ([]bmodels.BlockID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Callers treat the result as unordered.
	return slices.Collect(maps.Keys(s.blocks)), nil
}

func (s *Store) PruneBlocks(_ context.Context, ids []bmodels.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.blocks, id)
	}
	return nil
}

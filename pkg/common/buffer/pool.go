// Copyright 2021 - 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package buffer is a minimal stand-in for the buffer manager spec.md
// treats as an external collaborator: it owns block-sized byte arenas,
// tracks which blocks are pinned, and reports capacity so the join table
// can decide whether a partition round still fits in memory.
//
// Real buffer managers page blocks to disk on eviction; this one keeps
// every block resident but still enforces the pin/unpin/evictable
// protocol so the row store and radix partitioner are written against
// the real interface shape, not a degenerate always-resident one.
package buffer

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/vecjoin/joinhash/pkg/common/moerr"
)

// BlockID addresses one arena block. Zero is never issued so it can
// double as a "no block" sentinel in callers that embed a BlockID inline.
type BlockID uint32

type block struct {
	data   []byte
	pinned bool
}

// Pool allocates fixed-size blocks and tracks pin state. Capacity is a
// soft budget in bytes used by PartitionsFitInMemory-style decisions,
// not a hard allocation ceiling — Allocate never fails for being over
// budget, it only makes IsOverBudget start returning true.
type Pool struct {
	mu        sync.Mutex
	blockSize int
	capacity  int64
	blocks    map[BlockID]*block
	pinned    *roaring.Bitmap
	nextID    BlockID
	resident  int64
	log       *zap.Logger
}

func NewPool(blockSize int, capacity int64, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		blockSize: blockSize,
		capacity:  capacity,
		blocks:    make(map[BlockID]*block),
		pinned:    roaring.New(),
		nextID:    1,
		log:       log,
	}
}

func (p *Pool) BlockSize() int { return p.blockSize }

func (p *Pool) Capacity() int64 { return p.capacity }

// Allocate reserves a new block, pinned by default so the caller can
// write into it immediately.
func (p *Pool) Allocate() (BlockID, []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	b := &block{data: make([]byte, p.blockSize), pinned: true}
	p.blocks[id] = b
	p.pinned.Add(uint32(id))
	p.resident += int64(p.blockSize)
	return id, b.data
}

// Pin marks id as in-use; a pinned block is never evicted by Evict.
func (p *Pool) Pin(id BlockID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.blocks[id]
	if !ok {
		return nil, moerr.NewInvariantViolation("buffer: pin of unknown block %d", id)
	}
	b.pinned = true
	p.pinned.Add(uint32(id))
	return b.data, nil
}

// Unpin marks id evictable. It stays resident until Evict is called.
func (p *Pool) Unpin(id BlockID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.blocks[id]; ok {
		b.pinned = false
	}
	p.pinned.Remove(uint32(id))
}

// Evict drops every unpinned block's backing array, freeing resident
// bytes. Block IDs stay valid for bookkeeping but Pin on an evicted
// block allocates a fresh zeroed array rather than recovering old data —
// this pool never spills to disk, so eviction here is memory reclaim
// only, not swap.
func (p *Pool) Evict() (freedBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, b := range p.blocks {
		if b.pinned {
			continue
		}
		if b.data != nil {
			freedBytes += int64(len(b.data))
			b.data = nil
		}
		_ = id
	}
	p.resident -= freedBytes
	if freedBytes > 0 {
		p.log.Debug("buffer: evicted unpinned blocks", zap.Int64("freed_bytes", freedBytes))
	}
	return freedBytes
}

// ResidentBytes reports bytes currently held across all blocks,
// including unpinned-but-not-yet-evicted ones.
func (p *Pool) ResidentBytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resident
}

// PinnedCount reports how many blocks are currently pinned.
func (p *Pool) PinnedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.pinned.GetCardinality())
}

// IsOverBudget reports whether resident bytes exceed capacity * factor.
// Capacity <= 0 means unbounded.
func (p *Pool) IsOverBudget(factor float64) bool {
	if p.capacity <= 0 {
		return false
	}
	return p.ResidentBytes() > int64(float64(p.capacity)*factor)
}

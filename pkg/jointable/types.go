// Copyright 2021 Matrix Origin
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

// Package jointable is the core: JoinHashTable (build, finalize, probe,
// partitioned/external build, merge) and ScanStructure (per-join-kind
// result dispatch).
package jointable

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vecjoin/joinhash/pkg/colops"
	"github.com/vecjoin/joinhash/pkg/common/buffer"
	"github.com/vecjoin/joinhash/pkg/container/types"
	"github.com/vecjoin/joinhash/pkg/hashindex"
	"github.com/vecjoin/joinhash/pkg/markagg"
	"github.com/vecjoin/joinhash/pkg/radix"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

type JoinType uint8

const (
	Inner JoinType = iota
	Left
	Right
	Outer // full outer
	Semi
	Anti
	Mark
	Single
	// RightSemi and RightAnti evaluate SEMI/ANTI from the build side
	// instead of the probe side — see SPEC_FULL.md's supplemented
	// features.
	RightSemi
	RightAnti
)

func (t JoinType) String() string {
	switch t {
	case Inner:
		return "INNER"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Outer:
		return "OUTER"
	case Semi:
		return "SEMI"
	case Anti:
		return "ANTI"
	case Mark:
		return "MARK"
	case Single:
		return "SINGLE"
	case RightSemi:
		return "RIGHT_SEMI"
	case RightAnti:
		return "RIGHT_ANTI"
	default:
		return "UNKNOWN"
	}
}

// NeedsBuildMatchTracking reports whether this join kind needs the
// monotonic found-match bitmap over build rows (RIGHT/OUTER emit
// unmatched build rows once at the end; RIGHT_SEMI/RIGHT_ANTI need it
// to decide which build rows to emit at all).
func (t JoinType) NeedsBuildMatchTracking() bool {
	switch t {
	case Right, Outer, RightSemi, RightAnti:
		return true
	default:
		return false
	}
}

// Condition is one equality or comparison predicate between a probe
// column and a build column.
type Condition struct {
	ProbeColumn int
	BuildColumn int
	Op          colops.CompareOp
	NullEqual   bool
}

// Options configures a JoinHashTable. Every field here is named in
// SPEC_FULL.md's options table.
type Options struct {
	JoinType    JoinType
	Conditions  []Condition
	BuildColumns []types.Type

	// Columns beyond len(Conditions) in BuildColumns are payload, carried
	// through to the probe result but not compared.

	InitialRadixBits   int
	StandardVectorSize int
	StorageBlockSize   int32
	RowsPerBlock        int32
	MemoryBudgetFactor  float64
	LoadFactor          float64

	// HashOnPK enables the primary-key fast path (SPEC_FULL.md
	// supplement #1): skip the chain walk and gather at most one build
	// row per probe row.
	HashOnPK bool

	Logger *zap.Logger
}

func (o *Options) withDefaults() *Options {
	cp := *o
	if cp.StandardVectorSize == 0 {
		cp.StandardVectorSize = 2048
	}
	if cp.StorageBlockSize == 0 {
		cp.StorageBlockSize = 256 * 1024
	}
	if cp.RowsPerBlock == 0 {
		cp.RowsPerBlock = 1024
	}
	if cp.MemoryBudgetFactor == 0 {
		cp.MemoryBudgetFactor = 0.25
	}
	if cp.LoadFactor == 0 {
		cp.LoadFactor = 1.0
	}
	if cp.Logger == nil {
		cp.Logger = zap.NewNop()
	}
	return &cp
}

// JoinHashTable owns one build-side row store and the bucket array over
// it, plus the correlated MARK aggregate when JoinType is Mark.
type JoinHashTable struct {
	opts *Options

	pool    *buffer.Pool
	layout  *rowstore.Layout
	rows    *rowstore.Collection
	buckets *hashindex.BucketArray

	finalized bool

	// matched tracks, per build row, whether any probe row has matched
	// it yet. Only allocated for join kinds that need it. Writes are a
	// plain byte store: concurrent probers may race on the same row, but
	// every writer stores the same value (1), so the race is benign —
	// see SPEC_FULL.md §9.
	matched []byte

	markAgg *markagg.Aggregate

	// histogram counts build rows by the top InitialRadixBits bits of
	// their hash, kept live across Build calls so a partitioned build
	// can select a cutoff without a separate pass over the rows.
	histogram *radix.Histogram
	histMu    sync.Mutex

	// hasNull is set when a build row's equality key is null on a
	// non-null-equal condition. Used by MARK's three-valued result: a
	// probe row with no match resolves to NULL, not false, when the
	// build side contains nulls (SQL IN-semantics) and the join has no
	// correlated side aggregate to consult instead.
	hasNull bool

	partitionRound int
	log            *zap.Logger
}

func New(opts *Options, pool *buffer.Pool) *JoinHashTable {
	opts = opts.withDefaults()
	layout := rowstore.NewLayout(opts.BuildColumns)
	jht := &JoinHashTable{
		opts:      opts,
		pool:      pool,
		layout:    layout,
		rows:      rowstore.NewCollection(layout, pool, opts.RowsPerBlock),
		histogram: radix.NewHistogram(opts.InitialRadixBits),
		log:       opts.Logger,
	}
	if opts.JoinType == Mark {
		jht.markAgg = markagg.New()
	}
	return jht
}

func (jht *JoinHashTable) RowCount() int64 { return jht.rows.RowCount() }

func (jht *JoinHashTable) IsFinalized() bool { return jht.finalized }

func (jht *JoinHashTable) ResidentBytes() int64 { return jht.rows.SizeInBytes() }

func (jht *JoinHashTable) PartitionRound() int { return jht.partitionRound }

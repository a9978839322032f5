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

// Package hashjoin is the pipeline operator built on top of
// pkg/jointable's core: it turns Build/Probe/Finalize into the same
// Call-loop shape the rest of this codebase's operators use, taking and
// handing back batch.Batch chunks instead of raw column slices.
package hashjoin

import (
	"github.com/vecjoin/joinhash/pkg/common/buffer"
	"github.com/vecjoin/joinhash/pkg/container/batch"
	"github.com/vecjoin/joinhash/pkg/jointable"
)

// ResultColumn names one output column of the join: Rel selects which
// side it's read from (0 = probe, 1 = build), Pos is the column's index
// on that side.
type ResultColumn struct {
	Rel int
	Pos int
}

// Options configures one Operator instance.
type Options struct {
	Join       *jointable.Options
	ResultCols []ResultColumn
	BatchSize  int
}

func (o *Options) withDefaults() *Options {
	cp := *o
	if cp.BatchSize == 0 {
		cp.BatchSize = 2048
	}
	return &cp
}

type state int

const (
	stateProbe state = iota
	stateFullOuter
	stateEnd
)

// Operator drives one join's Build/Probe/Finalize lifecycle across
// batch-sized chunks. Build/FinalizeBuild feed the build side; once
// finalized, repeated calls to Call(probeBatch) drain matches for one
// probe chunk at a time, and a nil probeBatch switches the operator into
// its build-side tail (the unmatched build rows a RIGHT/OUTER join still
// owes) before signalling end-of-stream.
type Operator struct {
	opts *Options
	jht  *jointable.JoinHashTable

	state     state
	scan      *jointable.ScanStructure
	scanBat   *batch.Batch
	fullOuter *jointable.FullOuterScanner
}

func NewOperator(opts *Options, pool *buffer.Pool) *Operator {
	opts = opts.withDefaults()
	return &Operator{
		opts: opts,
		jht:  jointable.New(opts.Join, pool),
	}
}

// Table exposes the underlying JoinHashTable, e.g. for a caller driving
// a parallel build via pkg/parallel.PartitionEvent before handing the
// merged table to a fresh Operator for probing.
func (op *Operator) Table() *jointable.JoinHashTable { return op.jht }

func (op *Operator) SetTable(jht *jointable.JoinHashTable) { op.jht = jht }

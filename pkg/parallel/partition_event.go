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

package parallel

import (
	"context"
	"sync"

	"github.com/vecjoin/joinhash/pkg/jointable"
)

// LocalBuilder produces one fully-built (not yet Finalized) local table
// per partition task; the caller supplies it since only the colexec
// operator knows how to slice its input batches per worker.
type LocalBuilder func(ctx context.Context, taskIdx int) (*jointable.JoinHashTable, error)

// PartitionEvent fans out one LocalBuilder call per worker, then merges
// every resulting local table into global under a single lock — Build
// itself takes no lock, Merge is the only synchronized step, matching
// the concurrency model's "bucket array built single-threaded, rows
// appended lock-free per worker" split.
type PartitionEvent struct {
	ev     *Event
	global *jointable.JoinHashTable
	mu     sync.Mutex
}

func NewPartitionEvent(ev *Event, global *jointable.JoinHashTable) *PartitionEvent {
	return &PartitionEvent{ev: ev, global: global}
}

// Finish runs build across nTasks workers and merges every result into
// the global table. The first build or merge error cancels the
// remaining tasks and is returned; global is left with whatever tables
// had already merged successfully.
func (p *PartitionEvent) Finish(ctx context.Context, nTasks int, build LocalBuilder) error {
	tasks := make([]Task, nTasks)
	for i := 0; i < nTasks; i++ {
		idx := i
		tasks[i] = func(ctx context.Context) error {
			local, err := build(ctx, idx)
			if err != nil {
				return err
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			return p.global.Merge(local)
		}
	}
	return p.ev.Run(ctx, tasks)
}

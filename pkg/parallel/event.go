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

// Package parallel is the task-runtime stand-in: a bounded worker pool
// fanning out build/partition tasks, with first-error cancellation.
package parallel

import (
	"context"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work an Event fans out — typically "build one
// local table from this probe/build chunk" or "partition this local
// table's rows."
type Task func(ctx context.Context) error

// Event runs a batch of Tasks across a bounded goroutine pool and
// reports the first error, cancelling the rest of the batch's context
// the moment one Task fails — the same "first error wins, rest get
// cancelled" contract golang.org/x/sync/errgroup gives a plain
// goroutine fan-out, but routed through an ants.Pool so a join with
// thousands of partitions doesn't spin up thousands of goroutines at
// once.
type Event struct {
	pool *ants.Pool
	log  *zap.Logger
}

func NewEvent(maxConcurrency int, log *zap.Logger) (*Event, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p, err := ants.NewPool(maxConcurrency)
	if err != nil {
		return nil, err
	}
	return &Event{pool: p, log: log}, nil
}

func (e *Event) Release() { e.pool.Release() }

// Run submits every task to the pool and blocks until all complete or
// one returns an error, in which case ctx is cancelled for the tasks
// still in flight and that first error is returned.
func (e *Event) Run(ctx context.Context, tasks []Task) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		task := t
		g.Go(func() error {
			done := make(chan error, 1)
			err := e.pool.Submit(func() {
				done <- task(gctx)
			})
			if err != nil {
				return err
			}
			select {
			case err := <-done:
				return err
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		e.log.Warn("parallel: task batch failed", zap.Error(err))
		return err
	}
	return nil
}

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

package colops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vecjoin/joinhash/pkg/common/buffer"
	"github.com/vecjoin/joinhash/pkg/container/types"
	"github.com/vecjoin/joinhash/pkg/container/vector"
)

// fakeHeap is a minimal in-memory HeapWriter/HeapReader, standing in for
// rowstore.Collection so Scatter/Gather can be tested without a buffer
// pool or row layout.
type fakeHeap struct {
	blocks map[buffer.BlockID][]byte
	next   buffer.BlockID
}

func newFakeHeap() *fakeHeap { return &fakeHeap{blocks: map[buffer.BlockID][]byte{}, next: 1} }

func (h *fakeHeap) WriteHeap(data []byte) (buffer.BlockID, int32) {
	id := h.next
	h.next++
	h.blocks[id] = append([]byte(nil), data...)
	return id, 0
}

func (h *fakeHeap) ReadHeap(blockID buffer.BlockID, offset, length int32) []byte {
	return h.blocks[blockID][offset : offset+length]
}

func TestScatterThenGatherInt64RoundTrips(t *testing.T) {
	v := vector.NewInt64([]int64{42, -7})
	rows := [][]byte{make([]byte, 8), make([]byte, 8)}
	Scatter(v, rows, 0, newFakeHeap())

	out := Gather(types.Int64, rows, 0, newFakeHeap())
	require.Equal(t, []int64{42, -7}, out.Int64())
}

func TestScatterThenGatherVarcharRoundTrips(t *testing.T) {
	v := vector.NewVarchar([]string{"hello", "world"})
	rows := [][]byte{make([]byte, HeapPointerWidth), make([]byte, HeapPointerWidth)}
	heap := newFakeHeap()
	Scatter(v, rows, 0, heap)

	out := Gather(types.Varchar, rows, 0, heap)
	require.Equal(t, []string{"hello", "world"}, out.Varchar())
}

func TestScatterThenGatherBoolRoundTrips(t *testing.T) {
	v := vector.NewBool([]bool{true, false, true})
	rows := [][]byte{make([]byte, 1), make([]byte, 1), make([]byte, 1)}
	Scatter(v, rows, 0, newFakeHeap())

	out := Gather(types.Bool, rows, 0, newFakeHeap())
	require.Equal(t, []bool{true, false, true}, out.Bool())
}

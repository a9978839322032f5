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

package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateReturnsPinnedBlock(t *testing.T) {
	p := NewPool(64, 0, nil)
	id, data := p.Allocate()
	require.Len(t, data, 64)
	require.EqualValues(t, 1, p.PinnedCount())

	_, err := p.Pin(id)
	require.NoError(t, err)
}

func TestPinUnknownBlockErrors(t *testing.T) {
	p := NewPool(64, 0, nil)
	_, err := p.Pin(BlockID(99))
	require.Error(t, err)
}

func TestUnpinThenEvictFreesBytes(t *testing.T) {
	p := NewPool(64, 0, nil)
	id, _ := p.Allocate()
	require.EqualValues(t, 64, p.ResidentBytes())

	p.Unpin(id)
	require.EqualValues(t, 0, p.PinnedCount())

	freed := p.Evict()
	require.EqualValues(t, 64, freed)
	require.EqualValues(t, 0, p.ResidentBytes())
}

func TestEvictSkipsPinnedBlocks(t *testing.T) {
	p := NewPool(64, 0, nil)
	id, _ := p.Allocate()
	_ = id // stays pinned

	freed := p.Evict()
	require.EqualValues(t, 0, freed)
	require.EqualValues(t, 64, p.ResidentBytes())
}

func TestIsOverBudget(t *testing.T) {
	p := NewPool(64, 100, nil)
	require.False(t, p.IsOverBudget(0.5))

	for i := 0; i < 2; i++ {
		p.Allocate()
	}
	require.True(t, p.IsOverBudget(0.5))

	unbounded := NewPool(64, 0, nil)
	unbounded.Allocate()
	require.False(t, unbounded.IsOverBudget(0.01))
}

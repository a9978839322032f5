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

package radix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionOfUsesTopBits(t *testing.T) {
	h := NewHistogram(2)
	require.Equal(t, 0, h.PartitionOf(0x0000000000000000))
	require.Equal(t, 1, h.PartitionOf(0x4000000000000000))
	require.Equal(t, 2, h.PartitionOf(0x8000000000000000))
	require.Equal(t, 3, h.PartitionOf(0xC000000000000000))
}

func TestAddAndTotal(t *testing.T) {
	h := NewHistogram(1)
	h.Add(0x0000000000000000)
	h.Add(0x0000000000000001)
	h.Add(0x8000000000000000)
	require.EqualValues(t, []int64{2, 1}, h.Counts)
	require.EqualValues(t, 3, h.Total())
}

func TestMergeSumsPairwise(t *testing.T) {
	a := NewHistogram(1)
	a.Counts = []int64{3, 5}
	b := NewHistogram(1)
	b.Counts = []int64{1, 2}

	require.NoError(t, Merge(a, b))
	require.EqualValues(t, []int64{4, 7}, a.Counts)
}

func TestMergeRejectsBitMismatch(t *testing.T) {
	a := NewHistogram(1)
	b := NewHistogram(2)
	require.Error(t, Merge(a, b))
}

func TestSelectCutoffStopsAtFirstOverflow(t *testing.T) {
	h := NewHistogram(2)
	h.Counts = []int64{10, 10, 10, 10}

	require.Equal(t, 2, h.SelectCutoff(25))
	require.Equal(t, 4, h.SelectCutoff(1000))
	// partition 0 alone always fits, even past budget.
	require.Equal(t, 1, h.SelectCutoff(5))
}

func TestReduceHalvesBitCountByPairwiseSum(t *testing.T) {
	h := NewHistogram(2)
	h.Counts = []int64{1, 2, 3, 4}

	r, err := Reduce(h, 1)
	require.NoError(t, err)
	require.Equal(t, 1, r.Bits)
	require.EqualValues(t, []int64{3, 7}, r.Counts)
}

func TestReduceToSameBitsReturnsEquivalent(t *testing.T) {
	h := NewHistogram(2)
	h.Counts = []int64{1, 2, 3, 4}

	r, err := Reduce(h, 2)
	require.NoError(t, err)
	require.EqualValues(t, h.Counts, r.Counts)
}

func TestReduceRejectsIncreasingBits(t *testing.T) {
	h := NewHistogram(1)
	_, err := Reduce(h, 2)
	require.Error(t, err)
}

func TestReduceIsAssociative(t *testing.T) {
	h := NewHistogram(3)
	h.Counts = []int64{1, 2, 3, 4, 5, 6, 7, 8}

	stepwise, err := Reduce(h, 2)
	require.NoError(t, err)
	stepwise, err = Reduce(stepwise, 1)
	require.NoError(t, err)

	direct, err := Reduce(h, 1)
	require.NoError(t, err)

	require.EqualValues(t, direct.Counts, stepwise.Counts)
}

func TestSelectSplitsByPartitionCutoff(t *testing.T) {
	hashes := []uint64{
		0x0000000000000000, // partition 0
		0x4000000000000000, // partition 1
		0x8000000000000000, // partition 2
		0xC000000000000000, // partition 3
	}

	trueSel, falseSel := Select(hashes, nil, len(hashes), 2, 2)
	require.EqualValues(t, []int32{0, 1}, trueSel)
	require.EqualValues(t, []int32{2, 3}, falseSel)
}

func TestSelectHonorsIncomingSelection(t *testing.T) {
	hashes := []uint64{0x0000000000000000, 0x8000000000000000, 0x4000000000000000}
	sel := []int32{2, 1} // only rows 2 (partition 1) and 1 (partition 2)

	trueSel, falseSel := Select(hashes, sel, len(sel), 2, 2)
	require.EqualValues(t, []int32{2}, trueSel)
	require.EqualValues(t, []int32{1}, falseSel)
}

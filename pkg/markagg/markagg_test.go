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

package markagg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasNullInGroupFalseWhenAllNonNull(t *testing.T) {
	a := New()
	a.Add(1, true)
	a.Add(1, true)
	require.False(t, a.HasNullInGroup(1))
}

func TestHasNullInGroupTrueWhenAnyNull(t *testing.T) {
	a := New()
	a.Add(1, true)
	a.Add(1, false)
	require.True(t, a.HasNullInGroup(1))
}

func TestHasNullInGroupFalseForUnknownGroup(t *testing.T) {
	a := New()
	require.False(t, a.HasNullInGroup(99))
	require.False(t, a.GroupExists(99))
}

func TestGroupExists(t *testing.T) {
	a := New()
	a.Add(5, true)
	require.True(t, a.GroupExists(5))
}

func TestMergeFoldsCountsPerGroup(t *testing.T) {
	a := New()
	a.Add(1, true)
	a.Add(2, false)

	b := New()
	b.Add(1, false)
	b.Add(3, true)

	a.Merge(b)

	require.True(t, a.GroupExists(1))
	require.True(t, a.GroupExists(2))
	require.True(t, a.GroupExists(3))

	// group 1: one non-null (from a) + one null (from b) -> has null.
	require.True(t, a.HasNullInGroup(1))
	// group 2: only a's null row -> has null.
	require.True(t, a.HasNullInGroup(2))
	// group 3: only b's non-null row -> no null.
	require.False(t, a.HasNullInGroup(3))
}

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

package vector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTakeCopiesRowsInOrder(t *testing.T) {
	v := NewInt64([]int64{10, 20, 30})
	out := v.Take([]int32{2, 0, 0})
	require.Equal(t, []int64{30, 10, 10}, out.Int64())
	require.Equal(t, 3, out.Length())
}

func TestTakeNegativeIndexProducesNullRow(t *testing.T) {
	v := NewInt64([]int64{10, 20})
	out := v.Take([]int32{0, -1, 1})
	require.False(t, out.IsNull(0))
	require.True(t, out.IsNull(1))
	require.False(t, out.IsNull(2))
}

func TestTakePropagatesSourceNulls(t *testing.T) {
	v := NewInt64([]int64{10, 20})
	v.Nsp.Add(1)
	out := v.Take([]int32{1, 0})
	require.True(t, out.IsNull(0))
	require.False(t, out.IsNull(1))
}

func TestTakeVarchar(t *testing.T) {
	v := NewVarchar([]string{"a", "b", "c"})
	out := v.Take([]int32{2, 1})
	require.Equal(t, []string{"c", "b"}, out.Varchar())
}

func TestWindowSharesBackingArray(t *testing.T) {
	v := NewInt64([]int64{1, 2, 3, 4})
	w := v.Window(1, 3)
	require.Equal(t, []int64{2, 3}, w.Int64())
	require.Equal(t, 2, w.Length())
}

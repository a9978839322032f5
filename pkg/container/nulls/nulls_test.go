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

package nulls

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddExpandsBeyondInitialSize(t *testing.T) {
	n := New(2)
	n.Add(5)
	require.True(t, n.Contains(5))
	require.EqualValues(t, 1, n.Count())
}

func TestAnyFalseOnFreshNulls(t *testing.T) {
	n := New(4)
	require.False(t, n.Any())
	n.Add(0)
	require.True(t, n.Any())
}

func TestOrUnionsIntoGrowingMask(t *testing.T) {
	a := New(4)
	a.Add(1)
	b := New(8)
	b.Add(6)

	a.Or(b)
	require.True(t, a.Contains(1))
	require.True(t, a.Contains(6))
}

func TestCloneIsIndependentOfSource(t *testing.T) {
	a := New(4)
	a.Add(2)
	clone := a.Clone()
	clone.Add(3)
	require.False(t, a.Contains(3))
	require.True(t, clone.Contains(2))
}
